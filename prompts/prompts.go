// Package prompts holds the interactive stdin prompts the CLI uses to
// confirm an auto-detected layout before trusting it.
package prompts

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/akulinich/overdraft/layout"
)

func Prompt(message string) string {
	fmt.Fprint(os.Stderr, message)
	buf := bufio.NewReader(os.Stdin)
	input, _ := buf.ReadString('\n')
	return strings.TrimRight(input, "\r\n")
}

// IntPrompt asks until it gets an integer >= min; empty input accepts
// the default.
func IntPrompt(label string, def, min int) int {
	for {
		input := Prompt(fmt.Sprintf("%s [%d]: ", label, def))
		if input == "" {
			return def
		}
		if n, err := strconv.Atoi(input); err == nil && n >= min {
			return n
		}
	}
}

func YesNoPrompt(message string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		input := strings.ToLower(Prompt(fmt.Sprintf("%s (%s) ", message, hint)))
		switch input {
		case "":
			return def
		case "y":
			return true
		case "n":
			return false
		}
	}
}

// ConfirmLayout walks the user through every layout parameter,
// pre-filled with the detected values. Auto-detection is a scored
// guess, so anything below full confidence gets a second pair of eyes.
func ConfirmLayout(cfg layout.Config, confidence float64) layout.Config {
	fmt.Fprintf(os.Stderr, "Auto-detected layout (confidence %.2f)\n", confidence)
	if YesNoPrompt("Accept detected layout as-is?", confidence >= 1) {
		return cfg
	}

	cfg.StartRow = IntPrompt("Start row", cfg.StartRow, 0)
	cfg.StartCol = IntPrompt("Start column", cfg.StartCol, 0)
	cfg.TeamsPerRow = IntPrompt("Teams per row", cfg.TeamsPerRow, 1)
	cfg.ColumnsPerTeam = IntPrompt("Columns per team", cfg.ColumnsPerTeam, 1)
	cfg.SeparatorColumns = IntPrompt("Separator columns", cfg.SeparatorColumns, 0)
	cfg.HeaderRows = IntPrompt("Header rows", cfg.HeaderRows, 1)
	cfg.PlayersPerTeam = IntPrompt("Players per team", cfg.PlayersPerTeam, 1)
	cfg.RowsBetweenBlocks = IntPrompt("Rows between blocks", cfg.RowsBetweenBlocks, 0)
	return cfg
}
