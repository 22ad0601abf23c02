package layout

import (
	"fmt"
	"strconv"
)

// Team is one decoded team block. Number is the only field a block
// must carry to be emitted; Name falls back to "Team {number}" and the
// roster may be empty for teams that have not been filled in yet.
type Team struct {
	Name            string   `yaml:"name" json:"name"`
	Number          int      `yaml:"number" json:"teamNumber"`
	PlayerNicknames []string `yaml:"players" json:"playerNicknames"`
}

type ErrorKind string

const (
	DataError      ErrorKind = "data_error"
	StructureError ErrorKind = "structure_error"
)

// ParseError points at the single most relevant cell when a decode
// fails structurally. The UI highlights one cell at a time, so at most
// one of these is ever surfaced per call.
type ParseError struct {
	Kind     ErrorKind `json:"kind"`
	Row      int       `json:"row"`
	Col      int       `json:"col"`
	Expected string    `json:"expected"`
	Actual   string    `json:"actual"`
	Message  string    `json:"message"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at (%d,%d): %s", e.Kind, e.Row, e.Col, e.Message)
}

// Decode partitions rows into team blocks according to cfg and
// extracts a team from every block that carries a parsable team
// number. Blocks without a number are skipped silently; individual
// blank or error-token cells degrade gracefully. Decode never panics
// on malformed content and returns at most one ParseError.
func Decode(rows Grid, cfg Config) ([]Team, *ParseError) {
	available := len(rows) - cfg.StartRow
	if available < 0 {
		available = 0
	}
	if available < cfg.TeamDataHeight() {
		return nil, &ParseError{
			Kind:     DataError,
			Row:      cfg.StartRow,
			Col:      cfg.StartCol,
			Expected: strconv.Itoa(cfg.TeamDataHeight()),
			Actual:   strconv.Itoa(available),
			Message: fmt.Sprintf("need at least %d rows for one team block, got %d",
				cfg.TeamDataHeight(), available),
		}
	}

	// A trailing row of blocks missing only its spacer rows still
	// counts as a full row of blocks.
	blockRows := available / cfg.BlockHeight()
	if available%cfg.BlockHeight() >= cfg.TeamDataHeight() {
		blockRows++
	}

	teams := make([]Team, 0, blockRows*cfg.TeamsPerRow)
	for b := 0; b < blockRows; b++ {
		originRow := cfg.StartRow + b*cfg.BlockHeight()
		for t := 0; t < cfg.TeamsPerRow; t++ {
			originCol := cfg.StartCol + t*cfg.BlockWidth()

			number, ok := scanTeamNumber(rows, originRow+cfg.HeaderRows-1, originCol, cfg.ColumnsPerTeam)
			if !ok {
				// No team number means the slot is unoccupied.
				continue
			}

			name := scanTeamName(rows, originRow, originCol, cfg.ColumnsPerTeam)
			if name == "" {
				name = fmt.Sprintf("Team %d", number)
			}

			var nicknames []string
			for p := 0; p < cfg.PlayersPerTeam; p++ {
				// Only the nickname column; role and rating columns
				// are populated from the roster sheet elsewhere.
				if nick := rows.Cell(originRow+cfg.HeaderRows+p, originCol+1); nick != "" {
					nicknames = append(nicknames, nick)
				}
			}

			teams = append(teams, Team{Name: name, Number: number, PlayerNicknames: nicknames})
		}
	}

	if len(teams) == 0 {
		numberRow := cfg.StartRow + cfg.HeaderRows - 1
		return teams, &ParseError{
			Kind:     StructureError,
			Row:      numberRow,
			Col:      cfg.StartCol,
			Expected: "integer team number",
			Actual:   rows.Cell(numberRow, cfg.StartCol),
			Message:  "no team numbers found in any block",
		}
	}

	return teams, nil
}

// scanTeamName takes the first non-blank cell in the block's first
// header row.
func scanTeamName(g Grid, row, col, width int) string {
	for c := col; c < col+width; c++ {
		if v := g.Cell(row, c); v != "" {
			return v
		}
	}
	return ""
}

// scanTeamNumber takes the first cell in the block's last header row
// that parses as an integer.
func scanTeamNumber(g Grid, row, col, width int) (int, bool) {
	for c := col; c < col+width; c++ {
		v := g.Cell(row, c)
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}
