// Package roster parses the player sheet and indexes players by
// nickname so decoded team slots can be resolved to full player data.
package roster

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/akulinich/overdraft/layout"
)

var numberRegex = regexp.MustCompile(`[0-9]+`)

// Player is one row of the roster sheet.
type Player struct {
	Nickname string      `yaml:"nickname" json:"nickname"`
	Role     layout.Role `yaml:"role,omitempty" json:"role,omitempty"`
	Rating   int         `yaml:"rating,omitempty" json:"rating,omitempty"`
	Heroes   []string    `yaml:"heroes,omitempty" json:"heroes,omitempty"`
}

// Columns maps roster fields to column indexes. -1 means the column
// was not found.
type Columns struct {
	Nickname int `yaml:"nickname" json:"nickname"`
	Role     int `yaml:"role" json:"role"`
	Rating   int `yaml:"rating" json:"rating"`
	Heroes   int `yaml:"heroes" json:"heroes"`
}

// ParseRating pulls the first run of digits out of a rating cell,
// tolerating decorations like "~2500" or "2500 (peak)".
func ParseRating(cell string) (int, bool) {
	digits := numberRegex.FindString(cell)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DetectColumns guesses which column holds which roster field: the
// role column has the most role-marker cells, the rating column the
// most numeric cells, the nickname column is the first remaining text
// column, and the heroes column the first remaining column with
// comma-separated lists.
func DetectColumns(g layout.Grid) Columns {
	cols := Columns{Nickname: -1, Role: -1, Rating: -1, Heroes: -1}

	width := 0
	for _, row := range g {
		if len(row) > width {
			width = len(row)
		}
	}

	roleHits := make([]int, width)
	ratingHits := make([]int, width)
	textHits := make([]int, width)
	commaHits := make([]int, width)
	for r := range g {
		for c := 0; c < width; c++ {
			v := g.Cell(r, c)
			if v == "" {
				continue
			}
			if _, ok := layout.MatchRole(v); ok {
				roleHits[c]++
				continue
			}
			if _, err := strconv.Atoi(v); err == nil {
				ratingHits[c]++
				continue
			}
			textHits[c]++
			if strings.Contains(v, ",") {
				commaHits[c]++
			}
		}
	}

	cols.Role = maxHitColumn(roleHits, nil)
	cols.Rating = maxHitColumn(ratingHits, []int{cols.Role})
	cols.Nickname = firstHitColumn(textHits, []int{cols.Role, cols.Rating})
	cols.Heroes = firstHitColumn(commaHits, []int{cols.Role, cols.Rating, cols.Nickname})
	return cols
}

// Parse extracts one player per row with a non-blank nickname cell.
// Blank and error-token cells degrade to missing fields, matching the
// decoder's behavior.
func Parse(g layout.Grid, cols Columns) []Player {
	var players []Player
	for r := range g {
		if cols.Nickname < 0 {
			break
		}
		nick := g.Cell(r, cols.Nickname)
		if nick == "" {
			continue
		}

		p := Player{Nickname: nick}
		if cols.Role >= 0 {
			if role, ok := layout.MatchRole(g.Cell(r, cols.Role)); ok {
				p.Role = role
			}
		}
		if cols.Rating >= 0 {
			if rating, ok := ParseRating(g.Cell(r, cols.Rating)); ok {
				p.Rating = rating
			}
		}
		if cols.Heroes >= 0 {
			for _, h := range strings.Split(g.Cell(r, cols.Heroes), ",") {
				if h = strings.TrimSpace(h); h != "" {
					p.Heroes = append(p.Heroes, h)
				}
			}
		}
		players = append(players, p)
	}
	return players
}

func maxHitColumn(hits []int, exclude []int) int {
	best, bestHits := -1, 0
	for c, n := range hits {
		if n > bestHits && !contains(exclude, c) {
			best, bestHits = c, n
		}
	}
	return best
}

func firstHitColumn(hits []int, exclude []int) int {
	for c, n := range hits {
		if n > 0 && !contains(exclude, c) {
			return c
		}
	}
	return -1
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
