package layout

// Detection caps. Sheets with more player rows or team columns than
// this exist, but past these sizes a wrong guess gets expensive, so
// the user confirms instead.
const (
	maxDetectedPlayers = 10
	maxDetectedTeams   = 5
)

// AutoDetect guesses a layout for unlabeled rows by locating role
// markers and measuring the header and roster around them, then scores
// the guess by test-decoding. The result is a suggestion: callers must
// treat low confidence as "ask the user", never as authoritative.
func AutoDetect(rows Grid) (Config, float64) {
	cfg := DefaultConfig()

	roleRows := make(map[int]bool)
	firstRoleRow := -1
	for r := range rows {
		for c := range rows[r] {
			if _, ok := MatchRole(rows.Cell(r, c)); ok {
				roleRows[r] = true
				if firstRoleRow == -1 {
					firstRoleRow = r
				}
				break
			}
		}
	}
	if firstRoleRow == -1 {
		return cfg, 0
	}

	cfg.HeaderRows = detectHeaderRows(rows, firstRoleRow)
	cfg.PlayersPerTeam = detectPlayers(rows, roleRows, firstRoleRow)

	// The number header sits directly above the first player row; if
	// it is blank fall back to the name header.
	headerRow := firstRoleRow - 1
	if blankRow(rows, headerRow) {
		headerRow = firstRoleRow - cfg.HeaderRows
	}
	cfg.TeamsPerRow = detectTeamsPerRow(rows, headerRow)
	cfg.SeparatorColumns = detectSeparatorColumns(rows, firstRoleRow-cfg.HeaderRows)

	teams, perr := Decode(rows, cfg)
	switch {
	case perr == nil && len(teams) > 0:
		conf := float64(len(teams)) / 3
		if conf > 1 {
			conf = 1
		}
		return cfg, conf
	case len(teams) > 0:
		return cfg, 0.5
	default:
		return cfg, 0
	}
}

// detectHeaderRows scans up to 3 rows above the first player row for
// the first one whose nickname column holds something that is not
// itself a role marker.
func detectHeaderRows(g Grid, firstRoleRow int) int {
	for off := 1; off <= 3; off++ {
		r := firstRoleRow - off
		if r < 0 {
			break
		}
		cell := g.Cell(r, 1)
		if cell == "" {
			continue
		}
		if _, ok := MatchRole(cell); ok {
			continue
		}
		return off
	}
	return 2
}

// detectPlayers counts contiguous player rows: rows that carry a role
// marker or a non-blank nickname cell.
func detectPlayers(g Grid, roleRows map[int]bool, firstRoleRow int) int {
	players := 0
	for r := firstRoleRow; r < len(g) && players < maxDetectedPlayers; r++ {
		if !roleRows[r] && g.Cell(r, 1) == "" {
			break
		}
		players++
	}
	if players < 1 {
		players = 1
	}
	return players
}

// detectTeamsPerRow counts header-cell groups to the right of the
// first team, requiring at least 4 columns between groups.
func detectTeamsPerRow(g Grid, row int) int {
	count := 1
	if row < 0 || row >= len(g) {
		return count
	}
	lastNonBlank := 0
	for c := 5; c < len(g[row]); c++ {
		if g.Cell(row, c) == "" {
			continue
		}
		if c-lastNonBlank >= 4 {
			count++
		}
		lastNonBlank = c
		if count >= maxDetectedTeams {
			break
		}
	}
	return count
}

// detectSeparatorColumns measures the blank gap between the first two
// team name cells, minus the 3 data columns past the nickname column.
func detectSeparatorColumns(g Grid, nameRow int) int {
	if nameRow < 0 || nameRow >= len(g) {
		return 1
	}

	firstEnd := -1
	for c := 0; c < len(g[nameRow]); c++ {
		if g.Cell(nameRow, c) != "" {
			firstEnd = c
		} else if firstEnd >= 0 {
			break
		}
	}
	if firstEnd < 0 {
		return 1
	}

	secondStart := -1
	for c := firstEnd + 1; c < len(g[nameRow]); c++ {
		if g.Cell(nameRow, c) != "" {
			secondStart = c
			break
		}
	}
	if secondStart < 0 {
		return 1
	}

	sep := (secondStart - firstEnd - 1) - 3
	if sep < 1 {
		sep = 1
	}
	return sep
}

func blankRow(g Grid, row int) bool {
	if row < 0 || row >= len(g) {
		return true
	}
	for c := range g[row] {
		if g.Cell(row, c) != "" {
			return false
		}
	}
	return true
}
