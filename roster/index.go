package roster

import (
	"strings"

	"github.com/akulinich/overdraft/layout"
)

// Index looks players up by nickname, case-insensitively. Team slots
// reference players by nickname string equality, not identity, so the
// index is rebuilt from scratch on every roster update.
type Index struct {
	players map[string]Player
}

func NewIndex(players []Player) *Index {
	idx := &Index{players: make(map[string]Player, len(players))}
	for _, p := range players {
		idx.players[strings.ToLower(p.Nickname)] = p
	}
	return idx
}

func (i *Index) Lookup(nickname string) (Player, bool) {
	p, ok := i.players[strings.ToLower(strings.TrimSpace(nickname))]
	return p, ok
}

func (i *Index) Len() int { return len(i.players) }

// Resolve maps a decoded team's nickname slots to full player records.
// Unknown nicknames are kept as nickname-only players so the roster UI
// can still render the slot.
func (i *Index) Resolve(team layout.Team) []Player {
	resolved := make([]Player, 0, len(team.PlayerNicknames))
	for _, nick := range team.PlayerNicknames {
		if p, ok := i.Lookup(nick); ok {
			resolved = append(resolved, p)
			continue
		}
		resolved = append(resolved, Player{Nickname: nick})
	}
	return resolved
}
