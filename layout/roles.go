package layout

import "strings"

type Role string

const (
	RoleTank    Role = "tank"
	RoleDamage  Role = "damage"
	RoleSupport Role = "support"
)

// Role markers as they appear in roster sheets, lower-cased. Sheets in
// the wild mix English and Russian spellings, with arbitrary suffixes
// ("Танки", "DPS 1"), hence prefix matching.
var rolePrefixes = []struct {
	prefix string
	role   Role
}{
	{"tank", RoleTank},
	{"танк", RoleTank},
	{"dps", RoleDamage},
	{"дпс", RoleDamage},
	{"дд", RoleDamage},
	{"damage", RoleDamage},
	{"урон", RoleDamage},
	{"support", RoleSupport},
	{"саппорт", RoleSupport},
	{"поддержка", RoleSupport},
	{"хил", RoleSupport},
	{"heal", RoleSupport},
}

// MatchRole reports whether the cell starts with a recognizable
// tank/dps/support marker in English or Russian.
func MatchRole(cell string) (Role, bool) {
	v := strings.ToLower(strings.TrimSpace(cell))
	if v == "" {
		return "", false
	}
	for _, m := range rolePrefixes {
		if strings.HasPrefix(v, m.prefix) {
			return m.role, true
		}
	}
	return "", false
}
