package layout

import "fmt"

// Config describes how team blocks tile a sheet. Blocks are laid out
// left to right, TeamsPerRow per row of blocks, then wrap downward.
// Within a block the column meaning is fixed: column 0 is the role,
// column 1 the nickname, columns 2 and 3 ratings (ignored here).
type Config struct {
	StartRow          int `yaml:"startRow" json:"startRow"`
	StartCol          int `yaml:"startCol" json:"startCol"`
	TeamsPerRow       int `yaml:"teamsPerRow" json:"teamsPerRow"`
	ColumnsPerTeam    int `yaml:"columnsPerTeam" json:"columnsPerTeam"`
	SeparatorColumns  int `yaml:"separatorColumns" json:"separatorColumns"`
	HeaderRows        int `yaml:"headerRows" json:"headerRows"`
	PlayersPerTeam    int `yaml:"playersPerTeam" json:"playersPerTeam"`
	RowsBetweenBlocks int `yaml:"rowsBetweenBlocks" json:"rowsBetweenBlocks"`
}

// DefaultConfig is the layout most roster sheets use: three teams per
// row, a name row and a number row, five player slots.
func DefaultConfig() Config {
	return Config{
		StartRow:          0,
		StartCol:          0,
		TeamsPerRow:       3,
		ColumnsPerTeam:    4,
		SeparatorColumns:  1,
		HeaderRows:        2,
		PlayersPerTeam:    5,
		RowsBetweenBlocks: 1,
	}
}

// BlockWidth is the number of columns one team block occupies,
// including its trailing separator columns.
func (c Config) BlockWidth() int { return c.ColumnsPerTeam + c.SeparatorColumns }

// BlockHeight is the number of rows one row of blocks occupies,
// including its trailing spacer rows.
func (c Config) BlockHeight() int { return c.HeaderRows + c.PlayersPerTeam + c.RowsBetweenBlocks }

// TeamDataHeight is the rows of actual team data in a block: the
// header rows plus the player slots, without spacer rows.
func (c Config) TeamDataHeight() int { return c.HeaderRows + c.PlayersPerTeam }

// Validate rejects configs Decode cannot work with. Decode itself does
// not re-check; callers configuring layouts from user input should.
func (c Config) Validate() error {
	if c.StartRow < 0 || c.StartCol < 0 {
		return fmt.Errorf("startRow and startCol must be non-negative")
	}
	if c.TeamsPerRow < 1 {
		return fmt.Errorf("teamsPerRow must be at least 1")
	}
	if c.ColumnsPerTeam < 1 {
		return fmt.Errorf("columnsPerTeam must be at least 1")
	}
	if c.SeparatorColumns < 0 {
		return fmt.Errorf("separatorColumns must be non-negative")
	}
	if c.HeaderRows < 1 {
		return fmt.Errorf("headerRows must be at least 1")
	}
	if c.PlayersPerTeam < 1 {
		return fmt.Errorf("playersPerTeam must be at least 1")
	}
	if c.RowsBetweenBlocks < 0 {
		return fmt.Errorf("rowsBetweenBlocks must be non-negative")
	}
	return nil
}
