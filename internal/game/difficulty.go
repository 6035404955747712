package game

import "fmt"

// Difficulty is one chart of a song file.
type Difficulty struct {
	Mode    string `yaml:"mode"` // such as dance-single
	Name    string `yaml:"name"`
	Msd     string `yaml:"msd"`
	Section string `yaml:"section"` // the raw note rows
	NKeys   uint8  `yaml:"nkeys"`
}

func (d Difficulty) String() string {
	return fmt.Sprintf("%v %v (%v)", d.Mode, d.Name, d.Msd)
}

// modeKeys holds the panel count of every playable game mode.
var modeKeys = map[string]uint8{
	"dance-single": 4,
	"dance-solo":   6,
	"dance-double": 8,
}

func ModeKeys(mode string) (uint8, bool) {
	n, ok := modeKeys[mode]
	return n, ok
}
