// Package config holds the command line and the judge criteria file.
package config

import (
	"strconv"
	"strings"
	"time"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"
)

const (
	PlayCommand   = "play"
	ReplayCommand = "replay"
	BPMCommand    = "bpm"
	ServeCommand  = "serve"
)

type Config struct {
	Debug    bool
	Log      string
	Database string
	Criteria string

	Directory   string
	Difficulty  int
	Rate        float64
	Offset      time.Duration
	Delay       time.Duration
	FramePeriod time.Duration
	KeyHold     time.Duration
	Device      string
	DeviceCodes string
	MIDIPort    string
	MIDINotes   string
	keys4       string
	keys6       string
	keys8       string

	ReplayID int64
	Listen   string
}

// New builds the command line. Parse it with app.Parse, which returns the
// selected command.
func New() (*kingpin.Application, *Config) {
	c := &Config{}
	app := kingpin.New("beatjudge", "Rhythm game timing and judgement")
	app.Version("0.3.0")
	app.Flag("debug", "Log every judgement").BoolVar(&c.Debug)
	app.Flag("log", "Log file, the terminal is taken over while playing").Default("beatjudge.log").StringVar(&c.Log)
	app.Flag("database", "Replay database").Default("beatjudge.db").StringVar(&c.Database)
	app.Flag("criteria", "YAML file of judge windows").Short('c').StringVar(&c.Criteria)

	play := app.Command(PlayCommand, "Play a chart").Default()
	play.Arg("directory", "Song/chart directory").Required().ExistingDirVar(&c.Directory)
	play.Flag("difficulty", "Chart index, asked for when negative").Default("-1").IntVar(&c.Difficulty)
	play.Flag("rate", "Playback speed").Default("1.0").Short('r').Float64Var(&c.Rate)
	play.Flag("offset", "Global offset").Default("0ms").Short('o').DurationVar(&c.Offset)
	play.Flag("delay", "Start delay").Default("1.5s").Short('d').DurationVar(&c.Delay)
	play.Flag("frame-period", "Render frame period").Default("4ms").Short('p').DurationVar(&c.FramePeriod)
	play.Flag("key-hold", "How long a terminal key counts as held after its last repeat").Default("100ms").DurationVar(&c.KeyHold)
	play.Flag("keys-single", "Keys for 4k").Default("_-mp").Short('k').StringVar(&c.keys4)
	play.Flag("keys-solo", "Keys for 6k").Default("ieotsc").StringVar(&c.keys6)
	play.Flag("keys-double", "Keys for 8k").Default("ieonhtsc").StringVar(&c.keys8)
	play.Flag("device", "Read input from an evdev device instead of the terminal").StringVar(&c.Device)
	play.Flag("device-codes", "Key codes of the panels, comma separated").Default("30,31,36,37").StringVar(&c.DeviceCodes)
	play.Flag("midi-port", "Read input from a MIDI port").StringVar(&c.MIDIPort)
	play.Flag("midi-notes", "MIDI notes of the panels, comma separated").Default("36,38,42,46").StringVar(&c.MIDINotes)

	replay := app.Command(ReplayCommand, "Judge a stored round again")
	replay.Arg("id", "Replay id").Required().Int64Var(&c.ReplayID)

	bpm := app.Command(BPMCommand, "Print the dominant bpm of each chart")
	bpm.Arg("directory", "Song/chart directory").Required().ExistingDirVar(&c.Directory)

	serve := app.Command(ServeCommand, "Serve stored replays over HTTP")
	serve.Flag("listen", "Listen address").Default(":8080").StringVar(&c.Listen)

	return app, c
}

func (c *Config) Keys(nKeys uint8) []rune {
	switch nKeys {
	case 4:
		return []rune(c.keys4)
	case 6:
		return []rune(c.keys6)
	case 8:
		return []rune(c.keys8)
	}
	return []rune(c.keys4)
}

// parseList reads a comma separated list of unsigned numbers of the given
// bit size.
func parseList(list string, bits int) ([]uint64, error) {
	var out []uint64
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		v, err := strconv.ParseUint(s, 10, bits)
		if nil != err {
			return nil, errors.Wrapf(err, "in list %q", list)
		}
		out = append(out, v)
	}
	return out, nil
}

// Codes maps the evdev key codes of --device-codes to panels in order.
func (c *Config) Codes() (map[uint16]game.Panel, error) {
	values, err := parseList(c.DeviceCodes, 16)
	if nil != err {
		return nil, err
	}
	codes := make(map[uint16]game.Panel, len(values))
	for i, v := range values {
		codes[uint16(v)] = game.Panel(i)
	}
	return codes, nil
}

// Notes maps the MIDI notes of --midi-notes to panels in order.
func (c *Config) Notes() (map[uint8]game.Panel, error) {
	values, err := parseList(c.MIDINotes, 7)
	if nil != err {
		return nil, err
	}
	notes := make(map[uint8]game.Panel, len(values))
	for i, v := range values {
		notes[uint8(v)] = game.Panel(i)
	}
	return notes, nil
}
