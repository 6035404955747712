// Package parser reads StepMania .sm charts.
package parser

import (
	"math/big"
	"os"
	"strconv"
	"strings"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"git.lost.host/meutraa/beatjudge/internal/timing"
	"github.com/pkg/errors"
)

type DefaultParser struct{}

// 0 – No note
// 1 – Normal note
// 2 – Hold head
// 3 – Hold/Roll tail
// 4 – Roll head
// M – Mine (or other negative note)
// K – Automatic keysound
// L – Lift note
// F – Fake note

func (p *DefaultParser) mapToNote(ch byte) (game.NoteKind, bool) {
	switch ch {
	case '1':
		return game.Tap, true
	case '2':
		return game.Hold, true
	case '4':
		return game.Roll, true
	case 'M':
		return game.Mine, true
	case 'L':
		return game.Lift, true
	}
	return 0, false
}

func (p *DefaultParser) Parse(file string) ([]*game.Chart, error) {
	data, err := os.ReadFile(file)
	if nil != err {
		return nil, err
	}
	charts, err := p.ParseString(string(data))
	if nil != err {
		return nil, errors.Wrapf(err, "unable to parse %v", file)
	}
	return charts, nil
}

// parsePairs reads a list like "0.000=120.000,4.000=240.000".
func parsePairs(value string) (map[float64]float64, error) {
	pairs := map[float64]float64{}
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		as := strings.Split(pair, "=")
		if len(as) < 2 {
			return nil, errors.Errorf("malformed pair %q", pair)
		}
		beat, err := strconv.ParseFloat(strings.TrimSpace(as[0]), 64)
		if nil != err {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(as[1]), 64)
		if nil != err {
			return nil, err
		}
		pairs[beat] = v
	}
	return pairs, nil
}

func (p *DefaultParser) parseTiming(meta string) (timing.Data, error) {
	var d timing.Data
	for _, mdl := range strings.Split(meta, "#") {
		mdl = strings.TrimSpace(mdl)
		i := strings.Index(mdl, ":")
		if i < 0 {
			continue
		}
		tag := strings.ToUpper(mdl[:i])
		value := mdl[i+1:]
		if end := strings.Index(value, ";"); end >= 0 {
			value = value[:end]
		}
		value = strings.ReplaceAll(value, "\n", "")

		var err error
		switch tag {
		case "OFFSET":
			d.Offset, err = strconv.ParseFloat(strings.TrimSpace(value), 64)
		case "BPMS":
			d.BPMs, err = parsePairs(value)
		case "STOPS":
			d.Stops, err = parsePairs(value)
		case "DELAYS":
			d.Delays, err = parsePairs(value)
		case "WARPS":
			d.Warps, err = parsePairs(value)
		}
		if nil != err {
			return d, errors.Wrapf(err, "#%v", tag)
		}
	}
	return d, nil
}

// noteLines returns the rows of a measure, dropping comments and anything
// that is not a row of nKeys columns.
func noteLines(block string, nKeys int) []string {
	lines := []string{}
	for _, l := range strings.Split(block, "\n") {
		if i := strings.Index(l, "//"); i >= 0 {
			l = l[:i]
		}
		l = strings.TrimSpace(l)
		if len(l) == nKeys {
			lines = append(lines, l)
		}
	}
	return lines
}

func (p *DefaultParser) parseNotes(difficulty game.Difficulty) ([]game.Note, error) {
	nKeys := int(difficulty.NKeys)
	notes := []game.Note{}
	// index of the unclosed head per column
	open := make([]int, nKeys)
	for i := range open {
		open[i] = -1
	}

	section := difficulty.Section
	if end := strings.Index(section, ";"); end >= 0 {
		section = section[:end]
	}
	for measure, block := range strings.Split(section, ",") {
		lines := noteLines(block, nKeys)
		lineCount := int64(len(lines))
		for i, line := range lines {
			// Beat count is 4 per block
			offset := big.NewRat(int64(i*4), lineCount)
			beat, _ := offset.Float64()
			beat += float64(measure * 4)
			denom := int(offset.Denom().Int64())

			for col := 0; col < nKeys; col++ {
				c := line[col]
				if kind, ok := p.mapToNote(c); ok {
					notes = append(notes, game.Note{
						Panel: game.Panel(col),
						Beat:  beat,
						Kind:  kind,
						Denom: denom,
					})
					if kind.IsLengthy() {
						open[col] = len(notes) - 1
					}
				} else if c == '3' {
					// This is a release note of a previous head
					if open[col] < 0 {
						return nil, errors.Errorf("tail without a head in column %v at beat %v", col, beat)
					}
					head := &notes[open[col]]
					head.Length = beat - head.Beat
					open[col] = -1
				}
			}
		}
	}
	for col, head := range open {
		if head >= 0 {
			return nil, errors.Errorf("unclosed hold in column %v at beat %v", col, notes[head].Beat)
		}
	}
	return notes, nil
}

// ParseString parses the contents of an .sm file. Charts of unknown game
// modes are skipped.
func (p *DefaultParser) ParseString(data string) ([]*game.Chart, error) {
	str := strings.ReplaceAll(data, "\r", "")
	sections := strings.Split(str, "#NOTES:")
	td, err := p.parseTiming(sections[0])
	if nil != err {
		return nil, err
	}

	charts := []*game.Chart{}
	for _, section := range sections[1:] {
		lines := strings.SplitN(section, "\n", 7)
		if len(lines) < 7 {
			return nil, errors.New("truncated #NOTES section")
		}
		chartType := strings.TrimSuffix(strings.TrimSpace(lines[1]), ":")
		nKeys, ok := game.ModeKeys(chartType)
		if !ok {
			continue
		}
		difficulty := game.Difficulty{
			Mode:    chartType,
			Name:    strings.TrimSuffix(strings.TrimSpace(lines[3]), ":"),
			Msd:     strings.TrimSuffix(strings.TrimSpace(lines[4]), ":"),
			Section: lines[6],
			NKeys:   nKeys,
		}
		notes, err := p.parseNotes(difficulty)
		if nil != err {
			return nil, errors.Wrapf(err, "%v chart", difficulty.Name)
		}

		chart := &game.Chart{Difficulty: difficulty, Timing: td, Notes: notes}
		for _, n := range notes {
			switch n.Kind {
			case game.Mine:
				chart.MineCount++
			case game.Hold, game.Roll:
				chart.HoldCount++
				chart.NoteCount++
			default:
				chart.NoteCount++
			}
		}
		chart.SortNotes()
		charts = append(charts, chart)
	}
	return charts, nil
}
