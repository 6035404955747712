package parser

import (
	"git.lost.host/meutraa/beatjudge/internal/game"
	"github.com/pkg/errors"
)

type Parser interface {
	Parse(file string) ([]*game.Chart, error)
}

var ErrNoChart = errors.New("no such chart")

// Select parses file and returns its chart at index.
func Select(p Parser, file string, index int) (*game.Chart, error) {
	charts, err := p.Parse(file)
	if nil != err {
		return nil, err
	}
	if index < 0 || index >= len(charts) {
		return nil, errors.Wrapf(ErrNoChart, "%v has %d charts, asked for %d", file, len(charts), index)
	}
	return charts[index], nil
}
