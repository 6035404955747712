package score

import (
	"math"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"git.lost.host/meutraa/beatjudge/internal/judge"
	"git.lost.host/meutraa/beatjudge/internal/timing"
)

// Summary is the judgement counts of a round and the spread of its tap
// timing errors in seconds. Misses do not count towards Mean and Stdev.
type Summary struct {
	Counts map[string]int `json:"counts"`
	Hits   int            `json:"hits"`
	Mean   float64        `json:"mean"`
	Stdev  float64        `json:"stdev"`
}

const (
	Exploded = "Exploded"
	Avoided  = "Avoided"
)

func Summarize(records []judge.Record) Summary {
	s := Summary{Counts: map[string]int{}}
	var errs []float64
	for _, r := range records {
		switch j := r.Judgement.(type) {
		case game.TapJudgement:
			s.Counts[j.Class.String()]++
			if j.Class != game.Miss {
				errs = append(errs, j.Error)
			}
		case game.TailJudgement:
			s.Counts[j.Class.String()]++
		case game.MineJudgement:
			if j.Exploded {
				s.Counts[Exploded]++
			} else {
				s.Counts[Avoided]++
			}
		}
	}

	s.Hits = len(errs)
	if s.Hits == 0 {
		return s
	}
	for _, e := range errs {
		s.Mean += e
	}
	s.Mean /= float64(s.Hits)
	if s.Hits > 1 {
		for _, e := range errs {
			xi := e - s.Mean
			s.Stdev += xi * xi
		}
		s.Stdev /= float64(s.Hits - 1)
		s.Stdev = math.Sqrt(s.Stdev)
	}
	return s
}

// Rejudge judges a stored round of chart again.
func Rejudge(chart *game.Chart, h History, criteria judge.Criteria, opts ...judge.Option) (*judge.Judge, error) {
	model, err := timing.New(chart.Timing)
	if nil != err {
		return nil, err
	}
	panels := chart.Panels()
	return judge.Replay(chart.Notes, model, h.Timelines(panels), criteria, panels, opts...)
}
