package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"git.lost.host/meutraa/beatjudge/internal/clock"
	"git.lost.host/meutraa/beatjudge/internal/config"
	"git.lost.host/meutraa/beatjudge/internal/game"
	"git.lost.host/meutraa/beatjudge/internal/input"
	"git.lost.host/meutraa/beatjudge/internal/judge"
	"git.lost.host/meutraa/beatjudge/internal/parser"
	"git.lost.host/meutraa/beatjudge/internal/render"
	"git.lost.host/meutraa/beatjudge/internal/score"
	"git.lost.host/meutraa/beatjudge/internal/theme"
	"git.lost.host/meutraa/beatjudge/internal/timing"
	"github.com/eiannone/keyboard"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// outro is how long a round keeps going after its last note.
	outro = 2.0
	// inputLag is how far judging trails the clock, so events stamped
	// before a frame but sent during it are judged in time order.
	inputLag = 0.005
)

// speakerLock guards streamers played by the speaker.
type speakerLock struct{}

func (speakerLock) Lock()   { speaker.Lock() }
func (speakerLock) Unlock() { speaker.Unlock() }

func selectDifficulty(charts []*game.Chart, index int) (int, error) {
	if index >= 0 {
		return index, nil
	}
	for i, c := range charts {
		fmt.Printf("%2v) %3v  %5v  %v\n", i, c.Difficulty.Msd, len(c.Notes), c.Difficulty.Name)
	}
	char, _, err := keyboard.GetSingleKey()
	if nil != err {
		return 0, errors.Wrap(err, "unable to read difficulty")
	}
	i, err := strconv.ParseInt(string(char), 10, 64)
	if nil != err {
		return 0, errors.Wrapf(parser.ErrNoChart, "%q", char)
	}
	return int(i), nil
}

func openAudio(file string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(file)
	if nil != err {
		return nil, beep.Format{}, err
	}
	var streamer beep.StreamSeekCloser
	var format beep.Format
	if filepath.Ext(file) == ".ogg" {
		streamer, format, err = vorbis.Decode(f)
	} else {
		streamer, format, err = mp3.Decode(f)
	}
	if nil != err {
		return nil, format, errors.Wrapf(err, "unable to decode %v", file)
	}
	return streamer, format, nil
}

// startInput starts the input source the configuration asks for. Errors
// of a running source arrive on errs.
func startInput(ctx context.Context, c *config.Config, chart *game.Chart, now func() float64, events chan<- input.Event, errs chan<- error, log *zap.Logger) (func(), error) {
	switch {
	case c.Device != "":
		codes, err := c.Codes()
		if nil != err {
			return nil, err
		}
		return input.ReadEvdev(c.Device, codes, now, events, log)
	case c.MIDIPort != "":
		notes, err := c.Notes()
		if nil != err {
			return nil, err
		}
		return input.ListenMIDI(c.MIDIPort, notes, now, events, log)
	}
	kb := &input.Keyboard{Keys: c.Keys(chart.Difficulty.NKeys), Hold: c.KeyHold, Now: now, Log: log}
	go func() {
		errs <- kb.Run(ctx, events)
	}()
	return func() {}, nil
}

func play(c *config.Config, criteria judge.Criteria, psr parser.Parser, log *zap.Logger) error {
	chartFile, audioFile, err := findFiles(c.Directory)
	if nil != err {
		return err
	}
	if audioFile == "" {
		return errors.New("unable to find .mp3/.ogg file in given directory")
	}
	charts, err := psr.Parse(chartFile)
	if nil != err {
		return err
	}
	index, err := selectDifficulty(charts, c.Difficulty)
	if nil != err {
		return err
	}
	chart, err := parser.Select(psr, chartFile, index)
	if nil != err {
		return err
	}
	model, err := timing.New(chart.Timing)
	if nil != err {
		return err
	}
	end := endTime(chart, model) + outro

	log.Info("opening", zap.String("audio", audioFile), zap.String("chart", chartFile), zap.Stringer("difficulty", chart.Difficulty))
	streamer, format, err := openAudio(audioFile)
	if nil != err {
		return err
	}
	defer streamer.Close()
	rate := beep.SampleRate(math.Round(float64(format.SampleRate) * c.Rate))
	if err := speaker.Init(rate, format.SampleRate.N(time.Second/60)); nil != err {
		return errors.Wrap(err, "unable to open speaker")
	}
	music := clock.NewMusic(streamer, format.SampleRate, c.Rate, c.Offset, speakerLock{})

	var r render.Renderer = render.NewDefault()
	board := &render.Board{Renderer: r, Theme: &theme.DefaultTheme{}, Chart: chart, Row: 2, Col: 2}
	panels := chart.Panels()
	timelines := make(map[game.Panel]*input.Timeline, len(panels))
	for _, panel := range panels {
		timelines[panel] = input.NewTimeline()
	}
	j, err := judge.New(chart.Notes, model, timelines, criteria, panels,
		judge.WithLogger(log),
		judge.WithSubscriber(board.Record),
	)
	if nil != err {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan input.Event, 256)
	errs := make(chan error, 1)
	stop, err := startInput(ctx, c, chart, music.Now, events, errs, log)
	if nil != err {
		return err
	}
	defer stop()

	if err := r.Init(); nil != err {
		return errors.Wrap(err, "unable to set up terminal")
	}
	if columns, _, err := r.Size(); nil == err && columns > 80 {
		board.Col = uint16(columns/2 - 20)
	}

	music.Start(c.Delay)
	go func() {
		time.Sleep(c.Delay)
		speaker.Play(streamer)
	}()

	var quit error
	r.RenderLoop(c.FramePeriod, func() bool {
		for len(events) > 0 {
			j.Feed(<-events)
		}
		now := music.Now()
		j.Update(now - inputLag)
		board.Draw()

		select {
		case quit = <-errs:
			return false
		default:
		}
		return !music.Done() && now < end
	})
	cancel()
	if err := r.Deinit(); nil != err {
		log.Warn("unable to restore terminal", zap.Error(err))
	}
	if nil != quit {
		if errors.Is(quit, input.ErrQuit) {
			return nil
		}
		return quit
	}

	j.Finish()
	summary := board.Summary()
	printSummary(summary)

	scorer, err := openScorer(c, log)
	if nil != err {
		return err
	}
	defer scorer.Deinit()
	id, err := scorer.Save(chart, score.Source{File: chartFile, Difficulty: index}, timelines, c.Rate)
	if nil != err {
		return err
	}
	log.Info("saved round", zap.Int64("id", id), zap.Any("summary", summary))
	fmt.Printf("Saved as replay %v\n", id)
	return nil
}
