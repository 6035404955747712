package main

import (
	"fmt"
	"math"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"git.lost.host/meutraa/beatjudge/internal/config"
	"git.lost.host/meutraa/beatjudge/internal/game"
	"git.lost.host/meutraa/beatjudge/internal/handlers"
	"git.lost.host/meutraa/beatjudge/internal/judge"
	"git.lost.host/meutraa/beatjudge/internal/parser"
	"git.lost.host/meutraa/beatjudge/internal/render"
	"git.lost.host/meutraa/beatjudge/internal/score"
	"git.lost.host/meutraa/beatjudge/internal/timing"
	"github.com/pkg/errors"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"
)

func main() {
	app, c := config.New()
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	log, err := newLogger(c, command)
	if nil != err {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(command, c, log); nil != err {
		log.Fatal("beatjudge failed", zap.String("command", command), zap.Error(err))
	}
}

// newLogger logs to the log file while playing and to stderr otherwise.
func newLogger(c *config.Config, command string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.Debug {
		cfg = zap.NewDevelopmentConfig()
	}
	if command == config.PlayCommand {
		cfg.OutputPaths = []string{c.Log}
		cfg.ErrorOutputPaths = []string{c.Log}
	}
	return cfg.Build()
}

func run(command string, c *config.Config, log *zap.Logger) error {
	criteria, err := loadCriteria(c.Criteria)
	if nil != err {
		return err
	}
	var psr parser.Parser = &parser.DefaultParser{}

	switch command {
	case config.PlayCommand:
		return play(c, criteria, psr, log)
	case config.ReplayCommand:
		return replay(c, criteria, psr, log)
	case config.BPMCommand:
		return bpm(c, psr)
	case config.ServeCommand:
		return serve(c, criteria, psr, log)
	}
	return errors.Errorf("unknown command %q", command)
}

func loadCriteria(file string) (judge.Criteria, error) {
	if file == "" {
		return config.LoadCriteria(nil, "")
	}
	return config.LoadCriteria(os.DirFS(filepath.Dir(file)), filepath.Base(file))
}

func openScorer(c *config.Config, log *zap.Logger) (score.Scorer, error) {
	var scorer score.Scorer = &score.DefaultScorer{Path: c.Database, Log: log}
	if err := scorer.Init(); nil != err {
		return nil, err
	}
	return scorer, nil
}

// findFiles returns the chart and the audio file of a song directory. Ogg
// is preferred over mp3.
func findFiles(directory string) (chartFile, audioFile string, err error) {
	var mp3File, ogg string
	if err := filepath.Walk(directory, func(p string, info os.FileInfo, err error) error {
		if nil != err {
			return err
		}
		switch path.Ext(info.Name()) {
		case ".mp3":
			mp3File = p
		case ".ogg":
			ogg = p
		case ".sm":
			chartFile = p
		}
		return nil
	}); nil != err {
		return "", "", errors.Wrap(err, "unable to walk song directory")
	}

	audioFile = mp3File
	if ogg != "" {
		audioFile = ogg
	}
	if chartFile == "" {
		return "", "", errors.New("unable to find .sm file in given directory")
	}
	return chartFile, audioFile, nil
}

// endTime is when the last note of chart, or the tail of its last hold,
// is due.
func endTime(chart *game.Chart, model *timing.Model) float64 {
	end := 0.0
	for _, n := range chart.Notes {
		if model.IsWarp(n.Beat) {
			continue
		}
		t, err := model.NoteTimeAt(n.TailBeat())
		if nil == err {
			end = math.Max(end, t)
		}
	}
	return end
}

func printSummary(s score.Summary) {
	for _, label := range render.Labels {
		if n, ok := s.Counts[label]; ok {
			fmt.Printf("%10v:  %6v\n", label, n)
		}
	}
	fmt.Printf("%10v:  %6.2f ms\n", "Mean", s.Mean*1000)
	fmt.Printf("%10v:  %6.2f ms\n", "Stdev", s.Stdev*1000)
}

func replay(c *config.Config, criteria judge.Criteria, psr parser.Parser, log *zap.Logger) error {
	scorer, err := openScorer(c, log)
	if nil != err {
		return err
	}
	defer scorer.Deinit()

	h, err := scorer.Get(c.ReplayID)
	if nil != err {
		return err
	}
	chart, err := parser.Select(psr, h.Source.File, h.Source.Difficulty)
	if nil != err {
		return err
	}
	if score.Sum(chart) != h.Sum {
		return errors.Errorf("chart %v changed since round %d was played", h.Source.File, h.ID)
	}
	j, err := score.Rejudge(chart, h, criteria, judge.WithLogger(log))
	if nil != err {
		return err
	}
	fmt.Printf("%v  %v  x%.2f  %v\n", h.Source.File, chart.Difficulty.Name, h.Rate, h.Created.Format(time.RFC3339))
	printSummary(score.Summarize(j.Judgements()))
	return nil
}

func bpm(c *config.Config, psr parser.Parser) error {
	chartFile, _, err := findFiles(c.Directory)
	if nil != err {
		return err
	}
	charts, err := psr.Parse(chartFile)
	if nil != err {
		return err
	}
	for i, chart := range charts {
		model, err := timing.New(chart.Timing)
		if nil != err {
			return errors.Wrapf(err, "%v chart", chart.Difficulty.Name)
		}
		fmt.Printf("%2v) %3v  %7.2f  %v\n", i, chart.Difficulty.Msd, model.DominantBPMUpTo(endTime(chart, model)), chart.Difficulty.Name)
	}
	return nil
}

func serve(c *config.Config, criteria judge.Criteria, psr parser.Parser, log *zap.Logger) error {
	scorer, err := openScorer(c, log)
	if nil != err {
		return err
	}
	defer scorer.Deinit()

	charts := func(source score.Source) (*game.Chart, error) {
		return parser.Select(psr, source.File, source.Difficulty)
	}
	server := &http.Server{
		Addr:              c.Listen,
		Handler:           handlers.NewHandler(scorer, charts, criteria, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Info("listening", zap.String("address", c.Listen))
	return server.ListenAndServe()
}
