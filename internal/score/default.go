package score

import (
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"git.lost.host/meutraa/beatjudge/internal/input"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("replay not found")

type DefaultScorer struct {
	Path string
	Log  *zap.Logger
	db   *sql.DB
}

// InputsCompact is the recorded transitions of one panel.
type InputsCompact struct {
	Panel       game.Panel         `json:"p"`
	Transitions []input.Transition `json:"t"`
}

func compactInputs(timelines map[game.Panel]*input.Timeline) []InputsCompact {
	colCount := 0
	for panel := range timelines {
		if int(panel)+1 > colCount {
			colCount = int(panel) + 1
		}
	}
	ins := make([]InputsCompact, colCount)
	for i := range ins {
		ins[i] = InputsCompact{Panel: game.Panel(i), Transitions: []input.Transition{}}
	}
	for panel, tl := range timelines {
		ins[panel].Transitions = tl.Transitions()
	}
	return ins
}

// uncompactInputs returns a timeline for each of panels, empty when
// nothing was recorded for it.
func uncompactInputs(inputs []InputsCompact, panels []game.Panel) map[game.Panel]*input.Timeline {
	timelines := make(map[game.Panel]*input.Timeline, len(panels))
	for _, panel := range panels {
		timelines[panel] = input.NewTimeline()
	}
	for _, in := range inputs {
		tl, ok := timelines[in.Panel]
		if !ok {
			continue
		}
		for _, tr := range in.Transitions {
			tl.SetState(tr.Time, tr.Pressed)
		}
	}
	return timelines
}

func (s *DefaultScorer) Init() error {
	if nil == s.Log {
		s.Log = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", s.Path)
	if err != nil {
		return errors.Wrap(err, "unable to open score database")
	}

	initStatement := `
	create table if not exists scores 
	  (
		  id integer not null primary key, 
		  sum text,
		  file text,
		  difficulty integer,
		  rate real,
		  created integer,
		  inputs bytearray
	  );
	`
	_, err = db.Exec(initStatement)
	if nil != err {
		db.Close()
		return errors.Wrap(err, "unable to create score table")
	}

	s.db = db
	return nil
}

func (s *DefaultScorer) Deinit() {
	if nil != s.db {
		s.db.Close()
	}
}

// Sum identifies a chart by its note data and its timing.
func Sum(c *game.Chart) string {
	h := sha256.New()
	io.WriteString(h, c.Difficulty.Section)
	fmt.Fprintf(h, "\x00offset=%v\n", formatFloat(c.Timing.Offset))
	writePairs(h, "bpms", c.Timing.BPMs)
	writePairs(h, "stops", c.Timing.Stops)
	writePairs(h, "delays", c.Timing.Delays)
	writePairs(h, "warps", c.Timing.Warps)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// writePairs writes m in beat order.
func writePairs(w io.Writer, name string, m map[float64]float64) {
	beats := make([]float64, 0, len(m))
	for beat := range m {
		beats = append(beats, beat)
	}
	sort.Float64s(beats)
	io.WriteString(w, name+":")
	for _, beat := range beats {
		fmt.Fprintf(w, "%v=%v,", formatFloat(beat), formatFloat(m[beat]))
	}
	io.WriteString(w, "\n")
}

func (s *DefaultScorer) Save(c *game.Chart, source Source, timelines map[game.Panel]*input.Timeline, rate float64) (int64, error) {
	data, err := json.Marshal(compactInputs(timelines))
	if nil != err {
		return 0, errors.Wrap(err, "unable to marshal inputs")
	}
	res, err := s.db.Exec("insert into scores(sum, file, difficulty, rate, created, inputs) values(?, ?, ?, ?, ?, ?)",
		Sum(c), source.File, source.Difficulty, rate, time.Now().Unix(), data)
	if nil != err {
		return 0, errors.Wrap(err, "unable to save score")
	}
	return res.LastInsertId()
}

const selectHistory = "select id, sum, file, difficulty, rate, created, inputs from scores"

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHistory(row scanner) (History, error) {
	var h History
	var created int64
	var inputs []byte
	if err := row.Scan(&h.ID, &h.Sum, &h.Source.File, &h.Source.Difficulty, &h.Rate, &created, &inputs); nil != err {
		return h, err
	}
	h.Created = time.Unix(created, 0).UTC()
	if err := json.Unmarshal(inputs, &h.Inputs); nil != err {
		return h, errors.Wrapf(err, "unable to unmarshal inputs of replay %d", h.ID)
	}
	return h, nil
}

func (s *DefaultScorer) Load(c *game.Chart) ([]History, error) {
	return s.LoadSum(Sum(c))
}

// LoadSum returns the stored rounds of a chart, oldest first. Rows that
// cannot be read are logged and skipped.
func (s *DefaultScorer) LoadSum(sum string) ([]History, error) {
	histories := []History{}
	rows, err := s.db.Query(selectHistory+" where sum = ? order by id", sum)
	if nil != err {
		return histories, errors.Wrap(err, "unable to load scores")
	}
	defer rows.Close()
	for rows.Next() {
		h, err := scanHistory(rows)
		if nil != err {
			s.Log.Warn("unable to read stored round", zap.Error(err))
			continue
		}
		histories = append(histories, h)
	}
	return histories, rows.Err()
}

func (s *DefaultScorer) Get(id int64) (History, error) {
	h, err := scanHistory(s.db.QueryRow(selectHistory+" where id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return h, errors.Wrapf(ErrNotFound, "id %d", id)
	}
	return h, err
}
