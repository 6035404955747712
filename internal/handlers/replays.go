// Package handlers serves stored rounds over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"git.lost.host/meutraa/beatjudge/internal/judge"
	"git.lost.host/meutraa/beatjudge/internal/score"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ChartLoader reads the chart a round was played on.
type ChartLoader func(source score.Source) (*game.Chart, error)

type Handler struct {
	scorer   score.Scorer
	charts   ChartLoader
	criteria judge.Criteria
	log      *zap.Logger
}

func NewHandler(scorer score.Scorer, charts ChartLoader, criteria judge.Criteria, log *zap.Logger) *Handler {
	if nil == log {
		log = zap.NewNop()
	}
	return &Handler{scorer: scorer, charts: charts, criteria: criteria, log: log}
}

// Router is a chi router with the handler's routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/charts/{sum}", func(r chi.Router) {
		r.Get("/replays", h.replays)
		r.Get("/summary", h.summaries)
	})
	r.Get("/replays/{id}", h.replay)
}

// RoundSummary is a stored round with the summary of judging it again.
type RoundSummary struct {
	score.History
	Summary score.Summary `json:"summary"`
}

func (h *Handler) replays(w http.ResponseWriter, r *http.Request) {
	histories, err := h.scorer.LoadSum(chi.URLParam(r, "sum"))
	if nil != err {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, histories)
}

func (h *Handler) summaries(w http.ResponseWriter, r *http.Request) {
	histories, err := h.scorer.LoadSum(chi.URLParam(r, "sum"))
	if nil != err {
		h.fail(w, r, err)
		return
	}
	out := make([]RoundSummary, 0, len(histories))
	for _, hist := range histories {
		s, err := h.rejudge(hist)
		if nil != err {
			h.fail(w, r, err)
			return
		}
		out = append(out, s)
	}
	writeJSON(w, out)
}

func (h *Handler) replay(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if nil != err {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	hist, err := h.scorer.Get(id)
	if nil != err {
		h.fail(w, r, err)
		return
	}
	s, err := h.rejudge(hist)
	if nil != err {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, s)
}

func (h *Handler) rejudge(hist score.History) (RoundSummary, error) {
	chart, err := h.charts(hist.Source)
	if nil != err {
		return RoundSummary{}, errors.Wrapf(err, "round %d", hist.ID)
	}
	if sum := score.Sum(chart); sum != hist.Sum {
		return RoundSummary{}, errors.Errorf("round %d: chart %v changed since it was played", hist.ID, hist.Source.File)
	}
	j, err := score.Rejudge(chart, hist, h.criteria)
	if nil != err {
		return RoundSummary{}, errors.Wrapf(err, "round %d", hist.ID)
	}
	return RoundSummary{History: hist, Summary: score.Summarize(j.Judgements())}, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, score.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	h.log.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
