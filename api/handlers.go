package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/category"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 16

type postingRequest struct {
	Category    string `json:"category"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type convertRequest struct {
	Amount int64 `json:"amount"`
}

type walkingRequest struct {
	Steps int64 `json:"steps"`
}

type quizRequest struct {
	QuizType string `json:"quiz_type"`
}

type challengeRequest struct {
	Name string `json:"name"`
}

type activityRequest struct {
	CarbonSaved float64 `json:"carbon_saved"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Ping(r.Context()); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Categories())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.Summary(r.Context(), memberFrom(r.Context()))
	s.respond(w, r, sum, err)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.GetOrCreateProfile(r.Context(), memberFrom(r.Context()))
	s.respond(w, r, p, err)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.Stats(r.Context(), memberFrom(r.Context()))
	s.respond(w, r, st, err)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	v, err := s.ledger.Verify(r.Context(), memberFrom(r.Context()))
	if errors.Is(err, ecoseed.ErrBalanceDrift) && v != nil {
		writeJSON(w, http.StatusConflict, v)
		return
	}
	s.respond(w, r, v, err)
}

func (s *Server) handleEarn(w http.ResponseWriter, r *http.Request) {
	var req postingRequest
	if !s.decode(w, r, &req) {
		return
	}
	sum, err := s.ledger.Earn(r.Context(), memberFrom(r.Context()), ecoseed.EarnInput{
		Category:    parseCategory(req.Category),
		Amount:      req.Amount,
		Description: req.Description,
	})
	s.respond(w, r, sum, err)
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	var req postingRequest
	if !s.decode(w, r, &req) {
		return
	}
	sum, err := s.ledger.Spend(r.Context(), memberFrom(r.Context()), ecoseed.SpendInput{
		Category:    parseCategory(req.Category),
		Amount:      req.Amount,
		Description: req.Description,
	})
	s.respond(w, r, sum, err)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if !s.decode(w, r, &req) {
		return
	}
	sum, err := s.ledger.Convert(r.Context(), memberFrom(r.Context()), req.Amount)
	s.respond(w, r, sum, err)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.ledger.RecordActivity(r.Context(), memberFrom(r.Context()), req.CarbonSaved)
	s.respond(w, r, p, err)
}

func (s *Server) handleEarnWalking(w http.ResponseWriter, r *http.Request) {
	var req walkingRequest
	if !s.decode(w, r, &req) {
		return
	}
	sum, err := s.ledger.EarnForWalking(r.Context(), memberFrom(r.Context()), req.Steps)
	s.respond(w, r, sum, err)
}

func (s *Server) handleEarnQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !s.decode(w, r, &req) {
		return
	}
	sum, err := s.ledger.EarnForQuiz(r.Context(), memberFrom(r.Context()), req.QuizType)
	s.respond(w, r, sum, err)
}

func (s *Server) handleEarnChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if !s.decode(w, r, &req) {
		return
	}
	sum, err := s.ledger.EarnForChallenge(r.Context(), memberFrom(r.Context()), req.Name)
	s.respond(w, r, sum, err)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	size, err := queryInt(r, "size")
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	hp, err := s.ledger.History(r.Context(), memberFrom(r.Context()), ecoseed.PageRequest{Page: page, Size: size})
	s.respond(w, r, hp, err)
}

func (s *Server) handleHistoryByCategory(w http.ResponseWriter, r *http.Request) {
	c := parseCategory(chi.URLParam(r, "category"))
	entries, err := s.ledger.HistoryByCategory(r.Context(), memberFrom(r.Context()), c)
	s.respond(w, r, entries, err)
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeErr(w, r, ecoseed.ValidationError{Field: "body", Message: err.Error()})
		return false
	}
	return true
}

func parseCategory(s string) category.Category {
	return category.Category(strings.ToUpper(strings.TrimSpace(s)))
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ecoseed.ValidationError{Field: key, Message: fmt.Sprintf("not an integer: %q", raw)}
	}
	return n, nil
}
