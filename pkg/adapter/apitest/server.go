// Package apitest provides an in-process fake of the assistant backend for tests.
package apitest

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/m-mizutani/aiassist/pkg/model"
)

// QueryCall is a query received by the fake backend.
type QueryCall struct {
	FunctionType model.FunctionType `json:"function_type"`
	Style        model.Style        `json:"style"`
	Query        string             `json:"query"`
}

// Reply is a canned HTTP response.
type Reply struct {
	Status int
	Body   any
}

// Server mimics the backend endpoints. Feedback stats are aggregated from
// the feedback it received, so an untouched server reports "no data".
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	queries    []QueryCall
	feedbacks  []model.FeedbackSubmission
	history    []model.QueryHistoryEntry
	queryReply func(QueryCall) Reply
	failures   map[string]Reply
	block      chan struct{}
}

// New starts a fake backend that is closed at test cleanup.
func New(t testing.TB) *Server {
	s := &Server{
		failures: make(map[string]Reply),
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health/", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/query/", s.handleQuery).Methods(http.MethodPost)
	api.HandleFunc("/feedback/", s.handleFeedback).Methods(http.MethodPost)
	api.HandleFunc("/feedback-stats/", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/styles/{function_type}/", s.handleStyles).Methods(http.MethodGet)
	api.HandleFunc("/history/", s.handleHistory).Methods(http.MethodGet)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// SetQueryReply overrides how queries are answered.
func (s *Server) SetQueryReply(f func(QueryCall) Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryReply = f
}

// Fail makes the named endpoint ("query", "feedback", "feedback-stats",
// "styles", "history", "health") answer with reply until Recover is called.
func (s *Server) Fail(endpoint string, reply Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[endpoint] = reply
}

func (s *Server) Recover(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, endpoint)
}

// Block holds every query until the returned release function is called.
func (s *Server) Block() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.block = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}

func (s *Server) Queries() []QueryCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]QueryCall(nil), s.queries...)
}

func (s *Server) Feedbacks() []model.FeedbackSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.FeedbackSubmission(nil), s.feedbacks...)
}

// AddFeedback seeds feedback as if it had been submitted earlier.
func (s *Server) AddFeedback(f model.FeedbackSubmission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedbacks = append(s.feedbacks, f)
}

func (s *Server) failure(endpoint string) (Reply, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.failures[endpoint]
	return r, ok
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if reply, ok := s.failure("health"); ok {
		writeJSON(w, reply.Status, reply.Body)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"message": "AI Assistant API is running",
		"version": "2.0",
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var call QueryCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid body"})
		return
	}

	s.mu.Lock()
	s.queries = append(s.queries, call)
	block := s.block
	replyFunc := s.queryReply
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-r.Context().Done():
			return
		}
	}

	if reply, ok := s.failure("query"); ok {
		writeJSON(w, reply.Status, reply.Body)
		return
	}

	if replyFunc != nil {
		reply := replyFunc(call)
		writeJSON(w, reply.Status, reply.Body)
		return
	}

	response := "echo: " + call.Query
	s.mu.Lock()
	s.history = append(s.history, model.QueryHistoryEntry{
		ID:           int64(len(s.history) + 1),
		FunctionType: call.FunctionType,
		Style:        call.Style,
		Query:        call.Query,
		Response:     response,
	})
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"response": response,
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if reply, ok := s.failure("feedback"); ok {
		writeJSON(w, reply.Status, reply.Body)
		return
	}

	var f model.FeedbackSubmission
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false})
		return
	}
	if f.Rating < model.MinRating || f.Rating > model.MaxRating {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"errors":  map[string]any{"rating": []string{"Rating must be between 1 and 5"}},
		})
		return
	}

	s.AddFeedback(f)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Feedback submitted successfully",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if reply, ok := s.failure("feedback-stats"); ok {
		writeJSON(w, reply.Status, reply.Body)
		return
	}

	feedbacks := s.Feedbacks()
	if len(feedbacks) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"message": "No feedback data available yet."},
		})
		return
	}

	type acc struct{ count, total int }
	perFunc := map[model.FunctionType]*acc{}
	total := 0
	for _, f := range feedbacks {
		total += f.Rating
		a, ok := perFunc[f.FunctionType]
		if !ok {
			a = &acc{}
			perFunc[f.FunctionType] = a
		}
		a.count++
		a.total += f.Rating
	}

	funcStats := map[string]any{}
	for fn, a := range perFunc {
		funcStats[string(fn)] = map[string]any{
			"count":      a.count,
			"avg_rating": round2(float64(a.total) / float64(a.count)),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"total_feedback": len(feedbacks),
			"average_rating": round2(float64(total) / float64(len(feedbacks))),
			"function_stats": funcStats,
		},
	})
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	if reply, ok := s.failure("styles"); ok {
		writeJSON(w, reply.Status, reply.Body)
		return
	}

	fn := model.FunctionType(mux.Vars(r)["function_type"])
	spec, err := fn.Spec()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Invalid function type"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "styles": spec.Styles})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if reply, ok := s.failure("history"); ok {
		writeJSON(w, reply.Status, reply.Body)
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(r.URL.Query().Get("page_size"))
	if err != nil || pageSize < 1 {
		pageSize = 10
	}

	s.mu.Lock()
	entries := append([]model.QueryHistoryEntry(nil), s.history...)
	s.mu.Unlock()

	start := min((page-1)*pageSize, len(entries))
	end := min(start+pageSize, len(entries))

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": model.QueryHistoryPage{
			Results:     entries[start:end],
			TotalCount:  len(entries),
			Page:        page,
			PageSize:    pageSize,
			HasNext:     end < len(entries),
			HasPrevious: page > 1,
		},
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
