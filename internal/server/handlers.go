package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/blumenshine/rankwatch/internal/utils"
	"github.com/blumenshine/rankwatch/pkg/api"
	"github.com/blumenshine/rankwatch/pkg/keywords"
	"github.com/blumenshine/rankwatch/pkg/tracker"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tracker.ErrUnknownKeyword):
		status = http.StatusNotFound
	case errors.Is(err, tracker.ErrStaleSelection):
		status = http.StatusConflict
	case api.IsTransport(err), api.IsFormat(err), api.IsApplication(err):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type SummaryResponse struct {
	keywords.Summary
	Notice *tracker.Notice `json:"notice,omitempty"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	resp := SummaryResponse{Summary: s.Tracker.Summary()}
	if n := s.Tracker.Notice(); n.Message != "" {
		resp.Notice = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

type KeywordView struct {
	keywords.Row
	Status      keywords.Status `json:"status"`
	Delta30Text string          `json:"delta30_text"`
	Trend       keywords.Trend  `json:"trend"`
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	rows := s.Tracker.Rows()
	if r.URL.Query().Get("sort") == "rank" {
		rows = keywords.SortedByRankThenName(rows)
	}
	out := make([]KeywordView, 0, len(rows))
	for _, row := range rows {
		d := keywords.DeltaPresentation(row.Delta30)
		out = append(out, KeywordView{Row: row, Status: keywords.StatusOf(row), Delta30Text: d.String(), Trend: d.Trend})
	}
	writeJSON(w, http.StatusOK, out)
}

type AddKeywordsRequest struct {
	Input string `json:"input"`
}

type AddKeywordsResponse struct {
	Added        int               `json:"added"`
	Duplicates   int               `json:"duplicates"`
	Failed       int               `json:"failed"`
	Partial      bool              `json:"partial"`
	Message      string            `json:"message"`
	Errors       map[string]string `json:"errors,omitempty"`
	RefreshError string            `json:"refresh_error,omitempty"`
}

func (s *Server) handleAddKeywords(w http.ResponseWriter, r *http.Request) {
	var req AddKeywordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		http.Error(w, "input is empty", http.StatusBadRequest)
		return
	}

	res, err := s.Tracker.AddBulk(r.Context(), req.Input)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := AddKeywordsResponse{
		Added:      res.Added,
		Duplicates: res.Duplicates,
		Failed:     res.Failed,
		Partial:    res.Partial(),
		Message:    res.Message(),
	}
	if len(res.Rejected) > 0 {
		resp.Errors = make(map[string]string, len(res.Rejected))
		for phrase, err := range res.Rejected {
			resp.Errors[phrase] = err.Error()
		}
	}
	if res.RefreshErr != nil {
		resp.RefreshError = res.RefreshErr.Error()
	}

	status := http.StatusOK
	if res.Added == 0 && res.Failed > 0 {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleDeleteKeyword(w http.ResponseWriter, r *http.Request) {
	if err := s.Tracker.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = n
	}

	trend, err := s.Tracker.SelectTrend(r.Context(), r.PathValue("id"), days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// The delayed re-list outlives the request.
	done, err := s.Tracker.TriggerRefreshJob(context.WithoutCancel(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	go func() {
		if err := <-done; err != nil {
			utils.Log.Warnf("Reload after ranking refresh failed: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	changes, err := s.Changes.ListRecentChanges(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}
