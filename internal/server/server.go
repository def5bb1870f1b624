package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blumenshine/rankwatch/internal/utils"
	"github.com/blumenshine/rankwatch/pkg/storage"
	"github.com/blumenshine/rankwatch/pkg/tracker"
)

// ChangeLog is the read side of the local database used by the dashboard.
type ChangeLog interface {
	ListRecentChanges(ctx context.Context, limit int) ([]storage.Change, error)
}

type Server struct {
	Tracker  *tracker.Tracker
	Changes  ChangeLog           // optional
	Gatherer prometheus.Gatherer // optional; nil = no /metrics
}

func New(t *tracker.Tracker, changes ChangeLog, g prometheus.Gatherer) *Server {
	return &Server{
		Tracker:  t,
		Changes:  changes,
		Gatherer: g,
	}
}

// Handler returns the dashboard routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/keywords", s.handleKeywords)
	mux.HandleFunc("POST /api/keywords", s.handleAddKeywords)
	mux.HandleFunc("DELETE /api/keywords/{id}", s.handleDeleteKeyword)
	mux.HandleFunc("GET /api/keywords/{id}/history", s.handleHistory)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	if s.Changes != nil {
		mux.HandleFunc("GET /api/changes", s.handleChanges)
	}
	if s.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	return logRequests(mux)
}

func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		utils.Log.Infof("Starting server on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		utils.Log.Debugf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
