package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blumenshine/rankwatch/pkg/api"
	"github.com/blumenshine/rankwatch/pkg/keywords"
	"github.com/blumenshine/rankwatch/pkg/metrics"
	"github.com/blumenshine/rankwatch/pkg/storage"
	"github.com/blumenshine/rankwatch/pkg/tracker"
)

type fakeGateway struct {
	mu      sync.Mutex
	list    []keywords.Record
	deleted []string
}

func (f *fakeGateway) ListKeywords(context.Context) ([]keywords.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]keywords.Record(nil), f.list...), nil
}

func (f *fakeGateway) CreateKeyword(_ context.Context, phrase string) (keywords.Record, error) {
	if phrase == "broken" {
		return keywords.Record{}, &api.ApplicationError{Op: api.OpCreate, StatusCode: 500, Message: "boom"}
	}
	return keywords.Record{KeywordID: "new-" + phrase, Keyword: phrase}, nil
}

func (f *fakeGateway) DeleteKeyword(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeGateway) FetchHistory(_ context.Context, id string, _ int) ([]keywords.HistoricalPoint, error) {
	if id == "2" {
		return nil, &api.TransportError{Op: api.OpHistory, Err: errors.New("timeout")}
	}
	return []keywords.HistoricalPoint{{Timestamp: time.Now().UnixMilli(), Position: keywords.IntPtr(4)}}, nil
}

func (f *fakeGateway) TriggerRefresh(context.Context) error { return nil }

type fakeChanges []storage.Change

func (c fakeChanges) ListRecentChanges(_ context.Context, limit int) ([]storage.Change, error) {
	if limit < len(c) {
		return c[:limit], nil
	}
	return c, nil
}

func f64(v float64) *float64 { return &v }

func newTestServer(t *testing.T) (*httptest.Server, *fakeGateway) {
	t.Helper()
	gw := &fakeGateway{list: []keywords.Record{
		{KeywordID: "1", Keyword: "zeta", RankingPosition: f64(7), Delta30: f64(-2)},
		{KeywordID: "2", Keyword: "alpha", RankingPosition: f64(2)},
		{KeywordID: "3", Keyword: "beta"},
	}}
	tr := tracker.New(tracker.Config{Gateway: gw, RefreshDelay: time.Millisecond})
	require.NoError(t, tr.Refresh(context.Background()))

	reg := prometheus.NewRegistry()
	metrics.New(reg, tr)

	changes := fakeChanges{{Keyword: "zeta", ChangeType: storage.ChangeAdded}, {Keyword: "alpha", ChangeType: storage.ChangeAdded}}
	srv := httptest.NewServer(New(tr, changes, reg).Handler())
	t.Cleanup(srv.Close)
	return srv, gw
}

func decode(t *testing.T, res *http.Response, v interface{}) {
	t.Helper()
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

func TestSummary(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/api/summary")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got map[string]interface{}
	decode(t, res, &got)
	assert.Equal(t, 3.0, got["total"])
	assert.Equal(t, 1.0, got["pending"])
	assert.Equal(t, 4.5, got["average_position"])
	assert.Equal(t, 2.0, got["best_position"])
}

func TestKeywordsSortedByRank(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/api/keywords?sort=rank")
	require.NoError(t, err)

	var got []KeywordView
	decode(t, res, &got)
	require.Len(t, got, 3)
	assert.Equal(t, "alpha", got[0].Keyword)
	assert.Equal(t, "zeta", got[1].Keyword)
	assert.Equal(t, "-2", got[1].Delta30Text)
	assert.Equal(t, keywords.TrendImproved, got[1].Trend)
	assert.Equal(t, keywords.StatusPending, got[2].Status)
}

func TestAddKeywords(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Post(srv.URL+"/api/keywords", "application/json", strings.NewReader(`{"input":"gamma, Alpha\nbroken"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got AddKeywordsResponse
	decode(t, res, &got)
	assert.Equal(t, 1, got.Added)
	assert.Equal(t, 1, got.Duplicates)
	assert.Equal(t, 1, got.Failed)
	assert.True(t, got.Partial)
	assert.Equal(t, "Added 1 keyword • 1 duplicate • 1 failed", got.Message)
	assert.Contains(t, got.Errors["broken"], "boom")
}

func TestAddKeywordsRejectsEmptyInput(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Post(srv.URL+"/api/keywords", "application/json", strings.NewReader(`{"input":"  "}`))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestDeleteKeyword(t *testing.T) {
	srv, gw := newTestServer(t)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/keywords/1", nil)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, []string{"1"}, gw.deleted)

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/keywords/missing", nil)
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHistory(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/api/keywords/1/history?days=7")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var trend tracker.Trend
	decode(t, res, &trend)
	assert.Equal(t, 7, trend.Days)
	require.Len(t, trend.Points, 1)
	assert.Equal(t, 4, *trend.Points[0].Position)

	// Backend failure still answers, with an empty history.
	res, err = http.Get(srv.URL + "/api/keywords/2/history")
	require.NoError(t, err)
	decode(t, res, &trend)
	assert.Empty(t, trend.Points)
	assert.Contains(t, trend.Error, "timeout")

	res, err = http.Get(srv.URL + "/api/keywords/1/history?days=abc")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestRefreshAndChanges(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusAccepted, res.StatusCode)

	res, err = http.Get(srv.URL + "/api/changes?limit=1")
	require.NoError(t, err)
	var changes []storage.Change
	decode(t, res, &changes)
	require.Len(t, changes, 1)
	assert.Equal(t, "zeta", changes[0].Keyword)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	buf := new(strings.Builder)
	_, err = io.Copy(buf, res.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `rankwatch_keywords{status="ranked"} 2`)
}
