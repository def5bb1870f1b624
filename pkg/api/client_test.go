package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/api/", Timeout: 2 * time.Second, Retries: 0})
	require.NoError(t, err)
	return c
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func TestNewClient_TrimsTrailingSlashes(t *testing.T) {
	c, err := NewClient(Config{BaseURL: " https://tracker.example.com/api/// "})
	require.NoError(t, err)
	assert.Equal(t, "https://tracker.example.com/api", c.BaseURL())

	c, err = NewClient(Config{})
	require.NoError(t, err)
	assert.Equal(t, DEFAULT_BASE_URL, c.BaseURL())

	_, err = NewClient(Config{BaseURL: "/api"})
	assert.Error(t, err)
}

func TestListKeywords_BareArray(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/keywords", r.URL.Path)
		jsonHandler(200, `[
			{"keyword_id":"k1","keyword":"x","ranking_position":5,"ranking_url":"https://example.com/x","timestamp":"2024-05-01T02:00:00Z","delta_7":null,"delta_30":-2},
			{"keyword_id":42,"keyword":"y","ranking_position":"n/a"},
			{"keyword":"no id"},
			"garbage"
		]`)(w, r)
	}))

	recs, err := c.ListKeywords(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "k1", recs[0].KeywordID)
	require.NotNil(t, recs[0].RankingPosition)
	assert.Equal(t, 5.0, *recs[0].RankingPosition)
	assert.Nil(t, recs[0].Delta7)
	require.NotNil(t, recs[0].Delta30)
	assert.Equal(t, -2.0, *recs[0].Delta30)
	assert.Equal(t, "2024-05-01T02:00:00Z", recs[0].Timestamp)

	assert.Equal(t, "42", recs[1].KeywordID)
	assert.Nil(t, recs[1].RankingPosition)
}

func TestListKeywords_DataEnvelope(t *testing.T) {
	c := newTestClient(t, jsonHandler(200, `{"data":[{"keyword_id":"a","keyword":"x"}]}`))

	recs, err := c.ListKeywords(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].KeywordID)
}

func TestListKeywords_HTMLErrorPage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><head><title>Index of /</title></head><body>It works</body></html>")
	}))

	_, err := c.ListKeywords(context.Background())
	require.Error(t, err)
	assert.True(t, IsFormat(err))
	assert.Contains(t, err.Error(), "Index of /")
	assert.Contains(t, err.Error(), "status 200")
}

func TestListKeywords_MalformedPayload(t *testing.T) {
	for _, body := range []string{`{"data":{"nope":1}}`, `{"keywords":[]}`, `[{"keyword_id":`} {
		c := newTestClient(t, jsonHandler(200, body))
		_, err := c.ListKeywords(context.Background())
		require.Error(t, err, body)
		assert.True(t, IsFormat(err), body)
	}
}

func TestListKeywords_ApplicationError(t *testing.T) {
	c := newTestClient(t, jsonHandler(500, `{"detail":"database is down"}`))

	_, err := c.ListKeywords(context.Background())
	require.Error(t, err)
	assert.True(t, IsApplication(err))
	assert.Contains(t, err.Error(), "database is down")
}

func TestListKeywords_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: base, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.ListKeywords(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestListKeywords_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.ListKeywords(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestCreateKeyword(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "chicago lawyer", body["keyword"])
		jsonHandler(201, `{"data":{"keyword_id":"k7","keyword":"chicago lawyer","ranking_position":null}}`)(w, r)
	}))

	rec, err := c.CreateKeyword(context.Background(), "chicago lawyer")
	require.NoError(t, err)
	assert.Equal(t, "k7", rec.KeywordID)
	assert.Equal(t, "chicago lawyer", rec.Keyword)
	assert.Nil(t, rec.RankingPosition)
}

func TestCreateKeyword_NoEcho(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec, err := c.CreateKeyword(context.Background(), "airport injury")
	require.NoError(t, err)
	assert.Empty(t, rec.KeywordID)
	assert.Equal(t, "airport injury", rec.Keyword)
}

func TestCreateKeyword_Duplicate(t *testing.T) {
	c := newTestClient(t, jsonHandler(409, `{"error":"keyword already tracked"}`))

	_, err := c.CreateKeyword(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, IsDuplicate(err))
	assert.Contains(t, err.Error(), "keyword already tracked")
}

func TestDeleteKeyword(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, c.DeleteKeyword(context.Background(), "a/b"))
	assert.Equal(t, "/api/keywords/a%2Fb", gotPath)
}

func TestDeleteKeyword_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "no such keyword")
	}))

	err := c.DeleteKeyword(context.Background(), "missing")
	require.Error(t, err)
	var ae *ApplicationError
	require.ErrorAs(t, err, &ae)
	assert.True(t, ae.NotFound())
	assert.Equal(t, "no such keyword", ae.Message)
}

func TestFetchHistory(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/keywords/k1/history", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		jsonHandler(200, `[
			{"timestamp":"2024-05-03T00:00:00Z","position":4},
			{"timestamp":"2024-05-01T00:00:00Z","ranking_position":6},
			{"timestamp":null,"position":1},
			{"timestamp":"2024-05-02T00:00:00Z","position":null}
		]`)(w, r)
	}))

	points, err := c.FetchHistory(context.Background(), "k1", 7)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 6, *points[0].Position)
	assert.Nil(t, points[1].Position)
	assert.Equal(t, 4, *points[2].Position)
	assert.Less(t, points[0].Timestamp, points[1].Timestamp)
}

func TestTriggerRefresh(t *testing.T) {
	var method, path string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		jsonHandler(202, `{"status":"queued"}`)(w, r)
	}))

	require.NoError(t, c.TriggerRefresh(context.Background()))
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/api/refresh", path)
}

func TestObserverSeesEveryCall(t *testing.T) {
	c := newTestClient(t, jsonHandler(500, `{"error":"x"}`))

	var ops []string
	var errs int
	c.SetObserver(func(op string, _ time.Duration, err error) {
		ops = append(ops, op)
		if err != nil {
			errs++
		}
	})

	_, _ = c.ListKeywords(context.Background())
	_ = c.TriggerRefresh(context.Background())
	assert.Equal(t, []string{OpList, OpTrigger}, ops)
	assert.Equal(t, 2, errs)
}
