// Package api is a client for the keyword rank tracker backend.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/blumenshine/rankwatch/pkg/keywords"
	"github.com/blumenshine/rankwatch/pkg/whttp"
)

const (
	DEFAULT_BASE_URL = "http://localhost:8000/api"
	snippetLength    = 60
)

// Operation names, used in errors and reported to the Observer.
const (
	OpList    = "list keywords"
	OpCreate  = "create keyword"
	OpDelete  = "delete keyword"
	OpHistory = "fetch history"
	OpTrigger = "trigger refresh"
)

// Observer is notified after every backend call. err is nil on success.
type Observer func(op string, elapsed time.Duration, err error)

// Config holds the backend location and transport limits.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retries int
	Proxy   string
}

// Client talks to the tracker backend over HTTP.
type Client struct {
	baseURL  string
	http     *retryablehttp.Client
	observer Observer
}

// NewClient builds a Client. An empty base URL falls back to
// DEFAULT_BASE_URL; trailing slashes are dropped.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DEFAULT_BASE_URL
	}
	if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q: must be absolute, e.g. %s", cfg.BaseURL, DEFAULT_BASE_URL)
	}

	hc, err := whttp.NewClient(whttp.ClientConfig{Timeout: cfg.Timeout, Retries: cfg.Retries, Proxy: cfg.Proxy})
	if err != nil {
		return nil, err
	}
	return &Client{baseURL: base, http: hc}, nil
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// SetObserver installs fn to be called after every request.
func (c *Client) SetObserver(fn Observer) { c.observer = fn }

func (c *Client) send(ctx context.Context, op string, req *whttp.WHTTPReq) (res *whttp.WHTTPRes, err error) {
	if c.observer != nil {
		start := time.Now()
		defer func() { c.observer(op, time.Since(start), err) }()
	}

	res, err = whttp.SendHTTPRequest(ctx, req, c.http)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if !res.OK() {
		return res, c.failure(op, res)
	}
	return res, nil
}

// failure classifies a non-2xx response. HTML pages come from something in
// front of the backend and are format errors; anything else is the
// backend's own answer.
func (c *Client) failure(op string, res *whttp.WHTTPRes) error {
	if res.IsHTML() {
		return &FormatError{
			Op:          op,
			StatusCode:  res.StatusCode,
			ContentType: res.ContentType,
			Snippet:     res.Snippet(snippetLength),
		}
	}
	msg := errorMessage(res.BodyString)
	if msg == "" {
		msg = res.Snippet(snippetLength)
	}
	return &ApplicationError{Op: op, StatusCode: res.StatusCode, Message: msg}
}

// requireJSON guards against parsing HTML error pages served with a 2xx.
func requireJSON(op string, res *whttp.WHTTPRes) error {
	if res.IsJSON() {
		return nil
	}
	return &FormatError{
		Op:          op,
		StatusCode:  res.StatusCode,
		ContentType: res.ContentType,
		Snippet:     res.Snippet(snippetLength),
	}
}

// ListKeywords returns every tracked keyword.
func (c *Client) ListKeywords(ctx context.Context) ([]keywords.Record, error) {
	res, err := c.send(ctx, OpList, &whttp.WHTTPReq{Method: http.MethodGet, URL: c.baseURL + "/keywords"})
	if err != nil {
		return nil, err
	}
	if err := requireJSON(OpList, res); err != nil {
		return nil, err
	}
	arr, err := collection(res.BodyString)
	if err != nil {
		return nil, &FormatError{Op: OpList, StatusCode: res.StatusCode, ContentType: res.ContentType, Reason: err.Error(), Snippet: whttp.Clip(res.BodyString, snippetLength)}
	}
	return parseRecords(arr), nil
}

// CreateKeyword starts tracking phrase. The returned record carries at least
// the phrase; KeywordID is empty when the backend did not echo one.
func (c *Client) CreateKeyword(ctx context.Context, phrase string) (keywords.Record, error) {
	body, err := json.Marshal(map[string]string{"keyword": phrase})
	if err != nil {
		return keywords.Record{}, err
	}
	res, err := c.send(ctx, OpCreate, &whttp.WHTTPReq{Method: http.MethodPost, URL: c.baseURL + "/keywords", Body: body})
	if err != nil {
		return keywords.Record{}, err
	}

	rec := keywords.Record{Keyword: phrase}
	if res.IsJSON() && gjson.Valid(res.BodyString) {
		parsed := parseRecord(object(res.BodyString))
		if parsed.Keyword == "" {
			parsed.Keyword = phrase
		}
		rec = parsed
	}
	return rec, nil
}

// DeleteKeyword stops tracking the keyword with the given id.
func (c *Client) DeleteKeyword(ctx context.Context, id string) error {
	_, err := c.send(ctx, OpDelete, &whttp.WHTTPReq{Method: http.MethodDelete, URL: c.baseURL + "/keywords/" + url.PathEscape(id)})
	return err
}

// FetchHistory returns the ranking history of one keyword over the last days
// days, ordered by time.
func (c *Client) FetchHistory(ctx context.Context, id string, days int) ([]keywords.HistoricalPoint, error) {
	if days <= 0 {
		days = keywords.DefaultHistoryDays
	}
	u := c.baseURL + "/keywords/" + url.PathEscape(id) + "/history?days=" + strconv.Itoa(days)
	res, err := c.send(ctx, OpHistory, &whttp.WHTTPReq{Method: http.MethodGet, URL: u})
	if err != nil {
		return nil, err
	}
	if err := requireJSON(OpHistory, res); err != nil {
		return nil, err
	}
	arr, err := collection(res.BodyString)
	if err != nil {
		return nil, &FormatError{Op: OpHistory, StatusCode: res.StatusCode, ContentType: res.ContentType, Reason: err.Error()}
	}
	return parseHistory(arr), nil
}

// TriggerRefresh asks the backend to recompute rankings. It returns once the
// backend acknowledged the request, not when the job is done.
func (c *Client) TriggerRefresh(ctx context.Context) error {
	_, err := c.send(ctx, OpTrigger, &whttp.WHTTPReq{Method: http.MethodPost, URL: c.baseURL + "/refresh", Body: []byte("{}")})
	return err
}
