package whttp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"

	"github.com/blumenshine/rankwatch/pkg/keywords"
)

const (
	USER_AGENT      = "rankwatch/1.0 (+https://github.com/blumenshine/rankwatch)"
	DEFAULT_TIMEOUT = 10 * time.Second
)

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
	Body    []byte
}

type WHTTPRes struct {
	StatusCode     int
	ContentType    string
	ResponseLength int
	HTTPTitle      string
	BodyString     string
}

// ClientConfig controls the retrying client used for every backend call.
type ClientConfig struct {
	Timeout time.Duration
	Retries int
	Proxy   string
}

// NewClient builds a retrying client. Retries apply to GET and HEAD only;
// see SendHTTPRequest.
func NewClient(cfg ClientConfig) (*retryablehttp.Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DEFAULT_TIMEOUT
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	client := retryablehttp.NewClient()
	client.Logger = log.New(io.Discard, "", 0)
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	// Hand the last response back instead of a "giving up" error so callers
	// still see the backend's status and body.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient.Timeout = cfg.Timeout

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		client.HTTPClient.Transport = &http.Transport{
			Proxy:           http.ProxyURL(proxyURL),
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client, nil
}

// SendHTTPRequest performs wReq and reads the whole body. GET and HEAD go
// through the retry policy; other methods are sent exactly once.
func SendHTTPRequest(ctx context.Context, wReq *WHTTPReq, client *retryablehttp.Client) (wRes *WHTTPRes, err error) {
	if client == nil {
		client, err = NewClient(ClientConfig{})
		if err != nil {
			return nil, err
		}
	}

	var body io.Reader
	if wReq.Body != nil {
		body = bytes.NewReader(wReq.Body)
	}
	req, err := http.NewRequestWithContext(ctx, wReq.Method, wReq.URL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", USER_AGENT)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-transform")
	if wReq.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	var resp *http.Response
	switch wReq.Method {
	case http.MethodGet, http.MethodHead:
		rreq, rerr := retryablehttp.FromRequest(req)
		if rerr != nil {
			return nil, rerr
		}
		resp, err = client.Do(rreq)
	default:
		resp, err = client.HTTPClient.Do(req)
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	wRes = &WHTTPRes{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		BodyString:  string(bodyBytes),
	}
	wRes.ResponseLength = utf8.RuneCountInString(wRes.BodyString)

	if wRes.IsHTML() {
		if title, ok := getHTMLTitle(wRes.BodyString); ok {
			wRes.HTTPTitle = strings.ToValidUTF8(keywords.CollapseSpaces(title), "")
		}
	}
	return wRes, nil
}

// IsJSON reports whether the response declared a JSON content type.
func (r *WHTTPRes) IsJSON() bool {
	ct := strings.ToLower(r.ContentType)
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "+json")
}

// IsHTML reports whether the response looks like an HTML page.
func (r *WHTTPRes) IsHTML() bool {
	if strings.Contains(strings.ToLower(r.ContentType), "text/html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(Clip(r.BodyString, 64)))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

// OK reports a 2xx status.
func (r *WHTTPRes) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Snippet returns a short single-line preview of the body, suitable for
// error messages. HTML pages are reduced to their title and visible text.
func (r *WHTTPRes) Snippet(n int) string {
	text := r.BodyString
	if r.IsHTML() {
		text = visibleText(r.BodyString)
		if r.HTTPTitle != "" && !strings.HasPrefix(text, r.HTTPTitle) {
			text = r.HTTPTitle + " " + text
		}
	}
	return Clip(keywords.CollapseSpaces(text), n)
}

// Clip shortens s to at most n runes, marking the cut with an ellipsis.
func Clip(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

func parseDocument(body string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

func getHTMLTitle(body string) (string, bool) {
	doc, err := parseDocument(body)
	if err != nil {
		return "", false
	}
	sel := doc.Find("title").First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Text(), true
}

func visibleText(body string) string {
	doc, err := parseDocument(body)
	if err != nil {
		return body
	}
	doc.Find("script, style, head").Remove()
	return doc.Find("body").Text()
}
