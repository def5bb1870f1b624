package tracker

import (
	"context"
	"time"

	"github.com/blumenshine/rankwatch/pkg/keywords"
)

// Level grades a Notice.
type Level string

const (
	LevelOK    Level = "ok"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notice is the last message surfaced to the user.
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Trend is the ranking history of the selected keyword.
type Trend struct {
	KeywordID string                     `json:"keyword_id"`
	Keyword   string                     `json:"keyword"`
	Days      int                        `json:"days"`
	Points    []keywords.HistoricalPoint `json:"points"`
	FetchedAt time.Time                  `json:"fetched_at"`
	// Error is set when history could not be loaded; Points is then empty.
	Error string `json:"error,omitempty"`
}

// SelectTrend makes id the selected keyword and loads its history over the
// last days days. If another selection is made before the history arrives,
// the result is discarded and ErrStaleSelection is returned. A failed fetch
// still selects the keyword, with an empty history and Trend.Error set.
func (t *Tracker) SelectTrend(ctx context.Context, id string, days int) (Trend, error) {
	row, ok := keywords.Find(t.Rows(), id)
	if !ok {
		return Trend{}, ErrUnknownKeyword
	}
	gen := t.selection.Add(1)
	t.mu.Lock()
	if t.selection.Load() == gen {
		t.selectedID = id
	}
	t.mu.Unlock()
	if days <= 0 {
		days = t.cfg.HistoryDays
	}

	tr := Trend{KeywordID: row.ID, Keyword: row.Keyword, Days: days, Points: []keywords.HistoricalPoint{}}
	points, err := t.cfg.Gateway.FetchHistory(ctx, id, days)
	tr.FetchedAt = t.cfg.Now()
	if err != nil {
		t.log.Warnf("Failed to load history of %q: %v", row.Keyword, err)
		tr.Error = err.Error()
	} else {
		tr.Points = keywords.WindowHistory(points, days, tr.FetchedAt)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selection.Load() != gen {
		t.log.Debugf("Discarding history of %q, selection moved on", row.Keyword)
		return Trend{}, ErrStaleSelection
	}
	t.trend = &tr
	return tr, nil
}

// ClearSelection drops the selected trend. In-flight selections become stale.
func (t *Tracker) ClearSelection() {
	t.selection.Add(1)
	t.mu.Lock()
	t.trend, t.selectedID = nil, ""
	t.mu.Unlock()
}

// Selected returns the current trend, if a keyword is selected.
func (t *Tracker) Selected() (Trend, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.trend == nil {
		return Trend{}, false
	}
	return *t.trend, true
}
