// Package tracker owns the in-memory keyword list of one process and runs
// every operation that changes it.
package tracker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/blumenshine/rankwatch/pkg/api"
	"github.com/blumenshine/rankwatch/pkg/keywords"
	"github.com/blumenshine/rankwatch/pkg/storage"
)

const (
	DefaultConcurrency  = 5
	DefaultRefreshDelay = 5 * time.Second

	// provisionalPrefix marks IDs minted locally for created keywords whose
	// backend response carried no identifier.
	provisionalPrefix = "local-"
)

var (
	ErrStaleSelection = errors.New("trend selection changed while history was loading")
	ErrUnknownKeyword = errors.New("keyword is not tracked")
)

// Gateway is the tracker backend as seen by the Tracker. *api.Client
// implements it.
type Gateway interface {
	ListKeywords(ctx context.Context) ([]keywords.Record, error)
	CreateKeyword(ctx context.Context, phrase string) (keywords.Record, error)
	DeleteKeyword(ctx context.Context, id string) error
	FetchHistory(ctx context.Context, id string, days int) ([]keywords.HistoricalPoint, error)
	TriggerRefresh(ctx context.Context) error
}

// Store persists snapshots of the list. *storage.DB implements it.
type Store interface {
	LoadRows(ctx context.Context) ([]keywords.Row, error)
	SaveSnapshot(ctx context.Context, rows []keywords.Row) ([]storage.Change, error)
}

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Config wires a Tracker.
type Config struct {
	Gateway      Gateway
	Store        Store         // optional
	Log          Logger        // optional; nil = no logging
	Concurrency  int           // parallel creates per batch; defaults to 5 if <= 0
	RefreshDelay time.Duration // wait before re-listing after a refresh job trigger
	HistoryDays  int           // default trend window
	TargetDomain string        // domain stamped on rows created locally
	Now          func() time.Time

	// OnChanges is called with the changes recorded by Store after each
	// list replacement. Nil = no callback.
	OnChanges func(changes []storage.Change)
}

// Tracker is the single owner of the keyword list, the trend selection and
// the last user-facing notice. The list is never mutated in place: every
// operation builds a new slice and swaps it in.
type Tracker struct {
	cfg Config
	log Logger

	// persistMu is held from a list swap until its snapshot is saved, so
	// snapshots reach the Store in the order the list changed.
	persistMu sync.Mutex

	mu         sync.RWMutex
	rows       []keywords.Row
	trend      *Trend
	selectedID string
	notice     Notice

	selection atomic.Uint64
}

// New builds an empty Tracker with no selection.
func New(cfg Config) *Tracker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RefreshDelay < 0 {
		cfg.RefreshDelay = 0
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = keywords.DefaultHistoryDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	return &Tracker{cfg: cfg, log: log, rows: []keywords.Row{}}
}

// Load seeds the list from the Store, if any. Rows with a locally minted ID
// stay unconfirmed until the next Refresh lists them.
func (t *Tracker) Load(ctx context.Context) error {
	if t.cfg.Store == nil {
		return nil
	}
	rows, err := t.cfg.Store.LoadRows(ctx)
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].Unconfirmed = strings.HasPrefix(rows[i].ID, provisionalPrefix)
	}
	t.mu.Lock()
	t.rows = keywords.Reconcile(nil, rows)
	t.mu.Unlock()
	t.log.Debugf("Loaded %d keywords from local snapshot", len(rows))
	return nil
}

// Rows returns a copy of the current list.
func (t *Tracker) Rows() []keywords.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]keywords.Row(nil), t.rows...)
}

// Summary computes the aggregates of the current list.
func (t *Tracker) Summary() keywords.Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return keywords.Summarize(t.rows)
}

// Notice returns the last user-facing message.
func (t *Tracker) Notice() Notice {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.notice
}

// update replaces the list with fn(current) and persists the result.
func (t *Tracker) update(ctx context.Context, fn func([]keywords.Row) []keywords.Row) []keywords.Row {
	t.persistMu.Lock()
	defer t.persistMu.Unlock()

	t.mu.Lock()
	next := fn(t.rows)
	t.rows = next
	t.mu.Unlock()

	t.persist(ctx, next)
	return next
}

func (t *Tracker) persist(ctx context.Context, rows []keywords.Row) {
	if t.cfg.Store == nil {
		return
	}
	changes, err := t.cfg.Store.SaveSnapshot(ctx, rows)
	if err != nil {
		t.log.Warnf("Could not save keyword snapshot: %v", err)
		return
	}
	if len(changes) > 0 && t.cfg.OnChanges != nil {
		t.cfg.OnChanges(changes)
	}
}

func (t *Tracker) setNotice(level Level, msg string) {
	t.mu.Lock()
	t.notice = Notice{Level: level, Message: msg, At: t.cfg.Now()}
	t.mu.Unlock()
}

// Refresh re-lists keywords from the backend and reconciles them with the
// current list. On failure the current list is left untouched.
func (t *Tracker) Refresh(ctx context.Context) error {
	recs, err := t.cfg.Gateway.ListKeywords(ctx)
	if err != nil {
		t.log.Errorf("Failed to load keywords: %v", err)
		t.setNotice(LevelError, "Failed to load keywords: "+err.Error())
		return err
	}
	server := keywords.NormalizeAll(recs)
	rows := t.update(ctx, func(cur []keywords.Row) []keywords.Row {
		return keywords.Reconcile(cur, server)
	})
	t.log.Debugf("Refreshed %d keywords (%d from backend)", len(rows), len(server))
	return nil
}

// Delete removes a keyword from the backend, then from the list without
// waiting for a refresh. Locally minted rows never reached the backend under
// their ID and are only dropped from the list. A keyword the backend no
// longer knows is dropped as well.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	row, ok := keywords.Find(t.Rows(), id)
	if !ok {
		return ErrUnknownKeyword
	}

	if !strings.HasPrefix(id, provisionalPrefix) {
		err := t.cfg.Gateway.DeleteKeyword(ctx, id)
		if api.IsNotFound(err) {
			t.log.Debugf("Backend no longer tracks %q, dropping it", row.Keyword)
			err = nil
		}
		if err != nil {
			t.log.Warnf("Failed to delete %q: %v", row.Keyword, err)
			t.setNotice(LevelError, "Failed to delete: "+err.Error())
			return err
		}
	}

	t.update(ctx, func(cur []keywords.Row) []keywords.Row {
		return keywords.Remove(cur, id)
	})
	if t.selected(id) {
		t.ClearSelection()
	}

	t.setNotice(LevelOK, "Keyword deleted")
	return nil
}

func (t *Tracker) selected(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.selectedID == id
}

func provisionalID() string {
	return provisionalPrefix + uuid.NewString()
}
