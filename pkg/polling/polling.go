// Package polling keeps the local database in step with the tracker backend
// by re-listing keywords on a fixed interval.
package polling

import (
	"context"
	"errors"
	"time"

	"github.com/blumenshine/rankwatch/pkg/keywords"
	"github.com/blumenshine/rankwatch/pkg/storage"
	"github.com/blumenshine/rankwatch/pkg/tracker"
)

// Logger is the tracker's logger interface; logrus satisfies it.
type Logger = tracker.Logger

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// ErrAbortingWipe is returned when a poll comes back empty while the
// database holds more than storage.WipeThreshold keywords.
var ErrAbortingWipe = storage.ErrAbortingWipe

// Snapshotter is what the poller needs from the database.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, rows []keywords.Row) ([]storage.Change, error)
	GetStats(ctx context.Context) (storage.Stats, error)
}

// Config holds everything Run needs.
type Config struct {
	Tracker  *tracker.Tracker
	DB       Snapshotter
	Interval time.Duration // 0 = poll once
	Log      Logger        // optional; nil = no logging

	// OnPoll is called after each successful poll with the changes found.
	// isFirstRun is true when the database was empty before the poll.
	OnPoll func(changes []storage.Change, isFirstRun bool)
}

// Result is the outcome of one poll.
type Result struct {
	Rows       int
	Changes    []storage.Change
	IsFirstRun bool
}

// PollOnce refreshes the tracker and stores the new list.
func PollOnce(ctx context.Context, cfg Config) (*Result, error) {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	result := &Result{}

	stats, err := cfg.DB.GetStats(ctx)
	if err != nil {
		log.Warnf("Could not read database stats: %v", err)
	} else {
		result.IsFirstRun = stats.Tracked == 0
	}

	if err := cfg.Tracker.Refresh(ctx); err != nil {
		return nil, err
	}
	rows := cfg.Tracker.Rows()
	result.Rows = len(rows)

	if result.IsFirstRun && len(rows) > 0 {
		log.Infof("First poll, populating database with %d keywords...", len(rows))
	}

	// Safety check: an empty list while the database holds many keywords is
	// far more likely a backend problem than a mass delete.
	if len(rows) == 0 && stats.Tracked > storage.WipeThreshold {
		log.Errorf("Backend returned 0 keywords, but database has %d. Skipping snapshot to prevent data loss.", stats.Tracked)
		return result, ErrAbortingWipe
	}

	changes, err := cfg.DB.SaveSnapshot(ctx, rows)
	if err != nil {
		if errors.Is(err, ErrAbortingWipe) {
			return result, err
		}
		return nil, err
	}
	result.Changes = changes

	if cfg.OnPoll != nil {
		cfg.OnPoll(changes, result.IsFirstRun)
	}
	return result, nil
}

// Run polls immediately, then every cfg.Interval until ctx is done. Failed
// polls are logged and retried on the next tick. With a zero interval it
// polls once and returns that poll's error.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}

	_, err := PollOnce(ctx, cfg)
	if cfg.Interval <= 0 {
		return err
	}
	if err != nil {
		log.Warnf("Poll failed: %v", err)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := PollOnce(ctx, cfg); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warnf("Poll failed: %v", err)
			}
		}
	}
}
