package tracker

import (
	"context"
	"time"
)

// TriggerRefreshJob asks the backend to recompute rankings and returns once
// the request is acknowledged. The list is re-fetched after the configured
// delay; the outcome of that re-fetch is sent on the returned channel, which
// is then closed. Cancelling ctx abandons the re-fetch.
func (t *Tracker) TriggerRefreshJob(ctx context.Context) (<-chan error, error) {
	if err := t.cfg.Gateway.TriggerRefresh(ctx); err != nil {
		t.log.Errorf("Failed to trigger ranking refresh: %v", err)
		t.setNotice(LevelError, "Failed to trigger refresh: "+err.Error())
		return nil, err
	}
	t.setNotice(LevelOK, "Ranking refresh started")
	t.log.Infof("Ranking refresh started, reloading keywords in %s", t.cfg.RefreshDelay)

	done := make(chan error, 1)
	go func() {
		defer close(done)
		timer := time.NewTimer(t.cfg.RefreshDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			done <- ctx.Err()
		case <-timer.C:
			done <- t.Refresh(ctx)
		}
	}()
	return done, nil
}
