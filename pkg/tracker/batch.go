package tracker

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/blumenshine/rankwatch/pkg/api"
	"github.com/blumenshine/rankwatch/pkg/keywords"
)

// BatchResult is the outcome of one bulk add.
type BatchResult struct {
	Added      int
	Duplicates int
	Failed     int

	// Rejected maps each failed phrase to the reason reported for it.
	Rejected map[string]error
	// RefreshErr is set when the re-list following the batch failed. The
	// created keywords are still in the list as pending rows.
	RefreshErr error
}

// Message is the one-line summary shown to the user.
func (r BatchResult) Message() string {
	return fmt.Sprintf("Added %d keyword%s • %d duplicate%s • %d failed",
		r.Added, plural(r.Added), r.Duplicates, plural(r.Duplicates), r.Failed)
}

// Partial reports a batch where some items were created and some failed.
func (r BatchResult) Partial() bool {
	return r.Added > 0 && r.Failed > 0
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

type createOutcome struct {
	rec keywords.Record
	err error
}

// AddBulk submits every new phrase found in raw. Creates run concurrently, at
// most cfg.Concurrency at a time, and one failure never cancels the others.
// The result is only reported after every create has finished, followed by a
// single re-list.
func (t *Tracker) AddBulk(ctx context.Context, raw string) (BatchResult, error) {
	input := keywords.SplitInput(raw, t.Rows())
	res := BatchResult{Duplicates: input.DuplicateCount, Rejected: map[string]error{}}

	if len(input.ToSubmit) == 0 {
		t.setNotice(LevelWarn, res.Message())
		return res, nil
	}

	outcomes := make([]createOutcome, len(input.ToSubmit))
	g := new(errgroup.Group)
	g.SetLimit(t.cfg.Concurrency)
	for i, phrase := range input.ToSubmit {
		g.Go(func() error {
			rec, err := t.cfg.Gateway.CreateKeyword(ctx, phrase)
			outcomes[i] = createOutcome{rec: rec, err: err}
			return nil
		})
	}
	_ = g.Wait()

	created := make([]keywords.Row, 0, len(outcomes))
	for i, o := range outcomes {
		phrase := input.ToSubmit[i]
		switch {
		case o.err == nil:
			res.Added++
			created = append(created, t.pendingRow(phrase, o.rec))
		case api.IsDuplicate(o.err):
			res.Duplicates++
			t.log.Debugf("Backend already tracks %q", phrase)
		default:
			res.Failed++
			res.Rejected[phrase] = o.err
			t.log.Warnf("Failed to add %q: %v", phrase, o.err)
		}
	}

	if len(created) > 0 {
		t.update(ctx, func(cur []keywords.Row) []keywords.Row {
			return appendPending(cur, created)
		})
	}

	level := LevelOK
	switch {
	case res.Failed > 0 && res.Added == 0:
		level = LevelError
	case res.Failed > 0 || res.Added == 0:
		level = LevelWarn
	}
	t.setNotice(level, res.Message())
	t.log.Infof("%s", res.Message())

	if res.Added > 0 {
		if err := t.Refresh(ctx); err != nil {
			res.RefreshErr = err
		}
	}
	return res, nil
}

// pendingRow builds the row shown for a freshly created keyword until the
// backend lists it.
func (t *Tracker) pendingRow(phrase string, rec keywords.Record) keywords.Row {
	row := keywords.Normalize(rec)
	if row.Keyword == "" {
		row.Keyword = phrase
	}
	if row.ID == "" {
		row.ID = provisionalID()
	}
	if row.TargetDomain == "" {
		row.TargetDomain = t.cfg.TargetDomain
	}
	row.Position, row.URL = nil, ""
	row.Delta7, row.Delta30 = nil, nil
	row.Unconfirmed = true
	return row
}

// appendPending returns cur followed by every row of add that is not already
// in cur by ID or by keyword.
func appendPending(cur, add []keywords.Row) []keywords.Row {
	ids := make(map[string]struct{}, len(cur)+len(add))
	keys := make(map[string]struct{}, len(cur)+len(add))
	out := make([]keywords.Row, 0, len(cur)+len(add))
	for _, r := range cur {
		ids[r.ID] = struct{}{}
		keys[keywords.Key(r.Keyword)] = struct{}{}
		out = append(out, r)
	}
	for _, r := range add {
		if _, ok := ids[r.ID]; ok {
			continue
		}
		if _, ok := keys[keywords.Key(r.Keyword)]; ok {
			continue
		}
		ids[r.ID] = struct{}{}
		keys[keywords.Key(r.Keyword)] = struct{}{}
		out = append(out, r)
	}
	return out
}
