package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/blumenshine/rankwatch/internal/utils"
	"github.com/blumenshine/rankwatch/pkg/keywords"
	"github.com/blumenshine/rankwatch/pkg/storage"
)

func TestResolveKeyword(t *testing.T) {
	rows := []keywords.Row{
		{ID: "7", Keyword: "Chicago Injury Lawyer"},
		{ID: "9", Keyword: "slip and fall"},
	}

	tests := []struct {
		arg    string
		wantID string
		found  bool
	}{
		{"7", "7", true},
		{"chicago   injury lawyer", "7", true},
		{"SLIP AND FALL", "9", true},
		{"unknown", "", false},
	}
	for _, tt := range tests {
		row, ok := resolveKeyword(rows, tt.arg)
		if ok != tt.found || row.ID != tt.wantID {
			t.Errorf("resolveKeyword(%q) = %q, %v; want %q, %v", tt.arg, row.ID, ok, tt.wantID, tt.found)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	s := keywords.Summarize([]keywords.Row{
		{ID: "1", Position: keywords.IntPtr(3), Timestamp: keywords.Int64Ptr(ts)},
		{ID: "2", Position: keywords.IntPtr(4)},
		{ID: "3"},
	})
	got := formatSummary(s)
	want := "3 keywords (2 ranked, 1 pending) • average 3.5 • best #3 • last updated " + time.UnixMilli(ts).Local().Format("2006-01-02 15:04")
	if got != want {
		t.Fatalf("formatSummary = %q, want %q", got, want)
	}

	if got := formatSummary(keywords.Summarize(nil)); got != "0 keywords (0 ranked, 0 pending) • average - • best - • last updated never" {
		t.Fatalf("empty summary = %q", got)
	}
}

func TestFirstAndLastRanked(t *testing.T) {
	points := []keywords.HistoricalPoint{
		{Timestamp: 1},
		{Timestamp: 2, Position: keywords.IntPtr(9)},
		{Timestamp: 3, Position: keywords.IntPtr(4)},
		{Timestamp: 4},
	}
	if p := firstRanked(points); p == nil || *p != 9 {
		t.Fatalf("firstRanked = %v", p)
	}
	if p := lastRanked(points); p == nil || *p != 4 {
		t.Fatalf("lastRanked = %v", p)
	}
	if firstRanked(points[:1]) != nil || lastRanked(nil) != nil {
		t.Fatal("expected nil for unranked history")
	}
}

func TestLockedDBSaveSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rankwatch.sqlite")
	db, err := storage.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	lock, err := utils.NewSnapshotLock(path)
	if err != nil {
		t.Fatal(err)
	}
	ldb := &lockedDB{DB: db, lock: lock}

	changes, err := ldb.SaveSnapshot(context.Background(), []keywords.Row{{ID: "1", Keyword: "a"}})
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if len(changes) != 1 || changes[0].ChangeType != storage.ChangeAdded {
		t.Fatalf("changes = %+v", changes)
	}
	// The lock is released: a second write does not block.
	if _, err := ldb.SaveSnapshot(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
}
