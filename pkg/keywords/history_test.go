package keywords

import (
	"testing"
	"time"
)

func TestWindowHistory(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	day := int64(24 * time.Hour / time.Millisecond)
	nowMs := now.UnixMilli()

	points := []HistoricalPoint{
		{Timestamp: nowMs - 1*day, Position: IntPtr(4)},
		{Timestamp: nowMs - 40*day, Position: IntPtr(30)},
		{Timestamp: nowMs - 3*day, Position: IntPtr(8)},
		{Timestamp: nowMs - 1*day, Position: IntPtr(5)},
		{Timestamp: nowMs - 2*day},
	}

	got := WindowHistory(points, 0, now)
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d: %+v", len(got), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Timestamp >= got[i].Timestamp {
			t.Fatalf("points not ascending: %+v", got)
		}
	}
	if last := got[2]; last.Position == nil || *last.Position != 5 {
		t.Fatalf("expected last duplicate timestamp to win, got %+v", last)
	}

	if got := WindowHistory(points, 2, now); len(got) != 2 {
		t.Fatalf("expected 2 points in a 2-day window, got %d", len(got))
	}
}
