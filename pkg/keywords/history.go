package keywords

import (
	"sort"
	"time"
)

// DefaultHistoryDays is the trend window used when callers pass zero.
const DefaultHistoryDays = 30

// WindowHistory returns the points measured within the last days days before
// now, ordered by timestamp ascending. Points sharing a timestamp keep the
// last reported one.
func WindowHistory(points []HistoricalPoint, days int, now time.Time) []HistoricalPoint {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour).UnixMilli()

	byTime := make(map[int64]int, len(points))
	out := make([]HistoricalPoint, 0, len(points))
	for _, p := range points {
		if p.Timestamp < cutoff {
			continue
		}
		if i, ok := byTime[p.Timestamp]; ok {
			out[i] = p
			continue
		}
		byTime[p.Timestamp] = len(out)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}
