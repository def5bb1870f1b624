package keywords

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// TotalCount returns the number of tracked rows, pending included.
func TotalCount(rows []Row) int { return len(rows) }

// AveragePosition is the mean position of ranked rows rounded to one decimal.
// ok is false when no row is ranked.
func AveragePosition(rows []Row) (avg float64, ok bool) {
	sum, n := 0, 0
	for _, r := range rows {
		if r.Position == nil {
			continue
		}
		sum += *r.Position
		n++
	}
	if n == 0 {
		return 0, false
	}
	return math.Round(float64(sum)/float64(n)*10) / 10, true
}

// BestPosition returns the numerically lowest position among ranked rows.
func BestPosition(rows []Row) (best int, ok bool) {
	for _, r := range rows {
		if r.Position == nil {
			continue
		}
		if !ok || *r.Position < best {
			best, ok = *r.Position, true
		}
	}
	return best, ok
}

// LastUpdated returns the latest measurement time across rows, in epoch ms.
func LastUpdated(rows []Row) (ts int64, ok bool) {
	for _, r := range rows {
		if r.Timestamp == nil {
			continue
		}
		if !ok || *r.Timestamp > ts {
			ts, ok = *r.Timestamp, true
		}
	}
	return ts, ok
}

// SortedByRankThenName returns a copy of rows ordered by position ascending,
// pending rows last, ties broken alphabetically by keyword.
func SortedByRankThenName(rows []Row) []Row {
	out := append([]Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Position == nil && b.Position != nil:
			return false
		case a.Position != nil && b.Position == nil:
			return true
		case a.Position != nil && *a.Position != *b.Position:
			return *a.Position < *b.Position
		}
		return Key(a.Keyword) < Key(b.Keyword)
	})
	return out
}

// Trend classifies a ranking delta. Lower positions are better, so a
// negative delta is an improvement.
type Trend string

const (
	TrendImproved  Trend = "improved"
	TrendDeclined  Trend = "declined"
	TrendUnchanged Trend = "unchanged"
)

// Delta is the display form of a position delta.
type Delta struct {
	Trend     Trend `json:"trend"`
	Magnitude int   `json:"magnitude"`
}

// DeltaPresentation classifies a 30-day delta. A nil delta is unchanged.
func DeltaPresentation(delta *int) Delta {
	switch {
	case delta == nil || *delta == 0:
		return Delta{Trend: TrendUnchanged}
	case *delta < 0:
		return Delta{Trend: TrendImproved, Magnitude: -*delta}
	default:
		return Delta{Trend: TrendDeclined, Magnitude: *delta}
	}
}

// String renders the delta with the sign of the raw position change.
func (d Delta) String() string {
	switch d.Trend {
	case TrendImproved:
		return "-" + strconv.Itoa(d.Magnitude)
	case TrendDeclined:
		return "+" + strconv.Itoa(d.Magnitude)
	}
	return "0"
}

// Summary bundles the aggregates shown above the keyword table.
type Summary struct {
	Total       int        `json:"total"`
	Ranked      int        `json:"ranked"`
	Pending     int        `json:"pending"`
	Average     *float64   `json:"average_position"`
	Best        *int       `json:"best_position"`
	LastUpdated *time.Time `json:"last_updated"`
}

// Summarize computes every aggregate over rows in one call.
func Summarize(rows []Row) Summary {
	s := Summary{Total: TotalCount(rows)}
	for _, r := range rows {
		if r.Pending() {
			s.Pending++
		} else {
			s.Ranked++
		}
	}
	if avg, ok := AveragePosition(rows); ok {
		s.Average = &avg
	}
	if best, ok := BestPosition(rows); ok {
		s.Best = &best
	}
	if ts, ok := LastUpdated(rows); ok {
		t := time.UnixMilli(ts).UTC()
		s.LastUpdated = &t
	}
	return s
}
