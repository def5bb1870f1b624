package keywords

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// timestamp layouts accepted from the backend, tried in order. Layouts
// without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Normalize converts a backend record into a Row. It never fails: fields that
// cannot be interpreted degrade to nil or empty values.
func Normalize(rec Record) Row {
	row := Row{
		ID:           rec.KeywordID,
		Keyword:      rec.Keyword,
		URL:          rec.RankingURL,
		TargetDomain: rec.TargetDomain,
		Position:     rankFromFloat(rec.RankingPosition),
		Delta7:       intFromFloat(rec.Delta7),
		Delta30:      intFromFloat(rec.Delta30),
	}
	if rec.TimestampMs != nil {
		if v := *rec.TimestampMs; finite(v) {
			ms := int64(v)
			row.Timestamp = &ms
		}
	} else if ms, ok := ParseTimestamp(rec.Timestamp); ok {
		row.Timestamp = &ms
	}
	return row
}

// NormalizeAll applies Normalize to every record, preserving order.
func NormalizeAll(recs []Record) []Row {
	out := make([]Row, 0, len(recs))
	for _, r := range recs {
		out = append(out, Normalize(r))
	}
	return out
}

// ParseTimestamp parses an ISO-8601 datetime into epoch milliseconds.
func ParseTimestamp(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

// Key is the comparison key for keyword text: NFKC folded, lower-cased,
// trimmed and with internal whitespace runs collapsed to a single space.
func Key(s string) string {
	return strings.ToLower(norm.NFKC.String(CollapseSpaces(s)))
}

// CollapseSpaces trims s and collapses internal whitespace to single spaces.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// rankFromFloat accepts only 1-based integral positions.
func rankFromFloat(p *float64) *int {
	v := intFromFloat(p)
	if v == nil || *v < 1 {
		return nil
	}
	return v
}

func intFromFloat(p *float64) *int {
	if p == nil || !finite(*p) || *p != math.Trunc(*p) {
		return nil
	}
	v := int(*p)
	return &v
}
