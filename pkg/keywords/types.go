package keywords

// Record is a keyword as reported by the tracker backend. Optional numeric
// fields are nil when the backend omitted them, sent null, or sent something
// that is not a number.
type Record struct {
	KeywordID       string
	Keyword         string
	TargetDomain    string
	RankingPosition *float64
	RankingURL      string

	// Timestamp is either an ISO-8601 string or, for some backends, epoch
	// milliseconds. Exactly one of the two is set.
	Timestamp   string
	TimestampMs *float64

	Delta7  *float64
	Delta30 *float64
}

// Row is the canonical client-side keyword entity.
type Row struct {
	ID           string `json:"id"`
	Keyword      string `json:"keyword"`
	URL          string `json:"url"`
	TargetDomain string `json:"target_domain,omitempty"`
	Position     *int   `json:"position"`
	Delta7       *int   `json:"delta7"`
	Delta30      *int   `json:"delta30"`
	Timestamp    *int64 `json:"timestamp"` // epoch milliseconds

	// Unconfirmed marks a row created locally that the backend has not
	// listed yet.
	Unconfirmed bool `json:"unconfirmed,omitempty"`
}

// Pending reports whether the row has no ranking measurement yet.
func (r Row) Pending() bool { return r.Position == nil }

// HistoricalPoint is a single ranking measurement of one keyword.
type HistoricalPoint struct {
	Timestamp int64 `json:"timestamp"` // epoch milliseconds
	Position  *int  `json:"position"`
}

// Status is the ranking lifecycle state of a row.
type Status string

const (
	StatusPending Status = "pending"
	StatusRanked  Status = "ranked"
)

// StatusOf returns the lifecycle state of r.
func StatusOf(r Row) Status {
	if r.Pending() {
		return StatusPending
	}
	return StatusRanked
}

// IntPtr is a small helper for building rows in code and tests.
func IntPtr(v int) *int { return &v }

// Int64Ptr is the int64 counterpart of IntPtr.
func Int64Ptr(v int64) *int64 { return &v }
