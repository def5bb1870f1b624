package storage

import "time"

// Change captures a single change event for auditing or printing.
type Change struct {
	OccurredAt time.Time `json:"occurred_at"`

	KeywordID    string `json:"keyword_id"`
	Keyword      string `json:"keyword"`
	TargetDomain string `json:"target_domain,omitempty"`

	OldPosition *int   `json:"old_position"`
	NewPosition *int   `json:"new_position"`
	ChangeType  string `json:"change_type"` // added | updated | removed
}

// Moved reports whether the change is a ranking movement of a tracked
// keyword.
func (c Change) Moved() bool {
	if c.ChangeType != ChangeUpdated {
		return false
	}
	if c.OldPosition == nil || c.NewPosition == nil {
		return c.OldPosition != c.NewPosition
	}
	return *c.OldPosition != *c.NewPosition
}

const (
	ChangeAdded   = "added"
	ChangeUpdated = "updated"
	ChangeRemoved = "removed"
)

// Stats summarizes what the local database holds.
type Stats struct {
	Tracked    int
	Ranked     int
	Pending    int
	Changes    int
	Positions  int
	LastChange time.Time
}
