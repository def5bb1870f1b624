package storage

import (
	"database/sql"
	"fmt"

	"github.com/blumenshine/rankwatch/pkg/keywords"
)

// identityKey is what a stored row is known by across snapshots. It does not
// use the keyword ID, which changes when a locally created row is replaced by
// the backend's own.
func identityKey(keyword, targetDomain string) string {
	k := keywords.Key(keyword)
	if k == "" {
		return ""
	}
	return fmt.Sprintf("%s|%s", k, keywords.Key(targetDomain))
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nullInt64(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
