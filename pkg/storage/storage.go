// Package storage keeps a local sqlite copy of the tracked keyword list, the
// changes observed between snapshots and every position ever seen.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/blumenshine/rankwatch/pkg/keywords"
)

const DefaultDBTimeout = 5 * time.Second

// WipeThreshold is the number of stored keywords above which an empty
// snapshot is treated as a backend outage rather than a real empty list.
const WipeThreshold = 10

var ErrAbortingWipe = errors.New("backend returned no keywords, refusing to clear the local database")

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("empty database path")
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS keyword_rows (
  identity       TEXT PRIMARY KEY,
  keyword_id     TEXT NOT NULL,
  keyword        TEXT NOT NULL,
  target_domain  TEXT,
  position       INTEGER,
  ranking_url    TEXT,
  delta_7        INTEGER,
  delta_30       INTEGER,
  measured_at    INTEGER,
  ordinal        INTEGER NOT NULL DEFAULT 0,
  run_id         INTEGER NOT NULL DEFAULT 0,
  first_seen_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_rows_keyword_id ON keyword_rows(keyword_id);
CREATE TABLE IF NOT EXISTS keyword_changes (
  id             INTEGER PRIMARY KEY,
  occurred_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  keyword_id     TEXT NOT NULL,
  keyword        TEXT NOT NULL,
  target_domain  TEXT,
  old_position   INTEGER,
  new_position   INTEGER,
  change_type    TEXT NOT NULL CHECK (change_type IN ('added','updated','removed'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON keyword_changes(occurred_at);
CREATE TABLE IF NOT EXISTS keyword_positions (
  identity       TEXT NOT NULL,
  measured_at    INTEGER NOT NULL,
  position       INTEGER,
  UNIQUE(identity, measured_at)
);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

type storedRow struct {
	id       string
	url      string
	position *int
}

// SaveSnapshot makes rows the stored list. Rows are upserted by identity,
// rows absent from the snapshot are swept, and every difference is logged to
// keyword_changes and returned. An empty snapshot over more than
// WipeThreshold stored rows is refused with ErrAbortingWipe.
func (d *DB) SaveSnapshot(ctx context.Context, rows []keywords.Row) (changes []Change, err error) {
	now := time.Now().UTC()
	runID := now.UnixNano()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := loadExisting(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 && len(existing) > WipeThreshold {
		err = ErrAbortingWipe
		return nil, err
	}

	touched := make(map[string]struct{}, len(rows))
	for i, r := range rows {
		key := identityKey(r.Keyword, r.TargetDomain)
		if key == "" {
			continue
		}
		if _, dup := touched[key]; dup {
			continue
		}
		touched[key] = struct{}{}

		ex, existed := existing[key]
		if !existed {
			_, err = tx.ExecContext(ctx, `INSERT INTO keyword_rows(identity, keyword_id, keyword, target_domain, position, ranking_url, delta_7, delta_30, measured_at, ordinal, run_id) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
				key, r.ID, r.Keyword, nullIfEmpty(r.TargetDomain), nullInt(r.Position), nullIfEmpty(r.URL), nullInt(r.Delta7), nullInt(r.Delta30), nullInt64(r.Timestamp), i, runID)
			if err != nil {
				return nil, err
			}
			changes = append(changes, Change{OccurredAt: now, KeywordID: r.ID, Keyword: r.Keyword, TargetDomain: r.TargetDomain, NewPosition: r.Position, ChangeType: ChangeAdded})
		} else {
			_, err = tx.ExecContext(ctx, `UPDATE keyword_rows SET keyword_id = ?, keyword = ?, position = ?, ranking_url = ?, delta_7 = ?, delta_30 = ?, measured_at = ?, ordinal = ?, run_id = ?, last_seen_at = CURRENT_TIMESTAMP WHERE identity = ?`,
				r.ID, r.Keyword, nullInt(r.Position), nullIfEmpty(r.URL), nullInt(r.Delta7), nullInt(r.Delta30), nullInt64(r.Timestamp), i, runID, key)
			if err != nil {
				return nil, err
			}
			if !sameInt(ex.position, r.Position) || ex.url != r.URL {
				changes = append(changes, Change{OccurredAt: now, KeywordID: r.ID, Keyword: r.Keyword, TargetDomain: r.TargetDomain, OldPosition: ex.position, NewPosition: r.Position, ChangeType: ChangeUpdated})
			}
		}

		if r.Timestamp != nil {
			_, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO keyword_positions(identity, measured_at, position) VALUES(?,?,?)`, key, *r.Timestamp, nullInt(r.Position))
			if err != nil {
				return nil, err
			}
		}
	}

	// Sweep: rows not touched in this run are gone from the list.
	stale, err := tx.QueryContext(ctx, "SELECT keyword_id, keyword, target_domain, position FROM keyword_rows WHERE run_id != ?", runID)
	if err != nil {
		return nil, err
	}
	for stale.Next() {
		c := Change{OccurredAt: now, ChangeType: ChangeRemoved}
		var (
			domain sql.NullString
			pos    sql.NullInt64
		)
		if err = stale.Scan(&c.KeywordID, &c.Keyword, &domain, &pos); err != nil {
			stale.Close()
			return nil, err
		}
		c.TargetDomain = domain.String
		c.OldPosition = intFromNull(pos)
		changes = append(changes, c)
	}
	if err = stale.Close(); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM keyword_rows WHERE run_id != ?`, runID); err != nil {
		return nil, err
	}

	for _, c := range changes {
		_, err = tx.ExecContext(ctx, `INSERT INTO keyword_changes(occurred_at, keyword_id, keyword, target_domain, old_position, new_position, change_type) VALUES(?,?,?,?,?,?,?)`,
			now.Format(sqliteTimeLayout), c.KeywordID, c.Keyword, nullIfEmpty(c.TargetDomain), nullInt(c.OldPosition), nullInt(c.NewPosition), c.ChangeType)
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

func loadExisting(ctx context.Context, tx *sql.Tx) (map[string]storedRow, error) {
	rows, err := tx.QueryContext(ctx, "SELECT identity, keyword_id, ranking_url, position FROM keyword_rows")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]storedRow)
	for rows.Next() {
		var (
			key, id string
			url     sql.NullString
			pos     sql.NullInt64
		)
		if err := rows.Scan(&key, &id, &url, &pos); err != nil {
			return nil, err
		}
		out[key] = storedRow{id: id, url: url.String, position: intFromNull(pos)}
	}
	return out, rows.Err()
}

// LoadRows returns the stored list in the order it was saved.
func (d *DB) LoadRows(ctx context.Context) ([]keywords.Row, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT keyword_id, keyword, target_domain, position, ranking_url, delta_7, delta_30, measured_at FROM keyword_rows ORDER BY ordinal, keyword")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []keywords.Row{}
	for rows.Next() {
		var (
			r                keywords.Row
			domain, url      sql.NullString
			pos, d7, d30, ts sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Keyword, &domain, &pos, &url, &d7, &d30, &ts); err != nil {
			return nil, err
		}
		r.TargetDomain = domain.String
		r.URL = url.String
		r.Position = intFromNull(pos)
		r.Delta7 = intFromNull(d7)
		r.Delta30 = intFromNull(d30)
		if ts.Valid {
			r.Timestamp = keywords.Int64Ptr(ts.Int64)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LocalHistory returns every position recorded for the keyword with the
// given id since the given time, ordered by measurement time.
func (d *DB) LocalHistory(ctx context.Context, id string, since time.Time) ([]keywords.HistoricalPoint, error) {
	q := `SELECT p.measured_at, p.position FROM keyword_positions p
	JOIN keyword_rows r ON r.identity = p.identity
	WHERE r.keyword_id = ? AND p.measured_at >= ?
	ORDER BY p.measured_at`
	rows, err := d.sql.QueryContext(ctx, q, id, since.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []keywords.HistoricalPoint{}
	for rows.Next() {
		var (
			p   keywords.HistoricalPoint
			pos sql.NullInt64
		)
		if err := rows.Scan(&p.Timestamp, &pos); err != nil {
			return nil, err
		}
		p.Position = intFromNull(pos)
		out = append(out, p)
	}
	return out, rows.Err()
}

const sqliteTimeLayout = "2006-01-02 15:04:05"

// ListRecentChanges returns the most recent N changes.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, keyword_id, keyword, target_domain, old_position, new_position, change_type FROM keyword_changes ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var (
			c              Change
			occurredAtStr  string
			domain         sql.NullString
			oldPos, newPos sql.NullInt64
		)
		if err := rows.Scan(&occurredAtStr, &c.KeywordID, &c.Keyword, &domain, &oldPos, &newPos, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseSQLiteTime(occurredAtStr)
		c.TargetDomain = domain.String
		c.OldPosition = intFromNull(oldPos)
		c.NewPosition = intFromNull(newPos)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// parseSQLiteTime reads CURRENT_TIMESTAMP style values, falling back to
// RFC3339. Unparseable values give the zero time.
func parseSQLiteTime(s string) time.Time {
	if t, err := time.Parse(sqliteTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func (d *DB) GetStats(ctx context.Context) (Stats, error) {
	var s Stats
	err := d.sql.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(position),
			(SELECT COUNT(*) FROM keyword_changes),
			(SELECT COUNT(*) FROM keyword_positions)
		FROM keyword_rows;
	`).Scan(&s.Tracked, &s.Ranked, &s.Changes, &s.Positions)
	if err != nil {
		return Stats{}, err
	}
	s.Pending = s.Tracked - s.Ranked

	var last sql.NullString
	if err := d.sql.QueryRowContext(ctx, "SELECT MAX(occurred_at) FROM keyword_changes").Scan(&last); err != nil {
		return Stats{}, err
	}
	if last.Valid {
		s.LastChange = parseSQLiteTime(last.String)
	}
	return s, nil
}
