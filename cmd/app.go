package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blumenshine/rankwatch/internal/utils"
	"github.com/blumenshine/rankwatch/pkg/api"
	"github.com/blumenshine/rankwatch/pkg/keywords"
	"github.com/blumenshine/rankwatch/pkg/storage"
	"github.com/blumenshine/rankwatch/pkg/tracker"
)

// lockedDB serializes snapshot writes across goroutines and rankwatch
// processes sharing the same database file.
type lockedDB struct {
	*storage.DB
	lock *utils.SnapshotLock
}

func (l *lockedDB) SaveSnapshot(ctx context.Context, rows []keywords.Row) ([]storage.Change, error) {
	if err := l.lock.Lock(ctx); err != nil {
		return nil, err
	}
	defer l.lock.Unlock()
	return l.DB.SaveSnapshot(ctx, rows)
}

// newClient builds the backend client from config and global flags.
func newClient(cmd *cobra.Command) (*api.Client, error) {
	proxy, _ := cmd.Flags().GetString("proxy")
	return api.NewClient(api.Config{
		BaseURL: viper.GetString("api.url"),
		Timeout: viper.GetDuration("api.timeout"),
		Retries: viper.GetInt("api.retries"),
		Proxy:   proxy,
	})
}

// openDB opens the local database, or returns nil when --no-db is set.
func openDB(cmd *cobra.Command) (*lockedDB, error) {
	if noDB, _ := cmd.Flags().GetBool("no-db"); noDB {
		return nil, nil
	}
	path, err := utils.GetAbsDBPath(viper.GetString("db.path"))
	if err != nil {
		return nil, fmt.Errorf("could not resolve database path: %w", err)
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open database %s: %w", path, err)
	}
	lock, err := utils.NewSnapshotLock(path)
	if err != nil {
		db.Close()
		return nil, err
	}
	utils.Log.Debugf("Using database %s", path)
	return &lockedDB{DB: db, lock: lock}, nil
}

// session bundles what most commands need: a backend client, the local
// database (nil with --no-db) and a tracker wired to both.
type session struct {
	client  *api.Client
	db      *lockedDB
	tracker *tracker.Tracker
}

// newSession wires a tracker. When onChanges is nil, changes recorded in the
// database are not reported.
func newSession(cmd *cobra.Command, onChanges func([]storage.Change)) (*session, error) {
	client, err := newClient(cmd)
	if err != nil {
		return nil, err
	}
	db, err := openDB(cmd)
	if err != nil {
		return nil, err
	}

	cfg := tracker.Config{
		Gateway:      client,
		Log:          utils.Log,
		Concurrency:  viper.GetInt("bulk.concurrency"),
		RefreshDelay: viper.GetDuration("refresh.delay"),
		HistoryDays:  viper.GetInt("history.days"),
		TargetDomain: viper.GetString("tracker.target_domain"),
		OnChanges:    onChanges,
	}
	if db != nil {
		cfg.Store = db
	}
	t := tracker.New(cfg)
	if err := t.Load(cmd.Context()); err != nil {
		utils.Log.Warnf("Could not load local snapshot: %v", err)
	}
	return &session{client: client, db: db, tracker: t}, nil
}

func (s *session) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// resolveKeyword finds a row by ID, falling back to a keyword match.
func resolveKeyword(rows []keywords.Row, arg string) (keywords.Row, bool) {
	if r, ok := keywords.Find(rows, arg); ok {
		return r, true
	}
	key := keywords.Key(arg)
	for _, r := range rows {
		if keywords.Key(r.Keyword) == key {
			return r, true
		}
	}
	return keywords.Row{}, false
}

func formatPosition(p *int) string {
	if p == nil {
		return "pending"
	}
	return fmt.Sprintf("#%d", *p)
}

func printChanges(changes []storage.Change) {
	for _, c := range changes {
		var emoji string
		switch c.ChangeType {
		case storage.ChangeAdded:
			emoji = "🆕"
		case storage.ChangeRemoved:
			emoji = "❌"
		case storage.ChangeUpdated:
			emoji = "🔄"
			if c.Moved() && c.OldPosition != nil && c.NewPosition != nil {
				if *c.NewPosition < *c.OldPosition {
					emoji = "📈"
				} else {
					emoji = "📉"
				}
			}
		}

		movement := formatPosition(c.NewPosition)
		if c.ChangeType == storage.ChangeRemoved {
			movement = "was " + formatPosition(c.OldPosition)
		} else if c.ChangeType == storage.ChangeUpdated {
			movement = formatPosition(c.OldPosition) + " → " + formatPosition(c.NewPosition)
		}
		fmt.Printf("%s  %s  %s\n", emoji, c.Keyword, movement)
	}
}

// readInput joins positional arguments into one bulk-input string.
func readInput(args []string) string {
	return strings.Join(args, "\n")
}
