package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
	lockRetryDelay = 250 * time.Millisecond
)

// SnapshotLock serializes keyword snapshot writes to one database. The mutex
// orders writers within this process, the lock file next to the database
// orders rankwatch processes sharing it.
type SnapshotLock struct {
	mu     sync.Mutex
	file   *flock.Flock
	dbPath string
}

func NewSnapshotLock(dbPath string) (*SnapshotLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not resolve database path: %w", err)
	}
	return &SnapshotLock{file: flock.New(absPath + lockFileSuffix), dbPath: absPath}, nil
}

// Lock blocks until this caller may write a snapshot or ctx is done.
func (l *SnapshotLock) Lock(ctx context.Context) error {
	l.mu.Lock()

	locked, err := l.file.TryLock()
	if err == nil && !locked {
		Log.Infof("Another rankwatch process is saving to %s, waiting for it...", l.dbPath)
		locked, err = l.file.TryLockContext(ctx, lockRetryDelay)
	}
	if err == nil && !locked {
		err = ctx.Err()
	}
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("could not lock %s for writing: %w", l.dbPath, err)
	}
	return nil
}

// Unlock releases both the lock file and the in-process mutex.
func (l *SnapshotLock) Unlock() error {
	defer l.mu.Unlock()
	if err := l.file.Unlock(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not unlock %s: %w", l.dbPath, err)
	}
	return nil
}

// GetAbsDBPath resolves the database path. An empty path means the default
// location under the user's config directory, which is created if missing.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir := filepath.Join(home, ".config", "rankwatch")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		return filepath.Join(dir, "rankwatch.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
