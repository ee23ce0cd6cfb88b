package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// writerLock enforces the single-writer-per-directory policy spec §4.4 and
// §5 require, grounded on the teacher's internal/embed/lock.go FileLock.
type writerLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

func newWriterLock(dbPath string) *writerLock {
	lockPath := dbPath + ".lock"
	return &writerLock{path: lockPath, flock: flock.New(lockPath)}
}

func (l *writerLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire writer lock: %w", err)
	}
	l.locked = true
	return nil
}

func (l *writerLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release writer lock: %w", err)
	}
	l.locked = false
	return nil
}
