package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileSuffix = ".lock"

// DBLock serializes writers on the SQLite database file. Two concurrent
// syncs would write identical content either way, but the lock keeps them
// from ever contending inside a transaction.
type DBLock struct {
	lock *flock.Flock
	path string
}

// NewDBLock creates a lock next to the given database path.
func NewDBLock(dbPath string) (*DBLock, error) {
	absPath, err := AbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not resolve db path: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &DBLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the database lock, waiting if another process holds it.
func (l *DBLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	if !locked {
		fmt.Fprintf(os.Stderr, "Another hofmirror process is writing to the database, waiting for it to finish...\n")
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// Unlock releases the database lock.
func (l *DBLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// AbsDBPath resolves the database path, defaulting to the user config dir.
func AbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "hofmirror", "hofmirror.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
