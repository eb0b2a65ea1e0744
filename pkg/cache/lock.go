package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const lockFileName = "_lock"

// AcquireLock claims the write lock for the element directory dir, writing a
// fresh uuid token into the lock file via O_CREATE|O_EXCL so at most one
// writer can hold it at a time. The returned token is the content written to the lock
// file; release removes it.
func AcquireLock(dir string) (token string, release func() error, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("cache: create element dir: %w", err)
	}

	path := filepath.Join(dir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", nil, fmt.Errorf("%w: %s", ErrLockHeld, dir)
		}
		return "", nil, fmt.Errorf("cache: open lock file: %w", err)
	}

	token = uuid.NewString()
	if _, err := f.WriteString(token); err != nil {
		f.Close()
		os.Remove(path)
		return "", nil, fmt.Errorf("cache: write lock token: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("cache: close lock file: %w", err)
	}

	released := false
	release = func() error {
		if released {
			return ErrNotLocked
		}
		released = true
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("cache: release lock: %w", err)
		}
		return nil
	}
	return token, release, nil
}

// LockHolder returns the uuid token of whoever currently holds dir's write
// lock, or "" if the lock is free. Used by operators to attribute a stale
// lock left behind by a crashed writer.
func LockHolder(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, lockFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}
