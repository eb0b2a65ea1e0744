package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrNoRoots is returned by New when a Cache is constructed with no
	// configured roots.
	ErrNoRoots = errors.New("cache: no cache roots configured")

	// ErrAlreadyClaimed is returned by Reserve when the element directory
	// already exists in the write root — either completed, failed, or
	// claimed by a concurrent writer.
	ErrAlreadyClaimed = errors.New("cache: element directory already claimed")

	// ErrLockHeld is returned by AcquireLock when another writer currently
	// holds the element's write lock.
	ErrLockHeld = errors.New("cache: element write lock is held by another writer")

	// ErrNotLocked is returned by the release function AcquireLock hands
	// back when it is called a second time.
	ErrNotLocked = errors.New("cache: element write lock is not held")
)
