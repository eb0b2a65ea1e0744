package config

import (
	"time"
)

// Config holds engine-wide configuration for the split/combine state engine.
// All configuration options are centralized here for easy management and validation.
//
// Only MaxConcurrentElements (read by pkg/executor.DefaultConfig) and
// CacheRoots (read by pkg/engine.New) are consumed by other packages of this
// module. The remaining fields are carried and checked by Validate but are
// not read elsewhere: no element timeout, planning ceiling, lock wait or
// retry is applied from them.
type Config struct {
	// Execution limits
	MaxElementExecutionTime time.Duration // Per-element execution time limit; not enforced (elements run to completion)
	MaxConcurrentElements   int           // Upper bound on concurrently executing elements across the graph

	// State / planning ceilings (not enforced)
	MaxAxes            int // Number of distinct axes a single node's state may hold
	MaxElementsPerNode  int // |state.all_elements| for a single node (0 = unlimited)
	MaxInnerSplitterLen int // Length of a single inner-splitter's per-parent-element sequence (0 = unlimited)

	// Cache configuration
	CacheRoots          []string      // Ordered list of cache root directories; first root wins on write
	CacheLockPollPeriod time.Duration // Lock poll interval; not read, cache.AcquireLock makes a single attempt
	CacheLockTimeout    time.Duration // Lock wait limit; not read, cache.AcquireLock makes a single attempt

	// Retry configuration (not read; failed elements are not retried)
	DefaultMaxAttempts int           // Max attempts for a failed element
	DefaultBackoff     time.Duration // Initial backoff delay between attempts
}

// Default returns a Config with sane, conservative default values.
func Default() *Config {
	return &Config{
		MaxElementExecutionTime: 30 * time.Second,
		MaxConcurrentElements:   8,

		MaxAxes:             16,
		MaxElementsPerNode:  100000,
		MaxInnerSplitterLen: 0,

		CacheRoots:          []string{".dagflow-cache"},
		CacheLockPollPeriod: 50 * time.Millisecond,
		CacheLockTimeout:    5 * time.Minute,

		DefaultMaxAttempts: 3,
		DefaultBackoff:     1 * time.Second,
	}
}

// Testing returns a Config tuned for fast, deterministic test runs.
func Testing() *Config {
	cfg := Default()
	cfg.MaxElementExecutionTime = 5 * time.Second
	cfg.CacheLockPollPeriod = time.Millisecond
	cfg.CacheLockTimeout = time.Second
	return cfg
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.MaxElementExecutionTime < 0 {
		return ErrInvalidExecutionTime
	}
	if c.MaxConcurrentElements < 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxAxes < 0 {
		return ErrInvalidMaxAxes
	}
	if c.MaxElementsPerNode < 0 {
		return ErrInvalidMaxElements
	}
	if c.CacheLockPollPeriod < 0 {
		return ErrInvalidLockPoll
	}
	if c.CacheLockTimeout < 0 {
		return ErrInvalidLockTimeout
	}
	if len(c.CacheRoots) == 0 {
		return ErrNoCacheRoots
	}
	if c.DefaultBackoff < 0 {
		return ErrInvalidBackoff
	}
	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.CacheRoots != nil {
		clone.CacheRoots = make([]string, len(c.CacheRoots))
		copy(clone.CacheRoots, c.CacheRoots)
	}
	return &clone
}
