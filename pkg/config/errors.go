package config

import "errors"

// Sentinel errors for configuration validation.
var (
	ErrInvalidExecutionTime = errors.New("invalid max element execution time: must be non-negative")
	ErrInvalidConcurrency   = errors.New("invalid max concurrent elements: must be non-negative")
	ErrInvalidMaxAxes       = errors.New("invalid max axes: must be non-negative")
	ErrInvalidMaxElements   = errors.New("invalid max elements per node: must be non-negative")
	ErrInvalidLockPoll      = errors.New("invalid cache lock poll period: must be non-negative")
	ErrInvalidLockTimeout   = errors.New("invalid cache lock timeout: must be non-negative")
	ErrNoCacheRoots         = errors.New("at least one cache root is required")
	ErrInvalidBackoff       = errors.New("invalid backoff duration: must be non-negative")
)
