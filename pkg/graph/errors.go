package graph

import "errors"

// ErrCycleDetected is returned by TopologicalSort and DetectCycles when the
// graph contains a circular dependency and therefore has no valid execution
// order.
var ErrCycleDetected = errors.New("graph: cycle detected")
