// Package engine is the top-level entry point an embedder calls to run a
// workflow: it owns the long-lived collaborators (cache, telemetry, logger)
// built from a single Config, stamps each run with a google/uuid execution
// ID, and hands the actual planning/scheduling work to pkg/workflow and
// pkg/executor.
package engine
