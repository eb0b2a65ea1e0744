// Package types provides shared data-model definitions for the dataflow
// engine: field specs, typed records, the runtime/result pair, and the
// lightweight DAG vertex/edge types consumed by pkg/graph.
//
// It exists to avoid circular dependencies between pkg/spec, pkg/task,
// pkg/cache, pkg/graph, pkg/node, and pkg/workflow — all of them depend on
// types, none of them depend on each other for the data model itself.
// pkg/splitter and pkg/state do not use it.
package types
