// Package executor drives a workflow's children to completion: it walks
// pkg/workflow's topological order one node at a time, and within a node
// runs every (outer, inner) element concurrently under a bounded worker
// pool — single-threaded at the graph/planning level, parallel at the
// element level, with the cache mediating cross-element visibility and no
// child element starting before every relevant parent element is complete.
//
// The worker pool is semaphore-bounded goroutines with a sync.WaitGroup
// and mutex-protected first-error capture. A failed element marks its node
// failed, but sibling elements are unaffected: they keep running and their
// results are persisted. Only external context cancellation stops
// dispatch.
package executor
