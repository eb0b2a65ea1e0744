// Package graph provides DAG operations for workflow execution: topological
// sorting, cycle detection, and edge/vertex lookups.
//
// # Overview
//
// A Graph is an immutable collection of named vertices and directed edges.
// Workflows build one from their children and connections on every planning
// pass; the executor walks the resulting order.
//
//   - Nodes represent workflow operations
//   - Edges represent data dependencies
//   - Direction indicates data flow (source → target)
//   - Multiple edges can connect the same nodes
//
// # Topological Sort
//
//	g := graph.New(nodes, edges)
//	sorted, err := g.TopologicalSort()
//	if err != nil {
//	    // cycle detected
//	}
//	for _, nodeID := range sorted {
//	    execute(nodeID)
//	}
//
// TopologicalSort implements Kahn's algorithm:
//  1. Calculate in-degree for all nodes
//  2. Add zero in-degree nodes to queue
//  3. Process queue: remove node, decrement neighbor in-degrees
//  4. Add newly zero in-degree nodes to queue
//  5. If processed count != node count, cycle exists
//
// Zero-in-degree nodes are sorted by ID before queueing, so the order is
// deterministic for a given graph.
//
// # Cycle Detection
//
//	if err := g.DetectCycles(); err != nil {
//	    // circular dependency
//	}
//
// # Performance
//
//   - Topological sort: O(V + E)
//   - Cycle detection: O(V + E)
//
// # Thread Safety
//
// Graph operations are read-only after New and safe for concurrent use.
package graph
