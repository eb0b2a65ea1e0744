// Package workflow implements a composite node holding a DAG of child
// nodes: wiring outputs to inputs, binding workflow-level inputs to child
// fields, and performing the pre-execution planning pass that propagates a
// splitter across an edge from an upstream child to a downstream one before
// the downstream child's state is built.
//
// The bookkeeping is three tables: connected edges per child field,
// workflow-input bindings, and the exposed output names. Topological
// ordering is delegated to pkg/graph, and each child's lifecycle to
// pkg/node.
//
// Workflow.Prepare applies the splitter-inheritance rule — adopt an
// upstream's splitter, or its combined splitter when the upstream has a
// combiner, onto a downstream child with no conflicting splitter of its
// own — by copying the upstream child's splitter expression and bound input
// sequences onto the downstream child via pkg/node's own Split. It does not
// populate inner-splitter values: a downstream field whose per-element
// length varies with an upstream element's own output can only be resolved
// once the upstream elements have actually run, not merely been planned.
// The caller registers the inner splitter on the child node before Prepare
// (RegisterInnerSplitter); pkg/executor fills in the per-parent values
// between the upstream node completing and the child's elements being
// enumerated (PropagateInnerValues).
package workflow
