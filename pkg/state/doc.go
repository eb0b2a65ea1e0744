// Package state implements a node's State: given a splitter RPN and a concrete set of bound input lengths, it enumerates
// element indices, resolves each index to per-input values, computes
// surviving-state directory names, and tracks inner splitters and combiner
// removals.
//
// Construction order is fixed: axis_for_input and shape
// are derived from the splitter RPN (delegated to pkg/splitter.RPNToAxes),
// then AllElements is materialised as the lazy, axes-ascending
// lexicographic product of range(shape[axis]). An inner splitter is
// registered separately — it contributes a secondary index scoped to one
// outer element rather than a new global axis, grounded on the reference
// implementation's node.py handling of per-element variable-length
// upstream sequences.
//
// # Directory names
//
// DirName concatenates "key:value" pairs in sorted key order. The
// "surviving" variant (SurvivingDirName) restricts those pairs to the
// variables that still appear in the splitter RPN after combiner removal,
// which is what downstream nodes key their own element lookups on.
package state
