// Package node implements a single graph vertex's execution lifecycle (spec
// component E): binding a splitter/combiner, planning its State, resolving
// each element's input record from the node's own bound inputs and incoming
// edges, invoking the bound Runnable once per element, and assembling the
// per-field output (or combined output, once a combiner has collapsed some
// axes) that downstream nodes read back through the same edge mechanism.
//
// The state machine is configured -> planned -> running -> complete |
// failed; a node that reaches complete is immutable. Persistence of element results goes through pkg/cache; directory
// naming and element enumeration go through pkg/state; the executed unit of
// work is whatever satisfies the Runnable contract in pkg/task.
package node
