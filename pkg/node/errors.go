package node

import "errors"

// Sentinel errors for node lifecycle and element resolution.
var (
	// ErrNoSplitter is returned by Combine when no splitter has been set yet.
	ErrNoSplitter = errors.New("node: combine requires a prior splitter")

	// ErrSplitterChanged is returned by Split when the node was already
	// split with a different expression — split is idempotent only when the
	// new expression equals the old one.
	ErrSplitterChanged = errors.New("node: splitter already set to a different expression")

	// ErrCombinerChanged is returned by Combine when the node already has a
	// different combiner set.
	ErrCombinerChanged = errors.New("node: combiner already set to a different value")

	// ErrNotPlanned is returned by RunElement when called before the node's
	// state has been planned.
	ErrNotPlanned = errors.New("node: state has not been planned yet")

	// ErrMissingDependency is returned by GetInputEl when an upstream node
	// is not registered, not complete, or has no output recorded for the
	// resolved directory name.
	ErrMissingDependency = errors.New("node: missing upstream dependency")

	// ErrAlreadyComplete is returned by mutating operations (Split, Combine)
	// once the node has reached the complete state; a complete node is
	// immutable. RegisterInnerSplitter also returns it once the node has
	// left the configured state.
	ErrAlreadyComplete = errors.New("node: node is complete and immutable")

	// ErrNotSequence is returned by PropagateInnerValues when an upstream
	// output feeding an inner-splitter field is not a sequence.
	ErrNotSequence = errors.New("node: inner-splitter input is not a sequence")
)
