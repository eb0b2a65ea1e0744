package workflow

import "errors"

// Sentinel errors for workflow wiring and planning.
var (
	// ErrUnknownChild is returned by Connect/ConnectWfInput/Output when a
	// named child has not been added to the workflow.
	ErrUnknownChild = errors.New("workflow: unknown child node")

	// ErrUnresolvedInput is returned by Prepare when a needed_inp_wf binding
	// names a workflow field that was not supplied.
	ErrUnresolvedInput = errors.New("workflow: unresolved workflow input")

	// ErrSplitterChanged is returned by Split when the workflow was already
	// split with a different expression.
	ErrSplitterChanged = errors.New("workflow: splitter already set to a different expression")

	// ErrNoSplitter is returned by Combine when no workflow splitter has
	// been set yet.
	ErrNoSplitter = errors.New("workflow: combine requires a prior splitter")

	// ErrDuplicateOutputName is returned by Output when two exposed output
	// names collide.
	ErrDuplicateOutputName = errors.New("workflow: duplicate output name")

	// ErrNoChildren is returned by SplitNode/CombineNode when no child has
	// been added yet.
	ErrNoChildren = errors.New("workflow: no child node has been added")
)
