package executor

import "errors"

var (
	// ErrElementFailed is returned by Run when at least one (node, element)
	// pair failed; the underlying per-element error is available on the
	// corresponding NodeResult's Err field.
	ErrElementFailed = errors.New("executor: element failed")

	// ErrNodeIncomplete is returned by Run when a node's recorded results
	// don't account for every expected element after its elements have all
	// been dispatched without error — a bookkeeping inconsistency rather
	// than an element failure.
	ErrNodeIncomplete = errors.New("executor: node did not reach complete")
)
