package state

import "errors"

// Sentinel errors for state planning and element resolution, mirroring the
// planning-time error taxonomy.
var (
	// ErrUnresolvableSplitter is returned by New when the splitter RPN
	// cannot be turned into axes (malformed expression, unknown variable,
	// or scalar-product length mismatch all surface through this wrapper
	// at the state layer).
	ErrUnresolvableSplitter = errors.New("state: splitter could not be resolved against bound inputs")

	// ErrIndexOutOfRange is returned by StateValues when a multi-index has
	// a component outside its axis's declared shape.
	ErrIndexOutOfRange = errors.New("state: element index out of range for axis shape")

	// ErrMissingInnerIndex is returned by StateValues when a variable is
	// registered as an inner splitter but no inner index was supplied.
	ErrMissingInnerIndex = errors.New("state: inner splitter variable requires an inner index")

	// ErrInnerSplitterConflict is returned by RegisterInnerSplitter when
	// the named variable is already an outer axis variable — inner
	// splitters bypass the global axis system entirely, so a variable
	// cannot be both.
	ErrInnerSplitterConflict = errors.New("state: variable is already an outer axis, cannot also be an inner splitter")

	// ErrNoInnerValues is returned by StateValues when an inner splitter
	// variable has no registered values for the given parent element.
	ErrNoInnerValues = errors.New("state: inner splitter has no registered values for this parent element")
)
