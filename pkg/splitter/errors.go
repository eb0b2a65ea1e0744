package splitter

import "errors"

// Sentinel errors for splitter parsing and axis assignment, mirroring the
// planning-time error taxonomy.
var (
	// ErrMalformedSplitter is returned by Parse for unparsable expressions:
	// unbalanced parentheses, dangling operators, empty groups.
	ErrMalformedSplitter = errors.New("malformed splitter expression")

	// ErrUnknownVariable is returned by RPNToAxes when a leaf has no
	// corresponding entry in the supplied input-length map.
	ErrUnknownVariable = errors.New("splitter refers to an unbound field")

	// ErrScalarLengthMismatch is returned by RPNToAxes when a scalar-product
	// subtree's operands differ in axis count or in axis length at any
	// position. Operands whose axis lengths are equal only as a multiset, in
	// a different order, are rejected too.
	ErrScalarLengthMismatch = errors.New("scalar-product length mismatch")

	// ErrUnknownCombinerVariable is returned by ApplyCombiner when a combined
	// variable does not appear in the splitter RPN.
	ErrUnknownCombinerVariable = errors.New("combiner refers to a variable outside the splitter")
)
