package task

import "errors"

// Sentinel errors for runnable construction and execution.
var (
	// ErrMissingInput is returned when a runnable is called before every
	// declared input-spec field without a default has been bound.
	ErrMissingInput = errors.New("task: required input field not bound")

	// ErrCompileFailed wraps an expr-lang compilation error for an
	// ExprTask body.
	ErrCompileFailed = errors.New("task: expression body failed to compile")

	// ErrEvalFailed wraps an expr-lang evaluation error.
	ErrEvalFailed = errors.New("task: expression body failed to evaluate")
)
