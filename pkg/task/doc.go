// Package task defines the runnable contract the core engine executes
// against and one concrete implementation of it: a pure-function task whose body is an expr-lang expression
// evaluated against its bound input record.
//
// A Runnable exposes input_spec/output_spec, a checksum, and __call__. The
// engine never inspects what a runnable does internally — it only binds
// inputs, calls it, and persists whatever Result comes back. Task bodies
// that shell out to a subprocess, or that read/write files, live with the
// embedder; ExprTask covers the pure-function case end to end.
package task
