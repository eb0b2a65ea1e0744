// Package logging provides structured logging for the dataflow engine, built
// on log/slog. Loggers are chained with WithWorkflowID/WithExecutionID/
// WithNodeID/WithChecksum/WithDirName to attach execution context to every
// record emitted during planning and element execution.
package logging
