// Package config centralizes engine-wide configuration for the dataflow
// task engine: execution limits, state-planning ceilings, cache behavior,
// and retry defaults.
//
// The engine itself reads no environment variables; a Config is built by
// the embedder (typically via Default, then overridden) and threaded
// through the engine, cache, and scheduler explicitly.
package config
