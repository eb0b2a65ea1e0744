package types

import (
	"context"
	"time"
)

// ============================================================================
// Context Keys
// ============================================================================

// contextKey is used for context keys to avoid collisions
type contextKey string

const (
	// ContextKeyExecutionID is the context key for the unique execution ID
	ContextKeyExecutionID contextKey = "execution_id"

	// ContextKeyWorkflowID is the context key for the workflow ID
	ContextKeyWorkflowID contextKey = "workflow_id"
)

// GetExecutionID extracts the execution ID from context.
// Returns empty string if not found in context.
func GetExecutionID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyExecutionID).(string); ok {
		return id
	}
	return ""
}

// GetWorkflowID extracts the workflow ID from context.
// Returns empty string if not found in context.
func GetWorkflowID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyWorkflowID).(string); ok {
		return id
	}
	return ""
}

// WithExecutionID attaches an execution ID to ctx, retrievable via GetExecutionID.
func WithExecutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyExecutionID, id)
}

// WithWorkflowID attaches a workflow ID to ctx, retrievable via GetWorkflowID.
func WithWorkflowID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyWorkflowID, id)
}

// ============================================================================
// Field specs
// ============================================================================

// FieldKind is the closed set of value types a field may declare.
type FieldKind string

const (
	FieldScalar          FieldKind = "scalar"
	FieldFile            FieldKind = "file"
	FieldSequenceScalar  FieldKind = "sequence-of-scalar"
	FieldSequenceFile    FieldKind = "sequence-of-file"
	FieldTemplateString  FieldKind = "template-string"
)

// CopyMode controls how a file-valued field is materialised into a task's
// working directory. The mechanics of copy/link themselves are an explicitly
// out-of-scope filesystem concern; only the declared intent is
// part of the field spec.
type CopyMode string

const (
	CopyNone CopyMode = "none"
	CopyLink CopyMode = "link"
	CopyCopy CopyMode = "copy"
)

// Field describes one named entry of an input or output spec.
type Field struct {
	Name    string
	Kind    FieldKind
	Default interface{}

	Copyfile CopyMode

	// OutputFileTemplate, when non-empty, marks this as a declared output of
	// kind FieldFile whose path is produced by substituting already-bound
	// input fields into the template (e.g. "{in_file}_out.txt") just before
	// execution.
	OutputFileTemplate string

	// OutputFieldName renames the exposed output; defaults to Name when empty.
	OutputFieldName string

	// Schema, when non-empty, is a JSON Schema document the field's declared
	// Default is validated against when the owning node is planned.
	Schema string
}

// ExposedName returns the field's externally visible name.
func (f Field) ExposedName() string {
	if f.OutputFieldName != "" {
		return f.OutputFieldName
	}
	return f.Name
}

// Spec is an ordered set of named fields — the shape of an input or output
// record.
type Spec struct {
	Fields []Field
}

// FieldByName returns the field with the given name, or false if absent.
func (s Spec) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Record is a single {field-name -> value} map driven by a Spec's field
// metadata. This is the "single record type" the design notes
// call for, replacing the source's dynamic per-spec class synthesis.
type Record map[string]interface{}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ============================================================================
// Runtime & Result
// ============================================================================

// Runtime carries optional resource-usage peaks collected while a runnable
// executed. All fields are optional: nil means "not sampled".
type Runtime struct {
	RSSPeakGB      *float64
	VMSPeakGB      *float64
	CPUPeakPercent *float64
}

// Result is the triple (output-record, runtime-record, error) produced by one
// element execution.
type Result struct {
	Output    Record
	Runtime   Runtime
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
}

// Succeeded reports whether the element completed without error.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// ============================================================================
// DAG vertex/edge types (consumed by pkg/graph)
// ============================================================================

// Node is a lightweight DAG vertex: just enough identity for topological
// sorting. The full per-task domain object lives in pkg/node.Node; this type
// exists solely so pkg/graph can order an arbitrary collection of named
// vertices without importing pkg/node.
type Node struct {
	ID string
}

// Edge is a directed DAG edge between two vertex IDs.
type Edge struct {
	ID     string
	Source string
	Target string
}
