package spec

import "errors"

// Sentinel errors for hashing and template substitution.
var (
	// ErrUnhashableField is returned when a field's declared kind has no
	// defined hashing rule.
	ErrUnhashableField = errors.New("spec: field kind has no hashing rule")

	// ErrFileUnreadable is returned when a file-valued field's path cannot
	// be opened for content hashing.
	ErrFileUnreadable = errors.New("spec: file field could not be read")

	// ErrTemplateField is returned when output_file_template references a
	// field name absent from the bound input record.
	ErrTemplateField = errors.New("spec: output_file_template references an unbound field")
)
