package spec

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/yesoreyeram/dagflow/pkg/types"
)

// ValidateSpec validates every field whose declared default carries a
// schema. Called when a node is planned, so a bad default aborts the
// submission instead of surfacing as a cryptic runtime type-mismatch deep
// inside a task body.
func ValidateSpec(s types.Spec) error {
	for _, f := range s.Fields {
		if f.Schema == "" || f.Default == nil {
			continue
		}
		if err := ValidateDefault(f.Schema, f.Default); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return nil
}

// ValidateDefault validates a field's declared default value against a
// JSON Schema document. Specs are not required to carry a schema; fields
// without one are accepted as-is.
func ValidateDefault(schemaJSON string, value interface{}) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewGoLoader(value)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("spec: schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("spec: default value fails schema: %v", msgs)
	}
	return nil
}
