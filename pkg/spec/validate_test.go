package spec

import (
	"testing"

	"github.com/yesoreyeram/dagflow/pkg/types"
)

func TestValidateDefaultAcceptsMatchingValue(t *testing.T) {
	schema := `{"type": "integer", "minimum": 0}`
	if err := ValidateDefault(schema, 3); err != nil {
		t.Fatalf("ValidateDefault: %v", err)
	}
}

func TestValidateDefaultRejectsMismatchedValue(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		value  interface{}
	}{
		{"wrong type", `{"type": "integer"}`, "not a number"},
		{"below minimum", `{"type": "integer", "minimum": 10}`, 3},
		{"missing required", `{"type": "object", "required": ["path"]}`, map[string]interface{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateDefault(tt.schema, tt.value); err == nil {
				t.Fatalf("expected %v to fail schema %s", tt.value, tt.schema)
			}
		})
	}
}

func TestValidateSpecChecksDeclaredDefaults(t *testing.T) {
	good := types.Spec{Fields: []types.Field{
		{Name: "n", Kind: types.FieldScalar, Default: 3, Schema: `{"type": "integer"}`},
		{Name: "free", Kind: types.FieldScalar, Default: "anything"},
	}}
	if err := ValidateSpec(good); err != nil {
		t.Fatalf("ValidateSpec: %v", err)
	}

	bad := types.Spec{Fields: []types.Field{
		{Name: "n", Kind: types.FieldScalar, Default: "three", Schema: `{"type": "integer"}`},
	}}
	if err := ValidateSpec(bad); err == nil {
		t.Fatalf("expected ValidateSpec to reject a default failing its schema")
	}
}
