package spec

import (
	"fmt"
	"strings"

	"github.com/yesoreyeram/dagflow/pkg/types"
)

// OutputNamesFromInputFields collects the exposed output names contributed
// by input fields carrying an output_file_template, matching the reference
// implementation's output_names_from_inputfields.
func OutputNamesFromInputFields(s types.Spec) []string {
	var names []string
	for _, f := range s.Fields {
		if f.OutputFileTemplate != "" {
			names = append(names, f.ExposedName())
		}
	}
	return names
}

// SubstituteTemplate resolves a field's output_file_template against an
// already-bound input record, substituting "{field}" placeholders with the
// string form of each referenced field's value. Deliberately minimal: plain
// field-name interpolation, no control flow, so a template is never more
// than a file-name pattern.
func SubstituteTemplate(template string, record types.Record) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(template) {
		c := template[i]
		if c != '{' {
			out.WriteByte(c)
			i++
			continue
		}
		end := strings.IndexByte(template[i:], '}')
		if end < 0 {
			return "", fmt.Errorf("%w: unterminated '{' in template %q", ErrTemplateField, template)
		}
		fieldName := template[i+1 : i+end]
		value, ok := record[fieldName]
		if !ok {
			return "", fmt.Errorf("%w: %q in template %q", ErrTemplateField, fieldName, template)
		}
		out.WriteString(fmt.Sprintf("%v", value))
		i += end + 1
	}
	return out.String(), nil
}

// OutputFromInputFields materialises the declared-output values produced by
// output_file_template fields on an input spec, given the already-bound
// input record. The returned record is keyed by each field's exposed name.
func OutputFromInputFields(inputSpec types.Spec, record types.Record) (types.Record, error) {
	out := make(types.Record)
	for _, f := range inputSpec.Fields {
		if f.OutputFileTemplate == "" {
			continue
		}
		value, err := SubstituteTemplate(f.OutputFileTemplate, record)
		if err != nil {
			return nil, err
		}
		out[f.ExposedName()] = value
	}
	return out, nil
}
