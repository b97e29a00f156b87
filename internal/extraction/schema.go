package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/entity"
)

// BuildFieldsJSONSchema returns the schema an extraction response must meet.
// Every field is optional; absence means "not comparable".
func BuildFieldsJSONSchema() map[string]any {
	text := map[string]any{"type": "string", "minLength": 1}
	props := map[string]any{
		entity.FieldBillingDate: text,
		entity.FieldCompany:     text,
		entity.FieldCreditor:    text,
		entity.FieldConcept:     text,
		entity.FieldDescription: text,
		entity.FieldBaseAmount:  amountProp(),
		entity.FieldTaxPresent:  map[string]any{"type": "boolean"},
		entity.FieldTaxAmount:   amountProp(),
		entity.FieldTotalAmount: amountProp(),
		"extractedFields": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"confidence": map[string]any{
			"type": "string",
			"enum": constants.TiersAsStringSlice(),
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

// amountProp accepts a JSON number or a numeral string; the normalizer sorts
// out grouping later.
func amountProp() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "number"},
			map[string]any{"type": "string", "pattern": `\d`},
		},
	}
}

// CompileSchema compiles schemaMap once for repeated validation.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fields.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("fields.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateJSON validates data against a compiled schema.
func ValidateJSON(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
