package report

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is the JSON Schema of a ClinicalReport as the model is asked to emit it.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["modality", "severity", "summary", "details", "recommended_actions", "disclaimer"],
  "properties": {
    "modality": {"enum": ["xray", "blood_test", "prescription", "other"]},
    "severity": {"enum": ["green", "yellow", "red"]},
    "summary": {"type": "string", "minLength": 1},
    "details": {"type": "array", "items": {"type": "string"}},
    "recommended_actions": {"type": "array", "items": {"type": "string"}},
    "disclaimer": {"type": "string"},
    "ocr_excerpt": {"type": "string", "maxLength": 500},
    "ocr_has_text": {"type": "boolean"}
  }
}`

// SchemaHint is the type sketch used in repair instructions.
const SchemaHint = `{
  "modality": "xray" | "blood_test" | "prescription" | "other",
  "severity": "green" | "yellow" | "red",
  "summary": string,
  "details": string[],
  "recommended_actions": string[],
  "disclaimer": string
}`

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("report.schema.json", bytes.NewReader([]byte(Schema))); err != nil {
		return nil, fmt.Errorf("load report schema: %w", err)
	}
	schema, err := compiler.Compile("report.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile report schema: %w", err)
	}
	return schema, nil
}
