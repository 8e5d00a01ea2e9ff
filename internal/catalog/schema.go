package catalog

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "exam-catalog-v1.schema.json"

const catalogSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["questions"],
  "additionalProperties": false,
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "text", "type"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "integer", "minimum": 1},
          "text": {"type": "string", "minLength": 1},
          "type": {"enum": ["multiple_choice", "open_ended"]},
          "options": {
            "type": "array",
            "items": {"type": "string", "minLength": 1}
          }
        },
        "if": {"properties": {"type": {"const": "multiple_choice"}}},
        "then": {
          "required": ["options"],
          "properties": {"options": {"minItems": 2}}
        }
      }
    }
  }
}`

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(catalogSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaURL)
}
