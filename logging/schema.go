package logging

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema returns the JSON Schema of the `logging` extension section.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&Config{})
	schema.Title = "chartview logging configuration"
	schema.Description = "Schema for the 'logging' section in chartview.yml."

	// Every logging setting is optional.
	schema.Required = nil

	return json.MarshalIndent(schema, "", "  ")
}
