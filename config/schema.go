package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

//go:generate sh -c "cd .. && go run ./tools/schema-generator"

// GenerateSchema generates the JSON Schema for chartview.yml.
// Extension sections are open: any additional top-level key is allowed.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	// BaseConfig mirrors Config without the inline Extensions map.
	type BaseConfig struct {
		Version string       `yaml:"version" jsonschema:"description=Configuration version (e.g. '1.0')"`
		Feed    FeedConfig   `yaml:"feed,omitempty" jsonschema:"description=Reconnecting feed settings"`
		Viewer  ViewerConfig `yaml:"viewer,omitempty" jsonschema:"description=HTTP viewer settings"`
		Relay   RelayConfig  `yaml:"relay,omitempty" jsonschema:"description=Broadcast relay settings"`
	}

	schema := r.Reflect(&BaseConfig{})
	schema.Title = "chartview configuration"
	schema.Description = "Schema for chartview.yml."
	schema.Version = "http://json-schema.org/draft-07/schema#"
	schema.AdditionalProperties = jsonschema.TrueSchema

	return json.MarshalIndent(schema, "", "  ")
}
