package config

//go:generate go run ../tools/schema-generator -o ../schema/config.schema.json

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects the Config struct into a JSON Schema. Property
// names follow the yaml tags, which the toml tags mirror.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		FieldNameTag:               "yaml",
	}

	schema := r.Reflect(&Config{})
	schema.Title = "claude-sessions daemon configuration"
	schema.Description = "Schema for config.yml / config.toml."

	return json.MarshalIndent(schema, "", "  ")
}
