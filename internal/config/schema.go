package config

import "github.com/invopop/jsonschema"

// JSONSchema reflects Config's yaml tags into a JSON Schema document, for a
// `doctor` subcommand to validate a config file against before loading it.
func JSONSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{FieldNameTag: "yaml", AllowAdditionalProperties: false}
	return reflector.Reflect(&Config{})
}
