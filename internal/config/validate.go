package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks the raw, merged configuration document at path (before
// it is decoded into a Config) against the schema JSONSchema reflects from
// Config's yaml tags. It catches the same unknown-field and wrong-type
// mistakes Load's strict decoder catches, but reports every violation at
// once instead of stopping at the first, which is what `doctor` wants from
// a config file a human is actively editing.
func Validate(path string) error {
	raw, err := LoadRaw(path)
	if err != nil {
		return err
	}

	schemaJSON, err := json.Marshal(JSONSchema())
	if err != nil {
		return fmt.Errorf("marshal config schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("load config schema: %w", err)
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	// jsonschema validates against json.Unmarshal-shaped documents
	// (map[string]interface{} with string keys, float64 numbers); round
	// trip the YAML/JSON5-decoded raw map through JSON to get there.
	docJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal config document: %w", err)
	}
	var doc any
	if err := json.Unmarshal(docJSON, &doc); err != nil {
		return fmt.Errorf("unmarshal config document: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}
