package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// manageTeamSchemaJSON declares the shape of a manage_team call: one of six
// actions, each requiring its own subset of fields. Conditional per-action
// requirements ("if action == X, then require Y") are the only way to
// express this in JSON Schema, since the wire format is one flat arguments
// object rather than a tagged union.
const manageTeamSchemaJSON = `{
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"enum": ["create_team", "delete_team", "create_agent", "delete_agent", "list_teams", "list_agents"]}
  },
  "allOf": [
    {"if": {"properties": {"action": {"const": "create_team"}}}, "then": {"required": ["team_id"]}},
    {"if": {"properties": {"action": {"const": "delete_team"}}}, "then": {"required": ["team_id"]}},
    {"if": {"properties": {"action": {"const": "create_agent"}}}, "then": {"required": ["team_id"]}},
    {"if": {"properties": {"action": {"const": "delete_agent"}}}, "then": {"required": ["agent_id"]}},
    {"if": {"properties": {"action": {"const": "list_agents"}}}, "then": {"required": ["team_id"]}}
  ]
}`

// fileSystemSchemaJSON declares the shape of a file_system call: one of six
// actions against a path, each requiring its own subset of fields beyond
// action/path. path is deliberately not required at the schema level
// because "list" defaults an absent path to the scope root (§4.5).
const fileSystemSchemaJSON = `{
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"enum": ["read", "write", "append", "list", "delete", "find_replace"]},
    "scope": {"enum": ["", "private", "shared"]}
  },
  "allOf": [
    {"if": {"properties": {"action": {"const": "read"}}}, "then": {"anyOf": [{"required": ["path"]}, {"required": ["filename"]}]}},
    {"if": {"properties": {"action": {"const": "write"}}}, "then": {"allOf": [{"anyOf": [{"required": ["path"]}, {"required": ["filename"]}]}, {"required": ["content"]}]}},
    {"if": {"properties": {"action": {"const": "append"}}}, "then": {"allOf": [{"anyOf": [{"required": ["path"]}, {"required": ["filename"]}]}, {"required": ["content"]}]}},
    {"if": {"properties": {"action": {"const": "delete"}}}, "then": {"anyOf": [{"required": ["path"]}, {"required": ["filename"]}]}},
    {"if": {"properties": {"action": {"const": "find_replace"}}}, "then": {"allOf": [{"anyOf": [{"required": ["path"]}, {"required": ["filename"]}]}, {"required": ["find"]}]}}
  ]
}`

var (
	manageTeamSchema = mustCompileSchema("manage_team.schema.json", manageTeamSchemaJSON)
	fileSystemSchema = mustCompileSchema("file_system.schema.json", fileSystemSchemaJSON)
)

func mustCompileSchema(resourceName, schemaJSON string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceName, bytes.NewReader([]byte(schemaJSON))); err != nil {
		panic(fmt.Sprintf("tools: load %s: %v", resourceName, err))
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		panic(fmt.Sprintf("tools: compile %s: %v", resourceName, err))
	}
	return schema
}

// validateArgs checks a tool call's XML-derived, stringly-typed argument map
// against schema before the caller dispatches on args["action"], so a
// missing or misspelled field surfaces as one readable tool error instead of
// a handful of scattered "X is required" checks or a nil-map panic deeper in
// the action switch.
func validateArgs(schema *jsonschema.Schema, toolName string, args map[string]string) error {
	doc := make(map[string]any, len(args))
	for k, v := range args {
		doc[k] = v
	}
	// jsonschema validates against json.Unmarshal-shaped documents; round
	// trip through JSON rather than handing it the map[string]string
	// directly (its property/type checks expect `any` values).
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%s: marshal arguments: %w", toolName, err)
	}
	var decoded any
	if err := json.Unmarshal(docJSON, &decoded); err != nil {
		return fmt.Errorf("%s: unmarshal arguments: %w", toolName, err)
	}
	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("%s: malformed arguments: %w", toolName, err)
	}
	return nil
}
