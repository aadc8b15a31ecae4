package config

import "testing"

func TestJSONSchema(t *testing.T) {
	schema := JSONSchema()
	if schema == nil {
		t.Fatal("JSONSchema() returned nil")
	}
	if schema.Properties == nil {
		t.Fatal("JSONSchema().Properties is nil")
	}
	if _, ok := schema.Properties.Get("server"); !ok {
		t.Error("schema is missing the server property")
	}
	if _, ok := schema.Properties.Get("llm"); !ok {
		t.Error("schema is missing the llm property")
	}
}
