package exmodel_test

import (
	"testing"

	exmodel "github.com/exjs/exmodel"
)

func TestSchemaFromJSON(t *testing.T) {
	s, err := exmodel.SchemaFromJSON([]byte(`{
		"name": {"$type": "string", "$maxLength": 10},
		"age":  {"$type": "uint8"}
	}`))
	if err != nil {
		t.Fatalf("SchemaFromJSON failed: %v", err)
	}
	out, err := exmodel.Process(map[string]any{"name": "ann", "age": 33}, s, exmodel.NoOptions, nil)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if out.(map[string]any)["age"] != int64(33) {
		t.Fatalf("output = %v", out)
	}
	if _, err := exmodel.SchemaFromJSON([]byte(`{"x": {"$type": "nosuch"}}`)); err == nil {
		t.Fatalf("expected unknown type error")
	}
	if _, err := exmodel.SchemaFromJSON([]byte(`{broken`)); err == nil {
		t.Fatalf("expected JSON parse error")
	}
}

func TestSchemaFromYAML(t *testing.T) {
	s, err := exmodel.SchemaFromYAML([]byte(`
name:
  $type: string
tags:
  $type: string[]
`))
	if err != nil {
		t.Fatalf("SchemaFromYAML failed: %v", err)
	}
	in := map[string]any{"name": "x", "tags": []any{"a", "b"}}
	if _, err := exmodel.Process(in, s, exmodel.NoOptions, nil); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if _, err := exmodel.SchemaFromYAML([]byte("1: 2")); err == nil {
		t.Fatalf("expected non-string key error")
	}
}

func TestPrintSchema(t *testing.T) {
	s := mustSchema(t, map[string]any{
		"a": map[string]any{"$type": "int", "$min": 1},
		"b": map[string]any{"$type": "string[]"},
	})
	out := exmodel.PrintSchema(s)
	if out == "" {
		t.Fatalf("empty rendering")
	}
	for _, want := range []string{"$type: object", "a:", "b:", "$type: int", "$type: array"} {
		if !contains(out, want) {
			t.Fatalf("rendering missing %q:\n%s", want, out)
		}
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
