package exmodel

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v3"
)

// SchemaFromJSON decodes a JSON descriptor and normalizes it.
func SchemaFromJSON(data []byte) (*Node, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "schema: bad JSON descriptor")
	}
	return Schema(v)
}

// SchemaFromYAML decodes a YAML descriptor and normalizes it. Non-string
// mapping keys are a schema-compile error.
func SchemaFromYAML(data []byte) (*Node, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "schema: bad YAML descriptor")
	}
	fixed, err := fixYAMLMaps(v, "")
	if err != nil {
		return nil, err
	}
	return Schema(fixed)
}

// fixYAMLMaps rewrites map[any]any mappings produced by permissive YAML
// into map[string]any descriptors.
func fixYAMLMaps(v any, path string) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			fixed, err := fixYAMLMaps(e, path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = fixed
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			sk, ok := k.(string)
			if !ok {
				return nil, errors.Errorf("schema: non-string key %v at %s", k, path)
			}
			fixed, err := fixYAMLMaps(e, path+"."+sk)
			if err != nil {
				return nil, err
			}
			out[sk] = fixed
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			fixed, err := fixYAMLMaps(e, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = fixed
		}
		return out, nil
	}
	return v, nil
}
