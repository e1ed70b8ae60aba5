package exmodel

import "github.com/pkg/errors"

// Process validates input against a normalized schema, returning the
// freshly built output or a *SchemaError with the collected diagnostics.
// Inputs are never mutated. A nil access disables access checks.
func Process(input any, schema *Node, options Option, access Access) (any, error) {
	r, err := routineFor(schema, options, access)
	if err != nil {
		return nil, err
	}
	return r.Run(input)
}

// Precompile fetches or builds the compiled routine for a (schema, options,
// access) triple without running it, for introspection and cache warm-up.
// The only supported mode is "process".
func Precompile(mode string, schema *Node, options Option, access Access) (*Routine, error) {
	if mode != "process" {
		return nil, errors.Errorf("precompile: unknown mode %q", mode)
	}
	return routineFor(schema, options, access)
}
