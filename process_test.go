package exmodel_test

import (
	"testing"

	exmodel "github.com/exjs/exmodel"
)

func runProcess(t *testing.T, input any, d any, opts exmodel.Option, access exmodel.Access) (any, error) {
	t.Helper()
	s := mustSchema(t, d)
	return exmodel.Process(input, s, opts, access)
}

func expectPass(t *testing.T, input any, d any) any {
	t.Helper()
	out, err := runProcess(t, input, d, exmodel.NoOptions, nil)
	if err != nil {
		t.Fatalf("expected %v to pass, got %v", input, err)
	}
	return out
}

func expectFail(t *testing.T, input any, d any, code string) {
	t.Helper()
	_, err := runProcess(t, input, d, exmodel.NoOptions, nil)
	se, ok := exmodel.AsSchemaError(err)
	if !ok {
		t.Fatalf("expected SchemaError for %v, got %v", input, err)
	}
	if code != "" && se.Errors[0].Code != code {
		t.Fatalf("expected code %s for %v, got %s", code, input, se.Errors[0].Code)
	}
}

func TestProcess_Int8Bounds(t *testing.T) {
	d := map[string]any{"$type": "int8"}
	expectPass(t, -128, d)
	expectPass(t, 127, d)
	expectFail(t, -129, d, exmodel.CodeOutOfRange)
	expectFail(t, 128, d, exmodel.CodeOutOfRange)
	expectFail(t, "5", d, exmodel.CodeExpectedNumber)
	expectFail(t, true, d, exmodel.CodeExpectedNumber)
	expectFail(t, 1.5, d, exmodel.CodeInvalidValue)
}

func TestProcess_Int64Bounds(t *testing.T) {
	d := map[string]any{"$type": "int64"}
	expectPass(t, "9223372036854775807", d)
	expectPass(t, "-9223372036854775808", d)
	expectFail(t, "9223372036854775808", d, exmodel.CodeOutOfRange)
	expectFail(t, "-9223372036854775809", d, exmodel.CodeOutOfRange)
	expectFail(t, 5, d, exmodel.CodeExpectedString)
	expectFail(t, "01", d, exmodel.CodeInvalidFormat)
}

func TestProcess_Uint64AndBigintBounds(t *testing.T) {
	u := map[string]any{"$type": "uint64"}
	expectPass(t, "18446744073709551615", u)
	expectFail(t, "18446744073709551616", u, exmodel.CodeOutOfRange)
	expectFail(t, "-1", u, exmodel.CodeOutOfRange)

	b := map[string]any{"$type": "bigint", "$min": "-10", "$max": "10"}
	expectPass(t, "-10", b)
	expectPass(t, "10", b)
	expectFail(t, "11", b, exmodel.CodeOutOfRange)
	expectFail(t, "-11", b, exmodel.CodeOutOfRange)
	expectPass(t, "123456789012345678901234567890", map[string]any{"$type": "bigint"})
}

func TestProcess_ArrayLengthShorthand(t *testing.T) {
	d := map[string]any{"$type": "int[2:4]"}
	expectFail(t, []any{1}, d, exmodel.CodeLengthConstraint)
	for n := 2; n <= 4; n++ {
		arr := make([]any, n)
		for i := range arr {
			arr[i] = i + 1
		}
		expectPass(t, arr, d)
	}
	expectFail(t, []any{1, 2, 3, 4, 5}, d, exmodel.CodeLengthConstraint)
	expectFail(t, "nope", d, exmodel.CodeExpectedArray)
}

func TestProcess_DeltaMode(t *testing.T) {
	d := map[string]any{
		"a": map[string]any{"$type": "bool"},
		"b": map[string]any{"$type": "int"},
	}
	s := mustSchema(t, d)
	out, err := exmodel.Process(map[string]any{"a": true}, s, exmodel.DeltaMode, nil)
	if err != nil {
		t.Fatalf("delta partial record failed: %v", err)
	}
	m := out.(map[string]any)
	if m["a"] != true {
		t.Fatalf("delta output = %v", m)
	}
	if _, present := m["b"]; present {
		t.Fatalf("missing field materialized in delta output: %v", m)
	}
	if _, err := exmodel.Process(map[string]any{"invalid": true}, s, exmodel.DeltaMode, nil); err == nil {
		t.Fatalf("unknown field must fail even in delta mode")
	}
	// without delta mode the same partial record is missing b
	_, err = exmodel.Process(map[string]any{"a": true}, s, exmodel.NoOptions, nil)
	se, _ := exmodel.AsSchemaError(err)
	if se == nil || se.Errors[0].Code != exmodel.CodeMissingProperty {
		t.Fatalf("expected MissingProperty, got %v", err)
	}
}

func TestProcess_DeltaFalseNode(t *testing.T) {
	d := map[string]any{
		"$delta": false,
		"a":      map[string]any{"$type": "int"},
	}
	s := mustSchema(t, d)
	if _, err := exmodel.Process(map[string]any{}, s, exmodel.DeltaMode, nil); err == nil {
		t.Fatalf("$delta:false node must reject partial records")
	}
}

func TestProcess_ExtractOptions(t *testing.T) {
	d := map[string]any{
		"a":      map[string]any{"$type": "int"},
		"nested": map[string]any{"b": map[string]any{"$type": "int"}},
	}
	s := mustSchema(t, d)
	in := map[string]any{
		"a":      1,
		"junk":   true,
		"nested": map[string]any{"b": 2, "extra": "x"},
	}
	if _, err := exmodel.Process(in, s, exmodel.NoOptions, nil); err == nil {
		t.Fatalf("unknown fields must fail without extract flags")
	}
	if _, err := exmodel.Process(in, s, exmodel.ExtractTop, nil); err == nil {
		t.Fatalf("nested unknown field must still fail with ExtractTop only")
	}
	out, err := exmodel.Process(in, s, exmodel.ExtractAll, nil)
	if err != nil {
		t.Fatalf("ExtractAll failed: %v", err)
	}
	m := out.(map[string]any)
	if _, present := m["junk"]; present {
		t.Fatalf("junk survived extraction: %v", m)
	}
	if _, present := m["nested"].(map[string]any)["extra"]; present {
		t.Fatalf("nested extra survived extraction: %v", m)
	}
}

func TestProcess_AccumulatedErrorOrder(t *testing.T) {
	d := map[string]any{
		"a": map[string]any{"$type": "bool"},
		"b": map[string]any{"$type": "int"},
		"c": map[string]any{"$type": "double"},
		"d": map[string]any{"$type": "string"},
		"nested": map[string]any{
			"a": map[string]any{"$type": "int", "$min": 5, "$max": 10},
			"b": map[string]any{"$type": "int?"},
		},
	}
	in := map[string]any{
		"a": "x", "b": "x", "c": "x", "d": 0,
		"nested": map[string]any{"a": "x", "b": "x"},
	}
	s := mustSchema(t, d)
	_, err := exmodel.Process(in, s, exmodel.AccumulateErrors, nil)
	se, ok := exmodel.AsSchemaError(err)
	if !ok {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	want := []exmodel.Issue{
		{Path: "a", Code: exmodel.CodeExpectedBoolean},
		{Path: "b", Code: exmodel.CodeExpectedNumber},
		{Path: "c", Code: exmodel.CodeExpectedNumber},
		{Path: "d", Code: exmodel.CodeExpectedString},
		{Path: "nested.a", Code: exmodel.CodeExpectedNumber},
		{Path: "nested.b", Code: exmodel.CodeExpectedNumber},
	}
	if len(se.Errors) != len(want) {
		t.Fatalf("got %d errors: %+v", len(se.Errors), se.Errors)
	}
	for i, w := range want {
		if se.Errors[i].Path != w.Path || se.Errors[i].Code != w.Code {
			t.Fatalf("error %d = %s@%s, want %s@%s",
				i, se.Errors[i].Code, se.Errors[i].Path, w.Code, w.Path)
		}
	}
}

func TestProcess_FailFastStopsAtFirst(t *testing.T) {
	d := map[string]any{
		"a": map[string]any{"$type": "bool"},
		"b": map[string]any{"$type": "int"},
	}
	_, err := runProcess(t, map[string]any{"a": "x", "b": "x"}, d, exmodel.NoOptions, nil)
	se, _ := exmodel.AsSchemaError(err)
	if se == nil || len(se.Errors) != 1 || se.Errors[0].Path != "a" {
		t.Fatalf("fail fast errors = %+v", se)
	}
}

func TestProcess_DefaultsAreCloned(t *testing.T) {
	d := map[string]any{
		"e": map[string]any{"$type": "object", "$default": map[string]any{}},
	}
	s := mustSchema(t, d)
	out1, err := exmodel.Process(map[string]any{}, s, exmodel.NoOptions, nil)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	out2, err := exmodel.Process(map[string]any{}, s, exmodel.NoOptions, nil)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	e1 := out1.(map[string]any)["e"].(map[string]any)
	e2 := out2.(map[string]any)["e"].(map[string]any)
	if !exmodel.Equals(e1, e2) {
		t.Fatalf("defaults differ: %v vs %v", e1, e2)
	}
	e1["mark"] = true
	if _, leaked := e2["mark"]; leaked {
		t.Fatalf("default value is shared between invocations")
	}
}

func TestProcess_AccessInherit(t *testing.T) {
	d := map[string]any{
		"$w": "user|admin",
		"profile": map[string]any{
			"secret": map[string]any{"$type": "string", "$w": "admin|inherit"},
		},
	}
	s := mustSchema(t, d)
	in := map[string]any{"profile": map[string]any{"secret": "s3cret"}}
	if _, err := exmodel.Process(in, s, exmodel.NoOptions, exmodel.Access{"user": true}); err != nil {
		t.Fatalf("inherit should admit the user role: %v", err)
	}
	_, err := exmodel.Process(in, s, exmodel.NoOptions, exmodel.Access{"guest": true})
	se, _ := exmodel.AsSchemaError(err)
	if se == nil || se.Errors[0].Code != exmodel.CodeNoAccess || se.Errors[0].Path != "profile.secret" {
		t.Fatalf("expected NoAccess at profile.secret, got %v", err)
	}
	// nil access disables checks entirely
	if _, err := exmodel.Process(in, s, exmodel.NoOptions, nil); err != nil {
		t.Fatalf("nil access must disable checks: %v", err)
	}
}

func TestProcess_AccessNoneAndStar(t *testing.T) {
	d := map[string]any{
		"open":   map[string]any{"$type": "int", "$w": "*"},
		"closed": map[string]any{"$type": "int", "$optional": true, "$w": "none"},
	}
	s := mustSchema(t, d)
	if _, err := exmodel.Process(map[string]any{"open": 1}, s, exmodel.NoOptions, exmodel.Access{}); err != nil {
		t.Fatalf("* must always admit: %v", err)
	}
	_, err := exmodel.Process(map[string]any{"open": 1, "closed": 2}, s, exmodel.NoOptions, exmodel.Access{"admin": true})
	se, _ := exmodel.AsSchemaError(err)
	if se == nil || se.Errors[0].Code != exmodel.CodeNoAccess {
		t.Fatalf("none must never admit, got %v", err)
	}
}

func TestProcess_NeverMutatesInput(t *testing.T) {
	d := map[string]any{
		"a": map[string]any{"$type": "int"},
		"b": map[string]any{"$type": "int", "$default": 7},
	}
	in := map[string]any{"a": 1}
	snapshot := exmodel.CloneDeep(in)
	out := expectPass(t, in, d)
	if !exmodel.Equals(in, snapshot) {
		t.Fatalf("input was mutated: %v", in)
	}
	m := out.(map[string]any)
	if !exmodel.Equals(m["b"], 7) {
		t.Fatalf("default not applied: %v", m)
	}
}

func TestProcess_Deterministic(t *testing.T) {
	d := map[string]any{
		"a": map[string]any{"$type": "int"},
		"b": map[string]any{"$type": "string"},
	}
	s := mustSchema(t, d)
	in := map[string]any{"a": 1, "b": "x"}
	first, err := exmodel.Process(in, s, exmodel.NoOptions, nil)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := exmodel.Process(in, s, exmodel.NoOptions, nil)
		if err != nil || !exmodel.Equals(first, again) {
			t.Fatalf("run %d differs: %v (%v)", i, again, err)
		}
	}
}

func TestProcess_NullableAndOptional(t *testing.T) {
	d := map[string]any{
		"n": map[string]any{"$type": "int?"},
		"o": map[string]any{"$type": "int", "$optional": true},
	}
	out := expectPass(t, map[string]any{"n": nil}, d)
	m := out.(map[string]any)
	if v, present := m["n"]; !present || v != nil {
		t.Fatalf("nullable null lost: %v", m)
	}
	if _, present := m["o"]; present {
		t.Fatalf("absent optional materialized: %v", m)
	}
	expectFail(t, map[string]any{"n": nil, "o": nil}, map[string]any{
		"n": map[string]any{"$type": "int?"},
		"o": map[string]any{"$type": "int", "$optional": true},
	}, exmodel.CodeExpectedNumber)
}

func TestProcess_AllowedExpAndFn(t *testing.T) {
	allowed := map[string]any{"$type": "int", "$allowed": []any{1, 2, 3}}
	expectPass(t, 2, allowed)
	expectFail(t, 4, allowed, exmodel.CodeInvalidValue)

	even := map[string]any{"$type": "int", "$exp": "x % 2 == 0"}
	expectPass(t, 8, even)
	expectFail(t, 7, even, exmodel.CodeInvalidValue)

	fn := map[string]any{"$type": "int", "$fn": func(v any) any {
		if n, _ := v.(int); n == 13 {
			return "Unlucky"
		}
		return true
	}}
	expectPass(t, 12, fn)
	expectFail(t, 13, fn, "Unlucky")
}

func TestProcess_AnyIgnoresAllowed(t *testing.T) {
	d := map[string]any{"$type": "any", "$allowed": []any{1}}
	// the source engine ignores $allowed for any: everything non-null passes
	expectPass(t, "whatever", d)
	expectFail(t, nil, d, exmodel.CodeInvalidValue)
	expectPass(t, nil, map[string]any{"$type": "any?"})
}

func TestProcess_MapValues(t *testing.T) {
	d := map[string]any{"$type": "map", "$data": "int"}
	out := expectPass(t, map[string]any{"x": 1, "y": 2}, d)
	if len(out.(map[string]any)) != 2 {
		t.Fatalf("map output = %v", out)
	}
	expectFail(t, map[string]any{"x": "str"}, d, exmodel.CodeExpectedNumber)
	expectFail(t, []any{1}, d, exmodel.CodeExpectedObject)
}

func TestProcess_NestedArrayPaths(t *testing.T) {
	d := map[string]any{"items": map[string]any{"$type": "int[]"}}
	_, err := runProcess(t, map[string]any{"items": []any{1, "x", 3}}, d, exmodel.AccumulateErrors, nil)
	se, _ := exmodel.AsSchemaError(err)
	if se == nil || se.Errors[0].Path != "items[1]" {
		t.Fatalf("expected error at items[1], got %+v", se)
	}
}

func TestProcess_EscapedFieldPath(t *testing.T) {
	d := map[string]any{`\$odd`: map[string]any{"$type": "int"}}
	s := mustSchema(t, d)
	_, err := exmodel.Process(map[string]any{"$odd": "x"}, s, exmodel.NoOptions, nil)
	se, _ := exmodel.AsSchemaError(err)
	if se == nil || se.Errors[0].Path != `\$odd` {
		t.Fatalf("expected escaped path, got %+v", se)
	}
}

func TestPrecompile_ModeAndCaching(t *testing.T) {
	s := mustSchema(t, map[string]any{"a": map[string]any{"$type": "int"}})
	r1, err := exmodel.Precompile("process", s, exmodel.NoOptions, nil)
	if err != nil {
		t.Fatalf("precompile failed: %v", err)
	}
	r2, err := exmodel.Precompile("process", s, exmodel.NoOptions, nil)
	if err != nil || r1 != r2 {
		t.Fatalf("expected a cache hit for the same triple")
	}
	r3, err := exmodel.Precompile("process", s, exmodel.DeltaMode, nil)
	if err != nil || r3 == r1 {
		t.Fatalf("expected a distinct routine for different options")
	}
	if _, err := exmodel.Precompile("bogus", s, exmodel.NoOptions, nil); err == nil {
		t.Fatalf("expected unknown mode error")
	}
	if out, err := r1.Run(map[string]any{"a": 5}); err != nil || out.(map[string]any)["a"] != int64(5) {
		t.Fatalf("routine run = %v (%v)", out, err)
	}
}
