package exmodel

import (
	"math"

	"github.com/exjs/exmodel/i18n"
)

// checkFn is a compiled check: it validates v at path, writes diagnostics
// into rt, and returns the output value. ok is false after any diagnostic.
type checkFn func(rt *runtime, path string, v any) (any, bool)

// runtime is the per-invocation state of a compiled routine.
type runtime struct {
	opts   Option
	issues []Issue
}

func (rt *runtime) failFast() bool { return rt.opts&AccumulateErrors == 0 }

func (rt *runtime) report(path, code string) {
	rt.issues = append(rt.issues, newIssue(path, code))
}

// compileCtx carries the compile-time position: whether the node is the
// root, and the write-access evaluator inherited from enclosing objects.
type compileCtx struct {
	root      bool
	writeEval func(Access) bool
}

// compiler emits one specialized routine for a (schema, options, access)
// triple. All option and access decisions are resolved at compile time.
type compiler struct {
	opts  Option
	roles Access
}

func (c *compiler) compileNode(n *Node, ctx compileCtx) checkFn {
	spec := registry[n.Type]
	base := spec.check(n, c, ctx)
	base = wrapConstraints(n, base)
	nullable := n.Nullable
	expected := spec.expected
	return func(rt *runtime, path string, v any) (any, bool) {
		if v == nil {
			if nullable {
				return nil, true
			}
			rt.report(path, expected)
			return nil, false
		}
		return base(rt, path, v)
	}
}

// wrapConstraints layers the generic directives ($allowed, $exp, $fn) over a
// type check. The any type ignores $allowed; char consumes its own
// character-set form of $allowed inside its type check.
func wrapConstraints(n *Node, base checkFn) checkFn {
	allowed := n.Allowed
	if n.Type == "any" || n.Type == "char" {
		allowed = nil
	}
	prog := n.Exp
	fn := n.Fn
	if allowed == nil && prog == nil && fn == nil {
		return base
	}
	return func(rt *runtime, path string, v any) (any, bool) {
		out, ok := base(rt, path, v)
		if !ok {
			return nil, false
		}
		if allowed != nil {
			hit := false
			for _, lit := range allowed {
				if Equals(v, lit) {
					hit = true
					break
				}
			}
			if !hit {
				rt.report(path, CodeInvalidValue)
				return nil, false
			}
		}
		if prog != nil {
			x, isNum := numericValue(v)
			if !isNum {
				x = math.NaN()
			}
			if !prog.Eval(x) {
				rt.report(path, CodeInvalidValue)
				return nil, false
			}
		}
		if fn != nil {
			switch res := fn(v).(type) {
			case bool:
				if !res {
					rt.report(path, CodeInvalidValue)
					return nil, false
				}
			case string:
				if res == "" {
					rt.report(path, CodeInvalidValue)
				} else {
					rt.issues = append(rt.issues, Issue{Path: path, Code: res, Message: i18n.T(res, nil)})
				}
				return nil, false
			default:
				rt.report(path, CodeInvalidValue)
				return nil, false
			}
		}
		return out, true
	}
}

// Routine is a compiled validator for one (schema, options, access) triple.
// Routines are immutable and safe for concurrent use.
type Routine struct {
	check checkFn
	opts  Option
}

// Run validates input and returns the freshly built output, or a
// *SchemaError carrying the collected diagnostics.
func (r *Routine) Run(input any) (any, error) {
	rt := &runtime{opts: r.opts}
	out, _ := r.check(rt, "", input)
	if len(rt.issues) > 0 {
		return nil, &SchemaError{Errors: rt.issues}
	}
	return out, nil
}

func compileRoutine(n *Node, opts Option, roles Access) *Routine {
	c := &compiler{opts: opts, roles: roles}
	fn := c.compileNode(n, compileCtx{root: true, writeEval: accessAlways})
	return &Routine{check: fn, opts: opts}
}

// joinField appends an (already escaped) field name to a dotted path.
func joinField(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
