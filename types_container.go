package exmodel

import (
	"sort"
	"strconv"
)

func init() {
	registerType(&typeSpec{
		name:     "object",
		expected: CodeExpectedObject,
		defaults: func(*Node) {},
		validate: func(*Node) error { return nil },
		check:    objectCheck,
	})
	registerType(&typeSpec{
		name:     "map",
		expected: CodeExpectedObject,
		defaults: func(*Node) {},
		validate: func(*Node) error { return nil },
		check:    mapCheck,
	})
	registerType(&typeSpec{
		name:     "array",
		expected: CodeExpectedArray,
		defaults: func(*Node) {},
		validate: func(*Node) error { return nil },
		check:    arrayCheck,
	})
}

type fieldPlan struct {
	name     string
	pathName string // escaped for diagnostics
	check    checkFn
	writable bool
	required bool
	hasDef   bool
	def      any
}

func objectCheck(n *Node, c *compiler, ctx compileCtx) checkFn {
	writeEval := accessEvaluator(n.Write, ctx.writeEval)
	delta := c.opts&DeltaMode != 0 && !(n.Delta != nil && !*n.Delta)
	extract := ctx.root && c.opts&ExtractTop != 0 || !ctx.root && c.opts&ExtractNested != 0

	plans := make([]fieldPlan, 0, len(n.fieldOrder))
	known := make(map[string]bool, len(n.fieldOrder))
	for _, name := range n.fieldOrder {
		f := n.Fields[name]
		known[name] = true
		writable := true
		if c.roles != nil && f.Write != nil {
			writable = accessEvaluator(f.Write, writeEval)(c.roles)
		}
		childCtx := compileCtx{writeEval: writeEval}
		plans = append(plans, fieldPlan{
			name:     name,
			pathName: EscapeFieldName(name),
			check:    c.compileNode(f, childCtx),
			writable: writable,
			required: !f.Optional && !f.HasDefault,
			hasDef:   f.HasDefault,
			def:      f.Default,
		})
	}

	return func(rt *runtime, path string, v any) (any, bool) {
		m, ok := v.(map[string]any)
		if !ok {
			rt.report(path, CodeExpectedObject)
			return nil, false
		}
		out := make(map[string]any, len(m))
		failed := false
		for i := range plans {
			p := &plans[i]
			fpath := joinField(path, p.pathName)
			val, present := m[p.name]
			if !present {
				if delta {
					continue
				}
				if p.hasDef {
					out[p.name] = CloneDeep(p.def)
					continue
				}
				if p.required {
					rt.report(fpath, CodeMissingProperty)
					if rt.failFast() {
						return nil, false
					}
					failed = true
				}
				continue
			}
			if !p.writable {
				rt.report(fpath, CodeNoAccess)
				if rt.failFast() {
					return nil, false
				}
				failed = true
				continue
			}
			ov, ok := p.check(rt, fpath, val)
			if !ok {
				if rt.failFast() {
					return nil, false
				}
				failed = true
				continue
			}
			out[p.name] = ov
		}
		if !extract {
			var unknown []string
			for k := range m {
				if !known[k] {
					unknown = append(unknown, k)
				}
			}
			if len(unknown) > 0 {
				sort.Strings(unknown)
				for _, k := range unknown {
					rt.report(joinField(path, EscapeFieldName(k)), CodeUnexpectedProperty)
					if rt.failFast() {
						return nil, false
					}
				}
				failed = true
			}
		}
		if failed {
			return nil, false
		}
		return out, true
	}
}

func mapCheck(n *Node, c *compiler, ctx compileCtx) checkFn {
	writeEval := accessEvaluator(n.Write, ctx.writeEval)
	value := c.compileNode(n.Data, compileCtx{writeEval: writeEval})
	return func(rt *runtime, path string, v any) (any, bool) {
		m, ok := v.(map[string]any)
		if !ok {
			rt.report(path, CodeExpectedObject)
			return nil, false
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(m))
		failed := false
		for _, k := range keys {
			ov, ok := value(rt, joinField(path, EscapeFieldName(k)), m[k])
			if !ok {
				if rt.failFast() {
					return nil, false
				}
				failed = true
				continue
			}
			out[k] = ov
		}
		if failed {
			return nil, false
		}
		return out, true
	}
}

func arrayCheck(n *Node, c *compiler, ctx compileCtx) checkFn {
	writeEval := accessEvaluator(n.Write, ctx.writeEval)
	elem := c.compileNode(n.Data, compileCtx{writeEval: writeEval})
	hasLen, ln := n.HasLen, n.Len
	hasMin, minLn := n.HasMinLen, n.MinLen
	hasMax, maxLn := n.HasMaxLen, n.MaxLen
	return func(rt *runtime, path string, v any) (any, bool) {
		arr, ok := v.([]any)
		if !ok {
			rt.report(path, CodeExpectedArray)
			return nil, false
		}
		failed := false
		l := len(arr)
		if hasLen && l != ln || hasMin && l < minLn || hasMax && l > maxLn {
			rt.report(path, CodeLengthConstraint)
			if rt.failFast() {
				return nil, false
			}
			failed = true
		}
		out := make([]any, 0, l)
		for i, e := range arr {
			ov, ok := elem(rt, path+"["+strconv.Itoa(i)+"]", e)
			if !ok {
				if rt.failFast() {
					return nil, false
				}
				failed = true
				continue
			}
			out = append(out, ov)
		}
		if failed {
			return nil, false
		}
		return out, true
	}
}
