package exmodel

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/exjs/exmodel/internal/exp"
)

var fnCounter atomic.Uint64

// Schema normalizes a user-authored descriptor into an immutable Node.
// It is idempotent: an already-normalized schema is returned unchanged.
// Descriptors are trees of maps whose $-keys are directives; a plain string
// is treated as a $type shorthand.
func Schema(descriptor any) (*Node, error) {
	return normalizeAny(descriptor)
}

func normalizeAny(d any) (*Node, error) {
	switch t := d.(type) {
	case *Node:
		if t == nil || !t.normalized {
			return nil, errors.New("schema: nil or denormalized node")
		}
		return t, nil
	case string:
		return normalizeMap(map[string]any{"$type": t})
	case map[string]any:
		return normalizeMap(t)
	}
	return nil, errors.Errorf("schema: unsupported descriptor type %T", d)
}

func normalizeMap(m map[string]any) (*Node, error) {
	resolved, err := resolveComposition(m)
	if err != nil {
		return nil, err
	}
	// the node retains its resolved descriptor for $extend; detach it from
	// the caller's map so normalized schemas stay immutable
	resolved = CloneDeep(resolved).(map[string]any)

	dirs := make(map[string]any)
	props := make(map[string]any)
	for k, v := range resolved {
		if IsDirectiveName(k) {
			dirs[k] = v
			continue
		}
		name := UnescapeFieldName(k)
		if _, dup := props[name]; dup {
			return nil, errors.Errorf("schema: duplicate field %q", name)
		}
		props[name] = v
	}

	typeStr, hasType := "", false
	if tv, present := takeKey(dirs, "$type"); present {
		s, ok := tv.(string)
		if !ok {
			return nil, errors.New("schema: $type must be a string")
		}
		typeStr, hasType = s, true
	}
	defVal, hasDef := takeKey(dirs, "$default")
	dataVal, hasData := takeKey(dirs, "$data")
	allowedVal, _ := takeKey(dirs, "$allowed")
	fnVal, _ := takeKey(dirs, "$fn")
	gVal, hasG := takeKey(dirs, "$g")

	rd, err := decodeDirectives(dirs)
	if err != nil {
		return nil, err
	}

	var sh *shorthand
	baseType := "object"
	if hasType {
		sh, err = parseShorthand(typeStr)
		if err != nil {
			return nil, err
		}
		baseType = sh.base
	}
	spec := registry[baseType]
	if spec == nil {
		return nil, errors.Errorf("schema: unknown type %q", baseType)
	}
	dims := 0
	if sh != nil {
		dims = len(sh.dims)
	}

	base := &Node{Type: baseType, src: resolved, normalized: true}
	spec.defaults(base)

	// value-level directives bind to the base (innermost) node
	if sh != nil && sh.baseNullable {
		base.Nullable = true
	}
	if rd.Nullable != nil && dims == 0 {
		base.Nullable = *rd.Nullable
	}
	if rd.Empty != nil {
		base.Empty = *rd.Empty
	}
	base.Min, base.Max = rd.Min, rd.Max
	base.MinEx, base.MaxEx = rd.MinExclusive, rd.MaxExclusive
	if rd.Exp != "" {
		prog, err := exp.Compile(rd.Exp)
		if err != nil {
			return nil, errors.Wrap(err, "schema: $exp")
		}
		base.Exp = prog
	}
	if allowedVal != nil {
		switch av := allowedVal.(type) {
		case []any:
			base.Allowed = av
		case string:
			base.AllowedSet = av
		default:
			return nil, errors.New("schema: $allowed must be a sequence of literals")
		}
	}
	if fnVal != nil {
		switch f := fnVal.(type) {
		case func(any) any:
			base.Fn = f
		case func(any) bool:
			base.Fn = func(v any) any { return f(v) }
		default:
			return nil, errors.New("schema: $fn must be a predicate function")
		}
		base.fnID = fnCounter.Add(1)
	}
	if rd.Format != nil {
		base.Format = *rd.Format
	}
	if rd.Precision != nil {
		base.Precision = *rd.Precision
	}
	if rd.Scale != nil {
		base.Scale = *rd.Scale
	}
	if rd.CSSNames != nil {
		base.CSSNames = *rd.CSSNames
	}
	if len(rd.ExtraNames) > 0 {
		base.ExtraNames = rd.ExtraNames
	}
	if rd.Separator != nil {
		base.Separator = *rd.Separator
	}
	if rd.Port != nil {
		base.Port = *rd.Port
	}
	if rd.LeapYear != nil {
		base.LeapYear = *rd.LeapYear
	}
	if rd.LeapSecond != nil {
		base.LeapSecond = *rd.LeapSecond
	}
	base.Version = rd.Version

	if sh != nil && sh.args != "" {
		if baseType != "numeric" {
			return nil, errors.Errorf("schema: type %q takes no arguments", baseType)
		}
		p, s, err := parseNumericArgs(sh.args)
		if err != nil {
			return nil, err
		}
		base.Precision, base.Scale = p, s
	}
	if baseType == "numeric" && (rd.Precision != nil || rd.Scale != nil || sh != nil && sh.args != "") {
		if base.Precision <= 0 || base.Scale < 0 || base.Scale >= base.Precision {
			return nil, errors.Errorf("schema: numeric requires 0 <= scale < precision, got (%d, %d)", base.Precision, base.Scale)
		}
	}

	switch baseType {
	case "object":
		if hasData {
			return nil, errors.New("schema: $data is only valid for map and array")
		}
		base.Fields = make(map[string]*Node, len(props))
		for name, d := range props {
			if d == nil {
				return nil, errors.Errorf("schema: field %q has a nil descriptor", name)
			}
			child, err := normalizeAny(d)
			if err != nil {
				return nil, errors.Wrapf(err, "schema: field %q", name)
			}
			base.Fields[name] = child
		}
		base.fieldOrder = make([]string, 0, len(base.Fields))
		for name := range base.Fields {
			base.fieldOrder = append(base.fieldOrder, name)
		}
		sort.Strings(base.fieldOrder)
		if err := deriveObjectMeta(base); err != nil {
			return nil, err
		}
	case "map", "array":
		if len(props) > 0 {
			return nil, errors.Errorf("schema: type %q does not take fields", baseType)
		}
		if !hasData || dataVal == nil {
			return nil, errors.Errorf("schema: type %q requires $data", baseType)
		}
		data, err := normalizeAny(dataVal)
		if err != nil {
			return nil, errors.Wrap(err, "schema: $data")
		}
		base.Data = data
	default:
		if len(props) > 0 {
			return nil, errors.Errorf("schema: type %q does not take fields", baseType)
		}
		if hasData {
			return nil, errors.New("schema: $data is only valid for map and array")
		}
	}

	if dims == 0 {
		if err := applyLengths(base, rd); err != nil {
			return nil, err
		}
	}
	if err := spec.validate(base); err != nil {
		return nil, errors.Wrap(err, "schema")
	}

	// array dimensions wrap outer-to-inner: the first bracket is the
	// outermost array
	node := base
	if sh != nil {
		for i := len(sh.dims) - 1; i >= 0; i-- {
			d := sh.dims[i]
			arr := &Node{Type: "array", Data: node, Nullable: d.nullable, src: resolved, normalized: true}
			if d.exact != nil {
				arr.HasLen, arr.Len = true, *d.exact
			}
			if d.min != nil {
				arr.HasMinLen, arr.MinLen = true, *d.min
			}
			if d.max != nil {
				arr.HasMaxLen, arr.MaxLen = true, *d.max
			}
			node = arr
		}
	}
	if dims > 0 {
		if rd.Nullable != nil {
			node.Nullable = *rd.Nullable
		}
		if err := applyLengths(node, rd); err != nil {
			return nil, err
		}
	}

	// field-level directives bind to the outermost node
	if rd.Optional != nil {
		node.Optional = *rd.Optional
	}
	if hasDef && defVal != nil {
		node.HasDefault, node.Default = true, CloneDeep(defVal)
	}
	node.Group = "@default"
	if hasG {
		switch g := gVal.(type) {
		case nil:
			node.Group = "" // excluded from every group
		case string:
			if g != "" {
				node.Group = g
			}
		default:
			return nil, errors.New("schema: $g must be a string or null")
		}
	}
	if rd.PK != nil {
		node.PK = *rd.PK
	}
	if rd.FK != "" {
		parts := strings.Split(rd.FK, ".")
		if len(parts) != 2 || !IsVariableName(parts[0]) || !IsVariableName(parts[1]) {
			return nil, errors.Errorf("schema: $fk must be of the form \"table.column\", got %q", rd.FK)
		}
		node.FK = rd.FK
	}
	switch u := rd.Unique.(type) {
	case nil:
	case bool:
		node.UniqueSelf = u
	case string:
		for _, g := range strings.Split(u, "|") {
			if !IsVariableName(g) {
				return nil, errors.Errorf("schema: bad $unique group %q", g)
			}
			node.UniqueGroups = append(node.UniqueGroups, g)
		}
	default:
		return nil, errors.New("schema: $unique must be a bool or group name(s)")
	}
	if rd.R != "" {
		if node.Read, err = parseAccessExpr(rd.R); err != nil {
			return nil, errors.Wrap(err, "schema: $r")
		}
	}
	if rd.W != "" {
		if node.Write, err = parseAccessExpr(rd.W); err != nil {
			return nil, errors.Wrap(err, "schema: $w")
		}
	}
	if rd.A != "" {
		if node.Acc, err = parseAccessExpr(rd.A); err != nil {
			return nil, errors.Wrap(err, "schema: $a")
		}
	}
	node.Delta = rd.Delta

	// fingerprints are computed bottom-up once the tree is final
	stampFingerprints(node)
	return node, nil
}

func takeKey(m map[string]any, k string) (any, bool) {
	v, ok := m[k]
	if ok {
		delete(m, k)
	}
	return v, ok
}

func applyLengths(n *Node, rd *rawDirectives) error {
	for _, l := range []*int{rd.Length, rd.MinLength, rd.MaxLength} {
		if l != nil && *l < 0 {
			return errors.New("schema: length directives must be non-negative")
		}
	}
	if rd.Length != nil {
		n.HasLen, n.Len = true, *rd.Length
	}
	if rd.MinLength != nil {
		n.HasMinLen, n.MinLen = true, *rd.MinLength
	}
	if rd.MaxLength != nil {
		n.HasMaxLen, n.MaxLen = true, *rd.MaxLength
	}
	if n.HasMinLen && n.HasMaxLen && n.MinLen > n.MaxLen {
		return errors.New("schema: $minLength exceeds $maxLength")
	}
	return nil
}

func parseNumericArgs(args string) (int, int, error) {
	parts := strings.Split(args, ",")
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("schema: numeric(p, s) takes two arguments, got %q", args)
	}
	p, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	s, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, errors.Errorf("schema: bad numeric arguments %q", args)
	}
	return p, s, nil
}

// ---- $extend / $include resolution ----

// resolveComposition flattens $extend and $include<suffix> into a plain
// descriptor map. $extend deep-merges the base's resolved descriptor with
// this map's entries, where an explicit nil deletes a field or clears a
// directive. Includes merge disjoint field sets afterwards.
func resolveComposition(m map[string]any) (map[string]any, error) {
	hasExt := false
	var includeKeys []string
	for k := range m {
		if k == "$extend" {
			hasExt = true
		} else if strings.HasPrefix(k, "$include") {
			includeKeys = append(includeKeys, k)
		}
	}
	if !hasExt && len(includeKeys) == 0 {
		return m, nil
	}

	out := make(map[string]any)
	if hasExt {
		ev := m["$extend"]
		if ev == nil {
			return nil, errors.New("schema: $extend requires a base schema")
		}
		baseN, err := normalizeAny(ev)
		if err != nil {
			return nil, errors.Wrap(err, "schema: $extend")
		}
		for k, v := range baseN.src {
			out[k] = CloneDeep(v)
		}
	}
	for k, v := range m {
		if k == "$extend" || strings.HasPrefix(k, "$include") {
			continue
		}
		mergeEntry(out, k, v)
	}
	sort.Strings(includeKeys)
	for _, ik := range includeKeys {
		var list []any
		switch t := m[ik].(type) {
		case nil:
			continue
		case []any:
			list = t
		default:
			list = []any{t}
		}
		for _, inc := range list {
			incN, err := normalizeAny(inc)
			if err != nil {
				return nil, errors.Wrapf(err, "schema: %s", ik)
			}
			if !incN.IsObject() {
				return nil, errors.Errorf("schema: %s requires object schemas", ik)
			}
			for k, v := range incN.src {
				if IsDirectiveName(k) {
					continue
				}
				if hasFieldKey(out, k) {
					return nil, errors.Errorf("schema: %s duplicates field %q", ik, UnescapeFieldName(k))
				}
				out[k] = CloneDeep(v)
			}
		}
	}
	return out, nil
}

// hasFieldKey reports whether the descriptor already defines the field k
// names (comparing unescaped forms).
func hasFieldKey(m map[string]any, k string) bool {
	name := UnescapeFieldName(k)
	for ek := range m {
		if !IsDirectiveName(ek) && UnescapeFieldName(ek) == name {
			return true
		}
	}
	return false
}

// mergeEntry overlays one descriptor entry. A nil value deletes the field
// or clears the directive; object descriptors merge recursively, leaves
// replace.
func mergeEntry(dst map[string]any, k string, v any) {
	if v == nil {
		delete(dst, k)
		return
	}
	if !IsDirectiveName(k) {
		var baseMap map[string]any
		switch b := dst[k].(type) {
		case map[string]any:
			baseMap = b
		case *Node:
			baseMap = b.src
		}
		if sm, ok := v.(map[string]any); ok && baseMap != nil {
			nm := CloneDeep(baseMap).(map[string]any)
			for kk, vv := range sm {
				mergeEntry(nm, kk, vv)
			}
			dst[k] = nm
			return
		}
	}
	dst[k] = CloneDeep(v)
}

// ---- derived object metadata ----

func deriveObjectMeta(n *Node) error {
	n.GroupMap = make(map[string][]string)
	n.PKMap = make(map[string]bool)
	n.FKMap = make(map[string]string)
	n.IDMap = make(map[string]bool)

	named := make(map[string][]string)
	for _, name := range n.fieldOrder {
		f := n.Fields[name]
		if f.Group != "" {
			n.GroupMap[f.Group] = append(n.GroupMap[f.Group], name)
		}
		if f.PK {
			n.PKMap[name] = true
			n.PKArray = append(n.PKArray, name)
			n.IDMap[name] = true
		}
		if f.FK != "" {
			n.FKMap[name] = f.FK
			n.FKArray = append(n.FKArray, name)
			n.IDMap[name] = true
		}
		for _, g := range f.UniqueGroups {
			named[g] = append(named[g], name)
		}
	}
	for name := range n.IDMap {
		n.IDArray = append(n.IDArray, name)
	}
	sort.Strings(n.IDArray)

	tuples := make(map[string][]string)
	addTuple := func(fields []string) {
		t := append([]string(nil), fields...)
		sort.Strings(t)
		tuples[strings.Join(t, "\x00")] = t
	}
	for _, fs := range named {
		addTuple(fs)
	}
	for _, name := range n.fieldOrder {
		if n.Fields[name].UniqueSelf {
			addTuple([]string{name})
		}
	}
	if len(n.PKArray) > 0 {
		addTuple(n.PKArray)
		for _, p := range n.PKArray {
			for _, fs := range named {
				in := false
				for _, f := range fs {
					if f == p {
						in = true
						break
					}
				}
				if !in {
					continue
				}
				for _, f := range fs {
					if f != p {
						addTuple([]string{p, f})
					}
				}
			}
		}
	}
	keys := make([]string, 0, len(tuples))
	for k := range tuples {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.UniqueArray = append(n.UniqueArray, tuples[k])
	}
	return nil
}
