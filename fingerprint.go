package exmodel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// fingerprintValue projects a node onto a marshal-safe map. Equal schemas
// produce equal projections; $fn closures are distinguished by the identity
// assigned at normalization.
func (n *Node) fingerprintValue() map[string]any {
	m := map[string]any{"type": n.Type}
	if n.Nullable {
		m["nullable"] = true
	}
	if n.Optional {
		m["optional"] = true
	}
	if n.HasDefault {
		m["default"] = n.Default
	}
	if n.Allowed != nil {
		m["allowed"] = n.Allowed
	}
	if n.AllowedSet != "" {
		m["allowedSet"] = n.AllowedSet
	}
	if n.Empty {
		m["empty"] = true
	}
	if n.HasLen {
		m["len"] = n.Len
	}
	if n.HasMinLen {
		m["minLen"] = n.MinLen
	}
	if n.HasMaxLen {
		m["maxLen"] = n.MaxLen
	}
	for k, v := range map[string]any{"min": n.Min, "max": n.Max, "minEx": n.MinEx, "maxEx": n.MaxEx} {
		if v != nil {
			m[k] = v
		}
	}
	if n.Exp != nil {
		m["exp"] = n.Exp.Source()
	}
	if n.Fn != nil {
		m["fn"] = n.fnID
	}
	if n.Group != "@default" {
		m["g"] = n.Group
	}
	if n.PK {
		m["pk"] = true
	}
	if n.FK != "" {
		m["fk"] = n.FK
	}
	if n.UniqueSelf {
		m["unique"] = true
	}
	if len(n.UniqueGroups) > 0 {
		m["uniqueGroups"] = n.UniqueGroups
	}
	if n.Read != nil {
		m["r"] = n.Read.Source
	}
	if n.Write != nil {
		m["w"] = n.Write.Source
	}
	if n.Acc != nil {
		m["a"] = n.Acc.Source
	}
	if n.Delta != nil {
		m["delta"] = *n.Delta
	}
	if n.Format != "" {
		m["format"] = n.Format
	}
	if n.Precision != 0 || n.Scale != 0 {
		m["precision"], m["scale"] = n.Precision, n.Scale
	}
	if n.Type == "color" && !n.CSSNames {
		m["cssNames"] = false
	}
	if len(n.ExtraNames) > 0 {
		m["extraNames"] = n.ExtraNames
	}
	if n.Separator != "" {
		m["separator"] = n.Separator
	}
	if n.Port {
		m["port"] = true
	}
	if n.LeapSecond {
		m["leapSecond"] = true
	}
	if isDateType(n.Type) && !n.LeapYear {
		m["leapYear"] = false
	}
	if n.Version != "" {
		m["version"] = n.Version
	}
	if n.Fields != nil {
		fields := make(map[string]any, len(n.Fields))
		for name, f := range n.Fields {
			fields[name] = f.fingerprintValue()
		}
		m["fields"] = fields
	}
	if n.Data != nil {
		m["data"] = n.Data.fingerprintValue()
	}
	return m
}

func isDateType(t string) bool {
	_, ok := defaultFormats[t]
	return ok
}

// stampFingerprints computes the canonical fingerprint of a node tree,
// bottom-up. Marshaling sorts map keys, so equal schemas share a
// fingerprint.
func stampFingerprints(n *Node) {
	if n.Data != nil && n.Data.fp == "" {
		stampFingerprints(n.Data)
	}
	for _, f := range n.Fields {
		if f.fp == "" {
			stampFingerprints(f)
		}
	}
	fv := n.fingerprintValue()
	raw, err := json.Marshal(fv)
	if err != nil {
		// $default can carry values JSON cannot express (NaN, functions);
		// render the projection canonically instead so equal schemas still
		// share a digest.
		n.fp = canonicalFingerprint(fv)
		return
	}
	n.fp = string(raw)
}

// canonicalFingerprint deterministically renders a fingerprint projection
// that JSON cannot marshal. Map keys are sorted, so value-equal
// projections produce the same digest.
func canonicalFingerprint(v any) string {
	b := &strings.Builder{}
	writeCanonical(b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeCanonical(b, t[k])
		}
		b.WriteByte('}')
	case map[string]string:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			b.WriteString(strconv.Quote(t[k]))
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, e)
		}
		b.WriteByte(']')
	case []string:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(e))
		}
		b.WriteByte(']')
	case string:
		b.WriteString(strconv.Quote(t))
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	default:
		fmt.Fprintf(b, "%v", t)
	}
}

// Fingerprint returns the canonical, equality-comparable digest of a
// normalized schema.
func (n *Node) Fingerprint() string { return n.fp }

// accessFingerprint canonicalizes a role set for cache keying.
func accessFingerprint(roles Access) string {
	if roles == nil {
		return "-"
	}
	held := make([]string, 0, len(roles))
	for r, ok := range roles {
		if ok {
			held = append(held, r)
		}
	}
	sort.Strings(held)
	raw, _ := json.Marshal(held)
	return string(raw)
}
