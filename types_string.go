package exmodel

import (
	"strings"
	"unicode/utf8"
)

func init() {
	registerType(&typeSpec{
		name:     "char",
		expected: CodeExpectedString,
		defaults: func(*Node) {},
		validate: func(*Node) error { return nil },
		check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
			set := n.AllowedSet
			empty := n.Empty
			return func(rt *runtime, path string, v any) (any, bool) {
				s, ok := v.(string)
				if !ok {
					rt.report(path, CodeExpectedString)
					return nil, false
				}
				if s == "" {
					if empty {
						return s, true
					}
					rt.report(path, CodeInvalidValue)
					return nil, false
				}
				if !wellFormed(s) {
					rt.report(path, CodePatternMismatch)
					return nil, false
				}
				if utf8.RuneCountInString(s) != 1 {
					rt.report(path, CodeInvalidValue)
					return nil, false
				}
				if set != "" && !strings.ContainsRune(set, firstRune(s)) {
					rt.report(path, CodeInvalidValue)
					return nil, false
				}
				return s, true
			}
		},
	})

	for _, name := range []string{"string", "text", "textline"} {
		nm := name
		registerType(&typeSpec{
			name:     nm,
			expected: CodeExpectedString,
			defaults: func(*Node) {},
			validate: func(*Node) error { return nil },
			check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
				empty := n.Empty
				hasLen, ln := n.HasLen, n.Len
				hasMin, minLn := n.HasMinLen, n.MinLen
				hasMax, maxLn := n.HasMaxLen, n.MaxLen
				kind := nm
				return func(rt *runtime, path string, v any) (any, bool) {
					s, ok := v.(string)
					if !ok {
						rt.report(path, CodeExpectedString)
						return nil, false
					}
					if s == "" {
						if !empty && !hasLen && !hasMin {
							rt.report(path, CodeInvalidValue)
							return nil, false
						}
					}
					if !wellFormed(s) {
						rt.report(path, CodePatternMismatch)
						return nil, false
					}
					count := 0
					for _, r := range s {
						count++
						if !runeAllowed(kind, r) {
							rt.report(path, CodeInvalidValue)
							return nil, false
						}
					}
					if hasLen && count != ln ||
						hasMin && count < minLn ||
						hasMax && count > maxLn {
						rt.report(path, CodeLengthConstraint)
						return nil, false
					}
					return s, true
				}
			},
		})
	}
}

// wellFormed reports whether s is valid UTF-8 free of surrogate code
// points, the Go rendering of surrogate-pair correctness.
func wellFormed(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if r >= 0xD800 && r <= 0xDFFF {
			return false
		}
	}
	return true
}

// runeAllowed applies the per-kind control-character policy: string rejects
// every code point below 32, text permits tab and line breaks, textline
// additionally excludes every line separator.
func runeAllowed(kind string, r rune) bool {
	if r == 0x2028 || r == 0x2029 {
		return kind != "textline"
	}
	if r >= 32 {
		return true
	}
	if kind == "text" {
		return r == '\t' || r == '\n' || r == '\r'
	}
	return false
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
