package exmodel

import "strings"

// IsVariableName reports whether s is a plain identifier:
// [A-Za-z_$][A-Za-z0-9_$]*.
func IsVariableName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '$':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// IsDirectiveName reports whether s names a schema directive, i.e. starts
// with '$'.
func IsDirectiveName(s string) bool {
	return len(s) > 0 && s[0] == '$'
}

// ToCamelCase converts dashed, underscored, or spaced words into camelCase.
func ToCamelCase(s string) string {
	b := &strings.Builder{}
	up := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '-' || c == '_' || c == ' ' {
			up = b.Len() > 0
			continue
		}
		if up {
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			up = false
		} else if b.Len() == 0 && c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// EscapeRegExp escapes every regular-expression metacharacter in s.
func EscapeRegExp(s string) string {
	b := &strings.Builder{}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '^', '$', '.', '|', '?', '*', '+', '(', ')', '[', ']', '{', '}':
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// UnescapeFieldName removes one level of backslash escaping from an authored
// field name: "\$x" becomes "$x" and "\\" becomes "\". The unescape is
// applied exactly once at normalization.
func UnescapeFieldName(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	b := &strings.Builder{}
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// EscapeFieldName is the authoring companion of UnescapeFieldName: names
// beginning with '$' gain a leading backslash, and backslashes double.
func EscapeFieldName(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	if strings.HasPrefix(s, "$") {
		return "\\" + s
	}
	return s
}
