package exmodel

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const maxSafeInt = int64(1)<<53 - 1

// intRange holds the inclusive bounds of a fixed-width integer type.
type intRange struct{ lo, hi int64 }

var intRanges = map[string]intRange{
	"int":    {-maxSafeInt, maxSafeInt},
	"int8":   {math.MinInt8, math.MaxInt8},
	"int16":  {math.MinInt16, math.MaxInt16},
	"int24":  {-8388608, 8388607},
	"int32":  {math.MinInt32, math.MaxInt32},
	"int53":  {-maxSafeInt, maxSafeInt},
	"uint":   {0, maxSafeInt},
	"uint8":  {0, math.MaxUint8},
	"uint16": {0, math.MaxUint16},
	"uint24": {0, 16777215},
	"uint32": {0, math.MaxUint32},
	"uint53": {0, maxSafeInt},
}

func init() {
	registerType(&typeSpec{
		name:     "any",
		expected: CodeInvalidValue,
		defaults: func(*Node) {},
		validate: func(*Node) error { return nil },
		check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
			return func(rt *runtime, path string, v any) (any, bool) {
				return CloneDeep(v), true
			}
		},
	})

	registerType(&typeSpec{
		name:     "bool",
		expected: CodeExpectedBoolean,
		defaults: func(*Node) {},
		validate: func(*Node) error { return nil },
		check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
			return func(rt *runtime, path string, v any) (any, bool) {
				b, ok := v.(bool)
				if !ok {
					rt.report(path, CodeExpectedBoolean)
					return nil, false
				}
				return b, true
			}
		},
	})

	for name := range intRanges {
		r := intRanges[name]
		registerType(&typeSpec{
			name:     name,
			expected: CodeExpectedNumber,
			defaults: func(*Node) {},
			validate: validateNumericBounds,
			check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
				lo, hi := r.lo, r.hi
				min, max, minEx, maxEx := floatBound(n.Min), floatBound(n.Max), floatBound(n.MinEx), floatBound(n.MaxEx)
				return func(rt *runtime, path string, v any) (any, bool) {
					iv, ok := integerValue(v)
					if !ok {
						if isNumber(v) {
							rt.report(path, CodeInvalidValue)
						} else {
							rt.report(path, CodeExpectedNumber)
						}
						return nil, false
					}
					if iv < lo || iv > hi {
						rt.report(path, CodeOutOfRange)
						return nil, false
					}
					f := float64(iv)
					if min != nil && f < *min || max != nil && f > *max ||
						minEx != nil && f <= *minEx || maxEx != nil && f >= *maxEx {
						rt.report(path, CodeOutOfRange)
						return nil, false
					}
					return iv, true
				}
			},
		})
	}

	for _, name := range []string{"number", "double", "lat", "lon"} {
		nm := name
		registerType(&typeSpec{
			name:     nm,
			expected: CodeExpectedNumber,
			defaults: func(*Node) {},
			validate: validateNumericBounds,
			check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
				min, max, minEx, maxEx := floatBound(n.Min), floatBound(n.Max), floatBound(n.MinEx), floatBound(n.MaxEx)
				var lo, hi float64 = math.Inf(-1), math.Inf(1)
				switch nm {
				case "lat":
					lo, hi = -90, 90
				case "lon":
					lo, hi = -180, 180
				}
				return func(rt *runtime, path string, v any) (any, bool) {
					f, ok := numericValue(v)
					if !ok {
						rt.report(path, CodeExpectedNumber)
						return nil, false
					}
					if math.IsNaN(f) || math.IsInf(f, 0) {
						rt.report(path, CodeInvalidValue)
						return nil, false
					}
					if f < lo || f > hi {
						rt.report(path, CodeOutOfRange)
						return nil, false
					}
					if min != nil && f < *min || max != nil && f > *max ||
						minEx != nil && f <= *minEx || maxEx != nil && f >= *maxEx {
						rt.report(path, CodeOutOfRange)
						return nil, false
					}
					return f, true
				}
			},
		})
	}

	registerType(&typeSpec{
		name:     "numeric",
		expected: CodeExpectedNumber,
		defaults: func(n *Node) { n.Precision, n.Scale = 0, 0 },
		validate: func(n *Node) error {
			if n.Precision != 0 || n.Scale != 0 {
				if n.Scale < 0 || n.Precision <= 0 || n.Scale >= n.Precision {
					return errors.Errorf("numeric: require 0 <= scale < precision, got (%d, %d)", n.Precision, n.Scale)
				}
			}
			return validateNumericBounds(n)
		},
		check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
			precision, scale := n.Precision, n.Scale
			min, max := floatBound(n.Min), floatBound(n.Max)
			return func(rt *runtime, path string, v any) (any, bool) {
				var text string
				switch t := v.(type) {
				case string:
					text = t
				default:
					f, ok := numericValue(v)
					if !ok {
						rt.report(path, CodeExpectedNumber)
						return nil, false
					}
					if math.IsNaN(f) || math.IsInf(f, 0) {
						rt.report(path, CodeInvalidValue)
						return nil, false
					}
					text = strconv.FormatFloat(f, 'f', -1, 64)
				}
				if !decimalRx.MatchString(text) {
					rt.report(path, CodeInvalidFormat)
					return nil, false
				}
				if precision > 0 {
					digits, frac := decimalDigits(text)
					if digits > precision || frac > scale {
						rt.report(path, CodeOutOfRange)
						return nil, false
					}
				}
				if min != nil || max != nil {
					f, _ := strconv.ParseFloat(text, 64)
					if min != nil && f < *min || max != nil && f > *max {
						rt.report(path, CodeOutOfRange)
						return nil, false
					}
				}
				return v, true
			}
		},
	})

	for _, name := range []string{"bigint", "int64", "uint64"} {
		nm := name
		registerType(&typeSpec{
			name:     nm,
			expected: CodeExpectedString,
			defaults: func(*Node) {},
			validate: validateBigBounds,
			check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
				var lo, hi string
				switch nm {
				case "int64":
					lo, hi = "-9223372036854775808", "9223372036854775807"
				case "uint64":
					lo, hi = "0", "18446744073709551615"
				}
				min, _ := n.Min.(string)
				max, _ := n.Max.(string)
				minEx, _ := n.MinEx.(string)
				maxEx, _ := n.MaxEx.(string)
				return func(rt *runtime, path string, v any) (any, bool) {
					s, ok := v.(string)
					if !ok {
						rt.report(path, CodeExpectedString)
						return nil, false
					}
					if !IsBigInt(s) {
						rt.report(path, CodeInvalidFormat)
						return nil, false
					}
					if lo != "" && (CompareBigInt(s, lo) < 0 || CompareBigInt(s, hi) > 0) {
						rt.report(path, CodeOutOfRange)
						return nil, false
					}
					if min != "" && CompareBigInt(s, min) < 0 || max != "" && CompareBigInt(s, max) > 0 ||
						minEx != "" && CompareBigInt(s, minEx) <= 0 || maxEx != "" && CompareBigInt(s, maxEx) >= 0 {
						rt.report(path, CodeOutOfRange)
						return nil, false
					}
					return s, true
				}
			},
		})
	}
}

var decimalRx = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// decimalDigits counts total and fractional digits of a canonical decimal
// string; a bare integer part of "0" does not count toward precision when a
// fraction follows.
func decimalDigits(s string) (total, frac int) {
	s = strings.TrimPrefix(s, "-")
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return len(s), 0
	}
	ip, fp := s[:dot], s[dot+1:]
	total = len(ip) + len(fp)
	if ip == "0" {
		total = len(fp)
	}
	return total, len(fp)
}

func floatBound(v any) *float64 {
	if v == nil {
		return nil
	}
	if f, ok := numericValue(v); ok {
		return &f
	}
	return nil
}

// validateNumericBounds ensures range directives on number-like types are
// numbers.
func validateNumericBounds(n *Node) error {
	for _, b := range []any{n.Min, n.Max, n.MinEx, n.MaxEx} {
		if b == nil {
			continue
		}
		if _, ok := numericValue(b); !ok {
			return errors.Errorf("%s: range directive must be numeric", n.Type)
		}
	}
	return nil
}

// validateBigBounds ensures range directives on the 64-bit family are
// big-integer strings.
func validateBigBounds(n *Node) error {
	for _, b := range []any{n.Min, n.Max, n.MinEx, n.MaxEx} {
		if b == nil {
			continue
		}
		s, ok := b.(string)
		if !ok || !IsBigInt(s) {
			return errors.Errorf("%s: range directive must be a big-integer string", n.Type)
		}
	}
	return nil
}
