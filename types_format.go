package exmodel

import (
	"regexp"
	"strconv"
	"strings"

	"net/netip"

	guuid "github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/exjs/exmodel/internal/csscolor"
)

var (
	colorHexRx = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	uuidCoreRx = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	digitsRx   = regexp.MustCompile(`^[0-9]+$`)
)

func init() {
	registerType(&typeSpec{
		name:     "color",
		expected: CodeExpectedString,
		defaults: func(n *Node) { n.CSSNames = true },
		validate: func(*Node) error { return nil },
		check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
			cssNames := n.CSSNames
			var extra map[string]bool
			if len(n.ExtraNames) > 0 {
				extra = make(map[string]bool, len(n.ExtraNames))
				for k := range n.ExtraNames {
					extra[strings.ToLower(k)] = true
				}
			}
			empty := n.Empty
			return func(rt *runtime, path string, v any) (any, bool) {
				s, ok := v.(string)
				if !ok {
					rt.report(path, CodeExpectedString)
					return nil, false
				}
				if s == "" && empty {
					return s, true
				}
				if colorHexRx.MatchString(s) {
					return s, true
				}
				if cssNames {
					if _, ok := csscolor.Lookup(s); ok {
						return s, true
					}
				}
				if extra != nil && extra[strings.ToLower(s)] {
					return s, true
				}
				rt.report(path, CodeInvalidFormat)
				return nil, false
			}
		},
	})

	registerType(&typeSpec{
		name:     "creditcard",
		expected: CodeExpectedString,
		defaults: func(*Node) {},
		validate: func(*Node) error { return nil },
		check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
			empty := n.Empty
			return func(rt *runtime, path string, v any) (any, bool) {
				s, ok := v.(string)
				if !ok {
					rt.report(path, CodeExpectedString)
					return nil, false
				}
				if s == "" && empty {
					return s, true
				}
				if len(s) < 13 || len(s) > 19 || !digitsRx.MatchString(s) || !luhn(s) {
					rt.report(path, CodeInvalidFormat)
					return nil, false
				}
				return s, true
			}
		},
	})

	registerType(&typeSpec{
		name:     "isbn",
		expected: CodeExpectedString,
		defaults: func(*Node) {},
		validate: func(n *Node) error {
			switch n.Format {
			case "", "isbn10", "isbn13":
				return nil
			}
			return errors.Errorf("isbn: bad $format %q", n.Format)
		},
		check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
			format := n.Format
			empty := n.Empty
			return func(rt *runtime, path string, v any) (any, bool) {
				s, ok := v.(string)
				if !ok {
					rt.report(path, CodeExpectedString)
					return nil, false
				}
				if s == "" && empty {
					return s, true
				}
				ok10 := format != "isbn13" && isbn10(s)
				ok13 := format != "isbn10" && isbn13(s)
				if !ok10 && !ok13 {
					rt.report(path, CodeInvalidFormat)
					return nil, false
				}
				return s, true
			}
		},
	})

	registerType(&typeSpec{
		name:     "mac",
		expected: CodeExpectedString,
		defaults: func(n *Node) { n.Separator = ":" },
		validate: func(n *Node) error {
			switch n.Separator {
			case ":", "-", "":
				return nil
			}
			return errors.Errorf("mac: bad $separator %q", n.Separator)
		},
		check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
			sep := n.Separator
			empty := n.Empty
			return func(rt *runtime, path string, v any) (any, bool) {
				s, ok := v.(string)
				if !ok {
					rt.report(path, CodeExpectedString)
					return nil, false
				}
				if s == "" && empty {
					return s, true
				}
				if !macValid(s, sep) {
					rt.report(path, CodeInvalidFormat)
					return nil, false
				}
				return s, true
			}
		},
	})

	registerType(&typeSpec{
		name:     "ip",
		expected: CodeExpectedString,
		defaults: func(n *Node) { n.Format = "any" },
		validate: func(n *Node) error {
			switch n.Format {
			case "any", "ipv4", "ipv6":
				return nil
			}
			return errors.Errorf("ip: bad $format %q", n.Format)
		},
		check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
			format := n.Format
			port := n.Port
			empty := n.Empty
			return func(rt *runtime, path string, v any) (any, bool) {
				s, ok := v.(string)
				if !ok {
					rt.report(path, CodeExpectedString)
					return nil, false
				}
				if s == "" && empty {
					return s, true
				}
				var addr netip.Addr
				if port {
					ap, err := netip.ParseAddrPort(s)
					if err != nil {
						rt.report(path, CodeInvalidFormat)
						return nil, false
					}
					addr = ap.Addr()
				} else {
					a, err := netip.ParseAddr(s)
					if err != nil {
						rt.report(path, CodeInvalidFormat)
						return nil, false
					}
					addr = a
				}
				if addr.Zone() != "" ||
					format == "ipv4" && !addr.Is4() ||
					format == "ipv6" && addr.Is4() {
					rt.report(path, CodeInvalidFormat)
					return nil, false
				}
				return s, true
			}
		},
	})

	registerType(&typeSpec{
		name:     "uuid",
		expected: CodeExpectedString,
		defaults: func(*Node) {},
		validate: func(n *Node) error {
			switch n.Format {
			case "", "rfc", "windows", "any":
			default:
				return errors.Errorf("uuid: bad $format %q", n.Format)
			}
			if n.Version != "" {
				core := strings.TrimSuffix(n.Version, "+")
				if len(core) != 1 || core[0] < '1' || core[0] > '5' {
					return errors.Errorf("uuid: bad $version %q", n.Version)
				}
			}
			return nil
		},
		check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
			format := n.Format
			minVersion := 0
			exactVersion := 0
			if n.Version != "" {
				ver, _ := strconv.Atoi(strings.TrimSuffix(n.Version, "+"))
				if strings.HasSuffix(n.Version, "+") {
					minVersion = ver
				} else {
					exactVersion = ver
				}
			}
			empty := n.Empty
			return func(rt *runtime, path string, v any) (any, bool) {
				s, ok := v.(string)
				if !ok {
					rt.report(path, CodeExpectedString)
					return nil, false
				}
				if s == "" && empty {
					return s, true
				}
				core := s
				braced := false
				if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && len(s) > 2 {
					core = s[1 : len(s)-1]
					braced = true
				}
				// accepted sets: missing/rfc -> unbraced, windows -> braced,
				// any -> either
				if braced && (format == "" || format == "rfc") ||
					!braced && format == "windows" {
					rt.report(path, CodeInvalidFormat)
					return nil, false
				}
				if !uuidCoreRx.MatchString(core) {
					rt.report(path, CodeInvalidFormat)
					return nil, false
				}
				u, err := guuid.Parse(core)
				if err != nil {
					rt.report(path, CodeInvalidFormat)
					return nil, false
				}
				ver := int(u.Version())
				if exactVersion != 0 && ver != exactVersion ||
					minVersion != 0 && ver < minVersion {
					rt.report(path, CodeInvalidFormat)
					return nil, false
				}
				return s, true
			}
		},
	})
}

// luhn verifies the checksum over a digits-only string.
func luhn(s string) bool {
	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		d := int(s[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func isbn10(s string) bool {
	if len(s) != 10 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case (c == 'X' || c == 'x') && i == 9:
			d = 10
		default:
			return false
		}
		sum += (10 - i) * d
	}
	return sum%11 == 0
}

func isbn13(s string) bool {
	if len(s) != 13 || !digitsRx.MatchString(s) {
		return false
	}
	sum := 0
	for i := 0; i < 13; i++ {
		d := int(s[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}

func macValid(s, sep string) bool {
	hex := func(c byte) bool {
		return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
	}
	if sep == "" {
		if len(s) != 12 {
			return false
		}
		for i := 0; i < 12; i++ {
			if !hex(s[i]) {
				return false
			}
		}
		return true
	}
	if len(s) != 17 {
		return false
	}
	for i := 0; i < 17; i++ {
		if (i+1)%3 == 0 {
			if s[i] != sep[0] {
				return false
			}
		} else if !hex(s[i]) {
			return false
		}
	}
	return true
}
