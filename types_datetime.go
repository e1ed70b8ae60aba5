package exmodel

import (
	"github.com/pkg/errors"
)

// defaultFormats maps the date/time type names to their format strings.
var defaultFormats = map[string]string{
	"date":        "YYYY-MM-DD",
	"time":        "HH:mm:ss",
	"datetime":    "YYYY-MM-DD HH:mm:ss",
	"datetime-ms": "YYYY-MM-DD HH:mm:ss.SSS",
	"datetime-us": "YYYY-MM-DD HH:mm:ss.SSSSSS",
}

// leapSeconds lists every date that ended with an inserted 23:59:60 moment,
// from 1972-06-30 forward.
var leapSeconds = [][2]int{
	{1972, 630}, {1972, 1231}, {1973, 1231}, {1974, 1231}, {1975, 1231},
	{1976, 1231}, {1977, 1231}, {1978, 1231}, {1979, 1231}, {1981, 630},
	{1982, 630}, {1983, 630}, {1985, 630}, {1987, 1231}, {1989, 1231},
	{1990, 1231}, {1992, 630}, {1993, 630}, {1994, 630}, {1995, 1231},
	{1997, 630}, {1998, 1231}, {2005, 1231}, {2008, 1231}, {2012, 630},
	{2015, 630}, {2016, 1231},
}

func isLeapSecondDate(y, m, d int) bool {
	md := m*100 + d
	for _, ls := range leapSeconds {
		if ls[0] == y && ls[1] == md {
			return true
		}
	}
	return false
}

// timeSeg is one segment of a compiled format: either a token run (letter,
// count) or a literal separator byte.
type timeSeg struct {
	letter  byte // Y M D H m s S, or 0 for a literal
	count   int
	literal byte
}

// compileTimeFormat parses the single-letter token grammar with the literal
// separators '-', ':', '.', and space.
func compileTimeFormat(format string) ([]timeSeg, error) {
	var segs []timeSeg
	i := 0
	for i < len(format) {
		c := format[i]
		switch c {
		case 'Y', 'M', 'D', 'H', 'm', 's', 'S':
			j := i
			for j < len(format) && format[j] == c {
				j++
			}
			segs = append(segs, timeSeg{letter: c, count: j - i})
			i = j
		case '-', ':', '.', ' ':
			segs = append(segs, timeSeg{literal: c})
			i++
		default:
			return nil, errors.Errorf("%s: bad $format token %q", "time", string(c))
		}
	}
	if len(segs) == 0 {
		return nil, errors.New("time: empty $format")
	}
	return segs, nil
}

func monthDays(y, m int, leapYear, yearKnown bool) int {
	switch m {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if !leapYear {
			return 28
		}
		if !yearKnown {
			return 29
		}
		if y%4 == 0 && (y%100 != 0 || y%400 == 0) {
			return 29
		}
		return 28
	}
	return 0
}

func init() {
	for _, name := range []string{"date", "time", "datetime", "datetime-ms", "datetime-us"} {
		nm := name
		registerType(&typeSpec{
			name:     nm,
			expected: CodeExpectedString,
			defaults: func(n *Node) {
				n.Format = defaultFormats[nm]
				n.LeapYear = true
			},
			validate: func(n *Node) error {
				_, err := compileTimeFormat(n.Format)
				return err
			},
			check: func(n *Node, c *compiler, ctx compileCtx) checkFn {
				segs, _ := compileTimeFormat(n.Format)
				leapYear := n.LeapYear
				leapSecond := n.LeapSecond
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
					if !matchTime(s, segs, leapYear, leapSecond) {
						rt.report(path, CodeInvalidFormat)
						return nil, false
					}
					return s, true
				}
			},
		})
	}
}

// matchTime scans s against the compiled format and applies the calendar
// rules, including leap-day and leap-second admission.
func matchTime(s string, segs []timeSeg, leapYear, leapSecond bool) bool {
	parts := map[byte]int{}
	seen := map[byte]bool{}
	i := 0
	for _, seg := range segs {
		if seg.letter == 0 {
			if i >= len(s) || s[i] != seg.literal {
				return false
			}
			i++
			continue
		}
		if i+seg.count > len(s) {
			return false
		}
		val := 0
		for k := 0; k < seg.count; k++ {
			c := s[i+k]
			if c < '0' || c > '9' {
				return false
			}
			val = val*10 + int(c-'0')
		}
		i += seg.count
		parts[seg.letter] = val
		seen[seg.letter] = true
	}
	if i != len(s) {
		return false
	}

	y, hasY := parts['Y'], seen['Y']
	mo, hasM := parts['M'], seen['M']
	d, hasD := parts['D'], seen['D']
	h, hasH := parts['H'], seen['H']
	mi := parts['m']
	sec, hasS := parts['s'], seen['s']

	if hasM && (mo < 1 || mo > 12) {
		return false
	}
	if hasD {
		if d < 1 {
			return false
		}
		limit := 31
		if hasM {
			limit = monthDays(y, mo, leapYear, hasY)
		}
		if d > limit {
			return false
		}
	}
	if hasH && h > 23 {
		return false
	}
	if seen['m'] && mi > 59 {
		return false
	}
	if hasS {
		if sec == 60 {
			if !leapSecond || !hasH || h != 23 || mi != 59 {
				return false
			}
			switch {
			case hasY && hasM && hasD:
				if !isLeapSecondDate(y, mo, d) {
					return false
				}
			case hasM && hasD:
				if !(mo == 6 && d == 30 || mo == 12 && d == 31) {
					return false
				}
			}
		} else if sec > 59 {
			return false
		}
	}
	return true
}
