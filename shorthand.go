package exmodel

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// arrayDim is one bracketed dimension of a $type shorthand.
type arrayDim struct {
	exact    *int
	min      *int
	max      *int
	nullable bool
}

// shorthand is a parsed $type string: base type, optional parenthesised
// arguments, base-level nullability, and array dimensions outer first.
type shorthand struct {
	base         string
	args         string
	baseNullable bool
	dims         []arrayDim
}

// parseShorthand splits a $type value of the form `base-type modifier*`
// where modifier is `?` or `[bound]`. A `?` may appear at most once per
// level; bounds are n, n:, :m, n:m, or empty.
func parseShorthand(s string) (*shorthand, error) {
	if s == "" {
		return nil, errors.New("schema: empty $type")
	}
	sh := &shorthand{}
	i := 0
	for i < len(s) && s[i] != '?' && s[i] != '[' && s[i] != '(' {
		i++
	}
	sh.base = s[:i]
	if sh.base == "" {
		return nil, errors.Errorf("schema: bad $type %q", s)
	}
	if i < len(s) && s[i] == '(' {
		j := strings.IndexByte(s[i:], ')')
		if j < 0 {
			return nil, errors.Errorf("schema: unbalanced '(' in $type %q", s)
		}
		sh.args = s[i+1 : i+j]
		i += j + 1
	}
	for i < len(s) {
		switch s[i] {
		case '?':
			if len(sh.dims) == 0 {
				if sh.baseNullable {
					return nil, errors.Errorf("schema: repeated '?' in $type %q", s)
				}
				sh.baseNullable = true
			} else {
				d := &sh.dims[len(sh.dims)-1]
				if d.nullable {
					return nil, errors.Errorf("schema: repeated '?' in $type %q", s)
				}
				d.nullable = true
			}
			i++
		case '[':
			j := strings.IndexByte(s[i:], ']')
			if j < 0 {
				return nil, errors.Errorf("schema: unbalanced '[' in $type %q", s)
			}
			d, err := parseDim(s[i+1 : i+j])
			if err != nil {
				return nil, errors.Wrapf(err, "schema: bad dimension in $type %q", s)
			}
			sh.dims = append(sh.dims, d)
			i += j + 1
		default:
			return nil, errors.Errorf("schema: unexpected %q in $type %q", string(s[i]), s)
		}
	}
	return sh, nil
}

func parseDim(b string) (arrayDim, error) {
	var d arrayDim
	if b == "" {
		return d, nil
	}
	colon := strings.IndexByte(b, ':')
	if colon < 0 {
		n, err := parseBound(b)
		if err != nil {
			return d, err
		}
		d.exact = &n
		return d, nil
	}
	lo, hi := b[:colon], b[colon+1:]
	if lo != "" {
		n, err := parseBound(lo)
		if err != nil {
			return d, err
		}
		d.min = &n
	}
	if hi != "" {
		n, err := parseBound(hi)
		if err != nil {
			return d, err
		}
		d.max = &n
	}
	if d.min != nil && d.max != nil && *d.min > *d.max {
		return d, errors.Errorf("bound %q has min > max", b)
	}
	return d, nil
}

func parseBound(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.Errorf("bad bound %q", s)
	}
	return n, nil
}
