package exp_test

import (
	"testing"

	"github.com/exjs/exmodel/internal/exp"
)

func TestCompile_EvalBasics(t *testing.T) {
	cases := []struct {
		src  string
		x    float64
		want bool
	}{
		{"x > 0", 1, true},
		{"x > 0", 0, false},
		{"x % 2 == 0", 4, true},
		{"x % 2 == 0", 5, false},
		{"x >= 0 && x <= 10", 10, true},
		{"x < 0 || x > 100", 50, false},
		{"!(x == 3)", 3, false},
		{"-x == 0 - x", 7, true},
		{"abs(x) == 5", -5, true},
		{"min(x, 3) == 3", 9, true},
		{"max(x, 3) == 3", 1, true},
		{"pow(x, 2) == 49", 7, true},
		{"isint(x)", 2.5, false},
		{"isint(x)", 2, true},
		{"isfinite(x / 0)", 1, false},
		{"floor(x) == 2 && ceil(x) == 3", 2.5, true},
		{"sqrt(x) == 3", 9, true},
		{"sign(x) == -1", -4, true},
		{"1 + 2 * 3 == 7", 0, true},
		{"(1 + 2) * 3 == 9", 0, true},
	}
	for _, c := range cases {
		p, err := exp.Compile(c.src)
		if err != nil {
			t.Fatalf("compile %q: %v", c.src, err)
		}
		if got := p.Eval(c.x); got != c.want {
			t.Fatalf("eval %q with x=%v = %v, want %v", c.src, c.x, got, c.want)
		}
	}
}

func TestCompile_RejectsUnknownVocabulary(t *testing.T) {
	for _, bad := range []string{
		"", "y > 0", "sin(x)", "x ** 2", "x = 1", "x &| 1", "abs(x",
		"min(x)", "pow(x, 1, 2)", "x +", "1 2", "x > 'a'",
	} {
		if _, err := exp.Compile(bad); err == nil {
			t.Fatalf("expected compile error for %q", bad)
		}
	}
}
