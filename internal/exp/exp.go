// Package exp compiles the small expression language accepted by the $exp
// directive. Expressions bind a single variable x, whitelist arithmetic,
// comparison, and boolean operators plus a fixed math vocabulary, and are
// evaluated without any host-language eval facility.
package exp

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Program is a compiled expression. It is immutable and safe to share.
type Program struct {
	root node
	src  string
}

// Source returns the original expression text.
func (p *Program) Source() string { return p.src }

// Eval evaluates the predicate for x. The result is truthy when it is a
// non-zero, non-NaN number.
func (p *Program) Eval(x float64) bool {
	v := p.root.eval(x)
	return v != 0 && !math.IsNaN(v)
}

// EvalNumber evaluates the expression and returns the raw numeric result.
func (p *Program) EvalNumber(x float64) float64 { return p.root.eval(x) }

// ---- AST ----

type node interface {
	eval(x float64) float64
}

type numNode float64

func (n numNode) eval(float64) float64 { return float64(n) }

type varNode struct{}

func (varNode) eval(x float64) float64 { return x }

type unaryNode struct {
	op    string
	child node
}

func (n unaryNode) eval(x float64) float64 {
	v := n.child.eval(x)
	switch n.op {
	case "-":
		return -v
	case "!":
		return boolVal(!truthy(v))
	}
	return math.NaN()
}

type binaryNode struct {
	op   string
	l, r node
}

func (n binaryNode) eval(x float64) float64 {
	switch n.op {
	case "&&":
		if !truthy(n.l.eval(x)) {
			return 0
		}
		return boolVal(truthy(n.r.eval(x)))
	case "||":
		if truthy(n.l.eval(x)) {
			return 1
		}
		return boolVal(truthy(n.r.eval(x)))
	}
	a, b := n.l.eval(x), n.r.eval(x)
	switch n.op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		return a / b
	case "%":
		return math.Mod(a, b)
	case "==":
		return boolVal(a == b)
	case "!=":
		return boolVal(a != b)
	case "<":
		return boolVal(a < b)
	case "<=":
		return boolVal(a <= b)
	case ">":
		return boolVal(a > b)
	case ">=":
		return boolVal(a >= b)
	}
	return math.NaN()
}

type callNode struct {
	fn   string
	args []node
}

func (n callNode) eval(x float64) float64 {
	a := make([]float64, len(n.args))
	for i, arg := range n.args {
		a[i] = arg.eval(x)
	}
	switch n.fn {
	case "abs":
		return math.Abs(a[0])
	case "min":
		return math.Min(a[0], a[1])
	case "max":
		return math.Max(a[0], a[1])
	case "floor":
		return math.Floor(a[0])
	case "ceil":
		return math.Ceil(a[0])
	case "round":
		return math.Round(a[0])
	case "trunc":
		return math.Trunc(a[0])
	case "sign":
		if a[0] > 0 {
			return 1
		}
		if a[0] < 0 {
			return -1
		}
		return a[0]
	case "sqrt":
		return math.Sqrt(a[0])
	case "pow":
		return math.Pow(a[0], a[1])
	case "exp":
		return math.Exp(a[0])
	case "log":
		return math.Log(a[0])
	case "log2":
		return math.Log2(a[0])
	case "log10":
		return math.Log10(a[0])
	case "isint":
		return boolVal(!math.IsNaN(a[0]) && !math.IsInf(a[0], 0) && math.Trunc(a[0]) == a[0])
	case "isfinite":
		return boolVal(!math.IsNaN(a[0]) && !math.IsInf(a[0], 0))
	case "isnan":
		return boolVal(math.IsNaN(a[0]))
	}
	return math.NaN()
}

func truthy(v float64) bool  { return v != 0 && !math.IsNaN(v) }
func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// arity maps the whitelisted functions to their argument counts.
var arity = map[string]int{
	"abs": 1, "min": 2, "max": 2, "floor": 1, "ceil": 1, "round": 1,
	"trunc": 1, "sign": 1, "sqrt": 1, "pow": 2, "exp": 1, "log": 1,
	"log2": 1, "log10": 1, "isint": 1, "isfinite": 1, "isnan": 1,
}

// ---- tokenizer ----

type tokKind int

const (
	tokNum tokKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokKind
	text string
	num  float64
}

func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.') {
				j++
			}
			// exponent part
			if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
				k := j + 1
				if k < len(src) && (src[k] == '+' || src[k] == '-') {
					k++
				}
				if k < len(src) && src[k] >= '0' && src[k] <= '9' {
					for k < len(src) && src[k] >= '0' && src[k] <= '9' {
						k++
					}
					j = k
				}
			}
			f, err := strconv.ParseFloat(src[i:j], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "exp: bad number %q", src[i:j])
			}
			toks = append(toks, token{kind: tokNum, num: f})
			i = j
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_':
			j := i
			for j < len(src) && (src[j] >= 'a' && src[j] <= 'z' || src[j] >= 'A' && src[j] <= 'Z' || src[j] >= '0' && src[j] <= '9' || src[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j]})
			i = j
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma})
			i++
		default:
			op := ""
			two := ""
			if i+1 < len(src) {
				two = src[i : i+2]
			}
			switch two {
			case "==", "!=", "<=", ">=", "&&", "||":
				op = two
			default:
				switch c {
				case '+', '-', '*', '/', '%', '<', '>', '!':
					op = string(c)
				}
			}
			if op == "" {
				return nil, errors.Errorf("exp: unrecognized character %q", string(c))
			}
			toks = append(toks, token{kind: tokOp, text: op})
			i += len(op)
		}
	}
	return toks, nil
}

// ---- shunting-yard parser ----

var precedence = map[string]int{
	"u!": 7, "u-": 7,
	"*": 6, "/": 6, "%": 6,
	"+": 5, "-": 5,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"==": 3, "!=": 3,
	"&&": 2,
	"||": 1,
}

func rightAssoc(op string) bool { return op == "u!" || op == "u-" }

type stackItem struct {
	op    string // operator, or "(" marker
	fn    string // function name when the "(" belongs to a call
	nargs int
}

// Compile parses src into a Program. Unknown identifiers and operators are
// compile errors.
func Compile(src string) (*Program, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, errors.New("exp: empty expression")
	}

	var out []node
	var ops []stackItem

	popOp := func() error {
		if len(ops) == 0 {
			return errors.New("exp: unbalanced expression")
		}
		it := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		switch {
		case it.op == "u-" || it.op == "u!":
			if len(out) < 1 {
				return errors.New("exp: missing operand")
			}
			c := out[len(out)-1]
			out = out[:len(out)-1]
			out = append(out, unaryNode{op: it.op[1:], child: c})
		default:
			if len(out) < 2 {
				return errors.New("exp: missing operand")
			}
			r := out[len(out)-1]
			l := out[len(out)-2]
			out = out[:len(out)-2]
			out = append(out, binaryNode{op: it.op, l: l, r: r})
		}
		return nil
	}

	expectOperand := true
	for ti := 0; ti < len(toks); ti++ {
		t := toks[ti]
		switch t.kind {
		case tokNum:
			if !expectOperand {
				return nil, errors.New("exp: unexpected number")
			}
			out = append(out, numNode(t.num))
			expectOperand = false
		case tokIdent:
			if !expectOperand {
				return nil, errors.Errorf("exp: unexpected identifier %q", t.text)
			}
			if _, isFn := arity[t.text]; isFn {
				if ti+1 >= len(toks) || toks[ti+1].kind != tokLParen {
					return nil, errors.Errorf("exp: function %q requires arguments", t.text)
				}
				ops = append(ops, stackItem{op: "(", fn: t.text, nargs: 1})
				ti++ // consume the paren
				continue
			}
			if t.text != "x" {
				return nil, errors.Errorf("exp: unknown identifier %q", t.text)
			}
			out = append(out, varNode{})
			expectOperand = false
		case tokOp:
			op := t.text
			if expectOperand {
				switch op {
				case "-":
					op = "u-"
				case "!":
					op = "u!"
				default:
					return nil, errors.Errorf("exp: unexpected operator %q", op)
				}
			} else if op == "!" {
				return nil, errors.New("exp: unexpected operator \"!\"")
			}
			for len(ops) > 0 {
				top := ops[len(ops)-1]
				if top.op == "(" {
					break
				}
				if precedence[top.op] > precedence[op] || (precedence[top.op] == precedence[op] && !rightAssoc(op)) {
					if err := popOp(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
			ops = append(ops, stackItem{op: op})
			expectOperand = true
		case tokLParen:
			if !expectOperand {
				return nil, errors.New("exp: unexpected \"(\"")
			}
			ops = append(ops, stackItem{op: "("})
		case tokComma:
			if expectOperand {
				return nil, errors.New("exp: unexpected \",\"")
			}
			for len(ops) > 0 && ops[len(ops)-1].op != "(" {
				if err := popOp(); err != nil {
					return nil, err
				}
			}
			if len(ops) == 0 || ops[len(ops)-1].fn == "" {
				return nil, errors.New("exp: \",\" outside a call")
			}
			ops[len(ops)-1].nargs++
			expectOperand = true
		case tokRParen:
			if expectOperand {
				return nil, errors.New("exp: unexpected \")\"")
			}
			for len(ops) > 0 && ops[len(ops)-1].op != "(" {
				if err := popOp(); err != nil {
					return nil, err
				}
			}
			if len(ops) == 0 {
				return nil, errors.New("exp: unbalanced \")\"")
			}
			it := ops[len(ops)-1]
			ops = ops[:len(ops)-1]
			if it.fn != "" {
				want := arity[it.fn]
				if it.nargs != want {
					return nil, errors.Errorf("exp: %s expects %d argument(s), got %d", it.fn, want, it.nargs)
				}
				if len(out) < want {
					return nil, errors.New("exp: missing call arguments")
				}
				args := make([]node, want)
				copy(args, out[len(out)-want:])
				out = out[:len(out)-want]
				out = append(out, callNode{fn: it.fn, args: args})
			}
		}
	}
	if expectOperand {
		return nil, errors.New("exp: truncated expression")
	}
	for len(ops) > 0 {
		if ops[len(ops)-1].op == "(" {
			return nil, errors.New("exp: unbalanced \"(\"")
		}
		if err := popOp(); err != nil {
			return nil, err
		}
	}
	if len(out) != 1 {
		return nil, errors.New("exp: malformed expression")
	}
	return &Program{root: out[0], src: src}, nil
}
