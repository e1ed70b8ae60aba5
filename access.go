package exmodel

import (
	"strings"

	"github.com/pkg/errors"
)

// AccessExpr is a parsed $r/$w/$a directive: either a disjunction or a
// conjunction of role tokens. The tokens "*" (any), "none" (empty set), and
// "inherit" (enclosing scope) are special.
type AccessExpr struct {
	And    bool
	Tokens []string
	Source string
}

// parseAccessExpr validates the grammar token ('|' token)* or
// token ('&' token)*. Mixing '|' and '&' is a schema-compile error, as is
// parenthesisation or an empty token.
func parseAccessExpr(src string) (*AccessExpr, error) {
	hasOr := strings.ContainsRune(src, '|')
	hasAnd := strings.ContainsRune(src, '&')
	if hasOr && hasAnd {
		return nil, errors.Errorf("access: mixed '|' and '&' in %q", src)
	}
	sep := "|"
	if hasAnd {
		sep = "&"
	}
	toks := strings.Split(src, sep)
	for _, t := range toks {
		if t == "*" {
			continue
		}
		if !IsVariableName(t) {
			return nil, errors.Errorf("access: bad token %q in %q", t, src)
		}
	}
	return &AccessExpr{And: hasAnd, Tokens: toks, Source: src}, nil
}

// accessAlways admits every role set; it is the fallback for "inherit" at
// the root.
func accessAlways(Access) bool { return true }

// accessEvaluator folds expr into a predicate over role sets. parent
// resolves the "inherit" token to the nearest ancestor's evaluator, so
// chained inherits walk all the way up.
func accessEvaluator(expr *AccessExpr, parent func(Access) bool) func(Access) bool {
	if expr == nil {
		return parent
	}
	if parent == nil {
		parent = accessAlways
	}
	toks := expr.Tokens
	and := expr.And
	return func(roles Access) bool {
		evalTok := func(t string) bool {
			switch t {
			case "*":
				return true
			case "none":
				return false
			case "inherit":
				return parent(roles)
			}
			return roles[t]
		}
		if and {
			for _, t := range toks {
				if !evalTok(t) {
					return false
				}
			}
			return true
		}
		for _, t := range toks {
			if evalTok(t) {
				return true
			}
		}
		return false
	}
}
