package exmodel

import (
	"fmt"
	"strings"

	"github.com/exjs/exmodel/i18n"
)

// Diagnostic codes (exported consts; the vocabulary is closed).
const (
	CodeExpectedBoolean    = "ExpectedBoolean"
	CodeExpectedNumber     = "ExpectedNumber"
	CodeExpectedString     = "ExpectedString"
	CodeExpectedObject     = "ExpectedObject"
	CodeExpectedArray      = "ExpectedArray"
	CodeInvalidValue       = "InvalidValue"
	CodeOutOfRange         = "OutOfRange"
	CodeLengthConstraint   = "LengthConstraint"
	CodeUnexpectedProperty = "UnexpectedProperty"
	CodeMissingProperty    = "MissingProperty"
	CodeNoAccess           = "NoAccess"
	CodeInvalidFormat      = "InvalidFormat"
	CodePatternMismatch    = "PatternMismatch"
)

// Issue represents a single validation diagnostic.
type Issue struct {
	Path    string // Dotted field path from the root; array indices appear as [n].
	Code    string // One of the codes listed above, or a code returned by a $fn predicate.
	Message string
}

// SchemaError carries the diagnostics collected by a processing run. In
// fail-fast mode Errors holds exactly one entry; with AccumulateErrors it
// holds every diagnostic in canonical field order, depth first.
type SchemaError struct {
	Errors []Issue
}

// Error summarizes the first few diagnostics.
func (e *SchemaError) Error() string {
	if len(e.Errors) == 0 {
		return "schema error"
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(e.Errors)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := e.Errors[i]
		p := it.Path
		if p == "" {
			p = "@"
		}
		fmt.Fprintf(b, "%s at %s", it.Code, p)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AsSchemaError extracts a *SchemaError from err, if it is one.
func AsSchemaError(err error) (*SchemaError, bool) {
	se, ok := err.(*SchemaError)
	return se, ok
}

func newIssue(path, code string) Issue {
	return Issue{Path: path, Code: code, Message: i18n.T(code, nil)}
}
