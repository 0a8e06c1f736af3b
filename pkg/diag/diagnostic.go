// Package diag collects recoverable compile-time errors.
//
// A compilation never stops at the first problem: the parser records a
// Diagnostic, skips ahead and keeps going, so one run reports every
// independent structural error. Diagnostics raised deep inside nested
// productions travel upward and pick up Notes that describe what was being
// parsed at each level.
package diag

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

// Kind classifies a diagnostic.
type Kind int

// Kind constants.
const (
	Syntax        Kind = iota // Unexpected token versus an expected set
	MismatchedTag             // Closing tag name differs from the opening one
	MissingBlock              // A required delimited body was absent or unclosed
	Lexical                   // Malformed token in the source text
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax"
	case MismatchedTag:
		return "mismatched-tag"
	case MissingBlock:
		return "missing-block"
	case Lexical:
		return "lexical"
	default:
		return "unknown"
	}
}

// Note attaches parsing context to a diagnostic.
type Note struct {
	Span    token.Span
	Message string
}

// Diagnostic is a single recoverable compile-time error.
type Diagnostic struct {
	Kind     Kind
	Span     token.Span
	Message  string
	Expected []string // Syntax only
	Found    string   // Syntax only
	Notes    []Note
	Help     string
}

// Error implements error.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Span.Start, d.Message)
}

// WithNote appends a context note and returns d. Existing notes are kept,
// so the innermost context comes first.
func (d *Diagnostic) WithNote(span token.Span, msg string) *Diagnostic {
	d.Notes = append(d.Notes, Note{Span: span, Message: msg})
	return d
}

// WithHelp sets the help line and returns d.
func (d *Diagnostic) WithHelp(help string) *Diagnostic {
	d.Help = help
	return d
}

// Common error messages.
const (
	ErrUnexpectedToken = "unexpected %s, expected %s"
	ErrMismatchedTag   = "mismatched closing tag: expected `</%s>`, found `</%s>`"
	ErrUnclosedBlock   = "unclosed %s, missing %s"
	ErrMissingBlock    = "expected %s before %s"
)

// Unexpected builds a Syntax diagnostic for found when one of expected was
// required.
func Unexpected(found token.Token, expected ...string) *Diagnostic {
	return &Diagnostic{
		Kind:     Syntax,
		Span:     found.Span,
		Message:  fmt.Sprintf(ErrUnexpectedToken, found.Describe(), joinExpected(expected)),
		Expected: expected,
		Found:    found.Describe(),
	}
}

// Mismatched builds a MismatchedTag diagnostic. The span points at the
// closing tag name; a note points at the opening one.
func Mismatched(open, closeName string, openSpan, closeSpan token.Span) *Diagnostic {
	d := &Diagnostic{
		Kind:    MismatchedTag,
		Span:    closeSpan,
		Message: fmt.Sprintf(ErrMismatchedTag, open, closeName),
	}
	d.WithNote(openSpan, fmt.Sprintf("`<%s>` opened here", open))
	d.WithHelp(fmt.Sprintf("if `<%s>` has no closing tag, it may need to be a void element", open))
	return d
}

// Unclosed builds a MissingBlock diagnostic for an opening delimiter that
// never gets closed.
func Unclosed(open token.Token, closer token.TokenType) *Diagnostic {
	return &Diagnostic{
		Kind:    MissingBlock,
		Span:    open.Span,
		Message: fmt.Sprintf(ErrUnclosedBlock, open.Type, closer),
	}
}

// MissingBody builds a MissingBlock diagnostic for a required body that is
// absent at found.
func MissingBody(found token.Token, what string) *Diagnostic {
	return &Diagnostic{
		Kind:    MissingBlock,
		Span:    found.Span,
		Message: fmt.Sprintf(ErrMissingBlock, what, found.Describe()),
	}
}

// Lex builds a Lexical diagnostic.
func Lex(span token.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Kind:    Lexical,
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	}
}

func joinExpected(expected []string) string {
	switch len(expected) {
	case 0:
		return "something else"
	case 1:
		return expected[0]
	case 2:
		return expected[0] + " or " + expected[1]
	default:
		return "one of " + strings.Join(expected, ", ")
	}
}
