package starlark

import (
	"errors"
	"fmt"
	"strings"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/leaptmpl/pkg/token"
)

// RenderError is a failure while compiling or running a Starlark template,
// positioned in the template source.
type RenderError struct {
	Pos      token.Position
	Template string
	Msg      string
	Cause    error // Underlying Starlark error, if any
}

func (e *RenderError) Error() string {
	var sb strings.Builder
	switch {
	case e.Pos.IsValid():
		sb.WriteString(e.Pos.String())
		sb.WriteString(": ")
	case e.Pos.File != "":
		sb.WriteString(e.Pos.File)
		sb.WriteString(": ")
	}
	if e.Template != "" {
		fmt.Fprintf(&sb, "in template %s: ", e.Template)
	}
	sb.WriteString(e.Msg)
	return sb.String()
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Backtrace returns the Starlark call stack of a runtime error, or "".
func (e *RenderError) Backtrace() string {
	var evalErr *starlark.EvalError
	if errors.As(e.Cause, &evalErr) {
		return evalErr.Backtrace()
	}
	return ""
}

// wrap converts an error from executing p into a RenderError positioned
// at the innermost generated frame.
func (p *Program) wrap(err error, template string) error {
	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return err
	}

	out := &RenderError{Pos: token.Position{File: p.Name}, Template: template, Msg: err.Error(), Cause: err}

	var evalErr *starlark.EvalError
	var syntaxErr syntax.Error
	var resolveErrs resolve.ErrorList
	switch {
	case errors.As(err, &evalErr):
		out.Msg = evalErr.Msg
		for i := len(evalErr.CallStack) - 1; i >= 0; i-- {
			pos := evalErr.CallStack[i].Pos
			if pos.Filename() == p.Name {
				out.Pos = p.Position(int(pos.Line), int(pos.Col))
				break
			}
		}
	case errors.As(err, &syntaxErr):
		out.Msg = syntaxErr.Msg
		out.Pos = p.Position(int(syntaxErr.Pos.Line), int(syntaxErr.Pos.Col))
	case errors.As(err, &resolveErrs) && len(resolveErrs) > 0:
		out.Msg = resolveErrs[0].Msg
		out.Pos = p.Position(int(resolveErrs[0].Pos.Line), int(resolveErrs[0].Pos.Col))
	}
	return out
}
