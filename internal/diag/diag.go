// Package diag is the ambient error-reporting layer shared by every
// pipeline stage (spec §7 "Error Handling Design"). It wraps causes with
// github.com/pkg/errors so a Cause() chain survives across compiler phases,
// and renders a source-caret excerpt the way a REPL/CLI front end expects to
// print it, in the spirit of the teacher's own phase-local error printing
// (internal/maincmd.printError).
package diag

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/ash-lang/ash/internal/token"
)

// Kind identifies which pipeline phase raised an Error (spec §7).
type Kind uint8

const (
	KindSyntax Kind = iota
	KindType
	KindReference
	KindCompile
	KindAssemble
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax error"
	case KindType:
		return "type error"
	case KindReference:
		return "reference error"
	case KindCompile:
		return "compile error"
	case KindAssemble:
		return "assemble error"
	case KindRuntime:
		return "runtime error"
	default:
		return "error"
	}
}

// Error is the single error type every phase in the pipeline raises. It
// carries the source position responsible, a human message, and optionally
// the underlying cause (wrapped so pkg/errors.Cause still unwraps it).
type Error struct {
	Kind Kind
	Pos  token.Position
	Msg  string

	// Source, if non-empty, is the single line of source text Pos refers to;
	// used to render a caret excerpt.
	Source string

	cause error
}

// New builds an Error with no underlying cause.
func New(kind Kind, pos token.Position, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that chains cause via pkg/errors, preserving it for
// errors.Cause / errors.Is callers further up the CLI.
func Wrap(cause error, kind Kind, pos token.Position, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

// WithSource attaches the offending source line for caret rendering and
// returns the receiver, so call sites can chain it onto New/Wrap.
func (e *Error) WithSource(line string) *Error {
	e.Source = line
	return e
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Cause returns the deepest pkg/errors-wrapped cause, or nil.
func (e *Error) Cause() error {
	if e.cause == nil {
		return nil
	}
	return errors.Cause(e.cause)
}

// Report renders the error followed by a source caret excerpt, matching the
// single-line-plus-caret style spec §7 requires for CLI diagnostics.
func (e *Error) Report() string {
	var b strings.Builder
	b.WriteString(e.Error())
	if e.Source != "" && e.Pos.Column > 0 {
		b.WriteByte('\n')
		b.WriteString(e.Source)
		b.WriteByte('\n')
		col := e.Pos.Column
		if col > len(e.Source)+1 {
			col = len(e.Source) + 1
		}
		b.WriteString(strings.Repeat(" ", col-1))
		b.WriteByte('^')
	}
	return b.String()
}
