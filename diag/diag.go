// Package diag holds the structured error type shared by the parser,
// expression engine, assembler, and the BASIC/EDSK codecs. There is no
// process-wide error channel: every fallible call returns a value of
// this type (or nil) instead.
package diag

import (
	"fmt"
	"strings"

	"github.com/gmofishsauce/cpcasm/span"
)

// Kind classifies an Error the way spec section 7 enumerates them.
type Kind int

const (
	KindLex Kind = iota
	KindParse
	KindExpr
	KindAssembly
	KindDirective
	KindContainer
	KindBasic
	KindIO
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindLex:
		return "lex"
	case KindParse:
		return "parse"
	case KindExpr:
		return "expr"
	case KindAssembly:
		return "assembly"
	case KindDirective:
		return "directive"
	case KindContainer:
		return "container"
	case KindBasic:
		return "basic"
	case KindIO:
		return "io"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the one error type returned anywhere in this module.
type Error struct {
	Kind           Kind
	Message        string
	PrimarySpan    span.Span
	SecondarySpans []span.Span
	ContextLabels  []string
	Cause          error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.PrimarySpan.Arena != nil {
		fmt.Fprintf(&b, "%s: %s: %s", e.PrimarySpan.String(), e.Kind, e.Message)
	} else {
		fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	}
	for _, lbl := range e.ContextLabels {
		fmt.Fprintf(&b, "\n\tin %s", lbl)
	}
	for _, s := range e.SecondarySpans {
		fmt.Fprintf(&b, "\n\tsee also %s", s.String())
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// WithLabel appends a context label ("LET: missing =") and returns e,
// for the backtracking parser to annotate errors as alternatives unwind.
func (e *Error) WithLabel(label string) *Error {
	e.ContextLabels = append(e.ContextLabels, label)
	return e
}

func new_(kind Kind, primary span.Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), PrimarySpan: primary}
}

func Lex(primary span.Span, format string, args ...any) *Error {
	return new_(KindLex, primary, format, args...)
}

func Parse(primary span.Span, format string, args ...any) *Error {
	return new_(KindParse, primary, format, args...)
}

func Expr(primary span.Span, format string, args ...any) *Error {
	return new_(KindExpr, primary, format, args...)
}

func Assembly(primary span.Span, format string, args ...any) *Error {
	return new_(KindAssembly, primary, format, args...)
}

func Directive(primary span.Span, format string, args ...any) *Error {
	return new_(KindDirective, primary, format, args...)
}

func Container(format string, args ...any) *Error {
	return new_(KindContainer, span.Span{}, format, args...)
}

func Basic(format string, args ...any) *Error {
	return new_(KindBasic, span.Span{}, format, args...)
}

func IO(cause error, format string, args ...any) *Error {
	e := new_(KindIO, span.Span{}, format, args...)
	e.Cause = cause
	return e
}

// Cancelled is returned by any entry point that observed a cancelled
// context between units of work (lines, tokens, tracks).
var Cancelled = &Error{Kind: KindCancelled, Message: "operation cancelled"}
