package z80parser

import (
	"fmt"

	"github.com/gmofishsauce/cpcasm/span"
)

// parseError is the parser's internal error representation: a span plus
// a message and, during backtracking, a stack of alternatives tried.
// The top-level Parse entry point converts the final one into a
// *diag.Error (spec 4.1's "Failure semantics": the deepest alternative
// tried wins, each rejected alternative recorded as a context label).
type parseError struct {
	span    span.Span
	message string
	labels  []string
}

func newParseError(sp span.Span, format string, args ...any) *parseError {
	return &parseError{span: sp, message: fmt.Sprintf(format, args...)}
}

func (e *parseError) withLabel(label string) *parseError {
	e.labels = append(e.labels, label)
	return e
}

func (e *parseError) Error() string {
	return fmt.Sprintf("%s: %s", e.span.String(), e.message)
}

// furthest picks whichever of two candidate errors progressed deeper
// into the token stream before failing -- the standard backtracking
// recursive-descent heuristic for reporting the most useful alternative.
func furthest(a, b *parseError) *parseError {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.span.Offset >= a.span.Offset {
		return b
	}
	return a
}
