// Package span tracks byte ranges inside named source buffers and the
// parser options that were in effect when a buffer was parsed.
//
// Spans never outlive the Arena that owns the bytes they reference; the
// Arena is the explicit substitute for the lifetime coupling a
// reference-based design would otherwise need.
package span

import "fmt"

// Options mirrors the ParserOptions surface from the assembler API.
type Options struct {
	DottedDirectives     bool
	CaseInsensitive      bool
	OrgamsMode           bool
	SearchPaths          []string
	MaxIncludeDepth      int
	LaxistUnknownSymbols bool
	ShowProgress         bool
}

// DefaultOptions returns the options a bare `parse` call uses when the
// caller supplies none explicitly.
func DefaultOptions() Options {
	return Options{
		MaxIncludeDepth: 20,
	}
}

// Buffer is one named, immutable source buffer (a file or an in-memory
// string passed to Parse).
type Buffer struct {
	Name string
	Data []byte
}

// Arena owns every buffer referenced by spans produced while parsing one
// top-level source, including buffers pulled in via INCLUDE.
type Arena struct {
	buffers []Buffer
	opts    *Options
}

// NewArena creates an arena bound to a fixed set of parser options. The
// same Options are shared by every span the arena issues.
func NewArena(opts Options) *Arena {
	return &Arena{opts: &opts}
}

// Options returns the options record shared by every span from this arena.
func (a *Arena) Options() *Options { return a.opts }

// AddBuffer registers a new source buffer and returns its id. Windows
// line endings are normalized to `\n` on the way in, so every span and
// line/column computation sees one consistent byte stream.
func (a *Arena) AddBuffer(name string, data []byte) int {
	id := len(a.buffers)
	a.buffers = append(a.buffers, Buffer{Name: name, Data: normalizeNewlines(data)})
	return id
}

func normalizeNewlines(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			continue
		}
		out = append(out, data[i])
	}
	return out
}

// Buffer returns the buffer registered under id.
func (a *Arena) Buffer(id int) Buffer {
	return a.buffers[id]
}

// Len returns the number of buffers registered so far (used for include
// cycle / depth bookkeeping by the parser).
func (a *Arena) Len() int { return len(a.buffers) }

// Span is a byte range [Offset, Offset+Length) within Buffer, plus a
// back-pointer to the options in effect. Every located token in the
// system carries one.
type Span struct {
	Arena  *Arena
	Buffer int
	Offset int
	Length int
}

// End returns the offset one past the end of the span.
func (s Span) End() int { return s.Offset + s.Length }

// Text returns the literal source bytes covered by the span.
func (s Span) Text() string {
	if s.Arena == nil {
		return ""
	}
	buf := s.Arena.Buffer(s.Buffer)
	return string(buf.Data[s.Offset:s.End()])
}

// BufferName returns the name of the buffer the span points into, for
// diagnostic rendering ("file:line:col: ...").
func (s Span) BufferName() string {
	if s.Arena == nil {
		return "<unknown>"
	}
	return s.Arena.Buffer(s.Buffer).Name
}

// LineCol computes the 1-based line and column of the span's start,
// scanning the buffer's bytes up to the offset. Buffers are expected to
// be small enough (a few hundred KiB of Z80 source at most) that this
// linear scan is not worth memoizing.
func (s Span) LineCol() (line, col int) {
	if s.Arena == nil {
		return 1, 1
	}
	data := s.Arena.Buffer(s.Buffer).Data
	line, col = 1, 1
	limit := s.Offset
	if limit > len(data) {
		limit = len(data)
	}
	for i := 0; i < limit; i++ {
		if data[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// Cover returns the smallest span covering both a and b. Both must come
// from the same buffer in the same arena; Cover panics otherwise, since
// that invariant violation indicates a parser bug, not a user error.
func Cover(a, b Span) Span {
	if a.Arena != b.Arena || a.Buffer != b.Buffer {
		panic("span: Cover across different buffers")
	}
	start := a.Offset
	if b.Offset < start {
		start = b.Offset
	}
	end := a.End()
	if b.End() > end {
		end = b.End()
	}
	return Span{Arena: a.Arena, Buffer: a.Buffer, Offset: start, Length: end - start}
}

// String renders the span as "file:line:col" for error messages.
func (s Span) String() string {
	line, col := s.LineCol()
	return fmt.Sprintf("%s:%d:%d", s.BufferName(), line, col)
}
