// Package basic implements the Locomotive BASIC tokenizer/detokenizer
// described in spec section 4.5: ASCII source in, a framed tokenized
// byte stream out, and back. Grounded on the keyword/operand byte
// tables in cpclib-basic/src/tokens.rs (original_source/) and, for the
// wire-framing style (length-prefixed records terminated by a
// zero-length sentinel), on gmofishsauce/wut4/asm/output.go's listing
// serialization.
package basic

import "fmt"

// Line is one decoded or to-be-encoded BASIC line: a line number and
// its token-stream payload (everything between the line number and the
// line's terminating 0x00, spec 4.5's "Line framing").
type Line struct {
	Number int
	Tokens []byte
}

// Program is an ordered sequence of Lines, the result of Tokenize or
// Detokenize (spec 6.2).
type Program struct {
	Lines []Line
}

// ToBytes serializes p into the framed wire format: each line is
// [len_lo len_hi line_lo line_hi tokens... 00], followed by a
// zero-length terminator line.
func (p *Program) ToBytes() []byte {
	var out []byte
	for _, l := range p.Lines {
		length := 2 + 2 + len(l.Tokens) + 1
		out = append(out, byte(length), byte(length>>8), byte(l.Number), byte(l.Number>>8))
		out = append(out, l.Tokens...)
		out = append(out, lineTerminatorByte)
	}
	out = append(out, 0, 0)
	return out
}

// Source renders p back to ASCII BASIC source text, reversing the
// keyword/operator/numeric-literal mappings Tokenize applied. It is a
// best-effort reconstruction (spacing around tokens is not preserved
// byte-for-byte) sufficient to retokenize into an equivalent Program.
func (p *Program) Source() (string, error) {
	var out []byte
	for _, l := range p.Lines {
		text, err := renderLine(l.Tokens)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", l.Number, err)
		}
		// text already carries the source's original line-number/statement
		// separator space as its first token byte (splitLineNumber never
		// strips it), so the format string adds none of its own.
		out = append(out, []byte(fmt.Sprintf("%d%s\n", l.Number, text))...)
	}
	return string(out), nil
}
