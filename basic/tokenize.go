package basic

import (
	"strconv"
	"strings"

	"github.com/gmofishsauce/cpcasm/diag"
)

// Tokenize converts ASCII Locomotive BASIC source into a Program (spec
// 4.5 Encode, spec 6.2's tokenize). Each input line is `line-number SP
// statement (: statement)* NL`; CRLF and bare LF are both accepted.
func Tokenize(source string) (*Program, error) {
	src := strings.ReplaceAll(source, "\r\n", "\n")
	prog := &Program{}
	for _, raw := range strings.Split(src, "\n") {
		line := strings.TrimRight(raw, " \t")
		if line == "" {
			continue
		}
		num, rest, err := splitLineNumber(line)
		if err != nil {
			return nil, err
		}
		toks, err := tokenizeStatementText(rest)
		if err != nil {
			return nil, err
		}
		prog.Lines = append(prog.Lines, Line{Number: num, Tokens: toks})
	}
	return prog, nil
}

func splitLineNumber(line string) (int, string, error) {
	i := 0
	for i < len(line) && line[i] == ' ' {
		i++
	}
	start := i
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == start {
		return 0, "", diag.Basic("expected a line number at %q", line)
	}
	n, err := strconv.Atoi(line[start:i])
	if err != nil || n < 1 || n > 65535 {
		return 0, "", diag.Basic("line number %q out of range 1..65535", line[start:i])
	}
	return n, line[i:], nil
}

type tokenizer struct {
	s   string
	pos int
	out []byte
}

func tokenizeStatementText(s string) ([]byte, error) {
	t := &tokenizer{s: s}
	if err := t.run(); err != nil {
		return nil, err
	}
	return t.out, nil
}

func (t *tokenizer) peek() byte {
	if t.pos >= len(t.s) {
		return 0
	}
	return t.s[t.pos]
}

func (t *tokenizer) run() error {
	for t.pos < len(t.s) {
		c := t.s[t.pos]
		switch {
		case c == ' ' || c == '\t':
			t.out = append(t.out, ' ')
			t.pos++
		case c == '"':
			if err := t.scanString(); err != nil {
				return err
			}
		case isIdentStartChar(c):
			t.scanWord()
		case c >= '0' && c <= '9', c == '.' && t.pos+1 < len(t.s) && isDigitByte(t.s[t.pos+1]), c == '&':
			if err := t.scanNumber(); err != nil {
				return err
			}
		case c == '\'':
			// REM shorthand: rest of line is a verbatim comment.
			t.out = append(t.out, '\'')
			t.pos++
			t.scanRestVerbatim()
		case c == '>' && t.pos+1 < len(t.s) && t.s[t.pos+1] == '=':
			t.out = append(t.out, twoCharOperatorTokens[">="])
			t.pos += 2
		case c == '<' && t.pos+1 < len(t.s) && t.s[t.pos+1] == '=':
			t.out = append(t.out, twoCharOperatorTokens["<="])
			t.pos += 2
		case c == '<' && t.pos+1 < len(t.s) && t.s[t.pos+1] == '>':
			t.out = append(t.out, twoCharOperatorTokens["<>"])
			t.pos += 2
		default:
			t.out = append(t.out, c)
			t.pos++
		}
	}
	return nil
}

func isIdentStartChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentPartChar(c byte) bool {
	return isIdentStartChar(c) || (c >= '0' && c <= '9')
}

func isDigitByte(c byte) bool { return c >= '0' && c <= '9' }

// scanWord consumes a letters[/digits]* run plus an optional trailing
// type-suffix character, checks it against the keyword and prefixed-
// function tables (case-insensitive), and falls back to a plain
// (uppercased) identifier/variable-name reference.
func (t *tokenizer) scanWord() {
	start := t.pos
	for t.pos < len(t.s) && isIdentPartChar(t.s[t.pos]) {
		t.pos++
	}
	bodyEnd := t.pos
	withSuffix := t.pos
	if withSuffix < len(t.s) && strings.IndexByte("$%!", t.s[withSuffix]) >= 0 {
		withSuffix++
	}

	wordSuffixed := strings.ToUpper(t.s[start:withSuffix])
	wordBare := strings.ToUpper(t.s[start:bodyEnd])

	if b, ok := keywordTokens[wordSuffixed]; ok {
		t.out = append(t.out, b)
		t.pos = withSuffix
		if wordSuffixed == "REM" {
			t.scanRestVerbatim()
		}
		return
	}
	if b, ok := keywordTokens[wordBare]; ok {
		t.out = append(t.out, b)
		t.pos = bodyEnd
		return
	}
	if b, ok := prefixedFunctionTokens[wordSuffixed]; ok {
		t.out = append(t.out, tokenPrefixMarker, b)
		t.pos = withSuffix
		return
	}
	if b, ok := prefixedFunctionTokens[wordBare]; ok {
		t.out = append(t.out, tokenPrefixMarker, b)
		t.pos = bodyEnd
		return
	}
	// Plain identifier: stored uppercased, suffix included verbatim.
	t.out = append(t.out, []byte(wordSuffixed)...)
	t.pos = withSuffix
}

func (t *tokenizer) scanRestVerbatim() {
	for t.pos < len(t.s) {
		t.out = append(t.out, t.s[t.pos])
		t.pos++
	}
}

func (t *tokenizer) scanString() error {
	t.out = append(t.out, tagString)
	t.pos++ // opening quote
	for t.pos < len(t.s) && t.s[t.pos] != '"' {
		t.out = append(t.out, t.s[t.pos])
		t.pos++
	}
	if t.pos >= len(t.s) {
		return diag.Basic("unterminated string literal")
	}
	t.pos++ // closing quote
	t.out = append(t.out, tagString)
	return nil
}

// scanNumber parses a numeric literal, remembering which base it was
// written in so the tag byte preserves that (spec 4.5's three 16-bit
// integer variants exist purely to round-trip the author's spelling).
func (t *tokenizer) scanNumber() error {
	start := t.pos
	base := "decimal"
	if t.s[t.pos] == '&' {
		t.pos++
		if t.pos < len(t.s) && (t.s[t.pos] == 'H' || t.s[t.pos] == 'h') {
			t.pos++
			base = "hex"
		} else if t.pos < len(t.s) && (t.s[t.pos] == 'X' || t.s[t.pos] == 'x') {
			t.pos++
			base = "binary"
		} else {
			base = "hex" // bare & defaults to hex, matching Locomotive BASIC
		}
		digitStart := t.pos
		isDigitOf := isHexByte
		radix := 16
		if base == "binary" {
			isDigitOf = isBinaryByte
			radix = 2
		}
		for t.pos < len(t.s) && isDigitOf(t.s[t.pos]) {
			t.pos++
		}
		if t.pos == digitStart {
			return diag.Basic("malformed &-prefixed numeric literal %q", t.s[start:t.pos])
		}
		v, err := strconv.ParseInt(t.s[digitStart:t.pos], radix, 64)
		if err != nil {
			return diag.Basic("malformed &-prefixed numeric literal %q", t.s[start:t.pos])
		}
		return t.emitPrefixedInt(v, base)
	}

	isFloat := false
	for t.pos < len(t.s) && isDigitByte(t.s[t.pos]) {
		t.pos++
	}
	if t.pos < len(t.s) && t.s[t.pos] == '.' {
		isFloat = true
		t.pos++
		for t.pos < len(t.s) && isDigitByte(t.s[t.pos]) {
			t.pos++
		}
	}
	if t.pos < len(t.s) && (t.s[t.pos] == 'E' || t.s[t.pos] == 'e') {
		isFloat = true
		t.pos++
		if t.pos < len(t.s) && (t.s[t.pos] == '+' || t.s[t.pos] == '-') {
			t.pos++
		}
		for t.pos < len(t.s) && isDigitByte(t.s[t.pos]) {
			t.pos++
		}
	}
	text := t.s[start:t.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return diag.Basic("malformed numeric literal %q", text)
		}
		return t.emitFloat(f)
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return diag.Basic("malformed numeric literal %q", text)
	}
	return t.emitPrefixedInt(v, "decimal")
}

func isHexByte(c byte) bool {
	return isDigitByte(c) || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func isBinaryByte(c byte) bool { return c == '0' || c == '1' }

func (t *tokenizer) emitPrefixedInt(v int64, base string) error {
	switch {
	case base == "hex":
		if v < 0 || v > 0xFFFF {
			return t.emitFloat(float64(v))
		}
		t.out = append(t.out, tagInt16Hex, byte(v), byte(v>>8))
		return nil
	case base == "binary":
		if v < 0 || v > 0xFFFF {
			return t.emitFloat(float64(v))
		}
		t.out = append(t.out, tagInt16Binary, byte(v), byte(v>>8))
		return nil
	case v >= 0 && v <= 10:
		t.out = append(t.out, byte(tagConstant0+v))
		return nil
	case v >= 0 && v <= 255:
		t.out = append(t.out, tagInt8, byte(v))
		return nil
	case v >= 0 && v <= 0xFFFF:
		t.out = append(t.out, tagInt16Decimal, byte(v), byte(v>>8))
		return nil
	default:
		return t.emitFloat(float64(v))
	}
}

func (t *tokenizer) emitFloat(f float64) error {
	b, err := encodeFloat(f)
	if err != nil {
		return diag.Basic("%v", err)
	}
	t.out = append(t.out, tagFloat)
	t.out = append(t.out, b[:]...)
	return nil
}
