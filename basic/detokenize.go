package basic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gmofishsauce/cpcasm/diag"
)

// Detokenize parses a framed tokenized BASIC byte stream back into a
// Program (spec 4.5 Decode, spec 6.2's detokenize): read a line's
// length, stop at a zero-length terminator, otherwise read the line
// number and carry the token bytes between it and the line's own
// trailing 0x00 forward unchanged.
func Detokenize(data []byte) (*Program, error) {
	prog := &Program{}
	pos := 0
	for {
		if pos+2 > len(data) {
			return nil, diag.Basic("truncated program: missing line-length field at offset %d", pos)
		}
		length := int(data[pos]) | int(data[pos+1])<<8
		pos += 2
		if length == 0 {
			break
		}
		if pos+2 > len(data) {
			return nil, diag.Basic("truncated program: missing line number at offset %d", pos)
		}
		num := int(data[pos]) | int(data[pos+1])<<8
		pos += 2

		tokLen := length - 2 - 2 - 1
		if tokLen < 0 {
			return nil, diag.Basic("line %d: length field %d too small to hold its own framing", num, length)
		}
		tokEnd := pos + tokLen
		if tokEnd+1 > len(data) {
			return nil, diag.Basic("line %d: truncated before declared end", num)
		}
		tokens := append([]byte(nil), data[pos:tokEnd]...)
		pos = tokEnd
		if data[pos] != lineTerminatorByte {
			return nil, diag.Basic("line %d: missing line terminator byte", num)
		}
		pos++
		prog.Lines = append(prog.Lines, Line{Number: num, Tokens: tokens})
	}
	return prog, nil
}

// renderLine reverses Tokenize's byte-level mapping back to ASCII
// source text for one line's token stream (used by Program.Source).
func renderLine(tokens []byte) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(tokens) {
		c := tokens[i]
		switch {
		case c == tagString:
			i++
			start := i
			for i < len(tokens) && tokens[i] != tagString {
				i++
			}
			if i >= len(tokens) {
				return "", diag.Basic("unterminated string literal in token stream")
			}
			b.WriteByte('"')
			b.Write(tokens[start:i])
			b.WriteByte('"')
			i++
		case c >= tagConstant0 && c <= tagConstant0+10:
			fmt.Fprintf(&b, "%d", c-tagConstant0)
			i++
		case c == tagInt8:
			if i+1 >= len(tokens) {
				return "", diag.Basic("truncated 8-bit integer literal")
			}
			fmt.Fprintf(&b, "%d", tokens[i+1])
			i += 2
		case c == tagInt16Decimal:
			v, err := readWord(tokens, i+1)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "%d", v)
			i += 3
		case c == tagInt16Binary:
			v, err := readWord(tokens, i+1)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "&X%s", strconv.FormatInt(int64(v), 2))
			i += 3
		case c == tagInt16Hex:
			v, err := readWord(tokens, i+1)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "&%X", v)
			i += 3
		case c == tagFloat:
			if i+5 >= len(tokens) {
				return "", diag.Basic("truncated floating point literal")
			}
			var raw [5]byte
			copy(raw[:], tokens[i+1:i+6])
			fmt.Fprintf(&b, "%s", strconv.FormatFloat(decodeFloat(raw), 'g', -1, 64))
			i += 6
		case c == tokenPrefixMarker:
			if i+1 >= len(tokens) {
				return "", diag.Basic("truncated prefixed function token")
			}
			name, ok := reversePrefixedFunctionTokens[tokens[i+1]]
			if !ok {
				return "", diag.Basic("unknown prefixed function token 0xFF 0x%02X", tokens[i+1])
			}
			b.WriteString(name)
			i += 2
		case reverseTwoCharOperatorTokens[c] != "":
			b.WriteString(reverseTwoCharOperatorTokens[c])
			i++
		default:
			if name, ok := reverseKeywordTokens[c]; ok {
				b.WriteString(name)
				i++
				if name == "REM" {
					b.Write(tokens[i:])
					return b.String(), nil
				}
				continue
			}
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

func readWord(tokens []byte, at int) (uint16, error) {
	if at+1 >= len(tokens) {
		return 0, diag.Basic("truncated 16-bit integer literal")
	}
	return uint16(tokens[at]) | uint16(tokens[at+1])<<8, nil
}
