package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gmofishsauce/cpcasm/z80asm"
)

// writeSave executes one deferred SAVE directive (spec section 4.4's
// "SAVE" entry and section 6.1's SaveSpec variants) against the final
// assembled output. SAVE's start argument is a memory address, so it is
// mapped through the output's load address to find the byte range.
func writeSave(save z80asm.SaveSpec, out z80asm.Output) error {
	full := out.Bytes
	start, length := out.LoadAddress, int64(len(full))
	if save.HasRange {
		start, length = save.Start, save.Length
	}
	off := start - out.LoadAddress
	if off < 0 || length < 0 || off+length > int64(len(full)) {
		return fmt.Errorf("SAVE %q: address range [%#x,%#x) outside the assembled block at %#x..%#x", save.Path, start, start+length, out.LoadAddress, out.LoadAddress+int64(len(full)))
	}
	data := full[off : off+length]

	exec := save.ExecAddress
	if !save.HasExec && out.HasExec {
		exec = out.ExecAddress
	}

	switch save.Variant {
	case z80asm.SaveRaw:
		return os.WriteFile(save.Path, data, 0644)
	case z80asm.SaveAmsdosBinary:
		hdr := amsdosHeader(save.Path, amsdosTypeBinary, uint16(start), uint16(length), uint16(exec))
		return os.WriteFile(save.Path, append(hdr[:], data...), 0644)
	case z80asm.SaveAmsdosBasic:
		hdr := amsdosHeader(save.Path, amsdosTypeBasic, 0, uint16(length), 0)
		return os.WriteFile(save.Path, append(hdr[:], data...), 0644)
	case z80asm.SaveSnapshot:
		// SNA snapshot container generation is explicitly out of scope
		// (spec section 1's out-of-scope list); SAVE ...,SNAPSHOT fails
		// rather than silently writing a raw dump under a misleading name.
		return fmt.Errorf("SAVE %q: snapshot containers are not supported by this assembler", save.Path)
	default:
		return fmt.Errorf("SAVE %q: unknown container variant %d", save.Path, save.Variant)
	}
}

const (
	amsdosTypeBasic  = 0
	amsdosTypeBinary = 2
)

// amsdosHeader builds the 128-byte AMSDOS file header prefixed to BINARY
// and BASIC files saved to disc. Field offsets follow the commonly
// documented CPC AMSDOS header layout; spec section 8's open question
// (d) leaves filename-encoding choices to the implementation, so names
// are folded to uppercase ASCII here.
func amsdosHeader(path string, fileType byte, load, length, exec uint16) [128]byte {
	var h [128]byte

	name, ext := splitAmsdosName(path)
	copy(h[1:9], padRight(name, 8))
	copy(h[9:12], padRight(ext, 3))

	h[12] = 0    // block number
	h[13] = 0xFF // last block
	h[14] = fileType
	putLE16(h[0x11:0x13], load)
	h[0x13] = 0xFF // first block
	putLE16(h[0x14:0x16], length)
	putLE16(h[0x16:0x18], exec)
	putLE16(h[0x40:0x42], length) // real length, low 16 bits

	sum := 0
	for _, b := range h[:67] {
		sum += int(b)
	}
	putLE16(h[67:69], uint16(sum))
	return h
}

func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func splitAmsdosName(path string) (name, ext string) {
	base := strings.ToUpper(filepath.Base(path))
	e := filepath.Ext(base)
	name = strings.TrimSuffix(base, e)
	if len(name) > 8 {
		name = name[:8]
	}
	ext = strings.TrimPrefix(e, ".")
	if len(ext) > 3 {
		ext = ext[:3]
	}
	return name, ext
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}
