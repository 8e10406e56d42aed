package main

import (
	"os"
	"strings"

	"golang.org/x/term"
)

const defaultWrapWidth = 80

// wrapDiag wraps a multi-line diagnostic message to the terminal width,
// the way gmofishsauce/wut4/emul/main.go reaches for term.GetSize rather
// than assuming a fixed console width; falls back to 80 columns when
// stderr isn't a terminal (piped output, CI logs).
func wrapDiag(msg string) string {
	width := defaultWrapWidth
	if term.IsTerminal(int(os.Stderr.Fd())) {
		if w, _, err := term.GetSize(int(os.Stderr.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	var out []string
	for _, line := range strings.Split(msg, "\n") {
		out = append(out, wrapLine(line, width))
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int) string {
	if len(line) <= width {
		return line
	}
	var b strings.Builder
	col := 0
	words := strings.Fields(line)
	for i, w := range words {
		if col > 0 && col+1+len(w) > width {
			b.WriteByte('\n')
			col = 0
		} else if i > 0 {
			b.WriteByte(' ')
			col++
		}
		b.WriteString(w)
		col += len(w)
	}
	return b.String()
}
