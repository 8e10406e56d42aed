// Command basm drives the Z80 assembler, the Locomotive BASIC codec, and
// the EDSK disc-image codec from the shell. It is the "documented
// interface" spec section 1 pushes CLI handling, progress display, and
// file I/O convenience behind: none of the logic here is part of the
// assembler core. Mode dispatch and flag layout follow
// gmofishsauce/wut4/asm/main.go's single flag.Bool-per-mode style.
package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	basicEncode := flag.Bool("tok", false, "tokenize a Locomotive BASIC source file")
	basicDecode := flag.Bool("detok", false, "detokenize a Locomotive BASIC token file")
	edskInfo := flag.Bool("dsk-info", false, "print an EDSK image's track/sector layout")
	output := flag.String("o", "", "output file (default: derived from the input name)")
	maxPasses := flag.Int("max-passes", 20, "maximum assembler passes before giving up")
	caseInsensitive := flag.Bool("i", false, "case-insensitive mnemonics and symbols")
	dottedDirectives := flag.Bool("dotted", false, "accept a leading dot on directives (.org, .db, ...)")
	orgamsMode := flag.Bool("orgams", false, "enable Orgams-compatible syntax extensions")
	werror := flag.Bool("werror", false, "treat warnings as errors")
	laxist := flag.Bool("laxist", false, "treat unknown symbols as 1 (syntax-only checking)")
	listing := flag.Bool("list", false, "print an assembly listing to stdout")
	progress := flag.Bool("progress", false, "report parse/assemble progress to stderr")
	includeDirs := flag.String("I", "", "comma-separated directories searched for INCLUDE/INCBIN files")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: an input file is required")
		os.Exit(1)
	}
	inputFile := flag.Arg(0)

	var err error
	switch {
	case *basicEncode:
		err = runBasicEncode(inputFile, *output)
	case *basicDecode:
		err = runBasicDecode(inputFile, *output)
	case *edskInfo:
		err = runEdskInfo(inputFile)
	default:
		err = runAssemble(inputFile, *output, assembleFlags{
			maxPasses:        *maxPasses,
			caseInsensitive:  *caseInsensitive,
			dottedDirectives: *dottedDirectives,
			orgamsMode:       *orgamsMode,
			werror:           *werror,
			laxist:           *laxist,
			listing:          *listing,
			progress:         *progress,
			includeDirs:      splitDirs(*includeDirs),
		})
	}

	if err != nil {
		reportError(err)
		os.Exit(1)
	}
}
