package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gmofishsauce/cpcasm/diag"
	"github.com/gmofishsauce/cpcasm/span"
	"github.com/gmofishsauce/cpcasm/z80asm"
	"github.com/gmofishsauce/cpcasm/z80parser"
)

type assembleFlags struct {
	maxPasses        int
	caseInsensitive  bool
	dottedDirectives bool
	orgamsMode       bool
	werror           bool
	laxist           bool
	listing          bool
	progress         bool
	includeDirs      []string
}

// runAssemble parses and assembles inputFile, reporting every collected
// diagnostic (spec 4.1/4.4's "collect everything" posture) before
// executing any deferred SAVE writes.
func runAssemble(inputFile, output string, flags assembleFlags) error {
	src, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputFile, err)
	}

	popts := span.DefaultOptions()
	popts.CaseInsensitive = flags.caseInsensitive
	popts.DottedDirectives = flags.dottedDirectives
	popts.OrgamsMode = flags.orgamsMode
	popts.LaxistUnknownSymbols = flags.laxist
	popts.ShowProgress = flags.progress
	popts.SearchPaths = flags.includeDirs
	popts.MaxIncludeDepth = 20

	arena := span.NewArena(popts)
	buf := arena.AddBuffer(inputFile, src)
	loader := &fileLoader{sourceDir: filepath.Dir(inputFile), searchPaths: flags.includeDirs}

	listing, perrs := z80parser.Parse(arena, buf, &popts, loader)
	if popts.ShowProgress {
		fmt.Fprintf(os.Stderr, "%s: %d token(s) parsed\n", inputFile, len(listing.Tokens))
	}
	if len(perrs) > 0 {
		for _, e := range perrs {
			reportError(e)
		}
		return fmt.Errorf("%d parse error(s)", len(perrs))
	}

	aopts := z80asm.DefaultOptions()
	aopts.MaxPasses = flags.maxPasses
	aopts.CaseInsensitive = flags.caseInsensitive
	aopts.Werror = flags.werror
	aopts.Laxist = flags.laxist
	if flags.listing {
		aopts.ListingSink = func(line string) { fmt.Println(line) }
	}

	result := z80asm.Assemble(listing, aopts, loader)
	for _, w := range result.Output.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w.Message)
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			reportError(e)
		}
		return fmt.Errorf("%d assembly error(s)", len(result.Errors))
	}

	outPath := output
	if outPath == "" {
		outPath = replaceExt(inputFile, ".bin")
	}
	if err := os.WriteFile(outPath, result.Output.Bytes, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	for _, save := range result.Output.DeferredWrites {
		if err := writeSave(save, result.Output); err != nil {
			return err
		}
	}
	return nil
}

func splitDirs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func replaceExt(path, ext string) string {
	base := path[:len(path)-len(filepath.Ext(path))]
	return base + ext
}

func reportError(err error) {
	if e, ok := err.(*diag.Error); ok {
		fmt.Fprintln(os.Stderr, wrapDiag(e.Error()))
		return
	}
	fmt.Fprintln(os.Stderr, wrapDiag(err.Error()))
}
