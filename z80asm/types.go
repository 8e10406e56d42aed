// Package z80asm implements the multi-pass Z80 assembler described in
// spec section 4.4: it walks a token.Listing, evaluating expressions
// against a symtab.Table and encoding instructions to bytes, iterating
// passes until the symbol table stabilizes. Grounded on the pass
// structure of gmofishsauce/wut4/asm/assembler.go's assemble() function
// (single growing output buffer, a fixup list for forward references,
// emitWord/emitByte helpers) generalized from wut4's one-pass-plus-
// fixups model to the spec's full fixed-point multi-pass model, and on
// asm/codegen.go's instruction-format dispatch table, widened from
// wut4's eight formats to the full documented+undocumented Z80 opcode
// map.
package z80asm

import (
	"github.com/gmofishsauce/cpcasm/diag"
	"github.com/gmofishsauce/cpcasm/value"
)

// SaveSpec is one deferred SAVE directive: a byte range of the final
// output, to be written out in whichever container variant it named
// (spec section 6.1).
type SaveSpec struct {
	Path          string
	Variant       SaveVariant
	Start, Length int64
	HasRange      bool // false means "from ORG to end of assembly"
	ExecAddress   int64
	HasExec       bool
}

// SaveVariant mirrors token.SaveVariant without importing token into
// every consumer of z80asm's public Output type.
type SaveVariant int

const (
	SaveRaw SaveVariant = iota
	SaveAmsdosBinary
	SaveAmsdosBasic
	SaveSnapshot
)

// Warning is an informational message produced by PRINT or a
// non-fatal condition noticed while assembling.
type Warning struct {
	Message string
}

// Output is the result of a successful (or partially successful)
// assembly, per spec section 4.4's "Output" fields.
type Output struct {
	Bytes          []byte
	LoadAddress    int64
	HasLoad        bool
	ExecAddress    int64
	HasExec        bool
	Symbols        map[string]value.Value
	Warnings       []Warning
	DeferredWrites []SaveSpec
}

// AssemblerOptions configures one Assemble invocation (spec section
// 4.4's AssemblerOptions).
type AssemblerOptions struct {
	MaxPasses       int
	MaxMacroDepth   int
	StartupSymbols  map[string]value.Value
	CaseInsensitive bool
	Laxist          bool
	Werror          bool
	ListingSink     func(line string)
}

func DefaultOptions() AssemblerOptions {
	return AssemblerOptions{MaxPasses: 20, MaxMacroDepth: 64}
}

// IncludeLoader resolves INCBIN paths to raw file content.
type IncludeLoader interface {
	Load(path string) ([]byte, error)
}

// Result bundles an Output with any errors collected across the final
// pass, matching the parser's "collect everything, don't stop at the
// first" posture.
type Result struct {
	Output Output
	Errors []*diag.Error
}
