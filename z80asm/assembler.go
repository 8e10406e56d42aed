package z80asm

import (
	"context"
	"fmt"

	"github.com/gmofishsauce/cpcasm/diag"
	"github.com/gmofishsauce/cpcasm/expr"
	"github.com/gmofishsauce/cpcasm/span"
	"github.com/gmofishsauce/cpcasm/symtab"
	"github.com/gmofishsauce/cpcasm/token"
	"github.com/gmofishsauce/cpcasm/value"
)

// assembler holds the state threaded through one Assemble() call's
// pass loop: the symbol table (long-lived across passes), the current
// pass's growing byte buffer, and the bookkeeping spec 4.4 needs to
// decide whether another pass is warranted. Grounded on the single
// Assembler struct in gmofishsauce/wut4/asm/types.go that threads
// output buffer + fixups through wut4's assemble(), generalized to a
// fixed-point multi-pass loop instead of wut4's one-pass-plus-fixups.
type assembler struct {
	ctx    context.Context
	opts   AssemblerOptions
	loader IncludeLoader
	table  *symtab.Table

	bytes       []byte
	baseAddr    int64
	haveBase    bool
	execAddr    int64
	haveExec    bool
	warnings    []Warning
	deferred    []SaveSpec
	errs        []*diag.Error
	unstable    bool
	finalPass   bool
	cancelled   bool
	repeatDepth int
	macroDepth  int
	limit       int64
	limitHit    bool
	fieldOffset int64
}

// Assemble runs the multi-pass assembler over listing until the symbol
// table stabilizes or the pass budget is exhausted (spec 4.4).
func Assemble(listing token.Listing, opts AssemblerOptions, loader IncludeLoader) Result {
	return AssembleContext(context.Background(), listing, opts, loader)
}

// AssembleContext is Assemble with cooperative cancellation: the walk
// polls ctx between tokens and, once it reports cancellation, discards
// the partial output and returns a single Cancelled error.
func AssembleContext(ctx context.Context, listing token.Listing, opts AssemblerOptions, loader IncludeLoader) Result {
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultOptions().MaxPasses
	}
	if opts.MaxMacroDepth <= 0 {
		opts.MaxMacroDepth = DefaultOptions().MaxMacroDepth
	}
	a := &assembler{ctx: ctx, opts: opts, loader: loader, table: symtab.New(opts.CaseInsensitive, opts.Laxist)}
	for name, v := range opts.StartupSymbols {
		a.table.Assign(name, v)
	}

	var prevSnapshot map[string]value.Value
	forceFinal := false
	for pass := 1; pass <= opts.MaxPasses; pass++ {
		a.bytes = nil
		a.baseAddr = 0
		a.haveBase = false
		a.execAddr = 0
		a.haveExec = false
		a.warnings = nil
		a.deferred = nil
		a.errs = nil
		a.unstable = false
		a.limit = 0x10000
		a.limitHit = false
		a.fieldOffset = 0
		a.table.ClearCurrentAddress()
		a.table.BeginPass()
		a.finalPass = forceFinal || pass == opts.MaxPasses

		a.walk(listing)
		if a.cancelled {
			return Result{Errors: []*diag.Error{diag.Cancelled}}
		}

		unresolvedNames := a.table.Unstable(prevSnapshot)
		if a.finalPass {
			if len(a.errs) == 0 {
				if len(unresolvedNames) > 0 {
					a.errs = append(a.errs, diag.Container("unstable symbols after %d passes: %v", opts.MaxPasses, unresolvedNames))
				} else if a.unstable && !forceFinal {
					a.errs = append(a.errs, diag.Container("assembly did not converge after %d passes", opts.MaxPasses))
				}
			}
			return a.result()
		}
		if !a.unstable && len(unresolvedNames) == 0 {
			// Converged: one more walk with finalPass set, so that
			// diagnostics suppressed during intermediate passes are
			// reported and the listing sink sees the settled bytes.
			forceFinal = true
		}
		prevSnapshot = a.table.Snapshot()
	}
	return a.result()
}

func (a *assembler) result() Result {
	if a.opts.Werror && len(a.warnings) > 0 {
		// Promote every warning to an error and suppress the output
		// bytes (spec section 7's werror semantics).
		for _, w := range a.warnings {
			a.errs = append(a.errs, diag.Assembly(span.Span{}, "warning treated as error: %s", w.Message))
		}
		return Result{Output: Output{Symbols: a.table.Snapshot()}, Errors: a.errs}
	}
	out := Output{
		Bytes:          a.bytes,
		LoadAddress:    a.baseAddr,
		HasLoad:        a.haveBase,
		ExecAddress:    a.execAddr,
		HasExec:        a.haveExec,
		Symbols:        a.table.Snapshot(),
		Warnings:       a.warnings,
		DeferredWrites: a.deferred,
	}
	return Result{Output: out, Errors: a.errs}
}

func (a *assembler) currentAddr() int64 {
	addr, known := a.table.CurrentAddress()
	if !known {
		return 0
	}
	return addr
}

func (a *assembler) setAddr(addr int64) {
	a.table.SetCurrentAddress(addr)
	if !a.haveBase {
		a.haveBase = true
		a.baseAddr = addr
	}
}

// emit appends b at the current address, relative to the first ORG's
// address (a.baseAddr): Output.Bytes is the contiguous block starting
// at LoadAddress, not an absolute buffer indexed from address zero
// (spec section 8 scenario 3 shows output "starting at 0x100" with no
// leading padding).
func (a *assembler) emit(b []byte) {
	addr := a.currentAddr()
	if !a.haveBase {
		a.haveBase = true
		a.baseAddr = addr
	}
	if addr+int64(len(b)) > a.limit && a.finalPass && !a.limitHit {
		a.limitHit = true
		a.addError(span.Span{}, "output crosses the %#x limit at %#x", a.limit, addr)
	}
	if addr < a.baseAddr {
		// A later ORG moved below the first one seen this pass (banking):
		// shift the existing buffer forward so it stays contiguous from
		// the new, lower base.
		shift := a.baseAddr - addr
		grown := make([]byte, int64(len(a.bytes))+shift)
		copy(grown[shift:], a.bytes)
		a.bytes = grown
		a.baseAddr = addr
	}
	rel := addr - a.baseAddr
	end := rel + int64(len(b))
	if end > int64(len(a.bytes)) {
		grown := make([]byte, end)
		copy(grown, a.bytes)
		a.bytes = grown
	}
	copy(a.bytes[rel:end], b)
	a.setAddr(addr + int64(len(b)))
}

func (a *assembler) evalAt(n *expr.Node) (int64, bool, error) {
	v, status, err := expr.Eval(n, a.table)
	switch status {
	case expr.OK:
		return v.AsInt64(), true, nil
	case expr.NeedsResolution:
		return 0, false, nil
	default:
		return 0, false, err
	}
}

func (a *assembler) addError(sp span.Span, format string, args ...any) {
	a.errs = append(a.errs, diag.Assembly(sp, format, args...))
}

// walk processes every token in listing in order, threading address and
// symbol-table state through directives, labels, and opcodes.
func (a *assembler) walk(listing token.Listing) {
	for _, tok := range listing.Tokens {
		if a.cancelled {
			return
		}
		if a.ctx != nil && a.ctx.Err() != nil {
			a.cancelled = true
			return
		}
		a.walkOne(tok)
	}
}

func (a *assembler) walkOne(tok token.Token) {
	if tok.Label != "" {
		a.defineLabel(tok.Label)
	}

	switch tok.Kind {
	case token.KLabel:
		a.defineLabel(tok.LabelName)
	case token.KComment:
		// no-op
	case token.KOpcode:
		a.assembleOpcode(tok)
	case token.KAssign:
		a.assembleAssign(tok)
	case token.KDirective:
		a.assembleDirective(tok)
	case token.KMacroCall:
		a.assembleMacroCall(tok)
	case token.KStructCall:
		a.assembleMacroCall(tok)
	case token.KIncludeExpanded:
		if tok.Included != nil {
			a.walk(*tok.Included)
		}
	}
}

func (a *assembler) defineLabel(name string) {
	addr, known := a.table.CurrentAddress()
	if !known {
		a.table.MarkUnresolved(name)
		a.unstable = true
		return
	}
	if err := a.table.Define(name, value.OfAddress(addr)); err != nil {
		if a.finalPass {
			a.addError(span.Span{}, "%v", err)
		}
	}
	a.table.SetScopeLabel(name)
}

func (a *assembler) assembleOpcode(tok token.Token) {
	addr := a.currentAddr()
	bytes, ok, err := encodeInstruction(tok, addr, a.evalAt)
	if err != nil {
		if a.finalPass {
			a.addError(tok.Span, "%v", err)
		}
		// Keep `$` advancing by the instruction's natural length so the
		// rest of the pass still produces meaningful addresses; the
		// error itself is reported once the symbol table settles.
		length, lerr := instrLength(tok)
		if lerr == nil {
			a.emit(make([]byte, length))
		}
		return
	}
	if !ok {
		a.unstable = true
	}
	a.emit(bytes)
	a.listLine(addr, bytes, tok.Span)
}

// listLine writes one formatted listing line (address, encoded bytes,
// source text) to the optional ListingSink on the final pass (spec
// 6.1's listing_sink).
func (a *assembler) listLine(addr int64, bytes []byte, sp span.Span) {
	if !a.finalPass || a.opts.ListingSink == nil {
		return
	}
	a.opts.ListingSink(fmt.Sprintf("%04X  % X\t%s", uint16(addr), bytes, sp.Text()))
}

func (a *assembler) assembleAssign(tok token.Token) {
	if tok.AssignMode == token.ModeNext {
		a.assembleNext(tok)
		return
	}

	v, status, err := a.evalAssignValue(tok)
	switch status {
	case expr.NeedsResolution:
		a.table.MarkUnresolved(tok.Name)
		a.unstable = true
		return
	case expr.Failed:
		if a.finalPass {
			a.addError(tok.Span, "%v", err)
		}
		a.unstable = true
		return
	}

	switch tok.AssignMode {
	case token.ModeEqu:
		if err := a.table.DefineOnce(tok.Name, v); err != nil && a.finalPass {
			a.addError(tok.Span, "%v", err)
		}
	case token.ModeSet, token.ModeSetN, token.ModeAssign, token.ModeCompound:
		a.table.Assign(tok.Name, v)
	case token.ModeField:
		// FIELD binds the name to the running field offset and advances
		// the offset by the field's size, the Maxam-style structure-map
		// counter. The counter restarts at zero each pass.
		a.table.Assign(tok.Name, value.OfInt(a.fieldOffset))
		a.fieldOffset += v.AsInt64()
	}
}

// assembleNext implements `name NEXT source [, step]`: name takes the
// source counter's current value, then the counter advances by step
// (default 1). The sibling of FIELD for hand-built allocation counters.
func (a *assembler) assembleNext(tok token.Token) {
	v, ok, needs := a.table.Lookup(tok.SourceLabel)
	if needs {
		a.table.MarkUnresolved(tok.Name)
		a.unstable = true
		return
	}
	if !ok {
		if a.table.Laxist() {
			v = value.OfInt(1)
		} else {
			if a.finalPass {
				a.addError(tok.Span, "unknown symbol in NEXT: %s", tok.SourceLabel)
			}
			a.unstable = true
			return
		}
	}
	step := int64(1)
	if tok.Displacement != nil {
		s, sok, err := a.evalAt(tok.Displacement)
		if err != nil {
			if a.finalPass {
				a.addError(tok.Span, "%v", err)
			}
			a.unstable = true
			return
		}
		if !sok {
			a.unstable = true
			return
		}
		step = s
	}
	a.table.Assign(tok.Name, value.OfInt(v.AsInt64()))
	a.table.Assign(tok.SourceLabel, value.OfInt(v.AsInt64()+step))
}

func (a *assembler) evalAssignValue(tok token.Token) (value.Value, expr.Status, error) {
	if tok.AssignMode != token.ModeCompound {
		return expr.Eval(tok.ValueExpr, a.table)
	}
	old, ok, needs := a.table.Lookup(tok.Name)
	if needs {
		return value.Value{}, expr.NeedsResolution, nil
	}
	if !ok {
		if a.table.Laxist() {
			old = value.OfInt(1)
		} else {
			return value.Value{}, expr.Failed, fmt.Errorf("unknown symbol in compound assignment: %s", tok.Name)
		}
	}
	rhs, status, err := expr.Eval(tok.ValueExpr, a.table)
	if status != expr.OK {
		return value.Value{}, status, err
	}
	combined := &expr.Node{Kind: expr.Binary, BinOp: tok.CompoundOp,
		L: &expr.Node{Kind: expr.Int, Int: old.AsInt64()},
		R: &expr.Node{Kind: expr.Int, Int: rhs.AsInt64()}}
	return expr.Eval(combined, a.table)
}

func (a *assembler) assembleMacroCall(tok token.Token) {
	v, ok, needs := a.table.Lookup(tok.Callee)
	if needs {
		a.unstable = true
		return
	}
	if !ok {
		if a.finalPass {
			a.addError(tok.Span, "unknown macro or struct: %s", tok.Callee)
		}
		a.unstable = true
		return
	}
	switch v.Kind {
	case value.Macro:
		def, ok := v.Aux.(*symtab.MacroDef)
		if !ok {
			if a.finalPass {
				a.addError(tok.Span, "%s is not a macro", tok.Callee)
			}
			return
		}
		a.expandMacro(tok, def)
	case value.Struct:
		def, ok := v.Aux.(*symtab.StructDef)
		if !ok {
			if a.finalPass {
				a.addError(tok.Span, "%s is not a struct", tok.Callee)
			}
			return
		}
		a.instantiateStruct(def)
	default:
		if a.finalPass {
			a.addError(tok.Span, "%s is not callable", tok.Callee)
		}
	}
}

func (a *assembler) expandMacro(call token.Token, def *symtab.MacroDef) {
	if a.macroDepth >= a.opts.MaxMacroDepth {
		a.errs = append(a.errs, diag.Directive(call.Span, "macro recursion depth exceeded (%d) expanding %s", a.opts.MaxMacroDepth, call.Callee))
		return
	}
	a.macroDepth++
	defer func() { a.macroDepth-- }()

	for i, param := range def.Params {
		if i >= len(call.Args) {
			break
		}
		arg := call.Args[i]
		if arg.IsRaw {
			continue
		}
		v, status, err := expr.Eval(arg.Expr, a.table)
		if status != expr.OK {
			a.unstable = true
			if status == expr.Failed && a.finalPass {
				a.addError(call.Span, "%v", err)
			}
			continue
		}
		a.table.Assign(param, v)
	}
	a.walk(def.Body)
	for _, param := range def.Params {
		a.table.Remove(param)
	}
}

func (a *assembler) instantiateStruct(def *symtab.StructDef) {
	for _, f := range def.Fields {
		switch f.Shape {
		case token.DirDEFB:
			n := a.countOrOne(f.Count)
			a.emit(make([]byte, n))
		case token.DirDEFW:
			n := a.countOrOne(f.Count)
			a.emit(make([]byte, n*2))
		case token.DirDEFS:
			n := a.countOrOne(f.Count)
			a.emit(make([]byte, n))
		}
	}
}

func (a *assembler) countOrOne(n *expr.Node) int64 {
	if n == nil {
		return 1
	}
	v, ok, err := a.evalAt(n)
	if err != nil || !ok {
		a.unstable = true
		return 0
	}
	return v
}
