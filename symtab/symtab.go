// Package symtab implements the assembler's symbol table (spec section
// 3.3 and 4.3): a name-to-value map supporting case-insensitive lookup,
// dotted/local names scoped to the nearest enclosing label, and the
// insertion/overwrite semantics EQU/SET/DEFL each need.
package symtab

import (
	"fmt"
	"strings"

	"github.com/gmofishsauce/cpcasm/token"
	"github.com/gmofishsauce/cpcasm/value"
)

// MacroDef is the payload of a value.Macro symbol.
type MacroDef struct {
	Params []string
	Body   token.Listing
}

// StructDef is the payload of a value.Struct symbol.
type StructDef struct {
	Fields []token.FieldDef
}

type entry struct {
	name     string
	value    value.Value
	resolved bool // false while the value is still tentative this pass
	order    int  // insertion order, for Iter
	epoch    int  // pass number that last wrote this entry
}

// Table is one assembler invocation's symbol table. It is never shared
// across invocations (spec section 5).
type Table struct {
	caseInsensitive bool
	laxist          bool
	m               map[string]*entry
	nextOrder       int
	epoch           int

	currentAddr int64
	addrKnown   bool

	// scope is the dotted-name prefix stack: the name of the nearest
	// enclosing non-local label, then any MODULE prefixes around it.
	scopeLabel string
	modulePath []string
}

// New creates an empty symbol table.
func New(caseInsensitive, laxist bool) *Table {
	return &Table{
		caseInsensitive: caseInsensitive,
		laxist:          laxist,
		m:               make(map[string]*entry),
	}
}

func (t *Table) key(name string) string {
	if t.caseInsensitive {
		return strings.ToLower(name)
	}
	return name
}

// Laxist reports whether unknown symbols should resolve to 1.
func (t *Table) Laxist() bool { return t.laxist }

// PushModule enters a MODULE namespace; labels defined until the
// matching PopModule are qualified as module.label.
func (t *Table) PushModule(name string) {
	t.modulePath = append(t.modulePath, name)
}

// PopModule leaves the innermost MODULE namespace.
func (t *Table) PopModule() {
	if len(t.modulePath) > 0 {
		t.modulePath = t.modulePath[:len(t.modulePath)-1]
	}
}

func (t *Table) modulePrefix() string {
	if len(t.modulePath) == 0 {
		return ""
	}
	return strings.Join(t.modulePath, ".") + "."
}

// SetScopeLabel records the nearest enclosing non-local label, used to
// qualify subsequent dotted local labels. Local names are ignored: a
// `.local` label never becomes the scope for later locals.
func (t *Table) SetScopeLabel(name string) {
	if isLocalName(name) {
		return
	}
	t.scopeLabel = name
}

// isLocalName reports whether name uses a local-label prefix: `.` in
// the default grammar, `@` in orgams mode (spec 4.1's label semantics).
// Both are accepted here unconditionally; the parser only produces
// `@`-prefixed names when OrgamsMode is set.
func isLocalName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "@")
}

// qualify resolves a possibly-local name to the fully-qualified form
// used as the map key, per spec 4.3: a name beginning with a local
// prefix is qualified with the nearest enclosing non-local label.
func (t *Table) qualify(name string) string {
	if isLocalName(name) && t.scopeLabel != "" {
		return t.modulePrefix() + t.scopeLabel + "." + strings.TrimLeft(name, ".@")
	}
	return t.modulePrefix() + name
}

// Lookup implements expr.Resolver. Local names try the qualified form
// first, then the bare form (spec 4.3).
func (t *Table) Lookup(name string) (v value.Value, ok bool, needsResolution bool) {
	if isLocalName(name) {
		if e, found := t.m[t.key(t.qualify(name))]; found {
			return e.value, true, !e.resolved
		}
	}
	if e, found := t.m[t.key(t.modulePrefix()+name)]; found {
		return e.value, true, !e.resolved
	}
	if e, found := t.m[t.key(name)]; found {
		return e.value, true, !e.resolved
	}
	return value.Value{}, false, false
}

// CurrentAddress implements expr.Resolver.
func (t *Table) CurrentAddress() (int64, bool) { return t.currentAddr, t.addrKnown }

// SetCurrentAddress sets `$`.
func (t *Table) SetCurrentAddress(addr int64) {
	t.currentAddr = addr
	t.addrKnown = true
}

// ClearCurrentAddress marks `$` unknown again (used when resetting a
// pass before the first ORG).
func (t *Table) ClearCurrentAddress() {
	t.addrKnown = false
}

func (t *Table) rawKey(name string) string {
	return t.key(t.qualify(name))
}

// BeginPass starts a new assembler pass: symbols written in earlier
// passes may be freely refined, but a second write within the same pass
// is a duplicate definition (spec 4.4's "defined exactly once per pass").
func (t *Table) BeginPass() {
	t.epoch++
	t.scopeLabel = ""
	t.modulePath = nil
}

// Define inserts name=value, failing if the name is already defined in
// this pass with a different value. A value carried over from an earlier
// pass is overwritten, which is how labels settle as addresses shift
// between passes. SET/DEFL/`=` callers should use Assign instead, which
// always overwrites.
func (t *Table) Define(name string, v value.Value) error {
	key := t.rawKey(name)
	if e, ok := t.m[key]; ok && e.resolved && e.epoch == t.epoch && !valuesEqual(e.value, v) {
		return fmt.Errorf("symbol %q already defined", name)
	}
	t.insert(key, name, v, true)
	return nil
}

// DefineOnce is EQU's semantics: the symbol must not already be defined
// in this pass, regardless of value.
func (t *Table) DefineOnce(name string, v value.Value) error {
	key := t.rawKey(name)
	if e, ok := t.m[key]; ok && e.resolved && e.epoch == t.epoch {
		return fmt.Errorf("symbol %q already defined", name)
	}
	t.insert(key, name, v, true)
	return nil
}

// Assign overwrites name unconditionally (SET/SETN/DEFL/`=`).
func (t *Table) Assign(name string, v value.Value) {
	t.insert(t.rawKey(name), name, v, true)
}

// MarkUnresolved records that name exists but could not be evaluated
// this pass (used by the assembler to surface NeedsResolution without
// discarding the symbol's prior-pass value for display purposes).
func (t *Table) MarkUnresolved(name string) {
	key := t.rawKey(name)
	if e, ok := t.m[key]; ok {
		e.resolved = false
		e.epoch = t.epoch
		return
	}
	t.insert(key, name, value.Value{Kind: value.Deferred}, false)
}

func (t *Table) insert(key, displayName string, v value.Value, resolved bool) {
	if e, ok := t.m[key]; ok {
		e.value = v
		e.resolved = resolved
		e.epoch = t.epoch
		return
	}
	t.m[key] = &entry{name: displayName, value: v, resolved: resolved, order: t.nextOrder, epoch: t.epoch}
	t.nextOrder++
}

// Remove deletes a symbol.
func (t *Table) Remove(name string) {
	delete(t.m, t.rawKey(name))
}

// Snapshot captures every defined symbol's current value, for pass
// convergence comparison and for Output.Symbols. A name qualified by a
// MODULE prefix or a dotted-local scope is exported under both its
// fully-qualified key and its bare name, matching the original's
// symbol-file writer (see SPEC_FULL.md).
func (t *Table) Snapshot() map[string]value.Value {
	out := make(map[string]value.Value, len(t.m))
	for k, e := range t.m {
		out[k] = e.value
		if bare := t.key(e.name); bare != k {
			out[bare] = e.value
		}
	}
	return out
}

// Unstable returns the names whose value changed (or became resolved)
// between two snapshots, or that are still marked unresolved.
func (t *Table) Unstable(prev map[string]value.Value) []string {
	var names []string
	for k, e := range t.m {
		if !e.resolved {
			names = append(names, e.name)
			continue
		}
		old, existed := prev[k]
		if !existed || !valuesEqual(old, e.value) {
			names = append(names, e.name)
		}
	}
	return names
}

// Pair is one (name, value) entry returned by Iter, in insertion order.
type Pair struct {
	Name  string
	Value value.Value
	order int
}

// Iter returns every symbol in insertion order, for symbol-file export
// (spec 4.3). Each symbol appears once, under the name it was defined
// with; unlike Snapshot, MODULE-qualified forms are not added.
func (t *Table) Iter() []Pair {
	pairs := make([]Pair, 0, len(t.m))
	for _, e := range t.m {
		pairs = append(pairs, Pair{Name: e.name, Value: e.value, order: e.order})
	}
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j-1].order > pairs[j].order; j-- {
			pairs[j-1], pairs[j] = pairs[j], pairs[j-1]
		}
	}
	return pairs
}

func valuesEqual(a, b value.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case value.Float:
		return a.Float == b.Float
	case value.String:
		return a.Str == b.Str
	default:
		return a.Int == b.Int && a.IsAddress == b.IsAddress
	}
}
