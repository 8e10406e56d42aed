package symtab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/cpcasm/expr"
	"github.com/gmofishsauce/cpcasm/value"
)

func TestDefineRejectsConflictingRedefinition(t *testing.T) {
	tab := New(false, false)
	require.NoError(t, tab.Define("FOO", value.OfInt(1)))
	require.Error(t, tab.Define("FOO", value.OfInt(2)))
}

func TestAssignOverwrites(t *testing.T) {
	tab := New(false, false)
	tab.Assign("COUNTER", value.OfInt(1))
	tab.Assign("COUNTER", value.OfInt(2))
	v, ok, needs := tab.Lookup("COUNTER")
	require.True(t, ok)
	require.False(t, needs)
	require.EqualValues(t, 2, v.Int)
}

func TestCaseInsensitiveLookup(t *testing.T) {
	tab := New(true, false)
	tab.Assign("Start", value.OfAddress(0x8000))
	v, ok, _ := tab.Lookup("START")
	require.True(t, ok)
	require.EqualValues(t, 0x8000, v.Int)
}

func TestDottedLocalLabelScoping(t *testing.T) {
	tab := New(false, false)
	tab.SetScopeLabel("loop")
	tab.Assign(".again", value.OfAddress(0x100))
	v, ok, _ := tab.Lookup(".again")
	require.True(t, ok)
	require.EqualValues(t, 0x100, v.Int)

	tab.SetScopeLabel("other")
	_, ok, _ = tab.Lookup(".again")
	require.False(t, ok, "local label scoped to a different parent must not resolve")
}

func TestLaxistUnknownSymbolIsOne(t *testing.T) {
	tab := New(false, true)
	require.True(t, tab.Laxist())
	v, status, err := expr.Eval(&expr.Node{Kind: expr.Symbol, Symbol: "MISSING"}, tab)
	require.NoError(t, err)
	require.Equal(t, expr.OK, status)
	require.EqualValues(t, 1, v.Int)
}

func TestUnstableDetectsChange(t *testing.T) {
	tab := New(false, false)
	tab.Assign("X", value.OfInt(1))
	snap := tab.Snapshot()
	tab.Assign("X", value.OfInt(2))
	names := tab.Unstable(snap)
	require.Contains(t, names, "X")
}

func TestSnapshotExportsBareAndQualifiedModuleNames(t *testing.T) {
	tab := New(false, false)
	tab.PushModule("Sound")
	tab.Assign("VOLUME", value.OfInt(7))
	tab.PopModule()

	snap := tab.Snapshot()
	require.Contains(t, snap, "Sound.VOLUME")
	require.Contains(t, snap, "VOLUME")
	require.EqualValues(t, 7, snap["Sound.VOLUME"].Int)
	require.EqualValues(t, 7, snap["VOLUME"].Int)
}

func TestIterIsInsertionOrdered(t *testing.T) {
	tab := New(false, false)
	tab.Assign("B", value.OfInt(1))
	tab.Assign("A", value.OfInt(2))
	pairs := tab.Iter()
	require.Len(t, pairs, 2)
	require.Equal(t, "B", pairs[0].Name)
	require.Equal(t, "A", pairs[1].Name)
}

func TestBeginPassAllowsCrossPassRefinement(t *testing.T) {
	tab := New(false, false)
	tab.BeginPass()
	require.NoError(t, tab.DefineOnce("FOO", value.OfInt(1)))
	require.Error(t, tab.DefineOnce("FOO", value.OfInt(1)), "second EQU in the same pass is a duplicate")
	tab.BeginPass()
	require.NoError(t, tab.DefineOnce("FOO", value.OfInt(2)), "a later pass may refine the value")
}

func TestOrgamsLocalLabelScoping(t *testing.T) {
	tab := New(false, false)
	tab.SetScopeLabel("outer")
	tab.Assign("@skip", value.OfAddress(0x200))
	v, ok, _ := tab.Lookup("@skip")
	require.True(t, ok)
	require.EqualValues(t, 0x200, v.Int)

	tab.SetScopeLabel("@skip") // ignored: locals never become the scope
	_, ok, _ = tab.Lookup("@skip")
	require.True(t, ok)
}
