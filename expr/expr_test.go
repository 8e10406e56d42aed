package expr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/cpcasm/expr"
	"github.com/gmofishsauce/cpcasm/value"
)

// fakeResolver is a minimal expr.Resolver for unit tests: a plain map of
// symbols plus an optional current address, no span/symtab dependency.
type fakeResolver struct {
	symbols map[string]value.Value
	unres   map[string]bool
	addr    int64
	known   bool
	laxist  bool
}

func (r *fakeResolver) Lookup(name string) (value.Value, bool, bool) {
	if r.unres[name] {
		return value.Value{}, false, true
	}
	v, ok := r.symbols[name]
	return v, ok, false
}

func (r *fakeResolver) CurrentAddress() (int64, bool) { return r.addr, r.known }
func (r *fakeResolver) Laxist() bool                  { return r.laxist }

func intNode(v int64) *expr.Node { return &expr.Node{Kind: expr.Int, Int: v} }

func binNode(op expr.BinaryOp, l, r *expr.Node) *expr.Node {
	return &expr.Node{Kind: expr.Binary, BinOp: op, L: l, R: r}
}

func TestEvalArithmeticPrecedenceIndependentOfTreeShape(t *testing.T) {
	// (2 + 3) * 4
	n := binNode(expr.Mul, binNode(expr.Add, intNode(2), intNode(3)), intNode(4))
	r := &fakeResolver{}
	v, status, err := expr.Eval(n, r)
	require.NoError(t, err)
	require.Equal(t, expr.OK, status)
	require.EqualValues(t, 20, v.Int)
}

func TestDivisionByZeroIsAnError(t *testing.T) {
	n := binNode(expr.Div, intNode(1), intNode(0))
	_, status, err := expr.Eval(n, &fakeResolver{})
	require.Equal(t, expr.Failed, status)
	require.Error(t, err)
}

func TestModuloByZeroIsAnError(t *testing.T) {
	n := binNode(expr.Mod, intNode(1), intNode(0))
	_, status, err := expr.Eval(n, &fakeResolver{})
	require.Equal(t, expr.Failed, status)
	require.Error(t, err)
}

func TestShiftByNegativeCountIsAnError(t *testing.T) {
	n := binNode(expr.Shl, intNode(1), intNode(-1))
	_, status, err := expr.Eval(n, &fakeResolver{})
	require.Equal(t, expr.Failed, status)
	require.Error(t, err)
}

func TestHiLoUnaryOperators(t *testing.T) {
	hi := &expr.Node{Kind: expr.Unary, UnOp: expr.Hi, X: intNode(0xC9FB)}
	lo := &expr.Node{Kind: expr.Unary, UnOp: expr.Lo, X: intNode(0xC9FB)}
	v, _, err := expr.Eval(hi, &fakeResolver{})
	require.NoError(t, err)
	require.EqualValues(t, 0xC9, v.Int)
	v, _, err = expr.Eval(lo, &fakeResolver{})
	require.NoError(t, err)
	require.EqualValues(t, 0xFB, v.Int)
}

func TestComparisonOperatorsYieldZeroOrOne(t *testing.T) {
	for _, tc := range []struct {
		op   expr.BinaryOp
		a, b int64
		want int64
	}{
		{expr.Eq, 3, 3, 1},
		{expr.Eq, 3, 4, 0},
		{expr.Lt, 1, 2, 1},
		{expr.Ge, 2, 2, 1},
	} {
		n := binNode(tc.op, intNode(tc.a), intNode(tc.b))
		v, status, err := expr.Eval(n, &fakeResolver{})
		require.NoError(t, err)
		require.Equal(t, expr.OK, status)
		require.EqualValues(t, tc.want, v.Int)
	}
}

func TestUnknownSymbolFailsWithoutLaxistMode(t *testing.T) {
	n := &expr.Node{Kind: expr.Symbol, Symbol: "MISSING"}
	_, status, err := expr.Eval(n, &fakeResolver{symbols: map[string]value.Value{}})
	require.Equal(t, expr.Failed, status)
	require.Error(t, err)
}

func TestUnknownSymbolInLaxistModeIsOne(t *testing.T) {
	n := &expr.Node{Kind: expr.Symbol, Symbol: "MISSING"}
	v, status, err := expr.Eval(n, &fakeResolver{symbols: map[string]value.Value{}, laxist: true})
	require.NoError(t, err)
	require.Equal(t, expr.OK, status)
	require.EqualValues(t, 1, v.Int)
}

func TestForwardReferenceNeedsResolution(t *testing.T) {
	n := &expr.Node{Kind: expr.Symbol, Symbol: "LATER"}
	r := &fakeResolver{unres: map[string]bool{"LATER": true}}
	_, status, err := expr.Eval(n, r)
	require.NoError(t, err)
	require.Equal(t, expr.NeedsResolution, status)
}

func TestCurrentAddressUnknownNeedsResolution(t *testing.T) {
	n := &expr.Node{Kind: expr.CurrentAddress}
	_, status, _ := expr.Eval(n, &fakeResolver{known: false})
	require.Equal(t, expr.NeedsResolution, status)
}

func TestCurrentAddressKnown(t *testing.T) {
	n := &expr.Node{Kind: expr.CurrentAddress}
	v, status, err := expr.Eval(n, &fakeResolver{addr: 0x8000, known: true})
	require.NoError(t, err)
	require.Equal(t, expr.OK, status)
	require.EqualValues(t, 0x8000, v.Int)
}

func TestConditionalExpression(t *testing.T) {
	n := &expr.Node{Kind: expr.Conditional, Cond: intNode(1), Then: intNode(10), Else: intNode(20)}
	v, _, err := expr.Eval(n, &fakeResolver{})
	require.NoError(t, err)
	require.EqualValues(t, 10, v.Int)

	n.Cond = intNode(0)
	v, _, err = expr.Eval(n, &fakeResolver{})
	require.NoError(t, err)
	require.EqualValues(t, 20, v.Int)
}

func TestBuiltinFunctionCalls(t *testing.T) {
	minCall := &expr.Node{Kind: expr.Call, Func: "min", Args: []*expr.Node{intNode(3), intNode(1)}}
	v, status, err := expr.Eval(minCall, &fakeResolver{})
	require.NoError(t, err)
	require.Equal(t, expr.OK, status)
	require.EqualValues(t, 1, v.Int)

	absCall := &expr.Node{Kind: expr.Call, Func: "abs", Args: []*expr.Node{intNode(-5)}}
	v, _, err = expr.Eval(absCall, &fakeResolver{})
	require.NoError(t, err)
	require.EqualValues(t, 5, v.Int)
}

func TestBuiltinFunctionWrongArityIsAnError(t *testing.T) {
	call := &expr.Node{Kind: expr.Call, Func: "min", Args: []*expr.Node{intNode(1)}}
	_, status, err := expr.Eval(call, &fakeResolver{})
	require.Equal(t, expr.Failed, status)
	require.Error(t, err)
}

func TestContextIndependentExpressions(t *testing.T) {
	require.True(t, expr.ContextIndependent(binNode(expr.Add, intNode(1), intNode(2))))
	require.False(t, expr.ContextIndependent(&expr.Node{Kind: expr.CurrentAddress}))
	require.False(t, expr.ContextIndependent(&expr.Node{Kind: expr.Symbol, Symbol: "X"}))
	require.False(t, expr.ContextIndependent(binNode(expr.Add, intNode(1), &expr.Node{Kind: expr.Symbol, Symbol: "X"})))
}

func TestFloatArithmeticPromotion(t *testing.T) {
	n := binNode(expr.Div, &expr.Node{Kind: expr.Float, Float: 1.0}, intNode(4))
	v, status, err := expr.Eval(n, &fakeResolver{})
	require.NoError(t, err)
	require.Equal(t, expr.OK, status)
	require.Equal(t, value.Float, v.Kind)
	require.InDelta(t, 0.25, v.Float, 1e-9)
}
