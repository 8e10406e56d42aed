// Package expr builds and evaluates the expression trees used by
// directive arguments, operand immediates, and label assignments (spec
// section 3.2 and 4.2).
package expr

import (
	"fmt"

	"github.com/gmofishsauce/cpcasm/span"
	"github.com/gmofishsauce/cpcasm/value"
)

// Kind tags the variant of an expression node.
type Kind int

const (
	Int Kind = iota
	Float
	String
	Symbol
	CurrentAddress // `$`
	Unary
	Binary
	Conditional // if cond then a else b
	Call
	Group // parenthesized, kept distinct so pretty-printing round-trips
	Labeled
)

// UnaryOp enumerates the unary operators from spec section 3.2.
type UnaryOp int

const (
	Neg UnaryOp = iota
	BitNot
	BoolNot
	Hi
	Lo
)

// BinaryOp enumerates the binary operators from spec section 3.2.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
	Shl
	Shr
	BitAnd
	BitOr
	BitXor
	BoolAnd
	BoolOr
	Eq
	Neq
	Lt
	Le
	Gt
	Ge
)

// Node is a tagged expression tree node. Every constructor below fills
// in exactly the fields relevant to its Kind.
type Node struct {
	Kind Kind
	Span span.Span

	Int   int64
	Float float64
	Str   string

	Symbol string

	UnOp UnaryOp
	X    *Node

	BinOp BinaryOp
	L, R  *Node

	Cond, Then, Else *Node

	Func string
	Args []*Node

	Label string
}

// Status reports whether evaluation produced a value, needs another
// assembler pass, or failed outright.
type Status int

const (
	OK Status = iota
	NeedsResolution
	Failed
)

// Resolver is the minimal surface Eval needs from a symbol table. The
// symtab package implements it; expr never imports symtab, which keeps
// the dependency graph acyclic (symtab already depends on expr for
// macro/struct bodies).
type Resolver interface {
	// Lookup returns the symbol's value. ok is false when the name is
	// wholly unknown; needsResolution is true when the symbol is known
	// but not yet defined for this pass (a forward reference).
	Lookup(name string) (v value.Value, ok bool, needsResolution bool)
	// CurrentAddress returns `$`; known is false before the first ORG.
	CurrentAddress() (addr int64, known bool)
	// Laxist reports whether unknown symbols should evaluate to 1
	// instead of failing (spec 3.3's "laxist" mode).
	Laxist() bool
}

// ContextIndependent reports whether n contains no symbol reference and
// no `$`, i.e. it can be evaluated once during parsing (spec 4.2).
func ContextIndependent(n *Node) bool {
	if n == nil {
		return true
	}
	switch n.Kind {
	case Symbol, CurrentAddress:
		return false
	case Unary:
		return ContextIndependent(n.X)
	case Binary:
		return ContextIndependent(n.L) && ContextIndependent(n.R)
	case Conditional:
		return ContextIndependent(n.Cond) && ContextIndependent(n.Then) && ContextIndependent(n.Else)
	case Call:
		for _, a := range n.Args {
			if !ContextIndependent(a) {
				return false
			}
		}
		return true
	case Group, Labeled:
		return ContextIndependent(n.X)
	default:
		return true
	}
}

// Eval walks n, consulting r for symbol references and `$`.
func Eval(n *Node, r Resolver) (value.Value, Status, error) {
	if n == nil {
		return value.Value{}, Failed, fmt.Errorf("nil expression")
	}
	switch n.Kind {
	case Int:
		return value.OfInt(n.Int), OK, nil
	case Float:
		return value.OfFloat(n.Float), OK, nil
	case String:
		return value.OfString(n.Str), OK, nil
	case CurrentAddress:
		addr, known := r.CurrentAddress()
		if !known {
			return value.Value{}, NeedsResolution, nil
		}
		return value.OfAddress(addr), OK, nil
	case Symbol:
		v, ok, needs := r.Lookup(n.Symbol)
		if needs {
			return value.Value{}, NeedsResolution, nil
		}
		if !ok {
			if r.Laxist() {
				return value.OfInt(1), OK, nil
			}
			return value.Value{}, Failed, fmt.Errorf("unknown symbol: %s", n.Symbol)
		}
		return v, OK, nil
	case Group, Labeled:
		return Eval(n.X, r)
	case Unary:
		return evalUnary(n, r)
	case Binary:
		return evalBinary(n, r)
	case Conditional:
		return evalConditional(n, r)
	case Call:
		return evalCall(n, r)
	default:
		return value.Value{}, Failed, fmt.Errorf("unhandled expression kind %d", n.Kind)
	}
}

func evalUnary(n *Node, r Resolver) (value.Value, Status, error) {
	x, st, err := Eval(n.X, r)
	if st != OK {
		return value.Value{}, st, err
	}
	switch n.UnOp {
	case Neg:
		if x.Kind == value.Float {
			return value.OfFloat(-x.Float), OK, nil
		}
		return value.OfInt(-x.AsInt64()), OK, nil
	case BitNot:
		return value.OfInt(^x.AsInt64()), OK, nil
	case BoolNot:
		return value.OfInt(boolToInt(x.AsInt64() == 0)), OK, nil
	case Hi:
		return value.OfInt((x.AsInt64() >> 8) & 0xFF), OK, nil
	case Lo:
		return value.OfInt(x.AsInt64() & 0xFF), OK, nil
	default:
		return value.Value{}, Failed, fmt.Errorf("unknown unary operator")
	}
}

func evalBinary(n *Node, r Resolver) (value.Value, Status, error) {
	l, st, err := Eval(n.L, r)
	if st != OK {
		return value.Value{}, st, err
	}
	rv, st, err := Eval(n.R, r)
	if st != OK {
		return value.Value{}, st, err
	}

	if l.Kind == value.Float || rv.Kind == value.Float {
		switch n.BinOp {
		case Add, Sub, Mul, Div:
			return evalFloatArith(n.BinOp, l.AsFloat64(), rv.AsFloat64())
		case Eq, Neq, Lt, Le, Gt, Ge:
			return evalFloatCompare(n.BinOp, l.AsFloat64(), rv.AsFloat64())
		}
	}

	a, b := l.AsInt64(), rv.AsInt64()
	switch n.BinOp {
	case Add:
		return value.OfInt(a + b), OK, nil
	case Sub:
		return value.OfInt(a - b), OK, nil
	case Mul:
		return value.OfInt(a * b), OK, nil
	case Div:
		if b == 0 {
			return value.Value{}, Failed, fmt.Errorf("division by zero")
		}
		return value.OfInt(a / b), OK, nil
	case Mod:
		if b == 0 {
			return value.Value{}, Failed, fmt.Errorf("modulo by zero")
		}
		return value.OfInt(a % b), OK, nil
	case Shl:
		if b < 0 {
			return value.Value{}, Failed, fmt.Errorf("shift by negative count")
		}
		return value.OfInt(a << uint(b)), OK, nil
	case Shr:
		if b < 0 {
			return value.Value{}, Failed, fmt.Errorf("shift by negative count")
		}
		return value.OfInt(a >> uint(b)), OK, nil
	case BitAnd:
		return value.OfInt(a & b), OK, nil
	case BitOr:
		return value.OfInt(a | b), OK, nil
	case BitXor:
		return value.OfInt(a ^ b), OK, nil
	case BoolAnd:
		return value.OfInt(boolToInt(a != 0 && b != 0)), OK, nil
	case BoolOr:
		return value.OfInt(boolToInt(a != 0 || b != 0)), OK, nil
	case Eq:
		return value.OfInt(boolToInt(a == b)), OK, nil
	case Neq:
		return value.OfInt(boolToInt(a != b)), OK, nil
	case Lt:
		return value.OfInt(boolToInt(a < b)), OK, nil
	case Le:
		return value.OfInt(boolToInt(a <= b)), OK, nil
	case Gt:
		return value.OfInt(boolToInt(a > b)), OK, nil
	case Ge:
		return value.OfInt(boolToInt(a >= b)), OK, nil
	default:
		return value.Value{}, Failed, fmt.Errorf("unknown binary operator")
	}
}

func evalFloatArith(op BinaryOp, a, b float64) (value.Value, Status, error) {
	switch op {
	case Add:
		return value.OfFloat(a + b), OK, nil
	case Sub:
		return value.OfFloat(a - b), OK, nil
	case Mul:
		return value.OfFloat(a * b), OK, nil
	case Div:
		if b == 0 {
			return value.Value{}, Failed, fmt.Errorf("division by zero")
		}
		return value.OfFloat(a / b), OK, nil
	default:
		return value.Value{}, Failed, fmt.Errorf("unsupported float operator")
	}
}

func evalFloatCompare(op BinaryOp, a, b float64) (value.Value, Status, error) {
	switch op {
	case Eq:
		return value.OfInt(boolToInt(a == b)), OK, nil
	case Neq:
		return value.OfInt(boolToInt(a != b)), OK, nil
	case Lt:
		return value.OfInt(boolToInt(a < b)), OK, nil
	case Le:
		return value.OfInt(boolToInt(a <= b)), OK, nil
	case Gt:
		return value.OfInt(boolToInt(a > b)), OK, nil
	case Ge:
		return value.OfInt(boolToInt(a >= b)), OK, nil
	default:
		return value.Value{}, Failed, fmt.Errorf("unsupported float comparison")
	}
}

func evalConditional(n *Node, r Resolver) (value.Value, Status, error) {
	c, st, err := Eval(n.Cond, r)
	if st != OK {
		return value.Value{}, st, err
	}
	if c.AsInt64() != 0 {
		return Eval(n.Then, r)
	}
	return Eval(n.Else, r)
}

// builtins are the function-call forms of the unary operators plus a
// handful of helpers macros commonly rely on.
func evalCall(n *Node, r Resolver) (value.Value, Status, error) {
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, st, err := Eval(a, r)
		if st != OK {
			return value.Value{}, st, err
		}
		args[i] = v
	}
	switch n.Func {
	case "lo":
		return requireArgs(args, 1, func() (value.Value, error) {
			return value.OfInt(args[0].AsInt64() & 0xFF), nil
		})
	case "hi":
		return requireArgs(args, 1, func() (value.Value, error) {
			return value.OfInt((args[0].AsInt64() >> 8) & 0xFF), nil
		})
	case "abs":
		return requireArgs(args, 1, func() (value.Value, error) {
			v := args[0].AsInt64()
			if v < 0 {
				v = -v
			}
			return value.OfInt(v), nil
		})
	case "sgn":
		return requireArgs(args, 1, func() (value.Value, error) {
			v := args[0].AsInt64()
			switch {
			case v > 0:
				return value.OfInt(1), nil
			case v < 0:
				return value.OfInt(-1), nil
			default:
				return value.OfInt(0), nil
			}
		})
	case "min":
		return requireArgs(args, 2, func() (value.Value, error) {
			if args[0].AsInt64() < args[1].AsInt64() {
				return args[0], nil
			}
			return args[1], nil
		})
	case "max":
		return requireArgs(args, 2, func() (value.Value, error) {
			if args[0].AsInt64() > args[1].AsInt64() {
				return args[0], nil
			}
			return args[1], nil
		})
	case "int":
		return requireArgs(args, 1, func() (value.Value, error) {
			return value.OfInt(args[0].AsInt64()), nil
		})
	case "float":
		return requireArgs(args, 1, func() (value.Value, error) {
			return value.OfFloat(args[0].AsFloat64()), nil
		})
	default:
		return value.Value{}, Failed, fmt.Errorf("unknown function: %s", n.Func)
	}
}

func requireArgs(args []value.Value, n int, fn func() (value.Value, error)) (value.Value, Status, error) {
	if len(args) != n {
		return value.Value{}, Failed, fmt.Errorf("function expects %d argument(s), got %d", n, len(args))
	}
	v, err := fn()
	if err != nil {
		return value.Value{}, Failed, err
	}
	return v, OK, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
