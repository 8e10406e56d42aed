// Package value defines the tagged value union stored in the symbol
// table and produced by expression evaluation (spec section 3.3).
package value

// Kind tags the variant held by a Value.
type Kind int

const (
	Int Kind = iota
	Float
	String
	Address
	Macro
	Struct
	Deferred
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Address:
		return "address"
	case Macro:
		return "macro"
	case Struct:
		return "struct"
	case Deferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Value is wide enough to hold every CPC address/counter (64-bit signed
// integers), an IEEE double, a byte string, and an "is this an address"
// flag consulted by listing output. Macro and struct definitions, and
// deferred expressions, are carried in Aux as an opaque payload owned by
// the symtab package, so this package never needs to import it back.
type Value struct {
	Kind      Kind
	Int       int64
	Float     float64
	Str       string
	IsAddress bool
	Aux       any
}

// OfInt builds a plain integer value.
func OfInt(i int64) Value { return Value{Kind: Int, Int: i} }

// OfAddress builds an integer value tagged as an address.
func OfAddress(i int64) Value { return Value{Kind: Int, Int: i, IsAddress: true} }

// OfFloat builds a floating-point value.
func OfFloat(f float64) Value { return Value{Kind: Float, Float: f} }

// OfString builds a string/byte-string value.
func OfString(s string) Value { return Value{Kind: String, Str: s} }

// AsInt64 coerces a Value to an int64, truncating floats.
func (v Value) AsInt64() int64 {
	switch v.Kind {
	case Float:
		return int64(v.Float)
	default:
		return v.Int
	}
}

// AsFloat64 coerces a Value to a float64, widening integers.
func (v Value) AsFloat64() float64 {
	switch v.Kind {
	case Float:
		return v.Float
	default:
		return float64(v.Int)
	}
}

// IsNumeric reports whether the value can participate in arithmetic.
func (v Value) IsNumeric() bool {
	return v.Kind == Int || v.Kind == Float || v.Kind == Address
}
