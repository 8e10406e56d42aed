// Package token defines the located-token model the parser produces: a
// flat, variant-tagged Token struct (spec section 3.4) plus the operand
// addressing-mode model (DataAccess, section 3.5). The fields actually
// read for a given Token depend on its Kind, the same way the teacher's
// own assembler statement struct (gmofishsauce/wut4/asm Statement) is
// one flat struct with fields that only some directives populate.
package token

import (
	"github.com/gmofishsauce/cpcasm/expr"
	"github.com/gmofishsauce/cpcasm/span"
)

// Reg8 enumerates the 8-bit registers, including the undocumented IX/IY
// half registers.
type Reg8 int

const (
	A Reg8 = iota
	B
	C
	D
	E
	H
	L
	I
	R
	IXH
	IXL
	IYH
	IYL
)

// Reg16 enumerates the 16-bit register pairs.
type Reg16 int

const (
	AF Reg16 = iota
	BC
	DE
	HL
	SP
)

// IndexReg is IX or IY used as a bare 16-bit register or with a
// displacement.
type IndexReg int

const (
	IX IndexReg = iota
	IY
)

// Flag enumerates the condition codes used by JP/JR/CALL/RET.
type Flag int

const (
	NZ Flag = iota
	Z
	NC
	FlagC
	PO
	PE
	P
	M
)

// DAKind tags a DataAccess variant.
type DAKind int

const (
	DAReg8 DAKind = iota
	DAReg16
	DAIndexReg
	DAIndexDisp
	DAIndirectReg16
	DAIndirectAbs
	DAFlag
	DAImmediate
	DAPortC
	DAPortImmediate
)

// DataAccess is an addressing mode: one operand slot of an Opcode token.
type DataAccess struct {
	Kind DAKind
	Span span.Span

	Reg8  Reg8
	Reg16 Reg16
	Index IndexReg
	Disp  *expr.Node // displacement for (IX+d)/(IY+d)
	Flag  Flag
	Expr  *expr.Node // immediate, indirect-absolute address, or port number
	Indir Reg16      // register for indirect-via-register16, e.g. (HL), (BC), (DE)
}

// Kind tags a located Token variant.
type Kind int

const (
	KOpcode Kind = iota
	KLabel
	KAssign
	KDirective
	KMacroCall
	KStructCall
	KComment
	KIncludeExpanded
)

// AssignMode distinguishes the label-modifier forms (EQU/DEFL/SET/SETN/
// NEXT/FIELD/`=`/compound-assign).
type AssignMode int

const (
	ModeAssign AssignMode = iota // `=`
	ModeEqu
	ModeSet
	ModeSetN
	ModeNext
	ModeField
	ModeCompound // op stored in CompoundOp
)

// Directive tags the directive a KDirective token represents.
type Directive int

const (
	DirORG Directive = iota
	DirALIGN
	DirDEFB
	DirDEFW
	DirDEFS
	DirINCBIN
	DirINCLUDE
	DirIF
	DirREPEAT
	DirWHILE
	DirUNTIL
	DirFOR
	DirMACRO
	DirMODULE
	DirSTRUCT
	DirSAVE
	DirBANK
	DirBANKSET
	DirLIMIT
	DirASSERT
	DirPRINT
	DirFAIL
	DirRUN
	DirBREAKPOINT
	DirSTOP
	DirLOCOMOTIVE
	DirBASIC
	DirCHARSET
	DirBUILDSNA
	DirWRITEDIRECT
)

// SaveVariant selects one of the SaveSpec shapes from spec section 6.1.
type SaveVariant int

const (
	SaveRaw SaveVariant = iota
	SaveAmsdosBinary
	SaveAmsdosBasic
	SaveSnapshot
)

// ElseIf is one ELSEIF clause of an IF directive.
type ElseIf struct {
	Cond *expr.Node
	Body Listing
}

// FieldDef is one field of a STRUCT declaration.
type FieldDef struct {
	Name  string
	Shape Directive // DirDEFB, DirDEFW, or DirDEFS
	Count *expr.Node
}

// Arg is one macro- or struct-call argument: either a raw span (passed
// through uninterpreted, for macros that stringify their arguments) or
// a parsed expression.
type Arg struct {
	Raw  span.Span
	Expr *expr.Node
	// IsRaw is true when the argument could not be parsed as a single
	// expression and is carried as raw source text instead.
	IsRaw bool
}

// Token is one located element of a Listing.
type Token struct {
	Kind Kind
	Span span.Span

	// KOpcode. Op3 is only populated by the undocumented indexed
	// bit-operation forms (SET 7,(IX+d),B and friends), where the third
	// operand names the fake destination register.
	Mnemonic      string
	Op1, Op2, Op3 *DataAccess

	// KLabel / label attached to any other token kind (see Label below)
	LabelName string

	// Label is set on non-KLabel tokens that were preceded on the same
	// line-component by `label:` or `label` with no modifier keyword,
	// e.g. "loop: dec a" parses as one Opcode token with Label="loop".
	Label string

	// KAssign
	AssignMode   AssignMode
	CompoundOp   expr.BinaryOp
	Name         string
	SourceLabel  string
	Displacement *expr.Node
	ValueExpr    *expr.Node

	// KDirective
	Directive   Directive
	Exprs       []*expr.Node // DEFB/DEFW list, IF/WHILE/UNTIL condition, REPEAT count, FOR bounds
	Count       *expr.Node   // DEFS count, .space-equivalent
	Fill        *expr.Node   // DEFS fill byte
	Body        Listing      // IF/REPEAT/WHILE/FOR/MACRO/STRUCT/MODULE body
	ElseIfs     []ElseIf
	ElseBody    *Listing
	Strs        []string // INCLUDE/INCBIN/SAVE path, PRINT/ASSERT message text
	Params      []string // MACRO parameter names
	Name2       string   // macro/module/struct name, bank name, charset name
	SaveVariant SaveVariant
	Fields      []FieldDef
	ForVar      string
	ForFrom     *expr.Node
	ForTo       *expr.Node
	ForStep     *expr.Node

	// KMacroCall / KStructCall
	Callee string
	Args   []Arg

	// KComment
	Text string

	// KIncludeExpanded
	Included *Listing
}

// Listing is an ordered sequence of located tokens, plus which buffer
// they were parsed from.
type Listing struct {
	Tokens []Token
	Buffer int
}
