package z80parser_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/cpcasm/diag"
	"github.com/gmofishsauce/cpcasm/span"
	"github.com/gmofishsauce/cpcasm/token"
	"github.com/gmofishsauce/cpcasm/z80parser"
)

type noLoader struct{}

func (noLoader) Load(path string) ([]byte, error) { return nil, nil }

func parse(t *testing.T, src string) token.Listing {
	t.Helper()
	opts := span.DefaultOptions()
	arena := span.NewArena(opts)
	buf := arena.AddBuffer("t.z80", []byte(src))
	listing, errs := z80parser.Parse(arena, buf, &opts, noLoader{})
	require.Empty(t, errs)
	return listing
}

func TestParseSingleOpcode(t *testing.T) {
	listing := parse(t, " nop\n")
	require.Len(t, listing.Tokens, 1)
	require.Equal(t, token.KOpcode, listing.Tokens[0].Kind)
	require.Equal(t, "nop", listing.Tokens[0].Mnemonic)
}

func TestParseLabelAndOpcodeOnSameLine(t *testing.T) {
	listing := parse(t, "loop: dec a\n")
	require.Len(t, listing.Tokens, 1)
	tok := listing.Tokens[0]
	require.Equal(t, token.KOpcode, tok.Kind)
	require.Equal(t, "loop", tok.Label)
}

func TestParseBareLabelLine(t *testing.T) {
	listing := parse(t, "done:\n")
	require.Len(t, listing.Tokens, 1)
	require.Equal(t, token.KLabel, listing.Tokens[0].Kind)
	require.Equal(t, "done", listing.Tokens[0].LabelName)
}

func TestParseEquAssignment(t *testing.T) {
	listing := parse(t, "SCREEN_BASE equ 0xC000\n")
	require.Len(t, listing.Tokens, 1)
	tok := listing.Tokens[0]
	require.Equal(t, token.KAssign, tok.Kind)
	require.Equal(t, token.ModeEqu, tok.AssignMode)
	require.Equal(t, "SCREEN_BASE", tok.Name)
}

func TestParseColonSeparatedStatements(t *testing.T) {
	listing := parse(t, " ld a, 1 : inc b : dec c\n")
	require.Len(t, listing.Tokens, 3)
	require.Equal(t, "ld", listing.Tokens[0].Mnemonic)
	require.Equal(t, "inc", listing.Tokens[1].Mnemonic)
	require.Equal(t, "dec", listing.Tokens[2].Mnemonic)
}

func TestParseLabelWithColonSeparatedStatements(t *testing.T) {
	listing := parse(t, "loop: dec a : jr nz, loop\n")
	require.Len(t, listing.Tokens, 2)
	require.Equal(t, "loop", listing.Tokens[0].Label)
	require.Equal(t, "dec", listing.Tokens[0].Mnemonic)
	require.Equal(t, "jr", listing.Tokens[1].Mnemonic)
	require.Empty(t, listing.Tokens[1].Label)
}

func TestParseSetAndCompoundAssignment(t *testing.T) {
	listing := parse(t, "COUNT set 1\nCOUNT += 2\n")
	require.Len(t, listing.Tokens, 2)
	require.Equal(t, token.KAssign, listing.Tokens[0].Kind)
	require.Equal(t, token.ModeSet, listing.Tokens[0].AssignMode)
	require.Equal(t, token.KAssign, listing.Tokens[1].Kind)
	require.Equal(t, token.ModeCompound, listing.Tokens[1].AssignMode)
	require.Equal(t, "COUNT", listing.Tokens[1].Name)
}

func TestParseBareEqualsAssignment(t *testing.T) {
	listing := parse(t, "X = 5\n")
	require.Len(t, listing.Tokens, 1)
	require.Equal(t, token.KAssign, listing.Tokens[0].Kind)
	require.Equal(t, token.ModeAssign, listing.Tokens[0].AssignMode)
}

func TestParseIndexedOperandWithDisplacement(t *testing.T) {
	listing := parse(t, " ld a, (ix+5)\n")
	require.Len(t, listing.Tokens, 1)
	op2 := listing.Tokens[0].Op2
	require.Equal(t, token.DAIndexDisp, op2.Kind)
	require.Equal(t, token.IX, op2.Index)
}

func TestParseConditionFlagOperand(t *testing.T) {
	listing := parse(t, " jr nz, loop\n")
	op1 := listing.Tokens[0].Op1
	require.Equal(t, token.DAFlag, op1.Kind)
	require.Equal(t, token.NZ, op1.Flag)
}

func TestParseIfElseEndif(t *testing.T) {
	src := ` if 1
  nop
  else
  halt
  endif
`
	listing := parse(t, src)
	require.Len(t, listing.Tokens, 1)
	d := listing.Tokens[0]
	require.Equal(t, token.KDirective, d.Kind)
	require.Equal(t, token.DirIF, d.Directive)
	require.Len(t, d.Body.Tokens, 1)
	require.NotNil(t, d.ElseBody)
	require.Len(t, d.ElseBody.Tokens, 1)
}

func TestParseMacroDefinitionAndCall(t *testing.T) {
	src := ` macro SETCOL val
  ld a, val
  endm
  SETCOL 5
`
	listing := parse(t, src)
	require.Len(t, listing.Tokens, 2)
	require.Equal(t, token.DirMACRO, listing.Tokens[0].Directive)
	require.Equal(t, token.KMacroCall, listing.Tokens[1].Kind)
	require.Equal(t, "SETCOL", listing.Tokens[1].Callee)
}

func TestParseDefbList(t *testing.T) {
	listing := parse(t, " defb 1, 2, 3\n")
	d := listing.Tokens[0]
	require.Equal(t, token.DirDEFB, d.Directive)
	require.Len(t, d.Exprs, 3)
}

func TestParseCommentsAreSkippedOrCaptured(t *testing.T) {
	listing := parse(t, " nop ; a comment\n")
	require.Len(t, listing.Tokens, 1)
	require.Equal(t, token.KOpcode, listing.Tokens[0].Kind)
}

func TestParseHexBinaryAndCharLiterals(t *testing.T) {
	listing := parse(t, " defb 0x1F, &20, %00100001, 0b00100010\n")
	d := listing.Tokens[0]
	require.Len(t, d.Exprs, 4)
}

func TestIncludeCycleIsDetected(t *testing.T) {
	opts := span.DefaultOptions()
	arena := span.NewArena(opts)
	buf := arena.AddBuffer("a.z80", []byte(" include \"a.z80\"\n"))
	loader := selfLoader{}
	_, errs := z80parser.Parse(arena, buf, &opts, loader)
	require.NotEmpty(t, errs)
}

type selfLoader struct{}

func (selfLoader) Load(path string) ([]byte, error) {
	return []byte(" include \"a.z80\"\n"), nil
}

func TestParseLetRequiresLabelAndEquals(t *testing.T) {
	listing := parse(t, " let width = 32\n")
	require.Len(t, listing.Tokens, 1)
	tok := listing.Tokens[0]
	require.Equal(t, token.KAssign, tok.Kind)
	require.Equal(t, token.ModeAssign, tok.AssignMode)
	require.Equal(t, "width", tok.Name)

	opts := span.DefaultOptions()
	arena := span.NewArena(opts)
	buf := arena.AddBuffer("t.z80", []byte(" let width 32\n"))
	_, errs := z80parser.Parse(arena, buf, &opts, noLoader{})
	require.NotEmpty(t, errs)
}

func TestParseNoArgumentMacroCallIsNotALabel(t *testing.T) {
	src := ` macro BLANK
  nop
  endm
  BLANK
`
	listing := parse(t, src)
	require.Len(t, listing.Tokens, 2)
	require.Equal(t, token.KMacroCall, listing.Tokens[1].Kind)
	require.Equal(t, "BLANK", listing.Tokens[1].Callee)
}

func TestParseContextCancellation(t *testing.T) {
	opts := span.DefaultOptions()
	arena := span.NewArena(opts)
	buf := arena.AddBuffer("t.z80", []byte(" nop\n nop\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	listing, errs := z80parser.ParseContext(ctx, arena, buf, &opts, noLoader{})
	require.Empty(t, listing.Tokens)
	require.Len(t, errs, 1)
	require.Equal(t, diag.KindCancelled, errs[0].Kind)
}

func TestDottedDirectiveSpelling(t *testing.T) {
	opts := span.DefaultOptions()
	opts.DottedDirectives = true
	arena := span.NewArena(opts)
	buf := arena.AddBuffer("t.z80", []byte(" .org 0x100\n .db 1\n"))
	listing, errs := z80parser.Parse(arena, buf, &opts, noLoader{})
	require.Empty(t, errs)
	require.Len(t, listing.Tokens, 2)
	require.Equal(t, token.DirORG, listing.Tokens[0].Directive)
	require.Equal(t, token.DirDEFB, listing.Tokens[1].Directive)
}

func TestDotPrefixedNameIsALocalLabelWithoutDottedMode(t *testing.T) {
	listing := parse(t, ".here:\n nop\n")
	require.Equal(t, token.KLabel, listing.Tokens[0].Kind)
	require.Equal(t, ".here", listing.Tokens[0].LabelName)
}

func TestAtLabelsRequireOrgamsMode(t *testing.T) {
	opts := span.DefaultOptions()
	arena := span.NewArena(opts)
	buf := arena.AddBuffer("t.z80", []byte("@skip:\n nop\n"))
	_, errs := z80parser.Parse(arena, buf, &opts, noLoader{})
	require.NotEmpty(t, errs)

	opts2 := span.DefaultOptions()
	opts2.OrgamsMode = true
	arena2 := span.NewArena(opts2)
	buf2 := arena2.AddBuffer("t.z80", []byte("@skip:\n nop\n"))
	listing, errs2 := z80parser.Parse(arena2, buf2, &opts2, noLoader{})
	require.Empty(t, errs2)
	require.Equal(t, token.KLabel, listing.Tokens[0].Kind)
	require.Equal(t, "@skip", listing.Tokens[0].LabelName)
}

func TestEmbeddedBasicBlockIsCapturedRaw(t *testing.T) {
	src := " locomotive\n10 PRINT \"HI\"\nendlocomotive\n nop\n"
	listing := parse(t, src)
	require.Len(t, listing.Tokens, 2)
	d := listing.Tokens[0]
	require.Equal(t, token.DirLOCOMOTIVE, d.Directive)
	require.Len(t, d.Strs, 1)
	require.Equal(t, "10 PRINT \"HI\"\n", d.Strs[0])
}

func TestParseNameFirstMacroDefinition(t *testing.T) {
	src := `SETCOL macro val
 ld a, val
 endm
 SETCOL 5
`
	listing := parse(t, src)
	require.Len(t, listing.Tokens, 2)
	require.Equal(t, token.DirMACRO, listing.Tokens[0].Directive)
	require.Equal(t, "SETCOL", listing.Tokens[0].Name2)
	require.Equal(t, []string{"val"}, listing.Tokens[0].Params)
	require.Equal(t, token.KMacroCall, listing.Tokens[1].Kind)
}

func TestParseIndexedBitOpThirdOperand(t *testing.T) {
	listing := parse(t, " set 7, (ix+2), b\n")
	tok := listing.Tokens[0]
	require.Equal(t, token.KOpcode, tok.Kind)
	require.NotNil(t, tok.Op3)
	require.Equal(t, token.DAReg8, tok.Op3.Kind)
	require.Equal(t, token.B, tok.Op3.Reg8)
}

func TestParseNextAssignmentForm(t *testing.T) {
	listing := parse(t, "A1 NEXT COUNT, 3\n")
	tok := listing.Tokens[0]
	require.Equal(t, token.KAssign, tok.Kind)
	require.Equal(t, token.ModeNext, tok.AssignMode)
	require.Equal(t, "A1", tok.Name)
	require.Equal(t, "COUNT", tok.SourceLabel)
	require.NotNil(t, tok.Displacement)
}
