package z80asm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/cpcasm/diag"
	"github.com/gmofishsauce/cpcasm/span"
	"github.com/gmofishsauce/cpcasm/z80asm"
	"github.com/gmofishsauce/cpcasm/z80parser"
)

// nilLoader returns empty content for any INCLUDE/INCBIN path; none of
// the scenarios below use one.
type nilLoader struct{}

func (nilLoader) Load(path string) ([]byte, error) { return nil, nil }

func assembleSource(t *testing.T, src string) z80asm.Result {
	t.Helper()
	opts := span.DefaultOptions()
	arena := span.NewArena(opts)
	buf := arena.AddBuffer("scenario.z80", []byte(src))
	listing, perrs := z80parser.Parse(arena, buf, &opts, nilLoader{})
	require.Empty(t, perrs, "expected no parse errors")
	return z80asm.Assemble(listing, z80asm.DefaultOptions(), nilLoader{})
}

// Scenarios 1-5 from spec section 8, "Concrete end-to-end scenarios".

func TestScenarioMinimumOpcode(t *testing.T) {
	r := assembleSource(t, " NOP\n")
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0x00}, r.Output.Bytes)
}

func TestScenarioLoadImmediateWord(t *testing.T) {
	r := assembleSource(t, " ld hl, 0xc9fb\n")
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0x21, 0xFB, 0xC9}, r.Output.Bytes)
}

func TestScenarioInterruptVectorSetup(t *testing.T) {
	src := `  org 0x100
  di
  ld hl, 0xc9fb
  ld (0x38), hl
  ei
  jp $
`
	r := assembleSource(t, src)
	require.Empty(t, r.Errors)
	want := []byte{0xF3, 0x21, 0xFB, 0xC9, 0x22, 0x38, 0x00, 0xFB, 0xC3, 0x08, 0x01}
	require.Equal(t, want, r.Output.Bytes)
	require.True(t, r.Output.HasLoad)
	require.EqualValues(t, 0x100, r.Output.LoadAddress)
	require.False(t, r.Output.HasExec)
}

func TestScenarioIndexedLoad(t *testing.T) {
	r := assembleSource(t, " ld a, (ix+5)\n")
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0xDD, 0x7E, 0x05}, r.Output.Bytes)
}

func TestScenarioRelativeJumpBack(t *testing.T) {
	src := `  org 0x4000
loop:
  dec a
  jr nz, loop
`
	r := assembleSource(t, src)
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0x3D, 0x20, 0xFD}, r.Output.Bytes)
}

// Additional quantified-invariant coverage (spec section 8).

func TestDEFSFillsRequestedCountWithFillByte(t *testing.T) {
	r := assembleSource(t, " org 0x8000\n defs 4, 0xAA\n ld a, b\n")
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0xAA, 0xAA, 0xAA, 0xAA, 0x78}, r.Output.Bytes)
}

func TestJRTargetOutOfRangeIsAnError(t *testing.T) {
	src := " org 0\nloop:\n"
	for i := 0; i < 200; i++ {
		src += " nop\n"
	}
	src += " jr loop\n"
	r := assembleSource(t, src)
	require.NotEmpty(t, r.Errors)
}

func TestInvalidOperandCombinationIsAnEncodingError(t *testing.T) {
	r := assembleSource(t, " ld hl, a\n")
	require.NotEmpty(t, r.Errors)
}

func TestForwardReferenceResolvesAcrossPasses(t *testing.T) {
	src := ` org 0x1000
  jp target
target:
  nop
`
	r := assembleSource(t, src)
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0xC3, 0x03, 0x10, 0x00}, r.Output.Bytes)
}

func TestUndocumentedSLLAndSL1AreAliases(t *testing.T) {
	a := assembleSource(t, " sll b\n")
	b := assembleSource(t, " sl1 b\n")
	require.Empty(t, a.Errors)
	require.Empty(t, b.Errors)
	require.Equal(t, a.Output.Bytes, b.Output.Bytes)
	require.Equal(t, []byte{0xCB, 0x30}, a.Output.Bytes)
}

func TestAlignPadsToBoundary(t *testing.T) {
	r := assembleSource(t, " org 0x1\n align 4\n nop\n")
	require.Empty(t, r.Errors)
	// Three zero-padding bytes from 0x1 to 0x4, then the NOP at 0x4.
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, r.Output.Bytes)
}

func TestEquDefinedTwiceWithDifferentValuesIsAnError(t *testing.T) {
	r := assembleSource(t, " FOO equ 1\n FOO equ 2\n")
	require.NotEmpty(t, r.Errors)
}

func TestEquValueUsedInSubsequentExpression(t *testing.T) {
	r := assembleSource(t, " FOO equ 5\n ld a, FOO\n")
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0x3E, 0x05}, r.Output.Bytes)
}

func TestRepeatCounterShadowsAcrossIterations(t *testing.T) {
	src := ` org 0
  repeat 3
  db REPEAT_COUNTER
  endrepeat
`
	r := assembleSource(t, src)
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, r.Output.Bytes)
}

func TestNestedRepeatCounterIsRestoredOnExit(t *testing.T) {
	src := ` org 0
  repeat 2
  repeat 2
  db REPEAT_COUNTER
  endrepeat
  db REPEAT_COUNTER
  endrepeat
`
	r := assembleSource(t, src)
	require.Empty(t, r.Errors)
	// Outer iteration 1: inner emits 1,2 then outer counter (1) again;
	// outer iteration 2: inner emits 1,2 then outer counter (2) again.
	require.Equal(t, []byte{0x01, 0x02, 0x01, 0x01, 0x02, 0x02}, r.Output.Bytes)
}

func TestLetAssignmentFeedsLaterExpressions(t *testing.T) {
	r := assembleSource(t, " let width = 5\n ld a, width\n")
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0x3E, 0x05}, r.Output.Bytes)
}

func TestMacroRecursionDepthIsCapped(t *testing.T) {
	src := ` macro rec
  rec
  endm
  rec
`
	r := assembleSource(t, src)
	require.NotEmpty(t, r.Errors)
}

func TestWerrorPromotesWarningsAndSuppressesOutput(t *testing.T) {
	opts := z80asm.DefaultOptions()
	opts.Werror = true
	r := assembleWithOptions(t, " print \"hello\"\n nop\n", opts)
	require.NotEmpty(t, r.Errors)
	require.Empty(t, r.Output.Bytes)
}

func TestListingSinkSeesSettledBytes(t *testing.T) {
	var lines []string
	opts := z80asm.DefaultOptions()
	opts.ListingSink = func(line string) { lines = append(lines, line) }
	r := assembleWithOptions(t, " org 0x100\n nop\n", opts)
	require.Empty(t, r.Errors)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "0100")
}

func TestAssembleContextCancellation(t *testing.T) {
	opts := span.DefaultOptions()
	arena := span.NewArena(opts)
	buf := arena.AddBuffer("scenario.z80", []byte(" nop\n"))
	listing, perrs := z80parser.Parse(arena, buf, &opts, nilLoader{})
	require.Empty(t, perrs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := z80asm.AssembleContext(ctx, listing, z80asm.DefaultOptions(), nilLoader{})
	require.Len(t, r.Errors, 1)
	require.Equal(t, diag.KindCancelled, r.Errors[0].Kind)
	require.Empty(t, r.Output.Bytes)
}

func TestLocalLabelScopesToEnclosingLabel(t *testing.T) {
	src := ` org 0
first:
.loop:
  dec a
  jr nz, .loop
second:
.loop:
  dec b
  jr nz, .loop
`
	r := assembleSource(t, src)
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0x3D, 0x20, 0xFD, 0x05, 0x20, 0xFD}, r.Output.Bytes)
}

func TestModuleQualifiesLabels(t *testing.T) {
	src := ` org 0x100
 module gfx
entry:
  nop
 endmodule
  jp gfx.entry
`
	r := assembleSource(t, src)
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0x00, 0xC3, 0x00, 0x01}, r.Output.Bytes)
	_, ok := r.Output.Symbols["gfx.entry"]
	require.True(t, ok)
}

func assembleWithOptions(t *testing.T, src string, aopts z80asm.AssemblerOptions) z80asm.Result {
	t.Helper()
	opts := span.DefaultOptions()
	arena := span.NewArena(opts)
	buf := arena.AddBuffer("scenario.z80", []byte(src))
	listing, perrs := z80parser.Parse(arena, buf, &opts, nilLoader{})
	require.Empty(t, perrs, "expected no parse errors")
	return z80asm.Assemble(listing, aopts, nilLoader{})
}

func TestEmbeddedLocomotiveBasicEmitsTokenizedStream(t *testing.T) {
	src := ` org 0x170
 locomotive
10 PRINT "HI"
endlocomotive
 nop
`
	r := assembleSource(t, src)
	require.Empty(t, r.Errors)
	want := []byte{
		0x0C, 0x00, 0x0A, 0x00,
		0x20, 0xBF, 0x20, 0x22, 0x48, 0x49, 0x22,
		0x00,
		0x00, 0x00, // program terminator
		0x00, // the NOP after the block
	}
	require.Equal(t, want, r.Output.Bytes)
}

func TestLimitDirectiveRejectsBytesPastTheLimit(t *testing.T) {
	r := assembleSource(t, " org 0xFFFE\n limit 0xFFFF\n ld hl, 0x1234\n")
	require.NotEmpty(t, r.Errors)
}

func TestWritingPastAddressableSpaceIsAnError(t *testing.T) {
	r := assembleSource(t, " org 0xFFFF\n ld hl, 0x1234\n")
	require.NotEmpty(t, r.Errors)
}

func TestUndocumentedIndexedShiftWithFakeDestination(t *testing.T) {
	r := assembleSource(t, " rlc (ix+5), b\n")
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0xDD, 0xCB, 0x05, 0x00}, r.Output.Bytes)

	r = assembleSource(t, " sll (iy-2), e\n")
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0xFD, 0xCB, 0xFE, 0x33}, r.Output.Bytes)
}

func TestUndocumentedIndexedBitOpWithFakeDestination(t *testing.T) {
	r := assembleSource(t, " res 1, (ix+3), c\n")
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0xDD, 0xCB, 0x03, 0x89}, r.Output.Bytes)

	r = assembleSource(t, " set 7, (iy+0), a\n")
	require.Empty(t, r.Errors)
	require.Equal(t, []byte{0xFD, 0xCB, 0x00, 0xFF}, r.Output.Bytes)
}

func TestFakeDestinationRequiresIndexedTarget(t *testing.T) {
	r := assembleSource(t, " rlc b, c\n")
	require.NotEmpty(t, r.Errors)

	r = assembleSource(t, " set 1, b, c\n")
	require.NotEmpty(t, r.Errors)
}

func TestFakeDestinationRejectsNonRegisterOperands(t *testing.T) {
	r := assembleSource(t, " rlc (ix+1), (hl)\n")
	require.NotEmpty(t, r.Errors)

	r = assembleSource(t, " res 0, (ix+1), ixh\n")
	require.NotEmpty(t, r.Errors)
}

func TestFieldAssignmentsAccumulateOffsets(t *testing.T) {
	src := `X FIELD 2
Y FIELD 1
Z FIELD 4
 ld a, Y
 ld b, Z
`
	r := assembleSource(t, src)
	require.Empty(t, r.Errors)
	// X=0, Y=2, Z=3: each FIELD takes the running offset, then advances
	// it by its own size.
	require.Equal(t, []byte{0x3E, 0x02, 0x06, 0x03}, r.Output.Bytes)
}

func TestNextAssignsAndAdvancesTheCounter(t *testing.T) {
	src := `COUNT = 5
A1 NEXT COUNT
A2 NEXT COUNT, 3
 db A1, A2, COUNT
`
	r := assembleSource(t, src)
	require.Empty(t, r.Errors)
	// A1 takes 5 and COUNT steps to 6; A2 takes 6 and COUNT steps to 9.
	require.Equal(t, []byte{0x05, 0x06, 0x09}, r.Output.Bytes)
}
