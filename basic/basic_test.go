package basic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeScenarioPrintHi(t *testing.T) {
	prog, err := Tokenize("10 PRINT \"HI\"\n")
	require.NoError(t, err)
	want := []byte{
		0x0C, 0x00, 0x0A, 0x00,
		0x20, 0xBF, 0x20, 0x22, 0x48, 0x49, 0x22,
		0x00,
		0x00, 0x00,
	}
	require.Equal(t, want, prog.ToBytes())
}

func TestDetokenizeScenarioPrintHi(t *testing.T) {
	wire := []byte{
		0x0C, 0x00, 0x0A, 0x00,
		0x20, 0xBF, 0x20, 0x22, 0x48, 0x49, 0x22,
		0x00,
		0x00, 0x00,
	}
	prog, err := Detokenize(wire)
	require.NoError(t, err)
	require.Len(t, prog.Lines, 1)
	require.Equal(t, 10, prog.Lines[0].Number)
	require.Equal(t, wire, prog.ToBytes())
}

func TestTokenizeDetokenizeRoundTrip(t *testing.T) {
	src := "10 PRINT \"HI\"\n20 FOR I=1 TO 10\n30 PRINT I*2\n40 NEXT I\n50 IF I>=5 THEN GOTO 70\n60 REM a trailing comment\n70 END\n"
	prog, err := Tokenize(src)
	require.NoError(t, err)
	wire := prog.ToBytes()

	decoded, err := Detokenize(wire)
	require.NoError(t, err)
	require.Equal(t, wire, decoded.ToBytes())

	text, err := decoded.Source()
	require.NoError(t, err)
	reTokenized, err := Tokenize(text)
	require.NoError(t, err)
	require.Equal(t, wire, reTokenized.ToBytes())
}

func TestTokenizeSmallIntegerConstant(t *testing.T) {
	prog, err := Tokenize("10 A=5\n")
	require.NoError(t, err)
	require.Equal(t, byte(tagConstant0+5), prog.Lines[0].Tokens[len(prog.Lines[0].Tokens)-1])
}

func TestTokenizeHexAndBinaryLiterals(t *testing.T) {
	prog, err := Tokenize("10 A=&FF:B=&X101\n")
	require.NoError(t, err)
	toks := prog.Lines[0].Tokens
	require.Contains(t, string(toks), string([]byte{tagInt16Hex}))
	require.Contains(t, string(toks), string([]byte{tagInt16Binary}))
}

func TestFloatRoundTrip(t *testing.T) {
	for _, v := range []float64{1.5, -3.25, 100000.0, 0.001, 3.14159} {
		b, err := encodeFloat(v)
		require.NoError(t, err)
		got := decodeFloat(b)
		rel := (got - v) / v
		if rel < 0 {
			rel = -rel
		}
		require.Less(t, rel, 1.0/float64(int64(1)<<31))
	}
}

func TestFloatZero(t *testing.T) {
	b, err := encodeFloat(0)
	require.NoError(t, err)
	require.Equal(t, [5]byte{}, b)
	require.Equal(t, 0.0, decodeFloat(b))
}

func TestTokenizeEmptyProgramIsJustTerminator(t *testing.T) {
	prog, err := Tokenize("")
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0}, prog.ToBytes())
}
