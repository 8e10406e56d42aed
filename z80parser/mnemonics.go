package z80parser

import "github.com/gmofishsauce/cpcasm/token"

// mnemonics is every opcode name the parser recognizes as an
// instruction rather than a label or directive. Operand-shape
// validation is deliberately NOT done here: spec 4.4.1 places "encoding
// failure" errors (e.g. LD HL,A) at assembly time, not parse time, so
// the parser only needs to know a name names an instruction at all.
// Grounded on the mnemonic recognition in gmofishsauce/wut4/asm/codegen.go's
// `instructions` table, widened from wut4's own four-mnemonic ISA to the
// full documented+undocumented Z80 set.
var mnemonics = map[string]bool{
	"NOP": true, "HALT": true, "DI": true, "EI": true, "EXX": true,
	"LD": true, "LDI": true, "LDIR": true, "LDD": true, "LDDR": true,
	"PUSH": true, "POP": true, "EX": true,
	"ADD": true, "ADC": true, "SUB": true, "SBC": true,
	"AND": true, "OR": true, "XOR": true, "CP": true,
	"INC": true, "DEC": true,
	"DAA": true, "CPL": true, "NEG": true, "CCF": true, "SCF": true,
	"RLCA": true, "RRCA": true, "RLA": true, "RRA": true,
	"RLC": true, "RRC": true, "RL": true, "RR": true,
	"SLA": true, "SRA": true, "SLL": true, "SL1": true, "SRL": true,
	"RLD": true, "RRD": true,
	"BIT": true, "SET": true, "RES": true,
	"JP": true, "JR": true, "DJNZ": true,
	"CALL": true, "RET": true, "RETI": true, "RETN": true, "RST": true,
	"IN": true, "OUT": true,
	"INI": true, "INIR": true, "IND": true, "INDR": true,
	"OUTI": true, "OTIR": true, "OUTD": true, "OTDR": true,
	"CPI": true, "CPIR": true, "CPD": true, "CPDR": true,
	"IM": true,
}

func isMnemonic(name string) bool {
	if name == "SET" {
		// SET is both the Z80 bit-set mnemonic and, historically, an
		// assign-modifier keyword. Disambiguated positionally by the
		// caller: a label-modifier SET is only recognized right after a
		// leading label, everywhere else SET means the instruction.
		return true
	}
	return mnemonics[upper(name)]
}

type dkKind int

const (
	dkSimple dkKind = iota
	dkBlock
)

type directiveKW struct {
	kind dkKind
	dir  token.Directive
}

// directiveOpenKeywords maps directive spelling to its Directive tag.
// Both the short (DB/DW/DS) and long (DEFB/DEFW/DEFS) spellings are
// accepted, matching the dual forms spec section 4.1 calls out.
var directiveOpenKeywords = map[string]directiveKW{
	"ORG":          {dkSimple, token.DirORG},
	"ALIGN":        {dkSimple, token.DirALIGN},
	"DEFB":         {dkSimple, token.DirDEFB},
	"DB":           {dkSimple, token.DirDEFB},
	"DEFW":         {dkSimple, token.DirDEFW},
	"DW":           {dkSimple, token.DirDEFW},
	"DEFS":         {dkSimple, token.DirDEFS},
	"DS":           {dkSimple, token.DirDEFS},
	"INCBIN":       {dkSimple, token.DirINCBIN},
	"INCLUDE":      {dkSimple, token.DirINCLUDE},
	"READ":         {dkSimple, token.DirINCLUDE},
	"BANK":         {dkSimple, token.DirBANK},
	"BANKSET":      {dkSimple, token.DirBANKSET},
	"LIMIT":        {dkSimple, token.DirLIMIT},
	"ASSERT":       {dkSimple, token.DirASSERT},
	"PRINT":        {dkSimple, token.DirPRINT},
	"FAIL":         {dkSimple, token.DirFAIL},
	"RUN":          {dkSimple, token.DirRUN},
	"BREAKPOINT":   {dkSimple, token.DirBREAKPOINT},
	"STOP":         {dkSimple, token.DirSTOP},
	"LOCOMOTIVE":   {dkSimple, token.DirLOCOMOTIVE},
	"CHARSET":      {dkSimple, token.DirCHARSET},
	"BUILDSNA":     {dkSimple, token.DirBUILDSNA},
	"WRITE_DIRECT": {dkSimple, token.DirWRITEDIRECT},
	"SAVE":         {dkSimple, token.DirSAVE},
	"IF":           {dkBlock, token.DirIF},
	"REPEAT":       {dkBlock, token.DirREPEAT},
	"WHILE":        {dkBlock, token.DirWHILE},
	"FOR":          {dkBlock, token.DirFOR},
	"MACRO":        {dkBlock, token.DirMACRO},
	"MODULE":       {dkBlock, token.DirMODULE},
	"STRUCT":       {dkBlock, token.DirSTRUCT},
}

var blockTerminators = map[token.Directive][]string{
	token.DirIF:     {"ENDIF"},
	token.DirREPEAT: {"ENDREPEAT", "UNTIL"},
	token.DirWHILE:  {"ENDW", "WEND"},
	token.DirFOR:    {"ENDFOR"},
	token.DirMACRO:  {"ENDM", "ENDMACRO"},
	token.DirMODULE: {"ENDMODULE"},
	token.DirSTRUCT: {"ENDSTRUCT", "ENDS"},
}

// assignKeywords maps a label-modifier keyword to its AssignMode.
var assignKeywords = map[string]token.AssignMode{
	"EQU":   token.ModeEqu,
	"DEFL":  token.ModeSet,
	"SET":   token.ModeSet,
	"SETN":  token.ModeSetN,
	"NEXT":  token.ModeNext,
	"FIELD": token.ModeField,
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
