package basic

// keyword token bytes, grounded on the BasicTokenNoPrefix enum in
// cpclib-basic/src/tokens.rs (original_source/): the Locomotive BASIC
// ROM keyword table starting at 0x80. Multi-word forms the original
// handles specially (ON BREAK, ON ERROR GOTO, the statement-context SQ)
// are left out of this table on purpose -- ON, ERROR, and GOTO already
// tokenize correctly as three separate keywords, and statement-context
// SQ is rare enough that we always emit the expression-context SQ
// (0xFF-prefixed) form instead.
var keywordTokens = map[string]byte{
	"AFTER": 0x80, "AUTO": 0x81, "BORDER": 0x82, "CALL": 0x83, "CAT": 0x84,
	"CHAIN": 0x85, "CLEAR": 0x86, "CLG": 0x87, "CLOSEIN": 0x88, "CLOSEOUT": 0x89,
	"CLS": 0x8A, "CONT": 0x8B, "DATA": 0x8C, "DEF": 0x8D, "DEFINT": 0x8E,
	"DEFREAL": 0x8F, "DEFSTR": 0x90, "DEG": 0x91, "DELETE": 0x92, "DIM": 0x93,
	"DRAW": 0x94, "DRAWR": 0x95, "EDIT": 0x96, "ELSE": 0x97, "END": 0x98,
	"ENT": 0x99, "ENV": 0x9A, "ERASE": 0x9B, "ERROR": 0x9C, "EVERY": 0x9D,
	"FOR": 0x9E, "GOSUB": 0x9F, "GOTO": 0xA0, "IF": 0xA1, "INK": 0xA2,
	"INPUT": 0xA3, "KEY": 0xA4, "LET": 0xA5, "LINE": 0xA6, "LIST": 0xA7,
	"LOAD": 0xA8, "LOCATE": 0xA9, "MEMORY": 0xAA, "MERGE": 0xAB, "MID$": 0xAC,
	"MODE": 0xAD, "MOVE": 0xAE, "MOVER": 0xAF, "NEXT": 0xB0, "NEW": 0xB1,
	"ON": 0xB2, "OPENIN": 0xB6, "OPENOUT": 0xB7, "ORIGIN": 0xB8, "OUT": 0xB9,
	"PAPER": 0xBA, "PEN": 0xBB, "PLOT": 0xBC, "PLOTR": 0xBD, "POKE": 0xBE,
	"PRINT": 0xBF, "RAD": 0xC1, "RANDOMIZE": 0xC2, "READ": 0xC3, "RELEASE": 0xC4,
	"REM": 0xC5, "RENUM": 0xC6, "RESTORE": 0xC7, "RESUME": 0xC8, "RETURN": 0xC9,
	"RUN": 0xCA, "SAVE": 0xCB, "SOUND": 0xCC, "SPEED": 0xCD, "STOP": 0xCE,
	"SYMBOL": 0xCF, "TAG": 0xD0, "TAGOFF": 0xD1, "TROFF": 0xD2, "TRON": 0xD3,
	"WAIT": 0xD4, "WEND": 0xD5, "WHILE": 0xD6, "WIDTH": 0xD7, "WINDOW": 0xD8,
	"WRITE": 0xD9, "ZONE": 0xDA, "DI": 0xDB, "EI": 0xDC, "FILL": 0xDD,
	"GRAPHICS": 0xDE, "MASK": 0xDF, "FRAME": 0xE0, "CURSOR": 0xE1, "ERL": 0xE3,
	"FN": 0xE4, "SPC": 0xE5, "STEP": 0xE6, "SWAP": 0xE7, "TAB": 0xEA,
	"THEN": 0xEB, "TO": 0xEC, "USING": 0xED,
	"AND": 0xFA, "NOT": 0xFB, "MOD": 0xFC, "OR": 0xFD, "XOR": 0xFE,
}

// twoCharOperatorTokens are the comparison spellings with no single ASCII
// byte of their own; every other operator (+ - * / ^ \ = < >) keeps its
// literal ASCII byte, matching the ROM tokenizer (spec 4.5).
var twoCharOperatorTokens = map[string]byte{
	">=": 0xF0, "<=": 0xF3, "<>": 0xF2,
}

// prefixedFunctionTokens are emitted as 0xFF followed by the byte below,
// grounded on BasicTokenPrefixed in cpclib-basic/src/tokens.rs.
var prefixedFunctionTokens = map[string]byte{
	"ABS": 0x00, "ASC": 0x01, "ATN": 0x02, "CHR$": 0x03, "CINT": 0x04,
	"COS": 0x05, "CREAL": 0x06, "EXP": 0x07, "FIX": 0x08, "FRE": 0x09,
	"INKEY": 0x0A, "INP": 0x0B, "INT": 0x0C, "JOY": 0x0D, "LEN": 0x0E,
	"LOG": 0x0F, "LOG10": 0x10, "LOWER$": 0x11, "PEEK": 0x12, "REMAIN": 0x13,
	"SIGN": 0x14, "SIN": 0x15, "SPACE$": 0x16, "SQ": 0x17, "SQR": 0x18,
	"STR$": 0x19, "TAN": 0x1A, "UNT": 0x1B, "UPPER$": 0x1C, "VAL": 0x1D,
	"EOF": 0x40, "ERR": 0x41, "HIMEM": 0x42, "INKEY$": 0x43, "PI": 0x44,
	"RND": 0x45, "TIME": 0x46, "XPOS": 0x47, "YPOS": 0x48, "DERR": 0x49,
	"BIN$": 0x71, "DEC$": 0x72, "HEX$": 0x73, "INSTR": 0x74, "LEFT$": 0x75,
	"MAX": 0x76, "MIN": 0x77, "POS": 0x78, "RIGHT$": 0x79, "ROUND": 0x7A,
	"STRING$": 0x7B, "TEST": 0x7C, "TESTSTR": 0x7D, "COPYCHR$": 0x7E, "VPOS": 0x7F,
}

var reverseKeywordTokens = invert(keywordTokens)
var reverseTwoCharOperatorTokens = invert(twoCharOperatorTokens)
var reversePrefixedFunctionTokens = invert(prefixedFunctionTokens)

func invert(m map[string]byte) map[byte]string {
	out := make(map[byte]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

const (
	tagConstant0       = 0x0E // .. tagConstant0+10 == constant 10
	tagInt8            = 0x19
	tagInt16Decimal    = 0x1A
	tagInt16Binary     = 0x1B
	tagInt16Hex        = 0x1C
	tagFloat           = 0x1F
	tagString          = 0x22
	tokenPrefixMarker  = 0xFF
	lineTerminatorByte = 0x00
)
