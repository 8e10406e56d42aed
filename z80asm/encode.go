package z80asm

import (
	"fmt"

	"github.com/gmofishsauce/cpcasm/token"
)

// reg8Index returns the 3-bit register-field encoding for an 8-bit
// register, plus a prefix byte (0xDD/0xFD/0 for no prefix) when the
// register is one of the undocumented IX/IY half registers.
func reg8Index(r token.Reg8) (idx int, prefix byte, ok bool) {
	switch r {
	case token.B:
		return 0, 0, true
	case token.C:
		return 1, 0, true
	case token.D:
		return 2, 0, true
	case token.E:
		return 3, 0, true
	case token.H:
		return 4, 0, true
	case token.L:
		return 5, 0, true
	case token.A:
		return 7, 0, true
	case token.IXH:
		return 4, 0xDD, true
	case token.IXL:
		return 5, 0xDD, true
	case token.IYH:
		return 4, 0xFD, true
	case token.IYL:
		return 5, 0xFD, true
	default:
		return 0, 0, false
	}
}

func reg16DD(r token.Reg16) (int, bool) {
	switch r {
	case token.BC:
		return 0, true
	case token.DE:
		return 1, true
	case token.HL:
		return 2, true
	case token.SP:
		return 3, true
	}
	return 0, false
}

func reg16PushPop(r token.Reg16) (int, bool) {
	switch r {
	case token.BC:
		return 0, true
	case token.DE:
		return 1, true
	case token.HL:
		return 2, true
	case token.AF:
		return 3, true
	}
	return 0, false
}

func flagIdx3(f token.Flag) int { return int(f) } // enum order matches NZ,Z,NC,C,PO,PE,P,M == 0..7

func flagIdx2(f token.Flag) (int, bool) {
	if int(f) <= int(token.FlagC) {
		return int(f), true
	}
	return 0, false
}

func indexPrefix(ix token.IndexReg) byte {
	if ix == token.IY {
		return 0xFD
	}
	return 0xDD
}

func u8(v int64) byte   { return byte(v & 0xFF) }
func lo16(v int64) byte { return byte(v & 0xFF) }
func hi16(v int64) byte { return byte((v >> 8) & 0xFF) }

// instrLength reports the instruction's encoded length in bytes. This
// is purely syntactic -- it depends only on the mnemonic and the kinds
// of its operands, never on operand values -- so it can be computed
// before any expression in the instruction is resolvable (spec 4.4's
// pass loop only needs symbol *values*, never instruction *lengths*, to
// still be forward-referenced).
func instrLength(tok token.Token) (int, error) {
	m := upper(tok.Mnemonic)
	op1, op2 := tok.Op1, tok.Op2

	switch m {
	case "NOP", "HALT", "DI", "EI", "EXX", "DAA", "CPL", "NEG", "CCF", "SCF",
		"RLCA", "RRCA", "RLA", "RRA", "RLD", "RRD", "LDI", "LDIR", "LDD", "LDDR",
		"INI", "INIR", "IND", "INDR", "OUTI", "OTIR", "OUTD", "OTDR",
		"CPI", "CPIR", "CPD", "CPDR", "RETI", "RETN":
		return lenSimple(m), nil
	case "RET":
		if op1 == nil {
			return 1, nil
		}
		return 1, nil
	case "IM":
		return 2, nil
	case "RST":
		return 1, nil
	case "DJNZ", "JR":
		return 2, nil
	case "PUSH", "POP":
		if op1 != nil && op1.Kind == token.DAIndexReg {
			return 2, nil
		}
		return 1, nil
	case "EX":
		return lenEX(op1, op2), nil
	case "JP":
		if op1 != nil && (op1.Kind == token.DAIndirectReg16 || op1.Kind == token.DAIndexReg) {
			if op1.Kind == token.DAIndexReg {
				return 2, nil
			}
			return 1, nil
		}
		return 3, nil
	case "CALL":
		return 3, nil
	case "IN", "OUT":
		return lenInOut(op1, op2), nil
	case "BIT", "SET", "RES":
		return lenBitOp(op2), nil
	case "SLA", "SRA", "SLL", "SL1", "SRL", "RLC", "RRC", "RL", "RR":
		return lenShift(op1), nil
	case "INC", "DEC":
		return lenIncDec(op1), nil
	case "ADD", "ADC", "SUB", "SBC", "AND", "OR", "XOR", "CP":
		return lenArith(m, op1, op2), nil
	case "LD":
		return lenLD(op1, op2), nil
	}
	return 0, fmt.Errorf("unknown mnemonic %s", tok.Mnemonic)
}

func lenSimple(m string) int {
	switch m {
	case "LDI", "LDIR", "LDD", "LDDR", "INI", "INIR", "IND", "INDR",
		"OUTI", "OTIR", "OUTD", "OTDR", "CPI", "CPIR", "CPD", "CPDR", "RETI", "RETN":
		return 2
	default:
		return 1
	}
}

func lenEX(op1, op2 *token.DataAccess) int {
	if op1 != nil && op1.Kind == token.DAIndirectReg16 && op2 != nil && op2.Kind == token.DAIndexReg {
		return 2 // EX (SP),IX / EX (SP),IY
	}
	return 1
}

func lenInOut(op1, op2 *token.DataAccess) int {
	target := op1
	if target != nil && target.Kind == token.DAReg8 {
		target = op2
	}
	if target != nil && target.Kind == token.DAPortC {
		return 2
	}
	return 2
}

func lenBitOp(op2 *token.DataAccess) int {
	if op2 != nil && op2.Kind == token.DAIndexDisp {
		return 4
	}
	return 2
}

func lenShift(op1 *token.DataAccess) int {
	if op1 != nil && op1.Kind == token.DAIndexDisp {
		return 4
	}
	return 2
}

func lenIncDec(op1 *token.DataAccess) int {
	if op1 == nil {
		return 1
	}
	switch op1.Kind {
	case token.DAReg8:
		if _, prefix, _ := reg8Index(op1.Reg8); prefix != 0 {
			return 2
		}
		return 1
	case token.DAReg16:
		return 1
	case token.DAIndexReg:
		return 2
	case token.DAIndexDisp:
		return 3
	case token.DAIndirectReg16:
		return 1
	}
	return 1
}

func lenArith(m string, op1, op2 *token.DataAccess) int {
	if op1 != nil && (op1.Kind == token.DAReg16 || op1.Kind == token.DAIndexReg) {
		// ADD HL,ss is unprefixed (1 byte); ADC/SBC HL,ss use the ED
		// prefix (2 bytes); any indexed destination adds another
		// prefix byte on top of that.
		n := 1
		if m == "ADC" || m == "SBC" {
			n = 2
		}
		if op1.Kind == token.DAIndexReg {
			n++
		}
		return n
	}
	src := op1
	if op2 != nil {
		src = op2
	}
	if src == nil {
		return 1
	}
	switch src.Kind {
	case token.DAReg8:
		if _, prefix, _ := reg8Index(src.Reg8); prefix != 0 {
			return 2
		}
		return 1
	case token.DAIndexDisp:
		return 3
	case token.DAIndirectReg16:
		return 1
	case token.DAImmediate:
		return 2
	case token.DAReg16:
		return 1 // ADD HL/IX/IY,ss
	}
	return 1
}

func lenLD(op1, op2 *token.DataAccess) int {
	if op1 == nil || op2 == nil {
		return 1
	}
	switch {
	case op1.Kind == token.DAReg8 && op2.Kind == token.DAReg8:
		if op1.Reg8 == token.I || op1.Reg8 == token.R || op2.Reg8 == token.I || op2.Reg8 == token.R {
			return 2 // LD A,I / LD I,A and friends carry the ED prefix
		}
		_, p1, _ := reg8Index(op1.Reg8)
		_, p2, _ := reg8Index(op2.Reg8)
		if p1 != 0 || p2 != 0 {
			return 2
		}
		return 1
	case op1.Kind == token.DAReg8 && op2.Kind == token.DAImmediate:
		_, p1, _ := reg8Index(op1.Reg8)
		if p1 != 0 {
			return 3
		}
		return 2
	case op1.Kind == token.DAReg8 && op2.Kind == token.DAIndexDisp:
		return 3
	case op1.Kind == token.DAIndexDisp && op2.Kind == token.DAReg8:
		return 3
	case op1.Kind == token.DAIndexDisp && op2.Kind == token.DAImmediate:
		return 4
	case op1.Kind == token.DAReg8 && op2.Kind == token.DAIndirectReg16:
		return 1
	case op1.Kind == token.DAIndirectReg16 && op2.Kind == token.DAReg8:
		return 1
	case op1.Kind == token.DAReg8 && op2.Kind == token.DAIndirectAbs: // LD A,(nn)
		return 3
	case op1.Kind == token.DAIndirectAbs && op2.Kind == token.DAReg8:
		return 3
	case op1.Kind == token.DAReg16 && op2.Kind == token.DAImmediate:
		return 3
	case op1.Kind == token.DAIndexReg && op2.Kind == token.DAImmediate:
		return 4
	case op1.Kind == token.DAReg16 && op2.Kind == token.DAIndirectAbs:
		if op1.Reg16 == token.HL {
			return 3
		}
		return 4
	case op1.Kind == token.DAIndirectAbs && op2.Kind == token.DAReg16:
		if op2.Reg16 == token.HL {
			return 3
		}
		return 4
	case op1.Kind == token.DAIndexReg && op2.Kind == token.DAIndirectAbs:
		return 4
	case op1.Kind == token.DAIndirectAbs && op2.Kind == token.DAIndexReg:
		return 4
	case op1.Kind == token.DAReg16 && op2.Kind == token.DAReg16: // LD SP,HL
		return 1
	case op1.Kind == token.DAReg16 && op2.Kind == token.DAIndexReg: // LD SP,IX
		return 2
	case op1.Kind == token.DAReg8 && (op1.Reg8 == token.I || op1.Reg8 == token.R):
		return 2
	case op2 != nil && (op2.Kind == token.DAReg8 && (op2.Reg8 == token.I || op2.Reg8 == token.R)):
		return 2
	}
	return 1
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
