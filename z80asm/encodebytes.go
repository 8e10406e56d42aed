package z80asm

import (
	"fmt"

	"github.com/gmofishsauce/cpcasm/expr"
	"github.com/gmofishsauce/cpcasm/token"
)

// evalFn evaluates one expression node against the current pass's
// symbol table and current address; ok is false for a forward
// reference that has not resolved yet this pass.
type evalFn func(n *expr.Node) (int64, bool, error)

// encodeInstruction produces the bytes for one opcode token. When an
// operand expression cannot yet be evaluated, it returns a correctly
// sized but zero-filled placeholder and resolved=false, so the pass
// loop can keep addresses advancing correctly while it waits for
// another pass to resolve the symbol (spec 4.4's pass-convergence
// model). Grounded on gmofishsauce/wut4/asm/codegen.go's
// generateInstruction dispatch-by-format switch, widened from wut4's
// eight instruction formats to the full Z80 opcode map including the
// undocumented SLL/SL1 and indexed "fake destination" shift forms.
func encodeInstruction(tok token.Token, addr int64, eval evalFn) ([]byte, bool, error) {
	length, err := instrLength(tok)
	if err != nil {
		return nil, false, err
	}
	placeholder := make([]byte, length)

	m := upper(tok.Mnemonic)
	op1, op2 := tok.Op1, tok.Op2

	evalOp := func(n *expr.Node) (int64, bool, error) {
		if n == nil {
			return 0, true, fmt.Errorf("missing operand expression")
		}
		return eval(n)
	}

	switch m {
	case "NOP":
		return []byte{0x00}, true, nil
	case "HALT":
		return []byte{0x76}, true, nil
	case "DI":
		return []byte{0xF3}, true, nil
	case "EI":
		return []byte{0xFB}, true, nil
	case "EXX":
		return []byte{0xD9}, true, nil
	case "DAA":
		return []byte{0x27}, true, nil
	case "CPL":
		return []byte{0x2F}, true, nil
	case "CCF":
		return []byte{0x3F}, true, nil
	case "SCF":
		return []byte{0x37}, true, nil
	case "RLCA":
		return []byte{0x07}, true, nil
	case "RRCA":
		return []byte{0x0F}, true, nil
	case "RLA":
		return []byte{0x17}, true, nil
	case "RRA":
		return []byte{0x1F}, true, nil
	case "NEG":
		return []byte{0xED, 0x44}, true, nil
	case "RETI":
		return []byte{0xED, 0x4D}, true, nil
	case "RETN":
		return []byte{0xED, 0x45}, true, nil
	case "RLD":
		return []byte{0xED, 0x6F}, true, nil
	case "RRD":
		return []byte{0xED, 0x67}, true, nil
	case "LDI":
		return []byte{0xED, 0xA0}, true, nil
	case "LDIR":
		return []byte{0xED, 0xB0}, true, nil
	case "LDD":
		return []byte{0xED, 0xA8}, true, nil
	case "LDDR":
		return []byte{0xED, 0xB8}, true, nil
	case "CPI":
		return []byte{0xED, 0xA1}, true, nil
	case "CPIR":
		return []byte{0xED, 0xB1}, true, nil
	case "CPD":
		return []byte{0xED, 0xA9}, true, nil
	case "CPDR":
		return []byte{0xED, 0xB9}, true, nil
	case "INI":
		return []byte{0xED, 0xA2}, true, nil
	case "INIR":
		return []byte{0xED, 0xB2}, true, nil
	case "IND":
		return []byte{0xED, 0xAA}, true, nil
	case "INDR":
		return []byte{0xED, 0xBA}, true, nil
	case "OUTI":
		return []byte{0xED, 0xA3}, true, nil
	case "OTIR":
		return []byte{0xED, 0xB3}, true, nil
	case "OUTD":
		return []byte{0xED, 0xAB}, true, nil
	case "OTDR":
		return []byte{0xED, 0xBB}, true, nil
	case "IM":
		v, ok, err := evalOp(op1.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		switch v {
		case 0:
			return []byte{0xED, 0x46}, true, nil
		case 1:
			return []byte{0xED, 0x56}, true, nil
		case 2:
			return []byte{0xED, 0x5E}, true, nil
		}
		return nil, false, fmt.Errorf("IM mode must be 0, 1, or 2")
	case "RST":
		v, ok, err := evalOp(op1.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		if v < 0 || v > 0x38 || v%8 != 0 {
			return nil, false, fmt.Errorf("RST target must be a multiple of 8 in 0..56")
		}
		return []byte{0xC7 | byte(v)}, true, nil
	case "DJNZ":
		return encodeRelative(0x10, op1, addr, evalOp, placeholder)
	case "JR":
		if op1 != nil && op1.Kind == token.DAFlag {
			idx, ok := flagIdx2(op1.Flag)
			if !ok {
				return nil, false, fmt.Errorf("JR only accepts NZ, Z, NC, or C")
			}
			return encodeRelative(0x20|byte(idx<<3), op2, addr, evalOp, placeholder)
		}
		return encodeRelative(0x18, op1, addr, evalOp, placeholder)
	case "JP":
		return encodeJP(op1, op2, evalOp, placeholder)
	case "CALL":
		return encodeCALL(op1, op2, evalOp, placeholder)
	case "RET":
		if op1 == nil {
			return []byte{0xC9}, true, nil
		}
		if op1.Kind != token.DAFlag {
			return nil, false, fmt.Errorf("RET takes a condition code or nothing")
		}
		idx := flagIdx3(op1.Flag)
		return []byte{0xC0 | byte(idx<<3)}, true, nil
	case "PUSH":
		return encodePushPop(0xC5, op1, placeholder)
	case "POP":
		return encodePushPop(0xC1, op1, placeholder)
	case "EX":
		return encodeEX(op1, op2)
	case "IN":
		return encodeIN(op1, op2, evalOp, placeholder)
	case "OUT":
		return encodeOUT(op1, op2, evalOp, placeholder)
	case "BIT":
		return encodeBitOp(0x40, op1, op2, tok.Op3, evalOp, placeholder)
	case "SET":
		return encodeBitOp(0xC0, op1, op2, tok.Op3, evalOp, placeholder)
	case "RES":
		return encodeBitOp(0x80, op1, op2, tok.Op3, evalOp, placeholder)
	case "RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SL1", "SRL":
		return encodeShift(m, op1, op2, evalOp, placeholder)
	case "INC":
		return encodeIncDec(0x04, 0x03, op1, evalOp, placeholder)
	case "DEC":
		return encodeIncDec(0x05, 0x0B, op1, evalOp, placeholder)
	case "ADD", "ADC", "SUB", "SBC", "AND", "OR", "XOR", "CP":
		return encodeArith(m, op1, op2, evalOp, placeholder)
	case "LD":
		return encodeLD(op1, op2, evalOp, placeholder)
	}
	return nil, false, fmt.Errorf("unsupported mnemonic %s", tok.Mnemonic)
}

func encodeRelative(base byte, target *token.DataAccess, addr int64, evalOp evalFn, placeholder []byte) ([]byte, bool, error) {
	v, ok, err := evalOp(target.Expr)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return placeholder, false, nil
	}
	disp := v - (addr + 2)
	if disp < -128 || disp > 127 {
		return nil, false, fmt.Errorf("relative jump target out of range (%d)", disp)
	}
	return []byte{base, byte(int8(disp))}, true, nil
}

func encodeJP(op1, op2 *token.DataAccess, evalOp evalFn, placeholder []byte) ([]byte, bool, error) {
	if op1 != nil && op1.Kind == token.DAIndirectReg16 && op1.Indir == token.HL {
		return []byte{0xE9}, true, nil
	}
	if op1 != nil && op1.Kind == token.DAIndexReg {
		return []byte{indexPrefix(op1.Index), 0xE9}, true, nil
	}
	if op1 != nil && op1.Kind == token.DAFlag {
		v, ok, err := evalOp(op2.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		idx := flagIdx3(op1.Flag)
		return []byte{0xC2 | byte(idx<<3), lo16(v), hi16(v)}, true, nil
	}
	v, ok, err := evalOp(op1.Expr)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return placeholder, false, nil
	}
	return []byte{0xC3, lo16(v), hi16(v)}, true, nil
}

func encodeCALL(op1, op2 *token.DataAccess, evalOp evalFn, placeholder []byte) ([]byte, bool, error) {
	if op1 != nil && op1.Kind == token.DAFlag {
		v, ok, err := evalOp(op2.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		idx := flagIdx3(op1.Flag)
		return []byte{0xC4 | byte(idx<<3), lo16(v), hi16(v)}, true, nil
	}
	v, ok, err := evalOp(op1.Expr)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return placeholder, false, nil
	}
	return []byte{0xCD, lo16(v), hi16(v)}, true, nil
}

func encodePushPop(base byte, op1 *token.DataAccess, placeholder []byte) ([]byte, bool, error) {
	if op1.Kind == token.DAIndexReg {
		return []byte{indexPrefix(op1.Index), base + 0xE1 - 0xC1}, true, nil
	}
	idx, ok := reg16PushPop(op1.Reg16)
	if !ok {
		return nil, false, fmt.Errorf("invalid register for PUSH/POP")
	}
	return []byte{base | byte(idx<<4)}, true, nil
}

func encodeEX(op1, op2 *token.DataAccess) ([]byte, bool, error) {
	if op1.Kind == token.DAReg16 && op1.Reg16 == token.DE && op2.Kind == token.DAReg16 && op2.Reg16 == token.HL {
		return []byte{0xEB}, true, nil
	}
	if op1.Kind == token.DAReg16 && op1.Reg16 == token.AF && op2.Kind == token.DAReg16 && op2.Reg16 == token.AF {
		return []byte{0x08}, true, nil
	}
	if op1.Kind == token.DAIndirectReg16 && op1.Indir == token.SP {
		if op2.Kind == token.DAIndexReg {
			return []byte{indexPrefix(op2.Index), 0xE3}, true, nil
		}
		return []byte{0xE3}, true, nil
	}
	return nil, false, fmt.Errorf("unsupported EX operand combination")
}

func encodeIN(op1, op2 *token.DataAccess, evalOp evalFn, placeholder []byte) ([]byte, bool, error) {
	if op2 != nil && op2.Kind == token.DAPortC {
		idx, _, ok := reg8Index(op1.Reg8)
		if !ok {
			return nil, false, fmt.Errorf("invalid register for IN r,(C)")
		}
		return []byte{0xED, 0x40 | byte(idx<<3)}, true, nil
	}
	v, ok, err := evalOp(op2.Expr)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return placeholder, false, nil
	}
	return []byte{0xDB, u8(v)}, true, nil
}

func encodeOUT(op1, op2 *token.DataAccess, evalOp evalFn, placeholder []byte) ([]byte, bool, error) {
	if op1 != nil && op1.Kind == token.DAPortC {
		idx, _, ok := reg8Index(op2.Reg8)
		if !ok {
			return nil, false, fmt.Errorf("invalid register for OUT (C),r")
		}
		return []byte{0xED, 0x41 | byte(idx<<3)}, true, nil
	}
	v, ok, err := evalOp(op1.Expr)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return placeholder, false, nil
	}
	idx, _, ok2 := reg8Index(op2.Reg8)
	if !ok2 {
		return nil, false, fmt.Errorf("invalid register for OUT (n),r")
	}
	_ = idx
	return []byte{0xD3, u8(v)}, true, nil
}

func encodeBitOp(base byte, op1, op2, op3 *token.DataAccess, evalOp evalFn, placeholder []byte) ([]byte, bool, error) {
	bit, ok, err := evalOp(op1.Expr)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return placeholder, false, nil
	}
	if bit < 0 || bit > 7 {
		return nil, false, fmt.Errorf("bit index must be 0..7")
	}
	if op2.Kind == token.DAIndexDisp {
		d, ok, err := evalOp(op2.Disp)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		last := base | byte(bit<<3) | 6
		if op3 != nil {
			idx, ferr := fakeDestIndex(op3)
			if ferr != nil {
				return nil, false, ferr
			}
			last = base | byte(bit<<3) | byte(idx)
		}
		return []byte{indexPrefix(op2.Index), 0xCB, byte(int8(d)), last}, true, nil
	}
	if op3 != nil {
		return nil, false, fmt.Errorf("a fake destination register requires an (IX+d)/(IY+d) operand")
	}
	idx, _, ok3 := operandRegOrHL(op2)
	if !ok3 {
		return nil, false, fmt.Errorf("invalid register for bit operation")
	}
	return []byte{0xCB, base | byte(bit<<3) | byte(idx)}, true, nil
}

// fakeDestIndex validates the fake destination register of the
// undocumented DD CB forms: a plain 8-bit register, never (HL) and
// never an IX/IY half.
func fakeDestIndex(op *token.DataAccess) (int, error) {
	if op.Kind != token.DAReg8 {
		return 0, fmt.Errorf("fake destination must be an 8-bit register")
	}
	idx, prefix, ok := reg8Index(op.Reg8)
	if !ok || prefix != 0 {
		return 0, fmt.Errorf("fake destination must be one of B, C, D, E, H, L, A")
	}
	return idx, nil
}

func operandRegOrHL(op *token.DataAccess) (int, byte, bool) {
	if op.Kind == token.DAIndirectReg16 && op.Indir == token.HL {
		return 6, 0, true
	}
	if op.Kind == token.DAReg8 {
		return reg8Index(op.Reg8)
	}
	return 0, 0, false
}

func encodeShift(m string, op1, op2 *token.DataAccess, evalOp evalFn, placeholder []byte) ([]byte, bool, error) {
	var base byte
	switch m {
	case "RLC":
		base = 0x00
	case "RRC":
		base = 0x08
	case "RL":
		base = 0x10
	case "RR":
		base = 0x18
	case "SLA":
		base = 0x20
	case "SRA":
		base = 0x28
	case "SLL", "SL1":
		base = 0x30
	case "SRL":
		base = 0x38
	}
	if op1.Kind == token.DAIndexDisp {
		d, ok, err := evalOp(op1.Disp)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		last := base | 6
		if op2 != nil {
			// Undocumented RLC (IX+d),r form: the result is also stored
			// into the named fake destination register.
			idx, ferr := fakeDestIndex(op2)
			if ferr != nil {
				return nil, false, ferr
			}
			last = base | byte(idx)
		}
		return []byte{indexPrefix(op1.Index), 0xCB, byte(int8(d)), last}, true, nil
	}
	if op2 != nil {
		return nil, false, fmt.Errorf("a fake destination register requires an (IX+d)/(IY+d) operand")
	}
	idx, _, ok := operandRegOrHL(op1)
	if !ok {
		return nil, false, fmt.Errorf("invalid register for shift/rotate")
	}
	return []byte{0xCB, base | byte(idx)}, true, nil
}

func encodeIncDec(baseReg8, baseReg16 byte, op1 *token.DataAccess, evalOp evalFn, placeholder []byte) ([]byte, bool, error) {
	switch op1.Kind {
	case token.DAReg8:
		idx, prefix, ok := reg8Index(op1.Reg8)
		if !ok {
			return nil, false, fmt.Errorf("invalid register")
		}
		body := []byte{baseReg8 | byte(idx<<3)}
		if prefix != 0 {
			return append([]byte{prefix}, body...), true, nil
		}
		return body, true, nil
	case token.DAReg16:
		idx, ok := reg16DD(op1.Reg16)
		if !ok {
			return nil, false, fmt.Errorf("invalid register pair")
		}
		return []byte{baseReg16 | byte(idx<<4)}, true, nil
	case token.DAIndexReg:
		return []byte{indexPrefix(op1.Index), baseReg16 | byte(2<<4)}, true, nil
	case token.DAIndirectReg16:
		if op1.Indir != token.HL {
			return nil, false, fmt.Errorf("only (HL) supports this form of INC/DEC")
		}
		return []byte{baseReg8 | 6<<3}, true, nil
	case token.DAIndexDisp:
		d, ok, err := evalOp(op1.Disp)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		return []byte{indexPrefix(op1.Index), baseReg8 | 6<<3, byte(int8(d))}, true, nil
	}
	return nil, false, fmt.Errorf("unsupported INC/DEC operand")
}

// arithBases maps ADD/ADC/SUB/SBC/AND/OR/XOR/CP to the opcode's base
// for the r-operand (8-bit accumulator) form and the immediate form.
var arithBases = map[string][2]byte{
	"ADD": {0x80, 0xC6}, "ADC": {0x88, 0xCE}, "SUB": {0x90, 0xD6},
	"SBC": {0x98, 0xDE}, "AND": {0xA0, 0xE6}, "OR": {0xB0, 0xF6},
	"XOR": {0xA8, 0xEE}, "CP": {0xB8, 0xFE},
}

func encodeArith(m string, op1, op2 *token.DataAccess, evalOp evalFn, placeholder []byte) ([]byte, bool, error) {
	bases := arithBases[m]
	src := op2
	if src == nil {
		src = op1 // one-operand form: AND r / OR r / XOR r / CP r / SUB r
	} else if op1.Kind == token.DAReg16 || op1.Kind == token.DAIndexReg {
		// ADD HL,ss / ADC HL,ss / SBC HL,ss / ADD IX,ss
		return encodeArith16(m, op1, op2)
	}

	switch src.Kind {
	case token.DAReg8:
		idx, prefix, ok := reg8Index(src.Reg8)
		if !ok {
			return nil, false, fmt.Errorf("invalid register")
		}
		body := []byte{bases[0] | byte(idx)}
		if prefix != 0 {
			return append([]byte{prefix}, body...), true, nil
		}
		return body, true, nil
	case token.DAIndirectReg16:
		if src.Indir != token.HL {
			return nil, false, fmt.Errorf("only (HL) supports this form")
		}
		return []byte{bases[0] | 6}, true, nil
	case token.DAIndexDisp:
		d, ok, err := evalOp(src.Disp)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		return []byte{indexPrefix(src.Index), bases[0] | 6, byte(int8(d))}, true, nil
	case token.DAImmediate:
		v, ok, err := evalOp(src.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		return []byte{bases[1], u8(v)}, true, nil
	}
	return nil, false, fmt.Errorf("unsupported operand for %s", m)
}

func encodeArith16(m string, op1, op2 *token.DataAccess) ([]byte, bool, error) {
	idx, ok := reg16DD(op2.Reg16)
	if !ok {
		return nil, false, fmt.Errorf("invalid register pair operand")
	}
	if op1.Kind == token.DAIndexReg {
		prefix := indexPrefix(op1.Index)
		if m != "ADD" {
			return nil, false, fmt.Errorf("only ADD supports IX/IY as the 16-bit destination")
		}
		return []byte{prefix, 0x09 | byte(idx<<4)}, true, nil
	}
	switch m {
	case "ADD":
		return []byte{0x09 | byte(idx<<4)}, true, nil
	case "ADC":
		return []byte{0xED, 0x4A | byte(idx<<4)}, true, nil
	case "SBC":
		return []byte{0xED, 0x42 | byte(idx<<4)}, true, nil
	}
	return nil, false, fmt.Errorf("%s does not support 16-bit operands", m)
}

func encodeLD(op1, op2 *token.DataAccess, evalOp evalFn, placeholder []byte) ([]byte, bool, error) {
	switch {
	case op1.Kind == token.DAReg8 && op1.Reg8 == token.I && op2.Kind == token.DAReg8 && op2.Reg8 == token.A:
		return []byte{0xED, 0x47}, true, nil
	case op1.Kind == token.DAReg8 && op1.Reg8 == token.R && op2.Kind == token.DAReg8 && op2.Reg8 == token.A:
		return []byte{0xED, 0x4F}, true, nil
	case op1.Kind == token.DAReg8 && op1.Reg8 == token.A && op2.Kind == token.DAReg8 && op2.Reg8 == token.I:
		return []byte{0xED, 0x57}, true, nil
	case op1.Kind == token.DAReg8 && op1.Reg8 == token.A && op2.Kind == token.DAReg8 && op2.Reg8 == token.R:
		return []byte{0xED, 0x5F}, true, nil
	case op1.Kind == token.DAReg8 && op2.Kind == token.DAReg8:
		d, dp, ok1 := reg8Index(op1.Reg8)
		s, sp, ok2 := reg8Index(op2.Reg8)
		if !ok1 || !ok2 {
			return nil, false, fmt.Errorf("invalid register in LD r,r'")
		}
		if dp != 0 && sp != 0 && dp != sp {
			return nil, false, fmt.Errorf("cannot mix IX and IY halves in one instruction")
		}
		body := []byte{0x40 | byte(d<<3) | byte(s)}
		if dp != 0 {
			return append([]byte{dp}, body...), true, nil
		}
		if sp != 0 {
			return append([]byte{sp}, body...), true, nil
		}
		return body, true, nil
	case op1.Kind == token.DAReg8 && op2.Kind == token.DAImmediate:
		v, ok, err := evalOp(op2.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		idx, prefix, ok2 := reg8Index(op1.Reg8)
		if !ok2 {
			return nil, false, fmt.Errorf("invalid register")
		}
		body := []byte{0x06 | byte(idx<<3), u8(v)}
		if prefix != 0 {
			return append([]byte{prefix}, body...), true, nil
		}
		return body, true, nil
	case op1.Kind == token.DAReg8 && op2.Kind == token.DAIndexDisp:
		d, ok, err := evalOp(op2.Disp)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		idx, _, ok2 := reg8Index(op1.Reg8)
		if !ok2 {
			return nil, false, fmt.Errorf("invalid register")
		}
		return []byte{indexPrefix(op2.Index), 0x46 | byte(idx<<3), byte(int8(d))}, true, nil
	case op1.Kind == token.DAIndexDisp && op2.Kind == token.DAReg8:
		d, ok, err := evalOp(op1.Disp)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		idx, _, ok2 := reg8Index(op2.Reg8)
		if !ok2 {
			return nil, false, fmt.Errorf("invalid register")
		}
		return []byte{indexPrefix(op1.Index), 0x70 | byte(idx), byte(int8(d))}, true, nil
	case op1.Kind == token.DAIndexDisp && op2.Kind == token.DAImmediate:
		d, ok, err := evalOp(op1.Disp)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		v, ok2, err := evalOp(op2.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok2 {
			return placeholder, false, nil
		}
		return []byte{indexPrefix(op1.Index), 0x36, byte(int8(d)), u8(v)}, true, nil
	case op1.Kind == token.DAReg8 && op1.Reg8 == token.A && op2.Kind == token.DAIndirectReg16:
		switch op2.Indir {
		case token.BC:
			return []byte{0x0A}, true, nil
		case token.DE:
			return []byte{0x1A}, true, nil
		case token.HL:
			return []byte{0x7E}, true, nil
		}
		return nil, false, fmt.Errorf("unsupported indirect register for LD A,(rr)")
	case op1.Kind == token.DAIndirectReg16 && op2.Kind == token.DAReg8 && op2.Reg8 == token.A:
		switch op1.Indir {
		case token.BC:
			return []byte{0x02}, true, nil
		case token.DE:
			return []byte{0x12}, true, nil
		case token.HL:
			return []byte{0x77}, true, nil
		}
		return nil, false, fmt.Errorf("unsupported indirect register for LD (rr),A")
	case op1.Kind == token.DAReg8 && op2.Kind == token.DAIndirectReg16 && op2.Indir == token.HL:
		idx, _, ok := reg8Index(op1.Reg8)
		if !ok {
			return nil, false, fmt.Errorf("invalid register")
		}
		return []byte{0x46 | byte(idx<<3)}, true, nil
	case op1.Kind == token.DAIndirectReg16 && op1.Indir == token.HL && op2.Kind == token.DAReg8:
		idx, _, ok := reg8Index(op2.Reg8)
		if !ok {
			return nil, false, fmt.Errorf("invalid register")
		}
		return []byte{0x70 | byte(idx)}, true, nil
	case op1.Kind == token.DAReg8 && op1.Reg8 == token.A && op2.Kind == token.DAIndirectAbs:
		v, ok, err := evalOp(op2.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		return []byte{0x3A, lo16(v), hi16(v)}, true, nil
	case op1.Kind == token.DAIndirectAbs && op2.Kind == token.DAReg8 && op2.Reg8 == token.A:
		v, ok, err := evalOp(op1.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		return []byte{0x32, lo16(v), hi16(v)}, true, nil
	case op1.Kind == token.DAReg16 && op2.Kind == token.DAImmediate:
		idx, ok := reg16DD(op1.Reg16)
		if !ok {
			return nil, false, fmt.Errorf("invalid register pair")
		}
		v, ok2, err := evalOp(op2.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok2 {
			return placeholder, false, nil
		}
		return []byte{0x01 | byte(idx<<4), lo16(v), hi16(v)}, true, nil
	case op1.Kind == token.DAIndexReg && op2.Kind == token.DAImmediate:
		v, ok, err := evalOp(op2.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		return []byte{indexPrefix(op1.Index), 0x21, lo16(v), hi16(v)}, true, nil
	case op1.Kind == token.DAReg16 && op2.Kind == token.DAIndirectAbs:
		v, ok, err := evalOp(op2.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		if op1.Reg16 == token.HL {
			return []byte{0x2A, lo16(v), hi16(v)}, true, nil
		}
		idx, ok2 := reg16DD(op1.Reg16)
		if !ok2 {
			return nil, false, fmt.Errorf("invalid register pair")
		}
		return []byte{0xED, 0x4B | byte(idx<<4), lo16(v), hi16(v)}, true, nil
	case op1.Kind == token.DAIndirectAbs && op2.Kind == token.DAReg16:
		v, ok, err := evalOp(op1.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		if op2.Reg16 == token.HL {
			return []byte{0x22, lo16(v), hi16(v)}, true, nil
		}
		idx, ok2 := reg16DD(op2.Reg16)
		if !ok2 {
			return nil, false, fmt.Errorf("invalid register pair")
		}
		return []byte{0xED, 0x43 | byte(idx<<4), lo16(v), hi16(v)}, true, nil
	case op1.Kind == token.DAIndexReg && op2.Kind == token.DAIndirectAbs:
		v, ok, err := evalOp(op2.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		return []byte{indexPrefix(op1.Index), 0x2A, lo16(v), hi16(v)}, true, nil
	case op1.Kind == token.DAIndirectAbs && op2.Kind == token.DAIndexReg:
		v, ok, err := evalOp(op1.Expr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return placeholder, false, nil
		}
		return []byte{indexPrefix(op2.Index), 0x22, lo16(v), hi16(v)}, true, nil
	case op1.Kind == token.DAReg16 && op1.Reg16 == token.SP && op2.Kind == token.DAReg16 && op2.Reg16 == token.HL:
		return []byte{0xF9}, true, nil
	case op1.Kind == token.DAReg16 && op1.Reg16 == token.SP && op2.Kind == token.DAIndexReg:
		return []byte{indexPrefix(op2.Index), 0xF9}, true, nil
	}
	return nil, false, fmt.Errorf("unsupported LD operand combination")
}
