package z80parser

import (
	"github.com/gmofishsauce/cpcasm/expr"
	"github.com/gmofishsauce/cpcasm/span"
)

// Expression parsing is precedence climbing, grounded directly on
// lang/yasm/expr.go's ExprParser.parseExpr(prec)/parsePrimary(), widened
// from wut4's five-level grammar to the eleven levels spec section 3.2
// and 4.1 define (boolean-or down through unary), with a ternary level
// below them.
const (
	precLowest = iota
	precTernary
	precOr
	precAnd
	precEquality
	precRelational
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdditive
	precMultiplicative
	precUnary
)

var binPrec = map[lexKind]int{
	tOrOr:    precOr,
	tAndAnd:  precAnd,
	tPipe:    precBitOr,
	tCaret:   precBitXor,
	tAmp:     precBitAnd,
	tEq:      precEquality,
	tNeq:     precEquality,
	tLt:      precRelational,
	tLe:      precRelational,
	tGt:      precRelational,
	tGe:      precRelational,
	tLShift:  precShift,
	tRShift:  precShift,
	tPlus:    precAdditive,
	tMinus:   precAdditive,
	tStar:    precMultiplicative,
	tSlash:   precMultiplicative,
	tPercent: precMultiplicative,
}

var binOpFor = map[lexKind]expr.BinaryOp{
	tOrOr:    expr.BoolOr,
	tAndAnd:  expr.BoolAnd,
	tPipe:    expr.BitOr,
	tCaret:   expr.BitXor,
	tAmp:     expr.BitAnd,
	tEq:      expr.Eq,
	tNeq:     expr.Neq,
	tLt:      expr.Lt,
	tLe:      expr.Le,
	tGt:      expr.Gt,
	tGe:      expr.Ge,
	tLShift:  expr.Shl,
	tRShift:  expr.Shr,
	tPlus:    expr.Add,
	tMinus:   expr.Sub,
	tStar:    expr.Mul,
	tSlash:   expr.Div,
	tPercent: expr.Mod,
}

func (p *parser) parseExpr(minPrec int) (*expr.Node, *parseError) {
	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	_ = minPrec
	return left, nil
}

func (p *parser) parseTernary() (*expr.Node, *parseError) {
	cond, err := p.parseBinary(precOr)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tQuestion {
		return cond, nil
	}
	p.pos++
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tColon, "`:` in ternary expression"); err != nil {
		return nil, err
	}
	elseVal, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &expr.Node{
		Kind: expr.Conditional,
		Span: span.Cover(cond.Span, elseVal.Span),
		Cond: cond, Then: then, Else: elseVal,
	}, nil
}

func (p *parser) parseBinary(minPrec int) (*expr.Node, *parseError) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		prec, ok := binPrec[t.kind]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.pos++
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &expr.Node{
			Kind:  expr.Binary,
			Span:  span.Cover(left.Span, right.Span),
			BinOp: binOpFor[t.kind],
			L:     left, R: right,
		}
	}
}

func (p *parser) parseUnary() (*expr.Node, *parseError) {
	t := p.peek()
	switch t.kind {
	case tMinus:
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &expr.Node{Kind: expr.Unary, Span: span.Cover(t.span, x.Span), UnOp: expr.Neg, X: x}, nil
	case tTilde:
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &expr.Node{Kind: expr.Unary, Span: span.Cover(t.span, x.Span), UnOp: expr.BitNot, X: x}, nil
	case tBang:
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &expr.Node{Kind: expr.Unary, Span: span.Cover(t.span, x.Span), UnOp: expr.BoolNot, X: x}, nil
	case tGt:
		// prefix `>expr` takes the high byte, matching the CPC assembler
		// convention also exposed as the hi() builtin.
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &expr.Node{Kind: expr.Unary, Span: span.Cover(t.span, x.Span), UnOp: expr.Hi, X: x}, nil
	case tLt:
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &expr.Node{Kind: expr.Unary, Span: span.Cover(t.span, x.Span), UnOp: expr.Lo, X: x}, nil
	case tPlus:
		p.pos++
		return p.parseUnary()
	default:
		return p.parsePrimary()
	}
}

func (p *parser) parsePrimary() (*expr.Node, *parseError) {
	t := p.peek()
	switch t.kind {
	case tNumber:
		p.pos++
		return &expr.Node{Kind: expr.Int, Span: t.span, Int: t.intVal}, nil
	case tFloatNumber:
		p.pos++
		return &expr.Node{Kind: expr.Float, Span: t.span, Float: t.floatVal}, nil
	case tString:
		p.pos++
		return &expr.Node{Kind: expr.String, Span: t.span, Str: t.text}, nil
	case tDollar:
		p.pos++
		return &expr.Node{Kind: expr.CurrentAddress, Span: t.span}, nil
	case tLParen:
		p.pos++
		inner, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		close, err := p.expect(tRParen, "`)`")
		if err != nil {
			return nil, err
		}
		return &expr.Node{Kind: expr.Group, Span: span.Cover(t.span, close.span), X: inner}, nil
	case tIdent:
		p.pos++
		if p.peek().kind == tLParen {
			return p.parseCallExpr(t)
		}
		return &expr.Node{Kind: expr.Symbol, Span: t.span, Symbol: t.text}, nil
	default:
		return nil, newParseError(t.span, "expected expression")
	}
}

func (p *parser) parseCallExpr(name lexTok) (*expr.Node, *parseError) {
	p.pos++ // consume '('
	var args []*expr.Node
	if p.peek().kind != tRParen {
		for {
			a, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.peek().kind != tComma {
				break
			}
			p.pos++
		}
	}
	close, err := p.expect(tRParen, "`)` closing call to "+name.text)
	if err != nil {
		return nil, err
	}
	return &expr.Node{Kind: expr.Call, Span: span.Cover(name.span, close.span), Func: name.text, Args: args}, nil
}
