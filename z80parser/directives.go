package z80parser

import (
	"github.com/gmofishsauce/cpcasm/expr"
	"github.com/gmofishsauce/cpcasm/span"
	"github.com/gmofishsauce/cpcasm/token"
)

// parseDirective dispatches a recognized directive keyword to its body
// parser. Grounded on gmofishsauce/wut4/asm/directives.go's
// processDirective dispatch table, widened from wut4's six directives to
// the spec's full set including the block-structured forms (IF/REPEAT/
// WHILE/FOR/MACRO/MODULE/STRUCT) wut4 never had.
func (p *parser) parseDirective(kwSpan span.Span, start int, name string, kw directiveKW) (token.Token, *parseError) {
	if kw.kind == dkBlock {
		return p.parseBlockDirective(kwSpan, kw.dir)
	}
	switch kw.dir {
	case token.DirORG:
		return p.parseExprListDirective(kwSpan, token.DirORG, 1, 1)
	case token.DirALIGN:
		return p.parseExprListDirective(kwSpan, token.DirALIGN, 1, 2)
	case token.DirDEFB:
		return p.parseExprListDirective(kwSpan, token.DirDEFB, 1, -1)
	case token.DirDEFW:
		return p.parseExprListDirective(kwSpan, token.DirDEFW, 1, -1)
	case token.DirDEFS:
		return p.parseDEFS(kwSpan)
	case token.DirINCBIN:
		return p.parseStringArgDirective(kwSpan, token.DirINCBIN)
	case token.DirINCLUDE:
		return p.parseStringArgDirective(kwSpan, token.DirINCLUDE)
	case token.DirBANK:
		return p.parseExprListDirective(kwSpan, token.DirBANK, 1, 1)
	case token.DirBANKSET:
		return p.parseExprListDirective(kwSpan, token.DirBANKSET, 1, 1)
	case token.DirLIMIT:
		return p.parseExprListDirective(kwSpan, token.DirLIMIT, 1, 1)
	case token.DirASSERT:
		return p.parseASSERT(kwSpan)
	case token.DirPRINT:
		return p.parsePRINT(kwSpan)
	case token.DirFAIL:
		return p.parsePRINT(kwSpan) // same shape: optional string/expr list
	case token.DirRUN:
		return p.parseExprListDirective(kwSpan, token.DirRUN, 0, 2)
	case token.DirBREAKPOINT:
		return p.parseExprListDirective(kwSpan, token.DirBREAKPOINT, 0, 1)
	case token.DirSTOP:
		tok := token.Token{Kind: token.KDirective, Span: kwSpan, Directive: token.DirSTOP}
		return tok, nil
	case token.DirLOCOMOTIVE:
		return p.parseLOCOMOTIVE(kwSpan)
	case token.DirCHARSET:
		return p.parseCHARSET(kwSpan)
	case token.DirBUILDSNA:
		return p.parseStringArgDirective(kwSpan, token.DirBUILDSNA)
	case token.DirWRITEDIRECT:
		return p.parseExprListDirective(kwSpan, token.DirWRITEDIRECT, 1, -1)
	case token.DirSAVE:
		return p.parseSAVE(kwSpan)
	default:
		return token.Token{}, newParseError(kwSpan, "unimplemented directive %s", name)
	}
}

func (p *parser) parseExprList(min, max int) ([]*expr.Node, *parseError) {
	var out []*expr.Node
	if p.peek().kind == tNewline || p.peek().kind == tEOF {
		if min > 0 {
			return nil, newParseError(p.peek().span, "expected at least %d expression(s)", min)
		}
		return out, nil
	}
	for {
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if max > 0 && len(out) >= max {
			break
		}
		if p.peek().kind != tComma {
			break
		}
		p.pos++
	}
	if len(out) < min {
		return nil, newParseError(p.peek().span, "expected at least %d expression(s)", min)
	}
	return out, nil
}

func (p *parser) parseExprListDirective(kwSpan span.Span, dir token.Directive, min, max int) (token.Token, *parseError) {
	exprs, err := p.parseExprList(min, max)
	if err != nil {
		return token.Token{}, err
	}
	tok := token.Token{Kind: token.KDirective, Span: kwSpan, Directive: dir, Exprs: exprs}
	if len(exprs) > 0 {
		tok.Span = span.Cover(kwSpan, exprs[len(exprs)-1].Span)
	}
	return tok, nil
}

func (p *parser) parseDEFS(kwSpan span.Span) (token.Token, *parseError) {
	count, err := p.parseExpr(0)
	if err != nil {
		return token.Token{}, err
	}
	tok := token.Token{Kind: token.KDirective, Span: kwSpan, Directive: token.DirDEFS, Count: count}
	if p.peek().kind == tComma {
		p.pos++
		fill, err := p.parseExpr(0)
		if err != nil {
			return token.Token{}, err
		}
		tok.Fill = fill
		tok.Span = span.Cover(kwSpan, fill.Span)
	} else {
		tok.Span = span.Cover(kwSpan, count.Span)
	}
	return tok, nil
}

func (p *parser) parseStringArgDirective(kwSpan span.Span, dir token.Directive) (token.Token, *parseError) {
	s, err := p.expect(tString, "string literal")
	if err != nil {
		return token.Token{}, err
	}
	return token.Token{Kind: token.KDirective, Span: span.Cover(kwSpan, s.span), Directive: dir, Strs: []string{s.text}}, nil
}

func (p *parser) parseASSERT(kwSpan span.Span) (token.Token, *parseError) {
	cond, err := p.parseExpr(0)
	if err != nil {
		return token.Token{}, err
	}
	tok := token.Token{Kind: token.KDirective, Span: span.Cover(kwSpan, cond.Span), Directive: token.DirASSERT, Exprs: []*expr.Node{cond}}
	if p.peek().kind == tComma {
		p.pos++
		s, err := p.expect(tString, "message string")
		if err != nil {
			return token.Token{}, err
		}
		tok.Strs = []string{s.text}
		tok.Span = span.Cover(kwSpan, s.span)
	}
	return tok, nil
}

func (p *parser) parsePRINT(kwSpan span.Span) (token.Token, *parseError) {
	tok := token.Token{Kind: token.KDirective, Span: kwSpan, Directive: token.DirPRINT}
	if p.peek().kind == tNewline || p.peek().kind == tEOF {
		return tok, nil
	}
	for {
		if p.peek().kind == tString {
			tok.Strs = append(tok.Strs, p.peek().text)
			tok.Span = span.Cover(kwSpan, p.peek().span)
			p.pos++
		} else {
			e, err := p.parseExpr(0)
			if err != nil {
				return token.Token{}, err
			}
			tok.Exprs = append(tok.Exprs, e)
			tok.Span = span.Cover(kwSpan, e.Span)
		}
		if p.peek().kind != tComma {
			break
		}
		p.pos++
	}
	return tok, nil
}

func (p *parser) parseCHARSET(kwSpan span.Span) (token.Token, *parseError) {
	name, err := p.expect(tIdent, "charset name")
	if err != nil {
		return token.Token{}, err
	}
	tok := token.Token{Kind: token.KDirective, Span: span.Cover(kwSpan, name.span), Directive: token.DirCHARSET, Name2: name.text}
	if p.peek().kind == tComma {
		p.pos++
		exprs, err := p.parseExprList(1, -1)
		if err != nil {
			return token.Token{}, err
		}
		tok.Exprs = exprs
		tok.Span = span.Cover(kwSpan, exprs[len(exprs)-1].Span)
	}
	return tok, nil
}

// parseLOCOMOTIVE captures the embedded Locomotive BASIC source between
// `LOCOMOTIVE` and a line reading `ENDLOCOMOTIVE`. The body is raw BASIC
// text, not Z80 source, so it is lifted straight out of the buffer
// rather than lexed; the lexer is then repositioned past the terminator.
func (p *parser) parseLOCOMOTIVE(kwSpan span.Span) (token.Token, *parseError) {
	tok := token.Token{Kind: token.KDirective, Span: kwSpan, Directive: token.DirLOCOMOTIVE}
	if p.peek().kind == tIdent {
		tok.Name2 = p.peek().text
		p.pos++
	}
	nl := p.peek()
	if nl.kind != tNewline {
		return token.Token{}, newParseError(nl.span, "expected end of line after LOCOMOTIVE")
	}
	p.pos++

	data := p.arena.Buffer(p.buffer).Data
	bodyStart := nl.span.End()
	i := bodyStart
	bodyEnd, resumeAt := -1, -1
	for i <= len(data) {
		lineEnd := i
		for lineEnd < len(data) && data[lineEnd] != '\n' {
			lineEnd++
		}
		if trimmedEquals(data[i:lineEnd], "ENDLOCOMOTIVE") {
			bodyEnd = i
			resumeAt = lineEnd
			break
		}
		if lineEnd >= len(data) {
			break
		}
		i = lineEnd + 1
	}
	if bodyEnd < 0 {
		return token.Token{}, newParseError(kwSpan, "missing ENDLOCOMOTIVE")
	}
	tok.Strs = []string{string(data[bodyStart:bodyEnd])}
	tok.Span = span.Span{Arena: kwSpan.Arena, Buffer: kwSpan.Buffer, Offset: kwSpan.Offset, Length: bodyEnd - kwSpan.Offset}
	p.resyncAt(resumeAt)
	return tok, nil
}

func trimmedEquals(line []byte, want string) bool {
	start, end := 0, len(line)
	for start < end && (line[start] == ' ' || line[start] == '\t') {
		start++
	}
	for end > start && (line[end-1] == ' ' || line[end-1] == '\t' || line[end-1] == '\r') {
		end--
	}
	return upper(string(line[start:end])) == want
}

// parseSAVE handles the four SaveSpec shapes from spec section 6.1:
// SAVE "path", start, length[, AMSDOS|BASIC|SNAPSHOT][, further args].
func (p *parser) parseSAVE(kwSpan span.Span) (token.Token, *parseError) {
	path, err := p.expect(tString, "output path string")
	if err != nil {
		return token.Token{}, err
	}
	tok := token.Token{Kind: token.KDirective, Span: span.Cover(kwSpan, path.span), Directive: token.DirSAVE, Strs: []string{path.text}, SaveVariant: token.SaveRaw}
	for p.peek().kind == tComma {
		p.pos++
		if p.peek().kind == tIdent {
			switch upper(p.peek().text) {
			case "AMSDOS":
				tok.SaveVariant = token.SaveAmsdosBinary
				p.pos++
				continue
			case "BASIC":
				tok.SaveVariant = token.SaveAmsdosBasic
				p.pos++
				continue
			case "SNAPSHOT":
				tok.SaveVariant = token.SaveSnapshot
				p.pos++
				continue
			}
		}
		e, err := p.parseExpr(0)
		if err != nil {
			return token.Token{}, err
		}
		tok.Exprs = append(tok.Exprs, e)
		tok.Span = span.Cover(kwSpan, e.Span)
	}
	return tok, nil
}

// parseBlockDirective parses the body of an IF/REPEAT/WHILE/FOR/MACRO/
// MODULE/STRUCT directive up to and including its terminator keyword,
// recursing through parseListing for the nested body. Each recognized
// terminator in blockTerminators[dir] ends the block; IF additionally
// recognizes ELSEIF/ELSE before ENDIF.
func (p *parser) parseBlockDirective(kwSpan span.Span, dir token.Directive) (token.Token, *parseError) {
	switch dir {
	case token.DirIF:
		return p.parseIF(kwSpan)
	case token.DirREPEAT:
		return p.parseREPEAT(kwSpan)
	case token.DirWHILE:
		return p.parseWHILE(kwSpan)
	case token.DirFOR:
		return p.parseFOR(kwSpan)
	case token.DirMACRO:
		return p.parseMACRO(kwSpan)
	case token.DirMODULE:
		return p.parseMODULE(kwSpan)
	case token.DirSTRUCT:
		return p.parseSTRUCT(kwSpan)
	default:
		return token.Token{}, newParseError(kwSpan, "unimplemented block directive")
	}
}

// parseNestedListing parses statements until the current token is one
// of the given terminator keywords (not consumed), honoring the
// terminator even if it would otherwise be parsed as a label/mnemonic.
func (p *parser) parseNestedListing(terminators []string) (token.Listing, *parseError) {
	var out token.Listing
	for {
		p.skipNewlines()
		t := p.peek()
		if t.kind == tEOF {
			return out, newParseError(t.span, "unexpected end of file inside block (expected %v)", terminators)
		}
		if t.kind == tIdent && matchesAny(upper(t.text), terminators) {
			return out, nil
		}
		toks, err := p.parseLine()
		if err != nil {
			return out, err
		}
		out.Tokens = append(out.Tokens, toks...)
	}
}

func matchesAny(name string, set []string) bool {
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}

func (p *parser) parseIF(kwSpan span.Span) (token.Token, *parseError) {
	cond, err := p.parseExpr(0)
	if err != nil {
		return token.Token{}, err
	}
	if err := p.endOfStatement(); err != nil {
		return token.Token{}, err
	}
	p.pos++ // consume newline
	body, err := p.parseNestedListing([]string{"ENDIF", "ELSEIF", "ELSE"})
	if err != nil {
		return token.Token{}, err
	}
	tok := token.Token{Kind: token.KDirective, Span: kwSpan, Directive: token.DirIF, Exprs: []*expr.Node{cond}, Body: body}

	for p.atIdent("ELSEIF") {
		p.pos++
		ec, err := p.parseExpr(0)
		if err != nil {
			return token.Token{}, err
		}
		if err := p.endOfStatement(); err != nil {
			return token.Token{}, err
		}
		p.pos++
		eb, err := p.parseNestedListing([]string{"ENDIF", "ELSEIF", "ELSE"})
		if err != nil {
			return token.Token{}, err
		}
		tok.ElseIfs = append(tok.ElseIfs, token.ElseIf{Cond: ec, Body: eb})
	}
	if p.atIdent("ELSE") {
		p.pos++
		if err := p.endOfStatement(); err != nil {
			return token.Token{}, err
		}
		p.pos++
		eb, err := p.parseNestedListing([]string{"ENDIF"})
		if err != nil {
			return token.Token{}, err
		}
		tok.ElseBody = &eb
	}
	end, err := p.expect(tIdent, "ENDIF")
	if err != nil {
		return token.Token{}, err
	}
	tok.Span = span.Cover(kwSpan, end.span)
	return tok, nil
}

// parseREPEAT handles both `REPEAT count ... ENDREPEAT` and
// `REPEAT ... UNTIL cond`, per spec section 4.1's REPEAT_COUNTER note
// (restored from original_source/, see SPEC_FULL.md).
func (p *parser) parseREPEAT(kwSpan span.Span) (token.Token, *parseError) {
	var count *expr.Node
	if p.peek().kind != tNewline {
		c, err := p.parseExpr(0)
		if err != nil {
			return token.Token{}, err
		}
		count = c
	}
	if err := p.endOfStatement(); err != nil {
		return token.Token{}, err
	}
	p.pos++
	body, err := p.parseNestedListing([]string{"ENDREPEAT", "UNTIL"})
	if err != nil {
		return token.Token{}, err
	}
	tok := token.Token{Kind: token.KDirective, Span: kwSpan, Directive: token.DirREPEAT, Count: count, Body: body}
	if p.atIdent("UNTIL") {
		p.pos++
		cond, err := p.parseExpr(0)
		if err != nil {
			return token.Token{}, err
		}
		tok.Exprs = []*expr.Node{cond}
		tok.Span = span.Cover(kwSpan, cond.Span)
		return tok, nil
	}
	end, err := p.expect(tIdent, "ENDREPEAT")
	if err != nil {
		return token.Token{}, err
	}
	tok.Span = span.Cover(kwSpan, end.span)
	return tok, nil
}

func (p *parser) parseWHILE(kwSpan span.Span) (token.Token, *parseError) {
	cond, err := p.parseExpr(0)
	if err != nil {
		return token.Token{}, err
	}
	if err := p.endOfStatement(); err != nil {
		return token.Token{}, err
	}
	p.pos++
	body, err := p.parseNestedListing([]string{"ENDW", "WEND"})
	if err != nil {
		return token.Token{}, err
	}
	end, err := p.expect(tIdent, "ENDW")
	if err != nil {
		return token.Token{}, err
	}
	return token.Token{Kind: token.KDirective, Span: span.Cover(kwSpan, end.span), Directive: token.DirWHILE, Exprs: []*expr.Node{cond}, Body: body}, nil
}

func (p *parser) parseFOR(kwSpan span.Span) (token.Token, *parseError) {
	v, err := p.expect(tIdent, "loop variable name")
	if err != nil {
		return token.Token{}, err
	}
	if _, err := p.expect(tAssign, "`=`"); err != nil {
		return token.Token{}, err
	}
	from, err := p.parseExpr(0)
	if err != nil {
		return token.Token{}, err
	}
	if !p.atIdent("TO") {
		return token.Token{}, newParseError(p.peek().span, "expected TO")
	}
	p.pos++
	to, err := p.parseExpr(0)
	if err != nil {
		return token.Token{}, err
	}
	var step *expr.Node
	if p.atIdent("STEP") {
		p.pos++
		s, err := p.parseExpr(0)
		if err != nil {
			return token.Token{}, err
		}
		step = s
	}
	if err := p.endOfStatement(); err != nil {
		return token.Token{}, err
	}
	p.pos++
	body, err := p.parseNestedListing([]string{"ENDFOR"})
	if err != nil {
		return token.Token{}, err
	}
	end, err := p.expect(tIdent, "ENDFOR")
	if err != nil {
		return token.Token{}, err
	}
	return token.Token{
		Kind: token.KDirective, Span: span.Cover(kwSpan, end.span), Directive: token.DirFOR,
		ForVar: v.text, ForFrom: from, ForTo: to, ForStep: step, Body: body,
	}, nil
}

func (p *parser) parseMACRO(kwSpan span.Span) (token.Token, *parseError) {
	name, err := p.expect(tIdent, "macro name")
	if err != nil {
		return token.Token{}, err
	}
	return p.parseMACROBody(kwSpan, name.text)
}

// parseMACROBody parses the parameter list and body shared by the
// `MACRO name params` and name-first `name MACRO params` spellings.
func (p *parser) parseMACROBody(kwSpan span.Span, name string) (token.Token, *parseError) {
	if p.callables != nil {
		p.callables[upper(name)] = true
	}
	var params []string
	consumedParens := false
	if p.peek().kind == tLParen {
		consumedParens = true
		p.pos++
		if p.peek().kind != tRParen {
			for {
				pm, err := p.expect(tIdent, "parameter name")
				if err != nil {
					return token.Token{}, err
				}
				params = append(params, pm.text)
				if p.peek().kind != tComma {
					break
				}
				p.pos++
			}
		}
		if _, err := p.expect(tRParen, "`)`"); err != nil {
			return token.Token{}, err
		}
	}
	if !consumedParens {
		for p.peek().kind == tIdent {
			pm := p.peek()
			p.pos++
			params = append(params, pm.text)
			if p.peek().kind != tComma {
				break
			}
			p.pos++
		}
	}
	if err := p.endOfStatement(); err != nil {
		return token.Token{}, err
	}
	p.pos++
	body, err := p.parseNestedListing([]string{"ENDM", "ENDMACRO"})
	if err != nil {
		return token.Token{}, err
	}
	end := p.peek()
	p.pos++
	return token.Token{Kind: token.KDirective, Span: span.Cover(kwSpan, end.span), Directive: token.DirMACRO, Name2: name, Params: params, Body: body}, nil
}

func (p *parser) parseMODULE(kwSpan span.Span) (token.Token, *parseError) {
	name, err := p.expect(tIdent, "module name")
	if err != nil {
		return token.Token{}, err
	}
	if err := p.endOfStatement(); err != nil {
		return token.Token{}, err
	}
	p.pos++
	body, err := p.parseNestedListing([]string{"ENDMODULE"})
	if err != nil {
		return token.Token{}, err
	}
	end, err := p.expect(tIdent, "ENDMODULE")
	if err != nil {
		return token.Token{}, err
	}
	return token.Token{Kind: token.KDirective, Span: span.Cover(kwSpan, end.span), Directive: token.DirMODULE, Name2: name.text, Body: body}, nil
}

func (p *parser) parseSTRUCT(kwSpan span.Span) (token.Token, *parseError) {
	name, err := p.expect(tIdent, "struct name")
	if err != nil {
		return token.Token{}, err
	}
	if p.callables != nil {
		p.callables[upper(name.text)] = true
	}
	if err := p.endOfStatement(); err != nil {
		return token.Token{}, err
	}
	p.pos++

	var fields []token.FieldDef
	for {
		p.skipNewlines()
		t := p.peek()
		if t.kind == tIdent && matchesAny(upper(t.text), []string{"ENDSTRUCT", "ENDS"}) {
			break
		}
		if t.kind == tEOF {
			return token.Token{}, newParseError(t.span, "unexpected end of file inside STRUCT")
		}
		fname, err := p.expect(tIdent, "field name")
		if err != nil {
			return token.Token{}, err
		}
		kwTok, err := p.expect(tIdent, "DEFB/DEFW/DEFS")
		if err != nil {
			return token.Token{}, err
		}
		kw, ok := p.lookupDirective(upper(kwTok.text))
		if !ok || (kw.dir != token.DirDEFB && kw.dir != token.DirDEFW && kw.dir != token.DirDEFS) {
			return token.Token{}, newParseError(kwTok.span, "expected DEFB, DEFW, or DEFS in STRUCT field")
		}
		var count *expr.Node
		if p.peek().kind != tNewline && p.peek().kind != tEOF {
			c, err := p.parseExpr(0)
			if err != nil {
				return token.Token{}, err
			}
			count = c
		}
		if err := p.endOfStatement(); err != nil {
			return token.Token{}, err
		}
		fields = append(fields, token.FieldDef{Name: fname.text, Shape: kw.dir, Count: count})
	}
	end := p.peek()
	p.pos++
	return token.Token{Kind: token.KDirective, Span: span.Cover(kwSpan, end.span), Directive: token.DirSTRUCT, Name2: name.text, Fields: fields}, nil
}
