package script

import (
	"fmt"
	"strings"
)

// ParseError is an authoring error with its source line. The world loader
// logs these and flags the module load as failed; they never reach players.
type ParseError struct {
	Line    int
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%d: %s", e.Line, e.Message)
}

// Parser is a Pratt-style recursive descent parser for wyrdscript. It owns a
// lexer and a one-token lookahead; interpolated string expressions are parsed
// by pushing a fresh sub-lexer over the bracketed substring.
type Parser struct {
	lex    *Lexer
	tok    Token
	prev   Token
	errors []ParseError
}

func NewParser(src string) *Parser {
	p := &Parser{lex: NewLexer(src)}
	p.next()
	return p
}

func newSubParser(src string, line int) *Parser {
	p := &Parser{lex: NewSubLexer(src, line)}
	p.next()
	return p
}

// Errors returns accumulated parse errors in source order.
func (p *Parser) Errors() []ParseError { return p.errors }

type bailout struct{}

func (p *Parser) next() {
	p.prev = p.tok
	p.tok = p.lex.Next()
	if p.tok.Type == TokError {
		p.errors = append(p.errors, ParseError{Line: p.tok.Line, Message: p.tok.Message})
		panic(bailout{})
	}
}

func (p *Parser) fail(format string, args ...any) {
	p.errors = append(p.errors, ParseError{Line: p.tok.Line, Message: fmt.Sprintf(format, args...)})
	panic(bailout{})
}

func (p *Parser) expect(t TokenType, what string) Token {
	if p.tok.Type != t {
		p.fail("expected %s, found %s", what, p.tok)
	}
	tok := p.tok
	p.next()
	return tok
}

func (p *Parser) accept(t TokenType) bool {
	if p.tok.Type == t {
		p.next()
		return true
	}
	return false
}

// Parse consumes the whole source and returns the module tree. ok is false
// if any errors were recorded; parsing continues best-effort past errors by
// resynchronizing at the next top-level form.
func (p *Parser) Parse(moduleName string) (*ModuleAST, bool) {
	mod := &ModuleAST{Name: moduleName}
	for p.tok.Type != TokEOF {
		p.parseTopLevel(mod)
	}
	return mod, len(p.errors) == 0
}

func (p *Parser) parseTopLevel(mod *ModuleAST) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.synchronize()
		}
	}()

	switch p.tok.Type {
	case TokDef:
		p.next()
		mod.Entities = append(mod.Entities, p.parseEntityDef(false))
	case TokDefLocation:
		p.next()
		mod.Entities = append(mod.Entities, p.parseEntityDef(true))
	case TokDefQuest:
		p.next()
		mod.Quests = append(mod.Quests, p.parseQuestDef())
	case TokDefRace:
		p.next()
		mod.Races = append(mod.Races, p.parseRaceDef())
	case TokExtend:
		p.next()
		mod.Extends = append(mod.Extends, p.parseExtendDef())
	case TokFunc:
		p.next()
		mod.Funcs = append(mod.Funcs, p.parseFuncDef())
	default:
		p.fail("expected top-level definition, found %s", p.tok)
	}
}

// synchronize skips tokens until the next top-level form so one error does
// not cascade through the rest of the file.
func (p *Parser) synchronize() {
	defer func() {
		// The lexer may produce further error tokens while skipping; give up
		// on this file region and let the outer loop continue.
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
		}
	}()
	depth := 0
	for p.tok.Type != TokEOF {
		switch p.tok.Type {
		case TokLBrace:
			depth++
		case TokRBrace:
			if depth > 0 {
				depth--
			}
		case TokDef, TokDefLocation, TokDefQuest, TokDefRace, TokExtend:
			if depth == 0 {
				return
			}
		}
		p.next()
	}
}

// parseRef reads `name` or `module.name`.
func (p *Parser) parseRef() Ref {
	first := p.expect(TokIdent, "name").Text
	if p.accept(TokDot) {
		second := p.expect(TokIdent, "name after '.'").Text
		return AbsoluteRef(first, second)
	}
	return RelativeRef(first)
}

// ── Top-level forms ────────────────────────────────────────────────

func (p *Parser) parseEntityDef(startable bool) *EntityDef {
	line := p.tok.Line
	name := p.expect(TokIdent, "entity name").Text
	p.expect(TokColon, "':' after entity name")
	proto := p.parseRef()
	def := &EntityDef{Name: name, Proto: proto, Startable: startable, Line: line}
	p.expect(TokLBrace, "'{'")
	p.parseEntityBody(&def.Members, &def.Handlers, &def.Methods)
	return def
}

func (p *Parser) parseExtendDef() *ExtendDef {
	line := p.tok.Line
	target := p.parseRef()
	def := &ExtendDef{Target: target, Line: line}
	p.expect(TokLBrace, "'{'")
	p.parseEntityBody(&def.Members, &def.Handlers, &def.Methods)
	return def
}

func (p *Parser) parseEntityBody(members *[]MemberInit, handlers *[]HandlerDecl, methods *[]MethodDecl) {
	for !p.accept(TokRBrace) {
		switch p.tok.Type {
		case TokAllow, TokBefore, TokWhen, TokAfter:
			*handlers = append(*handlers, p.parseHandler())
		case TokFunc:
			p.next()
			line := p.prev.Line
			name := p.expect(TokIdent, "method name").Text
			params := p.parseParams()
			body := p.parseBlock()
			*methods = append(*methods, MethodDecl{Name: name, Params: params, Body: body, Line: line})
		case TokIdent:
			line := p.tok.Line
			name := p.tok.Text
			p.next()
			p.expect(TokAssign, "'=' in member initializer")
			*members = append(*members, MemberInit{Name: name, Value: p.parseExpr(), Line: line})
		case TokEOF:
			p.fail("unterminated body")
		default:
			p.fail("expected member, handler or method, found %s", p.tok)
		}
	}
}

func (p *Parser) parseHandler() HandlerDecl {
	line := p.tok.Line
	var phase EventPhase
	switch p.tok.Type {
	case TokAllow:
		phase = PhaseAllow
	case TokBefore:
		phase = PhaseBefore
	case TokWhen:
		phase = PhaseWhen
	case TokAfter:
		phase = PhaseAfter
	}
	p.next()
	event := p.expect(TokIdent, "event name").Text
	params := p.parseParams()
	body := p.parseBlock()
	return HandlerDecl{Phase: phase, Event: event, Params: params, Body: body, Line: line}
}

// parseParams reads `( NAME constraint?, … )`. A bare `self` parameter is
// rewritten to an anonymous parameter constrained to the observer.
func (p *Parser) parseParams() []Param {
	p.expect(TokLParen, "'('")
	var params []Param
	for !p.accept(TokRParen) {
		if len(params) > 0 {
			p.expect(TokComma, "','")
		}
		name := p.expect(TokIdent, "parameter name").Text
		param := Param{Name: name}
		if name == "self" && p.tok.Type != TokColon {
			param.Constraint = Constraint{Kind: ConstraintSelf}
		} else if p.accept(TokColon) {
			param.Constraint = p.parseConstraint()
		}
		params = append(params, param)
	}
	return params
}

func (p *Parser) parseConstraint() Constraint {
	if p.accept(TokDot) {
		kind := p.expect(TokIdent, "constraint kind").Text
		p.expect(TokLParen, "'('")
		ref := p.parseRef()
		c := Constraint{Ref: ref}
		switch kind {
		case "quest":
			c.Kind = ConstraintQuest
			p.expect(TokComma, "','")
			switch p.tok.Type {
			case TokSymbol, TokIdent:
				c.Phase = p.tok.Text
				p.next()
			default:
				p.fail("expected quest phase name, found %s", p.tok)
			}
		case "race":
			c.Kind = ConstraintRace
		case "equipped":
			c.Kind = ConstraintEquipped
		default:
			p.fail("unknown constraint kind %q", kind)
		}
		p.expect(TokRParen, "')'")
		return c
	}
	if p.tok.Type == TokIdent && p.tok.Text == "self" {
		p.next()
		return Constraint{Kind: ConstraintSelf}
	}
	return Constraint{Kind: ConstraintPrototype, Ref: p.parseRef()}
}

func (p *Parser) parseQuestDef() *QuestDef {
	line := p.tok.Line
	name := p.expect(TokIdent, "quest name").Text
	def := &QuestDef{Name: name, Line: line}
	p.expect(TokLBrace, "'{'")
	for !p.accept(TokRBrace) {
		switch p.tok.Type {
		case TokPhase:
			p.next()
			ph := PhaseDef{Line: p.prev.Line}
			switch p.tok.Type {
			case TokIdent, TokSymbol:
				ph.Name = p.tok.Text
				p.next()
			default:
				p.fail("expected phase name, found %s", p.tok)
			}
			p.expect(TokLBrace, "'{'")
			for !p.accept(TokRBrace) {
				ph.Members = append(ph.Members, p.parseMemberInit())
			}
			def.Phases = append(def.Phases, ph)
		case TokIdent:
			def.Members = append(def.Members, p.parseMemberInit())
		case TokEOF:
			p.fail("unterminated quest body")
		default:
			p.fail("expected member or phase, found %s", p.tok)
		}
	}
	return def
}

func (p *Parser) parseRaceDef() *RaceDef {
	line := p.tok.Line
	name := p.expect(TokIdent, "race name").Text
	def := &RaceDef{Name: name, Line: line}
	p.expect(TokLBrace, "'{'")
	for !p.accept(TokRBrace) {
		def.Members = append(def.Members, p.parseMemberInit())
	}
	return def
}

func (p *Parser) parseFuncDef() *FuncDef {
	line := p.prev.Line
	name := p.expect(TokIdent, "function name").Text
	params := p.parseParams()
	body := p.parseBlock()
	return &FuncDef{Name: name, Params: params, Body: body, Line: line}
}

func (p *Parser) parseMemberInit() MemberInit {
	line := p.tok.Line
	name := p.expect(TokIdent, "member name").Text
	p.expect(TokAssign, "'='")
	return MemberInit{Name: name, Value: p.parseExpr(), Line: line}
}

// ── Statements ─────────────────────────────────────────────────────

func (p *Parser) parseBlock() []Stmt {
	p.expect(TokLBrace, "'{'")
	var stmts []Stmt
	for !p.accept(TokRBrace) {
		if p.tok.Type == TokEOF {
			p.fail("unterminated block")
		}
		stmts = append(stmts, p.parseStmt())
	}
	return stmts
}

func (p *Parser) parseStmt() Stmt {
	line := p.tok.Line
	switch p.tok.Type {
	case TokVar, TokLet:
		p.next()
		name := p.expect(TokIdent, "variable name").Text
		var init Expr
		if p.accept(TokAssign) {
			init = p.parseExpr()
		}
		return &VarDecl{pos: pos{line}, Name: name, Init: init}
	case TokIf:
		p.next()
		return p.parseIf(line)
	case TokWhile:
		p.next()
		cond := p.parseExpr()
		body := p.parseBlock()
		return &WhileStmt{pos: pos{line}, Cond: cond, Body: body}
	case TokFor:
		p.next()
		name := p.expect(TokIdent, "loop variable").Text
		p.expect(TokIn, "'in'")
		seq := p.parseExpr()
		body := p.parseBlock()
		return &ForStmt{pos: pos{line}, Var: name, Seq: seq, Body: body}
	case TokReturn:
		p.next()
		var value Expr
		if p.tok.Type != TokRBrace && p.tok.Type != TokEOF {
			value = p.parseExpr()
		}
		return &ReturnStmt{pos: pos{line}, Value: value}
	case TokFallthrough:
		p.next()
		return &FallthroughStmt{pos: pos{line}}
	default:
		return &ExprStmt{pos: pos{line}, Expr: p.parseExpr()}
	}
}

func (p *Parser) parseIf(line int) Stmt {
	cond := p.parseExpr()
	then := p.parseBlock()
	var els []Stmt
	if p.accept(TokElse) {
		if p.tok.Type == TokIf {
			elseLine := p.tok.Line
			p.next()
			els = []Stmt{p.parseIf(elseLine)}
		} else {
			els = p.parseBlock()
		}
	}
	return &IfStmt{pos: pos{line}, Cond: cond, Then: then, Else: els}
}

// ── Expressions (Pratt) ────────────────────────────────────────────

type precedence int

const (
	precNone precedence = iota
	precAssign
	precExit
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
)

func infixPrecedence(t TokenType) precedence {
	switch t {
	case TokAssign, TokPlusAssign, TokMinusAssign, TokStarAssign, TokSlashAssign, TokPercentAssign:
		return precAssign
	case TokArrow:
		return precExit
	case TokOr:
		return precOr
	case TokAnd:
		return precAnd
	case TokEqual, TokNotEqual:
		return precEquality
	case TokLess, TokLessEq, TokGreater, TokGreaterEq:
		return precComparison
	case TokPlus, TokMinus:
		return precTerm
	case TokStar, TokSlash, TokPercent:
		return precFactor
	case TokDot, TokLBracket, TokLParen:
		return precCall
	}
	return precNone
}

func (p *Parser) parseExpr() Expr {
	return p.parsePrecedence(precAssign)
}

func (p *Parser) parsePrecedence(min precedence) Expr {
	left := p.parseUnary()
	for {
		prec := infixPrecedence(p.tok.Type)
		if prec < min {
			return left
		}
		left = p.parseInfix(left, prec)
	}
}

func (p *Parser) parseInfix(left Expr, prec precedence) Expr {
	op := p.tok.Type
	line := p.tok.Line
	switch op {
	case TokAssign, TokPlusAssign, TokMinusAssign, TokStarAssign, TokSlashAssign, TokPercentAssign:
		p.next()
		switch left.(type) {
		case *Ident, *MemberExpr, *SubscriptExpr:
		default:
			p.fail("invalid assignment target")
		}
		// Right-associative.
		value := p.parsePrecedence(precAssign)
		return &AssignExpr{pos: pos{line}, Op: op, Target: left, Value: value}
	case TokArrow:
		p.next()
		dir := p.expect(TokIdent, "direction").Text
		oneway := p.accept(TokOneway)
		p.expect(TokTo, "'to'")
		dest := p.parseRef()
		return &ExitExpr{pos: pos{line}, Proto: left, Direction: dir, Oneway: oneway, Dest: dest}
	case TokOr, TokAnd:
		p.next()
		right := p.parsePrecedence(prec + 1)
		return &LogicalExpr{pos: pos{line}, Op: op, Left: left, Right: right}
	case TokDot:
		p.next()
		name := p.expect(TokIdent, "member name").Text
		return &MemberExpr{pos: pos{line}, Object: left, Name: name}
	case TokLBracket:
		p.next()
		index := p.parseExpr()
		p.expect(TokRBracket, "']'")
		return &SubscriptExpr{pos: pos{line}, Object: left, Index: index}
	case TokLParen:
		p.next()
		call := &CallExpr{pos: pos{line}, Callee: left}
		for !p.accept(TokRParen) {
			if len(call.Args) > 0 {
				p.expect(TokComma, "','")
			}
			call.Args = append(call.Args, p.parseExpr())
		}
		// A trailing string literal is sugar for one more argument, used
		// for multi-line prose.
		if p.tok.Type == TokString {
			call.Args = append(call.Args, p.parseStringToken())
		}
		return call
	default:
		p.next()
		right := p.parsePrecedence(prec + 1)
		return &BinaryExpr{pos: pos{line}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() Expr {
	line := p.tok.Line
	switch p.tok.Type {
	case TokMinus, TokNot, TokStar:
		op := p.tok.Type
		p.next()
		return &UnaryExpr{pos: pos{line}, Op: op, Operand: p.parseUnary()}
	case TokAwait:
		p.next()
		return &AwaitExpr{pos: pos{line}, Operand: p.parsePrecedence(precOr)}
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() Expr {
	line := p.tok.Line
	switch p.tok.Type {
	case TokNumber:
		v := p.tok.Number
		p.next()
		return &NumberLit{pos: pos{line}, Value: v}
	case TokTrue:
		p.next()
		return &BoolLit{pos: pos{line}, Value: true}
	case TokFalse:
		p.next()
		return &BoolLit{pos: pos{line}, Value: false}
	case TokNil:
		p.next()
		return &NilLit{pos: pos{line}}
	case TokSymbol:
		name := p.tok.Text
		p.next()
		return &SymbolLit{pos: pos{line}, Name: name}
	case TokAt:
		p.next()
		return &RefLit{pos: pos{line}, Ref: p.parseRef()}
	case TokIdent:
		name := p.tok.Text
		p.next()
		return &Ident{pos: pos{line}, Name: name}
	case TokString:
		return p.parseStringToken()
	case TokLParen:
		p.next()
		e := p.parseExpr()
		p.expect(TokRParen, "')'")
		return e
	case TokLBracket:
		p.next()
		return p.parseListOrComprehension(line)
	default:
		p.fail("expected expression, found %s", p.tok)
		return nil
	}
}

func (p *Parser) parseListOrComprehension(line int) Expr {
	if p.accept(TokRBracket) {
		return &ListLit{pos: pos{line}}
	}
	first := p.parseExpr()
	if p.accept(TokFor) {
		name := p.expect(TokIdent, "comprehension variable").Text
		p.expect(TokIn, "'in'")
		seq := p.parseExpr()
		var cond Expr
		if p.accept(TokIf) {
			cond = p.parseExpr()
		}
		p.expect(TokRBracket, "']'")
		return &ListComp{pos: pos{line}, Elem: first, Var: name, Seq: seq, Cond: cond}
	}
	list := &ListLit{pos: pos{line}, Elems: []Expr{first}}
	for !p.accept(TokRBracket) {
		p.expect(TokComma, "','")
		list.Elems = append(list.Elems, p.parseExpr())
	}
	return list
}

// ── String literals and interpolation ──────────────────────────────

// parseStringToken consumes the current string token and expands escapes and
// `{expr}` / `{expr:fmt}` segments. Embedded expressions are parsed with the
// full expression grammar by a sub-parser over the bracketed substring.
func (p *Parser) parseStringToken() *StringLit {
	tok := p.tok
	p.next()
	lit := &StringLit{pos: pos{tok.Line}}

	raw := tok.Text
	var text strings.Builder
	flushText := func() {
		lit.Segs = append(lit.Segs, StringSeg{Text: text.String()})
		text.Reset()
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch c {
		case '\\':
			if i+1 >= len(raw) {
				text.WriteByte('\\')
				break
			}
			i++
			switch raw[i] {
			case 'n':
				text.WriteByte('\n')
			case 't':
				text.WriteByte('\t')
			case 'r':
				text.WriteByte('\r')
			case '"', '\'', '\\', '{', '}':
				text.WriteByte(raw[i])
			default:
				p.errors = append(p.errors, ParseError{
					Line:    tok.Line,
					Message: fmt.Sprintf("unknown escape \\%c", raw[i]),
				})
			}
		case '{':
			depth := 1
			j := i + 1
			for j < len(raw) && depth > 0 {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				j++
			}
			if depth != 0 {
				p.errors = append(p.errors, ParseError{Line: tok.Line, Message: "unterminated interpolation"})
				text.WriteByte('{')
				continue
			}
			inner := raw[i+1 : j-1]
			i = j - 1
			flushText()
			lit.Segs = append(lit.Segs, p.parseInterpolation(inner, tok.Line))
		default:
			text.WriteByte(c)
		}
	}
	flushText()

	// Collapse "text, empty-expr" noise: keep at least one segment.
	if len(lit.Segs) > 1 {
		var segs []StringSeg
		for _, s := range lit.Segs {
			if s.Expr == nil && s.Text == "" {
				continue
			}
			segs = append(segs, s)
		}
		if len(segs) == 0 {
			segs = []StringSeg{{}}
		}
		lit.Segs = segs
	}
	return lit
}

func (p *Parser) parseInterpolation(src string, line int) StringSeg {
	seg := StringSeg{}
	// A trailing `:x` where x is a format character is the format spec.
	if n := len(src); n >= 2 && src[n-2] == ':' {
		switch f := src[n-1]; f {
		case 'i', 'I', 'd', 'D', 'n', 'N':
			seg.Format = f
			src = src[:n-2]
		}
	}

	sub := newSubParser(src, line)
	expr := func() (e Expr) {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(bailout); !ok {
					panic(r)
				}
				e = nil
			}
		}()
		e = sub.parseExpr()
		if sub.tok.Type != TokEOF {
			sub.errors = append(sub.errors, ParseError{Line: line, Message: "trailing tokens in interpolation"})
			return nil
		}
		return e
	}()
	p.errors = append(p.errors, sub.errors...)
	if expr == nil {
		return StringSeg{Text: "{" + src + "}"}
	}
	seg.Expr = expr
	return seg
}
