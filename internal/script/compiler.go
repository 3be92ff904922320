package script

import (
	"errors"
	"fmt"
)

const maxLocals = 255

// Compiler lowers a parsed function body to a bytecode chunk. Locals are
// resolved positionally; blocks record the local count on entry so a single
// removeLocals restores it on exit.
type Compiler struct {
	chunk       *Chunk
	locals      []string
	scopeDepths []int
	errors      []ParseError
}

// CompileFunction compiles a named function with the given parameters.
func CompileFunction(name string, params []Param, body []Stmt) (*ScriptFunction, error) {
	c := &Compiler{chunk: NewChunk(name)}
	for _, p := range params {
		c.locals = append(c.locals, p.Name)
	}
	line := 0
	if len(body) > 0 {
		line = body[0].Line()
	}
	for _, s := range body {
		c.stmt(s)
	}
	c.chunk.emit(line, OpNil)
	c.chunk.emit(line, OpReturn)
	if len(c.errors) > 0 {
		return nil, compileErr(c.errors)
	}
	return &ScriptFunction{Name: name, Params: params, Chunk: c.chunk}, nil
}

// CompileInitializer builds the synthetic member-initializer function for an
// entity or quest body: it takes the target as its sole argument and stores
// each evaluated member expression.
func CompileInitializer(name string, members []MemberInit) (*ScriptFunction, error) {
	c := &Compiler{chunk: NewChunk(name + ".init")}
	c.locals = append(c.locals, "self")
	for _, m := range members {
		c.chunk.emit(m.Line, OpLoadLocal, 0)
		c.expr(m.Value)
		c.emitWithConst(m.Line, OpStoreMember, Symbol(m.Name))
		c.chunk.emit(m.Line, OpPop)
	}
	c.chunk.emit(0, OpNil)
	c.chunk.emit(0, OpReturn)
	if len(c.errors) > 0 {
		return nil, compileErr(c.errors)
	}
	return &ScriptFunction{
		Name:   name + ".init",
		Params: []Param{{Name: "self"}},
		Chunk:  c.chunk,
	}, nil
}

func compileErr(errs []ParseError) error {
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = e
	}
	return errors.Join(joined...)
}

func (c *Compiler) fail(line int, format string, args ...any) {
	c.errors = append(c.errors, ParseError{Line: line, Message: fmt.Sprintf(format, args...)})
}

func (c *Compiler) emitWithConst(line int, op Opcode, v Value) {
	idx := c.chunk.addConstant(v)
	c.chunk.emit(line, op, byte(idx>>8), byte(idx))
}

// emitJump writes a placeholder offset and returns the patch position.
func (c *Compiler) emitJump(line int, op Opcode) int {
	c.chunk.emit(line, op, 0xFF, 0xFF)
	return len(c.chunk.Code) - 2
}

// patchJump points the placeholder at the current end of code. Offsets are
// relative to the byte after the operand.
func (c *Compiler) patchJump(at int) {
	offset := len(c.chunk.Code) - (at + 2)
	if offset > 32767 {
		c.fail(c.chunk.LineAt(at), "jump too long")
		return
	}
	c.chunk.Code[at] = byte(offset >> 8)
	c.chunk.Code[at+1] = byte(offset)
}

// emitLoop writes a backward jump to target.
func (c *Compiler) emitLoop(line int, op Opcode, target int) {
	offset := target - (len(c.chunk.Code) + 3)
	if offset < -32768 {
		c.fail(line, "loop too long")
		offset = 0
	}
	c.chunk.emit(line, op, byte(uint16(int16(offset))>>8), byte(uint16(int16(offset))))
}

func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i] == name {
			return i
		}
	}
	return -1
}

func (c *Compiler) beginScope() {
	c.scopeDepths = append(c.scopeDepths, len(c.locals))
}

func (c *Compiler) endScope(line int) {
	top := c.scopeDepths[len(c.scopeDepths)-1]
	c.scopeDepths = c.scopeDepths[:len(c.scopeDepths)-1]
	n := len(c.locals) - top
	if n > 0 {
		c.chunk.emit(line, OpRemoveLocals, byte(n))
		c.locals = c.locals[:top]
	}
}

// ── Statements ─────────────────────────────────────────────────────

func (c *Compiler) block(stmts []Stmt, line int) {
	c.beginScope()
	for _, s := range stmts {
		c.stmt(s)
	}
	c.endScope(line)
}

func (c *Compiler) stmt(s Stmt) {
	switch t := s.(type) {
	case *VarDecl:
		if len(c.locals) >= maxLocals {
			c.fail(t.Line(), "too many locals")
			return
		}
		if t.Init != nil {
			c.expr(t.Init)
		} else {
			c.chunk.emit(t.Line(), OpNil)
		}
		c.chunk.emit(t.Line(), OpCreateLocal)
		c.locals = append(c.locals, t.Name)
	case *ExprStmt:
		if a, ok := t.Expr.(*AssignExpr); ok {
			c.assign(a, false)
			return
		}
		c.expr(t.Expr)
		c.chunk.emit(t.Line(), OpPop)
	case *IfStmt:
		c.expr(t.Cond)
		elseJump := c.emitJump(t.Line(), OpJumpIfNot)
		c.block(t.Then, t.Line())
		if t.Else != nil {
			endJump := c.emitJump(t.Line(), OpJump)
			c.patchJump(elseJump)
			c.block(t.Else, t.Line())
			c.patchJump(endJump)
		} else {
			c.patchJump(elseJump)
		}
	case *WhileStmt:
		loopStart := len(c.chunk.Code)
		c.expr(t.Cond)
		exitJump := c.emitJump(t.Line(), OpJumpIfNot)
		c.block(t.Body, t.Line())
		c.emitLoop(t.Line(), OpJump, loopStart)
		c.patchJump(exitJump)
	case *ForStmt:
		c.expr(t.Seq)
		c.chunk.emit(t.Line(), OpIterate)
		loopStart := len(c.chunk.Code)
		exitJump := c.emitJump(t.Line(), OpAdvanceOrJump)
		c.chunk.emit(t.Line(), OpCreateLocal)
		c.locals = append(c.locals, t.Var)
		c.beginScope()
		for _, s := range t.Body {
			c.stmt(s)
		}
		c.endScope(t.Line())
		c.chunk.emit(t.Line(), OpRemoveLocals, 1)
		c.locals = c.locals[:len(c.locals)-1]
		c.emitLoop(t.Line(), OpJump, loopStart)
		c.patchJump(exitJump)
	case *ReturnStmt:
		if t.Value != nil {
			c.expr(t.Value)
		} else {
			c.chunk.emit(t.Line(), OpNil)
		}
		c.chunk.emit(t.Line(), OpReturn)
	case *FallthroughStmt:
		c.chunk.emit(t.Line(), OpFallthrough)
	default:
		c.fail(s.Line(), "unsupported statement")
	}
}

// ── Expressions ────────────────────────────────────────────────────

func (c *Compiler) expr(e Expr) {
	switch t := e.(type) {
	case *NumberLit:
		c.number(t.Line(), t.Value)
	case *BoolLit:
		if t.Value {
			c.chunk.emit(t.Line(), OpTrue)
		} else {
			c.chunk.emit(t.Line(), OpFalse)
		}
	case *NilLit:
		c.chunk.emit(t.Line(), OpNil)
	case *SymbolLit:
		c.emitWithConst(t.Line(), OpLoadSymbol, Symbol(t.Name))
	case *RefLit:
		c.emitWithConst(t.Line(), OpConstant, RefValue{Ref: t.Ref})
	case *Ident:
		if slot := c.resolveLocal(t.Name); slot >= 0 {
			c.chunk.emit(t.Line(), OpLoadLocal, byte(slot))
			return
		}
		// Unbound names are relative references, dereferenced on use.
		c.emitWithConst(t.Line(), OpConstant, RefValue{Ref: RelativeRef(t.Name)})
		c.chunk.emit(t.Line(), OpDeref)
	case *StringLit:
		c.stringLit(t)
	case *UnaryExpr:
		c.expr(t.Operand)
		switch t.Op {
		case TokMinus:
			c.chunk.emit(t.Line(), OpNegate)
		case TokNot:
			c.chunk.emit(t.Line(), OpNot)
		case TokStar:
			c.chunk.emit(t.Line(), OpDeref)
		}
	case *BinaryExpr:
		c.expr(t.Left)
		c.expr(t.Right)
		c.chunk.emit(t.Line(), binaryOpcode(t.Op))
	case *LogicalExpr:
		c.logical(t)
	case *AssignExpr:
		c.assign(t, true)
	case *MemberExpr:
		c.expr(t.Object)
		c.emitWithConst(t.Line(), OpLoadMember, Symbol(t.Name))
	case *SubscriptExpr:
		c.expr(t.Object)
		c.expr(t.Index)
		c.chunk.emit(t.Line(), OpLoadSubscript)
	case *CallExpr:
		c.call(t)
	case *ListLit:
		c.chunk.emit(t.Line(), OpBeginList)
		for _, el := range t.Elems {
			c.expr(el)
		}
		c.chunk.emit(t.Line(), OpEndList)
	case *ListComp:
		c.comprehension(t)
	case *AwaitExpr:
		c.expr(t.Operand)
		c.chunk.emit(t.Line(), OpAwait)
	case *ExitExpr:
		c.expr(t.Proto)
		c.emitWithConst(t.Line(), OpLoadSymbol, Symbol(t.Direction))
		c.emitWithConst(t.Line(), OpConstant, RefValue{Ref: t.Dest})
		oneway := byte(0)
		if t.Oneway {
			oneway = 1
		}
		c.chunk.emit(t.Line(), OpMakePortal, oneway)
	default:
		c.fail(e.Line(), "unsupported expression")
	}
}

func (c *Compiler) number(line int, n float64) {
	if n == float64(int64(n)) && n >= -128 && n <= 127 {
		c.chunk.emit(line, OpSmallInt, byte(int8(n)))
		return
	}
	c.emitWithConst(line, OpConstant, Number(n))
}

func binaryOpcode(t TokenType) Opcode {
	switch t {
	case TokPlus:
		return OpAdd
	case TokMinus:
		return OpSubtract
	case TokStar:
		return OpMultiply
	case TokSlash:
		return OpDivide
	case TokPercent:
		return OpModulus
	case TokEqual:
		return OpEqual
	case TokNotEqual:
		return OpNotEqual
	case TokLess:
		return OpLess
	case TokLessEq:
		return OpLessEq
	case TokGreater:
		return OpGreater
	case TokGreaterEq:
		return OpGreaterEq
	}
	return OpNil
}

func compoundOpcode(t TokenType) Opcode {
	switch t {
	case TokPlusAssign:
		return OpAdd
	case TokMinusAssign:
		return OpSubtract
	case TokStarAssign:
		return OpMultiply
	case TokSlashAssign:
		return OpDivide
	case TokPercentAssign:
		return OpModulus
	}
	return OpNil
}

func (c *Compiler) logical(t *LogicalExpr) {
	c.expr(t.Left)
	if t.Op == TokAnd {
		falseJump := c.emitJump(t.Line(), OpJumpIfNot)
		c.expr(t.Right)
		endJump := c.emitJump(t.Line(), OpJump)
		c.patchJump(falseJump)
		c.chunk.emit(t.Line(), OpFalse)
		c.patchJump(endJump)
		return
	}
	trueJump := c.emitJump(t.Line(), OpJumpIf)
	c.expr(t.Right)
	endJump := c.emitJump(t.Line(), OpJump)
	c.patchJump(trueJump)
	c.chunk.emit(t.Line(), OpTrue)
	c.patchJump(endJump)
}

// assign compiles plain and compound assignment. Compound forms re-evaluate
// the target's object and index expressions; authored targets are simple.
func (c *Compiler) assign(t *AssignExpr, wantValue bool) {
	line := t.Line()
	switch target := t.Target.(type) {
	case *Ident:
		slot := c.resolveLocal(target.Name)
		if slot < 0 {
			c.fail(line, "cannot assign to unbound name %q", target.Name)
			return
		}
		if op := compoundOpcode(t.Op); op != OpNil {
			c.chunk.emit(line, OpLoadLocal, byte(slot))
			c.expr(t.Value)
			c.chunk.emit(line, op)
		} else {
			c.expr(t.Value)
		}
		c.chunk.emit(line, OpStoreLocal, byte(slot))
		if wantValue {
			c.chunk.emit(line, OpLoadLocal, byte(slot))
		}
	case *MemberExpr:
		c.expr(target.Object)
		if op := compoundOpcode(t.Op); op != OpNil {
			c.expr(target.Object)
			c.emitWithConst(line, OpLoadMember, Symbol(target.Name))
			c.expr(t.Value)
			c.chunk.emit(line, op)
		} else {
			c.expr(t.Value)
		}
		c.emitWithConst(line, OpStoreMember, Symbol(target.Name))
		if !wantValue {
			c.chunk.emit(line, OpPop)
		}
	case *SubscriptExpr:
		c.expr(target.Object)
		c.expr(target.Index)
		if op := compoundOpcode(t.Op); op != OpNil {
			c.expr(target.Object)
			c.expr(target.Index)
			c.chunk.emit(line, OpLoadSubscript)
			c.expr(t.Value)
			c.chunk.emit(line, op)
		} else {
			c.expr(t.Value)
		}
		c.chunk.emit(line, OpStoreSubscript)
		if !wantValue {
			c.chunk.emit(line, OpPop)
		}
	default:
		c.fail(line, "invalid assignment target")
	}
}

// call compiles a call expression. The intrinsics clone() and stack() lower
// to their dedicated opcodes instead of a runtime dispatch.
func (c *Compiler) call(t *CallExpr) {
	if id, ok := t.Callee.(*Ident); ok && c.resolveLocal(id.Name) < 0 {
		switch {
		case id.Name == "clone" && len(t.Args) == 1:
			c.expr(t.Args[0])
			c.chunk.emit(t.Line(), OpClone)
			return
		case id.Name == "stack" && len(t.Args) == 2:
			c.expr(t.Args[0])
			c.expr(t.Args[1])
			c.chunk.emit(t.Line(), OpSetCount)
			return
		}
	}
	c.expr(t.Callee)
	if len(t.Args) > 255 {
		c.fail(t.Line(), "too many arguments")
		return
	}
	for _, a := range t.Args {
		c.expr(a)
	}
	c.chunk.emit(t.Line(), OpCall, byte(len(t.Args)))
}

func (c *Compiler) stringLit(t *StringLit) {
	if len(t.Segs) == 0 {
		c.emitWithConst(t.Line(), OpConstant, String(""))
		return
	}
	if t.IsLiteral() {
		c.emitWithConst(t.Line(), OpConstant, String(t.Segs[0].Text))
		return
	}
	for _, seg := range t.Segs {
		if seg.Expr == nil {
			c.emitWithConst(t.Line(), OpConstant, String(seg.Text))
			continue
		}
		c.expr(seg.Expr)
		c.chunk.emit(t.Line(), OpStringify, seg.Format)
	}
	if len(t.Segs) > 1 {
		c.chunk.emit(t.Line(), OpJoinStrings, byte(len(t.Segs)))
	}
}

func (c *Compiler) comprehension(t *ListComp) {
	c.chunk.emit(t.Line(), OpBeginList)
	c.expr(t.Seq)
	c.chunk.emit(t.Line(), OpIterate)
	loopStart := len(c.chunk.Code)
	exitJump := c.emitJump(t.Line(), OpAdvanceOrJump)
	c.chunk.emit(t.Line(), OpCreateLocal)
	c.locals = append(c.locals, t.Var)
	var skipJump int
	if t.Cond != nil {
		c.expr(t.Cond)
		skipJump = c.emitJump(t.Line(), OpJumpIfNot)
	}
	c.expr(t.Elem)
	if t.Cond != nil {
		c.patchJump(skipJump)
	}
	c.chunk.emit(t.Line(), OpRemoveLocals, 1)
	c.locals = c.locals[:len(c.locals)-1]
	c.emitLoop(t.Line(), OpJump, loopStart)
	c.patchJump(exitJump)
	c.chunk.emit(t.Line(), OpEndList)
}
