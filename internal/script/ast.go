package script

// Abstract tree produced by the parser. Nodes carry the source line of their
// first token for diagnostics.

type Expr interface {
	exprNode()
	Line() int
}

type Stmt interface {
	stmtNode()
	Line() int
}

type pos struct{ line int }

func (p pos) Line() int { return p.line }

// ── Expressions ────────────────────────────────────────────────────

type NumberLit struct {
	pos
	Value float64
}

type BoolLit struct {
	pos
	Value bool
}

type NilLit struct{ pos }

type SymbolLit struct {
	pos
	Name string
}

// RefLit is an `@name` or `@module.name` reference literal. It evaluates to
// the reference itself, not the value it names.
type RefLit struct {
	pos
	Ref Ref
}

// Ident is a bare name: a local variable if one is in scope, otherwise a
// relative reference that is dereferenced at evaluation time.
type Ident struct {
	pos
	Name string
}

// StringSeg is one piece of a string literal: either literal text or an
// embedded expression with an optional single-character format.
type StringSeg struct {
	Text   string
	Expr   Expr // nil for literal segments
	Format byte // 0, or one of i I d D n N
}

type StringLit struct {
	pos
	Segs []StringSeg
}

// IsLiteral reports whether the string contains no embedded expressions.
func (s *StringLit) IsLiteral() bool {
	return len(s.Segs) == 1 && s.Segs[0].Expr == nil
}

type UnaryExpr struct {
	pos
	Op      TokenType // TokMinus, TokNot, TokStar (deref)
	Operand Expr
}

type BinaryExpr struct {
	pos
	Op    TokenType
	Left  Expr
	Right Expr
}

// LogicalExpr is `and`/`or` with short-circuit evaluation.
type LogicalExpr struct {
	pos
	Op    TokenType
	Left  Expr
	Right Expr
}

// AssignExpr covers plain and compound assignment. Target is an Ident,
// MemberExpr, or SubscriptExpr.
type AssignExpr struct {
	pos
	Op     TokenType // TokAssign or a compound-assignment token
	Target Expr
	Value  Expr
}

type MemberExpr struct {
	pos
	Object Expr
	Name   string
}

type SubscriptExpr struct {
	pos
	Object Expr
	Index  Expr
}

type CallExpr struct {
	pos
	Callee Expr
	Args   []Expr
}

type ListLit struct {
	pos
	Elems []Expr
}

// ListComp is `[ EXPR for NAME in SEQ if COND ]`; Cond may be nil.
type ListComp struct {
	pos
	Elem Expr
	Var  string
	Seq  Expr
	Cond Expr
}

// AwaitExpr suspends the running script until the future completes.
type AwaitExpr struct {
	pos
	Operand Expr
}

// ExitExpr is the portal construction form `PROTO -> DIRECTION oneway? to DEST`.
type ExitExpr struct {
	pos
	Proto     Expr
	Direction string
	Oneway    bool
	Dest      Ref
}

func (*NumberLit) exprNode()     {}
func (*BoolLit) exprNode()       {}
func (*NilLit) exprNode()        {}
func (*SymbolLit) exprNode()     {}
func (*RefLit) exprNode()        {}
func (*Ident) exprNode()         {}
func (*StringLit) exprNode()     {}
func (*UnaryExpr) exprNode()     {}
func (*BinaryExpr) exprNode()    {}
func (*LogicalExpr) exprNode()   {}
func (*AssignExpr) exprNode()    {}
func (*MemberExpr) exprNode()    {}
func (*SubscriptExpr) exprNode() {}
func (*CallExpr) exprNode()      {}
func (*ListLit) exprNode()       {}
func (*ListComp) exprNode()      {}
func (*AwaitExpr) exprNode()     {}
func (*ExitExpr) exprNode()      {}

// ── Statements ─────────────────────────────────────────────────────

type VarDecl struct {
	pos
	Name string
	Init Expr // nil defaults to nil
}

type ExprStmt struct {
	pos
	Expr Expr
}

type IfStmt struct {
	pos
	Cond Expr
	Then []Stmt
	Else []Stmt // nil when absent; a single nested IfStmt models `else if`
}

type WhileStmt struct {
	pos
	Cond Expr
	Body []Stmt
}

type ForStmt struct {
	pos
	Var  string
	Seq  Expr
	Body []Stmt
}

type ReturnStmt struct {
	pos
	Value Expr // nil returns nil
}

type FallthroughStmt struct{ pos }

func (*VarDecl) stmtNode()         {}
func (*ExprStmt) stmtNode()        {}
func (*IfStmt) stmtNode()          {}
func (*WhileStmt) stmtNode()       {}
func (*ForStmt) stmtNode()         {}
func (*ReturnStmt) stmtNode()      {}
func (*FallthroughStmt) stmtNode() {}

// ── Top-level forms ────────────────────────────────────────────────

type EventPhase int

const (
	PhaseAllow EventPhase = iota
	PhaseBefore
	PhaseWhen
	PhaseAfter
)

func (p EventPhase) String() string {
	switch p {
	case PhaseAllow:
		return "allow"
	case PhaseBefore:
		return "before"
	case PhaseWhen:
		return "when"
	case PhaseAfter:
		return "after"
	}
	return "?"
}

type ConstraintKind int

const (
	ConstraintNone ConstraintKind = iota
	ConstraintSelf
	ConstraintPrototype
	ConstraintQuest
	ConstraintRace
	ConstraintEquipped
)

// Constraint restricts which runtime arguments a handler parameter accepts.
type Constraint struct {
	Kind  ConstraintKind
	Ref   Ref    // prototype/quest/race/equipped
	Phase string // quest only: phase name or available/offered/incomplete/complete
}

type Param struct {
	Name       string
	Constraint Constraint
}

type MemberInit struct {
	Name  string
	Value Expr
	Line  int
}

type HandlerDecl struct {
	Phase  EventPhase
	Event  string
	Params []Param
	Body   []Stmt
	Line   int
}

type MethodDecl struct {
	Name   string
	Params []Param
	Body   []Stmt
	Line   int
}

// EntityDef is `def NAME : PROTO { … }`; Startable marks `deflocation`.
type EntityDef struct {
	Name      string
	Proto     Ref
	Startable bool
	Members   []MemberInit
	Handlers  []HandlerDecl
	Methods   []MethodDecl
	Line      int
}

// ExtendDef adds members/handlers/methods to an already-defined entity.
type ExtendDef struct {
	Target   Ref
	Members  []MemberInit
	Handlers []HandlerDecl
	Methods  []MethodDecl
	Line     int
}

type PhaseDef struct {
	Name    string
	Members []MemberInit
	Line    int
}

type QuestDef struct {
	Name    string
	Members []MemberInit
	Phases  []PhaseDef
	Line    int
}

type RaceDef struct {
	Name    string
	Members []MemberInit
	Line    int
}

// FuncDef is a module-level `func NAME(params) { … }`.
type FuncDef struct {
	Name   string
	Params []Param
	Body   []Stmt
	Line   int
}

// ModuleAST is the parsed form of one script file.
type ModuleAST struct {
	Name     string
	Entities []*EntityDef
	Extends  []*ExtendDef
	Quests   []*QuestDef
	Races    []*RaceDef
	Funcs    []*FuncDef
}
