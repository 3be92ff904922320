package script

import "fmt"

type TokenType int

const (
	// Punctuation.
	TokLParen TokenType = iota
	TokRParen
	TokLBracket
	TokRBracket
	TokLBrace
	TokRBrace
	TokColon
	TokComma
	TokDot
	TokAt

	// Operators. The *Assign forms are the compound-assignment variants.
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokPercent
	TokPlusAssign
	TokMinusAssign
	TokStarAssign
	TokSlashAssign
	TokPercentAssign
	TokAssign
	TokEqual
	TokNotEqual
	TokLess
	TokLessEq
	TokGreater
	TokGreaterEq
	TokNot
	TokArrow

	// Literals and identifiers.
	TokNumber
	TokString
	TokSymbol
	TokIdent

	// Reserved words.
	TokDef
	TokDefLocation
	TokDefQuest
	TokDefRace
	TokExtend
	TokAllow
	TokBefore
	TokWhen
	TokAfter
	TokPhase
	TokFunc
	TokIf
	TokElse
	TokWhile
	TokFor
	TokIn
	TokLet
	TokVar
	TokAnd
	TokOr
	TokAwait
	TokReturn
	TokFallthrough
	TokNil
	TokTrue
	TokFalse
	TokOneway
	TokTo

	TokEOF
	TokError
)

var reservedWords = map[string]TokenType{
	"def":         TokDef,
	"deflocation": TokDefLocation,
	"defquest":    TokDefQuest,
	"defrace":     TokDefRace,
	"extend":      TokExtend,
	"allow":       TokAllow,
	"before":      TokBefore,
	"when":        TokWhen,
	"after":       TokAfter,
	"phase":       TokPhase,
	"func":        TokFunc,
	"if":          TokIf,
	"else":        TokElse,
	"while":       TokWhile,
	"for":         TokFor,
	"in":          TokIn,
	"let":         TokLet,
	"var":         TokVar,
	"and":         TokAnd,
	"or":          TokOr,
	"await":       TokAwait,
	"return":      TokReturn,
	"fallthrough": TokFallthrough,
	"nil":         TokNil,
	"true":        TokTrue,
	"false":       TokFalse,
	"oneway":      TokOneway,
	"to":          TokTo,
}

// Token is one lexeme. Text carries the identifier/symbol name or, for
// strings, the raw (unescaped) content between the quotes; the parser
// processes escapes and interpolation segments itself so it can push a
// sub-lexer over embedded expressions.
type Token struct {
	Type    TokenType
	Text    string
	Number  float64
	Line    int
	Message string // TokError only
}

func (t Token) String() string {
	switch t.Type {
	case TokNumber:
		return fmt.Sprintf("number(%g)", t.Number)
	case TokString:
		return fmt.Sprintf("string(%q)", t.Text)
	case TokSymbol:
		return "'" + t.Text
	case TokIdent:
		return t.Text
	case TokError:
		return fmt.Sprintf("error(%d: %s)", t.Line, t.Message)
	case TokEOF:
		return "<eof>"
	default:
		return t.Text
	}
}
