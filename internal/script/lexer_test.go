package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	l := NewLexer(src)
	var out []Token
	for {
		tok := l.Next()
		out = append(out, tok)
		if tok.Type == TokEOF || tok.Type == TokError {
			return out
		}
	}
}

func tokenTypes(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestLexerOperators(t *testing.T) {
	toks := lexAll(t, "+ += - -= -> * / % == != = < <= > >= ! and or")
	assert.Equal(t, []TokenType{
		TokPlus, TokPlusAssign, TokMinus, TokMinusAssign, TokArrow,
		TokStar, TokSlash, TokPercent,
		TokEqual, TokNotEqual, TokAssign,
		TokLess, TokLessEq, TokGreater, TokGreaterEq,
		TokNot, TokAnd, TokOr, TokEOF,
	}, tokenTypes(toks))
}

func TestLexerKeywordsAndIdents(t *testing.T) {
	toks := lexAll(t, "def deflocation defquest extend func if while for in let fallthrough await torch")
	assert.Equal(t, []TokenType{
		TokDef, TokDefLocation, TokDefQuest, TokExtend, TokFunc,
		TokIf, TokWhile, TokFor, TokIn, TokLet,
		TokFallthrough, TokAwait, TokIdent, TokEOF,
	}, tokenTypes(toks))
	assert.Equal(t, "torch", toks[12].Text)
}

func TestLexerNumbers(t *testing.T) {
	toks := lexAll(t, "0 42 3.5")
	require.Len(t, toks, 4)
	assert.Equal(t, 0.0, toks[0].Number)
	assert.Equal(t, 42.0, toks[1].Number)
	assert.Equal(t, 3.5, toks[2].Number)
}

func TestLexerSymbol(t *testing.T) {
	toks := lexAll(t, "'north 'main_hand")
	require.Len(t, toks, 3)
	assert.Equal(t, TokSymbol, toks[0].Type)
	assert.Equal(t, "north", toks[0].Text)
	assert.Equal(t, "main_hand", toks[1].Text)
}

func TestLexerStringRawText(t *testing.T) {
	toks := lexAll(t, `"a door marked {label}"`)
	require.Len(t, toks, 2)
	assert.Equal(t, TokString, toks[0].Type)
	// Escapes and interpolation stay raw; the parser expands them.
	assert.Equal(t, "a door marked {label}", toks[0].Text)
}

func TestLexerNewlineInStringIsError(t *testing.T) {
	toks := lexAll(t, "\"broken\nstring\"")
	assert.Equal(t, TokError, toks[len(toks)-1].Type)
}

func TestLexerMultilineString(t *testing.T) {
	src := "\"\"\"\n    The hall is vast.\n      Dust hangs in the light.\n    \"\"\""
	toks := lexAll(t, src)
	require.Len(t, toks, 2)
	require.Equal(t, TokString, toks[0].Type)
	assert.Equal(t, "The hall is vast.\n  Dust hangs in the light.", toks[0].Text)
}

func TestLexerMultilineStringUnterminated(t *testing.T) {
	toks := lexAll(t, "\"\"\"\n  no closer here")
	assert.Equal(t, TokError, toks[len(toks)-1].Type)
}

func TestLexerComments(t *testing.T) {
	toks := lexAll(t, "a // line comment\nb /* block\ncomment */ c")
	assert.Equal(t, []TokenType{TokIdent, TokIdent, TokIdent, TokEOF}, tokenTypes(toks))
	assert.Equal(t, 3, toks[2].Line)
}

func TestLexerTracksLines(t *testing.T) {
	toks := lexAll(t, "a\nb\n\nc")
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line)
	assert.Equal(t, 4, toks[2].Line)
}
