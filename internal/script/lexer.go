package script

import (
	"fmt"
	"strconv"
	"strings"
)

// Lexer produces a token stream from wyrdscript source. A fresh Lexer may be
// pushed over any substring (the parser does this for interpolated string
// expressions); startLine seeds the diagnostic line counter.
type Lexer struct {
	src  string
	pos  int
	line int
}

func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1}
}

// NewSubLexer lexes an embedded fragment, reporting errors at the given line.
func NewSubLexer(src string, startLine int) *Lexer {
	return &Lexer{src: src, line: startLine}
}

func (l *Lexer) errorToken(format string, args ...any) Token {
	return Token{Type: TokError, Line: l.line, Message: fmt.Sprintf(format, args...)}
}

func (l *Lexer) make(t TokenType, text string) Token {
	return Token{Type: t, Text: text, Line: l.line}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
	}
	return c
}

func (l *Lexer) match(c byte) bool {
	if l.peek() == c {
		l.pos++
		return true
	}
	return false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// skipTrivia consumes whitespace and comments. Block comments do not nest.
func (l *Lexer) skipTrivia() *Token {
	for l.pos < len(l.src) {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.pos++
			}
		case c == '/' && l.peekAt(1) == '*':
			l.pos += 2
			for {
				if l.pos >= len(l.src) {
					t := l.errorToken("unterminated block comment")
					return &t
				}
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.pos += 2
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

// Next returns the next token, or a TokError token carrying (line, message).
func (l *Lexer) Next() Token {
	if errTok := l.skipTrivia(); errTok != nil {
		return *errTok
	}
	if l.pos >= len(l.src) {
		return l.make(TokEOF, "")
	}

	startLine := l.line
	c := l.advance()
	switch c {
	case '(':
		return l.make(TokLParen, "(")
	case ')':
		return l.make(TokRParen, ")")
	case '[':
		return l.make(TokLBracket, "[")
	case ']':
		return l.make(TokRBracket, "]")
	case '{':
		return l.make(TokLBrace, "{")
	case '}':
		return l.make(TokRBrace, "}")
	case ':':
		return l.make(TokColon, ":")
	case ',':
		return l.make(TokComma, ",")
	case '.':
		return l.make(TokDot, ".")
	case '@':
		return l.make(TokAt, "@")
	case '+':
		if l.match('=') {
			return l.make(TokPlusAssign, "+=")
		}
		return l.make(TokPlus, "+")
	case '-':
		if l.match('>') {
			return l.make(TokArrow, "->")
		}
		if l.match('=') {
			return l.make(TokMinusAssign, "-=")
		}
		return l.make(TokMinus, "-")
	case '*':
		if l.match('=') {
			return l.make(TokStarAssign, "*=")
		}
		return l.make(TokStar, "*")
	case '/':
		if l.match('=') {
			return l.make(TokSlashAssign, "/=")
		}
		return l.make(TokSlash, "/")
	case '%':
		if l.match('=') {
			return l.make(TokPercentAssign, "%=")
		}
		return l.make(TokPercent, "%")
	case '=':
		if l.match('=') {
			return l.make(TokEqual, "==")
		}
		return l.make(TokAssign, "=")
	case '!':
		if l.match('=') {
			return l.make(TokNotEqual, "!=")
		}
		return l.make(TokNot, "!")
	case '<':
		if l.match('=') {
			return l.make(TokLessEq, "<=")
		}
		return l.make(TokLess, "<")
	case '>':
		if l.match('=') {
			return l.make(TokGreaterEq, ">=")
		}
		return l.make(TokGreater, ">")
	case '\'':
		return l.lexSymbol()
	case '"':
		if l.peek() == '"' && l.peekAt(1) == '"' {
			l.pos += 2
			return l.lexMultilineString()
		}
		return l.lexString(startLine)
	}

	switch {
	case isDigit(c):
		return l.lexNumber(c)
	case isIdentStart(c):
		return l.lexIdent(c)
	}
	return l.errorToken("unexpected character %q", string(rune(c)))
}

func (l *Lexer) lexSymbol() Token {
	start := l.pos
	if !isIdentStart(l.peek()) {
		return l.errorToken("expected symbol name after '")
	}
	for l.pos < len(l.src) && isIdentChar(l.peek()) {
		l.pos++
	}
	return Token{Type: TokSymbol, Text: l.src[start:l.pos], Line: l.line}
}

func (l *Lexer) lexNumber(first byte) Token {
	start := l.pos - 1
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.pos++
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.peek()) {
			l.pos++
		}
	}
	text := l.src[start:l.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return l.errorToken("malformed number %q", text)
	}
	return Token{Type: TokNumber, Text: text, Number: n, Line: l.line}
}

func (l *Lexer) lexIdent(first byte) Token {
	start := l.pos - 1
	for l.pos < len(l.src) && isIdentChar(l.peek()) {
		l.pos++
	}
	text := l.src[start:l.pos]
	if t, ok := reservedWords[text]; ok {
		return Token{Type: t, Text: text, Line: l.line}
	}
	return Token{Type: TokIdent, Text: text, Line: l.line}
}

// lexString scans a single-line string literal. The returned token text is
// the raw content between the quotes; escapes and interpolation are handled
// during parsing. A newline before the closing quote is an error.
func (l *Lexer) lexString(startLine int) Token {
	start := l.pos
	for {
		if l.pos >= len(l.src) {
			return l.errorToken("unterminated string")
		}
		c := l.peek()
		if c == '\n' {
			return l.errorToken("newline in string literal")
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos += 2
			continue
		}
		if c == '"' {
			text := l.src[start:l.pos]
			l.pos++
			return Token{Type: TokString, Text: text, Line: startLine}
		}
		l.pos++
	}
}

// lexMultilineString scans a triple-quoted block. The opener must be followed
// immediately by a newline; the closer is `"""` on a line of its own, whose
// leading whitespace defines the indent stripped from every interior line.
func (l *Lexer) lexMultilineString() Token {
	startLine := l.line
	if l.peek() == '\r' {
		l.advance()
	}
	if l.peek() != '\n' {
		return l.errorToken(`expected newline after """`)
	}
	l.advance()

	bodyStart := l.pos
	closeIdx := -1
	indent := ""
	// Scan line by line for the closing delimiter.
	for pos := l.pos; pos <= len(l.src); {
		lineEnd := strings.IndexByte(l.src[pos:], '\n')
		var line string
		if lineEnd < 0 {
			line = l.src[pos:]
			lineEnd = len(l.src)
		} else {
			line = l.src[pos : pos+lineEnd]
			lineEnd = pos + lineEnd
		}
		trimmed := strings.TrimLeft(line, " \t")
		if strings.TrimRight(trimmed, "\r") == `"""` {
			closeIdx = pos
			indent = line[:len(line)-len(trimmed)]
			break
		}
		if lineEnd >= len(l.src) {
			break
		}
		pos = lineEnd + 1
	}
	if closeIdx < 0 {
		return l.errorToken("unterminated multi-line string")
	}

	body := l.src[bodyStart:closeIdx]
	// Count consumed lines for diagnostics, then strip the block indent.
	var out []string
	for _, line := range strings.Split(strings.TrimSuffix(body, "\n"), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			out = append(out, "")
			continue
		}
		if !strings.HasPrefix(line, indent) {
			return l.errorToken("line indented less than closing \"\"\"")
		}
		out = append(out, line[len(indent):])
	}

	// Advance past the closing delimiter line.
	l.line += strings.Count(l.src[bodyStart:closeIdx], "\n")
	l.pos = closeIdx
	for l.pos < len(l.src) && l.src[l.pos] != '"' {
		l.pos++
	}
	l.pos += 3 // closing """

	return Token{Type: TokString, Text: strings.Join(out, "\n"), Line: startLine}
}
