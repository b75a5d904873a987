package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/dialect"
	"github.com/leapstack-labs/sqllineage/pkg/token"
)

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	dialect *dialect.Dialect
	errors  []error
}

// NewLexer creates a new Lexer for the given input. A nil dialect selects
// the generic dialect.
func NewLexer(input string, d *dialect.Dialect) *Lexer {
	if d == nil {
		d = dialect.Generic
	}
	l := &Lexer{
		input:   input,
		line:    1,
		col:     0,
		dialect: d,
	}
	l.readChar()
	return l
}

// Errors returns the lexical errors seen so far.
func (l *Lexer) Errors() []error {
	return l.errors
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *Lexer) addError(pos token.Position, msg string) {
	l.errors = append(l.errors, &LexError{Pos: pos, Message: msg})
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	tok := token.Token{Pos: pos}

	if l.atEOF() {
		tok.Type = token.EOF
		return tok
	}

	if end, ok := l.dialect.IdentifierQuote(l.ch); ok {
		lit, closed := l.readDelimited(end)
		if !closed {
			l.addError(pos, ErrUnterminatedIdent)
			tok.Type = token.ILLEGAL
			tok.Literal = lit
			return tok
		}
		tok.Type = token.IDENT
		tok.Literal = lit
		tok.Quoted = true
		return tok
	}

	switch l.ch {
	case '+':
		tok = l.single(token.PLUS, pos)
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			if l.peekChar() == '>' {
				l.readChar()
				tok = token.Token{Type: token.DARROW, Literal: "->>", Pos: pos}
			} else {
				tok = token.Token{Type: token.ARROW, Literal: "->", Pos: pos}
			}
		} else {
			tok = l.single(token.MINUS, pos)
		}
	case '*':
		tok = l.single(token.STAR, pos)
	case '/':
		tok = l.single(token.SLASH, pos)
	case '%':
		tok = l.single(token.PERCENT, pos)
	case '=':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = token.Token{Type: token.EQ, Literal: "==", Pos: pos}
		case '>':
			l.readChar()
			tok = token.Token{Type: token.ARROW, Literal: "=>", Pos: pos}
		default:
			tok = l.single(token.EQ, pos)
		}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = token.Token{Type: token.LE, Literal: "<=", Pos: pos}
		case '>':
			l.readChar()
			tok = token.Token{Type: token.NE, Literal: "<>", Pos: pos}
		default:
			tok = l.single(token.LT, pos)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GE, Literal: ">=", Pos: pos}
		} else {
			tok = l.single(token.GT, pos)
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.NE, Literal: "!=", Pos: pos}
		} else {
			tok = l.illegal(pos)
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = token.Token{Type: token.DPIPE, Literal: "||", Pos: pos}
		} else {
			tok = l.illegal(pos)
		}
	case '.':
		if isDigit(l.peekChar()) {
			return token.Token{Type: token.NUMBER, Literal: l.readNumber(), Pos: pos}
		}
		tok = l.single(token.DOT, pos)
	case ',':
		tok = l.single(token.COMMA, pos)
	case ';':
		tok = l.single(token.SEMICOLON, pos)
	case '(':
		tok = l.single(token.LPAREN, pos)
	case ')':
		tok = l.single(token.RPAREN, pos)
	case '[':
		tok = l.single(token.LBRACKET, pos)
	case ']':
		tok = l.single(token.RBRACKET, pos)
	case ':':
		switch {
		case l.peekChar() == ':':
			l.readChar()
			tok = token.Token{Type: token.DCOLON, Literal: "::", Pos: pos}
		case isIdentStart(l.peekChar()):
			return l.readParam(pos)
		default:
			tok = l.illegal(pos)
		}
	case '?':
		tok = l.single(token.PARAM, pos)
	case '$', '@':
		if isDigit(l.peekChar()) || isIdentStart(l.peekChar()) || l.peekChar() == '@' {
			return l.readParam(pos)
		}
		tok = l.illegal(pos)
	case '\'':
		lit, closed := l.readDelimited('\'')
		if !closed {
			l.addError(pos, ErrUnterminatedString)
			return token.Token{Type: token.ILLEGAL, Literal: lit, Pos: pos}
		}
		return token.Token{Type: token.STRING, Literal: lit, Pos: pos}
	case '"':
		// Not an identifier delimiter in this dialect, so a string.
		lit, closed := l.readDelimited('"')
		if !closed {
			l.addError(pos, ErrUnterminatedString)
			return token.Token{Type: token.ILLEGAL, Literal: lit, Pos: pos}
		}
		return token.Token{Type: token.STRING, Literal: lit, Pos: pos, Quoted: true}
	default:
		switch {
		case isStringPrefix(l.ch) && l.peekChar() == '\'':
			l.readChar() // skip prefix
			lit, closed := l.readDelimited('\'')
			if !closed {
				l.addError(pos, ErrUnterminatedString)
				return token.Token{Type: token.ILLEGAL, Literal: lit, Pos: pos}
			}
			return token.Token{Type: token.STRING, Literal: lit, Pos: pos}
		case isIdentStart(l.ch):
			lit := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(strings.ToLower(lit)), Literal: lit, Pos: pos}
		case isDigit(l.ch):
			return token.Token{Type: token.NUMBER, Literal: l.readNumber(), Pos: pos}
		default:
			tok = l.illegal(pos)
		}
	}

	l.readChar()
	return tok
}

func (l *Lexer) single(t token.TokenType, pos token.Position) token.Token {
	return token.Token{Type: t, Literal: string(l.ch), Pos: pos}
}

func (l *Lexer) illegal(pos token.Position) token.Token {
	l.addError(pos, fmt.Sprintf(ErrUnexpectedCharacter, l.ch))
	return token.Token{Type: token.ILLEGAL, Literal: string(l.ch), Pos: pos}
}

// skipWhitespaceAndComments skips whitespace, -- line comments and
// /* block */ comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			start := l.currentPos()
			l.readChar() // skip '/'
			l.readChar() // skip '*'
			closed := false
			for !l.atEOF() {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					closed = true
					break
				}
				l.readChar()
			}
			if !closed {
				l.addError(start, ErrUnterminatedComment)
			}
			continue
		}

		break
	}
}

// readDelimited reads text up to the closing delimiter. A doubled closing
// delimiter is an escaped literal one. It reports whether the delimiter
// was found before the end of input.
func (l *Lexer) readDelimited(end byte) (string, bool) {
	l.readChar() // skip opening delimiter

	var result strings.Builder
	for !l.atEOF() {
		if l.ch == end {
			if l.peekChar() == end {
				result.WriteByte(end)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing delimiter
			return result.String(), true
		}
		if l.ch == '\\' && l.dialect.BackslashEscapes() && l.peekChar() != 0 {
			// kept verbatim; the escape belongs to the dialect's text
			result.WriteByte('\\')
			l.readChar()
			result.WriteByte(l.ch)
			l.readChar()
			continue
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String(), false
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readParam reads a bind parameter: $1, :name, @name or @@name.
func (l *Lexer) readParam(pos token.Position) token.Token {
	start := l.pos
	l.readChar() // sigil
	if l.ch == '@' {
		l.readChar()
	}
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return token.Token{Type: token.PARAM, Literal: l.input[start:l.pos], Pos: pos}
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar() // skip 'e' or 'E'
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isIdentStart reports whether ch can start an unquoted identifier. Bytes
// of multi-byte UTF-8 sequences are accepted as letters.
func isIdentStart(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_' || ch == '#' || ch >= 0x80
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '$'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// isStringPrefix reports whether ch is a string literal prefix such as
// N'...' or E'...'.
func isStringPrefix(ch byte) bool {
	switch ch {
	case 'N', 'n', 'E', 'e', 'B', 'b', 'X', 'x', 'R', 'r':
		return true
	}
	return false
}

// Tokenize returns all tokens from the input, ending with EOF.
func Tokenize(input string, d *dialect.Dialect) []token.Token {
	l := NewLexer(input, d)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens
}
