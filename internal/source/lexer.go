package source

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// tokenType represents the type of a lexical token
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenString
	tokenInt
	tokenFloat
	tokenLBracket // [
	tokenRBracket // ]
	tokenLParen   // (
	tokenRParen   // )
	tokenComma
	tokenArrow     // =>
	tokenSemicolon // ;
	tokenCloseTag  // ?>
)

// token represents a lexical token
type token struct {
	typ   tokenType
	value string // decoded value for strings, raw text otherwise
	pos   int    // byte offset of the token in the input
}

// lexer tokenizes the operand of a return statement.
// It works on the full input so error positions match the file.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string, pos int) *lexer {
	return &lexer{input: input, pos: pos}
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *lexer) peekN(n int) string {
	end := l.pos + n
	if end > len(l.input) {
		end = len(l.input)
	}
	return l.input[l.pos:end]
}

func (l *lexer) advance(n int) {
	l.pos += n
}

func (l *lexer) errorf(pos int, format string, args ...any) error {
	line, col := position(l.input, pos)
	return &SyntaxError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

// skipTrivia advances past whitespace and comments.
func (l *lexer) skipTrivia() error {
	for l.pos < len(l.input) {
		switch ch := l.peek(); {
		case isSpace(ch):
			l.advance(1)
		case ch == '#' || l.peekN(2) == "//":
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance(1)
			}
		case l.peekN(2) == "/*":
			start := l.pos
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				return l.errorf(start, "unterminated comment")
			}
			l.advance(end + 4)
		default:
			return nil
		}
	}
	return nil
}

// nextToken returns the next token from the input
func (l *lexer) nextToken() (token, error) {
	if err := l.skipTrivia(); err != nil {
		return token{}, err
	}

	start := l.pos
	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, pos: start}, nil
	}

	switch l.peekN(2) {
	case "=>":
		l.advance(2)
		return token{typ: tokenArrow, value: "=>", pos: start}, nil
	case "?>":
		l.advance(2)
		return token{typ: tokenCloseTag, value: "?>", pos: start}, nil
	}

	ch := l.peek()
	switch ch {
	case '[':
		l.advance(1)
		return token{typ: tokenLBracket, value: "[", pos: start}, nil
	case ']':
		l.advance(1)
		return token{typ: tokenRBracket, value: "]", pos: start}, nil
	case '(':
		l.advance(1)
		return token{typ: tokenLParen, value: "(", pos: start}, nil
	case ')':
		l.advance(1)
		return token{typ: tokenRParen, value: ")", pos: start}, nil
	case ',':
		l.advance(1)
		return token{typ: tokenComma, value: ",", pos: start}, nil
	case ';':
		l.advance(1)
		return token{typ: tokenSemicolon, value: ";", pos: start}, nil
	case '\'':
		return l.readSingleQuoted()
	case '"':
		return l.readDoubleQuoted()
	case '$':
		return token{}, l.errorf(start, "variables are not supported")
	}

	if isDigit(ch) || ((ch == '-' || ch == '+' || ch == '.') && isDigit(l.byteAt(l.pos+1))) {
		return l.readNumber()
	}

	if isIdentStart(ch) {
		return l.readIdent(), nil
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return token{}, l.errorf(start, "unexpected character %q", r)
}

func (l *lexer) byteAt(i int) byte {
	if i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

// readSingleQuoted reads a '...' literal; only \\ and \' are escapes.
func (l *lexer) readSingleQuoted() (token, error) {
	start := l.pos
	l.advance(1)

	var b strings.Builder
	for l.pos < len(l.input) {
		ch := l.peek()
		switch {
		case ch == '\'':
			l.advance(1)
			return token{typ: tokenString, value: b.String(), pos: start}, nil
		case ch == '\\' && (l.byteAt(l.pos+1) == '\\' || l.byteAt(l.pos+1) == '\''):
			b.WriteByte(l.byteAt(l.pos + 1))
			l.advance(2)
		default:
			b.WriteByte(ch)
			l.advance(1)
		}
	}
	return token{}, l.errorf(start, "unterminated string literal")
}

// readDoubleQuoted reads a "..." literal with PHP escape sequences.
// Interpolated variables are rejected.
func (l *lexer) readDoubleQuoted() (token, error) {
	start := l.pos
	l.advance(1)

	var b strings.Builder
	for l.pos < len(l.input) {
		ch := l.peek()
		switch {
		case ch == '"':
			l.advance(1)
			return token{typ: tokenString, value: b.String(), pos: start}, nil
		case ch == '$' && (isIdentStart(l.byteAt(l.pos+1)) || l.byteAt(l.pos+1) == '{'):
			return token{}, l.errorf(l.pos, "variable interpolation is not supported")
		case ch == '\\':
			if err := l.readEscape(&b); err != nil {
				return token{}, err
			}
		default:
			b.WriteByte(ch)
			l.advance(1)
		}
	}
	return token{}, l.errorf(start, "unterminated string literal")
}

// simpleEscapes maps single-character escapes to their byte.
var simpleEscapes = map[byte]byte{
	'n': '\n', 't': '\t', 'r': '\r', 'v': '\v', 'e': 0x1b, 'f': '\f',
	'\\': '\\', '$': '$', '"': '"',
}

// readEscape decodes one escape sequence inside a double-quoted string.
// Unknown sequences are kept verbatim, backslash included.
func (l *lexer) readEscape(b *strings.Builder) error {
	next := l.byteAt(l.pos + 1)
	if c, ok := simpleEscapes[next]; ok {
		b.WriteByte(c)
		l.advance(2)
		return nil
	}

	switch {
	case next >= '0' && next <= '7':
		end := l.pos + 1
		for end < len(l.input) && end < l.pos+4 && l.input[end] >= '0' && l.input[end] <= '7' {
			end++
		}
		n, _ := strconv.ParseUint(l.input[l.pos+1:end], 8, 16)
		b.WriteByte(byte(n))
		l.advance(end - l.pos)
		return nil
	case next == 'x' && isHexDigit(l.byteAt(l.pos+2)):
		end := l.pos + 2
		for end < len(l.input) && end < l.pos+4 && isHexDigit(l.input[end]) {
			end++
		}
		n, _ := strconv.ParseUint(l.input[l.pos+2:end], 16, 8)
		b.WriteByte(byte(n))
		l.advance(end - l.pos)
		return nil
	case next == 'u' && l.byteAt(l.pos+2) == '{':
		closing := strings.IndexByte(l.input[l.pos:], '}')
		if closing < 0 {
			return l.errorf(l.pos, "unterminated unicode escape")
		}
		n, err := strconv.ParseUint(l.input[l.pos+3:l.pos+closing], 16, 32)
		if err != nil || !utf8.ValidRune(rune(n)) {
			return l.errorf(l.pos, "invalid unicode escape")
		}
		b.WriteRune(rune(n))
		l.advance(closing + 1)
		return nil
	}

	b.WriteByte('\\')
	l.advance(1)
	return nil
}

// readNumber reads an integer or float literal, with an optional sign.
func (l *lexer) readNumber() (token, error) {
	start := l.pos
	if ch := l.peek(); ch == '-' || ch == '+' {
		l.advance(1)
	}

	isFloat := false
scan:
	for l.pos < len(l.input) {
		ch := l.peek()
		switch {
		case isHexDigit(ch) || ch == '_' || ch == 'x' || ch == 'X' || ch == 'o' || ch == 'O':
			l.advance(1)
		case ch == '.':
			isFloat = true
			l.advance(1)
		case (ch == '+' || ch == '-') && (l.input[l.pos-1] == 'e' || l.input[l.pos-1] == 'E'):
			l.advance(1)
		default:
			break scan
		}
	}

	raw := l.input[start:l.pos]
	lower := strings.ToLower(raw)
	isHex := strings.Contains(lower, "0x")
	if !isHex && strings.ContainsAny(lower, "e") {
		isFloat = true
	}

	if isFloat {
		if _, err := strconv.ParseFloat(strings.ReplaceAll(raw, "_", ""), 64); err != nil {
			return token{}, l.errorf(start, "invalid number %q", raw)
		}
		return token{typ: tokenFloat, value: raw, pos: start}, nil
	}
	return token{typ: tokenInt, value: raw, pos: start}, nil
}

// readIdent reads an identifier
func (l *lexer) readIdent() token {
	start := l.pos
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.advance(1)
	}
	return token{typ: tokenIdent, value: l.input[start:l.pos], pos: start}
}

// position converts a byte offset into a 1-based line and column.
func position(input string, offset int) (int, int) {
	if offset > len(input) {
		offset = len(input)
	}
	line := 1 + strings.Count(input[:offset], "\n")
	col := offset - strings.LastIndexByte(input[:offset], '\n')
	return line, col
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\v' || ch == '\f'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch >= 0x80
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
