package source

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// openTag starts the code section of a PHP-style file.
const openTag = "<?php"

// Parse extracts the value of the return statement in content.
//
// Content without a return statement, including empty and plain-text
// files, yields ErrNoReturn. Malformed literals yield a *SyntaxError.
func Parse(content []byte) (Result, error) {
	input := strings.TrimPrefix(string(content), "\ufeff")

	l := newLexer(input, skipOpenTag(input))
	if err := skipPreamble(l); err != nil {
		return Result{}, err
	}

	if !hasKeyword(l, "return") {
		return Result{}, ErrNoReturn
	}
	l.advance(len("return"))
	if err := l.skipTrivia(); err != nil {
		return Result{}, err
	}

	if l.peek() == '[' || hasKeyword(l, "array") {
		p, err := newParser(l)
		if err != nil {
			return Result{}, err
		}
		v, err := p.parseStatement()
		if err != nil {
			return Result{}, err
		}
		return Result{Value: v, Format: FormatArray}, nil
	}

	v, err := parseYAMLOperand(input, l.pos)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: v, Format: FormatYAML}, nil
}

// skipOpenTag returns the offset right after a leading "<?php" tag, or 0
// when the content has none.
func skipOpenTag(input string) int {
	trimmed := strings.TrimLeft(input, " \t\r\n")
	if len(trimmed) < len(openTag) || !strings.EqualFold(trimmed[:len(openTag)], openTag) {
		return 0
	}
	rest := trimmed[len(openTag):]
	if rest != "" && !isSpace(rest[0]) {
		return 0
	}
	return len(input) - len(rest)
}

// preambleKeywords start statements that may precede the return and carry
// no configuration.
var preambleKeywords = []string{"declare", "namespace", "use"}

// skipPreamble skips comments and declare, namespace and use statements
// before the return.
func skipPreamble(l *lexer) error {
	for {
		if err := l.skipTrivia(); err != nil {
			return err
		}
		keyword := ""
		for _, k := range preambleKeywords {
			if hasKeyword(l, k) {
				keyword = k
				break
			}
		}
		if keyword == "" {
			return nil
		}

		stmt := l.input[l.pos:]
		end := strings.IndexByte(stmt, ';')
		if keyword == "namespace" {
			if brace := strings.IndexByte(stmt, '{'); brace >= 0 && (end < 0 || brace < end) {
				return l.errorf(l.pos+brace, "braced namespace blocks are not supported")
			}
		}
		if end < 0 {
			return l.errorf(l.pos, "unterminated %s statement", keyword)
		}
		l.advance(end + 1)
	}
}

// hasKeyword reports whether the lexer is positioned at keyword (any case).
func hasKeyword(l *lexer, keyword string) bool {
	word := l.peekN(len(keyword))
	return strings.EqualFold(word, keyword) && !isIdentChar(l.byteAt(l.pos+len(keyword)))
}

// parser parses PHP array literals.
type parser struct {
	lexer   *lexer
	current token
}

func newParser(l *lexer) (*parser, error) {
	p := &parser{lexer: l}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// advance moves to the next token
func (p *parser) advance() error {
	tok, err := p.lexer.nextToken()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return p.lexer.errorf(p.current.pos, format, args...)
}

// parseStatement parses "<value> [;] [?>]" up to the end of input.
// The top-level array is always returned as a map.
func (p *parser) parseStatement() (any, error) {
	v, err := p.parseValue(true)
	if err != nil {
		return nil, err
	}

	if p.current.typ == tokenSemicolon {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	switch p.current.typ {
	case tokenEOF, tokenCloseTag:
		return v, nil
	default:
		return nil, p.errorf("unexpected %s after return value", describe(p.current))
	}
}

// parseValue parses a scalar or array literal.
func (p *parser) parseValue(top bool) (any, error) {
	tok := p.current

	switch tok.typ {
	case tokenLBracket:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseArray(tokenRBracket, top)

	case tokenString:
		return tok.value, p.advance()

	case tokenInt:
		n, err := parseInt(tok.value)
		if err != nil {
			return nil, p.errorf("invalid integer %q", tok.value)
		}
		return n, p.advance()

	case tokenFloat:
		f, err := strconv.ParseFloat(strings.ReplaceAll(tok.value, "_", ""), 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", tok.value)
		}
		return f, p.advance()

	case tokenIdent:
		switch strings.ToLower(tok.value) {
		case "array":
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.current.typ != tokenLParen {
				return nil, p.errorf("expected '(' after array, got %s", describe(p.current))
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.parseArray(tokenRParen, top)
		case "true":
			return true, p.advance()
		case "false":
			return false, p.advance()
		case "null":
			return nil, p.advance()
		}
		return nil, p.errorf("unsupported constant %q", tok.value)
	}

	return nil, p.errorf("unexpected %s", describe(tok))
}

// parseArray parses array elements up to and including closer.
func (p *parser) parseArray(closer tokenType, top bool) (any, error) {
	arr := newArray()

	for p.current.typ != closer {
		first, err := p.parseValue(false)
		if err != nil {
			return nil, err
		}

		if p.current.typ == tokenArrow {
			keyTok := p.current
			key, err := castKey(first)
			if err != nil {
				return nil, p.lexer.errorf(keyTok.pos, "%v", err)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			value, err := p.parseValue(false)
			if err != nil {
				return nil, err
			}
			arr.set(key, value)
		} else {
			arr.push(first)
		}

		switch p.current.typ {
		case tokenComma:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case closer:
		default:
			return nil, p.errorf("expected ',' or %s, got %s", closerText(closer), describe(p.current))
		}
	}

	if err := p.advance(); err != nil {
		return nil, err
	}
	return arr.value(top), nil
}

// parseInt parses an integer literal; values beyond int range become float64.
func parseInt(raw string) (any, error) {
	n, err := strconv.ParseInt(raw, 0, 64)
	if err == nil {
		if n >= math.MinInt && n <= math.MaxInt {
			return int(n), nil
		}
		return float64(n), nil
	}
	if errors.Is(err, strconv.ErrRange) {
		f, ferr := strconv.ParseFloat(strings.ReplaceAll(raw, "_", ""), 64)
		if ferr == nil {
			return f, nil
		}
	}
	return nil, err
}

func describe(tok token) string {
	if tok.typ == tokenEOF {
		return "end of input"
	}
	if tok.typ == tokenString {
		return fmt.Sprintf("string %q", tok.value)
	}
	return fmt.Sprintf("%q", tok.value)
}

func closerText(closer tokenType) string {
	if closer == tokenRParen {
		return "')'"
	}
	return "']'"
}
