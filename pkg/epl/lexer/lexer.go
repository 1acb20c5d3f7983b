// Package lexer tokenizes EPL source text. It produces a flat token stream
// with source locations; `#` starts a line comment; newlines are emitted as
// tokens because they separate body literals.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"mercator-hq/europa/pkg/epl/ast"
)

// TokenType identifies a lexical token class.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNewline
	TokenIdent
	TokenKeyword
	TokenNumber
	TokenString
	TokenOperator // == != < <= > >= + - * / %
	TokenAssign   // :=
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenLParen
	TokenRParen
	TokenComma
	TokenSemicolon
	TokenColon
	TokenDot
	TokenPipe
)

// String returns a readable token class name for error messages.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of input"
	case TokenNewline:
		return "newline"
	case TokenIdent:
		return "identifier"
	case TokenKeyword:
		return "keyword"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenOperator:
		return "operator"
	case TokenAssign:
		return ":="
	case TokenLBrace:
		return "'{'"
	case TokenRBrace:
		return "'}'"
	case TokenLBracket:
		return "'['"
	case TokenRBracket:
		return "']'"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenComma:
		return "','"
	case TokenSemicolon:
		return "';'"
	case TokenColon:
		return "':'"
	case TokenDot:
		return "'.'"
	case TokenPipe:
		return "'|'"
	default:
		return fmt.Sprintf("token(%d)", int(t))
	}
}

// keywords reserved by the language. "true", "false", and "null" lex as
// keywords and are turned into literal terms by the parser.
var keywords = map[string]bool{
	"package":  true,
	"import":   true,
	"as":       true,
	"if":       true,
	"else":     true,
	"default":  true,
	"not":      true,
	"some":     true,
	"in":       true,
	"contains": true,
	"true":     true,
	"false":    true,
	"null":     true,
}

// Token is one lexical token with its source location.
type Token struct {
	Type     TokenType
	Text     string
	Location ast.Location
}

// SyntaxError is returned for malformed input at the lexical level.
type SyntaxError struct {
	Message  string
	Location ast.Location
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location.String(), e.Message)
}

// Lexer scans EPL source into tokens.
type Lexer struct {
	file   string
	src    string
	pos    int
	line   int
	column int
}

// New creates a lexer for the given source. The filename is used only in
// error locations and may be empty.
func New(filename, source string) *Lexer {
	return &Lexer{file: filename, src: source, line: 1, column: 1}
}

// Tokenize scans the entire input, returning the token stream terminated by
// an EOF token, or the first syntax error.
func Tokenize(filename, source string) ([]Token, error) {
	lx := New(filename, source)
	var tokens []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// Next scans and returns the next token.
func (lx *Lexer) Next() (Token, error) {
	lx.skipSpace()

	loc := lx.location()

	if lx.pos >= len(lx.src) {
		return Token{Type: TokenEOF, Location: loc}, nil
	}

	c := lx.src[lx.pos]

	switch {
	case c == '\n':
		lx.advance()
		return Token{Type: TokenNewline, Text: "\n", Location: loc}, nil

	case c == '#':
		for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
			lx.advance()
		}
		return lx.Next()

	case isIdentStart(rune(c)):
		return lx.scanIdent(loc), nil

	case c >= '0' && c <= '9':
		return lx.scanNumber(loc)

	case c == '"':
		return lx.scanString(loc)

	case c == '-':
		// Lexed as an operator; the parser decides unary vs binary.
		lx.advance()
		return Token{Type: TokenOperator, Text: "-", Location: loc}, nil
	}

	// Multi-char operators first
	if strings.HasPrefix(lx.src[lx.pos:], ":=") {
		lx.advance()
		lx.advance()
		return Token{Type: TokenAssign, Text: ":=", Location: loc}, nil
	}
	for _, op := range []string{"==", "!=", "<=", ">="} {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.advance()
			lx.advance()
			return Token{Type: TokenOperator, Text: op, Location: loc}, nil
		}
	}

	single := map[byte]TokenType{
		'{': TokenLBrace,
		'}': TokenRBrace,
		'[': TokenLBracket,
		']': TokenRBracket,
		'(': TokenLParen,
		')': TokenRParen,
		',': TokenComma,
		';': TokenSemicolon,
		':': TokenColon,
		'.': TokenDot,
		'|': TokenPipe,
	}
	if tt, ok := single[c]; ok {
		lx.advance()
		return Token{Type: tt, Text: string(c), Location: loc}, nil
	}
	if strings.ContainsRune("<>+*/%", rune(c)) {
		lx.advance()
		return Token{Type: TokenOperator, Text: string(c), Location: loc}, nil
	}

	return Token{}, &SyntaxError{
		Message:  fmt.Sprintf("unexpected character %q", c),
		Location: loc,
	}
}

func (lx *Lexer) scanIdent(loc ast.Location) Token {
	start := lx.pos
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !isIdentPart(r) {
			break
		}
		lx.column++
		lx.pos += size
	}
	text := lx.src[start:lx.pos]
	if keywords[text] {
		return Token{Type: TokenKeyword, Text: text, Location: loc}
	}
	return Token{Type: TokenIdent, Text: text, Location: loc}
}

func (lx *Lexer) scanNumber(loc ast.Location) (Token, error) {
	start := lx.pos
	seenDot := false
	seenExp := false
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c >= '0' && c <= '9':
			lx.advance()
		case c == '.' && !seenDot && !seenExp && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1]):
			seenDot = true
			lx.advance()
		case (c == 'e' || c == 'E') && !seenExp:
			seenExp = true
			lx.advance()
			if lx.pos < len(lx.src) && (lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-') {
				lx.advance()
			}
			if lx.pos >= len(lx.src) || !isDigit(lx.src[lx.pos]) {
				return Token{}, &SyntaxError{
					Message:  "malformed number: exponent has no digits",
					Location: loc,
				}
			}
		default:
			return Token{Type: TokenNumber, Text: lx.src[start:lx.pos], Location: loc}, nil
		}
	}
	return Token{Type: TokenNumber, Text: lx.src[start:lx.pos], Location: loc}, nil
}

func (lx *Lexer) scanString(loc ast.Location) (Token, error) {
	lx.advance() // opening quote
	var sb strings.Builder
	for {
		if lx.pos >= len(lx.src) || lx.src[lx.pos] == '\n' {
			return Token{}, &SyntaxError{
				Message:  "unterminated string literal",
				Location: loc,
			}
		}
		c := lx.src[lx.pos]
		if c == '"' {
			lx.advance()
			return Token{Type: TokenString, Text: sb.String(), Location: loc}, nil
		}
		if c == '\\' {
			lx.advance()
			if lx.pos >= len(lx.src) {
				return Token{}, &SyntaxError{
					Message:  "unterminated escape sequence",
					Location: loc,
				}
			}
			esc := lx.src[lx.pos]
			switch esc {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case '/':
				sb.WriteByte('/')
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				return Token{}, &SyntaxError{
					Message:  fmt.Sprintf("unknown escape sequence \\%c", esc),
					Location: lx.location(),
				}
			}
			lx.advance()
			continue
		}
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		sb.WriteRune(r)
		lx.column++
		lx.pos += size
	}
}

// skipSpace consumes spaces, tabs, and carriage returns but not newlines.
func (lx *Lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == ' ' || c == '\t' || c == '\r' {
			lx.advance()
			continue
		}
		return
	}
}

func (lx *Lexer) advance() {
	if lx.pos < len(lx.src) {
		if lx.src[lx.pos] == '\n' {
			lx.line++
			lx.column = 1
		} else {
			lx.column++
		}
		lx.pos++
	}
}

func (lx *Lexer) location() ast.Location {
	return ast.Location{File: lx.file, Line: lx.line, Column: lx.column}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
