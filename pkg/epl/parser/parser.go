// Package parser turns EPL source text into an AST.
//
// Statements (package declaration, imports, rule clauses) are parsed by
// recursive descent; expressions use a Pratt parser with three binary
// precedence levels (comparison/membership, additive, multiplicative) below
// unary minus and call/index access.
//
// Parsing is a pure function of the source text. The first syntax error
// aborts the parse; no partial AST is returned.
package parser

import (
	"fmt"

	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/epl/ast"
	eplerrors "mercator-hq/europa/pkg/epl/errors"
	"mercator-hq/europa/pkg/epl/lexer"
)

// contextLines controls how much surrounding source is attached to errors.
const contextLines = 2

// Parse tokenizes and parses one EPL module. The filename appears in error
// locations and may be empty.
func Parse(filename, source string) (*ast.Module, error) {
	tokens, err := lexer.Tokenize(filename, source)
	if err != nil {
		if lexErr, ok := err.(*lexer.SyntaxError); ok {
			return nil, eplerrors.WithContext(&eplerrors.Error{
				Type:     eplerrors.ErrorTypeSyntax,
				Message:  lexErr.Message,
				Location: lexErr.Location,
			}, source, contextLines)
		}
		return nil, err
	}

	p := &parser{tokens: tokens, source: source}
	module, err := p.parseModule()
	if err != nil {
		if synErr, ok := err.(*eplerrors.Error); ok {
			return nil, eplerrors.WithContext(synErr, source, contextLines)
		}
		return nil, err
	}
	module.Filename = filename
	return module, nil
}

type parser struct {
	tokens []lexer.Token
	pos    int
	source string
}

func (p *parser) cur() lexer.Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() lexer.Token {
	tok := p.tokens[p.pos]
	if tok.Type != lexer.TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) at(tt lexer.TokenType) bool {
	return p.cur().Type == tt
}

func (p *parser) atKeyword(kw string) bool {
	return p.cur().Type == lexer.TokenKeyword && p.cur().Text == kw
}

func (p *parser) atOperator(op string) bool {
	return p.cur().Type == lexer.TokenOperator && p.cur().Text == op
}

func (p *parser) skipNewlines() {
	for p.at(lexer.TokenNewline) {
		p.advance()
	}
}

func (p *parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if !p.at(tt) {
		return lexer.Token{}, p.errorf("expected %s, found %s", tt, p.describeCur())
	}
	return p.advance(), nil
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return p.errorf("expected keyword %q, found %s", kw, p.describeCur())
	}
	p.advance()
	return nil
}

func (p *parser) describeCur() string {
	tok := p.cur()
	switch tok.Type {
	case lexer.TokenEOF, lexer.TokenNewline:
		return tok.Type.String()
	case lexer.TokenString:
		return fmt.Sprintf("string %q", tok.Text)
	default:
		return fmt.Sprintf("%q", tok.Text)
	}
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &eplerrors.Error{
		Type:     eplerrors.ErrorTypeSyntax,
		Message:  fmt.Sprintf(format, args...),
		Location: p.cur().Location,
	}
}

// ── Statements ──────────────────────────────────────────────────────────

func (p *parser) parseModule() (*ast.Module, error) {
	p.skipNewlines()

	pkg, err := p.parsePackage()
	if err != nil {
		return nil, err
	}

	module := &ast.Module{Package: pkg}

	for {
		p.skipNewlines()
		if p.at(lexer.TokenEOF) {
			return module, nil
		}

		if p.atKeyword("import") {
			imp, err := p.parseImport()
			if err != nil {
				return nil, err
			}
			module.Imports = append(module.Imports, imp)
			continue
		}

		rule, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		module.Rules = append(module.Rules, rule)
	}
}

func (p *parser) parsePackage() (*ast.Package, error) {
	loc := p.cur().Location
	if err := p.expectKeyword("package"); err != nil {
		return nil, err
	}

	path, err := p.parseDottedPath()
	if err != nil {
		return nil, err
	}

	if !p.at(lexer.TokenNewline) && !p.at(lexer.TokenEOF) {
		return nil, p.errorf("unexpected %s after package declaration", p.describeCur())
	}

	return &ast.Package{Path: path, Location: loc}, nil
}

func (p *parser) parseImport() (*ast.Import, error) {
	loc := p.cur().Location
	p.advance() // import

	path, err := p.parseDottedPath()
	if err != nil {
		return nil, err
	}
	if root := path[0]; root != "data" && root != "input" {
		return nil, &eplerrors.Error{
			Type:       eplerrors.ErrorTypeSyntax,
			Message:    fmt.Sprintf("import path must start with \"data\" or \"input\", found %q", root),
			Location:   loc,
			Suggestion: "import data.<path> or input.<path>",
		}
	}

	imp := &ast.Import{Path: path, Location: loc}

	if p.atKeyword("as") {
		p.advance()
		tok, err := p.expect(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		imp.Alias = tok.Text
	}

	if !p.at(lexer.TokenNewline) && !p.at(lexer.TokenEOF) {
		return nil, p.errorf("unexpected %s after import", p.describeCur())
	}
	return imp, nil
}

func (p *parser) parseDottedPath() ([]string, error) {
	tok, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	path := []string{tok.Text}
	for p.at(lexer.TokenDot) {
		p.advance()
		tok, err := p.expect(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		path = append(path, tok.Text)
	}
	return path, nil
}

// parseRule parses one rule clause:
//
//	default <name> := <term>
//	<name> [":=" term] ["if" body] [else ...]
//	<name> contains <term> ["if" body]
//	<name> "[" term "]" := <term> ["if" body]
func (p *parser) parseRule() (*ast.Rule, error) {
	loc := p.cur().Location

	if p.atKeyword("default") {
		p.advance()
		nameTok, err := p.expect(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenAssign); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Rule{
			Name:     nameTok.Text,
			Kind:     ast.CompleteRule,
			Default:  true,
			Value:    value,
			Location: loc,
		}, nil
	}

	nameTok, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}

	rule := &ast.Rule{Name: nameTok.Text, Kind: ast.CompleteRule, Location: loc}

	switch {
	case p.atKeyword("contains"):
		p.advance()
		rule.Kind = ast.PartialSetRule
		rule.Key, err = p.parseExpr()
		if err != nil {
			return nil, err
		}

	case p.at(lexer.TokenLBracket):
		p.advance()
		rule.Kind = ast.PartialObjectRule
		rule.Key, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRBracket); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenAssign); err != nil {
			return nil, err
		}
		rule.Value, err = p.parseExpr()
		if err != nil {
			return nil, err
		}

	case p.at(lexer.TokenAssign):
		p.advance()
		rule.Value, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}

	if p.atKeyword("if") {
		p.advance()
		rule.Body, err = p.parseRuleBody()
		if err != nil {
			return nil, err
		}
	} else if rule.Kind != ast.CompleteRule || rule.Value == nil {
		// Unconditional partial rules and bare complete rules without a
		// value make no sense at the top level.
		if rule.Kind != ast.CompleteRule {
			return nil, &eplerrors.Error{
				Type:       eplerrors.ErrorTypeSyntax,
				Message:    fmt.Sprintf("%s rule %q requires an \"if\" body", rule.Kind, rule.Name),
				Location:   loc,
				Suggestion: "add a rule body: ... if { <conditions> }",
			}
		}
		return nil, &eplerrors.Error{
			Type:       eplerrors.ErrorTypeSyntax,
			Message:    fmt.Sprintf("rule %q has neither a value nor a body", rule.Name),
			Location:   loc,
			Suggestion: fmt.Sprintf("write %q := <value> or %q if <condition>", rule.Name, rule.Name),
		}
	}

	// else chains apply to complete rules only.
	if p.atKeyword("else") {
		if rule.Kind != ast.CompleteRule {
			return nil, p.errorf("\"else\" is only valid on complete rules")
		}
		elseRule, err := p.parseElse(rule.Name)
		if err != nil {
			return nil, err
		}
		rule.Else = elseRule
	}

	if !p.at(lexer.TokenNewline) && !p.at(lexer.TokenEOF) {
		return nil, p.errorf("unexpected %s after rule definition", p.describeCur())
	}
	return rule, nil
}

func (p *parser) parseElse(name string) (*ast.Rule, error) {
	loc := p.cur().Location
	p.advance() // else

	rule := &ast.Rule{Name: name, Kind: ast.CompleteRule, Location: loc}

	var err error
	if p.at(lexer.TokenAssign) {
		p.advance()
		rule.Value, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}

	if p.atKeyword("if") {
		p.advance()
		rule.Body, err = p.parseRuleBody()
		if err != nil {
			return nil, err
		}
	}

	if rule.Value == nil && rule.Body == nil {
		return nil, p.errorf("\"else\" requires a value, a body, or both")
	}

	if p.atKeyword("else") {
		rule.Else, err = p.parseElse(name)
		if err != nil {
			return nil, err
		}
	}
	return rule, nil
}

// parseRuleBody parses either a braced body or a single bare literal.
func (p *parser) parseRuleBody() ([]*ast.Literal, error) {
	if p.at(lexer.TokenLBrace) {
		p.advance()
		body, err := p.parseBody(lexer.TokenRBrace)
		if err != nil {
			return nil, err
		}
		p.advance() // closing brace, checked by parseBody
		return body, nil
	}

	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return []*ast.Literal{lit}, nil
}

// parseBody parses literals separated by semicolons or newlines until the
// closing token, which is left for the caller to consume.
func (p *parser) parseBody(closing lexer.TokenType) ([]*ast.Literal, error) {
	var body []*ast.Literal
	for {
		p.skipSeparators()
		if p.at(closing) {
			if len(body) == 0 {
				return nil, p.errorf("empty body")
			}
			return body, nil
		}
		if p.at(lexer.TokenEOF) {
			return nil, p.errorf("unexpected end of input in rule body")
		}

		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		body = append(body, lit)

		if !p.at(closing) && !p.at(lexer.TokenNewline) && !p.at(lexer.TokenSemicolon) {
			return nil, p.errorf("expected ';', newline, or %s after body literal, found %s", closing, p.describeCur())
		}
	}
}

func (p *parser) skipSeparators() {
	for p.at(lexer.TokenNewline) || p.at(lexer.TokenSemicolon) {
		p.advance()
	}
}

// parseLiteral parses one body literal: a some-declaration, a negated
// expression, a variable assignment, or a plain expression.
func (p *parser) parseLiteral() (*ast.Literal, error) {
	loc := p.cur().Location

	if p.atKeyword("some") {
		p.advance()
		varTok, err := p.expect(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		vars := []string{varTok.Text}
		if p.at(lexer.TokenComma) {
			p.advance()
			varTok, err := p.expect(lexer.TokenIdent)
			if err != nil {
				return nil, err
			}
			vars = append(vars, varTok.Text)
		}
		if err := p.expectKeyword("in"); err != nil {
			return nil, err
		}
		collection, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Literal{
			Kind:     ast.SomeLiteral,
			SomeVars: vars,
			SomeIn:   collection,
			Location: loc,
		}, nil
	}

	if p.atKeyword("not") {
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Literal{
			Kind:     ast.ExprLiteral,
			Negated:  true,
			Term:     expr,
			Location: loc,
		}, nil
	}

	// Assignment lookahead: IDENT ":="
	if p.at(lexer.TokenIdent) && p.tokens[p.pos+1].Type == lexer.TokenAssign {
		varTok := p.advance()
		p.advance() // :=
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Literal{
			Kind:     ast.AssignLiteral,
			Var:      varTok.Text,
			Term:     expr,
			Location: loc,
		}, nil
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Literal{Kind: ast.ExprLiteral, Term: expr, Location: loc}, nil
}

// ── Expressions (Pratt) ─────────────────────────────────────────────────

// binaryPrecedence returns the binding power of the operator at the current
// token, or 0 if it is not a binary operator.
func (p *parser) binaryPrecedence() (ast.Operator, int) {
	if p.atKeyword("in") {
		return ast.OpIn, 1
	}
	if p.at(lexer.TokenOperator) {
		switch op := ast.Operator(p.cur().Text); op {
		case ast.OpEqual, ast.OpNotEqual, ast.OpLess, ast.OpLessEqual, ast.OpGreater, ast.OpGreaterEqual:
			return op, 1
		case ast.OpAdd, ast.OpSub:
			return op, 2
		case ast.OpMul, ast.OpDiv, ast.OpRem:
			return op, 3
		}
	}
	return "", 0
}

func (p *parser) parseExpr() (*ast.Term, error) {
	return p.parseBinary(1)
}

func (p *parser) parseBinary(minPrec int) (*ast.Term, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op, prec := p.binaryPrecedence()
		if prec < minPrec {
			return lhs, nil
		}
		loc := p.cur().Location
		p.advance()

		rhs, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		lhs = &ast.Term{
			Kind:     ast.BinaryTerm,
			Op:       op,
			LHS:      lhs,
			RHS:      rhs,
			Location: loc,
		}
	}
}

func (p *parser) parseUnary() (*ast.Term, error) {
	if p.atOperator("-") {
		loc := p.advance().Location
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold negation into number literals directly.
		if operand.Kind == ast.NumberTerm {
			operand.Number = operand.Number.Neg()
			return operand, nil
		}
		return &ast.Term{Kind: ast.UnaryTerm, Operand: operand, Location: loc}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*ast.Term, error) {
	tok := p.cur()
	loc := tok.Location

	switch tok.Type {
	case lexer.TokenNumber:
		p.advance()
		num, err := document.ParseNumber(tok.Text)
		if err != nil {
			return nil, &eplerrors.Error{
				Type:     eplerrors.ErrorTypeSyntax,
				Message:  err.Error(),
				Location: loc,
			}
		}
		return &ast.Term{Kind: ast.NumberTerm, Number: num, Location: loc}, nil

	case lexer.TokenString:
		p.advance()
		return &ast.Term{Kind: ast.StringTerm, Str: tok.Text, Location: loc}, nil

	case lexer.TokenKeyword:
		switch tok.Text {
		case "true", "false":
			p.advance()
			return &ast.Term{Kind: ast.BoolTerm, Bool: tok.Text == "true", Location: loc}, nil
		case "null":
			p.advance()
			return &ast.Term{Kind: ast.NullTerm, Location: loc}, nil
		case "contains":
			// "contains" doubles as a builtin function name.
			if p.tokens[p.pos+1].Type == lexer.TokenLParen {
				p.advance()
				return p.parseCall("contains", loc)
			}
		}
		return nil, p.errorf("unexpected keyword %q in expression", tok.Text)

	case lexer.TokenIdent:
		p.advance()
		if p.at(lexer.TokenLParen) {
			return p.parseCall(tok.Text, loc)
		}
		return p.parseRefSuffix(tok.Text, loc)

	case lexer.TokenLParen:
		p.advance()
		p.skipNewlines()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipNewlines()
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return inner, nil

	case lexer.TokenLBracket:
		return p.parseArrayOrComprehension(loc)

	case lexer.TokenLBrace:
		return p.parseBraced(loc)

	default:
		return nil, p.errorf("unexpected %s in expression", p.describeCur())
	}
}

// parseRefSuffix parses the .field / [expr] chain following an identifier.
// A bare identifier yields a VarTerm.
func (p *parser) parseRefSuffix(head string, loc ast.Location) (*ast.Term, error) {
	var args []*ast.Term
	for {
		switch {
		case p.at(lexer.TokenDot):
			p.advance()
			tok, err := p.expect(lexer.TokenIdent)
			if err != nil {
				return nil, err
			}
			args = append(args, &ast.Term{Kind: ast.StringTerm, Str: tok.Text, Location: tok.Location})

		case p.at(lexer.TokenLBracket):
			p.advance()
			p.skipNewlines()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			p.skipNewlines()
			if _, err := p.expect(lexer.TokenRBracket); err != nil {
				return nil, err
			}
			args = append(args, idx)

		default:
			if len(args) == 0 {
				return &ast.Term{Kind: ast.VarTerm, Var: head, Location: loc}, nil
			}
			return &ast.Term{Kind: ast.RefTerm, RefHead: head, RefArgs: args, Location: loc}, nil
		}
	}
}

func (p *parser) parseCall(name string, loc ast.Location) (*ast.Term, error) {
	p.advance() // (
	p.skipNewlines()

	var args []*ast.Term
	for !p.at(lexer.TokenRParen) {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipNewlines()
		if p.at(lexer.TokenComma) {
			p.advance()
			p.skipNewlines()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return &ast.Term{Kind: ast.CallTerm, Func: name, Args: args, Location: loc}, nil
}

// parseArrayOrComprehension parses "[a, b, c]" or "[head | body]".
func (p *parser) parseArrayOrComprehension(loc ast.Location) (*ast.Term, error) {
	p.advance() // [
	p.skipNewlines()

	if p.at(lexer.TokenRBracket) {
		p.advance()
		return &ast.Term{Kind: ast.ArrayTerm, Location: loc}, nil
	}

	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()

	if p.at(lexer.TokenPipe) {
		p.advance()
		body, err := p.parseBody(lexer.TokenRBracket)
		if err != nil {
			return nil, err
		}
		p.advance() // ]
		return &ast.Term{Kind: ast.ArrayComprehensionTerm, Head: first, Body: body, Location: loc}, nil
	}

	elems := []*ast.Term{first}
	for p.at(lexer.TokenComma) {
		p.advance()
		p.skipNewlines()
		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		p.skipNewlines()
	}
	if _, err := p.expect(lexer.TokenRBracket); err != nil {
		return nil, err
	}
	return &ast.Term{Kind: ast.ArrayTerm, Elems: elems, Location: loc}, nil
}

// parseBraced parses object literals, set literals, and their comprehension
// forms, all of which open with '{'.
func (p *parser) parseBraced(loc ast.Location) (*ast.Term, error) {
	p.advance() // {
	p.skipNewlines()

	if p.at(lexer.TokenRBrace) {
		p.advance()
		return &ast.Term{Kind: ast.ObjectTerm, Location: loc}, nil
	}

	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()

	if p.at(lexer.TokenColon) {
		p.advance()
		p.skipNewlines()
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipNewlines()

		if p.at(lexer.TokenPipe) {
			p.advance()
			body, err := p.parseBody(lexer.TokenRBrace)
			if err != nil {
				return nil, err
			}
			p.advance() // }
			return &ast.Term{
				Kind:     ast.ObjectComprehensionTerm,
				Key:      first,
				Value:    value,
				Body:     body,
				Location: loc,
			}, nil
		}

		entries := []ast.ObjectEntry{{Key: first, Value: value}}
		for p.at(lexer.TokenComma) {
			p.advance()
			p.skipNewlines()
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			p.skipNewlines()
			if _, err := p.expect(lexer.TokenColon); err != nil {
				return nil, err
			}
			p.skipNewlines()
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			entries = append(entries, ast.ObjectEntry{Key: key, Value: val})
			p.skipNewlines()
		}
		if _, err := p.expect(lexer.TokenRBrace); err != nil {
			return nil, err
		}
		return &ast.Term{Kind: ast.ObjectTerm, Entries: entries, Location: loc}, nil
	}

	if p.at(lexer.TokenPipe) {
		p.advance()
		body, err := p.parseBody(lexer.TokenRBrace)
		if err != nil {
			return nil, err
		}
		p.advance() // }
		return &ast.Term{Kind: ast.SetComprehensionTerm, Head: first, Body: body, Location: loc}, nil
	}

	elems := []*ast.Term{first}
	for p.at(lexer.TokenComma) {
		p.advance()
		p.skipNewlines()
		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		p.skipNewlines()
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	return &ast.Term{Kind: ast.SetTerm, Elems: elems, Location: loc}, nil
}
