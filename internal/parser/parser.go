// Package parser implements lewi's recursive-descent parser: it turns a
// lexer.Lexer token stream into an *ast.Program.
//
// The parser keeps a one-token lookahead (cur/peek), matching the
// teacher's two-token window: cur is the token being examined, peek is
// consulted to decide which production to take without consuming it.
//
// Binary operators are left-associative; each precedence level is its
// own ladder rung (parseEquality calls parseRelational calls
// parseAdditive calls parseMultiplicative), and each rung's loop
// consults token.Precedence to decide which operator tokens belong to
// it rather than hardcoding a token-kind list. Adding an operator at an
// existing level is a one-line change to token.Precedence; adding a new
// level still means a new rung function.
package parser

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/kristofer/lewi/internal/ast"
	"github.com/kristofer/lewi/internal/lexer"
	"github.com/kristofer/lewi/internal/token"
)

// ParseError is a fatal syntax error: an unexpected token, an
// unexpected expression in some context, an assignment to a non-lvalue,
// or a malformed numeric literal.
type ParseError struct {
	Message string
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (line %d, column %d)", e.Message, e.Line, e.Column)
}

// Stage identifies this error as belonging to the parse stage.
func (e *ParseError) Stage() string { return "PARSE" }

// parseErr builds a ParseError positioned at tok, the offending token.
func parseErr(tok token.Token, format string, args ...interface{}) error {
	return errors.WithStack(&ParseError{Message: fmt.Sprintf(format, args...), Line: tok.Line(), Column: tok.Column()})
}

// Parser produces an AST from a source string via a recursive-descent
// walk over lexer.Lexer's token stream.
type Parser struct {
	l   *lexer.Lexer
	cur token.Token
	pk  token.Token
	err error // first error encountered; parsing aborts at the first error (spec.md §4.3)
}

// New creates a Parser over source.
func New(source string) *Parser {
	p := &Parser{l: lexer.New(source)}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	if p.err != nil {
		return
	}
	p.cur = p.pk
	tok, err := p.l.Advance()
	if err != nil {
		p.err = err
		return
	}
	p.pk = tok
}

func (p *Parser) at(k token.Kind) bool  { return p.err == nil && p.cur.Kind == k }
func (p *Parser) peekAt(k token.Kind) bool { return p.err == nil && p.pk.Kind == k }

// atLevel reports whether the current token is a binary operator at
// precedence level, per token.Precedence.
func (p *Parser) atLevel(level int) bool {
	return p.err == nil && token.Precedence(p.cur.Kind) == level
}

func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.err != nil {
		return token.Token{}, false
	}
	if p.cur.Kind != k {
		p.err = parseErr(p.cur, "unexpected token: expected %s, got %s (%q)", k, p.cur.Kind, p.cur.Literal())
		return token.Token{}, false
	}
	tok := p.cur
	p.advance()
	return tok, true
}

// Parse parses the whole token stream into a Program. It returns the
// first error encountered, if any; the parser never attempts recovery.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.err == nil && p.cur.Kind != token.EOF {
		stmt := p.parseStatement()
		if p.err != nil {
			return nil, p.err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, p.err
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Kind {
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.For:
		return p.parseFor()
	case token.Import:
		return p.parseImport()
	case token.Class:
		return p.parseClass()
	case token.Break:
		line := p.cur.Line()
		p.advance()
		return &ast.Break{LineNo: line}
	case token.Continue:
		line := p.cur.Line()
		p.advance()
		return &ast.Continue{LineNo: line}
	case token.Return:
		return p.parseReturn()
	case token.Var:
		return p.parseVarDecl()
	default:
		return p.parseExprOrAssign()
	}
}

// parseBlock parses statements until it sees 'end', 'elif', or 'else'
// (the three tokens that can close or continue a block opened by ':').
// accepts is the escape set the caller seeds for this block
// (spec.md §3).
func (p *Parser) parseBlock(accepts ast.Escape) *ast.Block {
	line := p.cur.Line()
	var stmts []ast.Statement
	for p.err == nil && !p.atBlockTerminator() {
		stmts = append(stmts, p.parseStatement())
	}
	return ast.NewBlock(line, accepts, stmts)
}

func (p *Parser) atBlockTerminator() bool {
	switch p.cur.Kind {
	case token.End, token.Elif, token.Else, token.EOF:
		return true
	default:
		return false
	}
}

func (p *Parser) parseIf() ast.Statement {
	line := p.cur.Line()
	p.advance() // 'if'

	var arms []ast.IfArm

	cond := p.parseExpression()
	p.expect(token.Colon)
	body := p.parseBlock(0)
	arms = append(arms, ast.IfArm{Cond: cond, Body: body})

	for p.at(token.Elif) {
		p.advance()
		c := p.parseExpression()
		p.expect(token.Colon)
		b := p.parseBlock(0)
		arms = append(arms, ast.IfArm{Cond: c, Body: b})
	}

	if p.at(token.Else) {
		p.advance()
		p.expect(token.Colon)
		b := p.parseBlock(0)
		arms = append(arms, ast.IfArm{Cond: nil, Body: b})
	}

	p.expect(token.End)
	return &ast.If{LineNo: line, Arms: arms}
}

func (p *Parser) parseWhile() ast.Statement {
	line := p.cur.Line()
	p.advance() // 'while'
	cond := p.parseExpression()
	p.expect(token.Colon)
	body := p.parseBlock(ast.EscapeBreak | ast.EscapeContinue)
	p.expect(token.End)
	return &ast.While{LineNo: line, Cond: cond, Body: body}
}

func (p *Parser) parseFor() ast.Statement {
	line := p.cur.Line()
	p.advance() // 'for'
	name, ok := p.expect(token.Ident)
	if !ok {
		return nil
	}
	p.expect(token.In)
	iter := p.parseExpression()
	p.expect(token.Colon)
	body := p.parseBlock(ast.EscapeBreak | ast.EscapeContinue)
	p.expect(token.End)
	return &ast.For{LineNo: line, Var: name.Literal(), Iterable: iter, Body: body}
}

func (p *Parser) parseImport() ast.Statement {
	line := p.cur.Line()
	p.advance() // 'import'
	pathTok, ok := p.expect(token.String)
	if !ok {
		return nil
	}
	stmt := &ast.Import{LineNo: line, Path: pathTok.Literal()}
	if p.at(token.As) {
		p.advance()
		name, ok := p.expect(token.Ident)
		if !ok {
			return nil
		}
		stmt.As = name.Literal()
	}
	return stmt
}

func (p *Parser) parseClass() ast.Statement {
	line := p.cur.Line()
	p.advance() // 'class'
	name, ok := p.expect(token.Ident)
	if !ok {
		return nil
	}
	p.expect(token.Colon)

	var members []*ast.ClassMember
	for p.err == nil && p.cur.Kind != token.End && p.cur.Kind != token.EOF {
		members = append(members, p.parseClassMember())
	}
	p.expect(token.End)

	return &ast.ClassDecl{LineNo: line, Name: name.Literal(), Members: members}
}

func (p *Parser) parseClassMember() *ast.ClassMember {
	line := p.cur.Line()
	if p.at(token.Fn) {
		fn := p.parseFnDecl()
		decl := fn.(*ast.FnDecl)
		return &ast.ClassMember{LineNo: line, Name: decl.Name, Value: decl}
	}
	name, ok := p.expect(token.Ident)
	if !ok {
		return nil
	}
	p.expect(token.Assign)
	value := p.parseExpression()
	return &ast.ClassMember{LineNo: line, Name: name.Literal(), Value: value}
}

func (p *Parser) parseReturn() ast.Statement {
	line := p.cur.Line()
	p.advance() // 'return'
	if p.atStatementEnd() {
		return &ast.Return{LineNo: line}
	}
	val := p.parseExpression()
	return &ast.Return{LineNo: line, Value: val}
}

// atStatementEnd reports whether a bare "return" has nothing following
// it on the logical statement (the start of a new statement keyword, or
// a block terminator).
func (p *Parser) atStatementEnd() bool {
	switch p.cur.Kind {
	case token.End, token.Elif, token.Else, token.EOF,
		token.If, token.While, token.For, token.Break, token.Continue,
		token.Return, token.Var, token.Import, token.Class:
		return true
	default:
		return false
	}
}

func (p *Parser) parseVarDecl() ast.Statement {
	line := p.cur.Line()
	p.advance() // 'var'
	name, ok := p.expect(token.Ident)
	if !ok {
		return nil
	}
	p.expect(token.Assign)
	value := p.parseExpression()
	return &ast.VarDecl{LineNo: line, Name: name.Literal(), Value: value}
}

func (p *Parser) parseExprOrAssign() ast.Statement {
	line := p.cur.Line()
	expr := p.parseExpression()
	return &ast.ExprStmt{LineNo: line, Expr: expr}
}

// ---- Expressions ----

func (p *Parser) parseExpression() ast.Expression {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() ast.Expression {
	left := p.parseEquality()
	if p.at(token.Assign) {
		tok := p.cur
		if !ast.IsLvalue(left) {
			p.err = parseErr(tok, "assignment target must be an identifier, index, or member expression, got %T", left)
			return left
		}
		p.advance()
		value := p.parseAssignment()
		return &ast.Assign{LineNo: tok.Line(), Target: left, Value: value}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expression {
	left := p.parseRelational()
	for p.atLevel(token.PrecEquality) {
		op := p.cur
		p.advance()
		right := p.parseRelational()
		left = &ast.Binary{LineNo: op.Line(), Operator: op.Literal(), Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseRelational() ast.Expression {
	left := p.parseAdditive()
	for p.atLevel(token.PrecRelational) {
		op := p.cur
		p.advance()
		right := p.parseAdditive()
		left = &ast.Binary{LineNo: op.Line(), Operator: op.Literal(), Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for p.atLevel(token.PrecAdditive) {
		op := p.cur
		p.advance()
		right := p.parseMultiplicative()
		left = &ast.Binary{LineNo: op.Line(), Operator: op.Literal(), Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parseUnary()
	for p.atLevel(token.PrecMultiplicative) {
		op := p.cur
		p.advance()
		right := p.parseUnary()
		left = &ast.Binary{LineNo: op.Line(), Operator: op.Literal(), Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	if p.at(token.Plus) || p.at(token.Minus) || p.at(token.Bang) {
		op := p.cur
		p.advance()
		operand := p.parseUnary()
		return &ast.Unary{LineNo: op.Line(), Operator: op.Literal(), Operand: operand}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	for {
		switch p.cur.Kind {
		case token.LParen:
			line := p.cur.Line()
			p.advance()
			args := p.parseArgs(token.RParen)
			expr = &ast.Call{LineNo: line, Callee: expr, Args: args}
		case token.LBracket:
			line := p.cur.Line()
			p.advance()
			key := p.parseExpression()
			p.expect(token.RBracket)
			expr = &ast.Index{LineNo: line, Target: expr, Key: key}
		case token.Dot:
			line := p.cur.Line()
			p.advance()
			name, ok := p.expect(token.Ident)
			if !ok {
				return expr
			}
			expr = &ast.Member{LineNo: line, Target: expr, Name: name.Literal()}
		default:
			return expr
		}
		if p.err != nil {
			return expr
		}
	}
}

// parseArgs parses a comma-separated expression list up to (and
// consuming) closeKind.
func (p *Parser) parseArgs(closeKind token.Kind) []ast.Expression {
	var args []ast.Expression
	if p.at(closeKind) {
		p.advance()
		return args
	}
	for {
		args = append(args, p.parseExpression())
		if p.err != nil {
			return args
		}
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(closeKind)
	return args
}

func (p *Parser) parsePrimary() ast.Expression {
	switch p.cur.Kind {
	case token.Number:
		return p.parseNumber()
	case token.String:
		tok := p.cur
		p.advance()
		return &ast.String{LineNo: tok.Line(), Value: tok.Literal()}
	case token.Ident:
		tok := p.cur
		p.advance()
		return &ast.Identifier{LineNo: tok.Line(), Name: tok.Literal()}
	case token.Null:
		line := p.cur.Line()
		p.advance()
		return &ast.Null{LineNo: line}
	case token.True:
		line := p.cur.Line()
		p.advance()
		return &ast.Bool{LineNo: line, Value: true}
	case token.False:
		line := p.cur.Line()
		p.advance()
		return &ast.Bool{LineNo: line, Value: false}
	case token.LBracket:
		line := p.cur.Line()
		p.advance()
		elems := p.parseArgs(token.RBracket)
		return &ast.Array{LineNo: line, Elements: elems}
	case token.LParen:
		p.advance()
		expr := p.parseExpression()
		p.expect(token.RParen)
		return expr
	case token.Fn:
		return p.parseFnDecl()
	default:
		p.err = parseErr(p.cur, "unexpected expression: unexpected token %s (%q)", p.cur.Kind, p.cur.Literal())
		return nil
	}
}

func (p *Parser) parseNumber() ast.Expression {
	tok := p.cur
	p.advance()
	value, err := strconv.ParseFloat(tok.Literal(), 64)
	if err != nil {
		p.err = parseErr(tok, "number literal out of range: %q", tok.Literal())
		return nil
	}
	return &ast.Number{LineNo: tok.Line(), Value: value}
}

// parseFnDecl parses "fn" [IDENT] "(" params ")" ":" block "end". The
// name is optional — an unnamed fn is a lambda expression.
func (p *Parser) parseFnDecl() ast.Expression {
	line := p.cur.Line()
	p.advance() // 'fn'

	name := ""
	if p.at(token.Ident) {
		name = p.cur.Literal()
		p.advance()
	}

	p.expect(token.LParen)
	var params []string
	if !p.at(token.RParen) {
		for {
			tok, ok := p.expect(token.Ident)
			if !ok {
				break
			}
			params = append(params, tok.Literal())
			if p.at(token.Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	p.expect(token.RParen)
	p.expect(token.Colon)
	body := p.parseBlock(ast.EscapeReturn)
	p.expect(token.End)

	return &ast.FnDecl{LineNo: line, Name: name, Params: params, Body: body}
}
