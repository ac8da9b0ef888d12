// Package parser implements the recursive-descent, precedence-climbing
// parser described by spec §4.2: two entry points (parse/parseExpression),
// an operator table from lowest to highest precedence, the l-value
// rewrite pass, parameterless-closure and map-literal disambiguation, and
// error-accumulating recovery.
package parser

import (
	"fmt"

	"github.com/cwbudde/go-jactl/internal/ast"
	cerrors "github.com/cwbudde/go-jactl/internal/errors"
	"github.com/cwbudde/go-jactl/internal/lexer"
	"github.com/cwbudde/go-jactl/internal/types"
)

// Parser consumes a lexer.Lexer's token stream and produces an untyped
// AST. It accumulates CompileErrors rather than aborting on the first
// (spec §4.2).
type Parser struct {
	lex *lexer.Lexer

	cur  lexer.Token
	prev lexer.Token

	diags *cerrors.Diagnostics

	lookaheadDepth int
	classes        []*ast.ClassDecl
}

// New constructs a Parser over an already-built Lexer.
func New(lex *lexer.Lexer) *Parser {
	p := &Parser{lex: lex, diags: &cerrors.Diagnostics{}}
	p.advance()
	return p
}

// Diagnostics returns the errors accumulated so far.
func (p *Parser) Diagnostics() *cerrors.Diagnostics { return p.diags }

func (p *Parser) advance() {
	p.prev = p.cur
	for {
		p.cur = p.lex.Next()
		if p.cur.Kind == lexer.EOL {
			continue // EOL is only meaningful as a statement terminator
		}
		break
	}
}

func (p *Parser) check(kind lexer.TokenType) bool { return p.cur.Kind == kind }

func (p *Parser) match(kind lexer.TokenType) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(kind lexer.TokenType, what string) lexer.Token {
	if !p.check(kind) {
		p.errorHere("expected %s, found %q", what, p.cur.String())
		return p.cur
	}
	tok := p.cur
	p.advance()
	return tok
}

func (p *Parser) errorHere(format string, args ...any) {
	pos := p.cur.Pos
	if p.cur.Kind == lexer.EOF {
		p.diags.Add(cerrors.NewEOF(pos, fmt.Sprintf(format, args...)).WithKind(cerrors.Syntactic))
		return
	}
	p.diags.Add(cerrors.New(cerrors.Syntactic, pos, fmt.Sprintf(format, args...)))
}

// snapshot is the lookahead/backtracking primitive: the current token
// plus accumulated error count, so a failed trial parse can roll both
// back; restore also rewinds the lexer to that token (spec §4.2
// "Lookahead").
type snapshot struct {
	cur      lexer.Token
	prev     lexer.Token
	errCount int
}

func (p *Parser) save() snapshot {
	p.lookaheadDepth++
	return snapshot{cur: p.cur, prev: p.prev, errCount: len(p.diags.Errors)}
}

func (p *Parser) restore(s snapshot) {
	p.lookaheadDepth--
	p.cur = s.cur
	p.prev = s.prev
	p.lex.Rewind(&s.cur)
	p.diags.Errors = p.diags.Errors[:s.errCount]
}

func (p *Parser) inLookahead() bool { return p.lookaheadDepth > 0 }

// ---------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------

// Parse is the `parse() -> ClassDecl` entry point: the outer script is
// modelled as a class with a synthetic `main` function whose single
// parameter is the globals map (spec §4.2).
func (p *Parser) Parse() *ast.ClassDecl {
	pos := p.cur.Pos
	body := ast.NewBlock(pos)
	var inner []*ast.ClassDecl
	for !p.check(lexer.EOF) {
		if p.check(lexer.CLASS) {
			inner = append(inner, p.classDeclaration())
			continue
		}
		stmt := p.declarationRecovering()
		if stmt != nil {
			body.Stmts = append(body.Stmts, stmt)
		}
	}
	p.synthesizeImplicitReturns(body)

	main := &ast.FunDecl{
		Name: "main",
		Params: []*ast.VarDecl{{
			Name:         "globals",
			DeclaredType: types.Of(types.MAP),
			IsParam:      true,
		}},
		ReturnType: types.Of(types.ANY),
		Body:       body,
	}
	cls := &ast.ClassDecl{
		Name:    "Script",
		Methods: []*ast.FunDecl{main},
		Inner:   inner,
	}
	p.classes = append(p.classes, cls)
	return cls
}

// Classes returns every class declaration the parser has produced so far,
// in the order each declaration finished parsing: a nested class comes
// before the class enclosing it, and the outer script class comes last.
func (p *Parser) Classes() []*ast.ClassDecl { return p.classes }

// ParseExpression is the `parseExpression() -> Expr` entry point used by
// eval-style embedders, requiring a trailing EOF (spec §4.2).
func (p *Parser) ParseExpression() ast.Expression {
	expr := p.expression(0)
	p.expect(lexer.EOF, "end of input")
	return expr
}

// declarationRecovering parses one declaration/statement, recovering to
// the next statement boundary on error (spec §4.2: "skips tokens up to
// the next statement terminator").
func (p *Parser) declarationRecovering() ast.Statement {
	before := len(p.diags.Errors)
	stmt := p.declaration()
	if len(p.diags.Errors) > before {
		p.recover()
	}
	return stmt
}

func (p *Parser) recover() {
	for !p.check(lexer.EOF) {
		if p.cur.Kind == lexer.SEMICOLON || p.cur.Kind == lexer.RBRACE {
			p.advance()
			return
		}
		p.advance()
	}
}

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

func (p *Parser) declaration() ast.Statement {
	if p.looksLikeFunDecl() {
		return p.funDeclStatement()
	}
	if p.check(lexer.VAR) || p.check(lexer.DEF) || p.isTypeKeyword(p.cur.Kind) {
		return p.varDeclStatement()
	}
	return p.statement()
}

// looksLikeFunDecl implements the "3-token lookahead: type, identifier,
// ( " rule (spec §4.2).
func (p *Parser) looksLikeFunDecl() bool {
	if !p.isTypeKeyword(p.cur.Kind) && p.cur.Kind != lexer.DEF {
		return false
	}
	s := p.save()
	defer p.restore(s)
	p.advance()
	if p.cur.Kind != lexer.IDENT {
		return false
	}
	p.advance()
	return p.cur.Kind == lexer.LPAREN
}

func (p *Parser) isTypeKeyword(k lexer.TokenType) bool {
	switch k {
	case lexer.TYPE_BOOLEAN, lexer.TYPE_INT, lexer.TYPE_LONG, lexer.TYPE_DOUBLE,
		lexer.TYPE_DECIMAL, lexer.TYPE_STRING, lexer.TYPE_MAP, lexer.TYPE_LIST:
		return true
	default:
		return false
	}
}

func (p *Parser) declaredType() types.Type {
	switch p.cur.Kind {
	case lexer.TYPE_BOOLEAN:
		p.advance()
		return types.Of(types.BOOLEAN)
	case lexer.TYPE_INT:
		p.advance()
		return types.Of(types.INT)
	case lexer.TYPE_LONG:
		p.advance()
		return types.Of(types.LONG)
	case lexer.TYPE_DOUBLE:
		p.advance()
		return types.Of(types.DOUBLE)
	case lexer.TYPE_DECIMAL:
		p.advance()
		return types.Of(types.DECIMAL)
	case lexer.TYPE_STRING:
		p.advance()
		return types.Of(types.STRING)
	case lexer.TYPE_MAP:
		p.advance()
		return types.Of(types.MAP)
	case lexer.TYPE_LIST:
		p.advance()
		return types.Of(types.LIST)
	default: // def, or unrecognised => ANY
		p.advance()
		return types.Of(types.ANY)
	}
}

func (p *Parser) funDeclStatement() ast.Statement {
	pos := p.cur.Pos
	retType := p.declaredType()
	name := p.expect(lexer.IDENT, "function name").Chars
	params := p.paramList()
	body := p.blockStatement()
	p.synthesizeImplicitReturns(body)
	fn := &ast.FunDecl{
		Meta:       ast.NewMeta(pos),
		Name:       name,
		Params:     params,
		ReturnType: retType,
		Body:       body,
	}
	return &ast.FunDeclStmt{Fun: fn}
}

func (p *Parser) paramList() []*ast.VarDecl {
	p.expect(lexer.LPAREN, "(")
	var params []*ast.VarDecl
	for !p.check(lexer.RPAREN) && !p.check(lexer.EOF) {
		typ := types.Of(types.ANY)
		if p.isTypeKeyword(p.cur.Kind) || p.cur.Kind == lexer.DEF {
			typ = p.declaredType()
		}
		name := p.expect(lexer.IDENT, "parameter name").Chars
		v := &ast.VarDecl{Name: name, DeclaredType: typ, IsParam: true, IsExplicitParam: true}
		if p.match(lexer.ASSIGN) {
			v.Initializer = p.expression(bindingPowerAssign)
		}
		params = append(params, v)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RPAREN, ")")
	return params
}

func (p *Parser) varDeclStatement() ast.Statement {
	pos := p.cur.Pos
	isExplicitVar := p.check(lexer.VAR) || p.check(lexer.DEF)
	typ := types.Of(types.ANY)
	if !isExplicitVar {
		typ = p.declaredType()
	} else {
		p.advance()
	}
	name := p.expect(lexer.IDENT, "variable name").Chars
	var init ast.Expression
	if p.match(lexer.ASSIGN) {
		init = p.expression(0)
	}
	p.consumeStatementEnd()
	return &ast.VarDecl{Meta: ast.NewMeta(pos), Name: name, DeclaredType: typ, Initializer: init}
}

func (p *Parser) consumeStatementEnd() {
	if p.check(lexer.SEMICOLON) || p.check(lexer.EOL) {
		p.advance()
	}
}

func (p *Parser) statement() ast.Statement {
	var stmt ast.Statement
	switch p.cur.Kind {
	case lexer.LBRACE:
		stmt = p.braceStatement()
	case lexer.IF:
		stmt = p.ifStatement()
	case lexer.WHILE:
		stmt = p.whileStatement()
	case lexer.FOR:
		stmt = p.forStatement()
	case lexer.BREAK:
		pos := p.cur.Pos
		p.advance()
		p.consumeStatementEnd()
		stmt = &ast.Break{Meta: ast.NewMeta(pos)}
	case lexer.CONTINUE:
		pos := p.cur.Pos
		p.advance()
		p.consumeStatementEnd()
		stmt = &ast.Continue{Meta: ast.NewMeta(pos)}
	case lexer.RETURN:
		stmt = p.returnStatement()
	case lexer.THROW:
		stmt = p.throwStatement()
	case lexer.IMPORT:
		stmt = p.importStatement()
	default:
		stmt = p.exprStatement()
	}
	return p.applyTrailingModifier(stmt)
}

// applyTrailingModifier implements "any statement may be followed by a
// trailing `if <cond>` or `unless <cond>`" (spec §4.2).
func (p *Parser) applyTrailingModifier(stmt ast.Statement) ast.Statement {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case lexer.IF:
		p.advance()
		cond := p.expression(0)
		p.consumeStatementEnd()
		return &ast.If{Meta: ast.NewMeta(pos), Cond: cond, Then: stmt}
	case lexer.UNLESS:
		p.advance()
		cond := p.expression(0)
		p.consumeStatementEnd()
		return &ast.If{Meta: ast.NewMeta(pos), Cond: &ast.Unary{Meta: ast.NewMeta(pos), Operator: "!", Operand: cond}, Then: stmt}
	default:
		return stmt
	}
}

// braceStatement implements the "bare `{ ... }` at the start of a
// statement" rules: parameterless-closure demotion and map-literal
// disambiguation (spec §4.2).
func (p *Parser) braceStatement() ast.Statement {
	if p.looksLikeMapLiteral() {
		expr := p.mapLiteral(lexer.LBRACE, lexer.RBRACE)
		p.consumeStatementEnd()
		return &ast.ExprStmt{Expr: expr}
	}
	block := p.blockAsClosureOrPlainBlock()
	return block
}

// looksLikeMapLiteral tries the two lookaheads from spec §4.2: `{` `:` and
// `{` mapKey `:`.
func (p *Parser) looksLikeMapLiteral() bool {
	if p.cur.Kind != lexer.LBRACE {
		return false
	}
	s := p.save()
	defer p.restore(s)
	p.advance()
	if p.cur.Kind == lexer.COLON {
		return true
	}
	if p.cur.Kind == lexer.IDENT || p.cur.Kind.IsLiteral() {
		p.advance()
		return p.cur.Kind == lexer.COLON
	}
	return false
}

// blockAsClosureOrPlainBlock parses `{ ... }` as a closure (with the
// implicit `it` parameter), then demotes it to a plain Block if it turns
// out to define no explicit parameters and is not immediately invoked
// (spec §4.2 "Parameterless-closure disambiguation").
func (p *Parser) blockAsClosureOrPlainBlock() ast.Statement {
	fn := p.closureLiteral()
	if fn.NoParamsDefined && !p.check(lexer.LPAREN) {
		return fn.Body
	}
	return &ast.ExprStmt{Expr: &ast.Call{Callee: fn, Args: p.maybeCallArgs()}}
}

func (p *Parser) maybeCallArgs() []ast.Expression {
	if p.match(lexer.LPAREN) {
		return p.argumentList()
	}
	return nil
}

func (p *Parser) ifStatement() ast.Statement {
	pos := p.cur.Pos
	p.advance()
	needParen := p.match(lexer.LPAREN)
	cond := p.expression(0)
	if needParen {
		p.expect(lexer.RPAREN, ")")
	}
	then := p.statement()
	var els ast.Statement
	if p.match(lexer.ELSE) {
		els = p.statement()
	}
	return &ast.If{Meta: ast.NewMeta(pos), Cond: cond, Then: then, Else: els}
}

func (p *Parser) whileStatement() ast.Statement {
	pos := p.cur.Pos
	p.advance()
	needParen := p.match(lexer.LPAREN)
	cond := p.expression(0)
	if needParen {
		p.expect(lexer.RPAREN, ")")
	}
	body := p.statement()
	return &ast.While{Meta: ast.NewMeta(pos), Cond: cond, Body: body}
}

// forStatement desugars `for (init; cond; update) body` into a block
// containing the initialiser followed by a while whose body has the
// update appended (spec §4.2).
func (p *Parser) forStatement() ast.Statement {
	pos := p.cur.Pos
	p.advance()
	p.expect(lexer.LPAREN, "(")
	outer := ast.NewBlock(pos)
	if !p.check(lexer.SEMICOLON) {
		init := p.declaration()
		outer.Stmts = append(outer.Stmts, init)
	} else {
		p.advance()
	}
	var cond ast.Expression = ast.NewLiteral(pos, true)
	if !p.check(lexer.SEMICOLON) {
		cond = p.expression(0)
	}
	p.expect(lexer.SEMICOLON, ";")
	var update ast.Expression
	if !p.check(lexer.RPAREN) {
		update = p.expression(0)
	}
	p.expect(lexer.RPAREN, ")")
	body := p.statement()
	whileBody := ast.NewBlock(pos)
	whileBody.Stmts = append(whileBody.Stmts, body)
	if update != nil {
		whileBody.Stmts = append(whileBody.Stmts, &ast.ExprStmt{Expr: update})
	}
	outer.Stmts = append(outer.Stmts, &ast.While{Meta: ast.NewMeta(pos), Cond: cond, Body: whileBody})
	return outer
}

func (p *Parser) returnStatement() ast.Statement {
	pos := p.cur.Pos
	p.advance()
	var val ast.Expression
	if !p.check(lexer.SEMICOLON) && !p.check(lexer.EOL) && !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		val = p.expression(0)
	}
	p.consumeStatementEnd()
	return &ast.Return{Meta: ast.NewMeta(pos), Value: val}
}

func (p *Parser) throwStatement() ast.Statement {
	pos := p.cur.Pos
	p.advance()
	val := p.expression(0)
	p.consumeStatementEnd()
	return &ast.ThrowError{Meta: ast.NewMeta(pos), Error: val}
}

func (p *Parser) importStatement() ast.Statement {
	pos := p.cur.Pos
	p.advance()
	var segs []string
	segs = append(segs, p.expect(lexer.IDENT, "package segment").Chars)
	for p.match(lexer.DOT) {
		segs = append(segs, p.expect(lexer.IDENT, "package segment").Chars)
	}
	alias := ""
	if p.match(lexer.AS) {
		alias = p.expect(lexer.IDENT, "import alias").Chars
	}
	p.consumeStatementEnd()
	return &ast.Import{Meta: ast.NewMeta(pos), Path: segs, Alias: alias}
}

func (p *Parser) blockStatement() *ast.Block {
	pos := p.cur.Pos
	p.expect(lexer.LBRACE, "{")
	block := ast.NewBlock(pos)
	for !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		stmt := p.declarationRecovering()
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	p.expect(lexer.RBRACE, "}")
	return block
}

func (p *Parser) exprStatement() ast.Statement {
	pos := p.cur.Pos
	expr := p.expression(0)
	p.consumeStatementEnd()
	return &ast.ExprStmt{Meta: ast.NewMeta(pos), Expr: expr}
}

// synthesizeImplicitReturns performs the parser-level half of implicit
// return synthesis (spec §4.2); the resolver repeats and extends this for
// synthesized wrappers (spec §4.3).
func (p *Parser) synthesizeImplicitReturns(b *ast.Block) {
	if len(b.Stmts) == 0 {
		return
	}
	last := b.Stmts[len(b.Stmts)-1]
	switch s := last.(type) {
	case *ast.Return, *ast.ThrowError:
		return
	case *ast.Block:
		p.synthesizeImplicitReturns(s)
	case *ast.If:
		if then, ok := s.Then.(*ast.Block); ok {
			p.synthesizeImplicitReturns(then)
		}
		if s.Else != nil {
			if els, ok := s.Else.(*ast.Block); ok {
				p.synthesizeImplicitReturns(els)
			}
		}
	case *ast.ExprStmt:
		s.Expr.SetType(s.Expr.Type())
		b.Stmts[len(b.Stmts)-1] = &ast.Return{Meta: ast.NewMeta(s.Pos()), Value: s.Expr}
	}
}
