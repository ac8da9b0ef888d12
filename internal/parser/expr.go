package parser

import (
	"strconv"

	"github.com/cwbudde/go-jactl/internal/ast"
	"github.com/cwbudde/go-jactl/internal/lexer"
	"github.com/cwbudde/go-jactl/internal/types"
	"github.com/shopspring/decimal"
)

// Precedence levels, low to high binding, exactly as spec §4.2 lists them.
// Each level falls through to the next by calling itself with level+1.
const (
	levelOr = iota
	levelAnd
	levelNot
	levelAssign
	levelTernary
	levelOrOr
	levelAndAnd
	levelEquality
	levelRelational
	levelAdditive
	levelMultiplicative
	levelUnary
	levelSuffix
	levelMax = levelSuffix
)

const bindingPowerAssign = levelAssign

var assignOps = map[lexer.TokenType]bool{
	lexer.ASSIGN: true, lexer.QMARK_ASSIGN: true,
	lexer.PLUS_ASSIGN: true, lexer.MINUS_ASSIGN: true, lexer.STAR_ASSIGN: true,
	lexer.SLASH_ASSIGN: true, lexer.PERCENT_ASSIGN: true,
	lexer.LSHIFT_ASSIGN: true, lexer.RSHIFT_ASSIGN: true, lexer.URSHIFT_ASSIGN: true,
	lexer.AMP_ASSIGN: true, lexer.PIPE_ASSIGN: true, lexer.CARET_ASSIGN: true,
}

var equalityOps = map[lexer.TokenType]bool{
	lexer.EQEQ: true, lexer.NEQ: true, lexer.REGEX_MATCH: true, lexer.REGEX_NOT_MATCH: true,
}

var relationalOps = map[lexer.TokenType]bool{
	lexer.LT: true, lexer.GT: true, lexer.LE: true, lexer.GE: true, lexer.SPACESHIP: true,
}

var additiveOps = map[lexer.TokenType]bool{lexer.PLUS: true, lexer.MINUS: true}

var multiplicativeOps = map[lexer.TokenType]bool{
	lexer.STAR: true, lexer.SLASH: true, lexer.PERCENT: true,
}

// expression implements precedence climbing over the levels above,
// dispatching each level's special cases inline (spec §4.2).
func (p *Parser) expression(level int) ast.Expression {
	switch level {
	case levelOr:
		return p.binaryDesugared(levelAnd, lexer.OR_OR, "||")
	case levelAnd:
		return p.binaryDesugared(levelNot, lexer.AND_AND, "&&")
	case levelNot:
		if p.check(lexer.NOT_OP) {
			pos := p.cur.Pos
			p.advance()
			operand := p.expression(levelNot)
			return &ast.Unary{Meta: ast.NewMeta(pos), Operator: "!", Operand: operand}
		}
		return p.expression(levelAssign)
	case levelAssign:
		return p.assignment()
	case levelTernary:
		return p.ternary()
	case levelOrOr:
		return p.leftAssocSet(levelAndAnd, map[lexer.TokenType]bool{lexer.OR_OR: true})
	case levelAndAnd:
		return p.leftAssocSet(levelEquality, map[lexer.TokenType]bool{lexer.AND_AND: true})
	case levelEquality:
		return p.leftAssocSet(levelRelational, equalityOps)
	case levelRelational:
		return p.relational()
	case levelAdditive:
		return p.leftAssocSet(levelMultiplicative, additiveOps)
	case levelMultiplicative:
		return p.leftAssocSet(levelUnary, multiplicativeOps)
	case levelUnary:
		return p.unary()
	case levelSuffix:
		return p.suffix()
	default:
		return p.expression(levelTernary)
	}
}

func (p *Parser) binaryDesugared(next int, tok lexer.TokenType, op string) ast.Expression {
	left := p.expression(next)
	for p.check(tok) {
		pos := p.cur.Pos
		p.advance()
		right := p.expression(next)
		left = &ast.Binary{Meta: ast.NewMeta(pos), Left: left, Operator: op, Right: right}
	}
	return left
}

func (p *Parser) leftAssocSet(next int, ops map[lexer.TokenType]bool) ast.Expression {
	left := p.expression(next)
	for ops[p.cur.Kind] {
		opTok := p.cur
		p.advance()
		right := p.expression(next)
		left = &ast.Binary{Meta: ast.NewMeta(opTok.Pos), Left: left, Operator: opTok.String(), Right: right}
	}
	return left
}

// relational handles <, >, <=, >=, <=>, instanceof, !instanceof (spec
// §4.2: "instanceof expects a type keyword as its right operand").
func (p *Parser) relational() ast.Expression {
	left := p.expression(levelAdditive)
	for {
		switch {
		case relationalOps[p.cur.Kind]:
			opTok := p.cur
			p.advance()
			right := p.expression(levelAdditive)
			left = &ast.Binary{Meta: ast.NewMeta(opTok.Pos), Left: left, Operator: opTok.String(), Right: right}
		case p.check(lexer.INSTANCEOF):
			pos := p.cur.Pos
			p.advance()
			name := p.typeNameLiteral()
			left = &ast.InstanceOf{Meta: ast.NewMeta(pos), Operand: left, TypeName: name}
		case p.check(lexer.NOT_OP) && p.peekIsInstanceof():
			pos := p.cur.Pos
			p.advance()
			p.advance() // instanceof
			name := p.typeNameLiteral()
			left = &ast.InstanceOf{Meta: ast.NewMeta(pos), Operand: left, TypeName: name, Negated: true}
		default:
			return left
		}
	}
}

func (p *Parser) peekIsInstanceof() bool {
	s := p.save()
	defer p.restore(s)
	p.advance()
	return p.cur.Kind == lexer.INSTANCEOF
}

func (p *Parser) typeNameLiteral() string {
	if p.cur.Kind >= lexer.TYPE_BOOLEAN {
		name := p.cur.String()
		p.advance()
		return name
	}
	name := p.expect(lexer.IDENT, "type name").Chars
	return name
}

// unary handles prefix !, -, +, ~, ++, --, and casts of the form
// `(Type) expr` vs a parenthesised sub-expression (spec §4.2: "unary
// prefix/cast").
func (p *Parser) unary() ast.Expression {
	switch p.cur.Kind {
	case lexer.MINUS, lexer.PLUS, lexer.TILDE, lexer.NOT_OP:
		opTok := p.cur
		p.advance()
		operand := p.expression(levelUnary)
		return &ast.Unary{Meta: ast.NewMeta(opTok.Pos), Operator: opTok.String(), Operand: operand}
	case lexer.INC, lexer.DEC:
		opTok := p.cur
		p.advance()
		operand := p.expression(levelUnary)
		return p.convertToLValue(operand, incDecOp(opTok.Kind), unitLiteral(opTok.Pos), false)
	}
	return p.castOrSuffix()
}

func incDecOp(k lexer.TokenType) lexer.TokenType {
	if k == lexer.INC {
		return lexer.PLUS_ASSIGN
	}
	return lexer.MINUS_ASSIGN
}

func unitLiteral(pos ast.Position) ast.Expression { return ast.NewLiteral(pos, int32(1)) }

// literalValue converts the lexer's raw token value into the typed Go
// value the resolver's constant folder and typeOfLiteral expect (spec
// §4.3). The lexer itself only recognises the lexical shape of a number
// (digits/base/suffix); turning that into an int32/int64/float64/Decimal
// is the parser's job.
func (p *Parser) literalValue(kind lexer.TokenType, raw any) any {
	chars, _ := raw.(string)
	switch kind {
	case lexer.INT:
		n, err := strconv.ParseInt(chars, 0, 32)
		if err != nil {
			p.errorHere("invalid integer literal %q", chars)
			return int32(0)
		}
		return int32(n)
	case lexer.LONG:
		n, err := strconv.ParseInt(chars, 0, 64)
		if err != nil {
			p.errorHere("invalid long literal %q", chars)
			return int64(0)
		}
		return n
	case lexer.DOUBLE:
		f, err := strconv.ParseFloat(chars, 64)
		if err != nil {
			p.errorHere("invalid double literal %q", chars)
			return float64(0)
		}
		return f
	case lexer.DECIMAL:
		d, err := decimal.NewFromString(chars)
		if err != nil {
			p.errorHere("invalid decimal literal %q", chars)
			return decimal.Zero
		}
		return d
	case lexer.STRING_CONST:
		return chars
	default:
		return raw
	}
}

// castOrSuffix tries `(Type) expr`; falls back to an ordinary parenthesised
// suffix expression otherwise.
func (p *Parser) castOrSuffix() ast.Expression {
	if p.check(lexer.LPAREN) && p.looksLikeCast() {
		pos := p.cur.Pos
		p.advance()
		target := p.declaredType()
		p.expect(lexer.RPAREN, ")")
		operand := p.expression(levelUnary)
		return &ast.Cast{Meta: ast.NewMeta(pos), Operand: operand, Target: target}
	}
	return p.suffix()
}

func (p *Parser) looksLikeCast() bool {
	s := p.save()
	defer p.restore(s)
	p.advance()
	if !p.isTypeKeyword(p.cur.Kind) {
		return false
	}
	p.advance()
	return p.cur.Kind == lexer.RPAREN
}

// suffix consumes field access and call suffixes: `.`, `?.`, `[`, `?[`,
// `(`, `{` (spec §4.2).
func (p *Parser) suffix() ast.Expression {
	expr := p.primary()
	for {
		switch p.cur.Kind {
		case lexer.DOT, lexer.QUESTION_DOT:
			pos := p.cur.Pos
			createIfMissing := p.cur.Kind == lexer.DOT
			p.advance()
			// "Identifiers appearing directly after . or ?. are demoted
			// to string literals so x.y and x."y" are equivalent" (spec §4.2).
			var field ast.Expression
			if p.cur.Kind == lexer.IDENT || p.cur.IsKeyword() {
				field = ast.NewLiteral(p.cur.Pos, p.cur.Chars)
				p.advance()
			} else {
				field = p.expression(levelSuffix)
			}
			if p.check(lexer.LPAREN) || p.check(lexer.LBRACE) {
				name, _ := field.(*ast.Literal)
				nameStr := ""
				if name != nil {
					nameStr, _ = name.Value.(string)
				}
				args := p.callSuffixArgs()
				expr = &ast.MethodCall{Meta: ast.NewMeta(pos), Receiver: expr, Name: nameStr, Args: args}
				continue
			}
			expr = &ast.Binary{Meta: ast.NewMeta(pos), Left: expr, Operator: ".", Right: field, CreateIfMissing: createIfMissing}
		case lexer.LBRACK, lexer.LBRACK_QUESTION:
			pos := p.cur.Pos
			p.advance()
			idx := p.expression(0)
			p.expect(lexer.RBRACK, "]")
			expr = &ast.Binary{Meta: ast.NewMeta(pos), Left: expr, Operator: "[", Right: idx}
		case lexer.LPAREN, lexer.LBRACE:
			pos := p.cur.Pos
			args := p.callSuffixArgs()
			expr = &ast.Call{Meta: ast.NewMeta(pos), Callee: expr, Args: args}
		case lexer.INC, lexer.DEC:
			opTok := p.cur
			p.advance()
			expr = p.convertToLValue(expr, incDecOp(opTok.Kind), unitLiteral(opTok.Pos), true)
		default:
			return expr
		}
	}
}

// callSuffixArgs parses an argument list starting at ( or a trailing
// brace-block closure run (spec §4.2 "Argument lists").
func (p *Parser) callSuffixArgs() []ast.Expression {
	var args []ast.Expression
	if p.match(lexer.LPAREN) {
		args = p.argumentList()
	}
	for p.check(lexer.LBRACE) {
		args = append(args, p.closureLiteral())
	}
	return args
}

func (p *Parser) argumentList() []ast.Expression {
	var args []ast.Expression
	for !p.check(lexer.RPAREN) && !p.check(lexer.EOF) {
		args = append(args, p.expression(0))
		if !p.match(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RPAREN, ")")
	return args
}

// ternary handles `? :` and the elvis operator `?:` (spec §4.2).
func (p *Parser) ternary() ast.Expression {
	cond := p.expression(levelOrOr)
	if p.check(lexer.QUESTION_QUESTION) {
		pos := p.cur.Pos
		p.advance()
		elseExpr := p.expression(levelTernary)
		return &ast.Ternary{Meta: ast.NewMeta(pos), Cond: cond, Then: cond, Else: elseExpr}
	}
	if p.match(lexer.QUESTION) {
		pos := p.cur.Pos
		then := p.expression(levelTernary)
		p.expect(lexer.COLON, ":")
		els := p.expression(levelTernary)
		return &ast.Ternary{Meta: ast.NewMeta(pos), Cond: cond, Then: then, Else: els}
	}
	return cond
}

// assignment handles `=`, compound assignment, and pre/post `++`/`--`
// already folded into unary, calling convertToLValue for the rewrite
// (spec §4.2 "L-value rewrite").
func (p *Parser) assignment() ast.Expression {
	left := p.expression(levelTernary)
	if !assignOps[p.cur.Kind] {
		return left
	}
	opTok := p.cur
	p.advance()
	right := p.expression(levelAssign) // right-associative
	return p.convertToLValue(left, opTok.Kind, right, false)
}

// convertToLValue implements spec §4.2's l-value rewrite: bare identifier
// targets become VarAssign/VarOpAssign; field-path targets become
// FieldAssign/FieldOpAssign with CreateIfMissing set along the chain; any
// other shape is a hard error.
func (p *Parser) convertToLValue(lhs ast.Expression, op lexer.TokenType, rhs ast.Expression, isPreIncOrDec bool) ast.Expression {
	pos := lhs.Pos()
	switch target := lhs.(type) {
	case *ast.Identifier:
		if op == lexer.ASSIGN || op == lexer.QMARK_ASSIGN {
			return &ast.VarAssign{Meta: ast.NewMeta(pos), Target: target, Value: rhs}
		}
		arithOp := compoundArithOp(op)
		noop := &ast.Noop{Meta: ast.NewMeta(pos)}
		bin := &ast.Binary{Meta: ast.NewMeta(pos), Left: noop, Operator: arithOp, Right: rhs, OriginalOperator: tokenSpelling(op)}
		return &ast.VarOpAssign{Meta: ast.NewMeta(pos), Target: target, Expr: bin, OriginalOperator: tokenSpelling(op)}
	case *ast.Binary:
		if target.Operator != "." && target.Operator != "[" {
			p.errorHere("invalid lvalue")
			return lhs
		}
		markCreateIfMissing(target)
		if op == lexer.ASSIGN || op == lexer.QMARK_ASSIGN {
			return &ast.FieldAssign{Meta: ast.NewMeta(pos), Target: target, Value: rhs}
		}
		arithOp := compoundArithOp(op)
		noop := &ast.Noop{Meta: ast.NewMeta(pos)}
		bin := &ast.Binary{Meta: ast.NewMeta(pos), Left: noop, Operator: arithOp, Right: rhs, OriginalOperator: tokenSpelling(op)}
		return &ast.FieldOpAssign{Meta: ast.NewMeta(pos), Target: target, Expr: bin, OriginalOperator: tokenSpelling(op), IsPreIncOrDec: isPreIncOrDec}
	default:
		p.errorHere("invalid lvalue")
		return lhs
	}
}

// markCreateIfMissing walks every intermediate field-access link in a
// target chain and sets CreateIfMissing (spec §4.2).
func markCreateIfMissing(b *ast.Binary) {
	b.CreateIfMissing = true
	if inner, ok := b.Left.(*ast.Binary); ok && (inner.Operator == "." || inner.Operator == "[") {
		markCreateIfMissing(inner)
	}
}

func compoundArithOp(op lexer.TokenType) string {
	switch op {
	case lexer.PLUS_ASSIGN:
		return "+"
	case lexer.MINUS_ASSIGN:
		return "-"
	case lexer.STAR_ASSIGN:
		return "*"
	case lexer.SLASH_ASSIGN:
		return "/"
	case lexer.PERCENT_ASSIGN:
		return "%"
	case lexer.LSHIFT_ASSIGN:
		return "<<"
	case lexer.RSHIFT_ASSIGN:
		return ">>"
	case lexer.URSHIFT_ASSIGN:
		return ">>>"
	case lexer.AMP_ASSIGN:
		return "&"
	case lexer.PIPE_ASSIGN:
		return "|"
	case lexer.CARET_ASSIGN:
		return "^"
	default:
		return "+"
	}
}

func tokenSpelling(k lexer.TokenType) string { return k.String() }

// primary parses literals, identifiers, grouped expressions, list/map
// literals, and closures.
func (p *Parser) primary() ast.Expression {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case lexer.INT, lexer.LONG, lexer.DOUBLE, lexer.DECIMAL, lexer.STRING_CONST:
		v := p.literalValue(p.cur.Kind, p.cur.Value)
		p.advance()
		return ast.NewLiteral(pos, v)
	case lexer.TRUE:
		p.advance()
		return ast.NewLiteral(pos, true)
	case lexer.FALSE:
		p.advance()
		return ast.NewLiteral(pos, false)
	case lexer.NULL:
		p.advance()
		return ast.NewLiteral(pos, nil)
	case lexer.IT_KW:
		p.advance()
		return ast.NewIdentifier(pos, "it")
	case lexer.IDENT:
		name := p.cur.Chars
		p.advance()
		return ast.NewIdentifier(pos, name)
	case lexer.EXPR_STRING_START:
		return p.exprString()
	case lexer.LPAREN:
		p.advance()
		inner := p.expression(0)
		p.expect(lexer.RPAREN, ")")
		return inner
	case lexer.LBRACK:
		return p.listOrMapBracketLiteral()
	case lexer.LBRACE:
		return p.closureLiteral()
	case lexer.SLASH:
		return p.regexAsCondition()
	case lexer.NEW:
		return p.newExpression()
	default:
		p.errorHere("unexpected token %q", p.cur.String())
		p.advance()
		return ast.NewLiteral(pos, nil)
	}
}

// exprString flattens an EXPR_STRING_START ... EXPR_STRING_END run into a
// single ExprString node of literal/expression parts (spec §4.1's nested
// interpolation surfaces here as ordinary recursive-descent parsing since
// ${ ... } re-enters expression() before } resumes string-content mode).
func (p *Parser) exprString() ast.Expression {
	pos := p.cur.Pos
	p.advance() // EXPR_STRING_START
	var parts []ast.ExprStringPart
	for {
		switch p.cur.Kind {
		case lexer.STRING_CONST:
			parts = append(parts, ast.ExprStringPart{Literal: p.cur.Chars})
			p.advance()
		case lexer.LBRACE:
			p.advance()
			e := p.expression(0)
			p.expect(lexer.RBRACE, "}")
			parts = append(parts, ast.ExprStringPart{Expr: e})
		case lexer.IDENT:
			parts = append(parts, ast.ExprStringPart{Expr: ast.NewIdentifier(p.cur.Pos, p.cur.Chars)})
			p.advance()
		case lexer.EXPR_STRING_END:
			p.advance()
			return &ast.ExprString{Meta: ast.NewMeta(pos), Parts: parts}
		case lexer.EOF:
			p.errorHere("unterminated interpolated string")
			return &ast.ExprString{Meta: ast.NewMeta(pos), Parts: parts}
		default:
			p.errorHere("unexpected token %q in interpolated string", p.cur.String())
			p.advance()
		}
	}
}

// listOrMapBracketLiteral implements the `[` version of map-literal
// disambiguation (spec §4.2: "Map literals also accept [ ... ] using the
// same rules").
func (p *Parser) listOrMapBracketLiteral() ast.Expression {
	pos := p.cur.Pos
	if p.looksLikeBracketMap() {
		return p.mapLiteral(lexer.LBRACK, lexer.RBRACK)
	}
	p.advance()
	var elems []ast.Expression
	for !p.check(lexer.RBRACK) && !p.check(lexer.EOF) {
		elems = append(elems, p.expression(0))
		if !p.match(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RBRACK, "]")
	return &ast.ListLiteral{Meta: ast.NewMeta(pos), Elements: elems}
}

func (p *Parser) looksLikeBracketMap() bool {
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

func (p *Parser) mapLiteral(open, close lexer.TokenType) ast.Expression {
	pos := p.cur.Pos
	p.expect(open, "map open")
	var entries []ast.MapEntry
	for !p.check(close) && !p.check(lexer.EOF) {
		var key ast.Expression
		if p.cur.Kind == lexer.IDENT {
			key = ast.NewLiteral(p.cur.Pos, p.cur.Chars)
			p.advance()
		} else {
			key = p.expression(levelTernary)
		}
		p.expect(lexer.COLON, ":")
		val := p.expression(0)
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		if !p.match(lexer.COMMA) {
			break
		}
	}
	p.expect(close, "map close")
	return &ast.MapLiteral{Meta: ast.NewMeta(pos), Entries: entries}
}

// closureLiteral parses a `{ ... }` as a closure with the single implicit
// `it` parameter and NoParamsDefined set. Explicit closure parameter lists
// (`{ x -> ... }`) are not recognised: the `->` is reported as an
// unexpected token.
func (p *Parser) closureLiteral() *ast.FunDecl {
	pos := p.cur.Pos
	p.expect(lexer.LBRACE, "{")
	fn := &ast.FunDecl{Meta: ast.NewMeta(pos), IsClosure: true, NoParamsDefined: true}
	fn.Params = []*ast.VarDecl{{Name: "it", DeclaredType: types.Of(types.ANY), IsParam: true}}
	block := ast.NewBlock(pos)
	for !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		stmt := p.declarationRecovering()
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	p.expect(lexer.RBRACE, "}")
	p.synthesizeImplicitReturns(block)
	fn.Body = block
	return fn
}

// regexAsCondition implements spec §4.2's regex-as-condition rule: a bare
// `/.../ ` literal parses into a RegexMatch against the implicit `it`.
func (p *Parser) regexAsCondition() ast.Expression {
	pos := p.cur.Pos
	// p.cur is the SLASH the lexer last returned; StartRegex must see it
	// before anything after it is lexed.
	p.lex.StartRegex(false)
	pattern, modifiers := p.readRegexBody()
	it := ast.NewIdentifier(pos, "it")
	return &ast.RegexMatch{Meta: ast.NewMeta(pos), Left: it, Pattern: pattern, Modifiers: modifiers, ImplicitItMatch: true}
}

func (p *Parser) readRegexBody() (*ast.ExprString, string) {
	pos := p.cur.Pos
	var parts []ast.ExprStringPart
	modifiers := ""
	for {
		tok := p.lex.Next()
		switch tok.Kind {
		case lexer.STRING_CONST:
			parts = append(parts, ast.ExprStringPart{Literal: tok.Chars})
		case lexer.IDENT:
			parts = append(parts, ast.ExprStringPart{Expr: ast.NewIdentifier(tok.Pos, tok.Chars)})
		case lexer.EXPR_STRING_END:
			modifiers = tok.Modifiers
			p.advance()
			return &ast.ExprString{Meta: ast.NewMeta(pos), Parts: parts}, modifiers
		case lexer.EOF:
			p.advance()
			return &ast.ExprString{Meta: ast.NewMeta(pos), Parts: parts}, modifiers
		}
	}
}

// newExpression parses `new ClassName(args)`.
func (p *Parser) newExpression() ast.Expression {
	pos := p.cur.Pos
	p.advance()
	name := p.expect(lexer.IDENT, "class name").Chars
	for p.match(lexer.DOT) {
		name += "." + p.expect(lexer.IDENT, "class name segment").Chars
	}
	var args []ast.Expression
	if p.match(lexer.LPAREN) {
		args = p.argumentList()
	}
	return &ast.InvokeNew{Meta: ast.NewMeta(pos), ClassName: name, Args: args}
}
