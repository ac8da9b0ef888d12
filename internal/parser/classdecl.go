package parser

import (
	"github.com/cwbudde/go-jactl/internal/ast"
	"github.com/cwbudde/go-jactl/internal/lexer"
)

// classDeclaration parses `class Name [extends Base] [implements I, ...] {
// member* }` (spec §4.2's "stack of class declarations, outer and
// nested"). extends/implements are soft keywords rather than lexer tokens:
// the lexer only needs to recognise `class` itself to find the
// declaration's start.
func (p *Parser) classDeclaration() *ast.ClassDecl {
	pos := p.cur.Pos
	p.advance() // consume `class`
	name := p.expect(lexer.IDENT, "class name").Chars
	cls := &ast.ClassDecl{Meta: ast.NewMeta(pos), Name: name}

	if p.isSoftKeyword("extends") {
		p.advance()
		cls.BaseName = p.expect(lexer.IDENT, "base class name").Chars
	}
	if p.isSoftKeyword("implements") {
		p.advance()
		cls.Interfaces = append(cls.Interfaces, p.expect(lexer.IDENT, "interface name").Chars)
		for p.match(lexer.COMMA) {
			cls.Interfaces = append(cls.Interfaces, p.expect(lexer.IDENT, "interface name").Chars)
		}
	}

	p.expect(lexer.LBRACE, "{")
	for !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		p.classMember(cls)
	}
	p.expect(lexer.RBRACE, "}")

	p.classes = append(p.classes, cls)
	return cls
}

func (p *Parser) isSoftKeyword(word string) bool {
	return p.cur.Kind == lexer.IDENT && p.cur.Chars == word
}

// classMember parses one field, method, or nested class declaration inside
// a class body, recovering to the next member boundary on error.
func (p *Parser) classMember(cls *ast.ClassDecl) {
	before := len(p.diags.Errors)
	switch {
	case p.check(lexer.CLASS):
		cls.Inner = append(cls.Inner, p.classDeclaration())
	case p.looksLikeFunDecl():
		fds := p.funDeclStatement().(*ast.FunDeclStmt)
		// `init` is the constructor convention (spec §4.3's isInitMethod
		// flag; spec §5's varargs-wrapper step 8 special-cases it).
		if fds.Fun.Name == "init" {
			fds.Fun.IsInitMethod = true
		}
		cls.Methods = append(cls.Methods, fds.Fun)
	case p.check(lexer.VAR) || p.check(lexer.DEF) || p.isTypeKeyword(p.cur.Kind):
		field := p.varDeclStatement().(*ast.VarDecl)
		field.IsField = true
		cls.Fields = append(cls.Fields, field)
	default:
		p.errorHere("expected a field, method, or nested class declaration, found %q", p.cur.String())
		p.advance()
	}
	if len(p.diags.Errors) > before {
		p.recover()
	}
}
