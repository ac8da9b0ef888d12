package parser

import (
	"testing"

	"github.com/cwbudde/go-jactl/internal/ast"
	"github.com/cwbudde/go-jactl/internal/lexer"
)

func parse(t *testing.T, src string) *ast.ClassDecl {
	t.Helper()
	p := New(lexer.New(src))
	cls := p.Parse()
	if diags := p.Diagnostics(); diags.HasErrors() {
		t.Fatalf("unexpected parse errors for %q: %s", src, diags.Error())
	}
	return cls
}

func mainBody(t *testing.T, cls *ast.ClassDecl) *ast.Block {
	t.Helper()
	if len(cls.Methods) == 0 {
		t.Fatalf("script class has no main method")
	}
	return cls.Methods[0].Body
}

func TestParseVarDeclWithInitializer(t *testing.T) {
	cls := parse(t, "var x = 1\n")
	body := mainBody(t, cls)
	if len(body.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(body.Stmts))
	}
	decl, ok := body.Stmts[0].(*ast.VarDecl)
	if !ok {
		t.Fatalf("expected *ast.VarDecl, got %T", body.Stmts[0])
	}
	if decl.Name != "x" {
		t.Fatalf("expected name x, got %q", decl.Name)
	}
	lit, ok := decl.Initializer.(*ast.Literal)
	if !ok {
		t.Fatalf("expected literal initializer, got %T", decl.Initializer)
	}
	if lit.Value != int32(1) {
		t.Fatalf("expected 1, got %v", lit.Value)
	}
}

// TestBinaryPrecedence asserts `1 + 2 * 3` parses with * binding tighter
// than + (spec §4.2's precedence table).
func TestBinaryPrecedence(t *testing.T) {
	cls := parse(t, "1 + 2 * 3\n")
	body := mainBody(t, cls)
	// The trailing expression becomes an implicit return.
	ret, ok := body.Stmts[len(body.Stmts)-1].(*ast.Return)
	if !ok {
		t.Fatalf("expected implicit Return, got %T", body.Stmts[len(body.Stmts)-1])
	}
	bin, ok := ret.Value.(*ast.Binary)
	if !ok {
		t.Fatalf("expected top-level Binary, got %T", ret.Value)
	}
	if bin.Operator != "+" {
		t.Fatalf("expected top operator +, got %q", bin.Operator)
	}
	rhs, ok := bin.Right.(*ast.Binary)
	if !ok || rhs.Operator != "*" {
		t.Fatalf("expected right-hand side to be a *, got %#v", bin.Right)
	}
}

func TestIfElseStatement(t *testing.T) {
	cls := parse(t, "if (x == 1) { y = 1 } else { y = 2 }\n")
	body := mainBody(t, cls)
	ifStmt, ok := body.Stmts[0].(*ast.If)
	if !ok {
		t.Fatalf("expected *ast.If, got %T", body.Stmts[0])
	}
	if ifStmt.Else == nil {
		t.Fatalf("expected an else branch")
	}
}

func TestWhileStatement(t *testing.T) {
	cls := parse(t, "while (x < 10) { x = x + 1 }\n")
	body := mainBody(t, cls)
	if _, ok := body.Stmts[0].(*ast.While); !ok {
		t.Fatalf("expected *ast.While, got %T", body.Stmts[0])
	}
}

// TestCompoundAssignRewrite exercises the l-value rewrite for `x += 1`:
// it should desugar into a VarOpAssign wrapping a Noop + rhs Binary (spec
// §4.2).
func TestCompoundAssignRewrite(t *testing.T) {
	cls := parse(t, "var x = 0\nx += 1\n")
	body := mainBody(t, cls)
	exprStmt, ok := body.Stmts[1].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt, got %T", body.Stmts[1])
	}
	opAssign, ok := exprStmt.Expr.(*ast.VarOpAssign)
	if !ok {
		t.Fatalf("expected *ast.VarOpAssign, got %T", exprStmt.Expr)
	}
	if opAssign.OriginalOperator != "+=" {
		t.Fatalf("expected original operator +=, got %q", opAssign.OriginalOperator)
	}
	if _, ok := opAssign.Expr.Left.(*ast.Noop); !ok {
		t.Fatalf("expected Noop placeholder on the left of the synthesised binary, got %T", opAssign.Expr.Left)
	}
}

// TestPostfixIncDec confirms `x++` on a bare identifier is rewritten to a
// VarOpAssign (only FieldOpAssign carries IsPreIncOrDec).
func TestPostfixIncDec(t *testing.T) {
	cls := parse(t, "var x = 0\nx++\n")
	body := mainBody(t, cls)
	exprStmt := body.Stmts[1].(*ast.ExprStmt)
	if _, ok := exprStmt.Expr.(*ast.VarOpAssign); !ok {
		t.Fatalf("expected *ast.VarOpAssign for x++, got %T", exprStmt.Expr)
	}
}

func TestFunctionDeclarationImplicitReturn(t *testing.T) {
	cls := parse(t, "def add(x, y) { x + y }\n")
	body := mainBody(t, cls)
	fds, ok := body.Stmts[0].(*ast.FunDeclStmt)
	if !ok {
		t.Fatalf("expected *ast.FunDeclStmt, got %T", body.Stmts[0])
	}
	if fds.Fun.Name != "add" || len(fds.Fun.Params) != 2 {
		t.Fatalf("unexpected function shape: %+v", fds.Fun)
	}
	last := fds.Fun.Body.Stmts[len(fds.Fun.Body.Stmts)-1]
	if _, ok := last.(*ast.Return); !ok {
		t.Fatalf("expected synthesised Return as last statement, got %T", last)
	}
}

// TestMapLiteralVsBlockDisambiguation exercises spec §4.2's "{ : }" and
// "{ key: }" lookahead rules for distinguishing a map literal from a bare
// closure/block.
func TestMapLiteralVsBlockDisambiguation(t *testing.T) {
	cls := parse(t, `{a: 1, b: 2}` + "\n")
	body := mainBody(t, cls)
	exprStmt, ok := body.Stmts[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt wrapping the map literal, got %T", body.Stmts[0])
	}
	if _, ok := exprStmt.Expr.(*ast.MapLiteral); !ok {
		t.Fatalf("expected *ast.MapLiteral, got %T", exprStmt.Expr)
	}
}

func TestParenthesizedBlockStaysABlock(t *testing.T) {
	cls := parse(t, "{ var z = 1 }\n")
	body := mainBody(t, cls)
	if _, ok := body.Stmts[0].(*ast.Block); !ok {
		t.Fatalf("expected a demoted plain Block, got %T", body.Stmts[0])
	}
}

func TestTrailingIfModifier(t *testing.T) {
	cls := parse(t, "var x = 0\nx = 1 if x == 0\n")
	body := mainBody(t, cls)
	if _, ok := body.Stmts[1].(*ast.If); !ok {
		t.Fatalf("expected trailing-if to rewrite the statement into an *ast.If, got %T", body.Stmts[1])
	}
}

func TestParseExpressionEntryPoint(t *testing.T) {
	p := New(lexer.New("1 + 2"))
	expr := p.ParseExpression()
	if diags := p.Diagnostics(); diags.HasErrors() {
		t.Fatalf("unexpected errors: %s", diags.Error())
	}
	if _, ok := expr.(*ast.Binary); !ok {
		t.Fatalf("expected *ast.Binary, got %T", expr)
	}
}

// TestLookaheadRestoresErrorCount ensures a failed trial parse (via
// save/restore) does not leak diagnostics from the abandoned attempt.
func TestLookaheadRestoresErrorCount(t *testing.T) {
	p := New(lexer.New("{a: 1}\n"))
	before := len(p.Diagnostics().Errors)
	if !p.looksLikeMapLiteral() {
		t.Fatalf("expected the map-literal lookahead to succeed")
	}
	after := len(p.Diagnostics().Errors)
	if before != after {
		t.Fatalf("lookahead leaked diagnostics: before=%d after=%d", before, after)
	}
}
