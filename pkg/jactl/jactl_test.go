package jactl

import (
	"testing"

	"github.com/cwbudde/go-jactl/internal/ast"
)

func TestCompileHappyPath(t *testing.T) {
	result, err := Compile("var x = 1\nvar y = x + 2\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", result.Diagnostics)
	}
	if result.Class == nil || result.Class.Name != "Script" {
		t.Fatalf("expected a resolved Script class, got %+v", result.Class)
	}
}

func TestCompileSurfacesParserDiagnostics(t *testing.T) {
	_, err := Compile("var x = \n")
	if err == nil {
		t.Fatalf("expected a parse error for a missing initialiser expression")
	}
}

func TestCompileSurfacesResolverDiagnostics(t *testing.T) {
	result, err := Compile("var x = 1\nvar x = 2\n")
	if err == nil {
		t.Fatalf("expected a resolver error for a duplicate declaration")
	}
	if len(result.Diagnostics) == 0 {
		t.Fatalf("expected the resolver's diagnostics to be surfaced on CompileResult")
	}
}

func TestCompileWithSourceName(t *testing.T) {
	_, err := Compile("var x = \n", WithSourceName("script.jactl"))
	if err == nil {
		t.Fatalf("expected an error")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected a non-empty diagnostic message")
	}
}

func TestCompileExpression(t *testing.T) {
	expr, err := CompileExpression("1 + 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := expr.(*ast.Binary); !ok {
		t.Fatalf("expected *ast.Binary, got %T", expr)
	}
}

func TestCompileExpressionDoesNotResolve(t *testing.T) {
	// `undeclared` is never declared anywhere; CompileExpression skips the
	// resolver entirely so this should parse cleanly regardless.
	expr, err := CompileExpression("undeclared")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := expr.(*ast.Identifier); !ok {
		t.Fatalf("expected *ast.Identifier, got %T", expr)
	}
}
