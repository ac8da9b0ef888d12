package resolver

import (
	"strings"
	"testing"

	"github.com/cwbudde/go-jactl/internal/ast"
	"github.com/cwbudde/go-jactl/internal/config"
	"github.com/cwbudde/go-jactl/internal/lexer"
	"github.com/cwbudde/go-jactl/internal/parser"
	"github.com/cwbudde/go-jactl/internal/types"
)

func resolveSrc(t *testing.T, src string, opts ...config.ContextOption) (*ast.ClassDecl, *Resolver) {
	t.Helper()
	p := parser.New(lexer.New(src))
	cls := p.Parse()
	if diags := p.Diagnostics(); diags.HasErrors() {
		t.Fatalf("unexpected parse errors for %q: %s", src, diags.Error())
	}
	ctx := config.NewContext(opts...)
	r := New(ctx, config.NewMapPackageRegistry(), config.NewMapBuiltinRegistry())
	r.Resolve(cls)
	return cls, r
}

func mainMethod(cls *ast.ClassDecl) *ast.FunDecl {
	return cls.Methods[0]
}

func TestResolveVarDeclAssignsType(t *testing.T) {
	cls, r := resolveSrc(t, "var x = 1\n")
	if r.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", r.Diagnostics().Error())
	}
	body := mainMethod(cls).Body
	decl := body.Stmts[0].(*ast.VarDecl)
	if decl.DeclaredType.Kind != types.INT {
		t.Fatalf("expected INT, got %s", decl.DeclaredType.Kind)
	}
}

func TestDuplicateDeclarationInSameScopeIsAnError(t *testing.T) {
	_, r := resolveSrc(t, "var x = 1\nvar x = 2\n")
	if !r.Diagnostics().HasErrors() {
		t.Fatalf("expected a duplicate-declaration error")
	}
}

func TestSelfReferencingInitializerIsAnError(t *testing.T) {
	_, r := resolveSrc(t, "var x = x\n")
	if !r.Diagnostics().HasErrors() {
		t.Fatalf("expected a self-reference error for `var x = x`")
	}
}

// TestNumericJoinPromotesToWidestType exercises the result(left,op,right)
// numeric-join rule: int + long => long (spec §4.3).
func TestNumericJoinPromotesToWidestType(t *testing.T) {
	cls, r := resolveSrc(t, "var x = 1\nvar y = 2L\nvar z = x + y\n")
	if r.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", r.Diagnostics().Error())
	}
	body := mainMethod(cls).Body
	z := body.Stmts[2].(*ast.VarDecl)
	if z.DeclaredType.Kind != types.LONG {
		t.Fatalf("expected LONG from int+long join, got %s", z.DeclaredType.Kind)
	}
}

func TestStringConcatenationTypesAsString(t *testing.T) {
	cls, r := resolveSrc(t, `var x = "a" + 1` + "\n")
	if r.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", r.Diagnostics().Error())
	}
	decl := mainMethod(cls).Body.Stmts[0].(*ast.VarDecl)
	if decl.DeclaredType.Kind != types.STRING {
		t.Fatalf("expected STRING, got %s", decl.DeclaredType.Kind)
	}
}

// TestConstantFoldingComputesIntLiterals checks `2 + 3` folds to a
// constant 5 on the Binary node itself when EvaluateConstExprs is on.
func TestConstantFoldingComputesIntLiterals(t *testing.T) {
	cls, r := resolveSrc(t, "var x = 2 + 3\n", config.WithEvaluateConstExprs(true))
	if r.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", r.Diagnostics().Error())
	}
	decl := mainMethod(cls).Body.Stmts[0].(*ast.VarDecl)
	bin := decl.Initializer.(*ast.Binary)
	if !bin.IsConst {
		t.Fatalf("expected the binary to be folded to a constant")
	}
	if bin.ConstValue != int32(5) {
		t.Fatalf("expected folded value 5, got %v", bin.ConstValue)
	}
}

func TestConstantFoldingDisabled(t *testing.T) {
	cls, r := resolveSrc(t, "var x = 2 + 3\n", config.WithEvaluateConstExprs(false))
	if r.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", r.Diagnostics().Error())
	}
	decl := mainMethod(cls).Body.Stmts[0].(*ast.VarDecl)
	bin := decl.Initializer.(*ast.Binary)
	if bin.IsConst {
		t.Fatalf("expected folding to be suppressed when EvaluateConstExprs is false")
	}
}

// TestDivisionByZeroIsAResolverErrorNotAFold ensures a constant 1/0 is
// reported rather than silently folded or panicking.
func TestDivisionByZeroIsAResolverErrorNotAFold(t *testing.T) {
	_, r := resolveSrc(t, "var x = 1 / 0\n")
	if !r.Diagnostics().HasErrors() {
		t.Fatalf("expected a division-by-zero error")
	}
}

// TestCaptureAnalysisPromotesOuterVarToHeapLocal verifies that a nested
// closure referencing an outer local causes the resolver to mark that
// local IsHeapLocal and forward a VarDecl chain into the closure's scope
// (spec §4.3's capture-analysis description).
func TestCaptureAnalysisPromotesOuterVarToHeapLocal(t *testing.T) {
	cls, r := resolveSrc(t, "var x = 1\ndef f() { x }\n")
	if r.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", r.Diagnostics().Error())
	}
	body := mainMethod(cls).Body
	outer := body.Stmts[0].(*ast.VarDecl)
	if !outer.IsHeapLocal {
		t.Fatalf("expected the captured outer variable to be promoted to a heap local")
	}
	fds := body.Stmts[1].(*ast.FunDeclStmt)
	inner := fds.Fun.Body.Variables
	forwarded, ok := inner.Get("x")
	if !ok {
		t.Fatalf("expected a forwarded VarDecl for x inside the closure's scope")
	}
	if forwarded.OriginalVarDecl != outer && forwarded != outer {
		t.Fatalf("expected the forwarded declaration to trace back to the original outer VarDecl")
	}
}

// TestImplicitReturnSynthesisWrapsTrailingExpression confirms a trailing
// bare expression statement becomes a Return (spec §4.3/§4.2).
func TestImplicitReturnSynthesisWrapsTrailingExpression(t *testing.T) {
	cls, r := resolveSrc(t, "def f() { 1 + 2 }\n")
	if r.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", r.Diagnostics().Error())
	}
	fds := mainMethod(cls).Body.Stmts[0].(*ast.FunDeclStmt)
	last := fds.Fun.Body.Stmts[len(fds.Fun.Body.Stmts)-1]
	if _, ok := last.(*ast.Return); !ok {
		t.Fatalf("expected a synthesised Return, got %T", last)
	}
}

// TestForwardReferenceClosingOverUndeclaredVariableIsAnError exercises
// spec §4.3 step 4 / concrete scenario §8.6: g is hoisted so calling it
// ahead of its own `def` is normally fine, but here g's body closes over
// v, which at the call site has not been declared yet.
func TestForwardReferenceClosingOverUndeclaredVariableIsAnError(t *testing.T) {
	_, r := resolveSrc(t, "g()\ndef g() { return v }\nvar v = 10\n")
	if !r.Diagnostics().HasErrors() {
		t.Fatalf("expected a forward-reference-capture error")
	}
	msg := r.Diagnostics().Error()
	if !containsAll(msg, "forward reference to function", `"g"`, `"v"`, "not yet declared") {
		t.Fatalf("expected the forward-reference-capture message naming g and v, got: %s", msg)
	}
}

// TestForwardReferenceWithoutCaptureIsNotAnError confirms hoisting itself
// is still legal: calling g ahead of its declaration is fine as long as g
// does not close over anything left undeclared at the call site.
func TestForwardReferenceWithoutCaptureIsNotAnError(t *testing.T) {
	_, r := resolveSrc(t, "g()\ndef g() { return 1 }\n")
	if r.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics for a capture-free forward reference: %s", r.Diagnostics().Error())
	}
}

func containsAll(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

// TestVarargsWrapperSynthesisedForOptionalParam checks that a function
// with a defaulted parameter gets a $w sibling with the fixed
// (source,offset,args) signature (spec §4.3's varargs wrapper synthesis).
func TestVarargsWrapperSynthesisedForOptionalParam(t *testing.T) {
	cls, r := resolveSrc(t, "def f(x = 1) { x }\n")
	if r.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", r.Diagnostics().Error())
	}
	fds := mainMethod(cls).Body.Stmts[0].(*ast.FunDeclStmt)
	wrapper := fds.Fun.Wrapper
	if wrapper == nil {
		t.Fatalf("expected a synthesised wrapper for a function with an optional parameter")
	}
	if wrapper.Name != "f$w" {
		t.Fatalf("expected wrapper name f$w, got %q", wrapper.Name)
	}
	if len(wrapper.Params) != 3 {
		t.Fatalf("expected the wrapper's fixed 3-param signature, got %d params", len(wrapper.Params))
	}
	assertWrapperDispatchShape(t, wrapper)
}

// TestWrapperSynthesisedUnconditionallyForEveryUserFunction confirms the
// §8 invariant (f.wrapper.signature == (STRING, INT, OBJECT_ARR) -> ANY for
// every user function f) holds even for a function with a single
// mandatory parameter and no defaults -- a case a param-count heuristic
// would wrongly skip.
func TestWrapperSynthesisedUnconditionallyForEveryUserFunction(t *testing.T) {
	cls, r := resolveSrc(t, "def f(x) { x }\n")
	if r.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", r.Diagnostics().Error())
	}
	fds := mainMethod(cls).Body.Stmts[0].(*ast.FunDeclStmt)
	wrapper := fds.Fun.Wrapper
	if wrapper == nil {
		t.Fatalf("expected a synthesised wrapper for every user function, including single-mandatory-param ones")
	}
	if wrapper.Name != "f$w" {
		t.Fatalf("expected wrapper name f$w, got %q", wrapper.Name)
	}
	if len(wrapper.Params) != 3 {
		t.Fatalf("expected the wrapper's fixed 3-param signature, got %d params", len(wrapper.Params))
	}
	assertWrapperDispatchShape(t, wrapper)
}

// assertWrapperDispatchShape checks the synthesised body actually carries
// the dispatch steps spec §4.3 requires, rather than just existing: an
// ArityCheck statement (steps 4-5) and a CheckNoExtraArgs statement
// (step 7) guarding the final call, with at least one LoadParamValue bound
// from the wrapper's own args/mapCopy locals (step 6).
func assertWrapperDispatchShape(t *testing.T, wrapper *ast.FunDecl) {
	t.Helper()
	var sawArityCheck, sawExtraArgsCheck, sawLoadParamValue bool
	for _, stmt := range wrapper.Body.Stmts {
		switch s := stmt.(type) {
		case *ast.ArityCheck:
			sawArityCheck = true
		case *ast.CheckNoExtraArgs:
			sawExtraArgsCheck = true
		case *ast.VarDecl:
			if lpv, ok := s.Initializer.(*ast.LoadParamValue); ok {
				sawLoadParamValue = true
				if lpv.Args == nil || lpv.IsObjArr == nil || lpv.MapCopy == nil {
					t.Fatalf("expected LoadParamValue to be wired to the wrapper's args/isObjArr/mapCopy locals")
				}
			}
		}
	}
	if !sawArityCheck {
		t.Fatalf("expected an ArityCheck statement in the synthesised wrapper body")
	}
	if !sawExtraArgsCheck {
		t.Fatalf("expected a CheckNoExtraArgs statement in the synthesised wrapper body")
	}
	if !sawLoadParamValue {
		t.Fatalf("expected at least one parameter bound via LoadParamValue")
	}
	last := wrapper.Body.Stmts[len(wrapper.Body.Stmts)-1]
	ret, ok := last.(*ast.Return)
	if !ok {
		t.Fatalf("expected the wrapper body to end in a Return, got %T", last)
	}
	if _, ok := ret.Value.(*ast.InvokeFunction); !ok {
		t.Fatalf("expected the wrapper's final statement to invoke the real function, got %T", ret.Value)
	}
}

func TestDuplicateClassMethodIsAnError(t *testing.T) {
	p := parser.New(lexer.New("class A { def f() { 1 } def f() { 2 } }\n"))
	cls := findClass(t, p)
	ctx := config.NewContext()
	r := New(ctx, config.NewMapPackageRegistry(), config.NewMapBuiltinRegistry())
	r.Resolve(cls)
	if !r.Diagnostics().HasErrors() {
		t.Fatalf("expected a duplicate-method error")
	}
}

func findClass(t *testing.T, p *parser.Parser) *ast.ClassDecl {
	t.Helper()
	cls := p.Parse()
	if diags := p.Diagnostics(); diags.HasErrors() {
		t.Fatalf("unexpected parse errors: %s", diags.Error())
	}
	if len(cls.Inner) == 0 {
		t.Fatalf("expected the script class to contain a nested class A")
	}
	return cls.Inner[0]
}

// TestRegexCaptureVariableReusedWithinBlock verifies the $@ MATCHER local
// is inserted once per block and reused by a second match in the same
// scope (spec §4.3's "$@" allocation rule).
func TestRegexCaptureVariableReusedWithinBlock(t *testing.T) {
	cls, r := resolveSrc(t, `
		var s = "abc"
		if (s =~ /a/) { }
		if (s =~ /b/) { }
	`)
	if r.Diagnostics().HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", r.Diagnostics().Error())
	}
	body := mainMethod(cls).Body
	count := 0
	for pair := body.Variables.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == "$@" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one $@ capture slot to be allocated for the block, found %d", count)
	}
}
