// Package jactl is the public embedding surface for the compiler front end:
// a single Compile call that pipes a source string through the tokeniser,
// parser, and resolver and hands back the resolved class declaration plus
// any diagnostics (spec §1, §4.5 "external-collaborator seams").
package jactl

import (
	"github.com/cwbudde/go-jactl/internal/ast"
	"github.com/cwbudde/go-jactl/internal/config"
	cerrors "github.com/cwbudde/go-jactl/internal/errors"
	"github.com/cwbudde/go-jactl/internal/lexer"
	"github.com/cwbudde/go-jactl/internal/parser"
	"github.com/cwbudde/go-jactl/internal/resolver"
)

// CompileOption configures a single Compile call.
type CompileOption func(*compileOptions)

type compileOptions struct {
	sourceName string
	ctx        *config.Context
	pkgs       config.PackageRegistry
	builtins   config.BuiltinRegistry
}

// WithSourceName attaches a name (file path, REPL label, ...) to the
// diagnostics a Compile call produces.
func WithSourceName(name string) CompileOption {
	return func(o *compileOptions) { o.sourceName = name }
}

// WithContext overrides the default Context (const-folding on, scale 20).
func WithContext(ctx *config.Context) CompileOption {
	return func(o *compileOptions) { o.ctx = ctx }
}

// WithPackageRegistry injects the collaborator that resolves imported class
// names (spec §4.5). Without one, only locally declared classes resolve.
func WithPackageRegistry(r config.PackageRegistry) CompileOption {
	return func(o *compileOptions) { o.pkgs = r }
}

// WithBuiltinRegistry injects the collaborator that exposes built-in
// functions/methods (spec §4.5). Without one, method clash checking against
// built-ins is skipped.
func WithBuiltinRegistry(r config.BuiltinRegistry) CompileOption {
	return func(o *compileOptions) { o.builtins = r }
}

// CompileResult carries a successfully (or partially) resolved compile.
type CompileResult struct {
	// Class is the resolved script class: a synthetic "Script" class with a
	// "main(globals: Map)" method wrapping top-level statements, plus any
	// user-declared classes (spec §4.2 "parse() -> ClassDecl").
	Class *ast.ClassDecl

	// Diagnostics holds every error accumulated across all three stages,
	// in the order they were raised. It is empty on a fully successful
	// compile.
	Diagnostics []*cerrors.CompileError
}

// Compile tokenises, parses, and resolves source, returning the resolved
// Class and its diagnostics. A non-nil error is returned precisely when
// Diagnostics is non-empty, so callers that only care about pass/fail can
// ignore CompileResult and just check err.
func Compile(source string, opts ...CompileOption) (*CompileResult, error) {
	o := &compileOptions{ctx: config.NewContext()}
	for _, opt := range opts {
		opt(o)
	}

	var lexOpts []lexer.Option
	if o.sourceName != "" {
		lexOpts = append(lexOpts, lexer.WithSourceName(o.sourceName))
	}

	lx := lexer.New(source, lexOpts...)
	p := parser.New(lx)
	cls := p.Parse()

	diags := p.Diagnostics()
	if !diags.HasErrors() {
		r := resolver.New(o.ctx, o.pkgs, o.builtins)
		r.Resolve(cls)
		diags.Errors = append(diags.Errors, r.Diagnostics().Errors...)
	}

	result := &CompileResult{Class: cls, Diagnostics: diags.Errors}
	if diags.HasErrors() {
		return result, diags
	}
	return result, nil
}

// CompileExpression tokenises and parses source as a single expression via
// the parser's parseExpression() entry point (spec §4.2), skipping the
// resolver. Useful for REPL-style single-expression evaluation previews.
func CompileExpression(source string, opts ...CompileOption) (ast.Expression, error) {
	o := &compileOptions{ctx: config.NewContext()}
	for _, opt := range opts {
		opt(o)
	}

	var lexOpts []lexer.Option
	if o.sourceName != "" {
		lexOpts = append(lexOpts, lexer.WithSourceName(o.sourceName))
	}

	lx := lexer.New(source, lexOpts...)
	p := parser.New(lx)
	expr := p.ParseExpression()
	if diags := p.Diagnostics(); diags.HasErrors() {
		return expr, diags
	}
	return expr, nil
}
