// Package resolver implements the semantic pass described by spec §4.3:
// variable/type resolution, capture analysis with heap-local promotion,
// implicit-return synthesis, constant folding, varargs wrapper synthesis,
// and class resolution. It mutates the AST produced by internal/parser in
// place and reports diagnostics through the same Diagnostics aggregate the
// parser uses.
package resolver

import (
	"fmt"

	"github.com/cwbudde/go-jactl/internal/ast"
	"github.com/cwbudde/go-jactl/internal/config"
	cerrors "github.com/cwbudde/go-jactl/internal/errors"
	"github.com/cwbudde/go-jactl/internal/types"
)

// funcScope tracks one function's nested block stack plus the
// bookkeeping capture analysis needs (spec §4.3).
type funcScope struct {
	fn     *ast.FunDecl
	blocks []*ast.Block
	level  int
}

// Resolver walks a ClassDecl and mutates it in place.
type Resolver struct {
	ctx     *config.Context
	pkgs    config.PackageRegistry
	builtins config.BuiltinRegistry
	diags   *cerrors.Diagnostics

	classStack []*ast.ClassDecl
	funcStack  []*funcScope

	localClasses map[string]*types.ClassDescriptor
}

// New constructs a Resolver against the given Context and registries.
func New(ctx *config.Context, pkgs config.PackageRegistry, builtins config.BuiltinRegistry) *Resolver {
	return &Resolver{
		ctx:          ctx,
		pkgs:         pkgs,
		builtins:     builtins,
		diags:        &cerrors.Diagnostics{},
		localClasses: map[string]*types.ClassDescriptor{},
	}
}

func (r *Resolver) Diagnostics() *cerrors.Diagnostics { return r.diags }

func (r *Resolver) errorAt(pos ast.Position, format string, args ...any) {
	r.diags.Add(cerrors.New(cerrors.Semantic, pos, fmt.Sprintf(format, args...)))
}

// Resolve is the `resolve(ClassDecl)` entry point (spec §4.3).
func (r *Resolver) Resolve(cls *ast.ClassDecl) {
	r.registerClass(cls)
	r.resolveClassBody(cls)
}

// registerClass builds and records cls's ClassDescriptor, rejecting a
// duplicate name in the local-classes map (spec §4.3 "Class resolution").
func (r *Resolver) registerClass(cls *ast.ClassDecl) {
	if _, dup := r.localClasses[cls.Name]; dup {
		r.errorAt(cls.Pos(), "class %q already declared", cls.Name)
		return
	}
	desc := types.NewClassDescriptor(cls.Name)
	cls.Descriptor = desc
	r.localClasses[cls.Name] = desc
	for _, f := range cls.Fields {
		desc.Fields.Set(f.Name, f.DeclaredType)
	}
	for _, m := range cls.Methods {
		fd := functionDescriptorOf(m)
		if _, clash := desc.Methods.Get(m.Name); clash {
			r.errorAt(m.Pos(), "method %q already declared on class %q", m.Name, cls.Name)
			continue
		}
		if r.builtins != nil {
			if _, builtinClash := r.builtins.LookupMethod(types.OfInstance(desc), m.Name); builtinClash {
				r.errorAt(m.Pos(), "method %q clashes with a built-in method", m.Name)
				continue
			}
		}
		desc.Methods.Set(m.Name, fd)
		m.Descriptor = fd
		if m.IsInitMethod {
			desc.InitMethod = fd
		}
	}
	for _, inner := range cls.Inner {
		r.registerClass(inner)
		desc.Inner.Set(inner.Name, inner.Descriptor)
	}
}

func functionDescriptorOf(fn *ast.FunDecl) *types.FunctionDescriptor {
	fd := &types.FunctionDescriptor{
		Name:          fn.Name,
		ReturnType:    fn.ReturnType,
		IsStatic:      fn.IsStatic,
		IsInitMethod:  fn.IsInitMethod,
		MandatoryParams: map[string]bool{},
	}
	for _, p := range fn.Params {
		fd.ParamNames = append(fd.ParamNames, p.Name)
		fd.ParamTypes = append(fd.ParamTypes, p.DeclaredType)
		if p.Initializer == nil {
			fd.MandatoryParams[p.Name] = true
		}
	}
	return fd
}

func (r *Resolver) resolveClassBody(cls *ast.ClassDecl) {
	r.classStack = append(r.classStack, cls)
	defer func() { r.classStack = r.classStack[:len(r.classStack)-1] }()

	for _, m := range cls.Methods {
		r.resolveFunction(m)
	}
	for _, inner := range cls.Inner {
		r.resolveClassBody(inner)
	}
}

func (r *Resolver) resolveFunction(fn *ast.FunDecl) {
	scope := &funcScope{fn: fn, level: len(r.funcStack) + 1}
	r.funcStack = append(r.funcStack, scope)
	defer func() { r.funcStack = r.funcStack[:len(r.funcStack)-1] }()

	for _, p := range fn.Params {
		p.Owner = fn
		p.NestingLevel = scope.level
	}

	if fn.Body != nil {
		r.pushBlock(fn.Body)
		for _, p := range fn.Params {
			fn.Body.Variables.Set(p.Name, p)
		}
		r.resolveBlock(fn.Body)
		r.popBlock()
		r.synthesizeImplicitReturns(fn, fn.Body)
	}

	r.synthesizeWrapper(fn)
}

func (r *Resolver) currentFunc() *funcScope {
	if len(r.funcStack) == 0 {
		return nil
	}
	return r.funcStack[len(r.funcStack)-1]
}

func (r *Resolver) pushBlock(b *ast.Block) {
	fs := r.currentFunc()
	fs.blocks = append(fs.blocks, b)
}

func (r *Resolver) popBlock() {
	fs := r.currentFunc()
	fs.blocks = fs.blocks[:len(fs.blocks)-1]
}

func (r *Resolver) currentBlock() *ast.Block {
	fs := r.currentFunc()
	if fs == nil || len(fs.blocks) == 0 {
		return nil
	}
	return fs.blocks[len(fs.blocks)-1]
}

// declare implements spec §4.3's declare(): install v under the UNDEFINED
// sentinel so a self-referencing initialiser can be rejected.
func (r *Resolver) declare(v *ast.VarDecl) {
	b := r.currentBlock()
	if _, exists := b.Variables.Get(v.Name); exists {
		r.errorAt(v.Pos(), "variable %q already declared in this scope", v.Name)
	}
	v.MarkUndeclared()
	b.Variables.Set(v.Name, v)
}

// define implements spec §4.3's define(): replace the sentinel with the
// resolved declaration, record nesting level, and (REPL top-level) point
// it at the injected globals map.
func (r *Resolver) define(v *ast.VarDecl, resolvedType types.Type) {
	v.DeclaredType = resolvedType
	v.NestingLevel = r.currentFunc().level
	if r.ctx.ReplMode && len(r.funcStack) == 1 {
		v.IsGlobal = true
		r.ctx.GlobalVars[v.Name] = v
	}
}

// hoistFunctions pre-declares every named function in b so a call that
// textually precedes its FunDeclStmt still resolves (spec §4.3's
// "Functions" list on Block exists for exactly this forward-reference
// case); each gets a FUNCTION-typed VarDecl immediately, the FunDecl body
// itself is still resolved in declaration order by resolveStatement.
func (r *Resolver) hoistFunctions(b *ast.Block) {
	for _, stmt := range b.Stmts {
		fs, ok := stmt.(*ast.FunDeclStmt)
		if !ok || fs.Fun.Name == "" {
			continue
		}
		b.Functions = append(b.Functions, fs.Fun)
		decl := &ast.VarDecl{
			Meta:         ast.NewMeta(fs.Fun.Pos()),
			Name:         fs.Fun.Name,
			DeclaredType: types.Of(types.FUNCTION),
			IsFinal:      true,
		}
		b.Variables.Set(fs.Fun.Name, decl)
	}
}

func (r *Resolver) resolveBlock(b *ast.Block) {
	r.hoistFunctions(b)
	for i, stmt := range b.Stmts {
		b.CurrentlyResolving = i
		r.resolveStatement(stmt)
	}
}

func (r *Resolver) resolveStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		declared := s.DeclaredType
		r.declare(s)
		typ := types.Of(types.ANY)
		if s.Initializer != nil {
			typ = r.resolveExpr(s.Initializer)
			if lit, ok := s.Initializer.(*ast.Identifier); ok && lit.Decl == s {
				r.errorAt(s.Pos(), "variable initialisation cannot refer to itself: %q", s.Name)
			}
		}
		if declared.Kind != types.ANY && declared.Kind != types.UNDEFINED {
			typ = declared
		}
		r.define(s, typ)
	case *ast.Block:
		r.pushBlock(s)
		r.resolveBlock(s)
		r.popBlock()
	case *ast.ExprStmt:
		r.resolveExpr(s.Expr)
	case *ast.If:
		r.resolveExpr(s.Cond)
		r.resolveStatement(s.Then)
		if s.Else != nil {
			r.resolveStatement(s.Else)
		}
	case *ast.While:
		r.resolveExpr(s.Cond)
		r.resolveStatement(s.Body)
	case *ast.Return:
		if s.Value != nil {
			r.resolveExpr(s.Value)
		}
	case *ast.ThrowError:
		r.resolveExpr(s.Error)
	case *ast.FunDeclStmt:
		r.resolveFunction(s.Fun)
	case *ast.Stmts:
		for _, item := range s.Items {
			r.resolveStatement(item)
		}
	case *ast.ArityCheck:
		r.resolveExpr(s.ArgCount)
		r.resolveExpr(s.IsObjArr)
		r.resolveExpr(s.Source)
		r.resolveExpr(s.Offset)
	case *ast.CheckNoExtraArgs:
		r.resolveExpr(s.Map)
		r.resolveExpr(s.Source)
		r.resolveExpr(s.Offset)
	case *ast.Break, *ast.Continue, *ast.Import:
		// nothing to resolve
	}
}
