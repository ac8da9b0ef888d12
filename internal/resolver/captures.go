package resolver

import (
	"github.com/cwbudde/go-jactl/internal/ast"
	"github.com/cwbudde/go-jactl/internal/types"
)

// lookupVar resolves name against the current function's block stack first
// (innermost block outward), then walks outward across enclosing function
// scopes, installing a forwarding VarDecl chain at each level it crosses
// (spec §4.3 "capture analysis"). A name found only in an outer function
// promotes the original declaration to a heap local, since closures capture
// by reference rather than by value.
func (r *Resolver) lookupVar(name string) *ast.VarDecl {
	fs := r.currentFunc()
	if fs == nil {
		return nil
	}
	if v := lookupInBlocks(fs.blocks, name); v != nil {
		return v
	}

	for i := len(r.funcStack) - 2; i >= 0; i-- {
		outer := r.funcStack[i]
		if v := lookupInBlocks(outer.blocks, name); v != nil {
			return r.forwardCapture(v, i+1)
		}
	}
	return nil
}

func lookupInBlocks(blocks []*ast.Block, name string) *ast.VarDecl {
	for i := len(blocks) - 1; i >= 0; i-- {
		if v, ok := blocks[i].Variables.Get(name); ok && !v.IsUndeclared() {
			return v
		}
	}
	return nil
}

// forwardCapture promotes original (declared at funcStack depth ownerLevel-1)
// to a heap local and threads a forwarding VarDecl through every function
// scope from ownerLevel up to the current (innermost) scope, so each
// intermediate closure has its own local name bound to the captured value
// (spec §5 "a non-owning reference to its parentVarDecl").
func (r *Resolver) forwardCapture(original *ast.VarDecl, ownerLevel int) *ast.VarDecl {
	original.IsHeapLocal = true
	root := original
	if original.OriginalVarDecl != nil {
		root = original.OriginalVarDecl
	} else {
		original.OriginalVarDecl = original
	}

	parent := original
	for level := ownerLevel; level < len(r.funcStack); level++ {
		fs := r.funcStack[level]
		outerBlock := fs.blocks[0]
		if existing, ok := outerBlock.Variables.Get(original.Name); ok && existing.OriginalVarDecl == root {
			parent = existing
			continue
		}
		forward := &ast.VarDecl{
			Meta:            ast.NewMeta(original.Pos()),
			Name:            original.Name,
			DeclaredType:    original.DeclaredType,
			IsHeapLocal:     true,
			NestingLevel:    level + 1,
			ParentVarDecl:   parent,
			OriginalVarDecl: root,
		}
		outerBlock.Variables.Set(original.Name, forward)
		parent = forward
	}
	return parent
}

// lookupHoistedFunction finds name among the current function's nested
// block stack's hoisted declarations (see hoistFunctions).
func (r *Resolver) lookupHoistedFunction(name string) *ast.FunDecl {
	fs := r.currentFunc()
	if fs == nil {
		return nil
	}
	for i := len(fs.blocks) - 1; i >= 0; i-- {
		for _, fn := range fs.blocks[i].Functions {
			if fn.Name == name {
				return fn
			}
		}
	}
	return nil
}

// checkForwardReference rejects a call to a hoisted function fn that
// occurs before fn's own declaration, when fn closes over an outer
// variable that has not yet been declared at the call's textual position
// (spec §4.3 step 4, concrete scenario §8.6). Hoisting otherwise lets fn
// be called ahead of its declaration freely -- that is the point of
// hoisting -- so a bare "called before declaration" is not itself an
// error; only a capture of a not-yet-declared variable is.
//
// Statements within a block resolve in strict textual order (resolveBlock
// advances b.CurrentlyResolving one statement at a time), so "not yet
// declared at the call" is just: somewhere in the call's enclosing block
// stack there is a VarDecl for the captured name whose statement index is
// still ahead of that block's CurrentlyResolving.
func (r *Resolver) checkForwardReference(fn *ast.FunDecl, callPos ast.Position) {
	if callPos.Offset >= fn.Pos().Offset {
		return
	}
	if fn.EarliestForwardReference == nil || callPos.Offset < fn.EarliestForwardReference.Offset {
		pos := callPos
		fn.EarliestForwardReference = &pos
	}

	free := freeVariableNames(fn)
	if len(free) == 0 {
		return
	}
	fs := r.currentFunc()
	if fs == nil {
		return
	}
	for i := len(fs.blocks) - 1; i >= 0; i-- {
		b := fs.blocks[i]
		for idx, stmt := range b.Stmts {
			vd, ok := stmt.(*ast.VarDecl)
			if !ok || !free[vd.Name] {
				continue
			}
			if idx > b.CurrentlyResolving {
				r.errorAt(callPos,
					"forward reference to function %q that closes over variable %q not yet declared",
					fn.Name, vd.Name)
				return
			}
		}
	}
}

// freeVariableNames returns a conservative syntactic approximation of
// fn's capture set: every identifier name fn's body reads or assigns that
// is not one of fn's own parameters and not declared by a VarDecl/FunDecl
// found anywhere in fn's own body. It does not perform full lexical
// scoping -- a shadowing inner declaration with the same name as an outer
// free variable is treated as binding the name for the whole body -- which
// is sound for the forward-reference check: it can only under-report a
// capture, never invent one that is not there.
func freeVariableNames(fn *ast.FunDecl) map[string]bool {
	bound := map[string]bool{}
	for _, p := range fn.Params {
		bound[p.Name] = true
	}
	collectBoundNames(fn.Body, bound)

	free := map[string]bool{}
	collectIdentifierRefsStmt(fn.Body, bound, free)
	return free
}

// collectBoundNames walks stmt recording every name a VarDecl or nested
// FunDecl introduces, so collectIdentifierRefsStmt can tell a genuine
// outer reference from a reference to fn's own local.
func collectBoundNames(stmt ast.Statement, bound map[string]bool) {
	switch s := stmt.(type) {
	case nil:
	case *ast.VarDecl:
		bound[s.Name] = true
		collectBoundNamesExpr(s.Initializer, bound)
	case *ast.Block:
		for _, item := range s.Stmts {
			collectBoundNames(item, bound)
		}
	case *ast.If:
		collectBoundNames(s.Then, bound)
		collectBoundNames(s.Else, bound)
	case *ast.While:
		collectBoundNames(s.Body, bound)
	case *ast.ExprStmt:
		collectBoundNamesExpr(s.Expr, bound)
	case *ast.Return:
		collectBoundNamesExpr(s.Value, bound)
	case *ast.ThrowError:
		collectBoundNamesExpr(s.Error, bound)
	case *ast.FunDeclStmt:
		bound[s.Fun.Name] = true
		collectBoundNames(s.Fun.Body, bound)
	case *ast.Stmts:
		for _, item := range s.Items {
			collectBoundNames(item, bound)
		}
	}
}

func collectBoundNamesExpr(expr ast.Expression, bound map[string]bool) {
	switch e := expr.(type) {
	case nil:
	case *ast.BlockExpr:
		collectBoundNames(e.Block, bound)
	case *ast.FunDecl:
		for _, p := range e.Params {
			bound[p.Name] = true
		}
		collectBoundNames(e.Body, bound)
	}
}

// collectIdentifierRefsStmt and collectIdentifierRefsExpr walk fn's body
// recording every *ast.Identifier name not already in bound into free.
// Nested function bodies (FunDeclStmt, a closure FunDecl literal) are
// skipped rather than descended into: their own free variables are their
// own capture-analysis concern, not fn's.
func collectIdentifierRefsStmt(stmt ast.Statement, bound, free map[string]bool) {
	switch s := stmt.(type) {
	case nil:
	case *ast.VarDecl:
		collectIdentifierRefsExpr(s.Initializer, bound, free)
	case *ast.Block:
		for _, item := range s.Stmts {
			collectIdentifierRefsStmt(item, bound, free)
		}
	case *ast.If:
		collectIdentifierRefsExpr(s.Cond, bound, free)
		collectIdentifierRefsStmt(s.Then, bound, free)
		collectIdentifierRefsStmt(s.Else, bound, free)
	case *ast.While:
		collectIdentifierRefsExpr(s.Cond, bound, free)
		collectIdentifierRefsStmt(s.Body, bound, free)
	case *ast.ExprStmt:
		collectIdentifierRefsExpr(s.Expr, bound, free)
	case *ast.Return:
		collectIdentifierRefsExpr(s.Value, bound, free)
	case *ast.ThrowError:
		collectIdentifierRefsExpr(s.Error, bound, free)
	case *ast.Stmts:
		for _, item := range s.Items {
			collectIdentifierRefsStmt(item, bound, free)
		}
	}
}

func collectIdentifierRefsExpr(expr ast.Expression, bound, free map[string]bool) {
	switch e := expr.(type) {
	case nil:
	case *ast.Identifier:
		if !bound[e.Name] {
			free[e.Name] = true
		}
	case *ast.Binary:
		collectIdentifierRefsExpr(e.Left, bound, free)
		collectIdentifierRefsExpr(e.Right, bound, free)
	case *ast.Unary:
		collectIdentifierRefsExpr(e.Operand, bound, free)
	case *ast.Ternary:
		collectIdentifierRefsExpr(e.Cond, bound, free)
		collectIdentifierRefsExpr(e.Then, bound, free)
		collectIdentifierRefsExpr(e.Else, bound, free)
	case *ast.Call:
		collectIdentifierRefsExpr(e.Callee, bound, free)
		for _, a := range e.Args {
			collectIdentifierRefsExpr(a, bound, free)
		}
	case *ast.MethodCall:
		collectIdentifierRefsExpr(e.Receiver, bound, free)
		for _, a := range e.Args {
			collectIdentifierRefsExpr(a, bound, free)
		}
	case *ast.VarAssign:
		collectIdentifierRefsExpr(e.Target, bound, free)
		collectIdentifierRefsExpr(e.Value, bound, free)
	case *ast.VarOpAssign:
		collectIdentifierRefsExpr(e.Target, bound, free)
		collectIdentifierRefsExpr(e.Expr, bound, free)
	case *ast.FieldAssign:
		collectIdentifierRefsExpr(e.Target, bound, free)
		collectIdentifierRefsExpr(e.Value, bound, free)
	case *ast.FieldOpAssign:
		collectIdentifierRefsExpr(e.Target, bound, free)
		collectIdentifierRefsExpr(e.Expr, bound, free)
	case *ast.RegexMatch:
		collectIdentifierRefsExpr(e.Left, bound, free)
		collectIdentifierRefsExpr(e.Pattern, bound, free)
		if e.Replacement != nil {
			collectIdentifierRefsExpr(e.Replacement, bound, free)
		}
	case *ast.InstanceOf:
		collectIdentifierRefsExpr(e.Operand, bound, free)
	case *ast.Cast:
		collectIdentifierRefsExpr(e.Operand, bound, free)
	case *ast.ConvertTo:
		collectIdentifierRefsExpr(e.Operand, bound, free)
	case *ast.CastTo:
		collectIdentifierRefsExpr(e.Operand, bound, free)
	case *ast.ListLiteral:
		for _, el := range e.Elements {
			collectIdentifierRefsExpr(el, bound, free)
		}
	case *ast.MapLiteral:
		for _, entry := range e.Entries {
			collectIdentifierRefsExpr(entry.Key, bound, free)
			collectIdentifierRefsExpr(entry.Value, bound, free)
		}
	case *ast.ExprString:
		for _, part := range e.Parts {
			if part.Expr != nil {
				collectIdentifierRefsExpr(part.Expr, bound, free)
			}
		}
	case *ast.BlockExpr:
		collectIdentifierRefsStmt(e.Block, bound, free)
	case *ast.Print:
		collectIdentifierRefsExpr(e.Arg, bound, free)
	case *ast.ReturnExpr:
		collectIdentifierRefsExpr(e.Value, bound, free)
	}
}

// resolveClassName resolves a class name against, in order: the enclosing
// classes (their own names and nested-class tables), this file's locally
// declared classes, and (last) the package of the injected PackageRegistry
// named by Context.JavaPackage. Import statements are not consulted, and a
// dotted name is looked up as one whole key, not segment by segment.
func (r *Resolver) resolveClassName(name string) (*types.ClassDescriptor, bool) {
	for i := len(r.classStack) - 1; i >= 0; i-- {
		cls := r.classStack[i]
		if cls.Descriptor == nil {
			continue
		}
		if cls.Descriptor.Name == name {
			return cls.Descriptor, true
		}
		if inner, ok := cls.Descriptor.Inner.Get(name); ok {
			return inner, true
		}
	}
	if desc, ok := r.localClasses[name]; ok {
		return desc, true
	}
	if r.pkgs != nil {
		if pkg, ok := r.pkgs.GetPackage(r.ctx.JavaPackage); ok {
			if desc, ok := pkg.GetClass(name); ok {
				return desc, true
			}
		}
	}
	return nil, false
}
