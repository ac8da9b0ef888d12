package resolver

import (
	"github.com/cwbudde/go-jactl/internal/ast"
	"github.com/cwbudde/go-jactl/internal/types"
)

// synthesizeImplicitReturns repeats the parser's last-statement rewrite
// (spec §4.2) and extends it for the cases only the resolver can see, in a
// function whose declared or inferred return type is ANY: a trailing nested
// FunDecl is followed by a Return(DefaultValue) (the nested function value
// itself is not returned), and a last statement that is not itself
// expression-shaped gets wrapped in a synthetic Stmts + Return(DefaultValue).
func (r *Resolver) synthesizeImplicitReturns(fn *ast.FunDecl, b *ast.Block) {
	if len(b.Stmts) == 0 {
		if fn.ReturnType.Kind == types.ANY || fn.ReturnType.Kind == types.UNDEFINED {
			b.Stmts = append(b.Stmts, &ast.Return{
				Meta:  ast.NewMeta(b.Pos()),
				Value: &ast.DefaultValue{Meta: ast.NewMeta(b.Pos()), For: types.Of(types.ANY)},
			})
		}
		return
	}

	last := b.Stmts[len(b.Stmts)-1]
	switch s := last.(type) {
	case *ast.Return, *ast.ThrowError:
		return
	case *ast.Block:
		r.synthesizeImplicitReturns(fn, s)
	case *ast.If:
		if then, ok := s.Then.(*ast.Block); ok {
			r.synthesizeImplicitReturns(fn, then)
		}
		if s.Else != nil {
			if els, ok := s.Else.(*ast.Block); ok {
				r.synthesizeImplicitReturns(fn, els)
			}
		}
	case *ast.ExprStmt:
		b.Stmts[len(b.Stmts)-1] = &ast.Return{Meta: ast.NewMeta(s.Pos()), Value: s.Expr}
	case *ast.FunDeclStmt:
		// a trailing nested function declaration has no value of its own;
		// ANY-returning enclosing functions fall through to the default.
		if fn.ReturnType.Kind == types.ANY || fn.ReturnType.Kind == types.UNDEFINED {
			b.Stmts = append(b.Stmts, &ast.Return{
				Meta:  ast.NewMeta(s.Pos()),
				Value: &ast.DefaultValue{Meta: ast.NewMeta(s.Pos()), For: types.Of(types.ANY)},
			})
		}
	default:
		if fn.ReturnType.Kind == types.ANY || fn.ReturnType.Kind == types.UNDEFINED {
			ret := &ast.Return{
				Meta:  ast.NewMeta(last.Pos()),
				Value: &ast.DefaultValue{Meta: ast.NewMeta(last.Pos()), For: types.Of(types.ANY)},
			}
			b.Stmts[len(b.Stmts)-1] = &ast.Stmts{Meta: ast.NewMeta(last.Pos()), Items: []ast.Statement{last, ret}}
		}
	}
}

// synthesizeWrapper builds fn.Wrapper: a fixed-signature
// (source:STRING, offset:INT, args:OBJECT_ARR) -> ANY adaptor every caller
// that only holds a FunctionDescriptor can dispatch through uniformly, per
// spec §4.3 "varargs wrapper synthesis". The wrapper's body implements the
// full eight-step dispatch:
//  1. argCount starts as args.length; isObjArr starts true (args is read
//     positionally until proven otherwise).
//  2. a lone LIST argument -- the shape a spread call such as f([1,2,3])
//     produces -- is unpacked into positional arguments before anything
//     else runs.
//  3. a lone named-argument map switches dispatch to keyed mode: mapCopy
//     becomes a mutable copy of that map, isObjArr becomes false, and
//     argCount is recomputed as the map's size.
//  4. fewer than MandatoryCount arguments is a "Missing mandatory
//     arguments" error.
//  5. more than ParamCount arguments is a "Too many arguments" error.
//  6. each declared parameter is bound, in order, either positionally from
//     args[i] or by removing its name from mapCopy, falling back to its own
//     initialiser (or the type's default) when neither source supplies it.
//  7. once every parameter has claimed its key, any name still left in
//     mapCopy is unknown and rejected ("No such parameter: <key>").
//  8. the real function is invoked with the bound parameters and the
//     wrapper returns its result.
func (r *Resolver) synthesizeWrapper(fn *ast.FunDecl) {
	if !needsWrapper(fn) {
		return
	}

	pos := fn.Pos()
	sourceParam := &ast.VarDecl{Meta: ast.NewMeta(pos), Name: "source", DeclaredType: types.Of(types.STRING), IsParam: true}
	offsetParam := &ast.VarDecl{Meta: ast.NewMeta(pos), Name: "offset", DeclaredType: types.Of(types.INT), IsParam: true}
	argsParam := &ast.VarDecl{Meta: ast.NewMeta(pos), Name: "args", DeclaredType: types.Of(types.OBJECT_ARR), IsParam: true}

	body := ast.NewBlock(pos)

	// step 1: argCount/isObjArr bookkeeping.
	argCountVar := &ast.VarDecl{
		Meta: ast.NewMeta(pos), Name: "argCount",
		Initializer: &ast.ArrayLength{Meta: ast.NewMeta(pos), Array: ast.NewIdentifier(pos, argsParam.Name)},
	}
	isObjArrVar := &ast.VarDecl{
		Meta: ast.NewMeta(pos), Name: "isObjArr",
		Initializer: ast.NewLiteral(pos, true),
	}
	mapCopyVar := &ast.VarDecl{
		Meta: ast.NewMeta(pos), Name: "mapCopy",
		Initializer: &ast.DefaultValue{Meta: ast.NewMeta(pos), For: types.Of(types.MAP)},
	}
	body.Stmts = append(body.Stmts, argCountVar, isObjArrVar, mapCopyVar)

	// step 2: a lone LIST argument is spread into positional arguments.
	unpack := ast.NewBlock(pos)
	unpack.Stmts = []ast.Statement{
		&ast.ExprStmt{Meta: ast.NewMeta(pos), Expr: &ast.VarAssign{
			Meta:   ast.NewMeta(pos),
			Target: ast.NewIdentifier(pos, argsParam.Name),
			Value:  &ast.UnpackListArg{Meta: ast.NewMeta(pos), Args: ast.NewIdentifier(pos, argsParam.Name)},
		}},
		&ast.ExprStmt{Meta: ast.NewMeta(pos), Expr: &ast.VarAssign{
			Meta:   ast.NewMeta(pos),
			Target: ast.NewIdentifier(pos, argCountVar.Name),
			Value:  &ast.ArrayLength{Meta: ast.NewMeta(pos), Array: ast.NewIdentifier(pos, argsParam.Name)},
		}},
	}
	body.Stmts = append(body.Stmts, &ast.If{
		Meta: ast.NewMeta(pos),
		Cond: &ast.IsSingleListArg{Meta: ast.NewMeta(pos), Args: ast.NewIdentifier(pos, argsParam.Name)},
		Then: unpack,
	})

	// step 3: a lone named-argument map switches dispatch to keyed mode.
	named := ast.NewBlock(pos)
	named.Stmts = []ast.Statement{
		&ast.ExprStmt{Meta: ast.NewMeta(pos), Expr: &ast.VarAssign{
			Meta:   ast.NewMeta(pos),
			Target: ast.NewIdentifier(pos, mapCopyVar.Name),
			Value:  &ast.NamedArgsMapCopy{Meta: ast.NewMeta(pos), Args: ast.NewIdentifier(pos, argsParam.Name)},
		}},
		&ast.ExprStmt{Meta: ast.NewMeta(pos), Expr: &ast.VarAssign{
			Meta:   ast.NewMeta(pos),
			Target: ast.NewIdentifier(pos, isObjArrVar.Name),
			Value:  ast.NewLiteral(pos, false),
		}},
		&ast.ExprStmt{Meta: ast.NewMeta(pos), Expr: &ast.VarAssign{
			Meta:   ast.NewMeta(pos),
			Target: ast.NewIdentifier(pos, argCountVar.Name),
			Value:  &ast.MapSize{Meta: ast.NewMeta(pos), Map: ast.NewIdentifier(pos, mapCopyVar.Name)},
		}},
	}
	body.Stmts = append(body.Stmts, &ast.If{
		Meta: ast.NewMeta(pos),
		Cond: &ast.IsNamedArgsMap{Meta: ast.NewMeta(pos), Args: ast.NewIdentifier(pos, argsParam.Name)},
		Then: named,
	})

	// steps 4-5: arity is checked once the dispatch mode above is settled.
	// fn.Descriptor is only populated for class methods (registerClass); a
	// free or nested function has none, so the counts come straight off
	// fn.Params, the same way functionDescriptorOf derives them.
	mandatoryCount := 0
	for _, p := range fn.Params {
		if p.Initializer == nil {
			mandatoryCount++
		}
	}
	body.Stmts = append(body.Stmts, &ast.ArityCheck{
		Meta:           ast.NewMeta(pos),
		ArgCount:       ast.NewIdentifier(pos, argCountVar.Name),
		IsObjArr:       ast.NewIdentifier(pos, isObjArrVar.Name),
		Source:         ast.NewIdentifier(pos, sourceParam.Name),
		Offset:         ast.NewIdentifier(pos, offsetParam.Name),
		MandatoryCount: mandatoryCount,
		ParamCount:     len(fn.Params),
	})

	// step 6: bind each declared parameter, positionally or by name.
	paramVars := make([]*ast.VarDecl, len(fn.Params))
	for i, p := range fn.Params {
		var fallback ast.Expression
		if p.Initializer != nil {
			fallback = p.Initializer
		} else {
			fallback = &ast.DefaultValue{Meta: ast.NewMeta(pos), For: p.DeclaredType}
		}
		pv := &ast.VarDecl{
			Meta: ast.NewMeta(pos), Name: "$" + p.Name,
			Initializer: &ast.LoadParamValue{
				Meta:     ast.NewMeta(pos),
				Index:    i,
				Name:     p.Name,
				Args:     ast.NewIdentifier(pos, argsParam.Name),
				IsObjArr: ast.NewIdentifier(pos, isObjArrVar.Name),
				MapCopy:  ast.NewIdentifier(pos, mapCopyVar.Name),
				Fallback: fallback,
			},
		}
		paramVars[i] = pv
		body.Stmts = append(body.Stmts, pv)
	}

	// step 7: any named argument left unconsumed is unknown.
	body.Stmts = append(body.Stmts, &ast.CheckNoExtraArgs{
		Meta:   ast.NewMeta(pos),
		Map:    ast.NewIdentifier(pos, mapCopyVar.Name),
		Source: ast.NewIdentifier(pos, sourceParam.Name),
		Offset: ast.NewIdentifier(pos, offsetParam.Name),
	})

	// step 8: dispatch to the real function with the bound arguments.
	callArgs := make([]ast.Expression, len(paramVars))
	for i, pv := range paramVars {
		callArgs[i] = ast.NewIdentifier(pos, pv.Name)
	}
	body.Stmts = append(body.Stmts, &ast.Return{
		Meta:  ast.NewMeta(pos),
		Value: &ast.InvokeFunction{Meta: ast.NewMeta(pos), Function: fn.Descriptor, Args: callArgs},
	})

	wrapper := &ast.FunDecl{
		Meta:       ast.NewMeta(pos),
		Name:       fn.Name + "$w",
		Params:     []*ast.VarDecl{sourceParam, offsetParam, argsParam},
		ReturnType: types.Of(types.ANY),
		Body:       body,
		IsStatic:   fn.IsStatic,
		IsWrapperFn: true,
	}
	wrapperDesc := &types.FunctionDescriptor{
		Name:            wrapper.Name,
		ReturnType:      wrapper.ReturnType,
		ParamNames:      []string{"source", "offset", "args"},
		ParamTypes:      []types.Type{sourceParam.DeclaredType, offsetParam.DeclaredType, argsParam.DeclaredType},
		MandatoryParams: map[string]bool{"source": true, "offset": true, "args": true},
		IsWrapper:       true,
		IsStatic:        fn.IsStatic,
	}
	wrapper.Descriptor = wrapperDesc
	fn.Wrapper = wrapper

	if fn.Descriptor != nil {
		fn.Descriptor.IsWrapper = false
	}

	r.resolveFunction(wrapper)
}

// needsWrapper reports whether fn should get a synthesised varargs wrapper.
// Spec §4.3 ("For every user-defined function and method, the Resolver
// builds a sibling varargs wrapper") and the §8 invariant
// (f.wrapper.signature == (STRING, INT, OBJECT_ARR) -> ANY for every user
// function f) make this unconditional: the only functions excluded are
// init methods, which are dispatched through InvokeInit instead, and a
// wrapper's own synthesised body, which must never be wrapped again.
func needsWrapper(fn *ast.FunDecl) bool {
	return !fn.IsInitMethod && !fn.IsWrapperFn
}
