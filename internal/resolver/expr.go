package resolver

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cwbudde/go-jactl/internal/ast"
	"github.com/cwbudde/go-jactl/internal/types"
)

// nonFoldableOps can never be constant-folded even when both operands are
// constant: they depend on runtime identity/mutability (spec §4.3 "constant
// folding" exclusion list).
var nonFoldableOps = map[string]bool{
	"=~": true, "!~": true, "instanceof": true, "as": true,
}

// resolveExpr types (and where possible constant-folds) e, returning its
// resolved type. It is the expression half of spec §4.3's resolve pass.
func (r *Resolver) resolveExpr(e ast.Expression) types.Type {
	if e == nil {
		return types.Of(types.ANY)
	}
	switch n := e.(type) {
	case *ast.Literal:
		t := typeOfLiteral(n.Value)
		n.SetType(t)
		n.IsConst = true
		n.ConstValue = n.Value
		return t

	case *ast.Identifier:
		decl := r.lookupVar(n.Name)
		if decl == nil {
			r.errorAt(n.Pos(), "unknown variable %q", n.Name)
			n.SetType(types.Of(types.ANY))
			return n.Type()
		}
		if decl.IsUndeclared() {
			r.errorAt(n.Pos(), "variable %q referenced before its declaration completes", n.Name)
		}
		n.Decl = decl
		n.SetType(decl.DeclaredType)
		if decl.Meta.IsConst {
			n.IsConst = true
			n.ConstValue = decl.ConstValue
		}
		return decl.DeclaredType

	case *ast.ListLiteral:
		for _, el := range n.Elements {
			r.resolveExpr(el)
		}
		n.SetType(types.Of(types.LIST))
		return n.Type()

	case *ast.MapLiteral:
		for _, entry := range n.Entries {
			r.resolveExpr(entry.Key)
			r.resolveExpr(entry.Value)
		}
		n.SetType(types.Of(types.MAP))
		return n.Type()

	case *ast.ExprString:
		for _, part := range n.Parts {
			if part.Expr != nil {
				r.resolveExpr(part.Expr)
			}
		}
		n.SetType(types.Of(types.STRING))
		return n.Type()

	case *ast.Noop:
		n.SetType(types.Of(types.ANY))
		return n.Type()

	case *ast.Binary:
		return r.resolveBinary(n)

	case *ast.Unary:
		operandType := r.resolveExpr(n.Operand)
		t := operandType
		if n.Operator == "!" {
			t = types.Of(types.BOOLEAN)
		}
		n.SetType(t)
		r.foldUnary(n)
		return t

	case *ast.Ternary:
		r.resolveExpr(n.Cond)
		thenType := r.resolveExpr(n.Then)
		elseType := r.resolveExpr(n.Else)
		t := thenType
		if thenType.IsNumeric() && elseType.IsNumeric() {
			t = types.Join(thenType, elseType)
		} else if thenType.Kind != elseType.Kind {
			t = types.Of(types.ANY)
		}
		n.SetType(t)
		return t

	case *ast.Call:
		r.resolveExpr(n.Callee)
		if id, ok := n.Callee.(*ast.Identifier); ok {
			if fn := r.lookupHoistedFunction(id.Name); fn != nil {
				r.checkForwardReference(fn, n.Pos())
			}
		}
		for _, a := range n.Args {
			r.resolveExpr(a)
		}
		n.SetType(types.Of(types.ANY))
		return n.Type()

	case *ast.MethodCall:
		r.resolveExpr(n.Receiver)
		for _, a := range n.Args {
			r.resolveExpr(a)
		}
		n.SetType(types.Of(types.ANY))
		return n.Type()

	case *ast.VarAssign:
		valType := r.resolveExpr(n.Value)
		r.resolveExpr(n.Target)
		n.SetType(valType)
		return valType

	case *ast.VarOpAssign:
		r.resolveExpr(n.Target)
		t := r.resolveExpr(n.Expr)
		n.SetType(t)
		return t

	case *ast.FieldAssign:
		r.resolveExpr(n.Target)
		valType := r.resolveExpr(n.Value)
		n.SetType(valType)
		return valType

	case *ast.FieldOpAssign:
		r.resolveExpr(n.Target)
		t := r.resolveExpr(n.Expr)
		n.SetType(t)
		return t

	case *ast.RegexMatch:
		return r.resolveRegexMatch(n)

	case *ast.FunDecl:
		r.resolveFunction(n)
		n.SetType(types.Of(types.FUNCTION))
		return n.Type()

	case *ast.InstanceOf:
		r.resolveExpr(n.Operand)
		n.SetType(types.Of(types.BOOLEAN))
		return n.Type()

	case *ast.Cast:
		r.resolveExpr(n.Operand)
		n.SetType(n.Target)
		return n.Target

	case *ast.InvokeNew:
		desc, ok := r.resolveClassName(n.ClassName)
		if !ok {
			r.errorAt(n.Pos(), "unknown class %q", n.ClassName)
		} else {
			n.Class = desc
		}
		for _, a := range n.Args {
			r.resolveExpr(a)
		}
		t := types.Of(types.INSTANCE)
		if desc != nil {
			t = types.OfInstance(desc)
		}
		n.SetType(t)
		return t

	case *ast.InvokeInit:
		r.resolveExpr(n.This)
		for _, a := range n.Args {
			r.resolveExpr(a)
		}
		n.SetType(types.Of(types.ANY))
		return n.Type()

	case *ast.InvokeFunction:
		for _, a := range n.Args {
			r.resolveExpr(a)
		}
		t := types.Of(types.ANY)
		if n.Function != nil {
			t = n.Function.ReturnType
		}
		n.SetType(t)
		return t

	case *ast.InvokeUtility:
		for _, a := range n.Args {
			r.resolveExpr(a)
		}
		n.SetType(types.Of(types.ANY))
		return n.Type()

	case *ast.ClassPath:
		n.SetType(types.Of(types.CLASS))
		return n.Type()

	case *ast.DefaultValue:
		n.SetType(n.For)
		return n.For

	case *ast.ArrayLength:
		r.resolveExpr(n.Array)
		n.SetType(types.Of(types.INT))
		return n.Type()

	case *ast.ArrayGet:
		r.resolveExpr(n.Array)
		r.resolveExpr(n.Index)
		n.SetType(types.Of(types.ANY))
		return n.Type()

	case *ast.LoadParamValue:
		if n.Args != nil {
			r.resolveExpr(n.Args)
		}
		if n.IsObjArr != nil {
			r.resolveExpr(n.IsObjArr)
		}
		if n.MapCopy != nil {
			r.resolveExpr(n.MapCopy)
		}
		if n.Fallback != nil {
			r.resolveExpr(n.Fallback)
		}
		n.SetType(types.Of(types.ANY))
		return n.Type()

	case *ast.IsSingleListArg:
		r.resolveExpr(n.Args)
		n.SetType(types.Of(types.BOOLEAN))
		return n.Type()

	case *ast.UnpackListArg:
		r.resolveExpr(n.Args)
		n.SetType(types.Of(types.OBJECT_ARR))
		return n.Type()

	case *ast.IsNamedArgsMap:
		r.resolveExpr(n.Args)
		n.SetType(types.Of(types.BOOLEAN))
		return n.Type()

	case *ast.NamedArgsMapCopy:
		r.resolveExpr(n.Args)
		n.SetType(types.Of(types.MAP))
		return n.Type()

	case *ast.MapRemove:
		r.resolveExpr(n.Map)
		n.SetType(types.Of(types.ANY))
		return n.Type()

	case *ast.MapSize:
		r.resolveExpr(n.Map)
		n.SetType(types.Of(types.INT))
		return n.Type()

	case *ast.ConvertTo, *ast.CastTo:
		return r.resolveConvertOrCast(n)

	case *ast.BlockExpr:
		r.pushBlock(n.Block)
		r.resolveBlock(n.Block)
		r.popBlock()
		n.SetType(types.Of(types.ANY))
		return n.Type()

	case *ast.Print:
		r.resolveExpr(n.Arg)
		n.SetType(types.Of(types.ANY))
		return n.Type()

	case *ast.ReturnExpr:
		if n.Value != nil {
			r.resolveExpr(n.Value)
		}
		n.SetType(types.Of(types.ANY))
		return n.Type()

	case *ast.BreakExpr, *ast.ContinueExpr:
		n.SetType(types.Of(types.ANY))
		return n.Type()

	default:
		return types.Of(types.ANY)
	}
}

func (r *Resolver) resolveConvertOrCast(e ast.Expression) types.Type {
	switch n := e.(type) {
	case *ast.ConvertTo:
		r.resolveExpr(n.Operand)
		n.SetType(n.Target)
		return n.Target
	case *ast.CastTo:
		r.resolveExpr(n.Operand)
		n.SetType(n.Target)
		return n.Target
	}
	return types.Of(types.ANY)
}

func typeOfLiteral(v any) types.Type {
	switch v.(type) {
	case bool:
		return types.Of(types.BOOLEAN)
	case int32, int:
		return types.Of(types.INT)
	case int64:
		return types.Of(types.LONG)
	case float64:
		return types.Of(types.DOUBLE)
	case decimal.Decimal:
		return types.Of(types.DECIMAL)
	case string:
		return types.Of(types.STRING)
	case nil:
		return types.Of(types.ANY)
	default:
		return types.Of(types.ANY)
	}
}

// resolveBinary types a Binary node using the `result(left, op, right)`
// numeric-join rules (spec §4.3) and attempts constant folding.
func (r *Resolver) resolveBinary(n *ast.Binary) types.Type {
	leftType := r.resolveExpr(n.Left)
	rightType := r.resolveExpr(n.Right)

	var resultType types.Type
	switch n.Operator {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		resultType = types.Of(types.BOOLEAN)
	case "<=>":
		resultType = types.Of(types.INT)
	case "+":
		if leftType.Is(types.STRING) || rightType.Is(types.STRING) {
			resultType = types.Of(types.STRING)
		} else if leftType.Is(types.LIST) {
			resultType = types.Of(types.LIST)
		} else if leftType.IsNumeric() && rightType.IsNumeric() {
			resultType = types.Join(leftType, rightType)
		} else {
			resultType = types.Of(types.ANY)
		}
	case "-", "*", "/", "%", "&", "|", "^", "<<", ">>", ">>>":
		if leftType.IsNumeric() && rightType.IsNumeric() {
			resultType = types.Join(leftType, rightType)
		} else {
			resultType = types.Of(types.ANY)
		}
	default:
		resultType = types.Of(types.ANY)
	}
	n.SetType(resultType)

	if r.ctx.EvaluateConstExprs && !nonFoldableOps[n.Operator] {
		r.foldBinary(n, resultType)
	}
	return resultType
}

// foldBinary implements constant folding for a resolved Binary node: both
// operands constant, short-circuit evaluation for &&/||, div/mod-by-zero
// reported as an error rather than folded, integer overflow wraps, and
// decimal arithmetic is carried out at the Context's MaxScale (spec §4.3).
func (r *Resolver) foldBinary(n *ast.Binary, resultType types.Type) {
	left, lok := constOf(n.Left)
	right, rok := constOf(n.Right)

	if n.Operator == "&&" {
		if lok {
			if b, ok := left.(bool); ok && !b {
				setConst(n, false)
			}
		}
		return
	}
	if n.Operator == "||" {
		if lok {
			if b, ok := left.(bool); ok && b {
				setConst(n, true)
			}
		}
		return
	}

	if !lok || !rok {
		return
	}

	switch l := left.(type) {
	case int32:
		rv, ok := right.(int32)
		if !ok {
			return
		}
		v, err := foldIntOp(n.Operator, l, rv)
		if err != nil {
			r.errorAt(n.Pos(), "%s", err)
			return
		}
		if v != nil {
			setConst(n, v)
		}
	case int64:
		rv, ok := right.(int64)
		if !ok {
			return
		}
		v, err := foldLongOp(n.Operator, l, rv)
		if err != nil {
			r.errorAt(n.Pos(), "%s", err)
			return
		}
		if v != nil {
			setConst(n, v)
		}
	case float64:
		rv, ok := right.(float64)
		if !ok {
			return
		}
		if v, ok := foldDoubleOp(n.Operator, l, rv); ok {
			setConst(n, v)
		}
	case decimal.Decimal:
		rv, ok := right.(decimal.Decimal)
		if !ok {
			return
		}
		v, err := foldDecimalOp(n.Operator, l, rv, r.ctx.MaxScale)
		if err != nil {
			r.errorAt(n.Pos(), "%s", err)
			return
		}
		setConst(n, v)
	case string:
		if n.Operator == "+" {
			rv := fmt.Sprintf("%v", right)
			setConst(n, l+rv)
		}
	case bool:
		rv, ok := right.(bool)
		if !ok {
			return
		}
		switch n.Operator {
		case "==":
			setConst(n, l == rv)
		case "!=":
			setConst(n, l != rv)
		}
	}
}

func foldIntOp(op string, l, rr int32) (any, error) {
	switch op {
	case "+":
		return l + rr, nil
	case "-":
		return l - rr, nil
	case "*":
		return l * rr, nil
	case "/":
		if rr == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l / rr, nil
	case "%":
		if rr == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return l % rr, nil
	case "==":
		return l == rr, nil
	case "!=":
		return l != rr, nil
	case "<":
		return l < rr, nil
	case ">":
		return l > rr, nil
	case "<=":
		return l <= rr, nil
	case ">=":
		return l >= rr, nil
	case "&":
		return l & rr, nil
	case "|":
		return l | rr, nil
	case "^":
		return l ^ rr, nil
	}
	return nil, nil
}

func foldLongOp(op string, l, rr int64) (any, error) {
	switch op {
	case "+":
		return l + rr, nil
	case "-":
		return l - rr, nil
	case "*":
		return l * rr, nil
	case "/":
		if rr == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l / rr, nil
	case "%":
		if rr == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return l % rr, nil
	case "==":
		return l == rr, nil
	case "!=":
		return l != rr, nil
	case "<":
		return l < rr, nil
	case ">":
		return l > rr, nil
	case "<=":
		return l <= rr, nil
	case ">=":
		return l >= rr, nil
	}
	return nil, nil
}

func foldDoubleOp(op string, l, rr float64) (any, bool) {
	switch op {
	case "+":
		return l + rr, true
	case "-":
		return l - rr, true
	case "*":
		return l * rr, true
	case "/":
		if rr == 0 {
			return nil, false
		}
		return l / rr, true
	case "==":
		return l == rr, true
	case "!=":
		return l != rr, true
	case "<":
		return l < rr, true
	case ">":
		return l > rr, true
	case "<=":
		return l <= rr, true
	case ">=":
		return l >= rr, true
	}
	return nil, false
}

func foldDecimalOp(op string, l, rr decimal.Decimal, scale int) (any, error) {
	switch op {
	case "+":
		return l.Add(rr).Round(int32(scale)), nil
	case "-":
		return l.Sub(rr).Round(int32(scale)), nil
	case "*":
		return l.Mul(rr).Round(int32(scale)), nil
	case "/":
		if rr.IsZero() {
			return nil, fmt.Errorf("division by zero")
		}
		return l.DivRound(rr, int32(scale)), nil
	case "==":
		return l.Equal(rr), nil
	case "!=":
		return !l.Equal(rr), nil
	case "<":
		return l.LessThan(rr), nil
	case ">":
		return l.GreaterThan(rr), nil
	case "<=":
		return l.LessThanOrEqual(rr), nil
	case ">=":
		return l.GreaterThanOrEqual(rr), nil
	}
	return nil, nil
}

func (r *Resolver) foldUnary(n *ast.Unary) {
	if !r.ctx.EvaluateConstExprs {
		return
	}
	v, ok := constOf(n.Operand)
	if !ok {
		return
	}
	switch n.Operator {
	case "-":
		switch val := v.(type) {
		case int32:
			setConst(n, -val)
		case int64:
			setConst(n, -val)
		case float64:
			setConst(n, -val)
		case decimal.Decimal:
			setConst(n, val.Neg())
		}
	case "!":
		if b, ok := v.(bool); ok {
			setConst(n, !b)
		}
	}
}

func constOf(e ast.Expression) (any, bool) {
	switch n := e.(type) {
	case *ast.Literal:
		if n.IsConst {
			return n.ConstValue, true
		}
	case *ast.Identifier:
		if n.IsConst {
			return n.ConstValue, true
		}
	case *ast.Binary:
		if n.IsConst {
			return n.ConstValue, true
		}
	case *ast.Unary:
		if n.IsConst {
			return n.ConstValue, true
		}
	}
	return nil, false
}

func setConst(e ast.Expression, v any) {
	switch n := e.(type) {
	case *ast.Binary:
		n.IsConst = true
		n.ConstValue = v
	case *ast.Unary:
		n.IsConst = true
		n.ConstValue = v
	}
}

// resolveRegexMatch resolves a =~/!~ (or implicit `it =~`) node, reusing the
// current block's $@ MATCHER capture-array local, or allocating one before
// the current statement if the block has none yet (spec §4.3 "regex capture
// allocation").
// A closure body never reuses its enclosing scope's capture slot: it gets
// its own, since its match may run after the enclosing one's captures have
// already been read.
func (r *Resolver) resolveRegexMatch(n *ast.RegexMatch) types.Type {
	if n.Left != nil {
		r.resolveExpr(n.Left)
	}
	for _, part := range n.Pattern.Parts {
		if part.Expr != nil {
			r.resolveExpr(part.Expr)
		}
	}
	if n.IsSubstitute && n.Replacement != nil {
		for _, part := range n.Replacement.Parts {
			if part.Expr != nil {
				r.resolveExpr(part.Expr)
			}
		}
	}

	b := r.currentBlock()
	const captureVarName = "$@"
	if existing, ok := b.Variables.Get(captureVarName); ok {
		n.CaptureVar = existing
	} else {
		cv := &ast.VarDecl{
			Meta:         ast.NewMeta(n.Pos()),
			Name:         captureVarName,
			DeclaredType: types.Of(types.MATCHER),
		}
		b.InsertBefore(b.CurrentlyResolving, cv)
		b.Variables.Set(captureVarName, cv)
		n.CaptureVar = cv
	}

	n.SetType(types.Of(types.BOOLEAN))
	return n.Type()
}
