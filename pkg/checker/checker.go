// Package checker implements the single top-down type-checking pass of
// spec §4.3: it annotates every expression's Type slot and rejects
// ill-typed programs.
package checker

import (
	"fmt"

	"github.com/cxleb/luna/pkg/ast"
	luerrors "github.com/cxleb/luna/pkg/errors"
	"github.com/cxleb/luna/pkg/types"
)

// HostSignature describes one host function's parameter types, for
// arity/type checking of calls that resolve to a host routine (spec
// §4.3's Call rule, §6.3).
type HostSignature struct {
	Params []*types.Type
}

// Checker performs the single top-down traversal over each function
// body in a Module.
type Checker struct {
	module *ast.Module
	hosts  map[string]HostSignature

	currentFn *ast.Function
	err       luerrors.Error
}

// New creates a Checker for module, given the set of host functions
// visible to it. Module functions shadow host functions of the same
// name during resolution (spec §6.3).
func New(module *ast.Module, hosts map[string]HostSignature) *Checker {
	return &Checker{module: module, hosts: hosts}
}

// Check runs the pass over every function in the module and returns
// the first SemaError encountered (spec §4.3). Once an error is
// recorded, every later check returns immediately, so the remaining
// functions are visited but not checked.
func Check(module *ast.Module, hosts map[string]HostSignature) luerrors.Error {
	c := New(module, hosts)
	for _, fn := range module.Functions {
		c.checkFunction(fn)
	}
	return c.err
}

func (c *Checker) fail(pos luerrors.Position, format string, args ...interface{}) {
	if c.err != nil {
		return
	}
	c.err = &luerrors.SemaError{Position: pos, Msg: fmt.Sprintf(format, args...)}
}

func (c *Checker) checkFunction(fn *ast.Function) {
	c.currentFn = fn
	env := newEnv(nil)
	for _, p := range fn.Params {
		env.defineLocal(p.Name, p.Type)
	}
	c.checkBlock(fn.Body, env)
}

func (c *Checker) checkBlock(b *ast.Block, outer *scopeEnv) {
	env := newEnv(outer)
	for _, stmt := range b.Statements {
		c.checkStmt(stmt, env)
		if c.err != nil {
			return
		}
	}
}

func (c *Checker) checkStmt(stmt ast.Stmt, env *scopeEnv) {
	switch s := stmt.(type) {
	case *ast.If:
		c.checkExpr(s.Condition, env)
		c.checkBlock(s.Then, env)
		if s.Else != nil {
			switch e := s.Else.(type) {
			case *ast.If:
				c.checkStmt(e, env)
			case *ast.Block:
				c.checkBlock(e, env)
			}
		}
	case *ast.While:
		c.checkExpr(s.Condition, env)
		c.checkBlock(s.Body, env)
	case *ast.For:
		// Permitted stub (spec §3/§9): the iterated expression is
		// still checked for well-formedness, the loop variable is
		// bound with the element type if the iterable is an array
		// (else Unknown), but no iteration semantics are checked.
		c.checkExpr(s.Iterable, env)
		loopEnv := newEnv(env)
		elemType := types.UnknownType()
		if it := s.Iterable.ExprType(); it.IsArray() {
			elemType = it.Element
		}
		loopEnv.defineLocal(s.Var, elemType)
		c.checkBlock(s.Body, loopEnv)
	case *ast.Return:
		c.checkReturn(s, env)
	case *ast.VarDecl:
		c.checkVarDecl(s, env)
	case *ast.Block:
		c.checkBlock(s, env)
	case *ast.ExprStmt:
		c.checkExpr(s.Expr, env)
	default:
		c.fail(stmt.Pos(), "internal: unhandled statement %T", stmt)
	}
}

func (c *Checker) checkReturn(s *ast.Return, env *scopeEnv) {
	if c.currentFn.ReturnType != nil {
		if s.Value == nil {
			c.fail(s.Pos(), "function %q must return a value of type %s", c.currentFn.Name, c.currentFn.ReturnType)
			return
		}
		c.checkExpr(s.Value, env)
		if c.err != nil {
			return
		}
		if !types.Compare(s.Value.ExprType(), c.currentFn.ReturnType) {
			c.fail(s.Value.Pos(), "cannot return %s from function %q declared to return %s",
				s.Value.ExprType(), c.currentFn.Name, c.currentFn.ReturnType)
		}
		return
	}
	if s.Value != nil {
		c.checkExpr(s.Value, env)
		if c.err != nil {
			return
		}
		c.fail(s.Value.Pos(), "function %q does not declare a return type; cannot return a value", c.currentFn.Name)
	}
}

func (c *Checker) checkVarDecl(s *ast.VarDecl, env *scopeEnv) {
	c.checkExprHinted(s.Value, env, s.Annotation)
	if c.err != nil {
		return
	}
	valType := s.Value.ExprType()
	if s.Annotation != nil {
		if !types.Compare(s.Annotation, valType) {
			c.fail(s.Value.Pos(), "cannot assign %s to variable %q of type %s", valType, s.Name, s.Annotation)
			return
		}
		valType = s.Annotation
	}
	if !env.defineLocal(s.Name, valType) {
		c.fail(s.Pos(), "variable %q already declared in this scope", s.Name)
	}
}

// checkExpr annotates expr.Type in place, with no contextual type hint.
func (c *Checker) checkExpr(expr ast.Expr, env *scopeEnv) {
	c.checkExprHinted(expr, env, nil)
}

// checkExprHinted is checkExpr plus an optional contextual type hint,
// used only to resolve an empty array literal's element type from an
// enclosing `let x: T = ...` annotation (spec §8's nested-empty-array
// property: `let a: [][]int = [[]];` must type-check).
func (c *Checker) checkExprHinted(expr ast.Expr, env *scopeEnv, hint *types.Type) {
	if c.err != nil {
		return
	}
	switch e := expr.(type) {
	case *ast.Integer:
		e.SetType(types.IntegerType())
	case *ast.Float:
		e.SetType(types.NumberType())
	case *ast.String:
		e.SetType(types.StringType())
	case *ast.Identifier:
		t, ok := env.resolve(e.Name)
		if !ok {
			c.fail(e.Pos(), "undefined identifier %q", e.Name)
			return
		}
		e.SetType(t)
	case *ast.BinaryExpr:
		c.checkBinary(e, env)
	case *ast.Unary:
		c.checkExpr(e.Operand, env)
		e.SetType(e.Operand.ExprType())
	case *ast.Assign:
		c.checkAssign(e, env)
	case *ast.Lookup:
		c.checkLookup(e, env)
	case *ast.Call:
		c.checkCall(e, env)
	case *ast.ArrayLiteral:
		c.checkArrayLiteral(e, env, hint)
	case *ast.ObjectLiteral:
		e.SetType(types.ObjectType())
	default:
		c.fail(expr.Pos(), "internal: unhandled expression %T", expr)
	}
}

func (c *Checker) checkBinary(e *ast.BinaryExpr, env *scopeEnv) {
	c.checkExpr(e.Left, env)
	if c.err != nil {
		return
	}
	c.checkExpr(e.Right, env)
	if c.err != nil {
		return
	}
	lt, rt := e.Left.ExprType(), e.Right.ExprType()

	if e.Op.IsComparison() {
		if !types.Compare(lt, rt) {
			c.fail(e.Pos(), "cannot compare %s with %s", lt, rt)
			return
		}
		e.SetType(types.BoolType())
		return
	}

	// Arithmetic: both operands numeric and Compare-equal.
	if !lt.IsNumeric() || !rt.IsNumeric() {
		c.fail(e.Pos(), "operator %s requires numeric operands, got %s and %s", e.Op, lt, rt)
		return
	}
	if !types.Compare(lt, rt) {
		c.fail(e.Pos(), "mismatched numeric types %s and %s for operator %s", lt, rt, e.Op)
		return
	}
	if lt.Kind == types.Number || rt.Kind == types.Number {
		e.SetType(types.NumberType())
	} else {
		e.SetType(types.IntegerType())
	}
}

func (c *Checker) checkAssign(e *ast.Assign, env *scopeEnv) {
	c.checkExpr(e.Target, env)
	if c.err != nil {
		return
	}
	c.checkExpr(e.Value, env)
	if c.err != nil {
		return
	}
	targetType, valueType := e.Target.ExprType(), e.Value.ExprType()
	if !types.Compare(targetType, valueType) {
		c.fail(e.Pos(), "cannot assign %s to %s", valueType, targetType)
		return
	}
	e.SetType(targetType)
}

func (c *Checker) checkLookup(e *ast.Lookup, env *scopeEnv) {
	c.checkExpr(e.Base, env)
	if c.err != nil {
		return
	}
	c.checkExpr(e.Index, env)
	if c.err != nil {
		return
	}
	baseType := e.Base.ExprType()
	if !baseType.IsArray() {
		c.fail(e.Base.Pos(), "cannot index non-array type %s", baseType)
		return
	}
	if !e.Index.ExprType().IsNumeric() {
		c.fail(e.Index.Pos(), "array index must be numeric, got %s", e.Index.ExprType())
		return
	}
	e.SetType(baseType.Element)
}

func (c *Checker) checkArrayLiteral(e *ast.ArrayLiteral, env *scopeEnv, hint *types.Type) {
	if len(e.Elements) == 0 {
		if hint != nil && hint.IsArray() {
			e.SetType(hint)
			return
		}
		c.fail(e.Pos(), "cannot determine array literal type")
		return
	}
	var elemHint *types.Type
	if hint != nil && hint.IsArray() {
		elemHint = hint.Element
	}
	var elemType *types.Type
	for _, el := range e.Elements {
		c.checkExprHinted(el, env, elemHint)
		if c.err != nil {
			return
		}
		if elemType == nil {
			elemType = el.ExprType()
			continue
		}
		if !types.Compare(elemType, el.ExprType()) {
			c.fail(el.Pos(), "array literal elements must share a type: %s vs %s", elemType, el.ExprType())
			return
		}
	}
	e.SetType(types.ArrayOf(elemType))
}

func (c *Checker) checkCall(e *ast.Call, env *scopeEnv) {
	if fn := c.module.ByName(e.Callee); fn != nil {
		if len(fn.Params) != len(e.Args) {
			c.fail(e.Pos(), "function %q expects %d arguments, got %d", e.Callee, len(fn.Params), len(e.Args))
			return
		}
		for i, arg := range e.Args {
			c.checkExpr(arg, env)
			if c.err != nil {
				return
			}
			if !types.Compare(arg.ExprType(), fn.Params[i].Type) {
				c.fail(arg.Pos(), "argument %d to %q: cannot use %s as %s", i+1, e.Callee, arg.ExprType(), fn.Params[i].Type)
				return
			}
		}
		e.ResolvedHost = false
		if fn.ReturnType != nil {
			e.SetType(fn.ReturnType)
		} else {
			e.SetType(types.VoidType())
		}
		return
	}

	if sig, ok := c.hosts[e.Callee]; ok {
		if len(sig.Params) != len(e.Args) {
			c.fail(e.Pos(), "host function %q expects %d arguments, got %d", e.Callee, len(sig.Params), len(e.Args))
			return
		}
		for i, arg := range e.Args {
			c.checkExpr(arg, env)
			if c.err != nil {
				return
			}
			if !types.Compare(arg.ExprType(), sig.Params[i]) {
				c.fail(arg.Pos(), "argument %d to %q: cannot use %s as %s", i+1, e.Callee, arg.ExprType(), sig.Params[i])
				return
			}
		}
		e.ResolvedHost = true
		e.SetType(types.VoidType()) // host functions declare no return value
		return
	}

	c.fail(e.Pos(), "undefined function %q", e.Callee)
}
