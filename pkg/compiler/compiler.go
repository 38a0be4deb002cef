// Package compiler lowers a type-checked ast.Module into a
// bytecode.Module: one register-based instruction stream per function
// (spec §4.4).
//
// The checker has already rejected anything that would make lowering
// ambiguous — every Expr carries a concrete type, every Call knows
// whether it resolves to a module function or a host routine — so
// nothing here re-derives type information; it only consumes it.
package compiler

import (
	"fmt"

	"github.com/cxleb/luna/pkg/ast"
	"github.com/cxleb/luna/pkg/bytecode"
	"github.com/cxleb/luna/pkg/types"
)

// ctx carries the state shared across every function body being
// compiled: the output module (for constant interning and function
// lookup) and the host function name→id table the VM will dispatch
// CallHost against (spec §6.3).
type ctx struct {
	mod       *bytecode.Module
	hostIndex map[string]int
}

// Compile lowers every function in mod into bytecode, in declaration
// order. hostIndex must assign every host function name the checker
// was given a stable index, matching the order the VM's Environment
// registers them in (spec §4.4, §6.3).
func Compile(mod *ast.Module, hostIndex map[string]int) *bytecode.Module {
	out := bytecode.NewModule()
	c := &ctx{mod: out, hostIndex: hostIndex}

	// Pre-register every function name so forward and recursive calls
	// resolve to a stable index before any body is lowered.
	for _, fn := range mod.Functions {
		out.AddFunction(&bytecode.Function{Name: fn.Name})
	}
	for i, fn := range mod.Functions {
		out.Functions[i] = c.compileFunction(fn)
	}
	return out
}

func (c *ctx) compileFunction(fn *ast.Function) *bytecode.Function {
	fb := newFunctionBuilder(c.mod)
	for _, p := range fn.Params {
		fb.createLocal(p.Name)
	}
	c.compileBlock(fn.Body, fb)
	return fb.finish(fn.Name)
}

func (c *ctx) compileBlock(b *ast.Block, fb *functionBuilder) {
	fb.pushScope()
	for _, s := range b.Statements {
		c.compileStmt(s, fb)
	}
	fb.popScope()
}

func (c *ctx) compileStmt(stmt ast.Stmt, fb *functionBuilder) {
	switch s := stmt.(type) {
	case *ast.If:
		c.compileIf(s, fb)
	case *ast.While:
		c.compileWhile(s, fb)
	case *ast.For:
		// Permitted stub (spec §3/§9, SPEC_FULL.md §7): the iterable is
		// evaluated once for its side effects and discarded; no
		// iteration is emitted.
		v := c.compileExpr(s.Iterable, fb)
		c.free(fb, v)
	case *ast.Return:
		if s.Value == nil {
			fb.emit(bytecode.NewInst(bytecode.OpRet, 0, 0, 0))
			return
		}
		v := c.compileExpr(s.Value, fb)
		fb.emit(bytecode.NewInst(bytecode.OpRetVal, v.reg, 0, 0))
		c.free(fb, v)
	case *ast.VarDecl:
		reg := fb.createLocal(s.Name)
		c.compileInto(s.Value, fb, reg)
	case *ast.Block:
		c.compileBlock(s, fb)
	case *ast.ExprStmt:
		v := c.compileExpr(s.Expr, fb)
		c.free(fb, v)
	default:
		panic(fmt.Sprintf("compiler: unhandled statement %T", stmt))
	}
}

func (c *ctx) compileIf(s *ast.If, fb *functionBuilder) {
	elseOrEnd := fb.newLabel()
	cond := c.compileExpr(s.Condition, fb)
	fb.condBr(cond.reg, elseOrEnd)
	c.free(fb, cond)

	c.compileBlock(s.Then, fb)

	if s.Else == nil {
		fb.markLabel(elseOrEnd)
		return
	}
	end := fb.newLabel()
	fb.br(end)
	fb.markLabel(elseOrEnd)
	switch e := s.Else.(type) {
	case *ast.If:
		c.compileIf(e, fb)
	case *ast.Block:
		c.compileBlock(e, fb)
	default:
		panic(fmt.Sprintf("compiler: unhandled else clause %T", s.Else))
	}
	fb.markLabel(end)
}

func (c *ctx) compileWhile(s *ast.While, fb *functionBuilder) {
	start := fb.newLabel()
	fb.markLabel(start)
	cond := c.compileExpr(s.Condition, fb)
	end := fb.newLabel()
	fb.condBr(cond.reg, end)
	c.free(fb, cond)

	c.compileBlock(s.Body, fb)
	fb.br(start)
	fb.markLabel(end)
}

// result is the outcome of compiling an expression without a
// destination hint: the register holding the value, and whether that
// register is a temporary the caller must free once done with it.
type result struct {
	reg  Register
	temp bool
}

func (c *ctx) free(fb *functionBuilder, r result) {
	if r.temp {
		fb.freeTemp(r.reg)
	}
}

// compileExpr evaluates e into whichever register is cheapest: a
// bare identifier returns its local register directly with no copy;
// everything else gets a fresh temporary.
func (c *ctx) compileExpr(e ast.Expr, fb *functionBuilder) result {
	if id, ok := e.(*ast.Identifier); ok {
		r, ok := fb.resolveLocal(id.Name)
		if !ok {
			panic(fmt.Sprintf("compiler: unresolved identifier %q survived checking", id.Name))
		}
		return result{reg: r, temp: false}
	}
	dst := fb.allocTemp()
	c.compileInto(e, fb, dst)
	return result{reg: dst, temp: true}
}

// compileInto evaluates e and leaves its value in dst, whatever dst
// happens to be (a named local's register or a temporary).
func (c *ctx) compileInto(e ast.Expr, fb *functionBuilder, dst Register) {
	switch e := e.(type) {
	case *ast.Integer:
		idx := c.mod.InternConstant(bytecode.IntValue(e.Value))
		fb.emit(bytecode.NewInstS(bytecode.OpLoadConst, dst, uint16(idx)))
	case *ast.Float:
		idx := c.mod.InternConstant(bytecode.NumberValue(e.Value))
		fb.emit(bytecode.NewInstS(bytecode.OpLoadConst, dst, uint16(idx)))
	case *ast.String:
		idx := c.mod.InternConstant(bytecode.StringValue(e.Value))
		fb.emit(bytecode.NewInstS(bytecode.OpLoadConst, dst, uint16(idx)))
	case *ast.Identifier:
		r, ok := fb.resolveLocal(e.Name)
		if !ok {
			panic(fmt.Sprintf("compiler: unresolved identifier %q survived checking", e.Name))
		}
		if r != dst {
			fb.emit(bytecode.NewInst(bytecode.OpMove, dst, r, 0))
		}
	case *ast.Unary:
		// Parsed but never constructed by this parser (spec §9); handle
		// defensively as a pass-through so a future unary operator has
		// somewhere to hang its lowering.
		v := c.compileExpr(e.Operand, fb)
		if v.reg != dst {
			fb.emit(bytecode.NewInst(bytecode.OpMove, dst, v.reg, 0))
		}
		c.free(fb, v)
	case *ast.BinaryExpr:
		c.compileBinaryInto(e, fb, dst)
	case *ast.Assign:
		c.compileAssignInto(e, fb, dst)
	case *ast.Lookup:
		base := c.compileExpr(e.Base, fb)
		idx := c.compileExpr(e.Index, fb)
		fb.emit(bytecode.NewInst(bytecode.OpObjectGet, dst, base.reg, idx.reg))
		c.free(fb, base)
		c.free(fb, idx)
	case *ast.Call:
		c.compileCallInto(e, fb, dst)
	case *ast.ArrayLiteral:
		c.compileArrayLiteralInto(e, fb, dst)
	case *ast.ObjectLiteral:
		fb.emit(bytecode.NewInst(bytecode.OpObjectNew, dst, 0, 0))
	default:
		panic(fmt.Sprintf("compiler: unhandled expression %T", e))
	}
}

// binaryOpcode maps a checked binary operator to its integer/number
// specialization by the left operand's static type (spec §4.4's
// "Arithmetic specialization").
func binaryOpcode(op ast.BinaryOp, lhsIsInt bool) bytecode.OpCode {
	if lhsIsInt {
		switch op {
		case ast.OpAdd:
			return bytecode.OpIntAdd
		case ast.OpSub:
			return bytecode.OpIntSub
		case ast.OpMul:
			return bytecode.OpIntMul
		case ast.OpDiv:
			return bytecode.OpIntDiv
		case ast.OpEq:
			return bytecode.OpIntEq
		case ast.OpNotEq:
			return bytecode.OpIntNotEq
		case ast.OpGreater:
			return bytecode.OpIntGr
		case ast.OpLess:
			return bytecode.OpIntLess
		case ast.OpGreaterEq:
			return bytecode.OpIntGrEq
		case ast.OpLessEq:
			return bytecode.OpIntLessEq
		}
	} else {
		switch op {
		case ast.OpAdd:
			return bytecode.OpNumberAdd
		case ast.OpSub:
			return bytecode.OpNumberSub
		case ast.OpMul:
			return bytecode.OpNumberMul
		case ast.OpDiv:
			return bytecode.OpNumberDiv
		case ast.OpEq:
			return bytecode.OpNumberEq
		case ast.OpNotEq:
			return bytecode.OpNumberNotEq
		case ast.OpGreater:
			return bytecode.OpNumberGr
		case ast.OpLess:
			return bytecode.OpNumberLess
		case ast.OpGreaterEq:
			return bytecode.OpNumberGrEq
		case ast.OpLessEq:
			return bytecode.OpNumberLessEq
		}
	}
	panic(fmt.Sprintf("compiler: unhandled binary operator %v", op))
}

func (c *ctx) compileBinaryInto(e *ast.BinaryExpr, fb *functionBuilder, dst Register) {
	l := c.compileExpr(e.Left, fb)
	r := c.compileExpr(e.Right, fb)
	op := binaryOpcode(e.Op, e.Left.ExprType().Kind == types.Integer)
	fb.emit(bytecode.NewInst(op, l.reg, r.reg, dst))
	c.free(fb, l)
	c.free(fb, r)
}

func (c *ctx) compileAssignInto(e *ast.Assign, fb *functionBuilder, dst Register) {
	switch t := e.Target.(type) {
	case *ast.Identifier:
		local, ok := fb.resolveLocal(t.Name)
		if !ok {
			panic(fmt.Sprintf("compiler: unresolved identifier %q survived checking", t.Name))
		}
		c.compileInto(e.Value, fb, local)
		if local != dst {
			fb.emit(bytecode.NewInst(bytecode.OpMove, dst, local, 0))
		}
	case *ast.Lookup:
		base := c.compileExpr(t.Base, fb)
		idx := c.compileExpr(t.Index, fb)
		val := c.compileExpr(e.Value, fb)
		fb.emit(bytecode.NewInst(bytecode.OpObjectSet, base.reg, idx.reg, val.reg))
		if val.reg != dst {
			fb.emit(bytecode.NewInst(bytecode.OpMove, dst, val.reg, 0))
		}
		c.free(fb, base)
		c.free(fb, idx)
		c.free(fb, val)
	default:
		panic(fmt.Sprintf("compiler: unhandled assignment target %T", e.Target))
	}
}

func (c *ctx) compileCallInto(e *ast.Call, fb *functionBuilder, dst Register) {
	args := make([]result, len(e.Args))
	for i, a := range e.Args {
		args[i] = c.compileExpr(a, fb)
		fb.emit(bytecode.NewInst(bytecode.OpArg, uint8(i), args[i].reg, 0))
	}
	for _, a := range args {
		c.free(fb, a)
	}

	if e.ResolvedHost {
		hostID, ok := c.hostIndex[e.Callee]
		if !ok {
			panic(fmt.Sprintf("compiler: host function %q has no assigned id", e.Callee))
		}
		fb.emit(bytecode.NewInstS(bytecode.OpCallHost, uint8(len(e.Args)), uint16(hostID)))
		return
	}
	funcIdx, ok := c.mod.FunctionByName(e.Callee)
	if !ok {
		panic(fmt.Sprintf("compiler: function %q has no assigned id", e.Callee))
	}
	fb.emit(bytecode.NewInstS(bytecode.OpCall, dst, uint16(funcIdx)))
}

func (c *ctx) compileArrayLiteralInto(e *ast.ArrayLiteral, fb *functionBuilder, dst Register) {
	fb.emit(bytecode.NewInst(bytecode.OpObjectNew, dst, 0, 0))
	for i, el := range e.Elements {
		val := c.compileExpr(el, fb)
		idxConst := c.mod.InternConstant(bytecode.IntValue(int64(i)))
		idxReg := fb.allocTemp()
		fb.emit(bytecode.NewInstS(bytecode.OpLoadConst, idxReg, uint16(idxConst)))
		fb.emit(bytecode.NewInst(bytecode.OpObjectSet, dst, idxReg, val.reg))
		fb.freeTemp(idxReg)
		c.free(fb, val)
	}
}
