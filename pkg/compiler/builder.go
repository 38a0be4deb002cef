package compiler

import "github.com/cxleb/luna/pkg/bytecode"

// label is an opaque handle returned by newLabel, resolved to a real
// instruction offset by markLabel and patched into the instruction
// stream once the function body is fully emitted (spec §4.4's
// label/patch idiom, grounded in original_source/src/shared/builder.h's
// FunctionBuilder::new_label/mark_label split).
type label int

type pendingBranch struct {
	instrIndex int
	label      label
}

// functionBuilder accumulates one function's instruction stream. It
// owns the register allocator and the lexical scope stack for that
// function's body.
type functionBuilder struct {
	module *bytecode.Module

	code     []bytecode.Inst
	pending  []pendingBranch
	labelPos []int // -1 until markLabel is called

	regs   *registerAllocator
	scopes *symbolScope
}

func newFunctionBuilder(module *bytecode.Module) *functionBuilder {
	fb := &functionBuilder{module: module, regs: newRegisterAllocator()}
	fb.pushScope()
	return fb
}

func (fb *functionBuilder) pushScope() { fb.scopes = newSymbolScope(fb.scopes) }
func (fb *functionBuilder) popScope()  { fb.scopes = fb.scopes.outer }

func (fb *functionBuilder) createLocal(name string) Register {
	r := fb.regs.allocLocal()
	fb.scopes.define(name, r)
	return r
}

func (fb *functionBuilder) resolveLocal(name string) (Register, bool) {
	return fb.scopes.resolve(name)
}

func (fb *functionBuilder) allocTemp() Register { return fb.regs.allocTemp() }
func (fb *functionBuilder) freeTemp(r Register)  { fb.regs.freeTemp(r) }

func (fb *functionBuilder) emit(i bytecode.Inst) int {
	fb.code = append(fb.code, i)
	return len(fb.code) - 1
}

func (fb *functionBuilder) newLabel() label {
	fb.labelPos = append(fb.labelPos, -1)
	return label(len(fb.labelPos) - 1)
}

// markLabel binds l to the offset of the next instruction to be
// emitted.
func (fb *functionBuilder) markLabel(l label) {
	fb.labelPos[l] = len(fb.code)
}

func (fb *functionBuilder) br(l label) {
	idx := fb.emit(bytecode.NewInstS(bytecode.OpBr, 0, 0))
	fb.pending = append(fb.pending, pendingBranch{instrIndex: idx, label: l})
}

func (fb *functionBuilder) condBr(cond Register, l label) {
	idx := fb.emit(bytecode.NewInstS(bytecode.OpCondBr, cond, 0))
	fb.pending = append(fb.pending, pendingBranch{instrIndex: idx, label: l})
}

// finish patches every pending branch target and appends a trailing
// Ret if the body fell off the end without one (spec §4.4: "If the
// last emitted instruction is not a return, a bare Ret is appended").
// A Ret is also appended when a label was marked past the last
// instruction, so every patched branch target is an in-bounds offset.
func (fb *functionBuilder) finish(name string) *bytecode.Function {
	for _, p := range fb.pending {
		target := fb.labelPos[p.label]
		inst := fb.code[p.instrIndex]
		inst.S = uint16(target)
		fb.code[p.instrIndex] = inst
	}
	n := len(fb.code)
	needRet := n == 0 || (fb.code[n-1].Op != bytecode.OpRet && fb.code[n-1].Op != bytecode.OpRetVal)
	for _, pos := range fb.labelPos {
		if pos == n {
			needRet = true
		}
	}
	if needRet {
		fb.emit(bytecode.NewInst(bytecode.OpRet, 0, 0, 0))
	}
	return &bytecode.Function{
		Name:        name,
		Code:        fb.code,
		LocalsCount: fb.regs.localsCount(),
	}
}
