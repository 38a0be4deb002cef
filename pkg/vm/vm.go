package vm

import (
	"fmt"

	"github.com/cxleb/luna/pkg/bytecode"
)

// VM is a register-based interpreter over one bytecode.Module. Its
// state is exactly spec §4.5's `{frames, registers, heap, environment,
// last_return}`. A module is immutable once built and may be shared
// across VM instances; each instance carries its own register vector
// and heap (spec §5).
type VM struct {
	module *bytecode.Module
	env    Environment

	registers []Value
	frames    []frame
	base, top int

	heap       *Heap
	constCells []*Cell // one entry per string constant, nil otherwise

	lastReturn Value
	halted     bool
}

// New constructs a VM over module. env may be nil, in which case any
// CallHost instruction is a no-op (an empty environment, per spec
// §8's "all scenarios drive an empty environment unless a host is
// named").
func New(module *bytecode.Module, env Environment) *VM {
	vm := &VM{
		module:     module,
		env:        env,
		heap:       newHeap(),
		constCells: make([]*Cell, len(module.Constants)),
	}
	for i, c := range module.Constants {
		if c.Kind == bytecode.ValueString {
			vm.constCells[i] = vm.heap.allocString(c.Str)
		}
	}
	return vm
}

// Run executes the named function to completion and returns its
// return value (the zero Value for a void function). A failed
// assert (spec §5's host assert routine) is recovered here and
// reported as a returned error rather than crashing the process; any
// other panic is a genuine bug and is left to propagate.
func (vm *VM) Run(name string) (val Value, err error) {
	idx, ok := vm.module.FunctionByName(name)
	if !ok {
		return Value{}, fmt.Errorf("vm: no such function %q", name)
	}
	vm.frames = nil
	vm.base, vm.top = 0, 0
	vm.halted = false
	vm.lastReturn = Value{}

	defer func() {
		if r := recover(); r != nil {
			af, ok := r.(AssertionFailed)
			if !ok {
				panic(r)
			}
			val, err = Value{}, af
		}
	}()

	if err := vm.pushFrame(idx, 0); err != nil {
		return Value{}, err
	}
	if err := vm.dispatch(); err != nil {
		return Value{}, err
	}
	return vm.lastReturn, nil
}

func (vm *VM) ensureCapacity(n int) {
	if n <= len(vm.registers) {
		return
	}
	grown := make([]Value, n)
	copy(grown, vm.registers)
	vm.registers = grown
}

func (vm *VM) pushFrame(funcIdx int, returnSlot uint8) error {
	if len(vm.frames) >= maxFrames {
		return fmt.Errorf("vm: stack overflow calling %q", vm.module.Functions[funcIdx].Name)
	}
	fn := vm.module.Functions[funcIdx]
	newBase := vm.top
	vm.ensureCapacity(newBase + int(fn.LocalsCount))
	vm.frames = append(vm.frames, frame{
		funcIdx:     funcIdx,
		localsCount: fn.LocalsCount,
		prevBase:    vm.base,
		returnSlot:  returnSlot,
	})
	vm.base = newBase
	vm.top = newBase + int(fn.LocalsCount)
	return nil
}

// popFrame pops the active frame, writing val into the caller's
// return slot unless the frame stack is now empty, in which case val
// becomes the VM's exposed last_return and execution halts (spec
// §4.5).
func (vm *VM) popFrame(val Value) {
	cur := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		vm.lastReturn = val
		vm.halted = true
		return
	}
	vm.base = cur.prevBase
	vm.top = vm.base + int(vm.frames[len(vm.frames)-1].localsCount)
	vm.registers[vm.base+int(cur.returnSlot)] = val
}

func (vm *VM) dispatch() error {
	for !vm.halted {
		fr := &vm.frames[len(vm.frames)-1]
		fn := vm.module.Functions[fr.funcIdx]
		if fr.ip >= len(fn.Code) {
			return fmt.Errorf("vm: ip %d out of range in %q (%d instructions)", fr.ip, fn.Name, len(fn.Code))
		}
		inst := fn.Code[fr.ip]
		fr.ip++

		switch inst.Op {
		case bytecode.OpBr:
			fr.ip = int(inst.S)

		case bytecode.OpCondBr:
			if vm.reg(inst.A).Int == 0 {
				fr.ip = int(inst.S)
			}

		case bytecode.OpArg:
			slot := vm.top + int(inst.A)
			vm.ensureCapacity(slot + 1)
			vm.registers[slot] = vm.reg(inst.B)

		case bytecode.OpCall:
			if err := vm.pushFrame(int(inst.S), inst.A); err != nil {
				return err
			}

		case bytecode.OpCallHost:
			nargs := int(inst.A)
			hostID := int(inst.S)
			vm.ensureCapacity(vm.top + nargs)
			args := vm.registers[vm.top : vm.top+nargs]
			if vm.env != nil {
				vm.env.Invoke(vm, hostID, args)
			}

		case bytecode.OpRet:
			vm.popFrame(Value{})

		case bytecode.OpRetVal:
			vm.popFrame(vm.reg(inst.A))

		case bytecode.OpMove:
			vm.setReg(inst.A, vm.reg(inst.B))

		case bytecode.OpObjectNew:
			vm.setReg(inst.A, Value{Obj: vm.heap.allocObject()})

		case bytecode.OpObjectSet:
			base := vm.reg(inst.A)
			idx := vm.reg(inst.B)
			// Set's bool is unused here on purpose: base.Obj not being an
			// object cell is malformed-but-decodable bytecode (spec
			// §4.5), and the defensive response is to leave it untouched.
			base.Obj.Set(idx.Int, vm.reg(inst.C))

		case bytecode.OpObjectGet:
			base := vm.reg(inst.B)
			idx := vm.reg(inst.C)
			v, ok := base.Obj.Get(idx.Int)
			if !ok {
				v = Value{}
			}
			vm.setReg(inst.A, v)

		case bytecode.OpLoadConst:
			vm.setReg(inst.A, vm.loadConst(int(inst.S)))

		case bytecode.OpNumberAdd, bytecode.OpNumberSub, bytecode.OpNumberMul, bytecode.OpNumberDiv,
			bytecode.OpNumberEq, bytecode.OpNumberNotEq, bytecode.OpNumberGr, bytecode.OpNumberLess,
			bytecode.OpNumberGrEq, bytecode.OpNumberLessEq:
			l, r := vm.reg(inst.A).Number, vm.reg(inst.B).Number
			vm.setReg(inst.C, numberOp(inst.Op, l, r))

		case bytecode.OpIntAdd, bytecode.OpIntSub, bytecode.OpIntMul, bytecode.OpIntDiv,
			bytecode.OpIntEq, bytecode.OpIntNotEq, bytecode.OpIntGr, bytecode.OpIntLess,
			bytecode.OpIntGrEq, bytecode.OpIntLessEq:
			l, r := vm.reg(inst.A).Int, vm.reg(inst.B).Int
			vm.setReg(inst.C, intOp(inst.Op, l, r))

		case bytecode.OpConvert, bytecode.OpTruncate:
			return fmt.Errorf("vm: %s is reserved and never emitted", inst.Op)

		default:
			return fmt.Errorf("vm: unhandled opcode %s", inst.Op)
		}
	}
	return nil
}

func (vm *VM) reg(i uint8) Value {
	return vm.registers[vm.base+int(i)]
}

func (vm *VM) setReg(i uint8, v Value) {
	vm.registers[vm.base+int(i)] = v
}

func (vm *VM) loadConst(idx int) Value {
	c := vm.module.Constants[idx]
	switch c.Kind {
	case bytecode.ValueInt:
		return Value{Int: c.Int}
	case bytecode.ValueNumber:
		return Value{Number: c.Number}
	case bytecode.ValueString:
		return Value{Obj: vm.constCells[idx]}
	default:
		panic(fmt.Sprintf("vm: unhandled constant kind %d", c.Kind))
	}
}

// boolValue encodes a boolean result in the Int lane — the untagged
// Value has no dedicated boolean field (spec §3); the grammar has no
// boolean literal either, so every bool a program observes comes from
// a comparison opcode and is consumed directly by CondBr's zero test.
func boolValue(b bool) Value {
	if b {
		return Value{Int: 1}
	}
	return Value{Int: 0}
}

func intOp(op bytecode.OpCode, a, b int64) Value {
	switch op {
	case bytecode.OpIntAdd:
		return Value{Int: a + b}
	case bytecode.OpIntSub:
		return Value{Int: a - b}
	case bytecode.OpIntMul:
		return Value{Int: a * b}
	case bytecode.OpIntDiv:
		return Value{Int: a / b}
	case bytecode.OpIntEq:
		return boolValue(a == b)
	case bytecode.OpIntNotEq:
		return boolValue(a != b)
	case bytecode.OpIntGr:
		return boolValue(a > b)
	case bytecode.OpIntLess:
		return boolValue(a < b)
	case bytecode.OpIntGrEq:
		return boolValue(a >= b)
	case bytecode.OpIntLessEq:
		return boolValue(a <= b)
	default:
		panic(fmt.Sprintf("vm: %s is not an integer op", op))
	}
}

func numberOp(op bytecode.OpCode, a, b float64) Value {
	switch op {
	case bytecode.OpNumberAdd:
		return Value{Number: a + b}
	case bytecode.OpNumberSub:
		return Value{Number: a - b}
	case bytecode.OpNumberMul:
		return Value{Number: a * b}
	case bytecode.OpNumberDiv:
		return Value{Number: a / b}
	case bytecode.OpNumberEq:
		return boolValue(a == b)
	case bytecode.OpNumberNotEq:
		return boolValue(a != b)
	case bytecode.OpNumberGr:
		return boolValue(a > b)
	case bytecode.OpNumberLess:
		return boolValue(a < b)
	case bytecode.OpNumberGrEq:
		return boolValue(a >= b)
	case bytecode.OpNumberLessEq:
		return boolValue(a <= b)
	default:
		panic(fmt.Sprintf("vm: %s is not a number op", op))
	}
}

// LastReturn exposes the VM's last_return slot directly, for tests
// that only need the value without re-deriving it from Run's result.
func (vm *VM) LastReturn() Value { return vm.lastReturn }
