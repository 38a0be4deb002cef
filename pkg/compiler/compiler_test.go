package compiler

import (
	"testing"

	"github.com/cxleb/luna/pkg/bytecode"
	"github.com/cxleb/luna/pkg/checker"
	"github.com/cxleb/luna/pkg/parser"
)

func compileSource(t *testing.T, src string) *bytecode.Module {
	t.Helper()
	mod, perr := parser.ParseModule(src)
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	if err := checker.Check(mod, nil); err != nil {
		t.Fatalf("unexpected check error: %v", err)
	}
	return Compile(mod, nil)
}

// maxRegisterIndex walks every instruction a function references and
// returns the highest register index touched, across every operand
// position an opcode can use for a register (spec §8's codegen
// invariant: locals_count >= max register index referenced + 1).
func maxRegisterIndex(fn *bytecode.Function) int {
	max := -1
	bump := func(i uint8) {
		if int(i) > max {
			max = int(i)
		}
	}
	for _, inst := range fn.Code {
		switch inst.Op {
		case bytecode.OpBr, bytecode.OpCallHost:
			// A carries no register for these: Br's A is unused, and
			// CallHost's A is an argument count, not a register index.
		case bytecode.OpCall, bytecode.OpLoadConst, bytecode.OpCondBr:
			bump(inst.A)
		case bytecode.OpArg, bytecode.OpMove:
			bump(inst.A)
			bump(inst.B)
		case bytecode.OpRetVal:
			bump(inst.A)
		case bytecode.OpObjectNew:
			bump(inst.A)
		case bytecode.OpObjectSet, bytecode.OpObjectGet:
			bump(inst.A)
			bump(inst.B)
			bump(inst.C)
		default:
			// arithmetic/comparison family: R[c] <- R[a] op R[b]
			bump(inst.A)
			bump(inst.B)
			bump(inst.C)
		}
	}
	return max
}

func TestLocalsCountBoundsEveryReferencedRegister(t *testing.T) {
	mod := compileSource(t, `
		func helper(a: int, b: int) int { return a + b; }
		func main() int {
			let x = helper(1, 2);
			let arr = [1, 2, 3];
			let y = arr[0];
			if x == 3 { x = x + 1; }
			while x < 10 { x = x + 1; }
			return x + y;
		}
	`)
	for _, fn := range mod.Functions {
		if m := maxRegisterIndex(fn); m >= 0 && int(fn.LocalsCount) < m+1 {
			t.Errorf("function %q: locals_count %d does not cover max register %d", fn.Name, fn.LocalsCount, m)
		}
	}
}

func TestEveryFunctionEndsInReturn(t *testing.T) {
	mod := compileSource(t, `
		func noop() { let x = 1; }
		func main() int { return 1; }
	`)
	for _, fn := range mod.Functions {
		if len(fn.Code) == 0 {
			t.Fatalf("function %q has no code", fn.Name)
		}
		last := fn.Code[len(fn.Code)-1].Op
		if last != bytecode.OpRet && last != bytecode.OpRetVal {
			t.Errorf("function %q ends in %v, want Ret or RetVal", fn.Name, last)
		}
	}
}

// Every branch instruction's S field must land on a valid in-bounds
// instruction offset once finish() has patched every pending branch.
func TestBranchTargetsArePatchedInBounds(t *testing.T) {
	mod := compileSource(t, `
		func main() int {
			let a = 1;
			if a == 1 { a = 2; } else { a = 3; }
			while a < 5 { a = a + 1; }
			return a;
		}
	`)
	for _, fn := range mod.Functions {
		for i, inst := range fn.Code {
			if inst.Op == bytecode.OpBr || inst.Op == bytecode.OpCondBr {
				if int(inst.S) >= len(fn.Code) {
					t.Errorf("instruction %d in %q branches out of bounds: %d >= %d", i, fn.Name, inst.S, len(fn.Code))
				}
			}
		}
	}
}

func TestConstantPoolDedupsAcrossFunctions(t *testing.T) {
	mod := compileSource(t, `
		func one() int { return 10; }
		func two() int { return 10; }
	`)
	count := 0
	for _, c := range mod.Constants {
		if c.Kind == bytecode.ValueInt && c.Int == 10 {
			count++
		}
	}
	if count != 1 {
		t.Errorf("constant 10 interned %d times across both functions, want 1", count)
	}
}

func TestFunctionsArePreRegisteredForForwardRecursiveCalls(t *testing.T) {
	mod := compileSource(t, `
		func fact(n: int) int {
			if n <= 1 { return 1; }
			return n * fact(n - 1);
		}
		func main() int { return fact(5); }
	`)
	if _, ok := mod.FunctionByName("fact"); !ok {
		t.Error("expected fact to be registered in the module's name table")
	}
	if _, ok := mod.FunctionByName("main"); !ok {
		t.Error("expected main to be registered in the module's name table")
	}
}
