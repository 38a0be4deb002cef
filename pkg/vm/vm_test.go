package vm

import (
	"testing"

	"github.com/cxleb/luna/pkg/bytecode"
	"github.com/cxleb/luna/pkg/checker"
	"github.com/cxleb/luna/pkg/compiler"
	"github.com/cxleb/luna/pkg/parser"
)

func run(t *testing.T, mod *bytecode.Module) Value {
	t.Helper()
	val, err := New(mod, nil).Run("main")
	if err != nil {
		t.Fatalf("unexpected vm error: %v", err)
	}
	return val
}

// requireCompiledMain drives a source string through the real
// parser/checker/compiler pipeline and asserts main()'s last_return.
func requireCompiledMain(t *testing.T, src string, want int64) {
	t.Helper()
	mod, perr := parser.ParseModule(src)
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	if err := checker.Check(mod, nil); err != nil {
		t.Fatalf("unexpected check error: %v", err)
	}
	compiled := compiler.Compile(mod, nil)
	got := run(t, compiled).Int
	if got != want {
		t.Errorf("got last_return %d, want %d", got, want)
	}
}

// Scenario 1: load 10, 20; add.i into r2; RetVal r2 => 30.
func TestScenarioIntAdd(t *testing.T) {
	m := bytecode.NewModule()
	c10 := m.InternConstant(bytecode.IntValue(10))
	c20 := m.InternConstant(bytecode.IntValue(20))
	m.AddFunction(&bytecode.Function{
		Name: "main",
		Code: []bytecode.Inst{
			bytecode.NewInstS(bytecode.OpLoadConst, 0, uint16(c10)),
			bytecode.NewInstS(bytecode.OpLoadConst, 1, uint16(c20)),
			bytecode.NewInst(bytecode.OpIntAdd, 0, 1, 2),
			bytecode.NewInst(bytecode.OpRetVal, 2, 0, 0),
		},
		LocalsCount: 3,
	})
	if got := run(t, m).Int; got != 30 {
		t.Errorf("got %d, want 30", got)
	}
}

// Scenario 2: load 10, 10; eq.i into r2; RetVal r2 => true (Int 1).
func TestScenarioIntEqTrue(t *testing.T) {
	m := bytecode.NewModule()
	c10 := m.InternConstant(bytecode.IntValue(10))
	m.AddFunction(&bytecode.Function{
		Name: "main",
		Code: []bytecode.Inst{
			bytecode.NewInstS(bytecode.OpLoadConst, 0, uint16(c10)),
			bytecode.NewInstS(bytecode.OpLoadConst, 1, uint16(c10)),
			bytecode.NewInst(bytecode.OpIntEq, 0, 1, 2),
			bytecode.NewInst(bytecode.OpRetVal, 2, 0, 0),
		},
		LocalsCount: 3,
	})
	if got := run(t, m).Int; got != 1 {
		t.Errorf("got %d, want 1 (true)", got)
	}
}

// Scenario 3: load 10, 10; noteq.i into r2; RetVal r2 => false (Int 0).
func TestScenarioIntNotEqFalse(t *testing.T) {
	m := bytecode.NewModule()
	c10 := m.InternConstant(bytecode.IntValue(10))
	m.AddFunction(&bytecode.Function{
		Name: "main",
		Code: []bytecode.Inst{
			bytecode.NewInstS(bytecode.OpLoadConst, 0, uint16(c10)),
			bytecode.NewInstS(bytecode.OpLoadConst, 1, uint16(c10)),
			bytecode.NewInst(bytecode.OpIntNotEq, 0, 1, 2),
			bytecode.NewInst(bytecode.OpRetVal, 2, 0, 0),
		},
		LocalsCount: 3,
	})
	if got := run(t, m).Int; got != 0 {
		t.Errorf("got %d, want 0 (false)", got)
	}
}

// Scenario 4: r0 := 10; Br L; r0 += 10 (skipped); L: r0 += 10; RetVal r0
// => 20, proving a forward branch actually skips the instruction between
// it and its target, and that the constant pool dedups equal literals.
func TestScenarioForwardBranchSkipsMiddleAdd(t *testing.T) {
	m := bytecode.NewModule()
	c10 := m.InternConstant(bytecode.IntValue(10))
	if dup := m.InternConstant(bytecode.IntValue(10)); dup != c10 {
		t.Fatalf("constant pool failed to dedup identical literals: %d != %d", dup, c10)
	}

	code := []bytecode.Inst{
		bytecode.NewInstS(bytecode.OpLoadConst, 0, uint16(c10)), // 0: r0 := 10
		bytecode.NewInstS(bytecode.OpBr, 0, 4),                  // 1: Br -> 4
		bytecode.NewInst(bytecode.OpIntAdd, 0, 0, 0),            // 2: (skipped) r0 += r0
		bytecode.NewInstS(bytecode.OpLoadConst, 1, uint16(c10)), // 3: (skipped) r1 := 10
		bytecode.NewInstS(bytecode.OpLoadConst, 1, uint16(c10)), // 4: L: r1 := 10
		bytecode.NewInst(bytecode.OpIntAdd, 0, 1, 0),            // 5: r0 += r1
		bytecode.NewInst(bytecode.OpRetVal, 0, 0, 0),            // 6: RetVal r0
	}
	m.AddFunction(&bytecode.Function{Name: "main", Code: code, LocalsCount: 2})

	if got := run(t, m).Int; got != 20 {
		t.Errorf("got %d, want 20", got)
	}
}

// Scenario 5 (branch-if-zero polarity, spec §4.4/§9):
// r0:=10; r1:=cond; CondBr r1,L; r0+=10; L: r0+=10; RetVal r0.
// true (nonzero) does not branch, so both adds run => 30; false (zero)
// branches, skipping the first add => 20.
func TestScenarioCondBrTrueDoesNotBranch(t *testing.T) {
	if got := runCondBrScenario(t, true).Int; got != 30 {
		t.Errorf("got %d, want 30", got)
	}
}

func TestScenarioCondBrFalseBranches(t *testing.T) {
	if got := runCondBrScenario(t, false).Int; got != 20 {
		t.Errorf("got %d, want 20", got)
	}
}

func runCondBrScenario(t *testing.T, cond bool) Value {
	t.Helper()
	m := bytecode.NewModule()
	c10 := m.InternConstant(bytecode.IntValue(10))
	condInt := int64(0)
	if cond {
		condInt = 1
	}
	cCond := m.InternConstant(bytecode.IntValue(condInt))

	code := []bytecode.Inst{
		bytecode.NewInstS(bytecode.OpLoadConst, 0, uint16(c10)),   // 0: r0 := 10
		bytecode.NewInstS(bytecode.OpLoadConst, 1, uint16(cCond)), // 1: r1 := cond
		bytecode.NewInstS(bytecode.OpCondBr, 1, 5),                // 2: CondBr r1, L(=5)
		bytecode.NewInstS(bytecode.OpLoadConst, 2, uint16(c10)),   // 3: r2 := 10
		bytecode.NewInst(bytecode.OpIntAdd, 0, 2, 0),              // 4: r0 += r2 (skipped if branch taken)
		bytecode.NewInstS(bytecode.OpLoadConst, 2, uint16(c10)),   // 5: L: r2 := 10
		bytecode.NewInst(bytecode.OpIntAdd, 0, 2, 0),              // 6: r0 += r2 (always runs)
		bytecode.NewInst(bytecode.OpRetVal, 0, 0, 0),              // 7: RetVal r0
	}
	m.AddFunction(&bytecode.Function{Name: "main", Code: code, LocalsCount: 3})

	return run(t, m)
}

// Scenario 6: func main() int { let a = 1; while a < 5 { a = a + 1; } return a; }
// driven end-to-end through the real pipeline, exercising While's
// lowering together with the VM's branch loop.
func TestScenarioWhileLoopIntegration(t *testing.T) {
	requireCompiledMain(t, `func main() int { let a = 1; while a < 5 { a = a + 1; } return a; }`, 5)
}

func TestScenarioRecursiveCall(t *testing.T) {
	requireCompiledMain(t, `
		func fact(n: int) int {
			if n <= 1 { return 1; }
			return n * fact(n - 1);
		}
		func main() int { return fact(5); }
	`, 120)
}
