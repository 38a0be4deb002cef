package bytecode

import "testing"

func TestInternConstantDedupsEqualValues(t *testing.T) {
	m := NewModule()
	a := m.InternConstant(IntValue(10))
	b := m.InternConstant(IntValue(10))
	if a != b {
		t.Errorf("got distinct indices %d and %d for equal constants", a, b)
	}
	if len(m.Constants) != 1 {
		t.Errorf("got %d constants, want 1", len(m.Constants))
	}
}

func TestInternConstantKeepsDistinctKindsSeparate(t *testing.T) {
	m := NewModule()
	i := m.InternConstant(IntValue(0))
	n := m.InternConstant(NumberValue(0))
	s := m.InternConstant(StringValue(""))
	if i == n || i == s || n == s {
		t.Errorf("constants of different kinds collapsed: int=%d number=%d string=%d", i, n, s)
	}
	if len(m.Constants) != 3 {
		t.Errorf("got %d constants, want 3", len(m.Constants))
	}
}

func TestAddFunctionRegistersNameTable(t *testing.T) {
	m := NewModule()
	idx := m.AddFunction(&Function{Name: "main"})
	got, ok := m.FunctionByName("main")
	if !ok {
		t.Fatal("expected main to resolve")
	}
	if got != idx {
		t.Errorf("got index %d, want %d", got, idx)
	}

	if _, ok := m.FunctionByName("nope"); ok {
		t.Error("expected an unknown name to not resolve")
	}
}

func TestNewInstEncodesByteOperands(t *testing.T) {
	i := NewInst(OpIntAdd, 1, 2, 3)
	if i.Op != OpIntAdd || i.A != 1 || i.B != 2 || i.C != 3 || i.S != 0 {
		t.Errorf("got %+v, want {Op:OpIntAdd A:1 B:2 C:3 S:0}", i)
	}
}

func TestNewInstSEncodesShortOperand(t *testing.T) {
	i := NewInstS(OpLoadConst, 4, 999)
	if i.Op != OpLoadConst || i.A != 4 || i.S != 999 {
		t.Errorf("got %+v, want {Op:OpLoadConst A:4 S:999}", i)
	}
}
