package parser

import (
	"fmt"
	"testing"

	"github.com/cxleb/luna/pkg/ast"
)

// parseExpr wraps a bare expression into a one-statement main() body so the
// grammar's top-level production (Module := {Func}) can parse it.
func parseExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	mod, err := ParseModule(fmt.Sprintf("func main() { %s; }", src))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(mod.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(mod.Functions))
	}
	body := mod.Functions[0].Body.Statements
	if len(body) != 1 {
		t.Fatalf("got %d statements, want 1", len(body))
	}
	stmt, ok := body[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("got statement %T, want *ast.ExprStmt", body[0])
	}
	return stmt.Expr
}

func TestIntegerLiteral(t *testing.T) {
	expr := parseExpr(t, "10")
	lit, ok := expr.(*ast.Integer)
	if !ok {
		t.Fatalf("got expression %T, want *ast.Integer", expr)
	}
	if lit.Value != 10 {
		t.Errorf("got value %d, want 10", lit.Value)
	}
}

func TestFloatLiteral(t *testing.T) {
	lit, ok := parseExpr(t, "10.10").(*ast.Float)
	if !ok {
		t.Fatal("expected *ast.Float")
	}
	if lit.Value != 10.10 {
		t.Errorf("got value %v, want 10.10", lit.Value)
	}
}

func TestStringLiteralStripsQuotes(t *testing.T) {
	lit, ok := parseExpr(t, `"abc"`).(*ast.String)
	if !ok {
		t.Fatal("expected *ast.String")
	}
	if lit.Value != "abc" {
		t.Errorf("got value %q, want %q", lit.Value, "abc")
	}
}

func TestArrayLiteralLength(t *testing.T) {
	lit, ok := parseExpr(t, "[1,2,3]").(*ast.ArrayLiteral)
	if !ok {
		t.Fatal("expected *ast.ArrayLiteral")
	}
	if len(lit.Elements) != 3 {
		t.Errorf("got %d elements, want 3", len(lit.Elements))
	}
}

func TestLookup(t *testing.T) {
	lookup, ok := parseExpr(t, "a[0]").(*ast.Lookup)
	if !ok {
		t.Fatal("expected *ast.Lookup")
	}
	base, ok := lookup.Base.(*ast.Identifier)
	if !ok {
		t.Fatal("expected lookup base to be *ast.Identifier")
	}
	if base.Name != "a" {
		t.Errorf("got base name %q, want %q", base.Name, "a")
	}
	idx, ok := lookup.Index.(*ast.Integer)
	if !ok {
		t.Fatal("expected lookup index to be *ast.Integer")
	}
	if idx.Value != 0 {
		t.Errorf("got index %d, want 0", idx.Value)
	}
}

func TestAssign(t *testing.T) {
	assign, ok := parseExpr(t, "a=10").(*ast.Assign)
	if !ok {
		t.Fatal("expected *ast.Assign")
	}
	target, ok := assign.Target.(*ast.Identifier)
	if !ok {
		t.Fatal("expected assign target to be *ast.Identifier")
	}
	if target.Name != "a" {
		t.Errorf("got target name %q, want %q", target.Name, "a")
	}
	value, ok := assign.Value.(*ast.Integer)
	if !ok {
		t.Fatal("expected assign value to be *ast.Integer")
	}
	if value.Value != 10 {
		t.Errorf("got value %d, want 10", value.Value)
	}
}

func TestPrecedenceMultiplyBindsTighterThanAdd(t *testing.T) {
	be, ok := parseExpr(t, "1+2*3").(*ast.BinaryExpr)
	if !ok {
		t.Fatal("expected *ast.BinaryExpr")
	}
	if be.Op != ast.OpAdd {
		t.Errorf("got top-level op %v, want OpAdd", be.Op)
	}
	if _, ok := be.Left.(*ast.Integer); !ok {
		t.Errorf("got left %T, want *ast.Integer", be.Left)
	}
	right, ok := be.Right.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("got right %T, want *ast.BinaryExpr", be.Right)
	}
	if right.Op != ast.OpMul {
		t.Errorf("got right op %v, want OpMul", right.Op)
	}
}

func TestPrecedenceMultiplyOnLeftBindsTighterThanAdd(t *testing.T) {
	be, ok := parseExpr(t, "1*2+3").(*ast.BinaryExpr)
	if !ok {
		t.Fatal("expected *ast.BinaryExpr")
	}
	if be.Op != ast.OpAdd {
		t.Errorf("got top-level op %v, want OpAdd", be.Op)
	}
	left, ok := be.Left.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("got left %T, want *ast.BinaryExpr", be.Left)
	}
	if left.Op != ast.OpMul {
		t.Errorf("got left op %v, want OpMul", left.Op)
	}
	if _, ok := be.Right.(*ast.Integer); !ok {
		t.Errorf("got right %T, want *ast.Integer", be.Right)
	}
}

func TestEqualityOperator(t *testing.T) {
	be, ok := parseExpr(t, "10==10").(*ast.BinaryExpr)
	if !ok {
		t.Fatal("expected *ast.BinaryExpr")
	}
	if be.Op != ast.OpEq {
		t.Errorf("got op %v, want OpEq", be.Op)
	}
}
