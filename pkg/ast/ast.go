// Package ast defines the typed abstract syntax tree produced by
// pkg/parser, annotated in place by pkg/checker, and consumed by
// pkg/compiler. Every node carries its source location (spec §3).
package ast

import (
	luerrors "github.com/cxleb/luna/pkg/errors"
	"github.com/cxleb/luna/pkg/types"
)

// Node is implemented by every statement and expression.
type Node interface {
	Pos() luerrors.Position
}

// --- Expressions ---

// Expr is implemented by every expression node. Every expression has a
// Type slot filled in by the checker; it is types.UnknownType() until
// then and must not remain so after a successful check (except inside
// the body of an array, where Unknown briefly stands in during
// inference — spec §3).
type Expr interface {
	Node
	exprNode()
	ExprType() *types.Type
	SetType(*types.Type)
}

type exprBase struct {
	Position luerrors.Position
	Type     *types.Type
}

func (e *exprBase) Pos() luerrors.Position { return e.Position }
func (e *exprBase) exprNode()              {}
func (e *exprBase) ExprType() *types.Type {
	if e.Type == nil {
		return types.UnknownType()
	}
	return e.Type
}
func (e *exprBase) SetType(t *types.Type) { e.Type = t }

// BinaryOp enumerates the ten binary operators spec §3 lists.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNotEq
	OpLess
	OpGreater
	OpLessEq
	OpGreaterEq
)

func (op BinaryOp) IsComparison() bool {
	return op == OpEq || op == OpNotEq || op == OpLess || op == OpGreater || op == OpLessEq || op == OpGreaterEq
}

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpEq:
		return "=="
	case OpNotEq:
		return "!="
	case OpLess:
		return "<"
	case OpGreater:
		return ">"
	case OpLessEq:
		return "<="
	case OpGreaterEq:
		return ">="
	default:
		return "?"
	}
}

// UnaryOp enumerates the unary operators the grammar parses but never
// constructs (spec §9).
type UnaryOp int

const (
	OpNegate UnaryOp = iota
	OpNot
)

// BinaryExpr is a two-operand expression over one of the ten operators.
type BinaryExpr struct {
	exprBase
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// Unary is parsed but never constructed by the grammar in spec §4.2.
// Kept for completeness of the node family (spec §9).
type Unary struct {
	exprBase
	Op      UnaryOp
	Operand Expr
}

// Call is either a user-function or host-function invocation, resolved
// by the checker (spec §4.3).
type Call struct {
	exprBase
	Callee string
	Args   []Expr

	// ResolvedHost is true once the checker has determined Callee names
	// a host function rather than a module function.
	ResolvedHost bool
}

// Assign is an expression, not a statement: it evaluates to the
// assigned value (spec §4.2).
type Assign struct {
	exprBase
	Target Expr // Identifier or Lookup
	Value  Expr
}

// Lookup is array indexing: Base[Index].
type Lookup struct {
	exprBase
	Base  Expr
	Index Expr
}

// Identifier references a binding by name.
type Identifier struct {
	exprBase
	Name string
}

// Integer is an integer literal.
type Integer struct {
	exprBase
	Value int64
}

// Float is a floating-point literal.
type Float struct {
	exprBase
	Value float64
}

// String is a string literal with its quotes already trimmed.
type String struct {
	exprBase
	Value string
}

// ArrayLiteral is `[ e0, e1, ... ]`.
type ArrayLiteral struct {
	exprBase
	Elements []Expr
}

// ObjectLiteral is `{}` — empty-literal-only, an opaque handle
// (spec §3/§4.3).
type ObjectLiteral struct {
	exprBase
}

// --- Statements ---

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

type stmtBase struct {
	Position luerrors.Position
}

func (s *stmtBase) Pos() luerrors.Position { return s.Position }
func (s *stmtBase) stmtNode()              {}

// If is `if cond Block [else (If|Block)]`.
type If struct {
	stmtBase
	Condition Expr
	Then      *Block
	// Else holds either an *If (else-if chain) or a *Block, nil if
	// there is no else clause.
	Else Stmt
}

// While is `while cond Block`.
type While struct {
	stmtBase
	Condition Expr
	Body      *Block
}

// For is `for IDENT in Expr Block`. Parsed in full; codegen and the
// checker both treat it as a permitted stub (spec §3/§9): the iterated
// expression is evaluated once for its side effects and the loop
// variable is bound but never iterated.
type For struct {
	stmtBase
	Var      string
	Iterable Expr
	Body     *Block
}

// Return is `return [Expr] ;`.
type Return struct {
	stmtBase
	Value Expr // nil for a bare `return;`
}

// VarDecl is `(let|const) IDENT [: Type] = Expr ;`.
type VarDecl struct {
	stmtBase
	Name       string
	Const      bool
	Annotation *types.Type // nil if no `: Type` was written
	Value      Expr
}

// Block is `{ Stmt* }`.
type Block struct {
	stmtBase
	Statements []Stmt
}

// ExprStmt is `Expr ;`.
type ExprStmt struct {
	stmtBase
	Expr Expr
}

// --- Function & Module ---

// Param is one `name: Type` function parameter.
type Param struct {
	Name string
	Type *types.Type
}

// Function is a source-level function declaration.
type Function struct {
	Position   luerrors.Position
	Name       string
	Params     []Param
	ReturnType *types.Type // nil means no declared return value
	Body       *Block
}

func (f *Function) Pos() luerrors.Position { return f.Position }

// Module is an ordered sequence of functions, keyed by name; names are
// unique within a module (spec §3).
type Module struct {
	Functions []*Function
}

// ByName returns the function named name, or nil.
func (m *Module) ByName(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}
