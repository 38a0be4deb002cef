// Package types implements the closed type lattice of spec §3: the
// handful of built-in kinds, one-dimensional arrays over them, and a
// function type shape reserved for named functions.
package types

import "fmt"

// Kind discriminates the Type variants.
type Kind uint8

const (
	Unknown Kind = iota
	Integer
	Number
	Bool
	String
	Array
	Function

	// Object is the opaque {}-literal handle type of spec §3/§4.3. It
	// is not part of spec's headline Type sum, but the checker needs a
	// concrete, self-comparing kind for object literals rather than
	// reusing Unknown (which spec says must not survive checking of
	// non-array values).
	Object

	// Void is the "no value" result of a Call to a function or host
	// routine that declares no return type (spec §4.3's Call rule:
	// "result = declared return (or void)"). Distinct from Unknown so
	// that the checker's "every accepted Expr has a non-Unknown type"
	// invariant (spec §8) holds even for void calls.
	Void
)

// Type is structurally shared and immutable: primitive kinds are
// interned singletons (mirroring the teacher's int_type()/number_type()
// pattern in original_source/src/shared/type.h), so two Types can be
// compared cheaply before falling back to Compare for composite kinds.
type Type struct {
	Kind Kind

	// Array only.
	Element *Type

	// Function only.
	Return *Type // nil means "void"
	Params []*Type
}

var (
	unknownType = &Type{Kind: Unknown}
	integerType = &Type{Kind: Integer}
	numberType  = &Type{Kind: Number}
	boolType    = &Type{Kind: Bool}
	stringType  = &Type{Kind: String}
	objectType  = &Type{Kind: Object}
	voidType    = &Type{Kind: Void}
)

func UnknownType() *Type { return unknownType }
func IntegerType() *Type { return integerType }
func NumberType() *Type  { return numberType }
func BoolType() *Type    { return boolType }
func StringType() *Type  { return stringType }
func ObjectType() *Type  { return objectType }
func VoidType() *Type    { return voidType }

// ArrayOf builds an array type over element. Not interned: array types
// are built on demand from an arbitrary element type.
func ArrayOf(element *Type) *Type {
	return &Type{Kind: Array, Element: element}
}

// FunctionOf builds a function type, used only for named functions
// (spec §3).
func FunctionOf(ret *Type, params []*Type) *Type {
	return &Type{Kind: Function, Return: ret, Params: params}
}

// IsNumeric reports whether t is Integer or Number.
func (t *Type) IsNumeric() bool {
	return t != nil && (t.Kind == Integer || t.Kind == Number)
}

func (t *Type) IsUnknown() bool { return t != nil && t.Kind == Unknown }
func (t *Type) IsArray() bool   { return t != nil && t.Kind == Array }

// Compatible is the "compatible" equality spec §3 describes: Unknown
// compares equal to anything.
func Compatible(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.IsUnknown() || b.IsUnknown() {
		return true
	}
	return structuralEqual(a, b)
}

// Compare is the checker's strict structural equality (spec §4.3): two
// primitives match by kind, arrays match when element types Compare
// equal, and Unknown is equal to nothing — including itself.
func Compare(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.IsUnknown() || b.IsUnknown() {
		return false
	}
	return structuralEqual(a, b)
}

func structuralEqual(a, b *Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Array:
		return structuralEqual(a.Element, b.Element)
	case Function:
		if (a.Return == nil) != (b.Return == nil) {
			return false
		}
		if a.Return != nil && !structuralEqual(a.Return, b.Return) {
			return false
		}
		if len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !structuralEqual(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders a Type for diagnostics (e.g. "[]int", "number").
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case Unknown:
		return "unknown"
	case Object:
		return "object"
	case Void:
		return "void"
	case Integer:
		return "int"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Array:
		return "[]" + t.Element.String()
	case Function:
		ret := "void"
		if t.Return != nil {
			ret = t.Return.String()
		}
		return fmt.Sprintf("func(%d params) %s", len(t.Params), ret)
	default:
		return "?"
	}
}
