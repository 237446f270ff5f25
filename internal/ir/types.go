package ir

import (
	"fmt"
	"strings"
)

// TypeKind classifies a Type.
type TypeKind int

const (
	KindVoid TypeKind = iota
	KindBool
	KindInt
	KindFloat
	KindPointer
	KindNullPtr
	KindArray
	KindClass
	KindOrdering
	KindMemberPointer
	KindTypeInfo
)

// OrderingCategory is the category of a three-way comparison result.
type OrderingCategory int

const (
	StrongOrdering OrderingCategory = iota
	WeakOrdering
	PartialOrdering
	StrongEquality
	WeakEquality
)

var categoryNames = map[OrderingCategory]string{
	StrongOrdering:  "strong_ordering",
	WeakOrdering:    "weak_ordering",
	PartialOrdering: "partial_ordering",
	StrongEquality:  "strong_equality",
	WeakEquality:    "weak_equality",
}

func (c OrderingCategory) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("ordering(%d)", int(c))
}

// IsEquality reports whether the category only supports == and !=.
func (c OrderingCategory) IsEquality() bool {
	return c == StrongEquality || c == WeakEquality
}

// ParseOrderingCategory maps a category name back to its value.
func ParseOrderingCategory(s string) (OrderingCategory, bool) {
	for c, name := range categoryNames {
		if name == s {
			return c, true
		}
	}
	return 0, false
}

// Outcome is the result of a three-way comparison within a category.
type Outcome int

const (
	Less Outcome = iota
	Equal
	Greater
	Equivalent
	Unordered
	NonEqual
	NonEquivalent
)

var outcomeNames = map[Outcome]string{
	Less:          "less",
	Equal:         "equal",
	Greater:       "greater",
	Equivalent:    "equivalent",
	Unordered:     "unordered",
	NonEqual:      "nonequal",
	NonEquivalent: "nonequivalent",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ParseOutcome maps an outcome name back to its value.
func ParseOutcome(s string) (Outcome, bool) {
	for o, name := range outcomeNames {
		if name == s {
			return o, true
		}
	}
	return 0, false
}

// Type is a resolved type. Types are compared structurally with SameType;
// class types compare by declaration identity.
type Type struct {
	Kind     TypeKind
	Name     string // spelling for builtin scalars
	Bits     int    // width of integral and floating types
	Unsigned bool
	Elem     *Type      // pointee or element type
	Len      int64      // array length
	Class    *ClassDecl // class type, or owning class of a member pointer
	Category OrderingCategory
}

// Builtin types.
var (
	Void     = &Type{Kind: KindVoid, Name: "void"}
	Bool     = &Type{Kind: KindBool, Name: "bool", Bits: 1, Unsigned: true}
	Char     = &Type{Kind: KindInt, Name: "char", Bits: 8}
	UChar    = &Type{Kind: KindInt, Name: "unsigned char", Bits: 8, Unsigned: true}
	Short    = &Type{Kind: KindInt, Name: "short", Bits: 16}
	Int      = &Type{Kind: KindInt, Name: "int", Bits: 32}
	UInt     = &Type{Kind: KindInt, Name: "unsigned", Bits: 32, Unsigned: true}
	Long     = &Type{Kind: KindInt, Name: "long", Bits: 64}
	ULong    = &Type{Kind: KindInt, Name: "unsigned long", Bits: 64, Unsigned: true}
	Float    = &Type{Kind: KindFloat, Name: "float", Bits: 32}
	Double   = &Type{Kind: KindFloat, Name: "double", Bits: 64}
	NullPtrT = &Type{Kind: KindNullPtr, Name: "nullptr_t"}
	TypeInfo = &Type{Kind: KindTypeInfo, Name: "type_info"}
	VoidPtr  = PointerTo(Void)
)

var builtins = map[string]*Type{
	"void":          Void,
	"bool":          Bool,
	"char":          Char,
	"unsigned char": UChar,
	"uchar":         UChar,
	"short":         Short,
	"int":           Int,
	"unsigned":      UInt,
	"uint":          UInt,
	"long":          Long,
	"unsigned long": ULong,
	"ulong":         ULong,
	"float":         Float,
	"double":        Double,
	"nullptr_t":     NullPtrT,
	"type_info":     TypeInfo,
}

// Builtin looks up a builtin type by spelling.
func Builtin(name string) (*Type, bool) {
	if t, ok := builtins[name]; ok {
		return t, true
	}
	if c, ok := ParseOrderingCategory(name); ok {
		return OrderingType(c), true
	}
	return nil, false
}

// PointerTo returns the pointer type to elem.
func PointerTo(elem *Type) *Type {
	return &Type{Kind: KindPointer, Elem: elem}
}

// ArrayOf returns the array type of n elements.
func ArrayOf(elem *Type, n int64) *Type {
	return &Type{Kind: KindArray, Elem: elem, Len: n}
}

// OrderingType returns the comparison category type.
func OrderingType(c OrderingCategory) *Type {
	return &Type{Kind: KindOrdering, Category: c}
}

// MemberPointerTo returns the pointer-to-member type for class c.
func MemberPointerTo(c *ClassDecl, member *Type) *Type {
	return &Type{Kind: KindMemberPointer, Class: c, Elem: member}
}

// IsScalar reports whether values of the type are stored directly rather than
// as a tree of subobjects.
func (t *Type) IsScalar() bool {
	switch t.Kind {
	case KindArray, KindClass:
		return false
	}
	return true
}

// IsUnion reports whether the type is a union class type.
func (t *Type) IsUnion() bool {
	return t.Kind == KindClass && t.Class != nil && t.Class.Union
}

// PointeeClass returns the class a pointer type points to, or nil.
func (t *Type) PointeeClass() *ClassDecl {
	if t == nil || t.Kind != KindPointer || t.Elem == nil || t.Elem.Kind != KindClass {
		return nil
	}
	return t.Elem.Class
}

// SameType reports whether a and b denote the same type.
func SameType(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt, KindFloat:
		return a.Bits == b.Bits && a.Unsigned == b.Unsigned
	case KindPointer:
		return SameType(a.Elem, b.Elem)
	case KindArray:
		return a.Len == b.Len && SameType(a.Elem, b.Elem)
	case KindClass:
		return a.Class == b.Class
	case KindOrdering:
		return a.Category == b.Category
	case KindMemberPointer:
		return a.Class == b.Class && SameType(a.Elem, b.Elem)
	}
	return true
}

// String renders the type in source-like spelling.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindPointer:
		return t.Elem.String() + "*"
	case KindArray:
		return fmt.Sprintf("%s[%d]", t.Elem.String(), t.Len)
	case KindClass:
		if t.Class == nil {
			return "<class>"
		}
		return t.Class.Name
	case KindOrdering:
		return "std::" + t.Category.String()
	case KindMemberPointer:
		return fmt.Sprintf("%s %s::*", t.Elem.String(), t.Class.Name)
	case KindTypeInfo:
		return "std::type_info"
	}
	return t.Name
}

// Describe renders the type with its class keyword, for diagnostics.
func (t *Type) Describe() string {
	if t.Kind == KindClass && t.Class != nil {
		kw := "struct"
		if t.Class.Union {
			kw = "union"
		}
		return kw + " " + t.Class.Name
	}
	return strings.TrimSpace(t.String())
}
