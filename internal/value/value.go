package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/consteval/internal/ir"
)

// Value is a sealed interface over the values the evaluator computes.
// Only the types in this package implement it.
type Value interface {
	isValue() // Sealed
	String() string
}

// Int is an integral or boolean scalar. Booleans have Type ir.Bool and V 0/1.
type Int struct {
	V    int64
	Type *ir.Type
}

// Float is a floating-point scalar.
type Float struct {
	V    float64
	Type *ir.Type
}

// Aggregate is a class or array value. Class elements are the base
// subobjects in declaration order followed by the fields.
type Aggregate struct {
	Type  *ir.Type
	Elems []Value
}

// Union is a union value; Active is -1 when no member is active.
type Union struct {
	Type   *ir.Type
	Active int
	Member Value
}

// Pointer is null, designates an object, is one past the end of a non-array
// object, or holds a function address.
type Pointer struct {
	Type    *ir.Type
	Null    bool
	Target  Designator
	PastEnd bool
	Func    *ir.FuncDecl
}

// MemberPointer is a pointer to a data member or member function.
type MemberPointer struct {
	Class  *ir.ClassDecl
	Field  string
	Method *ir.FuncDecl
	Null   bool
}

// TypeID is the identity a type-identity query returns.
type TypeID struct {
	Type *ir.Type
}

// Uninit marks a scalar without a value inside a representation copy.
type Uninit struct{}

// Void is the result of a void expression.
type Void struct{}

func (Int) isValue()           {}
func (Float) isValue()         {}
func (Aggregate) isValue()     {}
func (Union) isValue()         {}
func (Pointer) isValue()       {}
func (MemberPointer) isValue() {}
func (TypeID) isValue()        {}
func (Uninit) isValue()        {}
func (Void) isValue()          {}

// NewInt creates an integral value of type t.
func NewInt(v int64, t *ir.Type) Int {
	return Int{V: v, Type: t}
}

// NewBool creates a boolean value.
func NewBool(b bool) Int {
	if b {
		return Int{V: 1, Type: ir.Bool}
	}
	return Int{V: 0, Type: ir.Bool}
}

// NullPointer creates a null pointer of type t.
func NullPointer(t *ir.Type) Pointer {
	return Pointer{Type: t, Null: true}
}

// PointerTo creates a pointer of type t designating d.
func PointerTo(t *ir.Type, d Designator) Pointer {
	return Pointer{Type: t, Target: d}
}

// Bool reports the truth of a boolean or integral value.
func (v Int) Bool() bool {
	return v.V != 0
}

// Truthy converts a scalar to bool as a condition does.
func Truthy(v Value) (bool, error) {
	switch x := v.(type) {
	case Int:
		return x.V != 0, nil
	case Float:
		return x.V != 0, nil
	case Pointer:
		return !x.Null, nil
	case MemberPointer:
		return !x.Null, nil
	}
	return false, fmt.Errorf("value %s is not convertible to bool", v)
}

// Zero returns the value-initialized scalar of type t.
func Zero(t *ir.Type) Value {
	switch t.Kind {
	case ir.KindBool, ir.KindInt:
		return Int{V: 0, Type: t}
	case ir.KindFloat:
		return Float{V: 0, Type: t}
	case ir.KindPointer, ir.KindNullPtr:
		return Pointer{Type: t, Null: true}
	case ir.KindMemberPointer:
		return MemberPointer{Class: t.Class, Null: true}
	case ir.KindOrdering:
		return NewOrdering(t.Category, 0)
	}
	return Uninit{}
}

func (v Int) String() string {
	if v.Type != nil && v.Type.Kind == ir.KindBool {
		return strconv.FormatBool(v.V != 0)
	}
	if v.Type != nil && v.Type.Unsigned && v.Type.Bits == 64 {
		return strconv.FormatUint(uint64(v.V), 10)
	}
	return strconv.FormatInt(v.V, 10)
}

func (v Float) String() string {
	return strconv.FormatFloat(v.V, 'g', -1, 64)
}

func (v Aggregate) String() string {
	parts := make([]string, len(v.Elems))
	for i, e := range v.Elems {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (v Union) String() string {
	if v.Active < 0 || v.Type == nil || v.Type.Class == nil {
		return "{}"
	}
	return fmt.Sprintf("{.%s = %s}", v.Type.Class.Fields[v.Active].Name, v.Member)
}

func (v Pointer) String() string {
	switch {
	case v.Null:
		return "nullptr"
	case v.Func != nil:
		return "&" + v.Func.QualifiedName()
	case v.PastEnd:
		return "&" + v.Target.String() + " + 1"
	}
	return "&" + v.Target.String()
}

func (v MemberPointer) String() string {
	switch {
	case v.Null:
		return "nullptr"
	case v.Method != nil:
		return "&" + v.Method.QualifiedName()
	}
	return fmt.Sprintf("&%s::%s", v.Class.Name, v.Field)
}

func (v TypeID) String() string {
	return fmt.Sprintf("typeid(%s)", v.Type)
}

func (Uninit) String() string { return "<uninitialized>" }
func (Void) String() string   { return "void" }
