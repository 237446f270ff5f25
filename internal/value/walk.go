package value

import "github.com/roach88/consteval/internal/ir"

// Equal reports deep equality of two values.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Int:
		y, ok := b.(Int)
		return ok && x.V == y.V
	case Float:
		y, ok := b.(Float)
		return ok && x.V == y.V
	case Aggregate:
		y, ok := b.(Aggregate)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !Equal(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	case Union:
		y, ok := b.(Union)
		if !ok || x.Active != y.Active {
			return false
		}
		return x.Active < 0 || Equal(x.Member, y.Member)
	case Pointer:
		y, ok := b.(Pointer)
		if !ok || x.Null != y.Null || x.PastEnd != y.PastEnd || x.Func != y.Func {
			return false
		}
		return x.Null || x.Func != nil || x.Target.Equal(y.Target)
	case MemberPointer:
		y, ok := b.(MemberPointer)
		return ok && x.Null == y.Null && x.Class == y.Class && x.Field == y.Field && x.Method == y.Method
	case Ordering:
		y, ok := b.(Ordering)
		return ok && x == y
	case TypeID:
		y, ok := b.(TypeID)
		return ok && ir.SameType(x.Type, y.Type)
	case Uninit:
		_, ok := b.(Uninit)
		return ok
	case Void:
		_, ok := b.(Void)
		return ok
	}
	return false
}

// FirstUninit returns the type of the first uninitialized scalar in v, or nil
// when v is fully initialized. Inactive union members are not inspected.
func FirstUninit(v Value, t *ir.Type) *ir.Type {
	switch x := v.(type) {
	case Uninit:
		return t
	case Aggregate:
		for i, e := range x.Elems {
			if u := FirstUninit(e, elemType(x.Type, i)); u != nil {
				return u
			}
		}
	case Union:
		if x.Active >= 0 {
			return FirstUninit(x.Member, x.Type.Class.Fields[x.Active].Type)
		}
	}
	return nil
}

// Pointers collects every object pointer reachable inside v.
func Pointers(v Value) []Pointer {
	var out []Pointer
	var walk func(Value)
	walk = func(v Value) {
		switch x := v.(type) {
		case Pointer:
			if !x.Null && x.Func == nil {
				out = append(out, x)
			}
		case Aggregate:
			for _, e := range x.Elems {
				walk(e)
			}
		case Union:
			if x.Active >= 0 {
				walk(x.Member)
			}
		}
	}
	walk(v)
	return out
}

func elemType(t *ir.Type, i int) *ir.Type {
	if t == nil {
		return nil
	}
	if t.Kind == ir.KindArray {
		return t.Elem
	}
	if t.Kind == ir.KindClass && t.Class != nil {
		c := t.Class
		if i < len(c.Bases) {
			return c.Bases[i].Class.Type()
		}
		if j := i - len(c.Bases); j < len(c.Fields) {
			return c.Fields[j].Type
		}
	}
	return nil
}
