package eval

import (
	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/value"
)

// arrayPosition reports the array a pointer's target is an element of and
// the element index. Non-array objects behave as arrays of one element, in
// which case ok is false.
func (s *Session) arrayPosition(p value.Pointer) (parent value.Designator, idx, n int64, ok bool) {
	parent, last, has := p.Target.Parent()
	if has && last.Kind == value.SelElem {
		if t, err := s.store.TypeOf(parent); err == nil && t.Kind == ir.KindArray {
			return parent, int64(last.Index), t.Len, true
		}
	}
	idx = 0
	if p.PastEnd {
		idx = 1
	}
	return p.Target, idx, 1, false
}

// pointerAdd moves a pointer by n elements. The result may point one past
// the end of its array but no further.
func (s *Session) pointerAdd(p value.Pointer, n int64) (value.Value, error) {
	if n == 0 {
		return p, nil
	}
	switch {
	case p.Null:
		return nil, diag.New(diag.KindNullDereference, "cannot perform pointer arithmetic on null pointer")
	case p.Func != nil:
		return nil, diag.New(diag.KindNonConstant, "arithmetic on a pointer to the function '%s'", p.Func.QualifiedName())
	}
	parent, idx, length, isElem := s.arrayPosition(p)
	next := idx + n
	if next < 0 || next > length {
		if isElem {
			return nil, diag.New(diag.KindOutOfBounds,
				"cannot refer to element %d of array of %d elements in a constant expression", next, length)
		}
		return nil, diag.New(diag.KindOutOfBounds,
			"cannot refer to element %d of non-array object in a constant expression", next)
	}
	if isElem {
		return value.Pointer{Type: p.Type, Target: parent.Elem(int(next))}, nil
	}
	return value.Pointer{Type: p.Type, Target: p.Target, PastEnd: next == 1}, nil
}

// pointerDiff subtracts two pointers into the same array.
func (s *Session) pointerDiff(a, b value.Pointer) (value.Value, error) {
	if a.Null && b.Null {
		return value.NewInt(0, ir.Long), nil
	}
	if a.Null || b.Null || a.Func != nil || b.Func != nil {
		return nil, diag.New(diag.KindNonConstant, "subtracted pointers are not elements of the same array")
	}
	pa, ia, _, _ := s.arrayPosition(a)
	pb, ib, _, _ := s.arrayPosition(b)
	if !pa.Equal(pb) {
		return nil, diag.New(diag.KindNonConstant, "subtracted pointers are not elements of the same array")
	}
	return value.NewInt(ia-ib, ir.Long), nil
}

// pointerEqual compares two pointers for equality. Comparing a
// one-past-the-end pointer with a pointer into another object is
// unspecified.
func (s *Session) pointerEqual(a, b value.Pointer) (bool, error) {
	switch {
	case a.Null || b.Null:
		return a.Null == b.Null, nil
	case a.Func != nil || b.Func != nil:
		return a.Func == b.Func, nil
	}
	if a.Target.Root != b.Target.Root {
		if s.pastEnd(a) || s.pastEnd(b) {
			return false, diag.New(diag.KindNonConstant,
				"comparison against pointer '%s' that points past the end of a complete object has unspecified value",
				s.describePointer(a, b))
		}
		return false, nil
	}
	return a.Target.Equal(b.Target) && a.PastEnd == b.PastEnd, nil
}

func (s *Session) pastEnd(p value.Pointer) bool {
	if p.PastEnd {
		return true
	}
	_, idx, n, isElem := s.arrayPosition(p)
	return isElem && idx == n
}

func (s *Session) describePointer(a, b value.Pointer) string {
	if s.pastEnd(a) {
		return a.String()
	}
	return b.String()
}

// pointerCompare orders two pointers into the same complete object: array
// elements by index, members by declaration order with bases first.
func (s *Session) pointerCompare(a, b value.Pointer) (int, error) {
	unspecified := func() (int, error) {
		return 0, diag.New(diag.KindNonConstant,
			"comparison between '%s' and '%s' has unspecified value", s.pointerName(a), s.pointerName(b))
	}
	switch {
	case a.Null && b.Null:
		return 0, nil
	case a.Null || b.Null || a.Func != nil || b.Func != nil:
		return unspecified()
	case a.Target.Root != b.Target.Root:
		return unspecified()
	}
	pa, pb := a.Target.Path, b.Target.Path
	k := 0
	for k < len(pa) && k < len(pb) && pa[k] == pb[k] {
		k++
	}
	if k == len(pa) && k == len(pb) {
		return boolSign(a.PastEnd) - boolSign(b.PastEnd), nil
	}
	if k == len(pa) || k == len(pb) {
		return unspecified()
	}
	sa, sb := pa[k], pb[k]
	switch {
	case sa.Kind == sb.Kind:
		return signOf(sa.Index - sb.Index), nil
	case sa.Kind == value.SelBase:
		return -1, nil
	case sb.Kind == value.SelBase:
		return 1, nil
	}
	return unspecified()
}

func boolSign(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Session) pointerName(p value.Pointer) string {
	switch {
	case p.Null:
		return "nullptr"
	case p.Func != nil:
		return "&" + p.Func.QualifiedName()
	}
	name := "&" + s.store.Describe(p.Target)
	if p.PastEnd {
		name += " + 1"
	}
	return name
}
