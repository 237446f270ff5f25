package eval

import (
	"math"
	"math/big"

	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/dispatch"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/value"
)

// cast evaluates an explicit or implicit conversion.
func (s *Session) cast(x *ir.Cast) (value.Value, error) {
	if x.Type.Kind == ir.KindClass {
		d, err := s.classCast(x)
		if err != nil {
			return nil, err
		}
		return s.load(d)
	}
	switch x.Kind {
	case ir.CastToVoid:
		return value.Void{}, s.discard(x.X)
	case ir.CastToBase, ir.CastToDerived, ir.CastDynamic:
		return s.pointerCast(x)
	}

	v, err := s.rvalue(x.X)
	if err != nil {
		return nil, err
	}
	switch x.Kind {
	case ir.CastIntegral:
		switch n := v.(type) {
		case value.Int:
			return wrapInt(toBig(n), x.Type), nil
		case value.Float:
			return floatToInt(n, x.Type)
		}
	case ir.CastFloating, ir.CastIntToFloat:
		if f, ok := toFloat(v); ok {
			r := roundFloat(f, x.Type)
			if math.IsInf(r, 0) && !math.IsInf(f, 0) {
				return nil, diag.New(diag.KindOverflow, "value %g is outside the range of representable values of type '%s'", f, x.Type)
			}
			return value.Float{V: r, Type: x.Type}, nil
		}
	case ir.CastFloatToInt:
		switch n := v.(type) {
		case value.Float:
			return floatToInt(n, x.Type)
		case value.Int:
			return wrapInt(toBig(n), x.Type), nil
		}
	case ir.CastToBool:
		b, err := value.Truthy(v)
		if err != nil {
			return nil, diag.New(diag.KindNonConstant, "%v", err)
		}
		return value.NewBool(b), nil
	case ir.CastBitcast:
		if p, ok := v.(value.Pointer); ok && x.Type.Kind == ir.KindPointer {
			p.Type = x.Type
			return p, nil
		}
		return nil, diag.New(diag.KindNonConstant,
			"cast that performs the conversions of a reinterpret_cast is not allowed in a constant expression")
	}
	return nil, diag.New(diag.KindNonConstant, "cannot convert '%s' to type '%s' with a %s cast", v, x.Type, x.Kind)
}

// floatToInt truncates toward zero. Values whose integral part does not fit
// overflow.
func floatToInt(f value.Float, t *ir.Type) (value.Value, error) {
	if t.Kind == ir.KindBool {
		return value.NewBool(f.V != 0), nil
	}
	if math.IsNaN(f.V) || math.IsInf(f.V, 0) {
		return nil, diag.New(diag.KindOverflow, "value %g is outside the range of representable values of type '%s'", f.V, t)
	}
	z, _ := big.NewFloat(math.Trunc(f.V)).Int(nil)
	if !fits(z, t) {
		return nil, diag.New(diag.KindOverflow, "value %g is outside the range of representable values of type '%s'", f.V, t)
	}
	return wrapInt(z, t), nil
}

// pointerCast converts between pointers to related classes. A dynamic cast
// that fails yields a null pointer; a dynamic cast to void* yields a pointer
// to the most-derived object.
func (s *Session) pointerCast(x *ir.Cast) (value.Value, error) {
	v, err := s.rvalue(x.X)
	if err != nil {
		return nil, err
	}
	p, ok := v.(value.Pointer)
	if !ok {
		return nil, diag.New(diag.KindNonConstant, "%s cast of non-pointer value '%s'", x.Kind, v)
	}
	if p.Null {
		return value.NullPointer(x.Type), nil
	}
	if p.PastEnd {
		return nil, diag.New(diag.KindOutOfBounds, "cannot cast pointer '%s' past the end of an object", s.pointerName(p))
	}
	target := x.Type.PointeeClass()
	var d value.Designator
	switch x.Kind {
	case ir.CastToBase:
		d, err = s.upcast(p.Target, target)
	case ir.CastToDerived:
		d, err = s.staticDowncast(p.Target, target)
	case ir.CastDynamic:
		d, err = s.resolver.Downcast(p.Target, target)
		switch diag.KindOf(err) {
		case diag.KindNoSuchBase, diag.KindAmbiguousBase, diag.KindInaccessibleBase:
			return value.NullPointer(x.Type), nil
		}
	}
	if err != nil {
		return nil, err
	}
	return value.Pointer{Type: x.Type, Target: d}, nil
}

// classCast is a base, derived or dynamic cast to a class glvalue. Failed
// dynamic casts to references are errors.
func (s *Session) classCast(x *ir.Cast) (value.Designator, error) {
	d, err := s.lvalue(x.X)
	if err != nil {
		return d, err
	}
	target := x.Type.Class
	switch x.Kind {
	case ir.CastToBase:
		d, err = s.upcast(d, target)
	case ir.CastToDerived:
		d, err = s.staticDowncast(d, target)
	case ir.CastDynamic:
		d, err = s.resolver.Downcast(d, target)
	}
	return d, anchor(err, x.Loc)
}

func (s *Session) upcast(d value.Designator, target *ir.ClassDecl) (value.Designator, error) {
	t, err := s.store.TypeOf(d)
	if err != nil {
		return d, err
	}
	if t.Kind != ir.KindClass || target == nil {
		return d, diag.New(diag.KindNonConstant, "cannot convert '%s' to a base class", t)
	}
	path, err := dispatch.UniqueBasePath(t.Class, target)
	if err != nil {
		return d, err
	}
	return d.Extend(path.Selectors()...), nil
}

// staticDowncast walks up the trailing base selectors of d to the enclosing
// object of class target.
func (s *Session) staticDowncast(d value.Designator, target *ir.ClassDecl) (value.Designator, error) {
	for k := len(d.Path); k >= 0; k-- {
		pre := d.Prefix(k)
		if t, err := s.store.TypeOf(pre); err == nil && t.Kind == ir.KindClass && t.Class == target {
			return pre, nil
		}
		if k == 0 || d.Path[k-1].Kind != value.SelBase {
			break
		}
	}
	t, _ := s.store.TypeOf(d)
	return d, diag.New(diag.KindNonConstant,
		"cannot cast object '%s' of type '%s' to derived class '%s' it is not a base of", s.store.Describe(d), t, target.Name)
}

// typeID evaluates typeid. Only glvalues of polymorphic class type are
// evaluated; every other operand is unevaluated and yields its static type.
func (s *Session) typeID(x *ir.TypeID) (value.Value, error) {
	if x.X == nil {
		return value.TypeID{Type: x.Type}, nil
	}
	st := x.Type
	if st != nil && (st.Kind != ir.KindClass || !dispatch.IsPolymorphic(st.Class) || !ir.IsGLValue(x.X)) {
		return value.TypeID{Type: st}, nil
	}
	d, err := s.lvalue(x.X)
	if err != nil {
		return nil, err
	}
	t, err := s.store.TypeOf(d)
	if err != nil {
		return nil, err
	}
	if t.Kind != ir.KindClass || !dispatch.IsPolymorphic(t.Class) {
		return value.TypeID{Type: t}, nil
	}
	dt, err := s.resolver.TypeIdentity(d)
	if err != nil {
		return nil, anchor(err, x.Loc)
	}
	return value.TypeID{Type: dt}, nil
}
