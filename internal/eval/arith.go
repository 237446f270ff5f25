package eval

import (
	"math"
	"math/big"

	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/value"
)

// promote applies integral promotion.
func promote(t *ir.Type) *ir.Type {
	if t == nil || t.Kind == ir.KindBool || (t.Kind == ir.KindInt && t.Bits < 32) {
		return ir.Int
	}
	return t
}

// commonInt is the type both operands of a binary integer operation
// convert to.
func commonInt(a, b *ir.Type) *ir.Type {
	a, b = promote(a), promote(b)
	switch {
	case a.Bits > b.Bits:
		return a
	case b.Bits > a.Bits:
		return b
	case a.Unsigned:
		return a
	}
	return b
}

func toBig(v value.Int) *big.Int {
	if v.Type != nil && v.Type.Unsigned && v.Type.Bits == 64 {
		return new(big.Int).SetUint64(uint64(v.V))
	}
	return big.NewInt(v.V)
}

func bounds(t *ir.Type) (lo, hi *big.Int) {
	one := big.NewInt(1)
	if t.Unsigned {
		hi = new(big.Int).Lsh(one, uint(t.Bits))
		return big.NewInt(0), hi.Sub(hi, one)
	}
	hi = new(big.Int).Lsh(one, uint(t.Bits-1))
	lo = new(big.Int).Neg(hi)
	return lo, hi.Sub(hi, one)
}

func fits(z *big.Int, t *ir.Type) bool {
	lo, hi := bounds(t)
	return z.Cmp(lo) >= 0 && z.Cmp(hi) <= 0
}

// wrapInt reduces z modulo 2^bits into the range of t.
func wrapInt(z *big.Int, t *ir.Type) value.Int {
	if t.Kind == ir.KindBool {
		return value.NewBool(z.Sign() != 0)
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(t.Bits))
	r := new(big.Int).Mod(z, mod)
	if !t.Unsigned {
		half := new(big.Int).Rsh(mod, 1)
		if r.Cmp(half) >= 0 {
			r.Sub(r, mod)
		}
		return value.NewInt(r.Int64(), t)
	}
	return value.NewInt(int64(r.Uint64()), t)
}

func overflow(z *big.Int, t *ir.Type) error {
	return diag.New(diag.KindOverflow,
		"value %s is outside the range of representable values of type '%s'", z, t)
}

// intArith computes a binary integer operation. Signed results that do not
// fit are overflow failures; unsigned results wrap.
func intArith(op ir.BinaryOp, a, b value.Int, rt *ir.Type) (value.Value, error) {
	shift := op == ir.OpShl || op == ir.OpShr
	if rt == nil || rt.Kind != ir.KindInt {
		if shift {
			rt = promote(a.Type)
		} else {
			rt = commonInt(a.Type, b.Type)
		}
	}
	x := toBig(wrapInt(toBig(a), rt))
	y := toBig(b)
	if !shift {
		y = toBig(wrapInt(y, rt))
	}
	z := new(big.Int)
	switch op {
	case ir.OpAdd:
		z.Add(x, y)
	case ir.OpSub:
		z.Sub(x, y)
	case ir.OpMul:
		z.Mul(x, y)
	case ir.OpDiv, ir.OpRem:
		if y.Sign() == 0 {
			return nil, diag.New(diag.KindDivisionByZero, "division by zero")
		}
		if op == ir.OpDiv {
			z.Quo(x, y)
		} else {
			z.Rem(x, y)
		}
	case ir.OpShl, ir.OpShr:
		if y.Sign() < 0 {
			return nil, diag.New(diag.KindInvalidShift, "negative shift count %s", y)
		}
		if y.Cmp(big.NewInt(int64(rt.Bits))) >= 0 {
			return nil, diag.New(diag.KindInvalidShift,
				"shift count %s >= width of type '%s' (%d bits)", y, rt, rt.Bits)
		}
		if op == ir.OpShl {
			return wrapInt(z.Lsh(x, uint(y.Uint64())), rt), nil
		}
		return wrapInt(z.Rsh(x, uint(y.Uint64())), rt), nil
	case ir.OpAnd:
		return wrapInt(z.And(x, y), rt), nil
	case ir.OpOr:
		return wrapInt(z.Or(x, y), rt), nil
	case ir.OpXor:
		return wrapInt(z.Xor(x, y), rt), nil
	default:
		return nil, diag.New(diag.KindNonConstant, "invalid integer operator '%s'", op)
	}
	if !rt.Unsigned && !fits(z, rt) {
		return nil, overflow(z, rt)
	}
	return wrapInt(z, rt), nil
}

func toFloat(v value.Value) (float64, bool) {
	switch x := v.(type) {
	case value.Float:
		return x.V, true
	case value.Int:
		f, _ := new(big.Float).SetInt(toBig(x)).Float64()
		return f, true
	}
	return 0, false
}

func floatType(a, b value.Value, rt *ir.Type) *ir.Type {
	if rt != nil && rt.Kind == ir.KindFloat {
		return rt
	}
	t := ir.Float
	for _, v := range []value.Value{a, b} {
		if f, ok := v.(value.Float); ok && f.Type != nil && f.Type.Bits > t.Bits {
			t = f.Type
		}
	}
	if _, ok := a.(value.Float); !ok {
		if _, ok := b.(value.Float); !ok {
			return ir.Double
		}
	}
	return t
}

func roundFloat(f float64, t *ir.Type) float64 {
	if t.Bits == 32 {
		return float64(float32(f))
	}
	return f
}

func floatArith(op ir.BinaryOp, a, b value.Value, rt *ir.Type) (value.Value, error) {
	x, _ := toFloat(a)
	y, _ := toFloat(b)
	t := floatType(a, b, rt)
	var z float64
	switch op {
	case ir.OpAdd:
		z = x + y
	case ir.OpSub:
		z = x - y
	case ir.OpMul:
		z = x * y
	case ir.OpDiv:
		if y == 0 {
			return nil, diag.New(diag.KindDivisionByZero, "division by zero")
		}
		z = x / y
	default:
		return nil, diag.New(diag.KindNonConstant, "invalid operands to binary expression '%s' on floating values", op)
	}
	z = roundFloat(z, t)
	if !math.IsInf(x, 0) && !math.IsInf(y, 0) && !math.IsNaN(x) && !math.IsNaN(y) {
		if math.IsInf(z, 0) {
			return nil, diag.New(diag.KindOverflow, "floating point arithmetic produces an infinity")
		}
		if math.IsNaN(z) {
			return nil, diag.New(diag.KindNonConstant, "floating point arithmetic produces a NaN")
		}
	}
	return value.Float{V: z, Type: t}, nil
}

// arith applies an arithmetic operator to two values.
func (s *Session) arith(op ir.BinaryOp, l, r value.Value, rt *ir.Type) (value.Value, error) {
	switch x := l.(type) {
	case value.Int:
		switch y := r.(type) {
		case value.Int:
			return intArith(op, x, y, rt)
		case value.Float:
			return floatArith(op, l, r, rt)
		case value.Pointer:
			if op == ir.OpAdd {
				return s.pointerAdd(y, x.V)
			}
		}
	case value.Float:
		if _, ok := toFloat(r); ok {
			return floatArith(op, l, r, rt)
		}
	case value.Pointer:
		switch y := r.(type) {
		case value.Int:
			switch op {
			case ir.OpAdd:
				return s.pointerAdd(x, y.V)
			case ir.OpSub:
				return s.pointerAdd(x, -y.V)
			}
		case value.Pointer:
			if op == ir.OpSub {
				return s.pointerDiff(x, y)
			}
		}
	}
	return nil, diag.New(diag.KindNonConstant, "invalid operands to binary expression (%s %s %s)", l, op, r)
}

func (s *Session) unary(x *ir.Unary) (value.Value, error) {
	switch x.Op {
	case ir.OpAddrOf:
		d, err := s.lvalue(x.X)
		if err != nil {
			return nil, err
		}
		t, err := s.store.TypeOf(d)
		if err != nil {
			return nil, err
		}
		return value.PointerTo(ir.PointerTo(t), d), nil
	case ir.OpDeref, ir.OpPreInc, ir.OpPreDec:
		d, err := s.lvalue(x)
		if err != nil {
			return nil, err
		}
		return s.load(d)
	case ir.OpPostInc, ir.OpPostDec:
		d, err := s.lvalue(x.X)
		if err != nil {
			return nil, err
		}
		old, err := s.store.Read(d)
		if err != nil {
			return nil, err
		}
		nv, err := s.stepValue(old, x.Op == ir.OpPostInc)
		if err != nil {
			return nil, err
		}
		return old, s.store.Write(d, nv)
	}

	v, err := s.rvalue(x.X)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case ir.OpNot:
		b, err := value.Truthy(v)
		if err != nil {
			return nil, diag.New(diag.KindNonConstant, "%v", err)
		}
		return value.NewBool(!b), nil
	case ir.OpPlus:
		if i, ok := v.(value.Int); ok {
			return wrapInt(toBig(i), promote(i.Type)), nil
		}
		return v, nil
	case ir.OpNeg:
		switch n := v.(type) {
		case value.Int:
			return intArith(ir.OpSub, value.NewInt(0, ir.Int), n, nil)
		case value.Float:
			return value.Float{V: -n.V, Type: n.Type}, nil
		}
	case ir.OpBitNot:
		if n, ok := v.(value.Int); ok {
			t := promote(n.Type)
			return wrapInt(new(big.Int).Not(toBig(wrapInt(toBig(n), t))), t), nil
		}
	}
	return nil, diag.New(diag.KindNonConstant, "invalid argument type to unary expression '%s'", x.Op)
}

// increment evaluates ++x and --x, yielding x.
func (s *Session) increment(x *ir.Unary) (value.Designator, error) {
	d, err := s.lvalue(x.X)
	if err != nil {
		return d, err
	}
	old, err := s.store.Read(d)
	if err != nil {
		return d, err
	}
	nv, err := s.stepValue(old, x.Op == ir.OpPreInc)
	if err != nil {
		return d, err
	}
	return d, s.store.Write(d, nv)
}

func (s *Session) stepValue(v value.Value, up bool) (value.Value, error) {
	delta := int64(1)
	if !up {
		delta = -1
	}
	switch x := v.(type) {
	case value.Int:
		if x.Type != nil && x.Type.Kind == ir.KindBool {
			return nil, diag.New(diag.KindNonConstant, "increment of bool is not allowed")
		}
		r, err := intArith(ir.OpAdd, x, value.NewInt(delta, ir.Int), nil)
		if err != nil {
			return nil, err
		}
		return s.convert(r, x.Type), nil
	case value.Float:
		return value.Float{V: roundFloat(x.V+float64(delta), x.Type), Type: x.Type}, nil
	case value.Pointer:
		return s.pointerAdd(x, delta)
	}
	return nil, diag.New(diag.KindNonConstant, "cannot increment value %s", v)
}

func (s *Session) binary(x *ir.Binary) (value.Value, error) {
	switch x.Op {
	case ir.OpLAnd, ir.OpLOr:
		l, err := s.condition(x.X)
		if err != nil {
			return nil, err
		}
		if l == (x.Op == ir.OpLOr) {
			return value.NewBool(l), nil
		}
		r, err := s.condition(x.Y)
		if err != nil {
			return nil, err
		}
		return value.NewBool(r), nil
	case ir.OpComma:
		if err := s.discard(x.X); err != nil {
			return nil, err
		}
		return s.rvalue(x.Y)
	}

	if x.Operator != nil {
		res, err := s.invoke(x.Operator, nil, []ir.Expr{x.X, x.Y}, nil, x.Loc)
		if err != nil {
			return nil, err
		}
		v, err := s.callValue(res)
		if err != nil {
			return nil, err
		}
		return s.wrapOrdering(v, x.Type), nil
	}

	l, err := s.rvalue(x.X)
	if err != nil {
		return nil, err
	}
	r, err := s.rvalue(x.Y)
	if err != nil {
		return nil, err
	}
	switch {
	case x.Op == ir.OpCmp:
		o, err := s.threeWay(l, r)
		if err != nil {
			return nil, err
		}
		return s.wrapOrdering(o, x.Type), nil
	case x.Op.IsRelational():
		b, err := s.compare(x.Op, l, r)
		if err != nil {
			return nil, err
		}
		return value.NewBool(b), nil
	}
	return s.arith(x.Op, l, r, x.Type)
}

// wrapOrdering converts the result of a comparison to its category, if one
// is given. Integral results of user comparisons map by sign.
func (s *Session) wrapOrdering(v value.Value, t *ir.Type) value.Value {
	if t == nil || t.Kind != ir.KindOrdering {
		return v
	}
	switch x := v.(type) {
	case value.Ordering:
		return x.In(t.Category)
	case value.Int:
		return value.NewOrdering(t.Category, toBig(x).Sign())
	}
	return v
}

func signOf(c int) int {
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	}
	return 0
}

// threeWay computes l <=> r for built-in operands.
func (s *Session) threeWay(l, r value.Value) (value.Value, error) {
	switch x := l.(type) {
	case value.Int:
		switch y := r.(type) {
		case value.Int:
			t := commonInt(x.Type, y.Type)
			c := toBig(wrapInt(toBig(x), t)).Cmp(toBig(wrapInt(toBig(y), t)))
			return value.NewOrdering(ir.StrongOrdering, c), nil
		case value.Float:
			return floatOrdering(l, r), nil
		}
	case value.Float:
		if _, ok := toFloat(r); ok {
			return floatOrdering(l, r), nil
		}
	case value.Pointer:
		y, ok := r.(value.Pointer)
		if !ok {
			break
		}
		if isNullPtrT(x) || isNullPtrT(y) || x.Func != nil || y.Func != nil {
			eq, err := s.pointerEqual(x, y)
			if err != nil {
				return nil, err
			}
			return equalityOrdering(eq), nil
		}
		c, err := s.pointerCompare(x, y)
		if err != nil {
			return nil, err
		}
		return value.NewOrdering(ir.StrongOrdering, c), nil
	case value.MemberPointer:
		if y, ok := r.(value.MemberPointer); ok {
			return equalityOrdering(value.Equal(x, y)), nil
		}
	}
	return nil, diag.New(diag.KindNonConstant, "invalid operands to three-way comparison (%s and %s)", l, r)
}

func equalityOrdering(eq bool) value.Ordering {
	if eq {
		return value.Ordering{Category: ir.StrongEquality, Outcome: ir.Equal}
	}
	return value.Ordering{Category: ir.StrongEquality, Outcome: ir.NonEqual}
}

func floatOrdering(l, r value.Value) value.Ordering {
	x, _ := toFloat(l)
	y, _ := toFloat(r)
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return value.UnorderedResult()
	case x < y:
		return value.NewOrdering(ir.PartialOrdering, -1)
	case x > y:
		return value.NewOrdering(ir.PartialOrdering, 1)
	}
	return value.NewOrdering(ir.PartialOrdering, 0)
}

func isNullPtrT(p value.Pointer) bool {
	return p.Type != nil && p.Type.Kind == ir.KindNullPtr
}

func isZero(v value.Value) bool {
	i, ok := v.(value.Int)
	return ok && i.V == 0
}

func swapOp(op ir.BinaryOp) ir.BinaryOp {
	switch op {
	case ir.OpLt:
		return ir.OpGt
	case ir.OpGt:
		return ir.OpLt
	case ir.OpLe:
		return ir.OpGe
	case ir.OpGe:
		return ir.OpLe
	}
	return op
}

func relation(op ir.BinaryOp, c int) bool {
	switch op {
	case ir.OpLt:
		return c < 0
	case ir.OpGt:
		return c > 0
	case ir.OpLe:
		return c <= 0
	case ir.OpGe:
		return c >= 0
	case ir.OpEq:
		return c == 0
	}
	return c != 0
}

// compare applies a relational or equality operator.
func (s *Session) compare(op ir.BinaryOp, l, r value.Value) (bool, error) {
	if o, ok := l.(value.Ordering); ok {
		if y, ok := r.(value.Ordering); ok && (op == ir.OpEq || op == ir.OpNe) {
			return (o.Outcome == y.Outcome) == (op == ir.OpEq), nil
		}
		if isZero(r) {
			b, err := o.Compare0(op)
			if err != nil {
				return false, diag.New(diag.KindNonConstant, "%v", err)
			}
			return b, nil
		}
	}
	if o, ok := r.(value.Ordering); ok && isZero(l) {
		b, err := o.Compare0(swapOp(op))
		if err != nil {
			return false, diag.New(diag.KindNonConstant, "%v", err)
		}
		return b, nil
	}

	switch x := l.(type) {
	case value.Int:
		switch y := r.(type) {
		case value.Int:
			t := commonInt(x.Type, y.Type)
			return relation(op, toBig(wrapInt(toBig(x), t)).Cmp(toBig(wrapInt(toBig(y), t)))), nil
		case value.Float:
			return floatRelation(op, l, r), nil
		}
	case value.Float:
		if _, ok := toFloat(r); ok {
			return floatRelation(op, l, r), nil
		}
	case value.Pointer:
		y, ok := r.(value.Pointer)
		if !ok {
			break
		}
		if op == ir.OpEq || op == ir.OpNe {
			eq, err := s.pointerEqual(x, y)
			return eq == (op == ir.OpEq), err
		}
		c, err := s.pointerCompare(x, y)
		if err != nil {
			return false, err
		}
		return relation(op, c), nil
	case value.MemberPointer:
		if y, ok := r.(value.MemberPointer); ok && (op == ir.OpEq || op == ir.OpNe) {
			return value.Equal(x, y) == (op == ir.OpEq), nil
		}
	case value.TypeID:
		if y, ok := r.(value.TypeID); ok && (op == ir.OpEq || op == ir.OpNe) {
			return ir.SameType(x.Type, y.Type) == (op == ir.OpEq), nil
		}
	}
	return false, diag.New(diag.KindNonConstant, "invalid operands to comparison (%s %s %s)", l, op, r)
}

func floatRelation(op ir.BinaryOp, l, r value.Value) bool {
	x, _ := toFloat(l)
	y, _ := toFloat(r)
	if math.IsNaN(x) || math.IsNaN(y) {
		return op == ir.OpNe
	}
	c := 0
	switch {
	case x < y:
		c = -1
	case x > y:
		c = 1
	}
	return relation(op, c)
}

// assign evaluates plain and compound assignment. The right operand is
// evaluated first. Union members named along the left operand's
// member-access chain become active before the store.
func (s *Session) assign(x *ir.Assign) (value.Designator, error) {
	v, err := s.rvalue(x.Y)
	if err != nil {
		return value.Designator{}, err
	}
	d, start, err := s.chain(x.X)
	if err != nil {
		return d, err
	}
	t, err := s.store.TypeOf(d)
	if err != nil {
		return d, err
	}
	if x.Op != "" {
		old, err := s.store.Read(d)
		if err != nil {
			return d, err
		}
		if v, err = s.arith(x.Op, old, v, nil); err != nil {
			return d, err
		}
	}
	if err := s.activateUnions(d, start, x.Loc); err != nil {
		return d, err
	}
	return d, s.store.Write(d, s.convert(v, t))
}

// activateUnions switches the active member of every union named by a
// field selector of d at or after path index start.
func (s *Session) activateUnions(d value.Designator, start int, loc ir.Loc) error {
	for k := start; k < len(d.Path); k++ {
		sel := d.Path[k]
		if sel.Kind != value.SelField {
			continue
		}
		ud := d.Prefix(k)
		t, err := s.store.TypeOf(ud)
		if err != nil {
			return err
		}
		if !t.IsUnion() {
			continue
		}
		if uo := s.store.Lookup(ud); uo != nil && uo.Active == sel.Index {
			if c := uo.Child(sel); c != nil && c.InLifetime() {
				continue
			}
		}
		if _, err := s.store.SwitchActiveMember(ud, sel.Index, s.destroy); err != nil {
			return err
		}
		s.trace(TraceActivate, d.Prefix(k+1), t.Class.Fields[sel.Index].Type, loc)
	}
	return nil
}

// convert applies the implicit conversion of a value to type t.
func (s *Session) convert(v value.Value, t *ir.Type) value.Value {
	if t == nil {
		return v
	}
	switch t.Kind {
	case ir.KindBool:
		if b, err := value.Truthy(v); err == nil {
			return value.NewBool(b)
		}
	case ir.KindInt:
		switch x := v.(type) {
		case value.Int:
			return wrapInt(toBig(x), t)
		case value.Float:
			return wrapInt(big.NewInt(int64(x.V)), t)
		}
	case ir.KindFloat:
		if f, ok := toFloat(v); ok {
			return value.Float{V: roundFloat(f, t), Type: t}
		}
	case ir.KindPointer:
		if p, ok := v.(value.Pointer); ok {
			p.Type = t
			return p
		}
	case ir.KindOrdering:
		if o, ok := v.(value.Ordering); ok {
			return o.In(t.Category)
		}
	}
	return v
}
