package loader

import (
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/consteval/internal/ir"
)

var unaryOps = map[string]ir.UnaryOp{
	"-": ir.OpNeg, "+": ir.OpPlus, "!": ir.OpNot, "~": ir.OpBitNot,
	"*": ir.OpDeref, "&": ir.OpAddrOf, "++": ir.OpPreInc, "--": ir.OpPreDec,
	"post++": ir.OpPostInc, "post--": ir.OpPostDec,
}

var binaryOps = map[string]ir.BinaryOp{
	"+": ir.OpAdd, "-": ir.OpSub, "*": ir.OpMul, "/": ir.OpDiv, "%": ir.OpRem,
	"<<": ir.OpShl, ">>": ir.OpShr, "&": ir.OpAnd, "|": ir.OpOr, "^": ir.OpXor,
	"<": ir.OpLt, ">": ir.OpGt, "<=": ir.OpLe, ">=": ir.OpGe, "==": ir.OpEq, "!=": ir.OpNe,
	"<=>": ir.OpCmp, "&&": ir.OpLAnd, "||": ir.OpLOr, ",": ir.OpComma,
}

var castKinds = map[string]ir.CastKind{
	string(ir.CastIntegral): ir.CastIntegral, string(ir.CastFloating): ir.CastFloating,
	string(ir.CastIntToFloat): ir.CastIntToFloat, string(ir.CastFloatToInt): ir.CastFloatToInt,
	string(ir.CastToBool): ir.CastToBool, string(ir.CastToBase): ir.CastToBase,
	string(ir.CastToDerived): ir.CastToDerived, string(ir.CastDynamic): ir.CastDynamic,
	string(ir.CastToVoid): ir.CastToVoid, string(ir.CastBitcast): ir.CastBitcast,
}

// exprKeys are the discriminating keys of expression structs, in the order
// they are tried.
var exprKeys = []string{
	"int", "float", "bool", "nullptr", "ordering", "name", "this",
	"unary", "binary", "assign", "cond", "member_access", "member_ptr", "member", "index",
	"call_ptr", "call", "method", "construct", "list", "new", "delete",
	"cast", "typeid", "func_addr", "throw",
}

// expr compiles an expression.
func (c *compiler) expr(v cue.Value) (ir.Expr, error) {
	loc := locOf(v)
	switch v.IncompleteKind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, errorf(v, "int", "integer literal out of range")
		}
		return &ir.IntLit{Loc: loc, Value: n}, nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return &ir.FloatLit{Loc: loc, Value: f}, nil
	case cue.BoolKind:
		b, _ := v.Bool()
		return &ir.BoolLit{Loc: loc, Value: b}, nil
	case cue.StringKind:
		s, _ := v.String()
		if s == "this" {
			return &ir.This{Loc: loc}, nil
		}
		return &ir.Name{Loc: loc, Name: s}, nil
	case cue.ListKind:
		return nil, errorf(v, "expr", "an initializer list needs a type; write {list: [...], type: ...}")
	case cue.StructKind:
		for _, key := range exprKeys {
			if f, ok := lookup(v, key); ok {
				return c.exprStruct(v, key, f, loc)
			}
		}
		return nil, errorf(v, "expr", "unknown expression form")
	}
	return nil, errorf(v, "expr", "expected an expression")
}

// exprFor compiles an initializer for an object of type t. Bare lists
// become initializer lists of t.
func (c *compiler) exprFor(v cue.Value, t *ir.Type) (ir.Expr, error) {
	if v.IncompleteKind() == cue.ListKind && t != nil {
		return c.initList(v, t, "")
	}
	return c.expr(v)
}

func (c *compiler) exprField(v cue.Value, key string) (ir.Expr, error) {
	f, ok := lookup(v, key)
	if !ok {
		return nil, errorf(v, key, "%s is required", key)
	}
	return c.expr(f)
}

func (c *compiler) optExpr(v cue.Value, key string) (ir.Expr, error) {
	f, ok := lookup(v, key)
	if !ok || f.IsNull() {
		return nil, nil
	}
	return c.expr(f)
}

func (c *compiler) exprList(v cue.Value, key string) ([]ir.Expr, error) {
	var out []ir.Expr
	err := each(v, key, func(ev cue.Value) error {
		e, err := c.expr(ev)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// initList compiles list elements against the slots of t: array
// elements, or bases then fields of a class, or the selected union member.
func (c *compiler) initList(v cue.Value, t *ir.Type, field string) (*ir.InitList, error) {
	il := &ir.InitList{Loc: locOf(v), Type: t, Field: field}
	i := 0
	err := eachOf(v, "list", func(ev cue.Value) error {
		et := slotType(t, i, field)
		i++
		e, err := c.exprFor(ev, et)
		if err != nil {
			return err
		}
		il.Elems = append(il.Elems, e)
		return nil
	})
	return il, err
}

func slotType(t *ir.Type, i int, field string) *ir.Type {
	switch t.Kind {
	case ir.KindArray:
		return t.Elem
	case ir.KindClass:
		cls := t.Class
		if cls.Union {
			idx := 0
			if field != "" {
				idx = cls.FieldIndex(field)
			}
			if idx >= 0 && idx < len(cls.Fields) {
				return cls.Fields[idx].Type
			}
			return nil
		}
		if i < len(cls.Bases) {
			return cls.Bases[i].Class.Type()
		}
		if i -= len(cls.Bases); i < len(cls.Fields) {
			return cls.Fields[i].Type
		}
	}
	return nil
}

func (c *compiler) exprStruct(v cue.Value, key string, f cue.Value, loc ir.Loc) (ir.Expr, error) {
	switch key {
	case "int":
		n, err := f.Int64()
		if err != nil {
			return nil, errorf(f, key, "must be an integer")
		}
		t, err := c.typeField(v, "type", false)
		if err != nil {
			return nil, err
		}
		return &ir.IntLit{Loc: loc, Value: n, Type: t}, nil
	case "float":
		x, err := f.Float64()
		if err != nil {
			return nil, errorf(f, key, "must be a number")
		}
		t, err := c.typeField(v, "type", false)
		if err != nil {
			return nil, err
		}
		return &ir.FloatLit{Loc: loc, Value: x, Type: t}, nil
	case "bool":
		b, err := f.Bool()
		if err != nil {
			return nil, errorf(f, key, "must be a boolean")
		}
		return &ir.BoolLit{Loc: loc, Value: b}, nil
	case "nullptr":
		t := ir.NullPtrT
		if s, err := f.String(); err == nil {
			var ok bool
			if t, ok = c.parseType(s); !ok {
				return nil, errorf(f, key, "unknown type %q", s)
			}
		}
		return &ir.NullLit{Loc: loc, Type: t}, nil
	case "ordering":
		cat, _ := f.String()
		category, ok := ir.ParseOrderingCategory(strings.TrimPrefix(cat, "std::"))
		if !ok {
			return nil, errorf(f, key, "unknown comparison category %q", cat)
		}
		name, err := requireStr(v, "outcome")
		if err != nil {
			return nil, err
		}
		outcome, ok := ir.ParseOutcome(name)
		if !ok {
			return nil, errorf(v, "outcome", "unknown outcome %q", name)
		}
		return &ir.OrderingLit{Loc: loc, Category: category, Outcome: outcome}, nil
	case "name":
		s, err := f.String()
		if err != nil {
			return nil, errorf(f, key, "must be a string")
		}
		return &ir.Name{Loc: loc, Name: s}, nil
	case "this":
		return &ir.This{Loc: loc}, nil
	case "unary":
		s, _ := f.String()
		op, ok := unaryOps[s]
		if !ok {
			return nil, errorf(f, key, "unknown unary operator %q", s)
		}
		x, err := c.exprField(v, "x")
		if err != nil {
			return nil, err
		}
		return &ir.Unary{Loc: loc, Op: op, X: x}, nil
	case "binary":
		return c.binary(v, f, loc)
	case "assign":
		s, _ := f.String()
		var op ir.BinaryOp
		if s != "=" {
			var ok bool
			if op, ok = binaryOps[strings.TrimSuffix(s, "=")]; !ok || !strings.HasSuffix(s, "=") {
				return nil, errorf(f, key, "unknown assignment operator %q", s)
			}
		}
		x, err := c.exprField(v, "x")
		if err != nil {
			return nil, err
		}
		y, err := c.exprField(v, "y")
		if err != nil {
			return nil, err
		}
		return &ir.Assign{Loc: loc, Op: op, X: x, Y: y}, nil
	case "cond":
		cond, err := c.expr(f)
		if err != nil {
			return nil, err
		}
		then, err := c.exprField(v, "then")
		if err != nil {
			return nil, err
		}
		els, err := c.exprField(v, "else")
		if err != nil {
			return nil, err
		}
		return &ir.Cond{Loc: loc, Cond: cond, Then: then, Else: els}, nil
	case "member":
		name, err := f.String()
		if err != nil {
			return nil, errorf(f, key, "must be a field name")
		}
		x, err := c.exprField(v, "x")
		if err != nil {
			return nil, err
		}
		arrow, err := boolField(v, "arrow", false)
		if err != nil {
			return nil, err
		}
		return &ir.Member{Loc: loc, X: x, Arrow: arrow, Field: name}, nil
	case "index":
		idx, err := c.expr(f)
		if err != nil {
			return nil, err
		}
		x, err := c.exprField(v, "x")
		if err != nil {
			return nil, err
		}
		return &ir.Index{Loc: loc, X: x, Index: idx}, nil
	case "call":
		name, err := f.String()
		if err != nil {
			return nil, errorf(f, key, "must be a function name")
		}
		fn := c.funcs[name]
		if fn == nil {
			return nil, errorf(f, key, "unknown function %q", name)
		}
		args, err := c.exprList(v, "args")
		if err != nil {
			return nil, err
		}
		return &ir.Call{Loc: loc, Func: fn, Args: args}, nil
	case "call_ptr":
		callee, err := c.expr(f)
		if err != nil {
			return nil, err
		}
		args, err := c.exprList(v, "args")
		if err != nil {
			return nil, err
		}
		return &ir.Call{Loc: loc, Callee: callee, Args: args}, nil
	case "method":
		return c.methodCall(v, f, loc)
	case "construct":
		t, err := c.typeField(v, "construct", true)
		if err != nil {
			return nil, err
		}
		if t.Kind != ir.KindClass {
			return nil, errorf(f, key, "%q is not a class type", t)
		}
		args, err := c.exprList(v, "args")
		if err != nil {
			return nil, err
		}
		return &ir.Construct{Loc: loc, Type: t, Args: args}, nil
	case "list":
		t, err := c.typeField(v, "type", true)
		if err != nil {
			return nil, err
		}
		field, err := str(v, "field")
		if err != nil {
			return nil, err
		}
		return c.initList(f, t, field)
	case "new":
		return c.newExpr(v, loc)
	case "delete":
		x, err := c.expr(f)
		if err != nil {
			return nil, err
		}
		array, err := boolField(v, "array", false)
		if err != nil {
			return nil, err
		}
		return &ir.Delete{Loc: loc, X: x, Array: array}, nil
	case "cast":
		s, _ := f.String()
		kind, ok := castKinds[s]
		if !ok {
			return nil, errorf(f, key, "unknown cast kind %q", s)
		}
		t, err := c.typeField(v, "type", true)
		if err != nil {
			return nil, err
		}
		x, err := c.exprField(v, "x")
		if err != nil {
			return nil, err
		}
		return &ir.Cast{Loc: loc, Kind: kind, Type: t, X: x}, nil
	case "typeid":
		t, err := c.typeField(v, "type", false)
		if err != nil {
			return nil, err
		}
		if f.IsNull() {
			if t == nil {
				return nil, errorf(v, "type", "typeid of a type needs type")
			}
			return &ir.TypeID{Loc: loc, Type: t}, nil
		}
		x, err := c.expr(f)
		if err != nil {
			return nil, err
		}
		return &ir.TypeID{Loc: loc, X: x, Type: t}, nil
	case "member_ptr":
		name, _ := f.String()
		cn, err := requireStr(v, "class")
		if err != nil {
			return nil, err
		}
		cls := c.classes[cn]
		if cls == nil {
			return nil, errorf(v, "class", "unknown class %q", cn)
		}
		return &ir.MemberPtr{Loc: loc, Class: cls, Member: name}, nil
	case "member_access":
		ptr, err := c.expr(f)
		if err != nil {
			return nil, err
		}
		x, err := c.exprField(v, "x")
		if err != nil {
			return nil, err
		}
		arrow, err := boolField(v, "arrow", false)
		if err != nil {
			return nil, err
		}
		return &ir.MemberAccess{Loc: loc, X: x, Arrow: arrow, Ptr: ptr}, nil
	case "func_addr":
		name, _ := f.String()
		fn := c.funcs[name]
		if fn == nil {
			return nil, errorf(f, key, "unknown function %q", name)
		}
		return &ir.FuncAddr{Loc: loc, Func: fn}, nil
	case "throw":
		if f.IsNull() {
			return &ir.Throw{Loc: loc}, nil
		}
		x, err := c.expr(f)
		if err != nil {
			return nil, err
		}
		return &ir.Throw{Loc: loc, X: x}, nil
	}
	return nil, errorf(v, key, "unknown expression form")
}

func (c *compiler) binary(v, f cue.Value, loc ir.Loc) (ir.Expr, error) {
	s, _ := f.String()
	op, ok := binaryOps[s]
	if !ok {
		return nil, errorf(f, "binary", "unknown binary operator %q", s)
	}
	x, err := c.exprField(v, "x")
	if err != nil {
		return nil, err
	}
	y, err := c.exprField(v, "y")
	if err != nil {
		return nil, err
	}
	t, err := c.typeField(v, "type", false)
	if err != nil {
		return nil, err
	}
	b := &ir.Binary{Loc: loc, Op: op, X: x, Y: y, Type: t}
	if name, err := str(v, "operator"); err != nil {
		return nil, err
	} else if name != "" {
		if b.Operator = c.funcs[name]; b.Operator == nil {
			return nil, errorf(v, "operator", "unknown operator function %q", name)
		}
	}
	return b, nil
}

func (c *compiler) methodCall(v, f cue.Value, loc ir.Loc) (ir.Expr, error) {
	name, err := f.String()
	if err != nil {
		return nil, errorf(f, "method", "must be a method name")
	}
	recv, err := c.exprField(v, "recv")
	if err != nil {
		return nil, err
	}
	arrow, err := boolField(v, "arrow", false)
	if err != nil {
		return nil, err
	}
	args, err := c.exprList(v, "args")
	if err != nil {
		return nil, err
	}
	mc := &ir.MethodCall{Loc: loc, Recv: recv, Arrow: arrow, Name: name, Args: args}
	qual, err := str(v, "qualified")
	if err != nil {
		return nil, err
	}
	if qual != "" {
		cls := c.classes[qual]
		if cls == nil {
			return nil, errorf(v, "qualified", "unknown class %q", qual)
		}
		if mc.Method = cls.Method(name, len(args)); mc.Method == nil {
			return nil, errorf(v, "qualified", "class %q has no method %q taking %d arguments", qual, name, len(args))
		}
		mc.Qualified = true
	}
	return mc, nil
}

func (c *compiler) newExpr(v cue.Value, loc ir.Loc) (ir.Expr, error) {
	t, err := c.typeField(v, "new", true)
	if err != nil {
		return nil, err
	}
	n := &ir.New{Loc: loc, Elem: t}
	if n.Count, err = c.optExpr(v, "count"); err != nil {
		return nil, err
	}
	if iv, ok := lookup(v, "init"); ok {
		if n.Init, err = c.exprFor(iv, t); err != nil {
			return nil, err
		}
	}
	if ev, ok := lookup(v, "elems"); ok {
		n.ListInit = true
		err := eachOf(ev, "elems", func(x cue.Value) error {
			e, err := c.exprFor(x, t)
			if err != nil {
				return err
			}
			n.Elems = append(n.Elems, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if n.Nothrow, err = boolField(v, "nothrow", false); err != nil {
		return nil, err
	}
	if n.Placement, err = c.optExpr(v, "placement"); err != nil {
		return nil, err
	}
	return n, nil
}
