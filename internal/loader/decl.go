package loader

import (
	"cuelang.org/go/cue"

	"github.com/roach88/consteval/internal/ir"
)

// classSrc pairs a class shell with the CUE parts compiled in the second
// pass.
type classSrc struct {
	cls     *ir.ClassDecl
	v       cue.Value
	fields  []cue.Value
	ctors   []cue.Value
	methods []cue.Value
	dtor    cue.Value
}

type funcSrc struct {
	fn *ir.FuncDecl
	v  cue.Value
}

type globalSrc struct {
	g *ir.GlobalVar
	v cue.Value
}

// declare is the first pass: every class, function and global gets a shell
// with its signature so bodies can refer to anything.
func (c *compiler) declare(v cue.Value) error {
	var classes []*classSrc
	err := each(v, "classes", func(cv cue.Value) error {
		name, err := requireStr(cv, "name")
		if err != nil {
			return err
		}
		if _, dup := c.classes[name]; dup {
			return errorf(cv, "name", "class %q declared twice", name)
		}
		union, err := boolField(cv, "union", false)
		if err != nil {
			return err
		}
		cls := &ir.ClassDecl{Loc: locOf(cv), Name: name, Union: union}
		c.classes[name] = cls
		c.classList = append(c.classList, cls)
		classes = append(classes, &classSrc{cls: cls, v: cv})
		return nil
	})
	if err != nil {
		return err
	}
	for _, cs := range classes {
		if err := c.declareMembers(cs); err != nil {
			return err
		}
	}

	var funcs []funcSrc
	err = each(v, "functions", func(fv cue.Value) error {
		fn, err := c.signature(fv, nil, ir.FuncFree)
		if err != nil {
			return err
		}
		if _, dup := c.funcs[fn.Name]; dup {
			return errorf(fv, "name", "function %q declared twice", fn.Name)
		}
		c.funcs[fn.Name] = fn
		c.funcList = append(c.funcList, fn)
		funcs = append(funcs, funcSrc{fn: fn, v: fv})
		return nil
	})
	if err != nil {
		return err
	}

	var globals []globalSrc
	err = each(v, "globals", func(gv cue.Value) error {
		name, err := requireStr(gv, "name")
		if err != nil {
			return err
		}
		t, err := c.typeField(gv, "type", true)
		if err != nil {
			return err
		}
		constexpr, err := boolField(gv, "constexpr", true)
		if err != nil {
			return err
		}
		ref, err := boolField(gv, "ref", false)
		if err != nil {
			return err
		}
		g := &ir.GlobalVar{Loc: locOf(gv), Name: name, Type: t, Constexpr: constexpr, Ref: ref}
		c.globals[name] = g
		c.globalList = append(c.globalList, g)
		globals = append(globals, globalSrc{g: g, v: gv})
		return nil
	})
	if err != nil {
		return err
	}

	c.pending = pending{classes: classes, funcs: funcs, globals: globals}
	return nil
}

type pending struct {
	classes []*classSrc
	funcs   []funcSrc
	globals []globalSrc
}

func (c *compiler) declareMembers(cs *classSrc) error {
	cls, v := cs.cls, cs.v
	err := each(v, "bases", func(bv cue.Value) error {
		name, err := requireStr(bv, "class")
		if err != nil {
			return err
		}
		base := c.classes[name]
		if base == nil {
			return errorf(bv, "class", "unknown base class %q", name)
		}
		if base == cls {
			return errorf(bv, "class", "class %q cannot be its own base", name)
		}
		spec := ir.BaseSpec{Class: base}
		access, err := str(bv, "access")
		if err != nil {
			return err
		}
		switch access {
		case "", "public":
		case "protected":
			spec.Access = ir.Protected
		case "private":
			spec.Access = ir.Private
		default:
			return errorf(bv, "access", "unknown access %q", access)
		}
		if spec.Virtual, err = boolField(bv, "virtual", false); err != nil {
			return err
		}
		cls.Bases = append(cls.Bases, spec)
		return nil
	})
	if err != nil {
		return err
	}

	err = each(v, "fields", func(fv cue.Value) error {
		name, err := requireStr(fv, "name")
		if err != nil {
			return err
		}
		t, err := c.typeField(fv, "type", true)
		if err != nil {
			return err
		}
		ref, err := boolField(fv, "ref", false)
		if err != nil {
			return err
		}
		cls.Fields = append(cls.Fields, &ir.FieldDecl{Loc: locOf(fv), Name: name, Type: t, Ref: ref})
		cs.fields = append(cs.fields, fv)
		return nil
	})
	if err != nil {
		return err
	}

	err = each(v, "ctors", func(cv cue.Value) error {
		fn, err := c.signature(cv, cls, ir.FuncCtor)
		if err != nil {
			return err
		}
		cls.Ctors = append(cls.Ctors, fn)
		cs.ctors = append(cs.ctors, cv)
		return nil
	})
	if err != nil {
		return err
	}

	err = each(v, "methods", func(mv cue.Value) error {
		fn, err := c.signature(mv, cls, ir.FuncMethod)
		if err != nil {
			return err
		}
		cls.Methods = append(cls.Methods, fn)
		cs.methods = append(cs.methods, mv)
		return nil
	})
	if err != nil {
		return err
	}

	if dv, ok := lookup(v, "dtor"); ok {
		virtual, err := boolField(dv, "virtual", false)
		if err != nil {
			return err
		}
		cls.VirtualDtor = virtual
		if has(dv, "body") {
			fn, err := c.signature(dv, cls, ir.FuncDtor)
			if err != nil {
				return err
			}
			cls.Dtor = fn
			cs.dtor = dv
		}
	}
	return nil
}

// signature builds a function shell. Functions are constexpr unless
// declared otherwise; a function without a body is declared but not
// defined.
func (c *compiler) signature(v cue.Value, cls *ir.ClassDecl, kind ir.FuncKind) (*ir.FuncDecl, error) {
	fn := &ir.FuncDecl{Loc: locOf(v), Class: cls, Kind: kind}
	switch kind {
	case ir.FuncCtor, ir.FuncDtor:
		fn.Name = cls.Name
	default:
		name, err := requireStr(v, "name")
		if err != nil {
			return nil, err
		}
		fn.Name = name
	}
	err := each(v, "params", func(pv cue.Value) error {
		name, err := str(pv, "name")
		if err != nil {
			return err
		}
		t, err := c.typeField(pv, "type", true)
		if err != nil {
			return err
		}
		ref, err := boolField(pv, "ref", false)
		if err != nil {
			return err
		}
		fn.Params = append(fn.Params, &ir.Param{Name: name, Type: t, Ref: ref})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if fn.Result, err = c.typeField(v, "result", false); err != nil {
		return nil, err
	}
	if fn.RefResult, err = boolField(v, "ref_result", false); err != nil {
		return nil, err
	}
	if fn.Virtual, err = boolField(v, "virtual", false); err != nil {
		return nil, err
	}
	if fn.Pure, err = boolField(v, "pure", false); err != nil {
		return nil, err
	}
	constexpr, err := boolField(v, "constexpr", true)
	if err != nil {
		return nil, err
	}
	fn.NonConstant = !constexpr
	return fn, nil
}

// define is the second pass: initializers and bodies.
func (c *compiler) define() error {
	for _, cs := range c.pending.classes {
		if err := c.defineClass(cs); err != nil {
			return err
		}
	}
	for _, fs := range c.pending.funcs {
		if err := c.defineBody(fs.fn, fs.v); err != nil {
			return err
		}
	}
	for _, gs := range c.pending.globals {
		iv, ok := lookup(gs.v, "init")
		if !ok {
			continue
		}
		init, err := c.exprFor(iv, gs.g.Type)
		if err != nil {
			return err
		}
		gs.g.Init = init
	}
	return nil
}

func (c *compiler) defineClass(cs *classSrc) error {
	cls := cs.cls
	for i, fv := range cs.fields {
		iv, ok := lookup(fv, "init")
		if !ok {
			continue
		}
		init, err := c.exprFor(iv, cls.Fields[i].Type)
		if err != nil {
			return err
		}
		cls.Fields[i].Init = init
	}
	for i, cv := range cs.ctors {
		ctor := cls.Ctors[i]
		err := each(cv, "inits", func(mv cue.Value) error {
			mi, err := c.memberInit(cls, mv)
			if err != nil {
				return err
			}
			ctor.Inits = append(ctor.Inits, mi)
			return nil
		})
		if err != nil {
			return err
		}
		if err := c.defineBody(ctor, cv); err != nil {
			return err
		}
	}
	for i, mv := range cs.methods {
		if err := c.defineBody(cls.Methods[i], mv); err != nil {
			return err
		}
	}
	if cls.Dtor != nil {
		if err := c.defineBody(cls.Dtor, cs.dtor); err != nil {
			return err
		}
	}
	return nil
}

// memberInit compiles one entry of a member initializer list: either
// {base: "B", ...} or {field: "x", ...}, initialized by init or by
// constructor args.
func (c *compiler) memberInit(cls *ir.ClassDecl, v cue.Value) (*ir.MemberInit, error) {
	mi := &ir.MemberInit{Loc: locOf(v)}
	var t *ir.Type
	switch {
	case has(v, "base"):
		name, _ := str(v, "base")
		b := c.classes[name]
		if b == nil || cls.BaseIndex(b) < 0 {
			return nil, errorf(v, "base", "%q is not a direct base of %q", name, cls.Name)
		}
		mi.Base, t = b, b.Type()
	case has(v, "field"):
		name, _ := str(v, "field")
		idx := cls.FieldIndex(name)
		if idx < 0 {
			return nil, errorf(v, "field", "class %q has no field %q", cls.Name, name)
		}
		mi.Field, t = name, cls.Fields[idx].Type
	default:
		return nil, errorf(v, "inits", "member initializer needs base or field")
	}
	if iv, ok := lookup(v, "init"); ok {
		init, err := c.exprFor(iv, t)
		if err != nil {
			return nil, err
		}
		mi.Init = init
		return mi, nil
	}
	if t.Kind != ir.KindClass {
		return nil, errorf(v, "init", "member initializer of %q needs init", t)
	}
	args, err := c.exprList(v, "args")
	if err != nil {
		return nil, err
	}
	mi.Init = &ir.Construct{Loc: mi.Loc, Type: t, Args: args}
	return mi, nil
}

func (c *compiler) defineBody(fn *ir.FuncDecl, v cue.Value) error {
	bv, ok := lookup(v, "body")
	if !ok {
		return nil
	}
	c.result = fn.Result
	defer func() { c.result = nil }()
	body, err := c.block(bv)
	if err != nil {
		return err
	}
	fn.Body = body
	return nil
}
