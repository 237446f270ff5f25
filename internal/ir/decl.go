package ir

import "fmt"

// Access is the access specifier of a base class edge.
type Access int

const (
	Public Access = iota
	Protected
	Private
)

func (a Access) String() string {
	switch a {
	case Protected:
		return "protected"
	case Private:
		return "private"
	}
	return "public"
}

// BaseSpec is one edge of the class graph.
type BaseSpec struct {
	Class   *ClassDecl
	Access  Access
	Virtual bool
}

// FieldDecl is a non-static data member.
type FieldDecl struct {
	Loc
	Name string
	Type *Type
	Init Expr // default member initializer, may be nil
	Ref  bool // reference member
}

// ClassDecl is a class, struct or union. Subobjects are laid out as the base
// subobjects in declaration order followed by the fields.
type ClassDecl struct {
	Loc
	Name        string
	Union       bool
	Bases       []BaseSpec
	Fields      []*FieldDecl
	Methods     []*FuncDecl
	Ctors       []*FuncDecl
	Dtor        *FuncDecl // nil means an implicit trivial destructor
	VirtualDtor bool

	typ *Type
}

// Type returns the class type. The same *Type is returned on every call.
func (c *ClassDecl) Type() *Type {
	if c.typ == nil {
		c.typ = &Type{Kind: KindClass, Class: c}
	}
	return c.typ
}

// FieldIndex returns the index of the named field, or -1.
func (c *ClassDecl) FieldIndex(name string) int {
	for i, f := range c.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// BaseIndex returns the index of the direct base b, or -1.
func (c *ClassDecl) BaseIndex(b *ClassDecl) int {
	for i, spec := range c.Bases {
		if spec.Class == b {
			return i
		}
	}
	return -1
}

// Slots is the number of direct subobjects.
func (c *ClassDecl) Slots() int {
	return len(c.Bases) + len(c.Fields)
}

// Method returns the method declared directly in c with the given name and
// arity, or nil. An arity of -1 matches any.
func (c *ClassDecl) Method(name string, arity int) *FuncDecl {
	for _, m := range c.Methods {
		if m.Name == name && (arity < 0 || len(m.Params) == arity) {
			return m
		}
	}
	return nil
}

// Constructor returns the user-declared constructor with the given arity.
func (c *ClassDecl) Constructor(arity int) *FuncDecl {
	for _, ctor := range c.Ctors {
		if len(ctor.Params) == arity {
			return ctor
		}
	}
	return nil
}

// HasVirtualBase reports whether any direct base edge is virtual.
func (c *ClassDecl) HasVirtualBase() bool {
	for _, b := range c.Bases {
		if b.Virtual {
			return true
		}
	}
	return false
}

// FuncKind distinguishes free functions from special members.
type FuncKind int

const (
	FuncFree FuncKind = iota
	FuncMethod
	FuncCtor
	FuncDtor
)

// Param is a function parameter.
type Param struct {
	Name string
	Type *Type
	Ref  bool
}

// MemberInit is one entry of a constructor's member initializer list. Exactly
// one of Base or Field is set. Init is an initializer expression of the
// subobject's type (a Construct for class subobjects, a scalar expression
// otherwise).
type MemberInit struct {
	Loc
	Base  *ClassDecl
	Field string
	Init  Expr
}

// FuncDecl is a function, method, constructor or destructor.
type FuncDecl struct {
	Loc
	Name        string
	Class       *ClassDecl
	Kind        FuncKind
	Virtual     bool
	Pure        bool
	NonConstant bool // declared without constexpr; calls are not constant
	Params      []*Param
	Result      *Type
	RefResult   bool
	Body        *Block // nil for declared-but-undefined functions
	Inits       []*MemberInit
}

// QualifiedName renders Class::Name for members.
func (f *FuncDecl) QualifiedName() string {
	if f.Class == nil {
		return f.Name
	}
	switch f.Kind {
	case FuncCtor:
		return fmt.Sprintf("%s::%s", f.Class.Name, f.Class.Name)
	case FuncDtor:
		return fmt.Sprintf("%s::~%s", f.Class.Name, f.Class.Name)
	}
	return fmt.Sprintf("%s::%s", f.Class.Name, f.Name)
}

// InitFor returns the member initializer for a base or field, or nil.
func (f *FuncDecl) InitFor(base *ClassDecl, field string) *MemberInit {
	for _, mi := range f.Inits {
		if base != nil && mi.Base == base {
			return mi
		}
		if base == nil && mi.Base == nil && mi.Field == field {
			return mi
		}
	}
	return nil
}

// GlobalVar is a namespace-scope variable.
type GlobalVar struct {
	Loc
	Name      string
	Type      *Type
	Init      Expr
	Constexpr bool
	Ref       bool
}

// Program is the unit handed to an evaluation session.
type Program struct {
	Classes []*ClassDecl
	Funcs   []*FuncDecl
	Globals []*GlobalVar

	classes map[string]*ClassDecl
	funcs   map[string]*FuncDecl
	globals map[string]*GlobalVar
}

// NewProgram indexes the given declarations by name.
func NewProgram(classes []*ClassDecl, funcs []*FuncDecl, globals []*GlobalVar) *Program {
	p := &Program{Classes: classes, Funcs: funcs, Globals: globals}
	p.reindex()
	return p
}

func (p *Program) reindex() {
	p.classes = make(map[string]*ClassDecl, len(p.Classes))
	for _, c := range p.Classes {
		p.classes[c.Name] = c
	}
	p.funcs = make(map[string]*FuncDecl, len(p.Funcs))
	for _, f := range p.Funcs {
		p.funcs[f.Name] = f
	}
	p.globals = make(map[string]*GlobalVar, len(p.Globals))
	for _, g := range p.Globals {
		p.globals[g.Name] = g
	}
}

// Class looks up a class by name.
func (p *Program) Class(name string) *ClassDecl {
	if p.classes == nil {
		p.reindex()
	}
	return p.classes[name]
}

// Func looks up a free function by name.
func (p *Program) Func(name string) *FuncDecl {
	if p.funcs == nil {
		p.reindex()
	}
	return p.funcs[name]
}

// Global looks up a namespace-scope variable by name.
func (p *Program) Global(name string) *GlobalVar {
	if p.globals == nil {
		p.reindex()
	}
	return p.globals[name]
}
