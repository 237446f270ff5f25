package dispatch

import (
	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/value"
)

// Path is a sequence of direct-base indices leading from a class down to one
// of its (indirect) base classes. The empty path is the class itself.
type Path []int

// Selectors converts the path into designator selectors.
func (p Path) Selectors() []value.Selector {
	sels := make([]value.Selector, len(p))
	for i, idx := range p {
		sels[i] = value.Selector{Kind: value.SelBase, Index: idx}
	}
	return sels
}

// BasePaths returns every path from `from` to a base subobject of class
// `to`, in depth-first declaration order.
func BasePaths(from, to *ir.ClassDecl) []Path {
	var out []Path
	var walk func(c *ir.ClassDecl, prefix Path)
	walk = func(c *ir.ClassDecl, prefix Path) {
		if c == to {
			p := make(Path, len(prefix))
			copy(p, prefix)
			out = append(out, p)
			return
		}
		for i, b := range c.Bases {
			walk(b.Class, append(prefix, i))
		}
	}
	walk(from, nil)
	return out
}

// IsBaseOf reports whether base is derived's class or one of its bases.
func IsBaseOf(base, derived *ir.ClassDecl) bool {
	return len(BasePaths(derived, base)) > 0
}

// UniqueBasePath returns the single path from `from` to `to`.
func UniqueBasePath(from, to *ir.ClassDecl) (Path, error) {
	paths := BasePaths(from, to)
	switch len(paths) {
	case 0:
		return nil, diag.New(diag.KindNoSuchBase, "'%s' is not a base class of '%s'", to.Name, from.Name)
	case 1:
		return paths[0], nil
	}
	return nil, diag.New(diag.KindAmbiguousBase, "ambiguous conversion from derived class '%s' to base class '%s'", from.Name, to.Name)
}

// PathIsPublic reports whether every edge of the path is public.
func PathIsPublic(from *ir.ClassDecl, p Path) bool {
	c := from
	for _, idx := range p {
		b := c.Bases[idx]
		if b.Access != ir.Public {
			return false
		}
		c = b.Class
	}
	return true
}

// ClassesAlong lists the classes visited by a path, starting with from.
func ClassesAlong(from *ir.ClassDecl, p Path) []*ir.ClassDecl {
	out := []*ir.ClassDecl{from}
	c := from
	for _, idx := range p {
		c = c.Bases[idx].Class
		out = append(out, c)
	}
	return out
}

// IsPolymorphic reports whether the class declares or inherits a virtual
// function or destructor.
func IsPolymorphic(c *ir.ClassDecl) bool {
	if c.VirtualDtor {
		return true
	}
	for _, m := range c.Methods {
		if m.Virtual || m.Pure {
			return true
		}
	}
	for _, b := range c.Bases {
		if IsPolymorphic(b.Class) {
			return true
		}
	}
	return false
}

// HasVirtualDestructor reports whether the class's destructor is virtual,
// either declared so or inherited from a base.
func HasVirtualDestructor(c *ir.ClassDecl) bool {
	if c.VirtualDtor {
		return true
	}
	for _, b := range c.Bases {
		if HasVirtualDestructor(b.Class) {
			return true
		}
	}
	return false
}

// IsVirtual reports whether a call to the named member of c with the given
// arity dispatches virtually: some declaration along c's bases is virtual.
func IsVirtual(c *ir.ClassDecl, name string, arity int) bool {
	if m := c.Method(name, arity); m != nil && (m.Virtual || m.Pure) {
		return true
	}
	for _, b := range c.Bases {
		if IsVirtual(b.Class, name, arity) {
			return true
		}
	}
	return false
}

// FindMethod looks a member function up in c and, failing that, in its
// bases. It returns the declaration and the base path to its class.
func FindMethod(c *ir.ClassDecl, name string, arity int) (*ir.FuncDecl, Path, error) {
	if m := c.Method(name, arity); m != nil {
		return m, nil, nil
	}
	var found *ir.FuncDecl
	var foundPath Path
	for i, b := range c.Bases {
		m, p, err := FindMethod(b.Class, name, arity)
		if err != nil {
			return nil, nil, err
		}
		if m == nil {
			continue
		}
		if found != nil {
			return nil, nil, diag.New(diag.KindAmbiguousBase, "member '%s' found in multiple base classes of '%s'", name, c.Name)
		}
		found = m
		foundPath = append(Path{i}, p...)
	}
	return found, foundPath, nil
}

// FindField looks a data member up in c and its bases, returning the class
// path to the declaring class and the field index.
func FindField(c *ir.ClassDecl, name string) (Path, int, error) {
	if i := c.FieldIndex(name); i >= 0 {
		return nil, i, nil
	}
	var foundPath Path
	found := -1
	for bi, b := range c.Bases {
		p, idx, err := FindField(b.Class, name)
		if err != nil {
			return nil, -1, err
		}
		if idx < 0 {
			continue
		}
		if found >= 0 {
			return nil, -1, diag.New(diag.KindAmbiguousBase, "member '%s' found in multiple base classes of '%s'", name, c.Name)
		}
		found = idx
		foundPath = append(Path{bi}, p...)
	}
	return foundPath, found, nil
}
