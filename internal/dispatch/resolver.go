// Package dispatch answers questions about dynamic types over the class
// graph: which override a virtual call reaches, where a safe downcast lands,
// and what a type-identity query reports.
//
// The dynamic type of an object is clamped to the construction or
// destruction progress of its enclosing objects: while a base subobject's
// constructor or destructor runs, the enclosing derived object is not yet
// (or no longer) part of the dynamic type.
package dispatch

import (
	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/objstore"
	"github.com/roach88/consteval/internal/value"
)

// Resolver answers dynamic-type questions against one object store.
type Resolver struct {
	store *objstore.Store
}

// NewResolver creates a resolver over store.
func NewResolver(store *objstore.Store) *Resolver {
	return &Resolver{store: store}
}

// counts reports whether o takes part in the dynamic type of its subobjects.
func counts(o *objstore.Object) bool {
	switch o.State {
	case objstore.Alive:
		return true
	case objstore.UnderConstruction, objstore.UnderDestruction:
		return o.Stage == objstore.StageOwn
	}
	return false
}

// DynamicType returns the designator of the most-derived object the
// designated class subobject currently belongs to, and its class.
func (r *Resolver) DynamicType(d value.Designator) (value.Designator, *ir.ClassDecl, error) {
	root := r.store.Object(d.Root)
	if root != nil && root.Opaque {
		return d, nil, diag.New(diag.KindDynamicTypeUnknown,
			"dynamic type of non-constexpr variable '%s' is not known in a constant expression", root.Name)
	}
	o, err := r.store.Resolve(d, objstore.AccessMember)
	if err != nil {
		return d, nil, err
	}
	if o.Type.Kind != ir.KindClass {
		return d, nil, diag.New(diag.KindNonConstant, "'%s' does not have class type", r.store.Describe(d))
	}
	if !counts(o) {
		return d, nil, diag.New(diag.KindUseAfterLifetime,
			"dynamic type of '%s' used before the construction of its base classes completed", r.store.Describe(d))
	}
	cur, cls := d, o.Type.Class
	for len(cur.Path) > 0 && cur.Path[len(cur.Path)-1].Kind == value.SelBase {
		parentD, _, _ := cur.Parent()
		p := r.store.Lookup(parentD)
		if p == nil || !counts(p) {
			break
		}
		cur, cls = parentD, p.Type.Class
	}
	return cur, cls, nil
}

// relPath returns the base indices leading from the dynamic object to d.
func relPath(dyn, d value.Designator) Path {
	rest := d.Path[len(dyn.Path):]
	p := make(Path, len(rest))
	for i, s := range rest {
		p[i] = s.Index
	}
	return p
}

// Call is the outcome of virtual call resolution.
type Call struct {
	// Target is the final overrider.
	Target *ir.FuncDecl

	// This designates the subobject of the overrider's class.
	This value.Designator

	// Chain lists the declarations of the function from the overrider down
	// to the statically called declaration, for covariant return adjustment.
	Chain []*ir.FuncDecl
}

// ResolveVirtual finds the final overrider of method m for the object d
// designates. d must designate an object of m's class.
func (r *Resolver) ResolveVirtual(d value.Designator, m *ir.FuncDecl) (*Call, error) {
	dyn, dynCls, err := r.DynamicType(d)
	if err != nil {
		return nil, err
	}
	rel := relPath(dyn, d)
	classes := ClassesAlong(dynCls, rel)
	call := &Call{Target: m, This: d}
	found := -1
	for k, c := range classes {
		decl := c.Method(m.Name, len(m.Params))
		if decl == nil {
			continue
		}
		if found < 0 {
			found = k
			call.Target = decl
			call.This = d.Prefix(len(dyn.Path) + k)
		}
		call.Chain = append(call.Chain, decl)
	}
	if call.Target.Pure {
		return nil, diag.New(diag.KindPureVirtualCall, "pure virtual function '%s' called", call.Target.QualifiedName()).
			WithNote(call.Target.Loc, "declared here")
	}
	return call, nil
}

// Downcast converts d to the subobject of class target within d's dynamic
// object, as a safe downcast or cross-cast does. A nil target yields the
// complete dynamic object.
func (r *Resolver) Downcast(d value.Designator, target *ir.ClassDecl) (value.Designator, error) {
	dyn, dynCls, err := r.DynamicType(d)
	if err != nil {
		return d, err
	}
	if target == nil {
		return dyn, nil
	}
	rel := relPath(dyn, d)
	classes := ClassesAlong(dynCls, rel)
	for k, c := range classes {
		if c == target && PathIsPublic(c, rel[k:]) {
			return d.Prefix(len(dyn.Path) + k), nil
		}
	}
	paths := BasePaths(dynCls, target)
	switch {
	case len(paths) == 0:
		return d, diag.New(diag.KindNoSuchBase,
			"dynamic_cast applied to object '%s' of dynamic type '%s' that has no base class of type '%s'",
			r.store.Describe(d), dynCls.Name, target.Name)
	case len(paths) > 1:
		return d, diag.New(diag.KindAmbiguousBase,
			"dynamic_cast applied to object '%s' of dynamic type '%s' with ambiguous base class of type '%s'",
			r.store.Describe(d), dynCls.Name, target.Name)
	case !PathIsPublic(dynCls, rel):
		src := classes[len(classes)-1]
		return d, diag.New(diag.KindInaccessibleBase,
			"dynamic_cast from '%s' whose dynamic type '%s' has '%s' as a non-public base class",
			src.Name, dynCls.Name, src.Name)
	case !PathIsPublic(dynCls, paths[0]):
		return d, diag.New(diag.KindInaccessibleBase,
			"dynamic_cast to '%s', a non-public base class of dynamic type '%s'", target.Name, dynCls.Name)
	}
	return dyn.Extend(paths[0].Selectors()...), nil
}

// TypeIdentity returns the dynamic type of the designated class object.
func (r *Resolver) TypeIdentity(d value.Designator) (*ir.Type, error) {
	_, cls, err := r.DynamicType(d)
	if err != nil {
		return nil, err
	}
	return cls.Type(), nil
}

// AdjustCovariant converts the designator returned by the overrider along
// the return types of the override chain, ending at the statically called
// declaration's return type.
func AdjustCovariant(result value.Designator, chain []*ir.FuncDecl) (value.Designator, error) {
	for i := 1; i < len(chain); i++ {
		from, to := returnClass(chain[i-1]), returnClass(chain[i])
		if from == nil || to == nil || from == to {
			continue
		}
		p, err := UniqueBasePath(from, to)
		if err != nil {
			return result, err
		}
		result = result.Extend(p.Selectors()...)
	}
	return result, nil
}

func returnClass(f *ir.FuncDecl) *ir.ClassDecl {
	if f.Result == nil {
		return nil
	}
	if c := f.Result.PointeeClass(); c != nil {
		return c
	}
	if f.RefResult && f.Result.Kind == ir.KindClass {
		return f.Result.Class
	}
	return nil
}
