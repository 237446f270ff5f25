package value

import (
	"fmt"
	"strings"
)

// ObjectID identifies a complete object in an object store. Zero is never a
// valid id.
type ObjectID int

// SelectorKind says which kind of subobject a selector picks.
type SelectorKind uint8

const (
	SelBase SelectorKind = iota
	SelField
	SelElem
)

// Selector picks one direct subobject: a base by index, a field by index or
// an array element by index.
type Selector struct {
	Kind  SelectorKind
	Index int
}

func (s Selector) String() string {
	switch s.Kind {
	case SelBase:
		return fmt.Sprintf(".base%d", s.Index)
	case SelField:
		return fmt.Sprintf(".f%d", s.Index)
	}
	return fmt.Sprintf("[%d]", s.Index)
}

// Designator names an object or subobject as a path from a complete object.
// Designators are never Go pointers into the store: re-resolving a
// designator after the object ended is what detects use after lifetime.
type Designator struct {
	Root    ObjectID
	Path    []Selector
	Invalid bool
}

// RootOf designates a complete object.
func RootOf(id ObjectID) Designator {
	return Designator{Root: id}
}

// Child extends the path by one selector. The receiver is not modified.
func (d Designator) Child(s Selector) Designator {
	path := make([]Selector, len(d.Path)+1)
	copy(path, d.Path)
	path[len(d.Path)] = s
	return Designator{Root: d.Root, Path: path, Invalid: d.Invalid}
}

// Base designates the i-th direct base subobject.
func (d Designator) Base(i int) Designator { return d.Child(Selector{Kind: SelBase, Index: i}) }

// Field designates the i-th field.
func (d Designator) Field(i int) Designator { return d.Child(Selector{Kind: SelField, Index: i}) }

// Elem designates the i-th array element.
func (d Designator) Elem(i int) Designator { return d.Child(Selector{Kind: SelElem, Index: i}) }

// Extend appends a sequence of selectors.
func (d Designator) Extend(sels ...Selector) Designator {
	path := make([]Selector, 0, len(d.Path)+len(sels))
	path = append(path, d.Path...)
	path = append(path, sels...)
	return Designator{Root: d.Root, Path: path, Invalid: d.Invalid}
}

// Prefix returns the designator of the first n selectors.
func (d Designator) Prefix(n int) Designator {
	path := make([]Selector, n)
	copy(path, d.Path[:n])
	return Designator{Root: d.Root, Path: path, Invalid: d.Invalid}
}

// Parent returns the enclosing designator and the last selector. ok is false
// for complete objects.
func (d Designator) Parent() (parent Designator, last Selector, ok bool) {
	if len(d.Path) == 0 {
		return d, Selector{}, false
	}
	return d.Prefix(len(d.Path) - 1), d.Path[len(d.Path)-1], true
}

// IsRoot reports whether d designates a complete object.
func (d Designator) IsRoot() bool {
	return len(d.Path) == 0
}

// Equal reports whether both designate the same subobject. Validity is not
// compared.
func (d Designator) Equal(o Designator) bool {
	if d.Root != o.Root || len(d.Path) != len(o.Path) {
		return false
	}
	for i := range d.Path {
		if d.Path[i] != o.Path[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p is d or encloses d.
func (d Designator) HasPrefix(p Designator) bool {
	if d.Root != p.Root || len(p.Path) > len(d.Path) {
		return false
	}
	for i := range p.Path {
		if d.Path[i] != p.Path[i] {
			return false
		}
	}
	return true
}

// TrailingBases counts the base selectors at the end of the path.
func (d Designator) TrailingBases() int {
	n := 0
	for i := len(d.Path) - 1; i >= 0 && d.Path[i].Kind == SelBase; i-- {
		n++
	}
	return n
}

func (d Designator) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d", d.Root)
	for _, s := range d.Path {
		b.WriteString(s.String())
	}
	if d.Invalid {
		b.WriteString("(invalid)")
	}
	return b.String()
}
