package value

import (
	"fmt"

	"github.com/roach88/consteval/internal/ir"
)

// Ordering is the result of a three-way comparison.
type Ordering struct {
	Category ir.OrderingCategory
	Outcome  ir.Outcome
}

func (Ordering) isValue() {}

func (o Ordering) String() string {
	return fmt.Sprintf("std::%s::%s", o.Category, o.Outcome)
}

// ValidOutcome reports whether the outcome belongs to the category.
func ValidOutcome(c ir.OrderingCategory, o ir.Outcome) bool {
	switch c {
	case ir.StrongOrdering:
		return o == ir.Less || o == ir.Equal || o == ir.Greater
	case ir.WeakOrdering:
		return o == ir.Less || o == ir.Equivalent || o == ir.Greater
	case ir.PartialOrdering:
		return o == ir.Less || o == ir.Equivalent || o == ir.Greater || o == ir.Unordered
	case ir.StrongEquality:
		return o == ir.Equal || o == ir.NonEqual
	case ir.WeakEquality:
		return o == ir.Equivalent || o == ir.NonEquivalent
	}
	return false
}

// NewOrdering builds an ordering from a sign, normalizing the outcome to the
// category's spelling.
func NewOrdering(c ir.OrderingCategory, sign int) Ordering {
	switch {
	case sign < 0:
		return Ordering{Category: c, Outcome: ir.Less}.In(c)
	case sign > 0:
		return Ordering{Category: c, Outcome: ir.Greater}.In(c)
	}
	return Ordering{Category: c, Outcome: ir.Equal}.In(c)
}

// UnorderedResult returns the partial ordering's unordered value.
func UnorderedResult() Ordering {
	return Ordering{Category: ir.PartialOrdering, Outcome: ir.Unordered}
}

// In converts the ordering to a weaker category. Converting to a stronger
// category is not meaningful and returns the receiver unchanged.
func (o Ordering) In(c ir.OrderingCategory) Ordering {
	eq := o.Outcome == ir.Equal || o.Outcome == ir.Equivalent
	ne := o.Outcome == ir.NonEqual || o.Outcome == ir.NonEquivalent ||
		o.Outcome == ir.Less || o.Outcome == ir.Greater
	out := o.Outcome
	switch c {
	case ir.StrongOrdering:
		if o.Outcome == ir.Equivalent {
			out = ir.Equal
		}
	case ir.WeakOrdering, ir.PartialOrdering:
		if eq {
			out = ir.Equivalent
		}
	case ir.StrongEquality:
		switch {
		case eq:
			out = ir.Equal
		case ne:
			out = ir.NonEqual
		}
	case ir.WeakEquality:
		switch {
		case eq:
			out = ir.Equivalent
		case ne:
			out = ir.NonEquivalent
		}
	}
	if !ValidOutcome(c, out) {
		return o
	}
	return Ordering{Category: c, Outcome: out}
}

// Compare0 applies a relational operator between the ordering and literal
// zero. Unordered results make every operator false except !=. Equality
// categories only support == and !=.
func (o Ordering) Compare0(op ir.BinaryOp) (bool, error) {
	if o.Category.IsEquality() && op != ir.OpEq && op != ir.OpNe {
		return false, fmt.Errorf("operator %s is not defined for %s", op, o.Category)
	}
	eq := o.Outcome == ir.Equal || o.Outcome == ir.Equivalent
	lt := o.Outcome == ir.Less
	gt := o.Outcome == ir.Greater
	switch op {
	case ir.OpEq:
		return eq, nil
	case ir.OpNe:
		return !eq, nil
	case ir.OpLt:
		return lt, nil
	case ir.OpGt:
		return gt, nil
	case ir.OpLe:
		return lt || eq, nil
	case ir.OpGe:
		return gt || eq, nil
	}
	return false, fmt.Errorf("operator %s cannot compare an ordering with 0", op)
}

// Reverse returns the ordering of the swapped comparison, as used by 0 <=> x
// and by synthesized reversed candidates.
func (o Ordering) Reverse() Ordering {
	switch o.Outcome {
	case ir.Less:
		return Ordering{Category: o.Category, Outcome: ir.Greater}
	case ir.Greater:
		return Ordering{Category: o.Category, Outcome: ir.Less}
	}
	return o
}
