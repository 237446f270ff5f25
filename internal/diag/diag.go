// Package diag defines the failures an evaluation can end with.
//
// A Failure carries one primary kind, a message anchored at the source
// location where evaluation stopped, and a chain of notes (call frames,
// allocation sites, the active union member). Failures are ordinary Go
// errors; use Is, KindOf and As to inspect wrapped failures.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/consteval/internal/ir"
)

// Family groups failure kinds.
type Family string

const (
	FamilyLifetime    Family = "lifetime"
	FamilyAllocation  Family = "allocation"
	FamilyDispatch    Family = "dispatch"
	FamilyLimit       Family = "limit"
	FamilyUser        Family = "user"
	FamilyArithmetic  Family = "arithmetic"
	FamilyNotConstant Family = "not-constant"
)

// Kind identifies a failure.
type Kind string

const (
	// KindUninitializedRead is a read of an object without a value.
	KindUninitializedRead Kind = "uninitialized-read"

	// KindInactiveUnionMember is an access to a union member that is not active.
	KindInactiveUnionMember Kind = "inactive-union-member"

	// KindUseAfterLifetime is an access to an object before its lifetime
	// began or after it ended.
	KindUseAfterLifetime Kind = "use-after-lifetime"

	// KindModifyConst is a write to an object of a constant evaluated variable.
	KindModifyConst Kind = "modify-const"

	// KindOutOfBounds is an access past the end of an array or object.
	KindOutOfBounds Kind = "out-of-bounds"

	// KindNullDereference is an access through a null pointer.
	KindNullDereference Kind = "null-dereference"

	KindBadBound       Kind = "bad-bound"
	KindFormMismatch   Kind = "form-mismatch"
	KindDoubleRelease  Kind = "double-release"
	KindDanglingTarget Kind = "dangling-target"
	KindMemoryLeak     Kind = "memory-leak"

	KindAmbiguousBase      Kind = "ambiguous-base"
	KindInaccessibleBase   Kind = "inaccessible-base"
	KindNoSuchBase         Kind = "no-such-base"
	KindDynamicTypeUnknown Kind = "dynamic-type-unknown"
	KindPureVirtualCall    Kind = "pure-virtual-call"

	KindLimitExceeded Kind = "evaluation-limit-exceeded"

	// KindUserRaised is an exception thrown by the program that no handler
	// caught.
	KindUserRaised Kind = "user-raised"

	KindOverflow       Kind = "overflow"
	KindDivisionByZero Kind = "division-by-zero"
	KindInvalidShift   Kind = "invalid-shift"

	// KindNonConstant covers everything else that makes an expression not a
	// constant: undefined functions, reads of non-constant variables,
	// unspecified comparisons and unsupported constructs.
	KindNonConstant Kind = "non-constant"
)

var families = map[Kind]Family{
	KindUninitializedRead:   FamilyLifetime,
	KindInactiveUnionMember: FamilyLifetime,
	KindUseAfterLifetime:    FamilyLifetime,
	KindModifyConst:         FamilyLifetime,
	KindOutOfBounds:         FamilyLifetime,
	KindNullDereference:     FamilyLifetime,
	KindBadBound:            FamilyAllocation,
	KindFormMismatch:        FamilyAllocation,
	KindDoubleRelease:       FamilyAllocation,
	KindDanglingTarget:      FamilyAllocation,
	KindMemoryLeak:          FamilyAllocation,
	KindAmbiguousBase:       FamilyDispatch,
	KindInaccessibleBase:    FamilyDispatch,
	KindNoSuchBase:          FamilyDispatch,
	KindDynamicTypeUnknown:  FamilyDispatch,
	KindPureVirtualCall:     FamilyDispatch,
	KindLimitExceeded:       FamilyLimit,
	KindUserRaised:          FamilyUser,
	KindOverflow:            FamilyArithmetic,
	KindDivisionByZero:      FamilyArithmetic,
	KindInvalidShift:        FamilyArithmetic,
	KindNonConstant:         FamilyNotConstant,
}

// Family returns the family the kind belongs to.
func (k Kind) Family() Family {
	if f, ok := families[k]; ok {
		return f
	}
	return FamilyNotConstant
}

// Kinds returns every known kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(families))
	for k := range families {
		out = append(out, k)
	}
	return out
}

// ParseKind validates a kind spelling.
func ParseKind(s string) (Kind, error) {
	if _, ok := families[Kind(s)]; ok {
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown failure kind %q", s)
}

// Note is a secondary diagnostic attached to a failure.
type Note struct {
	Message string `json:"message"`
	Anchor  ir.Loc `json:"anchor"`
}

// Failure is the single primary diagnostic an evaluation ends with.
type Failure struct {
	Kind    Kind
	Message string
	Anchor  ir.Loc
	Notes   []Note

	// Payload is the thrown value of a user-raised failure.
	Payload any
}

// New creates a failure with an unknown anchor. The evaluator anchors it at
// the expression being evaluated when it surfaces.
func New(kind Kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewAt creates a failure anchored at loc.
func NewAt(kind Kind, loc ir.Loc, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...), Anchor: loc}
}

// Error implements the error interface.
func (f *Failure) Error() string {
	var b strings.Builder
	if !f.Anchor.IsZero() {
		fmt.Fprintf(&b, "%s: ", f.Anchor)
	}
	fmt.Fprintf(&b, "%s: %s", f.Kind, f.Message)
	return b.String()
}

// Family returns the failure's family.
func (f *Failure) Family() Family {
	return f.Kind.Family()
}

// At anchors the failure at loc unless it is already anchored.
func (f *Failure) At(loc ir.Loc) *Failure {
	if f.Anchor.IsZero() {
		f.Anchor = loc
	}
	return f
}

// WithNote appends a note.
func (f *Failure) WithNote(loc ir.Loc, format string, args ...any) *Failure {
	f.Notes = append(f.Notes, Note{Message: fmt.Sprintf(format, args...), Anchor: loc})
	return f
}

// Render formats the failure and its notes, one per line.
func (f *Failure) Render() string {
	var b strings.Builder
	b.WriteString(f.Error())
	for _, n := range f.Notes {
		b.WriteString("\n  note: ")
		if !n.Anchor.IsZero() {
			fmt.Fprintf(&b, "%s: ", n.Anchor)
		}
		b.WriteString(n.Message)
	}
	return b.String()
}

// As extracts a Failure from err.
func As(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// KindOf returns the kind of the failure err wraps, or "" if none.
func KindOf(err error) Kind {
	if f, ok := As(err); ok {
		return f.Kind
	}
	return ""
}

// Is reports whether err wraps a failure of the given kind.
// Uses errors.As to handle wrapped errors.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsLimitError reports whether err is an evaluation limit failure.
func IsLimitError(err error) bool {
	return Is(err, KindLimitExceeded)
}
