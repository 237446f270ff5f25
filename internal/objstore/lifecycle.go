package objstore

import (
	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/value"
)

// Destroyer runs the destruction of an alive object, destructor side effects
// included, and leaves it ended.
type Destroyer func(d value.Designator, o *Object) error

// BeginConstruction moves a not-started object to under-construction in the
// bases stage.
func (s *Store) BeginConstruction(o *Object) error {
	if o.State != NotStarted {
		return diag.New(diag.KindUseAfterLifetime, "construction of object '%s' that is %s",
			s.Describe(s.DesignatorOf(o)), o.State)
	}
	o.State = UnderConstruction
	o.Stage = StageBases
	return nil
}

// EnterOwnStage records that all base subobjects have been handled.
func (s *Store) EnterOwnStage(o *Object) {
	o.Stage = StageOwn
}

// EndConstruction makes an under-construction object alive.
func (s *Store) EndConstruction(o *Object) {
	if o.State == UnderConstruction {
		o.State = Alive
		o.Stage = StageOwn
	}
}

// BeginDestruction moves an alive object to under-destruction. Destroying
// an object twice, or one that is already being destroyed, fails.
func (s *Store) BeginDestruction(o *Object) error {
	switch o.State {
	case UnderDestruction:
		return diag.New(diag.KindUseAfterLifetime, "destruction of object '%s' that is already being destroyed",
			s.Describe(s.DesignatorOf(o)))
	case Ended:
		return diag.New(diag.KindUseAfterLifetime, "destruction of object '%s' whose lifetime has already ended",
			s.Describe(s.DesignatorOf(o)))
	case NotStarted:
		return diag.New(diag.KindUseAfterLifetime, "destruction of object '%s' outside its lifetime",
			s.Describe(s.DesignatorOf(o)))
	}
	o.State = UnderDestruction
	o.Stage = StageOwn
	return nil
}

// LeaveOwnStage records that the destructor body and member destruction are
// done and base subobjects are next.
func (s *Store) LeaveOwnStage(o *Object) {
	o.Stage = StageBases
}

// EndDestruction ends the object's lifetime.
func (s *Store) EndDestruction(o *Object) {
	s.Kill(o)
}

// SwitchActiveMember makes member idx of the designated union active. The
// previously active member is destroyed first through destroy, so its
// destructor side effects are observable. The new member's lifetime starts
// with trivial default initialization.
func (s *Store) SwitchActiveMember(u value.Designator, idx int, destroy Destroyer) (*Object, error) {
	uo, err := s.Resolve(u, AccessWrite)
	if err != nil {
		return nil, err
	}
	if !uo.IsUnion() {
		return nil, diag.New(diag.KindNonConstant, "'%s' is not a union", s.Describe(u))
	}
	if uo.Const {
		return nil, diag.New(diag.KindModifyConst, "modification of object of const-qualified type '%s'", s.Describe(u))
	}
	sel := value.Selector{Kind: value.SelField, Index: idx}
	if uo.Active == idx {
		if c := uo.Child(sel); c != nil && c.InLifetime() {
			return c, nil
		}
	}
	if uo.Active >= 0 {
		oldSel := value.Selector{Kind: value.SelField, Index: uo.Active}
		if old := uo.Child(oldSel); old != nil && old.State == Alive {
			if destroy != nil {
				if err := destroy(u.Child(oldSel), old); err != nil {
					return nil, err
				}
			}
			s.Kill(old)
		}
	}
	uo.Active = idx
	c, err := s.EnsureChild(uo, sel)
	if err != nil {
		return nil, err
	}
	if err := s.BeginConstruction(c); err != nil {
		return nil, err
	}
	if err := s.StartTrivial(c); err != nil {
		return nil, err
	}
	return c, nil
}
