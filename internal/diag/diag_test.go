package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consteval/internal/ir"
)

func TestFailure_Render(t *testing.T) {
	f := NewAt(KindDivisionByZero, ir.Loc{File: "p.cue", Line: 3, Col: 7}, "division by zero")
	f.WithNote(ir.Loc{File: "p.cue", Line: 9, Col: 2}, "in call to '%s'", "div")
	f.WithNote(ir.Loc{}, "in initializer of '%s'", "g")

	assert.Equal(t, "p.cue:3:7: division-by-zero: division by zero", f.Error())
	assert.Equal(t,
		"p.cue:3:7: division-by-zero: division by zero\n"+
			"  note: p.cue:9:2: in call to 'div'\n"+
			"  note: in initializer of 'g'",
		f.Render())
}

// TestFailure_At tests that the first anchor wins.
func TestFailure_At(t *testing.T) {
	f := New(KindOverflow, "too big")
	assert.Equal(t, "overflow: too big", f.Error())

	f.At(ir.Loc{Line: 4, Col: 1})
	f.At(ir.Loc{Line: 8, Col: 1})
	assert.Equal(t, 4, f.Anchor.Line)
}

func TestKindHelpers(t *testing.T) {
	wrapped := fmt.Errorf("evaluating g: %w", New(KindLimitExceeded, "too many steps"))

	assert.Equal(t, KindLimitExceeded, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindLimitExceeded))
	assert.True(t, IsLimitError(wrapped))
	assert.False(t, Is(wrapped, KindOverflow))

	f, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "too many steps", f.Message)

	plain := errors.New("boom")
	assert.Equal(t, Kind(""), KindOf(plain))
	_, ok = As(plain)
	assert.False(t, ok)
}

func TestKind_Family(t *testing.T) {
	tests := []struct {
		kind Kind
		want Family
	}{
		{KindUninitializedRead, FamilyLifetime},
		{KindInactiveUnionMember, FamilyLifetime},
		{KindFormMismatch, FamilyAllocation},
		{KindMemoryLeak, FamilyAllocation},
		{KindPureVirtualCall, FamilyDispatch},
		{KindLimitExceeded, FamilyLimit},
		{KindUserRaised, FamilyUser},
		{KindInvalidShift, FamilyArithmetic},
		{KindNonConstant, FamilyNotConstant},
		{Kind("made-up"), FamilyNotConstant},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Family())
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	assert.Len(t, Kinds(), 22)

	_, err := ParseKind("overflowed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown failure kind "overflowed"`)
}
