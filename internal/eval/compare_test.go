package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/value"
)

const compareSrc = `
classes: [{
	name: "Box"
	fields: [{name: "v", type: "int"}]
}]
functions: [{
	name: "cmpBox"
	params: [{name: "a", type: "Box"}, {name: "b", type: "Box"}]
	result: "int"
	body: [{"return": {binary: "-", x: {member: "v", x: "a"}, y: {member: "v", x: "b"}}}]
}]
globals: [
	{name: "cmp", type: "strong_ordering", init: {binary: "<=>", x: 10, y: 5}},
	{name: "less", type: "bool", init: {binary: "<", x: {binary: "<=>", x: 10, y: 5}, y: 0}},
	{name: "greater", type: "bool", init: {binary: ">", x: {binary: "<=>", x: 10, y: 5}, y: 0}},
	{name: "same", type: "bool", init: {binary: "==", x: {binary: "<=>", x: 5, y: 5}, y: 0}},
	{name: "reversed", type: "bool", init: {binary: "<", x: 0, y: {binary: "<=>", x: 10, y: 5}}},
	{name: "unorderedLess", type: "bool", init: {binary: "<", x: {ordering: "partial_ordering", outcome: "unordered"}, y: 0}},
	{name: "unorderedNe", type: "bool", init: {binary: "!=", x: {ordering: "partial_ordering", outcome: "unordered"}, y: 0}},
	{name: "weak", type: "weak_ordering", init: {binary: "<=>", x: 5, y: 5}},
	{name: "b1", type: "Box", init: [3]},
	{name: "b2", type: "Box", init: [7]},
	{name: "user", type: "strong_ordering", init: {binary: "<=>", x: "b1", y: "b2", operator: "cmpBox", type: "strong_ordering"}},
]
`

// TestCompare_ThreeWay tests three-way comparison results and their
// comparison against literal zero.
func TestCompare_ThreeWay(t *testing.T) {
	s := newTestSession(t, compareSrc)

	r := s.EvaluateGlobal("cmp")
	require.True(t, r.Constant(), "unexpected failure: %v", r.Err())
	assert.Equal(t, value.Ordering{Category: ir.StrongOrdering, Outcome: ir.Greater}, r.Value)
	assert.Equal(t, "std::strong_ordering::greater", r.Value.String())

	tests := []struct {
		global string
		want   bool
	}{
		{"less", false},
		{"greater", true},
		{"same", true},
		{"reversed", true},
		{"unorderedLess", false},
		{"unorderedNe", true},
	}
	for _, tt := range tests {
		t.Run(tt.global, func(t *testing.T) {
			r := s.EvaluateGlobal(tt.global)
			require.True(t, r.Constant(), "unexpected failure: %v", r.Err())
			assert.Equal(t, value.NewBool(tt.want), r.Value)
		})
	}
}

// TestCompare_Categories tests conversion to a weaker category and the
// wrapping of an integral user comparison.
func TestCompare_Categories(t *testing.T) {
	s := newTestSession(t, compareSrc)

	r := s.EvaluateGlobal("weak")
	require.True(t, r.Constant(), "unexpected failure: %v", r.Err())
	assert.Equal(t, "std::weak_ordering::equivalent", r.Value.String())

	r = s.EvaluateGlobal("user")
	require.True(t, r.Constant(), "unexpected failure: %v", r.Err())
	assert.Equal(t, value.Ordering{Category: ir.StrongOrdering, Outcome: ir.Less}, r.Value)
}
