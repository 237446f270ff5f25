package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/value"
)

const dispatchSrc = `
classes: [{
	name: "Base"
	fields: [{name: "seen", type: "int", init: 0}]
	ctors: [{
		body: [{expr: {assign: "=", x: {member: "seen", x: "this", arrow: true}, y: {method: "f", recv: "this", arrow: true}}}]
	}]
	methods: [{name: "f", virtual: true, result: "int", body: [{"return": 1}]}]
	dtor: {virtual: true, body: []}
}, {
	name: "Derived"
	bases: [{class: "Base"}]
	methods: [{name: "f", virtual: true, result: "int", body: [{"return": 2}]}]
}, {
	name: "Other"
	methods: [{name: "g", virtual: true, result: "int", body: [{"return": 0}]}]
}]
functions: [{
	name: "duringCtor"
	result: "int"
	body: [
		{var: "d", type: "Derived"},
		{"return": {member: "seen", x: "d"}},
	]
}, {
	name: "afterCtor"
	result: "int"
	body: [
		{var: "d", type: "Derived"},
		{var: "b", type: "Base*", init: {cast: "base", type: "Base*", x: {unary: "&", x: "d"}}},
		{"return": {method: "f", recv: "b", arrow: true}},
	]
}, {
	name: "qualified"
	result: "int"
	body: [
		{var: "d", type: "Derived"},
		{var: "b", type: "Base*", init: {cast: "base", type: "Base*", x: {unary: "&", x: "d"}}},
		{"return": {method: "f", recv: "b", arrow: true, qualified: "Base"}},
	]
}, {
	name: "downcast"
	result: "bool"
	body: [
		{var: "d", type: "Derived"},
		{var: "b", type: "Base*", init: {cast: "base", type: "Base*", x: {unary: "&", x: "d"}}},
		{var: "p", type: "Derived*", init: {cast: "dynamic", type: "Derived*", x: "b"}},
		{"return": {binary: "==", x: "p", y: {unary: "&", x: "d"}}},
	]
}, {
	name: "crossNull"
	result: "bool"
	body: [
		{var: "d", type: "Derived"},
		{var: "b", type: "Base*", init: {cast: "base", type: "Base*", x: {unary: "&", x: "d"}}},
		{var: "o", type: "Other*", init: {cast: "dynamic", type: "Other*", x: "b"}},
		{"return": {binary: "==", x: "o", y: {nullptr: "Other*"}}},
	]
}, {
	name: "crossRef"
	result: "int"
	body: [
		{var: "d", type: "Derived"},
		{var: "b", type: "Base*", init: {cast: "base", type: "Base*", x: {unary: "&", x: "d"}}},
		{var: "o", ref: true, init: {cast: "dynamic", type: "Other", x: {unary: "*", x: "b"}}},
		{"return": 0},
	]
}, {
	name: "dynamicTypeid"
	result: "bool"
	body: [
		{var: "d", type: "Derived"},
		{var: "b", type: "Base*", init: {cast: "base", type: "Base*", x: {unary: "&", x: "d"}}},
		{"return": {binary: "==", x: {typeid: {unary: "*", x: "b"}, type: "Base"}, y: {typeid: null, type: "Derived"}}},
	]
}]
globals: [
	{name: "during", type: "int", init: {call: "duringCtor"}},
	{name: "after", type: "int", init: {call: "afterCtor"}},
	{name: "qualified", type: "int", init: {call: "qualified"}},
	{name: "downcast", type: "bool", init: {call: "downcast"}},
	{name: "crossNull", type: "bool", init: {call: "crossNull"}},
	{name: "crossRef", type: "int", init: {call: "crossRef"}},
	{name: "dynamicTypeid", type: "bool", init: {call: "dynamicTypeid"}},
]
`

// TestDispatch_VirtualCalls tests that a virtual call made by a base
// constructor reaches the base's override, and the derived override once
// construction completes.
func TestDispatch_VirtualCalls(t *testing.T) {
	s := newTestSession(t, dispatchSrc)

	assert.Equal(t, int64(1), evalInt(t, s, "during"))
	assert.Equal(t, int64(2), evalInt(t, s, "after"))
	assert.Equal(t, int64(1), evalInt(t, s, "qualified"))
}

// TestDispatch_DynamicCast tests dynamic_cast to pointers and references.
func TestDispatch_DynamicCast(t *testing.T) {
	s := newTestSession(t, dispatchSrc)

	for _, name := range []string{"downcast", "crossNull", "dynamicTypeid"} {
		t.Run(name, func(t *testing.T) {
			r := s.EvaluateGlobal(name)
			require.True(t, r.Constant(), "unexpected failure: %v", r.Err())
			assert.Equal(t, value.NewBool(true), r.Value)
		})
	}

	f := evalFailure(t, s, "crossRef")
	assert.Equal(t, diag.KindNoSuchBase, f.Kind)
	assert.Contains(t, f.Message, "no base class of type 'Other'")
}
