package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/value"
)

const unionSrc = `
classes: [{
	name: "U"
	union: true
	fields: [{name: "a", type: "int"}, {name: "b", type: "int"}]
}]
functions: [{
	name: "readOther"
	result: "int"
	body: [
		{var: "u", type: "U", init: [1]},
		{"return": {member: "b", x: "u"}},
	]
}, {
	name: "writeThenRead"
	result: "int"
	body: [
		{var: "u", type: "U", init: [1]},
		{expr: {assign: "=", x: {member: "b", x: "u"}, y: 7}},
		{"return": {member: "b", x: "u"}},
	]
}, {
	name: "readStale"
	result: "int"
	body: [
		{var: "u", type: "U", init: [1]},
		{expr: {assign: "=", x: {member: "b", x: "u"}, y: 7}},
		{"return": {member: "a", x: "u"}},
	]
}, {
	name: "readEmpty"
	result: "int"
	body: [
		{var: "u", type: "U"},
		{"return": {member: "a", x: "u"}},
	]
}]
globals: [
	{name: "other", type: "int", init: {call: "readOther"}},
	{name: "written", type: "int", init: {call: "writeThenRead"}},
	{name: "stale", type: "int", init: {call: "readStale"}},
	{name: "empty", type: "int", init: {call: "readEmpty"}},
	{name: "whole", type: "U", init: {list: [5], type: "U", field: "b"}},
]
`

// TestUnion_ActiveMember tests that only the active member of a union can
// be read and that assignment switches the active member.
func TestUnion_ActiveMember(t *testing.T) {
	s := newTestSession(t, unionSrc)

	f := evalFailure(t, s, "other")
	assert.Equal(t, diag.KindInactiveUnionMember, f.Kind)
	assert.Contains(t, f.Message, "read of member 'b' of union with active member 'a'")

	assert.Equal(t, int64(7), evalInt(t, s, "written"))

	f = evalFailure(t, s, "stale")
	assert.Equal(t, diag.KindInactiveUnionMember, f.Kind)
	assert.Contains(t, f.Message, "member 'a' of union with active member 'b'")

	f = evalFailure(t, s, "empty")
	assert.Equal(t, diag.KindInactiveUnionMember, f.Kind)
	assert.Contains(t, f.Message, "no active member")

	r := s.EvaluateGlobal("whole")
	require.True(t, r.Constant(), "unexpected failure: %v", r.Err())
	u, ok := r.Value.(value.Union)
	require.True(t, ok)
	assert.Equal(t, 1, u.Active)
	assert.Equal(t, "{.b = 5}", u.String())
}

const copySrc = `
classes: [{
	name: "Inner"
	fields: [{name: "v", type: "int"}]
}, {
	name: "Outer"
	fields: [{name: "a", type: "Inner"}, {name: "b", type: "Inner"}, {name: "c", type: "Inner"}]
}]
functions: [{
	name: "copyPartial"
	result: "int"
	body: [
		{var: "o", type: "Outer"},
		{expr: {assign: "=", x: {member: "v", x: {member: "a", x: "o"}}, y: 1}},
		{expr: {assign: "=", x: {member: "v", x: {member: "b", x: "o"}}, y: 2}},
		{var: "copy", type: "Outer", init: "o"},
		{"return": {member: "v", x: {member: "b", x: "copy"}}},
	]
}, {
	name: "readOriginal"
	result: "int"
	body: [
		{var: "o", type: "Outer"},
		{expr: {assign: "=", x: {member: "v", x: {member: "a", x: "o"}}, y: 1}},
		{expr: {assign: "=", x: {member: "v", x: {member: "b", x: "o"}}, y: 2}},
		{"return": {member: "v", x: {member: "b", x: "o"}}},
	]
}, {
	name: "copyFull"
	result: "int"
	body: [
		{var: "o", type: "Outer", init: [[1], [2], [3]]},
		{var: "copy", type: "Outer", init: "o"},
		{expr: {assign: "=", x: {member: "v", x: {member: "c", x: "o"}}, y: 30}},
		{"return": {member: "v", x: {member: "c", x: "copy"}}},
	]
}]
globals: [
	{name: "partial", type: "int", init: {call: "copyPartial"}},
	{name: "original", type: "int", init: {call: "readOriginal"}},
	{name: "full", type: "int", init: {call: "copyFull"}},
	{name: "incomplete", type: "Outer", init: [[1]]},
]
`

// TestCopy_PartiallyInitialized tests that copying an aggregate reads every
// member, so an unfilled member fails the copy while the original stays
// readable.
func TestCopy_PartiallyInitialized(t *testing.T) {
	s := newTestSession(t, copySrc)

	f := evalFailure(t, s, "partial")
	assert.Equal(t, diag.KindUninitializedRead, f.Kind)
	assert.Contains(t, f.Message, "o.c.v")

	assert.Equal(t, int64(2), evalInt(t, s, "original"))
	assert.Equal(t, int64(3), evalInt(t, s, "full"))

	r := s.EvaluateGlobal("incomplete")
	require.True(t, r.Constant(), "value-initialized members are zero: %v", r.Err())
	assert.Equal(t, "{{1}, {0}, {0}}", r.Value.String())
}

const switchSrc = `
functions: [{
	name: "switchVar"
	params: [{name: "n", type: "int"}]
	result: "int"
	body: [{"switch": "n", body: [
		{"case": 1},
		{var: "a", type: "int"},
		{expr: {assign: "=", x: "a", y: "n"}},
		{"return": "a"},
		{"case": 2},
		{expr: {assign: "=", x: "a", y: "n"}},
		{"return": "a"},
		{"default": true},
		{"return": {binary: "+", x: "a", y: 1}},
	]}]
}, {
	name: "switchIntoInit"
	result: "bool"
	body: [{"switch": 1, body: [
		{"if": false, init: {var: "n", type: "int"}, then: [
			{"for": {init: {var: "m", type: "int"}, cond: false}, body: [
				{"case": 1},
				{expr: {assign: "=", x: "n", y: {assign: "=", x: "m", y: 1}}},
				{"return": {binary: "&&", x: {binary: "==", x: "n", y: 1}, y: {binary: "==", x: "m", y: 1}}},
			]},
		]},
	]}]
}, {
	name: "fallthrough"
	params: [{name: "n", type: "int"}]
	result: "int"
	body: [
		{var: "r", type: "int", init: 0},
		{"switch": "n", body: [
			{"case": 1},
			{expr: {assign: "+=", x: "r", y: 1}},
			{"case": 2},
			{expr: {assign: "+=", x: "r", y: 10}},
			{"break": true},
			{"case": 3},
			{expr: {assign: "+=", x: "r", y: 100}},
		]},
		{"return": "r"},
	]
}]
globals: [
	{name: "s1", type: "int", init: {call: "switchVar", args: [1]}},
	{name: "s2", type: "int", init: {call: "switchVar", args: [2]}},
	{name: "s3", type: "int", init: {call: "switchVar", args: [3]}},
	{name: "nested", type: "bool", init: {call: "switchIntoInit"}},
	{name: "f1", type: "int", init: {call: "fallthrough", args: [1]}},
	{name: "f2", type: "int", init: {call: "fallthrough", args: [2]}},
	{name: "f4", type: "int", init: {call: "fallthrough", args: [4]}},
]
`

// TestSwitch_JumpPastDeclarations tests that jumping over a declaration
// leaves the variable outside its lifetime until it is assigned.
func TestSwitch_JumpPastDeclarations(t *testing.T) {
	s := newTestSession(t, switchSrc)

	assert.Equal(t, int64(1), evalInt(t, s, "s1"))
	assert.Equal(t, int64(2), evalInt(t, s, "s2"))

	f := evalFailure(t, s, "s3")
	assert.Equal(t, diag.KindUninitializedRead, f.Kind)

	assert.Equal(t, int64(1), evalInt(t, s, "nested"))
}

// TestSwitch_Fallthrough tests case fallthrough and break.
func TestSwitch_Fallthrough(t *testing.T) {
	s := newTestSession(t, switchSrc)

	assert.Equal(t, int64(11), evalInt(t, s, "f1"))
	assert.Equal(t, int64(10), evalInt(t, s, "f2"))
	assert.Equal(t, int64(0), evalInt(t, s, "f4"))
}

// dtorOrderSrc records construction and destruction order into a buffer.
// B's reference member d is bound to a temporary that is destroyed at the
// end of its initializer; union members are never destroyed implicitly.
const dtorOrderSrc = `
classes: [{
	name: "Buf"
	fields: [{name: "buf", type: "char[64]"}, {name: "n", type: "int", init: 0}]
	methods: [{
		name: "add"
		params: [{name: "c", type: "char"}]
		body: [{expr: {assign: "=",
			x: {index: {unary: "post++", x: {member: "n", x: "this", arrow: true}}, x: {member: "buf", x: "this", arrow: true}},
			y: "c"}}]
	}]
}, {
	name: "A"
	fields: [{name: "buf", type: "Buf", ref: true}, {name: "ch", type: "char"}]
	ctors: [{
		params: [{name: "buf", type: "Buf", ref: true}, {name: "c", type: "char"}]
		inits: [{field: "buf", init: "buf"}, {field: "ch", init: "c"}]
		body: [{expr: {method: "add", recv: "buf", args: ["c"]}}]
	}]
	dtor: body: [{expr: {method: "add",
		recv: {member: "buf", x: "this", arrow: true},
		args: [{member: "ch", x: "this", arrow: true}]}}]
}, {
	name: "U"
	union: true
	fields: [{name: "u", type: "A"}, {name: "v", type: "A"}]
	ctors: [{
		params: [{name: "buf", type: "Buf", ref: true}]
		inits: [{field: "u", args: ["buf", 117]}]
		body: [{expr: {method: "add", recv: "buf", args: [85]}}]
	}]
	dtor: body: [{expr: {method: "add",
		recv: {member: "buf", x: {member: "u", x: "this", arrow: true}},
		args: [85]}}]
}, {
	name: "W"
	union: true
	fields: [{name: "f", type: "A"}]
}, {
	name: "B"
	bases: [{class: "A"}]
	fields: [
		{name: "c", type: "A"},
		{name: "d", type: "A", ref: true},
		{name: "e", type: "A"},
		{name: "w", type: "W"},
		{name: "u", type: "U"},
	]
	ctors: [{
		params: [{name: "buf", type: "Buf", ref: true}]
		inits: [
			{base: "A", args: ["buf", 97]},
			{field: "c", args: ["buf", 99]},
			{field: "d", init: {call: "ref", args: [{construct: "A", args: ["buf", 100]}]}},
			{field: "e", init: {construct: "A", args: ["buf", 101]}},
			{field: "w", init: {list: [{construct: "A", args: ["buf", 102]}], type: "W", field: "f"}},
			{field: "u", args: ["buf"]},
		]
		body: [{expr: {method: "add", recv: "buf", args: [98]}}]
	}]
	dtor: body: [{expr: {method: "add", recv: {member: "buf", x: "this", arrow: true}, args: [98]}}]
}]
functions: [{
	name: "ref"
	params: [{name: "t", type: "A", ref: true}]
	result: "A"
	ref_result: true
	body: [{"return": "t"}]
}, {
	name: "during"
	result: "Buf"
	body: [
		{var: "buf", type: "Buf", init: []},
		{block: [
			{var: "b", type: "B", init: {construct: "B", args: ["buf"]}},
			{"return": "buf"},
		]},
	]
}, {
	name: "after"
	result: "Buf"
	body: [
		{var: "buf", type: "Buf", init: []},
		{block: [{var: "b", type: "B", init: {construct: "B", args: ["buf"]}}]},
		{"return": "buf"},
	]
}]
globals: [
	{name: "mid", type: "Buf", init: {call: "during"}},
	{name: "end", type: "Buf", init: {call: "after"}},
]
`

// bufString decodes a Buf value into the characters it recorded.
func bufString(t *testing.T, v value.Value) string {
	t.Helper()
	agg, ok := v.(value.Aggregate)
	require.True(t, ok, "value %v is not an aggregate", v)
	require.Len(t, agg.Elems, 2)
	chars := agg.Elems[0].(value.Aggregate)
	n := agg.Elems[1].(value.Int).V
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(chars.Elems[i].(value.Int).V)
	}
	return string(out)
}

// TestDestructors_Order tests construction and destruction order of bases,
// members, temporaries and union members.
func TestDestructors_Order(t *testing.T) {
	s := newTestSession(t, dtorOrderSrc)

	r := s.EvaluateGlobal("mid")
	require.True(t, r.Constant(), "unexpected failure: %v", r.Err())
	assert.Equal(t, "acddefuUb", bufString(t, r.Value))

	r = s.EvaluateGlobal("end")
	require.True(t, r.Constant(), "unexpected failure: %v", r.Err())
	assert.Equal(t, "acddefuUbbUeca", bufString(t, r.Value))
}

const exceptionSrc = `
classes: [{
	name: "Guard"
	fields: [{name: "p", type: "int*"}]
	dtor: body: [{expr: {unary: "++", x: {unary: "*", x: {member: "p", x: "this", arrow: true}}}}]
}, {
	name: "Err"
	fields: [{name: "code", type: "int"}]
}, {
	name: "NotFound"
	bases: [{class: "Err"}]
}]
functions: [{
	name: "catchInt"
	result: "int"
	body: [
		{"try": [{expr: {throw: 42}}], catch: [{type: "int", var: "e", body: [{"return": {binary: "+", x: "e", y: 1}}]}]},
		{"return": 0},
	]
}, {
	name: "unwind"
	result: "int"
	body: [
		{var: "n", type: "int", init: 0},
		{"try": [
			{var: "g1", type: "Guard", init: [{unary: "&", x: "n"}]},
			{block: [
				{var: "g2", type: "Guard", init: [{unary: "&", x: "n"}]},
				{expr: {throw: 1}},
			]},
		], catch: [{body: []}]},
		{"return": "n"},
	]
}, {
	name: "catchBase"
	result: "int"
	body: [
		{"try": [{expr: {throw: {list: [[404]], type: "NotFound"}}}],
		 catch: [{type: "int", body: [{"return": 1}]}, {type: "Err", var: "e", body: [{"return": {member: "code", x: "e"}}]}]},
		{"return": 0},
	]
}, {
	name: "rethrow"
	result: "int"
	body: [
		{"try": [
			{"try": [{expr: {throw: 5}}], catch: [{type: "int", body: [{expr: {throw: null}}]}]},
		], catch: [{type: "int", var: "e", body: [{"return": {binary: "*", x: "e", y: 2}}]}]},
		{"return": 0},
	]
}, {
	name: "uncaught"
	result: "int"
	body: [{expr: {throw: 7}}, {"return": 0}]
}, {
	name: "failureNotCaught"
	result: "int"
	body: [
		{"try": [{"return": {binary: "/", x: 1, y: 0}}], catch: [{body: [{"return": 0}]}]},
		{"return": 0},
	]
}]
globals: [
	{name: "caught", type: "int", init: {call: "catchInt"}},
	{name: "unwound", type: "int", init: {call: "unwind"}},
	{name: "sliced", type: "int", init: {call: "catchBase"}},
	{name: "again", type: "int", init: {call: "rethrow"}},
	{name: "escaped", type: "int", init: {call: "uncaught"}},
	{name: "hard", type: "int", init: {call: "failureNotCaught"}},
]
`

// TestExceptions tests throw, catch, rethrow and unwinding of automatic
// objects.
func TestExceptions(t *testing.T) {
	s := newTestSession(t, exceptionSrc)

	assert.Equal(t, int64(43), evalInt(t, s, "caught"))
	assert.Equal(t, int64(2), evalInt(t, s, "unwound"))
	assert.Equal(t, int64(404), evalInt(t, s, "sliced"))
	assert.Equal(t, int64(10), evalInt(t, s, "again"))

	f := evalFailure(t, s, "escaped")
	assert.Equal(t, diag.KindUserRaised, f.Kind)
	assert.Contains(t, f.Message, "exception of type 'int' is not caught in a constant expression")
	assert.Equal(t, value.NewInt(7, ir.Int), f.Payload)

	f = evalFailure(t, s, "hard")
	assert.Equal(t, diag.KindDivisionByZero, f.Kind)
}

// TestTrace_Unwinding tests the lifecycle events of an unwinding
// evaluation.
func TestTrace_Unwinding(t *testing.T) {
	var events []TraceEvent
	s := newTestSession(t, exceptionSrc, WithTracer(func(e TraceEvent) { events = append(events, e) }))
	assert.Equal(t, int64(2), evalInt(t, s, "unwound"))

	var kinds []string
	for _, e := range events {
		kinds = append(kinds, e.String())
	}
	assert.Equal(t, []string{
		"1 construct g1 : Guard",
		"2 construct g2 : Guard",
		"3 throw exception : int",
		"4 destroy g2 : Guard",
		"5 destroy g1 : Guard",
	}, kinds)
}
