// Package harness runs conformance scenarios against the evaluator.
//
// A scenario is a YAML file naming a program and a list of cases. Each case
// evaluates one entry point (a global, a function call with literal
// arguments, or a standalone expression) and states the expected value or
// failure. Cases may also assert on the lifecycle trace.
//
// All cases of a scenario run in one session, so statically evaluated
// globals are initialized once and reused by later cases. The session gets
// a fixed id and a clock that is reset before every case, which makes the
// outcome of a scenario byte-for-byte reproducible.
//
// # Golden files
//
// A run's outcomes serialize to canonical JSON (see package canon) and are
// compared against testdata/golden/{name}.golden. Source locations are not
// part of the snapshot, so goldens do not depend on where the program file
// lives.
//
// # Example
//
//	name: arith
//	description: Integer arithmetic
//	program: ../programs/arith.cue
//	cases:
//	  - global: total
//	    expect:
//	      value: "55"
//	  - global: divzero
//	    expect:
//	      failure:
//	        kind: division-by-zero
package harness
