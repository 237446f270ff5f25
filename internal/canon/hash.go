package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed keys. The version suffix allows
// the encoding to change without colliding with old records.
const (
	DomainProgram    = "consteval/program/v1"
	DomainEvaluation = "consteval/evaluation/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null byte keeps
// the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProgramDigest identifies a program by the bytes of its source file.
func ProgramDigest(src []byte) string {
	return hashWithDomain(DomainProgram, src)
}

// Request identifies one evaluation: which program, which entry point and
// under which limits. Two requests with the same key produce the same
// result.
type Request struct {
	Program    string   // ProgramDigest of the source
	Target     string   // global name, or function name when Call is set
	Call       bool     // Target is a function called with Args
	Args       []string // rendered argument values
	Context    string   // evaluation context
	LeakPolicy string
	MaxSteps   int
	MaxDepth   int
}

// Object returns the canonical form of the request.
func (r Request) Object() Object {
	args := r.Args
	if args == nil {
		args = []string{}
	}
	return Object{
		"program":     r.Program,
		"target":      r.Target,
		"call":        r.Call,
		"args":        args,
		"context":     r.Context,
		"leak_policy": r.LeakPolicy,
		"max_steps":   r.MaxSteps,
		"max_depth":   r.MaxDepth,
	}
}

// EvaluationKey computes the content-addressed key of a request.
func EvaluationKey(r Request) (string, error) {
	data, err := Marshal(r.Object())
	if err != nil {
		return "", fmt.Errorf("EvaluationKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvaluation, data), nil
}

// MustEvaluationKey is like EvaluationKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEvaluationKey(r Request) string {
	key, err := EvaluationKey(r)
	if err != nil {
		panic(err)
	}
	return key
}
