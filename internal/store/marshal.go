package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/consteval/internal/canon"
	"github.com/roach88/consteval/internal/diag"
	"github.com/roach88/consteval/internal/eval"
)

// Evaluation is one recorded evaluation.
type Evaluation struct {
	Seq       int64
	Key       string
	SessionID string
	Source    string // path of the program file as given by the caller
	Request   canon.Request
	Constant  bool
	Value     string // rendered value, empty on failure
	Failure   *Failure
	Steps     int
}

// Failure is the stored form of a diag.Failure. Locations are rendered as
// file:line:col, empty when unknown.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Anchor  string `json:"anchor"`
	Notes   []Note `json:"notes"`
}

// Note is the stored form of a diag.Note.
type Note struct {
	Message string `json:"message"`
	Anchor  string `json:"anchor"`
}

// NewEvaluation builds the record of result r for request req.
func NewEvaluation(req canon.Request, source string, r *eval.Result) (Evaluation, error) {
	key, err := canon.EvaluationKey(req)
	if err != nil {
		return Evaluation{}, err
	}
	ev := Evaluation{
		Key:       key,
		SessionID: r.SessionID,
		Source:    source,
		Request:   req,
		Constant:  r.Constant(),
		Steps:     r.Steps,
	}
	if r.Failure != nil {
		ev.Failure = failureOf(r.Failure)
	} else if r.Value != nil {
		ev.Value = r.Value.String()
	}
	return ev, nil
}

func failureOf(f *diag.Failure) *Failure {
	out := &Failure{
		Kind:    string(f.Kind),
		Message: f.Message,
		Anchor:  locString(f.Anchor.IsZero(), f.Anchor.String()),
		Notes:   []Note{},
	}
	for _, n := range f.Notes {
		out.Notes = append(out.Notes, Note{
			Message: n.Message,
			Anchor:  locString(n.Anchor.IsZero(), n.Anchor.String()),
		})
	}
	return out
}

func locString(zero bool, s string) string {
	if zero {
		return ""
	}
	return s
}

// Outcome renders the recorded outcome the way the CLI prints a fresh
// result: the value, or the failure followed by its notes.
func (e Evaluation) Outcome() string {
	if e.Failure == nil {
		return e.Value
	}
	return e.Failure.Render()
}

// Render formats the failure like diag.Failure.Render.
func (f *Failure) Render() string {
	var b strings.Builder
	if f.Anchor != "" {
		fmt.Fprintf(&b, "%s: ", f.Anchor)
	}
	fmt.Fprintf(&b, "%s: %s", f.Kind, f.Message)
	for _, n := range f.Notes {
		b.WriteString("\n  note: ")
		if n.Anchor != "" {
			fmt.Fprintf(&b, "%s: ", n.Anchor)
		}
		b.WriteString(n.Message)
	}
	return b.String()
}

// marshalArgs converts rendered arguments to canonical JSON TEXT.
func marshalArgs(args []string) (string, error) {
	if args == nil {
		args = []string{}
	}
	data, err := canon.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

func unmarshalArgs(data string) ([]string, error) {
	args := []string{}
	if data == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(data), &args); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return args, nil
}

// marshalFailure converts a failure to canonical JSON TEXT. A nil failure
// is stored as the empty string.
func marshalFailure(f *Failure) (string, error) {
	if f == nil {
		return "", nil
	}
	notes := make([]any, len(f.Notes))
	for i, n := range f.Notes {
		notes[i] = canon.Object{"message": n.Message, "anchor": n.Anchor}
	}
	data, err := canon.Marshal(canon.Object{
		"kind":    f.Kind,
		"message": f.Message,
		"anchor":  f.Anchor,
		"notes":   notes,
	})
	if err != nil {
		return "", fmt.Errorf("marshal failure: %w", err)
	}
	return string(data), nil
}

func unmarshalFailure(data string) (*Failure, error) {
	if data == "" {
		return nil, nil
	}
	var f Failure
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return nil, fmt.Errorf("unmarshal failure: %w", err)
	}
	if f.Notes == nil {
		f.Notes = []Note{}
	}
	return &f, nil
}
