package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/consteval/internal/cache"
	"github.com/roach88/consteval/internal/canon"
	"github.com/roach88/consteval/internal/eval"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/loader"
	"github.com/roach88/consteval/internal/store"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Global     string
	Call       string
	Args       []string
	Context    string
	LeakPolicy string
	MaxSteps   int
	MaxDepth   int
	Database   string // optional - record and reuse results
}

// EvalOutput is the result of one evaluation.
type EvalOutput struct {
	SessionID string         `json:"session_id"`
	Key       string         `json:"key"`
	Target    string         `json:"target"`
	Constant  bool           `json:"constant"`
	Value     string         `json:"value,omitempty"`
	Failure   *store.Failure `json:"failure,omitempty"`
	Steps     int            `json:"steps"`
	Cached    bool           `json:"cached"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <program>",
		Short: "Evaluate a global or a function call at compile time",
		Long: `Evaluate a statically evaluated global, or call a function with
literal arguments, and print the constant value or the failure that
prevents constant evaluation.

With --db, results are recorded in a SQLite database and reused when the
same program, entry point, arguments and limits are evaluated again.

Exit codes:
  0 - The evaluation produced a constant
  1 - The evaluation failed (not a constant expression)
  2 - Command error (unreadable program, unknown function, bad argument)

Examples:
  consteval eval prog.cue --global total
  consteval eval prog.cue --call fact --arg 20
  consteval eval prog.cue --call sum --arg 10 --context probe --max-steps 500
  consteval eval prog.cue --global total --db ./consteval.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Global, "global", "", "global to evaluate")
	cmd.Flags().StringVar(&opts.Call, "call", "", "function to call")
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "argument for --call (repeatable)")
	cmd.Flags().StringVar(&opts.Context, "context", "", "evaluation context for --call (initializer|assertion|probe)")
	cmd.Flags().StringVar(&opts.LeakPolicy, "leak-policy", string(eval.LeakStrict), "heap leak policy (strict|transfer-result)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", eval.DefaultMaxSteps, "maximum evaluation steps")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", eval.DefaultMaxDepth, "maximum call depth")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for recorded results")

	return cmd
}

func runEval(opts *EvalOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	req, err := buildRequest(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeBadArgument, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read program", err)
	}
	prog, err := loader.LoadBytes(path, src)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}
	req.Program = canon.ProgramDigest(src)

	key, err := canon.EvaluationKey(req)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute evaluation key", err)
	}

	var results *cache.Results
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		results, err = cache.NewResults(cache.DefaultResults, st)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create result cache", err)
		}

		ev, ok, err := results.Lookup(ctx, key)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read recorded result", err)
		}
		if ok {
			formatter.VerboseLog("Reusing recorded result %s", key)
			return outputEval(formatter, ev, true)
		}
	}

	r, err := evaluate(prog, req, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		_ = formatter.Error(ErrCodeBadArgument, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid entry point", err)
	}

	ev, err := store.NewEvaluation(req, path, r)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build evaluation record", err)
	}
	if results != nil {
		if err := results.Record(ctx, ev); err != nil {
			return WrapExitError(ExitCommandError, "failed to record result", err)
		}
		formatter.VerboseLog("Recorded result %s", key)
	}

	return outputEval(formatter, ev, false)
}

// buildRequest validates the flags and turns them into an evaluation
// request. The program digest is filled in once the source is read.
func buildRequest(opts *EvalOptions) (canon.Request, error) {
	if (opts.Global == "") == (opts.Call == "") {
		return canon.Request{}, fmt.Errorf("exactly one of --global or --call is required")
	}
	if opts.Global != "" && len(opts.Args) > 0 {
		return canon.Request{}, fmt.Errorf("--arg requires --call")
	}
	if opts.Global != "" && opts.Context != "" {
		return canon.Request{}, fmt.Errorf("--context does not apply to globals")
	}
	if opts.MaxSteps <= 0 || opts.MaxDepth <= 0 {
		return canon.Request{}, fmt.Errorf("--max-steps and --max-depth must be positive")
	}

	evalCtx, err := eval.ParseContext(opts.Context)
	if err != nil {
		return canon.Request{}, err
	}
	policy, err := eval.ParseLeakPolicy(opts.LeakPolicy)
	if err != nil {
		return canon.Request{}, err
	}

	req := canon.Request{
		Target:     opts.Global,
		Args:       opts.Args,
		Context:    string(evalCtx),
		LeakPolicy: string(policy),
		MaxSteps:   opts.MaxSteps,
		MaxDepth:   opts.MaxDepth,
	}
	if opts.Call != "" {
		req.Target = opts.Call
		req.Call = true
	}
	return req, nil
}

// evaluate runs req in a fresh session over prog.
// Returns an error only when the entry point or its arguments are invalid;
// evaluation failures are part of the result.
func evaluate(prog *ir.Program, req canon.Request, log *slog.Logger) (*eval.Result, error) {
	evalCtx, err := eval.ParseContext(req.Context)
	if err != nil {
		return nil, err
	}
	policy, err := eval.ParseLeakPolicy(req.LeakPolicy)
	if err != nil {
		return nil, err
	}

	s := eval.NewSession(prog,
		eval.WithMaxSteps(req.MaxSteps),
		eval.WithMaxDepth(req.MaxDepth),
		eval.WithLeakPolicy(policy),
		eval.WithLogger(log),
	)

	if !req.Call {
		if prog.Global(req.Target) == nil {
			return nil, fmt.Errorf("no global named '%s'", req.Target)
		}
		return s.EvaluateGlobal(req.Target), nil
	}

	fn := prog.Func(req.Target)
	if fn == nil {
		return nil, fmt.Errorf("no function named '%s'", req.Target)
	}
	args, err := eval.ParseArgs(fn, req.Args)
	if err != nil {
		return nil, err
	}
	return s.EvaluateCall(fn, args, evalCtx), nil
}

// targetName renders the entry point of a request, e.g. "sum(10)".
func targetName(req canon.Request) string {
	if !req.Call {
		return req.Target
	}
	return fmt.Sprintf("%s(%s)", req.Target, strings.Join(req.Args, ", "))
}

func outputEval(formatter *OutputFormatter, ev store.Evaluation, cached bool) error {
	out := EvalOutput{
		SessionID: ev.SessionID,
		Key:       ev.Key,
		Target:    targetName(ev.Request),
		Constant:  ev.Constant,
		Value:     ev.Value,
		Failure:   ev.Failure,
		Steps:     ev.Steps,
		Cached:    cached,
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: out}
		if !ev.Constant {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeNotConstant,
				Message: fmt.Sprintf("%s: %s", ev.Failure.Kind, ev.Failure.Message),
			}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, ev.Outcome())
		formatter.VerboseLog("session %s, %d steps, cached=%t", ev.SessionID, ev.Steps, cached)
	}

	if !ev.Constant {
		return NewExitError(ExitFailure, fmt.Sprintf("%s is not a constant expression", out.Target))
	}
	return nil
}
