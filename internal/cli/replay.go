package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/consteval/internal/canon"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/loader"
	"github.com/roach88/consteval/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayEntry holds the replay result for a single recorded evaluation.
type ReplayEntry struct {
	Key           string `json:"key"`
	Target        string `json:"target"`
	Recorded      string `json:"recorded"`
	Replayed      string `json:"replayed"`
	Deterministic bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Program          string        `json:"program"`
	Entries          []ReplayEntry `json:"entries"`
	Total            int           `json:"total"`
	AllDeterministic bool          `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <program>",
		Short: "Re-evaluate recorded results and verify determinism",
		Long: `Re-evaluate every recorded evaluation of a program in a fresh session
and verify that each produces exactly the recorded outcome.

Records are selected by the digest of the program's source, so editing
the program file leaves nothing to replay.

Exit codes:
  0 - Every outcome was reproduced
  1 - Determinism verification failed (differences detected)
  2 - Command error (database or program not found, etc.)

Examples:
  consteval replay prog.cue --db ./consteval.db
  consteval replay prog.cue --db ./consteval.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	src, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read program", err)
	}
	digest := canon.ProgramDigest(src)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	evs, err := st.ReadProgram(ctx, digest)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read recorded evaluations", err)
	}

	result := ReplayResult{
		Program:          digest,
		Entries:          make([]ReplayEntry, 0, len(evs)),
		AllDeterministic: true,
	}

	// Programs are compiled once per recorded source path so that
	// locations in replayed failures match the recorded ones.
	compiled := make(map[string]*ir.Program)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, ev := range evs {
		prog, ok := compiled[ev.Source]
		if !ok {
			prog, err = loader.LoadBytes(ev.Source, src)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load program", err)
			}
			compiled[ev.Source] = prog
		}

		entry, err := replayEvaluation(prog, ev, log)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay %s", shortKey(ev.Key)), err)
		}
		formatter.VerboseLog("Replayed %s %s", shortKey(ev.Key), entry.Target)

		result.Entries = append(result.Entries, entry)
		if !entry.Deterministic {
			result.AllDeterministic = false
		}
	}
	result.Total = len(result.Entries)

	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result, path)
}

// replayEvaluation re-evaluates one record and compares outcomes.
func replayEvaluation(prog *ir.Program, ev store.Evaluation, log *slog.Logger) (ReplayEntry, error) {
	r, err := evaluate(prog, ev.Request, log)
	if err != nil {
		return ReplayEntry{}, err
	}
	replayed, err := store.NewEvaluation(ev.Request, ev.Source, r)
	if err != nil {
		return ReplayEntry{}, err
	}

	recorded := ev.Outcome()
	now := replayed.Outcome()
	return ReplayEntry{
		Key:           ev.Key,
		Target:        targetName(ev.Request),
		Recorded:      recorded,
		Replayed:      now,
		Deterministic: recorded == now && ev.Steps == replayed.Steps,
	}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeNonReplaying,
			Message: "replay produced different outcomes",
		}
	}

	if err := formatter.JSON(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult, path string) error {
	w := formatter.Writer

	if result.Total == 0 {
		fmt.Fprintf(w, "No evaluations recorded for %s.\n", path)
		return nil
	}

	for _, e := range result.Entries {
		if e.Deterministic {
			fmt.Fprintf(w, "✓ %s\n", e.Target)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", e.Target)
		fmt.Fprintf(w, "  recorded: %s\n", firstLine(e.Recorded))
		fmt.Fprintf(w, "  replayed: %s\n", firstLine(e.Replayed))
	}

	fmt.Fprintln(w)
	if !result.AllDeterministic {
		fmt.Fprintln(w, "✗ Determinism verification failed")
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	fmt.Fprintf(w, "✓ All %d evaluations reproduced\n", result.Total)
	return nil
}
