package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/consteval/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// HistoryEntry is one recorded evaluation in history output.
type HistoryEntry struct {
	Seq       int64  `json:"seq"`
	Key       string `json:"key"`
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Context   string `json:"context"`
	Constant  bool   `json:"constant"`
	Outcome   string `json:"outcome"`
	Steps     int    `json:"steps"`
}

// HistoryResult holds the history output.
type HistoryResult struct {
	Entries []HistoryEntry `json:"entries"`
	Total   int            `json:"total"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded evaluations",
		Long: `List the evaluations recorded by "consteval eval --db", newest first.

Examples:
  consteval history --db ./consteval.db
  consteval history --db ./consteval.db --limit 10
  consteval history --db ./consteval.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum entries to show (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	evs, err := st.History(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}

	result := HistoryResult{Entries: make([]HistoryEntry, 0, len(evs))}
	for _, ev := range evs {
		result.Entries = append(result.Entries, historyEntryOf(ev))
	}
	result.Total = len(result.Entries)

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	if result.Total == 0 {
		fmt.Fprintln(formatter.Writer, "No evaluations recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tKEY\tTARGET\tCONTEXT\tSTEPS\tOUTCOME")
	for _, e := range result.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", e.Seq, shortKey(e.Key), e.Target, e.Context, e.Steps, firstLine(e.Outcome))
	}
	return tw.Flush()
}

func historyEntryOf(ev store.Evaluation) HistoryEntry {
	return HistoryEntry{
		Seq:       ev.Seq,
		Key:       ev.Key,
		SessionID: ev.SessionID,
		Source:    ev.Source,
		Target:    targetName(ev.Request),
		Context:   ev.Request.Context,
		Constant:  ev.Constant,
		Outcome:   ev.Outcome(),
		Steps:     ev.Steps,
	}
}

// shortKey abbreviates a content hash for tables.
func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

// firstLine drops the notes of a rendered failure.
func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
