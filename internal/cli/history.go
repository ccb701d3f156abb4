package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ihop/internal/report"
	"github.com/roach88/ihop/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
}

// RunHistory is one stored run with its totals.
type RunHistory struct {
	ID             string          `json:"id"`
	Implementation string          `json:"implementation"`
	Dialect        string          `json:"dialect"`
	Counts         report.Counts   `json:"counts"`
	Outcomes       []report.Record `json:"outcomes,omitempty"`
}

// HistoryList is the output of history without a run ID.
type HistoryList []RunHistory

func (l HistoryList) String() string {
	if len(l) == 0 {
		return "no runs recorded"
	}
	var b strings.Builder
	for _, run := range l {
		c := run.Counts
		fmt.Fprintf(&b, "%s %s %s: %d cases, %d failed, %d errored, %d skipped, %d without response\n",
			run.ID, run.Implementation, run.Dialect, c.Cases, c.Failed, c.Errored, c.Skipped, c.NoResponse)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (r RunHistory) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %s under %s\n", r.ID, r.Implementation, r.Dialect)
	for _, rec := range r.Outcomes {
		switch rec.Kind {
		case report.KindResults:
			verdict := "passed"
			if rec.Failed {
				verdict = "failed"
			}
			fmt.Fprintf(&b, "  seq=%d %s (%d tests)\n", rec.Seq, verdict, len(rec.Tests))
		case report.KindNoResponse:
			b.WriteString("  no response\n")
		default:
			fmt.Fprintf(&b, "  seq=%d %s", rec.Seq, rec.Kind)
			if rec.Message != "" {
				fmt.Fprintf(&b, ": %s", rec.Message)
			}
			b.WriteString("\n")
		}
	}
	c := r.Counts
	fmt.Fprintf(&b, "%d cases, %d failed, %d errored, %d skipped, %d without response",
		c.Cases, c.Failed, c.Errored, c.Skipped, c.NoResponse)
	return b.String()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history --db <path> [run-id]",
		Short: "Show runs recorded by run --db",
		Long: `List every run recorded in an outcome database, or show the outcomes
of one run in the order they were reported.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	var out any
	if len(args) == 1 {
		run, err := st.GetRun(ctx, args[0])
		if errors.Is(err, store.ErrRunNotFound) {
			return formatter.fail(ExitCommandError, ErrCodeStore, "run not found", err)
		}
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
		}
		history, err := runHistoryOf(ctx, st, run, true)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
		}
		out = history
	} else {
		runs, err := st.Runs(ctx)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
		list := HistoryList{}
		for _, run := range runs {
			history, err := runHistoryOf(ctx, st, run, false)
			if err != nil {
				return formatter.fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
			}
			list = append(list, history)
		}
		out = list
	}

	if err := formatter.Success(out); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}

func runHistoryOf(ctx context.Context, st *store.Store, run store.Run, withOutcomes bool) (RunHistory, error) {
	history := RunHistory{ID: run.ID, Implementation: run.Implementation, Dialect: run.Dialect}

	counts, err := st.Summary(ctx, run.ID)
	if err != nil {
		return RunHistory{}, err
	}
	history.Counts = counts

	if withOutcomes {
		history.Outcomes, err = st.CaseOutcomes(ctx, run.ID)
		if err != nil {
			return RunHistory{}, err
		}
	}
	return history, nil
}
