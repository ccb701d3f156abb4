package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ihop/internal/report"
	"github.com/roach88/ihop/internal/runner"
	"github.com/roach88/ihop/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Dialect  string
	Timeout  time.Duration
	Database string
	Name     string
}

// RunSummary is printed once every case has been reported.
type RunSummary struct {
	Implementation string        `json:"implementation"`
	Dialect        string        `json:"dialect"`
	RunID          string        `json:"run_id,omitempty"`
	Counts         report.Counts `json:"counts"`
}

func (s RunSummary) String() string {
	c := s.Counts
	return fmt.Sprintf("%s: %d cases, %d failed, %d errored, %d skipped, %d without response",
		s.Implementation, c.Cases, c.Failed, c.Errored, c.Skipped, c.NoResponse)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [flags] <case-file>... -- <implementation command>...",
		Short: "Run cases against an implementation",
		Long: `Launch an implementation, perform the start and dialect handshakes,
send every case as a run request and report each outcome.

Everything after -- is the implementation's command line. The exit code is
1 when any case failed, errored or got no response.

Example:
  ihop run cases.yaml -- ./my-implementation
  ihop run --dialect http://json-schema.org/draft-07/schema# --db runs.db cases.yaml -- python impl.py`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dash := cmd.ArgsLenAtDash()
			if dash < 0 || dash == len(args) {
				return NewExitError(ExitCommandError, "missing implementation command after --")
			}
			if dash == 0 {
				return NewExitError(ExitCommandError, "no case files given")
			}
			return runCases(opts, args[:dash], args[dash:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", DefaultDialect, "dialect URI to run the cases under")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", runner.DefaultTimeout, "how long to wait for each response")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record outcomes into this SQLite database")
	cmd.Flags().StringVar(&opts.Name, "name", "", "implementation name (defaults to the command's base name)")

	return cmd
}

func runCases(opts *RunOptions, files, argv []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	codec, err := newCodec()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeRequest, "failed to load command schemas", err)
	}

	cases, err := loadCases(files, opts.Dialect)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeLoad, "failed to load cases", err)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(argv[0])
	}

	logger.Debug("launching implementation", "implementation", name, "argv", argv)
	impl, err := runner.Launch(name, argv, codec,
		runner.WithLogger(logger),
		runner.WithTimeout(opts.Timeout),
	)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeLaunch, "failed to launch implementation", err)
	}
	defer func() {
		if closeErr := impl.Close(); closeErr != nil {
			logger.Error("error closing implementation", "error", closeErr)
		}
	}()

	if _, err := impl.Start(ctx); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeHandshake, "implementation did not start", err)
	}
	if _, err := impl.Dialect(ctx, opts.Dialect); err != nil {
		if errors.Is(err, runner.ErrDialectRejected) {
			return formatter.fail(ExitFailure, ErrCodeHandshake, "dialect not supported", err)
		}
		return formatter.fail(ExitCommandError, ErrCodeHandshake, "dialect handshake failed", err)
	}

	var (
		reporters report.Multi
		jsonOut   *report.JSONLines
	)
	if opts.Format == "json" {
		jsonOut = report.NewJSONLines(cmd.OutOrStdout())
		reporters = append(reporters, jsonOut)
	} else {
		text := report.NewText(cmd.OutOrStdout())
		text.Verbose = opts.Verbose
		reporters = append(reporters, text)
	}

	summary := RunSummary{Implementation: name, Dialect: opts.Dialect}

	var recorder *store.RunReporter
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		summary.RunID, err = st.BeginRun(ctx, name, opts.Dialect)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, "failed to record run", err)
		}
		recorder, err = st.Reporter(ctx, summary.RunID)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, "failed to record run", err)
		}
		reporters = append(reporters, recorder)
		logger.Info("recording run", "run_id", summary.RunID, "db", opts.Database)
	}

	tally := report.NewTally(reporters)
	for i, c := range cases {
		seq := i + 1
		logger.Debug("running case", "implementation", name, "seq", seq, "description", c.Description)
		c.Run(ctx, seq, impl).Report(tally)
	}

	if err := impl.Stop(ctx); err != nil {
		logger.Warn("failed to send stop", "implementation", name, "error", err)
	}

	if jsonOut != nil && jsonOut.Err() != nil {
		return WrapExitError(ExitCommandError, "failed to write output", jsonOut.Err())
	}
	if recorder != nil && recorder.Err() != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "failed to record outcomes", recorder.Err())
	}

	summary.Counts = tally.Counts()
	if err := formatter.Success(summary); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	if !summary.Counts.OK() {
		return NewExitError(ExitFailure, "some cases did not pass")
	}
	return nil
}
