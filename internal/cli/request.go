package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ihop/internal/protocol"
	"github.com/roach88/ihop/internal/runner"
	"github.com/roach88/ihop/internal/testcase"
)

// RequestOptions holds flags for the request command.
type RequestOptions struct {
	*RootOptions
	Dialect string
	Seq     int
}

// NewRequestCommand creates the request command.
func NewRequestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RequestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "request <case-file>...",
		Short: "Print the run requests an implementation would receive",
		Long: `Print one canonical run request line per case, exactly as sent to an
implementation. Expected results are stripped.

Example:
  ihop request cases.yaml
  ihop request --seq 10 cases.yaml | ./my-implementation`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", DefaultDialect, "dialect URI the cases are written against")
	cmd.Flags().IntVar(&opts.Seq, "seq", 1, "seq of the first request")

	return cmd
}

func runRequest(opts *RequestOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	codec, err := newCodec()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeRequest, "failed to load command schemas", err)
	}

	cases, err := loadCases(files, opts.Dialect)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeLoad, "failed to load cases", err)
	}

	for i, c := range cases {
		seq := opts.Seq + i
		request, err := protocol.ToRequest(codec, protocol.Run{Seq: seq, Case: c.WithoutExpectedResults()})
		if err != nil {
			return formatter.fail(ExitFailure, ErrCodeRequest, fmt.Sprintf("case %q is not a valid request", c.Description), err)
		}
		line, err := runner.EncodeRequest(request)
		if err != nil {
			return formatter.fail(ExitFailure, ErrCodeRequest, "failed to encode request", err)
		}
		if _, err := cmd.OutOrStdout().Write(line); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	}
	return nil
}

// loadCases reads every case from every file, in order.
func loadCases(files []string, dialect string) ([]testcase.TestCase, error) {
	var cases []testcase.TestCase
	for _, path := range files {
		loaded, err := testcase.Load(path, dialect)
		if err != nil {
			return nil, err
		}
		cases = append(cases, loaded...)
	}
	return cases, nil
}
