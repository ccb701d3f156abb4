package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ihop/internal/protocol"
	"github.com/roach88/ihop/internal/testcase"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Dialect string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool         `json:"valid"`
	Files []FileResult `json:"files"`
}

// FileResult is the validation outcome of one case file.
type FileResult struct {
	Path      string           `json:"path"`
	Cases     int              `json:"cases"`
	Resources []ResourceResult `json:"resources,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// ResourceResult is one registry resource and the specification it will be
// interpreted with.
type ResourceResult struct {
	Case          string `json:"case"`
	URI           string `json:"uri"`
	Specification string `json:"specification"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	for _, f := range r.Files {
		if f.Error != "" {
			fmt.Fprintf(&b, "✗ %s: %s\n", f.Path, f.Error)
			continue
		}
		fmt.Fprintf(&b, "✓ %s (%d cases)\n", f.Path, f.Cases)
		for _, r := range f.Resources {
			fmt.Fprintf(&b, "    %s: %s (%s)\n", r.Case, r.URI, r.Specification)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <case-file>...",
		Short: "Check that case files load and form valid run requests",
		Long: `Check case files without running any implementation.

Each file must parse, every case must carry a description, a schema and
described tests, and the answer-stripped run request must satisfy the run
command schema.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", DefaultDialect, "dialect URI the cases are written against")

	return cmd
}

func runValidate(opts *ValidateOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	codec, err := newCodec()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeRequest, "failed to load command schemas", err)
	}

	result := ValidationResult{Valid: true}
	for _, path := range files {
		file, err := validateFile(codec, path, opts.Dialect)
		if err != nil {
			file.Error = err.Error()
			result.Valid = false
		}
		result.Files = append(result.Files, file)
	}

	if err := formatter.Success(result); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateFile(codec *protocol.Codec, path, dialect string) (FileResult, error) {
	file := FileResult{Path: path}
	cases, err := testcase.Load(path, dialect)
	if err != nil {
		return file, err
	}
	for i, c := range cases {
		if _, err := protocol.ToRequest(codec, protocol.Run{Seq: i + 1, Case: c.WithoutExpectedResults()}); err != nil {
			file.Cases = i
			return file, fmt.Errorf("case %q: %w", c.Description, err)
		}
		for _, uri := range c.Registry.URIs() {
			resource, _ := c.Registry.Lookup(uri)
			file.Resources = append(file.Resources, ResourceResult{
				Case:          c.Description,
				URI:           uri,
				Specification: resource.Specification.Name,
			})
		}
	}
	file.Cases = len(cases)
	return file, nil
}
