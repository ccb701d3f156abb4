// Package testcase holds the cases sent to implementations: a schema, the
// instances to validate against it, and the validity each is expected to
// have.
//
// Expected results never leave this package's callers. The form sent over
// the wire is WithoutExpectedResults; the expectations are kept aside with
// Expected and only meet the implementation's answers during comparison.
package testcase

import (
	"context"

	"github.com/roach88/ihop/internal/outcome"
	"github.com/roach88/ihop/internal/protocol"
)

// Test is one instance and, when known, whether it should be valid.
type Test struct {
	Description string `yaml:"description"`
	Instance    any    `yaml:"instance"`
	Comment     string `yaml:"comment,omitempty"`
	Valid       *bool  `yaml:"valid,omitempty"`
}

// TestCase is a schema together with the tests run against it.
type TestCase struct {
	Description string
	Schema      any
	Tests       []Test
	Comment     string
	Registry    Registry
}

// Runner executes a Run command against one implementation. Failures of
// any kind come back as outcomes.
type Runner interface {
	RunValidation(ctx context.Context, run protocol.Run, tests []Test) outcome.Case
}

// Run sends the case, stripped of expected results, through runner.
func (c TestCase) Run(ctx context.Context, seq int, runner Runner) outcome.Case {
	command := protocol.Run{Seq: seq, Case: c.WithoutExpectedResults()}
	return runner.RunValidation(ctx, command, c.Tests)
}

// Expected returns the expected validity of each test, nil where unknown.
func Expected(tests []Test) []*bool {
	expected := make([]*bool, len(tests))
	for i, test := range tests {
		if test.Valid != nil {
			valid := *test.Valid
			expected[i] = &valid
		}
	}
	return expected
}

// Serializable returns the full JSON form of the case, including expected
// results.
func (c TestCase) Serializable() map[string]any {
	return c.serialize(true)
}

// WithoutExpectedResults returns the JSON form sent to implementations.
// No test carries "valid".
func (c TestCase) WithoutExpectedResults() map[string]any {
	return c.serialize(false)
}

func (c TestCase) serialize(withExpected bool) map[string]any {
	tests := make([]any, len(c.Tests))
	for i, test := range c.Tests {
		t := map[string]any{
			"description": test.Description,
			"instance":    test.Instance,
		}
		if test.Comment != "" {
			t["comment"] = test.Comment
		}
		if withExpected && test.Valid != nil {
			t["valid"] = *test.Valid
		}
		tests[i] = t
	}

	out := map[string]any{
		"description": c.Description,
		"schema":      c.Schema,
		"tests":       tests,
	}
	if c.Comment != "" {
		out["comment"] = c.Comment
	}
	if c.Registry.Len() > 0 {
		out["registry"] = c.Registry.Contents()
	}
	return out
}
