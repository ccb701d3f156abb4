package testcase

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a case. JSON documents parse as YAML.
type document struct {
	Description string         `yaml:"description"`
	Comment     string         `yaml:"comment,omitempty"`
	Schema      any            `yaml:"schema"`
	Tests       []Test         `yaml:"tests"`
	Registry    map[string]any `yaml:"registry,omitempty"`
}

// Load reads every case in a YAML or JSON file. Multiple YAML documents in
// one file yield multiple cases.
func Load(path, dialect string) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}
	cases, err := Parse(data, dialect)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// Parse decodes cases written against dialect. Unknown fields are rejected.
//
// Numbers outside the int64 and uint64 ranges decode as float64. Requests
// are canonicalized per RFC 8785, which carries every number as an IEEE 754
// double, so such integers could not reach an implementation exactly anyway.
func Parse(data []byte, dialect string) ([]TestCase, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var cases []TestCase
	for i := 0; ; i++ {
		var doc document
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse case %d: %w", i, err)
		}
		tc, err := fromDocument(dialect, doc)
		if err != nil {
			return nil, fmt.Errorf("invalid case %d: %w", i, err)
		}
		cases = append(cases, tc)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no cases found")
	}
	return cases, nil
}

// New builds a case, deriving the registry's default specification from
// dialect.
func New(dialect, description string, schema any, tests []Test, registry map[string]any) TestCase {
	return TestCase{
		Description: description,
		Schema:      schema,
		Tests:       tests,
		Registry:    NewRegistry(dialect, registry),
	}
}

func fromDocument(dialect string, doc document) (TestCase, error) {
	if doc.Description == "" {
		return TestCase{}, fmt.Errorf("description is required")
	}
	if doc.Schema == nil {
		return TestCase{}, fmt.Errorf("schema is required")
	}
	if len(doc.Tests) == 0 {
		return TestCase{}, fmt.Errorf("at least one test is required")
	}
	for i, test := range doc.Tests {
		if test.Description == "" {
			return TestCase{}, fmt.Errorf("tests[%d]: description is required", i)
		}
	}

	tc := New(dialect, doc.Description, doc.Schema, doc.Tests, doc.Registry)
	tc.Comment = doc.Comment
	return tc, nil
}
