package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ihop/internal/outcome"
)

// ProtocolVersion is the ihop protocol version this harness speaks.
const ProtocolVersion = 1

// Start asks an implementation to start up and describe itself.
type Start struct {
	Version int
}

var startDefinition = Define[Start, Started]("", decodeStarted)

// StartV1 starts an implementation speaking ProtocolVersion.
var StartV1 = Start{Version: ProtocolVersion}

func (Start) Definition() *Definition[Started] { return startDefinition }

func (s Start) Fields() map[string]any {
	return map[string]any{"version": s.Version}
}

// Started is an implementation's answer to Start. A Started value only
// exists for an implementation that is ready and speaks ProtocolVersion.
type Started struct {
	Implementation map[string]any `json:"implementation"`
	Ready          bool           `json:"ready"`
	Version        int            `json:"version"`
}

// NewStarted validates readiness, then the protocol version.
func NewStarted(implementation map[string]any, ready bool, version int) (Started, error) {
	if !ready {
		return Started{}, NewNotReadyError()
	}
	if version != ProtocolVersion {
		return Started{}, NewVersionMismatchError(ProtocolVersion, version)
	}
	return Started{Implementation: implementation, Ready: ready, Version: version}, nil
}

// Name returns the implementation's self-reported name, if any.
func (s Started) Name() string {
	name, _ := s.Implementation["name"].(string)
	return name
}

func decodeStarted(data []byte) (Started, error) {
	var wire Started
	if err := json.Unmarshal(data, &wire); err != nil {
		return Started{}, err
	}
	return NewStarted(wire.Implementation, wire.Ready, wire.Version)
}

// Dialect tells an implementation which dialect subsequent cases use.
type Dialect struct {
	Dialect string
}

var dialectDefinition = Define[Dialect, StartedDialect]("", decodeStartedDialect)

func (Dialect) Definition() *Definition[StartedDialect] { return dialectDefinition }

func (d Dialect) Fields() map[string]any {
	return map[string]any{"dialect": d.Dialect}
}

// StartedDialect acknowledges a Dialect command.
type StartedDialect struct {
	OK bool `json:"ok"`
}

// OK is the acknowledgement of a supported dialect.
var OK = StartedDialect{OK: true}

func decodeStartedDialect(data []byte) (StartedDialect, error) {
	var wire StartedDialect
	if err := json.Unmarshal(data, &wire); err != nil {
		return StartedDialect{}, err
	}
	return wire, nil
}

// Run asks an implementation to validate the tests of one case. Case must
// already be stripped of expected results.
type Run struct {
	Seq  int
	Case map[string]any
}

var runDefinition = Define[Run, CaseResponse]("", decodeCaseResponse)

func (Run) Definition() *Definition[CaseResponse] { return runDefinition }

func (r Run) Fields() map[string]any {
	return map[string]any{"seq": r.Seq, "case": r.Case}
}

type caseKind int

const (
	caseResult caseKind = iota
	caseErrored
	caseSkipped
)

// CaseResponse is a decoded answer to Run. It becomes an outcome once the
// caller supplies the implementation name and the expectations it kept.
type CaseResponse struct {
	kind     caseKind
	seq      int
	results  []outcome.Test
	context  map[string]any
	message  string
	issueURL string
}

// Seq is the sequence number echoed by the implementation.
func (r CaseResponse) Seq() int { return r.seq }

// CheckLength rejects per-test results that do not pair up one to one with
// the tests that were sent.
func (r CaseResponse) CheckLength(tests int) error {
	if r.kind != caseResult || len(r.results) == tests {
		return nil
	}
	return &Error{
		Code:    ErrCodeMalformedResponse,
		Message: fmt.Sprintf("got %d results for %d tests", len(r.results), tests),
		Command: "run",
	}
}

// Outcome builds the case outcome. expected is ignored unless the
// implementation returned per-test results.
func (r CaseResponse) Outcome(implementation string, expected []*bool) outcome.Case {
	switch r.kind {
	case caseErrored:
		return outcome.CaseErrored{
			Impl:    implementation,
			Seq:     r.seq,
			Context: r.context,
			Caught:  true,
		}
	case caseSkipped:
		return outcome.CaseSkipped{
			Impl:     implementation,
			Seq:      r.seq,
			Message:  r.message,
			IssueURL: r.issueURL,
		}
	default:
		return outcome.CaseResult{
			Impl:     implementation,
			Seq:      r.seq,
			Results:  r.results,
			Expected: expected,
		}
	}
}

type caseResponseWire struct {
	Seq      int              `json:"seq"`
	Errored  bool             `json:"errored"`
	Skipped  bool             `json:"skipped"`
	Context  map[string]any   `json:"context"`
	Message  string           `json:"message"`
	IssueURL string           `json:"issue_url"`
	Results  []testResultWire `json:"results"`
}

type testResultWire struct {
	Valid    *bool          `json:"valid"`
	Skipped  bool           `json:"skipped"`
	Errored  bool           `json:"errored"`
	Message  string         `json:"message"`
	IssueURL string         `json:"issue_url"`
	Context  map[string]any `json:"context"`
}

func decodeCaseResponse(data []byte) (CaseResponse, error) {
	var wire caseResponseWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return CaseResponse{}, err
	}

	switch {
	case wire.Errored && wire.Skipped:
		return CaseResponse{}, &Error{
			Code:    ErrCodeMalformedResponse,
			Message: "response is both errored and skipped",
		}
	case wire.Errored:
		context := wire.Context
		if context == nil {
			context = map[string]any{}
		}
		return CaseResponse{kind: caseErrored, seq: wire.Seq, context: context}, nil
	case wire.Skipped:
		return CaseResponse{
			kind:     caseSkipped,
			seq:      wire.Seq,
			message:  wire.Message,
			issueURL: wire.IssueURL,
		}, nil
	}

	if wire.Results == nil {
		return CaseResponse{}, &Error{
			Code:    ErrCodeMalformedResponse,
			Message: "response has no results",
		}
	}
	results := make([]outcome.Test, len(wire.Results))
	for i, t := range wire.Results {
		result, err := t.toTest()
		if err != nil {
			return CaseResponse{}, &Error{
				Code:    ErrCodeMalformedResponse,
				Message: fmt.Sprintf("results[%d]: %v", i, err),
			}
		}
		results[i] = result
	}
	return CaseResponse{kind: caseResult, seq: wire.Seq, results: results}, nil
}

func (t testResultWire) toTest() (outcome.Test, error) {
	switch {
	case t.Skipped:
		return outcome.SkippedTest{Message: t.Message, IssueURL: t.IssueURL}, nil
	case t.Errored:
		context := t.Context
		if context == nil {
			context = map[string]any{}
		}
		return outcome.ErroredTest{Context: context}, nil
	case t.Valid == nil:
		return nil, fmt.Errorf("missing valid")
	case *t.Valid:
		return outcome.Valid, nil
	default:
		return outcome.Invalid, nil
	}
}

// Stop ends the conversation with an implementation.
type Stop struct{}

// Stopped is the empty answer to Stop.
type Stopped struct{}

var stopDefinition = Define[Stop, Stopped]("", func([]byte) (Stopped, error) {
	return Stopped{}, nil
})

// StopCommand is the only Stop value.
var StopCommand = Stop{}

func (Stop) Definition() *Definition[Stopped] { return stopDefinition }

func (Stop) Fields() map[string]any { return map[string]any{} }
