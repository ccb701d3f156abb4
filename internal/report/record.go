// Package report renders case outcomes for people and machines.
//
// Every reporter here implements outcome.Reporter. Record is the flat form
// shared by the JSON-lines reporter and the SQLite store.
package report

import "github.com/roach88/ihop/internal/outcome"

// Kinds of case outcome, as written in records.
const (
	KindResults    = "results"
	KindErrored    = "errored"
	KindSkipped    = "skipped"
	KindNoResponse = "no_response"
)

// Record is the serializable form of one case outcome.
type Record struct {
	Implementation string         `json:"implementation"`
	Seq            int            `json:"seq,omitempty"`
	Kind           string         `json:"kind"`
	Failed         bool           `json:"failed"`
	Errored        bool           `json:"errored"`
	Caught         *bool          `json:"caught,omitempty"`
	Message        string         `json:"message,omitempty"`
	IssueURL       string         `json:"issue_url,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
	Tests          []TestRecord   `json:"tests,omitempty"`
}

// TestRecord is one test inside a results record.
type TestRecord struct {
	Outcome string `json:"outcome"`
	Failed  bool   `json:"failed"`
	Reason  string `json:"reason,omitempty"`
}

// RecordOf flattens any case outcome.
func RecordOf(c outcome.Case) Record {
	switch c := c.(type) {
	case outcome.CaseResult:
		return resultsRecord(c)
	case outcome.CaseErrored:
		return erroredRecord(c)
	case outcome.CaseSkipped:
		return skippedRecord(c)
	case outcome.Empty:
		return noResponseRecord(c.Implementation())
	default:
		panic("report: unknown case outcome")
	}
}

func resultsRecord(r outcome.CaseResult) Record {
	rec := Record{
		Implementation: r.Implementation(),
		Seq:            r.Seq,
		Kind:           KindResults,
	}
	for test, failed := range r.Compare() {
		rec.Tests = append(rec.Tests, TestRecord{
			Outcome: test.Description(),
			Failed:  failed,
			Reason:  reason(test),
		})
		rec.Failed = rec.Failed || failed
	}
	return rec
}

func erroredRecord(e outcome.CaseErrored) Record {
	caught := e.Caught
	return Record{
		Implementation: e.Implementation(),
		Seq:            e.Seq,
		Kind:           KindErrored,
		Errored:        true,
		Caught:         &caught,
		Message:        e.Message(),
		Context:        e.Context,
	}
}

func skippedRecord(s outcome.CaseSkipped) Record {
	return Record{
		Implementation: s.Implementation(),
		Seq:            s.Seq,
		Kind:           KindSkipped,
		Message:        s.Message,
		IssueURL:       s.IssueURL,
	}
}

func noResponseRecord(implementation string) Record {
	return Record{
		Implementation: implementation,
		Kind:           KindNoResponse,
		Errored:        true,
	}
}

func reason(test outcome.Test) string {
	switch t := test.(type) {
	case outcome.SkippedTest:
		return t.Reason()
	case outcome.ErroredTest:
		return t.Reason()
	default:
		return ""
	}
}
