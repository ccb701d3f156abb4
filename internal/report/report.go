package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/roach88/ihop/internal/outcome"
)

// Text writes one human-readable line per case, plus one line per test
// that failed, errored or was skipped.
type Text struct {
	mu      sync.Mutex
	w       io.Writer
	Verbose bool // also list passing tests
}

// NewText creates a text reporter writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

func (t *Text) GotResults(result outcome.CaseResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	mark := "✓"
	if result.Failed() {
		mark = "✗"
	}
	fmt.Fprintf(t.w, "%s %s seq=%d (%d tests)\n", mark, result.Implementation(), result.Seq, len(result.Results))

	i := 0
	for test, failed := range result.Compare() {
		switch {
		case failed:
			fmt.Fprintf(t.w, "  ✗ #%d %s (expected %s)\n", i, test.Description(), expectedWord(result.Expected[i]))
		case test.Skipped() || test.Errored():
			fmt.Fprintf(t.w, "  - #%d %s: %s\n", i, test.Description(), reason(test))
		case t.Verbose:
			fmt.Fprintf(t.w, "  ✓ #%d %s\n", i, test.Description())
		}
		i++
	}
}

func (t *Text) CaseErrored(errored outcome.CaseErrored) {
	t.mu.Lock()
	defer t.mu.Unlock()

	source := "implementation"
	if !errored.Caught {
		source = "driver"
	}
	message := errored.Message()
	if message == "" {
		message = errored.ResultAt(0).(outcome.ErroredTest).Reason()
	}
	fmt.Fprintf(t.w, "! %s seq=%d errored (%s): %s\n", errored.Implementation(), errored.Seq, source, message)
}

func (t *Text) Skipped(skipped outcome.CaseSkipped) {
	t.mu.Lock()
	defer t.mu.Unlock()

	why := outcome.SkippedTest{Message: skipped.Message, IssueURL: skipped.IssueURL}.Reason()
	fmt.Fprintf(t.w, "- %s seq=%d skipped: %s\n", skipped.Implementation(), skipped.Seq, why)
}

func (t *Text) NoResponse(implementation string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "! %s sent no response\n", implementation)
}

func expectedWord(expected *bool) string {
	if expected != nil && *expected {
		return "valid"
	}
	return "invalid"
}

// JSONLines writes one Record per line.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

// NewJSONLines creates a JSON-lines reporter writing to w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

func (j *JSONLines) write(rec Record) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(rec); err != nil && j.err == nil {
		j.err = err
	}
}

// Err returns the first write error, if any.
func (j *JSONLines) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *JSONLines) GotResults(result outcome.CaseResult)    { j.write(resultsRecord(result)) }
func (j *JSONLines) CaseErrored(errored outcome.CaseErrored) { j.write(erroredRecord(errored)) }
func (j *JSONLines) Skipped(skipped outcome.CaseSkipped)     { j.write(skippedRecord(skipped)) }
func (j *JSONLines) NoResponse(implementation string)        { j.write(noResponseRecord(implementation)) }

// Tally forwards to another reporter while counting outcomes.
type Tally struct {
	next outcome.Reporter

	mu     sync.Mutex
	counts Counts
}

// Counts summarizes the outcomes seen by a Tally.
type Counts struct {
	Cases      int `json:"cases"`
	Failed     int `json:"failed"`
	Errored    int `json:"errored"`
	Skipped    int `json:"skipped"`
	NoResponse int `json:"no_response"`
}

// OK reports whether every case passed.
func (c Counts) OK() bool {
	return c.Failed == 0 && c.Errored == 0 && c.NoResponse == 0
}

// NewTally wraps next. A nil next only counts.
func NewTally(next outcome.Reporter) *Tally {
	return &Tally{next: next}
}

// Counts returns the totals so far.
func (t *Tally) Counts() Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts
}

func (t *Tally) count(f func(*Counts)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts.Cases++
	f(&t.counts)
}

func (t *Tally) GotResults(result outcome.CaseResult) {
	t.count(func(c *Counts) {
		if result.Failed() {
			c.Failed++
		}
	})
	if t.next != nil {
		t.next.GotResults(result)
	}
}

func (t *Tally) CaseErrored(errored outcome.CaseErrored) {
	t.count(func(c *Counts) { c.Errored++ })
	if t.next != nil {
		t.next.CaseErrored(errored)
	}
}

func (t *Tally) Skipped(skipped outcome.CaseSkipped) {
	t.count(func(c *Counts) { c.Skipped++ })
	if t.next != nil {
		t.next.Skipped(skipped)
	}
}

func (t *Tally) NoResponse(implementation string) {
	t.count(func(c *Counts) { c.NoResponse++ })
	if t.next != nil {
		t.next.NoResponse(implementation)
	}
}

// Multi fans every outcome out to several reporters, in order.
type Multi []outcome.Reporter

func (m Multi) GotResults(result outcome.CaseResult) {
	for _, r := range m {
		r.GotResults(result)
	}
}

func (m Multi) CaseErrored(errored outcome.CaseErrored) {
	for _, r := range m {
		r.CaseErrored(errored)
	}
}

func (m Multi) Skipped(skipped outcome.CaseSkipped) {
	for _, r := range m {
		r.Skipped(skipped)
	}
}

func (m Multi) NoResponse(implementation string) {
	for _, r := range m {
		r.NoResponse(implementation)
	}
}
