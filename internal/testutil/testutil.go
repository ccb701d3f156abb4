// Package testutil provides deterministic test doubles shared across
// packages: a fixed ID generator, a recording reporter, a validator that
// accepts everything, and a scripted fake implementation.
package testutil

import (
	"sync"

	"github.com/roach88/ihop/internal/outcome"
)

// FixedIDGenerator returns predetermined IDs in order.
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next ID. Panics once all IDs are consumed so that a
// test asking for more IDs than it declared fails loudly.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("testutil: FixedIDGenerator exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Recorder is an outcome.Reporter remembering every call in order.
type Recorder struct {
	mu      sync.Mutex
	Calls   []string
	Results []outcome.CaseResult
	Errored []outcome.CaseErrored
	Skips   []outcome.CaseSkipped
	Silent  []string
}

func (r *Recorder) GotResults(result outcome.CaseResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "got_results")
	r.Results = append(r.Results, result)
}

func (r *Recorder) CaseErrored(errored outcome.CaseErrored) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "case_errored")
	r.Errored = append(r.Errored, errored)
}

func (r *Recorder) Skipped(skipped outcome.CaseSkipped) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "skipped")
	r.Skips = append(r.Skips, skipped)
}

func (r *Recorder) NoResponse(implementation string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "no_response")
	r.Silent = append(r.Silent, implementation)
}

// AcceptAll is a protocol.Validator that never fails.
type AcceptAll struct{}

func (AcceptAll) Validate(any, map[string]any) error { return nil }
