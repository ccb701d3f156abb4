package outcome

import "iter"

// Reporter receives case outcomes. Each Case calls exactly one method.
type Reporter interface {
	GotResults(result CaseResult)
	CaseErrored(errored CaseErrored)
	Skipped(skipped CaseSkipped)
	NoResponse(implementation string)
}

// Case is the outcome of running one case against one implementation.
// Implementations: CaseResult, CaseSkipped, CaseErrored, Empty.
type Case interface {
	Implementation() string
	Errored() bool
	Failed() bool
	Skipped() bool

	// Report hands the outcome to the matching Reporter method.
	Report(reporter Reporter)

	// caseMarker restricts implementers to this package.
	caseMarker()
}

// CaseResult holds per-test outcomes reported by an implementation.
// Results and Expected are positionally aligned with the case's tests.
type CaseResult struct {
	Impl     string
	Seq      int
	Results  []Test
	Expected []*bool
}

func (r CaseResult) Implementation() string { return r.Impl }
func (CaseResult) Errored() bool            { return false }
func (CaseResult) Skipped() bool            { return false }
func (CaseResult) caseMarker()              {}

func (r CaseResult) Report(reporter Reporter) {
	reporter.GotResults(r)
}

// Compare yields each test outcome together with whether it failed.
func (r CaseResult) Compare() iter.Seq2[Test, bool] {
	return func(yield func(Test, bool) bool) {
		n := min(len(r.Results), len(r.Expected))
		for i := 0; i < n; i++ {
			test := r.Results[i]
			if !yield(test, failed(test, r.Expected[i])) {
				return
			}
		}
	}
}

// Failed reports whether any test disagreed with its expectation.
func (r CaseResult) Failed() bool {
	for _, bad := range r.Compare() {
		if bad {
			return true
		}
	}
	return false
}

func failed(test Test, expected *bool) bool {
	if expected == nil {
		return false
	}
	switch t := test.(type) {
	case TestResult:
		return t.Valid != *expected
	case SkippedTest, ErroredTest:
		return false
	default:
		panic("outcome: unknown test outcome")
	}
}

// CaseErrored means the whole case errored. Caught is false when the error
// came from the driver itself rather than from the implementation.
type CaseErrored struct {
	Impl    string
	Seq     int
	Context map[string]any
	Caught  bool
}

// Uncaught builds a CaseErrored for a failure in the local driver while
// talking to an implementation.
func Uncaught(implementation string, seq int, context map[string]any) CaseErrored {
	return CaseErrored{
		Impl:    implementation,
		Seq:     seq,
		Context: context,
		Caught:  false,
	}
}

func (e CaseErrored) Implementation() string { return e.Impl }
func (CaseErrored) Errored() bool            { return true }
func (CaseErrored) Failed() bool             { return false }
func (CaseErrored) Skipped() bool            { return false }
func (CaseErrored) caseMarker()              {}

func (e CaseErrored) Report(reporter Reporter) {
	reporter.CaseErrored(e)
}

// ResultAt returns the outcome standing in for the test at any position.
func (CaseErrored) ResultAt(int) Test {
	return InErroredCase()
}

// Message returns the implementation's error message, if it sent one.
func (e CaseErrored) Message() string {
	message, _ := e.Context["message"].(string)
	return message
}

// CaseSkipped means the implementation skipped the whole case.
type CaseSkipped struct {
	Impl     string
	Seq      int
	Message  string
	IssueURL string
}

func (s CaseSkipped) Implementation() string { return s.Impl }
func (CaseSkipped) Errored() bool            { return false }
func (CaseSkipped) Failed() bool             { return false }
func (CaseSkipped) Skipped() bool            { return true }
func (CaseSkipped) caseMarker()              {}

func (s CaseSkipped) Report(reporter Reporter) {
	reporter.Skipped(s)
}

// ResultAt returns the outcome standing in for the test at any position.
func (CaseSkipped) ResultAt(int) Test {
	return InSkippedCase()
}

// Empty means the implementation sent no response at all.
type Empty struct {
	Impl string
}

func (e Empty) Implementation() string { return e.Impl }
func (Empty) Errored() bool            { return true }
func (Empty) Failed() bool             { return false }
func (Empty) Skipped() bool            { return false }
func (Empty) caseMarker()              {}

func (e Empty) Report(reporter Reporter) {
	reporter.NoResponse(e.Impl)
}
