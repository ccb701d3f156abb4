// Package outcome models what an implementation under test produced for a
// single case and for each test inside it.
//
// Two closed families exist:
//
//   - Test: TestResult (valid or invalid), SkippedTest, ErroredTest
//   - Case: CaseResult, CaseSkipped, CaseErrored, Empty
//
// Both are sealed through unexported marker methods, so only this package
// can add variants. Consumers switch on the concrete type.
//
// # Comparison
//
// CaseResult.Compare pairs each actual per-test outcome with the expectation
// captured before the request was stripped of answers. A test fails only when
// it was neither skipped nor errored, an expectation is known, and the
// expectation differs from the reported validity.
//
// # Reporting
//
// Every Case reports itself through exactly one Reporter method:
//
//	CaseResult  -> Reporter.GotResults
//	CaseErrored -> Reporter.CaseErrored
//	CaseSkipped -> Reporter.Skipped
//	Empty       -> Reporter.NoResponse
//
// All values are immutable once constructed and safe to share across
// goroutines.
package outcome
