package outcome

// Test is the outcome of a single instance validated inside a case.
// Implementations: TestResult, SkippedTest, ErroredTest.
type Test interface {
	// Description is a single word to use when displaying this outcome.
	Description() string
	Skipped() bool
	Errored() bool

	// testMarker restricts implementers to this package.
	testMarker()
}

// TestResult is an instance the implementation actually validated.
type TestResult struct {
	Valid bool
}

// Canonical per-test results.
var (
	Valid   = TestResult{Valid: true}
	Invalid = TestResult{Valid: false}
)

func (r TestResult) Description() string {
	if r.Valid {
		return "valid"
	}
	return "invalid"
}

func (TestResult) Skipped() bool { return false }
func (TestResult) Errored() bool { return false }
func (TestResult) testMarker()   {}

// SkippedTest is a test the implementation declined to run.
// Empty Message and IssueURL mean the implementation did not say why.
type SkippedTest struct {
	Message  string
	IssueURL string
}

// InSkippedCase returns the skipped test standing in for every position of
// an entirely skipped case.
func InSkippedCase() SkippedTest {
	return SkippedTest{Message: "All tests in this test case were skipped."}
}

func (SkippedTest) Description() string { return "skipped" }
func (SkippedTest) Skipped() bool       { return true }
func (SkippedTest) Errored() bool       { return false }
func (SkippedTest) testMarker()         {}

// Reason prefers the message, then the issue URL.
func (s SkippedTest) Reason() string {
	if s.Message != "" {
		return s.Message
	}
	if s.IssueURL != "" {
		return s.IssueURL
	}
	return "skipped"
}

// ErroredTest is a test the implementation failed to evaluate.
type ErroredTest struct {
	Context map[string]any
}

// InErroredCase returns the errored test standing in for every position of
// an entirely errored case.
func InErroredCase() ErroredTest {
	return ErroredTest{
		Context: map[string]any{"message": "All tests in this test case errored."},
	}
}

func (ErroredTest) Description() string { return "error" }
func (ErroredTest) Skipped() bool       { return false }
func (ErroredTest) Errored() bool       { return true }
func (ErroredTest) testMarker()         {}

func (e ErroredTest) Reason() string {
	if message, ok := e.Context["message"].(string); ok && message != "" {
		return message
	}
	return "Encountered an error."
}
