package suite

import (
	"context"
	"time"
)

// CheckKind identifies one of the checks run against a format.
type CheckKind string

const (
	// KindParsingWarnings fails when a fixture's parsed event carries warnings
	KindParsingWarnings CheckKind = "parsing_warnings"
	// KindParsingErrors fails when a fixture's parsed event carries an error
	KindParsingErrors CheckKind = "parsing_errors"
	// KindExpectedMessage compares a fixture's expectation with its parsed event
	KindExpectedMessage CheckKind = "expected_message"
	// KindCoverage fails when the fixtures exercise too little of the parser
	KindCoverage CheckKind = "coverage"
	// KindUnusedFields fails when the taxonomy declares fields never emitted
	KindUnusedFields CheckKind = "unused_fields"
	// KindMissingFields fails when emitted fields are not declared
	KindMissingFields CheckKind = "missing_fields"
)

// FixtureKinds are run once per fixture.
var FixtureKinds = []CheckKind{KindParsingWarnings, KindParsingErrors, KindExpectedMessage}

// FormatKinds are run once per format.
var FormatKinds = []CheckKind{KindCoverage, KindUnusedFields, KindMissingFields}

// AllKinds lists every check kind in execution order.
func AllKinds() []CheckKind {
	return append(append([]CheckKind(nil), FixtureKinds...), FormatKinds...)
}

// IsValid reports whether k names a known check.
func (k CheckKind) IsValid() bool {
	for _, known := range AllKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// CheckResult represents the result of a check
type CheckResult string

const (
	// ResultPassed indicates the check passed
	ResultPassed CheckResult = "PASSED"
	// ResultFailed indicates the check failed
	ResultFailed CheckResult = "FAILED"
	// ResultFixed indicates the check failed and the fixture was rewritten
	ResultFixed CheckResult = "FIXED"
	// ResultSkipped indicates the check was not run
	ResultSkipped CheckResult = "SKIPPED"
	// ResultError indicates the check could not be carried out
	ResultError CheckResult = "ERROR"
)

// Configuration defines a check run
type Configuration struct {
	// Formats restricts the run to these "module" or "module/format" ids
	Formats []string `json:"formats,omitempty"`
	// Kinds restricts the run to these checks
	Kinds []CheckKind `json:"kinds,omitempty"`
	// Fixture restricts fixture checks to fixtures whose path contains it
	Fixture string `json:"fixture,omitempty"`
	// FixExpectations rewrites mismatching fixture expectations
	FixExpectations bool `json:"fix_expectations"`
	// AnalyzeCoverage prints the detailed coverage breakdown
	AnalyzeCoverage bool `json:"analyze_coverage"`
	// FixMissingFields adds missing fields to the taxonomy
	FixMissingFields bool `json:"fix_missing_fields"`
	// PruneTaxonomy removes unused fields from the taxonomy
	PruneTaxonomy bool `json:"prune_taxonomy"`
	// Parallel is the number of formats checked concurrently
	Parallel int `json:"parallel"`
	// FailFast stops the run at the first failure
	FailFast bool `json:"fail_fast"`
	// Verbose enables detailed output
	Verbose bool `json:"verbose"`
	// ReportPath is the directory where a JSON report is saved
	ReportPath string `json:"report_path,omitempty"`
}

// Format is one log format of an intake module.
type Format struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	// Fixtures are slash-separated paths relative to the intakes root
	Fixtures []string `json:"fixtures"`
}

// ID returns "module/format".
func (f Format) ID() string {
	return f.Module + "/" + f.Name
}

// Check is the outcome of one check.
type Check struct {
	Kind CheckKind `json:"kind"`
	// Format is the format id
	Format string `json:"format"`
	// Fixture is set for fixture checks
	Fixture   string        `json:"fixture,omitempty"`
	Result    CheckResult   `json:"result"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	// Error explains a failure or an error
	Error string `json:"error,omitempty"`
	// Output is the text printed by coverage and taxonomy checks
	Output string `json:"output,omitempty"`
	// Diff is the expectation difference of a failed expected_message check
	Diff string `json:"diff,omitempty"`
}

// Failed reports whether the check counts as a failure of the run.
func (c Check) Failed() bool {
	return c.Result == ResultFailed || c.Result == ResultError
}

// FormatResult groups the checks of one format.
type FormatResult struct {
	Format   Format        `json:"format"`
	Result   CheckResult   `json:"result"`
	Duration time.Duration `json:"duration"`
	Checks   []Check       `json:"checks"`
}

// SuiteResult represents the overall result of a check run
type SuiteResult struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	// Counters are per check
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Fixed   int `json:"fixed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`

	Formats       []FormatResult `json:"formats"`
	Configuration Configuration  `json:"configuration"`
}

// Succeeded reports whether no check failed or errored.
func (r SuiteResult) Succeeded() bool {
	return r.Failed == 0 && r.Errors == 0
}

// Runner executes checks over formats
type Runner interface {
	// Run checks the given formats according to the configuration
	Run(ctx context.Context, config Configuration, formats []Format) (*SuiteResult, error)
}

// Reporter defines how check results are reported
type Reporter interface {
	// ReportStart is called when the run begins
	ReportStart(config Configuration, formats []Format)
	// ReportFormatStart is called when a format begins
	ReportFormatStart(format Format)
	// ReportCheck is called when a check completes
	ReportCheck(check Check)
	// ReportFormatResult is called when a format completes
	ReportFormatResult(result FormatResult)
	// ReportSuiteResult is called when all checks complete
	ReportSuiteResult(result SuiteResult)
}
