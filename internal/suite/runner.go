package suite

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"intakectl/internal/config"
	"intakectl/internal/coverage"
	"intakectl/internal/engine"
	"intakectl/internal/fixture"
	"intakectl/internal/normalizer"
	"intakectl/internal/taxonomy"
	"intakectl/pkg/logging"
)

// runner implements the Runner interface
type runner struct {
	manager    engine.Manager
	normalizer *normalizer.Normalizer
	cfg        config.IntakectlConfig
	reporter   Reporter
}

// NewRunner creates a runner. Fixture paths are resolved against
// cfg.IntakesRoot.
func NewRunner(manager engine.Manager, n *normalizer.Normalizer, cfg config.IntakectlConfig, reporter Reporter) Runner {
	return &runner{
		manager:    manager,
		normalizer: n,
		cfg:        cfg,
		reporter:   reporter,
	}
}

// Run executes the checks according to the configuration
func (r *runner) Run(ctx context.Context, config Configuration, formats []Format) (*SuiteResult, error) {
	for _, kind := range config.Kinds {
		if !kind.IsValid() {
			return nil, fmt.Errorf("unknown check kind %q", kind)
		}
	}

	result := &SuiteResult{
		StartTime:     time.Now(),
		Configuration: config,
	}

	formats = FilterFormats(formats, config.Formats)
	r.reporter.ReportStart(config, formats)

	if config.Parallel <= 1 {
		for _, format := range formats {
			if ctx.Err() != nil {
				break
			}
			formatResult := r.runFormat(ctx, format, config, true)
			r.record(result, formatResult)
			r.reporter.ReportFormatResult(formatResult)

			if config.FailFast && formatResult.Result.failedOrErrored() {
				break
			}
		}
	} else {
		for _, formatResult := range r.runFormatsParallel(ctx, formats, config) {
			r.replay(formatResult)
			r.record(result, formatResult)
			r.reporter.ReportFormatResult(formatResult)
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	r.reporter.ReportSuiteResult(*result)
	return result, ctx.Err()
}

func (r CheckResult) failedOrErrored() bool {
	return r == ResultFailed || r == ResultError
}

func (r *runner) record(result *SuiteResult, formatResult FormatResult) {
	result.Formats = append(result.Formats, formatResult)
	for _, check := range formatResult.Checks {
		result.Total++
		switch check.Result {
		case ResultPassed:
			result.Passed++
		case ResultFailed:
			result.Failed++
		case ResultFixed:
			result.Fixed++
		case ResultSkipped:
			result.Skipped++
		case ResultError:
			result.Errors++
		}
	}
}

// replay reports the checks of a format run without live reporting.
func (r *runner) replay(formatResult FormatResult) {
	r.reporter.ReportFormatStart(formatResult.Format)
	for _, check := range formatResult.Checks {
		r.reporter.ReportCheck(check)
	}
}

// runFormatsParallel checks formats with a worker pool. Results keep the
// order of formats. Checks of one format always run sequentially. Workers
// never call the reporter; results are replayed once the pool is done.
func (r *runner) runFormatsParallel(ctx context.Context, formats []Format, config Configuration) []FormatResult {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	indexes := make(chan int, len(formats))
	for i := range formats {
		indexes <- i
	}
	close(indexes)

	numWorkers := config.Parallel
	if numWorkers > len(formats) {
		numWorkers = len(formats)
	}

	results := make([]FormatResult, len(formats))
	done := make([]bool, len(formats))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range indexes {
				if ctx.Err() != nil {
					continue
				}
				formatResult := r.runFormat(ctx, formats[index], config, false)

				mu.Lock()
				results[index] = formatResult
				done[index] = true
				mu.Unlock()

				if config.FailFast && formatResult.Result.failedOrErrored() {
					cancel()
				}
			}
		}()
	}
	wg.Wait()

	completed := make([]FormatResult, 0, len(formats))
	for i, ok := range done {
		if ok {
			completed = append(completed, results[i])
		}
	}
	return completed
}

func (r *runner) runFormat(ctx context.Context, format Format, config Configuration, live bool) (result FormatResult) {
	start := time.Now()
	result = FormatResult{Format: format, Result: ResultPassed}
	if live {
		r.reporter.ReportFormatStart(format)
	}

	add := func(check Check) bool {
		check.Format = format.ID()
		result.Checks = append(result.Checks, check)
		if live {
			r.reporter.ReportCheck(check)
		}
		if check.Failed() {
			if result.Result != ResultError {
				result.Result = check.Result
			}
		} else if check.Result == ResultFixed && result.Result == ResultPassed {
			result.Result = ResultFixed
		}
		return config.FailFast && check.Failed()
	}

	defer func() {
		result.Duration = time.Since(start)
	}()

	mode := fixture.ModeVerify
	if config.FixExpectations {
		mode = fixture.ModeFix
	}
	verifier := fixture.NewVerifier(r.cfg.IntakesRoot, r.manager, r.normalizer, mode)

	if selectsAny(config.Kinds, FixtureKinds...) {
		for _, fixturePath := range format.Fixtures {
			if config.Fixture != "" && !strings.Contains(fixturePath, config.Fixture) {
				continue
			}
			for _, check := range r.checkFixture(ctx, verifier, fixturePath, config.Kinds) {
				if add(check) {
					return result
				}
			}
			if ctx.Err() != nil {
				return result
			}
		}
	}

	if selects(config.Kinds, KindCoverage) {
		if add(r.checkCoverage(ctx, format, config)) {
			return result
		}
	}

	if selectsAny(config.Kinds, KindUnusedFields, KindMissingFields) {
		for _, check := range r.checkTaxonomy(ctx, format, config) {
			if add(check) {
				return result
			}
		}
	}
	return result
}

func selects(kinds []CheckKind, kind CheckKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func selectsAny(kinds []CheckKind, candidates ...CheckKind) bool {
	for _, kind := range candidates {
		if selects(kinds, kind) {
			return true
		}
	}
	return false
}

func newCheck(kind CheckKind, fixturePath string) Check {
	return Check{Kind: kind, Fixture: fixturePath, StartTime: time.Now(), Result: ResultPassed}
}

func (c *Check) finish() {
	c.Duration = time.Since(c.StartTime)
}

func (c *Check) fail(result CheckResult, err error) {
	c.Result = result
	c.Error = err.Error()
}

func (r *runner) checkFixture(ctx context.Context, verifier *fixture.Verifier, fixturePath string, kinds []CheckKind) []Check {
	var checks []Check

	if selectsAny(kinds, KindParsingWarnings, KindParsingErrors) {
		parsed, parseErr := r.manager.GetParsedMessage(ctx, fixturePath)
		for _, item := range []struct {
			kind  CheckKind
			check func(map[string]interface{}) error
		}{
			{KindParsingWarnings, fixture.CheckWarnings},
			{KindParsingErrors, fixture.CheckErrors},
		} {
			if !selects(kinds, item.kind) {
				continue
			}
			check := newCheck(item.kind, fixturePath)
			if parseErr != nil {
				check.fail(ResultError, parseErr)
			} else if err := item.check(parsed); err != nil {
				check.fail(ResultFailed, err)
			}
			check.finish()
			checks = append(checks, check)
		}
	}

	if selects(kinds, KindExpectedMessage) {
		check := newCheck(KindExpectedMessage, fixturePath)
		outcome, err := verifier.Verify(ctx, fixturePath)
		switch {
		case err != nil:
			check.fail(ResultError, err)
		case outcome.Fixed:
			check.Result = ResultFixed
			check.Diff = outcome.Diff
		case !outcome.Passed:
			check.fail(ResultFailed, fmt.Errorf("parsed event of %s differs from its expectation", fixturePath))
			check.Diff = outcome.Diff
		}
		check.finish()
		checks = append(checks, check)
	}
	return checks
}

func (r *runner) checkCoverage(ctx context.Context, format Format, config Configuration) Check {
	check := newCheck(KindCoverage, "")

	report, err := r.manager.GetCoverage(ctx, format.Module, format.Name)
	if err != nil {
		check.fail(ResultError, err)
		check.finish()
		return check
	}

	var out bytes.Buffer
	summary := coverage.NewAnalyzer(&out, config.AnalyzeCoverage).
		Analyze(format.Name, report, r.cfg.ParserPath(format.Module, format.Name))
	check.Output = out.String()
	if !summary.Passed {
		check.fail(ResultFailed, fmt.Errorf("coverage %.2f%% is below %g%%", summary.Percent, coverage.MinimumPercent))
	}
	check.finish()
	return check
}

func (r *runner) checkTaxonomy(ctx context.Context, format Format, config Configuration) []Check {
	report, err := r.manager.GetTaxonomy(ctx, format.Module, format.Name)

	fieldsPath := r.cfg.FieldsPath(format.Module, format.Name)
	var checks []Check
	for _, item := range []struct {
		kind  CheckKind
		check func(*taxonomy.Reconciler, string, taxonomy.Report) error
	}{
		{KindUnusedFields, (*taxonomy.Reconciler).CheckUnused},
		{KindMissingFields, (*taxonomy.Reconciler).CheckMissing},
	} {
		if !selects(config.Kinds, item.kind) {
			continue
		}
		check := newCheck(item.kind, "")
		if err != nil {
			check.fail(ResultError, err)
		} else {
			var out bytes.Buffer
			reconciler := taxonomy.NewReconciler(&out, config.FixMissingFields, config.PruneTaxonomy)
			if checkErr := item.check(reconciler, fieldsPath, report); checkErr != nil {
				check.fail(ResultFailed, checkErr)
			}
			check.Output = out.String()
		}
		check.finish()
		if check.Failed() {
			logging.Debug("Suite", "%s %s: %s", format.ID(), item.kind, check.Error)
		}
		checks = append(checks, check)
	}
	return checks
}
