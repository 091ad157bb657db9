package suite

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"intakectl/internal/config"
	"intakectl/internal/coverage"
	"intakectl/internal/engine"
	"intakectl/internal/normalizer"
	"intakectl/internal/taxonomy"
	"intakectl/internal/tree"
)

type mockManager struct {
	mock.Mock
}

func (m *mockManager) GetParsedMessage(ctx context.Context, fixturePath string) (map[string]interface{}, error) {
	args := m.Called(ctx, fixturePath)
	event, _ := args.Get(0).(map[string]interface{})
	return event, args.Error(1)
}

func (m *mockManager) GetCoverage(ctx context.Context, module, format string) (coverage.Report, error) {
	args := m.Called(ctx, module, format)
	return args.Get(0).(coverage.Report), args.Error(1)
}

func (m *mockManager) GetTaxonomy(ctx context.Context, module, format string) (taxonomy.Report, error) {
	args := m.Called(ctx, module, format)
	return args.Get(0).(taxonomy.Report), args.Error(1)
}

// recordingReporter keeps every check it is given
type recordingReporter struct {
	checks  []Check
	formats []FormatResult
	events  []string
	suite   *SuiteResult
}

func (r *recordingReporter) ReportStart(config Configuration, formats []Format) {}

func (r *recordingReporter) ReportFormatStart(format Format) {
	r.events = append(r.events, "start "+format.ID())
}

func (r *recordingReporter) ReportCheck(check Check) {
	r.checks = append(r.checks, check)
	r.events = append(r.events, "check "+check.Format+" "+string(check.Kind))
}

func (r *recordingReporter) ReportFormatResult(result FormatResult) {
	r.formats = append(r.formats, result)
	r.events = append(r.events, "result "+result.Format.ID())
}

func (r *recordingReporter) ReportSuiteResult(result SuiteResult) { r.suite = &result }

const loginFixture = `{
  "input": {"message": "user=alice action=login"},
  "expected": {
    "message": "user=alice action=login",
    "event": {"action": "login"},
    "user": {"name": "alice"}
  }
}
`

func parsedLogin() map[string]interface{} {
	return map[string]interface{}{
		"message": "user=alice action=login",
		"event": map[string]interface{}{
			"action": "login",
			"id":     "00000000-0000-0000-0000-000000000000",
		},
		"user": map[string]interface{}{"name": "alice"},
		"sekoiaio": map[string]interface{}{"intake": map[string]interface{}{
			"parsing_status":      "success",
			"parsing_duration_ms": 3,
			"dialect":             "test",
			"dialect_uuid":        "00000000-0000-0000-0000-000000000000",
		}},
	}
}

// newIntakes lays out acme/fw with one fixture and returns its config.
func newIntakes(t *testing.T) config.IntakectlConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.GetDefaultConfig()
	cfg.IntakesRoot = root

	files := map[string]string{
		"acme/fw/ingest/parser.yml":     "name: fw\nstages:\n  main:\n    actions:\n      - set:\n          event.action: login\n",
		"acme/fw/_meta/fields.yml":      "",
		"acme/fw/tests/login.json":      loginFixture,
		"acme/proxy/ingest/parser.yml":  "name: proxy\n",
		"_shared/lib/ingest/parser.yml": "name: shared\n",
	}
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return cfg
}

func TestDiscoverFormats(t *testing.T) {
	cfg := newIntakes(t)

	formats, err := DiscoverFormats(cfg)
	require.NoError(t, err)
	require.Len(t, formats, 2)
	assert.Equal(t, Format{Module: "acme", Name: "fw", Fixtures: []string{"acme/fw/tests/login.json"}}, formats[0])
	assert.Equal(t, "acme/proxy", formats[1].ID())
	assert.Empty(t, formats[1].Fixtures)
}

func TestDiscoverFormats_TestsWithoutParser(t *testing.T) {
	fsys := fstest.MapFS{
		"acme/dns/tests/nested/query.json": {Data: []byte("{}")},
		"acme/dns/tests/README.md":         {Data: []byte("")},
	}
	formats, err := discoverFormats(fsys, config.GetDefaultConfig().Layout)
	require.NoError(t, err)
	require.Len(t, formats, 1)
	assert.Equal(t, []string{"acme/dns/tests/nested/query.json"}, formats[0].Fixtures)
}

func TestFilterFormats(t *testing.T) {
	formats := []Format{{Module: "acme", Name: "fw"}, {Module: "acme", Name: "proxy"}, {Module: "other", Name: "fw"}}

	assert.Len(t, FilterFormats(formats, nil), 3)
	assert.Len(t, FilterFormats(formats, []string{"acme"}), 2)
	assert.Equal(t, []Format{{Module: "other", Name: "fw"}}, FilterFormats(formats, []string{"other/fw/"}))
	assert.Empty(t, FilterFormats(formats, []string{"nope"}))

	found, ok := FindFormat(formats, "acme", "proxy")
	assert.True(t, ok)
	assert.Equal(t, "acme/proxy", found.ID())
}

func runOne(t *testing.T, m engine.Manager, cfg config.IntakectlConfig, conf Configuration) (*SuiteResult, *recordingReporter) {
	t.Helper()
	formats, err := DiscoverFormats(cfg)
	require.NoError(t, err)
	reporter := &recordingReporter{}
	n := normalizer.New(normalizer.DefaultConfig(cfg.Normalizer.Dialect))
	result, err := NewRunner(m, n, cfg, reporter).Run(context.Background(), conf, formats)
	require.NoError(t, err)
	return result, reporter
}

func byKind(checks []Check, kind CheckKind) []Check {
	var out []Check
	for _, check := range checks {
		if check.Kind == kind {
			out = append(out, check)
		}
	}
	return out
}

func TestRunner_AllChecksPass(t *testing.T) {
	cfg := newIntakes(t)
	m := &mockManager{}
	m.On("GetParsedMessage", mock.Anything, "acme/fw/tests/login.json").Return(parsedLogin(), nil).Once()
	m.On("GetCoverage", mock.Anything, "acme", "fw").Return(coverage.Report{Percent: 100}, nil)
	m.On("GetCoverage", mock.Anything, "acme", "proxy").Return(coverage.Report{Percent: 75}, nil)
	m.On("GetTaxonomy", mock.Anything, "acme", mock.Anything).Return(taxonomy.Report{}, nil)

	conf := DefaultConfiguration()
	conf.Formats = []string{"acme"}
	result, reporter := runOne(t, engine.NewCached(m, time.Minute), cfg, conf)

	assert.True(t, result.Succeeded())
	// 3 fixture checks + 3 format checks for fw, 3 format checks for proxy
	assert.Equal(t, 9, result.Total)
	assert.Equal(t, 9, result.Passed)
	assert.Len(t, reporter.checks, 9)
	assert.Equal(t, "acme/fw/tests/login.json", byKind(reporter.checks, KindExpectedMessage)[0].Fixture)
	m.AssertExpectations(t)
}

func TestRunner_FixtureFailures(t *testing.T) {
	cfg := newIntakes(t)
	parsed := parsedLogin()
	parsed["user"] = map[string]interface{}{"name": "bob"}
	tree.Set(parsed, "sekoiaio.intake.parsing_warnings", []interface{}{"unknown field"})

	m := &mockManager{}
	m.On("GetParsedMessage", mock.Anything, mock.Anything).Return(parsed, nil)

	conf := DefaultConfiguration()
	conf.Kinds = FixtureKinds
	result, reporter := runOne(t, m, cfg, conf)

	assert.False(t, result.Succeeded())
	assert.Equal(t, ResultFailed, byKind(reporter.checks, KindParsingWarnings)[0].Result)
	assert.Equal(t, ResultPassed, byKind(reporter.checks, KindParsingErrors)[0].Result)

	expected := byKind(reporter.checks, KindExpectedMessage)[0]
	assert.Equal(t, ResultFailed, expected.Result)
	assert.Contains(t, expected.Diff, "bob")

	data, err := os.ReadFile(filepath.Join(cfg.IntakesRoot, "acme", "fw", "tests", "login.json"))
	require.NoError(t, err)
	assert.Equal(t, loginFixture, string(data), "verify mode never writes")
}

func TestRunner_FixExpectations(t *testing.T) {
	cfg := newIntakes(t)
	parsed := parsedLogin()
	parsed["user"] = map[string]interface{}{"name": "bob"}

	m := &mockManager{}
	m.On("GetParsedMessage", mock.Anything, mock.Anything).Return(parsed, nil)

	conf := DefaultConfiguration()
	conf.Kinds = []CheckKind{KindExpectedMessage}
	conf.FixExpectations = true
	result, reporter := runOne(t, m, cfg, conf)

	assert.True(t, result.Succeeded(), "fixed fixtures do not fail the run")
	assert.Equal(t, 1, result.Fixed)
	assert.Equal(t, ResultFixed, reporter.checks[0].Result)
	assert.Equal(t, ResultFixed, reporter.formats[0].Result)

	data, err := os.ReadFile(filepath.Join(cfg.IntakesRoot, "acme", "fw", "tests", "login.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"bob"`)
}

func TestRunner_FormatChecks(t *testing.T) {
	cfg := newIntakes(t)
	m := &mockManager{}
	m.On("GetCoverage", mock.Anything, "acme", "fw").Return(coverage.Report{Percent: 50, Missing: []string{"fw:main:0"}}, nil)
	m.On("GetTaxonomy", mock.Anything, "acme", "fw").Return(taxonomy.Report{Missing: []string{"x.y"}, Unused: []string{"old"}}, nil)

	conf := DefaultConfiguration()
	conf.Formats = []string{"acme/fw"}
	conf.Kinds = FormatKinds
	conf.AnalyzeCoverage = true
	conf.FixMissingFields = true
	result, reporter := runOne(t, m, cfg, conf)

	assert.Equal(t, 3, result.Failed)

	cov := byKind(reporter.checks, KindCoverage)[0]
	assert.Equal(t, ResultFailed, cov.Result)
	assert.Contains(t, cov.Output, "Action #0 (NOT COVERED)")
	assert.Contains(t, cov.Error, "below 75%")

	missing := byKind(reporter.checks, KindMissingFields)[0]
	assert.Equal(t, ResultFailed, missing.Result)
	assert.Contains(t, missing.Output, "1 updated in")

	unused := byKind(reporter.checks, KindUnusedFields)[0]
	assert.Contains(t, unused.Output, "use --prune-taxonomy")

	assert.Contains(t, taxonomy.Load(cfg.FieldsPath("acme", "fw")), "x.y")
}

func TestRunner_EngineErrors(t *testing.T) {
	cfg := newIntakes(t)
	m := &mockManager{}
	m.On("GetParsedMessage", mock.Anything, mock.Anything).Return(nil, engine.ErrEngineFailed)
	m.On("GetCoverage", mock.Anything, mock.Anything, mock.Anything).Return(coverage.Report{}, engine.ErrEngineFailed)
	m.On("GetTaxonomy", mock.Anything, mock.Anything, mock.Anything).Return(taxonomy.Report{}, engine.ErrEngineFailed)

	conf := DefaultConfiguration()
	conf.Formats = []string{"acme/fw"}
	result, _ := runOne(t, m, cfg, conf)

	assert.Equal(t, 6, result.Errors)
	assert.Equal(t, ResultError, result.Formats[0].Result)
}

func TestRunner_FailFast(t *testing.T) {
	cfg := newIntakes(t)
	m := &mockManager{}
	m.On("GetCoverage", mock.Anything, "acme", "fw").Return(coverage.Report{Percent: 10}, nil).Once()

	conf := DefaultConfiguration()
	conf.Kinds = []CheckKind{KindCoverage, KindMissingFields}
	conf.FailFast = true
	result, _ := runOne(t, m, cfg, conf)

	assert.Equal(t, 1, result.Total, "nothing runs after the first failure")
	assert.Len(t, result.Formats, 1)
	m.AssertExpectations(t)
}

func TestRunner_FixtureFilter(t *testing.T) {
	cfg := newIntakes(t)
	m := &mockManager{}

	conf := DefaultConfiguration()
	conf.Kinds = []CheckKind{KindParsingErrors}
	conf.Fixture = "does-not-match"
	result, _ := runOne(t, m, cfg, conf)

	assert.Zero(t, result.Total)
	m.AssertNotCalled(t, "GetParsedMessage", mock.Anything, mock.Anything)
}

func TestRunner_Parallel(t *testing.T) {
	cfg := newIntakes(t)
	m := &mockManager{}
	m.On("GetParsedMessage", mock.Anything, "acme/fw/tests/login.json").Return(parsedLogin(), nil)
	m.On("GetCoverage", mock.Anything, "acme", mock.Anything).Return(coverage.Report{Percent: 90}, nil)

	conf := DefaultConfiguration()
	conf.Kinds = []CheckKind{KindParsingErrors, KindCoverage}
	conf.Parallel = 4
	result, reporter := runOne(t, m, cfg, conf)

	require.Len(t, result.Formats, 2)
	assert.Equal(t, "acme/fw", result.Formats[0].Format.ID(), "results keep discovery order")
	assert.Equal(t, "acme/proxy", result.Formats[1].Format.ID())
	assert.Equal(t, 3, result.Passed)

	// checks are reported under their own format, one format at a time
	assert.Equal(t, []string{
		"start acme/fw",
		"check acme/fw parsing_errors",
		"check acme/fw coverage",
		"result acme/fw",
		"start acme/proxy",
		"check acme/proxy coverage",
		"result acme/proxy",
	}, reporter.events)
}

func TestRunner_UnknownKind(t *testing.T) {
	conf := DefaultConfiguration()
	conf.Kinds = []CheckKind{"bogus"}
	_, err := NewRunner(&mockManager{}, normalizer.New(normalizer.DefaultConfig("test")), config.GetDefaultConfig(), &recordingReporter{}).
		Run(context.Background(), conf, nil)
	assert.Error(t, err)
}

func TestValidateConfiguration(t *testing.T) {
	assert.NoError(t, ValidateConfiguration(DefaultConfiguration()))
	assert.Error(t, ValidateConfiguration(Configuration{Parallel: 0}))
	assert.Error(t, ValidateConfiguration(Configuration{Parallel: 1, Kinds: []CheckKind{"bogus"}}))
}

func TestNewReporter(t *testing.T) {
	for _, output := range []string{"", OutputConsole, OutputQuiet, OutputJSON} {
		r, err := NewReporter(output, &bytes.Buffer{}, false, "")
		assert.NoError(t, err, output)
		assert.NotNil(t, r)
	}
	_, err := NewReporter("xml", &bytes.Buffer{}, false, "")
	assert.Error(t, err)
}

func sampleResult() SuiteResult {
	failed := Check{Kind: KindCoverage, Format: "acme/fw", Result: ResultFailed, Error: "coverage 50.00% is below 75%"}
	passed := Check{Kind: KindParsingErrors, Format: "acme/fw", Fixture: "acme/fw/tests/login.json", Result: ResultPassed}
	return SuiteResult{
		Total:  2,
		Passed: 1,
		Failed: 1,
		Formats: []FormatResult{{
			Format: Format{Module: "acme", Name: "fw"},
			Result: ResultFailed,
			Checks: []Check{passed, failed},
		}},
	}
}

func TestConsoleReporter(t *testing.T) {
	var out bytes.Buffer
	r := NewConsoleReporter(&out, false, "")
	result := sampleResult()

	r.ReportStart(DefaultConfiguration(), []Format{result.Formats[0].Format})
	r.ReportFormatStart(result.Formats[0].Format)
	for _, check := range result.Formats[0].Checks {
		r.ReportCheck(check)
	}
	r.ReportSuiteResult(result)

	s := out.String()
	assert.Contains(t, s, "Checking 1 formats")
	assert.Contains(t, s, "📦 acme/fw")
	assert.Contains(t, s, "❌ coverage: coverage 50.00% is below 75%")
	assert.NotContains(t, s, "parsing_errors[", "passed checks are not listed in compact mode")
	assert.Contains(t, s, "FORMAT")
	assert.Contains(t, s, "❌ Failed: 1")
	assert.Contains(t, s, "💔 Some checks failed")
}

func TestConsoleReporter_Verbose(t *testing.T) {
	var out bytes.Buffer
	r := NewConsoleReporter(&out, true, "")
	r.ReportCheck(Check{Kind: KindExpectedMessage, Fixture: "acme/fw/tests/login.json", Result: ResultFailed, Error: "differs", Diff: "-a\n+b"})

	s := out.String()
	assert.Contains(t, s, "expected_message[login.json]")
	assert.Contains(t, s, "Diff (-expected +actual)")
	assert.Contains(t, s, "       -a\n       +b")
}

func TestConsoleReporter_SavesReport(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	NewConsoleReporter(&out, false, dir).ReportSuiteResult(sampleResult())

	assert.Contains(t, out.String(), "Detailed report saved to")
	matches, err := filepath.Glob(filepath.Join(dir, "intakectl-report-*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	var decoded SuiteResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded.Failed)
}

func TestQuietReporter(t *testing.T) {
	var out bytes.Buffer
	r := NewQuietReporter(&out)
	result := sampleResult()
	for _, check := range result.Formats[0].Checks {
		r.ReportCheck(check)
	}
	r.ReportSuiteResult(result)

	assert.Equal(t, "❌ acme/fw coverage: coverage 50.00% is below 75%\n❌ 1/2 checks failed\n", out.String())
}

func TestJSONReporter(t *testing.T) {
	var out bytes.Buffer
	NewJSONReporter(&out).ReportSuiteResult(sampleResult())

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, float64(2), decoded["total"])
	assert.Len(t, decoded["formats"], 1)
}
