package suite

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
)

const compactErrorWidth = 100

// consoleReporter prints progress with emoji and a summary table
type consoleReporter struct {
	out        io.Writer
	verbose    bool
	reportPath string
}

// NewConsoleReporter creates the default human-readable reporter
func NewConsoleReporter(out io.Writer, verbose bool, reportPath string) Reporter {
	return &consoleReporter{
		out:        out,
		verbose:    verbose,
		reportPath: reportPath,
	}
}

func (r *consoleReporter) ReportStart(config Configuration, formats []Format) {
	fixtures := 0
	for _, format := range formats {
		fixtures += len(format.Fixtures)
	}
	fmt.Fprintf(r.out, "🧪 Checking %d formats (%d fixtures)\n", len(formats), fixtures)

	if r.verbose {
		fmt.Fprintf(r.out, "⚙️  Configuration:\n")
		fmt.Fprintf(r.out, "   • Formats: %s\n", stringOrDefault(strings.Join(config.Formats, ", "), "all"))
		fmt.Fprintf(r.out, "   • Checks: %s\n", stringOrDefault(joinKinds(config.Kinds), "all"))
		fmt.Fprintf(r.out, "   • Fixture: %s\n", stringOrDefault(config.Fixture, "all"))
		fmt.Fprintf(r.out, "   • Fix expectations: %t\n", config.FixExpectations)
		fmt.Fprintf(r.out, "   • Fix missing fields: %t\n", config.FixMissingFields)
		fmt.Fprintf(r.out, "   • Prune taxonomy: %t\n", config.PruneTaxonomy)
		fmt.Fprintf(r.out, "   • Fail fast: %t\n", config.FailFast)
		if config.ReportPath != "" {
			fmt.Fprintf(r.out, "   • Report path: %s\n", config.ReportPath)
		}
	}
	fmt.Fprintln(r.out)
}

func (r *consoleReporter) ReportFormatStart(format Format) {
	fmt.Fprintf(r.out, "📦 %s\n", format.ID())
}

func (r *consoleReporter) ReportCheck(check Check) {
	name := string(check.Kind)
	if check.Fixture != "" {
		name = fmt.Sprintf("%s[%s]", check.Kind, filepath.Base(check.Fixture))
	}

	if !r.verbose {
		if check.Result == ResultPassed {
			return
		}
		fmt.Fprintf(r.out, "   %s %s", resultSymbol(check.Result), name)
		if check.Error != "" {
			fmt.Fprintf(r.out, ": %s", runewidth.Truncate(firstLine(check.Error), compactErrorWidth, "..."))
		}
		fmt.Fprintln(r.out)
		return
	}

	fmt.Fprintf(r.out, "   %s %s (%v)\n", resultSymbol(check.Result), name, check.Duration.Round(time.Millisecond))
	if check.Error != "" {
		fmt.Fprintf(r.out, "     ❌ Error: %s\n", check.Error)
	}
	if check.Diff != "" {
		fmt.Fprintf(r.out, "     🔍 Diff (-expected +actual):\n%s\n", indent(check.Diff, "       "))
	}
	if check.Output != "" && check.Result != ResultPassed {
		fmt.Fprintf(r.out, "%s\n", indent(strings.TrimRight(check.Output, "\n"), "     "))
	}
}

func (r *consoleReporter) ReportFormatResult(result FormatResult) {
	if r.verbose {
		fmt.Fprintf(r.out, "%s %s completed (%v)\n\n", resultSymbol(result.Result), result.Format.ID(), result.Duration.Round(time.Millisecond))
	}
}

func (r *consoleReporter) ReportSuiteResult(result SuiteResult) {
	fmt.Fprintf(r.out, "\n🏁 Checks Complete\n")
	fmt.Fprintf(r.out, "⏱️  Duration: %v\n", result.Duration.Round(time.Millisecond))

	if len(result.Formats) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(r.out)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{
			text.FgHiCyan.Sprint("FORMAT"),
			text.FgHiCyan.Sprint("RESULT"),
			text.FgHiCyan.Sprint("CHECKS"),
			text.FgHiCyan.Sprint("FAILED"),
		})
		for _, formatResult := range result.Formats {
			failed := 0
			for _, check := range formatResult.Checks {
				if check.Failed() {
					failed++
				}
			}
			t.AppendRow(table.Row{
				formatResult.Format.ID(),
				resultSymbol(formatResult.Result) + " " + string(formatResult.Result),
				len(formatResult.Checks),
				failed,
			})
		}
		t.Render()
	}

	fmt.Fprintf(r.out, "📊 Results:\n")
	fmt.Fprintf(r.out, "   ✅ Passed: %d\n", result.Passed)
	if result.Fixed > 0 {
		fmt.Fprintf(r.out, "   🔧 Fixed: %d\n", result.Fixed)
	}
	if result.Failed > 0 {
		fmt.Fprintf(r.out, "   ❌ Failed: %d\n", result.Failed)
	}
	if result.Errors > 0 {
		fmt.Fprintf(r.out, "   💥 Errors: %d\n", result.Errors)
	}
	if result.Skipped > 0 {
		fmt.Fprintf(r.out, "   ⏭️  Skipped: %d\n", result.Skipped)
	}
	fmt.Fprintf(r.out, "   📈 Total: %d\n", result.Total)

	if result.Succeeded() {
		fmt.Fprintf(r.out, "\n🎉 All checks passed!\n")
	} else {
		fmt.Fprintf(r.out, "\n💔 Some checks failed\n")
	}

	if r.reportPath != "" {
		path, err := SaveReport(r.reportPath, result)
		if err != nil {
			fmt.Fprintf(r.out, "⚠️  Failed to save detailed report: %v\n", err)
		} else {
			fmt.Fprintf(r.out, "📄 Detailed report saved to: %s\n", path)
		}
	}
}

// SaveReport writes the result as JSON into dir and returns the file path.
func SaveReport(dir string, result SuiteResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	fullPath := filepath.Join(dir, fmt.Sprintf("intakectl-report-%s.json", timestamp))

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	if err := os.WriteFile(fullPath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return fullPath, nil
}

func resultSymbol(result CheckResult) string {
	switch result {
	case ResultPassed:
		return "✅"
	case ResultFailed:
		return "❌"
	case ResultFixed:
		return "🔧"
	case ResultSkipped:
		return "⏭️"
	case ResultError:
		return "💥"
	default:
		return "❓"
	}
}

func stringOrDefault(s, defaultValue string) string {
	if s == "" {
		return defaultValue
	}
	return s
}

func joinKinds(kinds []CheckKind) string {
	names := make([]string, len(kinds))
	for i, kind := range kinds {
		names[i] = string(kind)
	}
	return strings.Join(names, ", ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// NewQuietReporter creates a reporter that only prints failures and a final
// line
func NewQuietReporter(out io.Writer) Reporter {
	return &quietReporter{out: out}
}

// quietReporter implements minimal output for CI
type quietReporter struct {
	out io.Writer
}

func (r *quietReporter) ReportStart(config Configuration, formats []Format) {}

func (r *quietReporter) ReportFormatStart(format Format) {}

func (r *quietReporter) ReportCheck(check Check) {
	if check.Failed() {
		target := check.Format
		if check.Fixture != "" {
			target = check.Fixture
		}
		fmt.Fprintf(r.out, "%s %s %s: %s\n", resultSymbol(check.Result), target, check.Kind, firstLine(check.Error))
	}
}

func (r *quietReporter) ReportFormatResult(result FormatResult) {}

func (r *quietReporter) ReportSuiteResult(result SuiteResult) {
	if result.Succeeded() {
		fmt.Fprintf(r.out, "✅ All %d checks passed\n", result.Total)
	} else {
		fmt.Fprintf(r.out, "❌ %d/%d checks failed\n", result.Failed+result.Errors, result.Total)
	}
}

// NewJSONReporter creates a reporter that prints the whole result as JSON
func NewJSONReporter(out io.Writer) Reporter {
	return &jsonReporter{out: out}
}

// jsonReporter implements JSON output for machine consumption
type jsonReporter struct {
	out io.Writer
}

func (r *jsonReporter) ReportStart(config Configuration, formats []Format) {}

func (r *jsonReporter) ReportFormatStart(format Format) {}

func (r *jsonReporter) ReportCheck(check Check) {}

func (r *jsonReporter) ReportFormatResult(result FormatResult) {}

func (r *jsonReporter) ReportSuiteResult(result SuiteResult) {
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(r.out, `{"error": "Failed to marshal results: %v"}`+"\n", err)
		return
	}
	fmt.Fprintln(r.out, string(jsonData))
}
