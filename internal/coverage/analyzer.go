package coverage

import (
	"errors"
	"fmt"
	"io"
	"os"

	"intakectl/pkg/logging"
)

// Analyzer prints coverage reports and applies the coverage threshold.
type Analyzer struct {
	out      io.Writer
	detailed bool
}

// NewAnalyzer creates an Analyzer writing to out. With detailed set, the
// per-stage breakdown replaces the plain list of missing steps.
func NewAnalyzer(out io.Writer, detailed bool) *Analyzer {
	return &Analyzer{out: out, detailed: detailed}
}

// Analyze prints the report of a format and returns its summary. The parser
// definition is only read in detailed mode; when it is missing the breakdown
// is skipped with a warning.
func (a *Analyzer) Analyze(format string, report Report, parserPath string) Summary {
	summary := Summarize(report)
	fmt.Fprintf(a.out, "Coverage: %v\n", report.Percent)

	if !a.detailed {
		WriteMissing(a.out, report)
		return summary
	}

	graph, err := LoadParserGraph(parserPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(a.out, "⚠️  Parser not found: %s\n", parserPath)
		return summary
	case err != nil:
		logging.Warn("Coverage", "Skipping detailed analysis of %s: %v", format, err)
		fmt.Fprintf(a.out, "⚠️  Parser could not be read: %s\n", parserPath)
		return summary
	}

	Explain(a.out, format, report, graph)
	return summary
}
