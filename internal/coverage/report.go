package coverage

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// MinimumPercent is the lowest coverage a format may have.
const MinimumPercent = 75.0

const (
	singleLineConditionLimit = 120
	multiLineConditionLimit  = 100
	multiLineConditionLines  = 3
	ruleWidth                = 80
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	stageStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Report is the coverage of a format's parser by its fixture corpus.
type Report struct {
	Percent float64  `json:"percent"`
	Missing []string `json:"missing"`
}

// Summary is the pass/fail view of a Report.
type Summary struct {
	Percent float64
	Missing []string
	Passed  bool
}

// Summarize applies the coverage threshold to a report.
func Summarize(report Report) Summary {
	return Summary{
		Percent: report.Percent,
		Missing: report.Missing,
		Passed:  report.Percent >= MinimumPercent,
	}
}

// WriteMissing prints the plain list of uncovered action identifiers.
func WriteMissing(w io.Writer, report Report) {
	fmt.Fprintf(w, "Steps missing coverage:\n\n")
	for _, missing := range report.Missing {
		fmt.Fprintln(w, missing)
	}
}

// Explain renders a stage-by-stage breakdown of the uncovered actions of a
// parser. Identifiers that do not decode, or whose index is past the end of
// their stage, are skipped.
func Explain(w io.Writer, format string, report Report, graph *ParserGraph) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("📊 DETAILED COVERAGE ANALYSIS - %s", strings.ToUpper(format))))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "\n✓ Overall coverage: %s%%\n", formatPercent(report.Percent))
	fmt.Fprintf(w, "  (Target: >= %g%%)\n\n", MinimumPercent)

	if len(report.Missing) == 0 {
		fmt.Fprintf(w, "✅ 100%% coverage - All paths are tested!\n\n")
		fmt.Fprintln(w, rule)
		return
	}

	uncovered := groupByStage(report.Missing)

	fmt.Fprintf(w, "⚠️  Uncovered steps: %d\n\n", len(report.Missing))
	fmt.Fprintln(w, rule)

	stageNames := make([]string, 0, len(uncovered))
	for name := range uncovered {
		stageNames = append(stageNames, name)
	}
	sort.Strings(stageNames)

	for _, name := range stageNames {
		fmt.Fprintf(w, "\n%s\n", stageStyle.Render("📦 STAGE: "+name))
		fmt.Fprintln(w, strings.Repeat("-", ruleWidth))

		stage, ok := graph.Stage(name)
		if !ok {
			fmt.Fprintf(w, "  ⚠️  Stage not found in parser\n")
			continue
		}

		indexes := uncovered[name]
		total := len(stage.Actions)
		fmt.Fprintf(w, "  Coverage: %d/%d actions covered\n\n", total-len(indexes), total)

		sort.Ints(indexes)
		for _, index := range indexes {
			if index >= total {
				continue
			}
			writeAction(w, index, stage.Actions[index])
		}
	}
}

func writeAction(w io.Writer, index int, action Action) {
	fmt.Fprintf(w, "  %s\n", missingStyle.Render(fmt.Sprintf("❌ Action #%d (NOT COVERED):", index)))

	if len(action.Set) > 0 {
		fmt.Fprintf(w, "     • Sets: %s\n", strings.Join(action.Set, ", "))
	}

	if !action.HasFilter {
		fmt.Fprintf(w, "     • Condition: None (always executed)\n")
	} else {
		lines, multiLine := ConditionPreview(action.Filter)
		if !multiLine {
			fmt.Fprintf(w, "     • Condition: %s\n", lines[0])
		} else {
			fmt.Fprintf(w, "     • Condition:\n")
			for _, line := range lines {
				fmt.Fprintf(w, "         %s\n", line)
			}
		}
	}
	fmt.Fprintln(w)
}

// ConditionPreview returns the lines shown for a filter expression. A
// single-line filter is truncated to 120 characters. A multi-line filter
// shows its first three lines, trimmed, skipping blank ones, each truncated
// to 100 characters.
func ConditionPreview(filter string) (preview []string, multiLine bool) {
	lines := strings.Split(strings.TrimSpace(filter), "\n")
	if len(lines) == 1 {
		return []string{truncate(lines[0], singleLineConditionLimit)}, false
	}

	if len(lines) > multiLineConditionLines {
		lines = lines[:multiLineConditionLines]
	}
	preview = make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned := strings.TrimSpace(line)
		if cleaned == "" {
			continue
		}
		preview = append(preview, truncate(cleaned, multiLineConditionLimit))
	}
	return preview, true
}

// truncate cuts s to at most limit characters.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func groupByStage(missing []string) map[string][]int {
	stages := make(map[string][]int)
	for _, id := range missing {
		ref, ok := ParseActionID(id)
		if !ok {
			continue
		}
		stages[ref.Stage] = append(stages[ref.Stage], ref.Index)
	}
	return stages
}

// formatPercent rounds to two decimals and drops trailing zeros.
func formatPercent(p float64) string {
	rounded := math.Round(p*100) / 100
	s := fmt.Sprintf("%.2f", rounded)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}
