package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"intakectl/internal/coverage"
)

var coverageAnalyze bool

func newCoverageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage <module> <format>",
		Short: "Check how much of a parser the fixtures exercise",
		Long: `Asks the engine which parser actions the fixtures of a format never
exercise. The check fails below 75% coverage.

With --analyze-coverage every uncovered action is shown with the fields it
sets and the condition guarding it.`,
		Args: cobra.ExactArgs(2),
		RunE: runCoverage,
	}
	cmd.Flags().BoolVar(&coverageAnalyze, "analyze-coverage", false, "Explain every uncovered parser action")
	return cmd
}

func runCoverage(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	module, format := args[0], args[1]

	report, err := rt.manager.GetCoverage(ctx, module, format)
	if err != nil {
		return err
	}

	summary := coverage.NewAnalyzer(cmd.OutOrStdout(), coverageAnalyze).
		Analyze(format, report, rt.cfg.ParserPath(module, format))
	if !summary.Passed {
		return fmt.Errorf("coverage of %s/%s is %.2f%%, below %g%%", module, format, summary.Percent, coverage.MinimumPercent)
	}
	return nil
}
