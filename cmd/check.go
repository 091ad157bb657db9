package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"intakectl/internal/suite"
)

var (
	checkFixExpectations  bool
	checkAnalyzeCoverage  bool
	checkFixMissingFields bool
	checkPruneTaxonomy    bool
	checkKinds            []string
	checkFixture          string
	checkFailFast         bool
	checkVerbose          bool
	checkOutput           string
	checkReportPath       string
	checkParallel         int
)

// completeKindFlag provides shell completion for the kind flag
func completeKindFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	kinds := make([]string, 0, len(suite.AllKinds()))
	for _, kind := range suite.AllKinds() {
		kinds = append(kinds, string(kind))
	}
	return kinds, cobra.ShellCompDirectiveDefault
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [module[/format] ...]",
		Short: "Run every check over the intake formats",
		Long: `The check command runs the intake checks over every format found below
the intakes root, or over the given modules and formats.

For every fixture:
- parsing_warnings: the parsed event carries no parsing warnings
- parsing_errors: the parsed event carries no parsing error
- expected_message: the parsed event matches the fixture's expectation

For every format:
- coverage: the fixtures exercise at least 75% of the parser actions
- unused_fields: fields.yml declares no field the parser never emits
- missing_fields: every field the parser emits is declared in fields.yml

Example usage:
  intakectl check                              # Check everything
  intakectl check acme acme2/firewall          # Check a module and a format
  intakectl check --kind coverage --analyze-coverage
  intakectl check --fix-expectations           # Rewrite mismatching fixtures
  intakectl check --fix-missing-fields --prune-taxonomy
  intakectl check --output json --report ./reports

The command exits non-zero when a check fails. Rewritten fixtures are
reported as FIXED and do not fail the run; taxonomy checks still fail on the
run that edits fields.yml.`,
		RunE: runCheck,
	}

	cmd.Flags().BoolVar(&checkFixExpectations, "fix-expectations", false, "Rewrite fixture expectations that differ from the parsed event")
	cmd.Flags().BoolVar(&checkAnalyzeCoverage, "analyze-coverage", false, "Explain every uncovered parser action")
	cmd.Flags().BoolVar(&checkFixMissingFields, "fix-missing-fields", false, "Declare missing fields in fields.yml")
	cmd.Flags().BoolVar(&checkPruneTaxonomy, "prune-taxonomy", false, "Remove unused fields from fields.yml")
	cmd.Flags().StringSliceVar(&checkKinds, "kind", nil, "Only run these checks (repeatable)")
	cmd.Flags().StringVar(&checkFixture, "fixture", "", "Only check fixtures whose path contains this text")
	cmd.Flags().BoolVar(&checkFailFast, "fail-fast", false, "Stop at the first failure")
	cmd.Flags().BoolVar(&checkVerbose, "verbose", false, "Print every check with its details")
	cmd.Flags().StringVarP(&checkOutput, "output", "o", suite.OutputConsole, "Output format (console, quiet, json)")
	cmd.Flags().StringVar(&checkReportPath, "report", "", "Directory where a detailed JSON report is saved")
	cmd.Flags().IntVar(&checkParallel, "parallel", 1, "Number of formats checked concurrently (1-16)")

	_ = cmd.RegisterFlagCompletionFunc("kind", completeKindFlag)

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if checkParallel < 1 || checkParallel > 16 {
			return fmt.Errorf("parallel workers must be between 1 and 16, got %d", checkParallel)
		}
		return nil
	}
	return cmd
}

// signalContext cancels the command context on SIGINT and SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	conf := suite.DefaultConfiguration()
	conf.Formats = args
	conf.Fixture = checkFixture
	conf.FixExpectations = checkFixExpectations
	conf.AnalyzeCoverage = checkAnalyzeCoverage
	conf.FixMissingFields = checkFixMissingFields
	conf.PruneTaxonomy = checkPruneTaxonomy
	conf.FailFast = checkFailFast
	conf.Verbose = checkVerbose
	conf.ReportPath = checkReportPath
	conf.Parallel = checkParallel
	for _, kind := range checkKinds {
		conf.Kinds = append(conf.Kinds, suite.CheckKind(strings.TrimSpace(kind)))
	}
	if err := suite.ValidateConfiguration(conf); err != nil {
		return err
	}

	rt, err := loadRuntime()
	if err != nil {
		return err
	}

	formats, err := suite.DiscoverFormats(rt.cfg)
	if err != nil {
		return err
	}
	if len(suite.FilterFormats(formats, conf.Formats)) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠️  No formats found in %s\n", rt.cfg.IntakesRoot)
		return nil
	}

	consoleReport := ""
	if checkOutput == suite.OutputConsole || checkOutput == "" {
		consoleReport = checkReportPath
	}
	reporter, err := suite.NewReporter(checkOutput, cmd.OutOrStdout(), checkVerbose, consoleReport)
	if err != nil {
		return err
	}

	result, err := suite.NewRunner(rt.manager, rt.normalizer, rt.cfg, reporter).Run(ctx, conf, formats)
	if err != nil {
		return fmt.Errorf("check run interrupted: %w", err)
	}

	if checkReportPath != "" && consoleReport == "" {
		if _, err := suite.SaveReport(checkReportPath, *result); err != nil {
			return err
		}
	}

	if !result.Succeeded() {
		return fmt.Errorf("%d of %d checks failed", result.Failed+result.Errors, result.Total)
	}
	return nil
}
