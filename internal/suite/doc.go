// Package suite runs the intake checks over a tree of formats.
//
// For every fixture of a format it checks that the parsed event carries no
// parsing warnings or errors and that it matches the fixture's expectation.
// For every format it checks parser coverage and the taxonomy of declared
// fields. Results are streamed to a Reporter:
//
//	runner := suite.NewRunner(manager, norm, cfg, reporter)
//	result, err := runner.Run(ctx, suite.DefaultConfiguration(), formats)
//	if !result.Succeeded() {
//		os.Exit(1)
//	}
//
// Three reporters are provided: console (emoji progress and a summary
// table), quiet (failures only) and JSON.
package suite
