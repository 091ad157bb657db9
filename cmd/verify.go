package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"intakectl/internal/fixture"
)

var verifyFixExpectations bool

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <fixture.json>...",
		Short: "Compare fixtures with their parsed events",
		Long: `Parses each fixture with the engine and compares the event with the
fixture's expectation. Paths may be given relative to the current directory
or to the intakes root.

With --fix-expectations a mismatching expectation is rebuilt from the parsed
event and the fixture is rewritten.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runVerify,
	}
	cmd.Flags().BoolVar(&verifyFixExpectations, "fix-expectations", false, "Rewrite expectations that differ from the parsed event")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}

	mode := fixture.ModeVerify
	if verifyFixExpectations {
		mode = fixture.ModeFix
	}
	verifier := fixture.NewVerifier(rt.cfg.IntakesRoot, rt.manager, rt.normalizer, mode)

	out := cmd.OutOrStdout()
	failed := 0
	for _, arg := range args {
		fixturePath, err := fixtureRelPath(rt.cfg.IntakesRoot, arg)
		if err != nil {
			return err
		}

		outcome, err := verifier.Verify(ctx, fixturePath)
		switch {
		case err != nil:
			failed++
			fmt.Fprintf(out, "💥 %s: %v\n", fixturePath, err)
		case outcome.Fixed:
			fmt.Fprintf(out, "🔧 %s: expectation rewritten\n", fixturePath)
		case outcome.Passed:
			fmt.Fprintf(out, "✅ %s\n", fixturePath)
		default:
			failed++
			fmt.Fprintf(out, "❌ %s differs from its expectation (-expected +actual):\n%s\n", fixturePath, outcome.Diff)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d fixtures failed", failed, len(args))
	}
	return nil
}

// fixtureRelPath turns a user-supplied fixture path into a slash-separated
// path relative to the intakes root.
func fixtureRelPath(root, arg string) (string, error) {
	if filepath.IsAbs(arg) {
		return fixture.RootRelative(root, arg)
	}
	if _, err := os.Stat(arg); err != nil {
		return fixture.RootRelative(root, arg)
	}
	absPath, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	return fixture.RootRelative(root, absPath)
}
