package fixture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"intakectl/internal/normalizer"
	"intakectl/internal/tree"
	"intakectl/pkg/logging"
)

// Mode selects whether mismatching fixtures are rewritten.
type Mode int

const (
	// ModeVerify only compares; mismatches are failures.
	ModeVerify Mode = iota
	// ModeFix rewrites the expectation of mismatching fixtures.
	ModeFix
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeFix {
		return "fix"
	}
	return "verify"
}

// MessageParser obtains the parsed event of a fixture. Paths are relative
// to the verifier root.
type MessageParser interface {
	GetParsedMessage(ctx context.Context, fixturePath string) (map[string]interface{}, error)
}

// Outcome is the result of verifying one fixture.
type Outcome struct {
	Path     string
	Passed   bool
	Fixed    bool
	Expected map[string]interface{}
	Actual   map[string]interface{}
	Diff     string
}

// Verifier compares fixtures with the output of the parser engine.
type Verifier struct {
	root       string
	parser     MessageParser
	normalizer *normalizer.Normalizer
	mode       Mode
}

// NewVerifier creates a Verifier for fixtures stored below root.
func NewVerifier(root string, parser MessageParser, n *normalizer.Normalizer, mode Mode) *Verifier {
	return &Verifier{
		root:       root,
		parser:     parser,
		normalizer: n,
		mode:       mode,
	}
}

// Verify checks one fixture. In ModeFix a mismatching fixture is rewritten
// from the parsed event and the outcome is reported as Fixed, unless the
// rewritten expectation still does not match.
func (v *Verifier) Verify(ctx context.Context, fixturePath string) (*Outcome, error) {
	fullPath := filepath.Join(v.root, filepath.FromSlash(fixturePath))
	f, err := Load(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture: %w", err)
	}

	parsed, err := v.parser.GetParsedMessage(ctx, fixturePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", fixturePath, err)
	}

	actual, expected := v.normalizer.Normalize(parsed, f.Expected)
	unordered := v.normalizer.UnorderedPaths()

	outcome := &Outcome{
		Path:     fixturePath,
		Expected: expected,
		Actual:   actual,
		Passed:   tree.Equal(expected, actual, unordered...),
	}
	if outcome.Passed {
		return outcome, nil
	}
	outcome.Diff = tree.Diff(expected, actual, unordered...)

	if v.mode != ModeFix {
		return outcome, nil
	}

	changed, err := v.rewrite(fullPath, f, actual)
	if err != nil {
		return outcome, err
	}
	if changed {
		logging.Info("Verifier", "Rewrote expectation of %s", fixturePath)
	}

	// the rebuilt expectation must hold on the next run
	actual, expected = v.normalizer.Normalize(parsed, f.Expected)
	if !tree.Equal(expected, actual, unordered...) {
		outcome.Expected = expected
		outcome.Diff = tree.Diff(expected, actual, unordered...)
		logging.Warn("Verifier", "Rewritten expectation of %s still differs from the parsed event", fixturePath)
		return outcome, nil
	}
	outcome.Fixed = true
	outcome.Passed = true
	return outcome, nil
}

// rewrite replaces the expectation of f with one built from actual and
// writes the fixture if its encoding changed.
func (v *Verifier) rewrite(fullPath string, f *Fixture, actual map[string]interface{}) (bool, error) {
	f.Expected = v.normalizer.BuildExpectation(actual)
	data, err := Encode(f)
	if err != nil {
		return false, fmt.Errorf("failed to encode fixture %s: %w", fullPath, err)
	}

	current, err := os.ReadFile(fullPath)
	if err == nil && bytes.Equal(current, data) {
		return false, nil
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return false, fmt.Errorf("failed to write fixture %s: %w", fullPath, err)
	}
	return true, nil
}

// CheckWarnings fails when the parsed event carries parsing warnings.
func CheckWarnings(parsed map[string]interface{}) error {
	return checkEmpty(parsed, normalizer.FieldParsingWarnings, "parsing warnings")
}

// CheckErrors fails when the parsed event carries parsing errors.
func CheckErrors(parsed map[string]interface{}) error {
	return checkEmpty(parsed, normalizer.FieldParsingError, "parsing errors")
}

func checkEmpty(parsed map[string]interface{}, field, label string) error {
	value, ok := tree.Get(parsed, field)
	if !ok || value == nil {
		return nil
	}
	switch v := value.(type) {
	case []interface{}:
		if len(v) == 0 {
			return nil
		}
		return fmt.Errorf("%d %s: %s", len(v), label, tree.Pretty(v))
	case string:
		if v == "" {
			return nil
		}
		return fmt.Errorf("%s: %s", label, v)
	case map[string]interface{}:
		if len(v) == 0 {
			return nil
		}
		return fmt.Errorf("%s: %s", label, tree.Pretty(v))
	default:
		return fmt.Errorf("%s: %v", label, v)
	}
}
