package suite

import (
	"fmt"
	"io"
)

// Output formats accepted by NewReporter.
const (
	OutputConsole = "console"
	OutputQuiet   = "quiet"
	OutputJSON    = "json"
)

// DefaultConfiguration returns a configuration running every check
// sequentially without modifying any file.
func DefaultConfiguration() Configuration {
	return Configuration{
		Parallel: 1,
	}
}

// ValidateConfiguration validates a configuration
func ValidateConfiguration(config Configuration) error {
	if config.Parallel < 1 {
		return fmt.Errorf("parallel workers must be at least 1")
	}
	for _, kind := range config.Kinds {
		if !kind.IsValid() {
			return fmt.Errorf("unknown check kind %q (valid: %s)", kind, joinKinds(AllKinds()))
		}
	}
	return nil
}

// NewReporter creates the reporter for an output format
func NewReporter(output string, out io.Writer, verbose bool, reportPath string) (Reporter, error) {
	switch output {
	case OutputConsole, "":
		return NewConsoleReporter(out, verbose, reportPath), nil
	case OutputQuiet:
		return NewQuietReporter(out), nil
	case OutputJSON:
		return NewJSONReporter(out), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (valid: %s, %s, %s)", output, OutputConsole, OutputQuiet, OutputJSON)
	}
}
