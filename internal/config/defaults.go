package config

import (
	"time"
)

const (
	DefaultParserFile = "ingest/parser.yml"
	DefaultFieldsFile = "_meta/fields.yml"
	DefaultTestsGlob  = "tests/**/*.json"
	DefaultDialect    = "test"
)

// GetDefaultConfig returns the configuration used when no file overrides it.
func GetDefaultConfig() IntakectlConfig {
	return IntakectlConfig{
		IntakesRoot: ".",
		Engine: EngineConfig{
			Command:  []string{"intake-parser"},
			Timeout:  30 * time.Second,
			CacheTTL: 5 * time.Minute,
		},
		Layout: LayoutConfig{
			Parser: DefaultParserFile,
			Fields: DefaultFieldsFile,
			Tests:  DefaultTestsGlob,
		},
		Normalizer: NormalizerConfig{
			Dialect: DefaultDialect,
		},
	}
}
