package config

import (
	"time"
)

// IntakectlConfig is the top-level configuration structure for intakectl.
type IntakectlConfig struct {
	// IntakesRoot is the directory holding the <module>/<format> trees.
	IntakesRoot string           `yaml:"intakesRoot,omitempty"`
	Engine      EngineConfig     `yaml:"engine"`
	Layout      LayoutConfig     `yaml:"layout"`
	Normalizer  NormalizerConfig `yaml:"normalizer"`
}

// EngineConfig describes how the external parser engine is invoked.
type EngineConfig struct {
	Command  []string      `yaml:"command,omitempty"`  // Command and its leading arguments, e.g. ["intake-parser", "--test-mode"]
	Timeout  time.Duration `yaml:"timeout,omitempty"`  // Per-invocation timeout
	CacheTTL time.Duration `yaml:"cacheTTL,omitempty"` // How long parsed messages are memoized
}

// LayoutConfig locates the files of a format relative to <root>/<module>/<format>.
type LayoutConfig struct {
	Parser string `yaml:"parser,omitempty"` // e.g. "ingest/parser.yml"
	Fields string `yaml:"fields,omitempty"` // e.g. "_meta/fields.yml"
	Tests  string `yaml:"tests,omitempty"`  // doublestar pattern, e.g. "tests/**/*.json"
}

// NormalizerConfig tunes the constant fields injected into expectations.
type NormalizerConfig struct {
	Dialect string `yaml:"dialect,omitempty"`
}
