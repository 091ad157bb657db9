// Package engine provides access to the parser execution engine. The
// engine is external: it parses fixtures, measures coverage and computes
// taxonomy differences. This package only runs it and decodes its answers.
package engine

import (
	"context"

	"intakectl/internal/coverage"
	"intakectl/internal/taxonomy"
)

// Manager is the capability the checks need from the engine.
type Manager interface {
	// GetParsedMessage parses the input of a fixture and returns the
	// produced event.
	GetParsedMessage(ctx context.Context, fixturePath string) (map[string]interface{}, error)
	// GetCoverage measures which parser actions the format's fixtures
	// exercise.
	GetCoverage(ctx context.Context, module, format string) (coverage.Report, error)
	// GetTaxonomy compares the emitted fields with the declared ones.
	GetTaxonomy(ctx context.Context, module, format string) (taxonomy.Report, error)
}
