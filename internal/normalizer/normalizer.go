// Package normalizer prepares parsed events and fixture expectations for
// comparison.
//
// Parsed events carry fields the fixture author is not expected to write
// (parsing status, dialect placeholders, correlation ids) and fields whose
// value changes between runs (parsing duration, coverage annotations). The
// Normalizer injects the former into expectations and strips the latter
// from parsed events, so that both sides can be compared directly.
package normalizer

import (
	"github.com/google/uuid"

	"intakectl/internal/tree"
)

const (
	FieldParsingStatus   = "sekoiaio.intake.parsing_status"
	FieldParsingDuration = "sekoiaio.intake.parsing_duration_ms"
	FieldParsingWarnings = "sekoiaio.intake.parsing_warnings"
	FieldParsingError    = "sekoiaio.intake.parsing_error"
	FieldCoverage        = "sekoiaio.intake.coverage"
	FieldDialect         = "sekoiaio.intake.dialect"
	FieldDialectUUID     = "sekoiaio.intake.dialect_uuid"
	FieldEventID         = "event.id"
	FieldMessage         = "message"
	FieldRelated         = "related"

	StatusSuccess = "success"
)

// Config holds the rules applied by a Normalizer.
type Config struct {
	// ConstantFields are merged under every expectation; values written by
	// the fixture author take precedence.
	ConstantFields map[string]interface{}
	// MessageField is copied verbatim from the parsed event to the expectation.
	MessageField string
	// VolatileFields are removed from parsed events before comparison.
	VolatileFields []string
	// RelatedField holds the lists of related entities.
	RelatedField string
	// RelatedCategories are the lists under RelatedField whose order is not
	// meaningful.
	RelatedCategories []string
	// ImplementationFields are stripped when an expectation is rebuilt from
	// a parsed event.
	ImplementationFields []string
}

// DefaultConfig returns the standard rules for the given test dialect.
func DefaultConfig(dialect string) Config {
	nilID := uuid.Nil.String()
	return Config{
		ConstantFields: map[string]interface{}{
			"sekoiaio": map[string]interface{}{
				"intake": map[string]interface{}{
					"parsing_status": StatusSuccess,
					"dialect":        dialect,
					"dialect_uuid":   nilID,
				},
			},
			"event": map[string]interface{}{
				"id": nilID,
			},
		},
		MessageField:      FieldMessage,
		VolatileFields:    []string{FieldParsingDuration, FieldCoverage},
		RelatedField:      FieldRelated,
		RelatedCategories: []string{"hosts", "ip", "user", "hash"},
		ImplementationFields: []string{
			FieldCoverage,
			FieldParsingStatus,
			FieldParsingDuration,
			FieldDialect,
			FieldDialectUUID,
			FieldEventID,
		},
	}
}

// Normalizer applies a Config to parsed events and expectations.
type Normalizer struct {
	config Config
}

// New creates a Normalizer.
func New(config Config) *Normalizer {
	return &Normalizer{config: config}
}

// Config returns the rules used by the normalizer.
func (n *Normalizer) Config() Config {
	return n.config
}

// Normalize returns copies of actual and expected ready to be compared.
// Neither argument is modified.
func (n *Normalizer) Normalize(actual, expected map[string]interface{}) (map[string]interface{}, map[string]interface{}) {
	normalizedActual := tree.CopyMap(actual)
	if normalizedActual == nil {
		normalizedActual = map[string]interface{}{}
	}

	normalizedExpected := tree.CopyMap(n.config.ConstantFields)
	if normalizedExpected == nil {
		normalizedExpected = map[string]interface{}{}
	}
	tree.Merge(normalizedExpected, expected)

	if n.config.MessageField != "" {
		if message, ok := normalizedActual[n.config.MessageField]; ok {
			normalizedExpected[n.config.MessageField] = tree.DeepCopy(message)
		} else {
			delete(normalizedExpected, n.config.MessageField)
		}
	}

	for _, field := range n.config.VolatileFields {
		tree.RemovePath(normalizedActual, field)
	}

	n.sortRelated(normalizedActual)

	return normalizedActual, normalizedExpected
}

func (n *Normalizer) sortRelated(event map[string]interface{}) {
	related, ok := event[n.config.RelatedField].(map[string]interface{})
	if !ok {
		return
	}
	for _, category := range n.config.RelatedCategories {
		if items, ok := related[category].([]interface{}); ok {
			related[category] = tree.SortScalars(items)
		}
	}
}

// UnorderedPaths returns the dotted paths of the related lists, for use with
// tree.Canonical.
func (n *Normalizer) UnorderedPaths() []string {
	paths := make([]string, 0, len(n.config.RelatedCategories))
	for _, category := range n.config.RelatedCategories {
		paths = append(paths, n.config.RelatedField+"."+category)
	}
	return paths
}

// BuildExpectation derives a new expectation from a parsed event by
// stripping the implementation-controlled fields. The result is in
// canonical form, with related lists sorted.
func (n *Normalizer) BuildExpectation(parsed map[string]interface{}) map[string]interface{} {
	expectation := tree.CopyMap(parsed)
	if expectation == nil {
		return map[string]interface{}{}
	}
	for _, field := range n.config.ImplementationFields {
		tree.RemovePath(expectation, field)
	}
	canonical, _ := tree.Canonical(expectation, n.UnorderedPaths()...).(map[string]interface{})
	return canonical
}
