// Package taxonomy maintains the catalog of fields a format declares
// (fields.yml) and reconciles it with the fields its parser emits.
package taxonomy

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"intakectl/pkg/logging"
)

// FieldType is the declared type of a field.
type FieldType string

const (
	TypeKeyword FieldType = "keyword"
	TypeText    FieldType = "text"
	TypeLong    FieldType = "long"
	TypeInteger FieldType = "integer"
	TypeFloat   FieldType = "float"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
	TypeIP      FieldType = "ip"
	TypeObject  FieldType = "object"
)

// DefaultType is assigned to fields added automatically.
const DefaultType = TypeKeyword

// Descriptor documents one field. Keys other than description, name and
// type are kept in Extra so that they survive a rewrite.
type Descriptor struct {
	Description string                 `yaml:"description"`
	Name        string                 `yaml:"name"`
	Type        FieldType              `yaml:"type"`
	Extra       map[string]interface{} `yaml:",inline"`

	// raw holds an entry that does not fit the descriptor schema. It is
	// written back unchanged.
	raw *yaml.Node
}

type plainDescriptor Descriptor

// MarshalYAML implements yaml.Marshaler.
func (d Descriptor) MarshalYAML() (interface{}, error) {
	if d.raw != nil {
		return d.raw, nil
	}
	return plainDescriptor(d), nil
}

// Taxonomy maps dotted field names to their descriptors.
type Taxonomy map[string]Descriptor

// Fields returns the field names in sorted order.
func (t Taxonomy) Fields() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Report is the difference between the fields a parser emits and the fields
// its taxonomy declares.
type Report struct {
	// Missing fields are emitted but not declared.
	Missing []string `json:"missing"`
	// Unused fields are declared but never emitted.
	Unused []string `json:"unused"`
}

// Load reads a taxonomy file. A missing or empty file, a YAML syntax error
// or a root that is not a mapping yields an empty taxonomy. Entries that do
// not fit the descriptor schema are kept as they are.
func Load(path string) Taxonomy {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Warn("Taxonomy", "Could not read %s, starting from an empty taxonomy: %v", path, err)
		}
		return Taxonomy{}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		logging.Warn("Taxonomy", "Malformed taxonomy %s, starting from an empty taxonomy: %v", path, err)
		return Taxonomy{}
	}
	if len(doc.Content) == 0 {
		return Taxonomy{}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		logging.Warn("Taxonomy", "Taxonomy %s is not a mapping, starting from an empty taxonomy", path)
		return Taxonomy{}
	}

	t := make(Taxonomy, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		var d Descriptor
		if err := value.Decode(&d); err != nil {
			logging.Warn("Taxonomy", "Field %s of %s does not fit the schema, keeping it as is: %v", key.Value, path, err)
			d = Descriptor{raw: value}
		}
		t[key.Value] = d
	}
	return t
}

// Encode renders a taxonomy as YAML with sorted keys and two-space indent.
func Encode(t Taxonomy) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(map[string]Descriptor(t)); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save overwrites a taxonomy file. The write is not atomic.
func Save(path string, t Taxonomy) error {
	data, err := Encode(t)
	if err != nil {
		return fmt.Errorf("failed to encode taxonomy %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write taxonomy %s: %w", path, err)
	}
	return nil
}

// NewDescriptor returns the placeholder descriptor of an added field.
func NewDescriptor(field string) Descriptor {
	return Descriptor{
		Description: "",
		Name:        field,
		Type:        DefaultType,
	}
}

// AddMissing declares every missing field of the report in the taxonomy file
// and returns how many fields were added. Fields already declared are left
// as they are.
func AddMissing(path string, report Report) (int, error) {
	t := Load(path)
	added := 0
	for _, field := range report.Missing {
		if _, exists := t[field]; exists {
			continue
		}
		t[field] = NewDescriptor(field)
		added++
	}
	if err := Save(path, t); err != nil {
		return 0, err
	}
	return added, nil
}

// RemoveUnused deletes every unused field of the report from the taxonomy
// file and returns how many fields were removed.
func RemoveUnused(path string, report Report) (int, error) {
	t := Load(path)
	removed := 0
	for _, field := range report.Unused {
		if _, exists := t[field]; exists {
			delete(t, field)
			removed++
		}
	}
	if err := Save(path, t); err != nil {
		return 0, err
	}
	return removed, nil
}
