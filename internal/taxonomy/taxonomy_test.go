package taxonomy

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fieldsYAML = `a.field:
  description: First
  name: a.field
  type: keyword
b.field:
  description: Second
  name: b.field
  type: long
  normalizer: lowercase
`

func writeFields(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fields.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tax := Load(writeFields(t, fieldsYAML))

	require.Len(t, tax, 2)
	assert.Equal(t, Descriptor{Description: "First", Name: "a.field", Type: TypeKeyword}, tax["a.field"])
	assert.Equal(t, TypeLong, tax["b.field"].Type)
	assert.Equal(t, "lowercase", tax["b.field"].Extra["normalizer"])
	assert.Equal(t, []string{"a.field", "b.field"}, tax.Fields())
}

func TestLoad_TolerantOfBadFiles(t *testing.T) {
	assert.Empty(t, Load(filepath.Join(t.TempDir(), "missing.yml")))
	assert.Empty(t, Load(writeFields(t, "")))
	assert.Empty(t, Load(writeFields(t, "- not\n- a mapping\n")))
	assert.Empty(t, Load(writeFields(t, "a: [unterminated")))
	assert.NotNil(t, Load(writeFields(t, "")))
}

func TestEncode_SortedKeys(t *testing.T) {
	data, err := Encode(Taxonomy{
		"z.last":  NewDescriptor("z.last"),
		"a.first": {Description: "doc", Name: "a.first", Type: TypeIP},
	})
	require.NoError(t, err)
	assert.Equal(t, `a.first:
  description: doc
  name: a.first
  type: ip
z.last:
  description: ""
  name: z.last
  type: keyword
`, string(data))
}

func TestSaveLoadKeepsExtraKeys(t *testing.T) {
	path := writeFields(t, fieldsYAML)
	require.NoError(t, Save(path, Load(path)))
	assert.Equal(t, "lowercase", Load(path)["b.field"].Extra["normalizer"])
}

func TestAddMissing_EmptyTaxonomy(t *testing.T) {
	path := writeFields(t, "")

	added, err := AddMissing(path, Report{Missing: []string{"x.y"}})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, Taxonomy{"x.y": {Description: "", Name: "x.y", Type: "keyword"}}, Load(path))
}

func TestAddMissing_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yml")

	_, err := AddMissing(path, Report{Missing: []string{"x.y"}})
	require.NoError(t, err)
	assert.Contains(t, Load(path), "x.y")
}

func TestAddMissing_PreservesExistingEntries(t *testing.T) {
	path := writeFields(t, fieldsYAML)
	before := Load(path)

	added, err := AddMissing(path, Report{Missing: []string{"c.field", "a.field"}})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	after := Load(path)
	require.Len(t, after, 3)
	assert.Equal(t, before["a.field"], after["a.field"])
	assert.Equal(t, before["b.field"], after["b.field"])
	assert.Equal(t, NewDescriptor("c.field"), after["c.field"])
}

func TestAddMissing_KeepsEntriesOutsideTheSchema(t *testing.T) {
	path := writeFields(t, `a.b:
  description: Valid
  name: a.b
  type: keyword
c.d:
  description:
    en: nested
  name: c.d
  type: keyword
`)
	tax := Load(path)
	require.Len(t, tax, 2)
	assert.Equal(t, "Valid", tax["a.b"].Description)

	added, err := AddMissing(path, Report{Missing: []string{"x.y"}})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `a.b:
  description: Valid
  name: a.b
  type: keyword
c.d:
  description:
    en: nested
  name: c.d
  type: keyword
x.y:
  description: ""
  name: x.y
  type: keyword
`, string(data))

	removed, err := RemoveUnused(path, Report{Unused: []string{"c.d"}})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"a.b", "x.y"}, Load(path).Fields())
}

func TestRemoveUnused(t *testing.T) {
	path := writeFields(t, fieldsYAML)

	removed, err := RemoveUnused(path, Report{Unused: []string{"a.field", "not.declared"}})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	after := Load(path)
	assert.Equal(t, []string{"b.field"}, after.Fields())
}

func TestReconciler_ReportOnly(t *testing.T) {
	path := writeFields(t, fieldsYAML)
	var out bytes.Buffer
	r := NewReconciler(&out, false, false)

	err := r.CheckMissing(path, Report{Missing: []string{"c.field"}})
	assert.Error(t, err)
	assert.Contains(t, out.String(), "Missing fields (1):")
	assert.Contains(t, out.String(), "use --fix-missing-fields")

	err = r.CheckUnused(path, Report{Unused: []string{"a.field"}})
	assert.Error(t, err)
	assert.Contains(t, out.String(), "Unused fields (1) in "+path)
	assert.Contains(t, out.String(), "use --prune-taxonomy")

	// nothing was written
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, fieldsYAML, string(data))
}

func TestReconciler_Clean(t *testing.T) {
	path := writeFields(t, fieldsYAML)
	var out bytes.Buffer
	r := NewReconciler(&out, true, false)

	assert.NoError(t, r.CheckMissing(path, Report{}))
	assert.NoError(t, r.CheckUnused(path, Report{}))
	assert.NotContains(t, out.String(), "use --")
}

func TestReconciler_Fix(t *testing.T) {
	path := writeFields(t, fieldsYAML)
	var out bytes.Buffer
	r := NewReconciler(&out, true, true)

	err := r.CheckMissing(path, Report{Missing: []string{"c.field"}})
	assert.Error(t, err, "the run that fixes still reports the failure")
	assert.Contains(t, out.String(), "1 updated in "+path)
	assert.Contains(t, out.String(), "Please complete the description")
	assert.Contains(t, out.String(), "npx prettier --write "+path)

	err = r.CheckUnused(path, Report{Unused: []string{"a.field"}})
	assert.Error(t, err)
	assert.Contains(t, out.String(), "1 removed from "+path)

	assert.Equal(t, []string{"b.field", "c.field"}, Load(path).Fields())

	// once fixed, the next report is clean
	assert.NoError(t, r.CheckMissing(path, Report{}))
}
