package fixture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	keyInput    = "input"
	keyExpected = "expected"
)

// Fixture is a persisted input/expected-output pair. Only Expected is ever
// rewritten: the input and any other top-level member are written back as
// they were read, in their original order.
type Fixture struct {
	Input    json.RawMessage
	Expected map[string]interface{}

	members []member
}

type member struct {
	key   string
	value json.RawMessage
}

// Load reads a fixture file. Numbers of the expectation are kept as
// json.Number.
func Load(filePath string) (*Fixture, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode fixture %s: %w", filePath, err)
	}
	return f, nil
}

// Decode parses the content of a fixture file.
func Decode(data []byte) (*Fixture, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("fixture is not a JSON object")
	}

	f := &Fixture{}
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, _ := token.(string)
		var value json.RawMessage
		if err := decoder.Decode(&value); err != nil {
			return nil, err
		}
		f.members = append(f.members, member{key: key, value: value})

		switch key {
		case keyInput:
			f.Input = value
		case keyExpected:
			expected, err := decodeExpected(value)
			if err != nil {
				return nil, fmt.Errorf("invalid expectation: %w", err)
			}
			f.Expected = expected
		}
	}
	if _, err := decoder.Token(); err != nil {
		return nil, err
	}

	if f.Expected == nil {
		f.Expected = map[string]interface{}{}
	}
	return f, nil
}

func decodeExpected(raw json.RawMessage) (map[string]interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var expected map[string]interface{}
	if err := decoder.Decode(&expected); err != nil {
		return nil, err
	}
	return expected, nil
}

// Encode renders a fixture the way it is stored on disk: two-space indented
// JSON with a trailing newline. The expectation has sorted keys; other
// members keep their original order and content. HTML characters are kept
// as-is so that log lines stay readable.
func Encode(f *Fixture) ([]byte, error) {
	expected, err := marshal(f.Expected)
	if err != nil {
		return nil, err
	}
	input := f.Input
	if input == nil {
		input = json.RawMessage("null")
	}

	members := f.members
	if len(members) == 0 {
		members = []member{{key: keyInput}, {key: keyExpected}}
	}
	seenExpected := false

	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			compact.WriteByte(',')
		}
		value := m.value
		switch m.key {
		case keyInput:
			value = input
		case keyExpected:
			value = expected
			seenExpected = true
		}
		if err := writeMember(&compact, m.key, value); err != nil {
			return nil, err
		}
	}
	if !seenExpected {
		compact.WriteByte(',')
		if err := writeMember(&compact, keyExpected, expected); err != nil {
			return nil, err
		}
	}
	compact.WriteByte('}')

	var buf bytes.Buffer
	if err := json.Indent(&buf, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value json.RawMessage) error {
	encodedKey, err := marshal(key)
	if err != nil {
		return err
	}
	buf.Write(encodedKey)
	buf.WriteByte(':')
	buf.Write(value)
	return nil
}

// marshal encodes value without HTML escaping and without the trailing
// newline of json.Encoder.
func marshal(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Discover returns the fixtures of fsys matching a doublestar pattern,
// sorted, as slash-separated paths relative to the root of fsys.
func Discover(fsys fs.FS, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid fixture pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// RootRelative returns fixturePath as a slash-separated path relative to
// root. Relative paths are taken as relative to root already. Paths that
// leave root are rejected.
func RootRelative(root, fixturePath string) (string, error) {
	rel := fixturePath
	if filepath.IsAbs(rel) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return "", err
		}
		rel, err = filepath.Rel(absRoot, rel)
		if err != nil {
			return "", fmt.Errorf("fixture %s is outside the intakes root %s", fixturePath, root)
		}
	}
	rel = filepath.Clean(rel)
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("fixture %s is outside the intakes root %s", fixturePath, root)
	}
	return filepath.ToSlash(rel), nil
}

// Name returns the fixture name shown in reports: its file name without
// extension.
func Name(fixturePath string) string {
	base := path.Base(fixturePath)
	return base[:len(base)-len(path.Ext(base))]
}
