package suite

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"intakectl/internal/config"
	"intakectl/internal/fixture"
)

// DiscoverFormats finds the formats below the intakes root. A format is a
// <module>/<format> directory holding a parser definition or fixtures.
// Directories starting with "." or "_" are ignored.
func DiscoverFormats(cfg config.IntakectlConfig) ([]Format, error) {
	return discoverFormats(os.DirFS(cfg.IntakesRoot), cfg.Layout)
}

func discoverFormats(fsys fs.FS, layout config.LayoutConfig) ([]Format, error) {
	ids := make(map[string]Format)
	for _, pattern := range []string{"*/*/" + layout.Parser, "*/*/" + layout.Tests} {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to discover formats with %q: %w", pattern, err)
		}
		for _, match := range matches {
			parts := strings.SplitN(match, "/", 3)
			if len(parts) < 3 || hidden(parts[0]) || hidden(parts[1]) {
				continue
			}
			format := Format{Module: parts[0], Name: parts[1]}
			ids[format.ID()] = format
		}
	}

	formats := make([]Format, 0, len(ids))
	for _, format := range ids {
		sub, err := fs.Sub(fsys, path.Join(format.Module, format.Name))
		if err != nil {
			return nil, err
		}
		fixtures, err := fixture.Discover(sub, layout.Tests)
		if err != nil {
			return nil, fmt.Errorf("failed to discover fixtures of %s: %w", format.ID(), err)
		}
		for _, f := range fixtures {
			format.Fixtures = append(format.Fixtures, path.Join(format.Module, format.Name, f))
		}
		formats = append(formats, format)
	}

	sort.Slice(formats, func(i, j int) bool {
		return formats[i].ID() < formats[j].ID()
	})
	return formats, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// FilterFormats keeps the formats matching one of the ids. An id is either a
// module name or "module/format". No ids keeps everything.
func FilterFormats(formats []Format, ids []string) []Format {
	if len(ids) == 0 {
		return formats
	}
	var filtered []Format
	for _, format := range formats {
		for _, id := range ids {
			id = strings.Trim(id, "/")
			if id == format.Module || id == format.ID() {
				filtered = append(filtered, format)
				break
			}
		}
	}
	return filtered
}

// FindFormat returns the format with the given module and name.
func FindFormat(formats []Format, module, name string) (Format, bool) {
	for _, format := range formats {
		if format.Module == module && format.Name == name {
			return format, true
		}
	}
	return Format{}, false
}
