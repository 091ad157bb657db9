package tree

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// RemovePath deletes the leaf at a dotted path. Intermediate maps left empty
// by the removal are removed too. Missing paths are ignored.
func RemovePath(t map[string]interface{}, dotted string) {
	if t == nil || dotted == "" {
		return
	}
	removeParts(t, strings.Split(dotted, "."))
}

func removeParts(t map[string]interface{}, parts []string) {
	value, ok := t[parts[0]]
	if !ok {
		return
	}
	if len(parts) == 1 {
		delete(t, parts[0])
		return
	}

	child, ok := value.(map[string]interface{})
	if !ok {
		return
	}
	removeParts(child, parts[1:])
	if len(child) == 0 {
		delete(t, parts[0])
	}
}

// Merge deep-merges src into dst. Keys only present in dst survive, scalar
// leaves of src override dst, and nested maps merge recursively.
func Merge(dst, src map[string]interface{}) {
	for key, value := range src {
		srcChild, isMap := value.(map[string]interface{})
		if !isMap {
			dst[key] = DeepCopy(value)
			continue
		}

		dstChild, ok := dst[key].(map[string]interface{})
		if !ok {
			dstChild = make(map[string]interface{})
			dst[key] = dstChild
		}
		Merge(dstChild, srcChild)
	}
}

// Get returns the value at a dotted path.
func Get(t map[string]interface{}, dotted string) (interface{}, bool) {
	var current interface{} = t
	for _, part := range strings.Split(dotted, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Set stores value at a dotted path, creating intermediate maps as needed.
func Set(t map[string]interface{}, dotted string, value interface{}) {
	parts := strings.Split(dotted, ".")
	current := t
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// DeepCopy returns a copy of a tree sharing no maps or slices with the original.
func DeepCopy(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return CopyMap(v)
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = DeepCopy(item)
		}
		return result
	default:
		return value
	}
}

// CopyMap is DeepCopy for the common map case.
func CopyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	result := make(map[string]interface{}, len(m))
	for key, value := range m {
		result[key] = DeepCopy(value)
	}
	return result
}

// Canonical returns a deep copy of value suitable for equality comparison:
// numbers become json.Number, keeping the literal of numbers that already
// were json.Number, YAML-style maps and typed slices become their
// generic forms, and the lists found at the given dotted paths are sorted.
// Key order is irrelevant for Go maps and JSON encoding sorts keys.
func Canonical(value interface{}, unordered ...string) interface{} {
	canonical := normalize(value)
	if m, ok := canonical.(map[string]interface{}); ok {
		for _, path := range unordered {
			if list, found := Get(m, path); found {
				if items, isList := list.([]interface{}); isList {
					Set(m, path, SortScalars(items))
				}
			}
		}
	}
	return canonical
}

func normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, item := range v {
			result[key] = normalize(item)
		}
		return result
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, item := range v {
			result[fmt.Sprint(key)] = normalize(item)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = normalize(item)
		}
		return result
	case []string:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = item
		}
		return result
	case []map[string]interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = normalize(item)
		}
		return result
	case json.Number:
		return v
	case int:
		return json.Number(strconv.FormatInt(int64(v), 10))
	case int32:
		return json.Number(strconv.FormatInt(int64(v), 10))
	case int64:
		return json.Number(strconv.FormatInt(v, 10))
	case uint:
		return json.Number(strconv.FormatUint(uint64(v), 10))
	case uint64:
		return json.Number(strconv.FormatUint(v, 10))
	case float32:
		return json.Number(strconv.FormatFloat(float64(v), 'g', -1, 32))
	case float64:
		return json.Number(strconv.FormatFloat(v, 'g', -1, 64))
	default:
		return value
	}
}

// SortScalars returns a sorted copy of items. Numbers sort numerically and
// before strings; other values sort by their printed form.
func SortScalars(items []interface{}) []interface{} {
	sorted := make([]interface{}, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessScalar(sorted[i], sorted[j])
	})
	return sorted
}

func lessScalar(a, b interface{}) bool {
	ar, aNum := toRat(a)
	br, bNum := toRat(b)
	switch {
	case aNum && bNum:
		return ar.Cmp(br) < 0
	case aNum != bNum:
		return aNum
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return as < bs
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

// toRat returns the exact value of a number.
func toRat(value interface{}) (*big.Rat, bool) {
	n, ok := normalize(value).(json.Number)
	if !ok {
		return nil, false
	}
	return new(big.Rat).SetString(string(n))
}

// equalNumbers compares numbers by value, so that 1, 1.0 and 1e0 are equal
// and large integers are never rounded.
var equalNumbers = cmp.Comparer(func(a, b json.Number) bool {
	ar, aOK := new(big.Rat).SetString(string(a))
	br, bOK := new(big.Rat).SetString(string(b))
	if aOK && bOK {
		return ar.Cmp(br) == 0
	}
	return a == b
})

// Equal reports whether two trees are equal once canonicalized.
func Equal(a, b interface{}, unordered ...string) bool {
	return cmp.Equal(Canonical(a, unordered...), Canonical(b, unordered...), equalNumbers)
}

// Diff returns a human-readable difference between expected and actual
// (lines prefixed with "-" are expected, "+" actual). Empty when equal.
func Diff(expected, actual interface{}, unordered ...string) string {
	return cmp.Diff(Canonical(expected, unordered...), Canonical(actual, unordered...), equalNumbers)
}

// Pretty renders a tree as indented JSON with sorted keys.
func Pretty(value interface{}) string {
	data, err := json.MarshalIndent(Canonical(value), "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}
