// Package normalize converts raw registry study documents — opaque,
// inconsistently nested JSON trees — into canonical model.TrialRecord
// values. It is the single seam through which raw documents pass; no other
// package touches the raw tree.
package normalize

import "strings"

// Get resolves a dot-delimited path through a nested document. It returns
// (nil, false) when any intermediate step is missing or is not an object,
// never an error. Runs once per field per document, so it avoids
// allocating beyond the path split.
func Get(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// getString resolves a path to a string, defaulting to "".
func getString(doc map[string]any, path string) string {
	v, ok := Get(doc, path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// getBool resolves a path to a bool pointer, nil when absent or not a bool.
func getBool(doc map[string]any, path string) *bool {
	v, ok := Get(doc, path)
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

// getInt resolves a path to an int pointer. JSON numbers decode as
// float64; integral strings are not accepted.
func getInt(doc map[string]any, path string) *int {
	v, ok := Get(doc, path)
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case int:
		return &n
	}
	return nil
}

// getList resolves a path to a []any, defaulting to nil.
func getList(doc map[string]any, path string) []any {
	v, ok := Get(doc, path)
	if !ok {
		return nil
	}
	l, _ := v.([]any)
	return l
}

// getStringList resolves a path to a list of strings, skipping non-string
// entries.
func getStringList(doc map[string]any, path string) []string {
	raw := getList(doc, path)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// dedup removes duplicates from a string slice preserving first-appearance
// order.
func dedup(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
