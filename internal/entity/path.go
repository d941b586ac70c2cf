package entity

import "strings"

// FieldValue resolves a dot-notation field path against an entity,
// recursing into nested objects and skipping undefined parents without
// error (spec.md §4.6 step 2). present is false if any segment along the
// path was missing.
func FieldValue(e map[string]any, path string) (value any, present bool) {
	segments := strings.Split(path, ".")
	var cur any = e
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
