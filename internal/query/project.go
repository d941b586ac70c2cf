package query

// applySelect implements spec.md §4.6 step 6: select is either an ordered
// list of field names, or a nested {field: true | nested} object. Only
// listed fields survive; nested objects recurse into sub-documents.
func applySelect(e map[string]any, sel any) map[string]any {
	switch s := sel.(type) {
	case nil:
		return e
	case []string:
		out := make(map[string]any, len(s))
		for _, f := range s {
			if v, ok := e[f]; ok {
				out[f] = v
			}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(s))
		for f, spec := range s {
			v, ok := e[f]
			if !ok {
				continue
			}
			switch inner := spec.(type) {
			case bool:
				if inner {
					out[f] = v
				}
			case map[string]any:
				if sub, ok := v.(map[string]any); ok {
					out[f] = applySelect(sub, inner)
				} else {
					out[f] = v
				}
			}
		}
		return out
	default:
		return e
	}
}
