package query

import "github.com/inkwell-db/inkwell/internal/collection"

// exactBoost weights an exact token match over a prefix match in the
// relevance score (spec.md §4.6 step 3: "a single tunable boost for an
// exact token vs. a prefix token").
const exactBoost = 2.0

// findSearchQuery looks for a $search clause anywhere in where (top-level or
// nested under a field), returning the first one found. Multiple independent
// $search clauses are unusual; the first one found drives scoring.
func findSearchQuery(where map[string]any) (string, bool) {
	for key, clause := range where {
		if key == "$search" {
			if m, ok := clause.(map[string]any); ok {
				if q, ok := m["query"].(string); ok && q != "" {
					return q, true
				}
			}
			continue
		}
		if m, ok := clause.(map[string]any); ok {
			if sq, ok := m["$search"]; ok {
				if sm, ok := sq.(map[string]any); ok {
					if q, ok := sm["query"].(string); ok && q != "" {
						return q, true
					}
				}
			}
		}
		if key == "$and" || key == "$or" {
			if subs, ok := clause.([]map[string]any); ok {
				for _, sub := range subs {
					if q, found := findSearchQuery(sub); found {
						return q, found
					}
				}
			}
		}
	}
	return "", false
}

// scoreByID computes relevance scores for every candidate per spec.md §4.6
// step 3: sum over matching tokens per field, weighting exact over prefix.
func scoreByID(coll *collection.Collection, query string) map[string]float64 {
	search := coll.Store.Search()
	if search == nil {
		return nil
	}
	matches := search.QueryTokens(query)
	scores := make(map[string]float64, len(matches))
	for id, m := range matches {
		scores[id] = float64(m.ExactTokens)*exactBoost + float64(m.PrefixTokens)
	}
	return scores
}
