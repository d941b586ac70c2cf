package query

import (
	"github.com/inkwell-db/inkwell/internal/collate"
	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/entity"
)

// resolveCandidates implements spec.md §4.6 step 1. It's a pure performance
// optimization: every clause it narrows on is re-checked exactly by
// evaluateWhere in the residual filter, so an overly-conservative (wider)
// candidate set is always safe. ok=false means "no indexable clause found,
// start from the full primary map".
func resolveCandidates(coll *collection.Collection, where map[string]any, c *collate.Collator) (ids map[string]bool, ok bool) {
	if len(where) == 0 {
		return nil, false
	}

	var sets []map[string]bool
	for key, clause := range where {
		switch key {
		case "$and":
			subs, isList := clause.([]map[string]any)
			if !isList {
				continue
			}
			for _, sub := range subs {
				if set, subOK := resolveCandidates(coll, sub, c); subOK {
					sets = append(sets, set)
				}
			}
		case "$or":
			subs, isList := clause.([]map[string]any)
			if !isList {
				continue
			}
			union := make(map[string]bool)
			allResolved := true
			for _, sub := range subs {
				set, subOK := resolveCandidates(coll, sub, c)
				if !subOK {
					allResolved = false
					break
				}
				for id := range set {
					union[id] = true
				}
			}
			if allResolved {
				sets = append(sets, union)
			}
		case "$not":
			// Not safely narrowable without a full id universe; leave to residual.
			continue
		case "$search":
			if set, found := searchCandidate(coll, clause); found {
				sets = append(sets, set)
			}
		default:
			if set, found := fieldCandidate(coll, key, clause, c); found {
				sets = append(sets, set)
			}
		}
	}

	if len(sets) == 0 {
		return nil, false
	}
	result := sets[0]
	for _, s := range sets[1:] {
		result = intersect(result, s)
	}
	return result, true
}

func fieldCandidate(coll *collection.Collection, field string, clause any, c *collate.Collator) (map[string]bool, bool) {
	ixs := coll.Store.IndexesForField(field)
	if len(ixs) == 0 {
		if m, ok := clause.(map[string]any); ok {
			if sq, ok := m["$search"]; ok {
				if set, found := searchCandidate(coll, sq); found {
					return set, true
				}
			}
		}
		return nil, false
	}
	ix := ixs[0]
	if len(ix.Spec().Fields) != 1 {
		return nil, false // compound indexes only routed via full-tuple $eq, not handled here
	}

	if m, ok := clause.(map[string]any); ok {
		if v, ok := m["$eq"]; ok {
			return ix.LookupValue(v, true), true
		}
		if v, ok := m["$in"]; ok {
			if arr, ok := v.([]any); ok {
				return ix.LookupIn(arr), true
			}
		}
		less := func(a, b any) bool { return c.Compare(a, b) < 0 }
		if v, ok := m["$gt"]; ok {
			return ix.LookupRange(entity.RangeGT, v, less), true
		}
		if v, ok := m["$gte"]; ok {
			return ix.LookupRange(entity.RangeGTE, v, less), true
		}
		if v, ok := m["$lt"]; ok {
			return ix.LookupRange(entity.RangeLT, v, less), true
		}
		if v, ok := m["$lte"]; ok {
			return ix.LookupRange(entity.RangeLTE, v, less), true
		}
		return nil, false
	}

	// Direct value means equality.
	return ix.LookupValue(clause, true), true
}

func searchCandidate(coll *collection.Collection, clause any) (map[string]bool, bool) {
	m, ok := clause.(map[string]any)
	if !ok {
		return nil, false
	}
	q, _ := m["query"].(string)
	if q == "" {
		return nil, false
	}
	search := coll.Store.Search()
	if search == nil {
		return nil, false
	}
	matches := search.QueryTokens(q)
	set := make(map[string]bool, len(matches))
	for id := range matches {
		set[id] = true
	}
	return set, true
}

func intersect(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for id := range small {
		if large[id] {
			out[id] = true
		}
	}
	return out
}
