package query

import (
	"fmt"

	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/entity"
)

// DanglingReferenceError is returned (wrapped into *inkwell.Error at the
// facade boundary) when populate resolves a ref field to an id that no
// longer exists in its target collection (spec.md §4.6 step 7).
type DanglingReferenceError struct {
	Collection string
	Field      string
	ID         string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("query: dangling reference: collection=%s field=%s id=%s", e.Collection, e.Field, e.ID)
}

// populateOne resolves the requested relationships on e, returning the
// possibly-enriched entity. A dangling ref reports its error rather than
// silently dropping the field; the caller (the stream's populate stage)
// decides whether to omit the element per spec.md §4.6 step 7.
func populateOne(coll *collection.Collection, registry *collection.Registry, e map[string]any, names []string) (map[string]any, error) {
	if len(names) == 0 {
		return e, nil
	}
	out := cloneShallow(e)
	for _, name := range names {
		rel, ok := coll.RelationshipByName(name)
		if !ok {
			continue
		}
		target, ok := registry.Get(rel.Target)
		if !ok {
			continue
		}
		if rel.Type == collection.Ref {
			refID, present := entity.FieldValue(e, rel.Field)
			if !present || refID == nil {
				continue
			}
			idStr, _ := refID.(string)
			targetEntity, ok := target.Store.Get(idStr)
			if !ok {
				return nil, &DanglingReferenceError{Collection: rel.Target, Field: rel.Field, ID: idStr}
			}
			out[name] = targetEntity
			continue
		}

		ownID, _ := entity.FieldValue(e, "id")
		idStr, _ := ownID.(string)
		var dependents []map[string]any
		if ixs := target.Store.IndexesForField(rel.Field); len(ixs) > 0 {
			for id := range ixs[0].LookupValue(idStr, true) {
				if te, ok := target.Store.Get(id); ok {
					dependents = append(dependents, te)
				}
			}
		} else {
			for _, te := range target.Store.All() {
				if v, present := entity.FieldValue(te, rel.Field); present && v == idStr {
					dependents = append(dependents, te)
				}
			}
		}
		out[name] = dependents
	}
	return out, nil
}

func cloneShallow(e map[string]any) map[string]any {
	out := make(map[string]any, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	return out
}
