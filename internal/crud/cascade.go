package crud

import (
	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/entity"
)

// dependentsOf returns every entity in target whose field fkField equals id,
// preferring an index on that field when one exists (same lookup populate()
// uses for an Inverse relationship's 0..N side).
func dependentsOf(target *collection.Collection, fkField, id string) []map[string]any {
	var out []map[string]any
	if ixs := target.Store.IndexesForField(fkField); len(ixs) > 0 {
		for depID := range ixs[0].LookupValue(id, true) {
			if e, ok := target.Store.Get(depID); ok {
				out = append(out, e)
			}
		}
		return out
	}
	for _, e := range target.Store.All() {
		if v, present := entity.FieldValue(e, fkField); present && v == id {
			out = append(out, e)
		}
	}
	return out
}

// applyCascades runs every Inverse relationship declared on c against the
// entity about to be deleted, per spec.md §3's cascade policy ("declared by
// an inverse side"): restrict fails the delete while dependents exist,
// cascade recursively deletes them, setNull clears their foreign key.
// Called before the primary delete so a restrict failure leaves everything
// untouched.
func (e *Engine) applyCascades(c *collection.Collection, id string) error {
	for _, rel := range c.Config.Relationships {
		if rel.Type != collection.Inverse {
			continue
		}
		target, ok := e.Collections.Get(rel.Target)
		if !ok {
			continue
		}
		dependents := dependentsOf(target, rel.Field, id)
		if len(dependents) == 0 {
			continue
		}
		switch rel.Cascade {
		case collection.Restrict:
			return &ForeignKeyError{
				Collection: c.Config.Name,
				Message:    "cascade=restrict: " + rel.Target + " still has dependents referencing " + id + " via " + rel.Field,
			}
		case collection.Cascade:
			for _, dep := range dependents {
				depID, _ := dep["id"].(string)
				if depID == "" {
					continue
				}
				if err := e.applyCascades(target, depID); err != nil {
					return err
				}
				if _, err := e.delete(target, depID); err != nil {
					return err
				}
			}
		case collection.SetNull:
			for _, dep := range dependents {
				depID, _ := dep["id"].(string)
				if depID == "" {
					continue
				}
				if _, err := e.update(target, depID, map[string]any{rel.Field: nil}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// DeleteWithRelationships implements spec.md §4.7's cascade variant of
// Delete: every Inverse relationship's declared cascade policy runs before
// the entity itself is removed.
func (e *Engine) DeleteWithRelationships(collName, id string) (map[string]any, error) {
	c, err := e.coll(collName)
	if err != nil {
		return nil, err
	}
	if err := e.applyCascades(c, id); err != nil {
		return nil, err
	}
	return e.delete(c, id)
}

// CreateWithRelationships implements the ref-side half of spec.md §4.7's
// cascade variants: "ref side create also inserts the target when
// embedded." A Ref field whose value is a full entity map (rather than a
// bare id string) is first created in its target collection, then replaced
// with the id the nested create assigned.
func (e *Engine) CreateWithRelationships(collName string, input map[string]any) (map[string]any, error) {
	c, err := e.coll(collName)
	if err != nil {
		return nil, err
	}
	resolved, err := e.embedRefs(c, input)
	if err != nil {
		return nil, err
	}
	return e.create(c, resolved)
}

// UpdateWithRelationships is CreateWithRelationships's update-side analog:
// a Ref field supplied as an embedded map upserts the target by id when
// present, or creates it when absent, before the patch is applied.
func (e *Engine) UpdateWithRelationships(collName, id string, patch map[string]any) (map[string]any, error) {
	c, err := e.coll(collName)
	if err != nil {
		return nil, err
	}
	resolved, err := e.embedRefs(c, patch)
	if err != nil {
		return nil, err
	}
	return e.update(c, id, resolved)
}

// embedRefs rewrites every Ref field in pending that was supplied as an
// embedded entity map into a plain id, inserting or updating the target
// collection as a side effect.
func (e *Engine) embedRefs(c *collection.Collection, pending map[string]any) (map[string]any, error) {
	var rewritten map[string]any
	for _, rel := range c.Config.Relationships {
		if rel.Type != collection.Ref {
			continue
		}
		raw, present := pending[rel.Field]
		if !present {
			continue
		}
		embedded, isMap := raw.(map[string]any)
		if !isMap {
			continue
		}
		target, ok := e.Collections.Get(rel.Target)
		if !ok {
			return nil, &ForeignKeyError{Collection: c.Config.Name, Message: "relationship " + rel.Name + " targets unknown collection " + rel.Target}
		}

		var targetID string
		if idVal, _ := embedded["id"].(string); idVal != "" {
			if _, exists := target.Store.Get(idVal); exists {
				updated, err := e.update(target, idVal, embedded)
				if err != nil {
					return nil, err
				}
				targetID = updated["id"].(string)
			} else {
				created, err := e.create(target, embedded)
				if err != nil {
					return nil, err
				}
				targetID = created["id"].(string)
			}
		} else {
			created, err := e.create(target, embedded)
			if err != nil {
				return nil, err
			}
			targetID = created["id"].(string)
		}

		if rewritten == nil {
			rewritten = cloneMap(pending)
		}
		rewritten[rel.Field] = targetID
	}
	if rewritten == nil {
		return pending, nil
	}
	return rewritten, nil
}
