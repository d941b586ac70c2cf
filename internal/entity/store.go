// Package entity implements the per-collection entity store (spec.md §4.5):
// a primary id -> entity map in insertion order, plus secondary/unique/
// compound indexes and an inverted search index, all maintained
// transactionally with the primary map.
package entity

import "fmt"

// Store is one collection's in-memory state.
type Store struct {
	primary map[string]map[string]any
	order   []string // insertion order, for the full-scan candidate path

	indexes      map[string]*index // by IndexSpec.Name
	fieldIndexes map[string][]*index // field -> indexes covering it, for update diffing
	search       *searchIndex        // nil if the collection declares no search fields
}

// NewStore builds an empty store with the given index and search-field
// declarations.
func NewStore(indexSpecs []IndexSpec, searchFields []string) *Store {
	s := &Store{
		primary:      make(map[string]map[string]any),
		indexes:      make(map[string]*index, len(indexSpecs)),
		fieldIndexes: make(map[string][]*index),
	}
	for _, spec := range indexSpecs {
		ix := newIndex(spec)
		s.indexes[spec.Name] = ix
		for _, f := range spec.Fields {
			s.fieldIndexes[f] = append(s.fieldIndexes[f], ix)
		}
	}
	if len(searchFields) > 0 {
		s.search = newSearchIndex(searchFields)
	}
	return s
}

// Get returns the entity for id, or nil, false if absent.
func (s *Store) Get(id string) (map[string]any, bool) {
	e, ok := s.primary[id]
	return e, ok
}

// Len returns the number of entities currently stored.
func (s *Store) Len() int { return len(s.primary) }

// All returns every entity in insertion order. The returned slice shares no
// backing array with internal state; callers may mutate it freely, but
// entities themselves are the live maps — callers must clone before
// mutating a returned entity in place.
func (s *Store) All() []map[string]any {
	out := make([]map[string]any, 0, len(s.order))
	for _, id := range s.order {
		if e, ok := s.primary[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Insert adds a brand-new entity under id. The caller must have already
// checked uniqueness constraints; Insert unconditionally indexes the
// entity and will silently let a unique index collide if asked to.
func (s *Store) Insert(id string, e map[string]any) {
	if _, exists := s.primary[id]; !exists {
		s.order = append(s.order, id)
	}
	s.primary[id] = e
	for _, ix := range s.indexes {
		ix.insert(id, e)
	}
	if s.search != nil {
		s.search.addEntity(id, e)
	}
}

// Update replaces the entity at id, diffing old vs new per index's fields
// (spec.md §4.5: "conservative dataflow: diff old vs new entity field-by-
// field") so an index is only touched when a field it covers actually
// changed.
func (s *Store) Update(id string, oldEntity, newEntity map[string]any) {
	s.primary[id] = newEntity

	touched := make(map[*index]bool)
	for field, ixs := range s.fieldIndexes {
		oldVal, oldOK := FieldValue(oldEntity, field)
		newVal, newOK := FieldValue(newEntity, field)
		if oldOK == newOK && fmt.Sprintf("%v", oldVal) == fmt.Sprintf("%v", newVal) {
			continue
		}
		for _, ix := range ixs {
			touched[ix] = true
		}
	}
	for ix := range touched {
		ix.remove(id, oldEntity)
		ix.insert(id, newEntity)
	}

	if s.search != nil {
		s.search.removeEntity(id, oldEntity)
		s.search.addEntity(id, newEntity)
	}
}

// Delete removes id from the primary map and every index.
func (s *Store) Delete(id string) {
	e, ok := s.primary[id]
	if !ok {
		return
	}
	delete(s.primary, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for _, ix := range s.indexes {
		ix.remove(id, e)
	}
	if s.search != nil {
		s.search.removeEntity(id, e)
	}
}

// LoadAll replaces the store's entire contents with entities, rebuilding
// every index from scratch. Used by the persistence engine after a load
// (spec.md §4.3: "install the entity map into the collection and rebuild
// indexes"); the transaction manager's commit does not call it, and instead
// replaces the collection's Store pointer with the scratch store.
// Entities are installed in the given order, which becomes the store's
// insertion order.
func (s *Store) LoadAll(entities []map[string]any) {
	s.primary = make(map[string]map[string]any, len(entities))
	s.order = s.order[:0]
	for _, ix := range s.indexes {
		ix.reset()
	}
	if s.search != nil {
		s.search.reset()
	}
	for _, e := range entities {
		id, _ := e["id"].(string)
		if id == "" {
			continue
		}
		s.Insert(id, e)
	}
}

// Clone returns a structural copy of s suitable for a transaction's scratch
// layer (spec.md §4.8: "snapshots... a structural copy that preserves
// by-value immutability of entities"). Entity values themselves are never
// mutated in place anywhere in the engine — every write replaces a whole
// entity map — so Clone only needs fresh top-level maps/sets; it's safe to
// share the underlying entity map references between the live store and the
// clone.
func (s *Store) Clone() *Store {
	clone := &Store{
		primary:      make(map[string]map[string]any, len(s.primary)),
		order:        append([]string(nil), s.order...),
		indexes:      make(map[string]*index, len(s.indexes)),
		fieldIndexes: make(map[string][]*index, len(s.fieldIndexes)),
	}
	for id, e := range s.primary {
		clone.primary[id] = e
	}
	indexClones := make(map[*index]*index, len(s.indexes))
	for name, ix := range s.indexes {
		c := ix.clone()
		clone.indexes[name] = c
		indexClones[ix] = c
	}
	for field, ixs := range s.fieldIndexes {
		cloned := make([]*index, len(ixs))
		for i, ix := range ixs {
			cloned[i] = indexClones[ix]
		}
		clone.fieldIndexes[field] = cloned
	}
	if s.search != nil {
		clone.search = s.search.clone()
	}
	return clone
}

// Index returns the named index for the query planner, or nil if no index
// with that name was declared.
func (s *Store) Index(name string) *index { return s.indexes[name] }

// IndexesForField returns every index whose fields include field, in
// declaration order; no kind of index is preferred over another.
func (s *Store) IndexesForField(field string) []*index { return s.fieldIndexes[field] }

// Search returns the collection's search index, or nil if none was
// declared.
func (s *Store) Search() *searchIndex { return s.search }

// Spec returns the index's declaration, for planner lookups that need to
// check Fields or Unique without reaching into the unexported index type.
func (ix *index) Spec() IndexSpec { return ix.spec }

func (ix *index) LookupEqual(e map[string]any) map[string]bool  { return ix.lookupEqual(e) }
func (ix *index) LookupValue(v any, present bool) map[string]bool { return ix.lookupValue(v, present) }
func (ix *index) LookupIn(values []any) map[string]bool          { return ix.lookupIn(values) }
func (ix *index) LookupRange(op RangeOp, target any, less func(a, b any) bool) map[string]bool {
	return ix.lookupRange(op, target, less)
}

func (s *searchIndex) Fields() []string                  { return s.fields }
func (s *searchIndex) QueryTokens(q string) map[string]*Match { return s.Query(q) }
