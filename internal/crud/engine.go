// Package crud implements the write path described in spec.md §4.7: schema
// validation, id assignment, referential-integrity and uniqueness checks,
// the global-then-local hook chain, update operators with deep-merge
// semantics, timestamp stamping, change-event publication, and dirty
// marking for the persistence layer's debounced flush.
package crud

import (
	"context"
	"time"

	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/idgen"
	"github.com/inkwell-db/inkwell/internal/query"
	"github.com/inkwell-db/inkwell/internal/reactive"
	"github.com/inkwell-db/inkwell/internal/telemetry"
)

// Publisher is the narrow slice of *reactive.Bus the CRUD engine needs.
// Abstracting it lets the transaction manager swap in a recorder that
// buffers events instead of publishing them immediately (spec.md §4.8:
// "pending events publish in order" only after commit).
type Publisher interface {
	Publish(reactive.Event)
}

// Engine ties the collection registry to the id generator registry, the
// query pipeline (used by findOne/upsert), the reactive bus, and the
// persistence layer's dirty-marking hook.
type Engine struct {
	Collections  *collection.Registry
	IDGenerators *idgen.Registry
	Pipeline     *query.Pipeline
	Bus          Publisher
	Global       *GlobalHooks
	MarkDirty    func(collectionName string)
	Now          func() time.Time
	Telemetry    *telemetry.Telemetry
}

// New builds an Engine. global may be nil (no plugin hooks installed yet).
func New(collections *collection.Registry, idGenerators *idgen.Registry, pipeline *query.Pipeline, bus Publisher, global *GlobalHooks, markDirty func(string)) *Engine {
	if global == nil {
		global = &GlobalHooks{}
	}
	return &Engine{
		Collections:  collections,
		IDGenerators: idGenerators,
		Pipeline:     pipeline,
		Bus:          bus,
		Global:       global,
		MarkDirty:    markDirty,
		Now:          time.Now,
		Telemetry:    telemetry.Noop(),
	}
}

func (e *Engine) telemetry() *telemetry.Telemetry {
	if e.Telemetry != nil {
		return e.Telemetry
	}
	return telemetry.Noop()
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) publish(collName string, op reactive.Operation, id string) {
	if e.Bus != nil {
		e.Bus.Publish(reactive.Event{Collection: collName, Operation: op, ID: id})
	}
}

func (e *Engine) markDirty(collName string) {
	if e.MarkDirty != nil {
		e.MarkDirty(collName)
	}
}

func (e *Engine) coll(name string) (*collection.Collection, error) {
	c, ok := e.Collections.Get(name)
	if !ok {
		return nil, &OperationError{Collection: name, Message: "unknown collection"}
	}
	return c, nil
}

// Create implements spec.md §4.7 steps 1-8 for a single new entity.
func (e *Engine) Create(collName string, input map[string]any) (map[string]any, error) {
	c, err := e.coll(collName)
	if err != nil {
		return nil, err
	}
	return e.create(c, input)
}

func (e *Engine) create(c *collection.Collection, input map[string]any) (result map[string]any, err error) {
	collName := c.Config.Name
	_, doneSpan := e.telemetry().StartMutation(context.Background(), collName, "create")
	defer func() { doneSpan(err) }()

	pending := cloneMap(input)

	if c.Config.Schema != nil {
		if errs := c.Config.Schema.Validate(pending); len(errs) > 0 {
			return nil, &ValidationError{Collection: collName, Message: "schema validation failed", Cause: errs[0]}
		}
	}

	id, _ := pending["id"].(string)
	if id == "" {
		id = e.generateID(c)
		pending["id"] = id
	}
	if _, exists := c.Store.Get(id); exists {
		return nil, &DuplicateKeyError{Collection: collName, ID: id, Message: "id already exists"}
	}

	if err := e.checkForeignKeys(c, pending); err != nil {
		return nil, err
	}
	if err := e.checkUniqueness(c, id, pending, nil); err != nil {
		return nil, err
	}

	pending, err = runBefore(collName, e.Global.BeforeCreate, c.Config.BeforeCreate, pending)
	if err != nil {
		return nil, err
	}

	now := e.now()
	pending["createdAt"] = now
	pending["updatedAt"] = now

	c.Store.Insert(id, pending)

	if err := runAfter(collName, e.Global.AfterCreate, c.Config.AfterCreate, pending); err != nil {
		return pending, err
	}

	e.publish(collName, reactive.OpCreate, id)
	e.markDirty(collName)
	return pending, nil
}

func (e *Engine) generateID(c *collection.Collection) string {
	name := c.Config.IDGenerator
	if name != "" {
		if g, ok := e.IDGenerators.Lookup(name); ok {
			return g.Generate()
		}
	}
	return e.IDGenerators.Default().Generate()
}

// Update implements spec.md §4.7 for an existing entity via ApplyPatch's
// update-operator/deep-merge semantics.
func (e *Engine) Update(collName, id string, patch map[string]any) (map[string]any, error) {
	c, err := e.coll(collName)
	if err != nil {
		return nil, err
	}
	return e.update(c, id, patch)
}

func (e *Engine) update(c *collection.Collection, id string, patch map[string]any) (result map[string]any, err error) {
	collName := c.Config.Name
	_, doneSpan := e.telemetry().StartMutation(context.Background(), collName, "update")
	defer func() { doneSpan(err) }()

	old, ok := c.Store.Get(id)
	if !ok {
		return nil, &NotFoundError{Collection: collName, ID: id}
	}

	merged, err := ApplyPatch(collName, old, patch)
	if err != nil {
		return nil, err
	}
	merged["id"] = id

	if c.Config.Schema != nil {
		if errs := c.Config.Schema.Validate(merged); len(errs) > 0 {
			return nil, &ValidationError{Collection: collName, Message: "schema validation failed", Cause: errs[0]}
		}
	}

	if err := e.checkForeignKeys(c, merged); err != nil {
		return nil, err
	}
	if err := e.checkUniqueness(c, id, merged, old); err != nil {
		return nil, err
	}

	merged, err = runBefore(collName, e.Global.BeforeUpdate, c.Config.BeforeUpdate, merged)
	if err != nil {
		return nil, err
	}

	merged["updatedAt"] = e.now()
	c.Store.Update(id, old, merged)

	if err := runAfter(collName, e.Global.AfterUpdate, c.Config.AfterUpdate, merged); err != nil {
		return merged, err
	}

	e.publish(collName, reactive.OpUpdate, id)
	e.markDirty(collName)
	return merged, nil
}

// Delete implements spec.md §4.7's delete path; cascade policies for
// relationships are handled by DeleteWithRelationships in cascade.go, not
// here — a plain Delete never touches another collection.
func (e *Engine) Delete(collName, id string) (map[string]any, error) {
	c, err := e.coll(collName)
	if err != nil {
		return nil, err
	}
	return e.delete(c, id)
}

func (e *Engine) delete(c *collection.Collection, id string) (result map[string]any, err error) {
	collName := c.Config.Name
	_, doneSpan := e.telemetry().StartMutation(context.Background(), collName, "delete")
	defer func() { doneSpan(err) }()

	existing, ok := c.Store.Get(id)
	if !ok {
		return nil, &NotFoundError{Collection: collName, ID: id}
	}

	if _, err := runBefore(collName, e.Global.BeforeDelete, c.Config.BeforeDelete, existing); err != nil {
		return nil, err
	}

	c.Store.Delete(id)

	if err := runAfter(collName, e.Global.AfterDelete, c.Config.AfterDelete, existing); err != nil {
		return existing, err
	}

	e.publish(collName, reactive.OpDelete, id)
	e.markDirty(collName)
	return existing, nil
}

// checkForeignKeys implements spec.md §4.7 step 3.
func (e *Engine) checkForeignKeys(c *collection.Collection, pending map[string]any) error {
	for _, rel := range c.Config.Relationships {
		if rel.Type != collection.Ref {
			continue
		}
		v, present := pending[rel.Field]
		if !present || v == nil {
			continue
		}
		refID, ok := v.(string)
		if !ok {
			continue
		}
		target, ok := e.Collections.Get(rel.Target)
		if !ok {
			return &ForeignKeyError{Collection: c.Config.Name, Message: "relationship " + rel.Name + " targets unknown collection " + rel.Target}
		}
		if _, exists := target.Store.Get(refID); !exists {
			return &ForeignKeyError{Collection: c.Config.Name, Message: "field " + rel.Field + " references missing id " + refID + " in " + rel.Target}
		}
	}
	return nil
}

// checkUniqueness implements spec.md §4.7 step 4. old is nil on create;
// on update it's excluded from its own unique-index collision check.
func (e *Engine) checkUniqueness(c *collection.Collection, id string, pending, old map[string]any) error {
	for _, spec := range c.Config.Indexes {
		if !spec.Unique {
			continue
		}
		ix := c.Store.Index(spec.Name)
		if ix == nil {
			continue
		}
		matches := ix.LookupEqual(pending)
		for existingID := range matches {
			if existingID != id {
				return &DuplicateKeyError{Collection: c.Config.Name, ID: id, Message: "unique index " + spec.Name + " collides with " + existingID}
			}
		}
	}
	return nil
}
