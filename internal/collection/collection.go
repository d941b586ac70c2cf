// Package collection defines the shared per-collection metadata that the
// persistence, query, CRUD, and transaction layers all need: its schema,
// its declared indexes and search fields, its relationships to other
// collections, and its file/versioning configuration. It has no behavior
// of its own — it's the wiring the other internal packages close over.
package collection

import (
	"github.com/inkwell-db/inkwell/internal/entity"
	"github.com/inkwell-db/inkwell/internal/schema"
)

// RelationType distinguishes a forward foreign-key relationship from its
// inverse.
type RelationType int

const (
	// Ref: this collection holds a field naming the id of an entity in
	// Target.
	Ref RelationType = iota
	// Inverse: Target holds a field naming ids in this collection; populate
	// resolves it by scanning Target's foreign-key index.
	Inverse
)

// CascadePolicy governs what happens to a Ref relationship's holder when
// its target is deleted.
type CascadePolicy int

const (
	// Restrict fails the delete if any dependent still references the
	// target (spec.md §4.7 cascade policies).
	Restrict CascadePolicy = iota
	// Cascade deletes dependents along with the target.
	Cascade
	// SetNull clears the referencing field on dependents.
	SetNull
)

// Relationship declares one named relationship from this collection's
// point of view.
type Relationship struct {
	Name   string
	Type   RelationType
	Field  string // Ref: field on this side; Inverse: field on Target
	Target string
	// Cascade is meaningful only on an Inverse descriptor: it governs what
	// happens to entities in Target (which hold the foreign key named by
	// Field) when an entity on this side is deleted (spec.md §3: "Cascade
	// policy declared by an inverse side governs deletion").
	Cascade CascadePolicy
}

// Migration is one schema-version upgrade step (spec.md §4.4).
type Migration struct {
	From        int
	To          int
	Description string
	Transform   func(map[string]map[string]any) (map[string]map[string]any, error)
}

// Config is everything a collection is declared with at inkwell.Open.
type Config struct {
	Name             string
	Schema           schema.Schema
	Indexes          []entity.IndexSpec
	SearchFields     []string
	Relationships    []Relationship
	Computed         map[string]func(entity map[string]any) any
	IDGenerator      string // registry name; "" uses the engine default
	FilePath         string
	Version          int
	Migrations       []Migration
	BeforeCreate     []Hook
	AfterCreate      []Hook
	BeforeUpdate     []Hook
	AfterUpdate      []Hook
	BeforeDelete     []Hook
	AfterDelete      []Hook
}

// Hook mirrors spec.md §4.7 step 5: beforeCreate/beforeUpdate may transform
// the pending payload (returning the possibly-modified map); after* hooks
// only observe. beforeDelete may veto by returning an error.
type Hook func(collection string, pending map[string]any) (map[string]any, error)

// Collection is the live runtime state for one declared collection: its
// Config plus the entity.Store backing it.
type Collection struct {
	Config Config
	Store  *entity.Store
}

// New builds a Collection's runtime store from its Config.
func New(cfg Config) *Collection {
	return &Collection{
		Config: cfg,
		Store:  entity.NewStore(cfg.Indexes, cfg.SearchFields),
	}
}

// RelationshipByName finds a declared relationship, or ok=false.
func (c *Collection) RelationshipByName(name string) (Relationship, bool) {
	for _, r := range c.Config.Relationships {
		if r.Name == name {
			return r, true
		}
	}
	return Relationship{}, false
}
