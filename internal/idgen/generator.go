// Package idgen provides pluggable id generators for collections that don't
// supply an explicit id on create (spec.md §4.7 step 2: "Assign id when
// absent: use the collection's id-generator... An explicit id always wins").
package idgen

// Generator produces a new, collision-resistant id string on each call.
// Implementations must be safe for concurrent use; the CRUD engine may call
// Generate from createMany without serializing calls to it.
type Generator interface {
	Name() string
	Generate() string
}

// Registry is a name -> Generator lookup, populated with the built-in
// generators and anything plugins install (spec.md §4.10, reason
// missing_id_generator when a collection names one that was never
// registered).
type Registry struct {
	byName      map[string]Generator
	defaultName string
}

// NewRegistry builds a registry pre-populated with the "hash" and "uuid"
// built-ins. "hash" is the default a collection gets when it declares no
// id-generator name.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Generator, 4), defaultName: "hash"}
	r.Register(NewHashGenerator(DefaultLength))
	r.Register(NewUUIDGenerator())
	return r
}

// Register installs or overwrites a generator under its own Name().
func (r *Registry) Register(g Generator) {
	r.byName[g.Name()] = g
}

// Lookup returns the named generator, or (nil, false) if nothing was ever
// registered under that name.
func (r *Registry) Lookup(name string) (Generator, bool) {
	g, ok := r.byName[name]
	return g, ok
}

// SetDefault changes the generator Default() returns to the one already
// registered under name (internal/config's EngineConfig.DefaultIDGenerator,
// wired at inkwell.Open). A name that was never registered is ignored,
// leaving the previous default in place.
func (r *Registry) SetDefault(name string) {
	if _, ok := r.byName[name]; ok {
		r.defaultName = name
	}
}

// Default returns the registry's configured default generator ("hash"
// unless SetDefault named another registered generator).
func (r *Registry) Default() Generator {
	return r.byName[r.defaultName]
}
