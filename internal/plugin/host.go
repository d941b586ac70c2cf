package plugin

import (
	"github.com/inkwell-db/inkwell/internal/codec"
	"github.com/inkwell-db/inkwell/internal/crud"
	"github.com/inkwell-db/inkwell/internal/idgen"
	"github.com/inkwell-db/inkwell/internal/query"
)

// Host owns the registries a plugin can install into, plus the ordered
// list of installed plugins needed for dependency and shutdown ordering
// (spec.md §4.10).
type Host struct {
	Operators *query.OperatorRegistry
	IDGens    *idgen.Registry
	Global    *crud.GlobalHooks

	installed []*Plugin
	byName    map[string]*Plugin
}

// NewHost builds a Host bound to the live registries a database's query
// pipeline and CRUD engine already use, so installed plugins take effect
// for every subsequent operation.
func NewHost(operators *query.OperatorRegistry, idGens *idgen.Registry, global *crud.GlobalHooks) *Host {
	return &Host{
		Operators: operators,
		IDGens:    idGens,
		Global:    global,
		byName:    make(map[string]*Plugin),
	}
}

// Install runs spec.md §4.10's registration sequence for one plugin:
// validate shape, check dependencies resolve, check for operator name
// conflicts, install codecs/operators/id generators/global hooks, then run
// initialize. Plugins install in call order; that order is also the
// registration order hook chains and codec registries preserve.
func (h *Host) Install(p *Plugin, codecs *codec.Registry) error {
	if err := p.validateShape(); err != nil {
		return err
	}

	for _, dep := range p.Dependencies {
		if _, ok := h.byName[dep]; !ok {
			return &Error{Plugin: p.Name, Reason: ReasonMissingDependencies, Message: "unresolved dependency: " + dep}
		}
	}

	for _, op := range p.Operators {
		name := op.Name()
		if builtinOperators[name] {
			return &Error{Plugin: p.Name, Reason: ReasonOperatorConflict, Message: "operator " + name + " conflicts with a built-in operator"}
		}
		if _, ok := h.Operators.Lookup(name); ok {
			return &Error{Plugin: p.Name, Reason: ReasonOperatorConflict, Message: "operator " + name + " already registered by another plugin"}
		}
	}

	// Validation above must fully pass before any registry is mutated,
	// since a mid-install failure would leave the engine half-configured.
	for _, c := range p.Codecs {
		if codecs != nil {
			codecs.Register(c)
		}
	}
	for _, op := range p.Operators {
		h.Operators.Register(op)
	}
	for _, g := range p.IDGenerators {
		h.IDGens.Register(g)
	}

	h.Global.BeforeCreate = append(h.Global.BeforeCreate, p.GlobalHooks.BeforeCreate...)
	h.Global.AfterCreate = append(h.Global.AfterCreate, p.GlobalHooks.AfterCreate...)
	h.Global.BeforeUpdate = append(h.Global.BeforeUpdate, p.GlobalHooks.BeforeUpdate...)
	h.Global.AfterUpdate = append(h.Global.AfterUpdate, p.GlobalHooks.AfterUpdate...)
	h.Global.BeforeDelete = append(h.Global.BeforeDelete, p.GlobalHooks.BeforeDelete...)
	h.Global.AfterDelete = append(h.Global.AfterDelete, p.GlobalHooks.AfterDelete...)

	if p.Initialize != nil {
		if err := p.Initialize(); err != nil {
			return &Error{Plugin: p.Name, Reason: ReasonInitializeFailed, Message: "initialize failed", Err: err}
		}
	}

	h.installed = append(h.installed, p)
	h.byName[p.Name] = p
	return nil
}

// Shutdown runs every installed plugin's shutdown hook in reverse
// installation order, collecting (not stopping on) individual failures so
// one misbehaving plugin doesn't prevent the others from releasing
// resources.
func (h *Host) Shutdown() []error {
	var errs []error
	for i := len(h.installed) - 1; i >= 0; i-- {
		p := h.installed[i]
		if p.Shutdown == nil {
			continue
		}
		if err := p.Shutdown(); err != nil {
			errs = append(errs, &Error{Plugin: p.Name, Reason: ReasonShutdownFailed, Message: "shutdown failed", Err: err})
		}
	}
	return errs
}
