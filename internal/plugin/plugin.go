// Package plugin implements spec.md §4.10's plugin host: validating and
// installing custom codecs, where-clause operators, id generators, and
// global hooks into the registries the query pipeline and CRUD engine
// already read from, plus running each plugin's initialize/shutdown
// lifecycle.
package plugin

import (
	"fmt"

	"github.com/inkwell-db/inkwell/internal/codec"
	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/idgen"
	"github.com/inkwell-db/inkwell/internal/query"
)

// builtinOperators lists every where-clause key the query pipeline's
// filter evaluator interprets natively (internal/query/filter.go); a
// plugin operator with any of these names is rejected as a conflict
// (spec.md §4.10: "no operator name conflicts with... a built-in
// operator").
var builtinOperators = map[string]bool{
	"$and": true, "$or": true, "$not": true, "$search": true,
	"$eq": true, "$ne": true, "$gt": true, "$gte": true, "$lt": true, "$lte": true,
	"$startsWith": true, "$endsWith": true, "$contains": true,
	"$in": true, "$nin": true, "$all": true, "$size": true,
	"$some": true, "$every": true, "$none": true,
}

// Plugin is the shape spec.md §4.10 declares: `{name, version?,
// dependencies?, codecs?, operators?, idGenerators?, hooks? (global),
// initialize?, shutdown?}`.
type Plugin struct {
	Name         string
	Version      string
	Dependencies []string
	Codecs       []codec.Codec
	Operators    []query.Operator
	IDGenerators []idgen.Generator
	GlobalHooks  GlobalHooks
	Initialize   func() error
	Shutdown     func() error
}

// GlobalHooks is the global hook chain a plugin may contribute, mirroring
// crud.GlobalHooks' shape so Host.Install can append directly into it.
type GlobalHooks struct {
	BeforeCreate []collection.Hook
	AfterCreate  []collection.Hook
	BeforeUpdate []collection.Hook
	AfterUpdate  []collection.Hook
	BeforeDelete []collection.Hook
	AfterDelete  []collection.Hook
}

// validateShape implements spec.md §4.10's validation: non-empty name;
// every operator has evaluate (i.e. is non-nil and names itself); every
// codec declares both encode and decode (the Codec interface requires
// both, so a nil entry in the slice is the only possible violation); every
// id generator has generate.
func (p *Plugin) validateShape() error {
	if p.Name == "" {
		return &Error{Reason: ReasonInvalidPluginShape, Message: "plugin name must be non-empty"}
	}
	for i, op := range p.Operators {
		if op == nil || op.Name() == "" {
			return &Error{Plugin: p.Name, Reason: ReasonInvalidOperator, Message: fmt.Sprintf("operator at index %d is invalid", i)}
		}
	}
	for i, c := range p.Codecs {
		if c == nil || c.Name() == "" || len(c.Extensions()) == 0 {
			return &Error{Plugin: p.Name, Reason: ReasonInvalidCodec, Message: fmt.Sprintf("codec at index %d is invalid", i)}
		}
	}
	for i, g := range p.IDGenerators {
		if g == nil || g.Name() == "" {
			return &Error{Plugin: p.Name, Reason: ReasonMissingIDGenerator, Message: fmt.Sprintf("id generator at index %d is invalid", i)}
		}
	}
	return nil
}
