// Package query implements the query pipeline (spec.md §4.6): candidate
// resolution off the entity store's indexes, a residual filter evaluator
// covering the full operator set, search-relevance scoring, locale-aware
// multi-key sort, offset/cursor pagination, field projection, and
// relationship population. aggregate() (§4.6.1) shares the same candidate
// resolution and filter stages.
package query

import "github.com/inkwell-db/inkwell/internal/collate"

// SortSpec is one (path, direction) term of a multi-key sort.
type SortSpec struct {
	Path      string
	Direction collate.Direction
}

// Config is query()'s discriminated configuration. When Cursor is set,
// Offset is ignored and Limit is the cursor page size.
type Config struct {
	Where    map[string]any
	Sort     []SortSpec
	Select   any // []string, or map[string]any of {field: true | nested}, or nil
	Populate []string
	Limit    *int
	Offset   *int
	Cursor   *string
}

// AggregateConfig drives aggregate() (spec.md §4.6.1).
type AggregateConfig struct {
	Where   map[string]any
	Count   bool
	Sum     []string
	Avg     []string
	Min     []string
	Max     []string
	GroupBy []string // one or more fields; grouped by the tuple
}

// AggregateResult is one output row. Group is nil when GroupBy was empty.
type AggregateResult struct {
	Group map[string]any
	Count int
	Sum   map[string]float64
	Avg   map[string]any // float64 or nil (spec.md: "avg of zero numeric values is null")
	Min   map[string]any
	Max   map[string]any
}
