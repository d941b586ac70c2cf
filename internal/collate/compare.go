// Package collate implements the value-comparison rules used by the query
// pipeline's sort stage (spec.md §4.6 step 4) and by aggregate min/max
// (§4.6.1), which share the same comparator.
//
// Only the sort stage uses locale-aware collation; index equality/prefix
// lookups compare raw string keys byte-for-byte (see internal/entity). This
// resolves spec.md's open question about index key case sensitivity: the
// source compares indexes strictly and reserves localized collation for
// sorting, and that's what this split encodes.
package collate

import (
	"fmt"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Collator wraps a locale-aware string collator. The zero value uses
// language.Und (locale-agnostic Unicode collation), which matches the
// common case of a single-process embedded database with no configured
// locale.
type Collator struct {
	c *collate.Collator
}

// New builds a Collator for the given BCP-47 locale tag. An empty tag uses
// language.Und.
func New(locale string) *Collator {
	tag := language.Und
	if locale != "" {
		if t, err := language.Parse(locale); err == nil {
			tag = t
		}
	}
	return &Collator{c: collate.New(tag)}
}

var defaultCollator = New("")

// Compare implements the full sort-value ordering from spec.md §4.6 step 4:
//
//   - nil (covering both "field absent" and "field present with null")
//     always sorts to the end, regardless of direction;
//   - strings compare by locale-aware collation;
//   - numbers by numeric subtraction;
//   - booleans as 0 < 1;
//   - time.Time by epoch value;
//   - anything else falls back to string-coerced comparison.
//
// Compare returns <0, 0, or >0 the way a standard comparator does, always
// ranking nil after non-nil; callers apply direction by negating the result
// for Desc, and SortLess/StableSort skip that negation when a nil is
// involved so nils stay last in either direction.
func (c *Collator) Compare(a, b any) int {
	aNil, bNil := a == nil, b == nil
	if aNil && bNil {
		return 0
	}
	if aNil {
		return 1
	}
	if bNil {
		return -1
	}

	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return c.collator().Compare([]byte(as), []byte(bs))
		}
	}

	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}

	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			return boolRank(ab) - boolRank(bb)
		}
	}

	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}

	as, bs := coerceString(a), coerceString(b)
	if as < bs {
		return -1
	}
	if as > bs {
		return 1
	}
	return 0
}

func (c *Collator) collator() *collate.Collator {
	if c == nil || c.c == nil {
		return defaultCollator.c
	}
	return c.c
}

// SortLess produces the stable less-than relation for a multi-key sort: nil
// always sorts last regardless of direction; everything else honors
// direction via Compare.
func (c *Collator) SortLess(a, b any, dir Direction) bool {
	aNil, bNil := a == nil, b == nil
	if aNil || bNil {
		return c.Compare(a, b) < 0
	}
	cmp := c.Compare(a, b)
	if dir == Desc {
		cmp = -cmp
	}
	return cmp < 0
}

// Key is one (path, direction) sort term.
type Key struct {
	Get       func(entity map[string]any) any
	Direction Direction
}

// StableSort sorts items in place by the ordered list of keys, honoring
// nil-always-last and preserving input order for equal tuples (spec.md
// "Sort stability on ties").
func (c *Collator) StableSort(items []map[string]any, keys []Key) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, k := range keys {
			av, bv := k.Get(items[i]), k.Get(items[j])
			aNil, bNil := av == nil, bv == nil
			if aNil && bNil {
				continue
			}
			if aNil != bNil {
				// nil always sorts last, regardless of direction.
				return bNil
			}
			cmp := c.Compare(av, bv)
			if cmp == 0 {
				continue
			}
			if k.Direction == Desc {
				cmp = -cmp
			}
			return cmp < 0
		}
		return false
	})
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func coerceString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
