package query

import (
	"github.com/inkwell-db/inkwell/internal/collate"
	"github.com/inkwell-db/inkwell/internal/entity"
)

// applySort implements spec.md §4.6 step 4. When scores is non-nil and
// sortSpecs is empty, a score-only descending sort is applied automatically;
// an explicit sort always overrides it.
func applySort(c *collate.Collator, items []map[string]any, sortSpecs []SortSpec, scores map[string]float64) {
	if len(sortSpecs) == 0 && scores != nil {
		c.StableSort(items, []collate.Key{{
			Get: func(e map[string]any) any {
				id, _ := entity.FieldValue(e, "id")
				idStr, _ := id.(string)
				return scores[idStr]
			},
			Direction: collate.Desc,
		}})
		return
	}
	if len(sortSpecs) == 0 {
		return
	}
	keys := make([]collate.Key, len(sortSpecs))
	for i, spec := range sortSpecs {
		path := spec.Path
		keys[i] = collate.Key{
			Get: func(e map[string]any) any {
				v, ok := entity.FieldValue(e, path)
				if !ok {
					return nil
				}
				return v
			},
			Direction: spec.Direction,
		}
	}
	c.StableSort(items, keys)
}
