package query

import (
	"fmt"

	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/entity"
)

// Aggregate implements spec.md §4.6.1: a single-pass reduction over the
// where-filtered candidate set, optionally partitioned by GroupBy. Group
// keys distinguish null from absent, same as index keys.
func (p *Pipeline) Aggregate(coll *collection.Collection, cfg AggregateConfig) []AggregateResult {
	candidates := p.candidateEntities(coll, cfg.Where)

	if len(cfg.GroupBy) == 0 {
		return []AggregateResult{p.reduceGroup(candidates, cfg)}
	}

	var order []string
	groups := make(map[string][]map[string]any)
	groupValues := make(map[string]map[string]any)
	for _, e := range candidates {
		key, values := groupKey(e, cfg.GroupBy)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
			groupValues[key] = values
		}
		groups[key] = append(groups[key], e)
	}

	out := make([]AggregateResult, 0, len(order))
	for _, key := range order {
		r := p.reduceGroup(groups[key], cfg)
		r.Group = groupValues[key]
		out = append(out, r)
	}
	return out
}

func groupKey(e map[string]any, fields []string) (string, map[string]any) {
	values := make(map[string]any, len(fields))
	parts := make([]string, len(fields))
	for i, f := range fields {
		v, present := entity.FieldValue(e, f)
		if present {
			values[f] = v
		}
		parts[i] = keyPartFor(v, present)
	}
	return compoundKeyFor(parts), values
}

func (p *Pipeline) reduceGroup(items []map[string]any, cfg AggregateConfig) AggregateResult {
	r := AggregateResult{Count: len(items)}
	if len(cfg.Sum) > 0 {
		r.Sum = make(map[string]float64, len(cfg.Sum))
	}
	if len(cfg.Avg) > 0 {
		r.Avg = make(map[string]any, len(cfg.Avg))
	}
	if len(cfg.Min) > 0 {
		r.Min = make(map[string]any, len(cfg.Min))
	}
	if len(cfg.Max) > 0 {
		r.Max = make(map[string]any, len(cfg.Max))
	}

	for _, f := range cfg.Sum {
		r.Sum[f] = sumField(items, f)
	}
	for _, f := range cfg.Avg {
		sum, count := 0.0, 0
		for _, e := range items {
			if v, ok := numericField(e, f); ok {
				sum += v
				count++
			}
		}
		if count == 0 {
			r.Avg[f] = nil
		} else {
			r.Avg[f] = sum / float64(count)
		}
	}
	for _, f := range cfg.Min {
		r.Min[f] = p.extremeField(items, f, true)
	}
	for _, f := range cfg.Max {
		r.Max[f] = p.extremeField(items, f, false)
	}
	return r
}

func sumField(items []map[string]any, field string) float64 {
	var sum float64
	for _, e := range items {
		if v, ok := numericField(e, field); ok {
			sum += v
		}
	}
	return sum
}

func numericField(e map[string]any, field string) (float64, bool) {
	v, present := entity.FieldValue(e, field)
	if !present {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// extremeField uses the same comparison rules as sort (spec.md §4.6.1:
// "min/max use the same comparison rules as sort").
func (p *Pipeline) extremeField(items []map[string]any, field string, wantMin bool) any {
	var best any
	haveBest := false
	for _, e := range items {
		v, present := entity.FieldValue(e, field)
		if !present || v == nil {
			continue
		}
		if !haveBest {
			best = v
			haveBest = true
			continue
		}
		cmp := p.Collator.Compare(v, best)
		if (wantMin && cmp < 0) || (!wantMin && cmp > 0) {
			best = v
		}
	}
	return best
}

func keyPartFor(value any, present bool) string {
	if !present {
		return "\x00absent"
	}
	if value == nil {
		return "\x00null"
	}
	return fmt.Sprintf("%T:%v", value, value)
}

func compoundKeyFor(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\x01"
		}
		out += p
	}
	return out
}
