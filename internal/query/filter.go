package query

import (
	"strings"

	"github.com/inkwell-db/inkwell/internal/collate"
	"github.com/inkwell-db/inkwell/internal/collection"
	"github.com/inkwell-db/inkwell/internal/entity"
)

// filterCtx carries the state the residual filter needs beyond the single
// entity being tested: the owning collection (for relationship filters), the
// collection registry (to reach relationship targets), the comparator used
// for ordering operators, and any plugin-installed custom operators.
type filterCtx struct {
	coll       *collection.Collection
	registry   *collection.Registry
	collator   *collate.Collator
	operators  *OperatorRegistry
}

// evaluateWhere implements spec.md §4.6 step 2's full operator set. An empty
// or nil where matches everything.
func evaluateWhere(e map[string]any, where map[string]any, fc *filterCtx) bool {
	if len(where) == 0 {
		return true
	}
	for key, clause := range where {
		switch key {
		case "$and":
			subs, ok := clause.([]map[string]any)
			if !ok {
				continue
			}
			for _, sub := range subs {
				if !evaluateWhere(e, sub, fc) {
					return false
				}
			}
		case "$or":
			subs, ok := clause.([]map[string]any)
			if !ok {
				continue
			}
			matched := false
			for _, sub := range subs {
				if evaluateWhere(e, sub, fc) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		case "$not":
			sub, ok := clause.(map[string]any)
			if !ok {
				continue
			}
			if evaluateWhere(e, sub, fc) {
				return false
			}
		case "$search":
			if !evaluateSearchClause(e, clause, fc) {
				return false
			}
		default:
			if !evaluateFieldClause(e, key, clause, fc) {
				return false
			}
		}
	}
	return true
}

// evaluateFieldClause evaluates one `field: value-or-operator-map` entry,
// including relationship quantifiers and dot-notation nested paths.
func evaluateFieldClause(e map[string]any, field string, clause any, fc *filterCtx) bool {
	if rel, ok := fc.coll.RelationshipByName(field); ok {
		return evaluateRelationshipClause(e, rel, clause, fc)
	}

	value, present := entity.FieldValue(e, field)

	opMap, ok := clause.(map[string]any)
	if !ok {
		// Direct value means {$eq: value} (spec.md §4.6 step 2).
		return present && fc.collator.Compare(value, clause) == 0
	}

	for op, operand := range opMap {
		if op == "$search" {
			if !evaluateSearchClause(e, operand, fc) {
				return false
			}
			continue
		}
		if !evaluateOperator(value, present, op, operand, fc) {
			return false
		}
	}
	return true
}

func evaluateOperator(value any, present bool, op string, operand any, fc *filterCtx) bool {
	switch op {
	case "$eq":
		return present && fc.collator.Compare(value, operand) == 0
	case "$ne":
		return !present || fc.collator.Compare(value, operand) != 0
	case "$gt":
		return present && fc.collator.Compare(value, operand) > 0
	case "$gte":
		return present && fc.collator.Compare(value, operand) >= 0
	case "$lt":
		return present && fc.collator.Compare(value, operand) < 0
	case "$lte":
		return present && fc.collator.Compare(value, operand) <= 0
	case "$startsWith":
		s, ok1 := value.(string)
		prefix, ok2 := operand.(string)
		return present && ok1 && ok2 && strings.HasPrefix(s, prefix)
	case "$endsWith":
		s, ok1 := value.(string)
		suffix, ok2 := operand.(string)
		return present && ok1 && ok2 && strings.HasSuffix(s, suffix)
	case "$contains":
		return evaluateContains(value, present, operand)
	case "$in":
		return present && containsValue(operand, value, fc.collator)
	case "$nin":
		return !present || !containsValue(operand, value, fc.collator)
	case "$all":
		return present && arrayContainsAll(value, operand, fc.collator)
	case "$size":
		arr, ok := value.([]any)
		n, numOK := asInt(operand)
		return present && ok && numOK && len(arr) == n
	default:
		if customOp, ok := fc.operators.Lookup(op); ok {
			t := runtimeType(value)
			if !present || !typeListContains(customOp.Types(), t) {
				return true // silently ignored per spec.md §4.6 step 2
			}
			return customOp.Evaluate(value, present, operand)
		}
		return true
	}
}

// evaluateContains handles both string substring search and array element
// membership, dispatching on value's runtime type.
func evaluateContains(value any, present bool, operand any) bool {
	if !present {
		return false
	}
	switch v := value.(type) {
	case string:
		s, ok := operand.(string)
		return ok && strings.Contains(v, s)
	case []any:
		for _, el := range v {
			if el == operand {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func containsValue(set any, value any, c *collate.Collator) bool {
	arr, ok := set.([]any)
	if !ok {
		return false
	}
	for _, candidate := range arr {
		if c.Compare(value, candidate) == 0 {
			return true
		}
	}
	return false
}

func arrayContainsAll(value any, operand any, c *collate.Collator) bool {
	arr, ok := value.([]any)
	if !ok {
		return false
	}
	want, ok := operand.([]any)
	if !ok {
		return false
	}
	for _, w := range want {
		found := false
		for _, v := range arr {
			if c.Compare(v, w) == 0 {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// evaluateRelationshipClause implements spec.md §4.6 step 2's relationship
// filters: a ref relation recurses the clause into the target entity; an
// inverse relation supports {$some, $every, $none} quantifiers over the
// dependents that reference this entity.
func evaluateRelationshipClause(e map[string]any, rel collection.Relationship, clause any, fc *filterCtx) bool {
	target, ok := fc.registry.Get(rel.Target)
	if !ok {
		return false
	}

	if rel.Type == collection.Ref {
		refID, present := entity.FieldValue(e, rel.Field)
		if !present {
			return false
		}
		idStr, ok := refID.(string)
		if !ok {
			return false
		}
		targetEntity, ok := target.Store.Get(idStr)
		if !ok {
			return false
		}
		subWhere, ok := clause.(map[string]any)
		if !ok {
			return true
		}
		childFc := &filterCtx{coll: target, registry: fc.registry, collator: fc.collator, operators: fc.operators}
		return evaluateWhere(targetEntity, subWhere, childFc)
	}

	// Inverse: find every dependent in target whose rel.Field references e's id.
	ownID, _ := entity.FieldValue(e, "id")
	idStr, _ := ownID.(string)
	ix := target.Store.IndexesForField(rel.Field)
	var dependents map[string]bool
	if len(ix) > 0 {
		dependents = ix[0].LookupValue(idStr, true)
	} else {
		dependents = make(map[string]bool)
		for _, te := range target.Store.All() {
			if v, present := entity.FieldValue(te, rel.Field); present && v == idStr {
				if tid, _ := entity.FieldValue(te, "id"); tid != nil {
					dependents[tid.(string)] = true
				}
			}
		}
	}

	quant, ok := clause.(map[string]any)
	if !ok {
		return len(dependents) > 0
	}
	childFc := &filterCtx{coll: target, registry: fc.registry, collator: fc.collator, operators: fc.operators}

	matchCount := 0
	for id := range dependents {
		te, ok := target.Store.Get(id)
		if !ok {
			continue
		}
		sub, _ := quant["$some"].(map[string]any)
		if sub == nil {
			sub, _ = quant["$every"].(map[string]any)
		}
		if sub == nil {
			sub, _ = quant["$none"].(map[string]any)
		}
		if evaluateWhere(te, sub, childFc) {
			matchCount++
		}
	}

	if _, ok := quant["$some"]; ok {
		return matchCount > 0
	}
	if _, ok := quant["$every"]; ok {
		return matchCount == len(dependents)
	}
	if _, ok := quant["$none"]; ok {
		return matchCount == 0
	}
	return len(dependents) > 0
}

func evaluateSearchClause(e map[string]any, clause any, fc *filterCtx) bool {
	m, ok := clause.(map[string]any)
	if !ok {
		return false
	}
	q, _ := m["query"].(string)
	if q == "" {
		return false
	}
	search := fc.coll.Store.Search()
	if search == nil {
		return false
	}
	id, _ := entity.FieldValue(e, "id")
	idStr, _ := id.(string)
	matches := search.QueryTokens(q)
	_, ok = matches[idStr]
	return ok
}
