package entity

// IndexSpec declares one secondary or compound index. Fields with len==1
// and Unique==false build a secondary index; len==1 and Unique==true build
// a unique index; len>1 builds a compound index keyed by the joined tuple
// regardless of Unique (a compound index may also be declared unique).
type IndexSpec struct {
	Name   string
	Fields []string
	Unique bool
}

// index is the runtime structure backing one IndexSpec: a map from the
// joined key (single field or compound) to the set of ids sharing it.
// insert does not reject a second id under a unique index's key; the CRUD
// layer checks for duplicates and raises DuplicateKeyError before insert.
type index struct {
	spec IndexSpec
	byKey map[string]map[string]bool
	// rawValue holds, for single-field indexes only, the raw (un-serialized)
	// field value behind each key — range queries need real comparisons,
	// not string comparisons of keyPart's encoding.
	rawValue map[string]any
}

func newIndex(spec IndexSpec) *index {
	return &index{
		spec:     spec,
		byKey:    make(map[string]map[string]bool),
		rawValue: make(map[string]any),
	}
}

// reset clears the index back to empty, keeping its spec.
func (ix *index) reset() {
	ix.byKey = make(map[string]map[string]bool)
	ix.rawValue = make(map[string]any)
}

// clone returns a structural copy sharing no mutable state with ix.
func (ix *index) clone() *index {
	c := &index{
		spec:     ix.spec,
		byKey:    make(map[string]map[string]bool, len(ix.byKey)),
		rawValue: make(map[string]any, len(ix.rawValue)),
	}
	for k, set := range ix.byKey {
		cset := make(map[string]bool, len(set))
		for id := range set {
			cset[id] = true
		}
		c.byKey[k] = cset
	}
	for k, v := range ix.rawValue {
		c.rawValue[k] = v
	}
	return c
}

func (ix *index) keyFor(e map[string]any) (key string, single any, singlePresent bool) {
	parts := make([]string, len(ix.spec.Fields))
	for i, f := range ix.spec.Fields {
		v, ok := FieldValue(e, f)
		parts[i] = keyPart(v, ok)
		if i == 0 {
			single, singlePresent = v, ok
		}
	}
	return compoundKey(parts), single, singlePresent
}

func (ix *index) insert(id string, e map[string]any) {
	k, single, present := ix.keyFor(e)
	set, ok := ix.byKey[k]
	if !ok {
		set = make(map[string]bool)
		ix.byKey[k] = set
	}
	set[id] = true
	if len(ix.spec.Fields) == 1 && present {
		ix.rawValue[k] = single
	}
}

func (ix *index) remove(id string, e map[string]any) {
	k, _, _ := ix.keyFor(e)
	set, ok := ix.byKey[k]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(ix.byKey, k)
		delete(ix.rawValue, k)
	}
}

// lookupEqual returns the ids whose key matches e's projection of the
// index's fields exactly.
func (ix *index) lookupEqual(e map[string]any) map[string]bool {
	k, _, _ := ix.keyFor(e)
	return ix.byKey[k]
}

// lookupValue is the single-field convenience form used by the query
// planner, which has a literal value rather than a full entity to key off.
func (ix *index) lookupValue(value any, present bool) map[string]bool {
	return ix.byKey[compoundKey([]string{keyPart(value, present)})]
}

// lookupIn unions the id sets for each value in values.
func (ix *index) lookupIn(values []any) map[string]bool {
	out := make(map[string]bool)
	for _, v := range values {
		for id := range ix.lookupValue(v, true) {
			out[id] = true
		}
	}
	return out
}

// RangeOp is a comparison operator usable against a single-field ordered
// index (spec.md §4.6 step 1: "range on an ordered index").
type RangeOp int

const (
	RangeGT RangeOp = iota
	RangeGTE
	RangeLT
	RangeLTE
)

// lookupRange scans the index's distinct values using less to compare,
// returning the union of ids whose value satisfies op against target. Only
// meaningful for single-field indexes; the query planner only routes range
// clauses to those.
func (ix *index) lookupRange(op RangeOp, target any, less func(a, b any) bool) map[string]bool {
	out := make(map[string]bool)
	for k, v := range ix.rawValue {
		var ok bool
		switch op {
		case RangeGT:
			ok = less(target, v)
		case RangeGTE:
			ok = !less(v, target)
		case RangeLT:
			ok = less(v, target)
		case RangeLTE:
			ok = !less(target, v)
		}
		if ok {
			for id := range ix.byKey[k] {
				out[id] = true
			}
		}
	}
	return out
}
