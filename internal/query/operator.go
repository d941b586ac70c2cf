package query

import "sync"

// Operator is a plugin-installed custom where-clause operator (spec.md
// §4.10: "operators? ... every operator has evaluate"). Types lists the
// runtime field-type vocabulary ("string","number","bool","array","object")
// the operator applies to; an operator whose list doesn't include the
// field's observed type is silently ignored (spec.md §4.6 step 2).
type Operator interface {
	Name() string
	Types() []string
	Evaluate(fieldValue any, present bool, operand any) bool
}

// OperatorRegistry holds plugin-installed custom operators, keyed by their
// `$name` where-clause key.
type OperatorRegistry struct {
	mu  sync.RWMutex
	ops map[string]Operator
}

func NewOperatorRegistry() *OperatorRegistry {
	return &OperatorRegistry{ops: make(map[string]Operator)}
}

func (r *OperatorRegistry) Register(op Operator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.Name()] = op
}

func (r *OperatorRegistry) Lookup(name string) (Operator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

func runtimeType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case int, int32, int64, float32, float64:
		return "number"
	case bool:
		return "bool"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return ""
	}
}

func typeListContains(types []string, t string) bool {
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}
