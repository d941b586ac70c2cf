package crud

import "fmt"

var updateOperatorNames = map[string]bool{
	"$increment": true, "$decrement": true, "$multiply": true, "$toggle": true,
	"$append": true, "$prepend": true, "$remove": true, "$set": true,
}

// ApplyPatch implements spec.md §4.7's update operators plus its deep-merge
// rule: "nested partial update deep-merges by field path; $set at any level
// replaces the subtree." patch's top level is always a field map; operator
// maps and nested object maps share the same {field: value} shape, so the
// same recursive merge handles both.
func ApplyPatch(collection string, current map[string]any, patch map[string]any) (map[string]any, error) {
	result := cloneMap(current)
	for field, patchValue := range patch {
		merged, err := mergeField(collection, field, result[field], patchValue)
		if err != nil {
			return nil, err
		}
		result[field] = merged
	}
	return result, nil
}

func mergeField(collection, field string, current any, patchValue any) (any, error) {
	m, isMap := patchValue.(map[string]any)
	if !isMap {
		return patchValue, nil // direct value is an implicit leaf $set
	}

	if op, operand, isOp := soleOperator(m); isOp {
		return applyOperator(collection, field, op, current, operand)
	}

	// Nested object: deep-merge each key against the corresponding subfield.
	currentMap, _ := current.(map[string]any)
	if currentMap == nil {
		currentMap = make(map[string]any)
	}
	next := cloneMap(currentMap)
	for k, v := range m {
		merged, err := mergeField(collection, field+"."+k, next[k], v)
		if err != nil {
			return nil, err
		}
		next[k] = merged
	}
	return next, nil
}

// soleOperator reports whether m is exactly one recognized update operator
// key, returning it and its operand.
func soleOperator(m map[string]any) (op string, operand any, ok bool) {
	if len(m) != 1 {
		return "", nil, false
	}
	for k, v := range m {
		if updateOperatorNames[k] {
			return k, v, true
		}
	}
	return "", nil, false
}

func applyOperator(collection, field, op string, current any, operand any) (any, error) {
	switch op {
	case "$set":
		return operand, nil
	case "$increment":
		return numericOp(collection, field, current, operand, func(a, b float64) float64 { return a + b })
	case "$decrement":
		return numericOp(collection, field, current, operand, func(a, b float64) float64 { return a - b })
	case "$multiply":
		return numericOp(collection, field, current, operand, func(a, b float64) float64 { return a * b })
	case "$toggle":
		b, ok := current.(bool)
		if !ok {
			return nil, &ValidationError{Collection: collection, Message: fmt.Sprintf("$toggle on non-bool field %q", field)}
		}
		return !b, nil
	case "$append":
		return appendOp(collection, field, current, operand, true)
	case "$prepend":
		return appendOp(collection, field, current, operand, false)
	case "$remove":
		arr, ok := current.([]any)
		if !ok {
			return nil, &ValidationError{Collection: collection, Message: fmt.Sprintf("$remove on non-array field %q", field)}
		}
		out := make([]any, 0, len(arr))
		for _, el := range arr {
			if el != operand {
				out = append(out, el)
			}
		}
		return out, nil
	default:
		return nil, &ValidationError{Collection: collection, Message: "unknown update operator " + op}
	}
}

func numericOp(collection, field string, current, operand any, fn func(a, b float64) float64) (any, error) {
	a, aOK := asFloat(current)
	b, bOK := asFloat(operand)
	if !aOK || !bOK {
		return nil, &ValidationError{Collection: collection, Message: fmt.Sprintf("numeric operator on non-numeric field %q", field)}
	}
	return fn(a, b), nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
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

// appendOp implements $append/$prepend: string concatenation when current is
// a string, array push/unshift when current is an array (spec.md §4.7:
// "string concatenation or array push").
func appendOp(collection, field string, current, operand any, toEnd bool) (any, error) {
	switch c := current.(type) {
	case string:
		s, ok := operand.(string)
		if !ok {
			return nil, &ValidationError{Collection: collection, Message: fmt.Sprintf("$append/$prepend operand must be a string for field %q", field)}
		}
		if toEnd {
			return c + s, nil
		}
		return s + c, nil
	case []any:
		if toEnd {
			return append(append([]any{}, c...), operand), nil
		}
		return append([]any{operand}, c...), nil
	case nil:
		if toEnd {
			return []any{operand}, nil
		}
		return []any{operand}, nil
	default:
		return nil, &ValidationError{Collection: collection, Message: fmt.Sprintf("$append/$prepend on unsupported field %q", field)}
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
