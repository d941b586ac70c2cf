package crud

import "github.com/inkwell-db/inkwell/internal/collection"

// GlobalHooks holds plugin-installed hooks that run before any collection's
// own local hooks (spec.md §4.7 step 5 and §4.10: "append each plugin's
// global hooks to the appropriate chain preserving registration order").
type GlobalHooks struct {
	BeforeCreate []collection.Hook
	AfterCreate  []collection.Hook
	BeforeUpdate []collection.Hook
	AfterUpdate  []collection.Hook
	BeforeDelete []collection.Hook
	AfterDelete  []collection.Hook
}

// runBefore runs global hooks then collection-local hooks, in registration
// order, threading the (possibly transformed) pending payload through each.
// A returned error aborts the operation as an OperationError.
func runBefore(collName string, global, local []collection.Hook, pending map[string]any) (map[string]any, error) {
	for _, chain := range [][]collection.Hook{global, local} {
		for _, h := range chain {
			next, err := h(collName, pending)
			if err != nil {
				return nil, &OperationError{Collection: collName, Message: "hook error", Cause: err}
			}
			if next != nil {
				pending = next
			}
		}
	}
	return pending, nil
}

// runAfter runs observe-only hooks; a returned error still surfaces as an
// OperationError even though the mutation has already committed (spec.md
// §4.7.1: "OperationError | ... hook unknown error").
func runAfter(collName string, global, local []collection.Hook, committed map[string]any) error {
	for _, chain := range [][]collection.Hook{global, local} {
		for _, h := range chain {
			if _, err := h(collName, committed); err != nil {
				return &OperationError{Collection: collName, Message: "hook error", Cause: err}
			}
		}
	}
	return nil
}
