package crud

import (
	"context"

	"github.com/inkwell-db/inkwell/internal/query"
)

// Upsert implements spec.md §4.7's upsert: find the first entity matching
// where via the engine's own query pipeline; if one exists, apply update to
// it and tag the result __action: "updated"; otherwise create createPayload
// tagged __action: "created". Uniqueness/FK checks apply in both branches
// since both go through the normal update/create path.
func (e *Engine) Upsert(collName string, where, createPayload, updatePayload map[string]any) (map[string]any, error) {
	c, err := e.coll(collName)
	if err != nil {
		return nil, err
	}

	limit := 1
	page, err := e.Pipeline.QueryPage(context.Background(), c, query.Config{Where: where, Limit: &limit})
	if err != nil {
		return nil, &OperationError{Collection: collName, Message: "upsert findOne failed", Cause: err}
	}

	if len(page.Items) > 0 {
		id, _ := page.Items[0]["id"].(string)
		updated, err := e.update(c, id, updatePayload)
		if err != nil {
			return nil, err
		}
		tagged := cloneMap(updated)
		tagged["__action"] = "updated"
		return tagged, nil
	}

	created, err := e.create(c, createPayload)
	if err != nil {
		return nil, err
	}
	tagged := cloneMap(created)
	tagged["__action"] = "created"
	return tagged, nil
}
