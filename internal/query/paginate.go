package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/inkwell-db/inkwell/internal/collate"
	"github.com/inkwell-db/inkwell/internal/entity"
)

// Page is cursor pagination's result shape (spec.md §4.6 step 5: "a cursor
// page returns {items, nextCursor?}").
type Page struct {
	Items      []map[string]any
	NextCursor *string
}

type cursorPayload struct {
	Values []any  `json:"v"`
	ID     string `json:"id"`
}

// EncodeCursor builds an opaque cursor string from the last item of a page
// under the given sort spec.
func EncodeCursor(item map[string]any, sortSpecs []SortSpec) (string, error) {
	values := make([]any, len(sortSpecs))
	for i, spec := range sortSpecs {
		v, _ := entity.FieldValue(item, spec.Path)
		values[i] = v
	}
	id, _ := entity.FieldValue(item, "id")
	idStr, _ := id.(string)
	payload := cursorPayload{Values: values, ID: idStr}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("query: encode cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

func decodeCursor(cursor string) (cursorPayload, error) {
	data, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return cursorPayload{}, fmt.Errorf("query: decode cursor: %w", err)
	}
	var payload cursorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return cursorPayload{}, fmt.Errorf("query: decode cursor: %w", err)
	}
	return payload, nil
}

// applyPagination implements spec.md §4.6 step 5. sorted must already be in
// final sort order. When cfg.Cursor is set, it seeks past the encoded
// position using the same sort order and returns a Page; otherwise it
// applies offset/limit and returns a Page whose NextCursor is nil.
func applyPagination(c *collate.Collator, sorted []map[string]any, sortSpecs []SortSpec, cfg Config) (Page, error) {
	if cfg.Cursor != nil {
		return paginateByCursor(c, sorted, sortSpecs, *cfg.Cursor, cfg.Limit)
	}

	offset := 0
	if cfg.Offset != nil {
		offset = *cfg.Offset
	}
	if offset > len(sorted) {
		offset = len(sorted)
	}
	page := sorted[offset:]
	if cfg.Limit != nil && *cfg.Limit < len(page) {
		page = page[:*cfg.Limit]
	}
	return Page{Items: page}, nil
}

func paginateByCursor(c *collate.Collator, sorted []map[string]any, sortSpecs []SortSpec, cursor string, limit *int) (Page, error) {
	payload, err := decodeCursor(cursor)
	if err != nil {
		return Page{}, err
	}

	start := len(sorted)
	for i, item := range sorted {
		if afterCursor(c, item, sortSpecs, payload) {
			start = i
			break
		}
	}
	rest := sorted[start:]
	if limit == nil || *limit >= len(rest) {
		return Page{Items: rest}, nil
	}
	page := rest[:*limit]
	next, err := EncodeCursor(page[len(page)-1], sortSpecs)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: page, NextCursor: &next}, nil
}

// afterCursor reports whether item sorts strictly after the cursor's
// recorded tuple under sortSpecs, breaking ties by id.
func afterCursor(c *collate.Collator, item map[string]any, sortSpecs []SortSpec, payload cursorPayload) bool {
	for i, spec := range sortSpecs {
		v, _ := entity.FieldValue(item, spec.Path)
		var want any
		if i < len(payload.Values) {
			want = payload.Values[i]
		}
		cmp := c.Compare(v, want)
		if spec.Direction == collate.Desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp > 0
		}
	}
	id, _ := entity.FieldValue(item, "id")
	idStr, _ := id.(string)
	return idStr > payload.ID
}
