package persistence

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/inkwell-db/inkwell/internal/codec"
	"github.com/inkwell-db/inkwell/internal/collection"
)

// versionMarkerID is the reserved entity id carrying a collection's
// _version stamp inside the flat entity array every codec actually speaks
// (spec.md §4.3's file layouts describe an object keyed by id with a
// sibling "_version" key; our codecs round-trip arrays, the idiomatic Go
// shape for every format in spec.md §6 including JSONL/TOML, so the version
// stamp rides along as one reserved pseudo-entity instead of a sibling
// object key). It is never installed into a collection's Store — the
// loader strips it before calling Store.LoadAll, satisfying spec.md §3's
// invariant that "_version" is never a real entity id.
const versionMarkerID = "_version"

// collectionTagField marks which collection an entity belongs to when more
// than one collection shares a single file path (spec.md §4.3 "multi-
// collection file"). Single-collection groups never add this field, so the
// common case's file stays a plain entity array.
const collectionTagField = "_collection"

// groupsByPath partitions cols by FilePath, skipping collections that don't
// declare one (spec.md §3: "optional file path" — those collections are
// in-memory only and never persisted).
func groupsByPath(cols []*collection.Collection) map[string][]*collection.Collection {
	groups := make(map[string][]*collection.Collection)
	for _, c := range cols {
		if c.Config.FilePath == "" {
			continue
		}
		groups[c.Config.FilePath] = append(groups[c.Config.FilePath], c)
	}
	return groups
}

// codecFor resolves the codec registered for path's extension.
func codecFor(registry *codec.Registry, path string) (codec.Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	c, ok := registry.Lookup(ext)
	if !ok {
		return nil, &UnsupportedFormatError{Extension: ext}
	}
	return c, nil
}

// decodedGroup is one file's contents split back out per collection name.
type decodedGroup struct {
	entities map[string]map[string]map[string]any // collection -> id -> entity
	versions map[string]int                       // collection -> detected version (0 if no marker)
	hasMarker map[string]bool
}

// splitDecoded separates a flat decoded entity array into per-collection
// entity maps and version markers, following the single-vs-multi grouping
// tag convention (collectionTagField is only present/consulted when the
// group has more than one collection).
func splitDecoded(group []*collection.Collection, decoded []map[string]any) decodedGroup {
	out := decodedGroup{
		entities:  make(map[string]map[string]map[string]any, len(group)),
		versions:  make(map[string]int, len(group)),
		hasMarker: make(map[string]bool, len(group)),
	}
	for _, c := range group {
		out.entities[c.Config.Name] = make(map[string]map[string]any)
	}

	solo := ""
	if len(group) == 1 {
		solo = group[0].Config.Name
	}

	for _, e := range decoded {
		name := solo
		if name == "" {
			if tag, ok := e[collectionTagField].(string); ok {
				name = tag
			}
		}
		if name == "" {
			continue // can't attribute this entity to any declared collection
		}
		if _, known := out.entities[name]; !known {
			continue
		}

		id, _ := e["id"].(string)
		if id == versionMarkerID {
			out.versions[name] = versionFromMarker(e)
			out.hasMarker[name] = true
			continue
		}
		if id == "" {
			continue
		}
		clean := stripReservedFields(e)
		out.entities[name][id] = clean
	}
	return out
}

func versionFromMarker(e map[string]any) int {
	switch v := e["value"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

func stripReservedFields(e map[string]any) map[string]any {
	if _, ok := e[collectionTagField]; !ok {
		return e
	}
	out := make(map[string]any, len(e))
	for k, v := range e {
		if k == collectionTagField {
			continue
		}
		out[k] = v
	}
	return out
}

// encodeGroup flattens every collection in group back into one entity
// array, tagging entities with collectionTagField when the group holds more
// than one collection and prefixing a version marker for every versioned
// collection.
func encodeGroup(group []*collection.Collection) []map[string]any {
	multi := len(group) > 1
	var out []map[string]any
	for _, c := range group {
		if c.Config.Version > 0 || len(c.Config.Migrations) > 0 {
			marker := map[string]any{"id": versionMarkerID, "value": c.Config.Version}
			if multi {
				marker[collectionTagField] = c.Config.Name
			}
			out = append(out, marker)
		}
		for _, e := range c.Store.All() {
			encoded := e
			if c.Config.Schema != nil {
				if v, err := c.Config.Schema.Encode(e); err == nil {
					encoded = v
				}
			}
			tagged := encoded
			if multi {
				tagged = make(map[string]any, len(encoded)+1)
				for k, v := range encoded {
					tagged[k] = v
				}
				tagged[collectionTagField] = c.Config.Name
			}
			out = append(out, tagged)
		}
	}
	return out
}
