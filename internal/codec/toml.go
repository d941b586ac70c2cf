package codec

import (
	"bytes"

	"github.com/BurntSushi/toml"
)

// TOMLCodec encodes a collection as a TOML document with one array-of-
// tables, `[[entities]]`. TOML has no null literal, so per spec.md §4.1
// ("TOML strips null on encode") every nil-valued field is dropped before
// marshaling; decode never reintroduces them.
type TOMLCodec struct{}

func NewTOML() *TOMLCodec { return &TOMLCodec{} }

func (c *TOMLCodec) Name() string         { return "toml" }
func (c *TOMLCodec) Extensions() []string { return []string{"toml"} }

type tomlDocument struct {
	Entities []map[string]any `toml:"entities"`
}

func (c *TOMLCodec) Encode(entities []map[string]any) ([]byte, error) {
	stripped := make([]map[string]any, len(entities))
	for i, e := range entities {
		stripped[i] = stripNulls(e)
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(tomlDocument{Entities: stripped}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *TOMLCodec) Decode(data []byte) ([]map[string]any, error) {
	if len(data) == 0 {
		return []map[string]any{}, nil
	}
	var doc tomlDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Entities == nil {
		return []map[string]any{}, nil
	}
	return doc.Entities, nil
}

// stripNulls returns a shallow copy of v with nil-valued entries removed,
// recursing into nested maps; typed nil slices are kept and values inside
// arrays are not stripped. TOML cannot represent null,
// so this is the encode-time projection spec.md documents for this codec.
func stripNulls(v map[string]any) map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		if val == nil {
			continue
		}
		if nested, ok := val.(map[string]any); ok {
			out[k] = stripNulls(nested)
			continue
		}
		out[k] = val
	}
	return out
}
