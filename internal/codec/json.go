package codec

import "encoding/json"

// JSONCodec encodes a collection as a pretty-printed JSON array. It
// preserves null values on both encode and decode.
type JSONCodec struct{}

func NewJSON() *JSONCodec { return &JSONCodec{} }

func (c *JSONCodec) Name() string         { return "json" }
func (c *JSONCodec) Extensions() []string { return []string{"json"} }

func (c *JSONCodec) Encode(entities []map[string]any) ([]byte, error) {
	if entities == nil {
		entities = []map[string]any{}
	}
	return json.MarshalIndent(entities, "", "  ")
}

func (c *JSONCodec) Decode(data []byte) ([]map[string]any, error) {
	if len(data) == 0 {
		return []map[string]any{}, nil
	}
	var entities []map[string]any
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}
