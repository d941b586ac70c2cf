package codec

import (
	"encoding/json"

	toon "github.com/toon-format/toon-go"
)

// TOONCodec encodes a collection using the compact tabular TOON format.
// toon-go type-checks its input strictly, so entities are round-tripped
// through encoding/json first to normalize them into the plain
// map[string]any/[]any/string/float64 shapes it accepts — the same
// JSON-then-TOON workaround the teacher's own format adapter uses.
type TOONCodec struct{}

func NewTOON() *TOONCodec { return &TOONCodec{} }

func (c *TOONCodec) Name() string         { return "toon" }
func (c *TOONCodec) Extensions() []string { return []string{"toon"} }

func (c *TOONCodec) Encode(entities []map[string]any) ([]byte, error) {
	if entities == nil {
		entities = []map[string]any{}
	}
	jsonData, err := json.Marshal(entities)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(jsonData, &generic); err != nil {
		return nil, err
	}
	return toon.Marshal(generic)
}

func (c *TOONCodec) Decode(data []byte) ([]map[string]any, error) {
	if len(data) == 0 {
		return []map[string]any{}, nil
	}
	var entities []map[string]any
	if err := toon.Unmarshal(data, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}
