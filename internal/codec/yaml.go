package codec

import "gopkg.in/yaml.v3"

// YAMLCodec encodes a collection as a YAML sequence of mappings. Null
// values are preserved, matching yaml.v3's own round-trip semantics.
type YAMLCodec struct{}

func NewYAML() *YAMLCodec { return &YAMLCodec{} }

func (c *YAMLCodec) Name() string         { return "yaml" }
func (c *YAMLCodec) Extensions() []string { return []string{"yaml", "yml"} }

func (c *YAMLCodec) Encode(entities []map[string]any) ([]byte, error) {
	if entities == nil {
		entities = []map[string]any{}
	}
	return yaml.Marshal(entities)
}

func (c *YAMLCodec) Decode(data []byte) ([]map[string]any, error) {
	if len(data) == 0 {
		return []map[string]any{}, nil
	}
	var entities []map[string]any
	if err := yaml.Unmarshal(data, &entities); err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []map[string]any{}
	}
	return entities, nil
}
