package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// ProseOptions configures the line-oriented prose codec. spec.md §1 and §6
// treat the prose format's exact syntax as an external collaborator concern
// ("the specific syntax of a prose-template format beyond how the core uses
// it" is explicitly out of scope) — only that the core can drive a
// configurable line format through the same Codec contract as every other
// built-in. This is one reasonable rendering of that contract: one record
// per line, fields joined by a delimiter as "key=value" pairs.
type ProseOptions struct {
	// FieldDelimiter separates key=value pairs within a record line.
	FieldDelimiter string
	// KeyValueSeparator separates a field's key from its value.
	KeyValueSeparator string
}

// DefaultProseOptions returns the codec's out-of-the-box configuration:
// " | " between fields, "=" between key and value.
func DefaultProseOptions() ProseOptions {
	return ProseOptions{FieldDelimiter: " | ", KeyValueSeparator: "="}
}

// ProseCodec is the built-in configurable line-oriented format.
type ProseCodec struct {
	opts ProseOptions
}

// NewProse builds a ProseCodec with the given options.
func NewProse(opts ProseOptions) *ProseCodec {
	if opts.FieldDelimiter == "" {
		opts.FieldDelimiter = " | "
	}
	if opts.KeyValueSeparator == "" {
		opts.KeyValueSeparator = "="
	}
	return &ProseCodec{opts: opts}
}

func (c *ProseCodec) Name() string         { return "prose" }
func (c *ProseCodec) Extensions() []string { return []string{"prose", "txt"} }

func (c *ProseCodec) Encode(entities []map[string]any) ([]byte, error) {
	var b strings.Builder
	for _, e := range entities {
		fields := make([]string, 0, len(e))
		for k, v := range e {
			fields = append(fields, k+c.opts.KeyValueSeparator+proseValue(v))
		}
		b.WriteString(strings.Join(fields, c.opts.FieldDelimiter))
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

func (c *ProseCodec) Decode(data []byte) ([]map[string]any, error) {
	entities := []map[string]any{}
	lines := strings.Split(string(data), "\n")
	for lineNum, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entity := make(map[string]any)
		for _, field := range strings.Split(line, c.opts.FieldDelimiter) {
			key, value, ok := strings.Cut(field, c.opts.KeyValueSeparator)
			if !ok {
				return nil, fmt.Errorf("prose: line %d: malformed field %q", lineNum+1, field)
			}
			// id values stay strings so a numeric-looking id round-trips.
			if key == "id" {
				entity[key] = value
				continue
			}
			entity[key] = proseParseValue(value)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// proseValue renders a value for a prose line. Nested structures fall back
// to a compact placeholder since prose is documented as a flat, readable
// format, not a general tree serialization.
func proseValue(v any) string {
	if v == nil {
		return "null"
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// proseParseValue recovers a typed value from its prose rendering: "null"
// becomes nil, "true"/"false" become bool, numeric-looking tokens become
// float64 (matching how the JSON codec represents numbers), everything else
// stays a string.
func proseParseValue(s string) any {
	switch s {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
