package entity

import (
	"fmt"
	"strconv"
)

// Sentinel values let index/group keys distinguish a field that is present
// with value null from a field that is absent entirely (spec.md Design
// Notes: "absent field and field present with null must be distinct").
// They're package-internal and never returned to a caller outside entity.
type sentinel byte

const (
	sentinelNull sentinel = iota
	sentinelAbsent
)

// keyPart renders one field's contribution to an index or group key.
// present=false (the field was never in the entity) and value==nil (the
// field is present but explicitly null) produce different, stable strings.
func keyPart(value any, present bool) string {
	if !present {
		return "\x00absent"
	}
	if value == nil {
		return "\x00null"
	}
	return strconv.Quote(fmt.Sprintf("%T:%v", value, value))
}

// compoundKey joins per-field key parts with a separator byte that cannot
// occur in any keyPart output (keyPart quotes values, so control bytes such
// as \x01 are escaped).
func compoundKey(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "\x01" + p
	}
	return out
}
