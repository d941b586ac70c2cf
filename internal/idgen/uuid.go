package idgen

import "github.com/google/uuid"

// UUIDGenerator is an alternate built-in id generator producing RFC 4122
// v4 uuids, for callers who want cross-process-unique ids rather than the
// default hash generator's process-local short strings.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator { return &UUIDGenerator{} }

func (g *UUIDGenerator) Name() string { return "uuid" }

func (g *UUIDGenerator) Generate() string { return uuid.NewString() }
