package idgen

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
	"time"
)

// base36Alphabet is the character set for base36 encoding (0-9, a-z).
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// DefaultLength is the base36 digit count the built-in "hash" generator
// produces. 9 base36 digits is comfortably past 46 bits of entropy, enough
// that a single process minting a few million ids never collides in
// practice.
const DefaultLength = 9

// EncodeBase36 converts a byte slice to a base36 string of specified length.
func EncodeBase36(data []byte, length int) string {
	// Convert bytes to big integer
	num := new(big.Int).SetBytes(data)

	// Convert to base36
	var result strings.Builder
	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	// Build the string in reverse
	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	// Reverse the string
	for i := len(chars) - 1; i >= 0; i-- {
		result.WriteByte(chars[i])
	}

	// Pad with zeros if needed
	str := result.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}

	// Truncate to exact length if needed (keep least significant digits)
	if len(str) > length {
		str = str[len(str)-length:]
	}

	return str
}

// HashGenerator is the built-in default id generator (spec.md §4.7 step 2:
// "built-in default is a short collision-resistant random string"). It mixes
// crypto/rand output with a monotonic counter and the current time through
// sha256 before base36-encoding, so a burst of ids minted within the same
// nanosecond tick still stay distinct within one process.
type HashGenerator struct {
	length  int
	counter atomic.Uint64
}

// NewHashGenerator builds a HashGenerator producing base36 ids of the given
// digit length.
func NewHashGenerator(length int) *HashGenerator {
	if length <= 0 {
		length = DefaultLength
	}
	return &HashGenerator{length: length}
}

func (g *HashGenerator) Name() string { return "hash" }

// Generate returns a new random base36 string. It never fails: if
// crypto/rand is unavailable (practically never, on any real target), it
// falls back to time- and counter-derived entropy rather than panicking.
func (g *HashGenerator) Generate() string {
	n := g.counter.Add(1)
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		content := fmt.Sprintf("%d|%d", time.Now().UnixNano(), n)
		sum := sha256.Sum256([]byte(content))
		return EncodeBase36(sum[:], g.length)
	}
	content := fmt.Sprintf("%x|%d|%d", buf, time.Now().UnixNano(), n)
	sum := sha256.Sum256([]byte(content))
	return EncodeBase36(sum[:], g.length)
}
