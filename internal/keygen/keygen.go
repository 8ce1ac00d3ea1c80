// Package keygen produces the short random identifiers used as link
// tokens and user IDs.
package keygen

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Alphabet is the set of symbols keys are drawn from: upper case, lower
// case, digits.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength is the key length used when the config does not override it.
const DefaultLength = 6

// Generator produces fixed-length random keys over Alphabet.
type Generator struct {
	length int
}

// New returns a Generator producing keys of the given length. Lengths
// below one fall back to DefaultLength.
func New(length int) *Generator {
	if length < 1 {
		length = DefaultLength
	}
	return &Generator{length: length}
}

// Generate returns a fresh random key. Uniqueness against any store is
// the caller's concern.
func (g *Generator) Generate() string {
	var result strings.Builder
	result.Grow(g.length)
	alphabetSize := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < g.length; i++ {
		randomIndex, _ := rand.Int(rand.Reader, alphabetSize)
		result.WriteByte(Alphabet[randomIndex.Int64()])
	}

	return result.String()
}
