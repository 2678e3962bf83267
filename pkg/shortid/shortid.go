// Package shortid generates human-shareable identifiers such as IND-7KQ2MX.
package shortid

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

// alphabet omits 0/O and 1/I so ids survive being read out over the phone.
const alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const (
	IndentPrefix = "IND"
	TripPrefix   = "TRP"
	length       = 6
)

// Generator draws ids from a random source.
type Generator struct {
	rand io.Reader
}

func New() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewWithReader is used by tests to make ids deterministic.
func NewWithReader(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Next returns prefix-XXXXXX.
func (g *Generator) Next(prefix string) (string, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('-')
	for _, v := range buf {
		b.WriteByte(alphabet[int(v)%len(alphabet)])
	}
	return b.String(), nil
}

// Indent returns a new indent short id.
func (g *Generator) Indent() (string, error) {
	return g.Next(IndentPrefix)
}

// Trip returns a new trip short id.
func (g *Generator) Trip() (string, error) {
	return g.Next(TripPrefix)
}
