/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package chooser

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// Color is an opaque RGB value handed to the presentation layer.
type Color struct {
	R, G, B uint8
}

// Gray is the neutral marker color used in group mode until teams are assigned.
var Gray = Color{R: 0x80, G: 0x80, B: 0x80}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	_, err := fmt.Sscanf(string(text), "#%02x%02x%02x", &c.R, &c.G, &c.B)
	if err != nil {
		return fmt.Errorf("parse color %q: %w", text, err)
	}

	return nil
}

// RandomSource supplies every random decision a session makes.
type RandomSource interface {
	// IntN returns a uniform value in [0, n). n must be positive.
	IntN(n int) int
	Color() Color
}

type pcgSource struct {
	r *rand.Rand
}

// NewSeededSource returns a reproducible source. Not safe for concurrent use.
func NewSeededSource(seed uint64) RandomSource {
	return &pcgSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewSource returns a source seeded from crypto/rand.
func NewSource() (RandomSource, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}

	return NewSeededSource(binary.LittleEndian.Uint64(b[:])), nil
}

func (s *pcgSource) IntN(n int) int {
	return s.r.IntN(n)
}

func (s *pcgSource) Color() Color {
	return Color{
		R: uint8(s.r.UintN(256)),
		G: uint8(s.r.UintN(256)),
		B: uint8(s.r.UintN(256)),
	}
}

// Sample picks k distinct indices from [0, n) without replacement, in pick
// order. k is clamped to n.
func Sample(rs RandomSource, n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}

	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}

	picked := make([]int, 0, k)
	for range k {
		j := rs.IntN(len(pool))
		picked = append(picked, pool[j])
		pool = append(pool[:j], pool[j+1:]...)
	}

	return picked
}
