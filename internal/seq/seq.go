// Package seq provides a seeded, platform-independent pseudo-random stream.
// The state advances with integer arithmetic only, so identical seeds yield
// identical sequences on every platform.
package seq

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"time"

	"tradelab/internal/domain"
)

const (
	multiplier = 6364136223846793005
	increment  = 1442695040888963407
	// 2^-53, exact in float64.
	unit = 1.0 / (1 << 53)
)

// Generator is a 64-bit linear congruential generator. It is not safe for
// concurrent use; callers derive one stream per goroutine.
type Generator struct {
	seed  uint64
	state uint64
}

// New returns a Generator positioned at the start of the stream for seed.
func New(seed uint64) *Generator {
	return &Generator{seed: seed, state: seed}
}

// Seed returns the seed the generator was created with.
func (g *Generator) Seed() uint64 { return g.seed }

// Uint64 advances the stream and returns the raw state.
func (g *Generator) Uint64() uint64 {
	g.state = g.state*multiplier + increment
	return g.state
}

// Float64 returns a value in [0, 1) built from the top 53 bits of the state.
func (g *Generator) Float64() float64 {
	return float64(g.Uint64()>>11) * unit
}

// Intn returns a value in [0, n). It returns 0 when n <= 0.
func (g *Generator) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(g.Float64() * float64(n))
}

// Range returns a value in [lo, hi).
func (g *Generator) Range(lo, hi float64) float64 {
	return lo + (hi-lo)*g.Float64()
}

// Normalish returns an approximately standard-normal value: the centered sum
// of four uniforms, scaled to unit variance. Only addition and
// multiplication are used.
func (g *Generator) Normalish() float64 {
	s := g.Float64() + g.Float64() + g.Float64() + g.Float64()
	// Var of the sum is 4/12; 1.7320508075688772 = sqrt(3).
	return (s - 2) * 1.7320508075688772
}

// Derive returns an independent child stream keyed by labels. Drawing from
// the child never moves the parent, and the same labels always produce the
// same child.
func (g *Generator) Derive(labels ...string) *Generator {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], g.seed)
	h.Write(buf[:])
	for _, l := range labels {
		h.Write([]byte(l))
		h.Write([]byte{0})
	}
	return New(h.Sum64())
}

// Seed hashes the run inputs into a stream seed: each strategy's id, type,
// ticker count and tickers, both date boundaries, and capital in cents.
func Seed(strategies []domain.Strategy, start, end time.Time, capital float64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	str := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}

	put(uint64(len(strategies)))
	for _, s := range strategies {
		str(s.ID)
		str(string(s.Type))
		put(uint64(len(s.Tickers)))
		for _, t := range s.Tickers {
			str(t)
		}
	}
	str(start.Format("2006-01-02"))
	str(end.Format("2006-01-02"))
	put(uint64(int64(math.Round(capital * 100))))
	return h.Sum64()
}
