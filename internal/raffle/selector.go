package raffle

import (
	"math/rand/v2"
	"sync"
)

// Selector draws one prize from a table with probability proportional to
// weight. It keeps no memory of past draws; fairness holds per draw, not
// across a run.
type Selector struct {
	rng *rand.Rand
	mu  sync.Mutex
}

// NewSelector returns a selector with a randomly seeded source.
func NewSelector() *Selector {
	return &Selector{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededSelector returns a selector with a fixed seed, for reproducible
// draws in tests.
func NewSeededSelector(seed uint64) *Selector {
	return &Selector{rng: rand.New(rand.NewPCG(seed, 0))}
}

// Select performs a cumulative-distribution draw over prizes in their given
// order. It reports false when the table is empty or all weights are zero.
func (s *Selector) Select(prizes []Prize) (Prize, bool) {
	total := TotalWeight(prizes)
	if total <= 0 {
		return Prize{}, false
	}

	s.mu.Lock()
	r := s.rng.IntN(total)
	s.mu.Unlock()

	for _, p := range prizes {
		if r < p.Weight {
			return p, true
		}
		r -= p.Weight
	}

	// Unreachable: r starts below the total weight.
	return Prize{}, false
}
