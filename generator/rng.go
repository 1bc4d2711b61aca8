package generator

import "math/rand"

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position counts draws from the underlying source, enabling replay.
type RNG struct {
	seed int64
	src  *countingSource
	rand *rand.Rand
}

type countingSource struct {
	rand.Source64
	pos int64
}

func (s *countingSource) Int63() int64 {
	s.pos++
	return s.Source64.Int63()
}

func (s *countingSource) Uint64() uint64 {
	s.pos++
	return s.Source64.Uint64()
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	src := &countingSource{Source64: rand.NewSource(seed).(rand.Source64)}
	return &RNG{seed: seed, src: src, rand: rand.New(src)}
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a random integer in [0, n). n must be positive.
func (r *RNG) Intn(n int) int {
	return r.rand.Intn(n)
}

// WeightedSelect returns an index chosen by weighted random selection.
// Entries with a non-positive weight are never selected. It returns -1
// when no entry has a positive weight.
func (r *RNG) WeightedSelect(weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return -1
	}
	roll := r.rand.Intn(total)
	cumulative := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		if roll < cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// Position returns the number of draws made since creation.
func (r *RNG) Position() int64 {
	return r.src.pos
}

// RestoreRNG creates an RNG and advances it to the given position.
// This reproduces the exact RNG state of an interrupted run.
func RestoreRNG(seed int64, position int64) *RNG {
	rng := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		rng.src.Int63()
	}
	return rng
}
