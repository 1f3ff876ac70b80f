package service

import (
	"math/rand"
	"time"
)

// Randomizer is the source of every random choice made while generating a timetable.
type Randomizer interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
	// Perm returns a random permutation of [0, n).
	Perm(n int) []int
}

// SeededRandomizer is a deterministic Randomizer owned by a single generation run.
type SeededRandomizer struct {
	seed int64
	rng  *rand.Rand
}

// NewSeededRandomizer builds a randomizer from a fixed seed.
func NewSeededRandomizer(seed int64) *SeededRandomizer {
	return &SeededRandomizer{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

// NewClockSeed derives a fresh seed for callers that did not supply one.
func NewClockSeed() int64 {
	return time.Now().UnixNano()
}

// Seed returns the seed the randomizer was built with.
func (r *SeededRandomizer) Seed() int64 {
	return r.seed
}

// Intn implements Randomizer.
func (r *SeededRandomizer) Intn(n int) int {
	return r.rng.Intn(n)
}

// Perm implements Randomizer.
func (r *SeededRandomizer) Perm(n int) []int {
	return r.rng.Perm(n)
}
