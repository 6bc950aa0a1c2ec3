package tagging

import "math/rand"

// A VictimFinder decides which line of a full set should be evicted.
type VictimFinder interface {
	FindVictim(set *Set) Line
}

// LRUVictimFinder evicts the least recently used line.
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns the line with the largest recency. Ties go to the line
// with the lowest way index.
func (e *LRUVictimFinder) FindVictim(set *Set) Line {
	victim := set.Lines[0]
	for _, l := range set.Lines[1:] {
		if l.Recency > victim.Recency {
			victim = l
		}
	}

	return victim
}

// RandSource provides the random numbers used by the random victim finder.
type RandSource interface {
	// Intn returns a number in [0, n).
	Intn(n int) int
}

// NewRandSource returns a pseudo-random source seeded once.
func NewRandSource(seed int64) RandSource {
	return rand.New(rand.NewSource(seed))
}

// RandomVictimFinder evicts a line chosen uniformly among all the ways.
type RandomVictimFinder struct {
	rand RandSource
}

// NewRandomVictimFinder returns a random evictor that draws from src.
func NewRandomVictimFinder(src RandSource) *RandomVictimFinder {
	return &RandomVictimFinder{rand: src}
}

// FindVictim returns a random line of the set.
func (e *RandomVictimFinder) FindVictim(set *Set) Line {
	wayID := e.rand.Intn(len(set.Lines))
	return set.Lines[wayID]
}
