package cache

import (
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

// DefaultSeed seeds the random replacement when no source is given.
const DefaultSeed = 1000

// RandSource provides the random numbers used by random replacement.
type RandSource = tagging.RandSource

// NewRandSource returns a pseudo-random source seeded once.
func NewRandSource(seed int64) RandSource {
	return tagging.NewRandSource(seed)
}

// Builder can build caches.
type Builder struct {
	config     Config
	randSource RandSource
}

// MakeBuilder creates a new builder with a small direct-mapped L1 data cache
// as the default configuration.
func MakeBuilder() Builder {
	return Builder{
		config: Config{
			Level:         LevelData1,
			NumBlocks:     64,
			WordsPerBlock: 1,
			Associativity: 1,
			Replacement:   LRU,
			WriteScheme:   WriteBack,
			Allocation:    Allocate,
		},
	}
}

// WithConfig sets the geometry and the policies of the cache.
func (b Builder) WithConfig(config Config) Builder {
	b.config = config
	return b
}

// WithRandSource sets the random source used by random replacement. Caches
// of the same simulation share one source.
func (b Builder) WithRandSource(src RandSource) Builder {
	b.randSource = src
	return b
}

// Build validates the configuration and builds a cache with every line
// invalid.
func (b Builder) Build(name string) (*Comp, error) {
	decoder, err := NewDecoder(b.config)
	if err != nil {
		return nil, err
	}

	comp := &Comp{
		name:    name,
		config:  b.config,
		decoder: decoder,
		tags: tagging.NewTagArray(
			b.config.NumSets(),
			b.config.Associativity,
		),
		victimFinder: b.createVictimFinder(),
		policy:       makeWritePolicy(b.config),
	}

	return comp, nil
}

func (b Builder) createVictimFinder() tagging.VictimFinder {
	if b.config.IsDirectMapped() {
		return directMappedVictimFinder{}
	}

	switch b.config.Replacement {
	case LRU:
		return tagging.NewLRUVictimFinder()
	case Random:
		src := b.randSource
		if src == nil {
			src = NewRandSource(DefaultSeed)
		}

		return tagging.NewRandomVictimFinder(src)
	default:
		panic("unknown replacement policy: " + b.config.Replacement.String())
	}
}

// directMappedVictimFinder always returns the only line of the set. It never
// draws random numbers.
type directMappedVictimFinder struct{}

func (directMappedVictimFinder) FindVictim(set *tagging.Set) tagging.Line {
	return set.Lines[0]
}
