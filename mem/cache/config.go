package cache

import (
	"fmt"
	"math/bits"
)

// Level identifies the place of a cache in the hierarchy.
type Level int

// The instruction cache and the three data-cache levels.
const (
	LevelInstruction Level = iota
	LevelData1
	LevelData2
	LevelData3
)

// MaxDataLevel is the deepest data-cache level that can be configured.
const MaxDataLevel = 3

// DataLevel returns the data-cache level with the given 1-based number.
func DataLevel(n int) Level {
	return Level(n)
}

// IsData returns true for data-cache levels.
func (l Level) IsData() bool {
	return l >= LevelData1 && l <= LevelData3
}

func (l Level) String() string {
	switch l {
	case LevelInstruction:
		return "I-cache"
	case LevelData1, LevelData2, LevelData3:
		return fmt.Sprintf("L%d D-cache", int(l))
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ReplacementPolicy selects the victim of a full set.
type ReplacementPolicy int

// The supported replacement policies.
const (
	LRU ReplacementPolicy = iota
	Random
)

func (p ReplacementPolicy) String() string {
	switch p {
	case LRU:
		return "LRU"
	case Random:
		return "Random"
	default:
		return fmt.Sprintf("ReplacementPolicy(%d)", int(p))
	}
}

// WriteScheme decides when written words reach the next level.
type WriteScheme int

// The supported write schemes.
const (
	WriteBack WriteScheme = iota
	WriteThrough
)

func (s WriteScheme) String() string {
	switch s {
	case WriteBack:
		return "write-back"
	case WriteThrough:
		return "write-through"
	default:
		return fmt.Sprintf("WriteScheme(%d)", int(s))
	}
}

// AllocationScheme decides whether a write miss brings the block in.
type AllocationScheme int

// The supported allocation schemes.
const (
	Allocate AllocationScheme = iota
	NoAllocate
)

func (s AllocationScheme) String() string {
	switch s {
	case Allocate:
		return "write-allocate"
	case NoAllocate:
		return "write-no-allocate"
	default:
		return fmt.Sprintf("AllocationScheme(%d)", int(s))
	}
}

// Config describes the geometry and the policies of one cache. WriteScheme
// and Allocation only apply to data caches. Replacement only applies when
// Associativity is larger than 1.
type Config struct {
	Level         Level
	NumBlocks     int
	WordsPerBlock int
	Associativity int
	Replacement   ReplacementPolicy
	WriteScheme   WriteScheme
	Allocation    AllocationScheme
}

// NumSets returns the number of sets of the cache.
func (c Config) NumSets() int {
	return c.NumBlocks / c.Associativity
}

// IsDirectMapped returns true if every set has a single line.
func (c Config) IsDirectMapped() bool {
	return c.Associativity == 1
}

// A ConfigError reports a cache configuration that cannot be simulated.
type ConfigError struct {
	Level  Level
	Field  string
	Value  int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: invalid %s %d: %s",
		e.Level, e.Field, e.Value, e.Reason)
}

// Validate checks that the configuration can be decoded with bit fields.
func (c Config) Validate() error {
	if c.Level < LevelInstruction || c.Level > LevelData3 {
		return &ConfigError{c.Level, "level", int(c.Level),
			"must be the instruction cache or a data level from 1 to 3"}
	}

	if err := c.mustBePowerOfTwo("number of blocks", c.NumBlocks); err != nil {
		return err
	}

	if err := c.mustBePowerOfTwo("words per block", c.WordsPerBlock); err != nil {
		return err
	}

	if c.Associativity <= 0 {
		return &ConfigError{c.Level, "associativity", c.Associativity,
			"must be positive"}
	}

	if c.NumBlocks%c.Associativity != 0 {
		return &ConfigError{c.Level, "associativity", c.Associativity,
			fmt.Sprintf("must divide the number of blocks %d", c.NumBlocks)}
	}

	if err := c.mustBeKnownPolicies(); err != nil {
		return err
	}

	usedBits := log2(c.WordsPerBlock) + log2(c.NumSets()) + byteOffsetBits
	if usedBits > addressBits {
		return &ConfigError{c.Level, "number of blocks", c.NumBlocks,
			fmt.Sprintf("offset and index need %d bits, more than the %d "+
				"address bits", usedBits, addressBits)}
	}

	return nil
}

func (c Config) mustBePowerOfTwo(field string, v int) error {
	if v <= 0 || v&(v-1) != 0 {
		return &ConfigError{c.Level, field, v, "must be a positive power of two"}
	}

	return nil
}

func (c Config) mustBeKnownPolicies() error {
	if c.Replacement != LRU && c.Replacement != Random {
		return &ConfigError{c.Level, "replacement policy", int(c.Replacement),
			"unknown policy"}
	}

	if !c.Level.IsData() {
		return nil
	}

	if c.WriteScheme != WriteBack && c.WriteScheme != WriteThrough {
		return &ConfigError{c.Level, "write scheme", int(c.WriteScheme),
			"unknown scheme"}
	}

	if c.Allocation != Allocate && c.Allocation != NoAllocate {
		return &ConfigError{c.Level, "allocation scheme", int(c.Allocation),
			"unknown scheme"}
	}

	return nil
}

func log2(v int) int {
	return bits.TrailingZeros(uint(v))
}
