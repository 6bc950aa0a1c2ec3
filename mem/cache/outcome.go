package cache

import "fmt"

// Outcome tells whether an access hit and, if it missed, why.
type Outcome int

// The outcomes of an access.
const (
	Hit Outcome = iota
	CompulsoryMiss
	ConflictMiss
	CapacityMiss
)

// IsHit returns true if the block was found in the cache.
func (o Outcome) IsHit() bool {
	return o == Hit
}

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case CompulsoryMiss:
		return "compulsory miss"
	case ConflictMiss:
		return "conflict miss"
	case CapacityMiss:
		return "capacity miss"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Classify categorizes a miss.
//
// lineWasValid tells whether the line receiving the block held a block
// before. setFull tells whether every line of the set holds a block.
func Classify(lineWasValid bool, associativity int, setFull bool) Outcome {
	switch {
	case !lineWasValid:
		return CompulsoryMiss
	case associativity == 1:
		return ConflictMiss
	case setFull:
		return CapacityMiss
	default:
		panic("a valid line is replaced while the set still has room")
	}
}

// AccessKind is the type of a memory access found in a trace.
type AccessKind int

// The kinds of memory accesses.
const (
	InstructionFetch AccessKind = iota
	DataRead
	DataWrite
)

func (k AccessKind) String() string {
	switch k {
	case InstructionFetch:
		return "I"
	case DataRead:
		return "R"
	case DataWrite:
		return "W"
	default:
		return fmt.Sprintf("AccessKind(%d)", int(k))
	}
}

// An AccessRequest is one memory access to replay.
type AccessRequest struct {
	Kind    AccessKind
	Address uint32
}

// A Result describes what an access did to a cache.
type Result struct {
	Outcome Outcome
	Tag     uint32
	SetID   int

	// WayID is the line that was hit or filled, or -1 if no line was touched.
	WayID int

	// Evicted is set when a valid block was replaced. EvictedAddress is the
	// address of that block and EvictedDirty tells if it was written back.
	Evicted        bool
	EvictedAddress uint32
	EvictedDirty   bool

	// Downstream lists the accesses that this access sends to the next level,
	// in order.
	Downstream []AccessRequest
}
