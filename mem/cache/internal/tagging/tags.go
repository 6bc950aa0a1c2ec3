// Package tagging keeps the metadata of the lines stored in a cache.
package tagging

// A TagArray owns the sets of a cache and the lines inside each set.
type TagArray interface {
	NumSets() int
	NumWays() int
	GetSet(setID int) *Set
	Lookup(setID int, tag uint32) (Line, bool)
	FindEmpty(setID int) (Line, bool)
	Update(line Line)
	Visit(line Line)
	Reset()
}

// NewTagArray creates a tag array with all the lines invalid.
func NewTagArray(numSets, numWays int) TagArray {
	t := &tagArrayImpl{
		numSets: numSets,
		numWays: numWays,
	}

	t.Reset()

	return t
}

// A Line is the information that is associated with a cache line. No data is
// ever stored, only what is needed to decide hits, misses and traffic.
type Line struct {
	SetID   int
	WayID   int
	Tag     uint32
	IsValid bool
	IsDirty bool

	// Recency counts the accesses to the other lines of the set since this
	// line was last accessed.
	Recency uint64
}

// A Set is a fixed-size list of lines where a certain block can be stored.
type Set struct {
	Lines []Line
}

// IsFull returns true if every line of the set holds a block.
func (s *Set) IsFull() bool {
	for _, l := range s.Lines {
		if !l.IsValid {
			return false
		}
	}

	return true
}

type tagArrayImpl struct {
	numSets int
	numWays int
	sets    []Set
}

func (t *tagArrayImpl) NumSets() int {
	return t.numSets
}

func (t *tagArrayImpl) NumWays() int {
	return t.numWays
}

// GetSet returns the set with the given index.
func (t *tagArrayImpl) GetSet(setID int) *Set {
	return &t.sets[setID]
}

// Lookup finds the valid line of a set that holds the tag.
func (t *tagArrayImpl) Lookup(setID int, tag uint32) (Line, bool) {
	set := t.GetSet(setID)
	for _, l := range set.Lines {
		if l.IsValid && l.Tag == tag {
			return l, true
		}
	}

	return Line{}, false
}

// FindEmpty returns the lowest-indexed invalid line of a set.
func (t *tagArrayImpl) FindEmpty(setID int) (Line, bool) {
	set := t.GetSet(setID)
	for _, l := range set.Lines {
		if !l.IsValid {
			return l, true
		}
	}

	return Line{}, false
}

// Update writes the line information back into the array.
func (t *tagArrayImpl) Update(line Line) {
	t.sets[line.SetID].Lines[line.WayID] = line
}

// Visit marks the line as the most recently used one. The recency of the line
// is reset and every other line of the set ages by one.
func (t *tagArrayImpl) Visit(line Line) {
	set := &t.sets[line.SetID]
	for i := range set.Lines {
		if i == line.WayID {
			set.Lines[i].Recency = 0
			continue
		}

		set.Lines[i].Recency++
	}
}

// Reset will mark all the lines in the array invalid.
func (t *tagArrayImpl) Reset() {
	t.sets = make([]Set, t.numSets)
	for i := 0; i < t.numSets; i++ {
		t.sets[i].Lines = make([]Line, t.numWays)
		for j := 0; j < t.numWays; j++ {
			t.sets[i].Lines[j] = Line{SetID: i, WayID: j}
		}
	}
}
