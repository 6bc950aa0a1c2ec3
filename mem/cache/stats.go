package cache

// MissCounts splits misses by category.
type MissCounts struct {
	Compulsory uint64
	Conflict   uint64
	Capacity   uint64
}

// Total returns the number of misses of all categories.
func (m MissCounts) Total() uint64 {
	return m.Compulsory + m.Conflict + m.Capacity
}

func (m *MissCounts) add(o Outcome) {
	switch o {
	case CompulsoryMiss:
		m.Compulsory++
	case ConflictMiss:
		m.Conflict++
	case CapacityMiss:
		m.Capacity++
	case Hit:
		panic("a hit is not a miss")
	}
}

// Statistics are the counters of one cache. They only grow during a run.
type Statistics struct {
	Accesses     uint64
	Reads        uint64
	Writes       uint64
	ReadHits     uint64
	WriteHits    uint64
	WordsRead    uint64
	WordsWritten uint64
	ReadMisses   MissCounts
	WriteMisses  MissCounts
}

func (s *Statistics) recordRead(o Outcome) {
	s.Accesses++
	s.Reads++

	if o.IsHit() {
		s.ReadHits++
		return
	}

	s.ReadMisses.add(o)
}

func (s *Statistics) recordWrite(o Outcome) {
	s.Accesses++
	s.Writes++

	if o.IsHit() {
		s.WriteHits++
		return
	}

	s.WriteMisses.add(o)
}

// Hits returns the number of read and write hits.
func (s Statistics) Hits() uint64 {
	return s.ReadHits + s.WriteHits
}

// Misses returns the number of read and write misses.
func (s Statistics) Misses() MissCounts {
	return MissCounts{
		Compulsory: s.ReadMisses.Compulsory + s.WriteMisses.Compulsory,
		Conflict:   s.ReadMisses.Conflict + s.WriteMisses.Conflict,
		Capacity:   s.ReadMisses.Capacity + s.WriteMisses.Capacity,
	}
}

// IsBalanced returns true if every access is accounted as a hit or a miss.
func (s Statistics) IsBalanced() bool {
	return s.Accesses == s.Hits()+s.Misses().Total() &&
		s.Accesses == s.Reads+s.Writes
}

// ReadMissRate returns the percentage of reads that missed.
func (s Statistics) ReadMissRate(includeCompulsory bool) float64 {
	return missRate(s.ReadMisses, s.Reads, includeCompulsory)
}

// WriteMissRate returns the percentage of writes that missed.
func (s Statistics) WriteMissRate(includeCompulsory bool) float64 {
	return missRate(s.WriteMisses, s.Writes, includeCompulsory)
}

func missRate(m MissCounts, accesses uint64, includeCompulsory bool) float64 {
	misses := m.Total()
	if !includeCompulsory {
		misses -= m.Compulsory
	}

	if accesses == 0 {
		accesses = 1
	}

	return float64(misses) / float64(accesses) * 100
}
