// Package simulation replays memory accesses against a cache hierarchy made
// of one instruction cache and up to three levels of data caches.
package simulation

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// ErrUnknownKind is returned when a request is neither an instruction fetch,
// a data read nor a data write.
var ErrUnknownKind = errors.New("unknown access kind")

// A RequestSource provides the accesses to replay. Next returns io.EOF when
// there are no more accesses.
type RequestSource interface {
	Next() (cache.AccessRequest, error)
}

// MemoryTraffic counts the requests that leave the last data-cache level.
type MemoryTraffic struct {
	Reads  uint64
	Writes uint64
}

// A Simulation owns the caches and feeds them with accesses.
type Simulation struct {
	id string

	mu      sync.Mutex
	resumed *sync.Cond
	paused  bool

	icache     *cache.Comp
	dataCaches []*cache.Comp
	memory     MemoryTraffic
	numHandled uint64
	terminated bool

	logger       *log.Logger
	dataRecorder datarecording.DataRecorder
	dbTracer     *trace.DBTracer
	monitor      *monitoring.Monitor
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// InstructionCache returns the instruction cache.
func (s *Simulation) InstructionCache() *cache.Comp {
	return s.icache
}

// DataCaches returns the data caches, L1 first.
func (s *Simulation) DataCaches() []*cache.Comp {
	return s.dataCaches
}

// Caches returns all the caches, the instruction cache first.
func (s *Simulation) Caches() []*cache.Comp {
	caches := make([]*cache.Comp, 0, len(s.dataCaches)+1)
	caches = append(caches, s.icache)
	caches = append(caches, s.dataCaches...)

	return caches
}

// GetDataRecorder returns the data recorder, or nil if recording is off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

func (s *Simulation) acceptHook(h hooking.Hook) {
	for _, c := range s.Caches() {
		c.AcceptHook(h)
	}
}

// Handle replays one access. Data accesses are dropped when no data cache is
// configured.
func (s *Simulation) Handle(req cache.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.paused {
		s.resumed.Wait()
	}

	switch req.Kind {
	case cache.InstructionFetch:
		s.icache.Read(req.Address)
	case cache.DataRead, cache.DataWrite:
		s.accessData(0, req)
	default:
		return fmt.Errorf("%w: %s at 0x%08x", ErrUnknownKind, req.Kind,
			req.Address)
	}

	s.numHandled++

	return nil
}

// accessData sends the request to a data-cache level and forwards the traffic
// it generates to the level below.
func (s *Simulation) accessData(level int, req cache.AccessRequest) {
	if level >= len(s.dataCaches) {
		if level > 0 {
			s.toMemory(req)
		}

		return
	}

	res := s.dataCaches[level].Access(req)
	for _, next := range res.Downstream {
		s.accessData(level+1, next)
	}
}

func (s *Simulation) toMemory(req cache.AccessRequest) {
	if req.Kind == cache.DataWrite {
		s.memory.Writes++
	} else {
		s.memory.Reads++
	}

	if s.logger != nil {
		s.logger.Printf("memory, %s, 0x%08x", req.Kind, req.Address)
	}
}

// Run replays all the accesses of the source. It stops at the first error,
// leaving the statistics gathered so far readable.
func (s *Simulation) Run(src RequestSource) error {
	for {
		req, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		if err := s.Handle(req); err != nil {
			return err
		}
	}
}

// Pause blocks the replay before the next access.
func (s *Simulation) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = true
}

// Continue resumes a paused replay.
func (s *Simulation) Continue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = false
	s.resumed.Broadcast()
}

// IsPaused tells whether the replay is paused.
func (s *Simulation) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.paused
}

// NumHandled returns the number of accesses replayed so far.
func (s *Simulation) NumHandled() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.numHandled
}

// Memory returns the traffic that reached the memory.
func (s *Simulation) Memory() MemoryTraffic {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.memory
}

// Snapshots copies the statistics of all the caches, the instruction cache
// first.
func (s *Simulation) Snapshots() []cache.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshots()
}

func (s *Simulation) snapshots() []cache.Snapshot {
	caches := s.Caches()

	snapshots := make([]cache.Snapshot, 0, len(caches))
	for _, c := range caches {
		snapshots = append(snapshots, c.Snapshot())
	}

	return snapshots
}

// VisitCache calls fn with the named cache while no access is replayed. It
// returns false if there is no such cache.
func (s *Simulation) VisitCache(name string, fn func(c *cache.Comp)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.Caches() {
		if c.Name() == name {
			fn(c)
			return true
		}
	}

	return false
}

// Terminate stores the final statistics and closes the data recorder.
func (s *Simulation) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dataRecorder == nil || s.terminated {
		return nil
	}

	s.terminated = true

	s.dbTracer.RecordStatistics(s.snapshots())

	return s.dataRecorder.Close()
}
