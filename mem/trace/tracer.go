// Package trace provides hooks that trace the accesses served by caches.
package trace

import (
	"log"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// accessEntry represents one cache access in the database.
type accessEntry struct {
	Seq            uint64
	Cache          string
	Kind           string
	Address        uint32
	Tag            uint32
	SetID          int
	WayID          int
	Outcome        string
	Evicted        bool
	EvictedAddress uint32
	WriteBack      bool
}

// statisticsEntry represents the final counters of one cache.
type statisticsEntry struct {
	Cache                 string
	Accesses              uint64
	Reads                 uint64
	Writes                uint64
	ReadHits              uint64
	WriteHits             uint64
	WordsRead             uint64
	WordsWritten          uint64
	ReadCompulsoryMisses  uint64
	ReadConflictMisses    uint64
	ReadCapacityMisses    uint64
	WriteCompulsoryMisses uint64
	WriteConflictMisses   uint64
	WriteCapacityMisses   uint64
}

// The names of the tables created by the DBTracer.
const (
	AccessTable     = "cache_accesses"
	StatisticsTable = "cache_statistics"
)

// A LogTracer is a hook that prints every cache access.
type LogTracer struct {
	logger *log.Logger
}

// NewLogTracer creates a new LogTracer.
func NewLogTracer(logger *log.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

// Func prints the access if the context is a cache access.
func (t *LogTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	req := ctx.Item.(cache.AccessRequest)
	res := ctx.Detail.(cache.Result)

	t.logger.Printf("%s, %s, 0x%08x, set %d, way %d, %s",
		ctx.Domain.Name(), req.Kind, req.Address,
		res.SetID, res.WayID, res.Outcome)

	if res.EvictedDirty {
		t.logger.Printf("%s, write back 0x%08x",
			ctx.Domain.Name(), res.EvictedAddress)
	}
}

// A DBTracer is a hook that records every cache access into a database
// using the data recorder.
type DBTracer struct {
	dataRecorder datarecording.DataRecorder
	seq          uint64
}

// NewDBTracer creates a new DBTracer and the tables it writes into.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	t := &DBTracer{
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(AccessTable, accessEntry{})
	t.dataRecorder.CreateTable(StatisticsTable, statisticsEntry{})

	return t
}

// Func records the access if the context is a cache access.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != cache.HookPosAccess {
		return
	}

	req := ctx.Item.(cache.AccessRequest)
	res := ctx.Detail.(cache.Result)

	t.seq++
	t.dataRecorder.InsertData(AccessTable, accessEntry{
		Seq:            t.seq,
		Cache:          ctx.Domain.Name(),
		Kind:           req.Kind.String(),
		Address:        req.Address,
		Tag:            res.Tag,
		SetID:          res.SetID,
		WayID:          res.WayID,
		Outcome:        res.Outcome.String(),
		Evicted:        res.Evicted,
		EvictedAddress: res.EvictedAddress,
		WriteBack:      res.EvictedDirty,
	})
}

// NumRecorded returns the number of accesses recorded so far.
func (t *DBTracer) NumRecorded() uint64 {
	return t.seq
}

// RecordStatistics stores the counters of the caches.
func (t *DBTracer) RecordStatistics(snapshots []cache.Snapshot) {
	for _, s := range snapshots {
		t.dataRecorder.InsertData(StatisticsTable, statisticsEntry{
			Cache:                 s.Name,
			Accesses:              s.Stats.Accesses,
			Reads:                 s.Stats.Reads,
			Writes:                s.Stats.Writes,
			ReadHits:              s.Stats.ReadHits,
			WriteHits:             s.Stats.WriteHits,
			WordsRead:             s.Stats.WordsRead,
			WordsWritten:          s.Stats.WordsWritten,
			ReadCompulsoryMisses:  s.Stats.ReadMisses.Compulsory,
			ReadConflictMisses:    s.Stats.ReadMisses.Conflict,
			ReadCapacityMisses:    s.Stats.ReadMisses.Capacity,
			WriteCompulsoryMisses: s.Stats.WriteMisses.Compulsory,
			WriteConflictMisses:   s.Stats.WriteMisses.Conflict,
			WriteCapacityMisses:   s.Stats.WriteMisses.Capacity,
		})
	}
}
