// Package cache models the metadata of a cache and the effect of every access
// on hits, misses and memory traffic.
package cache

import (
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// HookPosAccess is triggered after every access. The item of the hook context
// is the AccessRequest and the detail is the Result.
var HookPosAccess = &hooking.HookPos{Name: "CacheAccess"}

// LineState is a copy of the metadata of one line.
type LineState struct {
	Tag     uint32
	Valid   bool
	Dirty   bool
	Recency uint64
}

// Comp is a cache. It owns its sets and lines and accumulates its statistics.
type Comp struct {
	hooking.HookableBase

	name         string
	config       Config
	decoder      Decoder
	tags         tagging.TagArray
	victimFinder tagging.VictimFinder
	policy       writePolicy
	stats        Statistics
}

// Name returns the name of the cache.
func (c *Comp) Name() string {
	return c.name
}

// Config returns the configuration the cache was built with.
func (c *Comp) Config() Config {
	return c.config
}

// Decoder returns the address decoder of the cache.
func (c *Comp) Decoder() Decoder {
	return c.decoder
}

// Stats returns a snapshot of the statistics.
func (c *Comp) Stats() Statistics {
	return c.stats
}

// LineAt returns the state of a line.
func (c *Comp) LineAt(setID, wayID int) LineState {
	l := c.tags.GetSet(setID).Lines[wayID]

	return LineState{
		Tag:     l.Tag,
		Valid:   l.IsValid,
		Dirty:   l.IsDirty,
		Recency: l.Recency,
	}
}

// Contains tells whether the block of the address is in the cache, without
// touching any state.
func (c *Comp) Contains(addr uint32) bool {
	tag, setID := c.decoder.Decode(addr)
	_, found := c.tags.Lookup(setID, tag)

	return found
}

// Reset invalidates every line. The statistics are kept.
func (c *Comp) Reset() {
	c.tags.Reset()
}

// Access dispatches a request to the read or the write engine.
func (c *Comp) Access(req AccessRequest) Result {
	if req.Kind == DataWrite {
		return c.Write(req.Address)
	}

	return c.Read(req.Address)
}

func (c *Comp) newResult(addr uint32) Result {
	tag, setID := c.decoder.Decode(addr)

	return Result{
		Tag:   tag,
		SetID: setID,
		WayID: -1,
	}
}

// replace empties a full set for the block of the result. A dirty victim of a
// write-back cache is flushed to the next level.
func (c *Comp) replace(res *Result) tagging.Line {
	victim := c.victimFinder.FindVictim(c.tags.GetSet(res.SetID))

	res.Evicted = true
	res.EvictedAddress = c.decoder.BlockAddress(victim.Tag, victim.SetID)

	if victim.IsDirty && c.config.WriteScheme == WriteBack {
		res.EvictedDirty = true
		c.stats.WordsWritten += uint64(c.config.WordsPerBlock)
		res.Downstream = append(res.Downstream, AccessRequest{
			Kind:    DataWrite,
			Address: res.EvictedAddress,
		})
	}

	victim.IsDirty = false

	return victim
}

// install places the tag of the result in the line and makes the line the
// most recently used of its set.
func (c *Comp) install(res *Result, line tagging.Line, dirty bool) {
	line.Tag = res.Tag
	line.IsValid = true
	line.IsDirty = dirty

	c.tags.Update(line)
	c.tags.Visit(line)

	res.WayID = line.WayID
}

// fetch counts the words brought in from the next level to fill a block.
func (c *Comp) fetch(res *Result) {
	c.stats.WordsRead += uint64(c.config.WordsPerBlock)
	c.requestFill(res)
}

func (c *Comp) requestFill(res *Result) {
	res.Downstream = append(res.Downstream, AccessRequest{
		Kind:    DataRead,
		Address: c.decoder.BlockAddress(res.Tag, res.SetID),
	})
}

func (c *Comp) invokeAccessHook(req AccessRequest, res Result) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosAccess,
		Item:   req,
		Detail: res,
	})
}

func (c *Comp) markDirty(setID, wayID int) {
	line := c.tags.GetSet(setID).Lines[wayID]
	line.IsDirty = true
	c.tags.Update(line)
}

// A Snapshot is a copy of the configuration and the statistics of a cache.
type Snapshot struct {
	Name   string
	Config Config
	Stats  Statistics
}

// Snapshot copies the statistics of the cache.
func (c *Comp) Snapshot() Snapshot {
	return Snapshot{
		Name:   c.name,
		Config: c.config,
		Stats:  c.stats,
	}
}
