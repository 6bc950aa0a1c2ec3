package cache

// fetchRule decides whether an allocating write brings the block in.
type fetchRule int

const (
	fetchNever fetchRule = iota
	fetchMultiWord
	fetchAlways
)

// A writeAction is everything a write does once its outcome is known.
type writeAction struct {
	allocate     bool
	fetch        fetchRule
	writeThrough bool
	markDirty    bool
}

// writePolicy is the pair of write scheme and allocation scheme of a data
// cache. decide is the only place where the pair is looked at.
type writePolicy struct {
	scheme     WriteScheme
	allocation AllocationScheme
}

func makeWritePolicy(c Config) writePolicy {
	return writePolicy{
		scheme:     c.WriteScheme,
		allocation: c.Allocation,
	}
}

func (p writePolicy) decide(o Outcome) writeAction {
	switch o {
	case Hit:
		return p.store(writeAction{})
	case CompulsoryMiss:
		return p.decideCompulsory()
	case ConflictMiss, CapacityMiss:
		return p.decideReplacement()
	default:
		panic("unknown outcome " + o.String())
	}
}

// decideCompulsory handles a write whose target line is empty. A write-back
// cache always allocates, since the block has to be in the cache before it
// can be marked dirty.
func (p writePolicy) decideCompulsory() writeAction {
	switch {
	case p.scheme == WriteBack:
		return p.store(writeAction{allocate: true, fetch: fetchAlways})
	case p.allocation == Allocate:
		return p.store(writeAction{allocate: true, fetch: fetchMultiWord})
	default:
		return writeAction{writeThrough: true}
	}
}

// decideReplacement handles a write to a full set that misses.
func (p writePolicy) decideReplacement() writeAction {
	if p.allocation == NoAllocate {
		return writeAction{writeThrough: true}
	}

	return p.store(writeAction{allocate: true, fetch: fetchMultiWord})
}

// store adds what the write scheme does once the block is in the cache.
func (p writePolicy) store(a writeAction) writeAction {
	if p.scheme == WriteThrough {
		a.writeThrough = true
	} else {
		a.markDirty = true
	}

	return a
}

// Write applies a data write to the cache.
func (c *Comp) Write(addr uint32) Result {
	c.mustBeDataCache()

	res := c.newResult(addr)

	line, found := c.tags.Lookup(res.SetID, res.Tag)
	hasRoom := false
	if found {
		res.Outcome = Hit
	} else {
		line, hasRoom = c.tags.FindEmpty(res.SetID)
		res.Outcome = Classify(!hasRoom, c.config.Associativity, !hasRoom)
	}

	action := c.policy.decide(res.Outcome)

	switch {
	case found:
		c.tags.Visit(line)
		res.WayID = line.WayID

		if action.markDirty {
			c.markDirty(res.SetID, res.WayID)
		}
	case action.allocate:
		if !hasRoom {
			line = c.replace(&res)
		}

		c.applyFetch(&res, action.fetch)
		c.install(&res, line, action.markDirty)
	}

	if action.writeThrough {
		c.stats.WordsWritten++
		res.Downstream = append(res.Downstream, AccessRequest{
			Kind:    DataWrite,
			Address: addr,
		})
	}

	c.stats.recordWrite(res.Outcome)
	c.invokeAccessHook(AccessRequest{Kind: DataWrite, Address: addr}, res)

	return res
}

func (c *Comp) applyFetch(res *Result, rule fetchRule) {
	switch rule {
	case fetchAlways:
		c.fetch(res)
	case fetchMultiWord:
		if c.config.WordsPerBlock > 1 {
			c.fetch(res)
		}
	case fetchNever:
	}
}

func (c *Comp) mustBeDataCache() {
	if !c.config.Level.IsData() {
		panic("cannot write to " + c.config.Level.String())
	}
}
