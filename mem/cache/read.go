package cache

// Read looks up the block of the address and fills it on a miss. It serves
// both instruction fetches and data reads.
func (c *Comp) Read(addr uint32) Result {
	res := c.newResult(addr)

	if line, found := c.tags.Lookup(res.SetID, res.Tag); found {
		c.tags.Visit(line)
		res.Outcome = Hit
		res.WayID = line.WayID
	} else {
		c.readMiss(&res)
	}

	c.stats.recordRead(res.Outcome)
	c.invokeAccessHook(AccessRequest{Kind: c.readKind(), Address: addr}, res)

	return res
}

func (c *Comp) readMiss(res *Result) {
	line, hasRoom := c.tags.FindEmpty(res.SetID)
	if !hasRoom {
		line = c.replace(res)
	}

	res.Outcome = Classify(!hasRoom, c.config.Associativity, !hasRoom)
	c.install(res, line, false)

	// The instruction cache only counts misses.
	if !c.config.Level.IsData() {
		return
	}

	if c.config.WordsPerBlock > 1 {
		c.stats.WordsRead += uint64(c.config.WordsPerBlock)
	}

	c.requestFill(res)
}

func (c *Comp) readKind() AccessKind {
	if c.config.Level.IsData() {
		return DataRead
	}

	return InstructionFetch
}
