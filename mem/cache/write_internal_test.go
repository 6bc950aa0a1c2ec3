package cache

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func allLines(c *Comp) []LineState {
	var lines []LineState
	for s := 0; s < c.Config().NumSets(); s++ {
		for w := 0; w < c.Config().Associativity; w++ {
			lines = append(lines, c.LineAt(s, w))
		}
	}

	return lines
}

func twoWayConfig(scheme WriteScheme, allocation AllocationScheme) Config {
	return Config{
		Level:         LevelData1,
		NumBlocks:     4,
		WordsPerBlock: 2,
		Associativity: 2,
		Replacement:   LRU,
		WriteScheme:   scheme,
		Allocation:    allocation,
	}
}

var _ = Describe("Write", func() {
	Context("write-through, no-allocate", func() {
		var c *Comp

		BeforeEach(func() {
			c = mustBuild(twoWayConfig(WriteThrough, NoAllocate))
		})

		It("should write around on a compulsory miss", func() {
			a := addr(c, 3, 1)

			res := c.Write(a)

			Expect(res.Outcome).To(Equal(CompulsoryMiss))
			Expect(res.WayID).To(Equal(-1))
			Expect(res.Downstream).To(Equal([]AccessRequest{
				{Kind: DataWrite, Address: a},
			}))
			Expect(c.LineAt(1, 0).Valid).To(BeFalse())
			Expect(c.Stats().WordsWritten).To(Equal(uint64(1)))
			Expect(c.Stats().WordsRead).To(BeZero())
			Expect(c.Stats().WriteMisses.Compulsory).To(Equal(uint64(1)))
		})

		It("should not allocate a later empty way either", func() {
			c.Read(addr(c, 1, 0))

			res := c.Write(addr(c, 2, 0))

			Expect(res.Outcome).To(Equal(CompulsoryMiss))
			Expect(c.LineAt(0, 1).Valid).To(BeFalse())
			Expect(c.Contains(addr(c, 2, 0))).To(BeFalse())
		})

		It("should write through on a hit", func() {
			c.Read(addr(c, 1, 0))

			res := c.Write(addr(c, 1, 0))

			Expect(res.Outcome).To(Equal(Hit))
			Expect(res.WayID).To(Equal(0))
			Expect(c.LineAt(0, 0).Dirty).To(BeFalse())
			Expect(c.Stats().WordsWritten).To(Equal(uint64(1)))
			Expect(c.Stats().WriteHits).To(Equal(uint64(1)))
		})

		It("should leave a full set untouched on a capacity miss", func() {
			c.Read(addr(c, 1, 0))
			c.Read(addr(c, 2, 0))
			before := allLines(c)

			res := c.Write(addr(c, 3, 0))

			Expect(res.Outcome).To(Equal(CapacityMiss))
			Expect(res.Evicted).To(BeFalse())
			Expect(allLines(c)).To(Equal(before))
			Expect(c.Stats().WordsWritten).To(Equal(uint64(1)))
		})

		It("should never change a line on a write miss", func() {
			r := rand.New(rand.NewSource(9))
			for i := 0; i < 1000; i++ {
				a := r.Uint32() & 0x1FF
				if r.Intn(3) == 0 {
					c.Read(a)
					continue
				}

				before := allLines(c)
				wordsWritten := c.Stats().WordsWritten

				res := c.Write(a)

				Expect(c.Stats().WordsWritten - wordsWritten).
					To(Equal(uint64(1)))
				if !res.Outcome.IsHit() {
					Expect(allLines(c)).To(Equal(before))
				}
			}
		})
	})

	Context("write-through, allocate", func() {
		It("should fetch a multi-word block and write through", func() {
			c := mustBuild(twoWayConfig(WriteThrough, Allocate))
			a := addr(c, 3, 1) + 4

			res := c.Write(a)

			Expect(res.Outcome).To(Equal(CompulsoryMiss))
			Expect(res.WayID).To(Equal(0))
			Expect(res.Downstream).To(Equal([]AccessRequest{
				{Kind: DataRead, Address: addr(c, 3, 1)},
				{Kind: DataWrite, Address: a},
			}))
			Expect(c.LineAt(1, 0)).To(Equal(LineState{Tag: 3, Valid: true}))
			Expect(c.Stats().WordsRead).To(Equal(uint64(2)))
			Expect(c.Stats().WordsWritten).To(Equal(uint64(1)))
		})

		It("should not fetch a single-word block", func() {
			config := twoWayConfig(WriteThrough, Allocate)
			config.WordsPerBlock = 1
			c := mustBuild(config)

			res := c.Write(0x40)

			Expect(res.Outcome).To(Equal(CompulsoryMiss))
			Expect(res.Downstream).To(HaveLen(1))
			Expect(c.Stats().WordsRead).To(BeZero())
			Expect(c.Stats().WordsWritten).To(Equal(uint64(1)))
			Expect(c.Contains(0x40)).To(BeTrue())
		})

		It("should replace the LRU block on a capacity miss", func() {
			c := mustBuild(twoWayConfig(WriteThrough, Allocate))
			c.Read(addr(c, 1, 0))
			c.Read(addr(c, 2, 0))
			c.Read(addr(c, 1, 0))

			res := c.Write(addr(c, 3, 0))

			Expect(res.Outcome).To(Equal(CapacityMiss))
			Expect(res.WayID).To(Equal(1))
			Expect(res.EvictedDirty).To(BeFalse())
			Expect(c.Contains(addr(c, 2, 0))).To(BeFalse())
			Expect(c.LineAt(0, 1)).To(Equal(LineState{Tag: 3, Valid: true}))
			Expect(c.Stats().WordsRead).To(Equal(uint64(6)))
			Expect(c.Stats().WordsWritten).To(Equal(uint64(1)))
		})
	})

	Context("write-back, allocate", func() {
		var c *Comp

		BeforeEach(func() {
			c = mustBuild(twoWayConfig(WriteBack, Allocate))
		})

		It("should allocate a dirty block on a compulsory miss", func() {
			res := c.Write(addr(c, 1, 1))

			Expect(res.Outcome).To(Equal(CompulsoryMiss))
			Expect(res.Downstream).To(Equal([]AccessRequest{
				{Kind: DataRead, Address: addr(c, 1, 1)},
			}))
			Expect(c.LineAt(1, 0)).To(Equal(LineState{Tag: 1, Valid: true,
				Dirty: true}))
			Expect(c.Stats().WordsRead).To(Equal(uint64(2)))
			Expect(c.Stats().WordsWritten).To(BeZero())
		})

		It("should mark a hit dirty without traffic", func() {
			c.Read(addr(c, 1, 0))

			res := c.Write(addr(c, 1, 0))

			Expect(res.Outcome).To(Equal(Hit))
			Expect(res.Downstream).To(BeEmpty())
			Expect(c.LineAt(0, 0).Dirty).To(BeTrue())
			Expect(c.LineAt(0, 0).Recency).To(BeZero())
			Expect(c.Stats().WordsWritten).To(BeZero())
		})

		It("should write back a dirty victim exactly once", func() {
			c.Write(addr(c, 1, 0))
			c.Write(addr(c, 2, 0))
			c.Read(addr(c, 2, 0))

			res := c.Write(addr(c, 3, 0))

			Expect(res.Outcome).To(Equal(CapacityMiss))
			Expect(res.WayID).To(Equal(0))
			Expect(res.EvictedDirty).To(BeTrue())
			Expect(res.Downstream).To(Equal([]AccessRequest{
				{Kind: DataWrite, Address: addr(c, 1, 0)},
				{Kind: DataRead, Address: addr(c, 3, 0)},
			}))
			Expect(c.Stats().WordsWritten).To(Equal(uint64(2)))
			Expect(c.LineAt(0, 0)).To(Equal(LineState{Tag: 3, Valid: true,
				Dirty: true}))

			c.Read(addr(c, 4, 0))
			Expect(c.Stats().WordsWritten).To(Equal(uint64(4)))
		})
	})

	Context("write-back, no-allocate", func() {
		var c *Comp

		BeforeEach(func() {
			config := twoWayConfig(WriteBack, NoAllocate)
			config.Associativity = 1
			c = mustBuild(config)
		})

		It("should still allocate on a compulsory miss", func() {
			res := c.Write(addr(c, 1, 2))

			Expect(res.Outcome).To(Equal(CompulsoryMiss))
			Expect(c.LineAt(2, 0)).To(Equal(LineState{Tag: 1, Valid: true,
				Dirty: true}))
			Expect(c.Stats().WordsRead).To(Equal(uint64(2)))
		})

		It("should write around on a conflict miss", func() {
			c.Write(addr(c, 1, 2))
			before := allLines(c)

			res := c.Write(addr(c, 2, 2))

			Expect(res.Outcome).To(Equal(ConflictMiss))
			Expect(allLines(c)).To(Equal(before))
			Expect(c.Stats().WordsWritten).To(Equal(uint64(1)))
			Expect(c.Stats().WriteMisses).To(Equal(MissCounts{Compulsory: 1,
				Conflict: 1}))
		})
	})
})
