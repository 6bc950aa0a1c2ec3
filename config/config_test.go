package config

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachesim/mem/cache"
)

var _ = Describe("ParseInstructionCache", func() {
	It("should parse a set-associative cache", func() {
		c, err := ParseInstructionCache("256:4:2:R")

		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(cache.Config{
			Level:         cache.LevelInstruction,
			NumBlocks:     256,
			WordsPerBlock: 4,
			Associativity: 2,
			Replacement:   cache.Random,
		}))
	})

	It("should ignore the replacement of a direct-mapped cache", func() {
		c, err := ParseInstructionCache("64:1:1:X")

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Replacement).To(Equal(cache.LRU))
	})

	DescribeTable("should reject bad parameters",
		func(s, reason string) {
			_, err := ParseInstructionCache(s)

			var parseErr *ParseError
			Expect(errors.As(err, &parseErr)).To(BeTrue())
			Expect(parseErr.Flag).To(Equal("I-cache"))
			Expect(parseErr.Reason).To(ContainSubstring(reason))
		},
		Entry("missing field", "64:1:1", "expected 4 fields"),
		Entry("empty field", "64::1:L", "field 2 is empty"),
		Entry("not a number", "x:1:1:L", "number of blocks"),
		Entry("bad replacement", "64:1:2:Q", "invalid replacement"),
		Entry("long replacement", "64:1:2:LRU", "invalid replacement"),
		Entry("long direct-mapped replacement", "64:1:1:LL",
			"invalid replacement"),
	)
})

var _ = Describe("ParseDataCache", func() {
	It("should parse all the fields", func() {
		c, err := ParseDataCache("2:1024:8:4:L:T:N")

		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(cache.Config{
			Level:         cache.LevelData2,
			NumBlocks:     1024,
			WordsPerBlock: 8,
			Associativity: 4,
			Replacement:   cache.LRU,
			WriteScheme:   cache.WriteThrough,
			Allocation:    cache.NoAllocate,
		}))
	})

	It("should parse a write-back allocating cache", func() {
		c, err := ParseDataCache("1:64:1:1:L:B:A")

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Level).To(Equal(cache.LevelData1))
		Expect(c.WriteScheme).To(Equal(cache.WriteBack))
		Expect(c.Allocation).To(Equal(cache.Allocate))
	})

	DescribeTable("should reject bad parameters",
		func(s, reason string) {
			_, err := ParseDataCache(s)

			var parseErr *ParseError
			Expect(errors.As(err, &parseErr)).To(BeTrue())
			Expect(parseErr.Flag).To(Equal("D-cache"))
			Expect(parseErr.Reason).To(ContainSubstring(reason))
		},
		Entry("missing field", "1:64:1:1:L:B", "expected 7 fields"),
		Entry("level too low", "0:64:1:1:L:B:A", "invalid D-cache level 0"),
		Entry("level too high", "4:64:1:1:L:B:A", "invalid D-cache level 4"),
		Entry("bad replacement", "1:64:1:2:Z:B:A", "invalid replacement"),
		Entry("bad write scheme", "1:64:1:1:L:X:A", "invalid write scheme"),
		Entry("bad allocation", "1:64:1:1:L:B:X", "invalid allocation"),
		Entry("long write scheme", "1:64:1:1:L:Back:A", "invalid write scheme"),
		Entry("long allocation", "1:64:1:1:L:B:Always", "invalid allocation"),
	)
})
