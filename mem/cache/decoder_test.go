package cache

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Decoder", func() {
	It("should refuse an invalid configuration", func() {
		_, err := NewDecoder(Config{NumBlocks: 6, WordsPerBlock: 1,
			Associativity: 1})

		Expect(err).To(HaveOccurred())
	})

	It("should split the address into tag and set", func() {
		d, err := NewDecoder(Config{
			Level:         LevelData1,
			NumBlocks:     4,
			WordsPerBlock: 2,
			Associativity: 1,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(d.OffsetBits()).To(Equal(uint(1)))
		Expect(d.SetBits()).To(Equal(uint(2)))
		Expect(d.TagBits()).To(Equal(uint(27)))

		tag, setID := d.Decode(0x0000002C)
		Expect(tag).To(Equal(uint32(1)))
		Expect(setID).To(Equal(1))

		tag, setID = d.Decode(0xFFFFFFFF)
		Expect(tag).To(Equal(uint32(1<<27 - 1)))
		Expect(setID).To(Equal(3))
	})

	It("should ignore the byte and word offsets", func() {
		d, _ := NewDecoder(Config{NumBlocks: 8, WordsPerBlock: 4,
			Associativity: 2})

		for offset := uint32(0); offset < 16; offset++ {
			tag, setID := d.Decode(0x1230 + offset)
			Expect(tag).To(Equal(uint32(0x1230 >> 6)))
			Expect(setID).To(Equal(int((0x1230 >> 4) & 3)))
		}
	})

	It("should use a single set when fully associative", func() {
		d, _ := NewDecoder(Config{NumBlocks: 8, WordsPerBlock: 1,
			Associativity: 8})

		Expect(d.SetBits()).To(Equal(uint(0)))

		tag, setID := d.Decode(0xABCD1234)
		Expect(setID).To(Equal(0))
		Expect(tag).To(Equal(uint32(0xABCD1234 >> 2)))
	})

	It("should keep the set index in range for any address", func() {
		r := rand.New(rand.NewSource(1))
		configs := []Config{
			{NumBlocks: 1, WordsPerBlock: 1, Associativity: 1},
			{NumBlocks: 4, WordsPerBlock: 2, Associativity: 1},
			{NumBlocks: 4096, WordsPerBlock: 1, Associativity: 2},
			{NumBlocks: 16384, WordsPerBlock: 4, Associativity: 8},
			{NumBlocks: 64, WordsPerBlock: 16, Associativity: 64},
		}

		for _, c := range configs {
			d, err := NewDecoder(c)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 1000; i++ {
				a := r.Uint32()

				tag, setID := d.Decode(a)
				Expect(setID).To(BeNumerically(">=", 0))
				Expect(setID).To(BeNumerically("<", c.NumSets()))

				again, sameSet := d.Decode(a)
				Expect(again).To(Equal(tag))
				Expect(sameSet).To(Equal(setID))
			}
		}
	})

	It("should rebuild the block address", func() {
		d, _ := NewDecoder(Config{NumBlocks: 16, WordsPerBlock: 4,
			Associativity: 2})

		tag, setID := d.Decode(0xDEADBEEF)
		block := d.BlockAddress(tag, setID)

		Expect(block).To(Equal(uint32(0xDEADBEEF &^ 0xF)))

		tag2, setID2 := d.Decode(block)
		Expect(tag2).To(Equal(tag))
		Expect(setID2).To(Equal(setID))
	})
})
