// Package report prints the configuration and the statistics of the caches
// in a human-readable form.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/sarchlab/cachesim/mem/cache"
)

var heading = color.New(color.Bold)

// WriteConfig describes the caches, the instruction cache first.
func WriteConfig(w io.Writer, configs []cache.Config) {
	for _, c := range configs {
		if c.Level.IsData() {
			heading.Fprintf(w, "Data cache level %d:\n", int(c.Level))
		} else {
			heading.Fprintf(w, "Instruction cache:\n")
		}

		fmt.Fprintf(w, "\t%d blocks\n", c.NumBlocks)
		fmt.Fprintf(w, "\t%d word(s) per block\n", c.WordsPerBlock)
		fmt.Fprintf(w, "\t%d-way associative\n", c.Associativity)

		if c.Associativity > 1 {
			fmt.Fprintf(w, "\treplacement: %s\n", c.Replacement)
		}

		if c.Level.IsData() {
			fmt.Fprintf(w, "\twrite scheme: %s\n", c.WriteScheme)
			fmt.Fprintf(w, "\tallocation scheme: %s\n", c.Allocation)
		}

		fmt.Fprintln(w)
	}
}

// WriteStatistics prints the counters and the miss rates of every cache.
func WriteStatistics(w io.Writer, snapshots []cache.Snapshot) {
	for i, s := range snapshots {
		if i > 0 {
			fmt.Fprint(w, "\n\n")
		}

		if s.Config.Level.IsData() {
			writeDataCache(w, s)
		} else {
			writeInstructionCache(w, s)
		}
	}
}

func writeInstructionCache(w io.Writer, s cache.Snapshot) {
	misses := s.Stats.ReadMisses.Total()

	heading.Fprintf(w, "%s Stats:\n", s.Name)
	fmt.Fprintf(w, "Number of Reads: %30d\n", s.Stats.Reads)
	fmt.Fprintf(w, "Number of Words: %30d\n",
		misses*uint64(s.Config.WordsPerBlock))
	fmt.Fprintf(w, "Read Misses:\n")
	writeMisses(w, s.Stats.ReadMisses)
	fmt.Fprintf(w, "Read Miss rate with Compulsory: %15.2f%%\n",
		s.Stats.ReadMissRate(true))
	fmt.Fprintf(w, "Read Miss rate without Compulsory: %12.2f%%\n",
		s.Stats.ReadMissRate(false))
}

func writeDataCache(w io.Writer, s cache.Snapshot) {
	heading.Fprintf(w, "%s Stats:\n", s.Name)
	fmt.Fprintf(w, "Number of Reads: %30d\n", s.Stats.Reads)
	fmt.Fprintf(w, "Number of Words Read: %25d\n", s.Stats.WordsRead)
	fmt.Fprintf(w, "Number of Writes: %29d\n", s.Stats.Writes)
	fmt.Fprintf(w, "Number of Words Written: %22d\n", s.Stats.WordsWritten)

	fmt.Fprintf(w, "Read Misses:\n")
	writeMisses(w, s.Stats.ReadMisses)
	fmt.Fprintf(w, "       Read Miss rate with Compulsory: %8.2f%%\n",
		s.Stats.ReadMissRate(true))
	fmt.Fprintf(w, "       Read Miss rate without Compulsory: %5.2f%%\n",
		s.Stats.ReadMissRate(false))

	fmt.Fprintf(w, "Write Misses:\n")
	writeMisses(w, s.Stats.WriteMisses)
	fmt.Fprintf(w, "       Write Miss rate with Compulsory: %7.2f%%\n",
		s.Stats.WriteMissRate(true))
	fmt.Fprintf(w, "       Write Miss rate without Compulsory: %4.2f%%\n",
		s.Stats.WriteMissRate(false))
}

func writeMisses(w io.Writer, m cache.MissCounts) {
	fmt.Fprintf(w, "       Compulsory Misses: %21d\n", m.Compulsory)
	fmt.Fprintf(w, "       Conflict Misses: %23d\n", m.Conflict)
	fmt.Fprintf(w, "       Capacity Misses: %23d\n", m.Capacity)
	fmt.Fprintf(w, "       Number of Misses: %22d\n", m.Total())
}

// WriteMemoryTraffic prints the requests that reached the memory.
func WriteMemoryTraffic(w io.Writer, reads, writes uint64) {
	fmt.Fprint(w, "\n\n")
	heading.Fprintf(w, "Memory Stats:\n")
	fmt.Fprintf(w, "Number of Block Reads: %24d\n", reads)
	fmt.Fprintf(w, "Number of Writes: %29d\n", writes)
}
