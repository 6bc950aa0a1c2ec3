// Package config parses the cache parameters given on the command line.
//
// An instruction cache is described as "blocks:words:assoc:R|L" and a data
// cache as "level:blocks:words:assoc:R|L:B|T:A|N".
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/cachesim/mem/cache"
)

// ParseError reports a parameter string that cannot be understood.
type ParseError struct {
	Flag   string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s parameters %q: %s",
		e.Flag, e.Value, e.Reason)
}

const (
	icacheFields = 4
	dcacheFields = 7
)

// ParseInstructionCache parses the parameters of the instruction cache. The
// replacement policy is only looked at if the cache is set associative.
func ParseInstructionCache(s string) (cache.Config, error) {
	p := parser{flag: "I-cache", value: s}

	fields, err := p.split(icacheFields)
	if err != nil {
		return cache.Config{}, err
	}

	c := cache.Config{Level: cache.LevelInstruction}

	if err := p.geometry(&c, fields[0:3]); err != nil {
		return cache.Config{}, err
	}

	c.Replacement, err = p.replacement(c.Associativity, fields[3])
	if err != nil {
		return cache.Config{}, err
	}

	return c, nil
}

// ParseDataCache parses the parameters of one data-cache level.
func ParseDataCache(s string) (cache.Config, error) {
	p := parser{flag: "D-cache", value: s}

	fields, err := p.split(dcacheFields)
	if err != nil {
		return cache.Config{}, err
	}

	level, err := p.integer("level", fields[0])
	if err != nil {
		return cache.Config{}, err
	}

	if level < 1 || level > cache.MaxDataLevel {
		return cache.Config{}, p.fail("invalid D-cache level %d", level)
	}

	c := cache.Config{Level: cache.DataLevel(level)}

	if err := p.geometry(&c, fields[1:4]); err != nil {
		return cache.Config{}, err
	}

	c.Replacement, err = p.replacement(c.Associativity, fields[4])
	if err != nil {
		return cache.Config{}, err
	}

	switch fields[5] {
	case "B":
		c.WriteScheme = cache.WriteBack
	case "T":
		c.WriteScheme = cache.WriteThrough
	default:
		return cache.Config{}, p.fail("invalid write scheme %q", fields[5])
	}

	switch fields[6] {
	case "A":
		c.Allocation = cache.Allocate
	case "N":
		c.Allocation = cache.NoAllocate
	default:
		return cache.Config{}, p.fail("invalid allocation scheme %q", fields[6])
	}

	return c, nil
}

type parser struct {
	flag  string
	value string
}

func (p parser) fail(format string, args ...any) *ParseError {
	return &ParseError{
		Flag:   p.flag,
		Value:  p.value,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (p parser) split(n int) ([]string, error) {
	fields := strings.Split(strings.TrimSpace(p.value), ":")
	if len(fields) != n {
		return nil, p.fail("expected %d fields, got %d", n, len(fields))
	}

	for i, f := range fields {
		if f == "" {
			return nil, p.fail("field %d is empty", i+1)
		}
	}

	return fields, nil
}

func (p parser) integer(name, field string) (int, error) {
	v, err := strconv.Atoi(field)
	if err != nil {
		return 0, p.fail("%s %q is not a number", name, field)
	}

	return v, nil
}

func (p parser) geometry(c *cache.Config, fields []string) error {
	var err error

	c.NumBlocks, err = p.integer("number of blocks", fields[0])
	if err != nil {
		return err
	}

	c.WordsPerBlock, err = p.integer("words per block", fields[1])
	if err != nil {
		return err
	}

	c.Associativity, err = p.integer("associativity", fields[2])
	if err != nil {
		return err
	}

	return nil
}

func (p parser) replacement(
	associativity int,
	field string,
) (cache.ReplacementPolicy, error) {
	if len(field) != 1 {
		return cache.LRU, p.fail("invalid replacement scheme %q", field)
	}

	if associativity <= 1 {
		return cache.LRU, nil
	}

	switch field {
	case "L":
		return cache.LRU, nil
	case "R":
		return cache.Random, nil
	default:
		return cache.LRU, p.fail("invalid replacement scheme %q", field)
	}
}
