package cache

const (
	addressBits = 32

	// The simulator is word addressable. The two lowest address bits select
	// a byte inside a 4-byte word and are always dropped.
	byteOffsetBits = 2
)

// A Decoder splits an address into the tag and the set index of a cache.
type Decoder struct {
	offsetBits uint
	setBits    uint
	tagBits    uint
}

// NewDecoder creates a decoder for a configuration. The configuration must
// be valid.
func NewDecoder(c Config) (Decoder, error) {
	if err := c.Validate(); err != nil {
		return Decoder{}, err
	}

	d := Decoder{
		offsetBits: uint(log2(c.WordsPerBlock)),
		setBits:    uint(log2(c.NumSets())),
	}
	d.tagBits = addressBits - d.offsetBits - d.setBits - byteOffsetBits

	return d, nil
}

// OffsetBits returns the number of bits that select a word in a block.
func (d Decoder) OffsetBits() uint {
	return d.offsetBits
}

// SetBits returns the number of bits of the set index.
func (d Decoder) SetBits() uint {
	return d.setBits
}

// TagBits returns the width of the tag.
func (d Decoder) TagBits() uint {
	return d.tagBits
}

// Decode returns the tag and the set index of the address.
func (d Decoder) Decode(addr uint32) (tag uint32, setID int) {
	setShift := d.offsetBits + byteOffsetBits
	tagShift := setShift + d.setBits

	setID = int((uint64(addr) >> setShift) & mask(d.setBits))
	tag = uint32((uint64(addr) >> tagShift) & mask(d.tagBits))

	return tag, setID
}

// BlockAddress rebuilds the address of the first byte of the block that
// holds the tag in the set.
func (d Decoder) BlockAddress(tag uint32, setID int) uint32 {
	setShift := d.offsetBits + byteOffsetBits
	tagShift := setShift + d.setBits

	addr := (uint64(tag)&mask(d.tagBits))<<tagShift |
		(uint64(setID)&mask(d.setBits))<<setShift

	return uint32(addr)
}

func mask(width uint) uint64 {
	return (uint64(1) << width) - 1
}
