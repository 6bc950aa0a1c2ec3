// Package tracefile reads memory-access traces. Each line of a trace holds a
// hexadecimal address and an access kind, such as "0x7fffed80 R".
package tracefile

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/sarchlab/cachesim/mem/cache"
)

// KindError reports an access kind other than R, W and I.
type KindError struct {
	Line int
	Kind byte
}

func (e *KindError) Error() string {
	return fmt.Sprintf(
		"malformed trace file: invalid access type '%c' on line %d",
		e.Kind, e.Line)
}

// MaxLineLength is the longest line the reader parses. Longer lines are
// skipped as malformed.
const MaxLineLength = 64 * 1024

// A Reader turns the lines of a trace into access requests.
type Reader struct {
	r       *bufio.Reader
	logger  *log.Logger
	line    int
	skipped int
}

// NewReader creates a Reader that reads from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r: bufio.NewReaderSize(r, MaxLineLength),
	}
}

// WithLogger makes the reader report the lines it skips.
func (r *Reader) WithLogger(logger *log.Logger) *Reader {
	r.logger = logger
	return r
}

// Skipped returns the number of lines that could not be parsed.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Next returns the next access of the trace, or io.EOF at the end of the
// trace. Blank and unparsable lines are skipped.
func (r *Reader) Next() (cache.AccessRequest, error) {
	for {
		text, tooLong, err := r.readLine()
		if err != nil {
			return cache.AccessRequest{}, err
		}

		r.line++

		if tooLong {
			r.skip(text[:32] + "...")
			continue
		}

		req, ok, err := r.parse(text)
		if err != nil {
			return cache.AccessRequest{}, err
		}

		if ok {
			return req, nil
		}
	}
}

// readLine returns the next line without its line ending. The rest of a line
// longer than MaxLineLength is discarded.
func (r *Reader) readLine() (string, bool, error) {
	chunk, isPrefix, err := r.r.ReadLine()
	if err != nil {
		return "", false, err
	}

	text := string(chunk)

	tooLong := isPrefix
	for isPrefix {
		_, isPrefix, err = r.r.ReadLine()
		if err == io.EOF {
			break
		}

		if err != nil {
			return "", false, err
		}
	}

	return text, tooLong, nil
}

func (r *Reader) parse(text string) (cache.AccessRequest, bool, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return cache.AccessRequest{}, false, nil
	}

	if len(fields) < 2 || !strings.HasPrefix(fields[0], "0x") {
		r.skip(text)
		return cache.AccessRequest{}, false, nil
	}

	addr, err := strconv.ParseUint(fields[0][2:], 16, 32)
	if err != nil {
		r.skip(text)
		return cache.AccessRequest{}, false, nil
	}

	req := cache.AccessRequest{Address: uint32(addr)}

	switch fields[1][0] {
	case 'R':
		req.Kind = cache.DataRead
	case 'W':
		req.Kind = cache.DataWrite
	case 'I':
		req.Kind = cache.InstructionFetch
	default:
		return cache.AccessRequest{}, false,
			&KindError{Line: r.line, Kind: fields[1][0]}
	}

	return req, true, nil
}

func (r *Reader) skip(text string) {
	r.skipped++

	if r.logger != nil {
		r.logger.Printf("skipping line %d: %q", r.line, text)
	}
}
