// Retriever.
//
// A fetch is two seeks and a bounded read: one ReadAt into the index to
// find where the start line begins, then a sequential read of at most take
// lines from that offset in the source. Nothing before the start offset is
// ever read.
package lineidx

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Request is a retrieval request as supplied by a caller. A nil field means
// the option was not given; a request with neither field set selects
// indexing rather than retrieval.
type Request struct {
	Start *uint32
	Take  *uint32
}

// Fetching reports whether the request asks for lines.
func (r Request) Fetching() bool {
	return r.Take != nil
}

// Validate enforces that start and take are given together. It never
// touches the filesystem.
func (r Request) Validate() error {
	switch {
	case r.Take != nil && r.Start == nil:
		return fmt.Errorf("%w: take given without start", ErrUsage)
	case r.Start != nil && r.Take == nil:
		return fmt.Errorf("%w: start given without take", ErrUsage)
	}
	return nil
}

// Fetch returns up to take lines of source starting at line start, each
// with its terminator if it has one. Fewer than take lines are returned,
// without error, when the source ends first.
func Fetch(source, index string, start, take uint32, cfg Config) ([]string, error) {
	var lines []string
	var buf bytes.Buffer
	_, err := retrieve(source, index, start, take, cfg, func(r *bufio.Reader) error {
		buf.Reset()
		if _, err := line(r, &buf); err != nil {
			return err
		}
		lines = append(lines, buf.String())
		return nil
	})
	return lines, err
}

// Copy writes up to take lines of source starting at line start to w and
// returns how many lines it wrote. Lines are streamed, so memory stays
// bounded by Config.ReadBuffer however many lines are requested.
func Copy(w io.Writer, source, index string, start, take uint32, cfg Config) (int, error) {
	return retrieve(source, index, start, take, cfg, func(r *bufio.Reader) error {
		_, err := line(r, w)
		return err
	})
}

// retrieve resolves the start offset, positions a reader over the source
// and calls next once per line until take lines are read or the source
// ends.
func retrieve(source, index string, start, take uint32, cfg Config, next func(*bufio.Reader) error) (int, error) {
	cfg = cfg.defaults()
	log := cfg.Logger.With("component", "retriever")

	src, err := os.Open(source)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFile, err)
	}
	defer src.Close()

	idx, err := os.Open(index)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFile, err)
	}
	defer idx.Close()

	offset, err := startOffset(idx, start, cfg.Addressing)
	if err != nil {
		return 0, err
	}
	log.Debug("resolved start", "start", start, "offset", offset, "take", take)

	if take == 0 {
		return 0, nil
	}

	end, err := size(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSeek, err)
	}
	if offset > end {
		return 0, fmt.Errorf("%w: offset %d beyond source size %d", ErrSeek, offset, end)
	}

	reader := bufio.NewReaderSize(io.NewSectionReader(src, offset, end-offset), cfg.ReadBuffer)
	var n uint32
	for n < take {
		err := next(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			return int(n), wrapRead(err)
		}
		n++
	}
	return int(n), nil
}

// startOffset translates a line number into the source offset to seek to.
// Offsets are computed in int64; a record that does not fit is ErrSeek.
func startOffset(idx *os.File, start uint32, mode Addressing) (int64, error) {
	count, err := records(idx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIndexRead, err)
	}
	if int64(start) >= count {
		return 0, fmt.Errorf("%w: line %d out of range, index holds %d lines", ErrIndexRead, start, count)
	}

	n := int64(start)
	if mode == StartOffset {
		if n == 0 {
			return 0, nil
		}
		n--
	}

	v, err := readRecord(idx, n)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: record %d holds offset %d", ErrSeek, n, v)
	}
	return int64(v), nil
}

// wrapRead tags a source read failure with ErrRead unless it is already an
// output failure.
func wrapRead(err error) error {
	if errors.Is(err, ErrOutput) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRead, err)
}
