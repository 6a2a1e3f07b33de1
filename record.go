// Fixed-width index records.
//
// Record i sits at byte offset i*RecordSize and holds the cumulative byte
// count of the source through the end of line i. Addressing is pure
// arithmetic, so reading any record is a single ReadAt.
package lineidx

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// RecordSize is the width of one index record in bytes.
const RecordSize = 8

func encodeRecord(b []byte, offset uint64) {
	binary.BigEndian.PutUint64(b, offset)
}

func decodeRecord(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// records returns the number of whole records in f. A trailing partial
// record is ignored here; Count and Verify are the places that reject it.
func records(f *os.File) (int64, error) {
	n, err := size(f)
	if err != nil {
		return 0, err
	}
	return n / RecordSize, nil
}

// readRecord reads record n. Any failure, including a short read past the
// end of the index, is reported as ErrIndexRead.
func readRecord(r io.ReaderAt, n int64) (uint64, error) {
	var buf [RecordSize]byte
	if _, err := r.ReadAt(buf[:], n*RecordSize); err != nil {
		return 0, fmt.Errorf("%w: record %d: %w", ErrIndexRead, n, err)
	}
	return decodeRecord(buf[:]), nil
}

// Stats summarises an index file.
type Stats struct {
	Index   string `json:"index"`
	Records int64  `json:"records"`
	Bytes   int64  `json:"bytes"`
	First   uint64 `json:"first"` // end offset of line 0, 0 when empty
	Last    uint64 `json:"last"`  // end offset of the last line, 0 when empty
}

// Stat reports the size and the first and last records of an index.
// It fails with ErrCorruptIndex when the length is not a multiple of
// RecordSize.
func Stat(index string) (*Stats, error) {
	f, err := os.Open(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFile, err)
	}
	defer f.Close()

	n, err := size(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexRead, err)
	}
	if n%RecordSize != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrCorruptIndex, n, RecordSize)
	}

	st := &Stats{Index: index, Records: n / RecordSize, Bytes: n}
	if st.Records == 0 {
		return st, nil
	}
	if st.First, err = readRecord(f, 0); err != nil {
		return nil, err
	}
	if st.Last, err = readRecord(f, st.Records-1); err != nil {
		return nil, err
	}
	return st, nil
}

// Count returns the number of lines recorded in an index.
func Count(index string) (int64, error) {
	st, err := Stat(index)
	if err != nil {
		return 0, err
	}
	return st.Records, nil
}

// Record returns the decoded value of record n.
func Record(index string, n int64) (uint64, error) {
	f, err := os.Open(index)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFile, err)
	}
	defer f.Close()

	count, err := records(f)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIndexRead, err)
	}
	if n < 0 || n >= count {
		return 0, fmt.Errorf("%w: record %d out of range, index holds %d", ErrIndexRead, n, count)
	}
	return readRecord(f, n)
}
