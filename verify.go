// Index verification.
//
// The retriever trusts its index: it does not check that the index belongs
// to the source it is given. Verify is the explicit check. It streams the
// index once and, when a manifest is present, the source once, so like
// Build it runs in constant memory.
package lineidx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// Report is the result of a successful Verify.
type Report struct {
	Records    int64     // Lines recorded in the index
	SourceSize int64     // Current size of the source
	Last       uint64    // Value of the final record
	Manifest   *Manifest // Sidecar checked against the source, nil if none
}

// Verify checks index against source. The index must be a whole number of
// records, strictly increasing, and end exactly at the end of the source;
// any of these failing is ErrCorruptIndex or ErrStale. If a manifest sidecar
// exists, the source size and fingerprint must also match it (ErrStale).
func Verify(source, index string, cfg Config) (*Report, error) {
	cfg = cfg.defaults()
	log := cfg.Logger.With("component", "verify")

	src, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFile, err)
	}
	defer src.Close()

	idx, err := os.Open(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFile, err)
	}
	defer idx.Close()

	idxSize, err := size(idx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexRead, err)
	}
	if idxSize%RecordSize != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrCorruptIndex, idxSize, RecordSize)
	}
	srcSize, err := size(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	rep := &Report{Records: idxSize / RecordSize, SourceSize: srcSize}
	if rep.Last, err = checkOrder(idx, cfg.ReadBuffer); err != nil {
		return nil, err
	}
	if rep.Last != uint64(srcSize) {
		return nil, fmt.Errorf("%w: index ends at byte %d, source has %d bytes", ErrStale, rep.Last, srcSize)
	}

	m, err := ReadManifest(index)
	switch {
	case errors.Is(err, ErrNoManifest):
		log.Debug("no manifest", "index", index)
	case err != nil:
		return nil, err
	default:
		if err := checkManifest(src, m, rep, cfg.ReadBuffer); err != nil {
			return nil, err
		}
		rep.Manifest = m
	}

	log.Info("index verified", "index", index, "lines", rep.Records, "bytes", srcSize)
	return rep, nil
}

// checkOrder streams every record and returns the last one. Each line is
// at least one byte long, so records must strictly increase from a
// positive first value.
func checkOrder(idx *os.File, bufSize int) (uint64, error) {
	r := bufio.NewReaderSize(idx, bufSize)
	var rec [RecordSize]byte
	var prev uint64
	for i := int64(0); ; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			if err == io.EOF {
				return prev, nil
			}
			return 0, fmt.Errorf("%w: record %d: %w", ErrIndexRead, i, err)
		}
		v := decodeRecord(rec[:])
		if v <= prev {
			return 0, fmt.Errorf("%w: record %d (%d) does not follow %d", ErrCorruptIndex, i, v, prev)
		}
		prev = v
	}
}

func checkManifest(src *os.File, m *Manifest, rep *Report, bufSize int) error {
	if m.Size != rep.SourceSize {
		return fmt.Errorf("%w: manifest records %d bytes, source has %d", ErrStale, m.Size, rep.SourceSize)
	}
	if m.Lines != rep.Records {
		return fmt.Errorf("%w: manifest records %d lines, index has %d", ErrStale, m.Lines, rep.Records)
	}

	h, err := newHash(m.Algorithm)
	if err != nil {
		return fmt.Errorf("%w: manifest: %w", ErrCorruptIndex, err)
	}
	if _, err := io.CopyBuffer(h, src, make([]byte, bufSize)); err != nil {
		return fmt.Errorf("%w: %w", ErrRead, err)
	}
	if got := fingerprint(h); got != m.Fingerprint {
		return fmt.Errorf("%w: fingerprint %s, manifest has %s", ErrStale, got, m.Fingerprint)
	}
	return nil
}
