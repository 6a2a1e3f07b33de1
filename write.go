// Write primitives for index files.
//
// An index is never written in place. Records go to a temporary file in
// the destination directory, which is flushed, synced and then renamed over
// the destination. Readers opening the index path therefore see either the
// previous index or the complete new one. A failed build removes the
// temporary file and leaves any previous index untouched.
package lineidx

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// indexMode is the permission of a published index.
const indexMode = 0o644

type indexWriter struct {
	file   *os.File
	buf    *bufio.Writer
	rec    [RecordSize]byte
	target string
	count  int64
}

// createIndex opens a temporary file next to target for writing records.
func createIndex(target string, bufSize int) (*indexWriter, error) {
	dir, base := filepath.Split(target)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+"-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFile, err)
	}
	return &indexWriter{
		file:   f,
		buf:    bufio.NewWriterSize(f, bufSize),
		target: target,
	}, nil
}

// append writes one record.
func (w *indexWriter) append(offset uint64) error {
	encodeRecord(w.rec[:], offset)
	if _, err := w.buf.Write(w.rec[:]); err != nil {
		return fmt.Errorf("%w: record %d: %w", ErrWrite, w.count, err)
	}
	w.count++
	return nil
}

// commit flushes buffered records, optionally fsyncs, and renames the
// temporary file over the target. On error the temporary file is removed.
func (w *indexWriter) commit(sync bool) error {
	if err := w.buf.Flush(); err != nil {
		w.abort()
		return fmt.Errorf("%w: flush: %w", ErrWrite, err)
	}
	if sync {
		if err := w.file.Sync(); err != nil {
			w.abort()
			return fmt.Errorf("%w: sync: %w", ErrWrite, err)
		}
	}
	if err := w.file.Chmod(indexMode); err != nil {
		w.abort()
		return fmt.Errorf("%w: chmod: %w", ErrWrite, err)
	}
	tmp := w.file.Name()
	if err := w.file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: close: %w", ErrWrite, err)
	}
	if err := os.Rename(tmp, w.target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: rename: %w", ErrWrite, err)
	}
	return nil
}

// abort discards the temporary file.
func (w *indexWriter) abort() {
	w.file.Close()
	os.Remove(w.file.Name())
}
