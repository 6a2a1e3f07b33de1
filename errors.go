// Package lineidx builds and reads random-access line indexes for
// newline-delimited text files.
//
// An index is a flat sequence of 8-byte big-endian unsigned integers, one
// per line of the source. Record i holds the cumulative byte count of the
// source through the end of line i, which is also the byte offset at which
// line i+1 begins. There is no header, footer or checksum, so the length of
// a well-formed index is always a multiple of RecordSize.
//
// Build makes one forward pass over the source with a fixed-size buffer, so
// indexing a file of any size (or with lines of any length) runs in
// constant memory. Fetch and Copy use the index to seek straight to a line
// and read a bounded number of lines from there.
package lineidx

import "errors"

// Sentinel errors for programmatic handling. Every error returned by this
// package wraps exactly one of these, so callers can use errors.Is to tell
// a bad request (ErrUsage, ErrIndexRead) from an I/O failure (ErrFile,
// ErrWrite, ErrRead, ErrSeek, ErrOutput) or a damaged index (ErrCorruptIndex).
var (
	ErrUsage        = errors.New("invalid request")
	ErrFile         = errors.New("cannot open file")
	ErrWrite        = errors.New("cannot write index")
	ErrRead         = errors.New("cannot read source")
	ErrIndexRead    = errors.New("cannot read from index")
	ErrSeek         = errors.New("cannot seek source")
	ErrCorruptIndex = errors.New("corrupt index")
	ErrStale        = errors.New("index does not match source")
	ErrNoManifest   = errors.New("manifest not found")
	ErrOutput       = errors.New("cannot write output")
)
