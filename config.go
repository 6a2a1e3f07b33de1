// Configuration shared by the indexer and the retriever.
//
// The zero Config is valid: defaults() fills every unset field, the same
// way for Build, Fetch, Verify and Watch, so a caller only sets what it wants to
// change.
package lineidx

import (
	"log/slog"
	"time"

	"github.com/jpl-au/lineidx/internal/logging"
)

// Addressing selects how a start line is translated into a source offset.
type Addressing int

const (
	// StartOffset seeks to the first byte of the requested line: offset 0
	// for line 0, otherwise the record of the preceding line.
	StartOffset Addressing = iota

	// EndOffset seeks to the value of the record at the requested line,
	// which is the end of that line. Fetching line k therefore yields
	// line k+1 onwards. Kept for byte-compatible output with indexes
	// consumed by older tooling.
	EndOffset
)

// Config holds indexer and retriever options.
type Config struct {
	ReadBuffer    int           // Source read buffer (default 64KB); also the longest line held in memory at once
	WriteBuffer   int           // Index write buffer (default 64KB)
	HashAlgorithm int           // Manifest fingerprint: 1=xxHash3, 2=FNV1a, 3=Blake2b
	Manifest      bool          // Write <index>.json after a successful Build
	NoSync        bool          // Skip fsync before publishing the index
	Addressing    Addressing    // Retrieval addressing scheme
	Settle        time.Duration // Watch: quiet period before a rebuild (default 100ms)
	Logger        *slog.Logger
}

// minBuffer is the smallest buffer bufio will honour.
const minBuffer = 16

func (c Config) defaults() Config {
	if c.ReadBuffer == 0 {
		c.ReadBuffer = 64 * 1024
	}
	if c.ReadBuffer < minBuffer {
		c.ReadBuffer = minBuffer
	}
	if c.WriteBuffer == 0 {
		c.WriteBuffer = 64 * 1024
	}
	if c.Settle <= 0 {
		c.Settle = 100 * time.Millisecond
	}
	if c.HashAlgorithm == 0 {
		c.HashAlgorithm = AlgXXHash3
	}
	c.Logger = logging.Default(c.Logger)
	return c
}
