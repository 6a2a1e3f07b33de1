// Source fingerprints for the manifest sidecar.
//
// A fingerprint is a 64-bit hash of the whole source, rendered as 16 hex
// characters. It is computed while the indexer streams the source, so
// asking for a manifest does not cost a second pass.
package lineidx

import (
	"encoding/hex"
	"fmt"
	"hash"
	"hash/fnv"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// Hash algorithm constants.
const (
	AlgXXHash3 = 1 // Default, fastest
	AlgFNV1a   = 2 // No external dependencies
	AlgBlake2b = 3 // Best distribution
)

var algNames = map[int]string{
	AlgXXHash3: "xxh3",
	AlgFNV1a:   "fnv",
	AlgBlake2b: "blake2b",
}

// newHash returns a streaming hasher for alg.
func newHash(alg int) (hash.Hash, error) {
	switch alg {
	case AlgXXHash3:
		return xxh3.New(), nil
	case AlgFNV1a:
		return fnv.New64a(), nil
	case AlgBlake2b:
		return blake2b.New(8, nil) // 8 bytes = 64 bits
	default:
		return nil, fmt.Errorf("%w: unknown hash algorithm %d", ErrUsage, alg)
	}
}

func fingerprint(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// AlgorithmName returns the flag name of alg, or "" if alg is unknown.
func AlgorithmName(alg int) string {
	return algNames[alg]
}

// ParseAlgorithm maps a flag name (xxh3, fnv, blake2b) to its constant.
func ParseAlgorithm(name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for alg, n := range algNames {
		if n == name {
			return alg, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown hash algorithm %q", ErrUsage, name)
}
