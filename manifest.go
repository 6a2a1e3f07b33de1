// Manifest sidecar.
//
// The index format has no header, so nothing in it ties an index to the
// source it was built from. When Config.Manifest is set, Build writes a
// small JSON document to <index>.json recording the source size, line count
// and a content fingerprint. Verify uses it to detect an index whose source
// has since changed. The index file itself is unaffected.
package lineidx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ManifestVersion is the manifest schema written by this package.
const ManifestVersion = 1

// Manifest describes the source an index was built from.
type Manifest struct {
	Version     int    `json:"version"`
	Build       string `json:"build"`       // Unique per Build call
	Source      string `json:"source"`      // Source path as given to Build
	Size        int64  `json:"size"`        // Source bytes consumed
	Lines       int64  `json:"lines"`       // Records written
	Algorithm   int    `json:"algorithm"`   // Fingerprint hash algorithm
	Fingerprint string `json:"fingerprint"` // 16 hex chars
	Created     int64  `json:"created"`     // Unix milliseconds
}

// ManifestPath returns the sidecar path for an index.
func ManifestPath(index string) string {
	return index + ".json"
}

func writeManifest(index string, m *Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: manifest: %w", ErrWrite, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(ManifestPath(index), data, indexMode); err != nil {
		return fmt.Errorf("%w: manifest: %w", ErrWrite, err)
	}
	return nil
}

// removeManifest deletes a sidecar left over from an earlier build. A file
// at the manifest path that does not decode as a manifest is left alone.
func removeManifest(index string) error {
	if _, err := ReadManifest(index); err != nil {
		return nil
	}
	err := os.Remove(ManifestPath(index))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove manifest: %w", ErrWrite, err)
	}
	return nil
}

// ReadManifest loads the sidecar of an index. It returns ErrNoManifest
// when the index was built without one.
func ReadManifest(index string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(index))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoManifest
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFile, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %w", ErrCorruptIndex, err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("%w: manifest version %d", ErrCorruptIndex, m.Version)
	}
	return &m, nil
}

// newBuildID returns a time-ordered identifier for one Build call.
func newBuildID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// now returns the current time in unix milliseconds.
func now() int64 {
	return time.Now().UnixMilli()
}
