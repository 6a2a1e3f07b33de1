// Indexer.
//
// Build reads the source once, front to back, and emits one record per
// line: the running byte count after that line. Memory use is the read
// buffer plus the write buffer, whatever the size of the source or the
// length of its lines.
package lineidx

import (
	"bufio"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
)

// Build indexes source and publishes the result at index, replacing any
// existing file there.
//
// A read that returns bytes produces a record even when the bytes are not
// newline terminated, so an unterminated final line is indexed. Only io.EOF
// ends the scan quietly; any other read error aborts the build with
// ErrRead and no index is published.
//
// The source is never written. Build fails with ErrUsage, before reading
// anything, if index or its manifest path is the source itself, or if a
// manifest is requested and the manifest path holds a file that is not a
// manifest.
func Build(source, index string, cfg Config) error {
	cfg = cfg.defaults()
	log := cfg.Logger.With("component", "indexer")

	if err := checkTargets(source, index, cfg.Manifest); err != nil {
		return err
	}

	var h hash.Hash
	var sink io.Writer = io.Discard
	if cfg.Manifest {
		var err error
		if h, err = newHash(cfg.HashAlgorithm); err != nil {
			return err
		}
		sink = h
	}

	src, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFile, err)
	}
	defer src.Close()

	w, err := createIndex(index, cfg.WriteBuffer)
	if err != nil {
		return err
	}

	log.Debug("building index", "source", source, "index", index)

	reader := bufio.NewReaderSize(src, cfg.ReadBuffer)
	var pos uint64
	for {
		n, err := line(reader, sink)
		if err == io.EOF {
			break
		}
		if err != nil {
			w.abort()
			return fmt.Errorf("%w: %s at byte %d: %w", ErrRead, source, pos+uint64(n), err)
		}
		pos += uint64(n)
		if err := w.append(pos); err != nil {
			w.abort()
			return err
		}
	}

	if err := w.commit(!cfg.NoSync); err != nil {
		return err
	}

	if cfg.Manifest {
		m := &Manifest{
			Version:     ManifestVersion,
			Build:       newBuildID(),
			Source:      source,
			Size:        int64(pos),
			Lines:       w.count,
			Algorithm:   cfg.HashAlgorithm,
			Fingerprint: fingerprint(h),
			Created:     now(),
		}
		if err := writeManifest(index, m); err != nil {
			return err
		}
	} else if err := removeManifest(index); err != nil {
		return err
	}

	log.Info("index built", "index", index, "lines", w.count, "bytes", pos)
	return nil
}

// checkTargets rejects output paths that would overwrite the source or a
// file Build did not write.
func checkTargets(source, index string, manifest bool) error {
	for _, target := range []string{index, ManifestPath(index)} {
		same, err := sameFile(source, target)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFile, err)
		}
		if same {
			return fmt.Errorf("%w: %s would overwrite source %s", ErrUsage, target, source)
		}
	}
	if manifest {
		if _, err := ReadManifest(index); err != nil && !errors.Is(err, ErrNoManifest) {
			return fmt.Errorf("%w: %s exists and is not a manifest", ErrUsage, ManifestPath(index))
		}
	}
	return nil
}

// sameFile reports whether a and b name the same file, either by path or,
// when both exist, by identity (hard links, symlinks).
func sameFile(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	if absA == absB {
		return true, nil
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return false, nil
	}
	return os.SameFile(infoA, infoB), nil
}
