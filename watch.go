// Rebuild on change.
//
// Watch keeps an index current for a source that is rewritten or replaced
// in place, such as a log that is rotated by renaming a new file over it.
// Every rebuild is a full Build; the index is never appended to.
package lineidx

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch builds index from source, then rebuilds it each time source is
// written or created, until ctx is cancelled. Events arriving within
// Config.Settle of each other produce a single rebuild. If done is not nil
// it is called with the result of every build, including the first.
//
// A failed build does not stop the watch: the source may not exist yet,
// or may be halfway through being replaced. Watch returns nil when ctx is
// cancelled and an error only when the watch itself cannot be set up.
func Watch(ctx context.Context, source, index string, cfg Config, done func(error)) error {
	cfg = cfg.defaults()
	log := cfg.Logger.With("component", "watch")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: create watcher: %w", ErrFile, err)
	}
	defer w.Close()

	// Watch the directory, not the file, so a replaced source is seen.
	target := filepath.Clean(source)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("%w: watch %s: %w", ErrFile, source, err)
	}

	rebuild := func() {
		err := Build(source, index, cfg)
		if err != nil {
			log.Warn("rebuild failed", "source", source, "error", err)
		}
		if done != nil {
			done(err)
		}
	}

	log.Info("watching", "source", source, "index", index, "settle", cfg.Settle)
	rebuild()

	timer := time.NewTimer(cfg.Settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				log.Debug("source changed", "op", ev.Op.String())
				timer.Reset(cfg.Settle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		case <-timer.C:
			rebuild()
		}
	}
}
