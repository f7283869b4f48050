package fontcache

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch inserts font files that are created or rewritten in dirs until ctx
// is done. Subdirectories are not watched.
func (c *Cache) Watch(ctx context.Context, dirs ...string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fontcache: watch: %w", err)
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("fontcache: watch %s: %w", dir, err)
		}
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
					continue
				}
				if !IsFontFile(ev.Name) {
					continue
				}
				n, err := c.InsertPath(ev.Name)
				if err != nil {
					// files are often seen half written
					c.logger.Debug("watched font not inserted", "path", ev.Name, "err", err)
					continue
				}
				if n > 0 {
					c.logger.Info("watched font inserted", "path", ev.Name, "faces", n)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.logger.Warn("font watcher error", "err", err)
			}
		}
	}()
	return nil
}
