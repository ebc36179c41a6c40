package atlas

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch implements ports.Watchable. Writes, creations, removals and renames
// of YAML files under the atlas directories are coalesced into single
// signals. The channel is closed when ctx ends.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("start atlas watcher: %w", err)
	}
	for _, dir := range l.watchDirs() {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-w.Events:
				if !ok {
					return
				}
				if !relevant(evt) {
					continue
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("atlas watcher error", "err", err)
			}
		}
	}()
	return ch, nil
}

func (l *Loader) watchDirs() []string {
	social := l.root("social_world", "nodes")
	physical := l.root("world", "nodes")
	candidates := []string{
		l.dir,
		social,
		filepath.Join(social, "personas"),
		filepath.Join(social, "contexts"),
		filepath.Join(social, "triggers"),
		filepath.Join(social, "concepts"),
		filepath.Join(physical, "regions"),
	}
	seen := make(map[string]bool)
	var out []string
	for _, dir := range candidates {
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			out = append(out, dir)
		}
	}
	return out
}

func relevant(evt fsnotify.Event) bool {
	switch filepath.Ext(evt.Name) {
	case ".yaml", ".yml":
	default:
		return false
	}
	return evt.Has(fsnotify.Write) || evt.Has(fsnotify.Create) || evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename)
}
