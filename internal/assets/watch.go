package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce is the quiet period between two change notifications for the
// same asset.
const debounce = 100 * time.Millisecond

// Watch reports assets changed in the override directory until ctx is
// done. Every change drops the cached copy; notifications for one asset
// are debounced. The returned channel is closed when watching stops.
func (r *Resolver) Watch(ctx context.Context) (<-chan string, error) {
	if r.dir == "" {
		return nil, errors.New("no asset directory to watch")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := r.watchRecursive(w); err != nil {
		_ = w.Close()
		return nil, err
	}

	out := make(chan string, 16)
	go r.run(ctx, w, out)
	r.log.Info("watching assets", zap.String("dir", r.dir))
	return out, nil
}

func (r *Resolver) watchRecursive(w *fsnotify.Watcher) error {
	return filepath.WalkDir(r.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

func (r *Resolver) run(ctx context.Context, w *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer w.Close()

	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.Add(event.Name)
					continue
				}
			}
			name, err := filepath.Rel(r.dir, event.Name)
			if err != nil {
				continue
			}
			name = filepath.ToSlash(name)
			r.Invalidate(name)

			now := time.Now()
			if t, ok := last[name]; ok && now.Sub(t) < debounce {
				continue
			}
			last[name] = now
			r.log.Debug("asset changed", zap.String("name", name), zap.Stringer("op", event.Op))
			select {
			case out <- name:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.log.Warn("asset watcher error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}
