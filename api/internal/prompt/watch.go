package prompt

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"medinsight/api/internal/logger"
)

var overrideNames = []string{"analysis", "ocr", "repair"}

// Watch caches the override files and reloads them whenever a .txt file in
// Dir changes. The watcher stops when ctx is done.
func (b *Builder) Watch(ctx context.Context, log *logger.Logger) error {
	if b.Dir == "" {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(b.Dir); err != nil {
		_ = w.Close()
		return err
	}
	b.reload()
	log.Info("watching prompt overrides", "dir", b.Dir)

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
				if !strings.EqualFold(filepath.Ext(ev.Name), ".txt") {
					continue
				}
				b.reload()
				log.Info("prompt overrides reloaded", "file", filepath.Base(ev.Name), "op", ev.Op.String())
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("prompt watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (b *Builder) reload() {
	next := make(map[string]string, len(overrideNames))
	for _, n := range overrideNames {
		if s, ok := b.readOverride(n); ok {
			next[n] = s
		}
	}
	b.mu.Lock()
	b.cache = next
	b.mu.Unlock()
}
