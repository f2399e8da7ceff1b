package storage

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits for file events to settle
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads the collections whenever a YAML file in the storage
// directory changes. It blocks until ctx is done.
func (f *FileStorage) Watch(ctx context.Context, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(f.basePath); err != nil {
		return err
	}

	f.logger.Info("watching collections", zap.String("path", f.basePath))

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isYAMLFile(event.Name) {
				continue
			}

			f.logger.Debug("collection file changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			timerC = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.logger.Error("watcher error", zap.Error(err))

		case <-timerC:
			timerC = nil
			if err := f.Reload(); err != nil {
				f.logger.Error("failed to reload collections", zap.Error(err))
				continue
			}
			f.logger.Info("collections reloaded")
		}
	}
}
