package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// WatchDebounceDelay coalesces the bursts of events editors emit on save.
const WatchDebounceDelay = 300 * time.Millisecond

// Watch reloads the config file at path whenever it changes and passes the
// result to fn. A reload failure is passed as err with a nil config. Watch
// blocks until ctx is done.
//
// The parent directory is watched rather than the file itself, so that
// editors replacing the file by rename are still noticed.
func Watch(ctx context.Context, path string, fn func(cfg *Config, err error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "resolving config path")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", filepath.Dir(abs))
	}

	var (
		mu            sync.Mutex
		debounceTimer *time.Timer
	)
	defer func() {
		mu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		mu.Unlock()
	}()

	reload := func() {
		if ctx.Err() != nil {
			return
		}
		cfg, err := loadConfigFromFile(abs)
		if err != nil {
			fn(nil, err)
			return
		}
		fn(cfg, nil)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			mu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, reload)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fn(nil, errors.Wrap(err, "watcher error"))
		}
	}
}
