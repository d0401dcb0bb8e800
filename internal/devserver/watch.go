package devserver

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after which a burst of file system
// events is reported once.
const DefaultDebounce = 100 * time.Millisecond

// WatchDir watches root and its subdirectories. callback receives the last
// event of each burst. Directories created later are watched too. Hidden
// files and editor temporary files are ignored.
func WatchDir(root string, debounce time.Duration, logger *slog.Logger, callback func(fsnotify.Event)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	go func() {
		var (
			mu    sync.Mutex
			timer *time.Timer
			last  fsnotify.Event
		)
		fire := func() {
			mu.Lock()
			evt := last
			timer = nil
			mu.Unlock()
			callback(evt)
		}

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := watcher.Add(event.Name); err != nil {
							logger.Warn("watching new directory", "dir", event.Name, "err", err)
						}
					}
				}
				if ignored(event.Name) {
					continue
				}
				logger.Debug("file system event", "event", event.String())
				mu.Lock()
				last = event
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, fire)
				mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("watcher failure", "err", err)
			}
		}
	}()

	return watcher, nil
}

func ignored(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, "~")
}
