package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the library must stay quiet before changes are reported.
const DefaultDebounce = 5 * time.Second

// Watcher monitors the library tree for audio file changes and emits one
// debounced event per burst of activity.
type Watcher struct {
	watcher    *fsnotify.Watcher
	root       string
	extensions map[string]bool
	debounce   time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending FileEvent
	running bool

	stopChan  chan struct{}
	eventChan chan<- FileEvent
}

// NewWatcher creates a new file system watcher for the given extensions.
func NewWatcher(eventChan chan<- FileEvent, extensions []string, debounce time.Duration) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}
	return &Watcher{
		watcher:    watcher,
		extensions: exts,
		debounce:   debounce,
		eventChan:  eventChan,
		stopChan:   make(chan struct{}),
	}, nil
}

// Start watches root and every directory below it.
func (w *Watcher) Start(ctx context.Context, root string) error {
	w.root = root
	slog.Info("Starting file watcher", "path", root)

	if err := w.addTree(root); err != nil {
		return err
	}

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	go w.watchLoop(ctx)
	return nil
}

// Stop stops the file watcher
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	slog.Info("Stopping file watcher")
	close(w.stopChan)
	w.watcher.Close()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			w.Stop()
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				slog.Warn("Failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if !w.extensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	var kind FileEventType
	switch {
	case event.Has(fsnotify.Create):
		kind = FileCreated
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		kind = FileRemoved
	case event.Has(fsnotify.Write):
		kind = FileModified
	default:
		return
	}
	slog.Debug("Library file changed", "file", event.Name, "type", kind)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.pending.Path = event.Name
	w.pending.EventType = kind
	w.pending.Count++
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.emit)
}

func (w *Watcher) emit() {
	w.mu.Lock()
	event := w.pending
	event.Timestamp = time.Now()
	w.pending = FileEvent{}
	w.timer = nil
	w.mu.Unlock()

	if event.Count == 0 {
		return
	}
	select {
	case w.eventChan <- event:
		slog.Info("Emitted library change after debounce", "path", event.Path, "changes", event.Count)
	default:
		slog.Warn("Event channel full, dropping file event", "path", event.Path)
	}
}
