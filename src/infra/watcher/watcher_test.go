package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_DebouncesAudioChanges(t *testing.T) {
	root := t.TempDir()
	events := make(chan FileEvent, 4)

	w, err := NewWatcher(events, []string{".mp3", ".FLAC"}, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx, root); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(root, "cover.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.mp3", "b.flac"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case ev := <-events:
		if ev.Count < 2 {
			t.Errorf("expected the burst to be folded into one event, got count %d", ev.Count)
		}
		if filepath.Ext(ev.Path) == ".txt" {
			t.Errorf("unexpected non audio path %s", ev.Path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case ev := <-events:
		t.Errorf("expected a single event, got another: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	events := make(chan FileEvent, 4)

	w, err := NewWatcher(events, []string{".mp3"}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(context.Background(), root); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	dir := filepath.Join(root, "Artist", "Album")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	// give the loop a moment to register the new directories
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "01.mp3"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		if ev.Path != filepath.Join(dir, "01.mp3") {
			t.Errorf("unexpected path %s", ev.Path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event in nested directory")
	}
}
