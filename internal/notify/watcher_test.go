package notify

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// collectEvent waits for one KeyEvent or fails the test.
func collectEvent(t *testing.T, w *Watcher) KeyEvent {
	t.Helper()
	select {
	case event := <-w.Events():
		return event
	case err := <-w.Errors():
		t.Fatalf("watcher error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
	}
	return KeyEvent{}
}

func startWatcher(t *testing.T, dir string, selfWrite func(string) bool) *Watcher {
	t.Helper()
	w, err := NewWatcher(selfWrite)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(dir); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestWatcherEmitsSetOnWrite(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, nil)

	if err := os.WriteFile(filepath.Join(dir, "profile.json"), []byte(`{}`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	event := collectEvent(t, w)
	if event.Key != "profile" {
		t.Errorf("event key = %q, want profile", event.Key)
	}
	if event.Op != OpSet {
		t.Errorf("event op = %v, want set", event.Op)
	}
}

func TestWatcherEmitsRemoveOnDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "syncTrigger.json")
	if err := os.WriteFile(path, []byte("1"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	w := startWatcher(t, dir, nil)

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	event := collectEvent(t, w)
	if event.Key != "syncTrigger" || event.Op != OpRemove {
		t.Errorf("event = %+v, want syncTrigger remove", event)
	}
}

func TestWatcherIgnoresNonKeyFiles(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, nil)

	// Neither a temp file nor a non-JSON file is a key change.
	os.WriteFile(filepath.Join(dir, ".profile-123.tmp"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	select {
	case event := <-w.Events():
		t.Errorf("unexpected event for non-key file: %+v", event)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherFiltersSelfWrites(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, func(key string) bool {
		return key == "profile"
	})

	os.WriteFile(filepath.Join(dir, "profile.json"), []byte(`{}`), 0644)
	os.WriteFile(filepath.Join(dir, "analysisHistory.json"), []byte(`[]`), 0644)

	// Only the history event should come through.
	event := collectEvent(t, w)
	if event.Key != "analysisHistory" {
		t.Errorf("event key = %q, want analysisHistory (self-write not filtered)", event.Key)
	}
}

func TestWatcherStartStop(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if w.IsRunning() {
		t.Error("watcher running before Start")
	}
	if err := w.Start(dir); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !w.IsRunning() {
		t.Error("watcher not running after Start")
	}
	if err := w.Start(dir); err == nil {
		t.Error("second Start succeeded, want error")
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if w.IsRunning() {
		t.Error("watcher still running after Stop")
	}
	// Stopping twice is harmless.
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
}

func TestWatcherStartMissingDir(t *testing.T) {
	w, err := NewWatcher(nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.watcher.Close()

	if err := w.Start(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Start on missing directory succeeded, want error")
	}
}
