package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var callCount atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() {
			callCount.Add(1)
		})
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if count := callCount.Load(); count != 1 {
		t.Errorf("expected 1 callback invocation, got %d", count)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() {
		called.Store(true)
	})
	d.Cancel()

	time.Sleep(100 * time.Millisecond)
	if called.Load() {
		t.Error("callback should not have been invoked after cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	d := NewDebouncer(0)
	if d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func TestNewWatcher_NoPaths(t *testing.T) {
	if _, err := NewWatcher([]string{"", "  "}); !errors.Is(err, ErrNoPaths) {
		t.Errorf("expected ErrNoPaths, got %v", err)
	}
}

func TestNewWatcher_DedupesPaths(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cluster_data.json")
	w, err := NewWatcher([]string{p, p, ""})
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Paths()) != 1 {
		t.Errorf("paths = %v", w.Paths())
	}
}

func waitForChange(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Changed():
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestWatcher_DetectsChangeOnEitherFile(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "cluster_data.json")
	rich := filepath.Join(dir, "cluster_data_rich.json")
	for _, p := range []string{data, rich} {
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w, err := NewWatcher([]string{data, rich}, WithDebounceDuration(30*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(rich, []byte(`{"1": {"breakdown": []}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForChange(t, w)
}

func TestWatcher_PollingMode(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "cluster_data.json")
	if err := os.WriteFile(data, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	var changes atomic.Int32
	w, err := NewWatcher([]string{data},
		WithForcePoll(true),
		WithPollInterval(20*time.Millisecond),
		WithDebounceDuration(20*time.Millisecond),
		WithOnChange(func() { changes.Add(1) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatal("expected polling mode")
	}

	if err := os.WriteFile(data, []byte(`[{"cluster_id": 1}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForChange(t, w)
	if changes.Load() == 0 {
		t.Error("OnChange should have been called")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "cluster_data.json")
	if err := os.WriteFile(data, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher([]string{data}, WithDebounceDuration(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if w.IsPolling() {
		t.Skip("fsnotify unavailable on this filesystem")
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Changed():
		t.Error("unrelated file should not trigger a change")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_DoubleStart(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher([]string{filepath.Join(dir, "missing.json")}, WithForcePoll(true))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("missing file should not prevent Start: %v", err)
	}
	defer w.Stop()
	if err := w.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	w.Stop()
	if w.IsStarted() {
		t.Error("Stop should clear started")
	}
}

func TestIsRemoteFilesystem(t *testing.T) {
	if !isRemoteFilesystem(FSTypeNFS) || isRemoteFilesystem(FSTypeLocal) || isRemoteFilesystem(FSTypeUnknown) {
		t.Error("unexpected remote classification")
	}
}
