package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func contains(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}

func newTestWatcher(t *testing.T, debounce time.Duration, excludeDirs, excludeFiles []string) (*Watcher, chan []string) {
	t.Helper()
	changed := make(chan []string, 8)
	w, err := NewWatcher(debounce, excludeDirs, excludeFiles, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	return w, changed
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadPattern(t *testing.T) {
	if _, err := NewWatcher(time.Millisecond, []string{"[bad"}, nil, func([]string) {}); err == nil {
		t.Fatal("expected error for invalid exclude pattern")
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	w, changed := newTestWatcher(t, 100*time.Millisecond, []string{"target"}, []string{"*_generated.rs"})
	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	testFile := filepath.Join(tmpDir, "lib.rs")
	if err := os.WriteFile(testFile, []byte("fn main() {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changed:
		if !contains(paths, testFile) {
			t.Errorf("expected %s in changed files %v", testFile, paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for file change event")
	}

	// Excluded names and non-Rust files stay quiet.
	_ = os.WriteFile(filepath.Join(tmpDir, "schema_generated.rs"), []byte("fn x() {}"), 0o644)
	_ = os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("hello"), 0o644)

	select {
	case paths := <-changed:
		t.Errorf("excluded files triggered an event: %v", paths)
	case <-time.After(400 * time.Millisecond):
	}

	subdir := filepath.Join(tmpDir, "nested")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "mod.rs")
	if err := os.WriteFile(subFile, []byte("pub fn f() {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changed:
			if contains(paths, subFile) {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for nested file event in newly created directory")
		}
	}
}

func TestWatcher_IdenticalContentIsIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "main.rs")
	content := []byte("fn main() {}\n")
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}

	w, changed := newTestWatcher(t, 50*time.Millisecond, nil, nil)
	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case paths := <-changed:
		t.Errorf("unexpected event for identical content: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}

	if err := os.WriteFile(testFile, []byte("fn main() { run(); }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case paths := <-changed:
		if !contains(paths, testFile) {
			t.Errorf("expected event for %s, got %v", testFile, paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for content change")
	}
}

func TestWatcher_RemoveTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "gone.rs")
	if err := os.WriteFile(target, []byte("fn a() {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, changed := newTestWatcher(t, 50*time.Millisecond, nil, nil)
	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(target); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changed:
		if !contains(paths, target) {
			t.Errorf("expected removal of %s, got %v", target, paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for remove event")
	}
}

func TestWatcher_Filters(t *testing.T) {
	w, _ := newTestWatcher(t, 10*time.Millisecond, []string{"target"}, []string{"build.rs"})

	if !w.shouldExcludeFile("main.py") {
		t.Error("expected non-Rust files to be excluded")
	}
	if w.shouldExcludeFile("src/lib.rs") {
		t.Error("expected .rs files to be included")
	}
	if !w.shouldExcludeFile("build.rs") {
		t.Error("expected excluded file name to be skipped")
	}
	if !w.shouldExcludeDir("/x/target") {
		t.Error("expected target dir to be excluded")
	}

	w.SetExtensions([]string{"toml"})
	if !w.shouldExcludeFile("lib.rs") || w.shouldExcludeFile("Cargo.toml") {
		t.Error("SetExtensions should replace the extension filter")
	}
}
