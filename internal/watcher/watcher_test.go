package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type pathCollector struct {
	mu    sync.Mutex
	paths []string
}

func (c *pathCollector) add(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *pathCollector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func (c *pathCollector) waitFor(t *testing.T, n int, timeout time.Duration) []string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if got := c.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d ingest calls, got %d", n, len(c.snapshot()))
	return nil
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"doc.pdf", []string{".pdf", ".txt"}, true},
		{"doc.PDF", []string{".pdf"}, true},
		{"doc.txt", []string{"txt"}, true},
		{"doc.docx", []string{".pdf", ".txt"}, false},
		{"no-extension", []string{".pdf"}, false},
		{"anything.xyz", nil, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestWatcher_ingestsNewFile(t *testing.T) {
	dir := t.TempDir()
	col := &pathCollector{}
	w := New([]string{dir}, []string{".txt"}, col.add, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("some text"), 0600); err != nil {
		t.Fatal(err)
	}

	got := col.waitFor(t, 1, 3*time.Second)
	if got[0] != path {
		t.Errorf("ingested %q, want %q", got[0], path)
	}
}

func TestWatcher_ignoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	col := &pathCollector{}
	w := New([]string{dir}, []string{".pdf"}, col.add, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "skip.tmp"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := col.snapshot(); len(got) != 0 {
		t.Errorf("ingested %v, want nothing", got)
	}
}

func TestWatcher_debouncesRepeatedWrites(t *testing.T) {
	dir := t.TempDir()
	col := &pathCollector{}
	w := New([]string{dir}, []string{".txt"}, col.add, WithDebounce(150*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "burst.txt")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("revision"), 0600); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	col.waitFor(t, 1, 3*time.Second)
	// Give a possible second (incorrect) ingest time to fire.
	time.Sleep(300 * time.Millisecond)
	if got := col.snapshot(); len(got) != 1 {
		t.Errorf("got %d ingest calls for one burst, want 1", len(got))
	}
}

func TestWatcher_syncExisting(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "old.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "old.log"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	col := &pathCollector{}
	w := New([]string{dir}, []string{".txt"}, col.add)
	w.SyncExisting()

	got := col.snapshot()
	if len(got) != 1 || filepath.Base(got[0]) != "old.txt" {
		t.Errorf("sync ingested %v, want just old.txt", got)
	}
}

func TestWatcher_stopDuringEventBurst(t *testing.T) {
	dir := t.TempDir()
	w := New([]string{dir}, []string{".txt"}, func(string) {}, WithDebounce(10*time.Millisecond))

	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Keep events arriving while Stop lands mid-loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			path := filepath.Join(dir, fmt.Sprintf("burst-%d.txt", i))
			if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
				return
			}
		}
	}()

	time.Sleep(5 * time.Millisecond)
	w.Stop()
	<-done

	// A second Stop after shutdown must be a no-op.
	w.Stop()
}

func TestWatcher_createsMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "not-yet")
	w := New([]string{dir}, nil, func(string) {})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("watched directory was not created: %v", err)
	}
}
