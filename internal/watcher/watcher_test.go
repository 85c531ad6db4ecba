package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

type recordingIngester struct {
	mu    sync.Mutex
	paths []string
	fail  map[string]bool
}

func (r *recordingIngester) IngestFile(ctx context.Context, path string) (*models.IngestResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[filepath.Base(path)] {
		return nil, errors.New("boom")
	}
	r.paths = append(r.paths, path)
	return &models.IngestResponse{ItemID: "doc", Message: "ok"}, nil
}

func (r *recordingIngester) ingested() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recordingIngester) has(suffix string) bool {
	for _, p := range r.ingested() {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	ing := &recordingIngester{}
	w := NewWatcher([]string{dir}, []string{".txt"}, true, ing, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "f.txt")
	for i := 0; i < 3; i++ {
		if err := writeFile(path, strings.Repeat("x", i+1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := writeFile(filepath.Join(dir, "skip.xyz"), "x"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return ing.has("f.txt") })
	time.Sleep(150 * time.Millisecond)

	got := ing.ingested()
	if len(got) != 1 {
		t.Errorf("rapid writes should be debounced into one ingestion, got %v", got)
	}
	if ing.has("skip.xyz") {
		t.Error("skip.xyz should not be ingested")
	}
}

func TestWatcher_NewDirectory(t *testing.T) {
	dir := t.TempDir()
	ing := &recordingIngester{}
	w := NewWatcher([]string{dir}, []string{".txt", ".pdf"}, true, ing, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	nested := filepath.Join(dir, "level1", "level2")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "deep.txt"), "deep content"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return ing.has("deep.txt") })
}

func TestWatcher_SyncExisting(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "broken.txt"),
		filepath.Join(dir, "ignore.xyz"),
		filepath.Join(sub, "c.txt"),
	} {
		if err := writeFile(p, "hello"); err != nil {
			t.Fatal(err)
		}
	}

	ing := &recordingIngester{fail: map[string]bool{"broken.txt": true}}
	n := NewWatcher([]string{dir}, []string{".txt"}, true, ing).SyncExisting(context.Background())
	if n != 2 || !ing.has("a.txt") || !ing.has("c.txt") {
		t.Errorf("recursive sync: n=%d, ingested %v", n, ing.ingested())
	}

	flat := &recordingIngester{}
	n = NewWatcher([]string{dir}, []string{".txt"}, false, flat).SyncExisting(context.Background())
	if n != 2 || flat.has("c.txt") {
		t.Errorf("non-recursive sync: n=%d, ingested %v", n, flat.ingested())
	}
}

func TestWatcher_StartCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	w := NewWatcher([]string{root}, []string{".txt"}, true, &recordingIngester{})
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
	if dirs := w.Directories(); len(dirs) != 1 || dirs[0] != root {
		t.Errorf("Directories() = %v", dirs)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher([]string{t.TempDir()}, nil, true, &recordingIngester{})
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	w.Stop()
	w.Stop()
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.txt", []string{".txt"}, true},
		{"/a/b.TXT", []string{"txt"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, tt.path); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
