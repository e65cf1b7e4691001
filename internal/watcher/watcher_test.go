package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) record(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestWatchCallsOnChange(t *testing.T) {
	dir := t.TempDir()
	design := filepath.Join(dir, "plot.yaml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(design, []byte("name: plot\n"), 0o644))

	rec := &recorder{}
	w := New(rec.record, design).WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// Give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(design, []byte("name: plot2\n"), 0o644))
	}

	require.Eventually(t, func() bool { return len(rec.get()) > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	abs, err := filepath.Abs(design)
	require.NoError(t, err)
	assert.Equal(t, []string{abs}, rec.get(), "burst should be debounced into one call")

	cancel()
	assert.True(t, errors.Is(<-done, context.Canceled))
}

func TestWatchMissingDirectory(t *testing.T) {
	w := New(func(string) {}, filepath.Join(t.TempDir(), "missing", "plot.yaml"))
	err := w.Watch(context.Background())
	assert.Error(t, err)
}
