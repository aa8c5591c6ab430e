package gc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nickbreaton/video-slug/internal/event"
	"github.com/nickbreaton/video-slug/internal/store"
)

func TestCollectRemovesOrphansOnly(t *testing.T) {
	st := store.NewMemoryVideoStore()
	dir := t.TempDir()

	require.NoError(t, st.Insert(context.Background(), event.Metadata{
		ID: "abc", Title: "Kept", Filename: "kept.mp4",
	}))

	for _, name := range []string{"kept.mp4", "orphan.mp4", "inflight.mp4.part", "inflight.mp4.ytdl"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	c := New(st, dir, time.Minute, zap.NewNop())
	require.NoError(t, c.collect(context.Background()))

	assert.FileExists(t, filepath.Join(dir, "kept.mp4"))
	assert.FileExists(t, filepath.Join(dir, "inflight.mp4.part"))
	assert.FileExists(t, filepath.Join(dir, "inflight.mp4.ytdl"))
	assert.DirExists(t, filepath.Join(dir, "subdir"))
	assert.NoFileExists(t, filepath.Join(dir, "orphan.mp4"))
}

func TestCollectWithEmptyStoreRemovesEverything(t *testing.T) {
	st := store.NewMemoryVideoStore()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.webm"), []byte("x"), 0o644))

	c := New(st, dir, time.Minute, zap.NewNop())
	require.NoError(t, c.collect(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunStopsOnCancel(t *testing.T) {
	st := store.NewMemoryVideoStore()
	c := New(st, t.TempDir(), 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop after cancellation")
	}
}
