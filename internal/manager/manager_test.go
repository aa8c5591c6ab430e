package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nickbreaton/video-slug/internal/event"
	"github.com/nickbreaton/video-slug/internal/registry"
	"github.com/nickbreaton/video-slug/internal/store"
)

const metadataLine = `{"id": "abc123", "title": "Test Video", "filename": "Test_Video-abc123.mp4"}`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-downloader")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newManager(t *testing.T, st store.VideoStore, scriptBody string) (*Manager, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	bin := writeScript(t, scriptBody)
	return New(st, reg, zap.NewNop(), bin, t.TempDir(), 100*time.Millisecond), reg
}

type failingStore struct {
	*store.MemoryVideoStore
}

func (failingStore) Insert(ctx context.Context, video event.Metadata) error {
	return errors.New("database unavailable")
}

func TestInitiateSuccess(t *testing.T) {
	st := store.NewMemoryVideoStore()
	mgr, _ := newManager(t, st, `
echo 'download:{"downloaded_bytes": 100, "total_bytes": 1000, "eta": null, "speed": null, "elapsed": null, "id": "abc123"}'
echo '`+metadataLine+`'
sleep 0.3
echo 'download:{"downloaded_bytes": 1000, "total_bytes": 1000, "eta": 0, "speed": null, "elapsed": null, "id": "abc123"}'`)

	md, err := mgr.Initiate(context.Background(), "https://example.com/watch?v=abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", md.ID)
	assert.Equal(t, "Test_Video-abc123.mp4", md.Filename)

	// Record must be visible immediately after Initiate returns.
	videos, err := st.List(context.Background())
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "abc123", videos[0].ID)

	// The live stream must be registered immediately as well.
	stream, err := mgr.Progress("abc123")
	require.NoError(t, err)

	events, cancel := stream.Subscribe()
	defer cancel()
	var sawProgress bool
	timeout := time.After(10 * time.Second)
	for done := false; !done; {
		select {
		case ev, ok := <-events:
			if !ok {
				done = true
				break
			}
			if _, isProgress := ev.(event.Progress); isProgress {
				sawProgress = true
			}
		case <-timeout:
			t.Fatal("stream never terminated")
		}
	}
	assert.True(t, sawProgress, "expected a progress event after commitment")
	assert.NoError(t, stream.Err())
}

func TestInitiateVideoNotFound(t *testing.T) {
	st := store.NewMemoryVideoStore()
	mgr, reg := newManager(t, st,
		`echo 'ERROR: [youtube] abc123: Video unavailable'; exit 1`)

	_, err := mgr.Initiate(context.Background(), "https://example.com/watch?v=gone")

	var initErr *InitiationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "Video not found", initErr.Message)

	videos, _ := st.List(context.Background())
	assert.Empty(t, videos, "failed download must not persist a record")
	assert.Zero(t, reg.Len(), "failed download must not register a stream")
}

func TestInitiateNoMetadataInStream(t *testing.T) {
	mgr, _ := newManager(t, store.NewMemoryVideoStore(),
		`echo '[test] no metadata here'`)

	_, err := mgr.Initiate(context.Background(), "https://example.com/watch?v=abc123")

	var initErr *InitiationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "Video info not found in stream", initErr.Message)
}

func TestInitiateCommandFailure(t *testing.T) {
	mgr, _ := newManager(t, store.NewMemoryVideoStore(),
		`echo 'hard crash' >&2; exit 3`)

	_, err := mgr.Initiate(context.Background(), "https://example.com/watch?v=abc123")

	var initErr *InitiationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "Error within download command", initErr.Message)
}

func TestInitiatePersistFailureKillsSession(t *testing.T) {
	st := failingStore{store.NewMemoryVideoStore()}
	mgr, reg := newManager(t, st, `echo '`+metadataLine+`'; sleep 60`)

	start := time.Now()
	_, err := mgr.Initiate(context.Background(), "https://example.com/watch?v=abc123")

	var initErr *InitiationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "Error saving video info", initErr.Message)
	assert.Zero(t, reg.Len())
	assert.Less(t, time.Since(start), 10*time.Second,
		"session must be cancelled, not awaited to natural exit")
}

func TestInitiateRequestCancelledBeforeMetadata(t *testing.T) {
	mgr, reg := newManager(t, store.NewMemoryVideoStore(),
		`echo 'still resolving'; sleep 60`)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := mgr.Initiate(ctx, "https://example.com/watch?v=abc123")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, reg.Len())
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRegistryEvictionAfterCompletion(t *testing.T) {
	mgr, reg := newManager(t, store.NewMemoryVideoStore(),
		`echo '`+metadataLine+`'`)

	_, err := mgr.Initiate(context.Background(), "https://example.com/watch?v=abc123")
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())

	// registryTTL is 100ms in tests; the entry must disappear shortly after
	// the background drain finishes.
	deadline := time.Now().Add(10 * time.Second)
	for reg.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	assert.Zero(t, reg.Len(), "registry entry should be evicted after the TTL")

	_, err = mgr.Progress("abc123")
	assert.ErrorIs(t, err, ErrUnknownDownload)
}

func TestStaleEvictionSparesReinitiatedDownload(t *testing.T) {
	st := store.NewMemoryVideoStore()
	reg := registry.New()

	// The script finishes instantly on its first run and keeps running on
	// the second, so the first download's eviction timer fires while the
	// second download of the same video is still in flight.
	dir := t.TempDir()
	bin := writeScript(t, `
echo '`+metadataLine+`'
flag="`+filepath.Join(dir, "first-run-done")+`"
if [ -f "$flag" ]; then sleep 5; else touch "$flag"; fi`)
	mgr := New(st, reg, zap.NewNop(), bin, t.TempDir(), 100*time.Millisecond)

	_, err := mgr.Initiate(context.Background(), "https://example.com/watch?v=abc123")
	require.NoError(t, err)

	require.NoError(t, st.Delete(context.Background(), "abc123"))

	_, err = mgr.Initiate(context.Background(), "https://example.com/watch?v=abc123")
	require.NoError(t, err)

	// Outlive the first download's eviction timer.
	time.Sleep(300 * time.Millisecond)

	stream, err := mgr.Progress("abc123")
	require.NoError(t, err, "live download must stay resolvable past the old timer")
	assert.Equal(t, 1, reg.Len())
	assert.False(t, stream.Done(), "registered stream is not the in-flight download")
}

func TestProgressUnknownID(t *testing.T) {
	mgr, _ := newManager(t, store.NewMemoryVideoStore(), `true`)
	_, err := mgr.Progress("never-started")
	assert.ErrorIs(t, err, ErrUnknownDownload)
}
