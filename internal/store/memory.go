package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/nickbreaton/video-slug/internal/event"
)

// MemoryVideoStore is an in-process VideoStore for tests and local runs
// without a database.
type MemoryVideoStore struct {
	lock      sync.RWMutex
	videos    []event.Metadata
	positions map[string]PlaybackPosition
}

var _ VideoStore = (*MemoryVideoStore)(nil)

func NewMemoryVideoStore() *MemoryVideoStore {
	return &MemoryVideoStore{positions: make(map[string]PlaybackPosition)}
}

func (store *MemoryVideoStore) Insert(ctx context.Context, video event.Metadata) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	for i := range store.videos {
		if store.videos[i].ID == video.ID {
			return fmt.Errorf("inserting video `%s`: duplicate id", video.ID)
		}
	}
	store.videos = append(store.videos, video)
	return nil
}

func (store *MemoryVideoStore) List(ctx context.Context) ([]event.Metadata, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	videos := make([]event.Metadata, len(store.videos))
	copy(videos, store.videos)
	return videos, nil
}

func (store *MemoryVideoStore) GetByID(ctx context.Context, id string) (event.Metadata, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	for i := range store.videos {
		if store.videos[i].ID == id {
			return store.videos[i], nil
		}
	}
	return event.Metadata{}, ErrNotFound
}

func (store *MemoryVideoStore) Delete(ctx context.Context, id string) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	for i := range store.videos {
		if store.videos[i].ID == id {
			store.videos = append(store.videos[:i], store.videos[i+1:]...)
			delete(store.positions, id)
			return nil
		}
	}
	return ErrNotFound
}

func (store *MemoryVideoStore) SavePlaybackPosition(
	ctx context.Context,
	videoID string,
	pos PlaybackPosition,
) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	found := false
	for i := range store.videos {
		if store.videos[i].ID == videoID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("saving playback position for `%s`: %w", videoID, ErrNotFound)
	}
	store.positions[videoID] = pos
	return nil
}

func (store *MemoryVideoStore) PlaybackPosition(
	ctx context.Context,
	videoID string,
) (PlaybackPosition, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	pos, ok := store.positions[videoID]
	if !ok {
		return PlaybackPosition{}, ErrNotFound
	}
	return pos, nil
}
