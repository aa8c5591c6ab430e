// Package registry maps video identifiers to the live event stream of
// their in-flight (or recently finished) download, so a progress request
// arriving after the download started can still attach to it.
package registry

import (
	"sync"

	"github.com/nickbreaton/video-slug/internal/broadcast"
)

type Registry struct {
	mu      sync.RWMutex
	streams map[string]*broadcast.Stream
}

func New() *Registry {
	return &Registry{streams: make(map[string]*broadcast.Stream)}
}

// Register stores the stream under id. Registering the same id again
// overwrites the previous entry (last write wins).
func (r *Registry) Register(id string, s *broadcast.Stream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams[id] = s
}

// Lookup returns the stream for id, if present.
func (r *Registry) Lookup(id string) (*broadcast.Stream, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.streams[id]
	return s, ok
}

// Evict removes the entry for id, but only while it still holds s: a
// stale eviction scheduled for a finished download must not remove a
// newer stream registered under the same id. Removing an unknown id is
// a no-op.
func (r *Registry) Evict(id string, s *broadcast.Stream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.streams[id] == s {
		delete(r.streams, id)
	}
}

// Len returns the current number of registered streams.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}
