package store

import (
	"sync"

	"github.com/google/uuid"
)

// Images holds decoded image payloads behind memory://<id> handles. AI
// generation results land here; the handle lives only as long as the
// process, which is why capture inlines it before rasterizing.
type Images struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewImages creates an empty image store.
func NewImages() *Images {
	return &Images{blobs: make(map[string][]byte)}
}

// Put stores a payload and returns its handle id.
func (s *Images) Put(data []byte) string {
	id := uuid.New().String()
	s.mu.Lock()
	s.blobs[id] = data
	s.mu.Unlock()
	return id
}

// ResolveHandle returns the payload for a handle id. Satisfies the capture
// pipeline's handle resolver.
func (s *Images) ResolveHandle(id string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[id]
	return data, ok
}

// Delete drops one payload.
func (s *Images) Delete(id string) {
	s.mu.Lock()
	delete(s.blobs, id)
	s.mu.Unlock()
}

// Clear drops every payload. Called when a new batch replaces the working
// set, since the old handles can no longer be referenced.
func (s *Images) Clear() {
	s.mu.Lock()
	s.blobs = make(map[string][]byte)
	s.mu.Unlock()
}

// HandleURL renders the memory:// source for a handle id.
func HandleURL(id string) string {
	return "memory://" + id
}
