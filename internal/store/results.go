// Package store holds the session working set: the current batch of
// generation results and the decoded image payloads their memory:// handles
// point at. Nothing here persists beyond the process.
package store

import (
	"fmt"
	"sync"

	"github.com/hualin/rednote-studio/internal/domain"
)

// Results is the mutable working set of cards. A new generation batch
// replaces it wholesale; edits and image swaps update entries in place.
// Every mutation is atomic and readers always observe a consistent batch.
type Results struct {
	mu    sync.RWMutex
	order []string
	items map[string]*domain.GenerationResult

	subMu   sync.Mutex
	subs    map[int]chan []domain.GenerationResult
	nextSub int
}

// NewResults creates an empty working set.
func NewResults() *Results {
	return &Results{
		items: make(map[string]*domain.GenerationResult),
		subs:  make(map[int]chan []domain.GenerationResult),
	}
}

// ReplaceBatch swaps in a new batch, dropping the previous working set.
// Input order is preserved; it is the export order later.
func (r *Results) ReplaceBatch(results []domain.GenerationResult) {
	r.mu.Lock()
	r.order = r.order[:0]
	r.items = make(map[string]*domain.GenerationResult, len(results))
	for i := range results {
		res := results[i]
		if _, dup := r.items[res.ID]; dup {
			continue
		}
		r.order = append(r.order, res.ID)
		r.items[res.ID] = &res
	}
	r.mu.Unlock()
	r.notify()
}

// List returns a snapshot of the working set in batch order.
func (r *Results) List() []domain.GenerationResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.GenerationResult, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.items[id])
	}
	return out
}

// Get returns one result by id.
func (r *Results) Get(id string) (domain.GenerationResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.items[id]
	if !ok {
		return domain.GenerationResult{}, false
	}
	return *res, true
}

// Len returns the working set size.
func (r *Results) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// UpdateContent replaces the caption text of one card.
func (r *Results) UpdateContent(id, content string) error {
	r.mu.Lock()
	res, ok := r.items[id]
	if ok {
		res.Content = content
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown result %s", id)
	}
	r.notify()
	return nil
}

// SetImageURL replaces the card's image source. An empty URL clears it,
// turning the card text-only.
func (r *Results) SetImageURL(id, url string) error {
	r.mu.Lock()
	res, ok := r.items[id]
	if ok {
		res.ImageURL = url
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown result %s", id)
	}
	r.notify()
	return nil
}

// Subscribe registers a change listener. Each mutation delivers a fresh
// snapshot; slow listeners drop intermediate snapshots rather than block
// mutations.
func (r *Results) Subscribe() (int, <-chan []domain.GenerationResult) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	id := r.nextSub
	r.nextSub++
	ch := make(chan []domain.GenerationResult, 1)
	r.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (r *Results) Unsubscribe(id int) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	if ch, ok := r.subs[id]; ok {
		delete(r.subs, id)
		close(ch)
	}
}

func (r *Results) notify() {
	snapshot := r.List()
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- snapshot:
		default:
			// Drain the stale snapshot so the latest one lands.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
