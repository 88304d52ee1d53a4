// Package logstore keeps a capacity-bounded in-memory buffer of recent log
// lines so the frontend activity panel can poll them over HTTP. It feeds
// from the process logger through a logrus hook; nothing is written to disk
// here.
package logstore

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultCapacity = 500

// Entry is one buffered log line. ID is monotonic within the process, so
// pollers pass the last seen id and receive only newer lines.
type Entry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
}

// Buffer is the bounded ring of recent entries. Appends past capacity evict
// the oldest lines.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int64
	cap     int

	subMu   sync.Mutex
	subs    map[int]chan Entry
	nextSub int
}

// NewBuffer creates a ring holding at most capacity entries. Non-positive
// capacity uses the default.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Buffer{
		cap:    capacity,
		nextID: 1,
		subs:   make(map[int]chan Entry),
	}
}

// Append adds one line and fans it out to subscribers.
func (b *Buffer) Append(severity, message string) Entry {
	b.mu.Lock()
	e := Entry{
		ID:        b.nextID,
		Timestamp: time.Now(),
		Severity:  severity,
		Message:   message,
	}
	b.nextID++
	b.entries = append(b.entries, e)
	if len(b.entries) > b.cap {
		b.entries = b.entries[len(b.entries)-b.cap:]
	}
	b.mu.Unlock()

	b.subMu.Lock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
	b.subMu.Unlock()
	return e
}

// Since returns every buffered entry with an id greater than afterID, oldest
// first. afterID 0 returns the whole buffer.
func (b *Buffer) Since(afterID int64) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		if e.ID > afterID {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Subscribe registers a live listener. Slow listeners lose lines rather
// than block the logger; the ring itself is the catch-up path.
func (b *Buffer) Subscribe() (int, <-chan Entry) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	id := b.nextSub
	b.nextSub++
	ch := make(chan Entry, 64)
	b.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Buffer) Unsubscribe(id int) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Hook adapts the buffer into a logrus hook so every process log line also
// lands in the ring.
type Hook struct {
	buffer *Buffer
	min    logrus.Level
}

// NewHook creates a hook forwarding entries at min level and above.
func NewHook(buffer *Buffer, min logrus.Level) *Hook {
	return &Hook{buffer: buffer, min: min}
}

func (h *Hook) Levels() []logrus.Level {
	levels := make([]logrus.Level, 0, int(h.min)+1)
	for l := logrus.PanicLevel; l <= h.min; l++ {
		levels = append(levels, l)
	}
	return levels
}

func (h *Hook) Fire(entry *logrus.Entry) error {
	h.buffer.Append(entry.Level.String(), entry.Message)
	return nil
}
