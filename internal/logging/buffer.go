package logging

import (
	"sync"
	"time"
)

// LogEntry represents a single log line stored in the ring buffer.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent log entries for replay to late
// subscribers. It is safe for concurrent use.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int  // slot the next write goes to
	full    bool // every slot holds an entry
}

// NewRingBuffer creates a buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write stores entry, dropping the oldest one once the buffer is full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.next] = entry
	rb.next++
	if rb.next == len(rb.entries) {
		rb.next = 0
		rb.full = true
	}
}

// ReadAll returns all entries, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Tail(0)
}

// Tail returns the newest n entries, oldest first. n <= 0 returns everything.
func (rb *RingBuffer) Tail(n int) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var ordered []LogEntry
	if rb.full {
		ordered = append(ordered, rb.entries[rb.next:]...)
	}
	ordered = append(ordered, rb.entries[:rb.next]...)

	if n > 0 && n < len(ordered) {
		ordered = ordered[len(ordered)-n:]
	}
	if len(ordered) == 0 {
		return nil
	}
	return ordered
}

// Count returns the number of buffered entries.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.full {
		return len(rb.entries)
	}
	return rb.next
}
