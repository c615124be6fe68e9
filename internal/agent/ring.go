package agent

import (
	"sync"
	"time"
)

// TagEntry is one raw markup stream captured from the vision model.
type TagEntry struct {
	Time   time.Time `json:"time"`
	Stream string    `json:"stream"`
}

// TagRing keeps the most recent raw extraction outputs in a fixed-size
// ring so they can be inspected over the debug endpoint without
// growing without bound.
type TagRing struct {
	mu      sync.Mutex
	entries []TagEntry
	next    int
	full    bool
}

func NewTagRing(capacity int) *TagRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &TagRing{entries: make([]TagEntry, capacity)}
}

// Record stores a stream, evicting the oldest entry once the ring is
// full.
func (r *TagRing) Record(stream string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = TagEntry{Time: time.Now().UTC(), Stream: stream}
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// Last returns the most recently recorded entry, if any.
func (r *TagRing) Last() (TagEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.next - 1
	if idx < 0 {
		if !r.full {
			return TagEntry{}, false
		}
		idx = len(r.entries) - 1
	}
	return r.entries[idx], true
}

// Snapshot returns the recorded entries, oldest first.
func (r *TagRing) Snapshot() []TagEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TagEntry
	if r.full {
		out = append(out, r.entries[r.next:]...)
		out = append(out, r.entries[:r.next]...)
		return out
	}
	return append(out, r.entries[:r.next]...)
}
