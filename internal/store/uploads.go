package store

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Upload describes a file received over the API and parked on disk
// until a chat turn references it.
type Upload struct {
	ID          string    `json:"file_id"`
	Filename    string    `json:"filename"`
	Path        string    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Uploads is a thread-safe in-memory registry of pending uploads with
// TTL eviction. Files live on disk; this tracks the handle a chat
// request uses to reference them.
type Uploads struct {
	mu      sync.Mutex
	files   map[string]Upload
	ttl     time.Duration
	entropy *ulid.MonotonicEntropy
}

func NewUploads(ttl time.Duration) *Uploads {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Uploads{
		files:   make(map[string]Upload),
		ttl:     ttl,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewID mints a sortable upload identifier.
func (u *Uploads) NewID() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return ulid.MustNew(ulid.Now(), u.entropy).String()
}

func (u *Uploads) Put(up Upload) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.files[up.ID] = up
}

// Get looks up an upload by ID.
func (u *Uploads) Get(id string) (Upload, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	up, ok := u.files[id]
	return up, ok
}

func (u *Uploads) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.files)
}

// Cleanup drops expired entries and returns the paths they held so the
// caller can unlink the files.
func (u *Uploads) Cleanup() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	now := time.Now()
	var removed []string
	for id, up := range u.files {
		if now.Sub(up.UploadedAt) > u.ttl {
			removed = append(removed, up.Path)
			delete(u.files, id)
		}
	}
	return removed
}
