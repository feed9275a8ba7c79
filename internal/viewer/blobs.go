package viewer

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrHandleReleased is returned for a handle that was revoked or never existed.
var ErrHandleReleased = errors.New("blob handle released")

// Blobs is the registry of preview handles: ephemeral references to decoded
// PDF bytes, served by URL until revoked.
//
// Go Pattern: The registry only knows handles. Ownership (which viewer
// session may revoke what) lives in the Session that created them.
type Blobs struct {
	mu        sync.RWMutex
	urlPrefix string
	items     map[string]blob
}

type blob struct {
	data     []byte
	mimeType string
}

// NewBlobs creates a registry whose URLs are urlPrefix + handle.
func NewBlobs(urlPrefix string) *Blobs {
	return &Blobs{
		urlPrefix: urlPrefix,
		items:     make(map[string]blob),
	}
}

// Create registers data and returns its handle and preview URL.
func (b *Blobs) Create(data []byte, mimeType string) (handle, url string) {
	handle = uuid.NewString()

	b.mu.Lock()
	b.items[handle] = blob{data: data, mimeType: mimeType}
	b.mu.Unlock()

	return handle, b.urlPrefix + handle
}

// Get returns the bytes behind a live handle.
func (b *Blobs) Get(handle string) ([]byte, string, error) {
	b.mu.RLock()
	item, ok := b.items[handle]
	b.mu.RUnlock()

	if !ok {
		return nil, "", ErrHandleReleased
	}
	return item.data, item.mimeType, nil
}

// Revoke releases a handle. Revoking the same handle twice is an error,
// so callers can prove they release exactly once.
func (b *Blobs) Revoke(handle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.items[handle]; !ok {
		return ErrHandleReleased
	}
	delete(b.items, handle)
	return nil
}

// Len returns the number of live handles.
func (b *Blobs) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}
