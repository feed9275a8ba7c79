package viewer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shimizu-Technology/hire-filter-api/internal/services/pdf"
	"github.com/Shimizu-Technology/hire-filter-api/internal/session"
)

// ErrNotFound is returned for an unknown (or already torn down) viewer id.
var ErrNotFound = errors.New("viewer session not found")

// Manager opens viewer sessions and tracks the live ones.
//
// Go Pattern: Dependency injection via the constructor. The store, the
// text extractor and the blob registry are all passed in, so tests can
// use an in-memory store and a fake extractor.
type Manager struct {
	store     session.Store
	extractor pdf.TextExtractor
	blobs     *Blobs
	idleTTL   time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	stopOnce sync.Once
	stop     chan struct{}
}

// NewManager creates a manager. idleTTL <= 0 disables idle reaping.
func NewManager(store session.Store, ex pdf.TextExtractor, blobs *Blobs, idleTTL time.Duration) *Manager {
	return &Manager{
		store:     store,
		extractor: ex,
		blobs:     blobs,
		idleTTL:   idleTTL,
		sessions:  make(map[string]*Session),
		stop:      make(chan struct{}),
	}
}

// Blobs returns the registry that serves preview URLs.
func (m *Manager) Blobs() *Blobs { return m.blobs }

// Open starts a viewer session for the client's current batch.
//
// With no usable batch the returned session is in StateRedirect and holds
// no handles. Otherwise every file gets a preview handle, the session is
// Ready, and text extraction starts in the background.
func (m *Manager) Open(ctx context.Context, clientID string) (*Session, error) {
	s := newSession(uuid.NewString(), clientID, m.blobs, m.store)

	stored, err := m.store.Load(ctx, clientID)
	if errors.Is(err, session.ErrNoSession) {
		s.redirect()
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	files := make([]File, 0, len(stored))
	for _, cv := range stored {
		data, err := base64.StdEncoding.DecodeString(cv.Data)
		// Empty files stay listed; they just never yield text.
		if err != nil {
			log.Printf("viewer: stored file %q is not valid base64, treating session as absent", cv.Name)
			m.revokeAll(files)
			s.redirect()
			return s, nil
		}

		handle, url := m.blobs.Create(data, cv.Type)
		files = append(files, File{
			Name:       cv.Name,
			Type:       cv.Type,
			Data:       data,
			PreviewURL: url,
			handle:     handle,
		})
	}

	s.mu.Lock()
	s.files = files
	s.state = StateReady
	s.unregister = m.unregister
	s.mu.Unlock()

	// A fresh viewer replaces whatever this client had open before. Both
	// steps share one critical section so concurrent opens leave one winner.
	m.mu.Lock()
	replaced := m.detachClientLocked(clientID)
	m.sessions[s.id] = s
	m.mu.Unlock()

	for _, old := range replaced {
		old.Release()
	}

	go s.extract(m.extractor)

	return s, nil
}

// Get returns a live session owned by clientID.
func (m *Manager) Get(clientID, id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()

	if !ok || s.clientID != clientID {
		return nil, ErrNotFound
	}
	s.touch(time.Now())
	return s, nil
}

// Teardown ends a viewer session: handles are released, then the client's
// slot is cleared. An unknown id still clears the slot, so "home" always
// leaves the client without an active session.
func (m *Manager) Teardown(ctx context.Context, clientID, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok && s.clientID == clientID {
		delete(m.sessions, id)
	} else {
		ok = false
	}
	m.mu.Unlock()

	if ok {
		return s.Teardown(ctx)
	}
	if err := m.store.Clear(ctx, clientID); err != nil {
		return fmt.Errorf("failed to clear session slot: %w", err)
	}
	return nil
}

// ReleaseClient releases every open session of a client without clearing
// the slot. It returns how many sessions were released.
func (m *Manager) ReleaseClient(clientID string) int {
	m.mu.Lock()
	victims := m.detachClientLocked(clientID)
	m.mu.Unlock()

	for _, s := range victims {
		s.Release()
	}
	return len(victims)
}

// detachClientLocked removes and returns the client's sessions. m.mu must be held.
func (m *Manager) detachClientLocked(clientID string) []*Session {
	var victims []*Session
	for id, s := range m.sessions {
		if s.clientID == clientID {
			victims = append(victims, s)
			delete(m.sessions, id)
		}
	}
	return victims
}

// unregister forgets s if it is still the registered session for its id.
func (m *Manager) unregister(s *Session) {
	m.mu.Lock()
	if m.sessions[s.id] == s {
		delete(m.sessions, s.id)
	}
	m.mu.Unlock()
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartReaper releases sessions idle for longer than idleTTL, checking
// every interval. Stop ends it.
func (m *Manager) StartReaper(interval time.Duration) {
	if m.idleTTL <= 0 || interval <= 0 {
		return
	}

	go func() {
		// Go Pattern: time.Ticker sends values at regular intervals.
		// Always defer ticker.Stop() to release resources.
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stop:
				return
			case now := <-ticker.C:
				if n := m.reapIdle(now); n > 0 {
					log.Printf("🧹 Released %d idle viewer session(s)", n)
				}
			}
		}
	}()
}

// reapIdle releases sessions whose last access is older than idleTTL.
func (m *Manager) reapIdle(now time.Time) int {
	m.mu.Lock()
	var victims []*Session
	for id, s := range m.sessions {
		if now.Sub(s.idleSince()) > m.idleTTL {
			victims = append(victims, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range victims {
		s.Release()
	}
	return len(victims)
}

// Stop halts the reaper and releases every open session.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	victims := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		victims = append(victims, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range victims {
		s.Release()
	}
}

func (m *Manager) revokeAll(files []File) {
	for _, f := range files {
		if err := m.blobs.Revoke(f.handle); err != nil {
			log.Printf("viewer: revoke %s: %v", f.Name, err)
		}
	}
}
