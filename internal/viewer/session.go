// Package viewer runs one viewing session over the current batch: it turns
// stored files into previewable blobs, extracts their text in the
// background, and releases every handle when the session ends.
package viewer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Shimizu-Technology/hire-filter-api/internal/search"
	"github.com/Shimizu-Technology/hire-filter-api/internal/services/pdf"
	"github.com/Shimizu-Technology/hire-filter-api/internal/session"
)

// State is a step in the viewer lifecycle.
//
//	Loading → Redirect                         (no usable session; terminal)
//	Loading → Ready → Extracting → Extracted
//	Ready | Extracting | Extracted → TornDown
type State int

const (
	StateLoading State = iota
	StateReady
	StateRedirect
	StateExtracting
	StateExtracted
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRedirect:
		return "redirect"
	case StateExtracting:
		return "extracting"
	case StateExtracted:
		return "extracted"
	case StateTornDown:
		return "torn_down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// File is a CvFile enriched for viewing.
type File struct {
	Name       string
	Type       string
	Data       []byte
	PreviewURL string
	// Text is nil until extraction settles, then never changes.
	// A failed extraction leaves it pointing at "".
	Text *string

	handle string
}

// SearchName implements search.Searchable.
func (f File) SearchName() string { return f.Name }

// SearchText implements search.Searchable.
func (f File) SearchText() (string, bool) {
	if f.Text == nil {
		return "", false
	}
	return *f.Text, true
}

// TextReady reports whether extraction for this file has settled.
func (f File) TextReady() bool { return f.Text != nil }

// Session is one viewing session.
type Session struct {
	id       string
	clientID string
	blobs    *Blobs
	store    session.Store

	mu       sync.RWMutex
	state    State
	files    []File
	lastSeen time.Time

	releaseOnce sync.Once
	// unregister drops the session from its manager; nil for sessions
	// that were never registered.
	unregister func(*Session)

	// done is closed once extraction has settled, or immediately for
	// sessions that never extract.
	done chan struct{}
}

func newSession(id, clientID string, blobs *Blobs, store session.Store) *Session {
	return &Session{
		id:       id,
		clientID: clientID,
		blobs:    blobs,
		store:    store,
		state:    StateLoading,
		lastSeen: time.Now(),
		done:     make(chan struct{}),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// ClientID returns the client that owns this session.
func (s *Session) ClientID() string { return s.clientID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Files returns a snapshot of the file list in upload order.
func (s *Session) Files() []File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]File, len(s.files))
	copy(out, s.files)
	return out
}

// Snapshot returns the state and file list read together, so a caller
// never pairs "extracted" with a list that has no text yet.
func (s *Session) Snapshot() (State, []File) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]File, len(s.files))
	copy(out, s.files)
	return s.state, out
}

// Search runs the filter over the current snapshot.
func (s *Session) Search(query string) []search.Result[File] {
	return search.Filter(query, s.Files())
}

// Wait blocks until extraction has settled or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// redirect marks the session terminal without ever creating handles.
func (s *Session) redirect() {
	s.mu.Lock()
	s.state = StateRedirect
	s.files = nil
	s.mu.Unlock()
	close(s.done)
}

// extract reads every file's text concurrently and swaps the enriched list
// in once all of them have settled. Results that arrive after a teardown
// are dropped.
func (s *Session) extract(ex pdf.TextExtractor) {
	defer close(s.done)

	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return
	}
	s.state = StateExtracting
	files := make([]File, len(s.files))
	copy(files, s.files)
	s.mu.Unlock()

	texts := make([]string, len(files))
	var g errgroup.Group
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			texts[i] = extractOne(ex, f)
			return nil
		})
	}
	_ = g.Wait() // per-file failures are already folded into empty text

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateExtracting {
		log.Printf("viewer %s: discarding extraction results (state %s)", s.id, s.state)
		return
	}

	enriched := make([]File, len(s.files))
	copy(enriched, s.files)
	for i := range enriched {
		text := texts[i]
		enriched[i].Text = &text
	}
	s.files = enriched
	s.state = StateExtracted
}

// extractOne never fails: a broken PDF just has no searchable text.
func extractOne(ex pdf.TextExtractor, f File) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️  Text extraction panicked for %s: %v", f.Name, r)
			text = ""
		}
	}()

	text, err := pdf.ExtractText(ex, f.Data)
	if err != nil {
		log.Printf("⚠️  Text extraction failed for %s: %v", f.Name, err)
		return ""
	}
	return text
}

// Release revokes every preview handle the session created, without
// touching the session slot. It runs at most once; later calls are no-ops.
func (s *Session) Release() {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		for _, f := range s.files {
			if f.handle == "" {
				continue
			}
			if err := s.blobs.Revoke(f.handle); err != nil {
				log.Printf("viewer %s: revoke %s: %v", s.id, f.Name, err)
			}
		}
		s.files = nil
		if s.state != StateRedirect {
			s.state = StateTornDown
		}
	})
}

// Teardown is the explicit return-to-home: release all handles first, then
// clear the client's slot. Handles are released once; the slot is cleared on
// every call, so whatever was saved in between is gone afterwards too.
func (s *Session) Teardown(ctx context.Context) error {
	if s.unregister != nil {
		s.unregister(s)
	}
	s.Release()

	if err := s.store.Clear(ctx, s.clientID); err != nil {
		return fmt.Errorf("failed to clear session slot: %w", err)
	}
	return nil
}
