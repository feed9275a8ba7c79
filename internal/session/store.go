// Package session holds the single "current batch" slot that bridges the
// upload step and the viewer step.
//
// Each browser gets its own slot, keyed by an opaque client id. A slot holds
// exactly one value: the JSON array of {name, type, data} returned by the
// upload endpoint. Writes overwrite the whole value; there are no partial
// updates and no transactions.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Shimizu-Technology/hire-filter-api/internal/models"
)

// SlotName is the name of the one slot each client owns.
const SlotName = "cvFiles"

var (
	// ErrNoSession means the slot is absent or its value is unusable.
	// Callers treat it as "no active session", never as a crash.
	ErrNoSession = errors.New("no active session")
	// ErrEmptyBatch is returned when asked to save zero files.
	ErrEmptyBatch = errors.New("cannot save an empty batch")
)

// Store is the slot storage backend.
type Store interface {
	Save(ctx context.Context, clientID string, files []models.CvFile) error
	Load(ctx context.Context, clientID string) ([]models.CvFile, error)
	Clear(ctx context.Context, clientID string) error
}

// encode serializes a batch the way it is kept in the slot.
func encode(files []models.CvFile) ([]byte, error) {
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}
	raw, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", SlotName, err)
	}
	return raw, nil
}

// decode validates and parses a stored slot value. Any problem with the
// value collapses into ErrNoSession.
func decode(raw []byte) ([]models.CvFile, error) {
	if err := validateSlot(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	var files []models.CvFile
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return files, nil
}
