package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"voice-journal-go/internal/journal"
)

// ErrNotFound is returned by AttachAnalysis when the entry no longer
// exists. Reported, never retried; escalation is the caller's call.
var ErrNotFound = errors.New("entry not found")

// ErrEmptyTranscription guards the invariant that an entry is never
// persisted without text.
var ErrEmptyTranscription = errors.New("transcription cannot be empty")

// Store owns durable journal entries. Engines must keep per-user
// created_at ordering stable and never leak entries across users.
type Store interface {
	// Create persists a new entry with analysis absent and assigns
	// its id and timestamp.
	Create(ctx context.Context, userID int64, transcription, voiceRef string) (*journal.Entry, error)

	// AttachAnalysis sets the analysis payload on an existing entry.
	// Best-effort: ErrNotFound when the entry is gone.
	AttachAnalysis(ctx context.Context, entryID uuid.UUID, analysis journal.Analysis) error

	// Range returns the user's entries with from <= created_at < to,
	// ascending by created_at.
	Range(ctx context.Context, userID int64, from, to time.Time) ([]journal.Entry, error)
}
