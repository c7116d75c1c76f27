package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-journal-go/internal/journal"
)

// MemStore is the in-process engine: enough for tests and single-node
// deployments that do not need Postgres.
type MemStore struct {
	mu       sync.RWMutex
	byUser   map[int64][]journal.Entry
	lastSeen map[int64]time.Time
	now      func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		byUser:   make(map[int64][]journal.Entry),
		lastSeen: make(map[int64]time.Time),
		now:      time.Now,
	}
}

// NewMemStoreWithClock injects a clock for tests.
func NewMemStoreWithClock(now func() time.Time) *MemStore {
	s := NewMemStore()
	s.now = now
	return s
}

func (s *MemStore) Create(ctx context.Context, userID int64, transcription, voiceRef string) (*journal.Entry, error) {
	transcription = strings.TrimSpace(transcription)
	if transcription == "" {
		return nil, ErrEmptyTranscription
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// created_at stays strictly monotonic per user so range ordering
	// is stable even when writes land within the same clock tick
	ts := s.now().UTC()
	if last, ok := s.lastSeen[userID]; ok && !ts.After(last) {
		ts = last.Add(time.Microsecond)
	}
	s.lastSeen[userID] = ts

	entry := journal.Entry{
		ID:            uuid.New(),
		UserID:        userID,
		Transcription: transcription,
		VoiceRef:      voiceRef,
		CreatedAt:     ts,
	}
	s.byUser[userID] = append(s.byUser[userID], entry)
	return &entry, nil
}

func (s *MemStore) AttachAnalysis(ctx context.Context, entryID uuid.UUID, analysis journal.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, entries := range s.byUser {
		for i := range entries {
			if entries[i].ID == entryID {
				a := analysis
				s.byUser[userID][i].Analysis = &a
				return nil
			}
		}
	}
	return ErrNotFound
}

func (s *MemStore) Range(ctx context.Context, userID int64, from, to time.Time) ([]journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []journal.Entry
	for _, e := range s.byUser[userID] {
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		if e.Analysis != nil {
			a := *e.Analysis
			e.Analysis = &a
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
