package journal

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one persisted voice-journal record. Immutable after analysis is
// attached; Analysis stays nil when analysis was skipped or never attempted.
type Entry struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	Transcription string    `json:"transcription" db:"transcription"`
	VoiceRef      string    `json:"voice_ref,omitempty" db:"voice_ref"`
	Analysis      *Analysis `json:"analysis,omitempty"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Analysis is the structured enrichment derived from an entry's text.
// MoodScore is always within [-1, 1] once stored; Tags are lowercase,
// deduplicated and never empty strings.
type Analysis struct {
	Summary   string   `json:"summary"`
	MoodScore float64  `json:"mood_score"`
	Tags      []string `json:"tags"`
}
