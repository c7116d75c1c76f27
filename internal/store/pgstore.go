package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"voice-journal-go/internal/journal"
)

// PgStore is the Postgres engine over a pgx connection pool.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS journal_entries (
	id            UUID PRIMARY KEY,
	user_id       BIGINT NOT NULL,
	transcription TEXT NOT NULL,
	voice_ref     TEXT NOT NULL DEFAULT '',
	analysis      JSONB,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_journal_entries_user_created
	ON journal_entries (user_id, created_at);
`

// EnsureSchema creates the entries table when it does not exist yet.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PgStore) Create(ctx context.Context, userID int64, transcription, voiceRef string) (*journal.Entry, error) {
	transcription = strings.TrimSpace(transcription)
	if transcription == "" {
		return nil, ErrEmptyTranscription
	}

	entry := journal.Entry{
		ID:            uuid.New(),
		UserID:        userID,
		Transcription: transcription,
		VoiceRef:      voiceRef,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO journal_entries (id, user_id, transcription, voice_ref, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.UserID, entry.Transcription, entry.VoiceRef, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return &entry, nil
}

func (s *PgStore) AttachAnalysis(ctx context.Context, entryID uuid.UUID, analysis journal.Analysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE journal_entries SET analysis = $2 WHERE id = $1`,
		entryID, payload,
	)
	if err != nil {
		return fmt.Errorf("attach analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) Range(ctx context.Context, userID int64, from, to time.Time) ([]journal.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, transcription, voice_ref, analysis, created_at
		FROM journal_entries
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("range query: %w", err)
	}
	defer rows.Close()

	var out []journal.Entry
	for rows.Next() {
		var (
			e       journal.Entry
			rawJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Transcription, &e.VoiceRef, &rawJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if len(rawJSON) > 0 {
			var a journal.Analysis
			if err := json.Unmarshal(rawJSON, &a); err != nil {
				return nil, fmt.Errorf("decode analysis: %w", err)
			}
			e.Analysis = &a
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("range rows: %w", err)
	}
	return out, nil
}
