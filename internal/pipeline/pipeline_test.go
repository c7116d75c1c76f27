package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"voice-journal-go/internal/analyzer"
	"voice-journal-go/internal/journal"
	"voice-journal-go/internal/pipeline"
	"voice-journal-go/internal/store"
	"voice-journal-go/internal/transcriber"
	"voice-journal-go/internal/validator"
)

const maxBytes = 20 * 1024 * 1024

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeChat struct {
	content string
	err     error
	calls   int
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func validMeta() validator.ArtifactMeta {
	return validator.ArtifactMeta{SizeBytes: 150_000, MimeType: "audio/ogg"}
}

func newOrchestrator(t *fakeTranscriber, chat *fakeChat, s store.Store) *pipeline.Orchestrator {
	return pipeline.New(
		validator.New(maxBytes),
		t,
		analyzer.New(chat, "gpt-4o-mini", analyzer.WithMinWords(1)),
		s,
	)
}

func TestProcess_FullPathClampsAndNormalizes(t *testing.T) {
	s := store.NewMemStore()
	chat := &fakeChat{content: `{"summary": "greeting", "mood_score": 1.4, "tags": ["Greeting", "greeting"]}`}
	orch := newOrchestrator(&fakeTranscriber{text: "hello world"}, chat, s)

	outcome, err := orch.Process(context.Background(), pipeline.Submission{
		UserID: 42, Meta: validMeta(), Audio: []byte("ten seconds of audio"), VoiceRef: "tg-file-9",
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.OutcomeCreated, outcome.Kind)
	require.Equal(t, pipeline.StatePersisted, outcome.State)

	entry := outcome.Entry
	require.NotNil(t, entry)
	require.Equal(t, "hello world", entry.Transcription)
	require.Equal(t, "tg-file-9", entry.VoiceRef)
	require.NotNil(t, entry.Analysis)
	require.Equal(t, 1.0, entry.Analysis.MoodScore)
	require.Equal(t, []string{"greeting"}, entry.Analysis.Tags)

	// the stored copy carries the same analysis
	stored, err := s.Range(context.Background(), 42, time.Unix(0, 0), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].Analysis)
	require.Equal(t, 1.0, stored[0].Analysis.MoodScore)
}

func TestProcess_OversizeRejectedBeforeTranscription(t *testing.T) {
	s := store.NewMemStore()
	tr := &fakeTranscriber{text: "never called"}
	orch := newOrchestrator(tr, &fakeChat{content: "{}"}, s)

	outcome, err := orch.Process(context.Background(), pipeline.Submission{
		UserID: 42,
		Meta:   validator.ArtifactMeta{SizeBytes: 25 * 1024 * 1024, MimeType: "audio/ogg"},
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.OutcomeRejected, outcome.Kind)
	require.NotEmpty(t, outcome.Reason)
	require.Zero(t, tr.calls)

	stored, err := s.Range(context.Background(), 42, time.Unix(0, 0), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestProcess_EmptyTranscriptFatal(t *testing.T) {
	s := store.NewMemStore()
	orch := newOrchestrator(&fakeTranscriber{err: transcriber.ErrEmptyTranscript}, &fakeChat{content: "{}"}, s)

	outcome, err := orch.Process(context.Background(), pipeline.Submission{
		UserID: 42, Meta: validMeta(), Audio: []byte("silence"),
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.OutcomeFailed, outcome.Kind)
	require.Contains(t, outcome.Reason, "no speech")

	stored, err := s.Range(context.Background(), 42, time.Unix(0, 0), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestProcess_TranscriptionErrorReasonStaysGeneric(t *testing.T) {
	s := store.NewMemStore()
	orch := newOrchestrator(&fakeTranscriber{err: errors.New("raw provider body with secrets")}, &fakeChat{content: "{}"}, s)

	outcome, err := orch.Process(context.Background(), pipeline.Submission{
		UserID: 42, Meta: validMeta(), Audio: []byte("audio"),
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.OutcomeFailed, outcome.Kind)
	require.NotContains(t, outcome.Reason, "secrets")
}

func TestProcess_AnalysisFailureStillPersists(t *testing.T) {
	s := store.NewMemStore()
	chat := &fakeChat{err: errors.New("provider outage")}
	orch := newOrchestrator(&fakeTranscriber{text: "a perfectly fine entry"}, chat, s)

	start := time.Now()
	outcome, err := orch.Process(context.Background(), pipeline.Submission{
		UserID: 42, Meta: validMeta(), Audio: []byte("audio"),
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Equal(t, pipeline.OutcomeCreated, outcome.Kind)
	require.Nil(t, outcome.Entry.Analysis)

	// single attempt, no retry backoff on the analysis path
	require.Equal(t, 1, chat.calls)
	require.Less(t, elapsed, time.Second)

	stored, err := s.Range(context.Background(), 42, time.Unix(0, 0), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Nil(t, stored[0].Analysis)
}

func TestProcess_MalformedAnalysisSchemaStillPersists(t *testing.T) {
	s := store.NewMemStore()
	chat := &fakeChat{content: "not json at all"}
	orch := newOrchestrator(&fakeTranscriber{text: "another fine entry"}, chat, s)

	outcome, err := orch.Process(context.Background(), pipeline.Submission{
		UserID: 42, Meta: validMeta(), Audio: []byte("audio"),
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.OutcomeCreated, outcome.Kind)
	require.Nil(t, outcome.Entry.Analysis)
}

type failingStore struct {
	store.Store
}

func (failingStore) Create(ctx context.Context, userID int64, transcription, voiceRef string) (*journal.Entry, error) {
	return nil, errors.New("disk full")
}

func TestProcess_StorageErrorPropagates(t *testing.T) {
	orch := newOrchestrator(&fakeTranscriber{text: "entry"}, &fakeChat{content: "{}"}, failingStore{})

	_, err := orch.Process(context.Background(), pipeline.Submission{
		UserID: 42, Meta: validMeta(), Audio: []byte("audio"),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
}
