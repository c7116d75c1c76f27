package pipeline

import (
	"context"
	"errors"
	"fmt"

	"voice-journal-go/internal/analyzer"
	"voice-journal-go/internal/journal"
	"voice-journal-go/internal/logger"
	"voice-journal-go/internal/store"
	"voice-journal-go/internal/transcriber"
	"voice-journal-go/internal/validator"
)

// State tracks one artifact through the pipeline.
type State string

const (
	StateReceived        State = "received"
	StateValidated       State = "validated"
	StateTranscribed     State = "transcribed"
	StateAnalyzed        State = "analyzed"
	StateAnalysisSkipped State = "analysis_skipped"
	StatePersisted       State = "persisted"
	StateRejected        State = "rejected"
)

// Submission is one inbound voice artifact after transport-level download.
type Submission struct {
	UserID   int64
	Meta     validator.ArtifactMeta
	Audio    []byte
	VoiceRef string
}

type OutcomeKind int

const (
	// OutcomeRejected: validation refused the artifact before download work.
	OutcomeRejected OutcomeKind = iota
	// OutcomeFailed: transcription failed, no entry was created.
	OutcomeFailed
	// OutcomeCreated: the entry persisted; Entry.Analysis may be nil.
	OutcomeCreated
)

// Outcome is the terminal result reported back to the transport layer.
// Reason carries only user-presentable text, never provider payloads.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Entry  *journal.Entry
	State  State
}

// Transcriber and Analyzer are the blocking collaborators; both are
// cancellable through their context.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, text string) analyzer.Result
}

type Orchestrator struct {
	validator   *validator.Validator
	transcriber Transcriber
	analyzer    Analyzer
	store       store.Store
}

func New(v *validator.Validator, t Transcriber, a Analyzer, s store.Store) *Orchestrator {
	return &Orchestrator{validator: v, transcriber: t, analyzer: a, store: s}
}

// Process runs one artifact through validate -> transcribe -> persist ->
// analyze. The returned error is non-nil only for storage failures, which
// are propagated untouched; everything else lands in the Outcome. Analysis
// runs after persistence and its failure never reverts or delays it.
func (o *Orchestrator) Process(ctx context.Context, sub Submission) (Outcome, error) {
	log := logger.New().WithComponent("pipeline").
		WithField("user_id", sub.UserID).
		WithField("declared_bytes", sub.Meta.SizeBytes)
	log.Info("artifact received")

	if rej := o.validator.Validate(sub.Meta); rej != nil {
		log.WithField("reason", rej.Reason).Warn("artifact rejected")
		return Outcome{Kind: OutcomeRejected, Reason: rej.Reason, State: StateRejected}, nil
	}
	log.Debug("artifact validated")

	text, err := o.transcriber.Transcribe(ctx, sub.Audio)
	if err != nil {
		reason := "transcription failed, please try again"
		if errors.Is(err, transcriber.ErrEmptyTranscript) {
			reason = "no speech detected in the voice message"
		}
		log.WithError(err).Warn("transcription failed")
		return Outcome{Kind: OutcomeFailed, Reason: reason, State: StateRejected}, nil
	}
	log.WithField("chars", len(text)).Debug("artifact transcribed")

	entry, err := o.store.Create(ctx, sub.UserID, text, sub.VoiceRef)
	if err != nil {
		return Outcome{}, fmt.Errorf("persist entry: %w", err)
	}
	log.WithField("entry_id", entry.ID).Info("entry persisted")

	res := o.analyzer.Analyze(ctx, text)
	switch {
	case res.Analysis == nil:
		log.WithField("skip_reason", res.Skipped).Debug("analysis skipped")
	default:
		if err := o.store.AttachAnalysis(ctx, entry.ID, *res.Analysis); err != nil {
			// best-effort: the entry stays valid without analysis
			log.WithError(err).Warn("could not attach analysis")
		} else {
			entry.Analysis = res.Analysis
			log.Debug("analysis attached")
		}
	}

	return Outcome{Kind: OutcomeCreated, Entry: entry, State: StatePersisted}, nil
}
