package transcriber

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"voice-journal-go/internal/logger"
)

// ErrEmptyTranscript means the provider answered but heard no speech.
// Treated as fatal: an empty entry is never created.
var ErrEmptyTranscript = errors.New("transcription produced no text")

// speechClient is the slice of the OpenAI client the transcriber needs.
// *openai.Client satisfies it.
type speechClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

type Transcriber struct {
	client    speechClient
	model     string
	timeout   time.Duration
	maxTries  uint64
	baseDelay time.Duration
}

type Option func(*Transcriber)

// WithRetry overrides the retry policy: attempts is the total number of
// provider calls, baseDelay the first backoff interval (doubles per try).
func WithRetry(attempts uint64, baseDelay time.Duration) Option {
	return func(t *Transcriber) {
		t.maxTries = attempts
		t.baseDelay = baseDelay
	}
}

func WithTimeout(d time.Duration) Option {
	return func(t *Transcriber) { t.timeout = d }
}

func New(client speechClient, model string, opts ...Option) *Transcriber {
	t := &Transcriber{
		client:    client,
		model:     model,
		timeout:   30 * time.Second,
		maxTries:  3,
		baseDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.maxTries == 0 {
		t.maxTries = 1
	}
	return t
}

// Transcribe sends audio to Whisper and returns the trimmed text. Transient
// provider failures (timeouts, 429, 5xx) are retried with exponential
// backoff; everything else fails on the first attempt.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	log := logger.New().WithComponent("transcriber").WithField("audio_bytes", len(audio))

	if len(audio) == 0 {
		return "", errors.New("empty audio payload")
	}

	var text string
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		resp, err := t.client.CreateTranscription(callCtx, openai.AudioRequest{
			Model:    t.model,
			FilePath: "voice.ogg",
			Reader:   bytes.NewReader(audio),
		})
		if err != nil {
			if isTransient(err) {
				log.WithError(err).Warn("transient transcription failure, will retry")
				return err
			}
			log.WithError(err).Error("permanent transcription failure")
			return backoff.Permanent(err)
		}

		text = strings.TrimSpace(resp.Text)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = t.baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, t.maxTries-1), ctx)); err != nil {
		return "", err
	}

	if text == "" {
		log.Warn("provider returned no speech")
		return "", ErrEmptyTranscript
	}
	log.WithField("chars", len(text)).Info("transcription complete")
	return text, nil
}

// isTransient classifies provider errors per the retry policy: rate limits,
// server-side failures and network trouble resolve on retry, client errors
// and quota exhaustion do not.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			// insufficient_quota comes back as 429 but never recovers
			if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
				return false
			}
			return true
		}
		return apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500 || reqErr.HTTPStatusCode == 0
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
