package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"voice-journal-go/internal/journal"
	"voice-journal-go/internal/logger"
)

const systemPrompt = `You are an assistant that analyzes voice journal entries.
For the entry you receive, return ONLY a JSON object with these keys:
  "summary": a brief 1-2 sentence summary capturing the main point,
  "mood_score": a number from -1.0 (very negative) to 1.0 (very positive), 0 is neutral,
  "tags": up to %d short lowercase topic tags.
Be concise and accurate. Match the language of the entry in your summary.
Do not wrap the JSON in markdown fences or add commentary.`

// truncating very long entries keeps the request under token limits
const maxPromptChars = 16000

// Result is the tagged outcome of an analysis attempt: exactly one of
// Analysis or Skipped is set. Skipped is never an error for the caller --
// entries stay usable without analysis.
type Result struct {
	Analysis *journal.Analysis
	Skipped  string
}

// chatClient is the slice of the OpenAI client the analyzer needs.
// *openai.Client satisfies it.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Analyzer struct {
	client   chatClient
	model    string
	minWords int
	maxTags  int
	timeout  time.Duration
}

type Option func(*Analyzer)

func WithMinWords(n int) Option {
	return func(a *Analyzer) { a.minWords = n }
}

func WithMaxTags(n int) Option {
	return func(a *Analyzer) { a.maxTags = n }
}

func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) { a.timeout = d }
}

func New(client chatClient, model string, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:   client,
		model:    model,
		minWords: 10,
		maxTags:  5,
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze asks the model for a structured read of the entry text. Every
// failure path degrades to a Skipped result: one attempt, no retries, so a
// flaky provider never delays entry creation.
func (a *Analyzer) Analyze(ctx context.Context, text string) Result {
	log := logger.New().WithComponent("analyzer")

	words := len(strings.Fields(text))
	if words < a.minWords {
		log.WithField("words", words).Debug("entry below minimum word count, skipping analysis")
		return Result{Skipped: "entry too short for analysis"}
	}
	if len(text) > maxPromptChars {
		log.WithField("chars", len(text)).Warn("truncating entry text for analysis")
		text = text[:maxPromptChars]
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, a.maxTags)},
			{Role: openai.ChatMessageRoleUser, Content: "Analyze this journal entry:\n\n" + text},
		},
	})
	if err != nil {
		log.WithError(err).Warn("analysis request failed, skipping")
		return Result{Skipped: "analysis provider unavailable"}
	}
	if len(resp.Choices) == 0 {
		log.Warn("analysis response had no choices, skipping")
		return Result{Skipped: "empty analysis response"}
	}

	raw := extractJSON(resp.Choices[0].Message.Content)
	if raw == "" {
		log.Warn("no JSON object in analysis response, skipping")
		return Result{Skipped: "malformed analysis response"}
	}

	var parsed struct {
		Summary   string   `json:"summary"`
		MoodScore float64  `json:"mood_score"`
		Tags      []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.WithError(err).Warn("analysis JSON did not match schema, skipping")
		return Result{Skipped: "malformed analysis response"}
	}

	analysis := &journal.Analysis{
		Summary:   strings.TrimSpace(parsed.Summary),
		MoodScore: ClampMood(parsed.MoodScore),
		Tags:      NormalizeTags(parsed.Tags, a.maxTags),
	}
	log.WithField("tags", len(analysis.Tags)).Info("analysis complete")
	return Result{Analysis: analysis}
}

// extractJSON returns the first balanced JSON object in s, stripping the
// markdown fences models like to add.
func extractJSON(s string) string {
	for _, fence := range []string{"```json", "```"} {
		s = strings.ReplaceAll(s, fence, "")
	}

	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}
