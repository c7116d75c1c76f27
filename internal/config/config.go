package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every knob the service reads from the environment.
type Config struct {
	// OpenAI
	OpenAIAPIKey  string
	OpenAIBaseURL string

	// Whisper
	WhisperModel        string
	MaxVoiceFileSizeMB  int
	TranscribeTimeout   time.Duration
	TranscribeMaxTries  uint64
	TranscribeBaseDelay time.Duration

	// Analysis
	AnalysisModel    string
	AnalysisMinWords int
	AnalysisTimeout  time.Duration
	AnalysisMaxTags  int

	// Storage
	DatabaseURL string

	// Application
	Environment string
	LogLevel    string
	Port        string

	// Transport-side whitelist, handed to the HTTP layer untouched.
	AllowedUserIDs []int64
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	allowed, err := parseUserIDs(os.Getenv("ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALLOWED_USER_IDS: %w", err)
	}

	return &Config{
		OpenAIAPIKey:  apiKey,
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),

		WhisperModel:        envOr("WHISPER_MODEL", "whisper-1"),
		MaxVoiceFileSizeMB:  envInt("MAX_VOICE_FILE_SIZE_MB", 20),
		TranscribeTimeout:   envDuration("TRANSCRIBE_TIMEOUT", 30*time.Second),
		TranscribeMaxTries:  uint64(envInt("TRANSCRIBE_MAX_TRIES", 3)),
		TranscribeBaseDelay: envDuration("TRANSCRIBE_BASE_DELAY", 500*time.Millisecond),

		AnalysisModel:    envOr("ANALYSIS_MODEL", "gpt-4o-mini"),
		AnalysisMinWords: envInt("ANALYSIS_MIN_WORDS", 10),
		AnalysisTimeout:  envDuration("ANALYSIS_TIMEOUT", 30*time.Second),
		AnalysisMaxTags:  envInt("ANALYSIS_MAX_TAGS", 5),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		Environment: envOr("ENVIRONMENT", "development"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		Port:        envOr("PORT", "8080"),

		AllowedUserIDs: allowed,
	}, nil
}

// MaxVoiceFileBytes is the validator's size ceiling.
func (c *Config) MaxVoiceFileBytes() int64 {
	return int64(c.MaxVoiceFileSizeMB) * 1024 * 1024
}

func parseUserIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
