package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "whisper-1", cfg.WhisperModel)
	require.Equal(t, 20, cfg.MaxVoiceFileSizeMB)
	require.Equal(t, int64(20*1024*1024), cfg.MaxVoiceFileBytes())
	require.Equal(t, "gpt-4o-mini", cfg.AnalysisModel)
	require.Equal(t, 10, cfg.AnalysisMinWords)
	require.Equal(t, 5, cfg.AnalysisMaxTags)
	require.Equal(t, 30*time.Second, cfg.AnalysisTimeout)
	require.Equal(t, uint64(3), cfg.TranscribeMaxTries)
	require.Nil(t, cfg.AllowedUserIDs)
}

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_ParsesWhitelist(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ALLOWED_USER_IDS", " 123, 456 ,789 ")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []int64{123, 456, 789}, cfg.AllowedUserIDs)
}

func TestLoad_RejectsBadWhitelist(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ALLOWED_USER_IDS", "123,abc")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MAX_VOICE_FILE_SIZE_MB", "5")
	t.Setenv("ANALYSIS_TIMEOUT", "10s")
	t.Setenv("TRANSCRIBE_MAX_TRIES", "5")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5, cfg.MaxVoiceFileSizeMB)
	require.Equal(t, 10*time.Second, cfg.AnalysisTimeout)
	require.Equal(t, uint64(5), cfg.TranscribeMaxTries)
}
