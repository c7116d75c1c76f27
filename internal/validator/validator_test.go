package validator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"voice-journal-go/internal/validator"
)

const twentyMB = 20 * 1024 * 1024

func TestValidate_AcceptsSupportedVoice(t *testing.T) {
	v := validator.New(twentyMB)

	rej := v.Validate(validator.ArtifactMeta{SizeBytes: 150_000, MimeType: "audio/ogg"})
	require.Nil(t, rej)
}

func TestValidate_RejectsOversizeBeforeDownload(t *testing.T) {
	v := validator.New(twentyMB)

	// 25 MB artifact against a 20 MB limit
	rej := v.Validate(validator.ArtifactMeta{SizeBytes: 25 * 1024 * 1024, MimeType: "audio/ogg"})
	require.NotNil(t, rej)
	require.Contains(t, rej.Reason, "too large")
}

func TestValidate_RejectsUnsupportedKind(t *testing.T) {
	v := validator.New(twentyMB)

	rej := v.Validate(validator.ArtifactMeta{SizeBytes: 1000, MimeType: "video/mp4"})
	require.NotNil(t, rej)
	require.Contains(t, rej.Reason, "unsupported media kind")
}

func TestValidate_RejectsMissingSize(t *testing.T) {
	v := validator.New(twentyMB)

	rej := v.Validate(validator.ArtifactMeta{SizeBytes: 0, MimeType: "audio/ogg"})
	require.NotNil(t, rej)
}

func TestValidate_NormalizesCodecParameters(t *testing.T) {
	v := validator.New(twentyMB)

	rej := v.Validate(validator.ArtifactMeta{SizeBytes: 1000, MimeType: "Audio/OGG; codecs=opus"})
	require.Nil(t, rej)
}

func TestValidate_CustomKinds(t *testing.T) {
	v := validator.New(twentyMB, "audio/flac")

	require.Nil(t, v.Validate(validator.ArtifactMeta{SizeBytes: 1000, MimeType: "audio/flac"}))
	require.NotNil(t, v.Validate(validator.ArtifactMeta{SizeBytes: 1000, MimeType: "audio/ogg"}))
}
