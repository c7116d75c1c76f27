package validator

import (
	"fmt"
	"strings"
)

// ArtifactMeta is what the transport layer knows about a voice message
// before anything is downloaded.
type ArtifactMeta struct {
	SizeBytes int64
	MimeType  string
}

// Rejection explains why an artifact was refused. The reason is safe to
// show to the end user verbatim.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return "artifact rejected: " + r.Reason
}

// defaultKinds covers the voice encodings messaging clients actually send.
var defaultKinds = map[string]struct{}{
	"audio/ogg":  {},
	"audio/oga":  {},
	"audio/opus": {},
	"audio/mpeg": {},
	"audio/mp4":  {},
	"audio/wav":  {},
	"audio/webm": {},
}

type Validator struct {
	maxBytes int64
	kinds    map[string]struct{}
}

// New builds a validator with the given size ceiling. An empty kinds list
// keeps the default supported set.
func New(maxBytes int64, kinds ...string) *Validator {
	v := &Validator{maxBytes: maxBytes, kinds: defaultKinds}
	if len(kinds) > 0 {
		v.kinds = make(map[string]struct{}, len(kinds))
		for _, k := range kinds {
			v.kinds[normalizeKind(k)] = struct{}{}
		}
	}
	return v
}

// Validate runs the metadata checks. It must be called before the artifact
// is downloaded; a nil return means the artifact may proceed.
func (v *Validator) Validate(meta ArtifactMeta) *Rejection {
	if meta.SizeBytes <= 0 {
		return &Rejection{Reason: "declared size is missing or zero"}
	}
	if meta.SizeBytes > v.maxBytes {
		return &Rejection{Reason: fmt.Sprintf(
			"voice message is too large: %d bytes exceeds the %d byte limit",
			meta.SizeBytes, v.maxBytes)}
	}
	if _, ok := v.kinds[normalizeKind(meta.MimeType)]; !ok {
		return &Rejection{Reason: fmt.Sprintf("unsupported media kind %q", meta.MimeType)}
	}
	return nil
}

// normalizeKind drops codec parameters, e.g. "audio/ogg; codecs=opus".
func normalizeKind(kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if i := strings.IndexByte(kind, ';'); i >= 0 {
		kind = strings.TrimSpace(kind[:i])
	}
	return kind
}
