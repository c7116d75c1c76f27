package analyzer

import "strings"

// ClampMood forces a mood score into [-1, 1]. Model outputs are not fully
// trustworthy, so out-of-range values are clamped rather than rejected.
func ClampMood(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// NormalizeTags lowercases, trims and deduplicates tags, dropping empties
// and keeping first-seen order. maxTags <= 0 means no cap.
func NormalizeTags(tags []string, maxTags int) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if maxTags > 0 && len(out) == maxTags {
			break
		}
	}
	return out
}
