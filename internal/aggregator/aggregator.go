package aggregator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"voice-journal-go/internal/journal"
	"voice-journal-go/internal/logger"
	"voice-journal-go/internal/store"
)

// Period is the closed set of summary windows. Free-form period strings are
// a transport-layer concern; the aggregator is total over this type.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod maps an already-validated command value onto the closed set.
func ParsePeriod(s string) (Period, bool) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodToday:
		return PeriodToday, true
	case PeriodWeek:
		return PeriodWeek, true
	case PeriodMonth:
		return PeriodMonth, true
	}
	return "", false
}

// Window returns the half-open [from, now) range for the period, computed
// from the caller-supplied now so summaries stay pure and testable.
func (p Period) Window(now time.Time) (time.Time, time.Time) {
	switch p {
	case PeriodToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), now
	case PeriodWeek:
		return now.AddDate(0, 0, -7), now
	default: // PeriodMonth
		return now.AddDate(0, 0, -30), now
	}
}

// Line is one entry's contribution to a rollup: its summary when analysis
// ran, the raw transcription otherwise.
type Line struct {
	When time.Time `json:"when"`
	Text string    `json:"text"`
	Mood *float64  `json:"mood,omitempty"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Rollup is the aggregated view of a user's entries over one window.
type Rollup struct {
	Period  Period     `json:"period"`
	Count   int        `json:"count"`
	Lines   []Line     `json:"lines"`
	AvgMood *float64   `json:"avg_mood,omitempty"`
	TopTags []TagCount `json:"top_tags,omitempty"`
	Trend   *float64   `json:"trend,omitempty"`
}

const topTagLimit = 5

type Aggregator struct {
	store store.Store
}

func New(s store.Store) *Aggregator {
	return &Aggregator{store: s}
}

// Summarize builds the rollup for one user and period. A nil rollup with a
// nil error means the window held no entries, which is distinct from a
// rollup whose statistics happen to be zero.
func (a *Aggregator) Summarize(ctx context.Context, userID int64, period Period, now time.Time) (*Rollup, error) {
	log := logger.New().WithComponent("aggregator").
		WithField("user_id", userID).
		WithField("period", string(period))

	from, to := period.Window(now)
	entries, err := a.store.Range(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	if len(entries) == 0 {
		log.Debug("no entries in window")
		return nil, nil
	}

	rollup := &Rollup{
		Period: period,
		Count:  len(entries),
		Lines:  make([]Line, 0, len(entries)),
	}

	var moodSum float64
	var moodCount int
	for _, e := range entries {
		line := Line{When: e.CreatedAt, Text: e.Transcription}
		if e.Analysis != nil {
			if e.Analysis.Summary != "" {
				line.Text = e.Analysis.Summary
			}
			mood := e.Analysis.MoodScore
			line.Mood = &mood
			moodSum += mood
			moodCount++
		}
		rollup.Lines = append(rollup.Lines, line)
	}
	if moodCount > 0 {
		avg := moodSum / float64(moodCount)
		rollup.AvgMood = &avg
	}

	rollup.TopTags = topTags(entries)
	rollup.Trend = a.moodTrend(ctx, userID, from, to, rollup.AvgMood)

	log.WithField("count", rollup.Count).Info("rollup built")
	return rollup, nil
}

// topTags counts tags across all analyzed entries, most frequent first.
func topTags(entries []journal.Entry) []TagCount {
	tags := lo.FlatMap(entries, func(e journal.Entry, _ int) []string {
		if e.Analysis == nil {
			return nil
		}
		return e.Analysis.Tags
	})
	if len(tags) == 0 {
		return nil
	}

	counts := lo.CountValues(tags)
	out := lo.MapToSlice(counts, func(tag string, n int) TagCount {
		return TagCount{Tag: tag, Count: n}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > topTagLimit {
		out = out[:topTagLimit]
	}
	return out
}

// moodTrend compares average mood against the previous window of equal
// length. Nil when either window lacks analyzed entries.
func (a *Aggregator) moodTrend(ctx context.Context, userID int64, from, to time.Time, avg *float64) *float64 {
	if avg == nil {
		return nil
	}
	prevFrom := from.Add(-to.Sub(from))
	prev, err := a.store.Range(ctx, userID, prevFrom, from)
	if err != nil || len(prev) == 0 {
		return nil
	}

	var sum float64
	var n int
	for _, e := range prev {
		if e.Analysis != nil {
			sum += e.Analysis.MoodScore
			n++
		}
	}
	if n == 0 {
		return nil
	}
	trend := *avg - sum/float64(n)
	return &trend
}

// Render formats a rollup as the plain text sent back on a summary command.
func Render(r *Rollup) string {
	if r == nil {
		return "No journal entries in this period yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Journal summary (%s): %d entries\n", r.Period, r.Count)
	if r.AvgMood != nil {
		fmt.Fprintf(&b, "Average mood: %+.2f\n", *r.AvgMood)
	}
	if r.Trend != nil {
		fmt.Fprintf(&b, "Mood trend vs previous period: %+.2f\n", *r.Trend)
	}
	if len(r.TopTags) > 0 {
		parts := lo.Map(r.TopTags, func(tc TagCount, _ int) string {
			return fmt.Sprintf("#%s (%d)", tc.Tag, tc.Count)
		})
		fmt.Fprintf(&b, "Top tags: %s\n", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
	for _, line := range r.Lines {
		if line.Mood != nil {
			fmt.Fprintf(&b, "- %s [%+.1f] %s\n", line.When.Format("Jan 2 15:04"), *line.Mood, line.Text)
		} else {
			fmt.Fprintf(&b, "- %s %s\n", line.When.Format("Jan 2 15:04"), line.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
