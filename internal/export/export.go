package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"voice-journal-go/internal/journal"
	"voice-journal-go/internal/logger"
	"voice-journal-go/internal/store"
)

// Format enumerates the supported export file formats.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatXLSX     Format = "xlsx"
)

func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, true
	case FormatMarkdown:
		return FormatMarkdown, true
	case FormatJSON:
		return FormatJSON, true
	case FormatXLSX:
		return FormatXLSX, true
	}
	return "", false
}

// tabular formats truncate long transcriptions to keep rows readable
const maxCellChars = 500

type Exporter struct {
	store store.Store
}

func New(s store.Store) *Exporter {
	return &Exporter{store: s}
}

// Export renders every entry the user has, oldest first.
func (e *Exporter) Export(ctx context.Context, userID int64, format Format) ([]byte, error) {
	log := logger.New().WithComponent("export").
		WithField("user_id", userID).
		WithField("format", string(format))

	// the store range is half-open, so "everything" is epoch to just past now
	entries, err := e.store.Range(ctx, userID, time.Unix(0, 0), time.Now().Add(time.Second))
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	log.WithField("count", len(entries)).Info("exporting entries")

	switch format {
	case FormatCSV:
		return exportCSV(entries)
	case FormatMarkdown:
		return exportMarkdown(entries), nil
	case FormatXLSX:
		return exportXLSX(entries)
	default:
		return json.MarshalIndent(entries, "", "  ")
	}
}

func truncate(s string) string {
	if len(s) <= maxCellChars {
		return s
	}
	return s[:maxCellChars-3] + "..."
}

func rowValues(e journal.Entry) (date, clock, text, summary, mood, tags string) {
	date = e.CreatedAt.Format("2006-01-02")
	clock = e.CreatedAt.Format("15:04")
	text = truncate(e.Transcription)
	if e.Analysis != nil {
		summary = e.Analysis.Summary
		mood = fmt.Sprintf("%.2f", e.Analysis.MoodScore)
		tags = strings.Join(e.Analysis.Tags, ",")
	}
	return
}

func exportCSV(entries []journal.Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"date", "time", "transcription", "summary", "mood_score", "tags"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		date, clock, text, summary, mood, tags := rowValues(e)
		if err := w.Write([]string{date, clock, text, summary, mood, tags}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportMarkdown(entries []journal.Entry) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# Voice Journal Export - %s\n\n", time.Now().UTC().Format("2006-01-02"))

	currentDate := ""
	for _, e := range entries {
		date := e.CreatedAt.Format("2006-01-02")
		if date != currentDate {
			fmt.Fprintf(&b, "## %s\n\n", date)
			currentDate = date
		}
		fmt.Fprintf(&b, "### %s\n\n", e.CreatedAt.Format("15:04"))
		b.WriteString(e.Transcription)
		b.WriteString("\n\n")
		if e.Analysis != nil {
			if e.Analysis.Summary != "" {
				fmt.Fprintf(&b, "> %s\n\n", e.Analysis.Summary)
			}
			fmt.Fprintf(&b, "Mood: %+.2f", e.Analysis.MoodScore)
			if len(e.Analysis.Tags) > 0 {
				fmt.Fprintf(&b, " · Tags: #%s", strings.Join(e.Analysis.Tags, " #"))
			}
			b.WriteString("\n\n")
		}
	}
	return []byte(b.String())
}

func exportXLSX(entries []journal.Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := []interface{}{"date", "time", "transcription", "summary", "mood_score", "tags"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, e := range entries {
		date, clock, text, summary, mood, tags := rowValues(e)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{date, clock, text, summary, mood, tags}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
