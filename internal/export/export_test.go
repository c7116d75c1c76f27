package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"voice-journal-go/internal/export"
	"voice-journal-go/internal/journal"
	"voice-journal-go/internal/store"
)

func TestParseFormat(t *testing.T) {
	for raw, want := range map[string]export.Format{
		"csv":  export.FormatCSV,
		"MD":   export.FormatMarkdown,
		"json": export.FormatJSON,
		"xlsx": export.FormatXLSX,
	} {
		got, ok := export.ParseFormat(raw)
		require.True(t, ok, raw)
		require.Equal(t, want, got)
	}
	_, ok := export.ParseFormat("pdf")
	require.False(t, ok)
}

func seedStore(t *testing.T) *store.MemStore {
	t.Helper()
	s := store.NewMemStore()
	ctx := context.Background()

	e1, err := s.Create(ctx, 1, "walked along the river today", "")
	require.NoError(t, err)
	require.NoError(t, s.AttachAnalysis(ctx, e1.ID, journal.Analysis{
		Summary: "river walk", MoodScore: 0.6, Tags: []string{"walking", "nature"},
	}))

	_, err = s.Create(ctx, 1, "quick note, nothing analyzed", "")
	require.NoError(t, err)

	// another tenant, must never leak into user 1's export
	_, err = s.Create(ctx, 2, "someone else's diary", "")
	require.NoError(t, err)

	return s
}

func TestExport_CSV(t *testing.T) {
	exp := export.New(seedStore(t))

	data, err := exp.Export(context.Background(), 1, export.FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 entries
	require.Equal(t, []string{"date", "time", "transcription", "summary", "mood_score", "tags"}, rows[0])
	require.Equal(t, "walked along the river today", rows[1][2])
	require.Equal(t, "river walk", rows[1][3])
	require.Equal(t, "0.60", rows[1][4])
	require.Equal(t, "walking,nature", rows[1][5])
	require.Empty(t, rows[2][3])
	require.NotContains(t, string(data), "someone else's diary")
}

func TestExport_Markdown(t *testing.T) {
	exp := export.New(seedStore(t))

	data, err := exp.Export(context.Background(), 1, export.FormatMarkdown)
	require.NoError(t, err)

	md := string(data)
	require.Contains(t, md, "# Voice Journal Export")
	require.Contains(t, md, "walked along the river today")
	require.Contains(t, md, "> river walk")
	require.Contains(t, md, "#walking #nature")
	require.NotContains(t, md, "someone else's diary")
}

func TestExport_JSON(t *testing.T) {
	exp := export.New(seedStore(t))

	data, err := exp.Export(context.Background(), 1, export.FormatJSON)
	require.NoError(t, err)

	var entries []journal.Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].Analysis)
	require.Nil(t, entries[1].Analysis)
}

func TestExport_XLSX(t *testing.T) {
	exp := export.New(seedStore(t))

	data, err := exp.Export(context.Background(), 1, export.FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "walked along the river today", rows[1][2])
}

func TestExport_TruncatesLongTranscriptions(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	long := strings.Repeat("a very long entry ", 60) // > 500 chars
	_, err := s.Create(ctx, 1, long, "")
	require.NoError(t, err)

	data, err := export.New(s).Export(ctx, 1, export.FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows[1][2], 500)
	require.True(t, strings.HasSuffix(rows[1][2], "..."))
}
