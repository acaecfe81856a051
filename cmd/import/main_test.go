package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapponejosh/feast-calendar/internal/database"
	"github.com/zapponejosh/feast-calendar/internal/ephemeris"
	"github.com/zapponejosh/feast-calendar/internal/feasts"
)

func computeYears(t *testing.T, from, to int) []*feasts.Year {
	t.Helper()

	table, err := ephemeris.LoadTable("../../internal/feasts/testdata/ephemeris.yaml")
	require.NoError(t, err)

	years, err := feasts.NewCalculator(table).Range(context.Background(), from, to)
	require.NoError(t, err)
	return years
}

func writeJSON(t *testing.T, v any) string {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "feasts.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRun_ImportsYears(t *testing.T) {
	ctx := context.Background()
	years := computeYears(t, 2024, 2025)
	dbPath := filepath.Join(t.TempDir(), "archive", "feasts.db")

	stats, err := run(ctx, writeJSON(t, years), dbPath, database.SourceImport, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Years)
	assert.Equal(t, 20, stats.Feasts)
	assert.Equal(t, 2, stats.Timezones["Asia/Jerusalem"])

	db, err := database.Open(database.DefaultConfig(dbPath), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer db.Close()

	got, err := db.GetYear(ctx, 2025, "Asia/Jerusalem")
	require.NoError(t, err)
	assert.Equal(t, database.SourceImport, got.Summary.Source)
	assert.True(t, years[1].Nisan1.Equal(got.Calendar.Nisan1))
	assert.Len(t, got.Calendar.Feasts, len(feasts.Order))
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	path := writeJSON(t, computeYears(t, 2025, 2025))
	dbPath := filepath.Join(t.TempDir(), "feasts.db")
	log := slog.New(slog.DiscardHandler)

	_, err := run(ctx, path, dbPath, database.SourceImport, log)
	require.NoError(t, err)
	_, err = run(ctx, path, dbPath, database.SourceImport, log)
	require.NoError(t, err)

	db, err := database.Open(database.DefaultConfig(dbPath), log)
	require.NoError(t, err)
	defer db.Close()

	summaries, err := db.ListYears(ctx, "")
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestDecodeYears_SingleObject(t *testing.T) {
	y := computeYears(t, 2025, 2025)[0]
	data, err := json.Marshal(y)
	require.NoError(t, err)

	years, err := decodeYears("one.json", data)
	require.NoError(t, err)
	require.Len(t, years, 1)
	assert.Equal(t, 2025, years[0].Year)
}

func TestRun_RejectsBadInput(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	dbPath := filepath.Join(t.TempDir(), "feasts.db")

	good := computeYears(t, 2025, 2025)[0]

	shuffled := *good
	shuffled.Feasts = append([]feasts.Feast(nil), good.Feasts...)
	shuffled.Feasts[0], shuffled.Feasts[1] = shuffled.Feasts[1], shuffled.Feasts[0]

	truncated := *good
	truncated.Feasts = good.Feasts[:9]

	noZone := *good
	noZone.Timezone = ""

	badZone := *good
	badZone.Timezone = "Mars/Olympus_Mons"

	tests := []struct {
		name  string
		input any
	}{
		{"empty list", []*feasts.Year{}},
		{"feasts out of order", []*feasts.Year{&shuffled}},
		{"missing feast", []*feasts.Year{&truncated}},
		{"missing timezone", []*feasts.Year{&noZone}},
		{"unknown timezone", []*feasts.Year{&badZone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(context.Background(), writeJSON(t, tt.input), dbPath, database.SourceImport, log)
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := run(context.Background(), filepath.Join(t.TempDir(), "nope.json"), dbPath, database.SourceImport, log)
		assert.Error(t, err)
	})
}
