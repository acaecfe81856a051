// Command import loads feast years into the SQLite archive.
//
// Usage:
//
//	feasts --from 2024 --to 2030 --format json > feasts.json
//	go run ./cmd/import --file feasts.json --db data/feasts.db
//
// This tool:
// 1. Parses a JSON or YAML file as written by the feasts command
// 2. Checks every year carries the ten feasts in calendar order
// 3. Creates/opens the SQLite database and runs migrations
// 4. Archives each year, replacing any stored copy for the same timezone
//
// The import is idempotent: rerunning it overwrites the same rows.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/zapponejosh/feast-calendar/internal/calendar"
	"github.com/zapponejosh/feast-calendar/internal/database"
	"github.com/zapponejosh/feast-calendar/internal/feasts"
	"github.com/zapponejosh/feast-calendar/internal/logger"
)

func main() {
	// Parse command line flags
	flagSet := pflag.NewFlagSet("import", pflag.ExitOnError)
	filePath := flagSet.StringP("file", "f", "feasts.json", "Path to a JSON or YAML feast file")
	dbPath := flagSet.String("db", "data/feasts.db", "Path to SQLite database")
	source := flagSet.String("source", database.SourceImport, "Provider recorded with the archived years")
	verbose := flagSet.BoolP("verbose", "v", false, "Verbose output")
	flagSet.Parse(os.Args[1:])

	logLevel := "info"
	if *verbose {
		logLevel = "debug"
	}
	log := logger.New(os.Stdout, logLevel, "text")

	stats, err := run(context.Background(), *filePath, *dbPath, *source, log)
	if err != nil {
		log.Error("import failed", slog.Any("error", err))
		os.Exit(1)
	}

	printSummary(os.Stdout, stats)
	log.Info("import complete")
}

// ImportStats tracks import statistics.
type ImportStats struct {
	Years     int
	Feasts    int
	Timezones map[string]int
	Elapsed   time.Duration
}

func run(ctx context.Context, filePath, dbPath, source string, log *slog.Logger) (*ImportStats, error) {
	startTime := time.Now()

	// =========================================================================
	// Step 1: Read, parse and check the file
	// =========================================================================
	log.Info("reading feast file", slog.String("path", filePath))

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read feast file: %w", err)
	}

	years, err := decodeYears(filePath, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	if len(years) == 0 {
		return nil, errors.New("no feast years in file")
	}

	for _, y := range years {
		if err := validateYear(y); err != nil {
			return nil, fmt.Errorf("year %d: %w", y.Year, err)
		}
	}

	log.Info("parsed feast file", slog.Int("years", len(years)))

	// =========================================================================
	// Step 2: Open database and run migrations
	// =========================================================================
	log.Info("opening database", slog.String("path", dbPath))

	db, err := database.Open(database.DefaultConfig(dbPath), log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	migrated, err := db.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("migrations complete", slog.Int("applied", migrated))

	// =========================================================================
	// Step 3: Archive each year
	// =========================================================================
	stats := &ImportStats{Timezones: make(map[string]int)}
	for _, y := range years {
		if err := db.SaveYear(ctx, y, source); err != nil {
			return nil, fmt.Errorf("archive year %d: %w", y.Year, err)
		}
		stats.Years++
		stats.Feasts += len(y.Feasts)
		stats.Timezones[y.Timezone]++

		log.Debug("archived year",
			slog.Int("year", y.Year),
			slog.String("timezone", y.Timezone),
			slog.String("nisan_1", y.Nisan1.String()),
		)
	}

	stats.Elapsed = time.Since(startTime)
	return stats, nil
}

// decodeYears accepts a list of years or a single year, as JSON or, for
// .yaml and .yml files, YAML.
func decodeYears(path string, data []byte) ([]*feasts.Year, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var years []*feasts.Year
		if err := yaml.Unmarshal(data, &years); err == nil {
			return years, nil
		}
		var one feasts.Year
		if err := yaml.Unmarshal(data, &one); err != nil {
			return nil, err
		}
		return []*feasts.Year{&one}, nil
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var one feasts.Year
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, err
		}
		return []*feasts.Year{&one}, nil
	}

	var years []*feasts.Year
	if err := json.Unmarshal(data, &years); err != nil {
		return nil, err
	}
	return years, nil
}

// validateYear rejects years the archive could not serve back intact.
func validateYear(y *feasts.Year) error {
	if y == nil {
		return errors.New("empty entry")
	}
	if y.Timezone == "" {
		return errors.New("missing timezone")
	}
	if _, err := calendar.LoadLocation(y.Timezone); err != nil {
		return err
	}
	if y.Nisan1.IsZero() || y.Tishri1.IsZero() {
		return errors.New("missing nisan_1 or tishri_1")
	}
	if len(y.Feasts) != len(feasts.Order) {
		return fmt.Errorf("expected %d feasts, got %d", len(feasts.Order), len(y.Feasts))
	}
	for i, slug := range feasts.Order {
		if y.Feasts[i].Slug != slug {
			return fmt.Errorf("feast %d is %q, expected %q", i, y.Feasts[i].Slug, slug)
		}
	}
	return nil
}

func printSummary(w io.Writer, stats *ImportStats) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Import Summary ===")
	fmt.Fprintf(w, "Years archived:      %d\n", stats.Years)
	fmt.Fprintf(w, "Feasts archived:     %d\n", stats.Feasts)
	for tz, n := range stats.Timezones {
		fmt.Fprintf(w, "  %-18s %d\n", tz+":", n)
	}
	fmt.Fprintf(w, "Time elapsed:        %v\n", stats.Elapsed.Round(time.Millisecond))
}
