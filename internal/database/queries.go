package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapponejosh/feast-calendar/internal/calendar"
	"github.com/zapponejosh/feast-calendar/internal/feasts"
)

// =============================================================================
// Helper Functions
// =============================================================================

// parseTimestamp parses a timestamp from SQLite TEXT format.
// Tries multiple formats and returns the zero time if parsing fails.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nullDate(d *calendar.LocalDate) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// =============================================================================
// Feast Year Queries
// =============================================================================

// SaveYear archives a computed year, replacing any earlier computation for
// the same year and timezone.
func (db *DB) SaveYear(ctx context.Context, y *feasts.Year, source string) error {
	return db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO feast_years (year, timezone, nisan_1, tishri_1, source)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (year, timezone) DO UPDATE SET
				nisan_1 = excluded.nisan_1,
				tishri_1 = excluded.tishri_1,
				source = excluded.source,
				computed_at = datetime('now'),
				updated_at = datetime('now')
		`, y.Year, y.Timezone, y.Nisan1.String(), y.Tishri1.String(), source)
		if err != nil {
			return fmt.Errorf("upsert feast year %d: %w", y.Year, err)
		}

		var yearID int64
		err = tx.QueryRowContext(ctx,
			"SELECT id FROM feast_years WHERE year = ? AND timezone = ?",
			y.Year, y.Timezone,
		).Scan(&yearID)
		if err != nil {
			return fmt.Errorf("get feast year id: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM feasts WHERE feast_year_id = ?", yearID); err != nil {
			return fmt.Errorf("clear feasts for year %d: %w", y.Year, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO feasts (
				feast_year_id, position, slug, name, date, end_date,
				label, rule, citation, evidence
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare feast insert: %w", err)
		}
		defer stmt.Close()

		for i, f := range y.Feasts {
			evidence, err := json.Marshal(f.Evidence)
			if err != nil {
				return fmt.Errorf("marshal evidence for %s: %w", f.Slug, err)
			}
			_, err = stmt.ExecContext(ctx,
				yearID, i+1, f.Slug, f.Name, f.Date.String(), nullDate(f.EndDate),
				f.Label, string(f.Rule), f.Citation, string(evidence),
			)
			if err != nil {
				return fmt.Errorf("insert feast %s: %w", f.Slug, err)
			}
		}

		db.logger.Debug("archived feast year",
			slog.Int("year", y.Year),
			slog.String("timezone", y.Timezone),
			slog.Int("feasts", len(y.Feasts)),
		)
		return nil
	})
}

const yearSummaryColumns = `
	id, year, timezone, nisan_1, tishri_1, source,
	computed_at, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanYearSummary(row rowScanner) (YearSummary, error) {
	var (
		s                                YearSummary
		nisan1, tishri1                  string
		computedAt, createdAt, updatedAt string
	)
	err := row.Scan(&s.ID, &s.Year, &s.Timezone, &nisan1, &tishri1, &s.Source,
		&computedAt, &createdAt, &updatedAt)
	if err != nil {
		return s, err
	}

	if s.Nisan1, err = calendar.ParseLocalDate(nisan1); err != nil {
		return s, fmt.Errorf("nisan_1: %w", err)
	}
	if s.Tishri1, err = calendar.ParseLocalDate(tishri1); err != nil {
		return s, fmt.Errorf("tishri_1: %w", err)
	}
	s.ComputedAt = parseTimestamp(computedAt)
	s.CreatedAt = parseTimestamp(createdAt)
	s.UpdatedAt = parseTimestamp(updatedAt)
	return s, nil
}

// GetYear retrieves an archived year with its feasts in calendar order.
// Returns ErrNotFound if the year has not been archived for timezone.
func (db *DB) GetYear(ctx context.Context, year int, timezone string) (*ArchivedYear, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+yearSummaryColumns+" FROM feast_years WHERE year = ? AND timezone = ?",
		year, timezone,
	)
	summary, err := scanYearSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query feast year %d: %w", year, err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT slug, name, date, end_date, label, rule, citation, evidence
		FROM feasts
		WHERE feast_year_id = ?
		ORDER BY position
	`, summary.ID)
	if err != nil {
		return nil, fmt.Errorf("query feasts for year %d: %w", year, err)
	}
	defer rows.Close()

	var list []feasts.Feast
	for rows.Next() {
		var (
			f              feasts.Feast
			date, evidence string
			endDate        sql.NullString
			rule           string
		)
		if err := rows.Scan(&f.Slug, &f.Name, &date, &endDate, &f.Label, &rule, &f.Citation, &evidence); err != nil {
			return nil, fmt.Errorf("scan feast: %w", err)
		}
		f.Rule = feasts.RuleKind(rule)

		if f.Date, err = calendar.ParseLocalDate(date); err != nil {
			return nil, fmt.Errorf("feast %s: %w", f.Slug, err)
		}
		if endDate.Valid {
			end, err := calendar.ParseLocalDate(endDate.String)
			if err != nil {
				return nil, fmt.Errorf("feast %s end: %w", f.Slug, err)
			}
			f.EndDate = &end
		}
		if err := json.Unmarshal([]byte(evidence), &f.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshal evidence for %s: %w", f.Slug, err)
		}
		list = append(list, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feasts: %w", err)
	}

	return &ArchivedYear{
		Summary: summary,
		Calendar: &feasts.Year{
			Year:     summary.Year,
			Timezone: summary.Timezone,
			Nisan1:   summary.Nisan1,
			Tishri1:  summary.Tishri1,
			Feasts:   list,
		},
	}, nil
}

// ListYears returns archived years for timezone in ascending order. An
// empty timezone lists every zone.
func (db *DB) ListYears(ctx context.Context, timezone string) ([]YearSummary, error) {
	query := "SELECT " + yearSummaryColumns + " FROM feast_years"
	var args []any
	if timezone != "" {
		query += " WHERE timezone = ?"
		args = append(args, timezone)
	}
	query += " ORDER BY year, timezone"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feast years: %w", err)
	}
	defer rows.Close()

	summaries := []YearSummary{}
	for rows.Next() {
		s, err := scanYearSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feast year: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feast years: %w", err)
	}
	return summaries, nil
}

// DeleteYear removes an archived year and its feasts.
// Returns ErrNotFound if nothing was archived.
func (db *DB) DeleteYear(ctx context.Context, year int, timezone string) error {
	result, err := db.ExecContext(ctx,
		"DELETE FROM feast_years WHERE year = ? AND timezone = ?",
		year, timezone,
	)
	if err != nil {
		return fmt.Errorf("delete feast year %d: %w", year, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
