package database

// migrationsSQL contains all database migrations.
// Migrations are applied in order by version number.
// Each migration should be idempotent (safe to run multiple times).
var migrationsSQL = map[int]string{
	1: migrationV1FeastArchive,
}

// migrationV1FeastArchive creates the feast archive.
//
// A year is archived once per timezone because the local day a conjunction
// falls on depends on the zone. Feasts are stored in calendar order with
// their evidence as a JSON document.
const migrationV1FeastArchive = `
-- Migration 001: Feast archive

-- ============================================================================
-- Table: feast_years
-- ============================================================================
-- One row per computed year and timezone.
-- ============================================================================
CREATE TABLE IF NOT EXISTS feast_years (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    year INTEGER NOT NULL,
    timezone TEXT NOT NULL,

    -- Anchor dates, YYYY-MM-DD
    nisan_1 TEXT NOT NULL,
    tishri_1 TEXT NOT NULL,

    -- Provider that produced the dates ("meeus", "fixture", ...)
    source TEXT NOT NULL DEFAULT '',

    computed_at TEXT NOT NULL DEFAULT (datetime('now')),
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE (year, timezone)
);

CREATE INDEX IF NOT EXISTS idx_feast_years_year
    ON feast_years(year);

-- ============================================================================
-- Table: feasts
-- ============================================================================
-- The ten feasts of an archived year.
-- ============================================================================
CREATE TABLE IF NOT EXISTS feasts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    feast_year_id INTEGER NOT NULL,

    -- Calendar order within the year, starting at 1
    position INTEGER NOT NULL,

    slug TEXT NOT NULL,
    name TEXT NOT NULL,
    date TEXT NOT NULL,
    end_date TEXT,
    label TEXT NOT NULL,
    rule TEXT NOT NULL CHECK (rule IN (
        'equinox-anchored',
        'fixed-offset',
        'lunation-anchored'
    )),
    citation TEXT NOT NULL DEFAULT '',

    -- Structured evidence, JSON
    evidence TEXT NOT NULL DEFAULT '{}',

    FOREIGN KEY (feast_year_id) REFERENCES feast_years(id) ON DELETE CASCADE,
    UNIQUE (feast_year_id, slug)
);

CREATE INDEX IF NOT EXISTS idx_feasts_year_position
    ON feasts(feast_year_id, position);
`
