package database

import (
	"time"

	"github.com/zapponejosh/feast-calendar/internal/calendar"
	"github.com/zapponejosh/feast-calendar/internal/feasts"
)

// Providers recorded in feast_years.source.
const (
	SourceMeeus   = "meeus"
	SourceFixture = "fixture"
	SourceImport  = "import"
)

// YearSummary is the archive row of one computed year, without its feasts.
type YearSummary struct {
	ID         int64              `json:"id"`
	Year       int                `json:"year"`
	Timezone   string             `json:"timezone"`
	Nisan1     calendar.LocalDate `json:"nisan_1"`
	Tishri1    calendar.LocalDate `json:"tishri_1"`
	Source     string             `json:"source"`
	ComputedAt time.Time          `json:"computed_at"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// ArchivedYear is a year read back from the archive.
type ArchivedYear struct {
	Summary  YearSummary  `json:"archive"`
	Calendar *feasts.Year `json:"calendar"`
}
