// Package feasts resolves the annual feast days from the March equinox and
// the new-moon conjunctions around it.
package feasts

import (
	"time"

	"github.com/zapponejosh/feast-calendar/internal/calendar"
)

// RuleKind tags how a feast date was derived.
type RuleKind string

const (
	RuleEquinoxAnchored  RuleKind = "equinox-anchored"
	RuleFixedOffset      RuleKind = "fixed-offset"
	RuleLunationAnchored RuleKind = "lunation-anchored"
)

// Feast slugs, in calendar order. They are stable and used in URLs and as
// archive keys.
const (
	SlugNewYear         = "new-year"
	SlugLordsSupper     = "lords-supper"
	SlugPassover        = "passover"
	SlugUnleavenedBread = "unleavened-bread"
	SlugWaveSheaf       = "wave-sheaf"
	SlugPentecost       = "pentecost"
	SlugTrumpets        = "trumpets"
	SlugAtonement       = "atonement"
	SlugTabernacles     = "tabernacles"
	SlugLastGreatDay    = "last-great-day"
)

// Order lists the slugs in the order Year.Feasts returns them.
var Order = []string{
	SlugNewYear,
	SlugLordsSupper,
	SlugPassover,
	SlugUnleavenedBread,
	SlugWaveSheaf,
	SlugPentecost,
	SlugTrumpets,
	SlugAtonement,
	SlugTabernacles,
	SlugLastGreatDay,
}

// Feast is one feast day (or span) of a given year.
type Feast struct {
	Slug     string              `json:"slug" yaml:"slug"`
	Name     string              `json:"name" yaml:"name"`
	Date     calendar.LocalDate  `json:"date" yaml:"date"`
	EndDate  *calendar.LocalDate `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Label    string              `json:"label" yaml:"label"`
	Rule     RuleKind            `json:"rule" yaml:"rule"`
	Evidence Evidence            `json:"evidence" yaml:"evidence"`
	Citation string              `json:"citation" yaml:"citation"`
}

// Days returns the number of days the feast spans (1 for single days).
func (f Feast) Days() int {
	if f.EndDate == nil {
		return 1
	}
	return f.Date.DaysUntil(*f.EndDate) + 1
}

// Branch names which conjunction candidate began the year.
type Branch string

const (
	BranchPrev Branch = "prev"
	BranchNext Branch = "next"
)

// Anchor names the date a fixed offset is counted from.
type Anchor string

const (
	AnchorNisan1    Anchor = "nisan-1"
	AnchorWaveSheaf Anchor = "wave-sheaf"
	AnchorTishri1   Anchor = "tishri-1"
)

// Evidence records the inputs a feast date was derived from. Only the
// sections relevant to the feast's rule are set.
type Evidence struct {
	Equinox   *EquinoxEvidence   `json:"equinox,omitempty" yaml:"equinox,omitempty"`
	Lunation  *LunationEvidence  `json:"lunation,omitempty" yaml:"lunation,omitempty"`
	Offset    *OffsetEvidence    `json:"offset,omitempty" yaml:"offset,omitempty"`
	WaveSheaf *WaveSheafEvidence `json:"wave_sheaf,omitempty" yaml:"wave_sheaf,omitempty"`
	Note      string             `json:"note,omitempty" yaml:"note,omitempty"`
}

// EquinoxEvidence is the Nisan-1 selection: the two conjunctions around
// the equinox, their distances from it, and which one was chosen.
type EquinoxEvidence struct {
	Equinox            time.Time `json:"equinox" yaml:"equinox"`
	Previous           time.Time `json:"previous" yaml:"previous"`
	Next               time.Time `json:"next" yaml:"next"`
	PreviousDeltaHours float64   `json:"previous_delta_hours" yaml:"previous_delta_hours"`
	NextDeltaHours     float64   `json:"next_delta_hours" yaml:"next_delta_hours"`
	Chosen             Branch    `json:"chosen" yaml:"chosen"`
}

// Conjunction returns the chosen conjunction instant.
func (e EquinoxEvidence) Conjunction() time.Time {
	if e.Chosen == BranchNext {
		return e.Next
	}
	return e.Previous
}

// LunationEvidence is the Tishri-1 conjunction and the conjunctions stepped
// through to reach it.
type LunationEvidence struct {
	Conjunction time.Time   `json:"conjunction" yaml:"conjunction"`
	Steps       []time.Time `json:"steps" yaml:"steps"`
}

// OffsetEvidence is a day count from an anchor date.
type OffsetEvidence struct {
	Anchor   Anchor `json:"anchor" yaml:"anchor"`
	Days     int    `json:"days" yaml:"days"`
	SpanDays int    `json:"span_days" yaml:"span_days"`
}

// WaveSheafEvidence is the weekday alignment from Passover to Sunday.
type WaveSheafEvidence struct {
	PassoverWeekday time.Weekday `json:"passover_weekday" yaml:"passover_weekday"`
	DaysAdded       int          `json:"days_added" yaml:"days_added"`
}

// Year is the full feast calendar of one year.
type Year struct {
	Year     int                `json:"year" yaml:"year"`
	Timezone string             `json:"timezone" yaml:"timezone"`
	Nisan1   calendar.LocalDate `json:"nisan_1" yaml:"nisan_1"`
	Tishri1  calendar.LocalDate `json:"tishri_1" yaml:"tishri_1"`
	Feasts   []Feast            `json:"feasts" yaml:"feasts"`
}

// Find returns the feast with the given slug.
func (y *Year) Find(slug string) (Feast, bool) {
	for _, f := range y.Feasts {
		if f.Slug == slug {
			return f, true
		}
	}
	return Feast{}, false
}
