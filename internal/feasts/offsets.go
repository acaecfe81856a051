package feasts

import (
	"github.com/zapponejosh/feast-calendar/internal/calendar"
)

// Day offsets from the anchor dates. Offsets are zero-based: Nisan 1 + 14
// is 15 Nisan.
const (
	lordsSupperOffset  = 13
	passoverOffset     = 14
	atonementOffset    = 9
	tabernaclesOffset  = 14
	lastGreatDayOffset = 21
	festivalSpan       = 7
	pentecostOffset    = 49
)

// offsetRule derives a feast from an anchor date by a fixed day count.
type offsetRule struct {
	slug     string
	name     string
	label    string
	citation string
	note     string
	anchor   Anchor
	days     int
	span     int
}

var nisanRules = []offsetRule{
	{
		slug:     SlugLordsSupper,
		name:     "Lord's Supper",
		label:    "14 Nisan (Evening)",
		citation: "Leviticus 23:5",
		note:     "Count 14 days from 1 Nisan. Observed the evening prior (start of 14th).",
		anchor:   AnchorNisan1,
		days:     lordsSupperOffset,
		span:     1,
	},
	{
		slug:     SlugPassover,
		name:     "Passover / Night To Be Much Observed",
		label:    "15 Nisan",
		citation: "Leviticus 23:6",
		note:     "Count 15 days from 1 Nisan. Beginning of Unleavened Bread.",
		anchor:   AnchorNisan1,
		days:     passoverOffset,
		span:     1,
	},
	{
		slug:     SlugUnleavenedBread,
		name:     "Feast of Unleavened Bread",
		label:    "15 Nisan – 21 Nisan",
		citation: "Leviticus 23:6-8",
		note:     "Seven days starting from 15 Nisan.",
		anchor:   AnchorNisan1,
		days:     passoverOffset,
		span:     festivalSpan,
	},
}

var tishriRules = []offsetRule{
	{
		slug:     SlugAtonement,
		name:     "Day of Atonement (Yom Kippur)",
		label:    "10 Tishri",
		citation: "Leviticus 23:27",
		note:     "1 Tishri + 9 days.",
		anchor:   AnchorTishri1,
		days:     atonementOffset,
		span:     1,
	},
	{
		slug:     SlugTabernacles,
		name:     "Feast of Tabernacles (Sukkot)",
		label:    "15 Tishri – 21 Tishri",
		citation: "Leviticus 23:34",
		note:     "Seven days starting 15 Tishri.",
		anchor:   AnchorTishri1,
		days:     tabernaclesOffset,
		span:     festivalSpan,
	},
	{
		slug:     SlugLastGreatDay,
		name:     "The Last Great Day",
		label:    "22 Tishri",
		citation: "Leviticus 23:36",
		note:     "The day immediately following Tabernacles.",
		anchor:   AnchorTishri1,
		days:     lastGreatDayOffset,
		span:     1,
	},
}

var pentecostRule = offsetRule{
	slug:     SlugPentecost,
	name:     "Pentecost (Shavuot)",
	label:    "Variable (Sivan)",
	citation: "Leviticus 23:15-16",
	note:     "Count exactly 50 days from Wave Sheaf Sunday. Target is always a Sunday.",
	anchor:   AnchorWaveSheaf,
	days:     pentecostOffset,
	span:     1,
}

// apply builds the feast for the given anchor date.
func (r offsetRule) apply(anchor calendar.LocalDate) Feast {
	f := Feast{
		Slug:     r.slug,
		Name:     r.name,
		Date:     anchor.AddDays(r.days),
		Label:    r.label,
		Rule:     RuleFixedOffset,
		Citation: r.citation,
		Evidence: Evidence{
			Offset: &OffsetEvidence{Anchor: r.anchor, Days: r.days, SpanDays: r.span},
			Note:   r.note,
		},
	}
	if r.span > 1 {
		end := f.Date.AddDays(r.span - 1)
		f.EndDate = &end
	}
	return f
}

func applyAll(rules []offsetRule, anchor calendar.LocalDate) []Feast {
	out := make([]Feast, len(rules))
	for i, r := range rules {
		out[i] = r.apply(anchor)
	}
	return out
}

// nisanFeasts returns Lord's Supper, Passover and Unleavened Bread.
func nisanFeasts(nisan1 calendar.LocalDate) []Feast {
	return applyAll(nisanRules, nisan1)
}

// tishriFeasts returns Atonement, Tabernacles and the Last Great Day.
func tishriFeasts(tishri1 calendar.LocalDate) []Feast {
	return applyAll(tishriRules, tishri1)
}

// pentecost is the 50th day counting the Wave Sheaf Sunday as day 1.
func pentecost(waveSheaf calendar.LocalDate) Feast {
	return pentecostRule.apply(waveSheaf)
}
