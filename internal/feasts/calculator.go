package feasts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zapponejosh/feast-calendar/internal/calendar"
	"github.com/zapponejosh/feast-calendar/internal/ephemeris"
)

// Ephemeris is the source of astronomical events the calculator consumes.
// Implementations must be safe for concurrent use.
type Ephemeris interface {
	// MarchEquinox returns the northward equinox instant of year.
	MarchEquinox(ctx context.Context, year int) (time.Time, error)

	// NextMoonPhase returns the first occurrence of phase at or after start
	// within maxDays, or an error wrapping ephemeris.ErrSearchExhausted.
	NextMoonPhase(ctx context.Context, phase ephemeris.Phase, start time.Time, maxDays int) (time.Time, error)
}

// ErrInvalidRange is returned by Range when from is after to.
var ErrInvalidRange = errors.New("invalid year range")

// rangeConcurrency bounds the goroutines Range runs at once.
const rangeConcurrency = 8

// Calculator computes feast calendars. It holds no mutable state and is
// safe for concurrent use.
type Calculator struct {
	eph    Ephemeris
	loc    *time.Location
	logger *slog.Logger
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithLocation sets the zone whose civil day a conjunction is assigned to.
// The default is Asia/Jerusalem.
func WithLocation(loc *time.Location) Option {
	return func(c *Calculator) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithLogger sets the logger used for debug output of resolver decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Calculator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCalculator creates a calculator backed by eph.
func NewCalculator(eph Ephemeris, opts ...Option) *Calculator {
	c := &Calculator{
		eph:    eph,
		loc:    calendar.Jerusalem(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Location returns the zone the calculator reckons days in.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// Feasts returns the ten feasts of year in calendar order.
func (c *Calculator) Feasts(ctx context.Context, year int) ([]Feast, error) {
	y, err := c.Year(ctx, year)
	if err != nil {
		return nil, err
	}
	return y.Feasts, nil
}

// Year computes the feast calendar of year.
func (c *Calculator) Year(ctx context.Context, year int) (*Year, error) {
	nisan1, equinox, err := c.resolveNisan1(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("resolve nisan 1 of %d: %w", year, err)
	}

	tishri1, lunation, err := c.resolveTishri1(ctx, equinox.Conjunction())
	if err != nil {
		return nil, fmt.Errorf("resolve tishri 1 of %d: %w", year, err)
	}

	feasts := make([]Feast, 0, len(Order))

	feasts = append(feasts, Feast{
		Slug:     SlugNewYear,
		Name:     "New Year (Rosh Chodesh Nisan)",
		Date:     nisan1,
		Label:    calendar.HebrewDay(1, "Nisan"),
		Rule:     RuleEquinoxAnchored,
		Evidence: Evidence{Equinox: &equinox, Note: equinoxNote(equinox)},
		Citation: "Exodus 12:2, Deut 16:1",
	})

	feasts = append(feasts, nisanFeasts(nisan1)...)

	passover := nisan1.AddDays(passoverOffset)
	waveSheaf, ws := resolveWaveSheaf(passover)
	feasts = append(feasts, Feast{
		Slug:     SlugWaveSheaf,
		Name:     "Wave Sheaf Offering",
		Date:     waveSheaf,
		Label:    "First Sunday of ULB",
		Rule:     RuleFixedOffset,
		Evidence: Evidence{WaveSheaf: &ws, Note: waveSheafNote(passover, ws)},
		Citation: "Leviticus 23:10-11",
	})
	feasts = append(feasts, pentecost(waveSheaf))

	feasts = append(feasts, Feast{
		Slug:     SlugTrumpets,
		Name:     "Feast of Trumpets (Rosh Hashanah)",
		Date:     tishri1,
		Label:    calendar.HebrewDay(1, "Tishri"),
		Rule:     RuleLunationAnchored,
		Evidence: Evidence{Lunation: &lunation, Note: "7th New Moon Conjunction (6 lunations after Nisan 1)."},
		Citation: "Leviticus 23:24",
	})

	feasts = append(feasts, tishriFeasts(tishri1)...)

	c.logger.DebugContext(ctx, "feast year resolved",
		slog.Int("year", year),
		slog.String("nisan_1", nisan1.String()),
		slog.String("tishri_1", tishri1.String()),
		slog.String("chosen", string(equinox.Chosen)),
	)

	return &Year{
		Year:     year,
		Timezone: c.loc.String(),
		Nisan1:   nisan1,
		Tishri1:  tishri1,
		Feasts:   feasts,
	}, nil
}

// Range computes the years from..to inclusive, in parallel. Results are in
// year order; the first failure cancels the rest.
func (c *Calculator) Range(ctx context.Context, from, to int) ([]*Year, error) {
	if from > to {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidRange, from, to)
	}

	years := make([]*Year, to-from+1)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rangeConcurrency)

	for i := range years {
		g.Go(func() error {
			y, err := c.Year(ctx, from+i)
			if err != nil {
				return err
			}
			years[i] = y
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return years, nil
}
