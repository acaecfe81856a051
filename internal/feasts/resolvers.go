package feasts

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/zapponejosh/feast-calendar/internal/calendar"
	"github.com/zapponejosh/feast-calendar/internal/ephemeris"
)

const (
	oneDay = 24 * time.Hour

	// equinoxLookback places the first search anchor before the equinox so
	// the conjunction preceding it is found.
	equinoxLookback = 25 * oneDay
	nisanSearchDays = 30

	// conjunctionGuard moves the second search past the first conjunction so
	// the same event is not returned twice.
	conjunctionGuard = oneDay

	// lunationBuffer skips past the current conjunction before searching
	// for the next one.
	lunationBuffer     = 5 * oneDay
	lunationSearchDays = 35
	monthsToTishri     = 6
)

// resolveNisan1 picks the new moon closest to the March equinox and
// returns its local day. On an exact tie the earlier conjunction wins.
func (c *Calculator) resolveNisan1(ctx context.Context, year int) (calendar.LocalDate, EquinoxEvidence, error) {
	equinox, err := c.eph.MarchEquinox(ctx, year)
	if err != nil {
		return calendar.LocalDate{}, EquinoxEvidence{}, fmt.Errorf("march equinox: %w", err)
	}

	nm1, err := c.eph.NextMoonPhase(ctx, ephemeris.NewMoon, equinox.Add(-equinoxLookback), nisanSearchDays)
	if err != nil {
		return calendar.LocalDate{}, EquinoxEvidence{}, fmt.Errorf("first conjunction: %w", err)
	}

	nm2, err := c.eph.NextMoonPhase(ctx, ephemeris.NewMoon, nm1.Add(conjunctionGuard), nisanSearchDays)
	if err != nil {
		return calendar.LocalDate{}, EquinoxEvidence{}, fmt.Errorf("second conjunction: %w", err)
	}

	diff1 := absDuration(nm1.Sub(equinox))
	diff2 := absDuration(nm2.Sub(equinox))

	ev := EquinoxEvidence{
		Equinox:            equinox,
		Previous:           nm1,
		Next:               nm2,
		PreviousDeltaHours: roundHours(diff1),
		NextDeltaHours:     roundHours(diff2),
		Chosen:             BranchPrev,
	}
	if diff1 > diff2 {
		ev.Chosen = BranchNext
	}

	nisan1 := calendar.ToLocalDate(ev.Conjunction(), c.loc)

	c.logger.DebugContext(ctx, "nisan 1 conjunction chosen",
		slog.Int("year", year),
		slog.Time("equinox", equinox),
		slog.Time("conjunction", ev.Conjunction()),
		slog.String("chosen", string(ev.Chosen)),
		slog.Float64("previous_delta_hours", ev.PreviousDeltaHours),
		slog.Float64("next_delta_hours", ev.NextDeltaHours),
	)

	return nisan1, ev, nil
}

// resolveTishri1 steps six lunations forward from the Nisan conjunction and
// returns the local day of the seventh-month conjunction.
func (c *Calculator) resolveTishri1(ctx context.Context, nisanConjunction time.Time) (calendar.LocalDate, LunationEvidence, error) {
	current := nisanConjunction
	steps := make([]time.Time, 0, monthsToTishri)

	for i := 1; i <= monthsToTishri; i++ {
		next, err := c.eph.NextMoonPhase(ctx, ephemeris.NewMoon, current.Add(lunationBuffer), lunationSearchDays)
		if err != nil {
			return calendar.LocalDate{}, LunationEvidence{}, fmt.Errorf("lunation %d: %w", i, err)
		}
		current = next
		steps = append(steps, current)
	}

	return calendar.ToLocalDate(current, c.loc), LunationEvidence{Conjunction: current, Steps: steps}, nil
}

// resolveWaveSheaf returns the first Sunday on or after Passover.
func resolveWaveSheaf(passover calendar.LocalDate) (calendar.LocalDate, WaveSheafEvidence) {
	waveSheaf := calendar.NextWeekday(passover, time.Sunday)
	return waveSheaf, WaveSheafEvidence{
		PassoverWeekday: passover.Weekday(),
		DaysAdded:       passover.DaysUntil(waveSheaf),
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// roundHours rounds a duration to one decimal hour.
func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*10) / 10
}

func equinoxNote(ev EquinoxEvidence) string {
	return fmt.Sprintf("Equinox %s. Previous conjunction %.1fh away, next %.1fh away; closest is %s.",
		ev.Equinox.Format(time.RFC3339), ev.PreviousDeltaHours, ev.NextDeltaHours, ev.Chosen)
}

func waveSheafNote(passover calendar.LocalDate, ev WaveSheafEvidence) string {
	if ev.DaysAdded == 0 {
		return "15 Nisan falls on a Sunday. The Morrow after the Sabbath."
	}
	return fmt.Sprintf("15 Nisan is %s. Next Sunday is +%d days. The Morrow after the Sabbath.",
		calendar.DayName(passover), ev.DaysAdded)
}
