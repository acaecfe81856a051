package ephemeris

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/moonphase"
	"github.com/soniakeys/meeus/v3/solstice"
)

// Supported year range of the Meeus series used for equinoxes.
const (
	MinYear = -1000
	MaxYear = 3000
)

const (
	// lunationsPerYear is the mean number of synodic months per Julian year.
	lunationsPerYear = 12.3685

	jdUnixEpoch   = 2440587.5
	jdJ2000       = 2451545.0
	secondsPerDay = 86400.0
)

// Meeus computes events with the algorithms of Jean Meeus, "Astronomical
// Algorithms" (2nd ed.), chapters 27 and 49. Results are converted from
// Terrestrial Time to UTC with an estimated ΔT.
//
// Meeus is stateless and safe for concurrent use.
type Meeus struct{}

// NewMeeus creates a Meeus provider.
func NewMeeus() *Meeus {
	return &Meeus{}
}

// MarchEquinox returns the instant of the northward equinox of the given year.
func (m *Meeus) MarchEquinox(ctx context.Context, year int) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	if year < MinYear || year > MaxYear {
		return time.Time{}, fmt.Errorf("%w: year %d outside %d..%d", ErrUnavailable, year, MinYear, MaxYear)
	}
	return jdeToUTC(solstice.March(year)), nil
}

// NextMoonPhase returns the first occurrence of phase at or after start,
// searching no further than maxDays ahead.
func (m *Meeus) NextMoonPhase(ctx context.Context, phase Phase, start time.Time, maxDays int) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	q, err := phase.quarter()
	if err != nil {
		return time.Time{}, err
	}

	limit := start.AddDate(0, 0, maxDays)
	if y := decimalYear(timeToJD(start)); y < MinYear || y > MaxYear+1 {
		return time.Time{}, fmt.Errorf("%w: %s outside supported range", ErrUnavailable, start.Format(time.RFC3339))
	}

	// Start one lunation early so the mean estimate can never overshoot.
	k := math.Floor((decimalYear(timeToJD(start))-2000)*lunationsPerYear) - 1
	for {
		t := jdeToUTC(phaseJDE(phase, k+q))
		if t.After(limit) {
			return time.Time{}, fmt.Errorf("%w: no %s within %d days of %s",
				ErrSearchExhausted, phase, maxDays, start.Format(time.RFC3339))
		}
		if !t.Before(start) {
			return t, nil
		}
		k++
	}
}

// phaseJDE returns the JDE of the phase with lunation number k (k carries the
// quarter fraction).
func phaseJDE(phase Phase, k float64) float64 {
	y := 2000 + k/lunationsPerYear
	switch phase {
	case FirstQuarter:
		return moonphase.First(y)
	case FullMoon:
		return moonphase.Full(y)
	case LastQuarter:
		return moonphase.Last(y)
	default:
		return moonphase.New(y)
	}
}

// jdeToUTC converts a Julian Ephemeris Day to a UTC instant in the proleptic
// Gregorian calendar.
func jdeToUTC(jde float64) time.Time {
	dt := deltaT(decimalYear(jde))
	secs := (jde-jdUnixEpoch)*secondsPerDay - dt
	whole := math.Floor(secs)
	nanos := math.Round((secs - whole) * 1e9)
	return time.Unix(int64(whole), int64(nanos)).UTC()
}

func timeToJD(t time.Time) float64 {
	return float64(t.Unix())/secondsPerDay + jdUnixEpoch
}

func decimalYear(jd float64) float64 {
	return 2000 + (jd-jdJ2000)/365.25
}
