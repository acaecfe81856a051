// Package ephemeris supplies the astronomical events the feast calendar is
// anchored to: the March equinox and the instants of lunar phases.
package ephemeris

import (
	"errors"
	"fmt"
)

// Phase is a lunar phase expressed as the Moon-Sun elongation in degrees.
type Phase int

const (
	NewMoon      Phase = 0
	FirstQuarter Phase = 90
	FullMoon     Phase = 180
	LastQuarter  Phase = 270
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case NewMoon:
		return "new moon"
	case FirstQuarter:
		return "first quarter"
	case FullMoon:
		return "full moon"
	case LastQuarter:
		return "last quarter"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// quarter returns the fraction of a lunation at which the phase occurs.
func (p Phase) quarter() (float64, error) {
	switch p {
	case NewMoon:
		return 0, nil
	case FirstQuarter:
		return .25, nil
	case FullMoon:
		return .5, nil
	case LastQuarter:
		return .75, nil
	default:
		return 0, fmt.Errorf("%w: %d degrees", ErrUnsupportedPhase, int(p))
	}
}

// =============================================================================
// Error Types
// =============================================================================

// ErrUnavailable is returned when the provider cannot serve a request at all,
// e.g. its data could not be loaded or the year is outside its range.
var ErrUnavailable = errors.New("ephemeris unavailable")

// ErrSearchExhausted is returned when a bounded phase search finds no event
// inside its window.
var ErrSearchExhausted = errors.New("ephemeris search exhausted")

// ErrUnsupportedPhase is returned for phases other than the four quarters.
var ErrUnsupportedPhase = errors.New("unsupported lunar phase")

// IsUnavailable checks if an error is an "unavailable" error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsSearchExhausted checks if an error is a "search exhausted" error.
func IsSearchExhausted(err error) bool {
	return errors.Is(err, ErrSearchExhausted)
}
