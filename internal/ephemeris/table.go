package ephemeris

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Fixture is a precomputed set of events, typically exported from a
// reference ephemeris and checked in next to the tests that use it.
//
// Example (YAML):
//
//	equinoxes:
//	  2024: 2024-03-20T03:06:00Z
//	new_moons:
//	  - 2024-03-10T09:00:00Z
//	  - 2024-04-08T18:21:00Z
type Fixture struct {
	Equinoxes     map[int]time.Time `json:"equinoxes" yaml:"equinoxes"`
	NewMoons      []time.Time       `json:"new_moons" yaml:"new_moons"`
	FirstQuarters []time.Time       `json:"first_quarters,omitempty" yaml:"first_quarters,omitempty"`
	FullMoons     []time.Time       `json:"full_moons,omitempty" yaml:"full_moons,omitempty"`
	LastQuarters  []time.Time       `json:"last_quarters,omitempty" yaml:"last_quarters,omitempty"`
}

// Table answers queries from a Fixture. It never computes anything, which
// makes it the deterministic provider used in tests.
type Table struct {
	equinoxes map[int]time.Time
	phases    map[Phase][]time.Time
}

// NewTable creates a Table from a fixture. The fixture is copied; the
// caller may reuse it.
func NewTable(f Fixture) *Table {
	t := &Table{
		equinoxes: make(map[int]time.Time, len(f.Equinoxes)),
		phases:    make(map[Phase][]time.Time, 4),
	}
	for year, at := range f.Equinoxes {
		t.equinoxes[year] = at.UTC()
	}
	for phase, events := range map[Phase][]time.Time{
		NewMoon:      f.NewMoons,
		FirstQuarter: f.FirstQuarters,
		FullMoon:     f.FullMoons,
		LastQuarter:  f.LastQuarters,
	} {
		sorted := make([]time.Time, len(events))
		for i, at := range events {
			sorted[i] = at.UTC()
		}
		slices.SortFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })
		t.phases[phase] = sorted
	}
	return t
}

// LoadTable reads a fixture file. Files ending in .yaml or .yml are decoded
// as YAML, everything else as JSON.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read fixture: %v", ErrUnavailable, err)
	}

	var f Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse fixture %s: %v", ErrUnavailable, path, err)
	}

	return NewTable(f), nil
}

// MarchEquinox returns the fixture's equinox for year.
func (t *Table) MarchEquinox(ctx context.Context, year int) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	at, ok := t.equinoxes[year]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: no equinox for year %d", ErrUnavailable, year)
	}
	return at, nil
}

// NextMoonPhase returns the first fixture event of phase at or after start,
// within maxDays.
func (t *Table) NextMoonPhase(ctx context.Context, phase Phase, start time.Time, maxDays int) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	if _, err := phase.quarter(); err != nil {
		return time.Time{}, err
	}

	events := t.phases[phase]
	i, _ := slices.BinarySearchFunc(events, start, func(e, target time.Time) int { return e.Compare(target) })
	limit := start.AddDate(0, 0, maxDays)
	if i == len(events) || events[i].After(limit) {
		return time.Time{}, fmt.Errorf("%w: no %s within %d days of %s",
			ErrSearchExhausted, phase, maxDays, start.Format(time.RFC3339))
	}
	return events[i], nil
}
