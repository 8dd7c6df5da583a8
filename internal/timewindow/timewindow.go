// Package timewindow decides whether a bare time of day shown on the page
// (no AM/PM marker) is close enough to the current time in the exchange's
// time zone.
package timewindow

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
	_ "time/tzdata"
)

const (
	DefaultZone      = "America/New_York"
	DefaultTolerance = 10 * time.Minute
)

var ErrMalformed = errors.New("malformed time of day")

var timeRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

type Filter struct {
	loc       *time.Location
	tolerance time.Duration
	now       func() time.Time
}

// Match describes the candidate that was closest to now.
type Match struct {
	Now    time.Time
	Target time.Time
	Period string // "AM" or "PM"
	Diff   time.Duration
	Recent bool
}

// New returns a filter for loc. A nil now uses time.Now.
func New(loc *time.Location, tolerance time.Duration, now func() time.Time) *Filter {
	if now == nil {
		now = time.Now
	}
	return &Filter{loc: loc, tolerance: tolerance, now: now}
}

// Load is New with the location looked up by name.
func Load(zone string, tolerance time.Duration, now func() time.Time) (*Filter, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", zone, err)
	}
	return New(loc, tolerance, now), nil
}

func (f *Filter) Location() *time.Location {
	return f.loc
}

func (f *Filter) Now() time.Time {
	return f.now().In(f.loc)
}

// Check compares timeOfDay ("H:MM" or "H:MM:SS") against now. Hours below 12
// are ambiguous, so both the literal value and the value 12 hours later are
// tried and the closer one is used. "12:MM" is always noon and never rolls
// over to the next midnight, so "12:01" read at 23:55 is not recent.
func (f *Filter) Check(timeOfDay string) (Match, error) {
	h, m, s, err := parse(timeOfDay)
	if err != nil {
		return Match{}, err
	}

	now := f.Now()
	y, mo, d := now.Date()

	best := Match{Now: now, Target: time.Date(y, mo, d, h, m, s, 0, f.loc), Period: "AM"}
	best.Diff = absDiff(now, best.Target)

	if h < 12 {
		pm := time.Date(y, mo, d, h+12, m, s, 0, f.loc)
		if diff := absDiff(now, pm); diff <= best.Diff {
			best.Target, best.Period, best.Diff = pm, "PM", diff
		}
	}

	best.Recent = best.Diff <= f.tolerance
	return best, nil
}

// IsRecent reports false for malformed input.
func (f *Filter) IsRecent(timeOfDay string) bool {
	m, err := f.Check(timeOfDay)
	return err == nil && m.Recent
}

func parse(timeOfDay string) (h, m, s int, err error) {
	parts := timeRe.FindStringSubmatch(timeOfDay)
	if parts == nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMalformed, timeOfDay)
	}
	h, _ = strconv.Atoi(parts[1])
	m, _ = strconv.Atoi(parts[2])
	if parts[3] != "" {
		s, _ = strconv.Atoi(parts[3])
	}
	if h > 23 || m > 59 || s > 59 {
		return 0, 0, 0, fmt.Errorf("%w: %q out of range", ErrMalformed, timeOfDay)
	}
	return h, m, s, nil
}

func absDiff(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
