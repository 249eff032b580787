// Package scheduling holds the pure booking rules shared by the HTTP layer
// and the background jobs: availability lookup, overlap detection, display
// status derivation and the session state machine. Nothing here performs
// I/O or reads the clock; callers pass "now" explicitly.
package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/trainersamay-api/internal/models"
)

// Draft is a proposed session as entered on the booking form.
type Draft struct {
	TrainerID        string
	Date             time.Time
	StartTime        string
	DurationMinutes  int
	ExcludeSessionID string
}

// Complete reports whether every field needed for an overlap test is set.
func (d Draft) Complete() bool {
	return d.TrainerID != "" && !d.Date.IsZero() && d.StartTime != "" && d.DurationMinutes > 0
}

// Interval returns the proposed [start, end) in the draft date's location.
// ok is false for an incomplete draft or an unparseable start time.
func (d Draft) Interval() (start, end time.Time, ok bool) {
	if !d.Complete() {
		return time.Time{}, time.Time{}, false
	}
	start, err := At(d.Date, d.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, start.Add(time.Duration(d.DurationMinutes) * time.Minute), true
}

// ParseClock parses a 24h "HH:MM" (single digit hours allowed) clock value.
func ParseClock(value string) (hour, minute int, err error) {
	h, m, found := strings.Cut(strings.TrimSpace(value), ":")
	if !found || len(m) != 2 || len(h) == 0 || len(h) > 2 {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", value)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}

// ClockMinutes converts "HH:MM" to minutes after midnight.
func ClockMinutes(value string) (int, error) {
	h, m, err := ParseClock(value)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// NormalizeClock renders a clock value as zero padded "HH:MM".
func NormalizeClock(value string) (string, error) {
	h, m, err := ParseClock(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// Clock formats the wall clock of t as "HH:MM".
func Clock(t time.Time) string {
	return t.Format("15:04")
}

// At places clock on the calendar day of date, in date's location.
func At(date time.Time, clock string) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := date.Date()
	return time.Date(y, mo, d, h, m, 0, 0, date.Location()), nil
}

// FindAvailability returns the first record for trainerID whose day is the
// weekday of date. The weekday is taken in date's own location.
func FindAvailability(trainerID string, date time.Time, availabilities []models.Availability) (models.Availability, bool) {
	if trainerID == "" || date.IsZero() {
		return models.Availability{}, false
	}
	day := models.WeekdayOf(date)
	for _, a := range availabilities {
		if a.TrainerID == trainerID && a.Day == day {
			return a, true
		}
	}
	return models.Availability{}, false
}

// WithinWindow reports whether the draft fits inside the availability
// window on its day. Incomplete drafts and malformed windows never fit.
func WithinWindow(a models.Availability, d Draft) bool {
	start, end, ok := d.Interval()
	if !ok {
		return false
	}
	from, err := At(start, a.StartTime)
	if err != nil {
		return false
	}
	to, err := At(start, a.EndTime)
	if err != nil {
		return false
	}
	return !start.Before(from) && !end.After(to)
}

// CanSubmit gates the booking form.
func CanSubmit(availabilityFound, conflictFound, inFlight bool) bool {
	return availabilityFound && !conflictFound && !inFlight
}
