package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Weekday is a weekday name, Sunday through Saturday.
type Weekday string

// Weekdays is indexed by time.Weekday (0 = Sunday).
var Weekdays = [7]Weekday{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// WeekdayOf names the weekday of t in t's own location.
func WeekdayOf(t time.Time) Weekday {
	return Weekdays[t.Weekday()]
}

// Valid reports whether d is one of the seven names.
func (d Weekday) Valid() bool {
	for _, w := range Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// Availability is a trainer's working window on one weekday.
type Availability struct {
	ID        string    `db:"id" json:"id"`
	TrainerID string    `db:"trainer_id" json:"trainerId"`
	Day       Weekday   `db:"day" json:"day"`
	StartTime string    `db:"start_time" json:"startTime"`
	EndTime   string    `db:"end_time" json:"endTime"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

// AvailabilitySlot is one entry of a weekly availability replacement.
type AvailabilitySlot struct {
	Day       Weekday `json:"day" validate:"required,oneof=Sunday Monday Tuesday Wednesday Thursday Friday Saturday"`
	StartTime string  `json:"startTime" validate:"required,hhmm"`
	EndTime   string  `json:"endTime" validate:"required,hhmm"`
}

// ReplaceAvailabilityRequest is the body of PUT /availabilities/:id. It
// accepts either a bare array or an object wrapping one.
type ReplaceAvailabilityRequest struct {
	Availabilities []AvailabilitySlot `json:"availabilities" validate:"max=7,dive"`
}

// TrainerAvailability groups a trainer with their weekly windows.
type TrainerAvailability struct {
	Trainer        UserInfo       `json:"trainer"`
	Availabilities []Availability `json:"availabilities"`
}

// AvailabilityCheckRequest is a session draft submitted for gating.
type AvailabilityCheckRequest struct {
	TrainerID        FlexID    `json:"trainerId"`
	Trainer          FlexID    `json:"trainer"`
	Date             time.Time `json:"date"`
	StartTime        string    `json:"startTime" validate:"omitempty,hhmm"`
	Duration         int       `json:"duration" validate:"omitempty,min=0"`
	ExcludeSessionID string    `json:"excludeSessionId"`
	InFlight         bool      `json:"inFlight"`
}

// TrainerRef returns the trainer identifier from whichever field carried it.
func (r AvailabilityCheckRequest) TrainerRef() string {
	return FirstID(r.TrainerID, r.Trainer)
}

// AvailabilityCheckResult answers the two gating questions for a draft.
type AvailabilityCheckResult struct {
	Availability *Availability `json:"availability"`
	Conflict     *Session      `json:"conflict"`
	// OutsideWindow is set when window enforcement is on and the draft
	// does not fit the day's availability.
	OutsideWindow bool `json:"outsideWindow,omitempty"`
	CanSubmit     bool `json:"canSubmit"`
}

// UnmarshalJSON accepts `[...]` as well as `{"availabilities": [...]}`.
func (r *ReplaceAvailabilityRequest) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &r.Availabilities)
	}
	type plain ReplaceAvailabilityRequest
	return json.Unmarshal(trimmed, (*plain)(r))
}
