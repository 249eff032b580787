package models

import (
	"time"

	appErrors "github.com/noah-isme/trainersamay-api/pkg/errors"
)

// SessionStatus is the lifecycle state of a training session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "Scheduled"
	SessionStarted   SessionStatus = "Started"
	SessionCompleted SessionStatus = "Completed"
	SessionCancelled SessionStatus = "Cancelled"
	SessionAbsent    SessionStatus = "Absent"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionScheduled, SessionStarted, SessionCompleted, SessionCancelled, SessionAbsent:
		return true
	}
	return false
}

// SessionType is the kind of training delivered.
type SessionType string

const (
	SessionYoga         SessionType = "Yoga"
	SessionStrength     SessionType = "Strength"
	SessionCardio       SessionType = "Cardio"
	SessionConsultation SessionType = "Consultation"
)

// Session is a booked training slot owned by one trainer.
type Session struct {
	ID          string        `db:"id" json:"id"`
	TrainerID   string        `db:"trainer_id" json:"trainerId"`
	TrainerName string        `db:"trainer_name" json:"trainerName,omitempty"`
	Batch       string        `db:"batch" json:"batch"`
	SessionType SessionType   `db:"session_type" json:"sessionType"`
	Date        time.Time     `db:"date" json:"date"`
	Duration    int           `db:"duration" json:"duration"`
	Location    string        `db:"location" json:"location"`
	Notes       string        `db:"notes" json:"notes,omitempty"`
	Feedback    string        `db:"feedback" json:"feedback,omitempty"`
	Status      SessionStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

// End is the instant the session finishes.
func (s Session) End() time.Time {
	return s.Date.Add(time.Duration(s.Duration) * time.Minute)
}

// SessionFilter narrows session listings. Zero values mean "any".
type SessionFilter struct {
	TrainerID   string
	Status      SessionStatus
	SessionType string
	From        *time.Time
	To          *time.Time
	Newest      bool
}

// SessionGuard inspects a trainer's bookings around a write while the
// trainer lock is held. Returning an error aborts the write.
type SessionGuard func(existing []Session) error

// SessionRequest is the body of POST /sessions and PUT /sessions/:id.
// The trainer may be given as trainerId or trainer, as a string or a number.
// When startTime is set it overrides the clock part of date.
type SessionRequest struct {
	TrainerID       FlexID        `json:"trainerId"`
	Trainer         FlexID        `json:"trainer"`
	Batch           string        `json:"batch" validate:"required,max=100"`
	SessionType     SessionType   `json:"sessionType" validate:"required,oneof=Yoga Strength Cardio Consultation"`
	Date            time.Time     `json:"date"`
	StartTime       string        `json:"startTime" validate:"omitempty,hhmm"`
	Duration        int           `json:"duration" validate:"required,min=1,max=720"`
	Location        string        `json:"location" validate:"required,max=150"`
	Notes           string        `json:"notes" validate:"max=2000"`
	Feedback        *string       `json:"feedback" validate:"omitempty,max=2000"`
	Status          SessionStatus `json:"status" validate:"omitempty,oneof=Scheduled Started Completed Cancelled Absent"`
	IsRecurring     bool          `json:"isRecurring"`
	RecurrenceWeeks int           `json:"recurrenceWeeks" validate:"omitempty,min=1"`
}

// TrainerRef returns the trainer identifier from whichever field carried it.
func (r SessionRequest) TrainerRef() string {
	return FirstID(r.TrainerID, r.Trainer)
}

// StatusUpdateRequest is the body of PATCH /sessions/:id/status. Feedback
// may only accompany Completed.
type StatusUpdateRequest struct {
	Status   SessionStatus `json:"status" validate:"required,oneof=Scheduled Started Completed Cancelled Absent"`
	Feedback *string       `json:"feedback" validate:"omitempty,max=2000"`
}

// SessionConflictError reports the booking a draft overlaps.
type SessionConflictError struct {
	Conflict Session
}

func (e *SessionConflictError) Error() string {
	return "session overlaps " + e.Conflict.ID
}

// Unwrap exposes the typed HTTP error with the conflicting booking attached.
func (e *SessionConflictError) Unwrap() error {
	return appErrors.WithDetails(appErrors.ErrSessionConflict, map[string]interface{}{
		"conflict": e.Conflict,
	})
}
