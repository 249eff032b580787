package scheduling

import (
	"errors"
	"time"

	"github.com/noah-isme/trainersamay-api/internal/models"
)

const maxGrace = 30 * time.Minute

var (
	// ErrTransitionNotAllowed is returned for edges absent from the lifecycle.
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	// ErrNotSessionDay guards Started and Completed outside the session's day.
	ErrNotSessionDay = errors.New("session can only be started or completed on its scheduled day")
	// ErrGraceNotElapsed guards manual promotion to Absent.
	ErrGraceNotElapsed = errors.New("session is still within its grace period")
)

// SameDay compares calendar days in now's location.
func SameDay(t, now time.Time) bool {
	y1, m1, d1 := t.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// DeriveDisplayStatus returns s with status Absent when it is still
// Scheduled, its date is before now and not on now's calendar day. The
// input is never modified.
func DeriveDisplayStatus(s models.Session, now time.Time) models.Session {
	if s.Status == models.SessionScheduled && s.Date.Before(now) && !SameDay(s.Date, now) {
		s.Status = models.SessionAbsent
	}
	return s
}

// ProcessSessions applies DeriveDisplayStatus to every session.
func ProcessSessions(sessions []models.Session, now time.Time) []models.Session {
	out := make([]models.Session, len(sessions))
	for i, s := range sessions {
		out[i] = DeriveDisplayStatus(s, now)
	}
	return out
}

// GracePeriod is half the duration, capped at thirty minutes.
func GracePeriod(durationMinutes int) time.Duration {
	if durationMinutes <= 0 {
		return 0
	}
	grace := time.Duration(durationMinutes) * 30 * time.Second
	if grace > maxGrace {
		return maxGrace
	}
	return grace
}

// GraceCutoff is the instant after which an unstarted session is absent.
func GraceCutoff(s models.Session) time.Time {
	return s.Date.Add(GracePeriod(s.Duration))
}

// ShouldPromoteAbsent reports whether a stored Scheduled session has passed
// its grace cutoff and must be persisted as Absent.
func ShouldPromoteAbsent(s models.Session, now time.Time) bool {
	return s.Status == models.SessionScheduled && now.After(GraceCutoff(s))
}

// CheckTransition validates a persisted status change. Setting the current
// status again is a no-op and always allowed.
func CheckTransition(s models.Session, to models.SessionStatus, now time.Time) error {
	from := s.Status
	if from == to {
		return nil
	}
	switch {
	case from == models.SessionScheduled && to == models.SessionStarted,
		from == models.SessionStarted && to == models.SessionCompleted:
		if !SameDay(s.Date, now) {
			return ErrNotSessionDay
		}
		return nil
	case from == models.SessionScheduled && to == models.SessionCancelled,
		from == models.SessionStarted && to == models.SessionCancelled:
		return nil
	case from == models.SessionScheduled && to == models.SessionAbsent:
		if !ShouldPromoteAbsent(s, now) {
			return ErrGraceNotElapsed
		}
		return nil
	}
	return ErrTransitionNotAllowed
}

// Terminal reports whether no further transitions leave status.
func Terminal(status models.SessionStatus) bool {
	switch status {
	case models.SessionCompleted, models.SessionCancelled, models.SessionAbsent:
		return true
	}
	return false
}
