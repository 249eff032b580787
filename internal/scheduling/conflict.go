package scheduling

import (
	"time"

	"github.com/noah-isme/trainersamay-api/internal/models"
)

// Overlaps is the half-open interval test; touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// FindConflict returns the first session, in input order, that belongs to
// the draft's trainer and overlaps the proposed interval. The session named
// by ExcludeSessionID is skipped. Incomplete drafts never conflict.
func FindConflict(d Draft, sessions []models.Session) (models.Session, bool) {
	start, end, ok := d.Interval()
	if !ok {
		return models.Session{}, false
	}
	for _, s := range sessions {
		if s.TrainerID != d.TrainerID {
			continue
		}
		if d.ExcludeSessionID != "" && s.ID == d.ExcludeSessionID {
			continue
		}
		if Overlaps(start, end, s.Date, s.End()) {
			return s, true
		}
	}
	return models.Session{}, false
}

// DraftFromSession builds the draft that would reproduce s, excluding s
// itself. loc is the scheduling timezone used to read the wall clock.
func DraftFromSession(s models.Session, loc *time.Location) Draft {
	local := s.Date.In(loc)
	return Draft{
		TrainerID:        s.TrainerID,
		Date:             local,
		StartTime:        Clock(local),
		DurationMinutes:  s.Duration,
		ExcludeSessionID: s.ID,
	}
}
