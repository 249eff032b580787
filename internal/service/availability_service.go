package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/trainersamay-api/internal/models"
	"github.com/noah-isme/trainersamay-api/internal/scheduling"
	appErrors "github.com/noah-isme/trainersamay-api/pkg/errors"
)

type availabilityRepository interface {
	List(ctx context.Context) ([]models.Availability, error)
	ListByTrainer(ctx context.Context, trainerID string) ([]models.Availability, error)
	Replace(ctx context.Context, trainerID string, slots []models.Availability) ([]models.Availability, error)
}

type trainerDirectory interface {
	ListTrainers(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type sessionLister interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
}

// SchedulingOptions carries the booking rules shared by the availability
// and session services.
type SchedulingOptions struct {
	Location           *time.Location
	EnforceWindow      bool
	MaxRecurrenceWeeks int
}

func (o SchedulingOptions) withDefaults() SchedulingOptions {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.MaxRecurrenceWeeks <= 0 {
		o.MaxRecurrenceWeeks = 12
	}
	return o
}

// AvailabilityService manages weekly trainer windows and gates drafts.
type AvailabilityService struct {
	repo      availabilityRepository
	users     trainerDirectory
	sessions  sessionLister
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	opts      SchedulingOptions
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, users trainerDirectory, sessions sessionLister, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts SchedulingOptions) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &AvailabilityService{
		repo:      repo,
		users:     users,
		sessions:  sessions,
		audit:     audit,
		validator: validate,
		logger:    logger,
		opts:      opts.withDefaults(),
	}
}

// List returns every window for admins and the caller's own for trainers.
func (s *AvailabilityService) List(ctx context.Context, actor models.Actor) ([]models.Availability, error) {
	var (
		out []models.Availability
		err error
	)
	if actor.IsAdmin() {
		out, err = s.repo.List(ctx)
	} else {
		out, err = s.repo.ListByTrainer(ctx, actor.UserID)
	}
	if err != nil {
		return nil, internalError(err, "failed to list availabilities")
	}
	return nonNil(out), nil
}

// Trainers lists active trainers together with their weekly windows.
func (s *AvailabilityService) Trainers(ctx context.Context) ([]models.TrainerAvailability, error) {
	trainers, err := s.users.ListTrainers(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list trainers")
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list availabilities")
	}

	byTrainer := make(map[string][]models.Availability, len(trainers))
	for _, a := range all {
		byTrainer[a.TrainerID] = append(byTrainer[a.TrainerID], a)
	}

	out := make([]models.TrainerAvailability, 0, len(trainers))
	for i := range trainers {
		out = append(out, models.TrainerAvailability{
			Trainer:        models.InfoFromUser(&trainers[i]),
			Availabilities: nonNil(byTrainer[trainers[i].ID]),
		})
	}
	return out, nil
}

// Get returns one trainer's windows.
func (s *AvailabilityService) Get(ctx context.Context, actor models.Actor, trainerID string) ([]models.Availability, error) {
	if !actor.CanActFor(trainerID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another trainer's availability")
	}
	out, err := s.repo.ListByTrainer(ctx, trainerID)
	if err != nil {
		return nil, internalError(err, "failed to load availability")
	}
	return nonNil(out), nil
}

// Replace swaps the trainer's whole weekly set. Each day may appear once
// and its window must close after it opens.
func (s *AvailabilityService) Replace(ctx context.Context, actor models.Actor, trainerID string, req models.ReplaceAvailabilityRequest) ([]models.Availability, error) {
	if !actor.CanActFor(trainerID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot change another trainer's availability")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid availability payload")
	}

	trainer, err := s.users.FindByID(ctx, trainerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trainer not found")
		}
		return nil, internalError(err, "failed to load trainer")
	}
	if trainer.Role != models.RoleTrainer {
		return nil, appErrors.Clone(appErrors.ErrValidation, "availability can only be set for trainers")
	}

	slots, err := normalizeSlots(req.Availabilities)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.Replace(ctx, trainerID, slots)
	if err != nil {
		return nil, internalError(err, "failed to save availability")
	}

	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionAvailabilityUpdate, "availability", trainerID, map[string]interface{}{
		"days": len(stored),
	})
	return nonNil(stored), nil
}

func normalizeSlots(in []models.AvailabilitySlot) ([]models.Availability, error) {
	seen := make(map[models.Weekday]struct{}, len(in))
	out := make([]models.Availability, 0, len(in))
	for _, slot := range in {
		if _, dup := seen[slot.Day]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s appears more than once", slot.Day))
		}
		seen[slot.Day] = struct{}{}

		start, err := scheduling.NormalizeClock(slot.StartTime)
		if err != nil {
			return nil, validationError(err, "invalid start time")
		}
		end, err := scheduling.NormalizeClock(slot.EndTime)
		if err != nil {
			return nil, validationError(err, "invalid end time")
		}
		// zero padded HH:MM compares lexically
		if start >= end {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: start time must be before end time", slot.Day))
		}
		out = append(out, models.Availability{Day: slot.Day, StartTime: start, EndTime: end})
	}
	return out, nil
}

// Check answers the booking form's two questions for a draft: does the
// trainer work that weekday, and does the draft overlap another booking.
func (s *AvailabilityService) Check(ctx context.Context, actor models.Actor, req models.AvailabilityCheckRequest) (*models.AvailabilityCheckResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid availability check")
	}
	trainerID := req.TrainerRef()
	if !actor.IsAdmin() {
		if trainerID == "" {
			trainerID = actor.UserID
		}
		if !actor.CanActFor(trainerID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot check another trainer's schedule")
		}
	}

	result := &models.AvailabilityCheckResult{}
	draft := buildDraft(trainerID, req.Date, req.StartTime, req.Duration, req.ExcludeSessionID, s.opts.Location)
	if draft.TrainerID == "" || draft.Date.IsZero() {
		return result, nil
	}

	avails, err := s.repo.ListByTrainer(ctx, trainerID)
	if err != nil {
		return nil, internalError(err, "failed to load availability")
	}
	avail, found := scheduling.FindAvailability(trainerID, draft.Date, avails)
	if found {
		result.Availability = &avail
	}

	if start, end, ok := draft.Interval(); ok {
		nearby, err := s.sessionsAround(ctx, trainerID, start, end)
		if err != nil {
			return nil, err
		}
		if conflict, hit := scheduling.FindConflict(draft, nearby); hit {
			result.Conflict = &conflict
		}
		if found && s.opts.EnforceWindow && !scheduling.WithinWindow(avail, draft) {
			result.OutsideWindow = true
		}
	}

	result.CanSubmit = scheduling.CanSubmit(found, result.Conflict != nil, req.InFlight) && !result.OutsideWindow
	return result, nil
}

func (s *AvailabilityService) sessionsAround(ctx context.Context, trainerID string, start, end time.Time) ([]models.Session, error) {
	from := start.Add(-24 * time.Hour)
	sessions, err := s.sessions.List(ctx, models.SessionFilter{TrainerID: trainerID, From: &from, To: &end})
	if err != nil {
		return nil, internalError(err, "failed to load trainer sessions")
	}
	return sessions, nil
}

// buildDraft expresses a request in the scheduling timezone. An empty
// startTime falls back to the clock part of date.
func buildDraft(trainerID string, date time.Time, startTime string, duration int, exclude string, loc *time.Location) scheduling.Draft {
	d := scheduling.Draft{
		TrainerID:        trainerID,
		StartTime:        startTime,
		DurationMinutes:  duration,
		ExcludeSessionID: exclude,
	}
	if date.IsZero() {
		return d
	}
	d.Date = date.In(loc)
	if d.StartTime == "" {
		d.StartTime = scheduling.Clock(d.Date)
	}
	return d
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
