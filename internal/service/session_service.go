package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/trainersamay-api/internal/events"
	"github.com/noah-isme/trainersamay-api/internal/models"
	"github.com/noah-isme/trainersamay-api/internal/scheduling"
	appErrors "github.com/noah-isme/trainersamay-api/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	NextScheduled(ctx context.Context, trainerID string, now time.Time) (*models.Session, error)
	CreateBatch(ctx context.Context, sessions []*models.Session, guard models.SessionGuard) error
	UpdateGuarded(ctx context.Context, session *models.Session, guard models.SessionGuard) error
	UpdateStatus(ctx context.Context, id string, status models.SessionStatus, feedback *string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type availabilityLookup interface {
	ListByTrainer(ctx context.Context, trainerID string) ([]models.Availability, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SessionServiceParams groups constructor dependencies.
type SessionServiceParams struct {
	Sessions     sessionRepository
	Availability availabilityLookup
	Users        userLookup
	Cache        *CacheService
	Events       events.Publisher
	Metrics      *MetricsService
	Audit        auditLogger
	Validator    *validator.Validate
	Logger       *zap.Logger
	Options      SchedulingOptions
}

// SessionService books, edits and transitions training sessions.
type SessionService struct {
	repo      sessionRepository
	avail     availabilityLookup
	users     userLookup
	notifier  sessionNotifier
	metrics   *MetricsService
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	opts      SchedulingOptions
	now       func() time.Time
}

// NewSessionService constructs a SessionService with sane defaults.
func NewSessionService(params SessionServiceParams) *SessionService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	return &SessionService{
		repo:  params.Sessions,
		avail: params.Availability,
		users: params.Users,
		notifier: sessionNotifier{
			cache:   params.Cache,
			events:  params.Events,
			metrics: params.Metrics,
			logger:  logger,
		},
		metrics:   params.Metrics,
		audit:     params.Audit,
		validator: validate,
		logger:    logger,
		opts:      params.Options.withDefaults(),
		now:       time.Now,
	}
}

func (s *SessionService) clock() time.Time {
	return s.now().In(s.opts.Location)
}

// List returns sessions in date order with display statuses applied.
// Trainers only ever see their own sessions.
func (s *SessionService) List(ctx context.Context, actor models.Actor, filter models.SessionFilter) ([]models.Session, error) {
	if !actor.IsAdmin() {
		filter.TrainerID = actor.UserID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}
	return listDisplay(ctx, s.repo, filter, s.clock())
}

// listDisplay loads sessions and applies display derivation. Absent and
// Scheduled are display statuses, so they are filtered after derivation.
func listDisplay(ctx context.Context, repo sessionLister, filter models.SessionFilter, now time.Time) ([]models.Session, error) {
	want := filter.Status
	if want == models.SessionAbsent || want == models.SessionScheduled {
		filter.Status = ""
	}
	sessions, err := repo.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list sessions")
	}
	display := scheduling.ProcessSessions(sessions, now)
	if want == "" || filter.Status != "" {
		return display, nil
	}
	out := make([]models.Session, 0, len(display))
	for _, sess := range display {
		if sess.Status == want {
			out = append(out, sess)
		}
	}
	return out, nil
}

// Get returns one session with its display status.
func (s *SessionService) Get(ctx context.Context, actor models.Actor, id string) (*models.Session, error) {
	session, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	display := scheduling.DeriveDisplayStatus(*session, s.clock())
	return &display, nil
}

// Upcoming returns the next Scheduled session, or nil when there is none.
func (s *SessionService) Upcoming(ctx context.Context, actor models.Actor) (*models.Session, error) {
	trainerID := ""
	if !actor.IsAdmin() {
		trainerID = actor.UserID
	}
	next, err := s.repo.NextScheduled(ctx, trainerID, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalError(err, "failed to load upcoming session")
	}
	return next, nil
}

// Create books a session, or a weekly series when isRecurring is set. A
// series is all or nothing: each occurrence must pass the availability
// gate and must not overlap stored bookings or earlier occurrences.
func (s *SessionService) Create(ctx context.Context, actor models.Actor, req models.SessionRequest) ([]models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid session payload")
	}
	if req.Date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	trainer, err := s.resolveTrainer(ctx, actor, req.TrainerRef())
	if err != nil {
		return nil, err
	}

	count := 1
	if req.IsRecurring {
		count = req.RecurrenceWeeks
		if count == 0 {
			count = 1
		}
		if count > s.opts.MaxRecurrenceWeeks {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("recurrenceWeeks must be between 1 and %d", s.opts.MaxRecurrenceWeeks))
		}
	}

	base := req.Date.In(s.opts.Location)
	startClock := req.StartTime
	if startClock == "" {
		startClock = scheduling.Clock(base)
	}

	avails, err := s.avail.ListByTrainer(ctx, trainer.ID)
	if err != nil {
		return nil, internalError(err, "failed to load availability")
	}

	batch := make([]*models.Session, 0, count)
	for i := 0; i < count; i++ {
		start, err := scheduling.At(base.AddDate(0, 0, 7*i), startClock)
		if err != nil {
			return nil, validationError(err, "invalid start time")
		}
		draft := scheduling.Draft{TrainerID: trainer.ID, Date: start, StartTime: startClock, DurationMinutes: req.Duration}
		if err := s.gate(draft, avails); err != nil {
			return nil, err
		}
		batch = append(batch, &models.Session{
			TrainerID:   trainer.ID,
			TrainerName: trainer.Name,
			Batch:       strings.TrimSpace(req.Batch),
			SessionType: req.SessionType,
			Date:        start.UTC(),
			Duration:    req.Duration,
			Location:    strings.TrimSpace(req.Location),
			Notes:       strings.TrimSpace(req.Notes),
			Status:      models.SessionScheduled,
		})
	}

	guard := func(existing []models.Session) error {
		booked := existing
		for _, candidate := range batch {
			if conflict, hit := scheduling.FindConflict(scheduling.DraftFromSession(*candidate, s.opts.Location), booked); hit {
				s.metrics.RecordBookingRejected("conflict")
				return &models.SessionConflictError{Conflict: conflict}
			}
			booked = append(booked, *candidate)
		}
		return nil
	}

	if err := s.repo.CreateBatch(ctx, batch, guard); err != nil {
		return nil, s.writeError(err, "failed to create session")
	}

	created := make([]models.Session, 0, len(batch))
	for _, sess := range batch {
		created = append(created, *sess)
		s.notifier.notify(ctx, events.SessionCreated, *sess, actor.UserID)
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionSessionCreate, "session", batch[0].ID, map[string]interface{}{
		"trainerId":   trainer.ID,
		"occurrences": len(batch),
	})
	return created, nil
}

// Update edits a session. The availability gate runs again when the
// trainer or timing changes, and the overlap check ignores the session
// itself. A Scheduled session whose grace period has passed is stored as
// Absent.
func (s *SessionService) Update(ctx context.Context, actor models.Actor, id string, req models.SessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid session payload")
	}
	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	trainerID := req.TrainerRef()
	if trainerID == "" {
		trainerID = current.TrainerID
	}
	updated := *current
	if trainerID != current.TrainerID {
		trainer, err := s.resolveTrainer(ctx, actor, trainerID)
		if err != nil {
			return nil, err
		}
		updated.TrainerID, updated.TrainerName = trainer.ID, trainer.Name
	}

	date := req.Date
	if date.IsZero() {
		date = current.Date
	}
	base := date.In(s.opts.Location)
	startClock := req.StartTime
	if startClock == "" {
		startClock = scheduling.Clock(base)
	}
	start, err := scheduling.At(base, startClock)
	if err != nil {
		return nil, validationError(err, "invalid start time")
	}

	updated.Batch = strings.TrimSpace(req.Batch)
	updated.SessionType = req.SessionType
	updated.Date = start.UTC()
	updated.Duration = req.Duration
	updated.Location = strings.TrimSpace(req.Location)
	updated.Notes = strings.TrimSpace(req.Notes)
	if req.Feedback != nil {
		updated.Feedback = strings.TrimSpace(*req.Feedback)
	}
	if req.Status != "" {
		updated.Status = req.Status
	}

	timingChanged := updated.TrainerID != current.TrainerID || !updated.Date.Equal(current.Date) || updated.Duration != current.Duration
	if timingChanged && updated.Status != models.SessionCancelled {
		avails, err := s.avail.ListByTrainer(ctx, updated.TrainerID)
		if err != nil {
			return nil, internalError(err, "failed to load availability")
		}
		draft := scheduling.DraftFromSession(updated, s.opts.Location)
		if err := s.gate(draft, avails); err != nil {
			return nil, err
		}
	}

	kind := events.SessionUpdated
	if scheduling.ShouldPromoteAbsent(updated, s.now()) {
		updated.Status = models.SessionAbsent
		kind = events.SessionAbsent
	}

	guard := func(existing []models.Session) error {
		draft := scheduling.DraftFromSession(updated, s.opts.Location)
		if conflict, hit := scheduling.FindConflict(draft, existing); hit {
			s.metrics.RecordBookingRejected("conflict")
			return &models.SessionConflictError{Conflict: conflict}
		}
		return nil
	}

	if err := s.repo.UpdateGuarded(ctx, &updated, guard); err != nil {
		return nil, s.writeError(err, "failed to update session")
	}

	s.notifier.notify(ctx, kind, updated, actor.UserID)
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionSessionUpdate, "session", updated.ID, map[string]interface{}{
		"status": updated.Status,
	})
	display := scheduling.DeriveDisplayStatus(updated, s.clock())
	return &display, nil
}

// UpdateStatus applies one lifecycle transition.
func (s *SessionService) UpdateStatus(ctx context.Context, actor models.Actor, id string, req models.StatusUpdateRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status payload")
	}
	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	if err := scheduling.CheckTransition(*current, req.Status, now); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("%s -> %s: %v", current.Status, req.Status, err))
	}
	var feedback *string
	if req.Feedback != nil {
		if req.Status != models.SessionCompleted {
			return nil, appErrors.Clone(appErrors.ErrValidation, "feedback is only accepted for completed sessions")
		}
		trimmed := strings.TrimSpace(*req.Feedback)
		feedback = &trimmed
	}
	if current.Status == req.Status && feedback == nil {
		display := scheduling.DeriveDisplayStatus(*current, now)
		return &display, nil
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status, feedback, now.UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, internalError(err, "failed to update session status")
	}

	from := current.Status
	current.Status = req.Status
	current.UpdatedAt = now.UTC()
	if feedback != nil {
		current.Feedback = *feedback
	}

	kind := events.SessionUpdated
	if req.Status == models.SessionAbsent {
		kind = events.SessionAbsent
	}
	s.notifier.notify(ctx, kind, *current, actor.UserID)
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionSessionStatus, "session", id, map[string]interface{}{
		"from":     from,
		"to":       req.Status,
		"feedback": feedback != nil,
	})
	display := scheduling.DeriveDisplayStatus(*current, now)
	return &display, nil
}

// Delete removes a session.
func (s *SessionService) Delete(ctx context.Context, actor models.Actor, id string) error {
	current, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return internalError(err, "failed to delete session")
	}
	s.notifier.notify(ctx, events.SessionDeleted, *current, actor.UserID)
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionSessionDelete, "session", id, nil)
	return nil
}

func (s *SessionService) load(ctx context.Context, actor models.Actor, id string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, internalError(err, "failed to load session")
	}
	if !actor.CanActFor(session.TrainerID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another trainer")
	}
	return session, nil
}

// resolveTrainer loads the trainer a booking is for. Trainers may only
// book for themselves and default to themselves when none is given.
func (s *SessionService) resolveTrainer(ctx context.Context, actor models.Actor, trainerID string) (*models.User, error) {
	if !actor.IsAdmin() {
		if trainerID == "" {
			trainerID = actor.UserID
		}
		if trainerID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "trainers can only book their own sessions")
		}
	}
	if trainerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "trainer is required")
	}
	trainer, err := s.users.FindByID(ctx, trainerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "trainer not found")
		}
		return nil, internalError(err, "failed to load trainer")
	}
	if trainer.Role != models.RoleTrainer || !trainer.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sessions can only be assigned to active trainers")
	}
	return trainer, nil
}

// gate rejects drafts on days the trainer does not work and, when window
// enforcement is on, drafts that spill outside the day's window.
func (s *SessionService) gate(d scheduling.Draft, avails []models.Availability) error {
	avail, found := scheduling.FindAvailability(d.TrainerID, d.Date, avails)
	if !found {
		s.metrics.RecordBookingRejected("no_availability")
		return appErrors.Clone(appErrors.ErrNoAvailability, fmt.Sprintf("trainer is not available on %s", models.WeekdayOf(d.Date)))
	}
	if s.opts.EnforceWindow && !scheduling.WithinWindow(avail, d) {
		s.metrics.RecordBookingRejected("outside_window")
		return appErrors.Clone(appErrors.ErrOutsideWindow, fmt.Sprintf("session must fall between %s and %s on %s", avail.StartTime, avail.EndTime, avail.Day))
	}
	return nil
}

func (s *SessionService) writeError(err error, message string) error {
	var conflict *models.SessionConflictError
	if errors.As(err, &conflict) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return internalError(err, message)
}

// sessionNotifier fans a session mutation out to the report cache and the
// event bus. Neither failure affects the write that triggered it.
type sessionNotifier struct {
	cache   *CacheService
	events  events.Publisher
	metrics *MetricsService
	logger  *zap.Logger
}

func (n sessionNotifier) notify(ctx context.Context, kind events.Kind, session models.Session, actorID string) {
	n.cache.InvalidateReports(ctx)
	n.publish(ctx, kind, session, actorID)
}

func (n sessionNotifier) publish(ctx context.Context, kind events.Kind, session models.Session, actorID string) {
	if n.events == nil {
		return
	}
	err := n.events.PublishSession(ctx, kind, session, actorID)
	n.metrics.RecordEvent(string(kind), err)
	if err != nil {
		n.logger.Warn("failed to publish session event",
			zap.String("kind", string(kind)),
			zap.String("session_id", session.ID),
			zap.Error(err))
	}
}
