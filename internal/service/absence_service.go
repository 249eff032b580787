package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/trainersamay-api/internal/events"
	"github.com/noah-isme/trainersamay-api/internal/models"
	"github.com/noah-isme/trainersamay-api/internal/scheduling"
	"github.com/noah-isme/trainersamay-api/pkg/jobs"
)

const absenceSweepJob = "absence.sweep"

type absenceRepository interface {
	ListScheduledBefore(ctx context.Context, cutoff time.Time) ([]models.Session, error)
	MarkAbsent(ctx context.Context, ids []string, at time.Time) ([]string, error)
}

// AbsenceServiceConfig tunes the sweeper.
type AbsenceServiceConfig struct {
	Interval   time.Duration
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// SweepResult reports one sweep.
type SweepResult struct {
	Checked int       `json:"checked"`
	Marked  int       `json:"marked"`
	RanAt   time.Time `json:"ranAt"`
}

// AbsenceService persists Absent for Scheduled sessions nobody started
// before their grace cutoff.
type AbsenceService struct {
	repo     absenceRepository
	notifier sessionNotifier
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      AbsenceServiceConfig
	now      func() time.Time
	queue    *jobs.Queue
}

// NewAbsenceService constructs the sweeper.
func NewAbsenceService(repo absenceRepository, cache *CacheService, publisher events.Publisher, metrics *MetricsService, logger *zap.Logger, cfg AbsenceServiceConfig) *AbsenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	return &AbsenceService{
		repo:     repo,
		notifier: sessionNotifier{cache: cache, events: publisher, metrics: metrics, logger: logger},
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Sweep runs one pass.
func (s *AbsenceService) Sweep(ctx context.Context) (SweepResult, error) {
	started := time.Now()
	now := s.now().UTC()
	result := SweepResult{RanAt: now}

	candidates, err := s.repo.ListScheduledBefore(ctx, now)
	if err != nil {
		s.metrics.ObserveSweep(0, err, time.Since(started))
		return result, fmt.Errorf("load scheduled sessions: %w", err)
	}
	result.Checked = len(candidates)

	due := make(map[string]models.Session, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, sess := range candidates {
		if scheduling.ShouldPromoteAbsent(sess, now) {
			due[sess.ID] = sess
			ids = append(ids, sess.ID)
		}
	}
	if len(ids) == 0 {
		s.metrics.ObserveSweep(0, nil, time.Since(started))
		return result, nil
	}

	marked, err := s.repo.MarkAbsent(ctx, ids, now)
	if err != nil {
		s.metrics.ObserveSweep(0, err, time.Since(started))
		return result, fmt.Errorf("mark sessions absent: %w", err)
	}
	result.Marked = len(marked)
	s.metrics.ObserveSweep(result.Marked, nil, time.Since(started))
	if result.Marked == 0 {
		return result, nil
	}

	s.notifier.cache.InvalidateReports(ctx)
	for _, id := range marked {
		sess, ok := due[id]
		if !ok {
			continue
		}
		sess.Status = models.SessionAbsent
		s.notifier.publish(ctx, events.SessionAbsent, sess, "")
	}

	s.logger.Info("absence sweep completed",
		zap.Int("checked", result.Checked),
		zap.Int("marked", result.Marked))
	return result, nil
}

// Start runs Sweep on the configured interval until ctx is cancelled.
func (s *AbsenceService) Start(ctx context.Context) {
	s.queue = jobs.NewQueue("absence-sweeper", func(ctx context.Context, _ jobs.Job) error {
		_, err := s.Sweep(ctx)
		return err
	}, jobs.QueueConfig{
		Workers:    s.cfg.Workers,
		MaxRetries: s.cfg.Retries,
		RetryDelay: s.cfg.RetryDelay,
		Logger:     s.logger,
	})
	s.queue.Start(ctx)

	go s.queue.Every(ctx, s.cfg.Interval, func(tick time.Time) jobs.Job {
		return jobs.Job{ID: fmt.Sprintf("sweep-%d", tick.Unix()), Type: absenceSweepJob, Enqueued: tick.UTC()}
	})
}

// Stop waits for in-flight sweeps to finish.
func (s *AbsenceService) Stop() {
	if s.queue != nil {
		s.queue.Stop()
	}
}
