package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/trainersamay-api/internal/models"
	appErrors "github.com/noah-isme/trainersamay-api/pkg/errors"
	"github.com/noah-isme/trainersamay-api/pkg/export"
)

const absentNote = "Trainer was absent."

type trainerLister interface {
	ListTrainers(ctx context.Context) ([]models.User, error)
}

type datasetRenderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// ReportFilter narrows report listings. SessionType is a case-insensitive
// substring match.
type ReportFilter struct {
	TrainerID   string
	Status      models.SessionStatus
	SessionType string
}

// ReportServiceConfig tunes report generation.
type ReportServiceConfig struct {
	CacheTTL time.Duration
	Location *time.Location
}

// ReportService builds attendance reports over display statuses.
type ReportService struct {
	sessions  sessionLister
	trainers  trainerLister
	cache     *CacheService
	renderers map[models.ExportFormat]datasetRenderer
	logger    *zap.Logger
	cfg       ReportServiceConfig
	now       func() time.Time
}

// NewReportService constructs a ReportService with CSV and PDF renderers.
func NewReportService(sessions sessionLister, trainers trainerLister, cache *CacheService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ReportService{
		sessions: sessions,
		trainers: trainers,
		cache:    cache,
		renderers: map[models.ExportFormat]datasetRenderer{
			models.ExportCSV: export.NewCSVExporter(),
			models.ExportPDF: export.NewPDFExporter(),
		},
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

func (s *ReportService) clock() time.Time {
	return s.now().In(s.cfg.Location)
}

// cacheTTL never lets a cached aggregate outlive the current local day.
func (s *ReportService) cacheTTL() time.Duration {
	now := s.clock()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	if left := midnight.Sub(now); left < s.cfg.CacheTTL {
		return left
	}
	return s.cfg.CacheTTL
}

// Sessions lists sessions newest first with display statuses.
func (s *ReportService) Sessions(ctx context.Context, actor models.Actor, filter ReportFilter) ([]models.Session, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}
	query := models.SessionFilter{
		TrainerID:   filter.TrainerID,
		Status:      filter.Status,
		SessionType: filter.SessionType,
		Newest:      true,
	}
	if !actor.IsAdmin() {
		query.TrainerID = actor.UserID
	}
	return listDisplay(ctx, s.sessions, query, s.clock())
}

// Summary counts the caller's sessions by display status. The boolean
// reports whether the result was served from cache.
func (s *ReportService) Summary(ctx context.Context, actor models.Actor) (*models.ReportSummary, bool, error) {
	key := "reports:summary:" + scopeKey(actor)
	var cached models.ReportSummary
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	sessions, err := s.Sessions(ctx, actor, ReportFilter{})
	if err != nil {
		return nil, false, err
	}
	summary := Summarize(sessions)
	s.cache.Set(ctx, key, summary, s.cacheTTL())
	return &summary, false, nil
}

// Summarize aggregates display statuses. Cancelled sessions are left out
// of the completion rate denominator.
func Summarize(sessions []models.Session) models.ReportSummary {
	summary := models.ReportSummary{Total: len(sessions)}
	for _, sess := range sessions {
		switch sess.Status {
		case models.SessionCompleted:
			summary.Completed++
		case models.SessionCancelled:
			summary.Cancelled++
		case models.SessionAbsent:
			summary.Absent++
		case models.SessionScheduled:
			summary.Scheduled++
		case models.SessionStarted:
			summary.Started++
		}
	}
	if relevant := summary.Total - summary.Cancelled; relevant > 0 {
		summary.CompletionRate = float64(summary.Completed) / float64(relevant) * 100
	}
	return summary
}

// Dashboard backs the dashboard cards.
func (s *ReportService) Dashboard(ctx context.Context, actor models.Actor) (*models.DashboardStats, bool, error) {
	key := "reports:dashboard:" + scopeKey(actor)
	var cached models.DashboardStats
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	sessions, err := s.Sessions(ctx, actor, ReportFilter{})
	if err != nil {
		return nil, false, err
	}
	trainers, err := s.trainers.ListTrainers(ctx)
	if err != nil {
		return nil, false, internalError(err, "failed to list trainers")
	}

	stats := models.DashboardStats{TotalSessions: len(sessions), ActiveTrainers: len(trainers)}
	completedMinutes := 0
	for _, sess := range sessions {
		switch sess.Status {
		case models.SessionCompleted:
			stats.Completed++
			completedMinutes += sess.Duration
		case models.SessionScheduled:
			stats.Scheduled++
		}
	}
	stats.HoursTrained = int(math.Round(float64(completedMinutes) / 60))

	s.cache.Set(ctx, key, stats, s.cacheTTL())
	return &stats, false, nil
}

// Export renders the detailed report as CSV or PDF.
func (s *ReportService) Export(ctx context.Context, actor models.Actor, format models.ExportFormat, filter ReportFilter) (*models.ReportExport, error) {
	if format == "" {
		format = models.ExportCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	sessions, err := s.Sessions(ctx, actor, filter)
	if err != nil {
		return nil, err
	}

	body, err := renderer.Render(s.dataset(actor, sessions))
	if err != nil {
		return nil, internalError(err, "failed to render report")
	}
	return &models.ReportExport{
		Filename:    fmt.Sprintf("trainersamay-detailed-report-%s.%s", s.now().UTC().Format("2006-01-02"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *ReportService) dataset(actor models.Actor, sessions []models.Session) export.Dataset {
	withTrainer := actor.IsAdmin()
	headers := []string{"Date", "Time"}
	if withTrainer {
		headers = append(headers, "Trainer")
	}
	headers = append(headers, "Batch", "Session Type", "Status", "Duration", "Location", "Notes")

	data := export.Dataset{Title: "TrainerSamay Detailed Report", Headers: headers}
	for _, sess := range sessions {
		local := sess.Date.In(s.cfg.Location)
		notes := sess.Notes
		if sess.Status == models.SessionAbsent {
			notes = absentNote
		}
		row := []string{local.Format("2006-01-02"), local.Format("3:04 PM")}
		if withTrainer {
			row = append(row, sess.TrainerName)
		}
		row = append(row,
			sess.Batch,
			string(sess.SessionType),
			string(sess.Status),
			strconv.Itoa(sess.Duration),
			sess.Location,
			notes,
		)
		data.Append(row...)
	}
	return data
}

func scopeKey(actor models.Actor) string {
	if actor.IsAdmin() {
		return "all"
	}
	return "trainer:" + actor.UserID
}
