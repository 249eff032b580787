package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/trainersamay-api/internal/middleware"
	"github.com/noah-isme/trainersamay-api/internal/models"
	"github.com/noah-isme/trainersamay-api/internal/service"
	"github.com/noah-isme/trainersamay-api/pkg/response"
)

type reportService interface {
	Sessions(ctx context.Context, actor models.Actor, filter service.ReportFilter) ([]models.Session, error)
	Summary(ctx context.Context, actor models.Actor) (*models.ReportSummary, bool, error)
	Dashboard(ctx context.Context, actor models.Actor) (*models.DashboardStats, bool, error)
	Export(ctx context.Context, actor models.Actor, format models.ExportFormat, filter service.ReportFilter) (*models.ReportExport, error)
}

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

func reportFilter(c *gin.Context) service.ReportFilter {
	return service.ReportFilter{
		TrainerID:   strings.TrimSpace(c.Query("trainer")),
		Status:      models.SessionStatus(strings.TrimSpace(c.Query("status"))),
		SessionType: strings.TrimSpace(c.Query("sessionType")),
	}
}

// Sessions godoc
// @Summary Detailed session report
// @Description Newest first, with display status
// @Tags Reports
// @Produce json
// @Param trainer query string false "Trainer ID (admins)"
// @Param status query string false "Status"
// @Param sessionType query string false "Session type substring"
// @Success 200 {object} response.Envelope
// @Router /reports/sessions [get]
func (h *ReportHandler) Sessions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	sessions, err := h.service.Sessions(c.Request.Context(), actor, reportFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sessions)
}

// Summary godoc
// @Summary Attendance summary
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	summary, cacheHit, err := h.service.Summary(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Dashboard godoc
// @Summary Dashboard statistics
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	stats, cacheHit, err := h.service.Dashboard(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export detailed report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param trainer query string false "Trainer ID (admins)"
// @Param status query string false "Status"
// @Param sessionType query string false "Session type substring"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	format := models.ExportFormat(strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv"))))
	file, err := h.service.Export(c.Request.Context(), actor, format, reportFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
