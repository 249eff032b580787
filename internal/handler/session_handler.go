package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/trainersamay-api/internal/models"
	"github.com/noah-isme/trainersamay-api/pkg/response"
)

type sessionService interface {
	List(ctx context.Context, actor models.Actor, filter models.SessionFilter) ([]models.Session, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Session, error)
	Upcoming(ctx context.Context, actor models.Actor) (*models.Session, error)
	Create(ctx context.Context, actor models.Actor, req models.SessionRequest) ([]models.Session, error)
	Update(ctx context.Context, actor models.Actor, id string, req models.SessionRequest) (*models.Session, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id string, req models.StatusUpdateRequest) (*models.Session, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

// SessionHandler serves training session bookings.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(svc sessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// List godoc
// @Summary List sessions
// @Description Sessions in date order with display status. Trainers only see their own.
// @Tags Sessions
// @Produce json
// @Param trainer query string false "Trainer ID"
// @Param status query string false "Status"
// @Param from query string false "From (YYYY-MM-DD or RFC 3339)"
// @Param to query string false "To (YYYY-MM-DD or RFC 3339)"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	filter := models.SessionFilter{
		TrainerID: strings.TrimSpace(c.Query("trainer")),
		Status:    models.SessionStatus(strings.TrimSpace(c.Query("status"))),
	}
	var err error
	if filter.From, err = parseTimeQuery(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.To, err = parseTimeQuery(c, "to"); err != nil {
		response.Error(c, err)
		return
	}

	sessions, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sessions)
}

// Upcoming godoc
// @Summary Next scheduled session
// @Description Returns null data when nothing is scheduled
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/upcoming [get]
func (h *SessionHandler) Upcoming(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	next, err := h.service.Upcoming(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, next)
}

// Get godoc
// @Summary Get session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	session, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Create godoc
// @Summary Book session
// @Description Books a session, or a weekly series when isRecurring is set
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body models.SessionRequest true "Session"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req models.SessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}

	created, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !req.IsRecurring && len(created) == 1 {
		response.Created(c, created[0])
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Edit session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body models.SessionRequest true "Session"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *SessionHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req models.SessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	session, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// UpdateStatus godoc
// @Summary Change session status
// @Description Applies a lifecycle transition
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body models.StatusUpdateRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/status [patch]
func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req models.StatusUpdateRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	session, err := h.service.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Delete godoc
// @Summary Delete session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
