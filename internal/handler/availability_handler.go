package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/trainersamay-api/internal/models"
	"github.com/noah-isme/trainersamay-api/pkg/response"
)

type availabilityService interface {
	List(ctx context.Context, actor models.Actor) ([]models.Availability, error)
	Trainers(ctx context.Context) ([]models.TrainerAvailability, error)
	Get(ctx context.Context, actor models.Actor, trainerID string) ([]models.Availability, error)
	Replace(ctx context.Context, actor models.Actor, trainerID string, req models.ReplaceAvailabilityRequest) ([]models.Availability, error)
	Check(ctx context.Context, actor models.Actor, req models.AvailabilityCheckRequest) (*models.AvailabilityCheckResult, error)
}

// AvailabilityHandler serves weekly trainer availability.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(svc availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// List godoc
// @Summary List availabilities
// @Description All availabilities for admins, own records for trainers
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /availabilities [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Trainers godoc
// @Summary Trainers with availability
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /availabilities/trainers [get]
func (h *AvailabilityHandler) Trainers(c *gin.Context) {
	items, err := h.service.Trainers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Get godoc
// @Summary Trainer availability
// @Tags Availability
// @Produce json
// @Param id path string true "Trainer ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /availabilities/{id} [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	items, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Replace godoc
// @Summary Replace weekly availability
// @Description Replaces the trainer's whole weekly set. Accepts an array or {"availabilities": [...]}.
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Trainer ID"
// @Param payload body models.ReplaceAvailabilityRequest true "Weekly availability"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /availabilities/{id} [put]
func (h *AvailabilityHandler) Replace(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req models.ReplaceAvailabilityRequest
	if !bindJSON(c, &req, "invalid availability payload") {
		return
	}
	items, err := h.service.Replace(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Check godoc
// @Summary Check a session draft
// @Description Finds the trainer's availability for the day and any overlapping booking
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body models.AvailabilityCheckRequest true "Session draft"
// @Success 200 {object} response.Envelope
// @Router /availabilities/check [post]
func (h *AvailabilityHandler) Check(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req models.AvailabilityCheckRequest
	if !bindJSON(c, &req, "invalid draft payload") {
		return
	}
	result, err := h.service.Check(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
