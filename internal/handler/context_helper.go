package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/trainersamay-api/internal/middleware"
	"github.com/noah-isme/trainersamay-api/internal/models"
	appErrors "github.com/noah-isme/trainersamay-api/pkg/errors"
	"github.com/noah-isme/trainersamay-api/pkg/response"
)

// currentActor returns the caller or writes 401 when the route is reached
// without authentication.
func currentActor(c *gin.Context) (models.Actor, bool) {
	if _, ok := middleware.Claims(c); !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return middleware.Actor(c), true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}

// parseTimeQuery accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be YYYY-MM-DD or RFC 3339")
	}
	return &t, nil
}
