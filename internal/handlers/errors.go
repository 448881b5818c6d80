package handlers

import (
	"errors"
	"net/http"

	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func statusForKind(err error) (int, bool) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, true
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, true
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, true
	default:
		return http.StatusInternalServerError, false
	}
}

// respondError writes a service error as {"error": message}. Errors without
// a known kind are logged and reported as a generic 500.
func respondError(c *gin.Context, logger zerolog.Logger, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		if status, ok := statusForKind(svcErr); ok {
			c.JSON(status, gin.H{"error": svcErr.Message})
			return
		}
	}

	logger.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
