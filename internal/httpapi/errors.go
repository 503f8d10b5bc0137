package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hemocore/internal/core"
	"hemocore/pkg/domain"
)

// writeError maps service errors onto structured HTTP responses. Internal
// details never reach the client; they are logged instead.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		validation   core.ValidationError
		notFound     core.NotFoundError
		state        core.StateError
		unauthorized core.UnauthorizedError
		insufficient core.InsufficientInventoryError
		violation    domain.RuleViolationError
	)
	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":        "insufficient_inventory",
			"message":     insufficient.Error(),
			"blood_group": insufficient.BloodGroup,
			"requested":   insufficient.Requested,
			"available":   insufficient.Available,
			"shortfall":   insufficient.Shortfall(),
		})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_request",
			"message": validation.Error(),
			"field":   validation.Field,
		})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": notFound.Error(),
		})
	case errors.As(err, &state):
		c.JSON(http.StatusConflict, gin.H{
			"code":    state.Code,
			"message": state.Error(),
		})
	case errors.As(err, &unauthorized):
		c.JSON(http.StatusForbidden, gin.H{
			"code":    "forbidden",
			"message": unauthorized.Error(),
		})
	case errors.As(err, &violation):
		c.JSON(http.StatusConflict, gin.H{
			"code":    "rule_violation",
			"message": violation.Error(),
		})
	default:
		s.log.WithFields(logrus.Fields{
			"path":  c.FullPath(),
			"error": err.Error(),
		}).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal",
			"message": "internal error",
		})
	}
}
