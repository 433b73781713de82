package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/rail-booking/internal/domain"
	"github.com/prohmpiriya/rail-booking/pkg/logger"
	"github.com/prohmpiriya/rail-booking/pkg/response"
	"go.uber.org/zap"
)

// handleError maps workflow errors onto HTTP responses. Validation
// failures carry their per-field messages.
func handleError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case domain.IsNotFoundError(err):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrPaymentRejected):
		respondValidation(c, "PAYMENT_REJECTED", err)
	case errors.As(err, &verr), domain.IsValidationError(err):
		respondValidation(c, "VALIDATION_FAILED", err)
	case errors.Is(err, domain.ErrLimitExceeded):
		response.Error(c, http.StatusConflict, "LIMIT_EXCEEDED", err.Error())
	case errors.Is(err, domain.ErrInvariantViolation):
		response.Error(c, http.StatusConflict, "MIN_PASSENGERS", err.Error())
	case errors.Is(err, domain.ErrSeatUnavailable):
		response.Error(c, http.StatusConflict, "SEAT_UNAVAILABLE", err.Error())
	case errors.Is(err, domain.ErrClassNotOffered):
		response.Error(c, http.StatusConflict, "CLASS_NOT_OFFERED", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_STEP", err.Error())
	case domain.IsConflictError(err):
		response.Error(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domain.ErrBusy):
		response.Error(c, http.StatusLocked, "PAYMENT_PROCESSING", err.Error())
	case errors.Is(err, domain.ErrWorkflowClosed):
		response.Error(c, http.StatusGone, "WORKFLOW_CLOSED", err.Error())
	default:
		logger.Get().ErrorContext(c.Request.Context(), "unhandled workflow error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		response.InternalError(c)
	}
}

func respondValidation(c *gin.Context, code string, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		response.FieldError(c, http.StatusUnprocessableEntity, code, verr.Error(), verr.FieldMap())
		return
	}
	response.Error(c, http.StatusUnprocessableEntity, code, err.Error())
}
