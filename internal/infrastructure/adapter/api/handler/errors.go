package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/api/dto"
)

// RetryAfterSeconds is advertised to clients refused by a saturated queue
const RetryAfterSeconds = 1

// StatusFor maps a domain error onto an HTTP status code
func StatusFor(err error) int {
	switch {
	case errs.IsValidationError(err),
		errors.Is(err, errs.ErrInvalidUserID),
		errors.Is(err, errs.ErrInvalidAmount),
		errors.Is(err, errs.ErrInvalidAddress),
		errors.Is(err, errs.ErrInvalidKind),
		errors.Is(err, errs.ErrInvalidDomain),
		errors.Is(err, errs.ErrSelfTransfer),
		errors.Is(err, errs.ErrAddressNotLinked):
		return http.StatusBadRequest
	case errs.IsInsufficientFundsError(err):
		return http.StatusBadRequest
	case errs.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrDuplicateAccount),
		errors.Is(err, errs.ErrAddressInUse),
		errors.Is(err, errs.ErrDuplicateExternalRef):
		return http.StatusConflict
	case errors.Is(err, errs.ErrQueueSaturated),
		errors.Is(err, errs.ErrQueueClosed),
		errors.Is(err, errs.ErrExternalUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error response. Server-side failures are logged and their
// details are not exposed.
func respondError(c *gin.Context, logger coreport.Logger, err error) {
	status := StatusFor(err)
	resp := dto.ErrorResponse{Code: errs.ErrorCode(err), Message: err.Error()}

	var validation *errs.ValidationError
	if errors.As(err, &validation) {
		resp.Field = validation.Field
	}

	if errors.Is(err, errs.ErrQueueSaturated) {
		c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request failed", map[string]any{
			"path":  c.FullPath(),
			"error": err.Error(),
		})
		resp.Message = "Internal server error"
	}

	_ = c.Error(err)
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Code:    errs.CodeValidation,
		Message: message,
	})
}

// parseUserID reads the :userId path parameter
func parseUserID(c *gin.Context) (uint64, bool) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    errs.ErrorCode(errs.ErrInvalidUserID),
			Message: "Invalid user ID format",
		})
		return 0, false
	}
	return userID, true
}

// parseLimit reads ?limit=, falling back when it is absent
func parseLimit(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		badRequest(c, "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}
