package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/testprep-service/internal/services"
	"github.com/SAP-F-2025/testprep-service/internal/utils"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

// ErrorResponse is the wire shape of every handler error
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse is the wire shape of mutations that return no body
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the logger and response helpers shared by every
// handler in this package.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...interface{}) {
	utils.FromContext(c.Request.Context()).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...interface{}) {
	args = append(args, "error", err)
	utils.FromContext(c.Request.Context()).Error(msg, args...)
}

// parseIDParam reads a numeric path parameter; on failure it writes a 400
// and returns 0, so callers bail out on a zero return.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Invalid %s parameter", name),
		})
		return 0
	}
	return uint(id)
}

// requireUserID pulls the authenticated user out of the context set by the
// auth middleware.
func (h *BaseHandler) requireUserID(c *gin.Context) (string, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}

// parsePagination reads page/size query parameters and converts them to
// limit/offset. Size is clamped to 100.
func parsePagination(c *gin.Context) (limit, offset int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		page = 0
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return size, page * size
}

// parseUintQuery parses a numeric query value, returning 0 when invalid.
func parseUintQuery(raw string) uint {
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

// handleServiceError maps the service error taxonomy onto HTTP statuses:
// validation 400, permission 403, not found 404, state conflicts 409,
// attempt limit and cooldown 429, business rules 422, the rest 500.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	var cooldownError *services.CooldownError
	if errors.As(err, &cooldownError) {
		retryAfter := int(cooldownError.RemainingTime.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Message: "Cooldown period has not elapsed",
			Details: map[string]interface{}{
				"test_id":                 cooldownError.TestID,
				"remaining_seconds":       retryAfter,
				"remaining_time_readable": cooldownError.RemainingTime.String(),
			},
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule": businessRuleError.Rule,
			},
		})
		return
	}

	switch {
	case services.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrNotEnrolled):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Not enrolled in this course",
		})
	case errors.Is(err, services.ErrAttemptLimitExceeded):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Message: "Maximum attempts exceeded",
		})
	case services.IsInvalidStateError(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: err.Error(),
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
