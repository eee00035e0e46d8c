package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/schoolpd/assessment-service/internal/services"
	"github.com/schoolpd/assessment-service/internal/validator"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps list payloads with pagination metadata.
type SuccessResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total,omitempty"`
}

// BaseHandler carries the pieces every handler needs.
type BaseHandler struct {
	logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "path", c.FullPath(), "request_id", c.GetString("request_id"))
	h.logger.Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	h.logger.Error(msg, "error", err, "path", c.FullPath(), "request_id", c.GetString("request_id"))
}

// parseIDParam parses a uint path parameter, writing a 400 and returning 0
// on failure.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
		})
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// handleServiceError maps service errors onto HTTP status codes.
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
				"action": permissionError.Action,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Attempt not found"})
	case errors.Is(err, services.ErrAssessmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Assessment not found"})
	case errors.Is(err, services.ErrRuleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Assignment rule not found"})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "User not found"})
	case errors.Is(err, services.ErrNotAssigned):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Assessment is not assigned to you"})
	case errors.Is(err, services.ErrAttemptLimitExceeded):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Maximum attempts reached"})
	case errors.Is(err, services.ErrAttemptAlreadyClosed):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Attempt already submitted"})
	case errors.Is(err, services.ErrAttemptExpired):
		c.JSON(http.StatusGone, ErrorResponse{Message: "Attempt time has expired"})
	case errors.Is(err, services.ErrInvalidAssignmentRule):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Assignment rule must target a user, role, or campus"})
	case errors.Is(err, services.ErrUnansweredQuestionRefs):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Answers reference unknown questions"})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
