package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
	"github.com/schoolpd/assessment-service/internal/services"
	"github.com/schoolpd/assessment-service/internal/validator"
)

// AssignmentHandler serves the resolved obligation list and the rule
// management endpoints.
type AssignmentHandler struct {
	BaseHandler
	resolver    services.AssignmentResolver
	ruleService services.RuleService
}

func NewAssignmentHandler(resolver services.AssignmentResolver, ruleService services.RuleService, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler: NewBaseHandler(logger),
		resolver:    resolver,
		ruleService: ruleService,
	}
}

// GetMyAssignments returns every assessment the caller is obligated to
// take, with attempt standing.
// @Summary List my assigned assessments
// @Tags assignments
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /assignments/me [get]
func (h *AssignmentHandler) GetMyAssignments(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	assignments, err := h.resolver.ResolveForUser(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: assignments, Total: int64(len(assignments))})
}

// CreateRule creates an assignment rule.
// @Summary Create an assignment rule
// @Tags assignment-rules
// @Accept json
// @Produce json
// @Param rule body validator.RuleCreateRequest true "Rule data"
// @Success 201 {object} services.RuleResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /assignment-rules [post]
func (h *AssignmentHandler) CreateRule(c *gin.Context) {
	h.LogRequest(c, "Creating assignment rule")

	var req validator.RuleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	rule, err := h.ruleService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// DeleteRule removes an assignment rule.
// @Summary Delete an assignment rule
// @Tags assignment-rules
// @Param id path uint true "Rule ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /assignment-rules/{id} [delete]
func (h *AssignmentHandler) DeleteRule(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	if err := h.ruleService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListRules lists assignment rules with optional filters.
// @Summary List assignment rules
// @Tags assignment-rules
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /assignment-rules [get]
func (h *AssignmentHandler) ListRules(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	filters := repositories.RuleFilters{
		Limit:  h.parseIntQuery(c, "limit", 50),
		Offset: h.parseIntQuery(c, "offset", 0),
	}
	if idStr := c.Query("assessment_id"); idStr != "" {
		if id := h.parseIntQuery(c, "assessment_id", 0); id > 0 {
			assessmentID := uint(id)
			filters.AssessmentID = &assessmentID
		}
	}
	if target := strings.TrimSpace(c.Query("user_id")); target != "" {
		filters.UserID = &target
	}
	if roleStr := c.Query("role"); roleStr != "" {
		role := models.UserRole(roleStr)
		filters.Role = &role
	}
	if campus := strings.TrimSpace(c.Query("campus_id")); campus != "" {
		filters.CampusID = &campus
	}

	rules, total, err := h.ruleService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: rules, Total: total})
}
