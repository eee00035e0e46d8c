package handlers

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
	"github.com/schoolpd/assessment-service/internal/services"
)

type AnalyticsHandler struct {
	BaseHandler
	analytics services.AnalyticsService
	export    services.ExportService
}

func NewAnalyticsHandler(analytics services.AnalyticsService, export services.ExportService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		BaseHandler: NewBaseHandler(logger),
		analytics:   analytics,
		export:      export,
	}
}

// GetUserAnalytics returns one member's completion and score rollup.
// @Summary Get user analytics
// @Tags analytics
// @Produce json
// @Param id path string true "User ID"
// @Param type query string false "Restrict figures to one assessment type"
// @Success 200 {object} repositories.UserAnalytics
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /analytics/users/{id} [get]
func (h *AnalyticsHandler) GetUserAnalytics(c *gin.Context) {
	subjectID := strings.TrimSpace(c.Param("id"))
	if subjectID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid user id"})
		return
	}

	callerID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	typeFilter, ok := parseTypeFilter(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid assessment type"})
		return
	}

	analytics, err := h.analytics.UserAnalytics(c.Request.Context(), subjectID, callerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if typeFilter != "" {
		narrowUserAnalytics(analytics, typeFilter)
	}
	roundUserAnalytics(analytics)
	c.JSON(http.StatusOK, analytics)
}

// GetCampusAnalytics returns a campus-wide rollup.
// @Summary Get campus analytics
// @Tags analytics
// @Produce json
// @Param id path string true "Campus ID"
// @Param type query string false "Restrict figures to one assessment type"
// @Success 200 {object} repositories.CampusAnalytics
// @Failure 403 {object} ErrorResponse
// @Router /analytics/campuses/{id} [get]
func (h *AnalyticsHandler) GetCampusAnalytics(c *gin.Context) {
	campusID := strings.TrimSpace(c.Param("id"))
	if campusID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid campus id"})
		return
	}

	callerID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	typeFilter, ok := parseTypeFilter(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid assessment type"})
		return
	}

	analytics, err := h.analytics.CampusAnalytics(c.Request.Context(), campusID, callerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if typeFilter != "" {
		narrowCampusAnalytics(analytics, typeFilter)
	}
	roundCampusAnalytics(analytics)
	c.JSON(http.StatusOK, analytics)
}

// ExportCampusAnalytics streams the campus rollup as an xlsx download.
// @Summary Export campus analytics
// @Tags analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Campus ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Router /analytics/campuses/{id}/export [get]
func (h *AnalyticsHandler) ExportCampusAnalytics(c *gin.Context) {
	campusID := strings.TrimSpace(c.Param("id"))
	if campusID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid campus id"})
		return
	}

	callerID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	h.LogRequest(c, "Exporting campus analytics", "campus_id", campusID)

	filename, content, err := h.export.ExportCampusAnalytics(c.Request.Context(), campusID, callerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		content)
}

// parseTypeFilter reads the optional ?type= query parameter. An empty value
// means no filtering; anything outside the known assessment types is rejected.
func parseTypeFilter(c *gin.Context) (models.AssessmentType, bool) {
	raw := strings.TrimSpace(c.Query("type"))
	if raw == "" {
		return "", true
	}
	t := models.AssessmentType(raw)
	if !t.Valid() {
		return "", false
	}
	return t, true
}

// narrowUserAnalytics replaces the rollup's top-level figures with the bucket
// for a single assessment type. A type with no required assessments yields a
// zeroed rollup with a nil average.
func narrowUserAnalytics(ua *repositories.UserAnalytics, t models.AssessmentType) {
	bucket := findBucket(ua.ByType, t)
	ua.RequiredCount = bucket.RequiredCount
	ua.SubmittedCount = bucket.SubmittedCount
	ua.CompletionPercent = bucket.CompletionPercent
	ua.AverageScore = bucket.AverageScore
	ua.ByType = []repositories.TypeBucket{bucket}
}

func narrowCampusAnalytics(ca *repositories.CampusAnalytics, t models.AssessmentType) {
	bucket := findBucket(ca.ByType, t)
	ca.RequiredTotal = bucket.RequiredCount
	ca.SubmittedTotal = bucket.SubmittedCount
	ca.CompletionPercent = bucket.CompletionPercent
	ca.AverageScore = bucket.AverageScore
	ca.ByType = []repositories.TypeBucket{bucket}
}

func findBucket(buckets []repositories.TypeBucket, t models.AssessmentType) repositories.TypeBucket {
	for _, bucket := range buckets {
		if bucket.Type == t {
			return bucket
		}
	}
	return repositories.TypeBucket{Type: t}
}

// Rounding happens only here, at the presentation boundary. The aggregates
// the services compute and cache stay exact.

func roundUserAnalytics(ua *repositories.UserAnalytics) {
	ua.CompletionPercent = round2(ua.CompletionPercent)
	ua.AverageScore = round2Ptr(ua.AverageScore)
	roundBuckets(ua.ByType)
}

func roundCampusAnalytics(ca *repositories.CampusAnalytics) {
	ca.CompletionPercent = round2(ca.CompletionPercent)
	ca.AverageScore = round2Ptr(ca.AverageScore)
	roundBuckets(ca.ByType)
}

func roundBuckets(buckets []repositories.TypeBucket) {
	for i := range buckets {
		buckets[i].CompletionPercent = round2(buckets[i].CompletionPercent)
		buckets[i].AverageScore = round2Ptr(buckets[i].AverageScore)
	}
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}

func round2Ptr(val *float64) *float64 {
	if val == nil {
		return nil
	}
	rounded := round2(*val)
	return &rounded
}
