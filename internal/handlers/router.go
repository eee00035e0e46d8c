package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schoolpd/assessment-service/internal/config"
	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
	"github.com/schoolpd/assessment-service/internal/services"
)

type HandlerManager struct {
	assignmentHandler *AssignmentHandler
	attemptHandler    *AttemptHandler
	analyticsHandler  *AnalyticsHandler
	authMiddleware    *CasdoorAuthMiddleware

	serviceManager services.ServiceManager
	logger         *slog.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger *slog.Logger,
	casdoorConfig config.CasdoorSettings,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		assignmentHandler: NewAssignmentHandler(serviceManager.Resolver(), serviceManager.Rule(), logger),
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), logger),
		analyticsHandler:  NewAnalyticsHandler(serviceManager.Analytics(), serviceManager.Export(), logger),
		authMiddleware:    authMiddleware,
		serviceManager:    serviceManager,
		logger:            logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Assigned-work view for the authenticated user
		assignments := v1.Group("/assignments")
		{
			assignments.GET("/me", hm.assignmentHandler.GetMyAssignments)
		}

		// Rule management - admins only
		rules := v1.Group("/assignment-rules")
		rules.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
		{
			rules.POST("", hm.assignmentHandler.CreateRule)
			rules.GET("", hm.assignmentHandler.ListRules)
			rules.DELETE("/:id", hm.assignmentHandler.DeleteRule)
		}

		// Attempt lifecycle
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.PUT("/:id/progress", hm.attemptHandler.SaveProgress)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.GET("/:id/time-remaining", hm.attemptHandler.GetTimeRemaining)
		}

		// Analytics - principals see their campus, admins see everything.
		// Per-user views also allow self; the service enforces that.
		analytics := v1.Group("/analytics")
		{
			analytics.GET("/users/:id", hm.analyticsHandler.GetUserAnalytics)
			analytics.GET("/campuses/:id",
				hm.authMiddleware.RequireRoleMiddleware(models.RolePrincipal, models.RoleAdmin),
				hm.analyticsHandler.GetCampusAnalytics)
			analytics.GET("/campuses/:id/export",
				hm.authMiddleware.RequireRoleMiddleware(models.RolePrincipal, models.RoleAdmin),
				hm.analyticsHandler.ExportCampusAnalytics)
		}
	}
}

// HealthCheck reports service liveness and dependency health.
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	status := http.StatusOK
	health := gin.H{
		"status":    "healthy",
		"service":   "assessment-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		health["status"] = "unhealthy"
		health["error"] = err.Error()
	}

	c.JSON(status, health)
}
