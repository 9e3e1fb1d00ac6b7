package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/submission-service/internal/models"
	"github.com/SAP-F-2025/submission-service/internal/services"
	"github.com/SAP-F-2025/submission-service/internal/utils"
)

type HandlerManager struct {
	submissionHandler *SubmissionHandler
	userHandler       *UserHandler
	authMiddleware    *JWTAuthMiddleware
	serviceManager    services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	authMiddleware *JWTAuthMiddleware,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		submissionHandler: NewSubmissionHandler(serviceManager.Submission(), logger),
		userHandler:       NewUserHandler(serviceManager.User(), authMiddleware, logger),
		authMiddleware:    authMiddleware,
		serviceManager:    serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	{
		auth.POST("/register", hm.userHandler.Register)
		auth.POST("/login", hm.userHandler.Login)
	}

	// Authenticated routes
	authed := v1.Group("")
	authed.Use(hm.authMiddleware.AuthMiddleware())
	{
		submissions := authed.Group("/submissions")
		{
			submissions.POST("", hm.submissionHandler.CreateSubmission)
			submissions.GET("", hm.submissionHandler.ListSubmissions)
			submissions.GET("/export", hm.submissionHandler.ExportSubmissions)
			submissions.GET("/:id", hm.submissionHandler.GetSubmission)
			submissions.PUT("/:id", hm.submissionHandler.UpdateSubmission)
			submissions.PUT("/:id/status", hm.submissionHandler.UpdateSubmissionStatus)
			submissions.DELETE("/:id", hm.submissionHandler.DeleteSubmission)
			submissions.GET("/:id/attachment", hm.submissionHandler.DownloadAttachment)
		}

		users := authed.Group("/users")
		{
			users.GET("/me", hm.userHandler.GetMe)
			users.PUT("/:username/role", hm.authMiddleware.RequireRoleMiddleware(models.RoleReviewer), hm.userHandler.UpdateRole)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "submission-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
