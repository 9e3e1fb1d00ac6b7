package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/submission-service/internal/services"
	"github.com/SAP-F-2025/submission-service/internal/utils"
	"github.com/SAP-F-2025/submission-service/internal/validator"
)

type UserHandler struct {
	BaseHandler
	userService services.UserService
	auth        *JWTAuthMiddleware
}

func NewUserHandler(userService services.UserService, auth *JWTAuthMiddleware, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userService: userService,
		auth:        auth,
	}
}

// Register creates a user account. Accounts default to the submitter role;
// elevation is a separate reviewer-only operation.
func (h *UserHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "Invalid request body", Details: err.Error()})
		return
	}

	h.LogRequest(c, "Registering user", "username", req.Username)

	user, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to register user")
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login exchanges credentials for a bearer token.
func (h *UserHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "Invalid request body", Details: err.Error()})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to authenticate")
		return
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		h.LogError(c, err, "Failed to issue token", "username", user.Username)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// GetMe returns the acting user's account.
func (h *UserHandler) GetMe(c *gin.Context) {
	actor, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, actor)
}

// UpdateRole changes another user's role; reviewer-only.
func (h *UserHandler) UpdateRole(c *gin.Context) {
	actor, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	username := c.Param("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "username parameter is required"})
		return
	}

	var req validator.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "Invalid request body", Details: err.Error()})
		return
	}

	h.LogRequest(c, "Updating user role", "username", username, "role", req.Role, "actor", actor.Username)

	if err := h.userService.UpdateRole(c.Request.Context(), username, req.Role, actor); err != nil {
		h.handleServiceError(c, err, "Failed to update user role")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "role updated"})
}
