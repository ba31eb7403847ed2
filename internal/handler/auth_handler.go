package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/event-invitations/internal/dto"
	"github.com/prohmpiriya/event-invitations/internal/service"
	"github.com/prohmpiriya/event-invitations/pkg/middleware"
	"github.com/prohmpiriya/event-invitations/pkg/response"
	"github.com/prohmpiriya/event-invitations/pkg/telemetry"
)

// AuthHandler handles registration and sessions
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles account creation
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	ctx, span := telemetry.StartSpan(c.Request.Context(), "auth.register")
	result, err := h.authService.Register(ctx, &req)
	telemetry.EndSpan(span, err)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetAuditMetadata(c, map[string]interface{}{"user_id": result.User.ID})
	c.JSON(http.StatusCreated, response.Success(result))
}

// Login handles credential exchange
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	ctx, span := telemetry.StartSpan(c.Request.Context(), "auth.login")
	result, err := h.authService.Login(ctx, &req)
	telemetry.EndSpan(span, err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// Logout revokes the current token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), principalFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage(nil, "Signed out"))
}

// Me returns the signed-in user
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	result, err := h.authService.Me(c.Request.Context(), principalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(result))
}
