package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/event-invitations/internal/auth"
	"github.com/prohmpiriya/event-invitations/internal/domain"
	"github.com/prohmpiriya/event-invitations/internal/service"
	"github.com/prohmpiriya/event-invitations/internal/storage"
	"github.com/prohmpiriya/event-invitations/pkg/logger"
	"github.com/prohmpiriya/event-invitations/pkg/middleware"
	"github.com/prohmpiriya/event-invitations/pkg/response"
)

// respondError maps service errors to envelope codes; anything unknown is logged and hidden
func respondError(c *gin.Context, err error) {
	var validation domain.ValidationErrors
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, response.ValidationFailed(validation.Details()))
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, response.Error(response.ErrCodePayloadTooLarge, "Upload exceeds the size limit"))
	case errors.Is(err, auth.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, response.Error(response.ErrCodeSessionExpired, "Session has expired"))
	case errors.Is(err, auth.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, response.Unauthorized("Authentication required"))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, response.Error(response.ErrCodeInvalidCredentials, "Invalid email or password"))
	case errors.Is(err, domain.ErrEventNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("User not found"))
	case errors.Is(err, storage.ErrObjectNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Media not found"))
	case errors.Is(err, domain.ErrNotInvited):
		c.JSON(http.StatusForbidden, response.Error(response.ErrCodeNotInvited, "You are not invited to this event"))
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Forbidden("Only the organizer can do this"))
	case errors.Is(err, domain.ErrRSVPFinal):
		c.JSON(http.StatusConflict, response.Conflict(response.ErrCodeRSVPFinal, "RSVP was already answered and cannot be changed"))
	case errors.Is(err, domain.ErrAlreadyInvited):
		c.JSON(http.StatusConflict, response.Conflict(response.ErrCodeDuplicateEntry, "User is already invited"))
	case errors.Is(err, domain.ErrEmailTaken):
		c.JSON(http.StatusConflict, response.Conflict(response.ErrCodeDuplicateEntry, "Email is already registered"))
	case errors.Is(err, domain.ErrInvalidRSVPStatus):
		c.JSON(http.StatusBadRequest, response.BadRequest("RSVP status must be accepted or declined"))
	default:
		logger.Get().WithContext(c.Request.Context()).Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, response.InternalError(""))
	}
}

// principalFrom rebuilds the session the JWT middleware stored on the context
func principalFrom(c *gin.Context) *auth.Principal {
	email, ok := middleware.GetEmail(c)
	if !ok {
		return nil
	}
	userID, _ := middleware.GetUserID(c)
	return &auth.Principal{
		UserID:    userID,
		Email:     email,
		TokenID:   middleware.GetTokenID(c),
		ExpiresAt: middleware.GetExpiresAt(c),
	}
}
