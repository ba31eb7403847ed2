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

// InvitationHandler handles the caller's invitations and RSVPs
type InvitationHandler struct {
	invitationService service.InvitationService
	eventService      service.EventService
}

// NewInvitationHandler creates a new InvitationHandler
func NewInvitationHandler(invitationService service.InvitationService, eventService service.EventService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService, eventService: eventService}
}

// List handles the merged organizer and invitee listing
// GET /api/v1/invitations?sort=date|role
func (h *InvitationHandler) List(c *gin.Context) {
	var query dto.ListInvitationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	query.SetDefaults()

	result, err := h.invitationService.ListForUser(c.Request.Context(), principalFrom(c), query.Sort)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(result, len(result), query.Sort))
}

// ByOrganizer lists events the caller organizes
// GET /api/v1/invitations/organizer/:email/events
func (h *InvitationHandler) ByOrganizer(c *gin.Context) {
	result, err := h.eventService.ListByOrganizer(c.Request.Context(), principalFrom(c), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(result, len(result), ""))
}

// ByInvitee lists events the caller is invited to
// GET /api/v1/invitations/invitee/:email/events
func (h *InvitationHandler) ByInvitee(c *gin.Context) {
	result, err := h.eventService.ListByInvitee(c.Request.Context(), principalFrom(c), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(result, len(result), ""))
}

// Respond records the caller's RSVP
// PUT /api/v1/events/:id/rsvp
func (h *InvitationHandler) Respond(c *gin.Context) {
	var req dto.RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	ctx, span := telemetry.StartSpan(c.Request.Context(), "events.rsvp")
	telemetry.SetSpanAttributes(ctx, telemetry.EventIDAttr(c.Param("id")), telemetry.RSVPStatusAttr(req.Status))
	result, err := h.invitationService.Respond(ctx, principalFrom(c), c.Param("id"), req.Status)
	telemetry.EndSpan(span, err)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetAuditMetadata(c, map[string]interface{}{"status": result.Status, "changed": result.Changed})
	c.JSON(http.StatusOK, response.Success(result))
}
