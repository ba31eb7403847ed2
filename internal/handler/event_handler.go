package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/event-invitations/internal/calendar"
	"github.com/prohmpiriya/event-invitations/internal/dto"
	"github.com/prohmpiriya/event-invitations/internal/service"
	"github.com/prohmpiriya/event-invitations/pkg/response"
	"github.com/prohmpiriya/event-invitations/pkg/telemetry"
)

// EventHandler handles event HTTP requests
type EventHandler struct {
	eventService service.EventService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// Create handles event creation
// POST /api/v1/events
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	ctx, span := telemetry.StartSpan(c.Request.Context(), "events.create")
	result, err := h.eventService.CreateEvent(ctx, principalFrom(c), &req)
	telemetry.EndSpan(span, err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(result))
}

// List handles listing every event visible to the caller
// GET /api/v1/events
func (h *EventHandler) List(c *gin.Context) {
	result, err := h.eventService.ListEvents(c.Request.Context(), principalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(result, len(result), ""))
}

// GetByID handles retrieving one event
// GET /api/v1/events/:id
func (h *EventHandler) GetByID(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "events.get")
	telemetry.SetSpanAttributes(ctx, telemetry.EventIDAttr(c.Param("id")))
	result, err := h.eventService.GetEvent(ctx, principalFrom(c), c.Param("id"))
	telemetry.EndSpan(span, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(result))
}

// Update handles partial updates
// PATCH /api/v1/events/:id
func (h *EventHandler) Update(c *gin.Context) {
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	ctx, span := telemetry.StartSpan(c.Request.Context(), "events.update")
	result, err := h.eventService.UpdateEvent(ctx, principalFrom(c), c.Param("id"), &req)
	telemetry.EndSpan(span, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(result))
}

// Delete handles event deletion
// DELETE /api/v1/events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.eventService.DeleteEvent(c.Request.Context(), principalFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage(nil, "Event deleted successfully"))
}

// AddInvitee handles inviting an email
// POST /api/v1/events/:id/invitees
func (h *EventHandler) AddInvitee(c *gin.Context) {
	var req dto.AddInviteeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	ctx, span := telemetry.StartSpan(c.Request.Context(), "events.invitees.add")
	result, err := h.eventService.AddInvitee(ctx, principalFrom(c), c.Param("id"), req.Email)
	telemetry.EndSpan(span, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(result))
}

// RemoveInvitee handles uninviting an email
// DELETE /api/v1/events/:id/invitees/:email
func (h *EventHandler) RemoveInvitee(c *gin.Context) {
	result, err := h.eventService.RemoveInvitee(c.Request.Context(), principalFrom(c), c.Param("id"), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(result))
}

// AddPlan appends a plan line
// POST /api/v1/events/:id/plans
func (h *EventHandler) AddPlan(c *gin.Context) {
	var req dto.AddPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	result, err := h.eventService.AddPlan(c.Request.Context(), principalFrom(c), c.Param("id"), req.Plan)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(result))
}

// Calendar serves the event as an .ics invitation
// GET /api/v1/events/:id/calendar.ics
func (h *EventHandler) Calendar(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.eventService.ExportCalendar(c.Request.Context(), principalFrom(c), c.Param("id"), &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="event-`+c.Param("id")+`.ics"`)
	c.Data(http.StatusOK, calendar.ContentType, buf.Bytes())
}
