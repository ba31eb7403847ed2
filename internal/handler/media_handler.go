package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/event-invitations/internal/service"
	"github.com/prohmpiriya/event-invitations/pkg/response"
	"github.com/prohmpiriya/event-invitations/pkg/telemetry"
)

// MediaHandler handles uploads and downloads of event attachments
type MediaHandler struct {
	mediaService   service.MediaService
	maxUploadBytes int64
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(mediaService service.MediaService, maxUploadBytes int64) *MediaHandler {
	return &MediaHandler{mediaService: mediaService, maxUploadBytes: maxUploadBytes}
}

// Upload stores a multipart "file" field
// POST /api/v1/events/:id/media/:kind
func (h *MediaHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, response.BadRequest("multipart field 'file' is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	ctx, span := telemetry.StartSpan(c.Request.Context(), "media.upload")
	telemetry.SetSpanAttributes(ctx, telemetry.EventIDAttr(c.Param("id")), telemetry.MediaKindAttr(c.Param("kind")))
	result, err := h.mediaService.Upload(ctx, principalFrom(c), c.Param("id"), c.Param("kind"), header.Filename, file)
	telemetry.EndSpan(span, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(result))
}

// Download streams a stored object
// GET /api/v1/media/*path
func (h *MediaHandler) Download(c *gin.Context) {
	obj, err := h.mediaService.Open(c.Request.Context(), principalFrom(c), c.Param("path"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer obj.Close()

	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj, nil)
}
