package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/prohmpiriya/event-invitations/internal/auth"
	"github.com/prohmpiriya/event-invitations/internal/domain"
	"github.com/prohmpiriya/event-invitations/internal/dto"
	"github.com/prohmpiriya/event-invitations/internal/repository"
	"github.com/prohmpiriya/event-invitations/internal/storage"
	"github.com/prohmpiriya/event-invitations/pkg/telemetry"
)

// sniffLen matches the amount of data mimetype inspects by default
const sniffLen = 3072

// MediaURLPrefix is where stored objects are served
const MediaURLPrefix = "/api/v1/media/"

// MediaService handles event attachments
type MediaService interface {
	// Upload stores an attachment and records its path on the event; organizer only
	Upload(ctx context.Context, p *auth.Principal, eventID, kind, filename string, r io.Reader) (*dto.UploadMediaResponse, error)
	// Open streams an object to a caller who can view its event
	Open(ctx context.Context, p *auth.Principal, path string) (*storage.Object, error)
}

type mediaService struct {
	repo    repository.EventRepository
	store   storage.MediaStore
	loc     *time.Location
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewMediaService creates a new MediaService
func NewMediaService(repo repository.EventRepository, store storage.MediaStore, cfg *EventServiceConfig) MediaService {
	cfg = cfg.withDefaults()
	return &mediaService{repo: repo, store: store, loc: cfg.Location, metrics: cfg.Metrics, now: time.Now}
}

func (s *mediaService) Upload(ctx context.Context, p *auth.Principal, eventID, kind, filename string, r io.Reader) (*dto.UploadMediaResponse, error) {
	actor, err := p.CurrentUser(s.now())
	if err != nil {
		return nil, err
	}
	mediaKind, err := domain.ParseMediaKind(kind)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	if !event.IsOrganizer(actor) {
		return nil, domain.ErrForbidden
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if n == 0 {
		return nil, domain.NewValidationError("file", "is empty")
	}
	head = head[:n]
	mtype := mimetype.Detect(head)

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = mtype.Extension()
	}
	path := "events/" + event.ID + "/" + string(mediaKind) + "/" + uuid.New().String() + ext

	body := &countingReader{r: io.MultiReader(bytes.NewReader(head), r)}
	if err := s.store.Put(ctx, path, mtype.String(), body); err != nil {
		return nil, err
	}

	updated, err := s.repo.SetMedia(ctx, event.ID, mediaKind, path)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.MediaUploads.Inc(ctx, telemetry.MediaKindAttr(string(mediaKind)))
	}

	return &dto.UploadMediaResponse{
		Kind:        string(mediaKind),
		Path:        path,
		URL:         MediaURLPrefix + path,
		ContentType: mtype.String(),
		Size:        body.n,
		Event:       dto.NewEventResponse(updated, actor, s.loc),
	}, nil
}

func (s *mediaService) Open(ctx context.Context, p *auth.Principal, path string) (*storage.Object, error) {
	actor, err := p.CurrentUser(s.now())
	if err != nil {
		return nil, err
	}
	path = strings.TrimPrefix(path, "/")
	eventID, ok := eventIDFromPath(path)
	if !ok {
		return nil, storage.ErrObjectNotFound
	}

	// files of a deleted event are not served
	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, storage.ErrObjectNotFound
	}
	if !event.CanView(actor) {
		return nil, domain.ErrForbidden
	}
	return s.store.Open(ctx, path)
}

// eventIDFromPath extracts <id> from events/<id>/<kind>/<file>
func eventIDFromPath(path string) (string, bool) {
	parts := strings.Split(path, "/")
	if len(parts) != 4 || parts[0] != "events" || parts[1] == "" || parts[3] == "" {
		return "", false
	}
	if _, err := domain.ParseMediaKind(parts[2]); err != nil {
		return "", false
	}
	return parts[1], true
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
