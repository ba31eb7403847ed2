package service

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/event-invitations/internal/domain"
	"github.com/prohmpiriya/event-invitations/internal/dto"
	"github.com/prohmpiriya/event-invitations/internal/storage"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestMediaService_Upload(t *testing.T) {
	f := newFixture()
	store := storage.NewMemoryStore()
	svc := NewMediaService(f.repo, store, &EventServiceConfig{Location: time.UTC})

	created, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Launch", Invitees: []string{"b@x.com"}})
	require.NoError(t, err)

	resp, err := svc.Upload(ctx, principal("a@x.com"), created.ID, "map", "venue.PNG", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", resp.ContentType)
	assert.Equal(t, int64(len(pngHeader)), resp.Size)
	assert.True(t, strings.HasPrefix(resp.Path, "events/"+created.ID+"/map/"))
	assert.True(t, strings.HasSuffix(resp.Path, ".png"))
	assert.Equal(t, MediaURLPrefix+resp.Path, resp.URL)
	assert.Equal(t, resp.Path, resp.Event.Media.Map)

	_, err = svc.Upload(ctx, principal("a@x.com"), created.ID, "media", "a.txt", strings.NewReader("one"))
	require.NoError(t, err)
	second, err := svc.Upload(ctx, principal("a@x.com"), created.ID, "media", "b.txt", strings.NewReader("two"))
	require.NoError(t, err)
	assert.Len(t, second.Event.Media.Gallery, 2)
	assert.Equal(t, 3, store.Len())

	obj, err := svc.Open(ctx, principal("b@x.com"), resp.Path)
	require.NoError(t, err)
	defer obj.Close()
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestMediaService_UploadRejections(t *testing.T) {
	f := newFixture()
	svc := NewMediaService(f.repo, storage.NewMemoryStore(), nil)
	created, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Launch"})
	require.NoError(t, err)

	_, err = svc.Upload(ctx, principal("b@x.com"), created.ID, "map", "a.png", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Upload(ctx, principal("a@x.com"), created.ID, "poster", "a.png", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Upload(ctx, principal("a@x.com"), created.ID, "map", "a.png", strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Upload(ctx, principal("a@x.com"), "missing", "map", "a.png", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestMediaService_OpenVisibility(t *testing.T) {
	f := newFixture()
	svc := NewMediaService(f.repo, storage.NewMemoryStore(), nil)
	private := false
	created, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Launch", IsPublic: &private})
	require.NoError(t, err)
	resp, err := svc.Upload(ctx, principal("a@x.com"), created.ID, "schedule", "plan.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	_, err = svc.Open(ctx, principal("z@x.com"), resp.Path)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Open(ctx, principal("a@x.com"), "events/"+created.ID+"/schedule/missing.pdf")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	_, err = svc.Open(ctx, principal("a@x.com"), "../etc/passwd")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestEventIDFromPath(t *testing.T) {
	id, ok := eventIDFromPath("events/abc/map/x.png")
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	for _, p := range []string{"events/abc/x.png", "other/abc/map/x.png", "events//map/x.png", "events/abc/poster/x.png"} {
		_, ok := eventIDFromPath(p)
		assert.False(t, ok, p)
	}
}
