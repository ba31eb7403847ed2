package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prohmpiriya/event-invitations/internal/auth"
	"github.com/prohmpiriya/event-invitations/internal/notifier"
	"github.com/prohmpiriya/event-invitations/internal/repository"
	"github.com/prohmpiriya/event-invitations/internal/service"
	"github.com/prohmpiriya/event-invitations/internal/storage"
	"github.com/prohmpiriya/event-invitations/pkg/logger"
	"github.com/prohmpiriya/event-invitations/pkg/middleware"
)

const testSecret = "handler-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type testServer struct {
	router *gin.Engine
	audit  *middleware.MemoryAuditSink
	pub    *notifier.RecordingPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	events := repository.NewMemoryEventRepository()
	revocations := auth.NewMemoryRevocationStore()
	pub := &notifier.RecordingPublisher{}
	cfg := &service.EventServiceConfig{Location: time.UTC, Logger: logger.NewNop()}

	eventService := service.NewEventService(events, pub, cfg)
	invitationService := service.NewInvitationService(events, pub, cfg)
	authService := service.NewAuthService(repository.NewMemoryUserRepository(), revocations, &service.AuthServiceConfig{
		Secret:         testSecret,
		AccessTokenTTL: time.Hour,
		BcryptCost:     bcrypt.MinCost,
	})
	mediaService := service.NewMediaService(events, storage.NewMemoryStore(), cfg)

	sink := &middleware.MemoryAuditSink{}
	auditCfg := middleware.DefaultAuditConfig(sink)
	auditCfg.FlushInterval = 10 * time.Millisecond
	auditLogger := middleware.NewAuditLogger(auditCfg, logger.NewNop())
	t.Cleanup(func() { _ = auditLogger.Close() })

	router := NewRouter(&RouterConfig{
		Auth:        NewAuthHandler(authService),
		Events:      NewEventHandler(eventService),
		Invitations: NewInvitationHandler(invitationService, eventService),
		Media:       NewMediaHandler(mediaService, 1024),
		Health: NewHealthHandler(map[string]HealthCheck{
			"memory": func(context.Context) error { return nil },
		}),
		JWTSecret:      testSecret,
		Revocations:    revocations,
		AllowedOrigins: []string{"http://localhost:5173"},
		AuditLogger:    auditLogger,
		Logger:         logger.NewNop(),
	})
	return &testServer{router: router, audit: sink, pub: pub}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "password1", "name": email,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var token struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &token))
	return token.AccessToken
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type eventBody struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	IsPublic     bool              `json:"is_public"`
	Invitees     []string          `json:"invitees"`
	RSVPs        map[string]string `json:"rsvps"`
	MyStatus     string            `json:"my_status"`
	StartDisplay string            `json:"start_display"`
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"memory":"ok"`)
}

func TestReady_FailingCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler(map[string]HealthCheck{"mongo": func(context.Context) error { return errors.New("down") }})
	r := gin.New()
	r.GET("/ready", h.Ready)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "a@x.com")

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "a@x.com", "password": "password1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_ENTRY", env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "a@x.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@x.com", decode[map[string]string](t, env.Data)["email"])

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_MultiBytePasswordTooLong(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "a@x.com", "password": strings.Repeat("é", 40),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Contains(t, env.Error.Details, "password")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/v1/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestEventLifecycle(t *testing.T) {
	s := newTestServer(t)
	organizer := s.register(t, "a@x.com")
	guest := s.register(t, "b@x.com")
	stranger := s.register(t, "z@x.com")

	w, env := s.do(t, http.MethodPost, "/api/v1/events", organizer, map[string]interface{}{
		"name": "Launch", "event_date": "not-a-date", "start_time": "10:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[eventBody](t, env.Data)
	assert.True(t, created.IsPublic)
	assert.Equal(t, []string{}, created.Invitees)
	assert.Equal(t, "N/A", created.StartDisplay)

	w, env = s.do(t, http.MethodPost, "/api/v1/events", organizer, map[string]interface{}{
		"name": "Bad", "invitees": []string{"a@x.com"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Contains(t, env.Error.Details, "invitees")

	base := "/api/v1/events/" + created.ID
	w, _ = s.do(t, http.MethodPost, base+"/invitees", organizer, map[string]string{"email": "b@x.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	w, env = s.do(t, http.MethodPost, base+"/invitees", organizer, map[string]string{"email": "b@x.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_ENTRY", env.Error.Code)
	w, env = s.do(t, http.MethodPost, base+"/invitees", guest, map[string]string{"email": "c@x.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	w, env = s.do(t, http.MethodPut, base+"/rsvp", guest, map[string]string{"status": "accepted"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "accepted", decode[map[string]interface{}](t, env.Data)["status"])
	w, _ = s.do(t, http.MethodPut, base+"/rsvp", guest, map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = s.do(t, http.MethodPut, base+"/rsvp", guest, map[string]string{"status": "declined"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "RSVP_FINAL", env.Error.Code)
	w, env = s.do(t, http.MethodPut, base+"/rsvp", stranger, map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NOT_INVITED", env.Error.Code)
	w, _ = s.do(t, http.MethodPut, base+"/rsvp", guest, map[string]string{"status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodGet, base, organizer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	full := decode[eventBody](t, env.Data)
	assert.Equal(t, map[string]string{"b@x.com": "accepted"}, full.RSVPs)

	w, env = s.do(t, http.MethodGet, base, guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, string(env.Data), "invitees")
	assert.Equal(t, "accepted", decode[eventBody](t, env.Data).MyStatus)

	w, _ = s.do(t, http.MethodPost, base+"/plans", organizer, map[string]string{"plan": "Doors: 18:00"})
	assert.Equal(t, http.StatusCreated, w.Code)
	w, _ = s.do(t, http.MethodPost, base+"/plans", organizer, map[string]string{"plan": "doors soon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodPatch, base, organizer, map[string]interface{}{"is_public": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[eventBody](t, env.Data).IsPublic)
	w, _ = s.do(t, http.MethodGet, base, stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, base+"/calendar.ics", guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, w.Body.String(), "BEGIN:VEVENT")

	w, env = s.do(t, http.MethodGet, "/api/v1/invitations?sort=role", guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]eventBody](t, env.Data), 1)
	w, _ = s.do(t, http.MethodGet, "/api/v1/invitations?sort=name", guest, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/invitations/invitee/b@x.com/events", guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]eventBody](t, env.Data), 1)
	w, _ = s.do(t, http.MethodGet, "/api/v1/invitations/organizer/a@x.com/events", guest, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodDelete, base+"/invitees/b@x.com", organizer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodDelete, base, organizer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, env = s.do(t, http.MethodGet, base, organizer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	assert.Contains(t, s.pub.Kinds(), notifier.KindRSVPResponded)
	assert.Eventually(t, func() bool { return len(s.audit.Entries()) > 0 }, time.Second, 10*time.Millisecond)
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestMediaUploadAndDownload(t *testing.T) {
	s := newTestServer(t)
	organizer := s.register(t, "a@x.com")

	w, env := s.do(t, http.MethodPost, "/api/v1/events", organizer, map[string]interface{}{"name": "Launch"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[eventBody](t, env.Data)

	body, contentType := multipartBody(t, "notes.txt", []byte("hello guests"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/"+created.ID+"/media/schedule", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+organizer)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var uploaded envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	url := decode[map[string]interface{}](t, uploaded.Data)["url"].(string)

	w, _ = s.do(t, http.MethodGet, url, organizer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello guests", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	big, contentType := multipartBody(t, "big.bin", bytes.Repeat([]byte("x"), 4096))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/events/"+created.ID+"/media/media", big)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+organizer)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/media/events/"+created.ID+"/map/missing.png", organizer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
