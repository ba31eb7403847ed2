package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/event-invitations/pkg/logger"
	"go.uber.org/zap"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionCreate   AuditAction = "create"
	AuditActionUpdate   AuditAction = "update"
	AuditActionDelete   AuditAction = "delete"
	AuditActionRegister AuditAction = "register"
	AuditActionLogin    AuditAction = "login"
	AuditActionLogout   AuditAction = "logout"
	AuditActionInvite   AuditAction = "invite"
	AuditActionUninvite AuditAction = "uninvite"
	AuditActionRSVP     AuditAction = "rsvp"
	AuditActionPlan     AuditAction = "plan"
	AuditActionUpload   AuditAction = "upload"
)

const contextKeyAuditMetadata = "audit_metadata"

// AuditEntry is one row of the audit_logs table
type AuditEntry struct {
	ID           string                 `json:"id"`
	UserID       *string                `json:"user_id,omitempty"`
	UserEmail    string                 `json:"user_email,omitempty"`
	Action       AuditAction            `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   *string                `json:"resource_id,omitempty"`
	StatusCode   int                    `json:"status_code"`
	IPAddress    string                 `json:"ip_address,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	RequestID    string                 `json:"request_id,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// AuditSink persists batches of entries
type AuditSink interface {
	Write(ctx context.Context, entries []*AuditEntry) error
}

// AuditConfig holds configuration for the audit middleware
type AuditConfig struct {
	Sink          AuditSink
	BufferSize    int
	FlushInterval time.Duration
	BatchSize     int
	SkipPaths     []string
	// Safe methods are never audited
	SkipMethods []string
	// Request bodies are captured up to MaxBodySize with SensitiveFields masked
	CaptureBody     bool
	MaxBodySize     int
	SensitiveFields []string
}

// DefaultAuditConfig returns default configuration
func DefaultAuditConfig(sink AuditSink) *AuditConfig {
	return &AuditConfig{
		Sink:            sink,
		BufferSize:      1000,
		FlushInterval:   5 * time.Second,
		BatchSize:       100,
		SkipPaths:       []string{"/health", "/ready"},
		SkipMethods:     []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		CaptureBody:     true,
		MaxBodySize:     10 * 1024,
		SensitiveFields: []string{"password", "token", "secret"},
	}
}

// AuditLogger buffers entries and flushes them from a background worker
type AuditLogger struct {
	config    *AuditConfig
	buffer    chan *AuditEntry
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	log       *logger.Logger
}

// NewAuditLogger starts the flush worker
func NewAuditLogger(config *AuditConfig, log *logger.Logger) *AuditLogger {
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if log == nil {
		log = logger.Get()
	}

	al := &AuditLogger{
		config: config,
		buffer: make(chan *AuditEntry, config.BufferSize),
		log:    log,
	}
	al.wg.Add(1)
	go al.worker()
	return al
}

// Log enqueues an entry, dropping it when the buffer is full
func (al *AuditLogger) Log(entry *AuditEntry) {
	al.mu.RLock()
	defer al.mu.RUnlock()
	if al.closed {
		al.log.Debug("audit logger closed, dropping entry", zap.String("action", string(entry.Action)))
		return
	}
	select {
	case al.buffer <- entry:
	default:
		al.log.Warn("audit buffer full, dropping entry", zap.String("action", string(entry.Action)))
	}
}

// Close drains the buffer and waits for the final flush
func (al *AuditLogger) Close() error {
	al.closeOnce.Do(func() {
		al.mu.Lock()
		al.closed = true
		close(al.buffer)
		al.mu.Unlock()
		al.wg.Wait()
	})
	return nil
}

func (al *AuditLogger) worker() {
	defer al.wg.Done()

	ticker := time.NewTicker(al.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*AuditEntry, 0, al.config.BatchSize)
	for {
		select {
		case entry, ok := <-al.buffer:
			if !ok {
				al.flush(batch)
				return
			}
			batch = append(batch, entry)
			if len(batch) >= al.config.BatchSize {
				al.flush(batch)
				batch = make([]*AuditEntry, 0, al.config.BatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				al.flush(batch)
				batch = make([]*AuditEntry, 0, al.config.BatchSize)
			}
		}
	}
}

func (al *AuditLogger) flush(entries []*AuditEntry) {
	if len(entries) == 0 || al.config.Sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := al.config.Sink.Write(ctx, entries); err != nil {
		al.log.Error("failed to write audit entries", zap.Int("count", len(entries)), zap.Error(err))
	}
}

// PostgresAuditSink writes entries to the audit_logs table
type PostgresAuditSink struct {
	pool *pgxpool.Pool
}

func NewPostgresAuditSink(pool *pgxpool.Pool) *PostgresAuditSink {
	return &PostgresAuditSink{pool: pool}
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id            UUID PRIMARY KEY,
	user_id       TEXT,
	user_email    TEXT,
	action        TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	resource_id   TEXT,
	status_code   INT NOT NULL,
	ip_address    TEXT,
	user_agent    TEXT,
	request_id    TEXT,
	payload       JSONB,
	metadata      JSONB NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs (resource_type, resource_id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at);
`

// EnsureSchema creates the audit table if it does not exist
func (s *PostgresAuditSink) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, auditSchema)
	return err
}

const insertAuditQuery = `
	INSERT INTO audit_logs (
		id, user_id, user_email, action, resource_type, resource_id,
		status_code, ip_address, user_agent, request_id, payload, metadata, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

func (s *PostgresAuditSink) Write(ctx context.Context, entries []*AuditEntry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		var payload []byte
		if e.Payload != nil {
			payload, _ = json.Marshal(e.Payload)
		}
		metadata := []byte("{}")
		if e.Metadata != nil {
			metadata, _ = json.Marshal(e.Metadata)
		}
		batch.Queue(insertAuditQuery,
			e.ID, e.UserID, e.UserEmail, string(e.Action), e.ResourceType, e.ResourceID,
			e.StatusCode, e.IPAddress, e.UserAgent, e.RequestID, payload, metadata, e.CreatedAt,
		)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

// MemoryAuditSink collects entries in memory
type MemoryAuditSink struct {
	mu      sync.Mutex
	entries []*AuditEntry
}

func (s *MemoryAuditSink) Write(_ context.Context, entries []*AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

// Entries returns a copy of what has been written so far
func (s *MemoryAuditSink) Entries() []*AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// AuditMiddleware records every mutating request once the handler has run
func AuditMiddleware(al *AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		config := al.config

		for _, path := range config.SkipPaths {
			if strings.HasSuffix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}
		for _, method := range config.SkipMethods {
			if c.Request.Method == method {
				c.Next()
				return
			}
		}

		var payload map[string]interface{}
		if config.CaptureBody && c.Request.Body != nil && strings.HasPrefix(c.ContentType(), "application/json") {
			bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, int64(config.MaxBodySize)))
			if err == nil && len(bodyBytes) > 0 {
				c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), c.Request.Body))
				if json.Unmarshal(bodyBytes, &payload) == nil {
					payload = maskSensitiveFields(payload, config.SensitiveFields)
				}
			}
		}

		startTime := time.Now()
		c.Next()

		resourceType, resourceID := resourceFromPath(c.Request.URL.Path)
		entry := &AuditEntry{
			ID:           uuid.New().String(),
			Action:       actionFor(c.Request.Method, c.Request.URL.Path),
			ResourceType: resourceType,
			StatusCode:   c.Writer.Status(),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.GetHeader("User-Agent"),
			RequestID:    c.GetString(ContextKeyRequestID),
			Payload:      payload,
			CreatedAt:    startTime,
		}
		if resourceID != "" {
			entry.ResourceID = &resourceID
		}
		if userID, ok := GetUserID(c); ok {
			entry.UserID = &userID
		}
		entry.UserEmail, _ = GetEmail(c)
		if meta, ok := c.Get(contextKeyAuditMetadata); ok {
			entry.Metadata, _ = meta.(map[string]interface{})
		}

		al.Log(entry)
	}
}

// SetAuditMetadata attaches extra fields to the current request's audit entry
func SetAuditMetadata(c *gin.Context, metadata map[string]interface{}) {
	c.Set(contextKeyAuditMetadata, metadata)
}

// actionFor maps method and path to an action, sub-resources first
func actionFor(method, path string) AuditAction {
	p := strings.ToLower(strings.TrimSuffix(path, "/"))
	switch {
	case strings.HasSuffix(p, "/auth/register"):
		return AuditActionRegister
	case strings.HasSuffix(p, "/auth/login"):
		return AuditActionLogin
	case strings.HasSuffix(p, "/auth/logout"):
		return AuditActionLogout
	case strings.HasSuffix(p, "/rsvp"):
		return AuditActionRSVP
	case strings.HasSuffix(p, "/plans"):
		return AuditActionPlan
	case strings.Contains(p, "/media/"):
		return AuditActionUpload
	case strings.Contains(p, "/invitees"):
		if method == http.MethodDelete {
			return AuditActionUninvite
		}
		return AuditActionInvite
	}

	switch method {
	case http.MethodPost:
		return AuditActionCreate
	case http.MethodDelete:
		return AuditActionDelete
	default:
		return AuditActionUpdate
	}
}

// resourceFromPath maps /api/v1/events/<uuid>/... to ("event", "<uuid>")
func resourceFromPath(path string) (resourceType, resourceID string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for len(parts) > 0 && (parts[0] == "api" || isVersionSegment(parts[0])) {
		parts = parts[1:]
	}
	if len(parts) == 0 || parts[0] == "" {
		return "unknown", ""
	}

	resourceType = strings.TrimSuffix(parts[0], "s")
	if len(parts) > 1 {
		if _, err := uuid.Parse(parts[1]); err == nil {
			resourceID = parts[1]
		}
	}
	return resourceType, resourceID
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// maskSensitiveFields masks sensitive data in a map, recursing into nested maps
func maskSensitiveFields(data map[string]interface{}, sensitiveFields []string) map[string]interface{} {
	if data == nil {
		return nil
	}

	result := make(map[string]interface{}, len(data))
	for k, v := range data {
		lowKey := strings.ToLower(k)
		masked := false
		for _, sf := range sensitiveFields {
			if strings.Contains(lowKey, strings.ToLower(sf)) {
				result[k] = "[REDACTED]"
				masked = true
				break
			}
		}
		if masked {
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			result[k] = maskSensitiveFields(nested, sensitiveFields)
		} else {
			result[k] = v
		}
	}
	return result
}
