package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/event-invitations/pkg/logger"
	"github.com/prohmpiriya/event-invitations/pkg/middleware"
	"github.com/prohmpiriya/event-invitations/pkg/telemetry"
)

// RouterConfig collects handlers and middleware settings for NewRouter
type RouterConfig struct {
	Auth        *AuthHandler
	Events      *EventHandler
	Invitations *InvitationHandler
	Media       *MediaHandler
	Health      *HealthHandler

	JWTSecret      string
	Revocations    middleware.RevocationChecker
	AllowedOrigins []string
	// RateLimit is applied to the auth endpoints when set
	RateLimit   *middleware.RateLimitConfig
	AuditLogger *middleware.AuditLogger
	Logger      *logger.Logger
	Metrics     *telemetry.Metrics
}

// NewRouter builds the gin engine serving /api/v1
func NewRouter(cfg *RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log, cfg.Metrics))
	r.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig(cfg.AllowedOrigins)))

	r.GET("/health", cfg.Health.Health)
	r.GET("/ready", cfg.Health.Ready)

	v1 := r.Group("/api/v1")
	if cfg.AuditLogger != nil {
		v1.Use(middleware.AuditMiddleware(cfg.AuditLogger))
	}

	public := v1.Group("/auth")
	if cfg.RateLimit != nil {
		public.Use(middleware.RateLimiter(*cfg.RateLimit))
	}
	public.POST("/register", cfg.Auth.Register)
	public.POST("/login", cfg.Auth.Login)

	protected := v1.Group("")
	protected.Use(middleware.JWTMiddleware(&middleware.JWTConfig{
		Secret:      cfg.JWTSecret,
		Revocations: cfg.Revocations,
	}))
	{
		protected.POST("/auth/logout", cfg.Auth.Logout)
		protected.GET("/auth/me", cfg.Auth.Me)

		events := protected.Group("/events")
		events.GET("", cfg.Events.List)
		events.POST("", cfg.Events.Create)
		events.GET("/:id", cfg.Events.GetByID)
		events.PATCH("/:id", cfg.Events.Update)
		events.DELETE("/:id", cfg.Events.Delete)
		events.POST("/:id/invitees", cfg.Events.AddInvitee)
		events.DELETE("/:id/invitees/:email", cfg.Events.RemoveInvitee)
		events.PUT("/:id/rsvp", cfg.Invitations.Respond)
		events.POST("/:id/plans", cfg.Events.AddPlan)
		events.POST("/:id/media/:kind", cfg.Media.Upload)
		events.GET("/:id/calendar.ics", cfg.Events.Calendar)

		protected.GET("/media/*path", cfg.Media.Download)

		invitations := protected.Group("/invitations")
		invitations.GET("", cfg.Invitations.List)
		invitations.GET("/organizer/:email/events", cfg.Invitations.ByOrganizer)
		invitations.GET("/invitee/:email/events", cfg.Invitations.ByInvitee)
	}

	return r
}
