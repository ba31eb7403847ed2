package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/event-invitations/internal/auth"
	"github.com/prohmpiriya/event-invitations/internal/handler"
	"github.com/prohmpiriya/event-invitations/internal/notifier"
	"github.com/prohmpiriya/event-invitations/internal/repository"
	"github.com/prohmpiriya/event-invitations/internal/service"
	"github.com/prohmpiriya/event-invitations/internal/storage"
	"github.com/prohmpiriya/event-invitations/pkg/config"
	"github.com/prohmpiriya/event-invitations/pkg/database"
	"github.com/prohmpiriya/event-invitations/pkg/kafka"
	"github.com/prohmpiriya/event-invitations/pkg/logger"
	"github.com/prohmpiriya/event-invitations/pkg/middleware"
	pkgredis "github.com/prohmpiriya/event-invitations/pkg/redis"
	"github.com/prohmpiriya/event-invitations/pkg/telemetry"
)

// Container holds all dependencies for the invitation service
type Container struct {
	// Infrastructure
	MongoDB     *database.MongoDB
	AuditDB     *database.PostgresDB
	Redis       *pkgredis.Client
	Producer    *kafka.Producer
	AuditLogger *middleware.AuditLogger
	Metrics     *telemetry.Metrics
	Logger      *logger.Logger

	// Repositories
	EventRepo   repository.EventRepository
	UserRepo    repository.UserRepository
	Revocations auth.RevocationStore
	MediaStore  storage.MediaStore
	Publisher   notifier.Publisher

	// Services
	EventService      service.EventService
	InvitationService service.InvitationService
	AuthService       service.AuthService
	MediaService      service.MediaService

	// Handlers
	HealthHandler     *handler.HealthHandler
	AuthHandler       *handler.AuthHandler
	EventHandler      *handler.EventHandler
	InvitationHandler *handler.InvitationHandler
	MediaHandler      *handler.MediaHandler

	config *config.Config
}

// ContainerConfig contains configuration for building the container.
// Nil repositories fall back to in-memory implementations.
type ContainerConfig struct {
	Config *config.Config

	MongoDB     *database.MongoDB
	AuditDB     *database.PostgresDB
	Redis       *pkgredis.Client
	Producer    *kafka.Producer
	AuditLogger *middleware.AuditLogger
	Metrics     *telemetry.Metrics
	Logger      *logger.Logger

	EventRepo   repository.EventRepository
	UserRepo    repository.UserRepository
	Revocations auth.RevocationStore
	MediaStore  storage.MediaStore
	Publisher   notifier.Publisher
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		MongoDB:     cfg.MongoDB,
		AuditDB:     cfg.AuditDB,
		Redis:       cfg.Redis,
		Producer:    cfg.Producer,
		AuditLogger: cfg.AuditLogger,
		Metrics:     cfg.Metrics,
		Logger:      cfg.Logger,
		EventRepo:   cfg.EventRepo,
		UserRepo:    cfg.UserRepo,
		Revocations: cfg.Revocations,
		MediaStore:  cfg.MediaStore,
		Publisher:   cfg.Publisher,
		config:      cfg.Config,
	}
	if c.Logger == nil {
		c.Logger = logger.Get()
	}
	if c.EventRepo == nil {
		c.EventRepo = repository.NewMemoryEventRepository()
	}
	if c.UserRepo == nil {
		c.UserRepo = repository.NewMemoryUserRepository()
	}
	if c.Revocations == nil {
		c.Revocations = auth.NewMemoryRevocationStore()
	}
	if c.MediaStore == nil {
		c.MediaStore = storage.NewMemoryStore()
	}
	if c.Publisher == nil {
		c.Publisher = notifier.NoopPublisher{}
	}

	// Initialize services
	eventCfg := &service.EventServiceConfig{
		Location: c.config.Events.Location(),
		Metrics:  c.Metrics,
		Logger:   c.Logger,
	}
	c.EventService = service.NewEventService(c.EventRepo, c.Publisher, eventCfg)
	c.InvitationService = service.NewInvitationService(c.EventRepo, c.Publisher, eventCfg)
	c.MediaService = service.NewMediaService(c.EventRepo, c.MediaStore, eventCfg)
	c.AuthService = service.NewAuthService(c.UserRepo, c.Revocations, &service.AuthServiceConfig{
		Secret:         c.config.JWT.Secret,
		Issuer:         c.config.JWT.Issuer,
		AccessTokenTTL: c.config.JWT.AccessTokenTTL,
	})

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.healthChecks())
	c.AuthHandler = handler.NewAuthHandler(c.AuthService)
	c.EventHandler = handler.NewEventHandler(c.EventService)
	c.InvitationHandler = handler.NewInvitationHandler(c.InvitationService, c.EventService)
	c.MediaHandler = handler.NewMediaHandler(c.MediaService, c.config.Media.MaxUploadBytes)

	return c
}

func (c *Container) healthChecks() map[string]handler.HealthCheck {
	checks := make(map[string]handler.HealthCheck)
	if c.MongoDB != nil {
		checks["mongodb"] = c.MongoDB.Ping
	}
	if c.AuditDB != nil {
		checks["postgres"] = c.AuditDB.HealthCheck
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis.HealthCheck
	}
	if c.Producer != nil {
		checks["kafka"] = c.Producer.Ping
	}
	return checks
}

// Router builds the HTTP engine from the container's handlers
func (c *Container) Router() *gin.Engine {
	rl := middleware.DefaultRateLimitConfig()
	rl.RequestsPerSecond = c.config.RateLimit.RequestsPerSecond
	rl.BurstSize = c.config.RateLimit.BurstSize
	if c.config.RateLimit.UseRedis {
		rl.RedisClient = c.Redis
	}

	return handler.NewRouter(&handler.RouterConfig{
		Auth:           c.AuthHandler,
		Events:         c.EventHandler,
		Invitations:    c.InvitationHandler,
		Media:          c.MediaHandler,
		Health:         c.HealthHandler,
		JWTSecret:      c.config.JWT.Secret,
		Revocations:    c.Revocations,
		AllowedOrigins: c.config.CORS.AllowedOrigins,
		RateLimit:      &rl,
		AuditLogger:    c.AuditLogger,
		Logger:         c.Logger,
		Metrics:        c.Metrics,
	})
}

// Build connects every configured backend and returns a wired container.
// MongoDB is required; PostgreSQL, Redis and Kafka are optional.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	cc := &ContainerConfig{Config: cfg, Logger: log}
	c := &Container{Logger: log}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	cc.Metrics = metrics

	mongoDB, err := database.NewMongo(ctx, &database.MongoConfig{
		URI:            cfg.MongoDB.URI,
		Database:       cfg.MongoDB.Database,
		ConnectTimeout: cfg.MongoDB.ConnectTimeout,
	})
	if err != nil {
		return nil, err
	}
	c.MongoDB, cc.MongoDB = mongoDB, mongoDB

	eventRepo := repository.NewMongoEventRepository(mongoDB.Database())
	userRepo := repository.NewMongoUserRepository(mongoDB.Database())
	if err := eventRepo.EnsureIndexes(ctx); err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("failed to create event indexes: %w", err)
	}
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("failed to create user indexes: %w", err)
	}
	cc.EventRepo = eventRepo
	cc.UserRepo = userRepo
	cc.MediaStore = storage.NewGridFSStore(mongoDB.Database(), cfg.MongoDB.MediaBucket)

	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, &pkgredis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			c.Close(ctx)
			return nil, err
		}
		c.Redis, cc.Redis = client, client
		cc.Revocations = auth.NewRedisRevocationStore(client)
	} else {
		log.Warn("redis disabled, sign-outs are kept in process memory")
	}

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(&kafka.ProducerConfig{
			Brokers:        cfg.Kafka.Brokers,
			ClientID:       cfg.Kafka.ClientID,
			Topic:          cfg.Kafka.Topic,
			ProduceTimeout: 5 * time.Second,
		})
		if err != nil {
			c.Close(ctx)
			return nil, err
		}
		c.Producer, cc.Producer = producer, producer
		cc.Publisher = notifier.NewKafkaPublisher(producer)
	}

	if cfg.Audit.Enabled {
		pgCfg := database.DefaultPostgresConfig()
		pgCfg.Host = cfg.Database.Host
		pgCfg.Port = cfg.Database.Port
		pgCfg.User = cfg.Database.User
		pgCfg.Password = cfg.Database.Password
		pgCfg.Database = cfg.Database.DBName
		pgCfg.SSLMode = cfg.Database.SSLMode
		pgCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		pgCfg.MinConns = int32(cfg.Database.MaxIdleConns)
		pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

		pg, err := database.NewPostgres(ctx, pgCfg)
		if err != nil {
			c.Close(ctx)
			return nil, err
		}
		c.AuditDB, cc.AuditDB = pg, pg

		sink := middleware.NewPostgresAuditSink(pg.Pool())
		if err := sink.EnsureSchema(ctx); err != nil {
			c.Close(ctx)
			return nil, fmt.Errorf("failed to create audit schema: %w", err)
		}
		auditLogger := middleware.NewAuditLogger(middleware.DefaultAuditConfig(sink), log)
		c.AuditLogger, cc.AuditLogger = auditLogger, auditLogger
	}

	return NewContainer(cc), nil
}

// Close releases every backend in reverse dependency order
func (c *Container) Close(ctx context.Context) {
	var errs []error
	if c.AuditLogger != nil {
		errs = append(errs, c.AuditLogger.Close())
	}
	if c.AuditDB != nil {
		c.AuditDB.Close()
	}
	if c.Producer != nil {
		c.Producer.Close()
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.MongoDB != nil {
		errs = append(errs, c.MongoDB.Close(ctx))
	}
	if err := errors.Join(errs...); err != nil && c.Logger != nil {
		c.Logger.Warn("error while closing dependencies", zap.Error(err))
	}
}
