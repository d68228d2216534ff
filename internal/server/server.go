// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"safeguard/internal/access"
	"safeguard/internal/ai"
	"safeguard/internal/auth"
	"safeguard/internal/bootstrap"
	"safeguard/internal/config"
	"safeguard/internal/middleware"
	"safeguard/internal/models"
	"safeguard/internal/notifications"
	"safeguard/internal/repository"
	"safeguard/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	tokens   *auth.Tokens
	enforcer *access.Enforcer
	limiter  *middleware.RateLimiter
	ai       ai.Client

	notifier *notifications.Notifier
	registry *notifications.Registry
	sweeper  *service.RetentionSweeper

	userService        *service.UserService
	chatService        *service.ChatService
	observationService *service.ObservationService
	trainingService    *service.TrainingService
	lostFoundService   *service.LostFoundService
	gatePassService    *service.GatePassService
	postService        *service.PostService

	routes []access.Route
}

// Option customizes NewServerWithDeps.
type Option func(*Server)

// WithAIClient replaces the configured AI provider.
func WithAIClient(c ai.Client) Option {
	return func(s *Server) { s.ai = c }
}

// NewServer initializes the runtime and creates a server on top of it.
func NewServer(cfg *config.Config, rt bootstrap.Options, opts ...Option) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, rt)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb, opts...)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// rdb may be nil; the server then runs single-process without caching.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, rdb *redis.Client, opts ...Option) (*Server, error) {
	tokens, err := auth.NewTokens(cfg)
	if err != nil {
		return nil, fmt.Errorf("token signer: %w", err)
	}
	enforcer, err := access.NewEnforcer()
	if err != nil {
		return nil, fmt.Errorf("role enforcer: %w", err)
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          rdb,
		promMiddleware: middleware.InitMetrics("safeguard-api"),
		tokens:         tokens,
		enforcer:       enforcer,
		limiter:        middleware.NewRateLimiter(rdb, cfg.Env),
		ai:             ai.New(cfg),
	}
	for _, opt := range opts {
		opt(s)
	}

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)

	s.userService = service.NewUserService(userRepo, repository.NewCompanyRepository(db), rdb)
	s.chatService = service.NewChatService(chatRepo, userRepo, cfg.MaxUploadBytes())
	s.observationService = service.NewObservationService(repository.NewObservationRepository(db), s.ai)
	s.trainingService = service.NewTrainingService(repository.NewTrainingRepository(db))
	s.lostFoundService = service.NewLostFoundService(repository.NewLostFoundRepository(db))
	s.gatePassService = service.NewGatePassService(repository.NewGatePassRepository(db))
	s.postService = service.NewPostService(repository.NewPostRepository(db))
	s.sweeper = service.NewRetentionSweeper(chatRepo, cfg.AttachmentRetention(), cfg.SweepInterval())

	s.notifier = notifications.NewNotifier(rdb)
	s.registry = notifications.NewRegistry(s.chatService, rdb)
	s.chatService.SetPresence(s.registry)
	s.routes = s.routeTable()

	return s, nil
}

// Registry exposes the connection registry for tools that run beside the server.
func (s *Server) Registry() *notifications.Registry {
	return s.registry
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8050,http://127.0.0.1:8050,http://localhost:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes mounts the route table. Paths outside it fall through to
// fiber's 404.
func (s *Server) SetupRoutes(app *fiber.App) {
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	for _, r := range s.routes {
		app.Add(r.Method, r.Path, s.chain(r)...)
	}
}

// App builds a fiber app with middleware and routes mounted.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Safeguard API",
		BodyLimit: int(s.config.MaxUploadBytes()) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and, when configured, Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: without it the server runs single-process.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"connections": s.registry.Count(),
		"time":        time.Now(),
	})
}

// Start starts background workers and blocks serving HTTP.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if err := s.registry.StartWiring(s.shutdownCtx, s.notifier); err != nil {
		middleware.Logger.Error("failed to start registry wiring", slog.String("error", err.Error()))
	}
	s.sweeper.Start(s.shutdownCtx)

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops workers, closes sockets, drains HTTP and releases the
// database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the sweeper and subscriber
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if err := s.registry.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down registry", slog.String("error", err.Error()))
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
