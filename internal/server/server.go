// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aquawaran/Clon-Official/internal/bootstrap"
	"github.com/aquawaran/Clon-Official/internal/config"
	"github.com/aquawaran/Clon-Official/internal/database"
	"github.com/aquawaran/Clon-Official/internal/middleware"
	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/notifications"
	"github.com/aquawaran/Clon-Official/internal/repository"
	"github.com/aquawaran/Clon-Official/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
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
	wiring         conc.WaitGroup

	userRepo repository.UserRepository
	postRepo repository.PostRepository

	notifier    *notifications.Notifier
	hub         *notifications.Hub
	broadcaster *notifications.Broadcaster

	postService         *service.PostService
	userService         *service.UserService
	followService       *service.FollowService
	notificationService *service.NotificationService
	adminService        *service.AdminService

	consumedTicketsMu sync.Mutex
	consumedTickets   map[string]consumedTicketEntry
}

// NewServer creates a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	// Redis is optional; without it events are delivered to this instance only.
	db, redisClient, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	ids, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	followRepo := repository.NewFollowRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	s := &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		promMiddleware:  middleware.InitMetrics("clon-api"),
		userRepo:        userRepo,
		postRepo:        postRepo,
		notifier:        notifications.NewNotifier(redisClient),
		hub:             notifications.NewHub(redisClient),
		consumedTickets: make(map[string]consumedTicketEntry),
	}

	queueSize := cfg.BroadcastQueueSize
	if queueSize <= 0 {
		queueSize = notifications.DefaultQueueSize
	}
	s.broadcaster = notifications.NewBroadcaster(s.hub, s.notifier, queueSize)

	coordinator := service.NewMutationCoordinator(postRepo, cfg.MutationTimeout)
	s.notificationService = service.NewNotificationService(notificationRepo, s.broadcaster)
	s.postService = service.NewPostService(postRepo, userRepo, coordinator, s.notificationService, s.broadcaster)
	s.userService = service.NewUserService(userRepo, followRepo, ids, cfg.CreatorID)
	s.followService = service.NewFollowService(followRepo, userRepo, s.notificationService)
	s.adminService = service.NewAdminService(userRepo, s.notificationService)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
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

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	api.Post("/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)
	api.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)

	// WebSocket: the ticket is issued over HTTP, then presented on upgrade.
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.requireUpgrade, s.AuthRequired(), s.WebsocketHandler())

	protected := api.Group("", s.AuthRequired())
	protected.Post("/logout", s.Logout)
	protected.Get("/me", s.GetMe)

	posts := protected.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:postId/reactions", s.ToggleReaction)
	posts.Post("/:postId/comments", middleware.RateLimit(s.redis, 30, time.Minute, "create_comment"), s.AddComment)
	posts.Get("/:postId", s.GetPost)
	posts.Delete("/:postId", s.DeletePost)

	users := protected.Group("/users")
	users.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.SearchUsers)
	users.Get("/:userId/posts", s.GetUserPosts)
	users.Post("/:userId/follow", middleware.RateLimit(s.redis, 30, time.Minute, "follow"), s.ToggleFollow)
	users.Get("/:userId/followers", s.GetFollowers)
	users.Get("/:userId/following", s.GetFollowing)
	users.Get("/:userId", s.GetUserProfile)

	protected.Put("/profile", s.UpdateProfile)
	protected.Put("/avatar", s.UpdateAvatar)
	protected.Post("/verification/request", s.RequestVerification)
	protected.Get("/notifications", s.GetNotifications)
	protected.Post("/notifications/read", s.MarkNotificationsRead)
	protected.Delete("/account", s.DeleteAccount)

	admin := protected.Group("/admin", s.CreatorRequired())
	admin.Get("/users", s.AdminListUsers)
	admin.Post("/users/:userId/ban", s.AdminSetBan)
	admin.Get("/verification", s.AdminVerificationRequests)
	admin.Post("/verification/:userId/approve", s.AdminApproveVerification)
	admin.Post("/verification/:userId/reject", s.AdminRejectVerification)
}

// newApp builds the Fiber application with middleware and routes.
func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Clon API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err.Error())
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

// ReadinessCheck handles readiness probe requests. Redis is optional, so
// only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	} else if redisStatus == "unhealthy" {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"connections": s.hub.ConnectionCount(),
		"time":        time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.newApp()
	s.broadcaster.Start()

	if s.notifier.Enabled() {
		s.wiring.Go(func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
			}
		})
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.broadcaster.Stop(ctx); err != nil {
		log.Printf("error draining broadcaster: %v", err)
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down %s: %v", s.hub.Name(), err)
	}
	s.wiring.Wait()

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
