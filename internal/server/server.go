// Package server wires repositories, services and handlers into the HTTP
// router.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "github.com/yukikurage/team-task-api/docs"
	"github.com/yukikurage/team-task-api/internal/access"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/cache"
	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/events"
	"github.com/yukikurage/team-task-api/internal/handlers"
	"github.com/yukikurage/team-task-api/internal/logger"
	"github.com/yukikurage/team-task-api/internal/mail"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/ratelimit"
	"github.com/yukikurage/team-task-api/internal/realtime"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/services"
	"gorm.io/gorm"
)

const shutdownTimeout = 5 * time.Second

// Deps are the process-wide collaborators the router is built from
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Cache  *cache.Cache
	Events events.Dispatcher
	Hub    *realtime.Hub
	Mailer mail.Mailer
	AI     services.TaskExtractor
	Logger *slog.Logger
}

type Server struct {
	Engine *gin.Engine
	Config *config.Config
	logger *slog.Logger
}

// New builds the router with every route of the API
func New(d Deps) (*Server, error) {
	l := logger.OrDefault(d.Logger)
	cfg := d.Config

	store, err := sessionStore(cfg, d.Cache)
	if err != nil {
		return nil, err
	}

	handlers.RegisterValidators()

	// Initialize repositories
	userRepo := repository.NewUserRepository(d.DB)
	teamRepo := repository.NewTeamRepository(d.DB)
	taskRepo := repository.NewTaskRepository(d.DB)
	resolver := access.NewResolver(userRepo)

	// Initialize services
	authService := services.NewAuthService(services.AuthDeps{
		Users:       userRepo,
		Teams:       teamRepo,
		Tokens:      auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expire),
		Revocations: auth.NewRegistry(d.Cache, l),
		Cache:       d.Cache,
		Mailer:      d.Mailer,
		Events:      d.Events,
		FrontendURL: cfg.FrontendURL,
	})
	taskService := services.NewTaskService(taskRepo, resolver, d.Cache, d.Events, d.AI)
	teamService := services.NewTeamService(teamRepo, userRepo, d.Cache)
	analyticsService := services.NewAnalyticsService(taskRepo, resolver, d.Cache, cfg.CacheTTL)

	// Initialize handlers
	authn := middleware.NewAuthenticator(authService)
	authHandler := handlers.NewAuthHandler(authService)
	taskHandler := handlers.NewTaskHandler(taskService)
	teamHandler := handlers.NewTeamHandler(teamService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	realtimeHandler := handlers.NewRealtimeHandler(d.Hub)

	limiter := ratelimit.New(d.Cache)
	requireTask := middleware.RequireTaskAccess(taskService)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleManager)

	r := gin.New()
	r.Use(gin.Logger(), apierrors.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	r.GET("/health", health(d.Cache))
	r.GET("/api-docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/ws", authn.RequireAuth(), realtimeHandler.Connect)

	api := r.Group("/api")
	api.Use(ratelimit.Middleware(limiter, ratelimit.General, l))
	{
		authLimit := ratelimit.Middleware(limiter, ratelimit.Auth, l)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", authLimit, authn.OptionalAuth(), authHandler.Register)
			authRoutes.POST("/login", authLimit, authHandler.Login)
			authRoutes.POST("/logout", authn.RequireAuth(), authHandler.Logout)
			authRoutes.GET("/profile", authn.RequireAuth(), authHandler.GetProfile)
			authRoutes.PUT("/profile", authn.RequireAuth(), authHandler.UpdateProfile)
		}

		tasks := api.Group("/tasks")
		tasks.Use(authn.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", ratelimit.Middleware(limiter, ratelimit.TaskCreation, l), taskHandler.CreateTask)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.GET("/my-tasks", taskHandler.MyTasks)
			tasks.GET("/assigned", taskHandler.AssignedTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PUT("/:id", requireTask, taskHandler.UpdateTask)
			tasks.DELETE("/:id", requireTask, taskHandler.DeleteTask)
			tasks.POST("/:id/assign", staff, requireTask, taskHandler.AssignTask)
		}

		analytics := api.Group("/analytics")
		analytics.Use(authn.RequireAuth())
		{
			analytics.GET("/stats", analyticsHandler.TaskStats)
			analytics.GET("/user", analyticsHandler.UserStats)
			analytics.GET("/user/:userId", analyticsHandler.UserStats)
			analytics.GET("/team", analyticsHandler.TeamStats)
		}

		teams := api.Group("/teams")
		teams.Use(authn.RequireAuth())
		{
			teams.POST("", adminOnly, teamHandler.CreateTeam)
			teams.GET("", staff, teamHandler.ListTeams)
			teams.GET("/:id", teamHandler.GetTeam)
			teams.PUT("/:id", adminOnly, teamHandler.UpdateTeam)
			teams.DELETE("/:id", adminOnly, teamHandler.DeleteTeam)
			teams.POST("/:id/members", adminOnly, teamHandler.AddMember)
			teams.DELETE("/:id/members/:userId", adminOnly, teamHandler.RemoveMember)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Route not found",
		})
	})

	return &Server{Engine: r, Config: cfg, logger: l}, nil
}

// sessionStore keeps sessions in Redis when the cache store is reachable and
// in signed cookies otherwise
func sessionStore(cfg *config.Config, c *cache.Cache) (sessions.Store, error) {
	var store sessions.Store
	if c.Enabled() {
		rs, err := redisStore.NewStore(10, "tcp", cfg.Redis.Addr(), "", cfg.Redis.Password, []byte(cfg.SessionSecret))
		if err != nil {
			return nil, fmt.Errorf("failed to create session store: %w", err)
		}
		store = rs
	} else {
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   constants.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

func health(c *cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		cacheState := "disabled"
		if c.Enabled() {
			cacheState = "connected"
			if err := c.Ping(ctx.Request.Context()); err != nil {
				cacheState = "unreachable"
			}
		}

		ctx.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "Task Management API is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"cache":     cacheState,
		})
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.Config.Port,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "port", s.Config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("server exited properly")
	return nil
}
