package handlers

import (
	"time"

	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/monitoring"
	"task-tracker/backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	AuthService    services.AuthService
	TaskService    services.TaskService
	CommentService services.CommentService
	Sessions       *middleware.SessionGuard
	Cookies        CookieSettings
	AllowedOrigins []string
	// AuthLimiter throttles signup and login. Nil disables it.
	AuthLimiter *middleware.IPRateLimiter
	Monitor     *monitoring.Monitor
	Logger      zerolog.Logger
}

// NewRouter builds the HTTP surface: the JSON API under /users and /tasks, the
// page-data routes and the health and metrics endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	monitor := cfg.Monitor
	if monitor == nil {
		monitor = monitoring.NewMonitor()
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(monitor.Middleware())
	router.Use(middleware.RecoveryWithLog(cfg.Logger))
	router.Use(middleware.RequestLogger(cfg.Logger))

	authHandler := NewAuthHandler(cfg.AuthService, cfg.Cookies, cfg.Logger)
	taskHandler := NewTaskHandler(cfg.TaskService, cfg.Logger)
	commentHandler := NewCommentHandler(cfg.CommentService, cfg.Logger)
	pageHandler := NewPageHandler()

	apiAuth := cfg.Sessions.RequireAPIAuth()
	pageAuth := cfg.Sessions.RequirePageAuth()

	throttled := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		if cfg.AuthLimiter == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{cfg.AuthLimiter.Middleware(), handler}
	}

	users := router.Group("/users")
	{
		users.POST("/signup", throttled(authHandler.Signup)...)
		users.POST("/login", throttled(authHandler.Login)...)
		users.GET("/me", apiAuth, authHandler.Me)
		users.POST("/logout", authHandler.Logout)
		users.GET("/logout", authHandler.Logout)
	}

	router.GET("/auth", cfg.Sessions.OptionalAuth(), pageHandler.Auth)
	router.GET("/board", pageAuth, pageHandler.Board)
	router.GET("/tasks/view", pageAuth, pageHandler.TaskView)

	tasks := router.Group("/tasks", apiAuth)
	{
		tasks.GET("", taskHandler.ListTasks)
		tasks.POST("", taskHandler.CreateTask)
		tasks.GET("/:id", taskHandler.GetTask)
		tasks.PATCH("/:id", taskHandler.UpdateTask)
		tasks.DELETE("/:id", taskHandler.DeleteTask)
		tasks.POST("/:id/comments", commentHandler.AddComment)
	}

	router.GET("/health", monitor.HealthHandler())
	router.GET("/health/ready", monitor.ReadinessHandler())
	router.GET("/health/live", monitor.LivenessHandler())
	router.GET("/metrics", monitor.MetricsHandler())

	return router
}
