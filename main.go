package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/database"
	"task-tracker/backend/internal/handlers"
	"task-tracker/backend/internal/logging"
	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/monitoring"
	"task-tracker/backend/internal/queue"
	"task-tracker/backend/internal/services"
	"task-tracker/backend/internal/worker"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

type application struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *database.DatabasePool
	broker *queue.Broker
	worker *worker.Worker
	router *gin.Engine
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer app.close()

	if app.worker != nil {
		app.worker.Start(ctx)
	}

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("environment", cfg.Server.Environment).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	if app.worker != nil {
		app.worker.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

// buildApp opens the store, applies the schema and wires services, the
// optional reminder queue and the router. The worker is created but not
// started.
func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*application, error) {
	poolConfig := database.DefaultPoolConfig()
	poolConfig.DSN = cfg.GetDatabaseDSN()
	poolConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	poolConfig.MaxIdleConns = cfg.Database.MaxIdleConns
	poolConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
	poolConfig.Logger = &logger
	if logging.ParseLevel(cfg.Log.Level) <= zerolog.DebugLevel {
		poolConfig.LogLevel = gormlogger.Info
	}

	pool, err := database.NewDatabasePool(poolConfig)
	if err != nil {
		return nil, err
	}
	app := &application{cfg: cfg, logger: logger, pool: pool}

	if err := database.NewSchema(pool.DB).Ensure(ctx); err != nil {
		app.close()
		return nil, err
	}
	logger.Info().Str("dialect", pool.Dialect).Msg("database ready")

	credentials := services.NewCredentials(services.CredentialsConfig{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.Issuer,
		TokenTTL:   cfg.Auth.TokenTTL,
		BCryptCost: cfg.Auth.BCryptCost,
	})

	monitor := monitoring.NewMonitor()
	monitor.RegisterHealthCheck("database", pool.Health)
	monitor.RegisterStats("database", func(ctx context.Context) interface{} {
		return pool.Stats()
	})

	var reminders services.ReminderScheduler
	var producer *queue.Producer
	if cfg.Redis.Enabled {
		app.broker = queue.NewBroker(queue.NewRedisClient(cfg))
		producer = queue.NewProducer(app.broker, nil, logger.With().Str("component", "producer").Logger())
		producer.SetEnqueueTimeout(cfg.Redis.EnqueueTimeout)
		reminders = producer

		monitor.RegisterHealthCheck("redis", app.broker.Health)
		monitor.RegisterStats("queue", func(ctx context.Context) interface{} {
			return producer.Stats(ctx)
		})
	} else {
		logger.Info().Msg("redis disabled, task reminders are off")
	}

	authService := services.NewAuthService(pool.DB, credentials, logger.With().Str("component", "auth").Logger())
	taskService := services.NewTaskService(pool.DB, reminders, logger.With().Str("component", "tasks").Logger())
	commentService := services.NewCommentService(pool.DB, logger.With().Str("component", "comments").Logger())

	if app.broker != nil {
		workerLogger := logger.With().Str("component", "worker").Logger()
		app.worker = worker.NewWorker(worker.WorkerConfig{
			Broker:       app.broker,
			Concurrency:  cfg.Worker.Concurrency,
			PollInterval: cfg.Worker.PollInterval,
			Queues:       cfg.Worker.Queues,
			Logger:       workerLogger,
		})
		app.worker.RegisterHandler(queue.JobTypeTaskReminder, worker.NewReminderHandler(taskService, workerLogger))
	}

	var limiter *middleware.IPRateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstSize, cfg.RateLimit.CleanupInterval)
		monitor.RegisterStats("rate_limiter", func(ctx context.Context) interface{} {
			return map[string]interface{}{"tracked_clients": limiter.Size()}
		})
	}

	app.router = handlers.NewRouter(handlers.RouterConfig{
		AuthService:    authService,
		TaskService:    taskService,
		CommentService: commentService,
		Sessions:       middleware.NewSessionGuard(credentials, cfg.Cookie.Name),
		Cookies: handlers.CookieSettings{
			Name:       cfg.Cookie.Name,
			CrossSite:  cfg.Cookie.CrossSite,
			Production: cfg.IsProduction(),
			MaxAge:     credentials.TokenTTL(),
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AuthLimiter:    limiter,
		Monitor:        monitor,
		Logger:         logger,
	})

	return app, nil
}

func (a *application) close() {
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.logger.Error().Err(err).Msg("failed to close redis client")
		}
	}
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			a.logger.Error().Err(err).Msg("failed to close database pool")
		}
	}
}
