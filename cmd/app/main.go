package main

import (
	"compress/gzip"
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/leap-learning/leap-server/internal/bootstrap"
	"github.com/leap-learning/leap-server/internal/http/routes"
	"github.com/leap-learning/leap-server/pkg/cache"
	"github.com/leap-learning/leap-server/pkg/config"
	"github.com/leap-learning/leap-server/pkg/database"
	"github.com/leap-learning/leap-server/pkg/jobs"
	"github.com/leap-learning/leap-server/pkg/logger"
	"github.com/leap-learning/leap-server/pkg/metrics"
	"github.com/leap-learning/leap-server/pkg/middleware"
	"github.com/leap-learning/leap-server/pkg/request"
	socketioserver "github.com/leap-learning/leap-server/pkg/socketio"
	"github.com/leap-learning/leap-server/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.Env, cfg.Version, appLogger)
	if err != nil {
		appLogger.Error("tracing setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			appLogger.Error("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	db, err := database.Connect(ctx, cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(db, appLogger); err != nil {
			appLogger.Error("database close failed", slog.String("error", err.Error()))
		}
	}()

	if err := bootstrap.ApplyDatabaseMigrations(ctx, db, cfg, appLogger); err != nil {
		appLogger.Error("migrations failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	durable, err := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		appLogger.Error("cache connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer durable.Close()

	model, err := bootstrap.NewGemini(ctx, cfg.Gemini)
	if err != nil {
		appLogger.Error("generation client initialization failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	videos, err := bootstrap.NewYouTube(ctx, cfg.YouTube, appLogger)
	if err != nil {
		appLogger.Error("video search initialization failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	mailer, err := bootstrap.NewMailer(cfg.Email, appLogger)
	if err != nil {
		appLogger.Error("email initialization failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	socketIOServer := socketioserver.NewServer(db, appLogger, cfg.JWTSecret)
	defer socketIOServer.Close()
	appLogger.Info("socket.io server initialized")

	router := gin.New()

	// Socket.IO is mounted before the full stack; it only needs recovery and CORS.
	router.Use(middleware.Recovery(appLogger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	router.GET("/socket.io/*any", gin.WrapH(socketIOServer.GetHandler()))
	router.POST("/socket.io/*any", gin.WrapH(socketIOServer.GetHandler()))

	router.Use(middleware.RequestID())
	router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	router.Use(middleware.Compression(gzip.BestSpeed, []string{"/socket.io"}, []string{"/pdf", "/preview"}))
	router.Use(middleware.RequestLogger(appLogger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.NoStore("/api"))
	router.Use(middleware.RequestSizeLimit(10 * 1024 * 1024))
	router.Use(metrics.Middleware())
	router.Use(request.Handler(appLogger))

	services := routes.Register(router, routes.Deps{
		Config:   cfg,
		DB:       db,
		Logger:   appLogger,
		Cache:    durable,
		Model:    model,
		Videos:   videos,
		Mailer:   mailer,
		Notifier: socketIOServer,
	})
	defer services.Close()

	scheduler := jobs.NewScheduler(appLogger)
	scheduler.AddJob(
		jobs.NewStalePendingCertificateJob(db, cfg.Certificate.PendingTimeout, appLogger),
		cfg.Certificate.SweepInterval,
	)
	if cfg.Certificate.RetryFailed {
		scheduler.AddJob(
			jobs.NewFailedCertificateRedeliveryJob(services.Certificates, 25, appLogger),
			cfg.Certificate.SweepInterval,
		)
	}
	scheduler.AddJob(jobs.NewRateLimitSweepJob(services.GenerationLimiter, appLogger), 10*time.Minute)
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// Lesson generation can hold a request through several retries.
		WriteTimeout:   3 * time.Minute,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		appLogger.Info("server starting",
			slog.String("addr", cfg.ServerAddress()),
			slog.String("env", cfg.Env),
			slog.String("log_level", cfg.LogLevel),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server listen failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server shutdown failed", slog.String("error", err.Error()))
	} else {
		appLogger.Info("server stopped gracefully")
	}
}
