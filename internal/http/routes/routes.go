package routes

import (
	"log/slog"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/auth"
	"github.com/leap-learning/leap-server/internal/features/certificate"
	"github.com/leap-learning/leap-server/internal/features/content"
	"github.com/leap-learning/leap-server/internal/features/course"
	"github.com/leap-learning/leap-server/internal/features/dashboard"
	"github.com/leap-learning/leap-server/internal/features/generation"
	"github.com/leap-learning/leap-server/internal/features/progress"
	"github.com/leap-learning/leap-server/internal/features/roadmap"
	"github.com/leap-learning/leap-server/internal/features/user"
	"github.com/leap-learning/leap-server/internal/features/video"
	"github.com/leap-learning/leap-server/internal/middleware"
	"github.com/leap-learning/leap-server/internal/utils/jwt"
	"github.com/leap-learning/leap-server/pkg/cache"
	"github.com/leap-learning/leap-server/pkg/config"
	"github.com/leap-learning/leap-server/pkg/email"
	"github.com/leap-learning/leap-server/pkg/gemini"
	"github.com/leap-learning/leap-server/pkg/health"
	"github.com/leap-learning/leap-server/pkg/metrics"
	pkgmiddleware "github.com/leap-learning/leap-server/pkg/middleware"
	"github.com/leap-learning/leap-server/pkg/socketio"
	"github.com/leap-learning/leap-server/pkg/validation"
	"github.com/leap-learning/leap-server/pkg/youtube"
)

// Deps are the shared clients every feature is built from. Cache, Videos and
// Mailer may be nil.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Logger   *slog.Logger
	Cache    cache.Client
	Model    gemini.Client
	Videos   youtube.Searcher
	Mailer   email.Sender
	Notifier socketio.Notifier
}

// Services exposes the long-lived pieces main needs after registration.
type Services struct {
	Certificates      *certificate.Service
	GenerationLimiter *pkgmiddleware.RateLimiter

	closers []func()
}

// Close releases the in-process caches created during registration.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// generationRequests bounds model calls per user per minute.
const generationRequests = 20

// UserOrIP keys rate limits by the authenticated user, falling back to the client IP.
func UserOrIP(c *gin.Context) string {
	if usr, ok := middleware.GetUserFromContext(c); ok {
		return "user:" + usr.ID.String()
	}
	return "ip:" + pkgmiddleware.ClientIP(c)
}

// Register wires all feature routes onto the engine.
func Register(engine *gin.Engine, deps Deps) *Services {
	cfg, db, logger := deps.Config, deps.DB, deps.Logger
	validation.RegisterGin()

	notifier := deps.Notifier
	if notifier == nil {
		notifier = socketio.Nop{}
	}

	// Health check endpoints (no /api prefix for Kubernetes probes)
	var pingers map[string]health.Pinger
	if deps.Cache != nil {
		pingers = map[string]health.Pinger{"cache": deps.Cache}
	}
	healthHandler := health.NewHandler(db, logger, pingers)
	engine.GET("/health", healthHandler.Health)
	engine.GET("/ready", healthHandler.Ready)
	engine.GET("/version", healthHandler.Version)

	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	if !cfg.IsProduction() {
		engine.GET("/debug/db-stats", healthHandler.DBStats)
	}

	api := engine.Group("/api")

	middleware.Initialize(db, cfg.JWTSecret, logger)
	authenticated := slices.Clip(middleware.Authenticated())

	limiter := pkgmiddleware.NewRateLimiter(generationRequests, time.Minute, UserOrIP)
	limited := slices.Clip(append(slices.Clone(authenticated), limiter.Middleware()))

	services := &Services{GenerationLimiter: limiter}

	authHandler := auth.NewHandler(db, logger, auth.Config{
		Tokens: jwt.TokenConfig{
			AccessSecret:  cfg.JWTSecret,
			RefreshSecret: cfg.JWTRefreshSecret,
			AccessTTL:     cfg.AccessTokenTTL,
			RefreshTTL:    cfg.RefreshTokenTTL,
		},
		ResetTTL:    cfg.PasswordResetTTL,
		FrontendURL: cfg.Email.FrontendURL,
	}, deps.Mailer)
	auth.RegisterRoutes(api, authHandler, authenticated)

	userHandler := user.NewHandler(db, logger)
	user.RegisterRoutes(api, userHandler, authenticated)

	gateway := generation.NewGateway(deps.Model, logger,
		generation.WithMaxAttempts(cfg.Gemini.MaxAttempts),
		generation.WithBaseDelay(cfg.Gemini.BaseDelay),
	)
	generationService := generation.NewService(gateway, logger)
	generation.RegisterRoutes(api, generation.NewHandler(generationService, logger), limited)

	contentCache := content.NewCache(db, deps.Cache, content.CacheConfig{
		SessionTTL: cfg.Cache.ContentSessionTTL,
		DurableTTL: cfg.Cache.ContentDurableTTL,
	}, logger)
	services.closers = append(services.closers, contentCache.Close)

	courseService := course.NewService(db, contentCache, logger)
	course.RegisterRoutes(api, course.NewHandler(db, courseService, logger), authenticated)

	sessions := roadmap.NewSessionStore(cfg.Cache.EditorSessionTTL)
	services.closers = append(services.closers, sessions.Close)
	roadmap.RegisterRoutes(api, roadmap.NewHandler(sessions, courseService, generationService, logger), limited)

	curator := video.NewCurator(db, deps.Videos, video.CuratorConfig{
		MaxResults:  int64(cfg.YouTube.MaxResults),
		Concurrency: cfg.YouTube.Concurrency,
		DraftTTL:    cfg.Cache.VideoDraftTTL,
	}, logger)
	services.closers = append(services.closers, curator.Close)
	video.RegisterRoutes(api, video.NewHandler(db, curator, logger), authenticated)

	resolver := content.NewResolver(contentCache, generationService, notifier, logger)
	content.RegisterRoutes(api, content.NewHandler(db, resolver, logger), limited)

	progress.RegisterRoutes(api, progress.NewHandler(db, notifier, logger), authenticated)

	var mailer certificate.Mailer
	if deps.Mailer != nil {
		mailer = deps.Mailer
	}
	certificates := certificate.NewService(db, mailer, notifier, cfg.Certificate.Issuer, logger)
	services.Certificates = certificates
	certificate.RegisterRoutes(api, certificate.NewHandler(db, certificates, logger), authenticated)

	dashboard.RegisterRoutes(api, dashboard.NewHandler(db, logger), authenticated)

	return services
}
