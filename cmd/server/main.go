package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/aisessions/server/internal/config"
	"github.com/aisessions/server/internal/database"
	"github.com/aisessions/server/internal/handler"
	"github.com/aisessions/server/internal/jobs"
	"github.com/aisessions/server/internal/logger"
	"github.com/aisessions/server/internal/middleware"
	"github.com/aisessions/server/internal/redis"
	"github.com/aisessions/server/internal/repository"
	"github.com/aisessions/server/internal/service"
	"github.com/aisessions/server/internal/store"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Configure(logger.Options{})
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logCloser := logger.Configure(logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer logCloser.Close()

	isProduction := cfg.IsProduction()
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("database connected")

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), config.MigrationTimeout)
	if err := db.Migrate(migrateCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	migrateCancel()

	redisClient, err := redis.NewClient(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	loginSessionRepo := repository.NewLoginSessionRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	topicRepo := repository.NewTopicRepository(db.DB)
	voteRepo := repository.NewVoteRepository(db.DB)
	adminRepo := repository.NewAdminRepository(db.DB)

	adminService := service.NewAdminService(adminRepo, userRepo)
	sessionService := service.NewSessionService(db, sessionRepo, topicRepo, adminService)
	topicService := service.NewTopicService(topicRepo, adminService)
	voteService := service.NewVoteService(db, voteRepo, topicRepo)
	authService := service.NewAuthService(cfg, userRepo, loginSessionRepo, adminService, service.DefaultGoogleEndpoints())
	backend := service.NewBackend(sessionService, topicService, voteService, adminService)

	voteCache := store.NewRedisVoteCache(redisClient.Client, config.VoteCacheTTL)
	registry := store.NewRegistry(backend, voteCache, cfg.StoreIdleTTL())

	rateLimiter := service.NewRateLimiter(redisClient.Client)
	mutationLimit := middleware.NewUserRateLimitMiddleware(rateLimiter, cfg.VoteRateLimitPerMin, config.RateLimitWindow, "api")
	loginLimit := middleware.NewIPRateLimitMiddleware(rateLimiter, config.LoginRateLimitPerWindow, config.RateLimitWindow, "login")
	userSession := middleware.NewUserSessionMiddleware(authService)
	csrfMiddleware := middleware.NewCSRFMiddleware(isProduction)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	authHandler := handler.NewAuthHandler(authService, registry, cfg.LoginSessionTTL(), isProduction)
	storeHandler := handler.NewStoreHandler(registry)
	adminHandler := handler.NewAdminHandler(adminService, registry)
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": db.Ping,
		"redis":    redisClient.Ping,
	})

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", healthHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(securityHeadersMiddleware.Handler)
		r.Use(userSession.Handler)
		r.Use(csrfMiddleware.Handler)

		r.Get("/", handler.Root)
		r.Mount("/auth", authHandler.Routes(loginLimit.Handler))
		r.Mount("/api/admins", adminHandler.Routes(mutationLimit.Handler))
		r.Mount("/api", storeHandler.Routes(mutationLimit.Handler))
	})

	cleanupJob := jobs.NewCleanupJob(authService, registry, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Bool("production", isProduction).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
