package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"experiencehub/internal/core/services"
	httphandlers "experiencehub/internal/handlers/http"
	"experiencehub/internal/infrastructure/distributed"
	"experiencehub/internal/infrastructure/jobs"
	"experiencehub/internal/infrastructure/middleware"
	"experiencehub/internal/infrastructure/monitoring"
	"experiencehub/internal/infrastructure/realtime"
	"experiencehub/internal/infrastructure/reliability"
	"experiencehub/internal/infrastructure/repositories"
	"experiencehub/internal/infrastructure/repositories/gormstore"
	"experiencehub/pkg/circuitbreaker"
	"experiencehub/pkg/config"
	"experiencehub/pkg/logger"
	"experiencehub/pkg/retry"
	"experiencehub/pkg/tracing"
)

func main() {
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/experiencehub/config.yaml",
		"config.yaml",
	}

	cfg, configPath, err := config.LoadFirst(configPaths...)
	if err != nil {
		logger.New("info").Sugar().Fatalw("failed to load configuration", "path", configPath, "error", err)
	}

	zapLogger := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()
	ctxLogger := logger.NewContextLogger(zapLogger)

	if configPath == "" {
		log.Infow("no config file found, using defaults and environment", "searched", configPaths)
	} else {
		log.Infow("loaded configuration", "path", configPath)
	}

	instanceID := cfg.Backplane.InstanceID
	if instanceID == "" {
		host, _ := os.Hostname()
		instanceID = host + "-" + uuid.NewString()[:8]
	}

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	repoFactory, err := repositories.NewRepositoryFactory(cfg, instanceID, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}

	var metrics realtime.Metrics
	var circuitObserver reliability.StateObserver
	var collector *monitoring.PrometheusCollector
	if cfg.Monitoring.PrometheusEnabled {
		collector = monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)
		metrics = collector
		circuitObserver = collector
	}

	// Realtime core
	hub := realtime.NewHub(repoFactory.Presence(), log)

	var backplane realtime.Backplane
	if cfg.Backplane.Enabled {
		if client := repoFactory.RedisClient(); client != nil {
			backplane = reliability.NewResilientBackplane(
				distributed.NewRedisBackplane(client, cfg.Backplane.Channel, instanceID, log),
				reliability.Options{
					Retry: retry.Config{
						MaxAttempts:  cfg.Backplane.PublishRetry.MaxAttempts,
						InitialDelay: cfg.Backplane.PublishRetry.InitialDelay,
						MaxDelay:     cfg.Backplane.PublishRetry.MaxDelay,
						Multiplier:   2,
						Jitter:       true,
					},
					Breaker: circuitbreaker.Config{
						FailureThreshold:    cfg.Backplane.CircuitBreaker.FailureThreshold,
						SuccessThreshold:    cfg.Backplane.CircuitBreaker.SuccessThreshold,
						OpenTimeout:         cfg.Backplane.CircuitBreaker.OpenTimeout,
						MaxRequestsHalfOpen: 1,
					},
				},
				circuitObserver,
				log,
			)
		} else {
			log.Warn("backplane enabled but Redis is unavailable, running single instance")
		}
	}
	broadcaster := realtime.NewBroadcaster(hub, backplane, instanceID, metrics, log)

	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL)
	authenticator := services.NewConnectionAuthenticator(authService, repoFactory.Users(), log)
	notificationService := services.NewNotificationService(repoFactory.Notifications(), repoFactory.Portfolios(), log)
	verificationService := services.NewVerificationService(repoFactory.Experiences(), notificationService, broadcaster, log)
	ownerResolver := services.NewCachedOwnerResolver(repoFactory.Portfolios(), cfg.Cache.PortfolioOwnerTTL)

	router := realtime.NewRouter(hub, cfg.Realtime.EventTimeout, metrics, log)
	realtime.NewEventHandlers(hub, broadcaster, notificationService, verificationService, ownerResolver, log).Register(router)

	socketServer := realtime.NewServer(hub, router, authenticator, realtime.Options{
		PingInterval:    cfg.Realtime.PingInterval,
		PongTimeout:     cfg.Realtime.PongTimeout,
		WriteTimeout:    cfg.Realtime.WriteTimeout,
		SendBuffer:      cfg.Realtime.SendBuffer,
		MaxMessageSize:  cfg.Realtime.MaxMessageSize,
		EventsPerSecond: cfg.RateLimiting.WebSocket.EventsPerSecond,
		EventBurst:      cfg.RateLimiting.WebSocket.Burst,
		AllowedOrigins:  cfg.Realtime.AllowedOrigins,
		AuthTimeout:     cfg.Realtime.AuthTimeout,
	}, metrics, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := broadcaster.Start(ctx); err != nil {
		log.Fatalw("failed to subscribe to backplane", "error", err)
	}

	scheduler := jobs.NewScheduler(log)
	if presence := repoFactory.RedisPresence(); presence != nil {
		if err := scheduler.Add(ctx, jobs.Job{
			Name:  "presence-refresh",
			Every: cfg.Presence.TTL / 3,
			Run:   presence.RefreshInstance,
		}); err != nil {
			log.Fatalw("failed to schedule presence refresh", "error", err)
		}
	}
	if collector != nil {
		if err := scheduler.Add(ctx, jobs.Job{
			Name:  "rooms-sample",
			Every: cfg.Monitoring.HealthCheckInterval,
			Run: func(context.Context) error {
				collector.RoomsSampled(hub.RoomCount())
				return nil
			},
		}); err != nil {
			log.Fatalw("failed to schedule room sampling", "error", err)
		}
	}
	scheduler.Start()

	// Health
	checker := monitoring.NewHealthChecker(log)
	if db := repoFactory.DB(); db != nil {
		checker.AddCheck("database", func(ctx context.Context) error {
			return gormstore.Ping(ctx, db)
		}, cfg.Monitoring.HealthCheckInterval, cfg.Monitoring.HealthCheckTimeout)
	}
	checker.AddRedisCheck(repoFactory.RedisClient(), cfg.Monitoring.HealthCheckInterval, cfg.Monitoring.HealthCheckTimeout)
	checker.StartBackgroundChecks(ctx)

	// HTTP
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.RequestIDMiddleware(ctxLogger),
		middleware.RecoveryMiddleware(log),
		middleware.TracingMiddleware(),
		middleware.ErrorHandlerMiddleware(ctxLogger),
	)

	httphandlers.NewHealthHandler(checker).SetupRoutes(engine)
	if cfg.Monitoring.PrometheusEnabled {
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	engine.GET(cfg.Realtime.Path,
		middleware.NewWebSocketRateLimitMiddleware(cfg),
		gin.WrapF(socketServer.HandleWebSocket),
	)

	api := engine.Group("/api/v1",
		middleware.NewHTTPRateLimitMiddleware(cfg),
		middleware.AuthMiddleware(authenticator),
	)
	httphandlers.NewAuthHandler().SetupRoutes(api)
	httphandlers.NewNotificationHandler(notificationService, broadcaster, log).SetupRoutes(api)
	httphandlers.NewExperienceHandler(verificationService).SetupRoutes(api)
	httphandlers.NewPresenceHandler(repoFactory.Presence()).SetupRoutes(api)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("Starting ExperienceHub realtime server",
			"address", cfg.Server.Address,
			"socket_path", cfg.Realtime.Path,
			"instance_id", instanceID,
			"backplane", backplane != nil,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down ExperienceHub realtime server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	}

	// hijacked sockets are not covered by srv.Shutdown
	socketServer.Shutdown()
	scheduler.Stop()
	cancel()

	if backplane != nil {
		if err := backplane.Close(); err != nil {
			log.Errorw("Error closing backplane", "error", err)
		}
	}
	if presence := repoFactory.RedisPresence(); presence != nil {
		if err := presence.CleanupInstance(shutdownCtx); err != nil {
			log.Errorw("Error cleaning up presence", "error", err)
		}
	}
	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}

	log.Info("ExperienceHub realtime server stopped")
}
