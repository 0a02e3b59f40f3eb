package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nbeast/nbeast/config"
	"github.com/nbeast/nbeast/internal/auth"
	"github.com/nbeast/nbeast/internal/email"
	"github.com/nbeast/nbeast/internal/health"
	"github.com/nbeast/nbeast/internal/infrastructure/postgres"
	redisinfra "github.com/nbeast/nbeast/internal/infrastructure/redis"
	"github.com/nbeast/nbeast/internal/janitor"
	ctxlog "github.com/nbeast/nbeast/internal/log"
	"github.com/nbeast/nbeast/internal/metrics"
	"github.com/nbeast/nbeast/internal/signin"
	httptransport "github.com/nbeast/nbeast/internal/transport/http"
	"github.com/nbeast/nbeast/internal/transport/http/handler"
	"github.com/nbeast/nbeast/internal/transport/http/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisinfra.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	sendRecordRepo := postgres.NewSendRecordRepository(pool)

	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	deliverer := email.NewDeliverer(sendRecordRepo, sender, logger, cfg.AppName)
	sessionCache := redisinfra.NewSessionCache(redisClient, redisinfra.DefaultTTL)

	authService := auth.NewService(userRepo, sessionRepo, sessionCache, deliverer,
		logger, []byte(cfg.JWTSecret), cfg.BaseURL)

	// The sign-in flow store drives page-initiated sends. A rate-limited
	// delivery is not an error from the flow's point of view: the link the
	// visitor is waiting for already went out.
	flows := signin.NewStore(func(ctx context.Context, addr string) error {
		result, err := authService.RequestMagicLink(ctx, auth.MagicLinkRequest{
			Email:  addr,
			Locale: email.LocaleSourceFromContext(ctx),
		})
		if err != nil {
			return err
		}
		if !result.Success && !result.RateLimited {
			return fmt.Errorf("magic link delivery: %s", result.Error)
		}
		return nil
	})
	defer flows.Stop()

	providers := auth.Providers(cfg.GoogleClientID, cfg.GoogleClientSecret,
		cfg.GitHubClientID, cfg.GitHubClientSecret)
	authHandler := handler.NewAuthHandler(authService, providers, logger)
	pages := handler.NewPages(flows, authService, logger, cfg.AppName)

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer limiter.Stop()

	metrics.Register()
	checker := health.NewChecker(pool, redisinfra.Pinger{Client: redisClient}, logger, prometheus.DefaultRegisterer)

	cleaner := janitor.New(userRepo, sessionRepo, sendRecordRepo, logger)
	if err := cleaner.Start(ctx); err != nil {
		log.Fatalf("janitor: %v", err)
	}
	defer cleaner.Stop()

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, authService, authHandler, pages, limiter),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
