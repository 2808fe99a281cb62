package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prizewheel/internal/config"
	pg "prizewheel/internal/infra/db/postgres"
	"prizewheel/internal/infra/logging"
	"prizewheel/internal/infra/metrics"
	red "prizewheel/internal/infra/redis"
	"prizewheel/internal/infra/sched"
	"prizewheel/internal/infra/web"
	"prizewheel/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis (optional: rate limiting only) ----
	var limiter *red.RateLimiter
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; validate endpoint runs unthrottled")
	} else {
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
	}

	// ---- Repositories & use case ----
	codeRepo := pg.NewCodeRepo(pool)
	txm := pg.NewTxManager(pool)
	uc := usecase.NewRedemptionUseCase(
		codeRepo, txm, usecase.RandomCode,
		cfg.Codes.ValidityWindow, cfg.Codes.MaxGenerateRetries, logger,
	)

	// ---- Background stats sweep ----
	worker := sched.NewStatsWorker(cfg.Sched.StatsInterval, uc, logger)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("stats worker stopped")
		}
	}()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Security.JWTSecret, cfg.Security.JWTTTL)
	server := web.NewServer(cfg, uc, limiter, auth, logger)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
