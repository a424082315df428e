// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-content-relay/internal/application"
	"telegram-content-relay/internal/config"
	"telegram-content-relay/internal/infra/api"
	"telegram-content-relay/internal/infra/db/postgres"
	"telegram-content-relay/internal/infra/logging"
	"telegram-content-relay/internal/infra/metrics"
	red "telegram-content-relay/internal/infra/redis"
	"telegram-content-relay/internal/infra/security"
	"telegram-content-relay/internal/infra/telegram"
	"telegram-content-relay/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dev := flag.Bool("dev", false, "development mode")
	flag.Parse()

	if err := run(*configPath, *dev); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(configPath string, dev bool) error {
	cfg, err := config.LoadConfig(configPath, dev)
	if err != nil {
		return err
	}

	log := logging.New(cfg.Log, dev)
	log.Info().Bool("dev", dev).Msg("starting relay engine")

	metrics.MustRegister()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := os.MkdirAll(cfg.Relay.TempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	cipher, err := security.NewSessionCipher(cfg.Security.EncryptionKey)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}

	jobRepo := postgres.NewJobRepo(pool, log)
	userRepo := postgres.NewUserRepo(pool)
	stateRepo := red.NewStateRepo(redisClient, cfg.Redis.StateTTL)
	locker := red.NewLocker(redisClient)
	limiter := red.NewRateLimiter(redisClient)

	defaultBot, err := telegram.NewClient(cfg.Bot.Token, cfg.Relay.StagingChatID, log)
	if err != nil {
		return fmt.Errorf("start default bot: %w", err)
	}
	factory := telegram.NewFactory(cfg.Relay.StagingChatID, log)

	clientPool := usecase.NewClientPool(factory, userRepo, cipher, locker, defaultBot, cfg.Relay.SharedSession, log)
	transform := usecase.NewPrefTextTransform(userRepo)
	pipeline := usecase.NewPipeline(
		userRepo, transform,
		cfg.Relay.TempDir,
		cfg.Relay.SizeCapMB, cfg.Relay.PartSizeMB,
		cfg.Relay.StagingChatID,
		log,
	)
	relayUC := usecase.NewRelayUC(ctx, jobRepo, clientPool, pipeline, cfg.Relay.ItemDelay, log)
	quota := usecase.NewQuotaPolicy(userRepo, cfg.Relay.FreeLimit, cfg.Relay.PremiumLimit)
	flowUC := usecase.NewFlowUC(stateRepo, relayUC, quota, log)

	facade := application.NewRelayFacade(flowUC, relayUC, userRepo, cipher, clientPool, log)

	if err := relayUC.RecoverOrphans(ctx); err != nil {
		log.Warn().Err(err).Msg("orphan recovery failed")
	}

	transport := telegram.NewTransport(defaultBot, &cfg.Bot, facade, limiter, log)

	errCh := make(chan error, 2)
	go func() {
		errCh <- transport.StartPolling(ctx)
	}()

	var adminServer *api.Server
	if cfg.Admin.Port > 0 {
		adminServer = api.NewServer(cfg.Admin.Port, cfg.Admin.JWTSecret, facade, log)
		go func() {
			errCh <- adminServer.Start()
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("component failed, shutting down")
		}
	}

	cancel()
	transport.StopPolling()
	if adminServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = adminServer.Shutdown(shutdownCtx)
	}
	relayUC.Shutdown()
	log.Info().Msg("stopped")
	return nil
}
