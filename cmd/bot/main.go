// Package main is the entry point for the betting log bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"betlog-bot/internal/bot"
	"betlog-bot/internal/config"
	"betlog-bot/internal/handler"
	"betlog-bot/internal/metrics"
	"betlog-bot/internal/pkg/db"
	"betlog-bot/internal/pkg/dedupe"
	"betlog-bot/internal/repository"
	"betlog-bot/internal/server"
	"betlog-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Str("mode", cfg.Bot.Mode).Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.MigrateUp(cfg.Database.DSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	ledger := service.NewLedgerService(repository.NewBetRepository(dbPool.Pool))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if err := dbPool.RegisterMetrics(reg); err != nil {
		log.Fatal().Err(err).Msg("Failed to register database metrics")
	}

	telegramBot, err := bot.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	dispatcher := handler.NewDispatcher(cfg, ledger, telegramBot, m)

	if cfg.Bot.Mode == config.ModePolling {
		runPolling(ctx, telegramBot, dispatcher)
		return
	}

	filter, closeFilter := newDedupeFilter(ctx, &cfg.Redis)
	defer closeFilter()

	runWebhook(ctx, cfg, telegramBot, &server.Dependencies{
		Config:     &cfg.Server,
		Dispatcher: dispatcher,
		Dedupe:     filter,
		Health:     dbPool.HealthCheck,
		Gatherer:   reg,
		Metrics:    m,
	})
}

func runPolling(ctx context.Context, telegramBot *bot.Bot, dispatcher *handler.Dispatcher) {
	telegramBot.Attach(dispatcher)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

func runWebhook(ctx context.Context, cfg *config.Config, telegramBot *bot.Bot, deps *server.Dependencies) {
	if err := telegramBot.RegisterWebhook(); err != nil {
		log.Fatal().Err(err).Msg("Failed to register webhook")
	}

	srv := server.New(deps)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
		return
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// newDedupeFilter uses Redis when configured and falls back to process memory.
func newDedupeFilter(ctx context.Context, cfg *config.RedisConfig) (dedupe.Filter, func()) {
	if cfg.Addr == "" {
		log.Info().Msg("Redis not configured, deduplicating updates in memory")
		return dedupe.NewMemoryFilter(cfg.DedupeTTL), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Addr).Msg("Failed to connect to Redis")
	}
	log.Info().Str("addr", cfg.Addr).Msg("Deduplicating updates in Redis")

	return dedupe.NewRedisFilter(client, cfg.DedupeTTL), func() { _ = client.Close() }
}
