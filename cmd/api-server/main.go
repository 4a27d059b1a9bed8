package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sungwon/heartpost/internal/api"
	"github.com/sungwon/heartpost/internal/compose"
	"github.com/sungwon/heartpost/internal/config"
	"github.com/sungwon/heartpost/internal/dispatch"
	"github.com/sungwon/heartpost/internal/logger"
	"github.com/sungwon/heartpost/internal/provider"
	"github.com/sungwon/heartpost/internal/storage"
	"github.com/sungwon/heartpost/internal/trigger"
)

func main() {
	configPath := flag.String("config", "config", "path to the config directory")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var log = logger.New(cfg.Logging.Level)
	if cfg.Logging.Format == "console" {
		log = logger.NewConsole(cfg.Logging.Level)
	}
	log.Info().Msg("starting heartpost API server")

	// Connect to database
	ctx := context.Background()
	db, err := storage.NewDB(
		ctx,
		cfg.Database.URL,
		cfg.Database.PoolMin,
		cfg.Database.PoolMax,
		cfg.Database.ConnectTimeout,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	log.Info().Msg("database connection established")

	queries := storage.New(db.Pool)

	// Build the delivery provider
	p, err := provider.NewFromConfig(cfg.Provider)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build delivery provider")
	}
	log.Info().Str("provider", p.GetName()).Msg("delivery provider configured")

	// Build the dispatch engine
	engine := dispatch.NewEngine(queries, p, cfg.Dispatch.BatchSize, log)

	// Build the AI drafting helper when configured
	var drafter api.Drafter
	if cfg.Compose.APIKey != "" && cfg.Compose.Model != "" {
		drafter = compose.NewComposer(cfg.Compose, provider.NewHTTPClient(60*time.Second))
		log.Info().Str("model", cfg.Compose.Model).Msg("compose helper configured")
	}

	router := api.NewRouter(api.RouterConfig{
		Queries:    queries,
		DB:         db,
		Engine:     engine,
		Composer:   drafter,
		Log:        log,
		CronSecret: cfg.Dispatch.CronSecret,
	})

	// Optional in-process periodic trigger
	if cfg.Dispatch.EnableCron {
		cronTrigger, err := trigger.New(engine, cfg.Dispatch.CronSchedule, cfg.Dispatch.CycleTimeout, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build dispatch trigger")
		}
		cronTrigger.Start()
		defer cronTrigger.Stop()
	}

	// Configure HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down server")

	// Graceful shutdown with 30-second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
