// Package main contains the entrypoint for the LeoBot gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/leoedu/leobot/internal/analytics"
	"github.com/leoedu/leobot/internal/app"
	"github.com/leoedu/leobot/internal/config"
	"github.com/leoedu/leobot/internal/crisis"
	"github.com/leoedu/leobot/internal/database"
	"github.com/leoedu/leobot/internal/evolution"
	"github.com/leoedu/leobot/internal/llm"
	"github.com/leoedu/leobot/internal/logger"
	"github.com/leoedu/leobot/internal/memory"
	"github.com/leoedu/leobot/internal/metrics"
	"github.com/leoedu/leobot/internal/rag"
	"github.com/leoedu/leobot/internal/ratelimit"
	"github.com/leoedu/leobot/internal/router"
	"github.com/leoedu/leobot/internal/security"
	"github.com/leoedu/leobot/internal/session"
	"github.com/leoedu/leobot/internal/webhook"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components, starts the gateway and returns an
// exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	// A missing .env is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)

	store := database.NewStore(db, log)

	modelClient, err := llm.NewClient(ctx, cfg.LLM, log)
	if err != nil {
		log.Error("Failed to initialize model client", "error", err)
		return 1
	}

	m := metrics.New()

	conversation := memory.New(cfg.Memory.Window, store, log)
	sessions := session.NewManager(store, log)
	retriever := rag.NewRetriever(store, log)
	reindexer := rag.NewReindexer(cfg.RAG.IndexerURL, cfg.RAG.ReindexTimeout, log)

	rtr := router.New(router.Deps{
		Security:  security.NewFilter(log),
		Crisis:    crisis.NewDetector(store, log),
		Limiter:   ratelimit.NewLimiter(cfg.Rate.MinInterval, cfg.Rate.HourlyCap),
		Memory:    conversation,
		Sessions:  sessions,
		Model:     modelClient,
		Retriever: retriever,
		Reindexer: reindexer,
		Usage:     store,
		Metrics:   m,
	}, cfg, log)

	sender := evolution.NewClient(cfg.Evolution, log)
	trigger := analytics.NewTrigger(modelClient, store, log)
	processor := webhook.NewProcessor(rtr, sender, trigger, conversation, m, cfg.Messages.GeneralError, log)

	server := webhook.NewServer(cfg.Server.Port, processor, store, log)

	sched, err := app.NewScheduler(log, &cfg.Scheduler, app.BuildTaskRegistry(store, reindexer, log))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	gateway := app.New(log, server, sched)

	log.Info("Starting gateway...")
	runErr := gateway.Run(ctx)
	log.Info("Gateway run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Gateway stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Gateway stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
