// Package app manages the lifecycle of the gateway: the HTTP server
// and the background scheduler, supervised together and shut down
// gracefully on signal.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leoedu/leobot/internal/webhook"
)

const shutdownTimeout = 15 * time.Second

// App supervises the long-running components.
type App struct {
	logger    *slog.Logger
	server    *webhook.Server
	scheduler *Scheduler
}

// New creates the application supervisor.
func New(logger *slog.Logger, server *webhook.Server, scheduler *Scheduler) *App {
	return &App{
		logger:    logger.With("component", "app"),
		server:    server,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until the context is cancelled
// or a component fails. Shutdown is graceful within a fixed timeout.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting gateway...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Start(); err != nil {
			a.logger.Error("HTTP server failed", "error", err)

			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return a.server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := a.scheduler.Start(); err != nil {
			a.logger.Error("Failed to start scheduler", "error", err)

			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	a.logger.Info("Gateway running. Waiting for shutdown signal or error...")

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Gateway stopped due to error", "error", err)

		return err
	}

	a.logger.Info("Gateway stopped gracefully.")

	return nil
}
