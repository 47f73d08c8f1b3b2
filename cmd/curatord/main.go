// Command curatord runs the attention-aware image curation daemon: an HTTP
// API in front of the priority scheduler, lifecycle registry, event log and
// the single inference worker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fokal/curator/internal/api"
	"github.com/fokal/curator/internal/config"
	"github.com/fokal/curator/internal/events"
	"github.com/fokal/curator/internal/infer"
	"github.com/fokal/curator/internal/platform/logger"
	"github.com/fokal/curator/internal/registry"
	"github.com/fokal/curator/internal/sched"
	"github.com/fokal/curator/internal/service"
	"github.com/fokal/curator/internal/strategy"
	"github.com/fokal/curator/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "curatord: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.Server)
	log.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"viewport_boost", cfg.Scheduler.ViewportBoost,
		"intent_boost", cfg.Scheduler.IntentBoost,
		"decay_factor", cfg.Scheduler.DecayFactor)

	weights, err := infer.LoadWeights(cfg.Infer.WeightsPath, log)
	if err != nil {
		return fmt.Errorf("failed to load inference weights: %w", err)
	}

	scheduler := sched.New(sched.Config{
		ViewportBoost: cfg.Scheduler.ViewportBoost,
		IntentBoost:   cfg.Scheduler.IntentBoost,
		DecayFactor:   cfg.Scheduler.DecayFactor,
	}, log)
	reg := registry.New(log)
	eventLog := events.NewLog(log)
	strategies := strategy.NewSelector(log)

	curator := service.New(scheduler, reg, eventLog, strategies, log)

	w := worker.New(
		scheduler,
		reg,
		eventLog,
		infer.NewEngine(weights),
		infer.NewVectorizer(log),
		strategies,
		worker.Config{
			BatchSize:    cfg.Worker.BatchSize,
			IdleInterval: cfg.Worker.IdleInterval,
		},
		log,
	)

	w.Start()
	defer w.Stop()

	curator.StartTicks(cfg.Scheduler.DecayInterval)
	defer curator.StopTicks()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(curator, log),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdownCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("server shutdown completed")
	return nil
}
