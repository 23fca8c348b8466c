package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/doclab-pl/doclab/internal/app"
	"github.com/doclab-pl/doclab/internal/common"
	"github.com/doclab-pl/doclab/internal/queue"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if a.Queue == nil {
		logger.Error("BLOB_BUCKET is required for the worker")
		os.Exit(2)
	}

	interval := pollInterval()
	logger.Info("worker polling", "interval", interval)

	worker := queue.NewWorker(a.Queue, a.Verifier, logger)
	if err := worker.Run(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func pollInterval() time.Duration {
	if v := os.Getenv("WORKER_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return 30 * time.Second
}
