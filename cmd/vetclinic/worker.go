package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/worker"
)

func workerCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the background job processor (notification delivery, reminders)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context(), concurrency)
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 10, "jobs processed in parallel")
	return cmd
}

func runWorker(parent context.Context, concurrency int) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if !cfg.Redis.Enabled() {
		return errors.New("the worker needs REDIS_URL")
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	// Reminders enqueue their delivery through the same client the API uses.
	jobs, err := worker.NewClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer jobs.Close()

	p := worker.NewProcessor(a.notifications, a.appointments, jobs, log)
	srv, err := worker.NewServer(cfg.Redis, concurrency, p, log)
	if err != nil {
		return err
	}

	log.Info("worker started", zap.Int("concurrency", concurrency), zap.String("queue", cfg.Redis.QueueName))
	return srv.Run(ctx)
}
