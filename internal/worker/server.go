package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/config"
)

// Server runs a Processor against the configured queue.
type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
	log *zap.Logger
}

func NewServer(cfg config.RedisConfig, concurrency int, p *Processor, log *zap.Logger) (*Server, error) {
	if !cfg.Enabled() {
		return nil, errors.New("redis url not configured")
	}
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	queue := cfg.QueueName
	if queue == "" {
		queue = "default"
	}
	if concurrency < 1 {
		concurrency = 10
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      log.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.Warn("task failed",
				zap.String("type", task.Type()),
				zap.Int("retry", retried),
				zap.Int("max_retry", maxRetry),
				zap.Error(err),
			)
		}),
	})

	return &Server{srv: srv, mux: p.Mux(), log: log}, nil
}

// Run processes tasks until ctx is cancelled, then waits for in-flight
// handlers to finish.
func (s *Server) Run(ctx context.Context) error {
	if err := s.srv.Start(s.mux); err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}
	s.log.Info("worker started")

	<-ctx.Done()
	s.srv.Shutdown()
	s.log.Info("worker stopped")
	return nil
}
