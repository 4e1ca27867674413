package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	v1 "github.com/dmehra2102/prod-golang-projects/vetclinic/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/tracer"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/validate"
)

const (
	limiterSweepEvery = time.Minute
	limiterIdleAfter  = 10 * time.Minute
)

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

func runServe(parent context.Context, migrate bool) error {
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

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrate {
		if err := database.Migrate(ctx, a.db, log); err != nil {
			return err
		}
	}

	if err := validate.RegisterGin(a.phones); err != nil {
		return err
	}

	globalLimit := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.BurstSize, log)
	authLimit := middleware.NewAuthRateLimiter(cfg.RateLimit.AuthRequestsPerMinute, log)

	router := v1.NewRouter(v1.RouterDeps{
		Config:      cfg,
		Log:         log,
		Metrics:     a.metrics,
		Tokens:      a.jwt,
		GlobalLimit: globalLimit,
		AuthLimit:   authLimit,
		Ready:       a.ping,
		Handlers: v1.Handlers{
			Auth:          v1.NewAuthHandler(a.auth),
			Clients:       v1.NewClientHandler(a.clients, a.qr),
			Pets:          v1.NewPetHandler(a.pets, a.qr),
			Veterinarians: v1.NewVeterinarianHandler(a.vets, a.loc),
			Catalog:       v1.NewCatalogHandler(a.catalog),
			Appointments:  v1.NewAppointmentHandler(a.appointments, a.loc),
			Records:       v1.NewMedicalRecordHandler(a.records, a.loc, cfg.Storage.MaxUploadBytes),
			Invoices:      v1.NewInvoiceHandler(a.invoices, a.loc),
			Notifications: v1.NewNotificationHandler(a.notifications),
			QR:            v1.NewQRHandler(a.qr),
		},
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           otelhttp.NewHandler(router, cfg.Tracing.ServiceName),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		globalLimit.RunSweeper(gctx, limiterSweepEvery, limiterIdleAfter)
		return nil
	})
	g.Go(func() error {
		authLimit.RunSweeper(gctx, limiterSweepEvery, limiterIdleAfter)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
