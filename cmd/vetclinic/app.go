package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/config"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/worker"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/lock"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/mailer"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/phone"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/storage"
)

// app is the composition root shared by the serve and worker commands.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	metrics *metrics.Collector
	loc     *time.Location
	phones  *phone.Normalizer
	jwt     *auth.JWTManager

	audit         *service.AuditService
	auth          *service.AuthService
	clients       *service.ClientService
	pets          *service.PetService
	vets          *service.VeterinarianService
	catalog       *service.CatalogService
	appointments  *service.AppointmentService
	records       *service.MedicalRecordService
	invoices      *service.InvoiceService
	notifications *service.NotificationService
	qr            *service.QRService

	closers []func()
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	zap.ReplaceGlobals(log)
	return cfg, log, nil
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	loc, err := time.LoadLocation(cfg.Scheduling.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading clinic time zone: %w", err)
	}
	a.loc = loc

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.onClose(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	a.metrics = metrics.NewCollector(metricsNamespace(cfg.App.Name), prometheus.DefaultRegisterer)
	a.phones = phone.NewNormalizer(cfg.Public.PhoneDefaultRegion)
	a.jwt = auth.NewJWTManager(cfg.JWT)

	locker, err := a.newLocker()
	if err != nil {
		a.Close()
		return nil, err
	}
	jobs, err := a.newJobs()
	if err != nil {
		a.Close()
		return nil, err
	}
	store, err := a.newStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var (
		tx          = postgres.NewTransactor(db)
		users       = postgres.NewUserRepository(db)
		clientRepo  = postgres.NewClientRepository(db)
		petRepo     = postgres.NewPetRepository(db)
		vetRepo     = postgres.NewVeterinarianRepository(db)
		catalogRepo = postgres.NewCatalogRepository(db)
		apptRepo    = postgres.NewAppointmentRepository(db)
		recordRepo  = postgres.NewMedicalRecordRepository(db)
		invoiceRepo = postgres.NewInvoiceRepository(db)
		notifRepo   = postgres.NewNotificationRepository(db)
		deviceRepo  = postgres.NewDeviceTokenRepository(db)
		auditRepo   = postgres.NewAuditRepository(db)
	)

	a.audit = service.NewAuditService(auditRepo, a.metrics, log)
	a.onClose(a.audit.Shutdown)

	a.auth = service.NewAuthService(users, clientRepo, vetRepo, tx, a.phones, a.jwt, a.audit, log)
	a.clients = service.NewClientService(clientRepo, petRepo, apptRepo, a.phones, a.audit, log)
	a.pets = service.NewPetService(petRepo, clientRepo, apptRepo, recordRepo, a.audit, log)
	a.vets = service.NewVeterinarianService(vetRepo, apptRepo, tx, a.audit, loc, log)
	a.catalog = service.NewCatalogService(catalogRepo, a.audit, log)
	a.qr = service.NewQRService(petRepo, clientRepo, apptRepo, cfg.Public.BaseURL)
	a.notifications = service.NewNotificationService(notifRepo, deviceRepo, users, a.newMailer(), a.metrics, log)
	a.records = service.NewMedicalRecordService(recordRepo, petRepo, apptRepo, catalogRepo, store, tx, a.audit, a.metrics, log)

	a.appointments = service.NewAppointmentService(service.AppointmentServiceDeps{
		Appointments:  apptRepo,
		Veterinarians: vetRepo,
		Clients:       clientRepo,
		Pets:          petRepo,
		Catalog:       catalogRepo,
		Notifications: notifRepo,
		Tx:            tx,
		Locker:        locker,
		Jobs:          jobs,
		Audit:         a.audit,
		Metrics:       a.metrics,
		Log:           log,
		ReminderLead:  cfg.Scheduling.ReminderLead,
		Location:      loc,
	})

	a.invoices = service.NewInvoiceService(service.InvoiceServiceDeps{
		Invoices:       invoiceRepo,
		Appointments:   apptRepo,
		Records:        recordRepo,
		Pets:           petRepo,
		Clients:        clientRepo,
		Notifications:  notifRepo,
		Tx:             tx,
		Jobs:           jobs,
		Audit:          a.audit,
		Metrics:        a.metrics,
		Log:            log,
		DefaultTaxRate: cfg.Billing.DefaultTaxRate,
		Prefix:         cfg.Billing.InvoicePrefix,
		Location:       loc,
	})

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *app) ping(ctx context.Context) error {
	return database.Ping(ctx, a.db)
}

func (a *app) newLocker() (lock.Locker, error) {
	sc := a.cfg.Scheduling
	if !a.cfg.Redis.Enabled() {
		a.log.Warn("REDIS_URL not set; schedule locks are process-local")
		return lock.NewLocalLocker(sc.LockWait), nil
	}

	opts, err := redis.ParseURL(a.cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	if a.cfg.Redis.TLSInsecure {
		if opts.TLSConfig == nil {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		opts.TLSConfig.InsecureSkipVerify = true
	}
	rdb := redis.NewClient(opts)
	a.onClose(func() { _ = rdb.Close() })

	return lock.NewRedisLocker(rdb, "vetclinic:schedule", sc.LockTTL, sc.LockWait, a.log), nil
}

func (a *app) newJobs() (service.JobScheduler, error) {
	if !a.cfg.Redis.Enabled() {
		a.log.Warn("REDIS_URL not set; notifications are stored but not delivered")
		return service.NopScheduler{}, nil
	}
	client, err := worker.NewClient(a.cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("creating job client: %w", err)
	}
	a.onClose(func() { _ = client.Close() })
	return client, nil
}

// newStore returns a nil interface, not a typed nil, when storage is off so the
// service can report it as unavailable.
func (a *app) newStore(ctx context.Context) (service.ObjectStore, error) {
	if !a.cfg.Storage.Enabled() {
		a.log.Warn("object storage not configured; attachments are disabled")
		return nil, nil
	}
	store, err := storage.NewMinIOStore(a.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("creating object store: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensuring bucket %s: %w", a.cfg.Storage.Bucket, err)
	}
	return store, nil
}

func (a *app) newMailer() mailer.Sender {
	if !a.cfg.Mail.Enabled() {
		a.log.Info("SMTP not configured; e-mail notifications are logged only")
		return mailer.NewLogSender(a.log)
	}
	return mailer.NewBreakerSender(mailer.NewSMTPSender(a.cfg.Mail), mailer.BreakerSettings{
		OnOpen: a.metrics.MailCircuitOpenTotal.Inc,
	}, a.log)
}

// metricsNamespace turns an app name such as "vetclinic-api" into a valid
// Prometheus namespace.
func metricsNamespace(name string) string {
	ns := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if ns == "" || (ns[0] >= '0' && ns[0] <= '9') {
		ns = "vetclinic_" + ns
	}
	return ns
}
