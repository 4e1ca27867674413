package database

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/config"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/client"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/invoice"
	mr "github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/pet"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/veterinarian"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:      gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DSN(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Ping is used by the readiness probe.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.AuditLog{},
		&client.Client{},
		&pet.Pet{},
		&veterinarian.Veterinarian{},
		&veterinarian.Availability{},
		&catalog.Service{},
		&appointment.Appointment{},
		&appointment.ServiceLine{},
		&mr.MedicalRecord{},
		&mr.ServiceLine{},
		&mr.Attachment{},
		&invoice.Invoice{},
		&invoice.Sequence{},
		&notification.Notification{},
		&notification.DeviceToken{},
	}
}

// Migrate creates the schemas, lets gorm shape the tables and then applies the
// versioned SQL migrations (indexes, extensions, constraints gorm cannot express).
func Migrate(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	for _, schema := range []string{"clinical", "auth", "audit", "billing"} {
		if err := db.WithContext(ctx).Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := runGoose(ctx, db, log, "up"); err != nil {
		return err
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// MigrationStatus logs the state of every versioned migration.
func MigrationStatus(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	return runGoose(ctx, db, log, "status")
}

func runGoose(ctx context.Context, db *gorm.DB, log *zap.Logger, command string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{log: log.Sugar()})
	goose.SetTableName("public.vetclinic_schema_migrations")
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	switch command {
	case "up":
		err = goose.UpContext(ctx, sqlDB, migrationsDir)
	case "status":
		err = goose.StatusContext(ctx, sqlDB, migrationsDir)
	default:
		err = fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Fatalf(format string, v ...any) { l.log.Errorf(format, v...) }
func (l gooseLogger) Printf(format string, v ...any) { l.log.Infof(format, v...) }
