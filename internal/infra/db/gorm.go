package db

import (
	"regexp"
	"strings"
	"time"

	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

var sslmodeRegex = regexp.MustCompile(`(?i)\bsslmode\s*=\s*\w+`)

func New(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(withSSLMode(cfg.Database.DSN, cfg.Database.EnableTLS)), gcfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpen)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdle)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)
	return db, nil
}

// withSSLMode forces sslmode=require on the DSN when TLS is enabled.
// Supabase poolers reject plain connections, so this is on in most deployments.
func withSSLMode(dsn string, enableTLS bool) string {
	if !enableTLS {
		return dsn
	}
	if sslmodeRegex.MatchString(dsn) {
		return sslmodeRegex.ReplaceAllString(dsn, "sslmode=require")
	}
	if dsn != "" && !strings.HasSuffix(dsn, " ") {
		dsn += " "
	}
	return dsn + "sslmode=require"
}

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&model.Profile{},
		&model.Project{},
		&model.ProjectMember{},
		&model.PendingInvite{},
		&model.Ticket{},
		&model.Activity{},
		&model.Summary{},
		&model.ResponseTemplate{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	// gorm tags cannot express a partial expression index
	return db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS " + model.OpenInviteIndex +
		" ON pending_invites (project_id, lower(email)) WHERE status = 'pending'").Error
}

// RegisterOpenTelemetryPlugin registers the OpenTelemetry plugin for GORM.
// Call it after telemetry.SetupTracing so the global tracer provider is in place.
func RegisterOpenTelemetryPlugin(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin())
}
