package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ohfdesk/ohfdesk/internal/bootstrap"
	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/pkg/tokenizer"
	"github.com/ohfdesk/ohfdesk/internal/telemetry"
)

var version = "dev"

// @title						OHFdesk API
// @version					1.0
// @BasePath					/api/v1
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
// @description				Supabase access token, as "Bearer <token>"
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ohfdesk",
	Short: "OHFdesk help desk backend",
	Long: `OHFdesk serves the help desk API and runs its background jobs.

  ohfdesk serve      Start the HTTP API
  ohfdesk worker     Consume notification jobs and send email
  ohfdesk digest     Send due digest emails once
  ohfdesk migrate    Create or update the database schema
`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ohfdesk version %s\n", version)
	},
}

// app is the container plus the telemetry it started.
type app struct {
	inj *do.Injector
	cfg *config.Config
	log *zap.Logger
}

func newApp() (*app, error) {
	inj := bootstrap.BuildContainer()

	cfg, err := do.Invoke[*config.Config](inj)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := do.Invoke[*zap.Logger](inj)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	// tracing first so the gorm and redis plugins pick up the global provider
	if _, err := telemetry.SetupTracing(cfg); err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	}
	if _, err := telemetry.SetupMetrics(cfg); err != nil {
		log.Warn("metrics disabled", zap.Error(err))
	}

	if err := tokenizer.Init(log); err != nil {
		log.Warn("tokenizer unavailable, token limits fall back to turn caps", zap.Error(err))
	}

	return &app{inj: inj, cfg: cfg, log: log}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.inj.Shutdown(); err != nil {
		a.log.Warn("container shutdown", zap.Error(err))
	}
	if err := telemetry.Shutdown(ctx); err != nil {
		a.log.Warn("tracer shutdown", zap.Error(err))
	}
	if err := telemetry.ShutdownMetrics(ctx); err != nil {
		a.log.Warn("meter shutdown", zap.Error(err))
	}
	_ = a.log.Sync()
}
