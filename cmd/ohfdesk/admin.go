package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ohfdesk/ohfdesk/internal/bootstrap"
	"github.com/ohfdesk/ohfdesk/internal/infra/db"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send due digest emails once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		notify, err := do.Invoke[service.NotifyService](a.inj)
		if err != nil {
			return err
		}
		report, err := notify.SendDigests(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		a.log.Info("digests sent", zap.Int("due", report.Due), zap.Int("sent", report.Sent), zap.Int("skipped", report.Skipped))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		gdb, err := do.Invoke[*gorm.DB](a.inj)
		if err != nil {
			return err
		}
		// the provider already migrated when autoMigrate is on
		if !a.cfg.Database.AutoMigrate {
			if err := db.Migrate(gdb); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if err := bootstrap.EnsureBootstrapAdmin(cmd.Context(), gdb, bootstrap.ProfileCache(a.inj, a.log), a.cfg, a.log); err != nil {
				return err
			}
		}
		a.log.Info("schema up to date")
		return nil
	},
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage response templates",
}

var templatesCreatedBy string

var templatesImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import response templates from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		createdBy, err := uuid.Parse(templatesCreatedBy)
		if err != nil {
			return fmt.Errorf("--created-by must be a profile id: %w", err)
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		templates, err := do.Invoke[service.TemplateService](a.inj)
		if err != nil {
			return err
		}
		n, err := templates.Import(cmd.Context(), createdBy, f)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d templates\n", n)
		return nil
	},
}

func init() {
	templatesImportCmd.Flags().StringVar(&templatesCreatedBy, "created-by", "", "profile id recorded as the templates' author")
	_ = templatesImportCmd.MarkFlagRequired("created-by")
	templatesCmd.AddCommand(templatesImportCmd)
}
