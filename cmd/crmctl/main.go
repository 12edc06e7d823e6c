// crmctl: tareas de mantenimiento del CRM: migraciones, datos de demo y llamadas diarias.
package main

import (
	"fmt"
	"os"

	"sales-crm/internal/config"
	"sales-crm/internal/crm"
	"sales-crm/internal/database"
	"sales-crm/internal/models"
	"sales-crm/internal/observability"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	dailyDate string
	withDemo  bool
)

var rootCmd = &cobra.Command{
	Use:          "crmctl",
	Short:        "Herramientas de administración del CRM",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		logger, err = observability.NewLogger(cfg.LogLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Crea o actualiza el esquema de la base",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		logger.Info("schema up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Crea el gerente por defecto, vendedores y prospectos de demo",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		if err := database.EnsureManager(db, logger, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return err
		}
		database.SeedDemoUsers(db, logger)
		if withDemo {
			return database.SeedDemoProspects(db, logger, cfg.Rules.DailyCalls.InitialPhase)
		}
		return nil
	},
}

var dailyCallsCmd = &cobra.Command{
	Use:   "daily-calls",
	Short: "Genera las llamadas automáticas del día (idempotente)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		svc := crm.NewService(db, cfg.Rules,
			crm.WithLocation(cfg.Location),
			crm.WithLogger(logger.Named("crm")),
		)

		day := svc.Today()
		if dailyDate != "" {
			if day, err = parseDay(dailyDate); err != nil {
				return err
			}
		}

		report, err := svc.GenerateDailyCallsFor(cmd.Context(), day)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if report.SkippedReason != "" {
			fmt.Fprintf(out, "%s: sin llamadas nuevas (%s)\n", report.Date, report.SkippedReason)
			return nil
		}
		fmt.Fprintf(out, "%s: %d llamadas creadas\n", report.Date, len(report.Created))
		for _, a := range report.Created {
			name := ""
			if a.Prospect != nil {
				name = a.Prospect.CompanyName
			}
			fmt.Fprintf(out, "  #%d %s -> usuario %d\n", a.ID, name, a.AssignedTo)
		}
		return nil
	},
}

func parseDay(s string) (models.Date, error) {
	d, err := models.ParseDate(s)
	if err != nil {
		return "", fmt.Errorf("invalid --date, expected YYYY-MM-DD: %w", err)
	}
	return d, nil
}

func openDB() (*gorm.DB, error) {
	return database.Open(cfg.DBDSN, logger, database.Options{MaxAttempts: 3})
}

func init() {
	dailyCallsCmd.Flags().StringVar(&dailyDate, "date", "", "fecha a generar (YYYY-MM-DD), por defecto hoy")
	seedCmd.Flags().BoolVar(&withDemo, "demo", false, "también crea prospectos de demo")

	rootCmd.AddCommand(migrateCmd, seedCmd, dailyCallsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
