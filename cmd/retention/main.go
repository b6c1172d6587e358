// Command retention runs the data-retention engine standalone, for
// deployments that keep sweeps out of the API process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nexus-social/backend/internal/config"
	"github.com/nexus-social/backend/internal/database"
	"github.com/nexus-social/backend/internal/gdpr"
	"github.com/nexus-social/backend/internal/logger"
	"github.com/nexus-social/backend/internal/metrics"
	"github.com/nexus-social/backend/internal/retention"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "retention",
		Short: "Data-retention engine for the nexus-social backend",
	}
	rootCmd.AddCommand(runCmd(), sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads config, the logger and the database, shared by both
// subcommands.
func setup() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, nil, err
	}
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			defer logger.Close()
			defer database.Close(db)

			sweeper := retention.NewSweeper(db, gdpr.NewService(db), metrics.Initialize())
			scheduler := retention.NewScheduler(cfg.Retention.Tick)
			for _, job := range sweeper.Jobs(cfg.Retention) {
				scheduler.Register(job)
			}
			scheduler.Start()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			logger.Log.Info("shutting down retention engine")
			scheduler.Stop()
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	jobs := []string{
		retention.JobAccountErasure,
		retention.JobStaleData,
		retention.JobExpiredStories,
		retention.JobConsentLogs,
	}

	return &cobra.Command{
		Use:       "sweep <job>",
		Short:     "Run a single sweep once and exit",
		Long:      "Runs one sweep to completion. Valid jobs: " + strings.Join(jobs, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: jobs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := setup()
			if err != nil {
				return err
			}
			defer logger.Close()
			defer database.Close(db)

			sweeper := retention.NewSweeper(db, gdpr.NewService(db), metrics.Initialize())
			name := args[0]
			logger.Log.Info("running one-shot sweep", zap.String("job", name))
			if !sweeper.RunJob(context.Background(), name) {
				return fmt.Errorf("unknown job %q, valid jobs: %s", name, strings.Join(jobs, ", "))
			}
			return nil
		},
	}
}
