package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"orderboard/internal/commons"
	"orderboard/internal/config"
	"orderboard/internal/infrastructure/logger"
	"orderboard/internal/infrastructure/mysql"
	"orderboard/internal/jobs"
	"orderboard/internal/order"
	"orderboard/internal/server"
	"orderboard/internal/version"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "orderboard",
		Short:         "order tracking board for a single food stall",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the YAML config file")

	rootCmd.AddCommand(
		serveCommand(&configPath),
		migrateCommand(&configPath),
		versionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("orderboard: %v", err)
	}
}

func loadConfigAndLogger(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := commons.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, zapLogger, nil
}

func serveCommand(configPath *string) *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := loadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}
			defer zapLogger.Sync()

			zapLogger.Info("starting orderboard", zap.String("build", version.String()))

			if migrateFirst {
				if err := runMigrations(cfg, zapLogger, func(m *mysql.Migrator) error { return m.Up() }); err != nil {
					return err
				}
			}

			db, err := mysql.NewConnection(cfg.Database)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer db.Close()
			zapLogger.Info("database connected")

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			orderModule, err := order.NewModule(db, cfg, registry, zapLogger)
			if err != nil {
				return err
			}

			statsJob := jobs.NewBoardStatsJob(orderModule.Service, orderModule.Metrics, cfg.Jobs.StatsSchedule, cfg.Database.QueryTimeout, zapLogger)
			if err := statsJob.Start(); err != nil {
				return err
			}
			defer statsJob.Stop()

			router := server.NewRouter(orderModule.Controller, db, registry, zapLogger)
			srv := server.New(cfg.Server, router, zapLogger)
			srv.OnShutdown(orderModule.Broker.Close)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			serverErr := make(chan error, 1)
			go func() {
				serverErr <- srv.Start()
			}()

			select {
			case <-quit:
				zapLogger.Info("received shutdown signal")
			case err := <-serverErr:
				if err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}

			zapLogger.Info("server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func migrateCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply or roll back the embedded schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "migrate all the way up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := loadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}
			defer zapLogger.Sync()
			return runMigrations(cfg, zapLogger, func(m *mysql.Migrator) error { return m.Up() })
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "roll back the last migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := loadConfigAndLogger(*configPath)
			if err != nil {
				return err
			}
			defer zapLogger.Sync()
			return runMigrations(cfg, zapLogger, func(m *mysql.Migrator) error { return m.Down(steps) })
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}

func runMigrations(cfg *config.Config, zapLogger *zap.Logger, run func(m *mysql.Migrator) error) error {
	migrator, err := mysql.NewMigrator(cfg.Database, zapLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			zapLogger.Warn("closing migrator", zap.Error(err))
		}
	}()
	return run(migrator)
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
