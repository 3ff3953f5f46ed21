package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thalib/uiconf/cmd/uiconf/internal/activity"
	"github.com/thalib/uiconf/cmd/uiconf/internal/config"
	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	"github.com/thalib/uiconf/cmd/uiconf/internal/database"
	"github.com/thalib/uiconf/cmd/uiconf/internal/health"
	"github.com/thalib/uiconf/cmd/uiconf/internal/logging"
	"github.com/thalib/uiconf/cmd/uiconf/internal/output"
	"github.com/thalib/uiconf/cmd/uiconf/internal/pidfile"
	"github.com/thalib/uiconf/cmd/uiconf/internal/preflight"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ratio"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ratiosync"
	"github.com/thalib/uiconf/cmd/uiconf/internal/server"
	"github.com/thalib/uiconf/cmd/uiconf/internal/tasks"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var pidFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		Long: `Load the configuration, prepare the log and database paths, open the
database and serve until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts.configPath, pidFile, opts.printer(cmd))
		},
	}

	cmd.Flags().StringVar(&pidFile, "pid-file", "", "write the process id to this file while serving")
	return cmd
}

func runServe(ctx context.Context, configPath, pidFile string, p *output.Printer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if pidFile != "" {
		if err := pidfile.Write(pidFile); err != nil {
			return err
		}
		defer pidfile.Remove(pidFile)
	}

	p.Info("Running preflight checks...")
	if err := runPreflightChecks(cfg, p); err != nil {
		return fmt.Errorf("preflight checks failed: %w", err)
	}

	logFile := filepath.Join(cfg.Logging.Path, constants.LogFileName)
	logging.Init(logging.LoggerConfig{
		Level:       logging.ParseLevel(cfg.Logging.Level),
		Format:      cfg.Logging.Format,
		FilePath:    logFile,
		DualOutput:  cfg.Logging.Format == "console",
		ServiceName: "uiconf",
		Version:     config.Version(),
	})
	logger := logging.GetLogger()
	logConfigSummary(cfg)

	driver, err := database.NewDriver(database.Config{
		ConnectionString: cfg.Database.ConnectionString(),
	})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	if err := driver.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer driver.Close()
	p.Success("Connected to %s database", driver.Dialect())

	ratios := ratio.NewRepository(driver)
	if err := ratios.EnsureSchema(ctx); err != nil {
		return err
	}
	taskRepo := tasks.NewRepository(driver)
	if err := taskRepo.EnsureSchema(ctx); err != nil {
		return err
	}
	activityRepo := activity.NewRepository(driver)
	if err := activityRepo.EnsureSchema(ctx); err != nil {
		return err
	}

	healthService := health.NewService(health.Config{
		Version:  config.Version(),
		Database: string(driver.Dialect()),
	}, driver, ratios)
	healthService.RegisterChecker("logs", health.FuncChecker("Log directory", func(ctx context.Context) error {
		return preflight.Writable(cfg.Logging.Path)
	}))

	srv := server.New(cfg, server.Dependencies{
		Ratios:   ratios,
		Tasks:    taskRepo,
		Activity: activityRepo,
		Fetcher: ratiosync.NewClient(ratiosync.Options{
			Timeout:     cfg.Ratio.SyncTimeoutDuration(),
			Concurrency: cfg.Ratio.SyncConcurrency,
			Logger:      logger,
		}),
		Health: healthService,
		Logger: logger,
	})

	p.Info("Starting HTTP server on %s", srv.Addr())
	if err := srv.Run(ctx); err != nil {
		logger.Errorf("Server error: %v", err)
		return err
	}

	logger.Info("Server stopped gracefully")
	p.Success("Server stopped gracefully")
	return nil
}

// runPreflightChecks creates the log directory and, for sqlite, the
// database file's parent directory.
func runPreflightChecks(cfg *config.AppConfig, p *output.Printer) error {
	checks := []preflight.FileCheck{
		{Path: cfg.Logging.Path, IsDir: true, FailFatal: true},
	}
	// The sqlite path is already absolute after config validation.
	if cfg.Database.Connection == "sqlite" && cfg.Database.Database != ":memory:" {
		checks = append(checks, preflight.FileCheck{
			Path:      filepath.Dir(cfg.Database.Database),
			IsDir:     true,
			FailFatal: true,
		})
	}

	results, err := preflight.ValidateAndCreate(checks)
	for _, result := range results {
		switch {
		case result.Error != nil:
			p.Error("%s: %v", result.Path, result.Error)
		case result.Created:
			p.Success("Created: %s", result.Path)
		case result.Exists:
			p.Success("Verified: %s", result.Path)
		}
	}
	return err
}

// logConfigSummary logs the loaded configuration for debugging
func logConfigSummary(cfg *config.AppConfig) {
	logging.Info("=== Configuration Summary ===")
	logging.Infof("Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	if cfg.Server.Prefix != "" {
		logging.Infof("Prefix: %s", cfg.Server.Prefix)
	}
	logging.Infof("Database Type: %s", cfg.Database.Connection)
	logging.Infof("Database: %s", cfg.Database.Database)
	if cfg.Database.User != "" {
		logging.Infof("Database User: %s", cfg.Database.User)
	}
	if cfg.Database.Host != "" && cfg.Database.Connection != "sqlite" {
		logging.Infof("Database Host: %s", cfg.Database.Host)
	}
	logging.Infof("Logging Path: %s", cfg.Logging.Path)
	logging.Infof("Page Size: %d (max %d)", cfg.Pagination.PageSize, cfg.Pagination.MaxPageSize)
	logging.Infof("Ratio Exposure: %v on %s", cfg.Ratio.Expose, cfg.Server.Prefix+cfg.Ratio.Endpoint)
	logging.Info("============================")
}
