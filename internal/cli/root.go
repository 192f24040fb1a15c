package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pfm/internal/config"
	"pfm/internal/log"
)

var (
	flagBackend  string
	flagDB       string
	flagAPIURL   string
	flagLogLevel string

	// app is the wiring of the running invocation, set by setup.
	app *App

	// openApp builds the wiring once the configuration is known.
	openApp = NewApp
)

var rootCmd = &cobra.Command{
	Use:   "pfm",
	Short: "Personal finance in the terminal",
	Long: `pfm lists, adds and deletes transactions on the finance API.

The last successful view is kept in a local SQLite file so an unreachable
API still shows the previous figures under an error banner.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagBackend, "backend", "", "API backend: http or memory (default from API_BACKEND)")
	pf.StringVar(&flagDB, "db", "", "snapshot database path (default from SQLITE_DB_PATH)")
	pf.StringVar(&flagAPIURL, "api-url", "", "finance API base URL (default from API_BASE_URL)")
	pf.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (default from LOG_LEVEL)")
}

// Execute runs the command line against ctx.
func Execute(ctx context.Context) error {
	defer closeApp()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagBackend != "" {
		cfg.APIBackend = flagBackend
	}
	if flagDB != "" {
		cfg.SQLiteDBPath = flagDB
	}
	if flagAPIURL != "" {
		cfg.APIBaseURL = flagAPIURL
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	// diagnostics go to stderr, results to stdout
	logger := SetupLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cfg, logger)
	if err != nil {
		logger.WithComponent(log.ComponentCLI).LogError(cmd.Context(), "Failed to start", err, log.OpStartup, nil)
		return fmt.Errorf("start: %w", err)
	}
	app = a
	return nil
}

func closeApp() {
	if app == nil {
		return
	}
	if err := app.Close(); err != nil {
		app.Logger.Warn("Cleanup failed", log.FieldError, err.Error())
	}
	app = nil
}

// current returns the wiring set up for this invocation.
func current() (*App, error) {
	if app == nil {
		return nil, errors.New("not initialized")
	}
	return app, nil
}
