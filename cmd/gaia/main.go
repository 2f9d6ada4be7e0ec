// Package main provides the gaia CLI entry point.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/gaiaoffline/internal/catalog"
	"github.com/matsen/gaiaoffline/internal/config"
	"github.com/matsen/gaiaoffline/internal/logging"
	"github.com/matsen/gaiaoffline/internal/store"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// configPath overrides the settings file location
var configPath string

// logLevel overrides the configured log level
var logLevel string

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ce *commandError
		if errors.As(err, &ce) {
			exitWithError(ce.code, "%s", ce.msg)
		}
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like missing required flags) are visible
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gaia",
	Short: "Offline Gaia catalog with cone search",
	Long: `gaia keeps a local, pre-filtered subset of the Gaia DR3 catalog and
answers cone searches against it without network access.

Core features:
  - Build the local database from archive chunks (gaia build)
  - Cone search by position, radius and G magnitude (gaia conesearch)
  - Inspect, benchmark and delete the database

Settings live in ~/.config/gaiaoffline/config.yml, created on first use.
All commands output JSON by default for agent integration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env file if present (for GAIAOFFLINE_* overrides)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default ~/.config/gaiaoffline/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Version = Version
}

// settingsPath returns the settings file in effect.
func settingsPath() string {
	if configPath != "" {
		return config.ExpandPath(configPath)
	}
	return config.Path()
}

// mustLoadConfig loads the settings file, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(settingsPath())
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if logLevel != "" {
		cfg.Settings.LogLevel = logLevel
	}
	return cfg
}

// mustCatalog parses the catalog settings, exits on error.
func mustCatalog(cfg *config.Config) catalog.Config {
	cat, err := cfg.Catalog()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return cat
}

// mustDialect returns the configured storage engine, exits on error.
func mustDialect(cfg *config.Config) store.Dialect {
	d, err := cfg.StoreDialect()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return d
}

// mustLogger builds the logger for the configured level, exits on error.
// The caller should Sync the returned logger before exiting.
func mustLogger(cfg *config.Config) *zap.Logger {
	logger, err := logging.New(cfg.Settings.LogLevel, humanOutput)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return logger
}
