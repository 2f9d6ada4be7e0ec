package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matsen/gaiaoffline/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configResetCmd)
	configCmd.AddCommand(configPathCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or reset settings",
	Long: `Show or reset the settings file.

Usage:
  gaia config show                       # Show all settings
  gaia config show settings.db_dir       # Show one value
  gaia config reset                      # Restore the defaults
  gaia config path                       # Print the settings file location

Environment overrides (also read from .env):
  GAIAOFFLINE_CONFIG       Settings file location
  GAIAOFFLINE_DB_DIR       Database directory
  GAIAOFFLINE_LOG_LEVEL    Log level
  GAIAOFFLINE_ARCHIVE_URL  Archive listing URL`,
}

var configShowCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Show settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigShow,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigReset,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	// One arg: get specific value
	if len(args) == 1 {
		v, err := cfg.Get(args[0])
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		if humanOutput {
			fmt.Println(v)
		} else {
			outputJSON(map[string]string{args[0]: v})
		}
		return nil
	}

	if humanOutput {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			exitWithError(ExitError, "encoding config: %v", err)
		}
		fmt.Print(string(data))
	} else {
		resp, err := configResponse(cfg)
		if err != nil {
			exitWithError(ExitError, "encoding config: %v", err)
		}
		outputJSON(resp)
	}
	return nil
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	path := settingsPath()
	if _, err := config.Reset(path); err != nil {
		exitWithError(ExitError, "resetting config: %v", err)
	}

	if humanOutput {
		outputHuman("Restored default settings in %s\n", path)
	} else {
		outputJSON(StatusResponse{Status: "reset", Path: path})
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := settingsPath()
	if humanOutput {
		fmt.Println(path)
	} else {
		outputJSON(StatusResponse{Status: "ok", Path: path})
	}
	return nil
}

// ConfigResponse is the JSON form of the settings file.
type ConfigResponse struct {
	Settings map[string]any `json:"settings"`
	Database map[string]any `json:"database"`
	DBPath   string         `json:"db_path"`
}

// configResponse flattens the settings through their YAML keys so the JSON
// output uses the same names as the file.
func configResponse(cfg *config.Config) (ConfigResponse, error) {
	var doc struct {
		Settings map[string]any `yaml:"settings"`
		Database map[string]any `yaml:"database"`
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return ConfigResponse{}, err
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ConfigResponse{}, err
	}
	return ConfigResponse{Settings: doc.Settings, Database: doc.Database, DBPath: cfg.DBPath()}, nil
}
