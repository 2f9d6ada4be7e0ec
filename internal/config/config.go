// Package config handles the gaiaoffline settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matsen/gaiaoffline/internal/catalog"
	"github.com/matsen/gaiaoffline/internal/store"
)

// Config represents the settings file at ~/.config/gaiaoffline/config.yml.
type Config struct {
	Settings Settings `yaml:"settings"`
	Database Database `yaml:"database"`
}

// Settings holds storage, retrieval and logging settings.
type Settings struct {
	DBDir        string `yaml:"db_dir"`
	DBName       string `yaml:"db_name"`
	LogLevel     string `yaml:"log_level"`
	TableName    string `yaml:"table_name"`
	ArchiveURL   string `yaml:"archive_url"`
	Dialect      string `yaml:"dialect"`
	FileLimit    int    `yaml:"file_limit"`
	SkipRows     int    `yaml:"skip_rows"`
	FetchTimeout string `yaml:"fetch_timeout"`
}

// Database holds the catalog settings. Values are kept as strings in the
// file and parsed by Catalog.
type Database struct {
	StoredColumns  string `yaml:"stored_columns"`
	Zeropoints     string `yaml:"zeropoints"`
	MagnitudeLimit string `yaml:"magnitude_limit"`
}

// ErrInvalid indicates a settings value that cannot be parsed.
var ErrInvalid = fmt.Errorf("%w: settings", catalog.ErrInvalidConfig)

// Default settings values.
const (
	DefaultDBName         = "gaiaoffline.db"
	DefaultLogLevel       = "info"
	DefaultTableName      = "gaiadr3"
	DefaultArchiveURL     = "https://cdn.gea.esac.esa.int/Gaia/gdr3/gaia_source/"
	DefaultFileLimit      = 4
	DefaultSkipRows       = 1000
	DefaultFetchTimeout   = "10m"
	DefaultStoredColumns  = "source_id,ra,dec,parallax,pmra,pmdec,radial_velocity,phot_g_mean_flux,phot_bp_mean_flux,phot_rp_mean_flux,teff_gspphot,logg_gspphot,mh_gspphot"
	DefaultZeropoints     = "25.6873668671,25.3385422158,24.7478955012"
	DefaultMagnitudeLimit = "16"
)

// Default returns the settings written on first use.
func Default() *Config {
	return &Config{
		Settings: Settings{
			DBDir:        DefaultDataDir(),
			DBName:       DefaultDBName,
			LogLevel:     DefaultLogLevel,
			TableName:    DefaultTableName,
			ArchiveURL:   DefaultArchiveURL,
			Dialect:      string(store.DialectSQLite),
			FileLimit:    DefaultFileLimit,
			SkipRows:     DefaultSkipRows,
			FetchTimeout: DefaultFetchTimeout,
		},
		Database: Database{
			StoredColumns:  DefaultStoredColumns,
			Zeropoints:     DefaultZeropoints,
			MagnitudeLimit: DefaultMagnitudeLimit,
		},
	}
}

// Load reads the settings file at path, writing the defaults there first
// if it does not exist. Keys missing from the file keep their defaults.
// Environment overrides are applied to the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalid, path, err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// Save writes the settings to path, creating its directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Reset overwrites the settings file at path with the defaults.
func Reset(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Environment variables that override settings.
const (
	EnvConfig     = "GAIAOFFLINE_CONFIG"
	EnvDBDir      = "GAIAOFFLINE_DB_DIR"
	EnvLogLevel   = "GAIAOFFLINE_LOG_LEVEL"
	EnvArchiveURL = "GAIAOFFLINE_ARCHIVE_URL"
)

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDBDir); v != "" {
		c.Settings.DBDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Settings.LogLevel = v
	}
	if v := os.Getenv(EnvArchiveURL); v != "" {
		c.Settings.ArchiveURL = v
	}
}

// DBPath returns the database file path.
func (c *Config) DBPath() string {
	return filepath.Join(ExpandPath(c.Settings.DBDir), c.Settings.DBName)
}

// StoreDialect returns the configured storage engine.
func (c *Config) StoreDialect() (store.Dialect, error) {
	d, err := store.ParseDialect(c.Settings.Dialect)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return d, nil
}

// Timeout returns the per-request fetch timeout.
func (c *Config) Timeout() (time.Duration, error) {
	if c.Settings.FetchTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Settings.FetchTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: fetch_timeout: %v", ErrInvalid, err)
	}
	return d, nil
}

// Catalog parses the database settings into a validated catalog.Config.
func (c *Config) Catalog() (catalog.Config, error) {
	var out catalog.Config

	zps := splitList(c.Database.Zeropoints)
	if len(zps) != catalog.NumBands {
		return out, fmt.Errorf("%w: zeropoints needs %d values, got %d", ErrInvalid, catalog.NumBands, len(zps))
	}
	for i, s := range zps {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return out, fmt.Errorf("%w: zeropoint %q: %v", ErrInvalid, s, err)
		}
		out.Zeropoints[i] = v
	}

	limit, err := strconv.ParseFloat(strings.TrimSpace(c.Database.MagnitudeLimit), 64)
	if err != nil {
		return out, fmt.Errorf("%w: magnitude_limit %q: %v", ErrInvalid, c.Database.MagnitudeLimit, err)
	}
	out.MagnitudeLimit = limit

	out.StoredColumns = splitList(c.Database.StoredColumns)
	out.TableName = c.Settings.TableName

	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ErrUnknownKey is returned by Get for keys outside the settings file.
var ErrUnknownKey = errors.New("unknown config key")

// Get returns the value of a dotted key such as settings.db_dir.
func (c *Config) Get(key string) (string, error) {
	s, d := c.Settings, c.Database
	values := map[string]string{
		"settings.db_dir":          s.DBDir,
		"settings.db_name":         s.DBName,
		"settings.log_level":       s.LogLevel,
		"settings.table_name":      s.TableName,
		"settings.archive_url":     s.ArchiveURL,
		"settings.dialect":         s.Dialect,
		"settings.file_limit":      strconv.Itoa(s.FileLimit),
		"settings.skip_rows":       strconv.Itoa(s.SkipRows),
		"settings.fetch_timeout":   s.FetchTimeout,
		"database.stored_columns":  d.StoredColumns,
		"database.zeropoints":      d.Zeropoints,
		"database.magnitude_limit": d.MagnitudeLimit,
	}
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return v, nil
}
