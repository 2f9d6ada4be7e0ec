package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/matsen/gaiaoffline/internal/catalog"
	"github.com/matsen/gaiaoffline/internal/store"
)

// clearEnv unsets every override so tests see file values only.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvConfig, EnvDBDir, EnvLogLevel, EnvArchiveURL} {
		t.Setenv(key, "")
	}
}

func TestLoad_CreatesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "gaiaoffline", "config.yml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Settings.TableName != DefaultTableName {
		t.Errorf("TableName = %q, want %q", cfg.Settings.TableName, DefaultTableName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("defaults were not written: %v", err)
	}
	for _, key := range []string{"settings:", "db_dir:", "zeropoints:", "stored_columns:", "magnitude_limit:"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("written config missing %q:\n%s", key, data)
		}
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")

	cfg := Default()
	cfg.Settings.DBDir = "/data/gaia"
	cfg.Settings.Dialect = "duckdb"
	cfg.Database.MagnitudeLimit = "12.5"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("Load() = %+v, want %+v", loaded, cfg)
	}
	if got := loaded.DBPath(); got != "/data/gaia/gaiaoffline.db" {
		t.Errorf("DBPath() = %q", got)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	partial := "settings:\n  table_name: dr3small\ndatabase:\n  magnitude_limit: \"14\"\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Settings.TableName != "dr3small" {
		t.Errorf("TableName = %q", cfg.Settings.TableName)
	}
	if cfg.Settings.SkipRows != DefaultSkipRows {
		t.Errorf("SkipRows = %d, want default %d", cfg.Settings.SkipRows, DefaultSkipRows)
	}
	if cfg.Database.Zeropoints != DefaultZeropoints {
		t.Errorf("Zeropoints = %q, want default", cfg.Database.Zeropoints)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("settings: [not, a, map"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, catalog.ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want configuration error", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDBDir, "/override/db")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvArchiveURL, "http://mirror.local/gaia/")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Settings.DBDir != "/override/db" {
		t.Errorf("DBDir = %q", cfg.Settings.DBDir)
	}
	if cfg.Settings.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.Settings.LogLevel)
	}
	if cfg.Settings.ArchiveURL != "http://mirror.local/gaia/" {
		t.Errorf("ArchiveURL = %q", cfg.Settings.ArchiveURL)
	}
}

func TestReset(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")

	cfg := Default()
	cfg.Settings.TableName = "custom"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	if _, err := Reset(path); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Settings.TableName != DefaultTableName {
		t.Errorf("TableName after reset = %q", loaded.Settings.TableName)
	}
}

func TestCatalog(t *testing.T) {
	cfg, err := Default().Catalog()
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}

	wantZP := [catalog.NumBands]float64{25.6873668671, 25.3385422158, 24.7478955012}
	if cfg.Zeropoints != wantZP {
		t.Errorf("Zeropoints = %v, want %v", cfg.Zeropoints, wantZP)
	}
	if cfg.MagnitudeLimit != 16 {
		t.Errorf("MagnitudeLimit = %v", cfg.MagnitudeLimit)
	}
	if cfg.TableName != "gaiadr3" {
		t.Errorf("TableName = %q", cfg.TableName)
	}
	if len(cfg.StoredColumns) != 13 || cfg.StoredColumns[0] != "source_id" {
		t.Errorf("StoredColumns = %v", cfg.StoredColumns)
	}
}

func TestCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"two zeropoints", func(c *Config) { c.Database.Zeropoints = "25.6,25.3" }, ErrInvalid},
		{"bad zeropoint", func(c *Config) { c.Database.Zeropoints = "25.6,x,24.7" }, ErrInvalid},
		{"bad magnitude limit", func(c *Config) { c.Database.MagnitudeLimit = "faint" }, ErrInvalid},
		{"missing G flux", func(c *Config) { c.Database.StoredColumns = "source_id,ra,dec" }, catalog.ErrMissingGFlux},
		{"unknown column", func(c *Config) { c.Database.StoredColumns = "ra,phot_g_mean_flux,colour" }, catalog.ErrUnknownColumn},
		{"bad table", func(c *Config) { c.Settings.TableName = "gaia-dr3" }, catalog.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			_, err := cfg.Catalog()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Catalog() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, catalog.ErrInvalidConfig) {
				t.Errorf("Catalog() error = %v should be a configuration error", err)
			}
		})
	}
}

func TestCatalog_ColumnListWhitespace(t *testing.T) {
	cfg := Default()
	cfg.Database.StoredColumns = " source_id , ra,dec,, phot_g_mean_flux "
	got, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	want := []string{"source_id", "ra", "dec", "phot_g_mean_flux"}
	if !reflect.DeepEqual(got.StoredColumns, want) {
		t.Errorf("StoredColumns = %v, want %v", got.StoredColumns, want)
	}
}

func TestTimeoutAndDialect(t *testing.T) {
	cfg := Default()
	d, err := cfg.Timeout()
	if err != nil || d != 10*time.Minute {
		t.Errorf("Timeout() = %v, %v", d, err)
	}
	cfg.Settings.FetchTimeout = "soon"
	if _, err := cfg.Timeout(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Timeout() error = %v, want ErrInvalid", err)
	}

	dialect, err := cfg.StoreDialect()
	if err != nil || dialect != store.DialectSQLite {
		t.Errorf("StoreDialect() = %q, %v", dialect, err)
	}
	cfg.Settings.Dialect = "oracle"
	if _, err := cfg.StoreDialect(); !errors.Is(err, ErrInvalid) {
		t.Errorf("StoreDialect() error = %v, want ErrInvalid", err)
	}
}

func TestGet(t *testing.T) {
	cfg := Default()
	v, err := cfg.Get("settings.file_limit")
	if err != nil || v != "4" {
		t.Errorf("Get(settings.file_limit) = %q, %v", v, err)
	}
	if _, err := cfg.Get("settings.nope"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Get(settings.nope) error = %v", err)
	}
}
