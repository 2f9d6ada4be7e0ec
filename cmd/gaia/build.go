package main

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/gaiaoffline/internal/archive"
	"github.com/matsen/gaiaoffline/internal/config"
	"github.com/matsen/gaiaoffline/internal/ingest"
)

var buildFileLimit int
var buildSources []string
var buildMetricsFile string

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().IntVar(&buildFileLimit, "file-limit", 0, "Number of archive chunks to ingest (default from settings file_limit)")
	buildCmd.Flags().StringSliceVar(&buildSources, "source", nil, "Ingest these chunk URLs instead of listing the archive")
	buildCmd.Flags().StringVar(&buildMetricsFile, "metrics-file", "", "Write ingestion metrics in Prometheus text format")
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the local catalog database",
	Long: `Build the local catalog database from Gaia archive chunks.

Any existing database is deleted first. The archive listing is read from
settings archive_url and the first --file-limit chunks are ingested, keeping
only rows brighter than the configured magnitude_limit. Indexes on ra, dec
and phot_g_mean_flux are created at the end.

Examples:
  gaia build
  gaia build --file-limit 20
  gaia build --source https://cdn.gea.esac.esa.int/Gaia/gdr3/gaia_source/GaiaSource_000000-003111.csv.gz`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

// humanProgress reports each finished source on stderr.
type humanProgress struct{}

func (humanProgress) SourceDone(done, total int, source string, kept int) {
	fmt.Fprintf(os.Stderr, "[%d/%d] %s: %d rows kept\n", done, total, path.Base(source), kept)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	cat := mustCatalog(cfg)
	dialect := mustDialect(cfg)
	logger := mustLogger(cfg)
	defer logger.Sync()

	client, err := newArchiveClient(cfg, logger)
	if err != nil {
		return err
	}
	ctx := context.Background()

	sources := buildSources
	if len(sources) == 0 {
		sources, err = client.ListSources(ctx, cfg.Settings.ArchiveURL)
		if err != nil {
			return failWith(err, "listing archive")
		}
	}

	fileLimit := buildFileLimit
	if fileLimit <= 0 {
		fileLimit = cfg.Settings.FileLimit
	}

	reg := prometheus.NewRegistry()
	opts := []ingest.Option{
		ingest.WithDialect(dialect),
		ingest.WithSkipRows(cfg.Settings.SkipRows),
		ingest.WithLogger(logger),
		ingest.WithRegisterer(reg),
	}
	if humanOutput {
		opts = append(opts, ingest.WithProgress(humanProgress{}))
	}

	pipeline := ingest.New(cat, cfg.DBPath(), client, opts...)
	summary, err := pipeline.Build(ctx, sources, fileLimit)
	if mErr := writeMetrics(reg, buildMetricsFile); mErr != nil {
		logger.Warn("metrics not written", zap.Error(mErr))
	}
	if err != nil {
		if archive.IsNotFound(err) {
			logger.Warn("chunk not found in archive", zap.String("archive_url", cfg.Settings.ArchiveURL))
		}
		return failWith(err, "building database")
	}

	if humanOutput {
		outputHuman("Built %s\n", summary.Path)
		outputHuman("  Sources: %d (%d skipped by file limit)\n", summary.Sources, summary.Skipped)
		outputHuman("  Rows:    %d kept of %d read\n", summary.RowsKept, summary.RowsRead)
		outputHuman("  Time:    %.1fs\n", float64(summary.DurationMS)/1000)
	} else {
		outputJSON(summary)
	}

	return nil
}

// newArchiveClient creates the archive client from settings.
func newArchiveClient(cfg *config.Config, logger *zap.Logger) (*archive.Client, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, failf(ExitConfigError, "%v", err)
	}
	return archive.NewClient(
		archive.WithTimeout(timeout),
		archive.WithLogger(logger),
	), nil
}
