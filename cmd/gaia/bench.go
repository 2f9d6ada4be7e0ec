package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/gaiaoffline/internal/conesearch"
)

var benchIterations int
var benchMetricsFile string

// BenchResponse is the response for the bench command.
type BenchResponse struct {
	RA         float64 `json:"ra"`
	Dec        float64 `json:"dec"`
	Radius     float64 `json:"radius"`
	Iterations int     `json:"iterations"`
	MeanMS     float64 `json:"mean_ms"`
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntVar(&benchIterations, "iterations", conesearch.DefaultBenchmarkIterations, "Number of reference queries")
	benchCmd.Flags().StringVar(&benchMetricsFile, "metrics-file", "", "Write the latency histogram in Prometheus text format")
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time the reference cone search",
	Long: `Run the reference cone search (ra=45, dec=6, radius=0.2) repeatedly and
report the mean latency. Useful after index or engine changes.

Examples:
  gaia bench
  gaia bench --iterations 1000 --metrics-file bench.prom`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	cat := mustCatalog(cfg)
	dialect := mustDialect(cfg)
	logger := mustLogger(cfg)
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	engine, err := conesearch.Open(cfg.DBPath(), dialect, cat,
		conesearch.WithLogger(logger),
		conesearch.WithRegisterer(reg),
	)
	if err != nil {
		return failWith(err, "opening catalog")
	}
	defer engine.Close()

	iterations := benchIterations
	if iterations <= 0 {
		iterations = conesearch.DefaultBenchmarkIterations
	}
	mean, err := engine.Benchmark(context.Background(), iterations)
	if err != nil {
		return failWith(err, "benchmark")
	}
	if err := writeMetrics(reg, benchMetricsFile); err != nil {
		logger.Warn("metrics not written", zap.Error(err))
	}

	meanMS := float64(mean.Microseconds()) / 1000
	if humanOutput {
		outputHuman("Mean latency over %d queries: %.3f ms\n", iterations, meanMS)
	} else {
		outputJSON(BenchResponse{
			RA:         conesearch.BenchmarkRA,
			Dec:        conesearch.BenchmarkDec,
			Radius:     conesearch.BenchmarkRadius,
			Iterations: iterations,
			MeanMS:     meanMS,
		})
	}

	return nil
}
