package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/gaiaoffline/internal/conesearch"
	"github.com/matsen/gaiaoffline/internal/photometry"
)

var (
	coneRA       float64
	coneDec      float64
	coneRadius   float64
	coneMagLimit []float64
	coneLimit    int
	coneUnit     string
	coneCSV      bool
	coneJSONL    bool
)

func init() {
	rootCmd.AddCommand(coneSearchCmd)
	coneSearchCmd.Flags().Float64Var(&coneRA, "ra", 0, "Right ascension of the center in degrees")
	coneSearchCmd.Flags().Float64Var(&coneDec, "dec", 0, "Declination of the center in degrees")
	coneSearchCmd.Flags().Float64Var(&coneRadius, "radius", 0, "Search radius in degrees")
	coneSearchCmd.Flags().Float64SliceVar(&coneMagLimit, "mag-limit", conesearch.DefaultMagnitudeLimit, "G magnitude window as two values, in either order")
	coneSearchCmd.Flags().IntVar(&coneLimit, "limit", 0, "Maximum rows to return (0 = no limit)")
	coneSearchCmd.Flags().StringVar(&coneUnit, "unit", string(photometry.UnitFlux), "Photometry output: flux or mag")
	coneSearchCmd.Flags().BoolVar(&coneCSV, "csv", false, "Output CSV")
	coneSearchCmd.Flags().BoolVar(&coneJSONL, "jsonl", false, "Output JSONL")
	coneSearchCmd.MarkFlagRequired("ra")
	coneSearchCmd.MarkFlagRequired("dec")
	coneSearchCmd.MarkFlagRequired("radius")
}

var coneSearchCmd = &cobra.Command{
	Use:   "conesearch",
	Short: "Find catalog sources near a sky position",
	Long: `Return every source within --radius degrees of (--ra, --dec) whose G
magnitude lies inside --mag-limit. Row order is unspecified.

With --unit mag, flux columns are replaced by magnitudes and flux errors by
magnitude errors.

Examples:
  gaia conesearch --ra 45 --dec 6 --radius 0.1
  gaia conesearch --ra 45 --dec 6 --radius 0.1 --mag-limit 10,15 --unit mag --csv
  gaia conesearch --ra 270 --dec -30 --radius 0.5 --limit 100 --human`,
	Args: cobra.NoArgs,
	RunE: runConeSearch,
}

func runConeSearch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	cat := mustCatalog(cfg)
	dialect := mustDialect(cfg)
	logger := mustLogger(cfg)
	defer logger.Sync()

	unit, err := photometry.ParseUnit(coneUnit)
	if err != nil {
		return failf(ExitConfigError, "%v", err)
	}

	engine, err := conesearch.Open(cfg.DBPath(), dialect, cat,
		conesearch.WithMagnitudeLimit(coneMagLimit...),
		conesearch.WithRowLimit(coneLimit),
		conesearch.WithUnit(unit),
		conesearch.WithLogger(logger),
	)
	if err != nil {
		return failWith(err, "opening catalog")
	}
	defer engine.Close()

	rs, err := engine.ConeSearch(context.Background(), coneRA, coneDec, coneRadius)
	if err != nil {
		return failWith(err, "cone search")
	}

	switch {
	case coneCSV:
		err = writeCSV(os.Stdout, rs)
	case coneJSONL:
		err = writeJSONL(os.Stdout, rs)
	case humanOutput:
		writeTable(os.Stdout, rs)
	default:
		err = outputJSON(rs)
	}
	if err != nil {
		return failf(ExitError, "writing results: %v", err)
	}

	return nil
}
