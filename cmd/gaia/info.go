package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/gaiaoffline/internal/store"
)

func init() {
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about the local catalog database",
	Long: `Display the database location, engine, file size, row count and
columns. A missing database is reported, not treated as an error.`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	dialect := mustDialect(cfg)

	info, err := store.Stat(context.Background(), cfg.DBPath(), dialect, cfg.Settings.TableName)
	if err != nil {
		exitWithErr(err, "reading database")
	}

	if !humanOutput {
		outputJSON(info)
		return nil
	}

	fmt.Printf("Database: %s\n", info.Path)
	fmt.Printf("Engine:   %s\n", info.Dialect)
	if !info.Exists {
		fmt.Println("Status:   not built (run 'gaia build')")
		return nil
	}
	fmt.Printf("Size:     %s\n", formatBytes(info.Size))
	fmt.Printf("Table:    %s\n", info.Table)
	if info.Error != "" {
		fmt.Printf("Error:    %s\n", info.Error)
		return nil
	}
	fmt.Printf("Rows:     %d\n", info.Rows)
	fmt.Printf("Columns:  %s\n", strings.Join(info.Columns, ", "))

	return nil
}
