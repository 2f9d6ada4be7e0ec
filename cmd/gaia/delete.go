package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/gaiaoffline/internal/store"
)

func init() {
	rootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the local catalog database",
	Long: `Delete the local catalog database file. Run 'gaia build' to recreate it.

Exits with code 1 if there is no database.`,
	Args: cobra.NoArgs,
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	dialect := mustDialect(cfg)
	path := cfg.DBPath()

	if err := store.Delete(path, dialect); err != nil {
		exitWithErr(err, "deleting database")
	}

	if humanOutput {
		outputHuman("Deleted %s\n", path)
	} else {
		outputJSON(StatusResponse{Status: "deleted", Path: path})
	}

	return nil
}
