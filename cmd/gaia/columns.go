package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/gaiaoffline/internal/catalog"
	"github.com/matsen/gaiaoffline/internal/conesearch"
)

// ColumnsResponse is the response for the columns command.
type ColumnsResponse struct {
	Table   string   `json:"table,omitempty"`
	Columns []string `json:"columns"`
}

var columnsAvailable bool

func init() {
	rootCmd.AddCommand(columnsCmd)
	columnsCmd.Flags().BoolVar(&columnsAvailable, "available", false, "List every column that stored_columns may name")
}

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Show the columns of the catalog table",
	Args:  cobra.NoArgs,
	RunE:  runColumns,
}

func runColumns(cmd *cobra.Command, args []string) error {
	if columnsAvailable {
		printColumns("", catalog.StorableColumns())
		return nil
	}

	cfg := mustLoadConfig()
	cat := mustCatalog(cfg)
	dialect := mustDialect(cfg)

	engine, err := conesearch.Open(cfg.DBPath(), dialect, cat)
	if err != nil {
		return failWith(err, "opening catalog")
	}
	defer engine.Close()

	cols, err := engine.Columns(context.Background())
	if err != nil {
		return failWith(err, "reading columns")
	}

	printColumns(cat.TableName, cols)
	return nil
}

func printColumns(table string, cols []string) {
	if humanOutput {
		for _, c := range cols {
			fmt.Println(c)
		}
		return
	}
	outputJSON(ColumnsResponse{Table: table, Columns: cols})
}
