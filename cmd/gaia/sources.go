package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesLimit int

// SourcesResponse is the response for the sources command.
type SourcesResponse struct {
	IndexURL string   `json:"index_url"`
	Total    int      `json:"total"`
	Sources  []string `json:"sources"`
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.Flags().IntVar(&sourcesLimit, "limit", 0, "Show at most this many sources (0 = all)")
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the chunks available in the archive",
	Long: `List the catalog chunks linked from the archive directory listing,
in the order 'gaia build' ingests them.

Examples:
  gaia sources --limit 10
  gaia sources --human`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := mustLogger(cfg)
	defer logger.Sync()

	client, err := newArchiveClient(cfg, logger)
	if err != nil {
		return err
	}
	sources, err := client.ListSources(context.Background(), cfg.Settings.ArchiveURL)
	if err != nil {
		return failWith(err, "listing archive")
	}

	total := len(sources)
	if sourcesLimit > 0 && len(sources) > sourcesLimit {
		sources = sources[:sourcesLimit]
	}

	if humanOutput {
		for _, s := range sources {
			fmt.Println(s)
		}
		fmt.Printf("(%d of %d sources)\n", len(sources), total)
	} else {
		outputJSON(SourcesResponse{IndexURL: cfg.Settings.ArchiveURL, Total: total, Sources: sources})
	}

	return nil
}
