package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/averyc/sentinel/internal/classify"
	"github.com/averyc/sentinel/internal/config"
	"github.com/averyc/sentinel/internal/logging"
	"github.com/averyc/sentinel/internal/store"
)

var dataDir string

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Crime news collection engine",
	Long: `Sentinel pulls recent crime reporting from NewsAPI, filters out
entertainment coverage, classifies articles into crime categories,
extracts US state mentions, and persists deduplicated incidents
to a local SQLite database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.sentinel)")
}

// setup loads config, opens logging and the store. Callers own st.Close
// and logging.Close.
func setup() (*config.Config, *store.Store, *classify.Taxonomy, error) {
	if dataDir == "" {
		dataDir = config.DataDir()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, nil, nil, fmt.Errorf("create data directory: %w", err)
	}
	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := logging.Init(dataDir); err != nil {
		return nil, nil, nil, err
	}
	st, err := store.Open(cfg.DatabasePath(dataDir))
	if err != nil {
		logging.Close()
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	taxonomy := classify.DefaultTaxonomy()
	if cfg.TaxonomyFile != "" {
		taxonomy, err = classify.LoadTaxonomy(cfg.TaxonomyFile)
		if err != nil {
			st.Close()
			logging.Close()
			return nil, nil, nil, fmt.Errorf("load taxonomy: %w", err)
		}
	}
	return cfg, st, taxonomy, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
