package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/averyc/sentinel/internal/collector"
	"github.com/averyc/sentinel/internal/logging"
	"github.com/averyc/sentinel/internal/newsapi"
)

var collectHours int

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run a single collection pass and exit",
	RunE:  runCollect,
}

func init() {
	collectCmd.Flags().IntVar(&collectHours, "hours", 24, "how many hours back to search")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	if collectHours <= 0 {
		return fmt.Errorf("--hours must be positive, got %d", collectHours)
	}

	cfg, st, taxonomy, err := setup()
	if err != nil {
		return err
	}
	defer st.Close()
	defer logging.Close()

	if err := cfg.ValidateForCollection(); err != nil {
		return err
	}

	client := newsapi.NewClient(cfg.News.APIKey, cfg.News.BaseURL)
	c := collector.New(st, client, taxonomy, logging.WithPrefix("collector"))

	summary := c.Collect(context.Background(), collectHours)

	cmd.Printf("Found %d articles, stored %d incidents\n", summary.ArticlesFound, summary.ArticlesProcessed)
	for _, e := range summary.Errors {
		cmd.Printf("  error: %s\n", e)
	}
	if !summary.Success {
		return fmt.Errorf("collection failed")
	}
	return nil
}
