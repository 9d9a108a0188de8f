package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/averyc/sentinel/internal/logging"
	"github.com/averyc/sentinel/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest collection run and recent incident counts",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, st, _, err := setup()
	if err != nil {
		return err
	}
	defer st.Close()
	defer logging.Close()

	last, err := st.LatestAPILog()
	if err != nil {
		return err
	}
	if last == nil {
		cmd.Println("No collection runs recorded yet.")
	} else {
		cmd.Printf("Last run:    %s\n", last.CreatedAt.Format(time.RFC3339))
		cmd.Printf("  endpoint:  %s\n", last.Endpoint)
		cmd.Printf("  status:    %d\n", last.Status)
		cmd.Printf("  found:     %d\n", last.ArticlesFound)
		cmd.Printf("  processed: %d\n", last.ArticlesProcessed)
		if last.Errors != nil {
			cmd.Printf("  errors:    %s\n", *last.Errors)
		}
	}

	dayAgo := time.Now().UTC().Add(-24 * time.Hour)
	recent, err := st.CountIncidentsSince(dayAgo)
	if err != nil {
		return err
	}
	cmd.Printf("Incidents discovered in the last 24h: %d\n", recent)

	incidents, err := st.ListIncidents(store.IncidentFilter{Since: dayAgo, Limit: 5})
	if err != nil {
		return err
	}
	if len(incidents) > 0 {
		cmd.Println("Most recent:")
		for _, inc := range incidents {
			state := "--"
			if inc.State != nil {
				state = *inc.State
			}
			cmd.Printf("  [%s/%s] %s (%s)\n", inc.CrimeType, inc.Severity, inc.Title, state)
		}
	}
	return nil
}
