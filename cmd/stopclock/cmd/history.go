package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/b-open-io/stopclock/client"
	"github.com/b-open-io/stopclock/clock"
)

var outputFormat string

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent stops",
	Long:  `Retrieve and display the stops the server keeps, oldest first.`,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

func runHistory(cmd *cobra.Command, args []string) error {
	c, err := client.NewClient(settings.Client.ServerURL)
	if err != nil {
		return err
	}

	stops, err := c.History(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stops)
	case "table":
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}

	if len(stops) == 0 {
		fmt.Fprintln(out, "No stops recorded")
		return nil
	}

	now := time.Now()
	table := tablewriter.NewWriter(out)
	table.Header("ID", "Stopped At", "Since")
	for _, stop := range stops {
		table.Append(
			strconv.FormatInt(stop.ID, 10),
			time.Unix(stop.LastStopTs, 0).UTC().Format(time.RFC3339),
			clock.Since(stop.LastStopTs, now),
		)
	}
	return table.Render()
}
