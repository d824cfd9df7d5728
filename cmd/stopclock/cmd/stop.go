package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/b-open-io/stopclock/client"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop [unix-timestamp]",
	Short: "Stop the clock",
	Long:  `Record a stop at the given unix timestamp, or now when none is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	ts := time.Now().Unix()
	if len(args) == 1 {
		parsed, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", args[0], err)
		}
		ts = parsed
	}

	c, err := client.NewClient(settings.Client.ServerURL)
	if err != nil {
		return err
	}
	return c.Stop(cmd.Context(), ts)
}
