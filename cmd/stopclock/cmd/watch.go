package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/b-open-io/stopclock/client"
	"github.com/b-open-io/stopclock/clock"
	"github.com/b-open-io/stopclock/subscriber"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the clock from the terminal",
	Long: `Seed the clock from the server's page, then follow /stop_events and
print the time since the last stop once per second. Lost connections are
retried forever with a delay doubling from 1s to 64s.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	flags := watchCmd.Flags()
	flags.Duration("retry-min", 0, "first reconnect delay (default 1s)")
	flags.Duration("retry-max", 0, "maximum reconnect delay (default 64s)")

	viper.BindPFlag("client.retry_min", flags.Lookup("retry-min"))
	viper.BindPFlag("client.retry_max", flags.Lookup("retry-max"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.NewClient(settings.Client.ServerURL)
	if err != nil {
		return err
	}
	c.WithEventsPath(settings.Client.EventsPath)

	seed, err := c.Seed(ctx)
	if err != nil {
		// The stream will deliver the next stop; start from zero until then
		slog.Warn("Failed to seed from page", "server", settings.Client.ServerURL, "error", err)
	}
	ts := clock.NewTimestamp(seed)

	sub := subscriber.NewSubscriber(&subscriber.SubscriberConfig{
		MinDelay: settings.Client.RetryMin,
		MaxDelay: settings.Client.RetryMax,
	}, ts)
	subscription := sub.Subscribe(ctx, c.EventsURL())

	clock.NewRenderer(ts, &clock.TerminalDisplay{W: cmd.OutOrStdout()}).Run(ctx)
	<-subscription.Done()
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
