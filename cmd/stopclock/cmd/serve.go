package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/b-open-io/stopclock/config"
	"github.com/b-open-io/stopclock/internal/ratelimit"
	"github.com/b-open-io/stopclock/pubsub"
	"github.com/b-open-io/stopclock/routes"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the clock",
	Long: `Serve the clock page, the stop action and the /stop_events stream.

The stop history lives in the store given by --store (memory://, redis://,
mongodb://, postgres://, mysql://, sqlite:// or a *.db path). Several
instances can share stops through --pubsub redis://.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("listen", "", "address to listen on (default :8000)")
	flags.String("store", "", "stop history connection string (default memory://)")
	flags.String("pubsub", "", "pub/sub connection string (default channels://)")
	flags.Int("capacity", 0, "number of stops to keep (default 5)")

	viper.BindPFlag("server.listen", flags.Lookup("listen"))
	viper.BindPFlag("server.store", flags.Lookup("store"))
	viper.BindPFlag("server.pubsub", flags.Lookup("pubsub"))
	viper.BindPFlag("server.capacity", flags.Lookup("capacity"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := newServer(ctx, &settings.Server)
	if err != nil {
		return err
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting stopclock server", "listen", settings.Server.Listen)
		errCh <- app.Listen(settings.Server.Listen)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
		slog.Info("Received shutdown signal, shutting down...")
	}

	return app.ShutdownWithTimeout(5 * time.Second)
}

// newServer wires the backends into a fiber app. cleanup releases everything
// newServer created.
func newServer(ctx context.Context, s *config.ServerSettings) (*fiber.App, func(), error) {
	backends, err := config.CreateBackends(ctx, s)
	if err != nil {
		return nil, nil, err
	}

	sseManager, err := pubsub.NewSSEManager(ctx, backends.PubSub, pubsub.StopEventsTopic)
	if err != nil {
		backends.Close()
		return nil, nil, err
	}

	limiter := ratelimit.NewLimiter(s.StopRate, s.StopBurst)
	go cleanupLimiters(ctx, limiter)

	app := fiber.New(fiber.Config{
		AppName:               "stopclock",
		DisableStartupMessage: true,
	})

	if err := routes.RegisterStopRoutes(app, &routes.StopRoutesConfig{
		Publisher: backends.Publisher,
		Limiter:   limiter,
	}); err != nil {
		sseManager.Stop()
		backends.Close()
		return nil, nil, err
	}
	if err := routes.RegisterSSERoutes(app, &routes.SSERoutesConfig{
		SSEManager:   sseManager,
		Catchup:      backends.Publisher.Recent,
		Context:      ctx,
		PingInterval: s.PingInterval,
	}); err != nil {
		sseManager.Stop()
		backends.Close()
		return nil, nil, err
	}
	routes.RegisterMetricsRoutes(app)

	cleanup := func() {
		sseManager.Stop()
		if err := backends.Close(); err != nil {
			slog.Error("Failed to close backends", "error", err)
		}
	}
	return app, cleanup, nil
}

func cleanupLimiters(ctx context.Context, limiter *ratelimit.Limiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := limiter.CleanupOldLimiters(10 * time.Minute); removed > 0 {
				slog.Debug("Removed idle rate limiters", "count", removed)
			}
		}
	}
}
