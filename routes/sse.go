package routes

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/b-open-io/stopclock/pubsub"
	"github.com/b-open-io/stopclock/store"
)

// DefaultPingInterval is how often an idle stream receives a keep-alive comment
const DefaultPingInterval = 15 * time.Second

// CatchupFunc retrieves the stops newer than the given id for clients
// resuming with Last-Event-ID.
type CatchupFunc func(ctx context.Context, since int64) ([]store.Stop, error)

// SSERoutesConfig holds the configuration for SSE streaming routes
type SSERoutesConfig struct {
	SSEManager   *pubsub.SSEManager
	Catchup      CatchupFunc // Optional - can be nil
	Context      context.Context
	Path         string        // Defaults to /stop_events
	PingInterval time.Duration // Defaults to DefaultPingInterval
}

// RegisterSSERoutes registers the stop event stream
func RegisterSSERoutes(group fiber.Router, config *SSERoutesConfig) error {
	if config == nil || config.SSEManager == nil || config.Context == nil {
		return errors.New("RegisterSSERoutes: config, SSEManager, and context are required")
	}

	sseManager := config.SSEManager
	catchup := config.Catchup
	ctx := config.Context
	path := config.Path
	if path == "" {
		path = "/stop_events"
	}
	pingInterval := config.PingInterval
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}

	group.Get(path, func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")
		c.Set("X-Accel-Buffering", "no")
		c.Set("Access-Control-Allow-Origin", "*")

		// Check for Last-Event-ID header for resumption
		var lastID int64
		if lastEventID := c.Get("Last-Event-ID"); lastEventID != "" {
			if id, err := strconv.ParseInt(lastEventID, 10, 64); err == nil && id > 0 {
				lastID = id
			}
		}
		remote := c.IP()

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			// Register before catching up so no stop falls between the two
			client := sseManager.RegisterClient()
			defer sseManager.DeregisterClient(client.ID)

			slog.Debug("SSE client connected", "client", client.ID, "remote", remote, "last_event_id", lastID)

			// Flush headers so the client sees the stream open right away
			fmt.Fprint(w, ": connected\n\n")
			if err := w.Flush(); err != nil {
				return // Connection closed
			}

			if lastID > 0 && catchup != nil {
				stops, err := catchup(ctx, lastID)
				if err != nil {
					slog.Error("Catchup error", "since", lastID, "error", err)
				}
				for _, stop := range stops {
					if err := writeStop(w, stop); err != nil {
						return
					}
					lastID = stop.ID
				}
			}

			// Keep connection alive with periodic pings
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()

			for {
				select {
				case event, ok := <-client.Events:
					if !ok {
						return
					}
					id := int64(event.Score)
					if id > 0 && id <= lastID {
						continue // already sent during catchup
					}
					if id > 0 {
						fmt.Fprintf(w, "id: %d\n", id)
						lastID = id
					}
					fmt.Fprintf(w, "data: %s\n\n", event.Member)
					if err := w.Flush(); err != nil {
						return // Connection closed
					}
				case <-ticker.C:
					fmt.Fprint(w, ": ping\n\n")
					if err := w.Flush(); err != nil {
						return // Connection closed
					}
				case <-sseManager.Done():
					return
				case <-ctx.Done():
					return
				}
			}
		})

		return nil
	})

	return nil
}

func writeStop(w *bufio.Writer, stop store.Stop) error {
	data, err := json.Marshal(stop)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "id: %d\ndata: %s\n\n", stop.ID, data)
	return w.Flush()
}
