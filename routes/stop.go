package routes

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/b-open-io/stopclock/internal/metrics"
	"github.com/b-open-io/stopclock/internal/ratelimit"
	"github.com/b-open-io/stopclock/page"
	"github.com/b-open-io/stopclock/publish"
	"github.com/b-open-io/stopclock/store"
)

// StopRoutesConfig holds the configuration for the page and stop routes
type StopRoutesConfig struct {
	Publisher *publish.Publisher
	Limiter   *ratelimit.Limiter // Optional per-IP limit on /stop - can be nil
	Now       func() time.Time   // Defaults to time.Now
}

// RegisterStopRoutes registers the index page, the JSON views of the stop
// history, and the stop action.
func RegisterStopRoutes(group fiber.Router, config *StopRoutesConfig) error {
	if config == nil || config.Publisher == nil {
		return errors.New("RegisterStopRoutes: config and publisher are required")
	}

	publisher := config.Publisher
	now := config.Now
	if now == nil {
		now = time.Now
	}

	group.Get("/", func(c *fiber.Ctx) error {
		stops, err := publisher.History(c.Context())
		if err != nil {
			slog.Error("History lookup failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to load stops",
			})
		}

		c.Type("html", "utf-8")
		return page.Render(c, stops, now())
	})

	group.Get("/last", func(c *fiber.Ctx) error {
		stop, err := publisher.Last(c.Context())
		if errors.Is(err, store.ErrEmpty) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "No stops recorded",
			})
		} else if err != nil {
			slog.Error("Last stop lookup failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to load last stop",
			})
		}
		return c.JSON(stop)
	})

	group.Get("/history", func(c *fiber.Ctx) error {
		stops, err := publisher.History(c.Context())
		if err != nil {
			slog.Error("History lookup failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to load stops",
			})
		}
		return c.JSON(stops)
	})

	handlers := []fiber.Handler{}
	if config.Limiter != nil {
		handlers = append(handlers, config.Limiter.Handler(ratelimit.IPKeyFunc, func(c *fiber.Ctx) {
			metrics.StopsRejected.WithLabelValues("rate_limited").Inc()
			slog.Warn("Stop rate limited", "ip", c.IP())
		}))
	}
	handlers = append(handlers, func(c *fiber.Ctx) error {
		ts, err := strconv.ParseInt(c.Params("ts"), 10, 64)
		if err != nil || ts < 0 {
			metrics.StopsRejected.WithLabelValues("invalid").Inc()
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Timestamp must be a non-negative integer",
			})
		}

		if _, err := publisher.Stop(c.Context(), ts); err != nil {
			slog.Error("Stop failed", "ts", ts, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to record stop",
			})
		}
		c.Status(fiber.StatusOK)
		return nil
	})
	group.Get("/stop/:ts", handlers...)

	return nil
}
