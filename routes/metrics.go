package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterMetricsRoutes exposes the Prometheus registry at /metrics
func RegisterMetricsRoutes(group fiber.Router) {
	group.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
