package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterBurst(t *testing.T) {
	l := NewLimiter(0.001, 2)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	// Keys are independent
	assert.True(t, l.Allow("b"))
}

func TestCleanupOldLimiters(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := NewLimiter(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(10 * time.Minute)
	l.Allow("new")

	assert.Equal(t, 1, l.CleanupOldLimiters(5*time.Minute))
	assert.Equal(t, 1, l.Len())
}

func TestHandler(t *testing.T) {
	l := NewLimiter(0.001, 1)
	rejected := 0

	app := fiber.New()
	app.Get("/", l.Handler(IPKeyFunc, func(*fiber.Ctx) { rejected++ }), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 1, rejected)
}
