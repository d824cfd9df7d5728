package routes

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b-open-io/stopclock/clock"
	"github.com/b-open-io/stopclock/internal/ratelimit"
	"github.com/b-open-io/stopclock/publish"
	"github.com/b-open-io/stopclock/pubsub"
	"github.com/b-open-io/stopclock/store"
	"github.com/b-open-io/stopclock/subscriber"
)

type testServer struct {
	app       *fiber.App
	publisher *publish.Publisher
	manager   *pubsub.SSEManager
	ctx       context.Context
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ps := pubsub.NewChannelPubSub()
	t.Cleanup(func() { ps.Close() })

	manager, err := pubsub.NewSSEManager(ctx, ps)
	require.NoError(t, err)
	t.Cleanup(func() { manager.Stop() })

	publisher := publish.NewPublisher(store.NewMemoryStore(5), ps)

	app := fiber.New()
	require.NoError(t, RegisterStopRoutes(app, &StopRoutesConfig{
		Publisher: publisher,
		Limiter:   limiter,
		Now:       func() time.Time { return time.Unix(1700000045, 0) },
	}))
	require.NoError(t, RegisterSSERoutes(app, &SSERoutesConfig{
		SSEManager:   manager,
		Catchup:      publisher.Recent,
		Context:      ctx,
		PingInterval: 50 * time.Millisecond,
	}))
	RegisterMetricsRoutes(app)

	return &testServer{app: app, publisher: publisher, manager: manager, ctx: ctx}
}

// listen serves the app on a loopback port and returns its base URL
func (s *testServer) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.app.Listener(ln)
	t.Cleanup(func() { s.app.ShutdownWithTimeout(time.Second) })
	return "http://" + ln.Addr().String()
}

func (s *testServer) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := s.app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestLastEmpty(t *testing.T) {
	s := newTestServer(t, nil)
	status, _ := s.get(t, "/last")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestStopRoute(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.get(t, "/stop/1700000000")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body)

	status, body = s.get(t, "/last")
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"id":1,"last_stop_ts":1700000000}`, body)

	s.get(t, "/stop/1700000010")
	status, body = s.get(t, "/history")
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `[{"id":1,"last_stop_ts":1700000000},{"id":2,"last_stop_ts":1700000010}]`, body)
}

func TestStopRouteRejectsInvalid(t *testing.T) {
	s := newTestServer(t, nil)

	for _, ts := range []string{"abc", "-5", "1.5"} {
		status, _ := s.get(t, "/stop/"+ts)
		assert.Equal(t, fiber.StatusBadRequest, status, ts)
	}

	status, _ := s.get(t, "/last")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestStopRouteRateLimited(t *testing.T) {
	s := newTestServer(t, ratelimit.NewLimiter(0.001, 2))

	for i := 0; i < 2; i++ {
		status, _ := s.get(t, "/stop/1700000000")
		assert.Equal(t, fiber.StatusOK, status)
	}
	status, _ := s.get(t, "/stop/1700000000")
	assert.Equal(t, fiber.StatusTooManyRequests, status)
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, nil)
	s.get(t, "/stop/1700000000")

	resp, err := s.app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `value="1700000000"`)
	assert.Contains(t, string(body), "45 seconds")
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t, nil)
	s.get(t, "/stop/1700000000")

	status, body := s.get(t, "/metrics")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "stopclock_stops_total")
}

// readUntil reads SSE lines until one has the given prefix
func readUntil(t *testing.T, r *bufio.Reader, prefix string) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
}

func openStream(t *testing.T, url, lastEventID string) *bufio.Reader {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	readUntil(t, r, ": connected")
	return r
}

func TestStopEventsStream(t *testing.T) {
	s := newTestServer(t, nil)
	base := s.listen(t)

	r := openStream(t, base+"/stop_events", "")

	_, err := s.publisher.Stop(context.Background(), 1700000000)
	require.NoError(t, err)

	assert.Equal(t, "id: 1", readUntil(t, r, "id:"))
	assert.Equal(t, `data: {"id":1,"last_stop_ts":1700000000}`, readUntil(t, r, "data:"))

	// Idle streams get keep-alive comments
	readUntil(t, r, ": ping")
}

func TestStopEventsReplay(t *testing.T) {
	s := newTestServer(t, nil)
	base := s.listen(t)

	for ts := int64(10); ts <= 30; ts += 10 {
		_, err := s.publisher.Stop(context.Background(), ts)
		require.NoError(t, err)
	}

	r := openStream(t, base+"/stop_events", "1")
	assert.Equal(t, `data: {"id":2,"last_stop_ts":20}`, readUntil(t, r, "data:"))
	assert.Equal(t, `data: {"id":3,"last_stop_ts":30}`, readUntil(t, r, "data:"))

	_, err := s.publisher.Stop(context.Background(), 40)
	require.NoError(t, err)
	assert.Equal(t, `data: {"id":4,"last_stop_ts":40}`, readUntil(t, r, "data:"))
}

func TestSubscriberFollowsServer(t *testing.T) {
	s := newTestServer(t, nil)
	base := s.listen(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := clock.NewTimestamp(1662921288)
	sub := subscriber.NewSubscriber(nil, ts).Subscribe(ctx, base+"/stop_events")

	require.Eventually(t, func() bool {
		return s.manager.ClientCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	_, err := s.publisher.Stop(context.Background(), 1700000000)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return ts.Load() == 1700000000
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, subscriber.Open, sub.State())
}

func TestRegisterRequiresConfig(t *testing.T) {
	app := fiber.New()
	assert.Error(t, RegisterStopRoutes(app, nil))
	assert.Error(t, RegisterSSERoutes(app, &SSERoutesConfig{}))
}
