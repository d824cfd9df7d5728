package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"

	"github.com/b-open-io/stopclock/clock"
	"github.com/b-open-io/stopclock/internal/metrics"
)

// State of a subscription's connection
type State int32

const (
	Connecting State = iota
	Open
	Closing
	Closed // only reached through cancellation
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// SubscriberConfig holds the reconnect policy and transport for subscriptions
type SubscriberConfig struct {
	// First reconnect delay, restored whenever a connection opens
	MinDelay time.Duration

	// Upper bound of the doubling reconnect delay
	MaxDelay time.Duration

	// HTTP client used for the event stream. It must not set a Timeout,
	// since the response body stays open indefinitely.
	HTTPClient *http.Client

	// OnRetry, when set, is called with the delay before each reconnect
	OnRetry func(time.Duration)
}

// DefaultSubscriberConfig returns the default reconnect policy: 1s doubling to 64s
func DefaultSubscriberConfig() *SubscriberConfig {
	return &SubscriberConfig{
		MinDelay:   time.Second,
		MaxDelay:   64 * time.Second,
		HTTPClient: &http.Client{},
	}
}

// Subscriber keeps a Shared Timestamp up to date from stop event streams
type Subscriber struct {
	config *SubscriberConfig
	ts     *clock.Timestamp

	// wait blocks for d or until ctx is done
	wait func(ctx context.Context, d time.Duration) error
}

// NewSubscriber creates a subscriber writing into ts. A nil cfg uses
// DefaultSubscriberConfig.
func NewSubscriber(cfg *SubscriberConfig, ts *clock.Timestamp) *Subscriber {
	defaults := DefaultSubscriberConfig()
	if cfg == nil {
		cfg = defaults
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = defaults.MinDelay
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = defaults.HTTPClient
	}
	return &Subscriber{
		config: cfg,
		ts:     ts,
		wait:   sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Subscription is one independent connect/reconnect loop
type Subscription struct {
	uri     string
	sub     *Subscriber
	backoff *backoff.Backoff
	state   atomic.Int32
	done    chan struct{}

	mu          sync.Mutex
	lastEventID string
}

// Subscribe starts a subscription to uri and returns immediately. Each call
// starts an additional, independent subscription with its own retry state.
// The subscription runs until ctx is cancelled.
func (s *Subscriber) Subscribe(ctx context.Context, uri string) *Subscription {
	sub := &Subscription{
		uri: uri,
		sub: s,
		backoff: &backoff.Backoff{
			Min:    s.config.MinDelay,
			Max:    s.config.MaxDelay,
			Factor: 2,
			Jitter: false,
		},
		done: make(chan struct{}),
	}
	go sub.run(ctx)
	return sub
}

// State returns the current connection state
func (s *Subscription) State() State {
	return State(s.state.Load())
}

// Delay returns the delay that the next connection failure will wait
func (s *Subscription) Delay() time.Duration {
	return s.backoff.ForAttempt(s.backoff.Attempt())
}

// LastEventID returns the id of the last event received, sent as
// Last-Event-ID when reconnecting
func (s *Subscription) LastEventID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEventID
}

// Done is closed once the subscription has been cancelled and stopped
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) setState(state State) {
	s.state.Store(int32(state))
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer s.setState(Closed)

	for {
		s.setState(Connecting)
		err := s.connect(ctx)
		if ctx.Err() != nil {
			slog.Debug("Subscription cancelled", "uri", s.uri)
			return
		}

		s.setState(Closing)
		delay := s.backoff.Duration()
		metrics.Reconnects.Inc()
		metrics.RetryDelay.Set(delay.Seconds())
		slog.Warn(fmt.Sprintf("connection lost. attempting to reconnect in %ds", int(delay.Seconds())),
			"uri", s.uri, "error", err)
		if s.sub.config.OnRetry != nil {
			s.sub.config.OnRetry(delay)
		}

		if err := s.sub.wait(ctx, delay); err != nil {
			slog.Debug("Subscription cancelled", "uri", s.uri)
			return
		}
	}
}

// connect opens the event stream and reads it until it fails. The returned
// error is never nil.
func (s *Subscription) connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.uri, nil)
	if err != nil {
		return fmt.Errorf("failed to create SSE request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if id := s.LastEventID(); id != "" {
		req.Header.Set("Last-Event-ID", id)
	}

	resp, err := s.sub.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("SSE endpoint returned status %d", resp.StatusCode)
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != "text/event-stream" {
		return fmt.Errorf("SSE endpoint returned content type %q", resp.Header.Get("Content-Type"))
	}

	s.onOpen()
	return s.readStream(ctx, resp)
}

func (s *Subscription) readStream(ctx context.Context, resp *http.Response) error {
	return readStream(ctx, resp.Body, func(ev event) {
		if ev.id != "" {
			s.mu.Lock()
			s.lastEventID = ev.id
			s.mu.Unlock()
		}
		if ev.eventType != "message" {
			return
		}
		s.sub.handleMessage(ev.data)
	})
}

func (s *Subscription) onOpen() {
	s.backoff.Reset()
	s.setState(Open)
	metrics.RetryDelay.Set(s.Delay().Seconds())
	slog.Info("SSE connection established", "uri", s.uri)
}

type stopMessage struct {
	LastStopTs *int64 `json:"last_stop_ts"`
}

// handleMessage applies a stop event to the Shared Timestamp. Messages
// without last_stop_ts are ignored; malformed ones are logged and dropped.
func (s *Subscriber) handleMessage(data string) {
	var msg stopMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		metrics.Messages.WithLabelValues("malformed").Inc()
		slog.Warn("Ignoring malformed stop event", "data", data, "error", err)
		return
	}
	if msg.LastStopTs == nil {
		metrics.Messages.WithLabelValues("ignored").Inc()
		return
	}

	s.ts.Store(*msg.LastStopTs)
	metrics.Messages.WithLabelValues("applied").Inc()
	slog.Info("Received", "last_stop_ts", *msg.LastStopTs)
}
