// Package client talks to a stopclock server's HTTP endpoints.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/b-open-io/stopclock/page"
	"github.com/b-open-io/stopclock/store"
)

// DefaultEventsPath is where the server streams stop events
const DefaultEventsPath = "/stop_events"

// ErrNoStops is returned by Last when the server has not recorded a stop
var ErrNoStops = errors.New("no stops recorded")

// Client manages communication with a stopclock server
type Client struct {
	base       *url.URL
	eventsPath string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server URL scheme %q", base.Scheme)
	}
	return &Client{
		base:       base,
		eventsPath: DefaultEventsPath,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// WithEventsPath overrides the path used by EventsURL
func (c *Client) WithEventsPath(path string) *Client {
	c.eventsPath = path
	return c
}

func (c *Client) resolve(path string) string {
	return c.base.JoinPath(path).String()
}

// EventsURL returns the absolute URL of the server's stop event stream
func (c *Client) EventsURL() string {
	return c.resolve(c.eventsPath)
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// Stop asks the server to record a stop at ts. Any non-2xx response is an error.
func (c *Client) Stop(ctx context.Context, ts int64) error {
	resp, err := c.get(ctx, "stop/"+strconv.FormatInt(ts, 10))
	if err != nil {
		slog.Error("Stop request failed", "ts", ts, "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("stop failed with status %d: %s", resp.StatusCode, string(body))
		slog.Error("Stop rejected", "ts", ts, "status", resp.StatusCode)
		return err
	}

	slog.Info("SOMEONE STOPPED THE CLOCK", "ts", ts)
	return nil
}

// Seed fetches the index page and returns the newest timestamp embedded in it
func (c *Client) Seed(ctx context.Context) (int64, error) {
	resp, err := c.get(ctx, "/")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("page request failed with status %d", resp.StatusCode)
	}
	return page.Seed(resp.Body)
}

// Last returns the most recent stop
func (c *Client) Last(ctx context.Context) (store.Stop, error) {
	var stop store.Stop
	resp, err := c.get(ctx, "last")
	if err != nil {
		return stop, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return stop, ErrNoStops
	default:
		body, _ := io.ReadAll(resp.Body)
		return stop, fmt.Errorf("last failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(&stop); err != nil {
		return stop, fmt.Errorf("failed to decode stop: %w", err)
	}
	return stop, nil
}

// History returns the stops the server keeps, oldest first
func (c *Client) History(ctx context.Context) ([]store.Stop, error) {
	resp, err := c.get(ctx, "history")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("history failed with status %d: %s", resp.StatusCode, string(body))
	}

	var stops []store.Stop
	if err := json.NewDecoder(resp.Body).Decode(&stops); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return stops, nil
}
