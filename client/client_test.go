package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b-open-io/stopclock/store"
)

func newTestServer(t *testing.T) (*Client, *[]string) {
	t.Helper()
	var requests []string

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		fmt.Fprint(w, `<html><input value="3"><input value="17"><input value="9"></html>`)
	})
	mux.HandleFunc("/stop/{ts}", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		if r.PathValue("ts") == "13" {
			http.Error(w, "unlucky", http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/last", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":4,"last_stop_ts":1700000000}`)
	})
	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":3,"last_stop_ts":1690000000},{"id":4,"last_stop_ts":1700000000}]`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	require.NoError(t, err)
	return c, &requests
}

func TestStop(t *testing.T) {
	c, requests := newTestServer(t)

	require.NoError(t, c.Stop(context.Background(), 1700000000))
	assert.Equal(t, []string{"/stop/1700000000"}, *requests)

	err := c.Stop(context.Background(), 13)
	assert.ErrorContains(t, err, "status 400")
}

func TestSeed(t *testing.T) {
	c, _ := newTestServer(t)

	seed, err := c.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(17), seed)
}

func TestLastAndHistory(t *testing.T) {
	c, _ := newTestServer(t)

	last, err := c.Last(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.Stop{ID: 4, LastStopTs: 1700000000}, last)

	history, err := c.History(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []store.Stop{{ID: 3, LastStopTs: 1690000000}, {ID: 4, LastStopTs: 1700000000}}, history)
}

func TestLastEmpty(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = c.Last(context.Background())
	assert.ErrorIs(t, err, ErrNoStops)
}

func TestEventsURL(t *testing.T) {
	c, err := NewClient("http://clock.example:8000/app/")
	require.NoError(t, err)
	assert.Equal(t, "http://clock.example:8000/app/stop_events", c.EventsURL())

	c.WithEventsPath("/events")
	assert.Equal(t, "http://clock.example:8000/app/events", c.EventsURL())
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://clock.example")
	assert.Error(t, err)

	_, err = NewClient("://nope")
	assert.Error(t, err)
}
