package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/b-open-io/stopclock/dedup"
	"github.com/b-open-io/stopclock/internal/metrics"
	"github.com/b-open-io/stopclock/pubsub"
	"github.com/b-open-io/stopclock/store"
)

// Publisher records stops and announces them to subscribers
type Publisher struct {
	store   store.StopStore
	pubsub  pubsub.PubSub
	topic   string
	history *dedup.Loader[uint64, []store.Stop]

	// Bumped by every Stop so history loads never share a result that
	// started before the stop was recorded
	generation atomic.Uint64
}

// NewPublisher creates a Publisher announcing on pubsub.StopEventsTopic
func NewPublisher(s store.StopStore, ps pubsub.PubSub) *Publisher {
	// Page loads read the whole history; concurrent readers share one query
	return &Publisher{
		store:   s,
		pubsub:  ps,
		topic:   pubsub.StopEventsTopic,
		history: dedup.NewLoader(func(ctx context.Context, _ uint64) ([]store.Stop, error) {
			return s.List(ctx)
		}),
	}
}

// Stop records a stop at ts and publishes it. The stop is kept even when
// publishing fails; the error is returned so the caller can report it.
func (p *Publisher) Stop(ctx context.Context, ts int64) (store.Stop, error) {
	stop, err := p.store.Push(ctx, ts)
	if err != nil {
		return store.Stop{}, fmt.Errorf("failed to record stop: %w", err)
	}

	p.generation.Add(1)
	metrics.StopsTotal.Inc()
	metrics.LastStopTimestamp.Set(float64(stop.LastStopTs))

	data, err := json.Marshal(stop)
	if err != nil {
		return stop, fmt.Errorf("failed to encode stop: %w", err)
	}
	if err := p.pubsub.Publish(ctx, p.topic, string(data), float64(stop.ID)); err != nil {
		return stop, fmt.Errorf("failed to publish stop %d: %w", stop.ID, err)
	}

	slog.Info("Stop recorded", "id", stop.ID, "last_stop_ts", stop.LastStopTs)
	return stop, nil
}

// Recent returns the buffered stops newer than the given stop id, for
// clients reconnecting with Last-Event-ID.
func (p *Publisher) Recent(ctx context.Context, since int64) ([]store.Stop, error) {
	return p.store.Since(ctx, since)
}

// Last returns the most recent stop
func (p *Publisher) Last(ctx context.Context) (store.Stop, error) {
	return p.store.Last(ctx)
}

// History returns all buffered stops, oldest first
func (p *Publisher) History(ctx context.Context) ([]store.Stop, error) {
	return p.history.Load(ctx, p.generation.Load())
}
