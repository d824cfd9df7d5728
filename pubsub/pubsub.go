package pubsub

import (
	"context"
	"errors"
)

// StopEventsTopic is the topic stop announcements are published on.
const StopEventsTopic = "stop_events"

// ErrNotSubscribed is returned by Unsubscribe before any Subscribe call.
var ErrNotSubscribed = errors.New("not subscribed")

// Event represents a unified event that can come from Redis or in-process channels
type Event struct {
	Topic  string  `json:"topic"`
	Member string  `json:"member"` // Payload, a JSON-encoded stop for StopEventsTopic
	Score  float64 `json:"score"`  // Stop ID; 0 when not provided
	Source string  `json:"source"` // "redis", "channels"
}

// PubSub interface for unified publishing and subscribing
type PubSub interface {
	// Publishing functionality
	Publish(ctx context.Context, topic string, data string, score ...float64) error

	// Subscribing functionality
	Subscribe(ctx context.Context, topics []string) (<-chan Event, error)
	Unsubscribe(topics []string) error

	// Connection management
	Start(ctx context.Context) error
	Stop() error
	Close() error
}
