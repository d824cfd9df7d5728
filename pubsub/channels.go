package pubsub

import (
	"context"
	"log/slog"
	"sync"
)

// ChannelPubSub implements the PubSub interface using Go channels.
// This provides a no-dependency pub/sub for single-instance deployments.
type ChannelPubSub struct {
	subscribers map[string][]chan Event // topic -> list of subscriber channels
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewChannelPubSub creates a new channel-based pub/sub implementation
func NewChannelPubSub() *ChannelPubSub {
	ctx, cancel := context.WithCancel(context.Background())

	return &ChannelPubSub{
		subscribers: make(map[string][]chan Event),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Publish sends data to all subscribers of a topic. Subscribers whose
// buffer is full miss the event rather than block the publisher.
func (cp *ChannelPubSub) Publish(ctx context.Context, topic string, data string, score ...float64) error {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	subscribers := cp.subscribers[topic]

	var eventScore float64
	if len(score) > 0 {
		eventScore = score[0]
	}

	event := Event{
		Topic:  topic,
		Member: data,
		Score:  eventScore,
		Source: "channels",
	}

	sentCount := 0
	for _, ch := range subscribers {
		select {
		case ch <- event:
			sentCount++
		case <-ctx.Done():
			return ctx.Err()
		default:
			slog.Warn("ChannelPubSub: skipping full channel", "topic", topic)
		}
	}

	slog.Debug("ChannelPubSub: published", "topic", topic, "sent", sentCount, "subscribers", len(subscribers))
	return nil
}

// Subscribe creates a subscription to the given topics. The returned channel
// is closed once ctx is cancelled or the pub/sub is closed.
func (cp *ChannelPubSub) Subscribe(ctx context.Context, topics []string) (<-chan Event, error) {
	eventChan := make(chan Event, 100) // Buffered channel to avoid blocking publishers

	cp.mu.Lock()
	for _, topic := range topics {
		cp.subscribers[topic] = append(cp.subscribers[topic], eventChan)
	}
	cp.mu.Unlock()

	slog.Debug("ChannelPubSub: new subscription", "topics", topics)

	go func() {
		select {
		case <-ctx.Done():
		case <-cp.ctx.Done():
		}
		cp.unsubscribeChannel(eventChan, topics)
		close(eventChan)
	}()

	return eventChan, nil
}

// Unsubscribe drops every subscriber channel of topics. The channels
// themselves close when their subscription context ends.
func (cp *ChannelPubSub) Unsubscribe(topics []string) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if len(cp.subscribers) == 0 {
		return ErrNotSubscribed
	}
	for _, topic := range topics {
		delete(cp.subscribers, topic)
	}
	return nil
}

// unsubscribeChannel removes a specific channel from topic subscriptions
func (cp *ChannelPubSub) unsubscribeChannel(eventChan chan Event, topics []string) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	for _, topic := range topics {
		subscribers := cp.subscribers[topic]
		for i, ch := range subscribers {
			if ch == eventChan {
				cp.subscribers[topic] = append(subscribers[:i], subscribers[i+1:]...)
				break
			}
		}

		if len(cp.subscribers[topic]) == 0 {
			delete(cp.subscribers, topic)
		}
	}
}

func (cp *ChannelPubSub) Start(ctx context.Context) error {
	return nil
}

// Stop stops the pub/sub system
func (cp *ChannelPubSub) Stop() error {
	cp.cancel()
	return nil
}

// Close ends every subscription
func (cp *ChannelPubSub) Close() error {
	cp.cancel()
	return nil
}
