package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/b-open-io/stopclock/internal/utils"
)

// RedisPubSub handles both publishing and subscribing to Redis, letting
// several server instances share stop announcements.
type RedisPubSub struct {
	redisClient *redis.Client
	subs        []*redis.PubSub
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
}

// NewRedisPubSub creates a new Redis pub/sub handler
func NewRedisPubSub(redisURL string) (*RedisPubSub, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisClient := redis.NewClient(opts)

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	slog.Info("Connected to Redis pub/sub", "url", utils.SanitizeConnectionString(redisURL))

	ctx, cancel := context.WithCancel(context.Background())
	return &RedisPubSub{
		redisClient: redisClient,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Publish publishes an event to Redis. The score, when given, is encoded in
// the message as {score}:{data}.
func (r *RedisPubSub) Publish(ctx context.Context, topic string, data string, score ...float64) error {
	message := data
	if len(score) > 0 {
		message = fmt.Sprintf("%.0f:%s", score[0], data)
	}
	return r.redisClient.Publish(ctx, topic, message).Err()
}

// Subscribe subscribes to topics and returns a channel of events that is
// closed when ctx is cancelled or the pub/sub is stopped.
func (r *RedisPubSub) Subscribe(ctx context.Context, topics []string) (<-chan Event, error) {
	ps := r.redisClient.Subscribe(ctx, topics...)
	// Wait for the subscription confirmation so publishes right after
	// Subscribe returns are not lost
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %v: %w", topics, err)
	}

	r.mu.Lock()
	r.subs = append(r.subs, ps)
	r.mu.Unlock()

	events := make(chan Event, 1000)
	go r.listenLoop(ctx, ps, events)
	return events, nil
}

// listenLoop converts Redis pub/sub messages into Event objects
func (r *RedisPubSub) listenLoop(ctx context.Context, ps *redis.PubSub, events chan<- Event) {
	defer close(events)
	defer r.release(ps)

	messages := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			member, score := parseMessage(msg.Payload)
			select {
			case events <- Event{Topic: msg.Channel, Member: member, Score: score, Source: "redis"}:
			case <-ctx.Done():
				return
			case <-r.ctx.Done():
				return
			}
		}
	}
}

// parseMessage splits a {score}:{data} payload. Payloads without a numeric
// prefix are returned whole with a zero score.
func parseMessage(payload string) (string, float64) {
	if colonIndex := strings.Index(payload, ":"); colonIndex > 0 {
		if score, err := strconv.ParseFloat(payload[:colonIndex], 64); err == nil {
			return payload[colonIndex+1:], score
		}
	}
	return payload, 0
}

func (r *RedisPubSub) release(ps *redis.PubSub) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.subs {
		if s == ps {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			break
		}
	}
	ps.Close()
}

// Unsubscribe unsubscribes every active subscription from topics
func (r *RedisPubSub) Unsubscribe(topics []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.subs) == 0 {
		return ErrNotSubscribed
	}
	for _, ps := range r.subs {
		if err := ps.Unsubscribe(r.ctx, topics...); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisPubSub) Start(ctx context.Context) error {
	return r.redisClient.Ping(ctx).Err()
}

// Stop ends all subscriptions
func (r *RedisPubSub) Stop() error {
	r.cancel()
	return nil
}

// Close stops subscriptions and closes the Redis connection
func (r *RedisPubSub) Close() error {
	r.cancel()
	return r.redisClient.Close()
}
