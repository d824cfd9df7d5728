package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/b-open-io/stopclock/internal/utils"
)

const (
	redisStopsKey = "stops"
	redisSeqKey   = "stops:seq"
)

// RedisStore keeps stops in a capped sorted set scored by stop ID
type RedisStore struct {
	client   *redis.Client
	capacity int64
}

func NewRedisStore(connString string, capacity int) (*RedisStore, error) {
	slog.Info("Connecting to Redis stop store", "url", utils.SanitizeConnectionString(connString))
	opts, err := redis.ParseURL(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client, capacity: int64(capacity)}, nil
}

func (r *RedisStore) Push(ctx context.Context, ts int64) (Stop, error) {
	id, err := r.client.Incr(ctx, redisSeqKey).Result()
	if err != nil {
		return Stop{}, fmt.Errorf("failed to allocate stop id: %w", err)
	}

	stop := Stop{ID: id, LastStopTs: ts}
	member, err := json.Marshal(stop)
	if err != nil {
		return Stop{}, err
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, redisStopsKey, redis.Z{
			Score:  float64(id),
			Member: string(member),
		})
		// Keep only the newest capacity members
		p.ZRemRangeByRank(ctx, redisStopsKey, 0, -r.capacity-1)
		return nil
	})
	if err != nil {
		return Stop{}, fmt.Errorf("failed to store stop: %w", err)
	}
	return stop, nil
}

func (r *RedisStore) Last(ctx context.Context) (Stop, error) {
	members, err := r.client.ZRevRange(ctx, redisStopsKey, 0, 0).Result()
	if err != nil {
		return Stop{}, err
	}
	if len(members) == 0 {
		return Stop{}, ErrEmpty
	}
	return decodeStop(members[0])
}

func (r *RedisStore) List(ctx context.Context) ([]Stop, error) {
	members, err := r.client.ZRange(ctx, redisStopsKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return decodeStops(members)
}

func (r *RedisStore) Since(ctx context.Context, id int64) ([]Stop, error) {
	members, err := r.client.ZRangeByScore(ctx, redisStopsKey, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(id, 10), // Exclusive lower bound
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	return decodeStops(members)
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func decodeStop(member string) (Stop, error) {
	var stop Stop
	if err := json.Unmarshal([]byte(member), &stop); err != nil {
		return Stop{}, fmt.Errorf("failed to decode stop %q: %w", member, err)
	}
	return stop, nil
}

func decodeStops(members []string) ([]Stop, error) {
	stops := make([]Stop, 0, len(members))
	for _, member := range members {
		stop, err := decodeStop(member)
		if err != nil {
			return nil, err
		}
		stops = append(stops, stop)
	}
	return stops, nil
}
