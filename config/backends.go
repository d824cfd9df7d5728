package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/b-open-io/stopclock/internal/utils"
	"github.com/b-open-io/stopclock/publish"
	"github.com/b-open-io/stopclock/pubsub"
	"github.com/b-open-io/stopclock/store"
)

// Backends bundles the stop history, the event fan-out and the publisher
// that ties them together.
type Backends struct {
	Store     store.StopStore
	PubSub    pubsub.PubSub
	Publisher *publish.Publisher
}

// CreateBackends creates a fully configured set of backends.
//
// Example configurations:
//
//  1. All Redis, for several server instances behind a load balancer:
//     server.store=redis://localhost:6379 server.pubsub=redis://localhost:6379
//
//  2. SQLite history, single instance:
//     server.store=./stopclock.db server.pubsub=channels://
//
//  3. Default no-dependency setup:
//     server.store=memory:// server.pubsub=channels://
//
// An empty history is seeded with s.InitialStop.
func CreateBackends(ctx context.Context, s *ServerSettings) (*Backends, error) {
	stopStore, err := store.CreateStopStore(s.StoreURL, s.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create stop store: %w", err)
	}
	slog.Info("Stop store ready", "url", utils.SanitizeConnectionString(s.StoreURL), "capacity", s.Capacity)

	if seeded, err := store.Seed(ctx, stopStore, s.InitialStop); err != nil {
		stopStore.Close()
		return nil, fmt.Errorf("failed to seed stop store: %w", err)
	} else if seeded {
		slog.Info("Seeded empty stop history", "last_stop_ts", s.InitialStop)
	}

	ps, err := pubsub.CreatePubSub(s.PubSubURL)
	if err != nil {
		stopStore.Close()
		return nil, fmt.Errorf("failed to create pub/sub: %w", err)
	}
	if err := ps.Start(ctx); err != nil {
		ps.Close()
		stopStore.Close()
		return nil, fmt.Errorf("failed to start pub/sub: %w", err)
	}
	slog.Info("Pub/sub ready", "url", utils.SanitizeConnectionString(s.PubSubURL))

	return &Backends{
		Store:     stopStore,
		PubSub:    ps,
		Publisher: publish.NewPublisher(stopStore, ps),
	}, nil
}

// Close releases the pub/sub and the store
func (b *Backends) Close() error {
	return errors.Join(b.PubSub.Close(), b.Store.Close())
}
