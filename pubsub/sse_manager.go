package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/b-open-io/stopclock/internal/metrics"
)

// DefaultClientBuffer is the number of events queued per SSE client before
// new events are dropped for it.
const DefaultClientBuffer = 16

// SSEClient represents an individual SSE connection. The HTTP handler owns
// the response writer and drains Events; the manager never writes to the
// connection itself.
type SSEClient struct {
	ID     string
	Events <-chan Event

	events chan Event
}

// SSEManager manages SSE clients and fans out pub/sub events to them
type SSEManager struct {
	pubsub  PubSub
	topics  []string
	buffer  int
	clients map[string]*SSEClient
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSSEManager subscribes to topics on pubsub and starts broadcasting
// received events to registered clients until ctx is cancelled or Stop is called.
func NewSSEManager(ctx context.Context, ps PubSub, topics ...string) (*SSEManager, error) {
	if len(topics) == 0 {
		topics = []string{StopEventsTopic}
	}

	managerCtx, cancel := context.WithCancel(ctx)
	events, err := ps.Subscribe(managerCtx, topics)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %v: %w", topics, err)
	}

	manager := &SSEManager{
		pubsub:  ps,
		topics:  topics,
		buffer:  DefaultClientBuffer,
		clients: make(map[string]*SSEClient),
		ctx:     managerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go manager.broadcastLoop(events)

	return manager, nil
}

// RegisterClient registers a new SSE client and returns it
func (s *SSEManager) RegisterClient() *SSEClient {
	ch := make(chan Event, s.buffer)
	client := &SSEClient{
		ID:     uuid.NewString(),
		Events: ch,
		events: ch,
	}

	s.mu.Lock()
	s.clients[client.ID] = client
	count := len(s.clients)
	s.mu.Unlock()

	metrics.SSEClients.Inc()
	slog.Debug("SSEManager: registered client", "client", client.ID, "topics", s.topics, "clients", count)
	return client
}

// DeregisterClient removes an SSE client and closes its event channel
func (s *SSEManager) DeregisterClient(clientID string) {
	s.mu.Lock()
	client, exists := s.clients[clientID]
	if exists {
		delete(s.clients, clientID)
		close(client.events)
	}
	s.mu.Unlock()

	if !exists {
		return // Already removed
	}
	metrics.SSEClients.Dec()
	slog.Debug("SSEManager: deregistered client", "client", clientID)
}

// ClientCount returns the number of registered clients
func (s *SSEManager) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Done is closed once the manager has stopped broadcasting
func (s *SSEManager) Done() <-chan struct{} {
	return s.done
}

// broadcastLoop distributes events to SSE clients
func (s *SSEManager) broadcastLoop(events <-chan Event) {
	defer close(s.done)

	for {
		select {
		case event, ok := <-events:
			if !ok {
				slog.Info("SSEManager: subscription closed")
				return
			}
			s.broadcastToClients(event)
		case <-s.ctx.Done():
			return
		}
	}
}

// broadcastToClients hands an event to every registered client. A client
// whose buffer is full misses the event; it can catch up with Last-Event-ID.
func (s *SSEManager) broadcastToClients(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sentCount := 0
	for id, client := range s.clients {
		select {
		case client.events <- event:
			sentCount++
		default:
			metrics.EventsDropped.Inc()
			slog.Warn("SSEManager: client lagging, dropping event", "client", id, "score", event.Score)
		}
	}

	slog.Debug("SSEManager: broadcast event", "topic", event.Topic, "sent", sentCount, "clients", len(s.clients))
}

// Stop stops the SSE manager
func (s *SSEManager) Stop() error {
	s.cancel()
	return nil
}
