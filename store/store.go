package store

import (
	"context"
	"errors"
)

// DefaultCapacity is the number of stops kept when none is configured.
const DefaultCapacity = 5

// ErrEmpty is returned by Last when no stop has been recorded yet.
var ErrEmpty = errors.New("no stops recorded")

// Stop is a single recorded stop of the clock.
type Stop struct {
	ID         int64 `json:"id" bson:"_id"`
	LastStopTs int64 `json:"last_stop_ts" bson:"last_stop_ts"`
}

// StopStore keeps a bounded, ordered history of stops.
//
// IDs are assigned by the store, start at 1 and increase monotonically.
// Only the newest Capacity stops are retained.
type StopStore interface {
	// Push records a stop at unix time ts and returns it with its new ID.
	Push(ctx context.Context, ts int64) (Stop, error)

	// Last returns the most recent stop, or ErrEmpty.
	Last(ctx context.Context) (Stop, error)

	// List returns the retained stops, oldest first.
	List(ctx context.Context) ([]Stop, error)

	// Since returns retained stops with an ID greater than id, oldest first.
	Since(ctx context.Context, id int64) ([]Stop, error)

	Close() error
}

// Seed records ts when the store holds no stops yet. It reports whether a
// stop was pushed.
func Seed(ctx context.Context, s StopStore, ts int64) (bool, error) {
	if _, err := s.Last(ctx); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrEmpty) {
		return false, err
	}

	if _, err := s.Push(ctx, ts); err != nil {
		return false, err
	}
	return true, nil
}

func since(stops []Stop, id int64) []Stop {
	out := make([]Stop, 0, len(stops))
	for _, s := range stops {
		if s.ID > id {
			out = append(out, s)
		}
	}
	return out
}
