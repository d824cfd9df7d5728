// Package dedup coalesces concurrent loads of the same key.
package dedup

import (
	"context"
	"sync"
)

// operation represents an in-flight load with result sharing
type operation[T any] struct {
	done   chan struct{}
	result T
	err    error
}

// Loader provides deduplication for concurrent load operations by key
type Loader[K comparable, T any] struct {
	loader     func(context.Context, K) (T, error)
	mu         sync.Mutex
	operations map[K]*operation[T]
}

// NewLoader creates a new deduplicated loader with the specified worker function
func NewLoader[K comparable, T any](loader func(context.Context, K) (T, error)) *Loader[K, T] {
	return &Loader[K, T]{
		loader:     loader,
		operations: make(map[K]*operation[T]),
	}
}

// Load executes the loader function for the given key, deduplicating concurrent calls.
// If another goroutine is already loading the same key, this call waits for
// that result instead of executing the loader again. A waiter whose ctx ends
// first returns ctx.Err(); the load itself runs with the first caller's ctx.
func (d *Loader[K, T]) Load(ctx context.Context, key K) (T, error) {
	d.mu.Lock()
	if op, ok := d.operations[key]; ok {
		d.mu.Unlock()
		select {
		case <-op.done:
			return op.result, op.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	op := &operation[T]{done: make(chan struct{})}
	d.operations[key] = op
	d.mu.Unlock()

	op.result, op.err = d.loader(ctx, key)

	d.mu.Lock()
	delete(d.operations, key)
	d.mu.Unlock()
	close(op.done)

	return op.result, op.err
}

// InFlight returns the number of keys currently loading
func (d *Loader[K, T]) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.operations)
}
