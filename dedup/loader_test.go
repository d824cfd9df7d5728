package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderCoalescesConcurrentLoads(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	loader := NewLoader(func(ctx context.Context, key string) (int, error) {
		calls.Add(1)
		<-release
		return len(key), nil
	})

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := loader.Load(context.Background(), "history")
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool { return loader.InFlight() == 1 }, time.Second, time.Millisecond)
	// Give the other callers time to join the in-flight load
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []int{7, 7, 7, 7, 7}, results)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, loader.InFlight())
}

func TestLoaderSequentialLoadsRunAgain(t *testing.T) {
	var calls atomic.Int32
	loader := NewLoader(func(ctx context.Context, key string) (int32, error) {
		return calls.Add(1), nil
	})

	first, err := loader.Load(context.Background(), "k")
	require.NoError(t, err)
	second, err := loader.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, int32(1), first)
	assert.Equal(t, int32(2), second)
}

func TestLoaderSharesErrors(t *testing.T) {
	boom := errors.New("boom")
	loader := NewLoader(func(ctx context.Context, key int) (string, error) {
		return "", boom
	})
	_, err := loader.Load(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}

func TestLoaderWaiterCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	loader := NewLoader(func(ctx context.Context, key int) (int, error) {
		<-release
		return 1, nil
	})

	go loader.Load(context.Background(), 1)
	require.Eventually(t, func() bool { return loader.InFlight() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.Load(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
