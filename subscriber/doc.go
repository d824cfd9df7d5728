// Package subscriber keeps a Shared Timestamp in sync with a server's stop
// event stream.
//
// The subscriber opens a server-sent event stream and applies every
// unnamed event carrying a last_stop_ts to the timestamp. It never gives up
// on a server: whatever ends the connection, it reconnects after a delay.
//
// Key Components:
//
// Subscriber:
//   - Holds the reconnect policy and the timestamp to update
//   - Starts any number of independent subscriptions
//
// Subscription:
//   - Runs the Connecting, Open, Closing loop on its own goroutine
//   - Sends Last-Event-ID on reconnect so the server can replay missed stops
//   - Exposes State and Delay for monitoring
//
// Reconnect Policy:
//
// The first failure waits MinDelay (1s by default). Each further failure
// doubles the delay up to MaxDelay (64s), giving 1, 2, 4, 8, 16, 32, 64, 64...
// Opening a connection resets the delay to MinDelay. A stream that ends
// cleanly counts as a failure.
//
// Message Handling:
//
//   - {"last_stop_ts": 1700000000} overwrites the timestamp
//   - a JSON object without last_stop_ts is ignored
//   - malformed JSON is logged and skipped; the connection stays open
//
// Example Usage:
//
//	ts := clock.NewTimestamp(seed)
//	sub := subscriber.NewSubscriber(nil, ts)
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	sub.Subscribe(ctx, "http://localhost:8000/stop_events")
//
// Cancelling ctx aborts an open connection or a pending reconnect wait.
package subscriber
