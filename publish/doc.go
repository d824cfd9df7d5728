// Package publish records clock stops and announces them to subscribers.
//
// A stop goes through two steps:
//   - it is pushed into the bounded stop history (see package store), which
//     assigns it an increasing id
//   - the JSON-encoded stop is published on the stop_events topic with its id
//     as the score, so SSE handlers can use it as the event id
//
// Example Usage:
//
//	s, _ := store.CreateStopStore("memory://", store.DefaultCapacity)
//	ps, _ := pubsub.CreatePubSub("channels://")
//	publisher := publish.NewPublisher(s, ps)
//
//	stop, err := publisher.Stop(ctx, time.Now().Unix())
//
// Reconnecting clients catch up through Recent, which returns every buffered
// stop newer than the last id they saw.
package publish
