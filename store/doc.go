// Package store keeps the bounded history of clock stops.
//
// Every backend implements StopStore with the same contract: IDs start at 1
// and grow by one per Push, only the newest Capacity stops are retained, and
// List/Since return stops oldest first. Since backs Last-Event-ID replay for
// the event stream.
//
// Supported backends, selected with CreateStopStore:
//   - memory://  in-process ring buffer (default)
//   - SQLite     file path, *.db or sqlite://
//   - Redis      sorted set scored by ID plus an INCR sequence
//   - MongoDB    stops collection plus a counters document
//   - PostgreSQL BIGSERIAL table via pgx
//   - MySQL      AUTO_INCREMENT table
//
// A fresh store is usually seeded with one stop so the page always has a
// value to show:
//
//	s, err := store.CreateStopStore("./stopclock.db", store.DefaultCapacity)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store.Seed(ctx, s, 1662921288)
package store
