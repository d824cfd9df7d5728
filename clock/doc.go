// Package clock owns the Shared Timestamp and turns it into text.
//
// A Timestamp is the single piece of state a watcher keeps fresh: the unix
// time of the most recent stop. The subscriber package overwrites it as stop
// events arrive, and a Renderer reads it once per second and writes the
// elapsed duration, formatted by Since, to a Display:
//
//	ts := clock.NewTimestamp(seed)
//	r := clock.NewRenderer(ts, &clock.TerminalDisplay{W: os.Stdout})
//	go r.Run(ctx)
package clock
