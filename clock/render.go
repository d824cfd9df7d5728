package clock

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Display is the surface the render loop writes the elapsed text to.
type Display interface {
	Show(text string) error
}

// TerminalDisplay rewrites a single terminal line on every Show.
type TerminalDisplay struct {
	W io.Writer
}

func (d *TerminalDisplay) Show(text string) error {
	_, err := fmt.Fprintf(d.W, "\r\033[K%s since it was stopped", text)
	return err
}

// Renderer periodically formats a Timestamp onto a Display.
type Renderer struct {
	Timestamp *Timestamp
	Display   Display
	Interval  time.Duration
	Now       func() time.Time
}

// NewRenderer returns a Renderer ticking once per second.
func NewRenderer(ts *Timestamp, d Display) *Renderer {
	return &Renderer{
		Timestamp: ts,
		Display:   d,
		Interval:  time.Second,
		Now:       time.Now,
	}
}

// Tick renders the current value once.
func (r *Renderer) Tick() error {
	return r.Display.Show(Since(r.Timestamp.Load(), r.Now()))
}

// Run renders immediately and then on every interval until ctx is done.
// Display errors are logged and do not stop the loop.
func (r *Renderer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		if err := r.Tick(); err != nil {
			slog.Warn("Failed to render clock", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
