package page

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/b-open-io/stopclock/clock"
	"github.com/b-open-io/stopclock/store"
)

//go:embed templates/index.html
var templates embed.FS

var indexTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

type indexData struct {
	Stops   []store.Stop
	Elapsed string
}

// Render writes the index page: one hidden <input> per stop carrying its
// timestamp, and the elapsed time since the latest stop timestamp. The
// latest is the largest value, the same one Seed reads back.
func Render(w io.Writer, stops []store.Stop, now time.Time) error {
	data := indexData{Stops: stops, Elapsed: clock.FormatElapsed(0)}
	if len(stops) > 0 {
		latest := stops[0].LastStopTs
		for _, stop := range stops[1:] {
			latest = max(latest, stop.LastStopTs)
		}
		data.Elapsed = clock.Since(latest, now)
	}
	if err := indexTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}
