package clock

import (
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Since formats the wall-clock time elapsed between the unix timestamp since
// and now, e.g. "1 days 1 hours 1 minutes 1 seconds". Zero days, hours and
// minutes are left out; seconds are always present. A timestamp in the
// future formats as "0 seconds".
func Since(since int64, now time.Time) string {
	return FormatElapsed(now.Sub(time.Unix(since, 0)))
}

// FormatElapsed formats d the same way Since does, truncated to whole seconds.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	days := d / day
	d -= days * day
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	var b strings.Builder
	for _, unit := range []struct {
		n    time.Duration
		name string
	}{
		{days, "days"},
		{hours, "hours"},
		{minutes, "minutes"},
	} {
		if unit.n > 0 {
			b.WriteString(strconv.FormatInt(int64(unit.n), 10))
			b.WriteByte(' ')
			b.WriteString(unit.name)
			b.WriteByte(' ')
		}
	}
	b.WriteString(strconv.FormatInt(int64(seconds), 10))
	b.WriteString(" seconds")
	return b.String()
}
