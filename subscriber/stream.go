package subscriber

import (
	"bufio"
	"context"
	"io"
	"strings"
)

const maxLineSize = 1024 * 1024

// event is one dispatched server-sent event
type event struct {
	id        string
	eventType string
	data      string
}

// readStream parses a text/event-stream body and calls dispatch for every
// complete event. It returns when the body ends, fails, or ctx is cancelled.
// A body that ends cleanly returns io.EOF so callers treat it like any
// other lost connection.
func readStream(ctx context.Context, body io.Reader, dispatch func(event)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	var (
		current event
		data    strings.Builder
		hasData bool
	)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Text()

		if line == "" {
			// Empty line ends the event
			if hasData {
				current.data = data.String()
				if current.eventType == "" {
					current.eventType = "message"
				}
				dispatch(current)
			}
			current.eventType = ""
			current.data = ""
			data.Reset()
			hasData = false
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue // comment, e.g. keep-alive pings
		}

		field, value := line, ""
		if colonIndex := strings.IndexByte(line, ':'); colonIndex >= 0 {
			field = line[:colonIndex]
			value = strings.TrimPrefix(line[colonIndex+1:], " ")
		}

		switch field {
		case "event":
			current.eventType = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			// The id persists across events until the server changes it
			if !strings.ContainsRune(value, 0) {
				current.id = value
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}
