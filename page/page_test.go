package page

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b-open-io/stopclock/store"
)

func TestSeed(t *testing.T) {
	tests := []struct {
		name string
		page string
		want int64
	}{
		{
			name: "maximum of inputs",
			page: `<html><body><input value="3"><input value="17"><input value="9"></body></html>`,
			want: 17,
		},
		{
			name: "non-numeric inputs skipped",
			page: `<form><input value="abc"><input value="12"><input></form>`,
			want: 12,
		},
		{
			name: "leading digits are not a number",
			page: `<input value="17abc"><input value="9">`,
			want: 9,
		},
		{
			name: "no inputs",
			page: `<p>nothing here</p>`,
			want: 0,
		},
		{
			name: "negative values",
			page: `<input value="-5"><input value="-2">`,
			want: -2,
		},
		{
			name: "nested inputs and whitespace",
			page: `<div><div><input type="hidden" value=" 1700000000 "></div></div><input value="1662921288">`,
			want: 1700000000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Seed(strings.NewReader(tt.page))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderRoundTripsThroughSeed(t *testing.T) {
	stops := []store.Stop{
		{ID: 1, LastStopTs: 1662921288},
		{ID: 2, LastStopTs: 1700000000},
		{ID: 3, LastStopTs: 1690000000},
	}
	now := time.Unix(1700000045, 0)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, stops, now))

	body := buf.String()
	assert.Contains(t, body, `<span id="time">45 seconds</span>`)
	assert.Contains(t, body, `value="1662921288"`)

	seed, err := Seed(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), seed)
}

func TestRenderElapsedUsesLatestTimestamp(t *testing.T) {
	// An older timestamp pushed last must not move the clock back
	stops := []store.Stop{
		{ID: 1, LastStopTs: 1700000000},
		{ID: 2, LastStopTs: 1662921288},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, stops, time.Unix(1700000010, 0)))
	assert.Contains(t, buf.String(), `<span id="time">10 seconds</span>`)
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, nil, time.Now()))
	assert.Contains(t, buf.String(), "0 seconds")
	assert.NotContains(t, buf.String(), "<input")
}
