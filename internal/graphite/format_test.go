package graphite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphout/internal/event"
)

func TestFormatLine(t *testing.T) {
	ev := event.Event{
		Type: "apache",
		Fields: map[string]any{
			"host":   "a",
			"uptime": "42.5",
		},
	}

	line := FormatLine(MetricSpec{Name: "%{host}/uptime", Value: "%{uptime}"}, ev)

	assert.Regexp(t, `^a/uptime 42\.5 \d+\n$`, line)
}

func TestFormatLineUnparsableValue(t *testing.T) {
	ev := event.Event{Fields: map[string]any{"host": "a", "uptime": "n/a"}}

	line := FormatLine(MetricSpec{Name: "%{host}/uptime", Value: "%{uptime}"}, ev)

	assert.Regexp(t, `^a/uptime 0\.0 \d+\n$`, line)
}

func TestFormatLineAtFixedClock(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := event.Event{Fields: map[string]any{"host": "web 01", "bytes": float64(512)}}

	line := formatLineAt(MetricSpec{Name: "%{host}.%{+%Y}.bytes", Value: "%{bytes}"}, ev, now)

	require.Equal(t, "web_01.2024.bytes 512.0 1709294400\n", line)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{raw: "42.5", expected: "42.5"},
		{raw: "7", expected: "7.0"},
		{raw: " 3.25 ", expected: "3.25"},
		{raw: "-1", expected: "-1.0"},
		{raw: "1e3", expected: "1000.0"},
		{raw: "", expected: "0.0"},
		{raw: "abc", expected: "0.0"},
		{raw: "NaN", expected: "0.0"},
		{raw: "+Inf", expected: "0.0"},
		{raw: "42.5ms", expected: "42.5"},
		{raw: "12 requests", expected: "12.0"},
		{raw: "0x1A", expected: "0.0"},
		{raw: "1e", expected: "1.0"},
		{raw: "2.5e-1s", expected: "0.25"},
		{raw: ".5", expected: "0.5"},
		{raw: "-3.ms", expected: "-3.0"},
		{raw: "1_000", expected: "1000.0"},
		{raw: "1e999", expected: "0.0"},
		{raw: "-", expected: "0.0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatValue(tt.raw), "raw=%q", tt.raw)
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "servers.a.load", sanitizeName("servers.a.load"))
	assert.Equal(t, "a_b_c_d_e", sanitizeName("a b\tc\nd\re"))
}
