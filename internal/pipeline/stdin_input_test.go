package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestLineInput_ForwardsValidLines verifies decoding, skipping and counters until EOF.
// Params: testing.T for assertions.
// Returns: none.
func TestLineInput_ForwardsValidLines(t *testing.T) {
	stream := strings.Join([]string{
		`{"type":"apache","host":"web1","uptime":42.5}`,
		``,
		`   `,
		`not-json`,
		`{"type":"nginx","tags":["prod"]}`,
		`{"type":7}`,
	}, "\n")

	sink := &recordingSink{}
	counters := newInputMetrics(nil)
	in := newLineInput(stdinInputName, strings.NewReader(stream), sink, counters, discardLogger())

	if err := in.run(context.Background()); err != nil {
		t.Fatalf("run() error: %v", err)
	}

	events := sink.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != "apache" || events[1].Type != "nginx" {
		t.Fatalf("unexpected event order: %q, %q", events[0].Type, events[1].Type)
	}
	if !events[1].HasTag("prod") {
		t.Fatalf("expected prod tag on second event")
	}
	if value, ok := events[0].Field("uptime"); !ok || value != "42.5" {
		t.Fatalf("uptime field = %q, %v", value, ok)
	}

	if got := testutil.ToFloat64(counters.received.WithLabelValues(stdinInputName)); got != 2 {
		t.Fatalf("received counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(counters.rejected.WithLabelValues(stdinInputName)); got != 2 {
		t.Fatalf("rejected counter = %v, want 2", got)
	}
}

// TestLineInput_ReadError verifies read failures surface as run errors.
// Params: testing.T for assertions.
// Returns: none.
func TestLineInput_ReadError(t *testing.T) {
	readErr := errors.New("device gone")
	in := newLineInput(stdinInputName, iotest.ErrReader(readErr), &recordingSink{}, newInputMetrics(nil), discardLogger())

	err := in.run(context.Background())
	if !errors.Is(err, readErr) {
		t.Fatalf("expected read error, got %v", err)
	}
	if !strings.Contains(err.Error(), "read stdin") {
		t.Fatalf("expected input name in error, got %v", err)
	}
}

// TestLineInput_StopsOnCancel verifies run returns while the stream stays open.
// Params: testing.T for assertions.
// Returns: none.
func TestLineInput_StopsOnCancel(t *testing.T) {
	reader, writer := io.Pipe()
	t.Cleanup(func() { _ = writer.Close() })

	sink := &recordingSink{}
	in := newLineInput("pipe", reader, sink, newInputMetrics(nil), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.run(ctx) }()

	if _, err := io.WriteString(writer, "{\"type\":\"a\"}\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, time.Second, func() bool { return len(sink.snapshot()) == 1 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("line input did not stop on cancel")
	}
}
