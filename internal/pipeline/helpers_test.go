package pipeline

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"graphout/internal/config"
	"graphout/internal/event"
)

// lineCollector is a local plaintext listener that records received lines.
type lineCollector struct {
	ln net.Listener

	mu    sync.Mutex
	lines []string
}

// newLineCollector starts a collector on a random local port.
// Params: t test handle.
// Returns: running collector closed on cleanup.
func newLineCollector(t *testing.T) *lineCollector {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	c := &lineCollector{ln: ln}
	go c.accept()
	t.Cleanup(func() { _ = ln.Close() })
	return c
}

func (c *lineCollector) accept() {
	for {
		conn, err := c.ln.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			scanner := bufio.NewScanner(conn)
			for scanner.Scan() {
				c.mu.Lock()
				c.lines = append(c.lines, scanner.Text())
				c.mu.Unlock()
			}
		}()
	}
}

func (c *lineCollector) port() int {
	return c.ln.Addr().(*net.TCPAddr).Port
}

func (c *lineCollector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// graphiteConfig returns a [graphite] section pointing at port.
// Params: port collector port; metrics name->value templates.
// Returns: config with defaults applied the way Load does.
func graphiteConfig(port int, metrics map[string]string) config.GraphiteConfig {
	return config.GraphiteConfig{
		Host:          "127.0.0.1",
		Port:          port,
		Metrics:       metrics,
		RetryInterval: config.Duration{Duration: 20 * time.Millisecond},
		DialTimeout:   config.Duration{Duration: time.Second},
		QueueSize:     16,
	}
}

// recordingSink stores consumed events and optionally fails.
type recordingSink struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (s *recordingSink) Consume(_ context.Context, ev event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) snapshot() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Event(nil), s.events...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitFor polls cond until it holds or timeout elapses.
// Params: t test handle; timeout max wait; cond predicate.
// Returns: none; fails the test on timeout.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
