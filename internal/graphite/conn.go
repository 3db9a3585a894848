// Package graphite writes plaintext-protocol metric lines to a Carbon collector over one TCP session.
package graphite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	// DefaultRetryInterval is the fixed pause between connect attempts.
	DefaultRetryInterval = 2 * time.Second
	// DefaultDialTimeout bounds one connect attempt.
	DefaultDialTimeout = 5 * time.Second
	// DefaultWriteTimeout bounds one line write on a collector that stopped reading.
	DefaultWriteTimeout = 10 * time.Second
	// UnlimitedAttempts keeps connecting until success or shutdown.
	UnlimitedAttempts = 0
)

var (
	// ErrBrokenConnection marks a write that failed on an established socket.
	ErrBrokenConnection = errors.New("graphite connection broken")
	// ErrRetriesExhausted marks a bounded connect that ran out of attempts.
	ErrRetriesExhausted = errors.New("graphite connect attempts exhausted")
)

// State is the connection lifecycle state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

// String returns the lower-case state name.
// Params: none.
// Returns: state label for logs.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Dialer opens outbound stream connections.
// Params: ctx bounds the attempt; network and address as in net.Dial.
// Returns: established connection or dial error.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// RetryPolicy controls connect retries.
// Params: Interval fixed pause between attempts; MaxAttempts 0 means unlimited.
// Returns: policy applied by Conn.Connect.
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// ConnConfig describes the collector endpoint and connect behavior.
// Params: endpoint, timeouts, retry policy, and optional injected dialer/logger/metrics.
// Returns: settings for NewConn.
type ConnConfig struct {
	Host         string
	Port         int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Retry        RetryPolicy
	Dialer      Dialer
	Logger      *slog.Logger
	Metrics     *Metrics
}

// Conn owns the single TCP session to the collector.
// Only the owning goroutine may call Connect, Write, and Close; State is safe from any goroutine.
type Conn struct {
	host         string
	port         int
	address      string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	retry        RetryPolicy
	dialer       Dialer
	logger       *slog.Logger
	metrics      *Metrics

	sleep func(context.Context, time.Duration) error

	state  atomic.Int32
	socket net.Conn
}

// NewConn builds a disconnected collector connection.
// Params: cfg endpoint and retry settings.
// Returns: connection in Disconnected state or config error.
func NewConn(cfg ConnConfig) (*Conn, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("graphite host is empty")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("graphite port %d out of range", cfg.Port)
	}
	if cfg.Retry.MaxAttempts < 0 {
		return nil, fmt.Errorf("graphite max attempts must be >= 0")
	}
	if cfg.Retry.Interval < 0 {
		return nil, fmt.Errorf("graphite retry interval must be >= 0")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &net.Dialer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}

	return &Conn{
		host:         cfg.Host,
		port:         cfg.Port,
		address:      net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		dialTimeout:  cfg.DialTimeout,
		writeTimeout: cfg.WriteTimeout,
		retry:        cfg.Retry,
		dialer:       cfg.Dialer,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		sleep:        sleepContext,
	}, nil
}

// Address returns the collector host:port.
// Params: none.
// Returns: dial address.
func (c *Conn) Address() string {
	return c.address
}

// State returns the current lifecycle state.
// Params: none.
// Returns: Disconnected, Connecting, or Connected.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Connect opens a fresh session, retrying with a fixed pause until it succeeds.
// Any existing socket is closed first. With the default policy the call blocks until
// the collector accepts the connection or ctx is canceled.
// Params: ctx lifecycle context.
// Returns: nil when connected; ctx error on shutdown; ErrRetriesExhausted in bounded mode.
func (c *Conn) Connect(ctx context.Context) error {
	c.closeSocket()

	for attempt := 1; ; attempt++ {
		c.setState(Connecting)
		c.metrics.ConnectAttempts.Inc()

		socket, err := c.dial(ctx)
		if err == nil {
			c.socket = socket
			c.setState(Connected)
			c.logger.Info(
				"connected to graphite server",
				slog.String("host", c.host),
				slog.Int("port", c.port),
				slog.Int("attempt", attempt),
			)
			return nil
		}

		c.setState(Disconnected)
		c.metrics.ConnectFailures.Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		c.logger.Warn(
			"connection to graphite server failed, sleeping",
			slog.String("host", c.host),
			slog.Int("port", c.port),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if c.retry.MaxAttempts != UnlimitedAttempts && attempt >= c.retry.MaxAttempts {
			return fmt.Errorf("connect %s after %d attempts: %w: %w", c.address, attempt, ErrRetriesExhausted, err)
		}
		if err := c.sleep(ctx, c.retry.Interval); err != nil {
			return err
		}
	}
}

// Write sends one line on the active session, connecting first when disconnected.
// The write is bounded by the write timeout and by ctx; cancellation interrupts a blocked write.
// A failed or timed out write closes the socket and leaves the connection Disconnected; the line is not resent.
// Params: ctx lifecycle context for the implicit connect and the write; line newline-terminated wire line.
// Returns: nil on success; error wrapping ErrBrokenConnection on write failure; connect error otherwise.
func (c *Conn) Write(ctx context.Context, line string) error {
	if c.State() != Connected || c.socket == nil {
		if err := c.Connect(ctx); err != nil {
			return err
		}
	}

	if err := c.writeLine(ctx, line); err != nil {
		c.metrics.WriteFailures.Inc()
		c.closeSocket()
		return fmt.Errorf("write %s: %w: %w", c.address, ErrBrokenConnection, err)
	}
	return nil
}

// writeLine writes line under a deadline derived from the write timeout and ctx.
// Params: ctx write context; line wire line.
// Returns: socket write error.
func (c *Conn) writeLine(ctx context.Context, line string) error {
	socket := c.socket
	deadline := time.Now().Add(c.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := socket.SetWriteDeadline(deadline); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = socket.SetWriteDeadline(time.Now())
	})
	defer stop()

	_, err := io.WriteString(socket, line)
	return err
}

// Close tears down the active session.
// Params: none.
// Returns: none.
func (c *Conn) Close() {
	c.closeSocket()
}

// RetryInterval returns the configured pause between attempts.
// Params: none.
// Returns: retry interval.
func (c *Conn) RetryInterval() time.Duration {
	return c.retry.Interval
}

// dial performs one bounded connect attempt.
// Params: ctx lifecycle context.
// Returns: socket or dial error.
func (c *Conn) dial(ctx context.Context) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()
	return c.dialer.DialContext(dialCtx, "tcp", c.address)
}

// closeSocket closes the socket if present and marks the connection Disconnected.
// Params: none.
// Returns: none.
func (c *Conn) closeSocket() {
	if c.socket != nil {
		_ = c.socket.Close()
		c.socket = nil
	}
	c.setState(Disconnected)
}

// setState stores state and mirrors it into the connected gauge.
// Params: state new lifecycle state.
// Returns: none.
func (c *Conn) setState(state State) {
	c.state.Store(int32(state))
	if state == Connected {
		c.metrics.Connected.Set(1)
		return
	}
	c.metrics.Connected.Set(0)
}

// sleepContext waits for d or until ctx is canceled.
// Params: ctx lifecycle context; d pause duration.
// Returns: ctx error when canceled before the pause elapsed.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
