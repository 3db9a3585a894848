package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"graphout/internal/config"
	"graphout/internal/event"
	"graphout/internal/graphite"
)

var errSinkStopped = errors.New("graphite sink stopped")

// GraphiteSink feeds qualifying events to one graphite sender on a dedicated worker.
// Consume only enqueues; the worker owns the connection and writes strictly in order.
type GraphiteSink struct {
	conn   *graphite.Conn
	sender *graphite.Sender
	logger *slog.Logger

	input        chan event.Event
	stopping     chan struct{}
	drainTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewGraphiteSink builds the collector connection and sender from config.
// Params: cfg validated [graphite] section; logger root logger; metrics sink counters (nil for unregistered).
// Returns: sink ready to run or config error.
func NewGraphiteSink(cfg config.GraphiteConfig, logger *slog.Logger, metrics *graphite.Metrics) (*GraphiteSink, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if metrics == nil {
		metrics = graphite.NewMetrics(nil)
	}
	sinkLogger := logger.With(slog.String("sink", "graphite"))

	conn, err := graphite.NewConn(graphite.ConnConfig{
		Host:         cfg.Host,
		Port:         cfg.Port,
		DialTimeout:  cfg.DialTimeout.Duration,
		WriteTimeout: cfg.WriteTimeout.Duration,
		Retry: graphite.RetryPolicy{
			Interval:    cfg.RetryInterval.Duration,
			MaxAttempts: cfg.MaxAttempts,
		},
		Logger:  sinkLogger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("init graphite connection: %w", err)
	}

	specs := make([]graphite.MetricSpec, 0, len(cfg.Metrics))
	for _, name := range cfg.MetricNames() {
		specs = append(specs, graphite.MetricSpec{Name: name, Value: cfg.Metrics[name]})
	}

	sender, err := graphite.NewSender(conn, graphite.SenderConfig{
		Type:            cfg.Type,
		Tags:            cfg.Tags,
		Specs:           specs,
		ResendOnFailure: cfg.ResendOnFailure,
	}, sinkLogger)
	if err != nil {
		return nil, fmt.Errorf("init graphite sender: %w", err)
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}

	return &GraphiteSink{
		conn:         conn,
		sender:       sender,
		logger:       sinkLogger,
		input:        make(chan event.Event, queueSize),
		stopping:     make(chan struct{}),
		drainTimeout: shutdownDrainTimeout(cfg.DialTimeout.Duration, cfg.RetryInterval.Duration),
	}, nil
}

// Consume filters ev and enqueues it for the worker, blocking while the queue is full.
// Params: ctx consume context; ev decoded event.
// Returns: nil when enqueued or filtered out; ctx error or errSinkStopped otherwise.
func (s *GraphiteSink) Consume(ctx context.Context, ev event.Event) error {
	if !s.sender.Accept(ev) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errSinkStopped
	}

	select {
	case s.input <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopping:
		return errSinkStopped
	}
}

// State reports the collector connection state.
// Params: none.
// Returns: current connection state.
func (s *GraphiteSink) State() graphite.State {
	return s.conn.State()
}

// run connects, then sends queued events one at a time until ctx is canceled.
// Deliveries use a context that ends drainTimeout after ctx is canceled; the event in flight and
// the events left in the queue are written under it.
// Params: ctx worker lifecycle context.
// Returns: nil on graceful stop.
func (s *GraphiteSink) run(ctx context.Context) error {
	defer s.conn.Close()

	sendCtx, cancelSend := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelSend()
	stopGrace := context.AfterFunc(ctx, func() {
		time.AfterFunc(s.drainTimeout, cancelSend)
	})
	defer stopGrace()

	if err := s.conn.Connect(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error(
			"initial graphite connect failed, will retry on next event",
			slog.String("address", s.conn.Address()),
			slog.String("error", err.Error()),
		)
	}

	for {
		if ctx.Err() != nil {
			s.close()
			s.drain(sendCtx)
			return nil
		}
		select {
		case <-ctx.Done():
		case ev := <-s.input:
			s.send(sendCtx, ev)
		}
	}
}

// close rejects further events and waits for in-flight Consume calls to finish enqueueing.
// Params: none.
// Returns: none.
func (s *GraphiteSink) close() {
	close(s.stopping)
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// drain sends events still queued at shutdown.
// Params: ctx delivery context expiring with the drain timeout.
// Returns: none.
func (s *GraphiteSink) drain(ctx context.Context) {
	for {
		select {
		case ev := <-s.input:
			s.send(ctx, ev)
		default:
			return
		}
	}
}

// send delivers one event and logs aborted deliveries.
// Params: ctx delivery context; ev qualifying event.
// Returns: none.
func (s *GraphiteSink) send(ctx context.Context, ev event.Event) {
	result, err := s.sender.Send(ctx, ev)
	if err != nil {
		level := slog.LevelError
		if ctx.Err() != nil {
			level = slog.LevelWarn
		}
		s.logger.Log(
			context.Background(),
			level,
			"graphite delivery aborted",
			slog.String("type", ev.Type),
			slog.Int("written", result.Written),
			slog.Int("dropped", result.Dropped),
			slog.String("error", err.Error()),
		)
		return
	}
	if result.Dropped > 0 {
		s.logger.Debug(
			"event partially delivered",
			slog.String("type", ev.Type),
			slog.Int("written", result.Written),
			slog.Int("dropped", result.Dropped),
		)
	}
}

// shutdownDrainTimeout calculates the bounded timeout for the final queue drain.
// Params: dialTimeout per-attempt dial timeout; retryInterval reconnect pause.
// Returns: drain timeout clamped to 3s..1m.
func shutdownDrainTimeout(dialTimeout, retryInterval time.Duration) time.Duration {
	if dialTimeout <= 0 {
		dialTimeout = graphite.DefaultDialTimeout
	}
	timeout := dialTimeout + retryInterval + 2*time.Second
	if timeout < 3*time.Second {
		timeout = 3 * time.Second
	}
	if timeout > time.Minute {
		timeout = time.Minute
	}
	return timeout
}
