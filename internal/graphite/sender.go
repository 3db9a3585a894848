package graphite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"graphout/internal/event"
)

// SenderConfig defines which events qualify and which lines they produce.
// Params: type/tag filter, metric specs, and resend switch.
// Returns: settings for NewSender.
type SenderConfig struct {
	Type  string
	Tags  []string
	Specs []MetricSpec
	// ResendOnFailure writes the line that hit a broken connection once more after reconnecting.
	// Off by default: the failed line is dropped and counted.
	ResendOnFailure bool
}

// SendResult summarizes one Send call.
// Params: written and dropped line counts.
// Returns: per-event delivery outcome.
type SendResult struct {
	Written int
	Dropped int
}

// Sender turns qualifying events into wire lines and writes them through Conn.
type Sender struct {
	conn    *Conn
	cfg     SenderConfig
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewSender binds metric specs to a collector connection.
// Params: conn owned connection; cfg filter/spec settings; logger for warnings.
// Returns: sender or config error.
func NewSender(conn *Conn, cfg SenderConfig, logger *slog.Logger) (*Sender, error) {
	if conn == nil {
		return nil, fmt.Errorf("graphite connection is nil")
	}
	if len(cfg.Specs) == 0 {
		return nil, fmt.Errorf("at least one metric spec is required")
	}
	for idx, spec := range cfg.Specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("metric spec[%d] has empty name template", idx)
		}
	}
	if logger == nil {
		logger = conn.logger
	}

	return &Sender{
		conn:    conn,
		cfg:     cfg,
		logger:  logger,
		metrics: conn.metrics,
		now:     time.Now,
	}, nil
}

// Accept applies the type/tag filter and counts rejected events.
// Params: ev candidate event.
// Returns: true when ev should be sent.
func (s *Sender) Accept(ev event.Event) bool {
	if ShouldForward(ev, s.cfg.Type, s.cfg.Tags) {
		return true
	}
	s.metrics.EventsFiltered.Inc()
	return false
}

// Send writes one line per metric spec for ev.
// A broken connection is logged, followed by the retry pause and a reconnect; the line in
// flight is dropped (unless ResendOnFailure) and processing continues with the next spec.
// Params: ctx lifecycle context; ev qualifying event.
// Returns: line counts and a non-nil error only when reconnecting was aborted (shutdown or bounded retries).
func (s *Sender) Send(ctx context.Context, ev event.Event) (SendResult, error) {
	var result SendResult

	for idx, spec := range s.cfg.Specs {
		line := formatLineAt(spec, ev, s.now())

		err := s.conn.Write(ctx, line)
		if err == nil {
			result.Written++
			s.metrics.LinesSent.Inc()
			continue
		}
		if err := s.handleWriteError(ctx, err); err != nil {
			s.drop(&result, len(s.cfg.Specs)-idx)
			return result, err
		}

		if !s.cfg.ResendOnFailure {
			s.drop(&result, 1)
			continue
		}

		err = s.conn.Write(ctx, line)
		if err == nil {
			result.Written++
			s.metrics.LinesResent.Inc()
			s.metrics.LinesSent.Inc()
			continue
		}
		s.logger.Warn("resend after reconnect failed", slog.String("error", err.Error()))
		if err := s.handleWriteError(ctx, err); err != nil {
			s.drop(&result, len(s.cfg.Specs)-idx)
			return result, err
		}
		s.drop(&result, 1)
	}

	return result, nil
}

// handleWriteError handles a failed write: a broken connection is logged and reopened after the retry pause.
// Params: ctx lifecycle context; err write error.
// Returns: nil when reconnected; err itself when it is not a broken connection; reconnect error otherwise.
func (s *Sender) handleWriteError(ctx context.Context, err error) error {
	if !errors.Is(err, ErrBrokenConnection) {
		return err
	}

	s.logger.Warn(
		"connection to graphite server died",
		slog.String("error", err.Error()),
		slog.String("host", s.conn.host),
		slog.Int("port", s.conn.port),
	)
	return s.reconnect(ctx)
}

// reconnect waits the retry pause and reopens the connection.
// Params: ctx lifecycle context.
// Returns: ctx or bounded-retry error.
func (s *Sender) reconnect(ctx context.Context) error {
	if err := s.conn.sleep(ctx, s.conn.RetryInterval()); err != nil {
		return err
	}
	return s.conn.Connect(ctx)
}

// drop records lines that were not delivered.
// Params: result counters to update; n dropped line count.
// Returns: none.
func (s *Sender) drop(result *SendResult, n int) {
	if n <= 0 {
		return
	}
	result.Dropped += n
	s.metrics.LinesDropped.Add(float64(n))
}
