package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"graphout/internal/event"
)

// Sink consumes decoded events.
// Params: context and one event.
// Returns: error if sink cannot accept the event.
type Sink interface {
	Consume(ctx context.Context, ev event.Event) error
}

// LogSink writes events into debug logs.
// Params: logger used for output.
// Returns: debug sink instance.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a debug sink.
// Params: logger instance.
// Returns: event sink implementation.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Consume logs one event as compact JSON.
// Params: ctx for level check; ev event to log.
// Returns: marshal error when the event cannot be encoded.
func (s *LogSink) Consume(ctx context.Context, ev event.Event) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.logger.Enabled(ctx, slog.LevelDebug) {
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	s.logger.Debug(
		"event received",
		slog.String("type", ev.Type),
		slog.Int("tags", len(ev.Tags)),
		slog.String("payload", string(payload)),
	)

	return nil
}

// MultiSink dispatches one event to multiple local sinks.
// Params: sink list.
// Returns: composite sink.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink builds composite sink from sink list.
// Params: sinks target list; nil entries are skipped.
// Returns: multi sink implementation.
func NewMultiSink(sinks ...Sink) *MultiSink {
	out := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		out = append(out, sink)
	}
	return &MultiSink{sinks: out}
}

// Consume forwards event to each child sink.
// Params: ctx consume context; ev event.
// Returns: first error from downstream sinks, if any.
func (s *MultiSink) Consume(ctx context.Context, ev event.Event) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Consume(ctx, ev); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
