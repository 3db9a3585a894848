package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"graphout/internal/config"
	"graphout/internal/event"
	"graphout/internal/match"
	"graphout/internal/metrics"
)

// selfInput periodically turns agent process stats into events.
type selfInput struct {
	cfg       config.SelfInputConfig
	collector metrics.Collector
	sink      Sink
	logger    *slog.Logger
	host      string
	filterVar []match.WildcardPattern
	dropVar   []match.WildcardPattern
	received  func()
}

// buildSelfInputs creates self-stats inputs from [[input.self]] sections.
// Params: cfgs self input list; sink target; counters input metrics; logger root logger.
// Returns: input list or error.
func buildSelfInputs(
	cfgs []config.SelfInputConfig,
	sink Sink,
	counters *inputMetrics,
	logger *slog.Logger,
) ([]*selfInput, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}

	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("resolve hostname: %w", err)
	}

	out := make([]*selfInput, 0, len(cfgs))
	for idx, cfg := range cfgs {
		if cfg.Interval.Duration <= 0 {
			return nil, fmt.Errorf("input.self[%d]: interval must be > 0", idx)
		}
		out = append(out, &selfInput{
			cfg:       cfg,
			collector: metrics.NewSelfCollector(cfg.Name),
			sink:      sink,
			logger:    logger.With(slog.String("input", cfg.Name)),
			host:      host,
			filterVar: match.CompileAll(cfg.FilterVar),
			dropVar:   match.CompileAll(cfg.DropVar),
			received:  counters.received.WithLabelValues(cfg.Name).Inc,
		})
	}
	return out, nil
}

// run emits one event per interval until ctx cancellation.
// Params: ctx lifecycle context.
// Returns: nil on graceful stop.
func (in *selfInput) run(ctx context.Context) error {
	ticker := time.NewTicker(in.cfg.Interval.Duration)
	defer ticker.Stop()

	in.emitOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			in.emitOnce(ctx)
		}
	}
}

// emitOnce scrapes the collector and forwards resulting events.
// Params: ctx for scrape and consume cancellation.
// Returns: none.
func (in *selfInput) emitOnce(ctx context.Context) {
	points, err := in.collector.Scrape(ctx)
	if err != nil {
		in.logger.Error("self scrape failed", slog.String("error", err.Error()))
		return
	}

	for _, point := range points {
		if err := in.sink.Consume(ctx, in.toEvent(point)); err != nil {
			if ctx.Err() == nil {
				in.logger.Warn("sink rejected self event", slog.String("error", err.Error()))
			}
			return
		}
		in.received()
	}
}

// toEvent maps one point into an event with configured type and tags.
// Params: point scraped sample.
// Returns: event with host/process/input fields plus allowed values.
func (in *selfInput) toEvent(point metrics.Point) event.Event {
	fields := make(map[string]any, len(point.Values)+3)
	fields["host"] = in.host
	fields["process"] = point.Key
	fields["input"] = in.cfg.Name

	for name, value := range point.Values {
		if !in.allowed(name) {
			continue
		}
		fields[name] = value
	}

	tags := append([]string(nil), in.cfg.Tags...)
	return event.Event{Type: in.cfg.Type, Tags: tags, Fields: fields}
}

// allowed applies filter_var then drop_var masks to a value name.
// Params: name value name.
// Returns: true when the value stays in the event.
func (in *selfInput) allowed(name string) bool {
	if len(in.filterVar) > 0 && !match.AnyMatch(in.filterVar, name) {
		return false
	}
	return !match.AnyMatch(in.dropVar, name)
}
