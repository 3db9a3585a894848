package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"graphout/internal/config"
	"graphout/internal/graphite"
)

// Engine owns the graphite sink worker and all inputs.
// Params: runner list, sink handle and logger.
// Returns: pipeline runtime engine.
type Engine struct {
	graphite *GraphiteSink
	inputs   []runner
	logger   *slog.Logger
}

type runner interface {
	run(context.Context) error
}

// NewFromConfig builds the graphite sink and configured inputs.
// Params: cfg validated runtime config; logger initialized logger; reg metrics registerer (nil disables export).
// Returns: engine ready to Run or error.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*Engine, error) {
	return newEngine(cfg, logger, reg, os.Stdin)
}

// newEngine builds the engine with an explicit stdin source.
// Params: cfg runtime config; logger root logger; reg registerer; stdin reader used when [input.stdin] is enabled.
// Returns: engine or error.
func newEngine(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer, stdin io.Reader) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	graphiteSink, err := NewGraphiteSink(cfg.Graphite, logger, graphite.NewMetrics(reg))
	if err != nil {
		return nil, fmt.Errorf("init graphite sink: %w", err)
	}
	sink := NewMultiSink(
		graphiteSink,
		NewLogSink(logger),
	)
	counters := newInputMetrics(reg)
	inputs := make([]runner, 0)

	selfInputs, err := buildSelfInputs(cfg.Input.Self, sink, counters, logger)
	if err != nil {
		return nil, err
	}
	for _, input := range selfInputs {
		inputs = append(inputs, input)
	}

	if cfg.Input.Stdin.Enabled {
		inputs = append(inputs, newLineInput(stdinInputName, stdin, sink, counters, logger))
	}

	httpInput, err := buildHTTPInput(cfg.Input.HTTP, sink, counters, logger)
	if err != nil {
		return nil, err
	}
	if httpInput != nil {
		inputs = append(inputs, httpInput)
	}

	return &Engine{
		graphite: graphiteSink,
		inputs:   inputs,
		logger:   logger,
	}, nil
}

// Ready reports whether the collector connection is established.
// Params: none.
// Returns: true while the graphite connection is Connected.
func (e *Engine) Ready() bool {
	return e.graphite.State() == graphite.Connected
}

// Run starts the sink worker and all inputs, then waits for context cancellation.
// Inputs stop first; the sink drains its queue afterwards.
// Params: ctx lifecycle context.
// Returns: nil on graceful stop.
func (e *Engine) Run(ctx context.Context) error {
	if len(e.inputs) == 0 {
		e.logger.Warn("no inputs configured")
	}

	sinkDone := make(chan struct{})
	go func() {
		defer close(sinkDone)
		if err := e.graphite.run(ctx); err != nil {
			e.logger.Error("graphite sink stopped with error", slog.String("error", err.Error()))
		}
	}()

	var wg sync.WaitGroup
	wg.Add(len(e.inputs))
	for _, r := range e.inputs {
		go func(activeRunner runner) {
			defer wg.Done()
			if err := activeRunner.run(ctx); err != nil {
				e.logger.Error("input stopped with error", slog.String("error", err.Error()))
			}
		}(r)
	}

	<-ctx.Done()
	wg.Wait()
	<-sinkDone
	return nil
}
