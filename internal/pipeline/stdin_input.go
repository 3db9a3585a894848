package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"graphout/internal/event"
)

const stdinInputName = "stdin"

// lineInput reads newline-delimited JSON events from a stream.
type lineInput struct {
	name     string
	reader   io.Reader
	sink     Sink
	logger   *slog.Logger
	received func()
	rejected func()
}

// newLineInput binds a reader to sink.
// Params: name input label; reader NDJSON source; sink target; counters input metrics; logger root logger.
// Returns: runnable line input.
func newLineInput(name string, reader io.Reader, sink Sink, counters *inputMetrics, logger *slog.Logger) *lineInput {
	received := counters.received.WithLabelValues(name)
	rejected := counters.rejected.WithLabelValues(name)
	return &lineInput{
		name:     name,
		reader:   reader,
		sink:     sink,
		logger:   logger.With(slog.String("input", name)),
		received: received.Inc,
		rejected: rejected.Inc,
	}
}

// run forwards decoded lines to sink until EOF or ctx cancellation.
// The scanner goroutine may stay blocked in Read after cancellation until the stream yields a line or closes.
// Params: ctx lifecycle context.
// Returns: nil on EOF or shutdown; read error otherwise.
func (in *lineInput) run(ctx context.Context) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in.reader)
		scanner.Buffer(make([]byte, 0, 64*1024), event.MaxPayloadBytes)
		for scanner.Scan() {
			line := bytes.Clone(scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return in.finish(<-scanErr)
			}
			in.handleLine(ctx, line)
		}
	}
}

// finish reports the terminal scanner state.
// Params: err scanner error (nil on EOF).
// Returns: wrapped read error or nil.
func (in *lineInput) finish(err error) error {
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", in.name, err)
	}
	in.logger.Info("input stream closed")
	return nil
}

// handleLine decodes one line and hands it to sink; blank lines are skipped.
// Params: ctx lifecycle context; line raw NDJSON record.
// Returns: none.
func (in *lineInput) handleLine(ctx context.Context, line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	ev, err := event.Decode(line)
	if err != nil {
		in.rejected()
		in.logger.Warn("skip invalid event line", slog.String("error", err.Error()))
		return
	}
	if err := in.sink.Consume(ctx, ev); err != nil {
		if ctx.Err() == nil {
			in.logger.Warn("sink rejected event", slog.String("error", err.Error()))
		}
		return
	}
	in.received()
}
