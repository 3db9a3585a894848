package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"graphout/internal/config"
	"graphout/internal/event"
)

const httpInputName = "http"

var errSinkUnavailable = errors.New("sink unavailable")

// buildHTTPInput creates the HTTP event endpoint from [input.http].
// Params: cfg http input section; sink target; counters input metrics; logger root logger.
// Returns: server runner, nil when disabled, or bind error.
func buildHTTPInput(
	cfg config.HTTPInputConfig,
	sink Sink,
	counters *inputMetrics,
	logger *slog.Logger,
) (*httpIngestServer, error) {
	if cfg.Listen == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, makeHTTPEventHandler(sink, cfg.MaxBody, counters, logger))

	srv, err := newHTTPIngestServer(cfg.Listen, mux, logger)
	if err != nil {
		return nil, fmt.Errorf("build http input: %w", err)
	}
	return srv, nil
}

// makeHTTPEventHandler builds the handler that decodes JSON events into sink.
// Params: sink target; maxBody request size limit; counters input metrics; logger root logger.
// Returns: HTTP handler function.
func makeHTTPEventHandler(
	sink Sink,
	maxBody int64,
	counters *inputMetrics,
	logger *slog.Logger,
) http.HandlerFunc {
	received := counters.received.WithLabelValues(httpInputName)
	rejected := counters.rejected.WithLabelValues(httpInputName)

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		ctx := r.Context()
		err := event.DecodeStream(r.Body, maxBody, func(ev event.Event) error {
			if err := sink.Consume(ctx, ev); err != nil {
				return fmt.Errorf("%w: %w", errSinkUnavailable, err)
			}
			received.Inc()
			return nil
		})

		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, errSinkUnavailable):
			logger.Warn("http input sink unavailable", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
		case errors.Is(err, event.ErrPayloadTooLarge):
			rejected.Inc()
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		default:
			rejected.Inc()
			logger.Warn("http input parse failed", slog.String("remote", r.RemoteAddr), slog.String("error", err.Error()))
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
}
