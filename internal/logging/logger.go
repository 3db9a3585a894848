package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"graphout/internal/config"
)

const (
	ansiReset   = "\x1b[0m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
	ansiGray    = "\x1b[90m"
)

// levelPanic mirrors the "panic" config level; slog has no native equivalent.
const levelPanic = slog.LevelError + 4

// New builds the root logger from console and file sink settings.
// Params: cfg validated log config.
// Returns: logger, close function for file resources, and init error.
func New(cfg config.LogConfig) (*slog.Logger, func(), error) {
	return newLogger(cfg, os.Stderr, isTerminal(os.Stderr))
}

// newLogger builds the logger with an explicit console destination.
// Params: cfg log config; console writer for the console sink; colorize enables ANSI line coloring.
// Returns: logger, close function, and init error.
func newLogger(cfg config.LogConfig, console io.Writer, colorize bool) (*slog.Logger, func(), error) {
	handlers := make([]slog.Handler, 0, 2)
	closers := make([]io.Closer, 0, 1)

	if cfg.Console.Enabled {
		level, err := parseLevel(cfg.Console.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log.console: %w", err)
		}
		dst := console
		if colorize && cfg.Console.Format != "json" {
			dst = &colorLineWriter{dst: console}
		}
		handlers = append(handlers, newHandler(dst, cfg.Console.Format, level))
	}

	if cfg.File.Enabled {
		level, err := parseLevel(cfg.File.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log.file: %w", err)
		}
		file, err := openLogFile(cfg.File.Path)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, file)
		handlers = append(handlers, newHandler(file, cfg.File.Format, level))
	}

	closeFn := func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(io.Discard, nil)), closeFn, nil
	case 1:
		return slog.New(handlers[0]), closeFn, nil
	default:
		return slog.New(&fanoutHandler{handlers: handlers}), closeFn, nil
	}
}

// newHandler creates one slog handler for format.
// Params: dst output; format "line" or "json"; level minimum level.
// Returns: slog handler.
func newHandler(dst io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.LevelKey {
				if lvl, ok := attr.Value.Any().(slog.Level); ok && lvl >= levelPanic {
					return slog.String(slog.LevelKey, "PANIC")
				}
			}
			return attr
		},
	}
	if format == "json" {
		return slog.NewJSONHandler(dst, opts)
	}
	return slog.NewTextHandler(dst, opts)
}

// parseLevel maps config level names to slog levels.
// Params: level lower-case config value.
// Returns: slog level or error.
func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "panic":
		return levelPanic, nil
	default:
		return 0, fmt.Errorf("unsupported level %q", level)
	}
}

// openLogFile opens path for appending, creating parent directories.
// Params: path log file path.
// Returns: open file or error.
func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir %q: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", path, err)
	}
	return file, nil
}

// isTerminal reports whether file is a character device.
// Params: file output handle.
// Returns: true for interactive terminals.
func isTerminal(file *os.File) bool {
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// fanoutHandler dispatches records to several handlers.
type fanoutHandler struct {
	handlers []slog.Handler
}

// Enabled reports whether any child handler accepts level.
// Params: ctx record context; level record level.
// Returns: true when at least one handler is enabled.
func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards record copies to enabled handlers.
// Params: ctx record context; record log record.
// Returns: joined handler errors.
func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs returns a fanout handler with attrs applied to every child.
// Params: attrs attributes to add.
// Returns: derived handler.
func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		next = append(next, handler.WithAttrs(attrs))
	}
	return &fanoutHandler{handlers: next}
}

// WithGroup returns a fanout handler with group applied to every child.
// Params: name group name.
// Returns: derived handler.
func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		next = append(next, handler.WithGroup(name))
	}
	return &fanoutHandler{handlers: next}
}

// colorLineWriter colors text-handler lines by level and highlights value tokens.
// Lines without a recognized level pass through unchanged.
type colorLineWriter struct {
	dst io.Writer
}

// Write renders one log line with ANSI colors.
// Params: p one text-handler record.
// Returns: len(p) on success or destination write error.
func (w *colorLineWriter) Write(p []byte) (int, error) {
	line := string(p)
	base := levelColor(line)
	if base == "" {
		if _, err := w.dst.Write(p); err != nil {
			return 0, err
		}
		return len(p), nil
	}

	body, newline := strings.CutSuffix(line, "\n")

	var builder strings.Builder
	builder.Grow(len(line) + 64)
	builder.WriteString(base)
	colorizeValues(&builder, body, base)
	builder.WriteString(ansiReset)
	if newline {
		builder.WriteByte('\n')
	}

	if _, err := io.WriteString(w.dst, builder.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}

// levelColor picks the line color from the level=... attribute.
// Params: line text-handler output.
// Returns: ANSI color or "" when no level is present.
func levelColor(line string) string {
	switch {
	case strings.Contains(line, "level=DEBUG"):
		return ansiGray
	case strings.Contains(line, "level=INFO"):
		return ansiBlue
	case strings.Contains(line, "level=WARN"):
		return ansiMagenta
	case strings.Contains(line, "level=ERROR"), strings.Contains(line, "level=PANIC"):
		return ansiRed
	default:
		return ""
	}
}

// colorizeValues writes body with quoted, IP and numeric values highlighted.
// Params: builder output; body line without newline; base line color restored after each token.
// Returns: none.
func colorizeValues(builder *strings.Builder, body string, base string) {
	for idx := 0; idx < len(body); {
		if body[idx] != '=' {
			builder.WriteByte(body[idx])
			idx++
			continue
		}

		builder.WriteByte('=')
		idx++
		end := valueEnd(body, idx)
		value := body[idx:end]
		if color := valueColor(value); color != "" {
			builder.WriteString(color)
			builder.WriteString(value)
			builder.WriteString(ansiReset)
			builder.WriteString(base)
		} else {
			builder.WriteString(value)
		}
		idx = end
	}
}

// valueEnd finds the end of the value starting at start.
// Params: body line; start value offset.
// Returns: exclusive end offset.
func valueEnd(body string, start int) int {
	if start < len(body) && body[start] == '"' {
		for idx := start + 1; idx < len(body); idx++ {
			switch body[idx] {
			case '\\':
				idx++
			case '"':
				return idx + 1
			}
		}
		return len(body)
	}
	if end := strings.IndexByte(body[start:], ' '); end >= 0 {
		return start + end
	}
	return len(body)
}

// valueColor classifies one attribute value.
// Params: value raw attribute value.
// Returns: ANSI color or "" for plain values.
func valueColor(value string) string {
	if value == "" {
		return ""
	}
	if value[0] == '"' {
		return ansiGreen
	}
	if isIPValue(value) {
		return ansiCyan
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return ansiYellow
	}
	return ""
}

// isIPValue reports whether value is an IP or IP:port.
// Params: value raw attribute value.
// Returns: true for IP-like values.
func isIPValue(value string) bool {
	if net.ParseIP(value) != nil {
		return true
	}
	host, _, err := net.SplitHostPort(value)
	return err == nil && net.ParseIP(host) != nil
}
