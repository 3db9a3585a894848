package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultLogLevel         = "info"
	defaultLogFormat        = "line"
	defaultGraphiteHost     = "localhost"
	defaultGraphitePort     = 2003
	defaultGraphiteRetry    = 2 * time.Second
	defaultGraphiteDial     = 5 * time.Second
	defaultGraphiteWrite    = 10 * time.Second
	defaultGraphiteQueue    = 1024
	defaultHTTPInputPath    = "/events"
	defaultHTTPInputMaxBody = int64(16 << 20)
	defaultSelfInterval     = 10 * time.Second
	defaultSelfType         = "graphout"
	defaultDebugListen      = "127.0.0.1:6060"
	defaultHealthListen     = "127.0.0.1:6061"
)

// Duration wraps time.Duration for TOML parsing.
// Params: text duration string (e.g. "5s", "1m").
// Returns: parse error on invalid duration.
type Duration struct {
	time.Duration
}

// UnmarshalText parses TOML duration values.
// Params: text is raw duration bytes from TOML.
// Returns: error when value is not a valid Go duration.
func (d *Duration) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	if value == "" {
		d.Duration = 0
		return nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value, err)
	}

	d.Duration = parsed
	return nil
}

// Config represents the root agent configuration.
// Params: TOML document sections.
// Returns: validated runtime configuration.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Debug    DebugConfig    `toml:"debug"`
	Health   HealthConfig   `toml:"health"`
	Graphite GraphiteConfig `toml:"graphite"`
	Input    InputConfig    `toml:"input"`
}

// DebugConfig defines the optional pprof and Prometheus HTTP endpoint.
// Params: enabled flag and listen address in host:port format.
// Returns: debug endpoint settings.
type DebugConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// HealthConfig defines the optional gRPC health endpoint.
// Params: enabled flag and listen address in host:port format.
// Returns: health endpoint settings.
type HealthConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// LogConfig contains console/file logging configuration.
// Params: console and file sink options.
// Returns: logger sink settings.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink options from TOML.
// Returns: sink setup.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// GraphiteConfig defines the collector endpoint, event filter and metric templates.
// Params: [graphite] section values.
// Returns: graphite sink settings.
type GraphiteConfig struct {
	Host            string            `toml:"host"`
	Port            int               `toml:"port"`
	Tags            []string          `toml:"tags"`
	Type            string            `toml:"type"`
	Metrics         map[string]string `toml:"metrics"`
	RetryInterval   Duration          `toml:"retry_interval"`
	MaxAttempts     int               `toml:"max_attempts"`
	DialTimeout     Duration          `toml:"dial_timeout"`
	WriteTimeout    Duration          `toml:"write_timeout"`
	ResendOnFailure bool              `toml:"resend_on_failure"`
	QueueSize       int               `toml:"queue_size"`
}

// MetricNames returns configured name templates in lexical order.
// Params: none.
// Returns: sorted name template list.
func (g GraphiteConfig) MetricNames() []string {
	names := make([]string, 0, len(g.Metrics))
	for name := range g.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InputConfig groups event sources.
// Params: http, stdin and self input sections.
// Returns: input settings.
type InputConfig struct {
	HTTP  HTTPInputConfig   `toml:"http"`
	Stdin StdinInputConfig  `toml:"stdin"`
	Self  []SelfInputConfig `toml:"self"`
}

// HTTPInputConfig defines the JSON event ingest endpoint.
// Params: listen address (empty disables), request path and body limit.
// Returns: http input settings.
type HTTPInputConfig struct {
	Listen  string `toml:"listen"`
	Path    string `toml:"path"`
	MaxBody int64  `toml:"max_body"`
}

// StdinInputConfig toggles NDJSON events on standard input.
type StdinInputConfig struct {
	Enabled bool `toml:"enabled"`
}

// SelfInputConfig defines one periodic agent self-stats event source.
// Params: name, emit interval, the type/tags stamped on produced events and value name masks.
// Returns: self input settings.
type SelfInputConfig struct {
	Name      string   `toml:"name"`
	Interval  Duration `toml:"interval"`
	Type      string   `toml:"type"`
	Tags      []string `toml:"tags"`
	FilterVar []string `toml:"filter_var"`
	DropVar   []string `toml:"drop_var"`
}

// Load reads, expands, validates, and returns config from path.
// Params: path to TOML config file or directory with *.toml files.
// Returns: validated config pointer or error.
func Load(path string) (*Config, error) {
	raw, err := readConfigSource(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("decode TOML %q: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readConfigSource reads one TOML file or concatenates *.toml files from directory.
// Params: path to config file or directory.
// Returns: raw TOML bytes or error.
func readConfigSource(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config %q: %w", path, err)
	}

	if !info.IsDir() {
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read config %q: %w", path, readErr)
		}
		return raw, nil
	}

	return readConfigDir(path)
}

// readConfigDir concatenates config snippets from one directory.
// Params: path to directory that contains *.toml files.
// Returns: concatenated TOML content or error.
func readConfigDir(path string) ([]byte, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read config dir %q: %w", path, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".toml") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("read config dir %q: no *.toml files", path)
	}

	var builder strings.Builder
	for _, name := range files {
		filePath := filepath.Join(path, name)
		raw, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("read config %q: %w", filePath, readErr)
		}
		builder.Write(raw)
		if len(raw) == 0 || raw[len(raw)-1] != '\n' {
			builder.WriteByte('\n')
		}
		builder.WriteByte('\n')
	}

	return []byte(builder.String()), nil
}

// applyDefaults fills defaults for optional configuration fields.
// Params: receiver config pointer.
// Returns: none.
func (c *Config) applyDefaults() {
	c.Log.Console.Level = lowerOrDefault(c.Log.Console.Level, defaultLogLevel)
	c.Log.Console.Format = lowerOrDefault(c.Log.Console.Format, defaultLogFormat)
	c.Log.File.Level = lowerOrDefault(c.Log.File.Level, defaultLogLevel)
	c.Log.File.Format = lowerOrDefault(c.Log.File.Format, "json")

	if !c.Log.Console.Enabled && !c.Log.File.Enabled {
		c.Log.Console.Enabled = true
	}

	if c.Debug.Enabled && strings.TrimSpace(c.Debug.Listen) == "" {
		c.Debug.Listen = defaultDebugListen
	}
	if c.Health.Enabled && strings.TrimSpace(c.Health.Listen) == "" {
		c.Health.Listen = defaultHealthListen
	}

	g := &c.Graphite
	g.Host = strings.TrimSpace(g.Host)
	if g.Host == "" {
		g.Host = defaultGraphiteHost
	}
	if g.Port == 0 {
		g.Port = defaultGraphitePort
	}
	if g.RetryInterval.Duration <= 0 {
		g.RetryInterval.Duration = defaultGraphiteRetry
	}
	if g.DialTimeout.Duration <= 0 {
		g.DialTimeout.Duration = defaultGraphiteDial
	}
	if g.WriteTimeout.Duration <= 0 {
		g.WriteTimeout.Duration = defaultGraphiteWrite
	}
	if g.QueueSize <= 0 {
		g.QueueSize = defaultGraphiteQueue
	}

	if strings.TrimSpace(c.Input.HTTP.Listen) != "" {
		if strings.TrimSpace(c.Input.HTTP.Path) == "" {
			c.Input.HTTP.Path = defaultHTTPInputPath
		}
		if c.Input.HTTP.MaxBody <= 0 {
			c.Input.HTTP.MaxBody = defaultHTTPInputMaxBody
		}
	}

	for idx := range c.Input.Self {
		self := &c.Input.Self[idx]
		if strings.TrimSpace(self.Name) == "" {
			self.Name = fmt.Sprintf("self-%d", idx)
		}
		if self.Interval.Duration == 0 {
			self.Interval.Duration = defaultSelfInterval
		}
		if strings.TrimSpace(self.Type) == "" {
			self.Type = defaultSelfType
		}
	}
}

// validate checks config consistency and required fields.
// Params: receiver config pointer.
// Returns: validation error for invalid or incomplete config.
func (c *Config) validate() error {
	if err := validateSink("log.console", c.Log.Console, false); err != nil {
		return err
	}
	if err := validateSink("log.file", c.Log.File, true); err != nil {
		return err
	}
	if err := validateListenConfig("debug", c.Debug.Enabled, c.Debug.Listen); err != nil {
		return err
	}
	if err := validateListenConfig("health", c.Health.Enabled, c.Health.Listen); err != nil {
		return err
	}
	if err := validateGraphite("graphite", c.Graphite); err != nil {
		return err
	}
	if err := validateHTTPInput("input.http", c.Input.HTTP); err != nil {
		return err
	}
	return validateSelfInputs("input.self", c.Input.Self)
}

// validateGraphite validates the collector section.
// Params: path is config path prefix; cfg graphite section.
// Returns: validation error or nil.
func validateGraphite(path string, cfg GraphiteConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("%s.port must be in 1..65535", path)
	}
	if len(cfg.Metrics) == 0 {
		return fmt.Errorf("%s.metrics must contain at least one name = value template", path)
	}
	for name := range cfg.Metrics {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s.metrics contains an empty name template", path)
		}
	}
	for idx, tag := range cfg.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("%s.tags[%d] cannot be empty", path, idx)
		}
	}
	if cfg.MaxAttempts < 0 {
		return fmt.Errorf("%s.max_attempts cannot be negative", path)
	}
	return nil
}

// validateHTTPInput validates the HTTP ingest endpoint when configured.
// Params: path is config path prefix; cfg http input section.
// Returns: validation error or nil.
func validateHTTPInput(path string, cfg HTTPInputConfig) error {
	if strings.TrimSpace(cfg.Listen) == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return fmt.Errorf("%s.listen must be host:port: %w", path, err)
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		return fmt.Errorf("%s.path must start with '/'", path)
	}
	return nil
}

// validateSelfInputs validates self-stats sources.
// Params: path is config path prefix; inputs self input list.
// Returns: validation error or nil.
func validateSelfInputs(path string, inputs []SelfInputConfig) error {
	seen := make(map[string]struct{}, len(inputs))
	for idx, input := range inputs {
		inputPath := fmt.Sprintf("%s[%d]", path, idx)
		if input.Interval.Duration < 0 {
			return fmt.Errorf("%s.interval cannot be negative", inputPath)
		}
		name := strings.TrimSpace(input.Name)
		if _, exists := seen[name]; exists {
			return fmt.Errorf("%s.name %q is duplicated", inputPath, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// validateSink validates one logging sink configuration.
// Params: name is sink path for errors; sink is sink config; requirePath means path required when enabled.
// Returns: validation error or nil.
func validateSink(name string, sink LogSinkConfig, requirePath bool) error {
	if sink.Enabled && requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required when sink is enabled", name)
	}

	if err := validateLogLevel(sink.Level); err != nil {
		return fmt.Errorf("%s.level: %w", name, err)
	}
	if err := validateLogFormat(sink.Format); err != nil {
		return fmt.Errorf("%s.format: %w", name, err)
	}

	return nil
}

// validateLogLevel validates known log levels.
// Params: level is lower-case level name.
// Returns: error when level is unsupported.
func validateLogLevel(level string) error {
	switch strings.TrimSpace(strings.ToLower(level)) {
	case "info", "warn", "error", "panic", "debug":
		return nil
	default:
		return fmt.Errorf("unsupported value %q", level)
	}
}

// validateLogFormat validates supported sink formats.
// Params: format is lower-case format name.
// Returns: error when format is unsupported.
func validateLogFormat(format string) error {
	switch strings.TrimSpace(strings.ToLower(format)) {
	case "line", "json":
		return nil
	default:
		return fmt.Errorf("unsupported value %q", format)
	}
}

// validateListenConfig validates an optional host:port listener.
// Params: path is config path prefix; enabled flag; listen address.
// Returns: validation error for invalid listen endpoint.
func validateListenConfig(path string, enabled bool, listen string) error {
	if !enabled {
		return nil
	}
	if strings.TrimSpace(listen) == "" {
		return fmt.Errorf("%s.listen cannot be empty when enabled", path)
	}
	if _, _, err := net.SplitHostPort(listen); err != nil {
		return fmt.Errorf("%s.listen must be host:port: %w", path, err)
	}
	return nil
}

// lowerOrDefault returns a trimmed lower-case value or default fallback.
// Params: value to normalize; fallback value when empty.
// Returns: normalized value.
func lowerOrDefault(value, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return fallback
	}
	return normalized
}
