package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the gateway process. It supports a
// three-layer priority, matching the framework convention this project was
// built from:
//  1. Default values (lowest priority)
//  2. Environment variables, prefixed COGNIGATE_ (medium priority)
//  3. Functional options (highest priority)
//
// Example:
//
//	cfg, err := NewConfig(
//	    WithName("cognigate"),
//	    WithPort(8080),
//	)
type Config struct {
	Name string `json:"name" env:"COGNIGATE_NAME" default:"cognigate"`
	Port int    `json:"port" env:"COGNIGATE_PORT" default:"8080"`

	HTTP        HTTPConfig        `json:"http"`
	Trust       TrustConfig       `json:"trust"`
	Velocity    VelocityConfig    `json:"velocity"`
	Circuit     CircuitConfig     `json:"circuit"`
	Critic      CriticConfig      `json:"critic"`
	Cache       CacheConfig       `json:"cache"`
	Logging     LoggingConfig     `json:"logging"`
	Development DevelopmentConfig `json:"development"`

	logger Logger `json:"-"`
}

// HTTPConfig carries server-level timeouts and the ambient CORS surface.
// CORS is disabled by default: the gateway's public surface is out of
// scope for this service, and the policy enforced here is not a web
// frontend concern.
type HTTPConfig struct {
	ReadTimeout     time.Duration `json:"read_timeout" env:"COGNIGATE_HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"COGNIGATE_HTTP_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"COGNIGATE_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	RequestDeadline time.Duration `json:"request_deadline" env:"COGNIGATE_REQUEST_DEADLINE" default:"3s"`
	CriticDeadline  time.Duration `json:"critic_deadline" env:"COGNIGATE_CRITIC_DEADLINE" default:"2s"`
	CORS            CORSConfig    `json:"cors"`
}

// TrustConfig governs the trust registry (C6).
type TrustConfig struct {
	DefaultLevel  int           `json:"default_level" env:"COGNIGATE_DEFAULT_TRUST_LEVEL" default:"1"`
	DecayRate     float64       `json:"decay_rate" env:"COGNIGATE_TRUST_DECAY_RATE" default:"0.01"`
	DecayInterval time.Duration `json:"decay_interval" env:"COGNIGATE_TRUST_DECAY_INTERVAL" default:"24h"`
	PerUpdateCap  int           `json:"per_update_cap" env:"COGNIGATE_TRUST_PER_UPDATE_CAP" default:"100"`
	PerHourCap    int           `json:"per_hour_cap" env:"COGNIGATE_TRUST_PER_HOUR_CAP" default:"150"`
	PerDayCap     int           `json:"per_day_cap" env:"COGNIGATE_TRUST_PER_DAY_CAP" default:"300"`
}

// VelocityConfig governs the multi-tier rate limiter (C2). The tier table
// itself is fixed by spec and lives in the velocity package; this only
// carries the pruning knob.
type VelocityConfig struct {
	PruneAfter time.Duration `json:"prune_after" env:"COGNIGATE_VELOCITY_PRUNE_AFTER" default:"24h"`
}

// CircuitConfig describes the system-wide circuit breaker (C3) settings.
// Defaults match the contractual values in spec §4.3. breaker.New does not
// take this struct and cmd/cognigate does not pass it on: the breaker
// package uses its own constants with these same values, so changing a
// field here does not change the breaker's behaviour.
type CircuitConfig struct {
	WindowSize           time.Duration `json:"window_size" env:"COGNIGATE_CIRCUIT_WINDOW" default:"5m"`
	MinRequests          int           `json:"min_requests" env:"COGNIGATE_CIRCUIT_MIN_REQUESTS" default:"10"`
	HighRiskRatio        float64       `json:"high_risk_ratio" env:"COGNIGATE_CIRCUIT_HIGH_RISK_RATIO" default:"0.10"`
	HighRiskThreshold    float64       `json:"high_risk_threshold" env:"COGNIGATE_CIRCUIT_HIGH_RISK_THRESHOLD" default:"0.7"`
	TripwireCascadeCount int           `json:"tripwire_cascade_count" env:"COGNIGATE_CIRCUIT_TRIPWIRE_CASCADE" default:"3"`
	InjectionThreshold   int           `json:"injection_threshold" env:"COGNIGATE_CIRCUIT_INJECTION_THRESHOLD" default:"2"`
	CriticBlockThreshold int           `json:"critic_block_threshold" env:"COGNIGATE_CIRCUIT_CRITIC_BLOCK_THRESHOLD" default:"5"`
	AutoResetAfter       time.Duration `json:"auto_reset_after" env:"COGNIGATE_CIRCUIT_AUTO_RESET" default:"300s"`
	HalfOpenProbes       int           `json:"half_open_probes" env:"COGNIGATE_CIRCUIT_HALF_OPEN_PROBES" default:"3"`
	EntityViolationLimit int           `json:"entity_violation_limit" env:"COGNIGATE_CIRCUIT_ENTITY_VIOLATION_LIMIT" default:"10"`
}

// CriticConfig selects and configures the adversarial critic provider (C5).
type CriticConfig struct {
	Enabled     bool          `json:"enabled" env:"COGNIGATE_CRITIC_ENABLED" default:"true"`
	Provider    string        `json:"provider" env:"COGNIGATE_CRITIC_PROVIDER" default:"anthropic"`
	Temperature float64       `json:"temperature" env:"COGNIGATE_CRITIC_TEMPERATURE" default:"0.3"`
	Timeout     time.Duration `json:"timeout" env:"COGNIGATE_CRITIC_TIMEOUT" default:"2s"`

	AnthropicAPIKey string `json:"-" env:"COGNIGATE_ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `json:"-" env:"COGNIGATE_OPENAI_API_KEY"`
	GoogleAPIKey    string `json:"-" env:"COGNIGATE_GOOGLE_API_KEY"`
	XAIAPIKey       string `json:"-" env:"COGNIGATE_XAI_API_KEY"`

	ModelAnthropic string `json:"model_anthropic" env:"COGNIGATE_CRITIC_MODEL_ANTHROPIC" default:"claude-3-5-sonnet-20241022"`
	ModelOpenAI    string `json:"model_openai" env:"COGNIGATE_CRITIC_MODEL_OPENAI" default:"gpt-4o-mini"`
	ModelGoogle    string `json:"model_google" env:"COGNIGATE_CRITIC_MODEL_GOOGLE" default:"gemini-1.5-flash"`
	ModelXAI       string `json:"model_xai" env:"COGNIGATE_CRITIC_MODEL_XAI" default:"grok-2-latest"`
}

// CacheConfig governs the result cache's LRU sizing, TTL, and optional
// Redis-backed advisory tier (C8).
type CacheConfig struct {
	Enabled  bool          `json:"enabled" env:"COGNIGATE_CACHE_ENABLED" default:"true"`
	MaxItems int           `json:"max_items" env:"COGNIGATE_CACHE_MAX_ITEMS" default:"10000"`
	TTL      time.Duration `json:"ttl" env:"COGNIGATE_CACHE_TTL" default:"5m"`
	RedisURL string        `json:"redis_url" env:"COGNIGATE_REDIS_URL,REDIS_URL"`
}

// CORSConfig mirrors gomind's shape. Browser-facing concerns are out of
// this gateway's product scope, so it stays disabled by default and is
// only mounted when an operator opts in.
type CORSConfig struct {
	Enabled          bool     `json:"enabled" env:"COGNIGATE_CORS_ENABLED" default:"false"`
	AllowedOrigins   []string `json:"allowed_origins" env:"COGNIGATE_CORS_ORIGINS"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// LoggingConfig controls the ProductionLogger's output shape.
type LoggingConfig struct {
	Level  string `json:"level" env:"COGNIGATE_LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"COGNIGATE_LOG_FORMAT" default:"json"`
	Output string `json:"output" env:"COGNIGATE_LOG_OUTPUT" default:"stdout"`
}

// DevelopmentConfig holds local-dev overrides.
type DevelopmentConfig struct {
	DebugLogging bool `json:"debug_logging" env:"COGNIGATE_DEBUG" default:"false"`
}

// Option mutates a Config during construction; later options win.
type Option func(*Config) error

func WithName(name string) Option {
	return func(c *Config) error { c.Name = name; return nil }
}

func WithPort(port int) Option {
	return func(c *Config) error { c.Port = port; return nil }
}

func WithLogger(l Logger) Option {
	return func(c *Config) error { c.logger = l; return nil }
}

func WithCriticProvider(provider, apiKey string) Option {
	return func(c *Config) error {
		c.Critic.Provider = provider
		switch strings.ToLower(provider) {
		case "anthropic":
			c.Critic.AnthropicAPIKey = apiKey
		case "openai":
			c.Critic.OpenAIAPIKey = apiKey
		case "google":
			c.Critic.GoogleAPIKey = apiKey
		case "xai":
			c.Critic.XAIAPIKey = apiKey
		}
		return nil
	}
}

// DefaultConfig returns a Config populated entirely from the defaults
// documented in the struct tags above.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// NewConfig builds a Config from defaults, then environment variables,
// then the supplied functional options, and validates the result.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if cfg.logger == nil {
		cfg.logger = NewProductionLogger(cfg.Logging, cfg.Development, cfg.Name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Logger returns the configured logger, constructing a default production
// logger if none was set.
func (c *Config) Logger() Logger {
	if c.logger == nil {
		c.logger = NewProductionLogger(c.Logging, c.Development, c.Name)
	}
	return c.logger
}

// Validate checks invariants that NewConfig's functional options could
// have violated.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return &GatewayError{Op: "Config.Validate", Kind: "config", Message: "port out of range", Err: ErrInvalidConfiguration}
	}
	if c.Trust.DefaultLevel < 0 || c.Trust.DefaultLevel > 4 {
		return &GatewayError{Op: "Config.Validate", Kind: "config", Message: "default trust level out of range", Err: ErrInvalidConfiguration}
	}
	if c.Critic.Enabled {
		switch strings.ToLower(c.Critic.Provider) {
		case "anthropic", "openai", "google", "xai":
		default:
			return &GatewayError{Op: "Config.Validate", Kind: "config", Message: "unknown critic provider", Err: ErrInvalidConfiguration}
		}
	}
	return nil
}

// applyDefaults sets every field to the value documented in its default
// struct tag above. The struct is small and fixed, so this is done
// directly rather than by reflecting over the tags.
func applyDefaults(c *Config) {
	c.Name = "cognigate"
	c.Port = 8080

	c.HTTP = HTTPConfig{
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RequestDeadline: 3 * time.Second,
		CriticDeadline:  2 * time.Second,
		CORS:            CORSConfig{Enabled: false},
	}
	c.Trust = TrustConfig{
		DefaultLevel:  1,
		DecayRate:     0.01,
		DecayInterval: 24 * time.Hour,
		PerUpdateCap:  100,
		PerHourCap:    150,
		PerDayCap:     300,
	}
	c.Velocity = VelocityConfig{PruneAfter: 24 * time.Hour}
	c.Circuit = CircuitConfig{
		WindowSize:           5 * time.Minute,
		MinRequests:          10,
		HighRiskRatio:        0.10,
		HighRiskThreshold:    0.7,
		TripwireCascadeCount: 3,
		InjectionThreshold:   2,
		CriticBlockThreshold: 5,
		AutoResetAfter:       300 * time.Second,
		HalfOpenProbes:       3,
		EntityViolationLimit: 10,
	}
	c.Critic = CriticConfig{
		Enabled:        true,
		Provider:       "anthropic",
		Temperature:    0.3,
		Timeout:        2 * time.Second,
		ModelAnthropic: "claude-3-5-sonnet-20241022",
		ModelOpenAI:    "gpt-4o-mini",
		ModelGoogle:    "gemini-1.5-flash",
		ModelXAI:       "grok-2-latest",
	}
	c.Cache = CacheConfig{
		Enabled:  true,
		MaxItems: 10000,
		TTL:      5 * time.Minute,
	}
	c.Logging = LoggingConfig{Level: "info", Format: "json", Output: "stdout"}
}

// loadFromEnv overlays environment variables on top of the defaults already
// populated. It reads COGNIGATE_NAME, COGNIGATE_PORT,
// COGNIGATE_DEFAULT_TRUST_LEVEL, COGNIGATE_TRUST_DECAY_RATE, the
// COGNIGATE_CRITIC_* provider, enabled and temperature variables, the four
// provider API keys, COGNIGATE_REDIS_URL (or REDIS_URL),
// COGNIGATE_LOG_LEVEL, COGNIGATE_LOG_FORMAT and COGNIGATE_DEBUG. The other
// env struct tags in this file are not read from the environment.
func (c *Config) loadFromEnv() error {
	if v := os.Getenv("COGNIGATE_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("COGNIGATE_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COGNIGATE_PORT: %w", err)
		}
		c.Port = n
	}
	if v := os.Getenv("COGNIGATE_DEFAULT_TRUST_LEVEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COGNIGATE_DEFAULT_TRUST_LEVEL: %w", err)
		}
		c.Trust.DefaultLevel = n
	}
	if v := os.Getenv("COGNIGATE_TRUST_DECAY_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("COGNIGATE_TRUST_DECAY_RATE: %w", err)
		}
		c.Trust.DecayRate = f
	}
	if v := os.Getenv("COGNIGATE_CRITIC_PROVIDER"); v != "" {
		c.Critic.Provider = v
	}
	if v := os.Getenv("COGNIGATE_CRITIC_ENABLED"); v != "" {
		c.Critic.Enabled = v != "false" && v != "0"
	}
	if v := os.Getenv("COGNIGATE_CRITIC_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("COGNIGATE_CRITIC_TEMPERATURE: %w", err)
		}
		c.Critic.Temperature = f
	}
	if v := os.Getenv("COGNIGATE_ANTHROPIC_API_KEY"); v != "" {
		c.Critic.AnthropicAPIKey = v
	}
	if v := os.Getenv("COGNIGATE_OPENAI_API_KEY"); v != "" {
		c.Critic.OpenAIAPIKey = v
	}
	if v := os.Getenv("COGNIGATE_GOOGLE_API_KEY"); v != "" {
		c.Critic.GoogleAPIKey = v
	}
	if v := os.Getenv("COGNIGATE_XAI_API_KEY"); v != "" {
		c.Critic.XAIAPIKey = v
	}
	if v := os.Getenv("COGNIGATE_REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("COGNIGATE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("COGNIGATE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("COGNIGATE_DEBUG"); v != "" {
		c.Development.DebugLogging = v == "true" || v == "1"
	}
	return nil
}

// ============================================================================
// ProductionLogger — layered observability, adapted from gomind's
// core.ProductionLogger.
// ============================================================================

// ProductionLogger renders structured JSON or human-readable log lines and
// forwards an error counter to the global metrics registry when one is
// installed.
type ProductionLogger struct {
	level       string
	debug       bool
	serviceName string
	component   string
	format      string
	output      io.Writer
}

// NewProductionLogger builds a Logger from LoggingConfig.
func NewProductionLogger(logging LoggingConfig, dev DevelopmentConfig, serviceName string) Logger {
	var output io.Writer = os.Stdout
	if logging.Output == "stderr" {
		output = os.Stderr
	}
	return &ProductionLogger{
		level:       strings.ToLower(logging.Level),
		debug:       dev.DebugLogging || logging.Level == "debug",
		serviceName: serviceName,
		format:      logging.Format,
		output:      output,
	}
}

func (p *ProductionLogger) WithComponent(component string) Logger {
	clone := *p
	clone.component = component
	return &clone
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{})  { p.logEvent("INFO", msg, fields) }
func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) { p.logEvent("ERROR", msg, fields) }
func (p *ProductionLogger) Warn(msg string, fields map[string]interface{})  { p.logEvent("WARN", msg, fields) }
func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields)
	}
}

func (p *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("INFO", msg, fields)
}
func (p *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("ERROR", msg, fields)
}
func (p *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("WARN", msg, fields)
}
func (p *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields)
	}
}

func (p *ProductionLogger) logEvent(level, msg string, fields map[string]interface{}) {
	timestamp := time.Now().UTC().Format(time.RFC3339)

	if level == "ERROR" {
		if registry := GetGlobalMetricsRegistry(); registry != nil {
			registry.Counter("gateway.errors", "component", p.component)
		}
	}

	if p.format == "json" {
		entry := map[string]interface{}{
			"timestamp": timestamp,
			"level":     level,
			"service":   p.serviceName,
			"message":   msg,
		}
		if p.component != "" {
			entry["component"] = p.component
		}
		for k, v := range fields {
			entry[k] = v
		}
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(p.output, string(data))
		}
		return
	}

	var b strings.Builder
	for k, v := range fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	fmt.Fprintf(p.output, "%s [%s] [%s] %s%s\n", timestamp, level, p.serviceName, msg, b.String())
}
