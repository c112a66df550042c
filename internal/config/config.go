package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Advice     AdviceConfig     `yaml:"advice" mapstructure:"advice"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" mapstructure:"telemetry"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds settings for the primary advice tier.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds settings for the secondary advice tier.
type GeminiConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	Model             string `yaml:"model" mapstructure:"model"`
	MaxTokens         int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// AdviceConfig configures the fallback chain.
type AdviceConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// ExtractionConfig configures structured extraction.
type ExtractionConfig struct {
	MaxAttempts   int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	Model         string `yaml:"model" mapstructure:"model"`
	ExemplarsPath string `yaml:"exemplars_path" mapstructure:"exemplars_path"`
}

// ResilienceConfig configures per-tier circuit breakers.
type ResilienceConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// StoreConfig configures the checkpoint backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentRequests int `yaml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name" mapstructure:"service_name"`
}

// MonitoringConfig configures tier health checks for the serve command.
type MonitoringConfig struct {
	Enabled               bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	FallbackRateThreshold float64 `yaml:"fallback_rate_threshold" mapstructure:"fallback_rate_threshold"`
	MinTurns              int     `yaml:"min_turns" mapstructure:"min_turns"`
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AGRI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so AutomaticEnv can override it.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.max_tokens", 1024)
	v.SetDefault("gemini.requests_per_minute", 15)
	v.SetDefault("advice.timeout_secs", 10)
	v.SetDefault("advice.temperature", 0.3)
	v.SetDefault("extraction.max_attempts", 2)
	v.SetDefault("extraction.model", "")
	v.SetDefault("extraction.exemplars_path", "")
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent_requests", 4)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_name", "agri-advisor")
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.fallback_rate_threshold", 0.5)
	v.SetDefault("monitoring.min_turns", 10)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. Mode is one of "serve",
// "advise" or "batch". Missing provider keys are not errors: the tier is
// simply left out of the chain.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Monitoring.FallbackRateThreshold < 0 || c.Monitoring.FallbackRateThreshold > 1 {
			errs = append(errs, "monitoring.fallback_rate_threshold must be between 0 and 1")
		}
	case "batch":
		if c.Batch.MaxConcurrentRequests < 1 || c.Batch.MaxConcurrentRequests > 64 {
			errs = append(errs, "batch.max_concurrent_requests must be between 1 and 64")
		}
	case "advise":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch strings.ToLower(c.Store.Driver) {
	case "memory", "none", "":
	case "sqlite", "postgres":
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, "store.driver must be one of memory, sqlite, postgres, none")
	}

	if c.Advice.TimeoutSecs <= 0 {
		errs = append(errs, "advice.timeout_secs must be > 0")
	}
	if c.Advice.Temperature < 0 || c.Advice.Temperature > 1 {
		errs = append(errs, "advice.temperature must be between 0 and 1")
	}
	if c.Extraction.MaxAttempts < 1 {
		errs = append(errs, "extraction.max_attempts must be >= 1")
	}
	if c.Anthropic.MaxTokens < 0 || c.Gemini.MaxTokens < 0 {
		errs = append(errs, "max_tokens must be >= 0")
	}
	if c.Gemini.RequestsPerMinute < 0 {
		errs = append(errs, "gemini.requests_per_minute must be >= 0")
	}
	if c.Resilience.FailureThreshold < 0 || c.Resilience.ResetTimeoutSecs < 0 {
		errs = append(errs, "resilience values must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
