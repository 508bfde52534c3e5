package configs

import (
	"fmt"
	"time"

	"github.com/hilthontt/forum/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Remote      RemoteConfig      `koanf:"remote"`
	Live        LiveConfig        `koanf:"live"`
	Sync        SyncConfig        `koanf:"sync"`
	Logger      LoggerConfig      `koanf:"logger"`
	Tracing     TracingConfig     `koanf:"tracing"`
	DebugServer DebugServerConfig `koanf:"debug_server"`
}

type RemoteConfig struct {
	BaseURL        string          `koanf:"base_url"`
	RequestTimeout time.Duration   `koanf:"request_timeout"`
	MaxRetries     int             `koanf:"max_retries"`
	Debug          bool            `koanf:"debug"`
	RateLimit      RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig throttles outbound requests. Zero requests disables it.
type RateLimitConfig struct {
	RequestsPerTimeFrame int           `koanf:"requests_per_time_frame"`
	TimeFrame            time.Duration `koanf:"time_frame"`
}

type LiveConfig struct {
	Enabled          bool          `koanf:"enabled"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
}

type SyncConfig struct {
	FetchConcurrency int `koanf:"fetch_concurrency"`
}

type LoggerConfig struct {
	FilePath string `koanf:"file_path"`
	Encoding string `koanf:"encoding"`
	Level    string `koanf:"level"`
	Logger   string `koanf:"logger"`
}

type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Environment string `koanf:"environment"`
}

type DebugServerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Host    string `koanf:"host"`
	Port    uint16 `koanf:"port"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	if c.Remote.MaxRetries < 0 {
		return fmt.Errorf("remote.max_retries must not be negative")
	}
	if c.Sync.FetchConcurrency <= 0 {
		return fmt.Errorf("sync.fetch_concurrency must be positive")
	}
	return nil
}

func applyDefaults(k *koanf.Koanf) {
	// Remote store defaults
	setDefault(k, "remote.base_url", "http://localhost:8000")
	setDefault(k, "remote.request_timeout", 10*time.Second)
	setDefault(k, "remote.max_retries", 0)
	setDefault(k, "remote.debug", false)
	setDefault(k, "remote.rate_limit.requests_per_time_frame", 0)
	setDefault(k, "remote.rate_limit.time_frame", time.Second)

	// Live feed defaults
	setDefault(k, "live.enabled", false)
	setDefault(k, "live.handshake_timeout", 10*time.Second)

	setDefault(k, "sync.fetch_concurrency", 4)

	// Logger defaults
	setDefault(k, "logger.file_path", "")
	setDefault(k, "logger.encoding", "console")
	setDefault(k, "logger.level", "info")
	setDefault(k, "logger.logger", "zap")

	// Tracing defaults
	setDefault(k, "tracing.enabled", false)
	setDefault(k, "tracing.endpoint", "http://localhost:4318/v1/traces")
	setDefault(k, "tracing.environment", "development")

	// Debug server defaults
	setDefault(k, "debug_server.enabled", false)
	setDefault(k, "debug_server.host", "127.0.0.1")
	setDefault(k, "debug_server.port", 9464)
}

func applyEnvOverrides(k *koanf.Koanf) {
	// Remote store config from env
	if baseURL := env.GetString("FORUM_BASE_URL", ""); baseURL != "" {
		k.Set("remote.base_url", baseURL)
	}
	if timeout := env.GetInt("FORUM_REQUEST_TIMEOUT_SECONDS", 0); timeout > 0 {
		k.Set("remote.request_timeout", time.Duration(timeout)*time.Second)
	}
	if retries := env.GetInt("FORUM_MAX_RETRIES", -1); retries >= 0 {
		k.Set("remote.max_retries", retries)
	}
	if env.GetBool("FORUM_REMOTE_DEBUG", false) {
		k.Set("remote.debug", true)
	}
	if requests := env.GetInt("FORUM_RATE_LIMIT_REQUESTS", 0); requests > 0 {
		k.Set("remote.rate_limit.requests_per_time_frame", requests)
	}
	if frame := env.GetDuration("FORUM_RATE_LIMIT_TIME_FRAME", 0); frame > 0 {
		k.Set("remote.rate_limit.time_frame", frame)
	}

	if env.GetBool("FORUM_LIVE_ENABLED", false) {
		k.Set("live.enabled", true)
	}
	if concurrency := env.GetInt("FORUM_FETCH_CONCURRENCY", 0); concurrency > 0 {
		k.Set("sync.fetch_concurrency", concurrency)
	}

	// Logger config from env
	if filePath := env.GetString("LOGGER_FILE_PATH", ""); filePath != "" {
		k.Set("logger.file_path", filePath)
	}
	if encoding := env.GetString("LOGGER_ENCODING", ""); encoding != "" {
		k.Set("logger.encoding", encoding)
	}
	if level := env.GetString("LOGGER_LEVEL", ""); level != "" {
		k.Set("logger.level", level)
	}
	if logger := env.GetString("LOGGER_LOGGER", ""); logger != "" {
		k.Set("logger.logger", logger)
	}

	if env.GetBool("TRACING_ENABLED", false) {
		k.Set("tracing.enabled", true)
	}
	if endpoint := env.GetString("TRACING_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
	}
	if environment := env.GetString("ENVIRONMENT", ""); environment != "" {
		k.Set("tracing.environment", environment)
	}

	if env.GetBool("DEBUG_SERVER_ENABLED", false) {
		k.Set("debug_server.enabled", true)
	}
	if port := env.GetInt("DEBUG_SERVER_PORT", 0); port > 0 {
		k.Set("debug_server.port", port)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
