// Package config loads the CLI configuration from flags, environment
// variables (prefix COINBASE) and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alejoacosta74/coinbase-api/internal/auth"
	"github.com/alejoacosta74/coinbase-api/pkg/coinbase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. COINBASE_API_KEY_NAME.
const EnvPrefix = "COINBASE"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	API     APIConfig     `mapstructure:"api"`
	WS      WSConfig      `mapstructure:"ws"`
	REST    RESTConfig    `mapstructure:"rest"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	System  SystemConfig  `mapstructure:"system"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// APIConfig holds the credentials. Either KeyName and Secret, or Bearer.
type APIConfig struct {
	KeyName string `mapstructure:"key_name"`
	Secret  string `mapstructure:"secret"`
	Bearer  string `mapstructure:"bearer"`
	Legacy  bool   `mapstructure:"legacy"`
}

type WSConfig struct {
	URL             string        `mapstructure:"url"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RESTConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries uint64        `mapstructure:"max_retries"`
}

type StreamConfig struct {
	Products []string `mapstructure:"products"`
	Channels []string `mapstructure:"channels"`
	Print    bool     `mapstructure:"print"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	ClientID    string   `mapstructure:"client_id"`
	PoolSize    int      `mapstructure:"pool_size"`
	QueueSize   int      `mapstructure:"queue_size"`
	Workers     int      `mapstructure:"workers"`
}

// SystemConfig tunes the Go runtime. Zero values leave the runtime default.
type SystemConfig struct {
	MaxProcs      int           `mapstructure:"maxprocs"`
	GCPercent     int           `mapstructure:"gcpercent"`
	MaxThreads    int           `mapstructure:"maxthreads"`
	MemoryLimit   int           `mapstructure:"memorylimit"` // in MB
	CPUProfile    string        `mapstructure:"cpuprofile"`
	MemProfile    string        `mapstructure:"memprofile"`
	StatsInterval time.Duration `mapstructure:"stats_interval"`
}

// SetDefaults registers every key with its default, which also makes
// each key resolvable from the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("api.key_name", "")
	v.SetDefault("api.secret", "")
	v.SetDefault("api.bearer", "")
	v.SetDefault("api.legacy", false)

	v.SetDefault("ws.url", "wss://advanced-trade-ws.coinbase.com")
	v.SetDefault("ws.shutdown_timeout", 2*time.Second)

	v.SetDefault("rest.base_url", "https://api.coinbase.com")
	v.SetDefault("rest.timeout", 10*time.Second)
	v.SetDefault("rest.max_retries", 2)

	v.SetDefault("stream.products", []string{"BTC-USD"})
	v.SetDefault("stream.channels", []string{"ticker", "heartbeats"})
	v.SetDefault("stream.print", true)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":2112")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "coinbase")
	v.SetDefault("kafka.client_id", "coinbase-api")
	v.SetDefault("kafka.pool_size", 2)
	v.SetDefault("kafka.queue_size", 1024)
	v.SetDefault("kafka.workers", 2)

	v.SetDefault("system.maxprocs", 0)
	v.SetDefault("system.gcpercent", 0)
	v.SetDefault("system.maxthreads", 0)
	v.SetDefault("system.memorylimit", 0)
	v.SetDefault("system.cpuprofile", "")
	v.SetDefault("system.memprofile", "")
	v.SetDefault("system.stats_interval", time.Duration(0))
}

// BindEnv maps nested keys to COINBASE_SECTION_KEY variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load applies defaults and environment bindings to v, then decodes and
// validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	BindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Stream.Products = splitList(cfg.Stream.Products)
	cfg.Stream.Channels = splitList(cfg.Stream.Channels)
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	if c.API.Bearer != "" && (c.API.KeyName != "" || c.API.Secret != "") {
		return fmt.Errorf("%w: api.bearer and api.key_name are mutually exclusive", ErrInvalidConfig)
	}
	if (c.API.KeyName == "") != (c.API.Secret == "") {
		return fmt.Errorf("%w: api.key_name and api.secret must be set together", ErrInvalidConfig)
	}
	if c.WS.URL == "" {
		return fmt.Errorf("%w: ws.url is required", ErrInvalidConfig)
	}
	if c.REST.BaseURL == "" {
		return fmt.Errorf("%w: rest.base_url is required", ErrInvalidConfig)
	}
	for _, name := range c.Stream.Channels {
		if _, ok := coinbase.ParseChannel(name); !ok {
			return fmt.Errorf("%w: unknown channel %q", ErrInvalidConfig, name)
		}
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("%w: metrics.addr is required when metrics are enabled", ErrInvalidConfig)
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: kafka.brokers is required when kafka is enabled", ErrInvalidConfig)
		}
		if c.Kafka.PoolSize <= 0 {
			return fmt.Errorf("%w: kafka.pool_size must be positive", ErrInvalidConfig)
		}
	}
	return nil
}

// HasCredentials reports whether any credentials were configured.
func (c *Config) HasCredentials() bool {
	return c.API.Bearer != "" || c.API.KeyName != ""
}

// Credentials converts the api section for auth.NewSigner.
func (c *Config) Credentials() auth.Credentials {
	return auth.Credentials{
		KeyName: c.API.KeyName,
		Secret:  c.API.Secret,
		Bearer:  c.API.Bearer,
		Legacy:  c.API.Legacy,
	}
}

// splitList accepts both repeated values and comma separated strings, as
// environment variables only carry the latter.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
