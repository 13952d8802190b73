package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"BandView/internal/domain/models"
	xutil "BandView/pkg/util"
)

// Series backends.
const (
	BackendFile       = "file"
	BackendHTTP       = "http"
	BackendClickHouse = "clickhouse"
	BackendMemory     = "memory"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORS            bool          `yaml:"cors"`
	} `yaml:"server"`
	Logger struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Series struct {
		Backend   string        `yaml:"backend"`
		Path      string        `yaml:"path"`
		URL       string        `yaml:"url"`
		Symbol    string        `yaml:"symbol"`
		Timeframe string        `yaml:"timeframe"`
		Timeout   time.Duration `yaml:"timeout"`
		Retries   int           `yaml:"retries"`
	} `yaml:"series"`
	Bollinger models.BollingerInputs `yaml:"bollinger"`
	Cache     struct {
		Enabled       bool          `yaml:"enabled"`
		TTL           time.Duration `yaml:"ttl"`
		Backend       string        `yaml:"backend"`
		MemoryMaxSize int           `yaml:"memory_max_size"`
		Redis         struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		CandlesTopic string   `yaml:"candles_topic"`
		BandsTopic   string   `yaml:"bands_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	RateLimit struct {
		Enabled       bool          `yaml:"enabled"`
		Capacity      int           `yaml:"capacity"`
		RefillPerSec  float64       `yaml:"refill_per_sec"`
		IdleTTL       time.Duration `yaml:"idle_ttl"`
		PruneInterval time.Duration `yaml:"prune_interval"`
	} `yaml:"ratelimit"`
}

// Default returns a configuration that serves data/ohlcv.json on :8080.
func Default() *Config {
	var c Config
	c.Environment = "development"
	c.Server.Port = 8080
	c.Server.CORS = true
	c.Logger.Level = "info"
	c.Logger.Format = "json"
	c.Logger.Output = "stdout"
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	c.Series.Backend = BackendFile
	c.Series.Path = "data/ohlcv.json"
	c.Series.Symbol = "AAPL"
	c.Series.Timeframe = "1d"
	c.Series.Timeout = 10 * time.Second
	c.Series.Retries = 3
	c.Bollinger = models.DefaultSettings().Inputs
	c.Cache.TTL = time.Minute
	c.Cache.Backend = "memory"
	c.Cache.MemoryMaxSize = 1000
	c.Kafka.CandlesTopic = "bandview.candles"
	c.Kafka.BandsTopic = "bandview.bands"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "snappy"
	c.Kafka.Consumer.GroupID = "bandview"
	c.Kafka.Consumer.Workers = 1
	c.RateLimit.Capacity = 20
	c.RateLimit.RefillPerSec = 10
	c.RateLimit.IdleTTL = 10 * time.Minute
	c.RateLimit.PruneInterval = time.Minute
	return &c
}

// Parse decodes YAML over Default and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML, applies environment overrides, then validates.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := getenv("SERIES_BACKEND"); v != "" {
		c.Series.Backend = v
	}
	if v := getenv("SERIES_PATH"); v != "" {
		c.Series.Path = v
	}
	if v := getenv("SERIES_URL"); v != "" {
		c.Series.URL = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = xutil.SplitCSV(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port := splitHostPort(v)
		c.Cache.Redis.Host = host
		if port > 0 {
			c.Cache.Redis.Port = port
		}
	}
}

func splitHostPort(addr string) (string, int) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], xutil.ParseIntDefault(addr[i+1:], 0)
		}
	}
	return addr, 0
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Series.Backend {
	case BackendFile:
		if c.Series.Path == "" {
			return fmt.Errorf("series.path is required for the file backend")
		}
	case BackendHTTP:
		if c.Series.URL == "" {
			return fmt.Errorf("series.url is required for the http backend")
		}
	case BackendClickHouse:
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for the clickhouse backend")
		}
	case BackendMemory:
		if !c.Kafka.Enabled && c.Series.Path == "" {
			return fmt.Errorf("memory backend needs kafka.enabled or a series.path seed")
		}
	default:
		return fmt.Errorf("series.backend must be one of file, http, clickhouse, memory, got '%s'", c.Series.Backend)
	}
	if c.Bollinger.Length < 1 {
		return fmt.Errorf("bollinger.length must be >= 1, got %d", c.Bollinger.Length)
	}
	if math.IsNaN(c.Bollinger.Multiplier) || math.IsInf(c.Bollinger.Multiplier, 0) {
		return fmt.Errorf("bollinger.multiplier must be finite, got %v", c.Bollinger.Multiplier)
	}
	if !c.Bollinger.Source.Valid() {
		return fmt.Errorf("bollinger.source %q is not supported", c.Bollinger.Source)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.backend must be memory, redis or layered, got '%s'", c.Cache.Backend)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Capacity < 1 || c.RateLimit.RefillPerSec <= 0) {
		return fmt.Errorf("ratelimit needs capacity >= 1 and refill_per_sec > 0")
	}
	if c.RateLimit.Enabled && c.RateLimit.IdleTTL <= 0 {
		return fmt.Errorf("ratelimit.idle_ttl must be positive")
	}
	return nil
}
