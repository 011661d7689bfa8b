package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Providers struct {
		Polygon struct {
			APIKey         string  `yaml:"api_key"`
			RequestsPerSec float64 `yaml:"requests_per_sec"`
		} `yaml:"polygon"`
		EDGAR struct {
			UserAgent      string  `yaml:"user_agent"`
			RequestsPerSec float64 `yaml:"requests_per_sec"`
		} `yaml:"edgar"`
		FRED struct {
			APIKey         string   `yaml:"api_key"`
			RequestsPerSec float64  `yaml:"requests_per_sec"`
			Series         []string `yaml:"series"`
		} `yaml:"fred"`
		Finnhub struct {
			APIKey         string  `yaml:"api_key"`
			RequestsPerSec float64 `yaml:"requests_per_sec"`
		} `yaml:"finnhub"`
	} `yaml:"providers"`
	Retry struct {
		MaxAttempts      int           `yaml:"max_attempts"`
		RateLimitBase    time.Duration `yaml:"rate_limit_base"`
		UnavailableDelay time.Duration `yaml:"unavailable_delay"`
	} `yaml:"retry"`
	Snapshot struct {
		TTL         time.Duration `yaml:"ttl"`
		EconomicTTL time.Duration `yaml:"economic_ttl"`
	} `yaml:"snapshot"`
	Scoring struct {
		WeightsVersion string             `yaml:"weights_version"`
		Weights        map[string]float64 `yaml:"weights"`
	} `yaml:"scoring"`
	Scheduler struct {
		Enabled          bool     `yaml:"enabled"`
		SymbolSchedule   string   `yaml:"symbol_schedule"`
		EconomicSchedule string   `yaml:"economic_schedule"`
		WatchedSymbols   []string `yaml:"watched_symbols"`
	} `yaml:"scheduler"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		c.Providers.Polygon.APIKey = v
	}
	if v := os.Getenv("FRED_API_KEY"); v != "" {
		c.Providers.FRED.APIKey = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Providers.Finnhub.APIKey = v
	}
	if v := os.Getenv("EDGAR_USER_AGENT"); v != "" {
		c.Providers.EDGAR.UserAgent = v
	}
	if v := os.Getenv("WATCHED_SYMBOLS"); v != "" {
		c.Scheduler.WatchedSymbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 4
	}
	if c.Retry.RateLimitBase == 0 {
		c.Retry.RateLimitBase = 5 * time.Second
	}
	if c.Retry.UnavailableDelay == 0 {
		c.Retry.UnavailableDelay = 2 * time.Second
	}
	if c.Snapshot.TTL == 0 {
		c.Snapshot.TTL = 15 * time.Minute
	}
	if c.Snapshot.EconomicTTL == 0 {
		c.Snapshot.EconomicTTL = time.Hour
	}
	if c.Scoring.WeightsVersion == "" {
		c.Scoring.WeightsVersion = "v1"
	}
	if len(c.Providers.FRED.Series) == 0 {
		c.Providers.FRED.Series = []string{"DFF", "UNRATE", "CPIAUCSL", "GDP", "T10Y2Y"}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Providers.EDGAR.UserAgent == "" {
		return fmt.Errorf("providers.edgar.user_agent is required")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	for dim, w := range c.Scoring.Weights {
		if w < 0 {
			return fmt.Errorf("scoring.weights.%s cannot be negative", dim)
		}
	}
	return nil
}
