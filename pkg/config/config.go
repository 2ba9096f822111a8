package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"IEXCast/pkg/logger"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development"`
	Server      Server        `yaml:"server"`
	Logger      logger.Config `yaml:"logger"`
	Metrics     Metrics       `yaml:"metrics"`
	Engine      Engine        `yaml:"engine"`
	Ingest      Ingest        `yaml:"ingest"`
	Cache       Cache         `yaml:"cache"`
	Redis       Redis         `yaml:"redis"`
	Queue       Queue         `yaml:"queue"`
	Kafka       Kafka         `yaml:"kafka"`
	ClickHouse  ClickHouse    `yaml:"clickhouse"`
	RateLimit   RateLimit     `yaml:"rate_limit"`
}

type Server struct {
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// Engine holds the defaults applied when a request leaves them out.
type Engine struct {
	ForecastDays    int     `yaml:"forecast_days" default:"7"`
	ConfidenceLevel float64 `yaml:"confidence_level" default:"95"`
}

type Ingest struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes" default:"20971520"`
	MaxRows        int   `yaml:"max_rows" default:"200000"`
}

type Cache struct {
	Backend string        `yaml:"backend" default:"memory"` // memory, redis, layered
	TTL     time.Duration `yaml:"ttl" default:"1h"`
	Prefix  string        `yaml:"prefix" default:"iexcast"`
}

type Redis struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Queue struct {
	Backend    string        `yaml:"backend" default:"local"` // local or redis
	Name       string        `yaml:"name" default:"iexcast:jobs"`
	Workers    int           `yaml:"workers" default:"2"`
	MaxRetries int           `yaml:"max_retries" default:"1"`
	JobTTL     time.Duration `yaml:"job_ttl" default:"24h"`
}

type Kafka struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	ResultsTopic  string   `yaml:"results_topic" default:"iex.simulation.results"`
	RequestsTopic string   `yaml:"requests_topic"`
	GroupID       string   `yaml:"group_id" default:"iexcast"`
	DLQTopic      string   `yaml:"dlq_topic"`
	LogsTopic     string   `yaml:"logs_topic"`
	RequiredAcks  int      `yaml:"required_acks" default:"-1"`
	Compression   string   `yaml:"compression" default:"gzip"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"100ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"producer"`
}

type ClickHouse struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"default"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	SourceTable      string        `yaml:"source_table" default:"iex_dam_prices"`
	ArchiveUploads   bool          `yaml:"archive_uploads"`
}

// RateLimit is a token bucket per client address on upload routes.
type RateLimit struct {
	Capacity int           `yaml:"capacity" default:"10"`
	Refill   time.Duration `yaml:"refill" default:"6s"`
}

// Default returns a configuration populated only from default tags.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		// tags are static; a failure here is a programming error
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file. Missing keys keep their
// defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, when path is non-empty, and overrides it
// with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path != "" {
		c, err = Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		c = Default()
	}

	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("QUEUE_BACKEND"); v != "" {
		c.Queue.Backend = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("KAFKA_RESULTS_TOPIC"); v != "" {
		c.Kafka.ResultsTopic = v
	}
	if v := getenv("KAFKA_REQUESTS_TOPIC"); v != "" {
		c.Kafka.RequestsTopic = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
	}
	switch c.Queue.Backend {
	case "local", "redis":
	default:
		return fmt.Errorf("queue.backend must be 'local' or 'redis', got '%s'", c.Queue.Backend)
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue.workers must be positive")
	}
	if c.Engine.ForecastDays < 1 || c.Engine.ForecastDays > 30 {
		return fmt.Errorf("engine.forecast_days must be in 1..30, got %d", c.Engine.ForecastDays)
	}
	if c.Engine.ConfidenceLevel < 50 || c.Engine.ConfidenceLevel > 99.9 {
		return fmt.Errorf("engine.confidence_level must be in 50..99.9, got %v", c.Engine.ConfidenceLevel)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.RequestsTopic != "" && !c.ClickHouse.Enabled {
		return fmt.Errorf("kafka.requests_topic needs clickhouse as the series source")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.SourceTable == "" {
		return fmt.Errorf("clickhouse.source_table is required when clickhouse is enabled")
	}
	return nil
}

// UsesRedis reports whether any component needs a redis connection.
func (c *Config) UsesRedis() bool {
	return c.Cache.Backend != "memory" || c.Queue.Backend == "redis"
}
