package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Server.Port != 8080 || c.Engine.ForecastDays != 7 || c.Engine.ConfidenceLevel != 95 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.Cache.TTL != time.Hour || c.Queue.Backend != "local" {
		t.Fatalf("unexpected cache/queue defaults: %+v %+v", c.Cache, c.Queue)
	}
	if c.Logger.Level != "info" {
		t.Fatalf("logger level default = %q", c.Logger.Level)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
environment: production
server:
  port: 9090
engine:
  forecast_days: 14
cache:
  backend: layered
  ttl: 10m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "production" || c.Server.Port != 9090 {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.Engine.ForecastDays != 14 || c.Engine.ConfidenceLevel != 95 {
		t.Fatalf("engine section = %+v", c.Engine)
	}
	if c.Cache.Backend != "layered" || c.Cache.TTL != 10*time.Minute {
		t.Fatalf("cache section = %+v", c.Cache)
	}
	if c.Server.ReadTimeout != 30*time.Second {
		t.Fatalf("missing key lost its default: %v", c.Server.ReadTimeout)
	}
	if !c.UsesRedis() {
		t.Fatalf("layered cache needs redis")
	}
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	env := map[string]string{
		"PORT":           "7000",
		"KAFKA_BROKERS":  "a:9092,b:9092",
		"CACHE_BACKEND":  "redis",
		"CLICKHOUSE_HOST": "ch",
	}
	c.applyEnv(func(k string) string { return env[k] })

	if c.Server.Port != 7000 {
		t.Errorf("port = %d", c.Server.Port)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Errorf("kafka = %+v", c.Kafka)
	}
	if c.Cache.Backend != "redis" {
		t.Errorf("cache backend = %s", c.Cache.Backend)
	}
	if !c.ClickHouse.Enabled || c.ClickHouse.Host != "ch" {
		t.Errorf("clickhouse = %+v", c.ClickHouse)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"environment":   func(c *Config) { c.Environment = "" },
		"port":          func(c *Config) { c.Server.Port = 0 },
		"cache backend": func(c *Config) { c.Cache.Backend = "disk" },
		"queue backend": func(c *Config) { c.Queue.Backend = "sqs" },
		"workers":       func(c *Config) { c.Queue.Workers = 0 },
		"forecast days": func(c *Config) { c.Engine.ForecastDays = 31 },
		"confidence":    func(c *Config) { c.Engine.ConfidenceLevel = 100 },
		"kafka brokers": func(c *Config) { c.Kafka.Enabled = true },
	}
	for name, mutate := range cases {
		c := Default()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
