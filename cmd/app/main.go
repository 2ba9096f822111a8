package main

import (
	"flag"
	"log"
	"os"

	"IEXCast/internal/di"
	"IEXCast/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults and env only when empty)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s cache=%s queue=%s kafka=%v clickhouse=%v",
		cfg.Environment, cfg.Cache.Backend, cfg.Queue.Backend, cfg.Kafka.Enabled, cfg.ClickHouse.Enabled)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
