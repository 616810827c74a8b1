// Package config loads application settings with cleanenv: environment
// variables with sane defaults, plus an optional YAML file named by
// CONFIG_PATH. Every value has a default, so the binary runs with no
// configuration at all.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	Storage    `yaml:"storage"`
	Session    `yaml:"session"`
	Schedule   `yaml:"schedule"`
	Reports    `yaml:"reports"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	Timeout     time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"15s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Storage selects the record store variant: "sqlite" is the multi-table
// indexed store, "flatfile" keeps everything in one JSON document.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite"`
	Path   string `yaml:"path" env:"STORAGE_PATH" env-default:"contracts.db"`
}

type Session struct {
	Secret string        `yaml:"secret" env:"SESSION_SECRET" env-default:"local-dev-secret"`
	TTL    time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"12h"`
}

// Schedule exposes the amortization knobs. The stock behavior divides
// every contract by twelve regardless of its real term; DivideByCount
// switches to amortization over the actual installment count.
type Schedule struct {
	Divisor       int  `yaml:"divisor" env:"SCHEDULE_DIVISOR" env-default:"12"`
	DivideByCount bool `yaml:"divide_by_count" env:"SCHEDULE_DIVIDE_BY_COUNT" env-default:"false"`
}

// Reports selects the quarter bucketing mode for statistics: "literal"
// or "calendar". The two have been shown to agree for every month, so
// this is a compatibility switch rather than a behavior change.
type Reports struct {
	QuarterMode string `yaml:"quarter_mode" env:"REPORTS_QUARTER_MODE" env-default:"literal"`
}

// MustLoad reads CONFIG_PATH when set, otherwise falls back to plain
// environment variables. Exits on malformed config.
func MustLoad() *Config {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			log.Fatalf("config file %s: %v", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			log.Fatalf("cannot read config: %v", err)
		}
		return &cfg
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("cannot read config from environment: %v", err)
	}
	return &cfg
}
