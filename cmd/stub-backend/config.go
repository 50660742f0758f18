package main

import (
	"flag"
	"os"
	"strings"
)

type Config struct {
	Addr     string
	LogLevel string
	Fail     bool
}

// Configurations for stub-backend
func LoadConfig(args []string) (Config, error) {
	var cfg Config
	cfg.Addr = getEnv("STUB_ADDR", ":8000")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.Fail = strings.EqualFold(os.Getenv("STUB_FAIL"), "true")

	fs := flag.NewFlagSet("stub-backend", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug|info|warn|error")
	fs.BoolVar(&cfg.Fail, "fail", cfg.Fail, "answer every submission with 500")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(k, def string) string {
	value := os.Getenv(k)
	if value != "" {
		return value
	}
	return def
}
