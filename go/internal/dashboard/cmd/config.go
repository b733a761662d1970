package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML client configuration.
type Config struct {
	ServerURL            string   `yaml:"server_url"`
	PushURL              string   `yaml:"push_url"`
	UserID               string   `yaml:"user_id"`
	HeartbeatIntervalSec int      `yaml:"heartbeat_interval_sec"`
	Rooms                []string `yaml:"rooms"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.ServerURL == "" {
		config.ServerURL = "http://localhost:8080"
	}
	if config.PushURL == "" {
		config.PushURL = "ws://localhost:8080/ws"
	}
	if config.UserID == "" {
		config.UserID = "anonymous"
	}
	if config.HeartbeatIntervalSec <= 0 {
		config.HeartbeatIntervalSec = 30
	}
	return &config, nil
}

func (c *Config) heartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
