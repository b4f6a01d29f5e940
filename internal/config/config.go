// Package config reads bot configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	DiscordToken string
	DatabaseURL  string

	CommandPrefix string
	SweepChunk    int

	Env      string
	LogLevel string
	Port     string

	PosthogKey string
}

// Load builds a Config from the environment. Callers are expected to have
// loaded any .env file beforehand (the mains do this via godotenv, like the
// rest of the fleet).
func Load() (*Config, error) {
	cfg := &Config{
		DiscordToken:  os.Getenv("DISCORD_TOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		CommandPrefix: getEnv("COMMAND_PREFIX", "!"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Port:          getEnv("PORT", "8080"),
		PosthogKey:    os.Getenv("POSTHOG_KEY"),
	}

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN environment variable is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	chunk := getEnv("SWEEP_CHUNK", "1000")
	n, err := strconv.Atoi(chunk)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("SWEEP_CHUNK must be a positive integer, got %q", chunk)
	}
	cfg.SweepChunk = n

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
