// Package config loads server configuration from the environment, Secret
// Manager, and an optional YAML presentation file.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/codeGROOVE-dev/gsm"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort         = "9119"
	defaultHistoryLimit = 5
)

// ServerConfig holds server configuration from environment variables.
type ServerConfig struct {
	DiscordBotToken string
	Port            string
	StoreBackend    string // "fido" (default) or "memory"
	HistoryLimit    int
	Presentation    Presentation
}

// Presentation holds the raffle post defaults, overridable per guild via the
// start command.
type Presentation struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Load reads configuration from the environment. DISCORD_BOT_TOKEN falls back
// to Secret Manager; RAFFLE_CONFIG_PATH optionally names a YAML file with
// presentation defaults.
func Load(ctx context.Context) (ServerConfig, error) {
	// Environment variables take precedence, then Secret Manager
	getSecret := func(name string) string {
		if v := os.Getenv(name); v != "" {
			slog.Debug("using environment variable", "name", name)
			return v
		}

		value, err := gsm.Fetch(ctx, name)
		if err != nil {
			slog.Debug("secret not found in Secret Manager", "name", name, "error", err)
			return ""
		}
		if value != "" {
			slog.Info("loaded secret from Secret Manager", "name", name)
		}
		return value
	}

	cfg := ServerConfig{
		DiscordBotToken: getSecret("DISCORD_BOT_TOKEN"),
		Port:            getEnv("PORT", defaultPort),
		StoreBackend:    getEnv("RAFFLE_STORE", "fido"),
		HistoryLimit:    getEnvInt("RAFFLE_HISTORY_LIMIT", defaultHistoryLimit),
	}

	if path := os.Getenv("RAFFLE_CONFIG_PATH"); path != "" {
		presentation, err := loadPresentation(path)
		if err != nil {
			return cfg, fmt.Errorf("load presentation config: %w", err)
		}
		cfg.Presentation = presentation
	}

	if cfg.DiscordBotToken == "" {
		return cfg, errors.New("DISCORD_BOT_TOKEN environment variable is required")
	}
	if cfg.HistoryLimit <= 0 {
		return cfg, errors.New("RAFFLE_HISTORY_LIMIT must be positive")
	}

	return cfg, nil
}

func loadPresentation(path string) (Presentation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Presentation{}, fmt.Errorf("read config file: %w", err)
	}

	var p Presentation
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Presentation{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	slog.Info("loaded presentation config", "path", path)
	return p, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer environment variable, using default",
			"name", key,
			"value", v,
			"default", defaultValue)
		return defaultValue
	}
	return n
}
