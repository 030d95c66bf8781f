package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// AppConfig is the process configuration read from the environment.
type AppConfig struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	PublicURL  string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	PersistBackend string        `env:"PERSIST_BACKEND" envDefault:"file"`
	PersistFile    string        `env:"PERSIST_FILE" envDefault:"data/sessions.json"`
	PersistSync    bool          `env:"PERSIST_SYNC" envDefault:"false"`
	PersistTimeout time.Duration `env:"PERSIST_TIMEOUT" envDefault:"5s"`
	RedisURL       string        `env:"REDIS_URL"`
	RedisKey       string        `env:"REDIS_KEY" envDefault:"frames:sessions"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"data/sessions.db"`
	DatabaseURL    string        `env:"DATABASE_URL"`

	FrameHubURL      string        `env:"FRAME_HUB_URL"`
	FrameHubTimeout  time.Duration `env:"FRAME_HUB_TIMEOUT" envDefault:"5s"`
	MessagesDir      string        `env:"MESSAGES_DIR"`
	DisplayNameLimit int           `env:"DISPLAY_NAME_LIMIT" envDefault:"24"`
	BoardSquareSize  int           `env:"BOARD_SQUARE_SIZE" envDefault:"64"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

var backends = map[string]bool{
	"none": true, "memory": true, "file": true, "redis": true, "sqlite": true, "postgres": true,
}

// Load parses the environment and validates the result.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes cfg and rejects combinations that cannot start.
func (c *AppConfig) Validate() error {
	c.PersistBackend = strings.ToLower(strings.TrimSpace(c.PersistBackend))
	c.PublicURL = strings.TrimRight(strings.TrimSpace(c.PublicURL), "/")

	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("LISTEN_ADDR is required")
	}
	if c.PublicURL == "" {
		return errors.New("PUBLIC_URL is required")
	}
	if !backends[c.PersistBackend] {
		return fmt.Errorf("PERSIST_BACKEND %q is not one of none, memory, file, redis, sqlite, postgres", c.PersistBackend)
	}
	switch c.PersistBackend {
	case "file":
		if strings.TrimSpace(c.PersistFile) == "" {
			return errors.New("PERSIST_FILE is required for the file backend")
		}
	case "redis":
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("REDIS_URL is required for the redis backend")
		}
	case "sqlite":
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH is required for the sqlite backend")
		}
	case "postgres":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	}
	if c.DisplayNameLimit <= 0 {
		return errors.New("DISPLAY_NAME_LIMIT must be positive")
	}
	if c.BoardSquareSize < 16 || c.BoardSquareSize > 256 {
		return errors.New("BOARD_SQUARE_SIZE must be between 16 and 256")
	}
	return nil
}
