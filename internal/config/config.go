package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr              string        `env:"SCORING_ADDR" envDefault:":8080"`
	PublicDir         string        `env:"SCORING_PUBLIC_DIR" envDefault:"public"`
	HandshakeTimeout  time.Duration `env:"SCORING_HANDSHAKE_TIMEOUT" envDefault:"3s"`
	WriteTimeout      time.Duration `env:"SCORING_WRITE_TIMEOUT" envDefault:"3s"`
	KeepAliveInterval time.Duration `env:"SCORING_KEEPALIVE_INTERVAL" envDefault:"15s"`
	ShutdownTimeout   time.Duration `env:"SCORING_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ChannelCapacity   int           `env:"SCORING_CHANNEL_CAPACITY" envDefault:"10"`
	LogLevel          string        `env:"SCORING_LOG_LEVEL" envDefault:"info"`
	LogDevelopment    bool          `env:"SCORING_LOG_DEVELOPMENT" envDefault:"false"`
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case c.HandshakeTimeout <= 0:
		return fmt.Errorf("invalid config: SCORING_HANDSHAKE_TIMEOUT must be positive, got %s", c.HandshakeTimeout)
	case c.WriteTimeout <= 0:
		return fmt.Errorf("invalid config: SCORING_WRITE_TIMEOUT must be positive, got %s", c.WriteTimeout)
	case c.KeepAliveInterval <= 0:
		return fmt.Errorf("invalid config: SCORING_KEEPALIVE_INTERVAL must be positive, got %s", c.KeepAliveInterval)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("invalid config: SCORING_SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	case c.ChannelCapacity < 1:
		return fmt.Errorf("invalid config: SCORING_CHANNEL_CAPACITY must be at least 1, got %d", c.ChannelCapacity)
	}
	return nil
}
