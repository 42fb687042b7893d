package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from the environment. Zero-value friendly: every field
// has a default so the server comes up with no env set at all.
type Config struct {
	Port        string `envconfig:"PORT" default:"5000"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:""`
	TokenSecret string `envconfig:"TOKEN_SECRET" default:""`

	AIProvider string `envconfig:"AI_PROVIDER" default:"gemini"`

	SandboxMemoryMB  int64 `envconfig:"SANDBOX_MEMORY_MB" default:"512"`
	SandboxWallSec   int64 `envconfig:"SANDBOX_WALL_SEC" default:"10"`
	SandboxNanoCPUs  int64 `envconfig:"SANDBOX_NANO_CPUS" default:"1000000000"`
	RequestTimeoutMS int64 `envconfig:"REQUEST_TIMEOUT_MS" default:"60000"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Addr() string { return ":" + c.Port }

// HistoryEnabled reports whether session_ended events should be published.
func (c *Config) HistoryEnabled() bool { return c.RedisAddr != "" }
