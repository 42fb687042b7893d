package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "REDIS_ADDR", "TOKEN_SECRET", "AI_PROVIDER", "SANDBOX_MEMORY_MB", "SANDBOX_WALL_SEC"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, "gemini", cfg.AIProvider)
	assert.Equal(t, int64(512), cfg.SandboxMemoryMB)
	assert.Equal(t, int64(10), cfg.SandboxWallSec)
	assert.False(t, cfg.HistoryEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SANDBOX_MEMORY_MB", "256")
	t.Setenv("SANDBOX_WALL_SEC", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, int64(256), cfg.SandboxMemoryMB)
	assert.Equal(t, int64(5), cfg.SandboxWallSec)
	assert.True(t, cfg.HistoryEnabled())
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("SANDBOX_MEMORY_MB", "lots")

	_, err := Load()
	require.Error(t, err)
}
