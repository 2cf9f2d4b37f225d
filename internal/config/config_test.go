package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_BASE_URL", "https://help.example.com/")
	t.Setenv("MAGIC_LINK_TTL_HOURS", "")
	t.Setenv("REALTIME_REDIS_RELAY", "not-a-bool")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://help.example.com", cfg.App.BaseURL)
	assert.Equal(t, 72*time.Hour, cfg.MagicLink.TTL())
	assert.False(t, cfg.Realtime.RedisRelay)
	assert.Equal(t, 25*time.Second, cfg.Realtime.PingInterval())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "x")

	_, err := Load()
	assert.Error(t, err)
}

func TestDurationsFallBack(t *testing.T) {
	assert.Equal(t, 72*time.Hour, MagicLinkConfig{TTLHours: -1}.TTL())
	assert.Equal(t, 60*time.Second, RealtimeConfig{}.PollIdle())
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
}
