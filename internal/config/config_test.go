package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 15, cfg.SlotGranularityMins)
	assert.Equal(t, 10*time.Minute, cfg.OverrideTimeout)
	assert.Equal(t, 30*time.Second, cfg.OverrideWarningLead)
	assert.Equal(t, 10*time.Second, cfg.SlotLockTTL)
	assert.Empty(t, cfg.GroupDiscountTiers)
	assert.Nil(t, cfg.CORSAllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SLOT_GRANULARITY_MINS", "30")
	t.Setenv("OVERRIDE_TIMEOUT", "5m")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://admin.clearbrook.health, https://portal.clearbrook.health")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30, cfg.SlotGranularityMins)
	assert.Equal(t, 5*time.Minute, cfg.OverrideTimeout)
	assert.True(t, cfg.RedisTLS)
	assert.Equal(t, []string{"https://admin.clearbrook.health", "https://portal.clearbrook.health"}, cfg.CORSAllowedOrigins)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SLOT_GRANULARITY_MINS", "often")
	t.Setenv("OVERRIDE_TIMEOUT", "soon")
	t.Setenv("REDIS_TLS", "yes please")

	cfg := Load()

	assert.Equal(t, 15, cfg.SlotGranularityMins)
	assert.Equal(t, 10*time.Minute, cfg.OverrideTimeout)
	assert.False(t, cfg.RedisTLS)
}
