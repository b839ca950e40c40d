package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "MONGO_URI", "REDIS_URL", "SESSION_TTL", "INDEX_CACHE_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.MongoURI)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, 14*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 20*time.Second, cfg.IndexCacheTTL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("INDEX_CACHE_TTL", "45s")
	t.Setenv("SESSION_TTL", "not-a-duration")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 45*time.Second, cfg.IndexCacheTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.SessionTTL)
}
