package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_DRIVER", "REDIS_ADDR", "REDIS_DB", "SESSION_TTL", "KAFKA_BROKER", "SMTP_HOST"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 72*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.MailEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SMTP_PORT", "not-a-number")
	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 587, cfg.SMTPPort)
}
