package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "STREAM_MODE", "STREAM_WINDOW_SIZE", "STREAM_TICK_INTERVAL", "PREDICT_POLL_INTERVAL",
		"GEMINI_KEYS", "GEMINI_KEY", "GEMINI_FLASH_MODEL", "REDIS_HOST", "RABBITMQ_HOST", "MQTT_BROKER",
		"INGEST_REQUIRE_ALL_FIELDS",
	} {
		t.Setenv(key, "")
	}

	cfg := New()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "simulated", cfg.StreamCfg.Mode)
	assert.Equal(t, 30, cfg.StreamCfg.WindowSize)
	assert.Equal(t, 1500*time.Millisecond, cfg.StreamCfg.TickInterval)
	assert.Equal(t, 5*time.Second, cfg.StreamCfg.PollInterval)
	assert.False(t, cfg.IngestCfg.RequireAllFields)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiCfg.FlashName)
	assert.Empty(t, cfg.GeminiCfg.APIKeys)
	assert.Equal(t, "waterguard:readings", cfg.RedisCfg.Channel)
	assert.Equal(t, "water_risk_alerts", cfg.RabbitCfg.AlertQueue)
	assert.Equal(t, "waterguard/sensors/+/reading", cfg.MQTTCfg.Topic)
	assert.False(t, cfg.RedisCfg.Enabled())
	assert.False(t, cfg.RabbitCfg.Enabled())
	assert.False(t, cfg.MQTTCfg.Enabled())
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STREAM_MODE", "live")
	t.Setenv("STREAM_WINDOW_SIZE", "60")
	t.Setenv("STREAM_TICK_INTERVAL", "250ms")
	t.Setenv("INGEST_REQUIRE_ALL_FIELDS", "true")
	t.Setenv("GEMINI_KEYS", "key-a, key-b,,")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("MQTT_BROKER", "tcp://mosquitto:1883")

	cfg := New()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "live", cfg.StreamCfg.Mode)
	assert.Equal(t, 60, cfg.StreamCfg.WindowSize)
	assert.Equal(t, 250*time.Millisecond, cfg.StreamCfg.TickInterval)
	assert.True(t, cfg.IngestCfg.RequireAllFields)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.GeminiCfg.APIKeys)
	assert.True(t, cfg.RedisCfg.Enabled())
	assert.True(t, cfg.MQTTCfg.Enabled())
}

func TestNew_SingleGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_KEYS", "")
	t.Setenv("GEMINI_KEY", "solo")

	assert.Equal(t, []string{"solo"}, New().GeminiCfg.APIKeys)
}

func TestNew_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("STREAM_WINDOW_SIZE", "thirty")
	t.Setenv("STREAM_TICK_INTERVAL", "-1s")
	t.Setenv("INGEST_REQUIRE_ALL_FIELDS", "maybe")

	cfg := New()

	assert.Equal(t, 30, cfg.StreamCfg.WindowSize)
	assert.Equal(t, 1500*time.Millisecond, cfg.StreamCfg.TickInterval)
	assert.False(t, cfg.IngestCfg.RequireAllFields)
}
