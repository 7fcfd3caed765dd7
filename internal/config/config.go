package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type WaterGuardConfig struct {
	Port      string
	LogDir    string
	StreamCfg StreamConfig
	IngestCfg IngestConfig
	GeminiCfg GeminiAPIConfig
	RedisCfg  RedisConfig
	RabbitCfg RabbitMQConfig
	MQTTCfg   MQTTConfig
}

type StreamConfig struct {
	Mode         string
	WindowSize   int
	TickInterval time.Duration
	PollInterval time.Duration
	Backfill     bool
	NumWorkers   int
}

type IngestConfig struct {
	RequireAllFields bool
}

type GeminiAPIConfig struct {
	APIKeys   []string
	FlashName string
}

// RedisConfig with an empty Host disables the reading publisher.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Channel  string
}

// RabbitMQConfig with an empty Host disables risk alerts.
type RabbitMQConfig struct {
	Host       string
	Port       string
	Username   string
	Password   string
	AlertQueue string
}

// MQTTConfig with an empty Broker disables MQTT ingestion.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
	QoS      byte
}

func (c RedisConfig) Enabled() bool { return c.Host != "" }
func (c RabbitMQConfig) Enabled() bool { return c.Host != "" }
func (c MQTTConfig) Enabled() bool { return c.Broker != "" }

// New loads .env when present and builds the config from the environment.
func New() *WaterGuardConfig {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	return &WaterGuardConfig{
		Port:   getEnvOrDefault("PORT", "3000"),
		LogDir: getEnvOrDefault("LOG_DIR", "./log/waterguard"),
		StreamCfg: StreamConfig{
			Mode:         getEnvOrDefault("STREAM_MODE", "simulated"),
			WindowSize:   getEnvAsInt("STREAM_WINDOW_SIZE", 30),
			TickInterval: getEnvAsDuration("STREAM_TICK_INTERVAL", 1500*time.Millisecond),
			PollInterval: getEnvAsDuration("PREDICT_POLL_INTERVAL", 5*time.Second),
			Backfill:     getEnvAsBool("STREAM_BACKFILL", true),
			NumWorkers:   getEnvAsInt("WORKER_COUNT", 2),
		},
		IngestCfg: IngestConfig{
			RequireAllFields: getEnvAsBool("INGEST_REQUIRE_ALL_FIELDS", false),
		},
		GeminiCfg: GeminiAPIConfig{
			APIKeys:   getGeminiKeys(),
			FlashName: getEnvOrDefault("GEMINI_FLASH_MODEL", "gemini-1.5-flash"),
		},
		RedisCfg: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", ""),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Channel:  getEnvOrDefault("REDIS_CHANNEL", "waterguard:readings"),
		},
		RabbitCfg: RabbitMQConfig{
			Host:       getEnvOrDefault("RABBITMQ_HOST", ""),
			Port:       getEnvOrDefault("RABBITMQ_PORT", "5672"),
			Username:   getEnvOrDefault("RABBITMQ_USER", "admin"),
			Password:   getEnvOrDefault("RABBITMQ_PWD", "admin"),
			AlertQueue: getEnvOrDefault("RABBITMQ_ALERT_QUEUE", "water_risk_alerts"),
		},
		MQTTCfg: MQTTConfig{
			Broker:   getEnvOrDefault("MQTT_BROKER", ""),
			ClientID: getEnvOrDefault("MQTT_CLIENT_ID", "waterguard"),
			Topic:    getEnvOrDefault("MQTT_TOPIC", "waterguard/sensors/+/reading"),
			Username: getEnvOrDefault("MQTT_USERNAME", ""),
			Password: getEnvOrDefault("MQTT_PASSWORD", ""),
			QoS:      byte(getEnvAsInt("MQTT_QOS", 1)),
		},
	}
}

// getGeminiKeys prefers the comma separated GEMINI_KEYS over the single
// GEMINI_KEY.
func getGeminiKeys() []string {
	if keys := getEnvAsSlice("GEMINI_KEYS"); len(keys) > 0 {
		return keys
	}
	if key := getEnvOrDefault("GEMINI_KEY", ""); key != "" {
		return []string{key}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("Invalid boolean in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
