package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel      OTelConfig
	ChatAPI   ChatAPIConfig
	Sync      SyncConfig
	DevServer DevServerConfig
	Env       string
}

type ChatAPIConfig struct {
	// BaseURL is the root of the chat API, e.g. http://localhost:8085/api/chat.
	BaseURL string
	// Token is the bearer token of the signed-in agent.
	Token string
	// Timeout bounds every individual HTTP request.
	Timeout time.Duration
}

type SyncConfig struct {
	// PollInterval is how often conversations and the unread count are refreshed.
	PollInterval time.Duration
	// HeartbeatInterval is how often online presence is re-asserted.
	HeartbeatInterval time.Duration
}

type DevServerConfig struct {
	Port string
	// JWTSecret signs and verifies dev tokens. Never use in production.
	JWTSecret string
	// RateLimit is the per-token request budget per minute. 0 disables throttling.
	RateLimit int
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type ServiceType string

const (
	ServiceTypeAgent     ServiceType = "agent"
	ServiceTypeDevServer ServiceType = "devserver"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.agent for the sync daemon
//   - .env.devserver for the local stub server
//
// Falls back to .env if the service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("CHATSYNC_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env: getEnv("CHATSYNC_ENV", "development"),
		ChatAPI: ChatAPIConfig{
			BaseURL: getEnv("CHAT_API_BASE_URL", "http://localhost:8085/api/chat"),
			Token:   getEnv("CHAT_API_TOKEN", ""),
			Timeout: getEnvDuration("CHAT_API_TIMEOUT", 15*time.Second),
		},
		Sync: SyncConfig{
			PollInterval:      getEnvDuration("CHAT_POLL_INTERVAL", 10*time.Second),
			HeartbeatInterval: getEnvDuration("CHAT_HEARTBEAT_INTERVAL", 30*time.Second),
		},
		DevServer: DevServerConfig{
			Port:      getEnv("PORT", "8085"),
			JWTSecret: getEnv("DEVSERVER_JWT_SECRET", "chatsync-dev-secret"),
			RateLimit: getEnvInt("DEVSERVER_RATE_LIMIT", 120),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "chatsync"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}

	if serviceType == ServiceTypeAgent && cfg.ChatAPI.Token == "" {
		return Config{}, fmt.Errorf("CHAT_API_TOKEN is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
