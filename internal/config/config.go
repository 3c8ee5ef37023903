package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Development bool
	// Local status API configuration
	APIPort int
	// Remote registry configuration
	BackendURL string
	SyncURL    string
	AdminToken string
	// Sync channel retry policy. Deployment constants, not algorithmic ones.
	SyncMaxReconnectAttempts int
	SyncReconnectDelay       time.Duration

	// Operator notification configuration
	TelegramBotToken string
	TelegramChatID   string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:              getEnvAsBool("DEVELOPMENT", false),
		APIPort:                  getEnvAsInt("API_PORT", 6580),
		BackendURL:               getEnv("BACKEND_URL", "https://nothingcube.ru"),
		SyncURL:                  getEnv("SYNC_URL", ""),
		AdminToken:               getEnv("ADMIN_TOKEN", ""),
		SyncMaxReconnectAttempts: getEnvAsInt("SYNC_MAX_RECONNECT_ATTEMPTS", 5),
		SyncReconnectDelay:       getEnvAsDuration("SYNC_RECONNECT_DELAY", time.Second),
		TelegramBotToken:         getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:           getEnv("TELEGRAM_CHAT_ID", ""),
	}

	if cfg.SyncURL == "" {
		derived, err := deriveSyncURL(cfg.BackendURL)
		if err != nil {
			return nil, err
		}
		cfg.SyncURL = derived
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}

	if _, err := url.Parse(c.BackendURL); err != nil {
		return fmt.Errorf("invalid BACKEND_URL: %w", err)
	}

	if c.SyncURL == "" {
		return fmt.Errorf("SYNC_URL is required")
	}

	if c.SyncMaxReconnectAttempts <= 0 {
		return fmt.Errorf("SYNC_MAX_RECONNECT_ATTEMPTS must be positive")
	}

	if c.SyncReconnectDelay <= 0 {
		return fmt.Errorf("SYNC_RECONNECT_DELAY must be positive")
	}

	if c.TelegramBotToken != "" && c.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	return nil
}

// deriveSyncURL turns the backend base URL into the websocket endpoint used
// by the push channel.
func deriveSyncURL(backendURL string) (string, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return "", fmt.Errorf("invalid BACKEND_URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("cannot derive SYNC_URL from scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	return u.String(), nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
