package config

import (
	"os"
	"strconv"
	"time"

	"github.com/wachira567/victorsprings-client/internal/utils"
)

// Config carries the client-core knobs. Everything comes from the
// environment; cmd/ loads a .env file first when one exists.
type Config struct {
	AppName         string
	APIBaseURL      string
	HTTPTimeout     time.Duration
	PollInterval    time.Duration
	PollMaxAttempts int
}

const (
	defaultHTTPTimeout     = 30 * time.Second
	defaultPollInterval    = 5 * time.Second
	defaultPollMaxAttempts = 12
)

func LoadConfig() *Config {
	appName := os.Getenv("APP_NAME")
	if appName == "" {
		appName = "victorsprings-client"
	}

	apiBaseURL := os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		utils.Logger.Fatal("API_BASE_URL env var is missing")
	}

	return &Config{
		AppName:         appName,
		APIBaseURL:      apiBaseURL,
		HTTPTimeout:     durationEnv("HTTP_TIMEOUT", defaultHTTPTimeout),
		PollInterval:    durationEnv("PAYMENT_POLL_INTERVAL", defaultPollInterval),
		PollMaxAttempts: intEnv("PAYMENT_POLL_MAX_ATTEMPTS", defaultPollMaxAttempts),
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		utils.Logger.Warnf("Invalid %s '%s', defaulting to %v", key, raw, fallback)
		return fallback
	}
	return d
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		utils.Logger.Warnf("Invalid %s '%s', defaulting to %d", key, raw, fallback)
		return fallback
	}
	return n
}
