package backend

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config for the evaluation backend client. Defaults can be loaded via
// envdecode.
type Config struct {
	// BaseURL of the evaluation API, like "http://localhost:8000". ENV: API_BASE_URL
	BaseURL string `env:"API_BASE_URL,default=http://localhost:8000"`
	// ChatTimeout bounds chat and evaluation calls, which run the full agent
	// pipeline. ENV: API_CHAT_TIMEOUT
	ChatTimeout time.Duration `env:"API_CHAT_TIMEOUT,default=30s"`
	// RequestTimeout bounds every other call. ENV: API_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"API_REQUEST_TIMEOUT,default=10s"`
	// BearerToken, when set, is sent as an Authorization header. ENV: API_BEARER_TOKEN
	BearerToken string `env:"API_BEARER_TOKEN"`
}

// ConfigFromEnv populates a Config using envdecode; defaults are provided
// via struct tags.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("backend: decode config from env: %w", err)
	}
	return cfg, nil
}
