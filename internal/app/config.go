package app

import (
	"errors"
	"os"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// WorkflowPath points at a .hcl workflow file or a directory of them.
	WorkflowPath string
	// DataPath optionally names a text file whose lines become the default
	// dataset source.
	DataPath string

	// BaseURL overrides the API root. Empty falls back to PULSE_BASE_URL,
	// then to the production endpoint.
	BaseURL string
	// APIKey is the bearer token. Empty falls back to PULSE_API_KEY.
	APIKey string

	CacheDir    string
	Workers     int
	BestEffort  bool
	WaitTimeout time.Duration
	Fast        bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates a config and materializes environment fallbacks.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("PULSE_BASE_URL")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("PULSE_API_KEY")
	}
	return &cfg, nil
}
