package config

import (
	"errors"
	"fmt"
)

// ErrMissingSecretKey is returned when sessions cannot be signed.
var ErrMissingSecretKey = errors.New("FLASK_SECRET_KEY must be set")

// Validate checks the settings needed to serve requests. A missing API key is
// not an error here: the server starts and reports it on /test and on upload.
func (c *Config) Validate() error {
	if c.Server.SecretKey == "" {
		return ErrMissingSecretKey
	}
	return c.ValidateProcessing()
}

// ValidateProcessing checks the settings used by the generation pipeline
// alone, for entry points that have no sessions.
func (c *Config) ValidateProcessing() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Limits.MaxFiles <= 0 {
		return fmt.Errorf("max files must be positive, got %d", c.Limits.MaxFiles)
	}
	if c.Limits.MaxFileSizeMB <= 0 {
		return fmt.Errorf("max file size must be positive, got %dMB", c.Limits.MaxFileSizeMB)
	}
	if c.LLM.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative: %v", c.LLM.RateLimit)
	}
	switch c.LLM.Provider {
	case ProviderAnthropic:
	case ProviderVertex:
		if c.GCP.ProjectID == "" {
			return errors.New("PROJECT_ID must be set when LLM_PROVIDER is vertex")
		}
	default:
		return fmt.Errorf("unknown LLM provider %q", c.LLM.Provider)
	}
	return nil
}
