package calculatematch

import (
	"fmt"
	"time"

	"talent-match-workers/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	CacheResults bool
}

func DefaultConfig() *Config {
	return &Config{Timeout: 10 * time.Second}
}

// ConfigFrom reads the worker section for TaskType from the app config.
func ConfigFrom(app *config.Config) *Config {
	cfg := DefaultConfig()
	if app == nil {
		return cfg
	}
	if wc, ok := app.Workers[TaskType]; ok && wc.Timeout > 0 {
		cfg.Timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	cfg.CacheResults = app.Cache.Enabled
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
