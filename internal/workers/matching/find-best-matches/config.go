package findbestmatches

import (
	"fmt"
	"time"

	"talent-match-workers/internal/common/config"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Config struct {
	Timeout time.Duration
	// CompletionReserve is held back from the job deadline so a partial
	// ranking can still be reported before the broker reassigns the job.
	CompletionReserve time.Duration
	MaxCandidates     int
	UseSearch         bool
	CacheResults      bool
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:           30 * time.Second,
		CompletionReserve: time.Second,
		MaxCandidates:     200,
	}
}

func ConfigFrom(app *config.Config) *Config {
	cfg := DefaultConfig()
	if app == nil {
		return cfg
	}
	if wc, ok := app.Workers[TaskType]; ok && wc.Timeout > 0 {
		cfg.Timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	if app.Search.MaxCandidates > 0 {
		cfg.MaxCandidates = app.Search.MaxCandidates
	}
	cfg.UseSearch = app.Search.Enabled
	cfg.CacheResults = app.Cache.Enabled
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.CompletionReserve < 0 || c.CompletionReserve >= c.Timeout {
		return fmt.Errorf("completion reserve must be shorter than the timeout")
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max_candidates must be positive")
	}
	return nil
}

// rankingBudget is how long the engine may run for a job with the given time
// budget.
func (c *Config) rankingBudget(jobBudget time.Duration) time.Duration {
	if jobBudget > 2*c.CompletionReserve {
		return jobBudget - c.CompletionReserve
	}
	return jobBudget / 2
}
