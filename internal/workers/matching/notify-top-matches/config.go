package notifytopmatches

import (
	"fmt"
	"time"

	"talent-match-workers/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	EmailEnabled bool
	SMSEnabled   bool
	// PortalURL is linked from the email body when set.
	PortalURL string
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:      20 * time.Second,
		EmailEnabled: true,
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
	cfg.EmailEnabled = app.Notifications.Email.Enabled
	cfg.SMSEnabled = app.Notifications.SMS.Enabled
	cfg.PortalURL = app.Notifications.PortalURL
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
