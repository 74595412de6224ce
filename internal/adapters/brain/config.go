package brain

import (
	"fanflow/internal/platform/config"
)

// FromConfig reads with BRAIN_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("BRAIN_")
	return Options{
		BaseURL:   c.MayString("URL", ""),
		APIKey:    c.MayString("API_KEY", ""),
		Model:     c.MayString("MODEL", defaultModel),
		Timeout:   c.MayDuration("TIMEOUT", defaultTimeout),
		UserAgent: c.MayString("USER_AGENT", defaultUA),
	}
}
