package deliver

import (
	"fanflow/internal/platform/config"
)

// FromConfig reads with DELIVER_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("DELIVER_")
	return Options{
		BaseURL:   c.MayString("URL", ""),
		APIKey:    c.MayString("API_KEY", ""),
		Timeout:   c.MayDuration("TIMEOUT", defaultTimeout),
		UserAgent: c.MayString("USER_AGENT", defaultUA),
	}
}
