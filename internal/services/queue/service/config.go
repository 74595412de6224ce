package service

import (
	"time"

	"fanflow/internal/platform/config"
	dom "fanflow/internal/services/queue/domain"
)

// FromConfig reads with QUEUE_ prefix
func FromConfig(cfg config.Conf) Config {
	c := cfg.Prefix("QUEUE_")
	return Config{
		Retry: dom.RetryPolicy{
			MaxRetries: c.MayInt("MAX_RETRIES", 3),
			Base:       c.MayDuration("RETRY_BASE", 30*time.Second),
			Cap:        c.MayDuration("RETRY_CAP", 30*time.Minute),
		},
	}
}
