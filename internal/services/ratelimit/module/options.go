package module

import (
	"strconv"
	"strings"
	"time"

	"fanflow/internal/platform/config"
	perr "fanflow/internal/platform/errors"
	dom "fanflow/internal/services/ratelimit/domain"
)

// Options controls the delivery rate limiter
type Options struct {
	PerMinute   int
	PerHour     int
	MinInterval time.Duration
	RulesCSV    string
}

// FromConfig reads with RATE_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("RATE_")
	return Options{
		PerMinute:   c.MayInt("PER_MINUTE", 6),
		PerHour:     c.MayInt("PER_HOUR", 60),
		MinInterval: c.MayDuration("MIN_INTERVAL", 5*time.Second),
		RulesCSV:    c.MayString("RULES", ""),
	}
}

// ParseRules decodes per-platform overrides of the form
// "youtube=6:60:5s,instagram=3:30:10s" (perMinute:perHour:minInterval).
// Platform keys are lowercased
func ParseRules(csv string) (map[string]dom.Rule, error) {
	rules := map[string]dom.Rule{}
	for _, entry := range strings.Split(csv, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, spec, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "rate rule %q: missing '='", entry)
		}
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "rate rule %q: want perMinute:perHour:minInterval", entry)
		}
		perMin, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "rate rule %q: bad per-minute %q", entry, parts[0])
		}
		perHour, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "rate rule %q: bad per-hour %q", entry, parts[1])
		}
		ival, err := time.ParseDuration(parts[2])
		if err != nil {
			return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "rate rule %q: bad interval %q", entry, parts[2])
		}
		rules[strings.ToLower(strings.TrimSpace(name))] = dom.Rule{
			PerMinute:   perMin,
			PerHour:     perHour,
			MinInterval: ival,
		}
	}
	return rules, nil
}
