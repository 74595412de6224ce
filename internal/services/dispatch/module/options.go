package module

import (
	"os"
	"strconv"
	"time"

	"fanflow/internal/platform/config"
)

// Options controls the dispatch worker
type Options struct {
	WorkerID       string
	Concurrency    int
	BatchSize      int
	Tick           time.Duration
	LeaseFor       time.Duration
	DeliverTimeout time.Duration
}

// FromConfig reads with DISPATCH_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("DISPATCH_")
	host, _ := os.Hostname()
	return Options{
		WorkerID:       c.MayString("WORKER_ID", host+":"+strconv.Itoa(os.Getpid())),
		Concurrency:    c.MayInt("CONCURRENCY", 4),
		BatchSize:      c.MayInt("BATCH_SIZE", 32),
		Tick:           c.MayDuration("TICK", time.Second),
		LeaseFor:       c.MayDuration("LEASE_FOR", time.Minute),
		DeliverTimeout: c.MayDuration("DELIVER_TIMEOUT", 30*time.Second),
	}
}
