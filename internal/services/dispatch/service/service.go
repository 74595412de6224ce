// Package service implements the dispatch worker that drains the queue
package service

import (
	"time"

	"fanflow/internal/modkit"
	"fanflow/internal/platform/store"

	dom "fanflow/internal/services/dispatch/domain"
	edom "fanflow/internal/services/engine/domain"
	qdom "fanflow/internal/services/queue/domain"
	rldom "fanflow/internal/services/ratelimit/domain"
)

// Service is the dispatcher surface
type Service interface {
	dom.WorkerPort
}

// Config controls the drain loop
type Config struct {
	WorkerID       string
	Concurrency    int
	BatchSize      int
	Tick           time.Duration
	LeaseFor       time.Duration
	DeliverTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.WorkerID == "" {
		c.WorkerID = "dispatch"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.Tick <= 0 {
		c.Tick = time.Second
	}
	if c.LeaseFor <= 0 {
		c.LeaseFor = time.Minute
	}
	if c.DeliverTimeout <= 0 {
		c.DeliverTimeout = 30 * time.Second
	}
	return c
}

// Deps are the capabilities the dispatcher composes
type Deps struct {
	Queue     qdom.LifecyclePort
	Limiter   rldom.LimiterPort
	Deliverer dom.Deliverer
	Marker    edom.MarkerPort
}

// Svc runs the dispatch loop: reap leases, claim due items, rate-gate,
// deliver once per claim, record the outcome
type Svc struct {
	p   Deps
	ch  store.Clickhouse
	cfg Config
	now func() time.Time
}

// New constructs the service
func New(deps modkit.Deps, p Deps, cfg Config) *Svc {
	return &Svc{
		p:   p,
		ch:  deps.CH,
		cfg: cfg.withDefaults(),
		now: time.Now,
	}
}

var _ Service = (*Svc)(nil)
