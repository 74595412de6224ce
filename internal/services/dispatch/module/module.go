// Package module wires the dispatch worker and exposes its port
package module

import (
	"fanflow/internal/modkit"
	dom "fanflow/internal/services/dispatch/domain"
	"fanflow/internal/services/dispatch/service"
)

// Module defines the dispatch worker module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// Ports holds the ports exposed by the dispatch module
type Ports struct {
	Worker dom.WorkerPort
}

// New constructs the dispatch module with its ports
func New(deps modkit.Deps, p service.Deps, overrides Options) *Module {
	opts := FromConfig(deps.Cfg)

	if overrides.WorkerID != "" {
		opts.WorkerID = overrides.WorkerID
	}
	if overrides.Concurrency != 0 {
		opts.Concurrency = overrides.Concurrency
	}
	if overrides.BatchSize != 0 {
		opts.BatchSize = overrides.BatchSize
	}
	if overrides.Tick != 0 {
		opts.Tick = overrides.Tick
	}
	if overrides.LeaseFor != 0 {
		opts.LeaseFor = overrides.LeaseFor
	}
	if overrides.DeliverTimeout != 0 {
		opts.DeliverTimeout = overrides.DeliverTimeout
	}

	svc := service.New(deps, p, service.Config{
		WorkerID:       opts.WorkerID,
		Concurrency:    opts.Concurrency,
		BatchSize:      opts.BatchSize,
		Tick:           opts.Tick,
		LeaseFor:       opts.LeaseFor,
		DeliverTimeout: opts.DeliverTimeout,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Worker: svc}
	return m
}

// Ports returns the module's ports
func (m *Module) Ports() Ports { return m.ports }
