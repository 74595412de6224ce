// Package module wires the delivery rate limiter and exposes its port
package module

import (
	"fanflow/internal/modkit"
	dom "fanflow/internal/services/ratelimit/domain"
	"fanflow/internal/services/ratelimit/service"
)

// Module defines the rate limiter module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// Ports holds the ports exposed by the rate limiter module
type Ports struct {
	Limiter dom.LimiterPort
}

// New constructs the rate limiter module with its ports
func New(deps modkit.Deps, overrides Options) (*Module, error) {
	opts := FromConfig(deps.Cfg)

	if overrides.PerMinute != 0 {
		opts.PerMinute = overrides.PerMinute
	}
	if overrides.PerHour != 0 {
		opts.PerHour = overrides.PerHour
	}
	if overrides.MinInterval != 0 {
		opts.MinInterval = overrides.MinInterval
	}
	if overrides.RulesCSV != "" {
		opts.RulesCSV = overrides.RulesCSV
	}

	rules, err := ParseRules(opts.RulesCSV)
	if err != nil {
		return nil, err
	}

	svc := service.New(deps, service.Config{
		Default: dom.Rule{
			PerMinute:   opts.PerMinute,
			PerHour:     opts.PerHour,
			MinInterval: opts.MinInterval,
		},
		Rules: rules,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Limiter: svc}
	return m, nil
}

// Ports returns the module's ports
func (m *Module) Ports() Ports { return m.ports }
