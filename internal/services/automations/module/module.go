// Package module wires the automations service and exposes its ports
package module

import (
	"fanflow/internal/modkit"
	dom "fanflow/internal/services/automations/domain"
	"fanflow/internal/services/automations/service"
)

// Options carries the external capabilities the module cannot build itself
type Options struct {
	// Evaluator decides AI conditions; nil disables them (they evaluate
	// as non-matching, logged by the matcher)
	Evaluator dom.ConditionEvaluator
}

// Module defines the automations module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// Ports holds the ports exposed by the automations module
type Ports struct {
	Reader    dom.ReaderPort
	Writer    dom.WriterPort
	Matcher   dom.MatcherPort
	Scheduler *service.Scheduler
}

// New constructs the automations module with its ports
func New(deps modkit.Deps, opts Options) *Module {
	svc := service.New(deps)
	m := &Module{deps: deps}
	m.ports = Ports{
		Reader:    svc,
		Writer:    svc,
		Matcher:   service.NewMatcher(opts.Evaluator),
		Scheduler: service.NewScheduler(),
	}
	return m
}

// Ports returns the module's ports
func (m *Module) Ports() Ports { return m.ports }
