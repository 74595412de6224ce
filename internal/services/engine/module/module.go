// Package module wires the interaction engine and exposes its ports
package module

import (
	"fanflow/internal/modkit"
	dom "fanflow/internal/services/engine/domain"
	"fanflow/internal/services/engine/service"
)

// Module defines the engine module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// Ports holds the ports exposed by the engine module
type Ports struct {
	Submitter dom.SubmitterPort
	Marker    dom.MarkerPort
}

// New constructs the engine module around the pipeline capabilities
func New(deps modkit.Deps, p service.Deps) *Module {
	svc := service.New(deps, p)
	m := &Module{deps: deps}
	m.ports = Ports{
		Submitter: svc,
		Marker:    svc,
	}
	return m
}

// Ports returns the module's ports
func (m *Module) Ports() Ports { return m.ports }
