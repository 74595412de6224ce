// Package module wires automation management into the API using modkit
package module

import (
	"net/http"

	modkit "fanflow/internal/modkit"
	"fanflow/internal/modkit/httpkit"
	"fanflow/internal/platform/net/middleware"
	str "fanflow/internal/platform/strings"

	ahttp "fanflow/internal/services/api/automations/http"
	adom "fanflow/internal/services/automations/domain"
)

// Ports are the ports this module consumes; the automations service owns the
// data, Auth guards the mutating routes (nil leaves them open)
type Ports struct {
	Reader adom.ReaderPort
	Writer adom.WriterPort
	Auth   middleware.AuthPort
}

// Module implements the automations API module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the automations API module around the service ports
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("automations"),
		modkit.WithPrefix("/automations"),
	}, opts...)...)

	ports, _ := b.Ports.(Ports)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		ports:     ports,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		ahttp.Register(r, m.ports.Reader, m.ports.Writer, m.ports.Auth)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
